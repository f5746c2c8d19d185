package device

import "fmt"

// ResponseCode is a device-reported error kind. The wire carries it as a
// bare integer ordinal in place of a result object.
type ResponseCode int

const (
	CodeJSONParse ResponseCode = iota
	CodeJSONAlloc
	CodeRequestTooLong
	CodeUnknownCommand
	CodeBufferTooSmall
	CodeInvalidParam

	codeCount
)

var codeMessages = [...]string{
	CodeJSONParse:      "request could not be parsed",
	CodeJSONAlloc:      "device JSON buffer is full",
	CodeRequestTooLong: "request line too long",
	CodeUnknownCommand: "unknown command",
	CodeBufferTooSmall: "response buffer too small",
	CodeInvalidParam:   "invalid parameter",
}

func (c ResponseCode) String() string {
	if c < 0 || c >= codeCount {
		return fmt.Sprintf("ResponseCode(%d)", int(c))
	}
	return codeMessages[c]
}

// responseCodeFromOrdinal maps a wire ordinal onto a ResponseCode.
// An out-of-range ordinal is itself a protocol error.
func responseCodeFromOrdinal(command string, ordinal int64) (ResponseCode, error) {
	if ordinal < 0 || ordinal >= int64(codeCount) {
		return 0, &ProtocolError{
			Command: command,
			Detail:  fmt.Sprintf("unknown error ordinal %d", ordinal),
		}
	}
	return ResponseCode(ordinal), nil
}
