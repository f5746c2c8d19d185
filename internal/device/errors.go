package device

import (
	"errors"
	"fmt"
)

// Device-link errors.
var (
	// ErrClosed indicates an operation on a closed link.
	ErrClosed = errors.New("device: link closed")

	// ErrReadTimeout indicates the device stopped answering mid-exchange.
	ErrReadTimeout = errors.New("device: read timed out")

	// ErrUploadTimeout indicates the flashing utility had to be killed.
	ErrUploadTimeout = errors.New("device: upload timed out")
)

// IOError wraps a transport failure. The supervisor treats anything
// carrying an IOError as connectivity-class: the link is gone and only a
// reconnect can help.
type IOError struct {
	Op  string
	Err error
}

func (e *IOError) Error() string { return fmt.Sprintf("device: %s: %v", e.Op, e.Err) }
func (e *IOError) Unwrap() error { return e.Err }

// IsIO reports whether err is connectivity-class.
func IsIO(err error) bool {
	var ioErr *IOError
	return errors.As(err, &ioErr)
}

// VerificationError indicates the connected device is not running the
// firmware this host was built against. Distinguishable from connectivity
// errors so the supervisor can attempt a one-shot reupload.
type VerificationError struct {
	Reason string
}

func (e *VerificationError) Error() string {
	if e.Reason == "" {
		return "device: verification failed"
	}
	return fmt.Sprintf("device: verification failed: %s", e.Reason)
}

// ResponseError indicates the device understood the exchange but rejected
// the command with one of its error ordinals.
type ResponseError struct {
	Command string
	Code    ResponseCode
}

func (e *ResponseError) Error() string {
	return fmt.Sprintf("device: command %q rejected: %s", e.Command, e.Code)
}

// ProtocolError indicates a response the host could not make sense of:
// malformed JSON, an unknown error ordinal, or a result of the wrong shape.
// The link itself is assumed still usable.
type ProtocolError struct {
	Command string
	Detail  string
	Err     error
}

func (e *ProtocolError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("device: command %q: %s: %v", e.Command, e.Detail, e.Err)
	}
	return fmt.Sprintf("device: command %q: %s", e.Command, e.Detail)
}

func (e *ProtocolError) Unwrap() error { return e.Err }

// UploadError indicates the flashing utility exited with a failure code.
type UploadError struct {
	ExitCode int
}

func (e *UploadError) Error() string {
	return fmt.Sprintf("device: upload failed with exit code %d", e.ExitCode)
}
