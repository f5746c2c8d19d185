// Package device owns one physical connection to the sensor board: the
// newline-delimited JSON wire protocol, firmware verification on open, and
// the bootloader reflash handshake.
package device

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"chordd/internal/serialport"
)

// readTimeout bounds one response read. The firmware answers every request
// within a few milliseconds; a silent link is a broken link.
const readTimeout = 2 * time.Second

// Link is one open connection to the device. It is not safe for concurrent
// use; the supervisor is its only caller in the daemon.
type Link struct {
	conn   serialport.Conn
	closed bool
}

// Open opens the device at the sketch rate, discards any bytes buffered
// from before the open, and, if verify is set, requires the device's
// reported identity to match ExpectedInfo bit for bit. A mismatch comes
// back as *VerificationError so callers can tell it from connectivity
// failures.
func Open(port serialport.Port, verify bool) (*Link, error) {
	conn, err := port.Open(sketchBaud)
	if err != nil {
		return nil, &IOError{Op: "open", Err: err}
	}
	return open(conn, verify)
}

// open finishes link setup on an already-open connection. Split from Open
// so tests can drive the protocol over an in-memory conn.
func open(conn serialport.Conn, verify bool) (*Link, error) {
	if err := conn.SetReadTimeout(readTimeout); err != nil {
		conn.Close()
		return nil, &IOError{Op: "configure", Err: err}
	}
	if err := conn.ResetInputBuffer(); err != nil {
		conn.Close()
		return nil, &IOError{Op: "discard stale input", Err: err}
	}

	l := &Link{conn: conn}
	if verify {
		if err := l.verify(); err != nil {
			l.Close()
			return nil, err
		}
	}
	return l, nil
}

// Close releases the connection, first deasserting the reset control line
// best-effort. Safe to call more than once.
func (l *Link) Close() error {
	if l.closed {
		return nil
	}
	l.closed = true

	// The DTR line doubles as the reset trigger; leave it deasserted so
	// the device does not reboot when the next opener asserts it.
	if err := l.conn.SetDTR(false); err != nil {
		slog.Debug("could not deassert DTR on close", "error", err)
	}
	return l.conn.Close()
}

func (l *Link) verify() error {
	info, err := l.DeviceInfo()
	if err != nil {
		return &VerificationError{Reason: err.Error()}
	}
	if info == nil {
		slog.Info("device offers no identity, skipping verification")
		return nil
	}

	slog.Info("device identity received", "device", info.String())
	if *info != ExpectedInfo {
		return &VerificationError{
			Reason: fmt.Sprintf("device reports %s, host expects %s", info, ExpectedInfo),
		}
	}
	return nil
}

// DeviceInfo asks the device for its firmware identity. A nil result means
// the firmware predates identity reporting.
func (l *Link) DeviceInfo() (*DeviceInfo, error) {
	line, err := l.exchange("device_info", nil)
	if err != nil {
		return nil, err
	}

	var info *DeviceInfo
	if err := json.Unmarshal(line, &info); err != nil {
		return nil, &ProtocolError{Command: "device_info", Detail: "malformed result", Err: err}
	}
	return info, nil
}

// PollEvent asks the device for one pending sensor transition. A nil event
// means nothing is pending; the exchange itself is a single line each way.
func (l *Link) PollEvent() (*Event, error) {
	line, err := l.exchange("poll_event", nil)
	if err != nil {
		return nil, err
	}
	return decodeEvent("poll_event", line)
}

// SensorValues reads the current value of every sensor slot. A nil element
// marks an unconfigured slot. With raw set, values are unmapped ADC
// readings instead of threshold-scaled ones.
func (l *Link) SensorValues(raw bool) ([]*uint8, error) {
	line, err := l.exchange("sensor_values", map[string]any{"raw": raw})
	if err != nil {
		return nil, err
	}

	var values []*uint8
	if err := json.Unmarshal(line, &values); err != nil {
		return nil, &ProtocolError{Command: "sensor_values", Detail: "malformed result", Err: err}
	}
	return values, nil
}

// SetSensor configures one sensor slot.
func (l *Link) SetSensor(id uint8, cfg SensorConfig) error {
	min, max := cfg.Range()
	low, high := cfg.Thresholds()

	_, err := l.exchange("set_sensor", map[string]any{
		"id":   id,
		"min":  min,
		"max":  max,
		"low":  low,
		"high": high,
	})
	return err
}

// UnsetSensor clears one sensor slot.
func (l *Link) UnsetSensor(id uint8) error {
	_, err := l.exchange("unset_sensor", map[string]any{"id": id})
	return err
}

// exchange performs one request/response round trip: a newline-terminated
// JSON object carrying the command plus parameters out, one line back. A
// bare-integer response is a device error ordinal; anything else is
// returned raw for the caller to decode.
func (l *Link) exchange(command string, params map[string]any) (json.RawMessage, error) {
	if l.closed {
		return nil, &IOError{Op: command, Err: ErrClosed}
	}

	request := make(map[string]any, len(params)+1)
	for key, value := range params {
		request[key] = value
	}
	request["command"] = command

	payload, err := json.Marshal(request)
	if err != nil {
		return nil, &ProtocolError{Command: command, Detail: "unencodable request", Err: err}
	}
	payload = append(payload, '\n')

	if _, err := l.conn.Write(payload); err != nil {
		return nil, &IOError{Op: fmt.Sprintf("send %s", command), Err: err}
	}
	slog.Debug("request sent", "command", command)

	line, err := l.readLine(command)
	if err != nil {
		return nil, err
	}
	slog.Debug("response received", "command", command, "bytes", len(line))

	if code, ok, err := decodeOrdinal(command, line); err != nil {
		return nil, err
	} else if ok {
		return nil, &ResponseError{Command: command, Code: code}
	}
	return line, nil
}

// readLine collects one response line, stripping carriage returns. The
// firmware terminates every response with a newline.
func (l *Link) readLine(command string) ([]byte, error) {
	var line bytes.Buffer
	buf := make([]byte, 1)
	for {
		n, err := l.conn.Read(buf)
		if err != nil {
			return nil, &IOError{Op: fmt.Sprintf("receive %s", command), Err: err}
		}
		if n == 0 {
			return nil, &IOError{Op: fmt.Sprintf("receive %s", command), Err: ErrReadTimeout}
		}

		switch buf[0] {
		case '\r':
		case '\n':
			return line.Bytes(), nil
		default:
			line.WriteByte(buf[0])
		}
	}
}

// decodeOrdinal reports whether line is a bare integer error ordinal,
// mapping it through ResponseCode if so.
func decodeOrdinal(command string, line []byte) (ResponseCode, bool, error) {
	dec := json.NewDecoder(bytes.NewReader(line))
	dec.UseNumber()

	var value any
	if err := dec.Decode(&value); err != nil {
		return 0, false, &ProtocolError{Command: command, Detail: "malformed response", Err: err}
	}

	num, ok := value.(json.Number)
	if !ok || strings.ContainsAny(num.String(), ".eE") {
		return 0, false, nil
	}

	ordinal, err := num.Int64()
	if err != nil {
		return 0, false, &ProtocolError{Command: command, Detail: "malformed error ordinal", Err: err}
	}
	code, err := responseCodeFromOrdinal(command, ordinal)
	if err != nil {
		return 0, false, err
	}
	return code, true, nil
}
