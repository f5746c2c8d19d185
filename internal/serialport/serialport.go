// Package serialport enumerates the host's serial ports and opens them.
//
// A Port is an opaque platform identifier ("/dev/ttyACM0", "COM3"). Ports
// are comparable and ordered so that snapshots of the attached devices can
// be diffed, which is how the bootloader port is located after a reset.
package serialport

import (
	"fmt"
	"time"

	"go.bug.st/serial"
)

// Port identifies one serial device on this host.
// Equality is identifier equality.
type Port string

func (p Port) String() string { return string(p) }

// Conn is the open-connection surface the device layer depends on.
// go.bug.st/serial ports satisfy it; tests substitute an in-memory fake.
type Conn interface {
	Read(p []byte) (int, error)
	Write(p []byte) (int, error)
	Close() error

	SetDTR(dtr bool) error
	SetReadTimeout(t time.Duration) error
	ResetInputBuffer() error
}

// Enumerate returns the serial ports currently attached to the host.
func Enumerate() ([]Port, error) {
	names, err := serial.GetPortsList()
	if err != nil {
		return nil, fmt.Errorf("serialport: enumerate: %w", err)
	}

	ports := make([]Port, 0, len(names))
	for _, name := range names {
		ports = append(ports, Port(name))
	}
	return ports, nil
}

// Diff returns the ports present in after but not in before.
func Diff(before, after []Port) []Port {
	seen := make(map[Port]struct{}, len(before))
	for _, p := range before {
		seen[p] = struct{}{}
	}

	var fresh []Port
	for _, p := range after {
		if _, ok := seen[p]; !ok {
			fresh = append(fresh, p)
		}
	}
	return fresh
}

// Contains reports whether ports includes p.
func Contains(ports []Port, p Port) bool {
	for _, q := range ports {
		if q == p {
			return true
		}
	}
	return false
}

// Open opens the port at the given baud rate with 8N1 framing.
func (p Port) Open(baud int) (Conn, error) {
	mode := &serial.Mode{
		BaudRate: baud,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}

	conn, err := serial.Open(string(p), mode)
	if err != nil {
		return nil, fmt.Errorf("serialport: open %s: %w", p, err)
	}
	return conn, nil
}
