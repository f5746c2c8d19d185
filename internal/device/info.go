package device

import (
	"fmt"
	"time"
)

// DeviceInfo identifies a firmware build: its name, version, and build
// timestamp (unix seconds). The host embeds the values of the firmware it
// ships (board.go); the device reports the values it was actually flashed
// with. Exact equality confirms the device runs the expected firmware.
type DeviceInfo struct {
	Name      string `json:"name"`
	Version   string `json:"version"`
	Timestamp int64  `json:"timestamp"`
}

func (i DeviceInfo) String() string {
	built := time.Unix(i.Timestamp, 0).UTC().Format("2006-01-02 15:04:05")
	return fmt.Sprintf("%s %s (built %s)", i.Name, i.Version, built)
}
