package device

import _ "embed"

// Build-time facts about the supported board (an ATmega32U4 class board
// with native USB). The firmware image and the flasher configuration are
// embedded so the reflash path has no runtime file dependencies.
const (
	// sketchBaud is the wire rate of the running firmware.
	sketchBaud = 115200

	// touchBaud is the magic low rate that, combined with a DTR drop,
	// kicks the board into its bootloader.
	touchBaud = 1200

	flasherMCU      = "atmega32u4"
	flasherProtocol = "avr109"
	flasherSpeed    = 57600

	// use1200bpsTouch: the board needs the low-speed touch reset before
	// flashing. waitForUploadPort: the bootloader enumerates as a new
	// serial identity that must be discovered by diffing the registry.
	use1200bpsTouch   = true
	waitForUploadPort = true
)

// ExpectedInfo is the identity of the firmware build this host ships.
var ExpectedInfo = DeviceInfo{
	Name:      "chordware",
	Version:   "1.2.0",
	Timestamp: 1748502000,
}

//go:embed firmware/chordware.hex
var firmwareImage []byte

//go:embed firmware/avrdude.conf
var flasherConfig []byte
