// Package config handles configuration loading and validation for chordd.
package config

import (
	"fmt"

	"github.com/BurntSushi/toml"
)

// Config holds the complete daemon configuration.
type Config struct {
	// Device configuration for the serial link.
	Device DeviceConfig `toml:"device"`

	// Decoder configuration: chord scheme and prediction.
	Decoder DecoderConfig `toml:"decoder"`

	// Logging configuration.
	Logging LoggingConfig `toml:"logging"`
}

// DeviceConfig identifies the board and its sensors.
type DeviceConfig struct {
	// Board is the board identity, informational for now.
	Board string `toml:"board"`

	// Port is the serial port the device is expected on.
	Port string `toml:"port"`

	// Sensors lists each flex sensor; the slice index is the sensor id.
	Sensors []SensorConfig `toml:"sensors"`
}

// SensorConfig describes one flex sensor.
type SensorConfig struct {
	// Pin is the analog pin label on the board ("A0").
	Pin string `toml:"pin"`

	// Label is the human-readable sensor name shown in displays.
	Label string `toml:"label"`

	// Limits is the raw ADC range the sensor moves through, [min, max].
	Limits [2]int `toml:"limits"`

	// Thresholds is the [release, trigger] pair within the mapped range.
	Thresholds [2]int `toml:"thresholds"`
}

// DecoderConfig holds the chord scheme.
type DecoderConfig struct {
	// Confirm is the sensor id that commits the pending chord.
	Confirm int `toml:"confirm"`

	// Scheme maps commands ("append:a", "delete", "question") to chords.
	Scheme map[string][]int `toml:"scheme"`

	// Prediction configures the suggestion path.
	Prediction PredictionConfig `toml:"prediction"`
}

// PredictionConfig configures dictionary-assisted suggestions.
type PredictionConfig struct {
	// Dictionary is the path to a .dict file; empty disables suggestions.
	Dictionary string `toml:"dictionary"`

	// Suggestions is how many candidates to offer.
	Suggestions int `toml:"suggestions"`
}

// LoggingConfig configures the structured logger.
type LoggingConfig struct {
	// Level is the minimum level: "debug", "info", "warn", "error".
	Level string `toml:"level"`

	// Format is "text" or "json".
	Format string `toml:"format"`

	// Output is "stdout", "stderr", or a file path.
	Output string `toml:"output"`
}

// Load reads, defaults, and validates the configuration at path.
func Load(path string) (*Config, error) {
	cfg := Default()
	meta, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return nil, fmt.Errorf("config: load %s: %w", path, err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("config: unknown key %q in %s", undecoded[0].String(), path)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
