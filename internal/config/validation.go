package config

import (
	"fmt"

	"chordd/internal/decoder"
)

// Validate checks the configuration for internal consistency. Scheme
// structure (chord ids, duplicates) is validated again by the decoder at
// construction; here only the command syntax and per-sensor invariants are
// checked, so a bad file fails before any hardware is touched.
func (c *Config) Validate() error {
	if c.Device.Port == "" {
		return fmt.Errorf("config: device.port must be set")
	}
	if len(c.Device.Sensors) == 0 {
		return fmt.Errorf("config: device.sensors must not be empty")
	}

	for i, sensor := range c.Device.Sensors {
		if err := sensor.validate(); err != nil {
			return fmt.Errorf("config: device.sensors[%d] (%s): %w", i, sensor.Label, err)
		}
	}

	if c.Decoder.Confirm < 0 || c.Decoder.Confirm >= len(c.Device.Sensors) {
		return fmt.Errorf("config: decoder.confirm %d out of range (have %d sensors)",
			c.Decoder.Confirm, len(c.Device.Sensors))
	}
	for command := range c.Decoder.Scheme {
		if _, err := decoder.ParseAction(command); err != nil {
			return fmt.Errorf("config: decoder.scheme: %w", err)
		}
	}

	if c.Decoder.Prediction.Suggestions < 0 {
		return fmt.Errorf("config: decoder.prediction.suggestions must not be negative")
	}

	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("config: logging.level %q is not one of debug, info, warn, error", c.Logging.Level)
	}
	switch c.Logging.Format {
	case "text", "json":
	default:
		return fmt.Errorf("config: logging.format %q is not one of text, json", c.Logging.Format)
	}

	return nil
}

func (s SensorConfig) validate() error {
	min, max := s.Limits[0], s.Limits[1]
	if min < 0 || min >= max || max >= 1024 {
		return fmt.Errorf("limits [%d, %d] invalid: need 0 <= min < max < 1024", min, max)
	}

	low, high := s.Thresholds[0], s.Thresholds[1]
	if low < 0 || low >= high || high > 255 {
		return fmt.Errorf("thresholds [%d, %d] invalid: need 0 <= low < high <= 255", low, high)
	}
	return nil
}
