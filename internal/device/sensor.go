package device

import "fmt"

// SensorConfig holds one flex sensor's calibration: the raw ADC range it
// moves through and the trigger thresholds within that range.
//
// Invariants: min < max < 1024 (10-bit ADC), low < high. Both are enforced
// at construction and on every threshold change, so a SensorConfig obtained
// from this package is always valid.
type SensorConfig struct {
	min, max  uint16
	low, high uint8
}

// NewSensorConfig builds a SensorConfig for the given raw range, with the
// thresholds wide open until SetThresholds narrows them.
func NewSensorConfig(min, max uint16) (SensorConfig, error) {
	if min >= max || max >= 1024 {
		return SensorConfig{}, fmt.Errorf("device: invalid sensor range [%d, %d]: need min < max < 1024", min, max)
	}
	return SensorConfig{min: min, max: max, low: 0, high: 255}, nil
}

// Range returns the raw ADC range.
func (c SensorConfig) Range() (min, max uint16) { return c.min, c.max }

// Thresholds returns the release/trigger thresholds.
func (c SensorConfig) Thresholds() (low, high uint8) { return c.low, c.high }

// SetThresholds updates the thresholds, rejecting an inverted pair.
func (c *SensorConfig) SetThresholds(low, high uint8) error {
	if low >= high {
		return fmt.Errorf("device: invalid thresholds (%d, %d): need low < high", low, high)
	}
	c.low = low
	c.high = high
	return nil
}
