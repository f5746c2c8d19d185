package device

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSensorConfig(t *testing.T) {
	tests := []struct {
		name     string
		min, max uint16
		wantErr  bool
	}{
		{"valid", 220, 760, false},
		{"full range", 0, 1023, false},
		{"min equals max", 500, 500, true},
		{"inverted", 760, 220, true},
		{"max too large", 0, 1024, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := NewSensorConfig(tt.min, tt.max)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)

			min, max := cfg.Range()
			assert.Equal(t, tt.min, min)
			assert.Equal(t, tt.max, max)

			// Thresholds start wide open.
			low, high := cfg.Thresholds()
			assert.Less(t, low, high)
		})
	}
}

func TestSetThresholds(t *testing.T) {
	cfg, err := NewSensorConfig(0, 1023)
	require.NoError(t, err)

	require.NoError(t, cfg.SetThresholds(100, 150))
	low, high := cfg.Thresholds()
	assert.Equal(t, uint8(100), low)
	assert.Equal(t, uint8(150), high)

	// A violating call is rejected and leaves the config untouched.
	assert.Error(t, cfg.SetThresholds(150, 100))
	assert.Error(t, cfg.SetThresholds(120, 120))
	low, high = cfg.Thresholds()
	assert.Equal(t, uint8(100), low)
	assert.Equal(t, uint8(150), high)
}

func TestResponseCodeStrings(t *testing.T) {
	for code := CodeJSONParse; code < codeCount; code++ {
		assert.NotContains(t, code.String(), "ResponseCode(")
	}
	assert.Contains(t, ResponseCode(42).String(), "42")
}

func TestResponseCodeFromOrdinal(t *testing.T) {
	code, err := responseCodeFromOrdinal("poll_event", 5)
	require.NoError(t, err)
	assert.Equal(t, CodeInvalidParam, code)

	_, err = responseCodeFromOrdinal("poll_event", 6)
	assert.Error(t, err)
	_, err = responseCodeFromOrdinal("poll_event", -1)
	assert.Error(t, err)
}
