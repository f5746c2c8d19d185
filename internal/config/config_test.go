package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "chordd.toml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

const validConfig = `
[device]
board = "micro"
port = "/dev/ttyACM0"

[[device.sensors]]
pin = "A0"
label = "index"
limits = [80, 700]
thresholds = [90, 110]

[[device.sensors]]
pin = "A1"
label = "middle"
limits = [100, 650]
thresholds = [85, 105]

[decoder]
confirm = 1

[decoder.scheme]
"append:a" = [0]
"delete" = [0, 0]
`

func TestLoad(t *testing.T) {
	cfg, err := Load(writeConfig(t, validConfig))
	require.NoError(t, err)

	assert.Equal(t, "/dev/ttyACM0", cfg.Device.Port)
	require.Len(t, cfg.Device.Sensors, 2)
	assert.Equal(t, [2]int{80, 700}, cfg.Device.Sensors[0].Limits)
	assert.Equal(t, [2]int{85, 105}, cfg.Device.Sensors[1].Thresholds)
	assert.Equal(t, 1, cfg.Decoder.Confirm)
	assert.Equal(t, []int{0, 0}, cfg.Decoder.Scheme["delete"])

	// Defaults fill in whatever the file leaves out.
	assert.Equal(t, 5, cfg.Decoder.Prediction.Suggestions)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "text", cfg.Logging.Format)
	assert.Equal(t, "stderr", cfg.Logging.Output)
}

func TestLoadOverridesDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, validConfig+`
[logging]
level = "debug"
format = "json"
output = "/tmp/chordd.log"
`))
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)
	assert.Equal(t, "/tmp/chordd.log", cfg.Logging.Output)
}

func TestLoadRejectsUnknownKeys(t *testing.T) {
	_, err := Load(writeConfig(t, validConfig+"\nspeling = true\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown key")
	assert.Contains(t, err.Error(), "speling")
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.toml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		cfg := Default()
		cfg.Device.Port = "/dev/ttyACM0"
		cfg.Device.Sensors = []SensorConfig{
			{Pin: "A0", Label: "index", Limits: [2]int{80, 700}, Thresholds: [2]int{90, 110}},
			{Pin: "A1", Label: "middle", Limits: [2]int{100, 650}, Thresholds: [2]int{85, 105}},
		}
		cfg.Decoder.Confirm = 1
		cfg.Decoder.Scheme = map[string][]int{"append:a": {0}}
		return cfg
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:   "valid",
			mutate: func(*Config) {},
		},
		{
			name:    "missing port",
			mutate:  func(c *Config) { c.Device.Port = "" },
			wantErr: "device.port",
		},
		{
			name:    "no sensors",
			mutate:  func(c *Config) { c.Device.Sensors = nil },
			wantErr: "device.sensors",
		},
		{
			name:    "inverted limits",
			mutate:  func(c *Config) { c.Device.Sensors[0].Limits = [2]int{700, 80} },
			wantErr: "limits",
		},
		{
			name:    "limits above adc range",
			mutate:  func(c *Config) { c.Device.Sensors[1].Limits = [2]int{80, 1024} },
			wantErr: "limits",
		},
		{
			name:    "equal thresholds",
			mutate:  func(c *Config) { c.Device.Sensors[0].Thresholds = [2]int{90, 90} },
			wantErr: "thresholds",
		},
		{
			name:    "confirm out of range",
			mutate:  func(c *Config) { c.Decoder.Confirm = 2 },
			wantErr: "decoder.confirm",
		},
		{
			name:    "bad scheme command",
			mutate:  func(c *Config) { c.Decoder.Scheme["erase"] = []int{0} },
			wantErr: "unknown scheme command",
		},
		{
			name:    "negative suggestions",
			mutate:  func(c *Config) { c.Decoder.Prediction.Suggestions = -1 },
			wantErr: "suggestions",
		},
		{
			name:    "bad level",
			mutate:  func(c *Config) { c.Logging.Level = "trace" },
			wantErr: "logging.level",
		},
		{
			name:    "bad format",
			mutate:  func(c *Config) { c.Logging.Format = "logfmt" },
			wantErr: "logging.format",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestExampleConfigLoads(t *testing.T) {
	cfg, err := Load("../../chordd.example.toml")
	require.NoError(t, err)
	assert.NotEmpty(t, cfg.Device.Sensors)
	assert.NotEmpty(t, cfg.Decoder.Scheme)
}
