package supervisor

import (
	"sync"

	"chordd/internal/device"
)

// sensorStore mirrors the configuration currently applied on the device.
// It is the only state shared between the owner and the supervisor
// goroutine: the supervisor writes it as commands are applied and replays
// it on every reconnect; the owner reads it for display.
type sensorStore struct {
	mu      sync.Mutex
	configs []device.SensorConfig
}

func newSensorStore(sensors []device.SensorConfig) *sensorStore {
	configs := make([]device.SensorConfig, len(sensors))
	copy(configs, sensors)
	return &sensorStore{configs: configs}
}

func (st *sensorStore) get(id uint8) (device.SensorConfig, bool) {
	st.mu.Lock()
	defer st.mu.Unlock()
	if int(id) >= len(st.configs) {
		return device.SensorConfig{}, false
	}
	return st.configs[id], true
}

func (st *sensorStore) set(id uint8, cfg device.SensorConfig) {
	st.mu.Lock()
	defer st.mu.Unlock()
	if int(id) < len(st.configs) {
		st.configs[id] = cfg
	}
}

func (st *sensorStore) snapshot() []device.SensorConfig {
	st.mu.Lock()
	defer st.mu.Unlock()
	configs := make([]device.SensorConfig, len(st.configs))
	copy(configs, st.configs)
	return configs
}
