// chordd - host daemon for a flex-sensor chord input device
//
//	chordd -config chordd.toml
//
// Opens the configured serial device under a supervising reconnect loop,
// decodes sensor chords into text, and prints the composed line. Editing
// the config file while running reapplies changed sensor thresholds.
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fatih/color"

	"chordd/internal/config"
	"chordd/internal/decoder"
	"chordd/internal/device"
	"chordd/internal/dictionary"
	"chordd/internal/logging"
	"chordd/internal/serialport"
	"chordd/internal/supervisor"
	"chordd/internal/watcher"
)

var (
	connectedMsg    = color.New(color.FgGreen)
	disconnectedMsg = color.New(color.FgRed, color.Bold)
	lineMsg         = color.New(color.FgCyan)
)

func main() {
	configPath := flag.String("config", "chordd.toml", "path to the configuration file")
	noVerify := flag.Bool("no-verify", false, "skip firmware identity verification on connect")
	noReload := flag.Bool("no-reload", false, "disable live threshold reload on config changes")
	flag.Parse()

	if err := run(*configPath, *noVerify, *noReload); err != nil {
		fmt.Fprintf(os.Stderr, "chordd: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath string, noVerify, noReload bool) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	closeLog, err := logging.Setup(logging.Config{
		Level:     cfg.Logging.Level,
		Format:    cfg.Logging.Format,
		Output:    cfg.Logging.Output,
		Component: "chordd",
	})
	if err != nil {
		return err
	}
	defer closeLog()

	dec, err := buildDecoder(cfg)
	if err != nil {
		return err
	}

	sensors, err := buildSensors(cfg.Device.Sensors)
	if err != nil {
		return err
	}

	opts := supervisor.DefaultOptions()
	opts.Verify = !noVerify
	sup := supervisor.New(serialport.Port(cfg.Device.Port), sensors, opts)
	defer sup.Close()

	var reload <-chan watcher.Event
	if !noReload {
		w, err := watcher.New(configPath, 500*time.Millisecond)
		if err != nil {
			return fmt.Errorf("watch config: %w", err)
		}
		if err := w.Start(); err != nil {
			return fmt.Errorf("watch config: %w", err)
		}
		defer w.Stop()
		reload = w.Events()
	}

	slog.Info("chordd started", "board", cfg.Device.Board, "port", cfg.Device.Port)
	return loop(cfg, sup, dec, reload)
}

// loop is the owner side of the supervisor: it drains device events into
// the decoder, mirrors connectivity to the console, and applies threshold
// edits from config reloads.
func loop(cfg *config.Config, sup *supervisor.Supervisor, dec *decoder.Decoder, reload <-chan watcher.Event) error {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	ticker := time.NewTicker(20 * time.Millisecond)
	defer ticker.Stop()

	wasConnected := false
	for {
		select {
		case <-stop:
			slog.Info("shutting down")
			return nil

		case ev := <-reload:
			applyReload(ev.Path, cfg, sup)

		case <-ticker.C:
			if connected := sup.Connected(); connected != wasConnected {
				wasConnected = connected
				if connected {
					connectedMsg.Fprintln(os.Stdout, "device connected")
				} else {
					disconnectedMsg.Fprintln(os.Stdout, "device disconnected")
				}
			}

			for _, ev := range sup.PollEvents() {
				if ev.Kind != device.SensorFlexed {
					continue
				}
				if out := dec.ProcessInput(int(ev.Sensor)); out != nil {
					render(cfg, dec, out)
				}
			}
		}
	}
}

func render(cfg *config.Config, dec *decoder.Decoder, out *decoder.InputEvent) {
	if out.Kind == decoder.EventIllegal {
		slog.Warn("illegal chord committed")
		return
	}

	lineMsg.Fprintf(os.Stdout, "> %s\n", dec.Line())
	if suggestions := dec.Suggestions(cfg.Decoder.Prediction.Suggestions); len(suggestions) > 0 {
		fmt.Fprintf(os.Stdout, "  suggestions: %v\n", suggestions)
	}
}

// applyReload re-reads the config file and pushes any threshold changes to
// the device. Other settings still need a restart.
func applyReload(path string, cfg *config.Config, sup *supervisor.Supervisor) {
	fresh, err := config.Load(path)
	if err != nil {
		slog.Error("config reload failed, keeping previous settings", "error", err)
		return
	}
	if len(fresh.Device.Sensors) != len(cfg.Device.Sensors) {
		slog.Warn("sensor count changed in config, restart required")
		return
	}

	for id, sensor := range fresh.Device.Sensors {
		low, high := uint8(sensor.Thresholds[0]), uint8(sensor.Thresholds[1])
		applied, ok := sup.SensorConfig(uint8(id))
		if !ok {
			continue
		}
		if curLow, curHigh := applied.Thresholds(); curLow == low && curHigh == high {
			continue
		}

		if err := sup.SetThresholds(uint8(id), low, high); err != nil {
			slog.Error("could not apply new thresholds", "sensor", id, "error", err)
			continue
		}
		slog.Info("thresholds updated", "sensor", id, "low", low, "high", high)
	}
	cfg.Device.Sensors = fresh.Device.Sensors
}

func buildDecoder(cfg *config.Config) (*decoder.Decoder, error) {
	scheme, err := decoder.NewScheme(cfg.Decoder.Scheme, cfg.Decoder.Confirm, len(cfg.Device.Sensors))
	if err != nil {
		return nil, err
	}

	var dict *dictionary.Dictionary
	if path := cfg.Decoder.Prediction.Dictionary; path != "" {
		dict, err = dictionary.Load(path)
		if err != nil {
			return nil, err
		}
		slog.Info("dictionary loaded", "path", path, "keys", dict.Len())
	}

	return decoder.New(scheme, dict), nil
}

func buildSensors(sensors []config.SensorConfig) ([]device.SensorConfig, error) {
	configs := make([]device.SensorConfig, 0, len(sensors))
	for i, sensor := range sensors {
		cfg, err := device.NewSensorConfig(uint16(sensor.Limits[0]), uint16(sensor.Limits[1]))
		if err != nil {
			return nil, fmt.Errorf("sensor %d (%s): %w", i, sensor.Label, err)
		}
		if err := cfg.SetThresholds(uint8(sensor.Thresholds[0]), uint8(sensor.Thresholds[1])); err != nil {
			return nil, fmt.Errorf("sensor %d (%s): %w", i, sensor.Label, err)
		}
		configs = append(configs, cfg)
	}
	return configs, nil
}
