// Package config loads the daemon's YAML configuration file, layered
// under a .env for local secrets/overrides, the way the teacher's
// retrieval-pack peer ocx-backend wires godotenv + yaml.v2 (SPEC_FULL.md §2.3).
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v2"
)

// Config is the daemon's full runtime configuration.
type Config struct {
	Adapter struct {
		HCIIndex int `yaml:"hci_index"`
	} `yaml:"adapter"`

	Device struct {
		MAC            string        `yaml:"mac"`
		ReconnectDelay time.Duration `yaml:"reconnect_delay"`
		AutoWake       bool          `yaml:"auto_wake"`
		CalibrateTilt  bool          `yaml:"calibrate_tilt"`
	} `yaml:"device"`

	Environment struct {
		TemperatureF float64 `yaml:"temperature_f"`
		Humidity     float64 `yaml:"humidity"`
		AltitudeM    float64 `yaml:"altitude_m"`
		AirDensity   float64 `yaml:"air_density"`
		TeeRangeM    float64 `yaml:"tee_range_m"`
	} `yaml:"environment"`

	Sinks struct {
		SimulatorTCPAddr string `yaml:"simulator_tcp_addr"`
		ServerListenAddr string `yaml:"server_listen_addr"`
		HTTPBindAddr     string `yaml:"http_bind_addr"`
	} `yaml:"sinks"`

	Metrics struct {
		BindAddr string `yaml:"bind_addr"`
	} `yaml:"metrics"`

	LogLevel string `yaml:"log_level"`
}

// defaultReconnectDelay is applied when the config file omits
// device.reconnect_delay, matching spec.md §9's 5-10s default window.
const defaultReconnectDelay = 5 * time.Second

// Load reads envPath (if present; missing is not an error, matching
// godotenv's own convention for optional .env files) for environment
// overrides, then unmarshals yamlPath into a Config.
func Load(yamlPath, envPath string) (*Config, error) {
	if err := godotenv.Load(envPath); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("config: load .env: %w", err)
	}

	raw, err := os.ReadFile(yamlPath)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", yamlPath, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", yamlPath, err)
	}

	if cfg.Device.ReconnectDelay == 0 {
		cfg.Device.ReconnectDelay = defaultReconnectDelay
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}

	if mac := os.Getenv("R10_DEVICE_MAC"); mac != "" {
		cfg.Device.MAC = mac
	}
	if addr := os.Getenv("R10_SIMULATOR_TCP_ADDR"); addr != "" {
		cfg.Sinks.SimulatorTCPAddr = addr
	}

	return &cfg, nil
}
