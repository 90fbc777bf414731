package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net"
	"strconv"

	"github.com/joho/godotenv"

	"github.com/banshee-data/vitals.report/internal/monitoring"
	"github.com/banshee-data/vitals.report/internal/report"
)

// DefaultDevicePath is where the monitor looks for its device file.
const DefaultDevicePath = "config.txt"

// Device defaults applied when the file or a key is missing.
const (
	DefaultPlate      = "UNKNOWN"
	DefaultModel      = "UNKNOWN"
	DefaultServerIP   = "192.168.100.14"
	DefaultServerPort = 5000
)

// DeviceConfig identifies the vehicle and the aggregator it reports to.
type DeviceConfig struct {
	Plate      string
	Model      string
	ServerIP   string
	ServerPort int
	// URL overrides the trigger URL built from ServerIP and ServerPort.
	URL string
}

// DefaultDeviceConfig returns the configuration used when no file exists.
func DefaultDeviceConfig() DeviceConfig {
	return DeviceConfig{
		Plate:      DefaultPlate,
		Model:      DefaultModel,
		ServerIP:   DefaultServerIP,
		ServerPort: DefaultServerPort,
	}
}

// LoadDeviceConfig reads a key=value device file. A missing file is not an
// error: the defaults are returned and the fallback is logged.
func LoadDeviceConfig(path string) (DeviceConfig, error) {
	cfg := DefaultDeviceConfig()

	values, err := godotenv.Read(path)
	if errors.Is(err, fs.ErrNotExist) {
		monitoring.Logf("device config %s not found, using defaults", path)
		return cfg, nil
	}
	if err != nil {
		return cfg, fmt.Errorf("failed to read device config: %w", err)
	}

	if v := values["plate"]; v != "" {
		cfg.Plate = v
	}
	if v := values["model"]; v != "" {
		cfg.Model = v
	}
	if v := values["server_ip"]; v != "" {
		cfg.ServerIP = v
	}
	if v := values["server_port"]; v != "" {
		port, err := strconv.Atoi(v)
		if err != nil || port <= 0 || port > 65535 {
			return cfg, fmt.Errorf("invalid server_port %q", v)
		}
		cfg.ServerPort = port
	}
	cfg.URL = values["server_url"]

	return cfg, nil
}

// ServerURL returns the aggregator trigger endpoint.
func (c DeviceConfig) ServerURL() string {
	if c.URL != "" {
		return c.URL
	}
	host := net.JoinHostPort(c.ServerIP, strconv.Itoa(c.ServerPort))
	return "http://" + host + "/trigger"
}

// Identity returns the vehicle identity attached to each payload.
func (c DeviceConfig) Identity() report.Identity {
	return report.Identity{Plate: c.Plate, Model: c.Model}
}
