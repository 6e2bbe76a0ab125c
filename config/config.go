package config

import (
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// Config is the full tool configuration: receiver selection plus the quirk
// table mapping wireless product ids to decoder variants.
type Config struct {
	Receiver ReceiverConfig `toml:"receiver"`
	Sink     SinkConfig     `toml:"sink"`
	Devices  []DeviceConfig `toml:"device"`
}

type ReceiverConfig struct {
	ShowTraffic bool `toml:"show_traffic"`
}

type SinkConfig struct {
	Uinput     bool   `toml:"uinput"`
	UinputPath string `toml:"uinput_path"`
	DeviceName string `toml:"device_name"`
}

// DeviceConfig describes one supported product: which wire variant it
// speaks and its quirks.
type DeviceConfig struct {
	Product              uint16 `toml:"product"`
	Name                 string `toml:"name"`
	Variant              string `toml:"variant"` // "rawpoints" or "rawxy"
	SuppressMouseButtons bool   `toml:"suppress_mouse_buttons"`
}

// DefaultConfig carries the known touch devices behind Unifying receivers.
func DefaultConfig() *Config {
	return &Config{
		Receiver: ReceiverConfig{
			ShowTraffic: false,
		},
		Sink: SinkConfig{
			Uinput:     false,
			UinputPath: "/dev/uinput",
			DeviceName: "unitouch virtual touchpad",
		},
		Devices: []DeviceConfig{
			{Product: 0x4026, Name: "Zone Touch Mouse T400", Variant: "rawpoints"},
			{Product: 0x4027, Name: "Touch Mouse T620", Variant: "rawpoints", SuppressMouseButtons: true},
			{Product: 0x4011, Name: "Wireless Touchpad", Variant: "rawxy"},
			{Product: 0x4101, Name: "Rechargeable Touchpad T650", Variant: "rawxy"},
		},
	}
}

// Lookup returns the entry for a wireless product id.
func (c *Config) Lookup(product uint16) (DeviceConfig, bool) {
	for _, d := range c.Devices {
		if d.Product == product {
			return d, true
		}
	}
	return DeviceConfig{}, false
}

// LoadConfig reads the configuration file, creating it with defaults when it
// does not exist yet.
func LoadConfig(configPath string) (*Config, error) {
	config := DefaultConfig()

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		if err := SaveConfig(configPath, config); err != nil {
			return config, err
		}
		return config, nil
	}

	if _, err := toml.DecodeFile(configPath, config); err != nil {
		return config, err
	}

	return config, nil
}

// SaveConfig writes the configuration as TOML.
func SaveConfig(configPath string, config *Config) error {
	if err := os.MkdirAll(filepath.Dir(configPath), 0755); err != nil {
		return err
	}

	f, err := os.Create(configPath)
	if err != nil {
		return err
	}
	defer f.Close()

	return toml.NewEncoder(f).Encode(config)
}
