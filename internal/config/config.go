// internal/config/config.go
package config

import (
	"net"
	"strconv"
	"time"

	"github.com/tamzrod/parmair-bridge/internal/device"
)

type Config struct {
	Bridge BridgeConfig `yaml:"bridge"`
}

type BridgeConfig struct {
	Name        string        `yaml:"name"`
	Device      DeviceConfig  `yaml:"device"`
	Poll        PollConfig    `yaml:"poll"`
	CatalogFile string        `yaml:"catalog_file"` // optional register table override
	Profile     ProfileConfig `yaml:"profile"`
	HTTP        HTTPConfig    `yaml:"http"`
	MQTT        MQTTConfig    `yaml:"mqtt"`
}

// ---- DEVICE ----

type DeviceConfig struct {
	Host      string `yaml:"host"`
	Port      int    `yaml:"port"`
	SlaveID   int    `yaml:"slave_id"`
	TimeoutMs int    `yaml:"timeout_ms"`
	Driver    string `yaml:"driver"` // goburrow | simonvetter | mbap
}

// ---- POLL ----

type PollConfig struct {
	IntervalS        int `yaml:"interval_s"`
	FailureThreshold int `yaml:"failure_threshold"`

	// Read block geometry. Registers closer than MaxGap are read in one
	// request; gap registers are read and discarded.
	MaxBlock int `yaml:"max_block"`
	MaxGap   int `yaml:"max_gap"`
}

// ---- PROFILE ----

// ProfileConfig pins what the probe would detect. When Firmware is set
// the probe is skipped at startup.
type ProfileConfig struct {
	Firmware string `yaml:"firmware"` // v1 | v2
	Heater   string `yaml:"heater"`   // none | water | electric
}

// ---- ENTITY BOUNDARIES ----

type HTTPConfig struct {
	Listen string `yaml:"listen"` // empty disables
}

type MQTTConfig struct {
	Broker      string `yaml:"broker"` // empty disables
	ClientID    string `yaml:"client_id"`
	Username    string `yaml:"username"`
	Password    string `yaml:"password"`
	TopicPrefix string `yaml:"topic_prefix"`
	QoS         int    `yaml:"qos"`
}

// ---- DERIVED ----

func (d DeviceConfig) Endpoint() string {
	return net.JoinHostPort(d.Host, strconv.Itoa(d.Port))
}

func (d DeviceConfig) Timeout() time.Duration {
	return time.Duration(d.TimeoutMs) * time.Millisecond
}

func (p PollConfig) Interval() time.Duration {
	return time.Duration(p.IntervalS) * time.Second
}

// Pinned returns the configured profile, if any. Heater defaults to none.
// Only meaningful after Validate.
func (b BridgeConfig) Pinned() (device.Profile, bool) {
	if b.Profile.Firmware == "" {
		return device.Profile{}, false
	}
	fam, _ := device.ParseFamily(b.Profile.Firmware)
	heater := device.HeaterNone
	if b.Profile.Heater != "" {
		_ = heater.UnmarshalText([]byte(b.Profile.Heater))
	}
	return device.Profile{
		Family:  fam,
		Heater:  heater,
		SlaveID: uint8(b.Device.SlaveID),
		Host:    b.Device.Host,
		Port:    b.Device.Port,
	}, true
}
