// internal/config/validate_test.go
package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/tamzrod/parmair-bridge/internal/device"
)

// helper to build a minimal valid config quickly
func minimal(host string) *Config {
	return &Config{
		Bridge: BridgeConfig{
			Device: DeviceConfig{Host: host},
		},
	}
}

// ---- tests ----

func TestValidate_MinimalIsValid(t *testing.T) {
	if err := Validate(minimal("10.0.0.5")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidate_ReportsEveryProblem(t *testing.T) {
	cfg := &Config{
		Bridge: BridgeConfig{
			Device: DeviceConfig{Port: 70000, SlaveID: 248, Driver: "rtu"},
			Poll:   PollConfig{IntervalS: 4, MaxBlock: 200},
			MQTT:   MQTTConfig{Broker: "tcp://mqtt:1883", QoS: 3, TopicPrefix: "home/#"},
		},
	}

	err := Validate(cfg)
	if err == nil {
		t.Fatalf("expected error")
	}

	for _, want := range []string{
		"device.host is required",
		"device.port must be 1..65535",
		"device.slave_id must be 1..247",
		`device.driver "rtu"`,
		"poll.interval_s must be 5..300",
		"poll.max_block must be 1..125",
		"mqtt.qos must be 0, 1 or 2",
		"mqtt.topic_prefix must not contain wildcards",
	} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error %q does not mention %q", err.Error(), want)
		}
	}
}

func TestValidate_IntervalBounds(t *testing.T) {
	for _, tc := range []struct {
		interval int
		ok       bool
	}{
		{0, true}, // default
		{4, false},
		{5, true},
		{300, true},
		{301, false},
	} {
		cfg := minimal("h")
		cfg.Bridge.Poll.IntervalS = tc.interval
		err := Validate(cfg)
		if (err == nil) != tc.ok {
			t.Errorf("interval_s=%d: err=%v, want ok=%v", tc.interval, err, tc.ok)
		}
	}
}

func TestValidate_Profile(t *testing.T) {
	cfg := minimal("h")
	cfg.Bridge.Profile = ProfileConfig{Heater: "water"}
	if err := Validate(cfg); err == nil || !strings.Contains(err.Error(), "requires profile.firmware") {
		t.Fatalf("expected heater-without-firmware error, got %v", err)
	}

	cfg.Bridge.Profile = ProfileConfig{Firmware: "unknown"}
	if err := Validate(cfg); err == nil {
		t.Fatalf("expected error for unknown firmware")
	}

	cfg.Bridge.Profile = ProfileConfig{Firmware: "v2", Heater: "electric"}
	if err := Validate(cfg); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// a detected but undefined heater value round-trips through the config
	cfg.Bridge.Profile = ProfileConfig{Firmware: "v2", Heater: "unknown"}
	if err := Validate(cfg); err != nil {
		t.Fatalf("unexpected error for unknown heater: %v", err)
	}

	cfg.Bridge.Profile = ProfileConfig{Firmware: "v2", Heater: "gas"}
	if err := Validate(cfg); err == nil {
		t.Fatalf("expected error for heater gas")
	}
}

func TestValidate_DoesNotMutate(t *testing.T) {
	cfg := minimal("h")
	before := *cfg
	_ = Validate(cfg)
	if cfg.Bridge != before.Bridge {
		t.Fatalf("Validate mutated config")
	}
}

func TestNormalize_Defaults(t *testing.T) {
	cfg := minimal("10.0.0.5")
	cfg.Bridge.MQTT.Broker = "tcp://mqtt:1883"
	cfg.Bridge.MQTT.TopicPrefix = "home/parmair/"
	Normalize(cfg)

	b := cfg.Bridge
	if b.Name != DefaultName || b.Device.Port != 502 || b.Device.SlaveID != 1 {
		t.Fatalf("unexpected defaults: %+v", b)
	}
	if b.Device.Driver != DefaultDriver || b.Device.Timeout() != 3*time.Second {
		t.Fatalf("unexpected device defaults: %+v", b.Device)
	}
	if b.Poll.Interval() != 30*time.Second || b.Poll.FailureThreshold != 3 || b.Poll.MaxBlock != DefaultMaxBlock {
		t.Fatalf("unexpected poll defaults: %+v", b.Poll)
	}
	if b.MQTT.TopicPrefix != "home/parmair" {
		t.Fatalf("topic prefix not trimmed: %q", b.MQTT.TopicPrefix)
	}
	if b.Device.Endpoint() != "10.0.0.5:502" {
		t.Fatalf("endpoint=%q", b.Device.Endpoint())
	}
	if err := Validate(cfg); err != nil {
		t.Fatalf("normalized config must stay valid: %v", err)
	}
}

func TestPinned(t *testing.T) {
	cfg := minimal("h")
	Normalize(cfg)
	if _, ok := cfg.Bridge.Pinned(); ok {
		t.Fatalf("no profile configured, expected not pinned")
	}

	cfg.Bridge.Profile = ProfileConfig{Firmware: "v2"}
	p, ok := cfg.Bridge.Pinned()
	if !ok || p.Family != device.FamilyV2 || p.Heater != device.HeaterNone || p.SlaveID != 1 {
		t.Fatalf("unexpected pinned profile: %+v", p)
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bridge.yaml")
	data := `
bridge:
  name: Attic
  device:
    host: 192.168.1.40
    slave_id: 2
    driver: simonvetter
  poll:
    interval_s: 15
  http:
    listen: ":9090"
`
	if err := os.WriteFile(path, []byte(data), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Bridge.Name != "Attic" || cfg.Bridge.Device.SlaveID != 2 || cfg.Bridge.Poll.IntervalS != 15 {
		t.Fatalf("unexpected config: %+v", cfg.Bridge)
	}
	if cfg.Bridge.HTTP.Listen != ":9090" {
		t.Fatalf("listen=%q", cfg.Bridge.HTTP.Listen)
	}
}

func TestParse_RejectsUnknownKeys(t *testing.T) {
	if _, err := Parse([]byte("bridge:\n  device:\n    hots: x\n")); err == nil {
		t.Fatalf("expected unknown field error")
	}
}
