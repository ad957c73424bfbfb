// internal/config/validate.go
package config

import (
	"fmt"
	"strings"

	utilerrors "k8s.io/apimachinery/pkg/util/errors"

	"github.com/tamzrod/parmair-bridge/internal/device"
	"github.com/tamzrod/parmair-bridge/internal/transport"
)

// Validate checks configuration correctness.
// It performs declarative validation only; zero values mean "default".
// It MUST NOT mutate configuration.
func Validate(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("config: nil")
	}
	b := cfg.Bridge
	var errs []error

	// ------------------------------------------------------------
	// DEVICE
	// ------------------------------------------------------------

	if strings.TrimSpace(b.Device.Host) == "" {
		errs = append(errs, fmt.Errorf("device.host is required"))
	}
	if b.Device.Port != 0 && (b.Device.Port < 1 || b.Device.Port > 65535) {
		errs = append(errs, fmt.Errorf("device.port must be 1..65535, got %d", b.Device.Port))
	}
	if b.Device.SlaveID != 0 && (b.Device.SlaveID < 1 || b.Device.SlaveID > 247) {
		errs = append(errs, fmt.Errorf("device.slave_id must be 1..247, got %d", b.Device.SlaveID))
	}
	if b.Device.TimeoutMs < 0 {
		errs = append(errs, fmt.Errorf("device.timeout_ms must be >= 0, got %d", b.Device.TimeoutMs))
	}
	if b.Device.Driver != "" && !knownDriver(b.Device.Driver) {
		errs = append(errs, fmt.Errorf("device.driver %q is not one of %s", b.Device.Driver, strings.Join(transport.Drivers, ", ")))
	}

	// ------------------------------------------------------------
	// POLL
	// ------------------------------------------------------------

	if b.Poll.IntervalS != 0 && (b.Poll.IntervalS < 5 || b.Poll.IntervalS > 300) {
		errs = append(errs, fmt.Errorf("poll.interval_s must be 5..300, got %d", b.Poll.IntervalS))
	}
	if b.Poll.FailureThreshold < 0 {
		errs = append(errs, fmt.Errorf("poll.failure_threshold must be >= 1, got %d", b.Poll.FailureThreshold))
	}
	if b.Poll.MaxBlock < 0 || b.Poll.MaxBlock > 125 {
		errs = append(errs, fmt.Errorf("poll.max_block must be 1..125, got %d", b.Poll.MaxBlock))
	}
	if b.Poll.MaxGap < 0 || (b.Poll.MaxBlock > 0 && b.Poll.MaxGap >= b.Poll.MaxBlock) {
		errs = append(errs, fmt.Errorf("poll.max_gap must be >= 0 and smaller than max_block, got %d", b.Poll.MaxGap))
	}

	// ------------------------------------------------------------
	// PINNED PROFILE (OPT-IN)
	// ------------------------------------------------------------

	if b.Profile.Firmware != "" {
		f, err := device.ParseFamily(b.Profile.Firmware)
		if err != nil || f == device.FamilyUnknown {
			errs = append(errs, fmt.Errorf("profile.firmware must be v1 or v2, got %q", b.Profile.Firmware))
		}
	}
	if b.Profile.Heater != "" {
		var h device.HeaterType
		if err := h.UnmarshalText([]byte(b.Profile.Heater)); err != nil {
			errs = append(errs, fmt.Errorf("profile.heater must be none, water, electric or unknown, got %q", b.Profile.Heater))
		}
		if b.Profile.Firmware == "" {
			errs = append(errs, fmt.Errorf("profile.heater requires profile.firmware"))
		}
	}

	// ------------------------------------------------------------
	// MQTT (OPT-IN)
	// ------------------------------------------------------------

	if b.MQTT.Broker != "" {
		if b.MQTT.QoS < 0 || b.MQTT.QoS > 2 {
			errs = append(errs, fmt.Errorf("mqtt.qos must be 0, 1 or 2, got %d", b.MQTT.QoS))
		}
		if strings.ContainsAny(b.MQTT.TopicPrefix, "+#") {
			errs = append(errs, fmt.Errorf("mqtt.topic_prefix must not contain wildcards, got %q", b.MQTT.TopicPrefix))
		}
	}

	return utilerrors.NewAggregate(errs)
}

func knownDriver(name string) bool {
	for _, d := range transport.Drivers {
		if d == name {
			return true
		}
	}
	return false
}
