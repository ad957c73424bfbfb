// internal/config/normalize.go
package config

import "strings"

const (
	DefaultName             = "Parmair MAC"
	DefaultPort             = 502
	DefaultSlaveID          = 1
	DefaultTimeoutMs        = 3000
	DefaultDriver           = "goburrow"
	DefaultIntervalS        = 30
	DefaultFailureThreshold = 3
	DefaultMaxBlock         = 120
	DefaultTopicPrefix      = "parmair"
	DefaultMQTTClientPrefix = "parmair-bridge-"
)

// Normalize applies post-validation defaults.
// It is allowed to mutate configuration.
// It MUST be called only after Validate().
func Normalize(cfg *Config) {
	if cfg == nil {
		return
	}
	b := &cfg.Bridge

	if strings.TrimSpace(b.Name) == "" {
		b.Name = DefaultName
	}

	if b.Device.Port == 0 {
		b.Device.Port = DefaultPort
	}
	if b.Device.SlaveID == 0 {
		b.Device.SlaveID = DefaultSlaveID
	}
	if b.Device.TimeoutMs == 0 {
		b.Device.TimeoutMs = DefaultTimeoutMs
	}
	if b.Device.Driver == "" {
		b.Device.Driver = DefaultDriver
	}

	if b.Poll.IntervalS == 0 {
		b.Poll.IntervalS = DefaultIntervalS
	}
	if b.Poll.FailureThreshold == 0 {
		b.Poll.FailureThreshold = DefaultFailureThreshold
	}
	if b.Poll.MaxBlock == 0 {
		b.Poll.MaxBlock = DefaultMaxBlock
	}

	if b.MQTT.Broker != "" {
		if b.MQTT.TopicPrefix == "" {
			b.MQTT.TopicPrefix = DefaultTopicPrefix
		}
		b.MQTT.TopicPrefix = strings.TrimSuffix(b.MQTT.TopicPrefix, "/")
	}
	// An empty client id is filled with a random one at connect time.
}
