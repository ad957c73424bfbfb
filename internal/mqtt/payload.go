// internal/mqtt/payload.go
package mqtt

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/tamzrod/parmair-bridge/internal/labels"
	"github.com/tamzrod/parmair-bridge/internal/poller"
	"github.com/tamzrod/parmair-bridge/internal/status"
)

const (
	Online  = "online"
	Offline = "offline"

	setSuffix = "set"
)

var (
	ErrNotCommand    = errors.New("mqtt: not a command topic")
	ErrEmptyPayload  = errors.New("mqtt: empty payload")
	ErrUnknownOption = errors.New("mqtt: unknown option")
)

func AvailabilityTopic(prefix string) string { return prefix + "/availability" }

func StateTopic(prefix string) string { return prefix + "/state" }

// CommandFilter subscribes to every <prefix>/<key>/set topic.
func CommandFilter(prefix string) string { return prefix + "/+/" + setSuffix }

// Availability is online only while values are live.
func Availability(s status.ConnectionState) string {
	if s.Available() {
		return Online
	}
	return Offline
}

// StatePayload renders a snapshot as one JSON object. Select registers
// carry their label when the raw value has one, other registers the
// decoded number.
func StatePayload(s *poller.Snapshot) ([]byte, error) {
	out := make(map[string]any, s.Len())
	for key, v := range s.Values() {
		out[key] = v
		tbl, ok := labels.For(key)
		if !ok {
			continue
		}
		if raw, ok := s.Raw(key); ok {
			if l, ok := tbl.Label(raw); ok {
				out[key] = l
			}
		}
	}
	return json.Marshal(out)
}

// CommandKey extracts the register key from <prefix>/<key>/set.
func CommandKey(prefix, topic string) (string, error) {
	rest, ok := strings.CutPrefix(topic, prefix+"/")
	if !ok {
		return "", ErrNotCommand
	}
	key, ok := strings.CutSuffix(rest, "/"+setSuffix)
	if !ok || key == "" || strings.Contains(key, "/") {
		return "", ErrNotCommand
	}
	return key, nil
}

// ParseValue accepts a number or, for select registers, an option label.
func ParseValue(key string, payload []byte) (float64, error) {
	s := strings.TrimSpace(string(payload))
	if s == "" {
		return 0, ErrEmptyPayload
	}
	if v, err := strconv.ParseFloat(s, 64); err == nil {
		return v, nil
	}
	tbl, ok := labels.For(key)
	if !ok {
		return 0, fmt.Errorf("mqtt: %s: %q is not a number", key, s)
	}
	raw, ok := tbl.Value(s)
	if !ok {
		return 0, fmt.Errorf("%w %q for %s", ErrUnknownOption, s, key)
	}
	return float64(raw), nil
}
