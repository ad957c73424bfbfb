// internal/poller/types.go
package poller

import (
	"encoding/json"
	"sort"
	"time"

	"github.com/tamzrod/parmair-bridge/internal/catalog"
	"github.com/tamzrod/parmair-bridge/internal/device"
	"github.com/tamzrod/parmair-bridge/internal/status"
)

// ReadBlock describes one Modbus read geometry and the registers it carries.
type ReadBlock struct {
	Coil     bool
	Address  uint16
	Quantity uint16
	Defs     []catalog.Definition
}

// Snapshot is the result of one fully successful poll cycle.
// It is never modified after publication; readers share it freely.
type Snapshot struct {
	Seq    uint64
	At     time.Time
	OK     bool // false only for the initial empty snapshot
	Family device.FirmwareFamily

	values map[string]float64
	raw    map[string]int64
}

func emptySnapshot(f device.FirmwareFamily) *Snapshot {
	return &Snapshot{Family: f, values: map[string]float64{}, raw: map[string]int64{}}
}

// Value returns the decoded value of key. Registers whose decode failed
// are absent, never zero.
func (s *Snapshot) Value(key string) (float64, bool) {
	v, ok := s.values[key]
	return v, ok
}

// Raw returns the undecoded integer of key.
func (s *Snapshot) Raw(key string) (int64, bool) {
	v, ok := s.raw[key]
	return v, ok
}

// Values returns a copy of all decoded values.
func (s *Snapshot) Values() map[string]float64 {
	out := make(map[string]float64, len(s.values))
	for k, v := range s.values {
		out[k] = v
	}
	return out
}

// Keys is sorted.
func (s *Snapshot) Keys() []string {
	keys := make([]string, 0, len(s.values))
	for k := range s.values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func (s *Snapshot) Len() int { return len(s.values) }

func (s *Snapshot) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Seq    uint64                `json:"seq"`
		At     time.Time             `json:"at"`
		OK     bool                  `json:"ok"`
		Family device.FirmwareFamily `json:"firmwareFamily"`
		Values map[string]float64    `json:"values"`
	}{s.Seq, s.At, s.OK, s.Family, s.values})
}

// CycleResult describes one poll cycle for observers.
type CycleResult struct {
	At       time.Time
	Duration time.Duration
	Err      error     // non-nil means the cycle failed and nothing was published
	Snapshot *Snapshot // the snapshot published by this cycle, nil on failure
	Health   status.Snapshot
}

// Observer is notified synchronously from the polling goroutine. It must
// not call back into the coordinator's blocking methods.
type Observer interface {
	CycleDone(res CycleResult)
	StateChanged(from, to status.ConnectionState)
	WriteDone(key string, err error)
}
