// internal/labels/labels.go
package labels

import (
	"fmt"

	"github.com/tamzrod/parmair-bridge/internal/catalog"
)

// Option is one raw value and its display label.
type Option struct {
	Value int64
	Label string
}

// Table maps raw register values to labels and back. Both directions
// are one-to-one.
type Table struct {
	options []Option
	byValue map[int64]string
	byLabel map[string]int64
}

// NewTable rejects duplicate values and duplicate or empty labels.
func NewTable(opts ...Option) (*Table, error) {
	if len(opts) == 0 {
		return nil, fmt.Errorf("labels: empty table")
	}
	t := &Table{
		options: make([]Option, len(opts)),
		byValue: make(map[int64]string, len(opts)),
		byLabel: make(map[string]int64, len(opts)),
	}
	copy(t.options, opts)
	for _, o := range opts {
		if o.Label == "" {
			return nil, fmt.Errorf("labels: value %d has no label", o.Value)
		}
		if _, dup := t.byValue[o.Value]; dup {
			return nil, fmt.Errorf("labels: value %d defined twice", o.Value)
		}
		if _, dup := t.byLabel[o.Label]; dup {
			return nil, fmt.Errorf("labels: label %q defined twice", o.Label)
		}
		t.byValue[o.Value] = o.Label
		t.byLabel[o.Label] = o.Value
	}
	return t, nil
}

func mustTable(opts ...Option) *Table {
	t, err := NewTable(opts...)
	if err != nil {
		panic(err)
	}
	return t
}

// Label returns the label for a raw value.
func (t *Table) Label(v int64) (string, bool) {
	l, ok := t.byValue[v]
	return l, ok
}

// Value returns the raw value for a label.
func (t *Table) Value(label string) (int64, bool) {
	v, ok := t.byLabel[label]
	return v, ok
}

// Options lists the labels in display order.
func (t *Table) Options() []string {
	out := make([]string, len(t.options))
	for i, o := range t.options {
		out[i] = o.Label
	}
	return out
}

func seq(first int64, labels ...string) []Option {
	out := make([]Option, len(labels))
	for i, l := range labels {
		out[i] = Option{Value: first + int64(i), Label: l}
	}
	return out
}

var (
	FilterInterval   = mustTable(seq(0, "3 months", "4 months", "6 months")...)
	SpeedControl     = mustTable(seq(0, "Auto", "Stop", "Speed 1", "Speed 2", "Speed 3", "Speed 4", "Speed 5")...)
	SpeedPreset      = mustTable(seq(0, "Speed 1", "Speed 2", "Speed 3", "Speed 4", "Speed 5")...)
	BoostSpeed       = mustTable(seq(2, "Speed 3", "Speed 4", "Speed 5")...)
	SummerMode       = mustTable(seq(0, "Off", "On", "Auto")...)
	BoostTime        = mustTable(seq(0, "30 min", "60 min", "90 min", "120 min", "180 min")...)
	OverpressureTime = mustTable(seq(0, "15 min", "30 min", "45 min", "60 min", "120 min")...)
)

var byKey = map[string]*Table{
	catalog.KeyFilterInterval:          FilterInterval,
	catalog.KeySpeedControl:            SpeedControl,
	catalog.KeyHomeSpeed:               SpeedPreset,
	catalog.KeyAwaySpeed:               SpeedPreset,
	catalog.KeyBoostSetting:            BoostSpeed,
	catalog.KeySummerMode:              SummerMode,
	catalog.KeyBoostTimeSetting:        BoostTime,
	catalog.KeyOverpressureTimeSetting: OverpressureTime,
}

// For returns the option table of a select register.
func For(key string) (*Table, bool) {
	t, ok := byKey[key]
	return t, ok
}

// Keys lists the registers that have option tables.
func Keys() []string {
	out := make([]string, 0, len(byKey))
	for k := range byKey {
		out = append(out, k)
	}
	return out
}

func init() {
	// every table must cover exactly the writable range of its register
	cat := catalog.Default()
	for key, t := range byKey {
		def, ok := cat.Any(key)
		if !ok {
			panic(fmt.Sprintf("labels: no register %q", key))
		}
		if !def.Bounded {
			panic(fmt.Sprintf("labels: register %q has no range", key))
		}
		for v := int64(def.ValueRange.Min); v <= int64(def.ValueRange.Max); v++ {
			if _, ok := t.Label(v); !ok {
				panic(fmt.Sprintf("labels: register %q value %d has no label", key, v))
			}
		}
		if n := int64(def.ValueRange.Max) - int64(def.ValueRange.Min) + 1; n != int64(len(t.options)) {
			panic(fmt.Sprintf("labels: register %q has %d labels for %d values", key, len(t.options), n))
		}
	}
}
