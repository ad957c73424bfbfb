// internal/poller/write.go
package poller

import (
	"context"
	"errors"
	"fmt"
	"math"

	"k8s.io/klog/v2"

	"github.com/tamzrod/parmair-bridge/internal/catalog"
	"github.com/tamzrod/parmair-bridge/internal/codec"
)

var (
	// ErrValidation matches every *ValidationError.
	ErrValidation = errors.New("poller: invalid write")

	// ErrRefreshFailed means the value was written but the forced poll
	// that should confirm it failed.
	ErrRefreshFailed = errors.New("poller: refresh after write failed")

	// ErrWriteUnconfirmed means the refresh succeeded but the device
	// reports a different value than the one written.
	ErrWriteUnconfirmed = errors.New("poller: write not confirmed by device")
)

// ValidationError rejects a write before anything reaches the wire.
type ValidationError struct {
	Key    string
	Value  float64
	Reason string
	Err    error
}

func (e *ValidationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("poller: write %s=%v: %s: %v", e.Key, e.Value, e.Reason, e.Err)
	}
	return fmt.Sprintf("poller: write %s=%v: %s", e.Key, e.Value, e.Reason)
}

func (e *ValidationError) Unwrap() error { return e.Err }

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// validate resolves key and encodes value, or explains why it can't.
func (c *Coordinator) validate(key string, value float64) (catalog.Definition, []uint16, error) {
	def, ok := c.cat.Lookup(key, c.family)
	switch {
	case !ok && c.cat.Has(key):
		return def, nil, &ValidationError{Key: key, Value: value, Reason: fmt.Sprintf("not available on firmware %s", c.family)}
	case !ok:
		return def, nil, &ValidationError{Key: key, Value: value, Reason: "unknown register"}
	case !def.Kind.Writable():
		return def, nil, &ValidationError{Key: key, Value: value, Reason: "register is read-only"}
	case math.IsNaN(value) || math.IsInf(value, 0):
		return def, nil, &ValidationError{Key: key, Value: value, Reason: "not a number"}
	case !def.InRange(value):
		return def, nil, &ValidationError{Key: key, Value: value,
			Reason: fmt.Sprintf("out of range %v..%v", def.ValueRange.Min, def.ValueRange.Max)}
	case (def.Enum || def.Kind == catalog.KindCoil) && value != math.Trunc(value):
		return def, nil, &ValidationError{Key: key, Value: value, Reason: "option values are integers"}
	}

	words, err := codec.Encode(value, def)
	if err != nil {
		return def, nil, &ValidationError{Key: key, Value: value, Reason: "cannot encode", Err: err}
	}
	return def, words, nil
}

// Write validates value, writes it, then forces one poll cycle and
// checks the device reports the written value. It returns only after
// that refresh, so the caller reads its own write.
//
// No partial writes: validation failures never touch the transport.
func (c *Coordinator) Write(ctx context.Context, key string, value float64) (err error) {
	defer func() {
		for _, o := range c.observers {
			o.WriteDone(key, err)
		}
	}()

	def, words, err := c.validate(key, value)
	if err != nil {
		return err
	}
	raw := codec.Raw(words, def.Type)

	c.opMu.Lock()
	defer c.opMu.Unlock()

	if !c.tr.Connected() {
		if err := c.tr.Connect(ctx); err != nil {
			return fmt.Errorf("poller: write %s: %w", key, err)
		}
	}

	unit := c.cfg.Profile.SlaveID
	if def.Kind == catalog.KindCoil {
		err = c.tr.WriteCoil(ctx, def.Address, raw != 0, unit)
	} else {
		err = c.tr.WriteRegister(ctx, def.Address, words[0], unit)
	}
	if err != nil {
		return fmt.Errorf("poller: write %s: %w", key, err)
	}
	klog.V(2).InfoS("Register written", "key", key, "value", value, "raw", raw)

	snap, err := c.pollLocked(ctx)
	if err != nil {
		return fmt.Errorf("%w: %s: %w", ErrRefreshFailed, key, err)
	}

	got, ok := snap.Raw(key)
	if !ok || got != raw {
		klog.InfoS("Write not confirmed", "key", key, "wrote", raw, "read", got, "present", ok)
		return fmt.Errorf("%w: %s wrote %d, device reports %d", ErrWriteUnconfirmed, key, raw, got)
	}
	return nil
}
