// internal/status/tracker.go
package status

import (
	"errors"
	"sync"
	"time"
)

// Tracker owns the ConnectionState transitions.
//
//	success                       -> connected, counter reset
//	failure, never connected      -> disconnected
//	failure, counter < threshold  -> unchanged
//	failure, counter >= threshold -> degraded
type Tracker struct {
	threshold int

	mu   sync.RWMutex
	snap Snapshot
}

// NewTracker starts disconnected. threshold <= 0 uses the default.
func NewTracker(threshold int) *Tracker {
	if threshold <= 0 {
		threshold = DefaultFailureThreshold
	}
	return &Tracker{threshold: threshold}
}

func (t *Tracker) Threshold() int { return t.threshold }

// Connecting marks a connect attempt. Only leaves disconnected; a degraded
// link reconnecting stays degraded until a poll succeeds.
func (t *Tracker) Connecting() ConnectionState {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.snap.State == Disconnected {
		t.snap.State = Connecting
	}
	return t.snap.State
}

// Success records a fully successful cycle.
func (t *Tracker) Success(at time.Time) ConnectionState {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.snap.State = Connected
	t.snap.EverConnected = true
	t.snap.ConsecutiveFailures = 0
	t.snap.LastError = ""
	t.snap.LastErrorCode = 0
	t.snap.LastSuccess = at
	t.snap.ErrorSince = time.Time{}
	return t.snap.State
}

// Failure records a failed cycle.
func (t *Tracker) Failure(err error, at time.Time) ConnectionState {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.snap.ConsecutiveFailures++
	if err != nil {
		t.snap.LastError = err.Error()
	}
	t.snap.LastErrorCode = ErrorCode(err)
	if t.snap.ErrorSince.IsZero() {
		t.snap.ErrorSince = at
	}

	switch {
	case !t.snap.EverConnected:
		t.snap.State = Disconnected
	case t.snap.ConsecutiveFailures >= t.threshold:
		t.snap.State = Degraded
	}
	return t.snap.State
}

// Snapshot returns a copy of the current state.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.snap
}

func (t *Tracker) State() ConnectionState {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.snap.State
}

// ErrorCode extracts a best-effort uint16 code from an error without assuming concrete types.
// If the error does not expose a code, returns ErrorCodeGeneric.
func ErrorCode(err error) uint16 {
	if err == nil {
		return 0
	}

	type coderA interface{ Code() uint16 }
	type coderB interface{ ModbusCode() uint16 }

	var a coderA
	if errors.As(err, &a) {
		return a.Code()
	}
	var b coderB
	if errors.As(err, &b) {
		return b.ModbusCode()
	}
	return ErrorCodeGeneric
}
