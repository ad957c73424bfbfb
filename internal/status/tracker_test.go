// internal/status/tracker_test.go
package status

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

func TestTracker_NeverConnectedStaysDisconnected(t *testing.T) {
	tr := NewTracker(2)

	assert.Equal(t, Connecting, tr.Connecting())
	for i := 0; i < 5; i++ {
		assert.Equal(t, Disconnected, tr.Failure(errors.New("refused"), t0))
	}
	assert.Equal(t, 5, tr.Snapshot().ConsecutiveFailures)
	assert.False(t, tr.Snapshot().EverConnected)
}

func TestTracker_DegradedOnlyAtThreshold(t *testing.T) {
	tr := NewTracker(3)
	tr.Success(t0)

	assert.Equal(t, Connected, tr.Failure(errors.New("timeout"), t0))
	assert.Equal(t, Connected, tr.Failure(errors.New("timeout"), t0))
	assert.Equal(t, Degraded, tr.Failure(errors.New("timeout"), t0))
	assert.Equal(t, Degraded, tr.Failure(errors.New("timeout"), t0))

	// reconnect attempt does not hide the degraded state
	assert.Equal(t, Degraded, tr.Connecting())

	assert.Equal(t, Connected, tr.Success(t0.Add(time.Minute)))
	s := tr.Snapshot()
	assert.Equal(t, 0, s.ConsecutiveFailures)
	assert.Equal(t, "", s.LastError)
	assert.True(t, s.ErrorSince.IsZero())
}

func TestTracker_DefaultThreshold(t *testing.T) {
	assert.Equal(t, DefaultFailureThreshold, NewTracker(0).Threshold())
}

func TestSnapshot_SecondsInError(t *testing.T) {
	tr := NewTracker(1)
	tr.Success(t0)
	tr.Failure(errors.New("x"), t0)
	tr.Failure(errors.New("x"), t0.Add(10*time.Second))

	s := tr.Snapshot()
	assert.Equal(t, t0, s.ErrorSince)
	assert.Equal(t, uint16(30), s.SecondsInError(t0.Add(30*time.Second)))
	assert.Equal(t, uint16(65535), s.SecondsInError(t0.Add(48*time.Hour)))
	assert.Equal(t, uint16(0), Snapshot{}.SecondsInError(t0))
}

type modbusErr struct{ code uint16 }

func (e modbusErr) Error() string      { return "exception" }
func (e modbusErr) ModbusCode() uint16 { return e.code }

func TestErrorCode(t *testing.T) {
	assert.Equal(t, uint16(0), ErrorCode(nil))
	assert.Equal(t, ErrorCodeGeneric, ErrorCode(errors.New("plain")))
	assert.Equal(t, uint16(2), ErrorCode(fmt.Errorf("wrapped: %w", modbusErr{code: 2})))

	tr := NewTracker(1)
	tr.Failure(modbusErr{code: 4}, t0)
	require.Equal(t, uint16(4), tr.Snapshot().LastErrorCode)
}

func TestConnectionState_String(t *testing.T) {
	assert.Equal(t, "degraded", Degraded.String())
	b, err := Connected.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "connected", string(b))
	assert.True(t, Connected.Available())
	assert.False(t, Degraded.Available())
	assert.Len(t, States, 4)
}
