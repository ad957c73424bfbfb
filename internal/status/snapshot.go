// internal/status/snapshot.go
package status

import "time"

// Snapshot is the current link health. It is a value; callers get copies.
type Snapshot struct {
	State               ConnectionState `json:"state"`
	ConsecutiveFailures int             `json:"consecutiveFailures"`
	EverConnected       bool            `json:"everConnected"`

	LastError     string    `json:"lastError,omitempty"`
	LastErrorCode uint16    `json:"lastErrorCode"`
	LastSuccess   time.Time `json:"lastSuccess,omitempty"`
	ErrorSince    time.Time `json:"errorSince,omitempty"`
}

// SecondsInError is how long the link has been failing, saturating at 65535.
func (s Snapshot) SecondsInError(now time.Time) uint16 {
	if s.ErrorSince.IsZero() {
		return 0
	}
	d := now.Sub(s.ErrorSince) / time.Second
	if d < 0 {
		return 0
	}
	if d > 65535 {
		return 65535
	}
	return uint16(d)
}
