// internal/status/constants.go
package status

import "fmt"

// ConnectionState is the link health the coordinator publishes.
type ConnectionState uint8

const (
	// Disconnected: no connection, or never connected yet.
	Disconnected ConnectionState = iota
	// Connecting: a connect attempt is in flight.
	Connecting
	// Connected: the last poll succeeded, or failures are under the threshold.
	Connected
	// Degraded: connected before, but the last N polls failed; values are stale.
	Degraded
)

// States lists every state, in code order.
var States = []ConnectionState{Disconnected, Connecting, Connected, Degraded}

var stateNames = map[ConnectionState]string{
	Disconnected: "disconnected",
	Connecting:   "connecting",
	Connected:    "connected",
	Degraded:     "degraded",
}

func (s ConnectionState) String() string {
	if n, ok := stateNames[s]; ok {
		return n
	}
	return fmt.Sprintf("state(%d)", uint8(s))
}

func (s ConnectionState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Available reports whether published values may be shown as live.
func (s ConnectionState) Available() bool {
	return s == Connected
}

// DefaultFailureThreshold is the number of consecutive failed polls
// before a connected device is reported as degraded.
const DefaultFailureThreshold = 3

// ErrorCodeGeneric is reported for failures that carry no device code.
const ErrorCodeGeneric uint16 = 1
