// internal/transport/dial.go
package transport

import (
	"fmt"
	"time"
)

// Driver names accepted in configuration.
const (
	DriverMBAP        = "mbap"
	DriverGoburrow    = "goburrow"
	DriverSimonvetter = "simonvetter"
)

// Drivers lists the accepted driver names.
var Drivers = []string{DriverGoburrow, DriverSimonvetter, DriverMBAP}

// Dialer picks the DialFunc for a configured driver name.
func Dialer(driver, endpoint string, unit uint8, timeout time.Duration) (DialFunc, error) {
	switch driver {
	case "", DriverGoburrow:
		return DialGoburrow(endpoint, unit, timeout), nil
	case DriverSimonvetter:
		return DialSimonvetter(endpoint, unit, timeout), nil
	case DriverMBAP:
		return DialMBAP(endpoint, timeout), nil
	}
	return nil, fmt.Errorf("transport: unknown driver %q", driver)
}
