// internal/transport/errors.go
package transport

import (
	"errors"
	"fmt"
)

var (
	// ErrCallShape is returned by a driver when it does not support the
	// calling convention it was asked to use. It is a compatibility signal,
	// never a device or network failure.
	ErrCallShape = errors.New("transport: call shape not supported")

	// ErrCallConventionExhausted means every known convention was rejected.
	// This is a driver compatibility bug, not a device fault.
	ErrCallConventionExhausted = errors.New("transport: no calling convention accepted by driver")

	ErrNotConnected = errors.New("transport: not connected")
)

// ConnectError is a socket or handshake failure.
type ConnectError struct {
	Endpoint string
	Err      error
}

func (e *ConnectError) Error() string {
	return fmt.Sprintf("transport: connect %s: %v", e.Endpoint, e.Err)
}

func (e *ConnectError) Unwrap() error { return e.Err }

// ExceptionError is a Modbus exception response. The link is still healthy.
type ExceptionError struct {
	Function byte
	Code     byte
}

func (e *ExceptionError) Error() string {
	return fmt.Sprintf("modbus exception: fc=%d code=%d", e.Function, e.Code)
}

// TransportError is a failed request: timeout, malformed response or a
// device exception.
type TransportError struct {
	Op      string
	Address uint16
	Unit    uint8
	Err     error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport: %s addr=%d unit=%d: %v", e.Op, e.Address, e.Unit, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// Exception reports whether the device answered with an exception code.
func (e *TransportError) Exception() bool {
	var ex *ExceptionError
	return errors.As(e.Err, &ex)
}

// IsTransport reports whether err is a TransportError.
func IsTransport(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}

// ModbusCode exposes the exception code to code-agnostic error reporting.
func (e *ExceptionError) ModbusCode() uint16 { return uint16(e.Code) }
