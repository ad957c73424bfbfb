// internal/transport/adapter.go
package transport

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"k8s.io/klog/v2"
)

// DialFunc opens a driver. ONE attempt per call; reconnect policy belongs
// to the caller.
type DialFunc func(ctx context.Context) (Driver, error)

// Adapter is the single stable read/write surface over a driver.
//
// On the first request of a connection it walks Conventions in order,
// skipping every convention the driver rejects as ErrCallShape, and
// memoizes the first one that is accepted. Any other error is a
// TransportError and is returned immediately without trying another
// convention. The memo lives as long as the connection.
//
// Requests are serialized: at most one is in flight at any time.
type Adapter struct {
	endpoint    string
	dial        DialFunc
	conventions []Convention

	mu   sync.Mutex
	drv  Driver
	conv int // index into conventions, -1 until selected
}

// New creates a disconnected adapter.
func New(endpoint string, dial DialFunc) *Adapter {
	return &Adapter{
		endpoint:    endpoint,
		dial:        dial,
		conventions: Conventions,
		conv:        -1,
	}
}

// Endpoint is the host:port the adapter dials.
func (a *Adapter) Endpoint() string { return a.endpoint }

// Connect opens the driver if it is not open yet.
func (a *Adapter) Connect(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.drv != nil {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	drv, err := a.dial(ctx)
	if err != nil {
		return &ConnectError{Endpoint: a.endpoint, Err: err}
	}
	a.drv = drv
	a.conv = -1

	klog.V(2).InfoS("Transport connected", "endpoint", a.endpoint)
	return nil
}

// Connected reports whether a driver is open.
func (a *Adapter) Connected() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.drv != nil
}

// Convention is the name of the memoized convention, or "" before the
// first accepted request.
func (a *Adapter) Convention() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.conv < 0 {
		return ""
	}
	return a.conventions[a.conv].Name
}

// Close tears the connection down and forgets the convention.
func (a *Adapter) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.teardown()
}

func (a *Adapter) teardown() error {
	if a.drv == nil {
		return nil
	}
	err := a.drv.Close()
	a.drv = nil
	a.conv = -1
	return err
}

// ReadRegisters reads count holding registers (FC 3).
func (a *Adapter) ReadRegisters(ctx context.Context, addr, count uint16, unit uint8) ([]uint16, error) {
	r := request{fn: fnReadHolding, unit: unit, addr: addr, qty: count}
	resp, err := a.do(ctx, r)
	if err != nil {
		return nil, err
	}
	if len(resp.regs) != int(count) {
		return nil, a.fail(r, fmt.Errorf("short response: got %d registers, want %d", len(resp.regs), count))
	}
	return resp.regs, nil
}

// WriteRegister writes one holding register (FC 6).
func (a *Adapter) WriteRegister(ctx context.Context, addr, value uint16, unit uint8) error {
	_, err := a.do(ctx, request{fn: fnWriteRegister, unit: unit, addr: addr, value: value})
	return err
}

// ReadCoils reads count coils (FC 1).
func (a *Adapter) ReadCoils(ctx context.Context, addr, count uint16, unit uint8) ([]bool, error) {
	r := request{fn: fnReadCoils, unit: unit, addr: addr, qty: count}
	resp, err := a.do(ctx, r)
	if err != nil {
		return nil, err
	}
	if len(resp.bits) < int(count) {
		return nil, a.fail(r, fmt.Errorf("short response: got %d coils, want %d", len(resp.bits), count))
	}
	return resp.bits[:count], nil
}

// WriteCoil writes one coil (FC 5).
func (a *Adapter) WriteCoil(ctx context.Context, addr uint16, on bool, unit uint8) error {
	_, err := a.do(ctx, request{fn: fnWriteCoil, unit: unit, addr: addr, on: on})
	return err
}

func (a *Adapter) do(ctx context.Context, r request) (response, error) {
	if err := ctx.Err(); err != nil {
		return response{}, err
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if a.drv == nil {
		return response{}, ErrNotConnected
	}

	if a.conv >= 0 {
		c := a.conventions[a.conv]
		resp, err := c.do(a.drv, r)
		if errors.Is(err, ErrCallShape) {
			// the driver changed its mind; not a device problem
			return response{}, fmt.Errorf("transport: memoized convention %s rejected: %w", c.Name, err)
		}
		if err != nil {
			return response{}, a.failLocked(r, err)
		}
		return resp, nil
	}

	for i, c := range a.conventions {
		resp, err := c.do(a.drv, r)
		if errors.Is(err, ErrCallShape) {
			klog.V(4).InfoS("Calling convention rejected", "endpoint", a.endpoint, "convention", c.Name)
			continue
		}
		if err != nil {
			return response{}, a.failLocked(r, err)
		}

		a.conv = i
		klog.V(2).InfoS("Calling convention selected", "endpoint", a.endpoint, "convention", c.Name)
		return resp, nil
	}

	return response{}, fmt.Errorf("%w: %s on %s", ErrCallConventionExhausted, r.fn, a.endpoint)
}

func (a *Adapter) fail(r request, err error) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.failLocked(r, err)
}

// failLocked wraps err and drops the connection unless the device answered
// with an exception. The next cycle reconnects.
func (a *Adapter) failLocked(r request, err error) error {
	te := &TransportError{Op: r.fn.String(), Address: r.addr, Unit: r.unit, Err: err}
	if !te.Exception() {
		klog.V(2).InfoS("Transport failed, dropping connection", "endpoint", a.endpoint, "op", te.Op, "err", err)
		_ = a.teardown()
	}
	return te
}
