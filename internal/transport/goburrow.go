// internal/transport/goburrow.go
package transport

import (
	"context"
	"errors"
	"time"

	"github.com/goburrow/modbus"
)

// goburrowDriver is a single TCP connection through goburrow/modbus.
// The unit id is a field on the handler, so it implements SlaveAssigner.
type goburrowDriver struct {
	handler *modbus.TCPClientHandler
	client  modbus.Client
}

// DialGoburrow returns a DialFunc backed by goburrow/modbus.
func DialGoburrow(endpoint string, unit uint8, timeout time.Duration) DialFunc {
	return func(ctx context.Context) (Driver, error) {
		if endpoint == "" {
			return nil, errors.New("goburrow: endpoint required")
		}

		h := modbus.NewTCPClientHandler(endpoint)
		h.Timeout = timeout
		h.SlaveId = unit

		if err := h.Connect(); err != nil {
			return nil, err
		}

		return &goburrowDriver{
			handler: h,
			client:  modbus.NewClient(h),
		}, nil
	}
}

func (d *goburrowDriver) Close() error {
	return d.handler.Close()
}

func (d *goburrowDriver) SetSlave(unit uint8) {
	d.handler.SlaveId = unit
}

func (d *goburrowDriver) ReadHoldingRegisters(addr, qty uint16) ([]uint16, error) {
	b, err := d.client.ReadHoldingRegisters(addr, qty)
	if err != nil {
		return nil, goburrowErr(err)
	}
	return unpackRegisters(b), nil
}

func (d *goburrowDriver) WriteSingleRegister(addr, value uint16) error {
	_, err := d.client.WriteSingleRegister(addr, value)
	return goburrowErr(err)
}

func (d *goburrowDriver) ReadCoils(addr, qty uint16) ([]bool, error) {
	b, err := d.client.ReadCoils(addr, qty)
	if err != nil {
		return nil, goburrowErr(err)
	}
	return unpackBits(b, int(qty)), nil
}

func (d *goburrowDriver) WriteSingleCoil(addr uint16, on bool) error {
	var v uint16
	if on {
		v = 0xFF00
	}
	_, err := d.client.WriteSingleCoil(addr, v)
	return goburrowErr(err)
}

func goburrowErr(err error) error {
	if err == nil {
		return nil
	}
	var me *modbus.ModbusError
	if errors.As(err, &me) {
		return &ExceptionError{Function: me.FunctionCode & 0x7F, Code: me.ExceptionCode}
	}
	return err
}
