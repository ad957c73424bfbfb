// internal/transport/simonvetter.go
package transport

import (
	"context"
	"errors"
	"time"

	"github.com/simonvetter/modbus"
)

// simonvetterDriver wraps simonvetter/modbus, which selects the unit with
// SetUnitId before each call (UnitSelector).
type simonvetterDriver struct {
	client *modbus.ModbusClient
}

// DialSimonvetter returns a DialFunc backed by simonvetter/modbus.
func DialSimonvetter(endpoint string, unit uint8, timeout time.Duration) DialFunc {
	return func(ctx context.Context) (Driver, error) {
		if endpoint == "" {
			return nil, errors.New("simonvetter: endpoint required")
		}

		c, err := modbus.NewClient(&modbus.ClientConfiguration{
			URL:     "tcp://" + endpoint,
			Timeout: timeout,
		})
		if err != nil {
			return nil, err
		}
		if err := c.SetUnitId(unit); err != nil {
			return nil, err
		}
		if err := c.Open(); err != nil {
			return nil, err
		}
		return &simonvetterDriver{client: c}, nil
	}
}

func (d *simonvetterDriver) Close() error {
	return d.client.Close()
}

func (d *simonvetterDriver) SetUnitId(unit uint8) error {
	return d.client.SetUnitId(unit)
}

func (d *simonvetterDriver) ReadHoldingRegisters(addr, qty uint16) ([]uint16, error) {
	regs, err := d.client.ReadRegisters(addr, qty, modbus.HOLDING_REGISTER)
	if err != nil {
		return nil, simonvetterErr(fcReadHolding, err)
	}
	return regs, nil
}

func (d *simonvetterDriver) WriteSingleRegister(addr, value uint16) error {
	return simonvetterErr(fcWriteRegister, d.client.WriteRegister(addr, value))
}

func (d *simonvetterDriver) ReadCoils(addr, qty uint16) ([]bool, error) {
	bits, err := d.client.ReadCoils(addr, qty)
	if err != nil {
		return nil, simonvetterErr(fcReadCoils, err)
	}
	return bits, nil
}

func (d *simonvetterDriver) WriteSingleCoil(addr uint16, on bool) error {
	return simonvetterErr(fcWriteCoil, d.client.WriteCoil(addr, on))
}

var simonvetterExceptions = []struct {
	err  error
	code byte
}{
	{modbus.ErrIllegalFunction, 0x01},
	{modbus.ErrIllegalDataAddress, 0x02},
	{modbus.ErrIllegalDataValue, 0x03},
	{modbus.ErrServerDeviceFailure, 0x04},
	{modbus.ErrAcknowledge, 0x05},
	{modbus.ErrServerDeviceBusy, 0x06},
	{modbus.ErrMemoryParityError, 0x08},
	{modbus.ErrGWPathUnavailable, 0x0A},
	{modbus.ErrGWTargetFailedToRespond, 0x0B},
}

func simonvetterErr(fc byte, err error) error {
	if err == nil {
		return nil
	}
	for _, e := range simonvetterExceptions {
		if errors.Is(err, e.err) {
			return &ExceptionError{Function: fc, Code: e.code}
		}
	}
	return err
}
