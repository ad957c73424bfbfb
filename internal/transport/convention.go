// internal/transport/convention.go
package transport

import "errors"

// Driver is an open handle from some Modbus client library. Libraries
// disagree on how the unit id is passed; each way is one of the optional
// interfaces below and the adapter probes them in order.
type Driver interface {
	Close() error
}

// UnitRequester takes the unit id as a request argument.
type UnitRequester interface {
	ReadHoldingRegistersUnit(unit uint8, addr, qty uint16) ([]uint16, error)
	WriteSingleRegisterUnit(unit uint8, addr, value uint16) error
	ReadCoilsUnit(unit uint8, addr, qty uint16) ([]bool, error)
	WriteSingleCoilUnit(unit uint8, addr uint16, on bool) error
}

// UnitSelector switches the unit for the calls that follow.
type UnitSelector interface {
	SetUnitId(unit uint8) error
	Plain
}

// SlaveAssigner exposes the unit as a field on the client handle.
type SlaveAssigner interface {
	SetSlave(unit uint8)
	Plain
}

// Plain issues requests to whatever unit the handle was built for.
type Plain interface {
	ReadHoldingRegisters(addr, qty uint16) ([]uint16, error)
	WriteSingleRegister(addr, value uint16) error
	ReadCoils(addr, qty uint16) ([]bool, error)
	WriteSingleCoil(addr uint16, on bool) error
}

type function uint8

const (
	fnReadHolding function = iota
	fnWriteRegister
	fnReadCoils
	fnWriteCoil
)

func (f function) String() string {
	switch f {
	case fnReadHolding:
		return "read holding registers"
	case fnWriteRegister:
		return "write register"
	case fnReadCoils:
		return "read coils"
	case fnWriteCoil:
		return "write coil"
	}
	return "unknown"
}

// request is one wire operation, independent of calling convention.
type request struct {
	fn    function
	unit  uint8
	addr  uint16
	qty   uint16
	value uint16
	on    bool
}

type response struct {
	regs []uint16
	bits []bool
}

// Convention is one way of handing the unit id to a driver. do returns
// ErrCallShape when d does not support it.
type Convention struct {
	Name string
	do   func(d Driver, r request) (response, error)
}

// Conventions in priority order.
var Conventions = []Convention{
	{Name: "request-unit", do: requestUnit},
	{Name: "unit-selector", do: unitSelector},
	{Name: "slave-field", do: slaveField},
	{Name: "default-unit", do: defaultUnit},
}

func requestUnit(d Driver, r request) (response, error) {
	c, ok := d.(UnitRequester)
	if !ok {
		return response{}, ErrCallShape
	}
	switch r.fn {
	case fnReadHolding:
		regs, err := c.ReadHoldingRegistersUnit(r.unit, r.addr, r.qty)
		return response{regs: regs}, err
	case fnWriteRegister:
		return response{}, c.WriteSingleRegisterUnit(r.unit, r.addr, r.value)
	case fnReadCoils:
		bits, err := c.ReadCoilsUnit(r.unit, r.addr, r.qty)
		return response{bits: bits}, err
	case fnWriteCoil:
		return response{}, c.WriteSingleCoilUnit(r.unit, r.addr, r.on)
	}
	return response{}, errors.New("transport: unsupported function")
}

func unitSelector(d Driver, r request) (response, error) {
	c, ok := d.(UnitSelector)
	if !ok {
		return response{}, ErrCallShape
	}
	if err := c.SetUnitId(r.unit); err != nil {
		return response{}, err
	}
	return plain(c, r)
}

func slaveField(d Driver, r request) (response, error) {
	c, ok := d.(SlaveAssigner)
	if !ok {
		return response{}, ErrCallShape
	}
	c.SetSlave(r.unit)
	return plain(c, r)
}

func defaultUnit(d Driver, r request) (response, error) {
	c, ok := d.(Plain)
	if !ok {
		return response{}, ErrCallShape
	}
	return plain(c, r)
}

func plain(c Plain, r request) (response, error) {
	switch r.fn {
	case fnReadHolding:
		regs, err := c.ReadHoldingRegisters(r.addr, r.qty)
		return response{regs: regs}, err
	case fnWriteRegister:
		return response{}, c.WriteSingleRegister(r.addr, r.value)
	case fnReadCoils:
		bits, err := c.ReadCoils(r.addr, r.qty)
		return response{bits: bits}, err
	case fnWriteCoil:
		return response{}, c.WriteSingleCoil(r.addr, r.on)
	}
	return response{}, errors.New("transport: unsupported function")
}
