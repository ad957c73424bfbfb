// internal/transport/mbap.go
package transport

import (
	"context"
	"crypto/rand"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"time"
)

const (
	fcReadCoils     byte = 1
	fcReadHolding   byte = 3
	fcWriteCoil     byte = 5
	fcWriteRegister byte = 6

	mbapHeaderLen = 7
	maxADULen     = 260
)

// mbapClient speaks Modbus TCP directly. The unit id travels in every
// MBAP header, so it implements UnitRequester.
type mbapClient struct {
	mu      sync.Mutex
	conn    net.Conn
	timeout time.Duration
	tid     uint16
}

// DialMBAP returns a DialFunc for the built-in frame client.
func DialMBAP(endpoint string, timeout time.Duration) DialFunc {
	return func(ctx context.Context) (Driver, error) {
		if endpoint == "" {
			return nil, errors.New("mbap: endpoint required")
		}

		d := net.Dialer{Timeout: timeout}
		conn, err := d.DialContext(ctx, "tcp", endpoint)
		if err != nil {
			return nil, err
		}
		return newMBAPClient(conn, timeout), nil
	}
}

func newMBAPClient(conn net.Conn, timeout time.Duration) *mbapClient {
	c := &mbapClient{conn: conn, timeout: timeout}

	// Randomize starting TID (best effort).
	var b [2]byte
	if _, err := rand.Read(b[:]); err == nil {
		c.tid = binary.BigEndian.Uint16(b[:])
	}
	return c
}

func (c *mbapClient) Close() error {
	if c == nil || c.conn == nil {
		return nil
	}
	return c.conn.Close()
}

func (c *mbapClient) ReadHoldingRegistersUnit(unit uint8, addr, qty uint16) ([]uint16, error) {
	p, err := c.roundTrip(unit, fcReadHolding, addrQty(addr, qty))
	if err != nil {
		return nil, err
	}
	// payload[0] = byte count, remaining = registers big-endian
	if len(p) < 1 || int(p[0]) != 2*int(qty) || len(p)-1 < int(p[0]) {
		return nil, fmt.Errorf("mbap: malformed read-registers payload (%d bytes)", len(p))
	}
	return unpackRegisters(p[1 : 1+p[0]]), nil
}

func (c *mbapClient) WriteSingleRegisterUnit(unit uint8, addr, value uint16) error {
	_, err := c.roundTrip(unit, fcWriteRegister, addrQty(addr, value))
	return err
}

func (c *mbapClient) ReadCoilsUnit(unit uint8, addr, qty uint16) ([]bool, error) {
	p, err := c.roundTrip(unit, fcReadCoils, addrQty(addr, qty))
	if err != nil {
		return nil, err
	}
	if len(p) < 1 || len(p)-1 < int(p[0]) {
		return nil, errors.New("mbap: malformed read-bits payload")
	}
	return unpackBits(p[1:1+p[0]], int(qty)), nil
}

func (c *mbapClient) WriteSingleCoilUnit(unit uint8, addr uint16, on bool) error {
	var v uint16
	if on {
		v = 0xFF00
	}
	_, err := c.roundTrip(unit, fcWriteCoil, addrQty(addr, v))
	return err
}

func addrQty(a, b uint16) []byte {
	out := make([]byte, 4)
	binary.BigEndian.PutUint16(out[0:2], a)
	binary.BigEndian.PutUint16(out[2:4], b)
	return out
}

// buildADU frames one request.
//
// MBAP:
//
//	TID(2) PID(2=0) LEN(2) UID(1)
//
// PDU:
//
//	FC(1) DATA(n)
func buildADU(tid uint16, unit, fc byte, data []byte) []byte {
	adu := make([]byte, mbapHeaderLen+1+len(data))
	binary.BigEndian.PutUint16(adu[0:2], tid)
	binary.BigEndian.PutUint16(adu[2:4], 0)
	binary.BigEndian.PutUint16(adu[4:6], uint16(2+len(data)))
	adu[6] = unit
	adu[7] = fc
	copy(adu[8:], data)
	return adu
}

// roundTrip sends one request and returns the response PDU data after
// the function code.
func (c *mbapClient) roundTrip(unit, fc byte, data []byte) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn == nil {
		return nil, ErrNotConnected
	}

	c.tid++
	tid := c.tid

	if c.timeout > 0 {
		if err := c.conn.SetDeadline(time.Now().Add(c.timeout)); err != nil {
			return nil, err
		}
	}

	if _, err := c.conn.Write(buildADU(tid, unit, fc, data)); err != nil {
		return nil, err
	}

	var hdr [mbapHeaderLen]byte
	if _, err := io.ReadFull(c.conn, hdr[:]); err != nil {
		return nil, err
	}
	length := int(binary.BigEndian.Uint16(hdr[4:6]))
	if length < 2 || mbapHeaderLen+length-1 > maxADULen {
		return nil, fmt.Errorf("mbap: bad length %d", length)
	}
	pdu := make([]byte, length-1)
	if _, err := io.ReadFull(c.conn, pdu); err != nil {
		return nil, err
	}

	if got := binary.BigEndian.Uint16(hdr[0:2]); got != tid {
		return nil, fmt.Errorf("mbap: transaction id mismatch: got=%d want=%d", got, tid)
	}
	if pid := binary.BigEndian.Uint16(hdr[2:4]); pid != 0 {
		return nil, fmt.Errorf("mbap: protocol id mismatch: got=%d want=0", pid)
	}
	if hdr[6] != unit {
		return nil, fmt.Errorf("mbap: unit id mismatch: got=%d want=%d", hdr[6], unit)
	}

	switch {
	case pdu[0] == fc|0x80:
		if len(pdu) < 2 {
			return nil, errors.New("mbap: short exception response")
		}
		return nil, &ExceptionError{Function: fc, Code: pdu[1]}
	case pdu[0] != fc:
		return nil, fmt.Errorf("mbap: function mismatch: got=%d want=%d", pdu[0], fc)
	}
	return pdu[1:], nil
}

// ---- helpers (pure geometry) ----

func unpackBits(data []byte, count int) []bool {
	out := make([]bool, count)
	for i := 0; i < count; i++ {
		byteIdx := i / 8
		if byteIdx >= len(data) {
			continue
		}
		out[i] = data[byteIdx]&(1<<uint(i%8)) != 0
	}
	return out
}

func unpackRegisters(data []byte) []uint16 {
	n := len(data) / 2
	out := make([]uint16, n)
	for i := 0; i < n; i++ {
		out[i] = uint16(data[2*i])<<8 | uint16(data[2*i+1])
	}
	return out
}
