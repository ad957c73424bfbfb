// internal/transport/mbap_test.go
package transport

import (
	"context"
	"encoding/binary"
	"errors"
	"io"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// serveOnce reads one request from conn and answers with reply(pdu).
func serveOnce(t *testing.T, conn net.Conn, reply func(unit byte, pdu []byte) []byte) {
	t.Helper()
	go func() {
		var hdr [mbapHeaderLen]byte
		if _, err := io.ReadFull(conn, hdr[:]); err != nil {
			return
		}
		pdu := make([]byte, binary.BigEndian.Uint16(hdr[4:6])-1)
		if _, err := io.ReadFull(conn, pdu); err != nil {
			return
		}

		out := reply(hdr[6], pdu)
		resp := make([]byte, mbapHeaderLen+len(out))
		copy(resp[0:4], hdr[0:4])
		binary.BigEndian.PutUint16(resp[4:6], uint16(1+len(out)))
		resp[6] = hdr[6]
		copy(resp[7:], out)
		_, _ = conn.Write(resp)
	}()
}

func pipeClient(t *testing.T) (*mbapClient, net.Conn) {
	t.Helper()
	client, server := net.Pipe()
	t.Cleanup(func() {
		_ = client.Close()
		_ = server.Close()
	})
	return newMBAPClient(client, time.Second), server
}

func TestMBAP_ReadHoldingRegisters(t *testing.T) {
	c, server := pipeClient(t)

	serveOnce(t, server, func(unit byte, pdu []byte) []byte {
		assert.Equal(t, byte(5), unit)
		assert.Equal(t, fcReadHolding, pdu[0])
		assert.Equal(t, uint16(1023), binary.BigEndian.Uint16(pdu[1:3]))
		assert.Equal(t, uint16(2), binary.BigEndian.Uint16(pdu[3:5]))
		return []byte{fcReadHolding, 4, 0x00, 0xDC, 0xFF, 0x9C}
	})

	regs, err := c.ReadHoldingRegistersUnit(5, 1023, 2)
	require.NoError(t, err)
	assert.Equal(t, []uint16{220, 0xFF9C}, regs)
}

func TestMBAP_WriteSingleRegister(t *testing.T) {
	c, server := pipeClient(t)

	serveOnce(t, server, func(unit byte, pdu []byte) []byte {
		assert.Equal(t, fcWriteRegister, pdu[0])
		assert.Equal(t, uint16(235), binary.BigEndian.Uint16(pdu[3:5]))
		return pdu // echo
	})

	require.NoError(t, c.WriteSingleRegisterUnit(1, 1060, 235))
}

func TestMBAP_Exception(t *testing.T) {
	c, server := pipeClient(t)

	serveOnce(t, server, func(unit byte, pdu []byte) []byte {
		return []byte{fcReadHolding | 0x80, 0x02}
	})

	_, err := c.ReadHoldingRegistersUnit(1, 9999, 1)
	var ex *ExceptionError
	require.True(t, errors.As(err, &ex))
	assert.Equal(t, byte(2), ex.Code)
}

func TestMBAP_Coils(t *testing.T) {
	c, server := pipeClient(t)

	serveOnce(t, server, func(unit byte, pdu []byte) []byte {
		assert.Equal(t, fcReadCoils, pdu[0])
		return []byte{fcReadCoils, 1, 0b00000101}
	})

	bits, err := c.ReadCoilsUnit(1, 0, 3)
	require.NoError(t, err)
	assert.Equal(t, []bool{true, false, true}, bits)

	serveOnce(t, server, func(unit byte, pdu []byte) []byte {
		assert.Equal(t, fcWriteCoil, pdu[0])
		assert.Equal(t, uint16(0xFF00), binary.BigEndian.Uint16(pdu[3:5]))
		return pdu
	})
	require.NoError(t, c.WriteSingleCoilUnit(1, 0, true))
}

func TestMBAP_ThroughAdapterUsesRequestUnit(t *testing.T) {
	c, server := pipeClient(t)

	serveOnce(t, server, func(unit byte, pdu []byte) []byte {
		assert.Equal(t, byte(3), unit)
		return []byte{fcReadHolding, 2, 0x00, 0x01}
	})

	a := New("pipe", func(context.Context) (Driver, error) { return c, nil })
	require.NoError(t, a.Connect(context.Background()))

	regs, err := a.ReadRegisters(context.Background(), 1208, 1, 3)
	require.NoError(t, err)
	assert.Equal(t, []uint16{1}, regs)
	assert.Equal(t, "request-unit", a.Convention())
}

func TestBuildADU(t *testing.T) {
	adu := buildADU(0x0102, 1, fcReadHolding, addrQty(1018, 1))
	assert.Equal(t, []byte{0x01, 0x02, 0, 0, 0, 6, 1, 3, 0x03, 0xFA, 0, 1}, adu)
}
