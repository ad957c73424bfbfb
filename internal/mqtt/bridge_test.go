// internal/mqtt/bridge_test.go
package mqtt

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tamzrod/parmair-bridge/internal/catalog"
	cfg "github.com/tamzrod/parmair-bridge/internal/config"
	"github.com/tamzrod/parmair-bridge/internal/device"
	"github.com/tamzrod/parmair-bridge/internal/poller"
	"github.com/tamzrod/parmair-bridge/internal/status"
)

// registerBank answers every read from a fixed register map.
type registerBank map[uint16]uint16

func (r registerBank) Connect(context.Context) error { return nil }
func (r registerBank) Connected() bool                { return true }
func (r registerBank) Close() error                   { return nil }

func (r registerBank) ReadRegisters(_ context.Context, addr, count uint16, _ uint8) ([]uint16, error) {
	out := make([]uint16, count)
	for i := range out {
		out[i] = r[addr+uint16(i)]
	}
	return out, nil
}

func (r registerBank) WriteRegister(_ context.Context, addr, value uint16, _ uint8) error {
	r[addr] = value
	return nil
}

func (r registerBank) ReadCoils(_ context.Context, _, count uint16, _ uint8) ([]bool, error) {
	return make([]bool, count), nil
}

func (r registerBank) WriteCoil(context.Context, uint16, bool, uint8) error { return nil }

func bank(values map[string]uint16) registerBank {
	r := registerBank{}
	for key, raw := range values {
		def, _ := catalog.Default().Any(key)
		r[def.Address] = raw
	}
	return r
}

func pollSnapshot(t *testing.T, r registerBank) *poller.Snapshot {
	t.Helper()
	c, err := poller.New(poller.Config{
		Profile:  device.Profile{Family: device.FamilyV2, SlaveID: 1, Host: "h", Port: 502},
		Interval: time.Minute,
	}, catalog.Default(), r)
	require.NoError(t, err)

	s, err := c.PollOnce(context.Background())
	require.NoError(t, err)
	return s
}

func TestStatePayload(t *testing.T) {
	s := pollSnapshot(t, bank(map[string]uint16{
		catalog.KeyExhaustAirTemp: 215,
		catalog.KeySummerMode:     2,
		catalog.KeyBoostSetting:   4,
		catalog.KeySpeedControl:   3,
	}))

	payload, err := StatePayload(s)
	require.NoError(t, err)

	var out map[string]any
	require.NoError(t, json.Unmarshal(payload, &out))
	assert.Equal(t, 21.5, out[catalog.KeyExhaustAirTemp])
	assert.Equal(t, "Auto", out[catalog.KeySummerMode])
	assert.Equal(t, "Speed 5", out[catalog.KeyBoostSetting])
	assert.Equal(t, "Speed 2", out[catalog.KeySpeedControl])
	assert.Equal(t, "3 months", out[catalog.KeyFilterInterval])
}

func TestCommandKey(t *testing.T) {
	key, err := CommandKey("parmair", "parmair/summer_mode/set")
	require.NoError(t, err)
	assert.Equal(t, "summer_mode", key)

	for _, topic := range []string{
		"parmair/state",
		"other/summer_mode/set",
		"parmair//set",
		"parmair/a/b/set",
		"parmair/summer_mode/get",
	} {
		_, err := CommandKey("parmair", topic)
		assert.ErrorIs(t, err, ErrNotCommand, topic)
	}
}

func TestParseValue(t *testing.T) {
	v, err := ParseValue(catalog.KeyExhaustTempSetpoint, []byte(" 23.5\n"))
	require.NoError(t, err)
	assert.Equal(t, 23.5, v)

	v, err = ParseValue(catalog.KeyBoostTimeSetting, []byte("120 min"))
	require.NoError(t, err)
	assert.Equal(t, 3.0, v)

	v, err = ParseValue(catalog.KeySummerMode, []byte("1"))
	require.NoError(t, err)
	assert.Equal(t, 1.0, v)

	_, err = ParseValue(catalog.KeySummerMode, []byte("Sometimes"))
	assert.ErrorIs(t, err, ErrUnknownOption)

	_, err = ParseValue(catalog.KeyExhaustTempSetpoint, []byte("warm"))
	assert.Error(t, err)

	_, err = ParseValue(catalog.KeySummerMode, nil)
	assert.ErrorIs(t, err, ErrEmptyPayload)
}

func TestAvailability(t *testing.T) {
	assert.Equal(t, Online, Availability(status.Connected))
	for _, s := range []status.ConnectionState{status.Disconnected, status.Connecting, status.Degraded} {
		assert.Equal(t, Offline, Availability(s), s.String())
	}
	assert.Equal(t, "p/availability", AvailabilityTopic("p"))
	assert.Equal(t, "p/state", StateTopic("p"))
	assert.Equal(t, "p/+/set", CommandFilter("p"))
}

type fakeDevice struct {
	writes map[string]float64
	err    error
}

func (f *fakeDevice) Snapshot() *poller.Snapshot                   { return nil }
func (f *fakeDevice) Subscribe() (<-chan *poller.Snapshot, func()) { return nil, func() {} }
func (f *fakeDevice) State() status.ConnectionState                { return status.Connected }

func (f *fakeDevice) Write(_ context.Context, key string, value float64) error {
	if f.err != nil {
		return f.err
	}
	f.writes[key] = value
	return nil
}

func TestCommand(t *testing.T) {
	dev := &fakeDevice{writes: map[string]float64{}}
	b := &Bridge{dev: dev, prefix: "parmair"}

	require.NoError(t, b.command(catalog.KeyHomeSpeed, []byte("Speed 4")))
	assert.Equal(t, 3.0, dev.writes[catalog.KeyHomeSpeed])

	assert.Error(t, b.command(catalog.KeyHomeSpeed, []byte("Speed 9")))

	dev.err = errors.New("device busy")
	assert.Error(t, b.command(catalog.KeyExhaustTempSetpoint, []byte("21")))
}

func TestClientOptions_RetryFirstConnect(t *testing.T) {
	b := &Bridge{prefix: "parmair", qos: 1}
	opts := b.clientOptions(cfg.MQTTConfig{Broker: "tcp://broker:1883", TopicPrefix: "parmair", QoS: 1})

	assert.True(t, opts.ConnectRetry)
	assert.Equal(t, connectRetry, opts.ConnectRetryInterval)
	assert.True(t, opts.AutoReconnect)
	assert.True(t, opts.WillEnabled)
	assert.Equal(t, AvailabilityTopic("parmair"), opts.WillTopic)
	assert.True(t, strings.HasPrefix(opts.ClientID, cfg.DefaultMQTTClientPrefix))
}

func TestRun_UnreachableBrokerWaitsForCancel(t *testing.T) {
	b := New(cfg.MQTTConfig{Broker: "tcp://127.0.0.1:1", TopicPrefix: "parmair"}, &fakeDevice{writes: map[string]float64{}})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- b.Run(ctx) }()

	select {
	case err := <-done:
		t.Fatalf("Run returned before cancel: %v", err)
	case <-time.After(200 * time.Millisecond):
	}

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not stop after cancel")
	}
}
