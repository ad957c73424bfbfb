// internal/codec/codec_test.go
package codec

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tamzrod/parmair-bridge/internal/catalog"
	"github.com/tamzrod/parmair-bridge/internal/device"
)

func lookup(t *testing.T, key string) catalog.Definition {
	t.Helper()
	d, ok := catalog.Default().Lookup(key, device.FamilyV2)
	require.True(t, ok, key)
	return d
}

func TestExhaustTemperature(t *testing.T) {
	def := lookup(t, catalog.KeyExhaustAirTemp)

	v, err := Decode([]uint16{220}, def)
	require.NoError(t, err)
	assert.Equal(t, 22.0, v)

	set := lookup(t, catalog.KeyExhaustTempSetpoint)
	words, err := Encode(23.5, set)
	require.NoError(t, err)
	assert.Equal(t, []uint16{235}, words)
}

func TestDecode_Signed(t *testing.T) {
	def := lookup(t, catalog.KeyFreshAirTemp)

	v, err := Decode([]uint16{0xFF9C}, def) // -100
	require.NoError(t, err)
	assert.Equal(t, -10.0, v)

	words, err := Encode(-10, def)
	require.NoError(t, err)
	assert.Equal(t, []uint16{0xFF9C}, words)
}

func TestDecode_U32(t *testing.T) {
	def := lookup(t, catalog.KeyOperatingHours)

	v, err := Decode([]uint16{0x0001, 0x0002}, def)
	require.NoError(t, err)
	assert.Equal(t, float64(65538), v)

	_, err = Decode([]uint16{1}, def)
	assert.True(t, errors.Is(err, ErrShortRead))
}

func TestDecode_SoftwareVersion(t *testing.T) {
	def := lookup(t, catalog.KeySoftwareVersion)

	v, err := Decode([]uint16{20}, def)
	require.NoError(t, err)
	assert.Equal(t, 2.0, v)
	assert.Equal(t, device.FamilyV2, device.ClassifyVersion(v))

	v, err = Decode([]uint16{17}, def)
	require.NoError(t, err)
	assert.Equal(t, 1.7, v)
	assert.Equal(t, device.FamilyV1, device.ClassifyVersion(v))
}

func TestDecode_EnumIsRaw(t *testing.T) {
	def := lookup(t, catalog.KeySummerMode)

	v, err := Decode([]uint16{2}, def)
	require.NoError(t, err)
	assert.Equal(t, 2.0, v)

	// outside the write range, still published as read
	v, err = Decode([]uint16{7}, def)
	require.NoError(t, err)
	assert.Equal(t, 7.0, v)

	v, err = Decode([]uint16{10}, lookup(t, catalog.KeyControlState))
	require.NoError(t, err)
	assert.Equal(t, 10.0, v)
}

func TestEncode_Overflow(t *testing.T) {
	def := lookup(t, catalog.KeySupplyTempSetpoint)

	_, err := Encode(4000, def) // raw 40000 > int16
	assert.True(t, errors.Is(err, ErrOverflow))

	_, err = Encode(math.NaN(), def)
	assert.True(t, errors.Is(err, ErrInvalidValue))

	u16 := lookup(t, catalog.KeyPower)
	_, err = Encode(-1, u16)
	assert.True(t, errors.Is(err, ErrOverflow))
}

func TestEncode_Rounds(t *testing.T) {
	def := lookup(t, catalog.KeySupplyTempSetpoint)

	words, err := Encode(21.04, def)
	require.NoError(t, err)
	assert.Equal(t, []uint16{210}, words)

	words, err = Encode(21.06, def)
	require.NoError(t, err)
	assert.Equal(t, []uint16{211}, words)
}

func TestDecimals(t *testing.T) {
	assert.Equal(t, 0, Decimals(1))
	assert.Equal(t, 0, Decimals(10))
	assert.Equal(t, 1, Decimals(0.1))
	assert.Equal(t, 1, Decimals(0.5))
	assert.Equal(t, 2, Decimals(0.01))
	assert.Equal(t, 2, Decimals(0.25))
}

// decode(encode(v)) == v within half a scale step, for every catalog
// register and every value in its declared range.
func TestRoundTrip_Catalog(t *testing.T) {
	for _, def := range catalog.Default().All() {
		if !def.Bounded {
			continue
		}

		step := def.Scale
		span := def.ValueRange.Max - def.ValueRange.Min
		if n := span / step; n > 5000 {
			step = span / 5000
		}

		for v := def.ValueRange.Min; v <= def.ValueRange.Max+1e-9; v += step {
			want := math.Round(v/def.Scale) * def.Scale

			words, err := Encode(v, def)
			require.NoError(t, err, "%s encode %v", def.Key, v)

			got, err := Decode(words, def)
			require.NoError(t, err, "%s decode %v", def.Key, words)
			require.InDelta(t, want, got, def.Scale/2, "%s v=%v", def.Key, v)
		}
	}
}
