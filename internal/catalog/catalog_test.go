// internal/catalog/catalog_test.go
package catalog

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tamzrod/parmair-bridge/internal/device"
)

func TestDefault_IsValid(t *testing.T) {
	c := Default()
	require.NotNil(t, c)
	require.NoError(t, Validate(c.All()))
	assert.Equal(t, len(parmairMAC), c.Len())
}

func TestDefault_ExhaustSetpoint(t *testing.T) {
	d, ok := Default().Lookup(KeyExhaustTempSetpoint, device.FamilyV1)
	require.True(t, ok)
	assert.Equal(t, 0.1, d.Scale)
	assert.Equal(t, S16, d.Type)
	assert.True(t, d.Kind.Writable())
	assert.True(t, d.InRange(23.5))
	assert.False(t, d.InRange(30))
}

func TestSummerMode_OnlyInV2(t *testing.T) {
	c := Default()

	keys := func(f device.FirmwareFamily) map[string]bool {
		out := map[string]bool{}
		for _, d := range c.ForFamily(f) {
			out[d.Key] = true
		}
		return out
	}

	assert.True(t, keys(device.FamilyV2)[KeySummerMode])
	assert.False(t, keys(device.FamilyV1)[KeySummerMode])
	assert.Empty(t, c.ForFamily(device.FamilyUnknown))

	_, ok := c.Lookup(KeySummerMode, device.FamilyV1)
	assert.False(t, ok)
	assert.True(t, c.Has(KeySummerMode))
}

func TestForFamily_SortedByAddress(t *testing.T) {
	defs := Default().ForFamily(device.FamilyV2)
	for i := 1; i < len(defs); i++ {
		assert.Less(t, defs[i-1].Address, defs[i].Address)
	}
}

func TestValidate_CollectsAllErrors(t *testing.T) {
	defs := []Definition{
		{Key: "", Address: 1, Scale: 1, Families: AllFamilies},
		{Key: "a", Address: 1, Scale: 0, Families: AllFamilies},
		{Key: "b", Address: 1, Type: U32, Scale: 1, Kind: KindReadWrite, Families: AllFamilies},
		{Key: "c", Address: 1, Type: S16, Scale: 0.1, Families: AllFamilies, Bounded: true, ValueRange: Range{Min: -5000, Max: 0}},
		{Key: "d", Address: 1, Scale: 1},
		{Key: "e", Address: 1, Scale: 1, Families: AllFamilies, Bounded: true, ValueRange: Range{Min: 5, Max: 1}},
	}

	err := Validate(defs)
	require.Error(t, err)

	msg := err.Error()
	assert.Contains(t, msg, "key required")
	assert.Contains(t, msg, `"a": scale`)
	assert.Contains(t, msg, `"b": writable registers must be one word wide`)
	assert.Contains(t, msg, `"c": range`)
	assert.Contains(t, msg, `"d": at least one firmware family`)
	assert.Contains(t, msg, `"e": range min`)
}

func TestValidate_DuplicateKeyPerFamily(t *testing.T) {
	// same key for disjoint families is allowed
	ok := []Definition{
		{Key: "x", Address: 1, Scale: 1, Families: Families(device.FamilyV1)},
		{Key: "x", Address: 2, Scale: 1, Families: Families(device.FamilyV2)},
	}
	c, err := New(ok)
	require.NoError(t, err)

	d, found := c.Lookup("x", device.FamilyV2)
	require.True(t, found)
	assert.Equal(t, uint16(2), d.Address)

	dup := []Definition{
		{Key: "x", Address: 1, Scale: 1, Families: AllFamilies},
		{Key: "x", Address: 2, Scale: 1, Families: Families(device.FamilyV2)},
	}
	_, err = New(dup)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "defined twice")
}

func TestNew_CopiesInput(t *testing.T) {
	defs := []Definition{{Key: "x", Address: 1, Scale: 1, Families: AllFamilies}}
	c, err := New(defs)
	require.NoError(t, err)

	defs[0].Address = 99
	d, _ := c.Any("x")
	assert.Equal(t, uint16(1), d.Address)
}

func TestParse(t *testing.T) {
	data := []byte(`
registers:
  - key: supply_air_temp
    address: 1023
    type: s16
    scale: 0.1
    range: {min: -50, max: 100}
  - key: summer_mode
    address: 1079
    kind: rw
    enum: true
    families: [v2]
    range: {min: 0, max: 2}
`)
	c, err := Parse(data)
	require.NoError(t, err)
	require.Equal(t, 2, c.Len())

	d, ok := c.Lookup("supply_air_temp", device.FamilyV1)
	require.True(t, ok)
	assert.Equal(t, S16, d.Type)
	assert.Equal(t, KindReadOnly, d.Kind)
	assert.True(t, d.Bounded)

	_, ok = c.Lookup("summer_mode", device.FamilyV1)
	assert.False(t, ok)
	d, ok = c.Lookup("summer_mode", device.FamilyV2)
	require.True(t, ok)
	assert.True(t, d.Enum)
	assert.Equal(t, KindReadWrite, d.Kind)
}

func TestParse_Errors(t *testing.T) {
	_, err := Parse([]byte("registers: []\n"))
	assert.Error(t, err)

	_, err = Parse(nil)
	assert.ErrorContains(t, err, "no registers defined")

	_, err = Parse([]byte("registers:\n  - key: power\n    adress: 1208\n"))
	assert.ErrorContains(t, err, "field adress not found")

	_, err = Parse([]byte("registers:\n  - key: power\n    address: 1208\n    range: {min: 0, maximum: 1}\n"))
	assert.ErrorContains(t, err, "field maximum not found")

	_, err = Parse([]byte(`
registers:
  - key: a
    type: f32
    kind: wo
    families: [v7]
`))
	require.Error(t, err)
	msg := err.Error()
	assert.Contains(t, msg, "address required")
	assert.Contains(t, msg, `unknown data type "f32"`)
	assert.Contains(t, msg, `unknown kind "wo"`)
	assert.Contains(t, msg, `invalid family "v7"`)
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "registers.yaml")
	require.NoError(t, os.WriteFile(path, []byte("registers:\n  - key: power\n    address: 1208\n    kind: rw\n"), 0o600))

	c, err := LoadFile(path)
	require.NoError(t, err)
	assert.True(t, c.Has("power"))

	_, err = LoadFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
