// internal/codec/codec.go
//
// Package codec converts between raw register words and engineering values.
// Everything here is pure; definitions come from the catalog.
package codec

import (
	"errors"
	"fmt"
	"math"

	"github.com/tamzrod/parmair-bridge/internal/catalog"
)

var (
	ErrShortRead    = errors.New("codec: not enough registers")
	ErrOverflow     = errors.New("codec: value does not fit register")
	ErrInvalidValue = errors.New("codec: invalid value")
)

// Decode turns the words of one register into its value: raw * scale,
// rounded to the precision of the scale. Multi-word values are high word first.
// Enum registers decode to the raw integer, whether or not a label exists
// for it; ValueRange only bounds writes.
func Decode(words []uint16, def catalog.Definition) (float64, error) {
	n := int(def.Count())
	if len(words) < n {
		return 0, fmt.Errorf("%w: %s needs %d, got %d", ErrShortRead, def.Key, n, len(words))
	}

	raw := Raw(words[:n], def.Type)

	if def.Enum {
		return float64(raw), nil
	}

	return roundTo(float64(raw)*def.Scale, def.Scale), nil
}

// Raw assembles the integer carried by words without scaling.
func Raw(words []uint16, t catalog.DataType) int64 {
	switch t {
	case catalog.S16:
		return int64(int16(words[0]))
	case catalog.U32:
		return int64(uint32(words[0])<<16 | uint32(words[1]))
	case catalog.S32:
		return int64(int32(uint32(words[0])<<16 | uint32(words[1])))
	default:
		return int64(words[0])
	}
}

// Encode is the inverse of Decode: round(value / scale), checked against
// the register width.
func Encode(value float64, def catalog.Definition) ([]uint16, error) {
	raw, err := EncodeRaw(value, def)
	if err != nil {
		return nil, err
	}
	return Words(raw, def.Type), nil
}

// EncodeRaw returns the scaled integer without splitting it into words.
func EncodeRaw(value float64, def catalog.Definition) (int64, error) {
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return 0, fmt.Errorf("%w: %s=%v", ErrInvalidValue, def.Key, value)
	}

	scaled := math.Round(value / def.Scale)
	lo, hi := def.Type.Bounds()
	if scaled < float64(lo) || scaled > float64(hi) {
		return 0, fmt.Errorf("%w: %s=%v (raw %v, %s)", ErrOverflow, def.Key, value, scaled, def.Type)
	}
	return int64(scaled), nil
}

// Words splits raw into register words. raw must already fit t.
func Words(raw int64, t catalog.DataType) []uint16 {
	if t.Words() == 2 {
		u := uint32(raw)
		return []uint16{uint16(u >> 16), uint16(u)}
	}
	return []uint16{uint16(raw)}
}

// Decimals is the number of fractional digits a scale can produce,
// capped at 6.
func Decimals(scale float64) int {
	for d := 0; d < 6; d++ {
		v := scale * math.Pow(10, float64(d))
		if math.Abs(v-math.Round(v)) < 1e-9 {
			return d
		}
	}
	return 6
}

func roundTo(v, scale float64) float64 {
	p := math.Pow(10, float64(Decimals(scale)))
	return math.Round(v*p) / p
}
