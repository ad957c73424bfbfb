// internal/catalog/types.go
package catalog

import (
	"fmt"
	"strings"

	"github.com/tamzrod/parmair-bridge/internal/device"
)

// Kind says how a register is accessed on the wire.
type Kind uint8

const (
	KindReadOnly  Kind = iota // holding register, read only
	KindReadWrite             // holding register, writable
	KindCoil                  // single bit, writable
)

var kindNames = map[Kind]string{
	KindReadOnly:  "ro",
	KindReadWrite: "rw",
	KindCoil:      "coil",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("kind(%d)", uint8(k))
}

func parseKind(s string) (Kind, error) {
	for k, name := range kindNames {
		if name == s {
			return k, nil
		}
	}
	return 0, fmt.Errorf("unknown kind %q", s)
}

// Writable reports whether the entity layer may write this register.
func (k Kind) Writable() bool {
	return k == KindReadWrite || k == KindCoil
}

// DataType is the wire encoding of the register value.
type DataType uint8

const (
	U16 DataType = iota
	S16
	U32
	S32
)

var typeNames = map[DataType]string{
	U16: "u16",
	S16: "s16",
	U32: "u32",
	S32: "s32",
}

func (t DataType) String() string {
	if s, ok := typeNames[t]; ok {
		return s
	}
	return fmt.Sprintf("type(%d)", uint8(t))
}

func parseType(s string) (DataType, error) {
	for t, name := range typeNames {
		if name == s {
			return t, nil
		}
	}
	return 0, fmt.Errorf("unknown data type %q", s)
}

// Words is the register width of the type.
func (t DataType) Words() uint16 {
	switch t {
	case U32, S32:
		return 2
	default:
		return 1
	}
}

// Signed reports two's complement encoding.
func (t DataType) Signed() bool {
	return t == S16 || t == S32
}

// Bounds is the raw integer range the type can carry.
func (t DataType) Bounds() (min, max int64) {
	switch t {
	case S16:
		return -1 << 15, 1<<15 - 1
	case U32:
		return 0, 1<<32 - 1
	case S32:
		return -1 << 31, 1<<31 - 1
	default:
		return 0, 1<<16 - 1
	}
}

// FamilySet is a set of firmware families a definition applies to.
type FamilySet uint8

// Families builds a set.
func Families(fs ...device.FirmwareFamily) FamilySet {
	var s FamilySet
	for _, f := range fs {
		s |= 1 << f
	}
	return s
}

// AllFamilies covers every known generation.
var AllFamilies = Families(device.FamilyV1, device.FamilyV2)

func (s FamilySet) Has(f device.FirmwareFamily) bool {
	return s&(1<<f) != 0
}

func (s FamilySet) Overlaps(o FamilySet) bool {
	return s&o != 0
}

func (s FamilySet) List() []device.FirmwareFamily {
	var out []device.FirmwareFamily
	for _, f := range []device.FirmwareFamily{device.FamilyUnknown, device.FamilyV1, device.FamilyV2} {
		if s.Has(f) {
			out = append(out, f)
		}
	}
	return out
}

func (s FamilySet) String() string {
	parts := make([]string, 0, 3)
	for _, f := range s.List() {
		parts = append(parts, f.String())
	}
	return "[" + strings.Join(parts, ",") + "]"
}

// Range bounds the engineering value accepted on write.
type Range struct {
	Min float64 `json:"min" yaml:"min"`
	Max float64 `json:"max" yaml:"max"`
}

func (r Range) Contains(v float64) bool {
	return v >= r.Min && v <= r.Max
}

// Definition describes one register. Values are immutable once the
// catalog is built; the catalog hands out copies.
type Definition struct {
	Key      string
	Address  uint16
	Type     DataType
	Scale    float64
	Kind     Kind
	Families FamilySet
	// Enum registers decode to the raw integer; a raw value outside
	// ValueRange is not a known option.
	Enum bool
	// ValueRange is only enforced when Bounded is set.
	Bounded    bool
	ValueRange Range
}

// Count is the register width (1 or 2).
func (d Definition) Count() uint16 {
	if d.Kind == KindCoil {
		return 1
	}
	return d.Type.Words()
}

// AppliesTo reports whether the definition is valid for a family.
func (d Definition) AppliesTo(f device.FirmwareFamily) bool {
	return d.Families.Has(f)
}

// InRange reports whether v passes the declared write range.
// Definitions without a range accept anything the codec can encode.
func (d Definition) InRange(v float64) bool {
	if !d.Bounded {
		return true
	}
	return d.ValueRange.Contains(v)
}

func (d Definition) String() string {
	return fmt.Sprintf("%s@%d/%s/%s", d.Key, d.Address, d.Type, d.Kind)
}
