// internal/catalog/catalog.go
package catalog

import (
	"fmt"
	"math"
	"sort"

	utilerrors "k8s.io/apimachinery/pkg/util/errors"

	"github.com/tamzrod/parmair-bridge/internal/device"
)

// Catalog is the process-wide register table. It is built once and only
// read afterwards, so it is shared without locking.
type Catalog struct {
	defs  []Definition
	byKey map[string][]int
}

// New validates defs and builds a catalog.
// Every problem is reported, not just the first one.
func New(defs []Definition) (*Catalog, error) {
	if err := Validate(defs); err != nil {
		return nil, err
	}

	c := &Catalog{
		defs:  make([]Definition, len(defs)),
		byKey: make(map[string][]int, len(defs)),
	}
	copy(c.defs, defs)

	for i, d := range c.defs {
		c.byKey[d.Key] = append(c.byKey[d.Key], i)
	}
	return c, nil
}

// MustNew is New for static tables.
func MustNew(defs []Definition) *Catalog {
	c, err := New(defs)
	if err != nil {
		panic(err)
	}
	return c
}

// Validate checks a definition list. It does not mutate it.
func Validate(defs []Definition) error {
	var errs []error

	type owner struct {
		index    int
		families FamilySet
	}
	seen := make(map[string][]owner)

	for i, d := range defs {
		if d.Key == "" {
			errs = append(errs, fmt.Errorf("register %d: key required", i))
			continue
		}
		if d.Families == 0 {
			errs = append(errs, fmt.Errorf("register %q: at least one firmware family required", d.Key))
		}
		if d.Scale <= 0 || math.IsNaN(d.Scale) || math.IsInf(d.Scale, 0) {
			errs = append(errs, fmt.Errorf("register %q: scale must be > 0, got %v", d.Key, d.Scale))
		}
		if _, ok := kindNames[d.Kind]; !ok {
			errs = append(errs, fmt.Errorf("register %q: invalid kind %d", d.Key, d.Kind))
		}
		if _, ok := typeNames[d.Type]; !ok {
			errs = append(errs, fmt.Errorf("register %q: invalid data type %d", d.Key, d.Type))
		}
		if int(d.Address)+int(d.Count())-1 > math.MaxUint16 {
			errs = append(errs, fmt.Errorf("register %q: address %d+%d overflows the register space", d.Key, d.Address, d.Count()))
		}

		// writes are single-register (FC 6 / FC 5)
		if d.Kind.Writable() && d.Count() != 1 {
			errs = append(errs, fmt.Errorf("register %q: writable registers must be one word wide", d.Key))
		}
		if d.Kind == KindCoil && (d.Scale != 1 || d.Type != U16) {
			errs = append(errs, fmt.Errorf("register %q: coils must be u16 with scale 1", d.Key))
		}
		if d.Enum && d.Scale != 1 {
			errs = append(errs, fmt.Errorf("register %q: enum registers must use scale 1", d.Key))
		}

		if d.Bounded {
			r := d.ValueRange
			if r.Min > r.Max {
				errs = append(errs, fmt.Errorf("register %q: range min %v > max %v", d.Key, r.Min, r.Max))
			} else if d.Scale > 0 {
				lo, hi := d.Type.Bounds()
				if rawOf(r.Min, d.Scale) < lo || rawOf(r.Max, d.Scale) > hi {
					errs = append(errs, fmt.Errorf("register %q: range %v..%v does not fit %s at scale %v", d.Key, r.Min, r.Max, d.Type, d.Scale))
				}
			}
		}

		for _, o := range seen[d.Key] {
			if o.families.Overlaps(d.Families) {
				errs = append(errs, fmt.Errorf("register %q: defined twice for families %s (entries %d and %d)", d.Key, o.families&d.Families, o.index, i))
			}
		}
		seen[d.Key] = append(seen[d.Key], owner{index: i, families: d.Families})
	}

	return utilerrors.NewAggregate(errs)
}

func rawOf(v, scale float64) int64 {
	return int64(math.Round(v / scale))
}

// Lookup finds the definition of key for a firmware family.
func (c *Catalog) Lookup(key string, f device.FirmwareFamily) (Definition, bool) {
	for _, i := range c.byKey[key] {
		if c.defs[i].AppliesTo(f) {
			return c.defs[i], true
		}
	}
	return Definition{}, false
}

// Any returns a definition of key regardless of family. Used before the
// family is known (detection registers are shared by every generation).
func (c *Catalog) Any(key string) (Definition, bool) {
	idx := c.byKey[key]
	if len(idx) == 0 {
		return Definition{}, false
	}
	return c.defs[idx[0]], true
}

// Has reports whether any family defines key.
func (c *Catalog) Has(key string) bool {
	return len(c.byKey[key]) > 0
}

// ForFamily is the active register set of a family, ordered by kind then address.
func (c *Catalog) ForFamily(f device.FirmwareFamily) []Definition {
	var out []Definition
	for _, d := range c.defs {
		if d.AppliesTo(f) {
			out = append(out, d)
		}
	}
	sortDefs(out)
	return out
}

// All returns every definition, ordered like ForFamily.
func (c *Catalog) All() []Definition {
	out := make([]Definition, len(c.defs))
	copy(out, c.defs)
	sortDefs(out)
	return out
}

// Len is the number of definitions.
func (c *Catalog) Len() int {
	return len(c.defs)
}

func sortDefs(defs []Definition) {
	sort.SliceStable(defs, func(i, j int) bool {
		ci, cj := defs[i].Kind == KindCoil, defs[j].Kind == KindCoil
		if ci != cj {
			return !ci
		}
		return defs[i].Address < defs[j].Address
	})
}
