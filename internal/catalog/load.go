// internal/catalog/load.go
package catalog

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
	utilerrors "k8s.io/apimachinery/pkg/util/errors"

	"github.com/tamzrod/parmair-bridge/internal/device"
)

// File is the on-disk register table. It replaces the built-in table
// wholesale; entries are validated like the built-in ones.
type File struct {
	Registers []FileRegister `yaml:"registers"`
}

type FileRegister struct {
	Key      string   `yaml:"key"`
	Address  *uint16  `yaml:"address"`
	Type     string   `yaml:"type"`
	Scale    *float64 `yaml:"scale"`
	Kind     string   `yaml:"kind"`
	Families []string `yaml:"families"`
	Enum     bool     `yaml:"enum"`
	Range    *Range   `yaml:"range"`
}

// LoadFile reads and validates a register table.
func LoadFile(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

// Parse decodes a YAML register table. Unknown fields are errors.
func Parse(data []byte) (*Catalog, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var f File
	if err := dec.Decode(&f); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("catalog: %w", err)
	}
	if len(f.Registers) == 0 {
		return nil, fmt.Errorf("catalog: no registers defined")
	}

	defs, err := f.Definitions()
	if err != nil {
		return nil, err
	}
	return New(defs)
}

// Definitions converts the file entries. Missing type defaults to u16,
// missing kind to ro, missing scale to 1 and missing families to all.
func (f File) Definitions() ([]Definition, error) {
	var errs []error
	defs := make([]Definition, 0, len(f.Registers))

	for i, r := range f.Registers {
		name := r.Key
		if name == "" {
			name = fmt.Sprintf("#%d", i)
		}

		d := Definition{Key: r.Key, Scale: 1, Enum: r.Enum, Families: AllFamilies}

		if r.Address == nil {
			errs = append(errs, fmt.Errorf("register %s: address required", name))
		} else {
			d.Address = *r.Address
		}

		if r.Type != "" {
			t, err := parseType(r.Type)
			if err != nil {
				errs = append(errs, fmt.Errorf("register %s: %w", name, err))
			}
			d.Type = t
		}
		if r.Kind != "" {
			k, err := parseKind(r.Kind)
			if err != nil {
				errs = append(errs, fmt.Errorf("register %s: %w", name, err))
			}
			d.Kind = k
		}
		if r.Scale != nil {
			d.Scale = *r.Scale
		}

		if len(r.Families) > 0 {
			var fams []device.FirmwareFamily
			for _, s := range r.Families {
				fam, err := device.ParseFamily(s)
				if err != nil || fam == device.FamilyUnknown {
					errs = append(errs, fmt.Errorf("register %s: invalid family %q", name, s))
					continue
				}
				fams = append(fams, fam)
			}
			d.Families = Families(fams...)
		}

		if r.Range != nil {
			d.Bounded = true
			d.ValueRange = *r.Range
		}

		defs = append(defs, d)
	}

	if len(errs) > 0 {
		return nil, utilerrors.NewAggregate(errs)
	}
	return defs, nil
}
