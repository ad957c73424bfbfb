// internal/device/profile.go
package device

import (
	"fmt"
	"strconv"
)

// FirmwareFamily is the device generation read from the software version register.
type FirmwareFamily uint8

const (
	FamilyUnknown FirmwareFamily = iota
	FamilyV1
	FamilyV2
)

var familyNames = map[FirmwareFamily]string{
	FamilyUnknown: "unknown",
	FamilyV1:      "v1",
	FamilyV2:      "v2",
}

func (f FirmwareFamily) String() string {
	if s, ok := familyNames[f]; ok {
		return s
	}
	return "family(" + strconv.Itoa(int(f)) + ")"
}

// ParseFamily is the inverse of String.
func ParseFamily(s string) (FirmwareFamily, error) {
	for f, name := range familyNames {
		if name == s {
			return f, nil
		}
	}
	return FamilyUnknown, fmt.Errorf("device: unknown firmware family %q", s)
}

func (f FirmwareFamily) MarshalText() ([]byte, error) {
	return []byte(f.String()), nil
}

func (f *FirmwareFamily) UnmarshalText(b []byte) error {
	v, err := ParseFamily(string(b))
	if err != nil {
		return err
	}
	*f = v
	return nil
}

// ClassifyVersion maps a decoded software version onto a family.
// >= 2.0 is v2, >= 1.0 is v1, anything else is unknown.
func ClassifyVersion(version float64) FirmwareFamily {
	switch {
	case version >= 2.0:
		return FamilyV2
	case version >= 1.0:
		return FamilyV1
	default:
		return FamilyUnknown
	}
}

// HeaterType is the installed after-heater hardware.
// Values match the raw heater type register, except HeaterUnknown.
type HeaterType int

const (
	HeaterNone     HeaterType = 0
	HeaterWater    HeaterType = 1
	HeaterElectric HeaterType = 2
	HeaterUnknown  HeaterType = -1
)

var heaterNames = map[HeaterType]string{
	HeaterNone:     "none",
	HeaterWater:    "water",
	HeaterElectric: "electric",
	HeaterUnknown:  "unknown",
}

func (h HeaterType) String() string {
	if s, ok := heaterNames[h]; ok {
		return s
	}
	return "heater(" + strconv.Itoa(int(h)) + ")"
}

// HeaterFromRaw decodes the raw heater type register.
func HeaterFromRaw(raw int) HeaterType {
	h := HeaterType(raw)
	switch h {
	case HeaterNone, HeaterWater, HeaterElectric:
		return h
	default:
		return HeaterUnknown
	}
}

func (h HeaterType) MarshalText() ([]byte, error) {
	return []byte(h.String()), nil
}

func (h *HeaterType) UnmarshalText(b []byte) error {
	for v, name := range heaterNames {
		if name == string(b) {
			*h = v
			return nil
		}
	}
	return fmt.Errorf("device: unknown heater type %q", string(b))
}

// Profile is what setup learned about one device. It does not change for
// the life of a connection; reconfiguration runs a new probe.
type Profile struct {
	Family  FirmwareFamily `json:"firmwareFamily" yaml:"firmware_family"`
	Heater  HeaterType     `json:"heaterType" yaml:"heater_type"`
	SlaveID uint8          `json:"slaveId" yaml:"slave_id"`
	Host    string         `json:"host" yaml:"host"`
	Port    int            `json:"port" yaml:"port"`
}

// Endpoint is host:port.
func (p Profile) Endpoint() string {
	return p.Host + ":" + strconv.Itoa(p.Port)
}

// UniqueID identifies one device on one link.
func (p Profile) UniqueID() string {
	return p.Host + "_" + strconv.Itoa(int(p.SlaveID))
}
