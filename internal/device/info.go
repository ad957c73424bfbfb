// internal/device/info.go
package device

const (
	Manufacturer = "Parmair"
	Model        = "MAC"
)

// Info is the static identity metadata exposed to the entity layer.
type Info struct {
	ID              string         `json:"id"`
	Name            string         `json:"name"`
	Manufacturer    string         `json:"manufacturer"`
	Model           string         `json:"model"`
	SoftwareVersion FirmwareFamily `json:"softwareVersion"`
	HeaterType      HeaterType     `json:"heaterType"`
}

// NewInfo builds identity metadata from a probed profile.
func NewInfo(name string, p Profile) Info {
	return Info{
		ID:              p.UniqueID(),
		Name:            name,
		Manufacturer:    Manufacturer,
		Model:           Model,
		SoftwareVersion: p.Family,
		HeaterType:      p.Heater,
	}
}
