// internal/poller/builder.go
package poller

import (
	"github.com/tamzrod/parmair-bridge/internal/catalog"
	cfg "github.com/tamzrod/parmair-bridge/internal/config"
	"github.com/tamzrod/parmair-bridge/internal/device"
	"github.com/tamzrod/parmair-bridge/internal/transport"
)

// Build constructs a Coordinator and wires the Modbus transport.
// The transport is not connected here; the first cycle connects, and a
// cycle after a transport failure reconnects.
func Build(b cfg.BridgeConfig, prof device.Profile, cat *catalog.Catalog, opts ...Option) (*Coordinator, error) {
	dial, err := transport.Dialer(b.Device.Driver, b.Device.Endpoint(), uint8(b.Device.SlaveID), b.Device.Timeout())
	if err != nil {
		return nil, err
	}
	tr := transport.New(b.Device.Endpoint(), dial)

	return New(
		Config{
			Name:             b.Name,
			Profile:          prof,
			Interval:         b.Poll.Interval(),
			FailureThreshold: b.Poll.FailureThreshold,
			MaxBlock:         uint16(b.Poll.MaxBlock),
			MaxGap:           uint16(b.Poll.MaxGap),
		},
		cat,
		tr,
		opts...,
	)
}
