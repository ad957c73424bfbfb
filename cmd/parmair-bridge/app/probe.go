// cmd/parmair-bridge/app/probe.go
package app

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
	"k8s.io/klog/v2"

	"github.com/tamzrod/parmair-bridge/internal/catalog"
	cfg "github.com/tamzrod/parmair-bridge/internal/config"
	"github.com/tamzrod/parmair-bridge/internal/device"
	"github.com/tamzrod/parmair-bridge/internal/probe"
	"github.com/tamzrod/parmair-bridge/internal/transport"
)

// openFunc dials a fresh adapter for one probe run.
func openFunc(driver string, timeout time.Duration) probe.OpenFunc {
	return func(in probe.Input) (probe.Transport, error) {
		d := cfg.DeviceConfig{Host: in.Host, Port: in.Port}
		dial, err := transport.Dialer(driver, d.Endpoint(), uint8(in.SlaveID), timeout)
		if err != nil {
			return nil, err
		}
		return transport.New(d.Endpoint(), dial), nil
	}
}

// detect runs the setup probe against the configured device.
func detect(ctx context.Context, b cfg.BridgeConfig, cat *catalog.Catalog) (device.Profile, error) {
	in := probe.Input{
		Host:         b.Device.Host,
		Port:         b.Device.Port,
		SlaveID:      b.Device.SlaveID,
		ScanInterval: b.Poll.IntervalS,
		Name:         b.Name,
	}
	out, err := probe.New(cat).Setup(ctx, in, openFunc(b.Device.Driver, b.Device.Timeout()))
	if err != nil {
		return device.Profile{}, err
	}
	return out.Profile, nil
}

func newProbeCmd() *cobra.Command {
	var (
		in          probe.Input
		driver      = cfg.DefaultDriver
		timeoutMs   = cfg.DefaultTimeoutMs
		catalogFile string
	)

	cmd := &cobra.Command{
		Use:   "probe",
		Short: "Detect firmware family and heater type, print a config profile",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cat, err := loadCatalog(catalogFile)
			if err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), 2*time.Minute)
			defer cancel()

			timeout := time.Duration(timeoutMs) * time.Millisecond
			out, err := probe.New(cat).Setup(ctx, in, openFunc(driver, timeout))
			if err != nil {
				return err
			}
			klog.InfoS("Device detected", "uniqueId", out.UniqueID,
				"firmware", out.FirmwareFamily, "heater", out.HeaterType)

			doc := struct {
				Bridge struct {
					Name    string            `yaml:"name"`
					Device  cfg.DeviceConfig  `yaml:"device"`
					Profile cfg.ProfileConfig `yaml:"profile"`
				} `yaml:"bridge"`
			}{}
			doc.Bridge.Name = out.Title
			doc.Bridge.Device = cfg.DeviceConfig{Host: in.Host, Port: in.Port, SlaveID: in.SlaveID, TimeoutMs: timeoutMs, Driver: driver}
			doc.Bridge.Profile = cfg.ProfileConfig{Firmware: out.FirmwareFamily.String(), Heater: out.HeaterType.String()}

			enc := yaml.NewEncoder(os.Stdout)
			enc.SetIndent(2)
			if err := enc.Encode(doc); err != nil {
				return fmt.Errorf("encode profile: %w", err)
			}
			return enc.Close()
		},
	}

	fs := cmd.Flags()
	fs.StringVar(&in.Host, "host", "", "device host name or IP")
	fs.IntVar(&in.Port, "port", probe.DefaultPort, "Modbus-TCP port")
	fs.IntVar(&in.SlaveID, "slave-id", probe.DefaultSlaveID, "Modbus unit id (1..247)")
	fs.IntVar(&in.ScanInterval, "scan-interval", probe.DefaultScanInterval, "poll interval in seconds, validated only")
	fs.StringVar(&in.Name, "name", probe.DefaultName, "device name")
	fs.StringVar(&driver, "driver", driver, "Modbus client library: goburrow, simonvetter or mbap")
	fs.IntVar(&timeoutMs, "timeout-ms", timeoutMs, "per-request timeout in milliseconds")
	addCatalogFlag(fs, &catalogFile)
	_ = cmd.MarkFlagRequired("host")

	return cmd
}
