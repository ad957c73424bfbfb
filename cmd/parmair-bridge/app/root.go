// cmd/parmair-bridge/app/root.go
package app

import (
	goflag "flag"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"k8s.io/klog/v2"

	"github.com/tamzrod/parmair-bridge/internal/catalog"
)

const ComponentBridge = "parmair-bridge"

func NewBridgeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           ComponentBridge,
		Short:         "Modbus-TCP bridge for Parmair MAC ventilation units",
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	// klog flags (-v, --vmodule, ...) on every subcommand
	klogFlags := goflag.NewFlagSet("klog", goflag.ContinueOnError)
	klog.InitFlags(klogFlags)
	cmd.PersistentFlags().AddGoFlagSet(klogFlags)

	cmd.AddCommand(newRunCmd(), newProbeCmd(), newRegistersCmd())
	return cmd
}

// loadCatalog returns the built-in register table unless path is set.
func loadCatalog(path string) (*catalog.Catalog, error) {
	if path == "" {
		return catalog.Default(), nil
	}
	cat, err := catalog.LoadFile(path)
	if err != nil {
		return nil, err
	}
	klog.InfoS("Register catalog loaded", "path", path, "registers", cat.Len())
	return cat, nil
}

func addCatalogFlag(fs *pflag.FlagSet, path *string) {
	fs.StringVar(path, "catalog-file", *path, "YAML register table replacing the built-in one")
}
