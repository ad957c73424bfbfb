// cmd/parmair-bridge/app/registers.go
package app

import (
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/tamzrod/parmair-bridge/internal/catalog"
	"github.com/tamzrod/parmair-bridge/internal/device"
	"github.com/tamzrod/parmair-bridge/internal/labels"
)

// firmwareAll lists every definition regardless of family.
const firmwareAll = "all"

func newRegistersCmd() *cobra.Command {
	var (
		firmware    = device.FamilyV2.String()
		catalogFile string
	)

	cmd := &cobra.Command{
		Use:   "registers",
		Short: "List the register table for a firmware family",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cat, err := loadCatalog(catalogFile)
			if err != nil {
				return err
			}
			defs, err := selectDefinitions(cat, firmware)
			if err != nil {
				return err
			}
			return printRegisters(os.Stdout, defs)
		},
	}

	fs := cmd.Flags()
	fs.StringVar(&firmware, "firmware", firmware, "firmware family: v1, v2 or all")
	addCatalogFlag(fs, &catalogFile)
	return cmd
}

func selectDefinitions(cat *catalog.Catalog, firmware string) ([]catalog.Definition, error) {
	if firmware == firmwareAll {
		return cat.All(), nil
	}
	fam, err := device.ParseFamily(firmware)
	if err != nil {
		return nil, err
	}
	return cat.ForFamily(fam), nil
}

func printRegisters(out io.Writer, defs []catalog.Definition) error {
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "KEY\tADDRESS\tTYPE\tSCALE\tKIND\tFAMILIES\tRANGE\tOPTIONS")
	for _, d := range defs {
		rng := "-"
		if d.Bounded {
			rng = fmt.Sprintf("%v..%v", d.ValueRange.Min, d.ValueRange.Max)
		}
		opts := "-"
		if t, ok := labels.For(d.Key); ok {
			opts = strings.Join(t.Options(), ", ")
		}
		fmt.Fprintf(w, "%s\t%d\t%s\t%v\t%s\t%s\t%s\t%s\n", d.Key, d.Address, d.Type, d.Scale, d.Kind, d.Families, rng, opts)
	}
	return w.Flush()
}
