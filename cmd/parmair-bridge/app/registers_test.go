// cmd/parmair-bridge/app/registers_test.go
package app

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tamzrod/parmair-bridge/internal/catalog"
)

func keys(defs []catalog.Definition) []string {
	out := make([]string, 0, len(defs))
	for _, d := range defs {
		out = append(out, d.Key)
	}
	return out
}

func TestSelectDefinitions(t *testing.T) {
	cat := catalog.Default()

	v1, err := selectDefinitions(cat, "v1")
	require.NoError(t, err)
	assert.NotContains(t, keys(v1), catalog.KeySummerMode)

	v2, err := selectDefinitions(cat, "v2")
	require.NoError(t, err)
	assert.Contains(t, keys(v2), catalog.KeySummerMode)

	all, err := selectDefinitions(cat, "all")
	require.NoError(t, err)
	assert.Len(t, all, cat.Len())
	assert.Contains(t, keys(all), catalog.KeySummerMode)

	_, err = selectDefinitions(cat, "v9")
	assert.Error(t, err)
}

func TestPrintRegisters(t *testing.T) {
	defs, err := selectDefinitions(catalog.Default(), "all")
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, printRegisters(&buf, defs))

	out := buf.String()
	assert.Contains(t, out, "FAMILIES")
	assert.Regexp(t, `summer_mode\s+1079\s+.*\[v2\]`, out)
	assert.Regexp(t, `heater_type\s+1240\s+.*\[v1,v2\]`, out)
}
