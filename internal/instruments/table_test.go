package instruments

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"marketpulse/internal/domain"
)

func TestConfigLookup(t *testing.T) {
	table := NewTable(nil)

	dax := table.Config("dax")
	assert.Equal(t, "EUR", dax.NativeCurrency)
	assert.Equal(t, 1.0, dax.PointValue)

	gold := table.Config(" XAUUSD ")
	assert.Equal(t, "USD", gold.NativeCurrency)
	assert.Equal(t, 100.0, gold.PointValue)
}

func TestConfigUnknownSymbolDefaults(t *testing.T) {
	table := NewTable(nil)

	cfg := table.Config("UNKNOWN123")
	assert.Equal(t, domain.InstrumentConfig{NativeCurrency: "USD", PointValue: 1.0}, cfg)
}

func TestConfigOverrides(t *testing.T) {
	table := NewTable(map[string]domain.InstrumentConfig{
		"dax":    {NativeCurrency: "EUR", PointValue: 25.0},
		"CUSTOM": {NativeCurrency: "CHF", PointValue: 10.0},
	})

	assert.Equal(t, 25.0, table.Config("DAX").PointValue)
	assert.Equal(t, "CHF", table.Config("custom").NativeCurrency)
}
