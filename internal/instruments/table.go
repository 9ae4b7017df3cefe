package instruments

import (
	"strings"

	"marketpulse/internal/domain"
)

// defaultConfig is applied to any symbol without an explicit entry.
var defaultConfig = domain.InstrumentConfig{NativeCurrency: "USD", PointValue: 1.0}

// Table implements the ports.InstrumentSource interface with an in-process
// lookup table. Entries are read-only after construction, so lookups need no
// locking.
type Table struct {
	configs map[string]domain.InstrumentConfig
}

// NewTable creates a table seeded with the instruments the journal commonly
// tracks, merged with any caller-supplied overrides.
func NewTable(overrides map[string]domain.InstrumentConfig) *Table {
	configs := map[string]domain.InstrumentConfig{
		"DAX":    {NativeCurrency: "EUR", PointValue: 1.0},
		"ESTX50": {NativeCurrency: "EUR", PointValue: 1.0},
		"FTSE":   {NativeCurrency: "GBP", PointValue: 1.0},
		"NIKKEI": {NativeCurrency: "JPY", PointValue: 1.0},
		"NASDAQ": {NativeCurrency: "USD", PointValue: 1.0},
		"SPX":    {NativeCurrency: "USD", PointValue: 1.0},
		"DOW":    {NativeCurrency: "USD", PointValue: 1.0},
		"XAUUSD": {NativeCurrency: "USD", PointValue: 100.0},
		"XAGUSD": {NativeCurrency: "USD", PointValue: 50.0},
		"EURUSD": {NativeCurrency: "USD", PointValue: 100000.0},
		"GBPUSD": {NativeCurrency: "USD", PointValue: 100000.0},
		"USDJPY": {NativeCurrency: "JPY", PointValue: 100000.0},
		"BTCUSD": {NativeCurrency: "USD", PointValue: 1.0},
		"ETHUSD": {NativeCurrency: "USD", PointValue: 1.0},
	}
	for symbol, cfg := range overrides {
		configs[strings.ToUpper(symbol)] = cfg
	}
	return &Table{configs: configs}
}

// Config returns the quoting configuration for a symbol.
// Unknown symbols default to {USD, 1.0}.
func (t *Table) Config(symbol string) domain.InstrumentConfig {
	if cfg, ok := t.configs[strings.ToUpper(strings.TrimSpace(symbol))]; ok {
		return cfg
	}
	return defaultConfig
}
