package domain

import "time"

// PnLResult carries a computed profit/loss figure in both the instrument's
// native currency and the account base currency, together with the applied
// conversion rate and its provenance. RateSource is RateSourceConversionFailed
// when the engine degraded to a 1:1 rate, so callers can distinguish a trusted
// from an untrusted base-currency figure.
type PnLResult struct {
	Native         float64 // P&L in the instrument's native currency
	Base           float64 // P&L converted into the account base currency
	Rate           float64 // Conversion rate applied (1.0 when degraded)
	NativeCurrency string
	BaseCurrency   string
	RateSource     string
}

// Alert is the payload fanned out to subscribers when a monitored position
// crosses its stop-loss or take-profit level.
type Alert struct {
	PositionID   int64
	OwnerID      int64
	Symbol       string
	Direction    Direction
	Kind         AlertKind
	Level        float64   // The SL/TP level that was crossed
	TriggerPrice float64   // Market price that triggered the alert
	PnL          PnLResult // Unrealized P&L at the triggering price
	Time         time.Time
}
