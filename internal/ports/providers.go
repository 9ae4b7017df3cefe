package ports

import (
	"context"

	"marketpulse/internal/domain"
)

// RateProvider resolves currency-pair conversion rates.
type RateProvider interface {
	// GetRate resolves the conversion rate from one currency to another.
	// Same-currency pairs resolve to 1.0 without any lookup.
	GetRate(ctx context.Context, from, to string) (domain.RateQuote, error)
}

// PriceProvider resolves current instrument prices.
type PriceProvider interface {
	// GetPrice resolves the current price for a canonical instrument symbol.
	GetPrice(ctx context.Context, symbol string) (domain.PriceQuote, error)
}

// PnLCalculator is the slice of the P&L engine the position monitor needs to
// price an alert at its triggering price.
type PnLCalculator interface {
	CalculateUnrealizedPnL(ctx context.Context, symbol string, direction domain.Direction, entryPrice, currentPrice, lotSize float64) (domain.PnLResult, error)
}
