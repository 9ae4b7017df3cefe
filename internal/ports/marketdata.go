package ports

import "context"

// MarketDataClient defines the interface for the synchronous market-data
// vendor. Calls are blocking; callers that must not stall (the providers'
// orchestration path) dispatch them through the bounded worker pool.
type MarketDataClient interface {
	// LastPrice retrieves the most recent traded price for a vendor symbol.
	LastPrice(ctx context.Context, symbol string) (float64, error)

	// LastClose retrieves the most recent historical close for a vendor
	// symbol. Used as a fallback when no live price is available.
	LastClose(ctx context.Context, symbol string) (float64, error)
}

// RateSource defines the contract of an HTTP exchange-rate endpoint: given a
// base currency it returns a map of target currency to conversion rate.
type RateSource interface {
	// Name identifies the source in logs and rate provenance.
	Name() string

	// Rates fetches all known conversion rates for the given base currency.
	Rates(ctx context.Context, base string) (map[string]float64, error)
}
