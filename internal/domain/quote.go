package domain

import "time"

// Rate source identifiers attached to RateQuote and PnLResult so callers can
// tell where a conversion rate came from.
const (
	RateSourceSameCurrency     = "same-currency"
	RateSourceMarketData       = "market-data"
	RateSourcePrimaryAPI       = "rates-api-primary"
	RateSourceSecondaryAPI     = "rates-api-secondary"
	RateSourceStaticTable      = "static-table"
	RateSourceConversionFailed = "conversion-failed"
)

// RateQuote is a resolved currency-pair conversion rate.
type RateQuote struct {
	Rate       float64   // Units of the target currency per unit of the base
	Source     string    // Which tier produced the rate
	IsFallback bool      // True only when the static fallback table was used
	FetchedAt  time.Time // When the rate was fetched (cache entries age from this)
}

// PriceQuote is a resolved instrument price.
type PriceQuote struct {
	Symbol    string
	Price     float64
	FetchedAt time.Time
}
