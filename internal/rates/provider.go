package rates

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"marketpulse/internal/domain"
	"marketpulse/internal/ports"
	"marketpulse/internal/workerpool"
)

// Provider resolves currency-pair conversion rates through a TTL cache and a
// fixed four-tier fallback chain:
//
//  1. the synchronous market-data vendor, bridged through the worker pool
//  2. the primary HTTP rate endpoint
//  3. the secondary HTTP rate endpoint
//  4. the static fallback table, direct then reciprocal
//
// Every tier failure is logged and the chain continues; only exhaustion of all
// four tiers surfaces as an error. Only successful lookups are cached.
type Provider struct {
	cfg    Config
	logger ports.Logger
	market ports.MarketDataClient
	pool   *workerpool.Pool

	// HTTP rate endpoints, tried in order after the vendor tier.
	sources []ports.RateSource

	mu    sync.Mutex
	cache map[string]cacheEntry
}

// Config holds configuration for the rate provider.
type Config struct {
	TTL time.Duration // Max age of a cached rate

	// FallbackRates is the static last-resort table, keyed "FROMTO".
	FallbackRates map[string]float64
}

type cacheEntry struct {
	quote domain.RateQuote
}

// New creates a rate provider.
func New(cfg Config, logger ports.Logger, market ports.MarketDataClient, pool *workerpool.Pool, sources []ports.RateSource) (*Provider, error) {
	if logger == nil || market == nil || pool == nil {
		return nil, fmt.Errorf("%w: missing required dependencies for rate provider", ports.ErrConfiguration)
	}
	if cfg.TTL <= 0 {
		return nil, fmt.Errorf("%w: rate cache TTL must be positive", ports.ErrConfiguration)
	}
	return &Provider{
		cfg:     cfg,
		logger:  logger,
		market:  market,
		pool:    pool,
		sources: sources,
		cache:   make(map[string]cacheEntry),
	}, nil
}

// GetRate resolves the conversion rate from one currency to another.
// Same-currency pairs resolve to 1.0 without touching the cache or network.
func (p *Provider) GetRate(ctx context.Context, from, to string) (domain.RateQuote, error) {
	from = strings.ToUpper(strings.TrimSpace(from))
	to = strings.ToUpper(strings.TrimSpace(to))

	if from == to {
		return domain.RateQuote{
			Rate:      1.0,
			Source:    domain.RateSourceSameCurrency,
			FetchedAt: time.Now().UTC(),
		}, nil
	}

	key := from + "/" + to
	if quote, ok := p.cachedRate(key); ok {
		p.logger.Debug(ctx, "Rate cache hit", map[string]interface{}{"pair": key, "rate": quote.Rate})
		return quote, nil
	}

	quote, err := p.fetchRate(ctx, from, to)
	if err != nil {
		// Failures are never cached.
		return domain.RateQuote{}, err
	}

	p.storeRate(key, quote)
	return quote, nil
}

// cachedRate returns the cached quote for a pair key if it is still fresh.
// The lock guards only the read-check of the single key; fetches run unlocked.
func (p *Provider) cachedRate(key string) (domain.RateQuote, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	entry, ok := p.cache[key]
	if !ok {
		return domain.RateQuote{}, false
	}
	if time.Since(entry.quote.FetchedAt) >= p.cfg.TTL {
		return domain.RateQuote{}, false
	}
	return entry.quote, true
}

func (p *Provider) storeRate(key string, quote domain.RateQuote) {
	p.mu.Lock()
	p.cache[key] = cacheEntry{quote: quote}
	p.mu.Unlock()
}

// fetchRate walks the four-tier chain, stopping at the first success.
func (p *Provider) fetchRate(ctx context.Context, from, to string) (domain.RateQuote, error) {
	pair := from + "/" + to

	// Tier 1: synchronous market-data vendor, through the worker pool.
	if quote, err := p.fromMarketData(ctx, from, to); err == nil {
		return quote, nil
	} else {
		p.logger.Warn(ctx, "Rate tier failed, trying next", map[string]interface{}{
			"pair": pair, "tier": domain.RateSourceMarketData, "error": err.Error(),
		})
	}

	// Tiers 2 and 3: HTTP rate endpoints with the base -> {target: rate} contract.
	for i, src := range p.sources {
		quote, err := p.fromRateSource(ctx, src, from, to, i)
		if err == nil {
			return quote, nil
		}
		p.logger.Warn(ctx, "Rate tier failed, trying next", map[string]interface{}{
			"pair": pair, "tier": src.Name(), "error": err.Error(),
		})
	}

	// Tier 4: static fallback table, direct then reciprocal.
	if quote, ok := p.fromFallbackTable(from, to); ok {
		p.logger.Warn(ctx, "Using static fallback rate", map[string]interface{}{
			"pair": pair, "rate": quote.Rate,
		})
		return quote, nil
	}

	return domain.RateQuote{}, fmt.Errorf("no exchange rate available for %s: %w", pair, ports.ErrAllSourcesFailed)
}

// fromMarketData resolves the pair as a vendor price lookup. The blocking
// vendor call is dispatched to the worker pool and awaited.
func (p *Provider) fromMarketData(ctx context.Context, from, to string) (domain.RateQuote, error) {
	symbol := vendorFXSymbol(from, to)

	var rate float64
	err := p.pool.Do(ctx, func(ctx context.Context) error {
		var innerErr error
		rate, innerErr = p.market.LastPrice(ctx, symbol)
		return innerErr
	})
	if err != nil {
		return domain.RateQuote{}, err
	}
	if rate <= 0 {
		return domain.RateQuote{}, fmt.Errorf("vendor returned non-positive rate for %s: %w", symbol, ports.ErrNotFound)
	}
	return domain.RateQuote{
		Rate:      rate,
		Source:    domain.RateSourceMarketData,
		FetchedAt: time.Now().UTC(),
	}, nil
}

func (p *Provider) fromRateSource(ctx context.Context, src ports.RateSource, from, to string, index int) (domain.RateQuote, error) {
	rateMap, err := src.Rates(ctx, from)
	if err != nil {
		return domain.RateQuote{}, err
	}
	rate, ok := rateMap[to]
	if !ok || rate <= 0 {
		return domain.RateQuote{}, fmt.Errorf("%s has no rate for %s/%s: %w", src.Name(), from, to, ports.ErrNotFound)
	}

	source := domain.RateSourcePrimaryAPI
	if index > 0 {
		source = domain.RateSourceSecondaryAPI
	}
	// The HTTP tiers are treated as equally authoritative as the vendor:
	// IsFallback marks only the static table.
	return domain.RateQuote{
		Rate:      rate,
		Source:    source,
		FetchedAt: time.Now().UTC(),
	}, nil
}

// fromFallbackTable looks the pair up in the static table, trying the direct
// key first and then the reciprocal of the inverse pair.
func (p *Provider) fromFallbackTable(from, to string) (domain.RateQuote, bool) {
	if rate, ok := p.cfg.FallbackRates[from+to]; ok && rate > 0 {
		return domain.RateQuote{
			Rate:       rate,
			Source:     domain.RateSourceStaticTable,
			IsFallback: true,
			FetchedAt:  time.Now().UTC(),
		}, true
	}
	if inverse, ok := p.cfg.FallbackRates[to+from]; ok && inverse > 0 {
		return domain.RateQuote{
			Rate:       1.0 / inverse,
			Source:     domain.RateSourceStaticTable,
			IsFallback: true,
			FetchedAt:  time.Now().UTC(),
		}, true
	}
	return domain.RateQuote{}, false
}

// vendorFXSymbol derives the vendor symbol convention for a currency pair.
// USD-quoted pairs trade against the USDT stable pair on the vendor.
func vendorFXSymbol(from, to string) string {
	if to == "USD" {
		return from + "USDT"
	}
	return from + to
}

// CacheSize returns the number of cached rate entries, fresh or expired.
// Entries expire by TTL comparison at read time; there is no eviction thread.
func (p *Provider) CacheSize() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.cache)
}

// ClearCache drops all cached rates. Used by the host's manual refresh command.
func (p *Provider) ClearCache() {
	p.mu.Lock()
	p.cache = make(map[string]cacheEntry)
	p.mu.Unlock()
}
