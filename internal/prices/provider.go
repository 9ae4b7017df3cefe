package prices

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

// Provider resolves current instrument prices through a TTL cache and a single
// market-data vendor. The canonical journal symbol is translated to a vendor
// symbol via the alias table; a fast last-price lookup is tried first, with the
// most recent historical close from the same vendor as the fallback. Only
// successful lookups are cached.
type Provider struct {
	cfg    Config
	logger ports.Logger
	market ports.MarketDataClient
	pool   *workerpool.Pool

	mu    sync.Mutex
	cache map[string]cacheEntry
}

// Config holds configuration for the price provider.
type Config struct {
	TTL time.Duration // Max age of a cached price

	// Aliases maps canonical journal symbols to vendor symbols. Symbols
	// without an entry are passed to the vendor unchanged.
	Aliases map[string]string
}

type cacheEntry struct {
	quote domain.PriceQuote
}

// DefaultAliases maps the journal's canonical symbols to the vendor's symbol
// universe. The host may extend this via configuration overrides.
func DefaultAliases() map[string]string {
	return map[string]string{
		"BTCUSD": "BTCUSDT",
		"ETHUSD": "ETHUSDT",
		"SOLUSD": "SOLUSDT",
		"XAUUSD": "PAXGUSDT",
	}
}

// New creates a price provider.
func New(cfg Config, logger ports.Logger, market ports.MarketDataClient, pool *workerpool.Pool) (*Provider, error) {
	if logger == nil || market == nil || pool == nil {
		return nil, fmt.Errorf("%w: missing required dependencies for price provider", ports.ErrConfiguration)
	}
	if cfg.TTL <= 0 {
		return nil, fmt.Errorf("%w: price cache TTL must be positive", ports.ErrConfiguration)
	}
	if cfg.Aliases == nil {
		cfg.Aliases = DefaultAliases()
	}
	return &Provider{
		cfg:    cfg,
		logger: logger,
		market: market,
		pool:   pool,
		cache:  make(map[string]cacheEntry),
	}, nil
}

// GetPrice resolves the current price for a canonical instrument symbol.
func (p *Provider) GetPrice(ctx context.Context, symbol string) (domain.PriceQuote, error) {
	canonical := strings.ToUpper(strings.TrimSpace(symbol))
	if canonical == "" {
		return domain.PriceQuote{}, fmt.Errorf("%w: symbol must not be empty", ports.ErrValidation)
	}

	if quote, ok := p.cachedPrice(canonical); ok {
		p.logger.Debug(ctx, "Price cache hit", map[string]interface{}{"symbol": canonical, "price": quote.Price})
		return quote, nil
	}

	price, err := p.fetchPrice(ctx, canonical)
	if err != nil {
		// Failures are never cached.
		return domain.PriceQuote{}, err
	}

	quote := domain.PriceQuote{
		Symbol:    canonical,
		Price:     price,
		FetchedAt: time.Now().UTC(),
	}
	p.mu.Lock()
	p.cache[canonical] = cacheEntry{quote: quote}
	p.mu.Unlock()

	return quote, nil
}

func (p *Provider) cachedPrice(symbol string) (domain.PriceQuote, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	entry, ok := p.cache[symbol]
	if !ok {
		return domain.PriceQuote{}, false
	}
	if time.Since(entry.quote.FetchedAt) >= p.cfg.TTL {
		return domain.PriceQuote{}, false
	}
	return entry.quote, true
}

// fetchPrice tries the fast last-price lookup and falls back to the most
// recent historical close from the same vendor. Both calls are blocking and
// run on the worker pool.
func (p *Provider) fetchPrice(ctx context.Context, canonical string) (float64, error) {
	vendorSymbol := p.vendorSymbol(canonical)

	var price float64
	err := p.pool.Do(ctx, func(ctx context.Context) error {
		var innerErr error
		price, innerErr = p.market.LastPrice(ctx, vendorSymbol)
		return innerErr
	})
	if err == nil && price > 0 {
		return price, nil
	}
	if err != nil {
		p.logger.Warn(ctx, "Last price unavailable, falling back to historical close", map[string]interface{}{
			"symbol":       canonical,
			"vendorSymbol": vendorSymbol,
			"error":        err.Error(),
		})
	}

	err = p.pool.Do(ctx, func(ctx context.Context) error {
		var innerErr error
		price, innerErr = p.market.LastClose(ctx, vendorSymbol)
		return innerErr
	})
	if err != nil {
		return 0, fmt.Errorf("no price available for %s (vendor symbol %s): %w", canonical, vendorSymbol, err)
	}
	if price <= 0 {
		return 0, fmt.Errorf("vendor returned non-positive price for %s: %w", canonical, ports.ErrNotFound)
	}
	return price, nil
}

func (p *Provider) vendorSymbol(canonical string) string {
	if alias, ok := p.cfg.Aliases[canonical]; ok {
		return alias
	}
	return canonical
}

// CacheSize returns the number of cached price entries, fresh or expired.
func (p *Provider) CacheSize() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.cache)
}

// ClearCache drops all cached prices.
func (p *Provider) ClearCache() {
	p.mu.Lock()
	p.cache = make(map[string]cacheEntry)
	p.mu.Unlock()
}
