package pnl

import (
	"context"
	"fmt"
	"math"

	"marketpulse/internal/domain"
	"marketpulse/internal/ports"
)

// Engine computes direction-aware P&L, risk:reward, and position sizing with
// currency conversion into the account base currency. Conversion failures
// never hard-fail a P&L calculation: the engine degrades to a 1:1 rate and
// marks the result so callers can tell a trusted figure from an untrusted one.
type Engine struct {
	cfg         Config
	logger      ports.Logger
	rates       ports.RateProvider
	instruments ports.InstrumentSource
}

// Config holds configuration for the P&L engine.
type Config struct {
	BaseCurrency string // Account base currency all results are converted into
}

// RiskReward is the result of a risk:reward evaluation.
type RiskReward struct {
	Risk   float64 // Distance from entry to stop, in price units
	Reward float64 // Distance from entry to target, in price units
	Ratio  float64 // Reward / Risk
}

// PositionSize is the result of a risk-based position sizing calculation.
type PositionSize struct {
	LotSize          float64 // Lots to trade to stay within the risk budget
	RiskAmount       float64 // Risk budget in the base currency
	NativeRiskAmount float64 // Risk budget converted into the native currency
	StopDistance     float64 // |entry - stop| in price units
	Rate             float64 // Conversion rate applied (1.0 when degraded)
	RateSource       string  // Provenance of the conversion rate
}

// New creates a P&L engine.
func New(cfg Config, logger ports.Logger, rates ports.RateProvider, instruments ports.InstrumentSource) (*Engine, error) {
	if logger == nil || rates == nil || instruments == nil {
		return nil, fmt.Errorf("%w: missing required dependencies for P&L engine", ports.ErrConfiguration)
	}
	if cfg.BaseCurrency == "" {
		return nil, fmt.Errorf("%w: base currency must be set", ports.ErrConfiguration)
	}
	return &Engine{
		cfg:         cfg,
		logger:      logger,
		rates:       rates,
		instruments: instruments,
	}, nil
}

// CalculateRealizedPnL computes the realized P&L of a closed trade.
// Long: exit - entry; short: entry - exit. The native figure is converted into
// the base currency via the rate provider; on conversion failure the result
// still succeeds with a 1:1 rate and RateSource set to "conversion-failed".
func (e *Engine) CalculateRealizedPnL(ctx context.Context, symbol string, direction domain.Direction, entryPrice, exitPrice, lotSize float64) (domain.PnLResult, error) {
	if !direction.IsValid() {
		return domain.PnLResult{}, fmt.Errorf("%w: unknown direction %q", ports.ErrValidation, direction)
	}

	delta := exitPrice - entryPrice
	if direction == domain.Short {
		delta = entryPrice - exitPrice
	}

	inst := e.instruments.Config(symbol)
	native := delta * inst.PointValue * lotSize

	result := domain.PnLResult{
		Native:         native,
		Base:           native,
		Rate:           1.0,
		NativeCurrency: inst.NativeCurrency,
		BaseCurrency:   e.cfg.BaseCurrency,
		RateSource:     domain.RateSourceSameCurrency,
	}

	if inst.NativeCurrency != e.cfg.BaseCurrency {
		quote, err := e.rates.GetRate(ctx, inst.NativeCurrency, e.cfg.BaseCurrency)
		if err != nil {
			// Degrade gracefully: the native figure stands, the base figure
			// is flagged as untrusted.
			e.logger.Warn(ctx, "Currency conversion failed, degrading to 1:1 rate", map[string]interface{}{
				"symbol": symbol,
				"from":   inst.NativeCurrency,
				"to":     e.cfg.BaseCurrency,
				"error":  err.Error(),
			})
			result.RateSource = domain.RateSourceConversionFailed
			return result, nil
		}
		result.Rate = quote.Rate
		result.Base = native * quote.Rate
		result.RateSource = quote.Source
	}

	return result, nil
}

// CalculateUnrealizedPnL computes the unrealized P&L of an open position at
// the current market price. Identical to the realized calculation with the
// current price substituted for the exit.
func (e *Engine) CalculateUnrealizedPnL(ctx context.Context, symbol string, direction domain.Direction, entryPrice, currentPrice, lotSize float64) (domain.PnLResult, error) {
	return e.CalculateRealizedPnL(ctx, symbol, direction, entryPrice, currentPrice, lotSize)
}

// CalculateRiskReward evaluates the risk:reward ratio of a stop/target
// placement. Long: risk = entry - sl, reward = tp - entry; short mirrored.
// Non-positive risk or reward signals an inconsistent placement and is a
// validation error, not a transient failure.
func (e *Engine) CalculateRiskReward(entryPrice, stopLoss, takeProfit float64, direction domain.Direction) (RiskReward, error) {
	if !direction.IsValid() {
		return RiskReward{}, fmt.Errorf("%w: unknown direction %q", ports.ErrValidation, direction)
	}

	var risk, reward float64
	if direction == domain.Long {
		risk = entryPrice - stopLoss
		reward = takeProfit - entryPrice
	} else {
		risk = stopLoss - entryPrice
		reward = entryPrice - takeProfit
	}

	if risk <= 0 {
		return RiskReward{}, fmt.Errorf("%w: stop loss must be on the losing side of the entry (risk=%.5f)", ports.ErrValidation, risk)
	}
	if reward <= 0 {
		return RiskReward{}, fmt.Errorf("%w: take profit must be on the winning side of the entry (reward=%.5f)", ports.ErrValidation, reward)
	}

	return RiskReward{
		Risk:   risk,
		Reward: reward,
		Ratio:  reward / risk,
	}, nil
}

// CalculatePositionSize computes the lot size that keeps the loss at the stop
// within the risk budget: balance * riskPercent/100, converted into the
// instrument's native currency via the inverse exchange rate, divided by the
// stop distance times the point value.
func (e *Engine) CalculatePositionSize(ctx context.Context, balance, riskPercent, entryPrice, stopLoss float64, symbol string) (PositionSize, error) {
	if balance <= 0 {
		return PositionSize{}, fmt.Errorf("%w: balance must be positive", ports.ErrValidation)
	}
	if riskPercent <= 0 || riskPercent > 100 {
		return PositionSize{}, fmt.Errorf("%w: risk percent must be in (0, 100]", ports.ErrValidation)
	}
	stopDistance := math.Abs(entryPrice - stopLoss)
	if stopDistance == 0 {
		return PositionSize{}, fmt.Errorf("%w: stop distance must not be zero", ports.ErrValidation)
	}

	riskAmount := balance * riskPercent / 100.0
	inst := e.instruments.Config(symbol)

	nativeRisk := riskAmount
	rate := 1.0
	rateSource := domain.RateSourceSameCurrency
	if inst.NativeCurrency != e.cfg.BaseCurrency {
		quote, err := e.rates.GetRate(ctx, inst.NativeCurrency, e.cfg.BaseCurrency)
		if err != nil {
			e.logger.Warn(ctx, "Currency conversion failed, sizing with 1:1 rate", map[string]interface{}{
				"symbol": symbol,
				"from":   inst.NativeCurrency,
				"to":     e.cfg.BaseCurrency,
				"error":  err.Error(),
			})
			rateSource = domain.RateSourceConversionFailed
		} else {
			rate = quote.Rate
			nativeRisk = riskAmount / quote.Rate
			rateSource = quote.Source
		}
	}

	return PositionSize{
		LotSize:          nativeRisk / (stopDistance * inst.PointValue),
		RiskAmount:       riskAmount,
		NativeRiskAmount: nativeRisk,
		StopDistance:     stopDistance,
		Rate:             rate,
		RateSource:       rateSource,
	}, nil
}
