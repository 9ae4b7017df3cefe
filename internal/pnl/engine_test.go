package pnl

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"marketpulse/internal/domain"
	"marketpulse/internal/instruments"
	"marketpulse/internal/ports"
)

// Mock implementations

type mockLogger struct{}

func (m *mockLogger) Debug(ctx context.Context, msg string, fields ...map[string]interface{}) {}
func (m *mockLogger) Info(ctx context.Context, msg string, fields ...map[string]interface{})  {}
func (m *mockLogger) Warn(ctx context.Context, msg string, fields ...map[string]interface{})  {}
func (m *mockLogger) Error(ctx context.Context, err error, msg string, fields ...map[string]interface{}) {
}

type mockRates struct {
	rates map[string]float64
	err   error
	calls int
}

func (m *mockRates) GetRate(ctx context.Context, from, to string) (domain.RateQuote, error) {
	m.calls++
	if m.err != nil {
		return domain.RateQuote{}, m.err
	}
	rate, ok := m.rates[from+to]
	if !ok {
		return domain.RateQuote{}, ports.ErrAllSourcesFailed
	}
	return domain.RateQuote{Rate: rate, Source: domain.RateSourceMarketData}, nil
}

func newTestEngine(t *testing.T, rates ports.RateProvider) *Engine {
	t.Helper()
	engine, err := New(Config{BaseCurrency: "USD"}, &mockLogger{}, rates, instruments.NewTable(nil))
	require.NoError(t, err)
	return engine
}

func TestRealizedPnLSignSymmetry(t *testing.T) {
	engine := newTestEngine(t, &mockRates{})
	ctx := context.Background()

	// NASDAQ is USD-native with pointValue 1.0: no conversion involved.
	longWin, err := engine.CalculateRealizedPnL(ctx, "NASDAQ", domain.Long, 15000, 15100, 2.0)
	require.NoError(t, err)
	assert.Equal(t, 200.0, longWin.Native)

	longLoss, err := engine.CalculateRealizedPnL(ctx, "NASDAQ", domain.Long, 15100, 15000, 2.0)
	require.NoError(t, err)
	assert.Equal(t, -longWin.Native, longLoss.Native)

	// The SHORT mirror with entry/exit swapped reproduces the magnitude.
	shortWin, err := engine.CalculateRealizedPnL(ctx, "NASDAQ", domain.Short, 15100, 15000, 2.0)
	require.NoError(t, err)
	assert.Equal(t, longWin.Native, shortWin.Native)
}

func TestRealizedPnLCurrencyConversion(t *testing.T) {
	// DAX is EUR-native with pointValue 1.0; mocked EUR->USD rate 1.08.
	rates := &mockRates{rates: map[string]float64{"EURUSD": 1.08}}
	engine := newTestEngine(t, rates)

	result, err := engine.CalculateRealizedPnL(context.Background(), "DAX", domain.Long, 18000, 18050, 1.0)
	require.NoError(t, err)
	assert.InDelta(t, 50.0, result.Native, 1e-9)
	assert.InDelta(t, 54.0, result.Base, 1e-9)
	assert.Equal(t, 1.08, result.Rate)
	assert.Equal(t, "EUR", result.NativeCurrency)
	assert.Equal(t, "USD", result.BaseCurrency)
	assert.Equal(t, 1, rates.calls)
}

func TestRealizedPnLConversionFailureDegrades(t *testing.T) {
	rates := &mockRates{err: ports.ErrAllSourcesFailed}
	engine := newTestEngine(t, rates)

	result, err := engine.CalculateRealizedPnL(context.Background(), "DAX", domain.Long, 18000, 18050, 1.0)
	require.NoError(t, err, "conversion failure must not fail the calculation")
	assert.Equal(t, 50.0, result.Native)
	assert.Equal(t, 50.0, result.Base)
	assert.Equal(t, 1.0, result.Rate)
	assert.Equal(t, domain.RateSourceConversionFailed, result.RateSource)
}

func TestRealizedPnLInvalidDirection(t *testing.T) {
	engine := newTestEngine(t, &mockRates{})

	_, err := engine.CalculateRealizedPnL(context.Background(), "DAX", "SIDEWAYS", 18000, 18050, 1.0)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ports.ErrValidation))
}

func TestUnrealizedPnLMatchesRealizedAtSamePrice(t *testing.T) {
	engine := newTestEngine(t, &mockRates{rates: map[string]float64{"EURUSD": 1.08}})
	ctx := context.Background()

	realized, err := engine.CalculateRealizedPnL(ctx, "DAX", domain.Short, 18100, 18000, 0.5)
	require.NoError(t, err)
	unrealized, err := engine.CalculateUnrealizedPnL(ctx, "DAX", domain.Short, 18100, 18000, 0.5)
	require.NoError(t, err)
	assert.Equal(t, realized, unrealized)
}

func TestRiskRewardLongAndShortMirror(t *testing.T) {
	engine := newTestEngine(t, &mockRates{})

	long, err := engine.CalculateRiskReward(100, 95, 110, domain.Long)
	require.NoError(t, err)
	assert.InDelta(t, 5.0, long.Risk, 1e-9)
	assert.InDelta(t, 10.0, long.Reward, 1e-9)
	assert.InDelta(t, 2.0, long.Ratio, 1e-9)

	short, err := engine.CalculateRiskReward(100, 105, 90, domain.Short)
	require.NoError(t, err)
	assert.InDelta(t, 2.0, short.Ratio, 1e-9)
}

func TestRiskRewardRejectsInconsistentPlacement(t *testing.T) {
	engine := newTestEngine(t, &mockRates{})

	// Stop on the wrong side of a long entry.
	_, err := engine.CalculateRiskReward(100, 105, 110, domain.Long)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ports.ErrValidation))

	// Target on the wrong side of a short entry.
	_, err = engine.CalculateRiskReward(100, 105, 102, domain.Short)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ports.ErrValidation))

	_, err = engine.CalculateRiskReward(100, 95, 110, "SIDEWAYS")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ports.ErrValidation))
}

func TestPositionSizeEndToEnd(t *testing.T) {
	engine := newTestEngine(t, &mockRates{})

	// balance=10000 USD, risk=1%, entry=15000, SL=14900, USD-native pointValue 1.0
	size, err := engine.CalculatePositionSize(context.Background(), 10000, 1.0, 15000, 14900, "NASDAQ")
	require.NoError(t, err)
	assert.InDelta(t, 100.0, size.RiskAmount, 1e-9)
	assert.InDelta(t, 100.0, size.StopDistance, 1e-9)
	assert.InDelta(t, 1.0, size.LotSize, 1e-9)
}

func TestPositionSizeScalesInverselyWithStopDistance(t *testing.T) {
	engine := newTestEngine(t, &mockRates{})
	ctx := context.Background()

	wide, err := engine.CalculatePositionSize(ctx, 10000, 1.0, 15000, 14900, "NASDAQ")
	require.NoError(t, err)
	narrow, err := engine.CalculatePositionSize(ctx, 10000, 1.0, 15000, 14950, "NASDAQ")
	require.NoError(t, err)

	assert.InDelta(t, wide.LotSize*2, narrow.LotSize, 1e-9)
}

func TestPositionSizeConvertsRiskBudget(t *testing.T) {
	rates := &mockRates{rates: map[string]float64{"EURUSD": 1.25}}
	engine := newTestEngine(t, rates)

	size, err := engine.CalculatePositionSize(context.Background(), 10000, 1.0, 18000, 17900, "DAX")
	require.NoError(t, err)
	// 100 USD budget / 1.25 = 80 EUR of native risk.
	assert.InDelta(t, 80.0, size.NativeRiskAmount, 1e-9)
	assert.InDelta(t, 0.8, size.LotSize, 1e-9)
	assert.Equal(t, domain.RateSourceMarketData, size.RateSource)
}

func TestPositionSizeValidation(t *testing.T) {
	engine := newTestEngine(t, &mockRates{})
	ctx := context.Background()

	cases := []struct {
		name     string
		balance  float64
		riskPct  float64
		entry    float64
		stopLoss float64
	}{
		{"zero balance", 0, 1.0, 15000, 14900},
		{"negative balance", -100, 1.0, 15000, 14900},
		{"zero risk percent", 10000, 0, 15000, 14900},
		{"risk percent above 100", 10000, 101, 15000, 14900},
		{"zero stop distance", 10000, 1.0, 15000, 15000},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := engine.CalculatePositionSize(ctx, tc.balance, tc.riskPct, tc.entry, tc.stopLoss, "NASDAQ")
			require.Error(t, err)
			assert.True(t, errors.Is(err, ports.ErrValidation))
		})
	}
}
