package monitor

import (
	"context"
	"fmt"
	"sync"
	"time"

	"marketpulse/internal/domain"
	"marketpulse/internal/ports"
)

// AlertHandler receives alerts fanned out by the monitor. Handlers run on the
// monitor's goroutine; a handler that panics is caught and logged and does not
// block delivery to the remaining handlers or the loop itself.
type AlertHandler func(alert domain.Alert)

// Status is the introspection snapshot exposed to the host application.
type Status struct {
	Running            bool
	CycleInterval      time.Duration
	SubscriberCount    int
	TrackedPositions   int
	TotalAlertsEmitted int64
}

type alertKey struct {
	positionID int64
	kind       domain.AlertKind
}

// Monitor is the background position-monitoring loop. Each cycle it queries
// the repository for open positions with protective levels, resolves each
// instrument's price at most once, evaluates the direction-aware hit
// predicate, and fans deduplicated alerts out to subscribers.
//
// Alert suppression is keyed {positionID, kind} and is monotonic for the
// lifetime of the process: once a pair alerts, it stays silent until the host
// calls ClearAlertState for the position (on close or reopen). The monitor has
// no independent signal for id reuse.
type Monitor struct {
	cfg    Config
	logger ports.Logger
	prices ports.PriceProvider
	engine ports.PnLCalculator
	repo   ports.PositionRepository

	mu            sync.Mutex
	running       bool
	cancel        context.CancelFunc
	done          chan struct{}
	subscribers   map[int64]AlertHandler
	nextSubID     int64
	alerted       map[alertKey]struct{}
	tracked       int
	alertsEmitted int64
}

// Config holds configuration for the position monitor.
type Config struct {
	Interval time.Duration // Sleep between cycles; cycles never overlap
}

// New creates a position monitor.
func New(cfg Config, logger ports.Logger, prices ports.PriceProvider, engine ports.PnLCalculator, repo ports.PositionRepository) (*Monitor, error) {
	if logger == nil || prices == nil || engine == nil || repo == nil {
		return nil, fmt.Errorf("%w: missing required dependencies for position monitor", ports.ErrConfiguration)
	}
	if cfg.Interval <= 0 {
		return nil, fmt.Errorf("%w: monitor interval must be positive", ports.ErrConfiguration)
	}
	return &Monitor{
		cfg:         cfg,
		logger:      logger,
		prices:      prices,
		engine:      engine,
		repo:        repo,
		subscribers: make(map[int64]AlertHandler),
		alerted:     make(map[alertKey]struct{}),
	}, nil
}

// Start spawns the monitoring loop. Returns an error if already running.
func (m *Monitor) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.running {
		return fmt.Errorf("position monitor is already running")
	}

	loopCtx, cancel := context.WithCancel(ctx)
	m.cancel = cancel
	m.done = make(chan struct{})
	m.running = true

	go m.run(loopCtx, m.done)

	m.logger.Info(ctx, "Position monitor started", map[string]interface{}{
		"interval": m.cfg.Interval.String(),
	})
	return nil
}

// Stop cancels the loop, including any in-cycle wait, and returns only once
// the loop has observably exited. No iteration is left mid-flight.
func (m *Monitor) Stop() {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return
	}
	cancel := m.cancel
	done := m.done
	m.running = false
	m.mu.Unlock()

	cancel()
	<-done
	m.logger.Info(context.Background(), "Position monitor stopped")
}

// run drives the cycle loop. The next sleep starts only after the current
// cycle body completes, so cycles never overlap even when a cycle overruns
// the configured interval.
func (m *Monitor) run(ctx context.Context, done chan struct{}) {
	defer close(done)

	for {
		m.runCycle(ctx)

		select {
		case <-ctx.Done():
			return
		case <-time.After(m.cfg.Interval):
		}
	}
}

// runCycle executes one monitoring pass. Any failure inside the cycle is
// logged and the loop proceeds to the next cycle; a single bad cycle never
// terminates the loop.
func (m *Monitor) runCycle(ctx context.Context) {
	positions, err := m.repo.ListOpenWithProtection(ctx)
	if err != nil {
		m.logger.Error(ctx, err, "Failed to list open positions, skipping cycle")
		return
	}

	m.mu.Lock()
	m.tracked = len(positions)
	m.mu.Unlock()

	if len(positions) == 0 {
		return
	}

	// Group by instrument so each price is fetched at most once per cycle.
	groups := make(map[string][]*domain.PositionSnapshot)
	order := make([]string, 0, len(positions))
	for _, pos := range positions {
		if _, seen := groups[pos.Symbol]; !seen {
			order = append(order, pos.Symbol)
		}
		groups[pos.Symbol] = append(groups[pos.Symbol], pos)
	}

	for _, symbol := range order {
		if ctx.Err() != nil {
			return
		}
		quote, err := m.prices.GetPrice(ctx, symbol)
		if err != nil {
			m.logger.Warn(ctx, "Price unavailable for instrument group, skipping", map[string]interface{}{
				"symbol":    symbol,
				"positions": len(groups[symbol]),
				"error":     err.Error(),
			})
			continue
		}
		for _, pos := range groups[symbol] {
			m.evaluatePosition(ctx, pos, quote.Price)
		}
	}
}

// evaluatePosition applies the direction-aware hit predicate and emits an
// alert for each newly crossed level.
func (m *Monitor) evaluatePosition(ctx context.Context, pos *domain.PositionSnapshot, price float64) {
	if slHit(pos, price) {
		m.emitAlert(ctx, pos, domain.AlertStopLoss, pos.StopLoss, price)
	}
	if tpHit(pos, price) {
		m.emitAlert(ctx, pos, domain.AlertTakeProfit, pos.TakeProfit, price)
	}
}

// slHit: long positions stop out when the price falls to or below the stop,
// short positions when it rises to or above.
func slHit(pos *domain.PositionSnapshot, price float64) bool {
	if pos.StopLoss <= 0 {
		return false
	}
	if pos.Direction == domain.Short {
		return price >= pos.StopLoss
	}
	return price <= pos.StopLoss
}

// tpHit mirrors slHit for the take-profit level.
func tpHit(pos *domain.PositionSnapshot, price float64) bool {
	if pos.TakeProfit <= 0 {
		return false
	}
	if pos.Direction == domain.Short {
		return price <= pos.TakeProfit
	}
	return price >= pos.TakeProfit
}

func (m *Monitor) emitAlert(ctx context.Context, pos *domain.PositionSnapshot, kind domain.AlertKind, level, price float64) {
	key := alertKey{positionID: pos.ID, kind: kind}

	m.mu.Lock()
	if _, already := m.alerted[key]; already {
		m.mu.Unlock()
		return
	}
	m.alerted[key] = struct{}{}
	m.alertsEmitted++
	handlers := make(map[int64]AlertHandler, len(m.subscribers))
	for id, h := range m.subscribers {
		handlers[id] = h
	}
	m.mu.Unlock()

	result, err := m.engine.CalculateUnrealizedPnL(ctx, pos.Symbol, pos.Direction, pos.EntryPrice, price, pos.LotSize)
	if err != nil {
		// Structurally invalid position data; alert without a P&L figure.
		m.logger.Error(ctx, err, "P&L calculation failed for alert", map[string]interface{}{
			"positionID": pos.ID,
			"kind":       string(kind),
		})
	}

	alert := domain.Alert{
		PositionID:   pos.ID,
		OwnerID:      pos.OwnerID,
		Symbol:       pos.Symbol,
		Direction:    pos.Direction,
		Kind:         kind,
		Level:        level,
		TriggerPrice: price,
		PnL:          result,
		Time:         time.Now().UTC(),
	}

	m.logger.Info(ctx, "Protective level hit, emitting alert", map[string]interface{}{
		"positionID":   pos.ID,
		"symbol":       pos.Symbol,
		"kind":         string(kind),
		"level":        level,
		"triggerPrice": price,
	})

	for id, handler := range handlers {
		m.safeNotify(ctx, id, handler, alert)
	}
}

// safeNotify delivers one alert to one subscriber behind a panic boundary so
// a broken subscriber cannot corrupt the loop or block its peers.
func (m *Monitor) safeNotify(ctx context.Context, id int64, handler AlertHandler, alert domain.Alert) {
	defer func() {
		if r := recover(); r != nil {
			m.logger.Error(ctx, fmt.Errorf("subscriber panic: %v", r), "Alert subscriber failed", map[string]interface{}{
				"subscriberID": id,
				"positionID":   alert.PositionID,
				"kind":         string(alert.Kind),
			})
		}
	}()
	handler(alert)
}

// RegisterCallback adds an alert subscriber and returns its id.
func (m *Monitor) RegisterCallback(handler AlertHandler) int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextSubID++
	m.subscribers[m.nextSubID] = handler
	return m.nextSubID
}

// UnregisterCallback removes a subscriber by id.
func (m *Monitor) UnregisterCallback(id int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.subscribers, id)
}

// ClearAlertState resets alert suppression for a position. The host must call
// this when a position closes or is reopened under the same id; it is the
// only path that re-arms alerts for the id.
func (m *Monitor) ClearAlertState(positionID int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.alerted, alertKey{positionID: positionID, kind: domain.AlertStopLoss})
	delete(m.alerted, alertKey{positionID: positionID, kind: domain.AlertTakeProfit})
}

// Status returns an introspection snapshot of the monitor.
func (m *Monitor) Status() Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	return Status{
		Running:            m.running,
		CycleInterval:      m.cfg.Interval,
		SubscriberCount:    len(m.subscribers),
		TrackedPositions:   m.tracked,
		TotalAlertsEmitted: m.alertsEmitted,
	}
}
