package ports

import (
	"context"

	"marketpulse/internal/domain"
)

// PositionRepository defines the narrow contract the engine has with the host
// application's position store.
type PositionRepository interface {
	// ListOpenWithProtection retrieves all open positions that carry a
	// stop-loss or take-profit level.
	ListOpenWithProtection(ctx context.Context) ([]*domain.PositionSnapshot, error)

	// FindByID retrieves a position by its unique ID.
	// Returns nil, nil if not found.
	FindByID(ctx context.Context, id int64) (*domain.PositionSnapshot, error)

	// Create saves a new position and returns its assigned ID.
	Create(ctx context.Context, pos *domain.PositionSnapshot) (int64, error)

	// MarkClosed flags a position as closed so it drops out of monitoring.
	// The host must also call PositionMonitor.ClearAlertState for the id.
	MarkClosed(ctx context.Context, id int64) error
}

// InstrumentSource looks up per-instrument quoting configuration.
// Unknown symbols default to {USD, 1.0}.
type InstrumentSource interface {
	Config(symbol string) domain.InstrumentConfig
}
