package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"marketpulse/internal/domain"
	"marketpulse/internal/ports"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// Repository implements the ports.PositionRepository interface using SQLite.
// It backs the host journal's position store with the narrow contract the
// engine consumes; the host owns everything else about the schema.
type Repository struct {
	db     *sql.DB
	logger ports.Logger
}

// Config holds configuration for the SQLite repository.
type Config struct {
	DBPath string
	Logger ports.Logger
}

// NewRepository creates a new SQLite repository instance.
func NewRepository(cfg Config) (*Repository, error) {
	if cfg.Logger == nil {
		return nil, fmt.Errorf("%w: logger is required for SQLite repository", ports.ErrConfiguration)
	}
	dbPath := cfg.DBPath
	if dbPath == "" {
		dbPath = "./data/journal.db" // Default path
	}

	// Create data directory if it doesn't exist
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		err = fmt.Errorf("failed to create data directory '%s': %w", filepath.Dir(dbPath), err)
		cfg.Logger.Error(context.Background(), err, "SQLite repository initialization failed")
		return nil, err
	}

	// Open database connection, WAL mode for better concurrency
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		err = fmt.Errorf("failed to open database at '%s': %w: %w", dbPath, ports.ErrDBConnection, err)
		cfg.Logger.Error(context.Background(), err, "SQLite repository initialization failed")
		return nil, err
	}

	// Test the connection
	if err := db.Ping(); err != nil {
		db.Close()
		err = fmt.Errorf("failed to ping database at '%s': %w: %w", dbPath, ports.ErrDBConnection, err)
		cfg.Logger.Error(context.Background(), err, "SQLite repository initialization failed")
		return nil, err
	}

	// SQLite handles concurrency internally; the Go driver benefits from
	// limiting connections.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	repo := &Repository{db: db, logger: cfg.Logger}

	if err := repo.initializeSchema(context.Background()); err != nil {
		db.Close()
		err = fmt.Errorf("failed to initialize database schema: %w", err)
		cfg.Logger.Error(context.Background(), err, "SQLite repository initialization failed")
		return nil, err
	}
	cfg.Logger.Info(context.Background(), "SQLite position repository initialized", map[string]interface{}{"path": dbPath})

	return repo, nil
}

// initializeSchema creates the positions table if it doesn't exist.
func (r *Repository) initializeSchema(ctx context.Context) error {
	const schema = `
	CREATE TABLE IF NOT EXISTS positions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		owner_id INTEGER NOT NULL,
		symbol TEXT NOT NULL,
		direction TEXT NOT NULL,
		entry_price REAL NOT NULL,
		stop_loss REAL NOT NULL DEFAULT 0,
		take_profit REAL NOT NULL DEFAULT 0,
		lot_size REAL NOT NULL,
		status TEXT NOT NULL DEFAULT 'open'
	);
	CREATE INDEX IF NOT EXISTS idx_positions_status_symbol ON positions (status, symbol);
	`
	if _, err := r.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("%w: %w", ports.ErrQueryFailed, err)
	}
	return nil
}

// ListOpenWithProtection retrieves all open positions carrying a stop-loss or
// take-profit level.
func (r *Repository) ListOpenWithProtection(ctx context.Context) ([]*domain.PositionSnapshot, error) {
	const query = `
	SELECT id, owner_id, symbol, direction, entry_price, stop_loss, take_profit, lot_size
	FROM positions
	WHERE status = 'open' AND (stop_loss > 0 OR take_profit > 0)
	ORDER BY symbol, id`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list open positions: %w: %w", ports.ErrQueryFailed, err)
	}
	defer rows.Close()

	var positions []*domain.PositionSnapshot
	for rows.Next() {
		pos := &domain.PositionSnapshot{}
		var direction string
		if err := rows.Scan(&pos.ID, &pos.OwnerID, &pos.Symbol, &direction, &pos.EntryPrice, &pos.StopLoss, &pos.TakeProfit, &pos.LotSize); err != nil {
			return nil, fmt.Errorf("scan position row: %w: %w", ports.ErrQueryFailed, err)
		}
		pos.Direction = domain.Direction(direction)
		positions = append(positions, pos)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate position rows: %w: %w", ports.ErrQueryFailed, err)
	}
	return positions, nil
}

// FindByID retrieves a position by its unique ID. Returns nil, nil if not found.
func (r *Repository) FindByID(ctx context.Context, id int64) (*domain.PositionSnapshot, error) {
	const query = `
	SELECT id, owner_id, symbol, direction, entry_price, stop_loss, take_profit, lot_size
	FROM positions
	WHERE id = ?`

	pos := &domain.PositionSnapshot{}
	var direction string
	err := r.db.QueryRowContext(ctx, query, id).
		Scan(&pos.ID, &pos.OwnerID, &pos.Symbol, &direction, &pos.EntryPrice, &pos.StopLoss, &pos.TakeProfit, &pos.LotSize)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find position %d: %w: %w", id, ports.ErrQueryFailed, err)
	}
	pos.Direction = domain.Direction(direction)
	return pos, nil
}

// Create saves a new position and returns its assigned ID.
func (r *Repository) Create(ctx context.Context, pos *domain.PositionSnapshot) (int64, error) {
	if !pos.Direction.IsValid() {
		return 0, fmt.Errorf("%w: unknown direction %q", ports.ErrValidation, pos.Direction)
	}
	const query = `
	INSERT INTO positions (owner_id, symbol, direction, entry_price, stop_loss, take_profit, lot_size, status)
	VALUES (?, ?, ?, ?, ?, ?, ?, 'open')`

	res, err := r.db.ExecContext(ctx, query,
		pos.OwnerID, pos.Symbol, string(pos.Direction), pos.EntryPrice, pos.StopLoss, pos.TakeProfit, pos.LotSize)
	if err != nil {
		return 0, fmt.Errorf("create position: %w: %w", ports.ErrQueryFailed, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("create position: fetch id: %w: %w", ports.ErrQueryFailed, err)
	}
	return id, nil
}

// MarkClosed flags a position as closed so it drops out of monitoring.
func (r *Repository) MarkClosed(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `UPDATE positions SET status = 'closed' WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("close position %d: %w: %w", id, ports.ErrQueryFailed, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("close position %d: %w: %w", id, ports.ErrQueryFailed, err)
	}
	if affected == 0 {
		return fmt.Errorf("close position %d: %w", id, ports.ErrNotFound)
	}
	return nil
}

// Close closes the underlying database connection.
func (r *Repository) Close() error {
	return r.db.Close()
}
