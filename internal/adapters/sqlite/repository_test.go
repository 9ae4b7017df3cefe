package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"marketpulse/internal/domain"
	"marketpulse/internal/ports"
)

type mockLogger struct{}

func (m *mockLogger) Debug(ctx context.Context, msg string, fields ...map[string]interface{}) {}
func (m *mockLogger) Info(ctx context.Context, msg string, fields ...map[string]interface{})  {}
func (m *mockLogger) Warn(ctx context.Context, msg string, fields ...map[string]interface{})  {}
func (m *mockLogger) Error(ctx context.Context, err error, msg string, fields ...map[string]interface{}) {
}

func newTestRepo(t *testing.T) *Repository {
	t.Helper()
	repo, err := NewRepository(Config{
		DBPath: filepath.Join(t.TempDir(), "journal.db"),
		Logger: &mockLogger{},
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = repo.Close() })
	return repo
}

func TestListOpenWithProtection(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	protectedID, err := repo.Create(ctx, &domain.PositionSnapshot{
		OwnerID: 1, Symbol: "DAX", Direction: domain.Long,
		EntryPrice: 18000, StopLoss: 17900, TakeProfit: 18200, LotSize: 1.0,
	})
	require.NoError(t, err)

	// No SL or TP: not a monitoring candidate.
	_, err = repo.Create(ctx, &domain.PositionSnapshot{
		OwnerID: 1, Symbol: "NASDAQ", Direction: domain.Long,
		EntryPrice: 15000, LotSize: 0.5,
	})
	require.NoError(t, err)

	closedID, err := repo.Create(ctx, &domain.PositionSnapshot{
		OwnerID: 2, Symbol: "EURUSD", Direction: domain.Short,
		EntryPrice: 1.08, StopLoss: 1.09, LotSize: 0.1,
	})
	require.NoError(t, err)
	require.NoError(t, repo.MarkClosed(ctx, closedID))

	open, err := repo.ListOpenWithProtection(ctx)
	require.NoError(t, err)
	require.Len(t, open, 1)
	assert.Equal(t, protectedID, open[0].ID)
	assert.Equal(t, "DAX", open[0].Symbol)
	assert.Equal(t, domain.Long, open[0].Direction)
	assert.Equal(t, 17900.0, open[0].StopLoss)
}

func TestFindByID(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	id, err := repo.Create(ctx, &domain.PositionSnapshot{
		OwnerID: 3, Symbol: "XAUUSD", Direction: domain.Short,
		EntryPrice: 2400, StopLoss: 2420, TakeProfit: 2350, LotSize: 0.2,
	})
	require.NoError(t, err)

	pos, err := repo.FindByID(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, pos)
	assert.Equal(t, "XAUUSD", pos.Symbol)
	assert.Equal(t, domain.Short, pos.Direction)

	missing, err := repo.FindByID(ctx, 9999)
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestCreateRejectsInvalidDirection(t *testing.T) {
	repo := newTestRepo(t)

	_, err := repo.Create(context.Background(), &domain.PositionSnapshot{
		OwnerID: 1, Symbol: "DAX", Direction: "SIDEWAYS",
		EntryPrice: 18000, StopLoss: 17900, LotSize: 1.0,
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ports.ErrValidation))
}

func TestMarkClosedUnknownID(t *testing.T) {
	repo := newTestRepo(t)

	err := repo.MarkClosed(context.Background(), 4242)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ports.ErrNotFound))
}
