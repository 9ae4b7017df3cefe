package workerpool

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"marketpulse/internal/ports"
)

type mockLogger struct{}

func (m *mockLogger) Debug(ctx context.Context, msg string, fields ...map[string]interface{}) {}
func (m *mockLogger) Info(ctx context.Context, msg string, fields ...map[string]interface{})  {}
func (m *mockLogger) Warn(ctx context.Context, msg string, fields ...map[string]interface{})  {}
func (m *mockLogger) Error(ctx context.Context, err error, msg string, fields ...map[string]interface{}) {
}

func TestNewValidatesSize(t *testing.T) {
	_, err := New(0, &mockLogger{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ports.ErrConfiguration))

	pool, err := New(3, &mockLogger{})
	require.NoError(t, err)
	assert.Equal(t, 3, pool.Size())
	pool.Close()
}

func TestDoBoundsConcurrency(t *testing.T) {
	pool, err := New(2, &mockLogger{})
	require.NoError(t, err)
	defer pool.Close()

	var current, peak int32
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = pool.Do(context.Background(), func(ctx context.Context) error {
				n := atomic.AddInt32(&current, 1)
				for {
					p := atomic.LoadInt32(&peak)
					if n <= p || atomic.CompareAndSwapInt32(&peak, p, n) {
						break
					}
				}
				time.Sleep(10 * time.Millisecond)
				atomic.AddInt32(&current, -1)
				return nil
			})
		}()
	}
	wg.Wait()

	assert.LessOrEqual(t, atomic.LoadInt32(&peak), int32(2))
}

func TestDoReturnsFnError(t *testing.T) {
	pool, err := New(1, &mockLogger{})
	require.NoError(t, err)
	defer pool.Close()

	wantErr := errors.New("vendor unavailable")
	err = pool.Do(context.Background(), func(ctx context.Context) error {
		return wantErr
	})
	assert.True(t, errors.Is(err, wantErr))
}

func TestDoHonorsCancellationWhileQueued(t *testing.T) {
	pool, err := New(1, &mockLogger{})
	require.NoError(t, err)
	defer pool.Close()

	slotHeld := make(chan struct{})
	release := make(chan struct{})
	go func() {
		_ = pool.Do(context.Background(), func(ctx context.Context) error {
			close(slotHeld)
			<-release
			return nil
		})
	}()
	<-slotHeld

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	start := time.Now()
	err = pool.Do(ctx, func(ctx context.Context) error { return nil })
	close(release)

	require.Error(t, err)
	assert.True(t, errors.Is(err, ports.ErrTimeout))
	assert.Less(t, time.Since(start), time.Second, "caller must not wait for the slot holder")
}

func TestDoHonorsCancellationMidFlight(t *testing.T) {
	pool, err := New(1, &mockLogger{})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	release := make(chan struct{})
	started := make(chan struct{})
	go func() {
		<-started
		cancel()
	}()

	err = pool.Do(ctx, func(ctx context.Context) error {
		close(started)
		<-release
		return nil
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ports.ErrContextCanceled))

	// The abandoned call finishes in the background; Close drains it.
	close(release)
	pool.Close()
}

func TestDoAfterClose(t *testing.T) {
	pool, err := New(1, &mockLogger{})
	require.NoError(t, err)
	pool.Close()

	err = pool.Do(context.Background(), func(ctx context.Context) error { return nil })
	require.Error(t, err)
	assert.True(t, errors.Is(err, ports.ErrConfiguration))
}
