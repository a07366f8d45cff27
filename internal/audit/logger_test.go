package audit

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/quickcase/quickcase-authn/internal/platform/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockDB implements database.Querier for testing.
type mockDB struct {
	mu    sync.Mutex
	count int
	args  [][]any
}

func (m *mockDB) Exec(_ context.Context, _ string, args ...any) (pgconn.CommandTag, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.count++
	m.args = append(m.args, args)
	return pgconn.NewCommandTag("INSERT 0 1"), nil
}

func (m *mockDB) Query(_ context.Context, _ string, _ ...any) (pgx.Rows, error) {
	return nil, nil
}

func (m *mockDB) QueryRow(_ context.Context, _ string, _ ...any) pgx.Row {
	return nil
}

func (m *mockDB) insertCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.count
}

func (m *mockDB) lastArgs() []any {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.args) == 0 {
		return nil
	}
	return m.args[len(m.args)-1]
}

func TestAsyncLogger_FlushesOnInterval(t *testing.T) {
	db := &mockDB{}
	cfg := LoggerConfig{
		BufferSize:    100,
		BatchSize:     10,
		FlushInterval: 50 * time.Millisecond,
	}

	logger := NewAsyncLogger(db, NewStore(), cfg)

	logger.Log(context.Background(), Event{
		Action:    ActionAuthnAccepted,
		Principal: "user-123",
		Source:    SourceAPI,
	})

	// Wait for flush interval
	time.Sleep(150 * time.Millisecond)

	require.NoError(t, logger.Close())
	assert.GreaterOrEqual(t, db.insertCount(), 1)
}

func TestAsyncLogger_FlushesOnBatchSize(t *testing.T) {
	db := &mockDB{}
	cfg := LoggerConfig{
		BufferSize:    100,
		BatchSize:     3,
		FlushInterval: 10 * time.Second,
	}

	logger := NewAsyncLogger(db, NewStore(), cfg)

	for i := 0; i < 3; i++ {
		logger.Log(context.Background(), Event{
			Action: ActionAuthnRejected,
			Reason: "invalid token",
			Source: SourceAPI,
		})
	}

	time.Sleep(100 * time.Millisecond)

	require.NoError(t, logger.Close())
	assert.GreaterOrEqual(t, db.insertCount(), 1)
}

func TestAsyncLogger_DropsWhenBufferFull(t *testing.T) {
	db := &mockDB{}
	cfg := LoggerConfig{
		BufferSize:    2,
		BatchSize:     100,
		FlushInterval: 10 * time.Second,
	}

	logger := NewAsyncLogger(db, NewStore(), cfg)

	// Send more events than buffer can hold
	for i := 0; i < 10; i++ {
		logger.Log(context.Background(), Event{
			Action: ActionAuthnRejected,
			Source: SourceAPI,
		})
	}

	require.NoError(t, logger.Close())
}

func TestAsyncLogger_StampsEvents(t *testing.T) {
	db := &mockDB{}
	logger := NewAsyncLogger(db, NewStore(), LoggerConfig{BatchSize: 1, FlushInterval: 10 * time.Second})

	ctx := middleware.WithRequestID(context.Background(), "req-42")
	logger.Log(ctx, Event{Action: ActionAuthnAccepted, Principal: "user-123", Source: SourceAPI})

	require.NoError(t, logger.Close())

	args := db.lastArgs()
	require.Len(t, args, 9)
	assert.NotEqual(t, uuid.Nil, args[0])
	assert.Equal(t, "req-42", args[5])
	assert.False(t, args[8].(time.Time).IsZero())
}
