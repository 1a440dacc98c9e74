package postgres

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/koustreak/pgmeta/internal/database"
	"github.com/koustreak/pgmeta/internal/errs"
)

// mockConn adds *pgx.Conn's closed-state reporting to a pgxmock connection.
type mockConn struct {
	pgxmock.PgxConnIface
	dropped atomic.Bool
}

func (m *mockConn) IsClosed() bool { return m.dropped.Load() }

func TestConn_DoSerializesCallers(t *testing.T) {
	const callers = 16

	mock := newMock(t)
	for range callers {
		mock.ExpectQuery("SELECT 1").
			WillReturnRows(pgxmock.NewRows([]string{"?column?"}).AddRow(int32(1)))
	}
	c := &Conn{conn: &mockConn{PgxConnIface: mock}}

	var active, overlaps atomic.Int32
	var wg sync.WaitGroup
	for range callers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := c.Do(context.Background(), func(q database.Querier) error {
				if active.Add(1) > 1 {
					overlaps.Add(1)
				}
				defer active.Add(-1)

				time.Sleep(time.Millisecond)
				_, err := Execute(context.Background(), q, "SELECT 1")
				return err
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Zero(t, overlaps.Load(), "callers entered the session concurrently")
}

func TestConn_Ping(t *testing.T) {
	mock := newMock(t)
	mock.ExpectPing()
	mock.ExpectPing().WillReturnError(errors.New("conn reset"))
	c := &Conn{conn: &mockConn{PgxConnIface: mock}}

	require.NoError(t, c.Ping(context.Background()))

	err := c.Ping(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ping failed")
}

func TestConn_DroppedByDriver(t *testing.T) {
	mc := &mockConn{PgxConnIface: newMock(t)}
	c := &Conn{conn: mc}
	assert.False(t, c.IsClosed())

	// pgx drops the link when a running statement's context ends.
	mc.dropped.Store(true)
	assert.True(t, c.IsClosed())

	called := false
	err := c.Do(context.Background(), func(database.Querier) error {
		called = true
		return nil
	})
	require.Error(t, err)
	assert.True(t, errs.IsConnection(err))
	assert.False(t, called)
}

func TestConn_Close(t *testing.T) {
	mock := newMock(t)
	mock.ExpectClose()
	c := &Conn{conn: &mockConn{PgxConnIface: mock}}

	require.NoError(t, c.Close(context.Background()))
	require.NoError(t, c.Close(context.Background()))
	assert.True(t, c.IsClosed())

	err := c.Do(context.Background(), nil)
	require.Error(t, err)
	assert.True(t, errs.IsConnection(err))
}

func TestConn_CancelledBeforeStart(t *testing.T) {
	c := &Conn{conn: &mockConn{PgxConnIface: newMock(t)}}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := c.Do(ctx, func(database.Querier) error {
		t.Fatal("fn must not run on a cancelled context")
		return nil
	})
	require.Error(t, err)
	assert.True(t, errs.IsTimeout(err))
}
