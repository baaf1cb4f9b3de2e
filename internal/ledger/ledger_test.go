package ledger

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/coder/quartz"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lox/parlor/internal/table"
)

func banks(t *testing.T) map[string]func(t *testing.T, clock quartz.Clock) Bank {
	return map[string]func(t *testing.T, clock quartz.Clock) Bank{
		"memory": func(t *testing.T, clock quartz.Clock) Bank {
			return NewMemoryBank(1000, clock)
		},
		"sqlite": func(t *testing.T, clock quartz.Clock) Bank {
			b, err := OpenSQLite(filepath.Join(t.TempDir(), "ledger.db"), 1000, clock)
			require.NoError(t, err)
			t.Cleanup(func() { _ = b.Close() })
			return b
		},
	}
}

func TestReserveAndCredit(t *testing.T) {
	for name, open := range banks(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			clock := quartz.NewMock(t)
			b := open(t, clock)

			bal, err := b.Balance(ctx, "alice")
			require.NoError(t, err)
			assert.Equal(t, 1000, bal, "new accounts get the starting balance")

			bal, err = b.Reserve(ctx, "alice", 400, "buy-in tp-001")
			require.NoError(t, err)
			assert.Equal(t, 600, bal)

			clock.Advance(time.Second)
			bal, err = b.Credit(ctx, "alice", 50, "cash-out tp-001")
			require.NoError(t, err)
			assert.Equal(t, 650, bal)

			_, err = b.Reserve(ctx, "alice", 651, "buy-in tp-002")
			assert.True(t, errors.Is(err, table.ErrInsufficientResource))
			bal, err = b.Balance(ctx, "alice")
			require.NoError(t, err)
			assert.Equal(t, 650, bal, "failed reserve leaves the balance")

			hist, err := b.History(ctx, "alice", 0)
			require.NoError(t, err)
			require.Len(t, hist, 2)
			assert.Equal(t, 50, hist[0].Delta)
			assert.Equal(t, "cash-out tp-001", hist[0].Reason)
			assert.Equal(t, clock.Now().UTC().UnixMilli(), hist[0].At.UnixMilli())
			assert.Equal(t, Entry{
				ParticipantID: "alice",
				Delta:         -400,
				Balance:       600,
				Reason:        "buy-in tp-001",
				At:            hist[1].At,
			}, hist[1])

			hist, err = b.History(ctx, "alice", 1)
			require.NoError(t, err)
			assert.Len(t, hist, 1)
		})
	}
}

func TestRejectsBadMovements(t *testing.T) {
	for name, open := range banks(t) {
		t.Run(name, func(t *testing.T) {
			b := open(t, quartz.NewMock(t))
			ctx := context.Background()
			_, err := b.Reserve(ctx, "alice", 0, "")
			assert.True(t, errors.Is(err, table.ErrIllegalAction))
			_, err = b.Credit(ctx, "alice", -5, "")
			assert.True(t, errors.Is(err, table.ErrIllegalAction))
			_, err = b.Reserve(ctx, "", 5, "")
			assert.True(t, errors.Is(err, table.ErrIllegalAction))
		})
	}
}

func TestAuditLog(t *testing.T) {
	for name, open := range banks(t) {
		t.Run(name, func(t *testing.T) {
			b := open(t, quartz.NewMock(t))
			ctx := context.Background()
			for i := range 3 {
				require.NoError(t, b.Audit(ctx, "admin", "add_bots", fmt.Sprintf("table t%d", i)))
			}
			log, err := b.AuditLog(ctx, 2)
			require.NoError(t, err)
			require.Len(t, log, 2)
			assert.Equal(t, "table t2", log[0].Detail)
			assert.Equal(t, "admin", log[1].Actor)
			assert.Equal(t, "add_bots", log[1].Action)
		})
	}
}

func TestConcurrentReservesNeverOverdraw(t *testing.T) {
	for name, open := range banks(t) {
		t.Run(name, func(t *testing.T) {
			b := open(t, quartz.NewMock(t))
			ctx := context.Background()

			var (
				wg sync.WaitGroup
				mu sync.Mutex
				ok int
			)
			for range 20 {
				wg.Add(1)
				go func() {
					defer wg.Done()
					if _, err := b.Reserve(ctx, "bob", 100, "buy-in"); err == nil {
						mu.Lock()
						ok++
						mu.Unlock()
					}
				}()
			}
			wg.Wait()

			assert.Equal(t, 10, ok)
			bal, err := b.Balance(ctx, "bob")
			require.NoError(t, err)
			assert.Zero(t, bal)
		})
	}
}

func TestSQLiteBankPersists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.db")
	ctx := context.Background()

	b, err := OpenSQLite(path, 500, nil)
	require.NoError(t, err)
	_, err = b.Reserve(ctx, "carol", 200, "buy-in")
	require.NoError(t, err)
	require.NoError(t, b.Close())

	b, err = OpenSQLite(path, 500, nil)
	require.NoError(t, err)
	defer b.Close()
	bal, err := b.Balance(ctx, "carol")
	require.NoError(t, err)
	assert.Equal(t, 300, bal)

	_, err = OpenSQLite(" ", 500, nil)
	assert.Error(t, err)
}
