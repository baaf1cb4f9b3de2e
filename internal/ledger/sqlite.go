package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/coder/quartz"
	_ "modernc.org/sqlite"

	"github.com/lox/parlor/internal/table"
)

const schema = `
CREATE TABLE IF NOT EXISTS accounts (
  participant_id TEXT PRIMARY KEY,
  balance INTEGER NOT NULL,
  updated_at INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS entries (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  participant_id TEXT NOT NULL,
  delta INTEGER NOT NULL,
  balance INTEGER NOT NULL,
  reason TEXT NOT NULL,
  created_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS entries_participant ON entries (participant_id, id);
CREATE TABLE IF NOT EXISTS audit (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  actor TEXT NOT NULL,
  action TEXT NOT NULL,
  detail TEXT NOT NULL,
  created_at INTEGER NOT NULL
);
`

// SQLiteBank persists balances, entries and the audit trail in SQLite.
type SQLiteBank struct {
	db       *sql.DB
	clock    quartz.Clock
	starting int
}

func toMillis(value time.Time) int64 {
	return value.UTC().UnixMilli()
}

func fromMillis(value int64) time.Time {
	return time.UnixMilli(value).UTC()
}

// OpenSQLite opens (creating if needed) the ledger database at path.
func OpenSQLite(path string, startingBalance int, clock quartz.Clock) (*SQLiteBank, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("ledger path is required")
	}
	if clock == nil {
		clock = quartz.NewReal()
	}
	dsn := "file:" + filepath.Clean(path) + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	// SQLite allows a single writer.
	db.SetMaxOpenConns(1)
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &SQLiteBank{db: db, clock: clock, starting: startingBalance}, nil
}

func (b *SQLiteBank) Close() error {
	if b == nil || b.db == nil {
		return nil
	}
	return b.db.Close()
}

func (b *SQLiteBank) Balance(ctx context.Context, participantID string) (int, error) {
	var bal int
	err := b.inTx(ctx, func(tx *sql.Tx) error {
		var err error
		bal, err = b.account(ctx, tx, participantID)
		return err
	})
	return bal, err
}

func (b *SQLiteBank) Reserve(ctx context.Context, participantID string, amount int, reason string) (int, error) {
	if err := checkMovement(ctx, participantID, amount); err != nil {
		return 0, err
	}
	var bal int
	err := b.inTx(ctx, func(tx *sql.Tx) error {
		current, err := b.account(ctx, tx, participantID)
		if err != nil {
			return err
		}
		if current < amount {
			bal = current
			return table.Insufficient("balance %d does not cover %d", current, amount)
		}
		bal, err = b.move(ctx, tx, participantID, -amount, reason)
		return err
	})
	return bal, err
}

func (b *SQLiteBank) Credit(ctx context.Context, participantID string, amount int, reason string) (int, error) {
	if err := checkMovement(ctx, participantID, amount); err != nil {
		return 0, err
	}
	var bal int
	err := b.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := b.account(ctx, tx, participantID); err != nil {
			return err
		}
		var err error
		bal, err = b.move(ctx, tx, participantID, amount, reason)
		return err
	})
	return bal, err
}

func (b *SQLiteBank) History(ctx context.Context, participantID string, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := b.db.QueryContext(ctx,
		`SELECT participant_id, delta, balance, reason, created_at
		   FROM entries WHERE participant_id = ? ORDER BY id DESC LIMIT ?`,
		participantID, limit)
	if err != nil {
		return nil, fmt.Errorf("query entries: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var (
			e  Entry
			at int64
		)
		if err := rows.Scan(&e.ParticipantID, &e.Delta, &e.Balance, &e.Reason, &at); err != nil {
			return nil, fmt.Errorf("scan entry: %w", err)
		}
		e.At = fromMillis(at)
		out = append(out, e)
	}
	return out, rows.Err()
}

func (b *SQLiteBank) Audit(ctx context.Context, actor, action, detail string) error {
	_, err := b.db.ExecContext(ctx,
		`INSERT INTO audit (actor, action, detail, created_at) VALUES (?, ?, ?, ?)`,
		actor, action, detail, toMillis(b.clock.Now()))
	if err != nil {
		return fmt.Errorf("insert audit: %w", err)
	}
	return nil
}

func (b *SQLiteBank) AuditLog(ctx context.Context, limit int) ([]AuditEntry, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := b.db.QueryContext(ctx,
		`SELECT actor, action, detail, created_at FROM audit ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query audit: %w", err)
	}
	defer rows.Close()

	var out []AuditEntry
	for rows.Next() {
		var (
			a  AuditEntry
			at int64
		)
		if err := rows.Scan(&a.Actor, &a.Action, &a.Detail, &at); err != nil {
			return nil, fmt.Errorf("scan audit: %w", err)
		}
		a.At = fromMillis(at)
		out = append(out, a)
	}
	return out, rows.Err()
}

// account returns the participant's balance, opening the account with the
// starting balance on first sight.
func (b *SQLiteBank) account(ctx context.Context, tx *sql.Tx, id string) (int, error) {
	if _, err := tx.ExecContext(ctx,
		`INSERT OR IGNORE INTO accounts (participant_id, balance, updated_at) VALUES (?, ?, ?)`,
		id, b.starting, toMillis(b.clock.Now())); err != nil {
		return 0, fmt.Errorf("open account: %w", err)
	}
	var bal int
	if err := tx.QueryRowContext(ctx, `SELECT balance FROM accounts WHERE participant_id = ?`, id).Scan(&bal); err != nil {
		return 0, fmt.Errorf("read balance: %w", err)
	}
	return bal, nil
}

func (b *SQLiteBank) move(ctx context.Context, tx *sql.Tx, id string, delta int, reason string) (int, error) {
	now := toMillis(b.clock.Now())
	var bal int
	if err := tx.QueryRowContext(ctx,
		`UPDATE accounts SET balance = balance + ?, updated_at = ? WHERE participant_id = ? RETURNING balance`,
		delta, now, id).Scan(&bal); err != nil {
		return 0, fmt.Errorf("update balance: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO entries (participant_id, delta, balance, reason, created_at) VALUES (?, ?, ?, ?, ?)`,
		id, delta, bal, reason, now); err != nil {
		return 0, fmt.Errorf("insert entry: %w", err)
	}
	return bal, nil
}

func (b *SQLiteBank) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := b.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return errors.Join(err, rbErr)
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}
