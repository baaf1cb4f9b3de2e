// Package ledger holds participant balances for table buy-ins and keeps an
// audit trail of administrative actions.
package ledger

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/coder/quartz"

	"github.com/lox/parlor/internal/table"
)

// DefaultStartingBalance is credited to an account the first time it is seen.
const DefaultStartingBalance = 100_000

// Entry is a balance movement.
type Entry struct {
	ParticipantID string    `json:"participantId"`
	Delta         int       `json:"delta"`
	Balance       int       `json:"balance"`
	Reason        string    `json:"reason"`
	At            time.Time `json:"at"`
}

// AuditEntry records an administrative action such as adding bots.
type AuditEntry struct {
	Actor  string    `json:"actor"`
	Action string    `json:"action"`
	Detail string    `json:"detail"`
	At     time.Time `json:"at"`
}

// Bank reserves buy-ins and records the audit trail. Reserve fails with
// table.ErrInsufficientResource when the balance does not cover amount.
type Bank interface {
	Balance(ctx context.Context, participantID string) (int, error)
	Reserve(ctx context.Context, participantID string, amount int, reason string) (int, error)
	Credit(ctx context.Context, participantID string, amount int, reason string) (int, error)
	History(ctx context.Context, participantID string, limit int) ([]Entry, error)
	Audit(ctx context.Context, actor, action, detail string) error
	AuditLog(ctx context.Context, limit int) ([]AuditEntry, error)
	Close() error
}

// MemoryBank is an in-process Bank.
type MemoryBank struct {
	mu       sync.Mutex
	clock    quartz.Clock
	starting int
	balances map[string]int
	entries  []Entry
	audit    []AuditEntry
}

func NewMemoryBank(startingBalance int, clock quartz.Clock) *MemoryBank {
	if clock == nil {
		clock = quartz.NewReal()
	}
	return &MemoryBank{
		clock:    clock,
		starting: startingBalance,
		balances: make(map[string]int),
	}
}

func (b *MemoryBank) account(id string) int {
	bal, ok := b.balances[id]
	if !ok {
		bal = b.starting
		b.balances[id] = bal
	}
	return bal
}

func (b *MemoryBank) Balance(ctx context.Context, participantID string) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.account(participantID), nil
}

func (b *MemoryBank) Reserve(ctx context.Context, participantID string, amount int, reason string) (int, error) {
	if err := checkMovement(ctx, participantID, amount); err != nil {
		return 0, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	bal := b.account(participantID)
	if bal < amount {
		return bal, table.Insufficient("balance %d does not cover %d", bal, amount)
	}
	return b.move(participantID, -amount, reason), nil
}

func (b *MemoryBank) Credit(ctx context.Context, participantID string, amount int, reason string) (int, error) {
	if err := checkMovement(ctx, participantID, amount); err != nil {
		return 0, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.account(participantID)
	return b.move(participantID, amount, reason), nil
}

func (b *MemoryBank) move(id string, delta int, reason string) int {
	b.balances[id] += delta
	b.entries = append(b.entries, Entry{
		ParticipantID: id,
		Delta:         delta,
		Balance:       b.balances[id],
		Reason:        reason,
		At:            b.clock.Now().UTC(),
	})
	return b.balances[id]
}

// History returns the participant's most recent entries, newest first.
func (b *MemoryBank) History(ctx context.Context, participantID string, limit int) ([]Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []Entry
	for i := len(b.entries) - 1; i >= 0 && (limit <= 0 || len(out) < limit); i-- {
		if b.entries[i].ParticipantID == participantID {
			out = append(out, b.entries[i])
		}
	}
	return out, nil
}

func (b *MemoryBank) Audit(ctx context.Context, actor, action, detail string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.audit = append(b.audit, AuditEntry{Actor: actor, Action: action, Detail: detail, At: b.clock.Now().UTC()})
	return nil
}

// AuditLog returns the most recent audit entries, newest first.
func (b *MemoryBank) AuditLog(ctx context.Context, limit int) ([]AuditEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	out := slices.Clone(b.audit)
	slices.Reverse(out)
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (b *MemoryBank) Close() error { return nil }

func checkMovement(ctx context.Context, participantID string, amount int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if participantID == "" {
		return table.Illegal("participant id is required")
	}
	if amount <= 0 {
		return table.Illegal("amount must be positive, got %d", amount)
	}
	return nil
}
