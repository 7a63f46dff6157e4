// Package ledger owns the authoritative in-memory transaction sequence.
// Every mutation flows through Add or Remove; nothing else writes to it.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"notaspese/internal/core"
	applog "notaspese/internal/log"
)

// Saver persists the full ledger after every committed mutation.
type Saver interface {
	Save(ctx context.Context, txs []core.Transaction) error
}

// ErrPersistFailed wraps a storage error raised while saving the ledger.
// The in-memory state stays authoritative for the session; the next
// mutation rewrites the whole slot, which retries the write implicitly.
var ErrPersistFailed = errors.New("ledger persist failed")

// Ledger is the single writable owner of the transaction sequence.
// Insertion order is preserved; ids are strictly increasing and never
// reused within the process lifetime.
type Ledger struct {
	mu       sync.Mutex
	store    Saver
	logger   *applog.Logger
	items    []core.Transaction
	nextID   int64
	revision uint64
	saveErr  error
}

// New builds a ledger seeded with previously persisted transactions. The id
// counter starts strictly above the largest seen id so ids are never reused
// across restarts.
func New(store Saver, logger *applog.Logger, initial []core.Transaction) *Ledger {
	if logger == nil {
		logger = applog.New(applog.DefaultConfig())
	}
	l := &Ledger{
		store:  store,
		logger: logger.WithComponent(applog.ComponentLedger),
		items:  append([]core.Transaction(nil), initial...),
		nextID: 1,
	}
	for _, t := range initial {
		if t.ID >= l.nextID {
			l.nextID = t.ID + 1
		}
	}
	return l
}

// Add validates the draft, assigns a fresh id, appends the transaction and
// persists the full ledger. Validation failures block the add entirely: no
// partial transaction is ever stored. A persistence failure does not roll
// back the in-memory append (see ErrPersistFailed).
func (l *Ledger) Add(ctx context.Context, draft core.Draft) (core.Transaction, error) {
	if err := draft.Validate(); err != nil {
		return core.Transaction{}, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	t := core.Transaction{
		ID:          l.nextID,
		Date:        draft.Date,
		Description: draft.Description,
		Amount:      draft.Amount,
		Type:        draft.Type,
		Notes:       draft.Notes,
	}
	l.nextID++
	l.items = append(l.items, t)
	l.revision++
	l.persistLocked(ctx)

	l.logger.InfoContext(ctx, "Transaction added",
		applog.FieldTransactionID, t.ID,
		applog.FieldDescription, t.Description,
		applog.FieldAmountCents, t.Amount.Cents,
		applog.FieldCategory, string(t.Type),
		applog.FieldDate, t.Date.String(),
		applog.FieldLedgerSize, len(l.items))

	return t, nil
}

// Remove deletes the transaction with the given id if present and reports
// whether a removal occurred. An absent id is a no-op, not an error.
func (l *Ledger) Remove(ctx context.Context, id int64) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	for i, t := range l.items {
		if t.ID != id {
			continue
		}
		l.items = append(l.items[:i], l.items[i+1:]...)
		l.revision++
		l.persistLocked(ctx)
		l.logger.InfoContext(ctx, "Transaction removed",
			applog.FieldTransactionID, id,
			applog.FieldLedgerSize, len(l.items))
		return true
	}
	return false
}

// All returns a snapshot of the ledger in insertion order.
func (l *Ledger) All() []core.Transaction {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]core.Transaction(nil), l.items...)
}

// Len returns the number of stored transactions.
func (l *Ledger) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.items)
}

// Revision increments on every committed mutation. Derived views keyed by
// the revision can never serve data stale relative to the last mutation.
func (l *Ledger) Revision() uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.revision
}

// LastSaveError returns the persistence failure from the most recent
// mutation, or nil when the last save succeeded.
func (l *Ledger) LastSaveError() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.saveErr
}

// persistLocked writes the full ledger through the Saver. Failures are
// surfaced as warnings and retained; they never corrupt the in-memory
// sequence.
func (l *Ledger) persistLocked(ctx context.Context) {
	if l.store == nil {
		l.saveErr = nil
		return
	}
	snapshot := append([]core.Transaction(nil), l.items...)
	if err := l.store.Save(ctx, snapshot); err != nil {
		l.saveErr = fmt.Errorf("%w: %v", ErrPersistFailed, err)
		l.logger.WarnContext(ctx, "Failed to persist ledger, in-memory state remains authoritative",
			applog.FieldError, err,
			applog.FieldLedgerSize, len(l.items),
			applog.FieldRevision, l.revision)
		return
	}
	l.saveErr = nil
}
