package services

import (
	"context"
	"fmt"
	"log/slog"

	"notaspese/internal/core"
	"notaspese/internal/ledger"
)

// EventPublisher is the outbound port for ledger mutation notifications.
type EventPublisher interface {
	PublishTransactionCreated(ctx context.Context, id int64) error
	PublishTransactionDeleted(ctx context.Context, id int64) error
	Close() error
}

// LedgerService orchestrates ledger mutations and event publishing. The
// ledger commit always comes first; a publish failure is logged and never
// fails the mutation.
type LedgerService struct {
	ledger *ledger.Ledger
	events EventPublisher
}

func NewLedgerService(l *ledger.Ledger, events EventPublisher) *LedgerService {
	return &LedgerService{
		ledger: l,
		events: events,
	}
}

// Create validates and stores a draft, then publishes a created event.
func (s *LedgerService) Create(ctx context.Context, draft core.Draft) (core.Transaction, error) {
	t, err := s.ledger.Add(ctx, draft)
	if err != nil {
		return core.Transaction{}, err
	}

	if s.events != nil {
		if err := s.events.PublishTransactionCreated(ctx, t.ID); err != nil {
			slog.ErrorContext(ctx, "Failed to publish created event",
				"id", t.ID, "error", err)
			// Don't fail the request - the transaction is committed
		}
	}

	return t, nil
}

// Delete removes a transaction by id and publishes a deleted event when a
// removal actually occurred.
func (s *LedgerService) Delete(ctx context.Context, id int64) bool {
	removed := s.ledger.Remove(ctx, id)
	if !removed {
		return false
	}

	if s.events != nil {
		if err := s.events.PublishTransactionDeleted(ctx, id); err != nil {
			slog.ErrorContext(ctx, "Failed to publish deleted event",
				"id", id, "error", err)
		}
	}

	return true
}

// Transactions returns a snapshot of the ledger in insertion order.
func (s *LedgerService) Transactions() []core.Transaction {
	return s.ledger.All()
}

// Revision exposes the ledger revision for cache keying.
func (s *LedgerService) Revision() uint64 {
	return s.ledger.Revision()
}

// Close releases the event publisher connection.
func (s *LedgerService) Close() error {
	if s.events == nil {
		return nil
	}
	if err := s.events.Close(); err != nil {
		return fmt.Errorf("close event publisher: %w", err)
	}
	return nil
}
