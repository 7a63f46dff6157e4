package storage

import (
	"context"
	"encoding/json"
	"fmt"

	"notaspese/internal/core"
)

// LedgerSlotKey is the fixed slot holding the serialized ledger.
const LedgerSlotKey = "ledger"

// LedgerSlot binds the ledger slot to its JSON-array-of-transactions codec.
// It implements the ledger's Saver port.
type LedgerSlot struct {
	store *SlotStore
}

func NewLedgerSlot(store *SlotStore) *LedgerSlot {
	return &LedgerSlot{store: store}
}

// Load reads the persisted ledger. A missing or empty slot yields an empty
// ledger, not an error.
func (s *LedgerSlot) Load(ctx context.Context) ([]core.Transaction, error) {
	data, ok, err := s.store.Get(ctx, LedgerSlotKey)
	if err != nil {
		return nil, err
	}
	if !ok || len(data) == 0 {
		return nil, nil
	}
	var txs []core.Transaction
	if err := json.Unmarshal(data, &txs); err != nil {
		return nil, fmt.Errorf("decode ledger slot: %w", err)
	}
	return txs, nil
}

// Save rewrites the full ledger into the slot.
func (s *LedgerSlot) Save(ctx context.Context, txs []core.Transaction) error {
	if txs == nil {
		txs = []core.Transaction{}
	}
	data, err := json.Marshal(txs)
	if err != nil {
		return fmt.Errorf("encode ledger slot: %w", err)
	}
	return s.store.Put(ctx, LedgerSlotKey, data)
}
