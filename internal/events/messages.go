package events

import (
	"encoding/json"
	"time"
)

// Actions carried by ledger event messages.
const (
	ActionCreated = "created"
	ActionDeleted = "deleted"
)

// LedgerEventMessage notifies subscribers that the ledger changed. It only
// carries the transaction id and the action; consumers re-query the ledger
// for current state, so a delivered event can never describe stale data.
type LedgerEventMessage struct {
	ID        int64     `json:"id"`
	Action    string    `json:"action"`
	Timestamp time.Time `json:"timestamp"`
}

// NewLedgerEventMessage creates an event for the given transaction id.
func NewLedgerEventMessage(id int64, action string) *LedgerEventMessage {
	return &LedgerEventMessage{
		ID:        id,
		Action:    action,
		Timestamp: time.Now(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *LedgerEventMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// LedgerEventMessageFromJSON creates a message from JSON bytes
func LedgerEventMessageFromJSON(data []byte) (*LedgerEventMessage, error) {
	var msg LedgerEventMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
