package events

import (
	"testing"
	"time"
)

func TestLedgerEventMessageRoundTrip(t *testing.T) {
	msg := NewLedgerEventMessage(42, ActionCreated)
	if msg.Timestamp.IsZero() {
		t.Fatal("timestamp should be set")
	}

	data, err := msg.ToJSON()
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	back, err := LedgerEventMessageFromJSON(data)
	if err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if back.ID != 42 || back.Action != ActionCreated {
		t.Fatalf("round trip mismatch: %+v", back)
	}
	if back.Timestamp.Sub(msg.Timestamp) > time.Second {
		t.Fatal("timestamp lost in round trip")
	}
}

func TestLedgerEventMessageFromJSONRejectsGarbage(t *testing.T) {
	if _, err := LedgerEventMessageFromJSON([]byte("not-json")); err == nil {
		t.Fatal("expected error for malformed payload")
	}
}
