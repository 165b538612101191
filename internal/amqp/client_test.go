package amqp

import (
	"testing"
	"time"
)

func TestNewChangeMessage(t *testing.T) {
	msg := NewChangeMessage("bill-paid", "b1", "2024-03")

	if msg.Kind != "bill-paid" {
		t.Errorf("Kind = %q, want bill-paid", msg.Kind)
	}
	if msg.BillID != "b1" {
		t.Errorf("BillID = %q, want b1", msg.BillID)
	}
	if msg.Month != "2024-03" {
		t.Errorf("Month = %q, want 2024-03", msg.Month)
	}
	if msg.Timestamp.IsZero() {
		t.Error("Timestamp should not be zero")
	}
	if time.Since(msg.Timestamp) > time.Second {
		t.Error("Timestamp should be recent")
	}
}

func TestChangeMessage_JSON(t *testing.T) {
	timestamp := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	msg := &ChangeMessage{
		Kind:      "rollover",
		Month:     "2024-03",
		Timestamp: timestamp,
	}

	jsonBytes, err := msg.ToJSON()
	if err != nil {
		t.Fatalf("ToJSON() error = %v", err)
	}

	parsed, err := ChangeMessageFromJSON(jsonBytes)
	if err != nil {
		t.Fatalf("ChangeMessageFromJSON() error = %v", err)
	}

	if parsed.Kind != msg.Kind {
		t.Errorf("Parsed Kind = %v, want %v", parsed.Kind, msg.Kind)
	}
	if parsed.BillID != "" {
		t.Errorf("Parsed BillID = %q, want empty", parsed.BillID)
	}
	if parsed.Month != msg.Month {
		t.Errorf("Parsed Month = %v, want %v", parsed.Month, msg.Month)
	}
	if !parsed.Timestamp.Equal(msg.Timestamp) {
		t.Errorf("Parsed Timestamp = %v, want %v", parsed.Timestamp, msg.Timestamp)
	}
}

func TestChangeMessage_InvalidJSON(t *testing.T) {
	if _, err := ChangeMessageFromJSON([]byte(`{"kind": 5}`)); err == nil {
		t.Error("ChangeMessageFromJSON() should fail with invalid JSON")
	}
}
