package amqp

import (
	"encoding/json"
	"time"
)

// ChangeMessage notifies the snapshot worker that the aggregate changed.
// It carries only the change kind and coordinates; the worker reads the
// current state from the database itself.
type ChangeMessage struct {
	Kind      string    `json:"kind"`
	BillID    string    `json:"billId,omitempty"`
	Month     string    `json:"month"`
	Timestamp time.Time `json:"timestamp"`
}

func NewChangeMessage(kind, billID, month string) *ChangeMessage {
	return &ChangeMessage{
		Kind:      kind,
		BillID:    billID,
		Month:     month,
		Timestamp: time.Now(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *ChangeMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// ChangeMessageFromJSON creates a message from JSON bytes
func ChangeMessageFromJSON(data []byte) (*ChangeMessage, error) {
	var msg ChangeMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
