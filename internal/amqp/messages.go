package amqp

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// EventType names what happened to the ledger.
type EventType string

const (
	SeriesCreated       EventType = "series.created"
	SeriesUpdated       EventType = "series.updated"
	SeriesDeleted       EventType = "series.deleted"
	TransferCreated     EventType = "transfer.created"
	AnticipationCreated EventType = "anticipation.created"
	SettlementChanged   EventType = "settlement.changed"
)

func (t EventType) valid() bool {
	switch t {
	case SeriesCreated, SeriesUpdated, SeriesDeleted, TransferCreated, AnticipationCreated, SettlementChanged:
		return true
	}
	return false
}

// LedgerEventMessage is published after a ledger change commits. It carries
// ids only; consumers read the current rows from the store.
type LedgerEventMessage struct {
	ID          string    `json:"id"`
	Type        EventType `json:"type"`
	UserID      string    `json:"user_id"`
	SeriesID    string    `json:"series_id,omitempty"`
	InstanceIDs []string  `json:"instance_ids"`
	// RemovedIDs lists rows that no longer exist, such as installments
	// consumed by an anticipation.
	RemovedIDs []string  `json:"removed_ids,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}

var ErrInvalidMessage = errors.New("invalid ledger event message")

// NewLedgerEventMessage creates an event with a fresh id.
func NewLedgerEventMessage(t EventType, userID, seriesID string, instanceIDs []string) *LedgerEventMessage {
	return &LedgerEventMessage{
		ID:          uuid.NewString(),
		Type:        t,
		UserID:      userID,
		SeriesID:    seriesID,
		InstanceIDs: instanceIDs,
		Timestamp:   time.Now().UTC(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *LedgerEventMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// LedgerEventMessageFromJSON decodes and validates a message.
func LedgerEventMessageFromJSON(data []byte) (*LedgerEventMessage, error) {
	var msg LedgerEventMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if !msg.Type.valid() {
		return nil, fmt.Errorf("%w: unknown type %q", ErrInvalidMessage, msg.Type)
	}
	if msg.UserID == "" {
		return nil, fmt.Errorf("%w: missing user", ErrInvalidMessage)
	}
	return &msg, nil
}
