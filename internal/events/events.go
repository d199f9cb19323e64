// Package events publishes record change notifications.
package events

import (
	"context"
	"encoding/json"
	"time"

	"monthlydata/models"

	"github.com/google/uuid"
)

// Event types.
const (
	TypeCreated = "record.created"
	TypeUpdated = "record.updated"
	TypeDeleted = "record.deleted"
)

// RecordEvent is the message body sent for every successful write.
type RecordEvent struct {
	Type     string    `json:"type"`
	ID       uuid.UUID `json:"id"`
	Username string    `json:"username"`
	Mobile   string    `json:"mobile"`
	Actor    uint      `json:"actor"`
	At       time.Time `json:"at"`
}

// NewRecordEvent describes a write on r performed by actor.
func NewRecordEvent(typ string, r *models.MonthlyRecord, actor uint) RecordEvent {
	return RecordEvent{
		Type:     typ,
		ID:       r.ID,
		Username: r.Username,
		Mobile:   r.Mobile,
		Actor:    actor,
		At:       time.Now().UTC(),
	}
}

// ToJSON converts the event to JSON bytes
func (e RecordEvent) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// RecordEventFromJSON decodes an event body.
func RecordEventFromJSON(data []byte) (RecordEvent, error) {
	var e RecordEvent
	if err := json.Unmarshal(data, &e); err != nil {
		return RecordEvent{}, err
	}
	return e, nil
}

// Publisher delivers record events. Implementations must be safe for concurrent use.
type Publisher interface {
	Publish(ctx context.Context, e RecordEvent) error
	Close() error
}

// Noop drops every event. Used when no broker is configured.
type Noop struct{}

func (Noop) Publish(context.Context, RecordEvent) error { return nil }
func (Noop) Close() error                               { return nil }
