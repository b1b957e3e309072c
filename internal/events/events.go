// internal/events/events.go

// Package events announces settlement changes to other services over AMQP.
package events

import (
	"context"
	"encoding/json"
	"time"
)

const (
	TypeSettlementGenerated     = "settlement.generated"
	TypeSettlementStatusChanged = "settlement.status_changed"
)

// Event is the JSON body of every published message. Type doubles as the
// routing key on the topic exchange.
type Event struct {
	Type       string    `json:"type"`
	Month      string    `json:"month"`
	Status     string    `json:"status,omitempty"`
	PrevStatus string    `json:"prev_status,omitempty"`
	ActorID    int64     `json:"actor_id,omitempty"`
	Items      int       `json:"items,omitempty"`
	Total      int64     `json:"total_after_withholding,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

func (e Event) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

func FromJSON(data []byte) (Event, error) {
	var e Event
	err := json.Unmarshal(data, &e)
	return e, err
}

type Publisher interface {
	Publish(ctx context.Context, e Event) error
	Close() error
}

// NopPublisher drops every event. Used when AMQP_URL is empty.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, Event) error { return nil }
func (NopPublisher) Close() error                         { return nil }
