// Package notify fans engine events out to interested parties: structured
// logs, WebSocket subscribers, or anything else implementing Sink.
package notify

import (
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/lastone-games/prediction-engine/internal/model"
)

// Event types emitted by the engine.
const (
	TypeMarketCreated  = "market_created"
	TypePositionOpened = "position_opened"
	TypePositionClosed = "position_closed"
	TypeMarketResolved = "market_resolved"
)

// Event is the envelope published for every engine-side mutation.
type Event struct {
	ID       string     `json:"id"`
	Type     string     `json:"type"`
	MarketID uint64     `json:"market_id"`
	User     string     `json:"user,omitempty"`
	Side     model.Side `json:"side,omitempty"`
	// Amount is the payment collected (opened), the value returned
	// (closed), or the payout (resolved claims are not broadcast).
	Amount   uint64     `json:"amount,omitempty"`
	Shares   uint64     `json:"shares,omitempty"`
	Outcome  model.Side `json:"outcome,omitempty"`
	YesPrice uint64     `json:"yes_price,omitempty"` // basis points, post-trade
	NoPrice  uint64     `json:"no_price,omitempty"`  // basis points, post-trade
	At       time.Time  `json:"at"`
}

// NewEvent creates an event envelope with a fresh ID and timestamp.
func NewEvent(eventType string, marketID uint64) Event {
	return Event{
		ID:       uuid.New().String(),
		Type:     eventType,
		MarketID: marketID,
		At:       time.Now().UTC(),
	}
}

// Sink receives published events. Publish must not block trade execution.
type Sink interface {
	Publish(e Event)
}

// LogSink writes events to the structured logger.
type LogSink struct{}

func (LogSink) Publish(e Event) {
	slog.Info("event",
		"event_id", e.ID,
		"type", e.Type,
		"market_id", e.MarketID,
		"user", e.User,
		"side", e.Side,
		"amount", e.Amount,
		"shares", e.Shares,
		"outcome", e.Outcome,
	)
}

// Fanout publishes to every wrapped sink in order.
type Fanout []Sink

func (f Fanout) Publish(e Event) {
	for _, s := range f {
		s.Publish(e)
	}
}
