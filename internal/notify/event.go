// Package notify delivers order events to presentation and integration
// collaborators after the order store has committed a change.
package notify

import (
	"context"
	"time"

	"clinic/internal/domain"
)

const (
	OrderCreated          = "order.created"
	OrderStatusChanged    = "order.status_changed"
	OrderMaterialsUpdated = "order.materials_updated"
	OrderIntakeUpdated    = "order.intake_updated"
	OrderCompleted        = "order.completed"
)

// Event describes a committed order mutation.
type Event struct {
	Type      string       `json:"type"`
	OrderID   string       `json:"order_id"`
	Order     domain.Order `json:"order"`
	EventTime time.Time    `json:"event_time"`
}

// Sink receives dispatched events.
type Sink interface {
	Deliver(ctx context.Context, ev Event) error
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(ctx context.Context, ev Event) error

func (f SinkFunc) Deliver(ctx context.Context, ev Event) error { return f(ctx, ev) }
