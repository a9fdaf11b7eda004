package notify

import (
	"context"
	"sync"

	"github.com/sirupsen/logrus"
)

const defaultBuffer = 256

// Dispatcher queues events and fans them out to sinks on its own goroutine,
// so publishers never wait for delivery.
type Dispatcher struct {
	sinks  []Sink
	queue  chan Event
	logger *logrus.Logger
	wg     sync.WaitGroup
}

func NewDispatcher(logger *logrus.Logger, buffer int, sinks ...Sink) *Dispatcher {
	if buffer <= 0 {
		buffer = defaultBuffer
	}
	return &Dispatcher{
		sinks:  sinks,
		queue:  make(chan Event, buffer),
		logger: logger,
	}
}

// Publish enqueues ev. When the queue is full the event is dropped.
func (d *Dispatcher) Publish(ctx context.Context, ev Event) {
	select {
	case d.queue <- ev:
	default:
		d.logger.WithFields(logrus.Fields{
			"event":    ev.Type,
			"order_id": ev.OrderID,
		}).Warn("Notification queue full, dropping event")
	}
}

// Start delivers queued events on a new goroutine until ctx is cancelled,
// then drains what is left.
func (d *Dispatcher) Start(ctx context.Context) {
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		d.run(ctx)
	}()
}

func (d *Dispatcher) run(ctx context.Context) {
	for {
		select {
		case ev := <-d.queue:
			d.deliver(ctx, ev)
		case <-ctx.Done():
			for {
				select {
				case ev := <-d.queue:
					d.deliver(context.Background(), ev)
				default:
					return
				}
			}
		}
	}
}

// Wait blocks until the delivery goroutine has drained and exited.
func (d *Dispatcher) Wait() { d.wg.Wait() }

func (d *Dispatcher) deliver(ctx context.Context, ev Event) {
	for _, s := range d.sinks {
		if err := s.Deliver(ctx, ev); err != nil {
			d.logger.WithError(err).WithFields(logrus.Fields{
				"event":    ev.Type,
				"order_id": ev.OrderID,
			}).Error("Failed to deliver notification")
		}
	}
}

// LogSink records every event at info level.
type LogSink struct {
	Logger *logrus.Logger
}

func (s LogSink) Deliver(ctx context.Context, ev Event) error {
	fields := logrus.Fields{
		"event":    ev.Type,
		"order_id": ev.OrderID,
		"status":   ev.Order.Status,
	}
	if ev.Order.TotalPrice != nil {
		fields["total_price"] = ev.Order.TotalPrice.StringFixed(2)
	}
	s.Logger.WithFields(fields).Info("Order event")
	return nil
}
