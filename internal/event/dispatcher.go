// Package event fans booking lifecycle events out to registered observers.
// Delivery is best-effort: an observer that errors or panics is logged and
// skipped, and can never fail the transaction that produced the event.
package event

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/cinetix/booking-engine/internal/domain"
)

// Observer receives booking lifecycle events. Implementations must tolerate
// at-least-once delivery.
type Observer interface {
	Name() string
	Notify(ctx context.Context, event domain.BookingEvent) error
}

type Dispatcher struct {
	logger *slog.Logger

	mu        sync.RWMutex
	observers []Observer
}

func NewDispatcher(logger *slog.Logger) *Dispatcher {
	return &Dispatcher{logger: logger}
}

func (d *Dispatcher) Register(obs Observer) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.observers = append(d.observers, obs)
}

// Dispatch delivers the event to every observer in registration order.
// Called after the transaction that produced the event has committed, never
// inside the critical section that mutates seat state.
func (d *Dispatcher) Dispatch(ctx context.Context, event domain.BookingEvent) {
	d.mu.RLock()
	observers := d.observers
	d.mu.RUnlock()

	for _, obs := range observers {
		if err := d.notify(ctx, obs, event); err != nil {
			d.logger.Error("booking event observer failed",
				"observer", obs.Name(), "booking_id", event.BookingID, "status", event.Status, "error", err)
		}
	}
}

func (d *Dispatcher) notify(ctx context.Context, obs Observer, event domain.BookingEvent) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("observer panicked: %v", r)
		}
	}()

	return obs.Notify(ctx, event)
}
