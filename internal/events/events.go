// Package events publishes booking and mechanic lifecycle events to an
// external broker. Publishing is best effort and never fails the operation
// that produced the event.
package events

import (
	"context"
	"time"
)

// Type names a lifecycle event.
type Type string

const (
	BookingCreated       Type = "booking.created"
	BookingUpdated       Type = "booking.updated"
	BookingDeleted       Type = "booking.deleted"
	BookingAssigned      Type = "booking.assigned"
	BookingStatusUpdated Type = "booking.status_updated"
	MechanicCreated      Type = "mechanic.created"
	MechanicDeleted      Type = "mechanic.deleted"
)

// Event is one lifecycle change.
type Event struct {
	Type       Type      `json:"type"`
	BookingID  string    `json:"booking_id,omitempty"`
	MechanicID string    `json:"mechanic_id,omitempty"`
	ActorID    string    `json:"actor_id"`
	Status     string    `json:"status,omitempty"`
	At         time.Time `json:"at"`
}

// Publisher delivers events to a sink.
type Publisher interface {
	Publish(ctx context.Context, ev Event) error
}

// Emitter accepts events without blocking the caller.
type Emitter interface {
	Emit(ev Event)
}

// Nop discards every event.
type Nop struct{}

func (Nop) Publish(context.Context, Event) error { return nil }

func (Nop) Emit(Event) {}
