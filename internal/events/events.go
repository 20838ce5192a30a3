// Package events publishes trip lifecycle events.
package events

import (
	"context"
	"time"

	"github.com/ukydev/trip-service/internal/models"
)

// Type names a lifecycle transition.
type Type string

const (
	TripCreated Type = "created"
	TripUpdated Type = "updated"
	TripDeleted Type = "deleted"
)

// TripEvent is the payload published after a trip changes.
type TripEvent struct {
	Type       Type         `json:"type"`
	ID         string       `json:"id"`
	TripID     string       `json:"tripId"`
	OccurredAt time.Time    `json:"occurredAt"`
	Trip       *models.Trip `json:"trip,omitempty"`
}

// NewTripEvent builds an event for trip.
func NewTripEvent(t Type, trip *models.Trip) TripEvent {
	return TripEvent{
		Type:       t,
		ID:         trip.ID.Hex(),
		TripID:     trip.TripID,
		OccurredAt: time.Now().UTC(),
		Trip:       trip,
	}
}

// Publisher delivers trip events.
type Publisher interface {
	Publish(ctx context.Context, event TripEvent) error
}

// NopPublisher discards events.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, TripEvent) error { return nil }
