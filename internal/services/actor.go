package services

import (
	"context"
	"time"

	"bevera/internal/models"
)

// Actor is the authenticated user performing an operation.
type Actor struct {
	UserID string
	Email  string
	Role   models.Role
}

// IsStaff reports whether the actor may use the back office.
func (a Actor) IsStaff() bool { return a.Role.IsStaff() }

// EventPublisher delivers domain events to the message broker.
type EventPublisher interface {
	Publish(ctx context.Context, routingKey string, payload any) error
}

// Clock returns the current instant; replaced in tests.
type Clock func() time.Time

func systemClock() time.Time { return time.Now().UTC() }
