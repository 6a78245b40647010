package repository

import (
	"context"

	"taxidispatch/internal/domain"
)

// TripLogRepository defines the persistence operations for trip log events.
type TripLogRepository interface {
	// Create persists a new trip log event.
	Create(ctx context.Context, event *domain.TripLogEvent) error

	// GetByID retrieves an event by ID.
	GetByID(ctx context.Context, id string) (*domain.TripLogEvent, error)

	// ListByDriver returns events for a driver, newest first.
	ListByDriver(ctx context.Context, driverID string, offset, limit int) ([]*domain.TripLogEvent, error)

	// CountByDriver returns the total number of events for a driver.
	CountByDriver(ctx context.Context, driverID string) (int, error)

	// SetReported sets the start- or end-reported flag after a successful
	// regulator call.
	SetReported(ctx context.Context, id string, kind domain.ReportKind) error

	// SetAPIError records the latest regulator failure detail on the event.
	SetAPIError(ctx context.Context, id string, message string) error
}
