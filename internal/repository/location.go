package repository

import (
	"context"

	"taxidispatch/internal/domain"
)

// LocationRepository defines the persistence operations for location pings.
type LocationRepository interface {
	// Create appends a new immutable location ping.
	Create(ctx context.Context, ping *domain.LocationPing) error
}
