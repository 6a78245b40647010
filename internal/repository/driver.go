package repository

import (
	"context"
	"time"

	"taxidispatch/internal/domain"
)

// DriverRepository defines the persistence operations for drivers.
//
// Driver rows are owned by the external directory service; this service only
// reads them and mutates the online flag and current-location fields.
type DriverRepository interface {
	// GetByID retrieves a driver by ID.
	GetByID(ctx context.Context, id string) (*domain.Driver, error)

	// GetAccountByEmail retrieves a driver joined with its user, company and
	// vehicle for authentication. Returns ErrNotFound when no user with the
	// email exists or the user has no driver profile.
	GetAccountByEmail(ctx context.Context, email string) (*domain.DriverAccount, error)

	// GetAccountByDriverID retrieves the joined account record by driver ID.
	GetAccountByDriverID(ctx context.Context, driverID string) (*domain.DriverAccount, error)

	// SetOnline updates the online flag and stamps the last location update.
	SetOnline(ctx context.Context, id string, online bool, at time.Time) error

	// UpdateLocation updates the cached current-location fields.
	UpdateLocation(ctx context.Context, id string, lat, lng float64, at time.Time) error

	// ListAvailable returns online, active drivers with a non-null location
	// updated at or after the given cutoff, joined with vehicle and company.
	ListAvailable(ctx context.Context, updatedSince time.Time) ([]*domain.DriverAccount, error)
}
