package redis

import "context"

// PresenceStoreInterface defines the geo index and notification operations.
type PresenceStoreInterface interface {
	UpdatePosition(ctx context.Context, driverID string, lat, lng float64) error
	FindNearby(ctx context.Context, lat, lng, radiusKm float64) ([]DriverPosition, error)
	RemovePosition(ctx context.Context, driverID string) error
	PublishUpdate(ctx context.Context, update PresenceUpdate) error
}

// OpenTripStoreInterface defines the per-vehicle open trip marker operations.
type OpenTripStoreInterface interface {
	Claim(ctx context.Context, vehicleID, tripLogID string) (bool, error)
	Get(ctx context.Context, vehicleID string) (string, error)
	Release(ctx context.Context, vehicleID string) error
}

// Ensure concrete types implement interfaces.
var (
	_ PresenceStoreInterface = (*PresenceStore)(nil)
	_ OpenTripStoreInterface = (*OpenTripStore)(nil)
)
