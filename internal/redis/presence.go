package redis

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	driverPresenceKey  = "drivers:presence"
	presenceChannelKey = "presence:updates"
)

// DriverPosition represents a driver's indexed position.
type DriverPosition struct {
	DriverID string
	Lat      float64
	Lng      float64
}

// PresenceUpdate is the notification published when a driver's location
// changes. Transport beyond the pub/sub channel is a consumer concern.
type PresenceUpdate struct {
	DriverID  string    `json:"driver_id"`
	VehicleID string    `json:"vehicle_id"`
	CompanyID string    `json:"company_id"`
	Latitude  float64   `json:"latitude"`
	Longitude float64   `json:"longitude"`
	Timestamp time.Time `json:"timestamp"`
}

// PresenceStore maintains the geo index of online drivers and publishes
// presence-changed notifications.
type PresenceStore struct {
	client *redis.Client
}

// NewPresenceStore creates a new PresenceStore.
func NewPresenceStore(client *redis.Client) *PresenceStore {
	return &PresenceStore{client: client}
}

// UpdatePosition stores a driver's position using GEOADD.
func (s *PresenceStore) UpdatePosition(ctx context.Context, driverID string, lat, lng float64) error {
	return s.client.GeoAdd(ctx, driverPresenceKey, &redis.GeoLocation{
		Name:      driverID,
		Longitude: lng,
		Latitude:  lat,
	}).Err()
}

// FindNearby returns driver positions within the given radius in kilometers,
// nearest first. The geo index is a candidate filter only; freshness and
// online checks happen against the authoritative store.
func (s *PresenceStore) FindNearby(ctx context.Context, lat, lng, radiusKm float64) ([]DriverPosition, error) {
	results, err := s.client.GeoRadius(ctx, driverPresenceKey, lng, lat, &redis.GeoRadiusQuery{
		Radius:    radiusKm,
		Unit:      "km",
		WithCoord: true,
		Sort:      "ASC",
	}).Result()
	if err != nil {
		return nil, err
	}

	positions := make([]DriverPosition, 0, len(results))
	for _, r := range results {
		positions = append(positions, DriverPosition{
			DriverID: r.Name,
			Lat:      r.Latitude,
			Lng:      r.Longitude,
		})
	}
	return positions, nil
}

// RemovePosition removes a driver from the geo index.
func (s *PresenceStore) RemovePosition(ctx context.Context, driverID string) error {
	return s.client.ZRem(ctx, driverPresenceKey, driverID).Err()
}

// PublishUpdate emits a presence-changed notification for live-tracking
// subscribers.
func (s *PresenceStore) PublishUpdate(ctx context.Context, update PresenceUpdate) error {
	data, err := json.Marshal(update)
	if err != nil {
		return err
	}
	return s.client.Publish(ctx, presenceChannelKey, data).Err()
}
