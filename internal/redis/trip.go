package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// openTripTTL bounds how long a vehicle can hold an open trip marker. A trip
// that never receives its TRIP_END stops blocking the vehicle after this.
const openTripTTL = 24 * time.Hour

// OpenTripStore tracks the current open trip per vehicle. A TRIP_START claims
// the vehicle's slot atomically; the linked TRIP_END releases it.
type OpenTripStore struct {
	client *redis.Client
}

// NewOpenTripStore creates a new OpenTripStore.
func NewOpenTripStore(client *redis.Client) *OpenTripStore {
	return &OpenTripStore{client: client}
}

func openTripKey(vehicleID string) string {
	return fmt.Sprintf("trip:open:%s", vehicleID)
}

// Claim records tripLogID as the vehicle's open trip. Returns false when the
// vehicle already has one.
func (s *OpenTripStore) Claim(ctx context.Context, vehicleID, tripLogID string) (bool, error) {
	return s.client.SetNX(ctx, openTripKey(vehicleID), tripLogID, openTripTTL).Result()
}

// Get returns the vehicle's open trip log id, or "" when there is none.
func (s *OpenTripStore) Get(ctx context.Context, vehicleID string) (string, error) {
	val, err := s.client.Get(ctx, openTripKey(vehicleID)).Result()
	if err == redis.Nil {
		return "", nil
	}
	return val, err
}

// Release clears the vehicle's open trip marker.
func (s *OpenTripStore) Release(ctx context.Context, vehicleID string) error {
	return s.client.Del(ctx, openTripKey(vehicleID)).Err()
}
