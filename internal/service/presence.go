package service

import (
	"context"
	"database/sql"
	"log"
	"math"
	"sort"
	"time"

	"github.com/google/uuid"

	"taxidispatch/internal/auth"
	"taxidispatch/internal/domain"
	"taxidispatch/internal/geo"
	"taxidispatch/internal/redis"
	"taxidispatch/internal/repository"
	"taxidispatch/internal/repository/postgres"
)

// PresenceService tracks each driver's last-known location and answers
// proximity queries for riders.
type PresenceService struct {
	db            *sql.DB
	driverRepo    repository.DriverRepository
	locationRepo  repository.LocationRepository
	presenceStore redis.PresenceStoreInterface
	cacheStore    *redis.CacheStore
	freshness     time.Duration
}

// NewPresenceService creates a new PresenceService. db may be nil, in which
// case writes go through the injected repositories without a transaction.
func NewPresenceService(
	db *sql.DB,
	driverRepo repository.DriverRepository,
	locationRepo repository.LocationRepository,
	presenceStore redis.PresenceStoreInterface,
	cacheStore *redis.CacheStore,
	freshness time.Duration,
) *PresenceService {
	if freshness <= 0 {
		freshness = 5 * time.Minute
	}
	return &PresenceService{
		db:            db,
		driverRepo:    driverRepo,
		locationRepo:  locationRepo,
		presenceStore: presenceStore,
		cacheStore:    cacheStore,
		freshness:     freshness,
	}
}

// LocationInput carries one location push from a driver's device. Latitude
// and longitude are pointers so a missing field is distinguishable from zero.
type LocationInput struct {
	Latitude  *float64
	Longitude *float64
	Accuracy  *float64
	Speed     *float64
	Heading   *float64
	Altitude  *float64
}

// RecordLocation validates the coordinates, atomically updates the driver's
// cached position and appends an immutable location ping, then refreshes the
// geo index and publishes a presence-changed notification.
func (s *PresenceService) RecordLocation(ctx context.Context, claims *auth.Claims, input LocationInput) (*domain.LocationPing, error) {
	if input.Latitude == nil || input.Longitude == nil {
		return nil, ErrInvalidLocation
	}
	lat, lng := *input.Latitude, *input.Longitude
	if !geo.ValidLatitude(lat) || !geo.ValidLongitude(lng) {
		return nil, ErrInvalidLocation
	}

	now := time.Now()
	ping := &domain.LocationPing{
		ID:        uuid.New().String(),
		DriverID:  claims.DriverID,
		VehicleID: claims.VehicleID,
		Latitude:  lat,
		Longitude: lng,
		Accuracy:  input.Accuracy,
		Speed:     input.Speed,
		Heading:   input.Heading,
		Altitude:  input.Altitude,
		CreatedAt: now,
	}

	if err := s.persistPing(ctx, ping, now); err != nil {
		return nil, err
	}

	// Real-time side effects are best effort; the durable write above is the
	// unit of atomicity.
	if s.presenceStore != nil {
		if err := s.presenceStore.UpdatePosition(ctx, claims.DriverID, lat, lng); err != nil {
			log.Printf("failed to update geo index for driver %s: %v", claims.DriverID, err)
		}
		if err := s.presenceStore.PublishUpdate(ctx, redis.PresenceUpdate{
			DriverID:  claims.DriverID,
			VehicleID: claims.VehicleID,
			CompanyID: claims.CompanyID,
			Latitude:  lat,
			Longitude: lng,
			Timestamp: now,
		}); err != nil {
			log.Printf("failed to publish presence update for driver %s: %v", claims.DriverID, err)
		}
	}

	s.refreshDriverCache(ctx, claims.DriverID)

	return ping, nil
}

// persistPing writes the cached current-location fields and the ping row in
// one transaction so concurrent pushes for the same driver resolve by
// last-write-wins on the cached fields with every ping still appended.
func (s *PresenceService) persistPing(ctx context.Context, ping *domain.LocationPing, at time.Time) error {
	if s.db == nil {
		if err := s.driverRepo.UpdateLocation(ctx, ping.DriverID, ping.Latitude, ping.Longitude, at); err != nil {
			return err
		}
		return s.locationRepo.Create(ctx, ping)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = postgres.NewDriverRepositoryWithTx(tx).UpdateLocation(ctx, ping.DriverID, ping.Latitude, ping.Longitude, at); err != nil {
		return err
	}
	if err = postgres.NewLocationRepositoryWithTx(tx).Create(ctx, ping); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *PresenceService) refreshDriverCache(ctx context.Context, driverID string) {
	if s.cacheStore == nil {
		return
	}
	acc, err := s.driverRepo.GetAccountByDriverID(ctx, driverID)
	if err != nil {
		return
	}
	_ = s.cacheStore.SetDriver(ctx, snapshotFromAccount(acc))
}

func snapshotFromAccount(acc *domain.DriverAccount) *redis.CachedDriver {
	cached := &redis.CachedDriver{
		ID:          acc.Driver.ID,
		Name:        acc.Driver.Name(),
		Phone:       acc.Driver.Phone,
		Status:      string(acc.Driver.Status),
		IsOnline:    acc.Driver.IsOnline,
		CompanyID:   acc.Company.ID,
		CompanyName: acc.Company.Name,
	}
	if acc.Driver.CurrentLatitude != nil && acc.Driver.CurrentLongitude != nil {
		cached.HasLocation = true
		cached.Latitude = *acc.Driver.CurrentLatitude
		cached.Longitude = *acc.Driver.CurrentLongitude
	}
	if acc.Driver.LastLocationUpdate != nil {
		cached.LastUpdate = acc.Driver.LastLocationUpdate.UTC().Format(time.RFC3339Nano)
	}
	if acc.Vehicle != nil {
		cached.VehicleID = acc.Vehicle.ID
		cached.LicensePlate = acc.Vehicle.LicensePlate
		cached.Brand = acc.Vehicle.Brand
		cached.Model = acc.Vehicle.Model
		cached.Color = acc.Vehicle.Color
	}
	return cached
}

// NearbyDriver is one qualifying driver in a proximity query result.
type NearbyDriver struct {
	Driver                  *redis.CachedDriver
	DistanceKm              float64
	EstimatedArrivalMinutes int
}

// FindNearby returns online, active drivers with a fresh location within
// radiusKm of the center, nearest first with driver-id tiebreak. An empty
// result is success, never an error.
//
// The geo index supplies candidates; online/active/freshness filtering runs
// against the authoritative driver records (via the snapshot cache). When no
// geo index is available it falls back to a full directory scan.
func (s *PresenceService) FindNearby(ctx context.Context, lat, lng, radiusKm float64) ([]NearbyDriver, error) {
	if !geo.ValidLatitude(lat) || !geo.ValidLongitude(lng) {
		return nil, ErrInvalidLocation
	}

	now := time.Now()
	cutoff := now.Add(-s.freshness)

	snapshots, err := s.candidates(ctx, lat, lng, radiusKm, cutoff)
	if err != nil {
		return nil, err
	}

	results := make([]NearbyDriver, 0, len(snapshots))
	for _, snap := range snapshots {
		if !snap.IsOnline || snap.Status != string(domain.AccountStatusActive) || !snap.HasLocation {
			continue
		}
		lastUpdate, err := time.Parse(time.RFC3339Nano, snap.LastUpdate)
		if err != nil || lastUpdate.Before(cutoff) {
			continue
		}

		distance := geo.DistanceKm(lat, lng, snap.Latitude, snap.Longitude)
		if distance > radiusKm {
			continue
		}

		results = append(results, NearbyDriver{
			Driver:                  snap,
			DistanceKm:              math.Round(distance*100) / 100,
			EstimatedArrivalMinutes: int(math.Ceil(distance * 2)), // 2 minutes per km heuristic
		})
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].DistanceKm != results[j].DistanceKm {
			return results[i].DistanceKm < results[j].DistanceKm
		}
		return results[i].Driver.ID < results[j].Driver.ID
	})

	return results, nil
}

// candidates collects driver snapshots to consider for a proximity query.
func (s *PresenceService) candidates(ctx context.Context, lat, lng, radiusKm float64, cutoff time.Time) ([]*redis.CachedDriver, error) {
	if s.presenceStore != nil {
		positions, err := s.presenceStore.FindNearby(ctx, lat, lng, radiusKm)
		if err == nil {
			snapshots := make([]*redis.CachedDriver, 0, len(positions))
			for _, pos := range positions {
				if snap := s.lookupSnapshot(ctx, pos.DriverID); snap != nil {
					snapshots = append(snapshots, snap)
				}
			}
			return snapshots, nil
		}
		log.Printf("geo index query failed, falling back to directory scan: %v", err)
	}

	accounts, err := s.driverRepo.ListAvailable(ctx, cutoff)
	if err != nil {
		return nil, err
	}
	snapshots := make([]*redis.CachedDriver, 0, len(accounts))
	for _, acc := range accounts {
		snapshots = append(snapshots, snapshotFromAccount(acc))
	}
	return snapshots, nil
}

// lookupSnapshot hydrates one candidate, preferring the snapshot cache.
func (s *PresenceService) lookupSnapshot(ctx context.Context, driverID string) *redis.CachedDriver {
	if s.cacheStore != nil {
		if cached, err := s.cacheStore.GetDriver(ctx, driverID); err == nil && cached != nil {
			return cached
		}
	}

	acc, err := s.driverRepo.GetAccountByDriverID(ctx, driverID)
	if err != nil {
		return nil
	}
	snap := snapshotFromAccount(acc)
	if s.cacheStore != nil {
		_ = s.cacheStore.SetDriver(ctx, snap)
	}
	return snap
}
