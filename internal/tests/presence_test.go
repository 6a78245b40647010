package tests

import (
	"context"
	"errors"
	"testing"
	"time"

	"taxidispatch/internal/auth"
	"taxidispatch/internal/domain"
	"taxidispatch/internal/service"
)

// ──────────────────────────────────────────────
// PRESENCE STORE
// ──────────────────────────────────────────────

func driverClaims(driverID string) *auth.Claims {
	return auth.NewSessionClaims("user-"+driverID, driverID, "company-1", "vehicle-"+driverID, "DRIVER", time.Hour)
}

func newPresenceService(driverRepo *MockDriverRepository, locationRepo *MockLocationRepository, presence *MockPresenceStore) *service.PresenceService {
	return service.NewPresenceService(nil, driverRepo, locationRepo, presence, nil, 5*time.Minute)
}

func floatPtr(v float64) *float64 { return &v }

// onlineDriver seeds an online, active account at the given position with a
// location update stamped `age` ago.
func onlineDriver(t *testing.T, repo *MockDriverRepository, driverID string, lat, lng float64, age time.Duration) {
	t.Helper()
	acc := activeAccount(t, driverID)
	acc.Driver.IsOnline = true
	acc.Driver.CurrentLatitude = &lat
	acc.Driver.CurrentLongitude = &lng
	at := time.Now().Add(-age)
	acc.Driver.LastLocationUpdate = &at
	repo.AddAccount(acc)
}

func TestRecordLocation_PersistsPingAndUpdatesIndex(t *testing.T) {
	t.Parallel()

	driverRepo := NewMockDriverRepository()
	locationRepo := NewMockLocationRepository()
	presence := NewMockPresenceStore()
	driverRepo.AddAccount(activeAccount(t, "driver-1"))

	svc := newPresenceService(driverRepo, locationRepo, presence)

	ping, err := svc.RecordLocation(context.Background(), driverClaims("driver-1"), service.LocationInput{
		Latitude:  floatPtr(50.8503),
		Longitude: floatPtr(4.3517),
		Speed:     floatPtr(32.5),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ping.ID == "" {
		t.Error("expected ping to have an id")
	}

	// The ping is appended, never overwritten.
	pings := locationRepo.Pings()
	if len(pings) != 1 {
		t.Fatalf("expected 1 ping, got %d", len(pings))
	}
	if pings[0].Latitude != 50.8503 || pings[0].Longitude != 4.3517 {
		t.Errorf("ping stored wrong coordinates: %v, %v", pings[0].Latitude, pings[0].Longitude)
	}
	if pings[0].Speed == nil || *pings[0].Speed != 32.5 {
		t.Error("expected speed to be carried on the ping")
	}

	// Cached driver position follows the latest push.
	stored, err := driverRepo.GetByID(context.Background(), "driver-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stored.CurrentLatitude == nil || *stored.CurrentLatitude != 50.8503 {
		t.Error("expected cached latitude to be updated")
	}

	// Geo index and notification side effects.
	if !presence.HasPosition("driver-1") {
		t.Error("expected driver in the geo index")
	}
	published := presence.Published()
	if len(published) != 1 {
		t.Fatalf("expected 1 presence update, got %d", len(published))
	}
	if published[0].DriverID != "driver-1" || published[0].VehicleID != "vehicle-driver-1" {
		t.Errorf("presence update has wrong identity: %+v", published[0])
	}
}

func TestRecordLocation_SecondPushWins(t *testing.T) {
	t.Parallel()

	driverRepo := NewMockDriverRepository()
	locationRepo := NewMockLocationRepository()
	driverRepo.AddAccount(activeAccount(t, "driver-1"))
	svc := newPresenceService(driverRepo, locationRepo, NewMockPresenceStore())

	claims := driverClaims("driver-1")
	for _, pos := range [][2]float64{{50.8503, 4.3517}, {50.8466, 4.3528}} {
		if _, err := svc.RecordLocation(context.Background(), claims, service.LocationInput{
			Latitude:  floatPtr(pos[0]),
			Longitude: floatPtr(pos[1]),
		}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	// Both pings kept, cached position reflects the last push.
	if len(locationRepo.Pings()) != 2 {
		t.Fatalf("expected 2 pings, got %d", len(locationRepo.Pings()))
	}
	stored, _ := driverRepo.GetByID(context.Background(), "driver-1")
	if *stored.CurrentLatitude != 50.8466 {
		t.Errorf("expected cached latitude of the last push, got %v", *stored.CurrentLatitude)
	}
}

func TestRecordLocation_RejectsInvalidCoordinates(t *testing.T) {
	t.Parallel()

	driverRepo := NewMockDriverRepository()
	locationRepo := NewMockLocationRepository()
	driverRepo.AddAccount(activeAccount(t, "driver-1"))
	svc := newPresenceService(driverRepo, locationRepo, NewMockPresenceStore())

	cases := []struct {
		name  string
		input service.LocationInput
	}{
		{"missing latitude", service.LocationInput{Longitude: floatPtr(4.35)}},
		{"missing longitude", service.LocationInput{Latitude: floatPtr(50.85)}},
		{"latitude out of range", service.LocationInput{Latitude: floatPtr(91), Longitude: floatPtr(4.35)}},
		{"longitude out of range", service.LocationInput{Latitude: floatPtr(50.85), Longitude: floatPtr(-181)}},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.RecordLocation(context.Background(), driverClaims("driver-1"), tc.input)
			if !errors.Is(err, service.ErrInvalidLocation) {
				t.Fatalf("expected ErrInvalidLocation, got %v", err)
			}
		})
	}

	if locationRepo.CreateCallCount != 0 {
		t.Error("no ping must be written for rejected input")
	}
}

func TestFindNearby_FiltersAndOrders(t *testing.T) {
	t.Parallel()

	driverRepo := NewMockDriverRepository()
	presence := NewMockPresenceStore()

	// Grand Place, Brussels as the query center.
	centerLat, centerLng := 50.8503, 4.3517

	onlineDriver(t, driverRepo, "driver-near", 50.8466, 4.3528, time.Minute)   // ~400m away
	onlineDriver(t, driverRepo, "driver-far", 50.8798, 4.7005, time.Minute)    // ~25km away
	onlineDriver(t, driverRepo, "driver-stale", 50.8503, 4.3517, 10*time.Minute)
	onlineDriver(t, driverRepo, "driver-exact", 50.8503, 4.3517, time.Minute)

	offline := activeAccount(t, "driver-offline")
	offline.Driver.IsOnline = false
	offline.Driver.CurrentLatitude = floatPtr(centerLat)
	offline.Driver.CurrentLongitude = floatPtr(centerLng)
	now := time.Now()
	offline.Driver.LastLocationUpdate = &now
	driverRepo.AddAccount(offline)

	for _, id := range []string{"driver-near", "driver-far", "driver-stale", "driver-exact", "driver-offline"} {
		acc, _ := driverRepo.GetAccountByDriverID(context.Background(), id)
		_ = presence.UpdatePosition(context.Background(), id, *acc.Driver.CurrentLatitude, *acc.Driver.CurrentLongitude)
	}

	svc := newPresenceService(driverRepo, NewMockLocationRepository(), presence)

	results, err := svc.FindNearby(context.Background(), centerLat, centerLng, 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Stale, offline and out-of-radius drivers are excluded.
	if len(results) != 2 {
		t.Fatalf("expected 2 drivers, got %d", len(results))
	}

	// Nearest first; the driver at the exact center comes before the one 400m out.
	if results[0].Driver.ID != "driver-exact" {
		t.Errorf("expected driver-exact first, got %s", results[0].Driver.ID)
	}
	if results[1].Driver.ID != "driver-near" {
		t.Errorf("expected driver-near second, got %s", results[1].Driver.ID)
	}

	// Zero distance means zero estimated arrival.
	if results[0].DistanceKm != 0 {
		t.Errorf("expected distance 0 at the center, got %v", results[0].DistanceKm)
	}
	if results[0].EstimatedArrivalMinutes != 0 {
		t.Errorf("expected ETA 0 at the center, got %d", results[0].EstimatedArrivalMinutes)
	}
	if results[1].DistanceKm <= 0 || results[1].DistanceKm > 1 {
		t.Errorf("expected sub-km distance for driver-near, got %v", results[1].DistanceKm)
	}
	if results[1].EstimatedArrivalMinutes < 1 {
		t.Errorf("expected non-zero ETA for driver-near, got %d", results[1].EstimatedArrivalMinutes)
	}
}

func TestFindNearby_EmptyResultIsNotAnError(t *testing.T) {
	t.Parallel()

	svc := newPresenceService(NewMockDriverRepository(), NewMockLocationRepository(), NewMockPresenceStore())

	results, err := svc.FindNearby(context.Background(), 50.8503, 4.3517, 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results) != 0 {
		t.Errorf("expected empty result, got %d", len(results))
	}
}

func TestFindNearby_FallsBackToDirectoryScan(t *testing.T) {
	t.Parallel()

	driverRepo := NewMockDriverRepository()
	presence := NewMockPresenceStore()
	presence.FindNearbyError = errors.New("redis down")

	onlineDriver(t, driverRepo, "driver-1", 50.8503, 4.3517, time.Minute)

	svc := newPresenceService(driverRepo, NewMockLocationRepository(), presence)

	results, err := svc.FindNearby(context.Background(), 50.8503, 4.3517, 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results) != 1 || results[0].Driver.ID != "driver-1" {
		t.Fatalf("expected driver-1 via directory fallback, got %+v", results)
	}
}

func TestFindNearby_RejectsInvalidCenter(t *testing.T) {
	t.Parallel()

	svc := newPresenceService(NewMockDriverRepository(), NewMockLocationRepository(), NewMockPresenceStore())

	_, err := svc.FindNearby(context.Background(), 91, 4.3517, 10)
	if !errors.Is(err, service.ErrInvalidLocation) {
		t.Fatalf("expected ErrInvalidLocation, got %v", err)
	}
}

func TestFindNearby_SuspendedDriverExcluded(t *testing.T) {
	t.Parallel()

	driverRepo := NewMockDriverRepository()
	presence := NewMockPresenceStore()

	onlineDriver(t, driverRepo, "driver-1", 50.8503, 4.3517, time.Minute)
	acc, _ := driverRepo.GetAccountByDriverID(context.Background(), "driver-1")
	acc.Driver.Status = domain.AccountStatusInactive
	driverRepo.AddAccount(acc)
	_ = presence.UpdatePosition(context.Background(), "driver-1", 50.8503, 4.3517)

	svc := newPresenceService(driverRepo, NewMockLocationRepository(), presence)

	results, err := svc.FindNearby(context.Background(), 50.8503, 4.3517, 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results) != 0 {
		t.Errorf("suspended driver must not appear, got %d results", len(results))
	}
}
