package tests

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"taxidispatch/internal/domain"
	"taxidispatch/internal/service"
)

// ──────────────────────────────────────────────
// TRIP LIFECYCLE ENGINE
// ──────────────────────────────────────────────

// recordingDispatcher captures enqueued reports without performing them.
type recordingDispatcher struct {
	mu   sync.Mutex
	jobs []struct {
		TripLogID string
		Kind      domain.ReportKind
		Payload   map[string]any
	}
}

func (d *recordingDispatcher) Enqueue(tripLogID string, kind domain.ReportKind, payload map[string]any) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.jobs = append(d.jobs, struct {
		TripLogID string
		Kind      domain.ReportKind
		Payload   map[string]any
	}{tripLogID, kind, payload})
}

func strPtr(s string) *string { return &s }

func startRequest() service.RecordEventRequest {
	start := time.Now()
	return service.RecordEventRequest{
		LogType:        domain.LogTypeTripStart,
		StartLatitude:  floatPtr(50.8503),
		StartLongitude: floatPtr(4.3517),
		StartAddress:   strPtr("Grand Place, Brussels"),
		TariffUsed:     strPtr("tariff-1"),
		TripStartTime:  &start,
	}
}

func TestRecordEvent_TripStartEnqueuesReport(t *testing.T) {
	t.Parallel()

	tripLogRepo := NewMockTripLogRepository()
	openTrips := NewMockOpenTripStore()
	dispatcher := &recordingDispatcher{}
	svc := service.NewTripService(tripLogRepo, openTrips, dispatcher)

	event, err := svc.RecordEvent(context.Background(), driverClaims("driver-1"), startRequest())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if event.LogType != domain.LogTypeTripStart {
		t.Errorf("expected TRIP_START, got %s", event.LogType)
	}
	if tripLogRepo.GetEvent(event.ID) == nil {
		t.Fatal("event was not persisted")
	}

	// The vehicle now holds an open trip marker linked to this event.
	if openTrips.Marker("vehicle-driver-1") != event.ID {
		t.Errorf("expected open trip marker for vehicle, got %q", openTrips.Marker("vehicle-driver-1"))
	}

	// Exactly one start report, queued after the row is durable.
	if len(dispatcher.jobs) != 1 {
		t.Fatalf("expected 1 report, got %d", len(dispatcher.jobs))
	}
	if dispatcher.jobs[0].Kind != domain.ReportKindTripStart || dispatcher.jobs[0].TripLogID != event.ID {
		t.Errorf("report mismatch: %+v", dispatcher.jobs[0])
	}
	if dispatcher.jobs[0].Payload["driverId"] != "driver-1" {
		t.Errorf("expected driverId in report payload, got %v", dispatcher.jobs[0].Payload["driverId"])
	}
}

func TestRecordEvent_SecondStartOnSameVehicleConflicts(t *testing.T) {
	t.Parallel()

	tripLogRepo := NewMockTripLogRepository()
	openTrips := NewMockOpenTripStore()
	svc := service.NewTripService(tripLogRepo, openTrips, nil)

	claims := driverClaims("driver-1")
	if _, err := svc.RecordEvent(context.Background(), claims, startRequest()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	_, err := svc.RecordEvent(context.Background(), claims, startRequest())
	if !errors.Is(err, service.ErrVehicleTripActive) {
		t.Fatalf("expected ErrVehicleTripActive, got %v", err)
	}

	// Only the first start was persisted.
	if got := len(tripLogRepo.EventsByType(domain.LogTypeTripStart)); got != 1 {
		t.Errorf("expected 1 persisted start, got %d", got)
	}
}

func TestRecordEvent_TripEndReleasesLinkedMarker(t *testing.T) {
	t.Parallel()

	tripLogRepo := NewMockTripLogRepository()
	openTrips := NewMockOpenTripStore()
	dispatcher := &recordingDispatcher{}
	svc := service.NewTripService(tripLogRepo, openTrips, dispatcher)

	claims := driverClaims("driver-1")
	start, err := svc.RecordEvent(context.Background(), claims, startRequest())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	endTime := time.Now()
	end, err := svc.RecordEvent(context.Background(), claims, service.RecordEventRequest{
		LogType:      domain.LogTypeTripEnd,
		ParentID:     &start.ID,
		EndLatitude:  floatPtr(50.8466),
		EndLongitude: floatPtr(4.3528),
		Distance:     floatPtr(3.2),
		Duration:     int64Ptr(540),
		FinalPrice:   floatPtr(12.40),
		TripEndTime:  &endTime,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if end.ParentID == nil || *end.ParentID != start.ID {
		t.Error("expected end event to link to its start")
	}

	// The vehicle is free for a new trip.
	if openTrips.Marker("vehicle-driver-1") != "" {
		t.Error("expected open trip marker to be released")
	}

	// Start and end reports were both queued.
	if len(dispatcher.jobs) != 2 {
		t.Fatalf("expected 2 reports, got %d", len(dispatcher.jobs))
	}
	if dispatcher.jobs[1].Kind != domain.ReportKindTripEnd {
		t.Errorf("expected TRIP_END report, got %s", dispatcher.jobs[1].Kind)
	}
	if dispatcher.jobs[1].Payload["finalPrice"] == nil {
		t.Error("expected finalPrice in end report payload")
	}
}

func int64Ptr(v int64) *int64 { return &v }

func TestRecordEvent_ParentMustBeStartOfSameDriverAndVehicle(t *testing.T) {
	t.Parallel()

	tripLogRepo := NewMockTripLogRepository()
	svc := service.NewTripService(tripLogRepo, NewMockOpenTripStore(), nil)

	// A start event owned by another driver.
	tripLogRepo.AddEvent(&domain.TripLogEvent{
		ID:        "foreign-start",
		LogType:   domain.LogTypeTripStart,
		DriverID:  "driver-2",
		VehicleID: "vehicle-driver-2",
	})
	// A non-start event owned by the caller.
	tripLogRepo.AddEvent(&domain.TripLogEvent{
		ID:        "own-login",
		LogType:   domain.LogTypeDriverLogin,
		DriverID:  "driver-1",
		VehicleID: "vehicle-driver-1",
	})

	claims := driverClaims("driver-1")
	cases := []struct {
		name     string
		parentID string
	}{
		{"foreign parent", "foreign-start"},
		{"non-start parent", "own-login"},
		{"unknown parent", "missing"},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.RecordEvent(context.Background(), claims, service.RecordEventRequest{
				LogType:  domain.LogTypeTripEnd,
				ParentID: &tc.parentID,
			})
			if !errors.Is(err, service.ErrInvalidParentEvent) {
				t.Fatalf("expected ErrInvalidParentEvent, got %v", err)
			}
		})
	}
}

func TestRecordEvent_RejectsUnknownLogType(t *testing.T) {
	t.Parallel()

	svc := service.NewTripService(NewMockTripLogRepository(), NewMockOpenTripStore(), nil)

	_, err := svc.RecordEvent(context.Background(), driverClaims("driver-1"), service.RecordEventRequest{
		LogType: "TRIP_PAUSE",
	})
	if !errors.Is(err, service.ErrInvalidLogType) {
		t.Fatalf("expected ErrInvalidLogType, got %v", err)
	}
}

func TestRecordEvent_MarkerReleasedWhenPersistFails(t *testing.T) {
	t.Parallel()

	tripLogRepo := NewMockTripLogRepository()
	tripLogRepo.CreateError = errors.New("db down")
	openTrips := NewMockOpenTripStore()
	svc := service.NewTripService(tripLogRepo, openTrips, nil)

	_, err := svc.RecordEvent(context.Background(), driverClaims("driver-1"), startRequest())
	if err == nil {
		t.Fatal("expected error from failed persist")
	}
	// The vehicle must not stay locked by a trip that was never stored.
	if openTrips.Marker("vehicle-driver-1") != "" {
		t.Error("expected marker released after failed persist")
	}
}

func TestListEvents_PaginatesNewestFirst(t *testing.T) {
	t.Parallel()

	tripLogRepo := NewMockTripLogRepository()
	svc := service.NewTripService(tripLogRepo, NewMockOpenTripStore(), nil)

	claims := driverClaims("driver-1")
	for i := 0; i < 3; i++ {
		if _, err := svc.RecordEvent(context.Background(), claims, service.RecordEventRequest{
			LogType: domain.LogTypeDriverLogin,
		}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	// Another driver's events must not leak in.
	if _, err := svc.RecordEvent(context.Background(), driverClaims("driver-2"), service.RecordEventRequest{
		LogType: domain.LogTypeDriverLogin,
	}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	events, pagination, err := svc.ListEvents(context.Background(), claims, 1, 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("expected 2 events on first page, got %d", len(events))
	}
	if pagination.Total != 3 {
		t.Errorf("expected total 3, got %d", pagination.Total)
	}
	if pagination.Pages != 2 {
		t.Errorf("expected 2 pages, got %d", pagination.Pages)
	}
	for _, e := range events {
		if e.DriverID != "driver-1" {
			t.Errorf("foreign event leaked into listing: %s", e.DriverID)
		}
	}

	second, _, err := svc.ListEvents(context.Background(), claims, 2, 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(second) != 1 {
		t.Errorf("expected 1 event on second page, got %d", len(second))
	}
}

func TestListEvents_DefaultsForBadPaging(t *testing.T) {
	t.Parallel()

	tripLogRepo := NewMockTripLogRepository()
	svc := service.NewTripService(tripLogRepo, NewMockOpenTripStore(), nil)

	claims := driverClaims("driver-1")
	if _, err := svc.RecordEvent(context.Background(), claims, service.RecordEventRequest{
		LogType: domain.LogTypeDriverLogin,
	}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	events, pagination, err := svc.ListEvents(context.Background(), claims, 0, -5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if pagination.Page != 1 || pagination.Limit != 50 {
		t.Errorf("expected defaults page=1 limit=50, got %d/%d", pagination.Page, pagination.Limit)
	}
	if len(events) != 1 {
		t.Errorf("expected 1 event, got %d", len(events))
	}
}
