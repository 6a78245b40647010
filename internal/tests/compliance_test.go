package tests

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"taxidispatch/internal/domain"
	"taxidispatch/internal/service"
)

// ──────────────────────────────────────────────
// COMPLIANCE REPORTER
// ──────────────────────────────────────────────

func newReporter(baseURL string, tripLogRepo *MockTripLogRepository, complianceRepo *MockComplianceRepository) *service.ComplianceReporter {
	return service.NewComplianceReporter(baseURL, "test-api-key", 2*time.Second, 8, tripLogRepo, complianceRepo)
}

func seedStartEvent(tripLogRepo *MockTripLogRepository, id string) {
	tripLogRepo.AddEvent(&domain.TripLogEvent{
		ID:        id,
		LogType:   domain.LogTypeTripStart,
		DriverID:  "driver-1",
		VehicleID: "vehicle-driver-1",
	})
}

func TestReport_SuccessRecordsAttemptAndFlipsFlag(t *testing.T) {
	t.Parallel()

	var gotPath atomic.Value
	var gotAuth atomic.Value
	regulator := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath.Store(r.URL.Path)
		gotAuth.Store(r.Header.Get("Authorization"))
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"accepted":true}`))
	}))
	defer regulator.Close()

	tripLogRepo := NewMockTripLogRepository()
	complianceRepo := NewMockComplianceRepository()
	seedStartEvent(tripLogRepo, "event-1")

	reporter := newReporter(regulator.URL, tripLogRepo, complianceRepo)

	err := reporter.Report(context.Background(), "event-1", domain.ReportKindTripStart, map[string]any{
		"driverId": "driver-1",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if gotPath.Load() != "/trip_start" {
		t.Errorf("expected /trip_start endpoint, got %v", gotPath.Load())
	}
	if gotAuth.Load() != "Bearer test-api-key" {
		t.Errorf("expected bearer auth header, got %v", gotAuth.Load())
	}

	attempts := complianceRepo.Attempts()
	if len(attempts) != 1 {
		t.Fatalf("expected 1 attempt, got %d", len(attempts))
	}
	if attempts[0].StatusCode != http.StatusOK || !attempts[0].Success {
		t.Errorf("expected successful attempt, got status=%d success=%v", attempts[0].StatusCode, attempts[0].Success)
	}
	if attempts[0].ErrorMessage != nil {
		t.Errorf("expected no error message, got %q", *attempts[0].ErrorMessage)
	}

	var payload map[string]any
	if err := json.Unmarshal(attempts[0].Payload, &payload); err != nil {
		t.Fatalf("attempt payload is not valid JSON: %v", err)
	}
	if payload["driverId"] != "driver-1" {
		t.Errorf("attempt payload mismatch: %v", payload)
	}

	event := tripLogRepo.GetEvent("event-1")
	if !event.StartReported {
		t.Error("expected start-reported flag after a 2xx response")
	}
	if event.EndReported {
		t.Error("end-reported flag must not be set by a start report")
	}
}

func TestReport_RegulatorErrorKeepsFlagClear(t *testing.T) {
	t.Parallel()

	regulator := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte(`{"error":"maintenance"}`))
	}))
	defer regulator.Close()

	tripLogRepo := NewMockTripLogRepository()
	complianceRepo := NewMockComplianceRepository()
	seedStartEvent(tripLogRepo, "event-1")

	reporter := newReporter(regulator.URL, tripLogRepo, complianceRepo)

	// A failed regulator call is not an error for the caller: the attempt is
	// recorded and the failure lands on the event.
	if err := reporter.Report(context.Background(), "event-1", domain.ReportKindTripStart, map[string]any{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	attempts := complianceRepo.Attempts()
	if len(attempts) != 1 {
		t.Fatalf("expected 1 attempt, got %d", len(attempts))
	}
	if attempts[0].StatusCode != http.StatusServiceUnavailable || attempts[0].Success {
		t.Errorf("expected failed 503 attempt, got status=%d success=%v", attempts[0].StatusCode, attempts[0].Success)
	}
	if attempts[0].ErrorMessage == nil {
		t.Fatal("expected an error message on the attempt")
	}
	if string(attempts[0].Response) != `{"error":"maintenance"}` {
		t.Errorf("expected verbatim response body, got %q", attempts[0].Response)
	}

	event := tripLogRepo.GetEvent("event-1")
	if event.StartReported {
		t.Error("reported flag must stay clear after a failure")
	}
	if event.APIErrorLog == nil {
		t.Error("expected failure detail on the event")
	}
}

func TestReport_TransportFailureRecordsStatusZero(t *testing.T) {
	t.Parallel()

	// A server that is already closed: connection refused, no response.
	regulator := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	regulator.Close()

	tripLogRepo := NewMockTripLogRepository()
	complianceRepo := NewMockComplianceRepository()
	seedStartEvent(tripLogRepo, "event-1")

	reporter := newReporter(regulator.URL, tripLogRepo, complianceRepo)

	if err := reporter.Report(context.Background(), "event-1", domain.ReportKindTripEnd, map[string]any{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	attempts := complianceRepo.Attempts()
	if len(attempts) != 1 {
		t.Fatalf("expected 1 attempt, got %d", len(attempts))
	}
	if attempts[0].StatusCode != 0 {
		t.Errorf("expected status code 0 for transport failure, got %d", attempts[0].StatusCode)
	}
	if attempts[0].Success {
		t.Error("transport failure must not be recorded as success")
	}
	if attempts[0].ErrorMessage == nil {
		t.Error("expected transport error detail on the attempt")
	}
	if attempts[0].RequestKind != domain.ReportKindTripEnd {
		t.Errorf("expected TRIP_END attempt, got %s", attempts[0].RequestKind)
	}
}

func TestReport_EndKindTargetsTripEndEndpoint(t *testing.T) {
	t.Parallel()

	var gotPath atomic.Value
	regulator := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath.Store(r.URL.Path)
		w.WriteHeader(http.StatusOK)
	}))
	defer regulator.Close()

	tripLogRepo := NewMockTripLogRepository()
	seedStartEvent(tripLogRepo, "event-1")
	reporter := newReporter(regulator.URL, tripLogRepo, NewMockComplianceRepository())

	if err := reporter.Report(context.Background(), "event-1", domain.ReportKindTripEnd, map[string]any{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotPath.Load() != "/trip_end" {
		t.Errorf("expected /trip_end endpoint, got %v", gotPath.Load())
	}
	if !tripLogRepo.GetEvent("event-1").EndReported {
		t.Error("expected end-reported flag after a 2xx response")
	}
}

func TestReporter_WorkerPoolDrainsQueue(t *testing.T) {
	t.Parallel()

	var calls int32
	regulator := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusOK)
	}))
	defer regulator.Close()

	tripLogRepo := NewMockTripLogRepository()
	complianceRepo := NewMockComplianceRepository()
	for _, id := range []string{"event-1", "event-2", "event-3"} {
		seedStartEvent(tripLogRepo, id)
	}

	reporter := newReporter(regulator.URL, tripLogRepo, complianceRepo)
	reporter.Start(2)

	for _, id := range []string{"event-1", "event-2", "event-3"} {
		reporter.Enqueue(id, domain.ReportKindTripStart, map[string]any{"id": id})
	}
	reporter.Close()

	if got := atomic.LoadInt32(&calls); got != 3 {
		t.Errorf("expected 3 regulator calls, got %d", got)
	}
	if got := len(complianceRepo.Attempts()); got != 3 {
		t.Errorf("expected 3 recorded attempts, got %d", got)
	}
	for _, id := range []string{"event-1", "event-2", "event-3"} {
		if !tripLogRepo.GetEvent(id).StartReported {
			t.Errorf("expected %s to be marked reported", id)
		}
	}
}
