package service

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/google/uuid"

	"taxidispatch/internal/auth"
	"taxidispatch/internal/domain"
	"taxidispatch/internal/redis"
	"taxidispatch/internal/repository"
)

// ReportDispatcher hands trip events off for regulatory reporting without
// blocking the caller.
type ReportDispatcher interface {
	Enqueue(tripLogID string, kind domain.ReportKind, payload map[string]any)
}

// TripService records ordered trip lifecycle events and manages the
// parent/child linkage between start and end events.
type TripService struct {
	tripLogRepo repository.TripLogRepository
	openTrips   redis.OpenTripStoreInterface
	reporter    ReportDispatcher
}

// NewTripService creates a new TripService. openTrips and reporter may be nil
// (vehicle exclusivity and regulatory reporting are then skipped).
func NewTripService(
	tripLogRepo repository.TripLogRepository,
	openTrips redis.OpenTripStoreInterface,
	reporter ReportDispatcher,
) *TripService {
	return &TripService{
		tripLogRepo: tripLogRepo,
		openTrips:   openTrips,
		reporter:    reporter,
	}
}

// RecordEventRequest contains one trip log event as supplied by the client.
type RecordEventRequest struct {
	LogType        domain.LogType
	ParentID       *string
	StartLatitude  *float64
	StartLongitude *float64
	StartAddress   *string
	EndLatitude    *float64
	EndLongitude   *float64
	EndAddress     *string
	Distance       *float64
	Duration       *int64
	FinalPrice     *float64
	TariffUsed     *string
	TripStartTime  *time.Time
	TripEndTime    *time.Time
	LogDetails     domain.LogDetails
}

// RecordEvent persists a trip log event for the authenticated driver and, for
// TRIP_START/TRIP_END, queues a compliance report after the row is durable.
// Reporter failures are recorded against the event and never surface here.
func (s *TripService) RecordEvent(ctx context.Context, claims *auth.Claims, req RecordEventRequest) (*domain.TripLogEvent, error) {
	if !req.LogType.Valid() {
		return nil, ErrInvalidLogType
	}

	if req.ParentID != nil {
		if err := s.validateParent(ctx, claims, *req.ParentID); err != nil {
			return nil, err
		}
	}

	now := time.Now()
	event := &domain.TripLogEvent{
		ID:             uuid.New().String(),
		LogType:        req.LogType,
		ParentID:       req.ParentID,
		CompanyID:      claims.CompanyID,
		VehicleID:      claims.VehicleID,
		DriverID:       claims.DriverID,
		UserID:         claims.UserID,
		StartLatitude:  req.StartLatitude,
		StartLongitude: req.StartLongitude,
		StartAddress:   req.StartAddress,
		EndLatitude:    req.EndLatitude,
		EndLongitude:   req.EndLongitude,
		EndAddress:     req.EndAddress,
		Distance:       req.Distance,
		Duration:       req.Duration,
		FinalPrice:     req.FinalPrice,
		TariffUsed:     req.TariffUsed,
		TripStartTime:  req.TripStartTime,
		TripEndTime:    req.TripEndTime,
		LogDetails:     req.LogDetails,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	claimed := false
	if req.LogType == domain.LogTypeTripStart && s.openTrips != nil {
		ok, err := s.openTrips.Claim(ctx, claims.VehicleID, event.ID)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, ErrVehicleTripActive
		}
		claimed = true
	}

	if err := s.tripLogRepo.Create(ctx, event); err != nil {
		if claimed {
			_ = s.openTrips.Release(ctx, claims.VehicleID)
		}
		return nil, err
	}

	if req.LogType == domain.LogTypeTripEnd && req.ParentID != nil && s.openTrips != nil {
		s.releaseIfLinked(ctx, claims.VehicleID, *req.ParentID)
	}

	switch req.LogType {
	case domain.LogTypeTripStart:
		if s.reporter != nil {
			s.reporter.Enqueue(event.ID, domain.ReportKindTripStart, startReportPayload(claims, req))
		}
	case domain.LogTypeTripEnd:
		if s.reporter != nil {
			s.reporter.Enqueue(event.ID, domain.ReportKindTripEnd, endReportPayload(claims, req))
		}
	}

	return event, nil
}

// validateParent ensures a supplied parent id names a TRIP_START event of the
// same driver and vehicle.
func (s *TripService) validateParent(ctx context.Context, claims *auth.Claims, parentID string) error {
	parent, err := s.tripLogRepo.GetByID(ctx, parentID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrInvalidParentEvent
		}
		return err
	}
	if parent.LogType != domain.LogTypeTripStart ||
		parent.DriverID != claims.DriverID ||
		parent.VehicleID != claims.VehicleID {
		return ErrInvalidParentEvent
	}
	return nil
}

// releaseIfLinked clears the vehicle's open trip marker when the TRIP_END
// closes the trip that holds it.
func (s *TripService) releaseIfLinked(ctx context.Context, vehicleID, parentID string) {
	open, err := s.openTrips.Get(ctx, vehicleID)
	if err != nil {
		log.Printf("failed to read open trip marker for vehicle %s: %v", vehicleID, err)
		return
	}
	if open == parentID {
		if err := s.openTrips.Release(ctx, vehicleID); err != nil {
			log.Printf("failed to release open trip marker for vehicle %s: %v", vehicleID, err)
		}
	}
}

func startReportPayload(claims *auth.Claims, req RecordEventRequest) map[string]any {
	return map[string]any{
		"driverId":  claims.DriverID,
		"vehicleId": claims.VehicleID,
		"startTime": req.TripStartTime,
		"startLocation": map[string]any{
			"latitude":  req.StartLatitude,
			"longitude": req.StartLongitude,
		},
		"tariff": req.TariffUsed,
	}
}

func endReportPayload(claims *auth.Claims, req RecordEventRequest) map[string]any {
	return map[string]any{
		"driverId":  claims.DriverID,
		"vehicleId": claims.VehicleID,
		"endTime":   req.TripEndTime,
		"endLocation": map[string]any{
			"latitude":  req.EndLatitude,
			"longitude": req.EndLongitude,
		},
		"distance":   req.Distance,
		"duration":   req.Duration,
		"finalPrice": req.FinalPrice,
		"tariff":     req.TariffUsed,
	}
}

// Pagination describes one page of a trip log listing.
type Pagination struct {
	Page  int
	Limit int
	Total int
	Pages int
}

// ListEvents returns the authenticated driver's events newest first. Page and
// limit are clamped to sane positive bounds (defaults 1 and 50).
func (s *TripService) ListEvents(ctx context.Context, claims *auth.Claims, page, limit int) ([]*domain.TripLogEvent, *Pagination, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 50
	} else if limit > 200 {
		limit = 200
	}

	events, err := s.tripLogRepo.ListByDriver(ctx, claims.DriverID, (page-1)*limit, limit)
	if err != nil {
		return nil, nil, err
	}

	total, err := s.tripLogRepo.CountByDriver(ctx, claims.DriverID)
	if err != nil {
		return nil, nil, err
	}

	pages := total / limit
	if total%limit != 0 {
		pages++
	}

	return events, &Pagination{Page: page, Limit: limit, Total: total, Pages: pages}, nil
}
