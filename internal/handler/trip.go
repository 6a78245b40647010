package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"taxidispatch/internal/domain"
	"taxidispatch/internal/middleware"
	"taxidispatch/internal/service"
)

// TripHandler handles HTTP requests for trip log events.
type TripHandler struct {
	tripService *service.TripService
}

// NewTripHandler creates a new TripHandler.
func NewTripHandler(tripService *service.TripService) *TripHandler {
	return &TripHandler{tripService: tripService}
}

// RecordEventRequest is the HTTP request body for logging a trip event.
type RecordEventRequest struct {
	LogType        string            `json:"logType"`
	ParentID       *string           `json:"parentId"`
	StartLatitude  *float64          `json:"startLatitude"`
	StartLongitude *float64          `json:"startLongitude"`
	StartAddress   *string           `json:"startAddress"`
	EndLatitude    *float64          `json:"endLatitude"`
	EndLongitude   *float64          `json:"endLongitude"`
	EndAddress     *string           `json:"endAddress"`
	Distance       *float64          `json:"distance"`
	Duration       *int64            `json:"duration"`
	FinalPrice     *float64          `json:"finalPrice"`
	TariffUsed     *string           `json:"tariffUsed"`
	TripStartTime  *time.Time        `json:"tripStartTime"`
	TripEndTime    *time.Time        `json:"tripEndTime"`
	LogDetails     domain.LogDetails `json:"logDetails"`
}

// RecordEvent handles POST /trips
func (h *TripHandler) RecordEvent(c *gin.Context) {
	claims, ok := middleware.ClaimsFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "token required"})
		return
	}

	var req RecordEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	if req.LogType == "" {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "logType is required"})
		return
	}

	event, err := h.tripService.RecordEvent(c.Request.Context(), claims, service.RecordEventRequest{
		LogType:        domain.LogType(req.LogType),
		ParentID:       req.ParentID,
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
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"id":      event.ID,
		"message": "Trip logged successfully",
	})
}

// TripLogResponse is one trip log event in a listing.
type TripLogResponse struct {
	ID             string            `json:"id"`
	LogType        string            `json:"logType"`
	ParentID       *string           `json:"parentId"`
	StartLatitude  *float64          `json:"startLatitude"`
	StartLongitude *float64          `json:"startLongitude"`
	StartAddress   *string           `json:"startAddress"`
	EndLatitude    *float64          `json:"endLatitude"`
	EndLongitude   *float64          `json:"endLongitude"`
	EndAddress     *string           `json:"endAddress"`
	Distance       *float64          `json:"distance"`
	Duration       *int64            `json:"duration"`
	FinalPrice     *float64          `json:"finalPrice"`
	TariffUsed     *string           `json:"tariffUsed"`
	TripStartTime  *time.Time        `json:"tripStartTime"`
	TripEndTime    *time.Time        `json:"tripEndTime"`
	LogDetails     domain.LogDetails `json:"logDetails"`
	StartReported  bool              `json:"startReported"`
	EndReported    bool              `json:"endReported"`
	APIErrorLog    *string           `json:"apiErrorLog"`
	CreatedAt      time.Time         `json:"createdAt"`
	Vehicle        *VehicleSummary   `json:"vehicle,omitempty"`
	Company        *CompanySummary   `json:"company,omitempty"`
}

// PaginationResponse describes the page metadata of a trip listing.
type PaginationResponse struct {
	Page  int `json:"page"`
	Limit int `json:"limit"`
	Total int `json:"total"`
	Pages int `json:"pages"`
}

// ListEvents handles GET /trips?page&limit
func (h *TripHandler) ListEvents(c *gin.Context) {
	claims, ok := middleware.ClaimsFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "token required"})
		return
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))

	events, pagination, err := h.tripService.ListEvents(c.Request.Context(), claims, page, limit)
	if err != nil {
		respondError(c, err)
		return
	}

	trips := make([]TripLogResponse, 0, len(events))
	for _, e := range events {
		entry := TripLogResponse{
			ID:             e.ID,
			LogType:        string(e.LogType),
			ParentID:       e.ParentID,
			StartLatitude:  e.StartLatitude,
			StartLongitude: e.StartLongitude,
			StartAddress:   e.StartAddress,
			EndLatitude:    e.EndLatitude,
			EndLongitude:   e.EndLongitude,
			EndAddress:     e.EndAddress,
			Distance:       e.Distance,
			Duration:       e.Duration,
			FinalPrice:     e.FinalPrice,
			TariffUsed:     e.TariffUsed,
			TripStartTime:  e.TripStartTime,
			TripEndTime:    e.TripEndTime,
			LogDetails:     e.LogDetails,
			StartReported:  e.StartReported,
			EndReported:    e.EndReported,
			APIErrorLog:    e.APIErrorLog,
			CreatedAt:      e.CreatedAt,
		}
		if e.Vehicle != nil {
			entry.Vehicle = &VehicleSummary{
				ID:           e.Vehicle.ID,
				LicensePlate: e.Vehicle.LicensePlate,
				Brand:        e.Vehicle.Brand,
				Model:        e.Vehicle.Model,
			}
		}
		if e.Company != nil {
			entry.Company = &CompanySummary{
				ID:   e.Company.ID,
				Name: e.Company.Name,
			}
		}
		trips = append(trips, entry)
	}

	c.JSON(http.StatusOK, gin.H{
		"trips": trips,
		"pagination": PaginationResponse{
			Page:  pagination.Page,
			Limit: pagination.Limit,
			Total: pagination.Total,
			Pages: pagination.Pages,
		},
	})
}
