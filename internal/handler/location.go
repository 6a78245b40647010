package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"taxidispatch/internal/middleware"
	"taxidispatch/internal/service"
)

// LocationHandler handles HTTP requests for location pushes and proximity
// queries.
type LocationHandler struct {
	presenceService *service.PresenceService
	defaultRadiusKm float64
}

// NewLocationHandler creates a new LocationHandler.
func NewLocationHandler(presenceService *service.PresenceService, defaultRadiusKm float64) *LocationHandler {
	if defaultRadiusKm <= 0 {
		defaultRadiusKm = 10
	}
	return &LocationHandler{presenceService: presenceService, defaultRadiusKm: defaultRadiusKm}
}

// PushLocationRequest is the HTTP request body for a driver location push.
// Coordinates are pointers so a missing field is rejected rather than read
// as zero.
type PushLocationRequest struct {
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
	Accuracy  *float64 `json:"accuracy"`
	Speed     *float64 `json:"speed"`
	Heading   *float64 `json:"heading"`
	Altitude  *float64 `json:"altitude"`
}

// PushLocation handles POST /location
func (h *LocationHandler) PushLocation(c *gin.Context) {
	claims, ok := middleware.ClaimsFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "token required"})
		return
	}

	var req PushLocationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	ping, err := h.presenceService.RecordLocation(c.Request.Context(), claims, service.LocationInput{
		Latitude:  req.Latitude,
		Longitude: req.Longitude,
		Accuracy:  req.Accuracy,
		Speed:     req.Speed,
		Heading:   req.Heading,
		Altitude:  req.Altitude,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"id":      ping.ID,
		"message": "Location updated successfully",
	})
}

// NearbyDriverResponse is one driver entry in a proximity query response.
type NearbyDriverResponse struct {
	ID               string          `json:"id"`
	Name             string          `json:"name"`
	Phone            string          `json:"phone"`
	Location         LocationInfo    `json:"location"`
	Distance         float64         `json:"distance"`
	EstimatedArrival int             `json:"estimatedArrival"`
	Vehicle          *VehicleDetail  `json:"vehicle"`
	Company          *CompanySummary `json:"company"`
	Status           string          `json:"status"`
}

// LocationInfo is the position portion of a nearby driver entry.
type LocationInfo struct {
	Latitude   float64 `json:"latitude"`
	Longitude  float64 `json:"longitude"`
	LastUpdate string  `json:"lastUpdate"`
}

// VehicleDetail is the vehicle portion of a nearby driver entry.
type VehicleDetail struct {
	ID           string `json:"id"`
	LicensePlate string `json:"licensePlate"`
	Brand        string `json:"brand"`
	Model        string `json:"model"`
	Color        string `json:"color"`
}

// NearbyDrivers handles GET /location?lat&lng&radius
func (h *LocationHandler) NearbyDrivers(c *gin.Context) {
	lat, latErr := strconv.ParseFloat(c.Query("lat"), 64)
	lng, lngErr := strconv.ParseFloat(c.Query("lng"), 64)
	if latErr != nil || lngErr != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "lat and lng are required"})
		return
	}

	radius := h.defaultRadiusKm
	if raw := c.Query("radius"); raw != "" {
		parsed, err := strconv.ParseFloat(raw, 64)
		if err != nil || parsed <= 0 {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "radius must be a positive number"})
			return
		}
		radius = parsed
	}

	nearby, err := h.presenceService.FindNearby(c.Request.Context(), lat, lng, radius)
	if err != nil {
		respondError(c, err)
		return
	}

	drivers := make([]NearbyDriverResponse, 0, len(nearby))
	for _, n := range nearby {
		entry := NearbyDriverResponse{
			ID:    n.Driver.ID,
			Name:  n.Driver.Name,
			Phone: n.Driver.Phone,
			Location: LocationInfo{
				Latitude:   n.Driver.Latitude,
				Longitude:  n.Driver.Longitude,
				LastUpdate: n.Driver.LastUpdate,
			},
			Distance:         n.DistanceKm,
			EstimatedArrival: n.EstimatedArrivalMinutes,
			Status:           "available",
		}
		if n.Driver.VehicleID != "" {
			entry.Vehicle = &VehicleDetail{
				ID:           n.Driver.VehicleID,
				LicensePlate: n.Driver.LicensePlate,
				Brand:        n.Driver.Brand,
				Model:        n.Driver.Model,
				Color:        n.Driver.Color,
			}
		}
		if n.Driver.CompanyID != "" {
			entry.Company = &CompanySummary{
				ID:   n.Driver.CompanyID,
				Name: n.Driver.CompanyName,
			}
		}
		drivers = append(drivers, entry)
	}

	c.JSON(http.StatusOK, gin.H{
		"drivers": drivers,
		"count":   len(drivers),
		"center":  gin.H{"lat": lat, "lng": lng},
		"radius":  radius,
	})
}
