package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"taxidispatch/internal/domain"
	"taxidispatch/internal/middleware"
	"taxidispatch/internal/service"
)

// SessionHandler handles HTTP requests for driver sessions.
type SessionHandler struct {
	sessionService *service.SessionService
}

// NewSessionHandler creates a new SessionHandler.
func NewSessionHandler(sessionService *service.SessionService) *SessionHandler {
	return &SessionHandler{sessionService: sessionService}
}

// AuthenticateRequest is the HTTP request body for driver authentication.
type AuthenticateRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	DeviceID string `json:"deviceId"`
}

// VehicleSummary is the vehicle portion of the driver profile response.
type VehicleSummary struct {
	ID           string `json:"id"`
	LicensePlate string `json:"licensePlate"`
	Brand        string `json:"brand"`
	Model        string `json:"model"`
}

// CompanySummary is the company portion of the driver profile response.
type CompanySummary struct {
	ID                string `json:"id"`
	Name              string `json:"name"`
	TaxiLicenseNumber string `json:"taxiLicenseNumber,omitempty"`
}

// DriverProfile is the driver portion of the authentication response.
type DriverProfile struct {
	ID                string          `json:"id"`
	Name              string          `json:"name"`
	Email             string          `json:"email"`
	Phone             string          `json:"phone"`
	TaxiDriverLicense string          `json:"taxiDriverLicense"`
	Vehicle           *VehicleSummary `json:"vehicle"`
	Company           CompanySummary  `json:"company"`
}

// AuthenticateResponse is the HTTP response for a successful authentication.
type AuthenticateResponse struct {
	Token   string        `json:"token"`
	Driver  DriverProfile `json:"driver"`
	Message string        `json:"message"`
}

// Authenticate handles POST /session
func (h *SessionHandler) Authenticate(c *gin.Context) {
	var req AuthenticateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	if req.Email == "" || req.Password == "" {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "email and password are required"})
		return
	}

	result, err := h.sessionService.Authenticate(c.Request.Context(), service.AuthenticateRequest{
		Email:     req.Email,
		Password:  req.Password,
		DeviceID:  req.DeviceID,
		IPAddress: clientIP(c),
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, AuthenticateResponse{
		Token:   result.Token,
		Driver:  driverProfile(result.Account),
		Message: "Authentication successful",
	})
}

// EndSession handles DELETE /session
func (h *SessionHandler) EndSession(c *gin.Context) {
	claims, ok := middleware.ClaimsFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "token required"})
		return
	}

	if err := h.sessionService.EndSession(c.Request.Context(), claims, clientIP(c)); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Logout successful"})
}

func driverProfile(acc *domain.DriverAccount) DriverProfile {
	profile := DriverProfile{
		ID:                acc.Driver.ID,
		Name:              acc.Driver.Name(),
		Email:             acc.Email,
		Phone:             acc.Driver.Phone,
		TaxiDriverLicense: acc.Driver.TaxiDriverLicense,
		Company: CompanySummary{
			ID:                acc.Company.ID,
			Name:              acc.Company.Name,
			TaxiLicenseNumber: acc.Company.TaxiLicenseNumber,
		},
	}
	if acc.Vehicle != nil {
		profile.Vehicle = &VehicleSummary{
			ID:           acc.Vehicle.ID,
			LicensePlate: acc.Vehicle.LicensePlate,
			Brand:        acc.Vehicle.Brand,
			Model:        acc.Vehicle.Model,
		}
	}
	return profile
}

// clientIP resolves the caller address, preferring the forwarding header the
// mobile clients arrive through.
func clientIP(c *gin.Context) string {
	if ip := c.GetHeader("x-forwarded-for"); ip != "" {
		return ip
	}
	if ip := c.ClientIP(); ip != "" {
		return ip
	}
	return "unknown"
}
