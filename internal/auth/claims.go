package auth

import (
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
)

// Claims is the session token payload binding a driver, vehicle, company and
// user identity for the lifetime of a taxi-meter session.
type Claims struct {
	UserID    string `json:"userId"`
	DriverID  string `json:"driverId"`
	CompanyID string `json:"companyId"`
	VehicleID string `json:"vehicleId"`
	Role      string `json:"role"`
	jwtlib.RegisteredClaims
}

var _ jwtlib.Claims = (*Claims)(nil)

// NewSessionClaims constructs claims for a freshly authenticated driver.
func NewSessionClaims(userID, driverID, companyID, vehicleID, role string, ttl time.Duration) *Claims {
	now := time.Now().UTC()
	return &Claims{
		UserID:    userID,
		DriverID:  driverID,
		CompanyID: companyID,
		VehicleID: vehicleID,
		Role:      role,
		RegisteredClaims: jwtlib.RegisteredClaims{
			Subject:   driverID,
			ExpiresAt: jwtlib.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwtlib.NewNumericDate(now),
		},
	}
}
