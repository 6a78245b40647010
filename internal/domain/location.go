package domain

import "time"

// LocationPing is one immutable location update pushed by a driver's device.
// Pings are append-only; they are never mutated or deleted by this service.
type LocationPing struct {
	ID        string
	DriverID  string
	VehicleID string
	Latitude  float64
	Longitude float64
	Accuracy  *float64
	Speed     *float64
	Heading   *float64
	Altitude  *float64
	CreatedAt time.Time
}
