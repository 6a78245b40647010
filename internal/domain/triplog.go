package domain

import "time"

// LogType identifies the kind of trip lifecycle event.
type LogType string

const (
	LogTypeDriverLogin  LogType = "DRIVER_LOGIN"
	LogTypeDriverLogout LogType = "DRIVER_LOGOUT"
	LogTypeTripStart    LogType = "TRIP_START"
	LogTypeTripEnd      LogType = "TRIP_END"
)

// Valid reports whether t is one of the known log types.
func (t LogType) Valid() bool {
	switch t {
	case LogTypeDriverLogin, LogTypeDriverLogout, LogTypeTripStart, LogTypeTripEnd:
		return true
	}
	return false
}

// LogDetails is the schema-less detail payload attached to a trip log event.
// Kept open-ended so taxi-meter clients can add fields without a schema change.
type LogDetails map[string]any

// TripLogEvent is one immutable record in the lifecycle of a driver shift or
// trip. After creation only the two report flags and the API error text are
// mutated, and only by the compliance reporter.
type TripLogEvent struct {
	ID             string
	LogType        LogType
	ParentID       *string
	CompanyID      string
	VehicleID      string
	DriverID       string
	UserID         string
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
	LogDetails     LogDetails
	StartReported  bool
	EndReported    bool
	APIErrorLog    *string
	CreatedAt      time.Time
	UpdatedAt      time.Time

	// Vehicle and Company are display summaries attached by list queries.
	Vehicle *Vehicle
	Company *Company
}
