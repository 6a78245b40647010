package service

import "errors"

var (
	// ErrInvalidCredentials is returned for an unknown email or wrong password.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrDriverProfileRequired is returned when the account has no driver role.
	// Surfaced to callers identically to ErrInvalidCredentials.
	ErrDriverProfileRequired = errors.New("driver profile required")

	// ErrAccountSuspended is returned when the driver or its company is inactive.
	ErrAccountSuspended = errors.New("account suspended")

	// ErrInvalidLocation is returned when coordinates are missing or out of range.
	ErrInvalidLocation = errors.New("invalid location")

	// ErrInvalidLogType is returned for an unknown trip log event kind.
	ErrInvalidLogType = errors.New("invalid log type")

	// ErrInvalidParentEvent is returned when a supplied parent id does not
	// name a TRIP_START event of the same driver and vehicle.
	ErrInvalidParentEvent = errors.New("parent event is not a trip start for this driver and vehicle")

	// ErrVehicleTripActive is returned when a TRIP_START arrives while the
	// vehicle already has an open trip.
	ErrVehicleTripActive = errors.New("vehicle already has an active trip")
)
