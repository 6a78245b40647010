package domain

import "time"

// AccountStatus represents the activation state of a driver or company account.
type AccountStatus string

const (
	AccountStatusActive   AccountStatus = "ACTIVE"
	AccountStatusInactive AccountStatus = "INACTIVE"
)

// Company represents the taxi company a driver works for.
type Company struct {
	ID                string
	Name              string
	TaxiLicenseNumber string
	Status            AccountStatus
}

// Vehicle represents the taxi assigned to a driver.
type Vehicle struct {
	ID           string
	LicensePlate string
	Brand        string
	Model        string
	Color        string
}

// Driver represents a driver in the system.
//
// The online flag and the current location fields are the only parts this
// service mutates; everything else is owned by the driver directory.
type Driver struct {
	ID                 string
	UserID             string
	FirstName          string
	LastName           string
	Phone              string
	TaxiDriverLicense  string
	CompanyID          string
	VehicleID          string
	Status             AccountStatus
	IsOnline           bool
	CurrentLatitude    *float64
	CurrentLongitude   *float64
	LastLocationUpdate *time.Time
}

// Name returns the driver's display name.
func (d *Driver) Name() string {
	return d.FirstName + " " + d.LastName
}

// DriverAccount is a driver joined with its owning user, company and vehicle,
// as returned by the directory lookup used during authentication.
type DriverAccount struct {
	Driver       Driver
	Email        string
	PasswordHash string
	Role         string
	Company      Company
	Vehicle      *Vehicle
}
