package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"taxidispatch/internal/domain"
	"taxidispatch/internal/repository"
)

// DriverRepository is a PostgreSQL implementation of repository.DriverRepository.
type DriverRepository struct {
	q Querier
}

// NewDriverRepository creates a new PostgreSQL driver repository.
func NewDriverRepository(db *sql.DB) *DriverRepository {
	return &DriverRepository{q: db}
}

// NewDriverRepositoryWithTx creates a driver repository using a transaction.
func NewDriverRepositoryWithTx(tx *sql.Tx) *DriverRepository {
	return &DriverRepository{q: tx}
}

const driverColumns = `
	d.id, d.user_id, COALESCE(d.first_name, ''), COALESCE(d.last_name, ''),
	COALESCE(d.phone, ''), COALESCE(d.taxi_driver_license, ''),
	d.company_id, d.vehicle_id, d.status, d.is_online,
	d.current_latitude, d.current_longitude, d.last_location_update`

func scanDriver(scan func(dest ...any) error) (*domain.Driver, error) {
	var d domain.Driver
	var lat, lng sql.NullFloat64
	var lastUpdate sql.NullTime

	err := scan(
		&d.ID, &d.UserID, &d.FirstName, &d.LastName,
		&d.Phone, &d.TaxiDriverLicense,
		&d.CompanyID, &d.VehicleID, &d.Status, &d.IsOnline,
		&lat, &lng, &lastUpdate,
	)
	if err != nil {
		return nil, err
	}

	if lat.Valid {
		d.CurrentLatitude = &lat.Float64
	}
	if lng.Valid {
		d.CurrentLongitude = &lng.Float64
	}
	if lastUpdate.Valid {
		d.LastLocationUpdate = &lastUpdate.Time
	}
	return &d, nil
}

// GetByID retrieves a driver by ID.
func (r *DriverRepository) GetByID(ctx context.Context, id string) (*domain.Driver, error) {
	query := `SELECT ` + driverColumns + ` FROM drivers d WHERE d.id = $1`

	driver, err := scanDriver(r.q.QueryRowContext(ctx, query, id).Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return driver, nil
}

const accountQuery = `
	SELECT ` + driverColumns + `,
		u.email, u.password_hash, u.role,
		c.id, c.name, COALESCE(c.taxi_license_number, ''), c.status,
		v.id, v.license_plate, COALESCE(v.brand, ''), COALESCE(v.model, ''), COALESCE(v.color, '')
	FROM drivers d
	JOIN users u ON u.id = d.user_id
	JOIN companies c ON c.id = d.company_id
	LEFT JOIN vehicles v ON v.id = d.vehicle_id`

func scanAccount(scan func(dest ...any) error) (*domain.DriverAccount, error) {
	var acc domain.DriverAccount
	var lat, lng sql.NullFloat64
	var lastUpdate sql.NullTime
	var vehicleID, plate, brand, model, color sql.NullString

	err := scan(
		&acc.Driver.ID, &acc.Driver.UserID, &acc.Driver.FirstName, &acc.Driver.LastName,
		&acc.Driver.Phone, &acc.Driver.TaxiDriverLicense,
		&acc.Driver.CompanyID, &acc.Driver.VehicleID, &acc.Driver.Status, &acc.Driver.IsOnline,
		&lat, &lng, &lastUpdate,
		&acc.Email, &acc.PasswordHash, &acc.Role,
		&acc.Company.ID, &acc.Company.Name, &acc.Company.TaxiLicenseNumber, &acc.Company.Status,
		&vehicleID, &plate, &brand, &model, &color,
	)
	if err != nil {
		return nil, err
	}

	if lat.Valid {
		acc.Driver.CurrentLatitude = &lat.Float64
	}
	if lng.Valid {
		acc.Driver.CurrentLongitude = &lng.Float64
	}
	if lastUpdate.Valid {
		acc.Driver.LastLocationUpdate = &lastUpdate.Time
	}
	if vehicleID.Valid {
		acc.Vehicle = &domain.Vehicle{
			ID:           vehicleID.String,
			LicensePlate: plate.String,
			Brand:        brand.String,
			Model:        model.String,
			Color:        color.String,
		}
	}
	return &acc, nil
}

// GetAccountByEmail retrieves the joined driver account for authentication.
func (r *DriverRepository) GetAccountByEmail(ctx context.Context, email string) (*domain.DriverAccount, error) {
	query := accountQuery + ` WHERE u.email = $1`

	acc, err := scanAccount(r.q.QueryRowContext(ctx, query, email).Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return acc, nil
}

// GetAccountByDriverID retrieves the joined driver account by driver ID.
func (r *DriverRepository) GetAccountByDriverID(ctx context.Context, driverID string) (*domain.DriverAccount, error) {
	query := accountQuery + ` WHERE d.id = $1`

	acc, err := scanAccount(r.q.QueryRowContext(ctx, query, driverID).Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return acc, nil
}

// SetOnline updates the online flag and stamps the last location update time.
func (r *DriverRepository) SetOnline(ctx context.Context, id string, online bool, at time.Time) error {
	query := `UPDATE drivers SET is_online = $1, last_location_update = $2 WHERE id = $3`

	result, err := r.q.ExecContext(ctx, query, online, at, id)
	if err != nil {
		return err
	}
	return requireRow(result)
}

// UpdateLocation updates the cached current-location fields.
func (r *DriverRepository) UpdateLocation(ctx context.Context, id string, lat, lng float64, at time.Time) error {
	query := `
		UPDATE drivers
		SET current_latitude = $1, current_longitude = $2, last_location_update = $3
		WHERE id = $4
	`

	result, err := r.q.ExecContext(ctx, query, lat, lng, at, id)
	if err != nil {
		return err
	}
	return requireRow(result)
}

// ListAvailable returns online, active drivers with a fresh location, joined
// with vehicle and company, ordered by id for deterministic output.
func (r *DriverRepository) ListAvailable(ctx context.Context, updatedSince time.Time) ([]*domain.DriverAccount, error) {
	query := accountQuery + `
	WHERE d.is_online = TRUE
		AND d.status = $1
		AND d.current_latitude IS NOT NULL
		AND d.current_longitude IS NOT NULL
		AND d.last_location_update >= $2
	ORDER BY d.id`

	rows, err := r.q.QueryContext(ctx, query, domain.AccountStatusActive, updatedSince)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var accounts []*domain.DriverAccount
	for rows.Next() {
		acc, err := scanAccount(rows.Scan)
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, acc)
	}
	return accounts, rows.Err()
}

func requireRow(result sql.Result) error {
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return repository.ErrNotFound
	}
	return nil
}

var _ repository.DriverRepository = (*DriverRepository)(nil)
