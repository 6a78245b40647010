package postgres

import (
	"context"
	"database/sql"

	"taxidispatch/internal/domain"
	"taxidispatch/internal/repository"
)

// LocationRepository is a PostgreSQL implementation of repository.LocationRepository.
type LocationRepository struct {
	q Querier
}

// NewLocationRepository creates a new PostgreSQL location repository.
func NewLocationRepository(db *sql.DB) *LocationRepository {
	return &LocationRepository{q: db}
}

// NewLocationRepositoryWithTx creates a location repository using a transaction.
func NewLocationRepositoryWithTx(tx *sql.Tx) *LocationRepository {
	return &LocationRepository{q: tx}
}

// Create appends a new immutable location ping.
func (r *LocationRepository) Create(ctx context.Context, ping *domain.LocationPing) error {
	query := `
		INSERT INTO location_pings
			(id, driver_id, vehicle_id, latitude, longitude, accuracy, speed, heading, altitude, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	_, err := r.q.ExecContext(ctx, query,
		ping.ID,
		ping.DriverID,
		ping.VehicleID,
		ping.Latitude,
		ping.Longitude,
		nullFloat(ping.Accuracy),
		nullFloat(ping.Speed),
		nullFloat(ping.Heading),
		nullFloat(ping.Altitude),
		ping.CreatedAt,
	)
	return err
}

func nullFloat(f *float64) sql.NullFloat64 {
	if f == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *f, Valid: true}
}

var _ repository.LocationRepository = (*LocationRepository)(nil)
