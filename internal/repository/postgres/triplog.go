package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"taxidispatch/internal/domain"
	"taxidispatch/internal/repository"
)

// TripLogRepository is a PostgreSQL implementation of repository.TripLogRepository.
type TripLogRepository struct {
	q Querier
}

// NewTripLogRepository creates a new PostgreSQL trip log repository.
func NewTripLogRepository(db *sql.DB) *TripLogRepository {
	return &TripLogRepository{q: db}
}

// NewTripLogRepositoryWithTx creates a trip log repository using a transaction.
func NewTripLogRepositoryWithTx(tx *sql.Tx) *TripLogRepository {
	return &TripLogRepository{q: tx}
}

const tripLogColumns = `
	id, log_type, parent_id, company_id, vehicle_id, driver_id, user_id,
	start_latitude, start_longitude, start_address,
	end_latitude, end_longitude, end_address,
	distance, duration, final_price, tariff_used,
	trip_start_time, trip_end_time, log_details,
	start_reported, end_reported, api_error_log, created_at, updated_at`

const qualifiedTripLogColumns = `
	t.id, t.log_type, t.parent_id, t.company_id, t.vehicle_id, t.driver_id, t.user_id,
	t.start_latitude, t.start_longitude, t.start_address,
	t.end_latitude, t.end_longitude, t.end_address,
	t.distance, t.duration, t.final_price, t.tariff_used,
	t.trip_start_time, t.trip_end_time, t.log_details,
	t.start_reported, t.end_reported, t.api_error_log, t.created_at, t.updated_at`

// Create persists a new trip log event.
func (r *TripLogRepository) Create(ctx context.Context, event *domain.TripLogEvent) error {
	query := `
		INSERT INTO trip_logs (` + tripLogColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13,
			$14, $15, $16, $17, $18, $19, $20, $21, $22, $23, $24, $25)
	`

	var details []byte
	if event.LogDetails != nil {
		var err error
		details, err = json.Marshal(event.LogDetails)
		if err != nil {
			return err
		}
	}

	_, err := r.q.ExecContext(ctx, query,
		event.ID,
		event.LogType,
		nullString(event.ParentID),
		event.CompanyID,
		event.VehicleID,
		event.DriverID,
		event.UserID,
		nullFloat(event.StartLatitude),
		nullFloat(event.StartLongitude),
		nullString(event.StartAddress),
		nullFloat(event.EndLatitude),
		nullFloat(event.EndLongitude),
		nullString(event.EndAddress),
		nullFloat(event.Distance),
		nullInt(event.Duration),
		nullFloat(event.FinalPrice),
		nullString(event.TariffUsed),
		nullTime(event.TripStartTime),
		nullTime(event.TripEndTime),
		details,
		event.StartReported,
		event.EndReported,
		nullString(event.APIErrorLog),
		event.CreatedAt,
		event.UpdatedAt,
	)
	return err
}

func scanTripLog(scan func(dest ...any) error) (*domain.TripLogEvent, error) {
	var e domain.TripLogEvent
	var parentID, startAddr, endAddr, tariff, apiErr sql.NullString
	var startLat, startLng, endLat, endLng, distance, price sql.NullFloat64
	var duration sql.NullInt64
	var startTime, endTime sql.NullTime
	var details []byte

	err := scan(
		&e.ID, &e.LogType, &parentID, &e.CompanyID, &e.VehicleID, &e.DriverID, &e.UserID,
		&startLat, &startLng, &startAddr,
		&endLat, &endLng, &endAddr,
		&distance, &duration, &price, &tariff,
		&startTime, &endTime, &details,
		&e.StartReported, &e.EndReported, &apiErr, &e.CreatedAt, &e.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if parentID.Valid {
		e.ParentID = &parentID.String
	}
	if startLat.Valid {
		e.StartLatitude = &startLat.Float64
	}
	if startLng.Valid {
		e.StartLongitude = &startLng.Float64
	}
	if startAddr.Valid {
		e.StartAddress = &startAddr.String
	}
	if endLat.Valid {
		e.EndLatitude = &endLat.Float64
	}
	if endLng.Valid {
		e.EndLongitude = &endLng.Float64
	}
	if endAddr.Valid {
		e.EndAddress = &endAddr.String
	}
	if distance.Valid {
		e.Distance = &distance.Float64
	}
	if duration.Valid {
		e.Duration = &duration.Int64
	}
	if price.Valid {
		e.FinalPrice = &price.Float64
	}
	if tariff.Valid {
		e.TariffUsed = &tariff.String
	}
	if startTime.Valid {
		e.TripStartTime = &startTime.Time
	}
	if endTime.Valid {
		e.TripEndTime = &endTime.Time
	}
	if apiErr.Valid {
		e.APIErrorLog = &apiErr.String
	}
	if len(details) > 0 {
		if err := json.Unmarshal(details, &e.LogDetails); err != nil {
			return nil, err
		}
	}
	return &e, nil
}

// GetByID retrieves an event by ID.
func (r *TripLogRepository) GetByID(ctx context.Context, id string) (*domain.TripLogEvent, error) {
	query := `SELECT ` + tripLogColumns + ` FROM trip_logs WHERE id = $1`

	event, err := scanTripLog(r.q.QueryRowContext(ctx, query, id).Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return event, nil
}

// ListByDriver returns events for a driver, newest first, with vehicle and
// company display summaries attached.
func (r *TripLogRepository) ListByDriver(ctx context.Context, driverID string, offset, limit int) ([]*domain.TripLogEvent, error) {
	query := `
		SELECT ` + qualifiedTripLogColumns + `,
			v.license_plate, COALESCE(v.brand, ''), COALESCE(v.model, ''),
			c.name
		FROM trip_logs t
		LEFT JOIN vehicles v ON v.id = t.vehicle_id
		LEFT JOIN companies c ON c.id = t.company_id
		WHERE t.driver_id = $1
		ORDER BY t.created_at DESC, t.id DESC
		OFFSET $2 LIMIT $3
	`

	rows, err := r.q.QueryContext(ctx, query, driverID, offset, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []*domain.TripLogEvent
	for rows.Next() {
		event, err := scanTripLogWithSummaries(rows.Scan)
		if err != nil {
			return nil, err
		}
		events = append(events, event)
	}
	return events, rows.Err()
}

func scanTripLogWithSummaries(scan func(dest ...any) error) (*domain.TripLogEvent, error) {
	var plate, brand, model, companyName sql.NullString

	event, err := scanTripLog(func(dest ...any) error {
		return scan(append(dest, &plate, &brand, &model, &companyName)...)
	})
	if err != nil {
		return nil, err
	}

	if plate.Valid {
		event.Vehicle = &domain.Vehicle{
			ID:           event.VehicleID,
			LicensePlate: plate.String,
			Brand:        brand.String,
			Model:        model.String,
		}
	}
	if companyName.Valid {
		event.Company = &domain.Company{
			ID:   event.CompanyID,
			Name: companyName.String,
		}
	}
	return event, nil
}

// CountByDriver returns the total number of events for a driver.
func (r *TripLogRepository) CountByDriver(ctx context.Context, driverID string) (int, error) {
	var count int
	err := r.q.QueryRowContext(ctx, `SELECT COUNT(*) FROM trip_logs WHERE driver_id = $1`, driverID).Scan(&count)
	return count, err
}

// SetReported sets the start- or end-reported flag on an event.
func (r *TripLogRepository) SetReported(ctx context.Context, id string, kind domain.ReportKind) error {
	column := "start_reported"
	if kind == domain.ReportKindTripEnd {
		column = "end_reported"
	}

	query := `UPDATE trip_logs SET ` + column + ` = TRUE, updated_at = $1 WHERE id = $2`
	result, err := r.q.ExecContext(ctx, query, time.Now(), id)
	if err != nil {
		return err
	}
	return requireRow(result)
}

// SetAPIError records the latest regulator failure detail on an event.
func (r *TripLogRepository) SetAPIError(ctx context.Context, id string, message string) error {
	query := `UPDATE trip_logs SET api_error_log = $1, updated_at = $2 WHERE id = $3`
	result, err := r.q.ExecContext(ctx, query, message, time.Now(), id)
	if err != nil {
		return err
	}
	return requireRow(result)
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func nullInt(i *int64) sql.NullInt64 {
	if i == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *i, Valid: true}
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

var _ repository.TripLogRepository = (*TripLogRepository)(nil)
