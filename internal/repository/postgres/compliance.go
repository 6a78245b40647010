package postgres

import (
	"context"
	"database/sql"

	"taxidispatch/internal/domain"
	"taxidispatch/internal/repository"
)

// ComplianceRepository is a PostgreSQL implementation of repository.ComplianceRepository.
type ComplianceRepository struct {
	q Querier
}

// NewComplianceRepository creates a new PostgreSQL compliance repository.
func NewComplianceRepository(db *sql.DB) *ComplianceRepository {
	return &ComplianceRepository{q: db}
}

// CreateAttempt appends a new compliance report attempt.
func (r *ComplianceRepository) CreateAttempt(ctx context.Context, attempt *domain.ComplianceReportAttempt) error {
	query := `
		INSERT INTO compliance_report_attempts
			(id, trip_log_id, request_kind, endpoint, payload, response, status_code, success, error_message, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	var response any
	if len(attempt.Response) > 0 {
		response = attempt.Response
	}

	_, err := r.q.ExecContext(ctx, query,
		attempt.ID,
		attempt.TripLogID,
		attempt.RequestKind,
		attempt.Endpoint,
		attempt.Payload,
		response,
		attempt.StatusCode,
		attempt.Success,
		nullString(attempt.ErrorMessage),
		attempt.CreatedAt,
	)
	return err
}

var _ repository.ComplianceRepository = (*ComplianceRepository)(nil)
