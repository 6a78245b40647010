package repository

import (
	"context"

	"taxidispatch/internal/domain"
)

// ComplianceRepository defines the persistence operations for regulator call
// audit records. Attempts are append-only.
type ComplianceRepository interface {
	// CreateAttempt appends a new compliance report attempt.
	CreateAttempt(ctx context.Context, attempt *domain.ComplianceReportAttempt) error
}
