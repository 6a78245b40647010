package domain

import "time"

// ReportKind identifies which regulator endpoint an outbound report targets.
type ReportKind string

const (
	ReportKindTripStart ReportKind = "TRIP_START"
	ReportKindTripEnd   ReportKind = "TRIP_END"
)

// ComplianceReportAttempt is the immutable audit record of one outbound call
// to the regulator. Every invocation appends a new attempt; attempts are never
// mutated or deleted. StatusCode 0 means no response was received at all.
type ComplianceReportAttempt struct {
	ID           string
	TripLogID    string
	RequestKind  ReportKind
	Endpoint     string
	Payload      []byte
	Response     []byte
	StatusCode   int
	Success      bool
	ErrorMessage *string
	CreatedAt    time.Time
}
