package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"taxidispatch/internal/domain"
	"taxidispatch/internal/repository"
)

// maxResponseBytes bounds how much of a regulator response is kept for audit.
const maxResponseBytes = 64 * 1024

// ComplianceReporter forwards TRIP_START/TRIP_END events to the regulator and
// durably records the outcome of every attempt. Reports are handed off to a
// bounded worker pool so the request path never waits on the outbound call.
type ComplianceReporter struct {
	client         *http.Client
	baseURL        string
	apiKey         string
	tripLogRepo    repository.TripLogRepository
	complianceRepo repository.ComplianceRepository

	queue chan reportJob
	wg    sync.WaitGroup
	once  sync.Once
}

type reportJob struct {
	tripLogID string
	kind      domain.ReportKind
	payload   map[string]any
}

// NewComplianceReporter creates a reporter. requestTimeout bounds each
// outbound call; a timeout is recorded as a transport failure (status 0).
func NewComplianceReporter(
	baseURL, apiKey string,
	requestTimeout time.Duration,
	queueSize int,
	tripLogRepo repository.TripLogRepository,
	complianceRepo repository.ComplianceRepository,
) *ComplianceReporter {
	if queueSize <= 0 {
		queueSize = 256
	}
	return &ComplianceReporter{
		client:         &http.Client{Timeout: requestTimeout},
		baseURL:        strings.TrimRight(baseURL, "/"),
		apiKey:         apiKey,
		tripLogRepo:    tripLogRepo,
		complianceRepo: complianceRepo,
		queue:          make(chan reportJob, queueSize),
	}
}

// Start launches the worker pool.
func (r *ComplianceReporter) Start(workers int) {
	if workers <= 0 {
		workers = 1
	}
	r.once.Do(func() {
		for i := 0; i < workers; i++ {
			r.wg.Add(1)
			go func() {
				defer r.wg.Done()
				for job := range r.queue {
					if err := r.Report(context.Background(), job.tripLogID, job.kind, job.payload); err != nil {
						log.Printf("compliance report for trip log %s failed: %v", job.tripLogID, err)
					}
				}
			}()
		}
	})
}

// Close drains the queue and stops the workers.
func (r *ComplianceReporter) Close() {
	close(r.queue)
	r.wg.Wait()
}

// Enqueue hands a report off to the worker pool without blocking the caller.
// When the buffer is full the report runs on its own goroutine instead of
// being dropped.
func (r *ComplianceReporter) Enqueue(tripLogID string, kind domain.ReportKind, payload map[string]any) {
	job := reportJob{tripLogID: tripLogID, kind: kind, payload: payload}
	select {
	case r.queue <- job:
	default:
		go func() {
			if err := r.Report(context.Background(), job.tripLogID, job.kind, job.payload); err != nil {
				log.Printf("compliance report for trip log %s failed: %v", job.tripLogID, err)
			}
		}()
	}
}

// Report performs one outbound regulator call and records the outcome. Every
// invocation appends exactly one attempt row; a 2xx response additionally
// flips the event's reported flag, anything else records the failure detail
// on the event. The returned error covers persistence problems only; a failed
// regulator call with a recorded attempt is a nil return.
func (r *ComplianceReporter) Report(ctx context.Context, tripLogID string, kind domain.ReportKind, payload map[string]any) error {
	endpoint := r.endpointFor(kind)

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal report payload: %w", err)
	}

	attempt := &domain.ComplianceReportAttempt{
		ID:          uuid.New().String(),
		TripLogID:   tripLogID,
		RequestKind: kind,
		Endpoint:    endpoint,
		Payload:     body,
		CreatedAt:   time.Now(),
	}

	resp, callErr := r.post(ctx, endpoint, body)
	if callErr != nil {
		// No response at all: transport failure, status code 0.
		msg := callErr.Error()
		attempt.StatusCode = 0
		attempt.Success = false
		attempt.ErrorMessage = &msg
	} else {
		attempt.StatusCode = resp.statusCode
		attempt.Success = resp.statusCode >= 200 && resp.statusCode <= 299
		attempt.Response = resp.body
		if !attempt.Success {
			msg := fmt.Sprintf("regulator returned status %d", resp.statusCode)
			attempt.ErrorMessage = &msg
		}
	}

	if err := r.complianceRepo.CreateAttempt(ctx, attempt); err != nil {
		return fmt.Errorf("record report attempt: %w", err)
	}

	if attempt.Success {
		return r.tripLogRepo.SetReported(ctx, tripLogID, kind)
	}
	return r.tripLogRepo.SetAPIError(ctx, tripLogID, *attempt.ErrorMessage)
}

func (r *ComplianceReporter) endpointFor(kind domain.ReportKind) string {
	if kind == domain.ReportKindTripEnd {
		return r.baseURL + "/trip_end"
	}
	return r.baseURL + "/trip_start"
}

type regulatorResponse struct {
	statusCode int
	body       []byte
}

func (r *ComplianceReporter) post(ctx context.Context, endpoint string, body []byte) (*regulatorResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+r.apiKey)

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	// Response captured verbatim (bounded) for the audit trail.
	responseBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		responseBody = nil
	}

	return &regulatorResponse{statusCode: resp.StatusCode, body: responseBody}, nil
}
