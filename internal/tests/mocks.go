package tests

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"taxidispatch/internal/domain"
	"taxidispatch/internal/redis"
	"taxidispatch/internal/repository"
)

// ──────────────────────────────────────────────
// MOCK DRIVER REPOSITORY
// ──────────────────────────────────────────────

// MockDriverRepository is a mock implementation of DriverRepository.
type MockDriverRepository struct {
	mu       sync.RWMutex
	accounts map[string]*domain.DriverAccount // keyed by driver ID

	// Counters for verification
	SetOnlineCallCount      int32
	UpdateLocationCallCount int32

	// Error injection
	SetOnlineError      error
	UpdateLocationError error
	ListAvailableError  error
}

// NewMockDriverRepository creates a new mock driver repository.
func NewMockDriverRepository() *MockDriverRepository {
	return &MockDriverRepository{
		accounts: make(map[string]*domain.DriverAccount),
	}
}

// AddAccount adds a driver account to the mock repository.
func (m *MockDriverRepository) AddAccount(acc *domain.DriverAccount) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.accounts[acc.Driver.ID] = acc
}

func (m *MockDriverRepository) GetByID(ctx context.Context, id string) (*domain.Driver, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	acc, ok := m.accounts[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	driver := acc.Driver
	return &driver, nil
}

func (m *MockDriverRepository) GetAccountByEmail(ctx context.Context, email string) (*domain.DriverAccount, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, acc := range m.accounts {
		if acc.Email == email {
			copy := *acc
			return &copy, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (m *MockDriverRepository) GetAccountByDriverID(ctx context.Context, driverID string) (*domain.DriverAccount, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	acc, ok := m.accounts[driverID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	copy := *acc
	return &copy, nil
}

func (m *MockDriverRepository) SetOnline(ctx context.Context, id string, online bool, at time.Time) error {
	atomic.AddInt32(&m.SetOnlineCallCount, 1)
	if m.SetOnlineError != nil {
		return m.SetOnlineError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	acc, ok := m.accounts[id]
	if !ok {
		return repository.ErrNotFound
	}
	acc.Driver.IsOnline = online
	acc.Driver.LastLocationUpdate = &at
	return nil
}

func (m *MockDriverRepository) UpdateLocation(ctx context.Context, id string, lat, lng float64, at time.Time) error {
	atomic.AddInt32(&m.UpdateLocationCallCount, 1)
	if m.UpdateLocationError != nil {
		return m.UpdateLocationError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	acc, ok := m.accounts[id]
	if !ok {
		return repository.ErrNotFound
	}
	acc.Driver.CurrentLatitude = &lat
	acc.Driver.CurrentLongitude = &lng
	acc.Driver.LastLocationUpdate = &at
	return nil
}

func (m *MockDriverRepository) ListAvailable(ctx context.Context, updatedSince time.Time) ([]*domain.DriverAccount, error) {
	if m.ListAvailableError != nil {
		return nil, m.ListAvailableError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*domain.DriverAccount
	for _, acc := range m.accounts {
		d := acc.Driver
		if !d.IsOnline || d.Status != domain.AccountStatusActive {
			continue
		}
		if d.CurrentLatitude == nil || d.CurrentLongitude == nil {
			continue
		}
		if d.LastLocationUpdate == nil || d.LastLocationUpdate.Before(updatedSince) {
			continue
		}
		copy := *acc
		out = append(out, &copy)
	}
	return out, nil
}

// ──────────────────────────────────────────────
// MOCK TRIP LOG REPOSITORY
// ──────────────────────────────────────────────

// MockTripLogRepository is a mock implementation of TripLogRepository.
type MockTripLogRepository struct {
	mu     sync.RWMutex
	events map[string]*domain.TripLogEvent
	order  []string // creation order, oldest first

	// Counters for verification
	CreateCallCount      int32
	SetReportedCallCount int32
	SetAPIErrorCallCount int32

	// Error injection
	CreateError      error
	SetReportedError error
}

// NewMockTripLogRepository creates a new mock trip log repository.
func NewMockTripLogRepository() *MockTripLogRepository {
	return &MockTripLogRepository{
		events: make(map[string]*domain.TripLogEvent),
	}
}

// AddEvent seeds an existing event.
func (m *MockTripLogRepository) AddEvent(event *domain.TripLogEvent) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events[event.ID] = event
	m.order = append(m.order, event.ID)
}

// GetEvent returns a stored event for assertions.
func (m *MockTripLogRepository) GetEvent(id string) *domain.TripLogEvent {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.events[id]
}

// EventsByType returns stored events of the given type, oldest first.
func (m *MockTripLogRepository) EventsByType(logType domain.LogType) []*domain.TripLogEvent {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*domain.TripLogEvent
	for _, id := range m.order {
		if e := m.events[id]; e.LogType == logType {
			out = append(out, e)
		}
	}
	return out
}

func (m *MockTripLogRepository) Create(ctx context.Context, event *domain.TripLogEvent) error {
	atomic.AddInt32(&m.CreateCallCount, 1)
	if m.CreateError != nil {
		return m.CreateError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	copy := *event
	m.events[event.ID] = &copy
	m.order = append(m.order, event.ID)
	return nil
}

func (m *MockTripLogRepository) GetByID(ctx context.Context, id string) (*domain.TripLogEvent, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	event, ok := m.events[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	copy := *event
	return &copy, nil
}

func (m *MockTripLogRepository) ListByDriver(ctx context.Context, driverID string, offset, limit int) ([]*domain.TripLogEvent, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	// Newest first, matching the SQL ordering.
	var all []*domain.TripLogEvent
	for i := len(m.order) - 1; i >= 0; i-- {
		if e := m.events[m.order[i]]; e.DriverID == driverID {
			copy := *e
			all = append(all, &copy)
		}
	}
	if offset >= len(all) {
		return nil, nil
	}
	all = all[offset:]
	if limit < len(all) {
		all = all[:limit]
	}
	return all, nil
}

func (m *MockTripLogRepository) CountByDriver(ctx context.Context, driverID string) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	count := 0
	for _, e := range m.events {
		if e.DriverID == driverID {
			count++
		}
	}
	return count, nil
}

func (m *MockTripLogRepository) SetReported(ctx context.Context, id string, kind domain.ReportKind) error {
	atomic.AddInt32(&m.SetReportedCallCount, 1)
	if m.SetReportedError != nil {
		return m.SetReportedError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	event, ok := m.events[id]
	if !ok {
		return repository.ErrNotFound
	}
	if kind == domain.ReportKindTripEnd {
		event.EndReported = true
	} else {
		event.StartReported = true
	}
	return nil
}

func (m *MockTripLogRepository) SetAPIError(ctx context.Context, id string, message string) error {
	atomic.AddInt32(&m.SetAPIErrorCallCount, 1)
	m.mu.Lock()
	defer m.mu.Unlock()
	event, ok := m.events[id]
	if !ok {
		return repository.ErrNotFound
	}
	event.APIErrorLog = &message
	return nil
}

// ──────────────────────────────────────────────
// MOCK LOCATION REPOSITORY
// ──────────────────────────────────────────────

// MockLocationRepository is a mock implementation of LocationRepository.
type MockLocationRepository struct {
	mu    sync.RWMutex
	pings []*domain.LocationPing

	CreateCallCount int32
	CreateError     error
}

// NewMockLocationRepository creates a new mock location repository.
func NewMockLocationRepository() *MockLocationRepository {
	return &MockLocationRepository{}
}

func (m *MockLocationRepository) Create(ctx context.Context, ping *domain.LocationPing) error {
	atomic.AddInt32(&m.CreateCallCount, 1)
	if m.CreateError != nil {
		return m.CreateError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	copy := *ping
	m.pings = append(m.pings, &copy)
	return nil
}

// Pings returns the persisted pings in append order.
func (m *MockLocationRepository) Pings() []*domain.LocationPing {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*domain.LocationPing, len(m.pings))
	copy(out, m.pings)
	return out
}

// ──────────────────────────────────────────────
// MOCK COMPLIANCE REPOSITORY
// ──────────────────────────────────────────────

// MockComplianceRepository is a mock implementation of ComplianceRepository.
type MockComplianceRepository struct {
	mu       sync.RWMutex
	attempts []*domain.ComplianceReportAttempt

	CreateAttemptCallCount int32
	CreateAttemptError     error
}

// NewMockComplianceRepository creates a new mock compliance repository.
func NewMockComplianceRepository() *MockComplianceRepository {
	return &MockComplianceRepository{}
}

func (m *MockComplianceRepository) CreateAttempt(ctx context.Context, attempt *domain.ComplianceReportAttempt) error {
	atomic.AddInt32(&m.CreateAttemptCallCount, 1)
	if m.CreateAttemptError != nil {
		return m.CreateAttemptError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	copy := *attempt
	m.attempts = append(m.attempts, &copy)
	return nil
}

// Attempts returns recorded attempts in append order.
func (m *MockComplianceRepository) Attempts() []*domain.ComplianceReportAttempt {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*domain.ComplianceReportAttempt, len(m.attempts))
	copy(out, m.attempts)
	return out
}

// ──────────────────────────────────────────────
// MOCK PRESENCE STORE
// ──────────────────────────────────────────────

// MockPresenceStore is an in-memory stand-in for the Redis geo index.
type MockPresenceStore struct {
	mu        sync.RWMutex
	positions map[string]redis.DriverPosition
	published []redis.PresenceUpdate

	UpdatePositionCallCount int32
	RemovePositionCallCount int32

	FindNearbyError error
}

// NewMockPresenceStore creates a new mock presence store.
func NewMockPresenceStore() *MockPresenceStore {
	return &MockPresenceStore{
		positions: make(map[string]redis.DriverPosition),
	}
}

func (m *MockPresenceStore) UpdatePosition(ctx context.Context, driverID string, lat, lng float64) error {
	atomic.AddInt32(&m.UpdatePositionCallCount, 1)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.positions[driverID] = redis.DriverPosition{DriverID: driverID, Lat: lat, Lng: lng}
	return nil
}

func (m *MockPresenceStore) FindNearby(ctx context.Context, lat, lng, radiusKm float64) ([]redis.DriverPosition, error) {
	if m.FindNearbyError != nil {
		return nil, m.FindNearbyError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	// Returns every indexed position; radius filtering is re-applied by the
	// caller against authoritative records anyway.
	var out []redis.DriverPosition
	for _, pos := range m.positions {
		out = append(out, pos)
	}
	return out, nil
}

func (m *MockPresenceStore) RemovePosition(ctx context.Context, driverID string) error {
	atomic.AddInt32(&m.RemovePositionCallCount, 1)
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.positions, driverID)
	return nil
}

func (m *MockPresenceStore) PublishUpdate(ctx context.Context, update redis.PresenceUpdate) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.published = append(m.published, update)
	return nil
}

// HasPosition reports whether a driver is currently indexed.
func (m *MockPresenceStore) HasPosition(driverID string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.positions[driverID]
	return ok
}

// Published returns the presence updates published so far.
func (m *MockPresenceStore) Published() []redis.PresenceUpdate {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]redis.PresenceUpdate, len(m.published))
	copy(out, m.published)
	return out
}

// ──────────────────────────────────────────────
// MOCK OPEN TRIP STORE
// ──────────────────────────────────────────────

// MockOpenTripStore is an in-memory stand-in for the per-vehicle open trip
// marker.
type MockOpenTripStore struct {
	mu      sync.Mutex
	markers map[string]string

	ClaimCallCount   int32
	ReleaseCallCount int32

	ClaimError error
}

// NewMockOpenTripStore creates a new mock open trip store.
func NewMockOpenTripStore() *MockOpenTripStore {
	return &MockOpenTripStore{
		markers: make(map[string]string),
	}
}

func (m *MockOpenTripStore) Claim(ctx context.Context, vehicleID, tripLogID string) (bool, error) {
	atomic.AddInt32(&m.ClaimCallCount, 1)
	if m.ClaimError != nil {
		return false, m.ClaimError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.markers[vehicleID]; exists {
		return false, nil
	}
	m.markers[vehicleID] = tripLogID
	return true, nil
}

func (m *MockOpenTripStore) Get(ctx context.Context, vehicleID string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.markers[vehicleID], nil
}

func (m *MockOpenTripStore) Release(ctx context.Context, vehicleID string) error {
	atomic.AddInt32(&m.ReleaseCallCount, 1)
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.markers, vehicleID)
	return nil
}

// Marker returns the trip log ID currently holding a vehicle's marker.
func (m *MockOpenTripStore) Marker(vehicleID string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.markers[vehicleID]
}
