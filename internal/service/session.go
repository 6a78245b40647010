package service

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"taxidispatch/internal/auth"
	"taxidispatch/internal/domain"
	"taxidispatch/internal/redis"
	"taxidispatch/internal/repository"
)

// SessionService is the session authority: it authenticates drivers against
// the directory, issues session tokens, and toggles the online flag.
type SessionService struct {
	driverRepo    repository.DriverRepository
	tripLogRepo   repository.TripLogRepository
	presenceStore redis.PresenceStoreInterface
	tokens        *auth.Manager
}

// NewSessionService creates a new SessionService.
func NewSessionService(
	driverRepo repository.DriverRepository,
	tripLogRepo repository.TripLogRepository,
	presenceStore redis.PresenceStoreInterface,
	tokens *auth.Manager,
) *SessionService {
	return &SessionService{
		driverRepo:    driverRepo,
		tripLogRepo:   tripLogRepo,
		presenceStore: presenceStore,
		tokens:        tokens,
	}
}

// AuthenticateRequest contains the parameters for driver authentication.
type AuthenticateRequest struct {
	Email     string
	Password  string
	DeviceID  string
	IPAddress string
}

// AuthResult is the outcome of a successful authentication.
type AuthResult struct {
	Token   string
	Claims  *auth.Claims
	Account *domain.DriverAccount
}

// Authenticate validates credentials, checks driver and company status, and
// on success issues a session token, flips the driver online, and appends a
// DRIVER_LOGIN trip log event.
func (s *SessionService) Authenticate(ctx context.Context, req AuthenticateRequest) (*AuthResult, error) {
	acc, err := s.driverRepo.GetAccountByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			// Cause is logged but never told apart for the caller.
			log.Printf("auth failed: no driver account for email")
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if acc.PasswordHash == "" {
		log.Printf("auth failed: account has no password set")
		return nil, ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(acc.PasswordHash), []byte(req.Password)); err != nil {
		log.Printf("auth failed: password mismatch for driver %s", acc.Driver.ID)
		return nil, ErrInvalidCredentials
	}

	if acc.Role != "DRIVER" {
		log.Printf("auth failed: user %s has role %s, driver profile required", acc.Driver.UserID, acc.Role)
		return nil, ErrDriverProfileRequired
	}

	if acc.Driver.Status != domain.AccountStatusActive {
		log.Printf("auth failed: driver %s is not active", acc.Driver.ID)
		return nil, ErrAccountSuspended
	}

	if acc.Company.Status != domain.AccountStatusActive {
		log.Printf("auth failed: company %s is not active", acc.Company.ID)
		return nil, ErrAccountSuspended
	}

	token, claims, err := s.tokens.Issue(
		acc.Driver.UserID, acc.Driver.ID, acc.Driver.CompanyID, acc.Driver.VehicleID, acc.Role,
	)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	if err := s.driverRepo.SetOnline(ctx, acc.Driver.ID, true, now); err != nil {
		return nil, err
	}

	loginEvent := &domain.TripLogEvent{
		ID:        uuid.New().String(),
		LogType:   domain.LogTypeDriverLogin,
		CompanyID: acc.Driver.CompanyID,
		VehicleID: acc.Driver.VehicleID,
		DriverID:  acc.Driver.ID,
		UserID:    acc.Driver.UserID,
		LogDetails: domain.LogDetails{
			"deviceId":  req.DeviceID,
			"loginTime": now.UTC().Format(time.RFC3339),
			"ipAddress": req.IPAddress,
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.tripLogRepo.Create(ctx, loginEvent); err != nil {
		return nil, err
	}

	acc.Driver.IsOnline = true
	acc.Driver.LastLocationUpdate = &now

	return &AuthResult{Token: token, Claims: claims, Account: acc}, nil
}

// EndSession sets the driver offline, drops it from the presence index, and
// appends a DRIVER_LOGOUT trip log event. The token has already been verified
// by the middleware.
func (s *SessionService) EndSession(ctx context.Context, claims *auth.Claims, ip string) error {
	now := time.Now()

	if err := s.driverRepo.SetOnline(ctx, claims.DriverID, false, now); err != nil {
		return err
	}

	if s.presenceStore != nil {
		if err := s.presenceStore.RemovePosition(ctx, claims.DriverID); err != nil {
			log.Printf("failed to remove driver %s from presence index: %v", claims.DriverID, err)
		}
	}

	logoutEvent := &domain.TripLogEvent{
		ID:        uuid.New().String(),
		LogType:   domain.LogTypeDriverLogout,
		CompanyID: claims.CompanyID,
		VehicleID: claims.VehicleID,
		DriverID:  claims.DriverID,
		UserID:    claims.UserID,
		LogDetails: domain.LogDetails{
			"logoutTime": now.UTC().Format(time.RFC3339),
			"ipAddress":  ip,
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
	return s.tripLogRepo.Create(ctx, logoutEvent)
}
