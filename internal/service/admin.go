package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/ashureev/biabot/internal/auth"
	"github.com/ashureev/biabot/internal/domain"
	"github.com/ashureev/biabot/internal/monday"
	"github.com/ashureev/biabot/internal/store"
)

// Request log paging bounds.
const (
	DefaultLogLimit = 50
	MaxLogLimit     = 500
)

// AdminService backs the operator console.
type AdminService struct {
	repo   store.Repository
	board  Board
	secret string
	logger *slog.Logger
}

// NewAdmin creates an AdminService guarded by secret.
func NewAdmin(repo store.Repository, board Board, secret string, logger *slog.Logger) *AdminService {
	if logger == nil {
		logger = slog.Default()
	}
	return &AdminService{repo: repo, board: board, secret: secret, logger: logger}
}

// CheckPassword reports whether password is the admin secret.
func (a *AdminService) CheckPassword(password string) bool {
	return auth.ValidAdminSecret(a.secret, password)
}

// ListProfiles returns every client profile.
func (a *AdminService) ListProfiles(ctx context.Context) ([]domain.ClientProfile, error) {
	profiles, err := a.repo.ListClientProfiles(ctx)
	if err != nil {
		return nil, fmt.Errorf("list client profiles: %w", err)
	}
	return profiles, nil
}

// GetProfile returns one client profile.
func (a *AdminService) GetProfile(ctx context.Context, clientCode string) (*domain.ClientProfile, error) {
	profile, err := a.repo.GetClientProfile(ctx, domain.NormalizeClientCode(clientCode))
	if err != nil {
		return nil, fmt.Errorf("get client profile: %w", err)
	}
	return profile, nil
}

// UpsertProfile validates and stores a profile.
func (a *AdminService) UpsertProfile(ctx context.Context, profile domain.ClientProfile) (*domain.ClientProfile, error) {
	profile.Normalize()
	if err := profile.Validate(); err != nil {
		return nil, err
	}
	saved, err := a.repo.UpsertClientProfile(ctx, profile)
	if err != nil {
		return nil, fmt.Errorf("upsert client profile: %w", err)
	}
	a.logger.Info("Client profile saved", "client_code", saved.ClientCode)
	return saved, nil
}

// UpdateProfile stores a profile addressed by its path code, which must
// match the payload's code.
func (a *AdminService) UpdateProfile(ctx context.Context, pathCode string, profile domain.ClientProfile) (*domain.ClientProfile, error) {
	if domain.NormalizeClientCode(pathCode) != domain.NormalizeClientCode(profile.ClientCode) {
		return nil, fmt.Errorf("%w: Path code must match payload code", ErrInvalidRequest)
	}
	return a.UpsertProfile(ctx, profile)
}

// DeleteProfile removes a profile.
func (a *AdminService) DeleteProfile(ctx context.Context, clientCode string) error {
	code := domain.NormalizeClientCode(clientCode)
	if err := a.repo.DeleteClientProfile(ctx, code); err != nil {
		return fmt.Errorf("delete client profile: %w", err)
	}
	a.logger.Info("Client profile deleted", "client_code", code)
	return nil
}

// ServiceOptions returns the global service list.
func (a *AdminService) ServiceOptions(ctx context.Context) ([]string, error) {
	options, err := a.repo.ListServiceOptions(ctx)
	if err != nil {
		return nil, fmt.Errorf("list service options: %w", err)
	}
	return options, nil
}

// SetServiceOptions replaces the global service list. Blank entries are
// dropped and at least one must remain.
func (a *AdminService) SetServiceOptions(ctx context.Context, options []string) ([]string, error) {
	cleaned := make([]string, 0, len(options))
	for _, o := range options {
		if o = strings.TrimSpace(o); o != "" {
			cleaned = append(cleaned, o)
		}
	}
	if len(cleaned) == 0 {
		return nil, fmt.Errorf("%w: At least one service option is required", ErrInvalidRequest)
	}
	saved, err := a.repo.SetServiceOptions(ctx, cleaned)
	if err != nil {
		return nil, fmt.Errorf("set service options: %w", err)
	}
	return saved, nil
}

// RequestLogs pages through finalized submissions, newest first. A zero
// limit uses DefaultLogLimit.
func (a *AdminService) RequestLogs(ctx context.Context, limit, offset int) ([]domain.RequestLog, error) {
	if limit == 0 {
		limit = DefaultLogLimit
	}
	if limit < 1 || limit > MaxLogLimit {
		return nil, fmt.Errorf("%w: limit must be between 1 and %d", ErrInvalidRequest, MaxLogLimit)
	}
	if offset < 0 {
		return nil, fmt.Errorf("%w: offset must not be negative", ErrInvalidRequest)
	}
	logs, err := a.repo.ListRequestLogs(ctx, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list request logs: %w", err)
	}
	return logs, nil
}

// VerifyMonday checks board credentials.
func (a *AdminService) VerifyMonday(ctx context.Context, req monday.VerifyRequest) domain.BoardCheck {
	check := a.board.Verify(ctx, req)
	a.logger.Info("Monday credentials checked", "ok", check.OK, "mock_mode", check.MockMode, "board_id", check.BoardID)
	return check
}
