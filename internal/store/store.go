// Package store provides data persistence interfaces and implementations.
package store

import (
	"context"
	"errors"

	"github.com/ashureev/biabot/internal/domain"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("not found")

// Repository defines the interface for persisting client profiles, the global
// service list and request logs.
type Repository interface {
	// GetClientProfile retrieves a profile by its normalized client code.
	GetClientProfile(ctx context.Context, clientCode string) (*domain.ClientProfile, error)

	// ListClientProfiles returns all profiles ordered by client name.
	ListClientProfiles(ctx context.Context) ([]domain.ClientProfile, error)

	// UpsertClientProfile creates or replaces a profile keyed by client code.
	UpsertClientProfile(ctx context.Context, profile domain.ClientProfile) (*domain.ClientProfile, error)

	// DeleteClientProfile removes a profile. Returns ErrNotFound if it does not exist.
	DeleteClientProfile(ctx context.Context, clientCode string) error

	// ListServiceOptions returns the global service list, or the built-in
	// defaults when none has been stored.
	ListServiceOptions(ctx context.Context) ([]string, error)

	// SetServiceOptions replaces the global service list.
	SetServiceOptions(ctx context.Context, options []string) ([]string, error)

	// CreateRequestLog persists a finalized submission. ID and CreatedAt are
	// assigned when empty.
	CreateRequestLog(ctx context.Context, log *domain.RequestLog) error

	// ListRequestLogs returns logs newest first. A non-positive limit yields
	// no logs and a negative offset is treated as zero.
	ListRequestLogs(ctx context.Context, limit, offset int) ([]domain.RequestLog, error)

	// Ping verifies database connectivity and returns an error if the database is unreachable.
	Ping(ctx context.Context) error

	// Close closes the database connection.
	Close() error
}

// pageBounds clamps a page request. ok is false when nothing can be returned.
func pageBounds(limit, offset int) (int, int, bool) {
	if offset < 0 {
		offset = 0
	}
	return limit, offset, limit > 0
}
