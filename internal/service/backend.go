package service

import (
	"context"
	"errors"

	"github.com/ashureev/biabot/internal/auth"
	"github.com/ashureev/biabot/internal/chat"
	"github.com/ashureev/biabot/internal/domain"
)

var _ chat.Backend = (*LocalBackend)(nil)

// LocalBackend lets the chat controller call the intake service in-process
// while still going through bearer tokens.
type LocalBackend struct {
	svc *IntakeService
}

// NewLocalBackend wraps svc as a chat backend.
func NewLocalBackend(svc *IntakeService) *LocalBackend {
	return &LocalBackend{svc: svc}
}

func (b *LocalBackend) clientCode(token string) (string, error) {
	claims, err := b.svc.issuer.Verify(token)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidRole) {
			return "", auth.ErrInvalidToken
		}
		return "", err
	}
	return claims.Subject, nil
}

// Authenticate implements chat.Backend.
func (b *LocalBackend) Authenticate(ctx context.Context, clientCode string) (domain.ClientAuth, error) {
	return b.svc.Authenticate(ctx, clientCode)
}

// Options implements chat.Backend.
func (b *LocalBackend) Options(ctx context.Context, token string) (domain.IntakeOptions, error) {
	code, err := b.clientCode(token)
	if err != nil {
		return domain.IntakeOptions{}, err
	}
	return b.svc.Options(ctx, code)
}

// Preview implements chat.Backend.
func (b *LocalBackend) Preview(ctx context.Context, token string, sub domain.Submission) (string, error) {
	code, err := b.clientCode(token)
	if err != nil {
		return "", err
	}
	return b.svc.Preview(ctx, code, sub)
}

// Submit implements chat.Backend.
func (b *LocalBackend) Submit(ctx context.Context, token string, req domain.SubmitRequest) (domain.SubmitResult, error) {
	code, err := b.clientCode(token)
	if err != nil {
		return domain.SubmitResult{}, err
	}
	return b.svc.Submit(ctx, code, req)
}
