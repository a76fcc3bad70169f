// Package service implements the client intake operations shared by the HTTP
// API and the in-process chat backend.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/ashureev/biabot/internal/auth"
	"github.com/ashureev/biabot/internal/domain"
	"github.com/ashureev/biabot/internal/intake"
	"github.com/ashureev/biabot/internal/monday"
	"github.com/ashureev/biabot/internal/store"
)

var (
	// ErrInvalidClientCode is returned when no profile matches a client code.
	ErrInvalidClientCode = domain.ErrInvalidClientCode
	// ErrInvalidSubmission is returned when a preview or submit payload is incomplete.
	ErrInvalidSubmission = errors.New("invalid submission")
	// ErrInvalidRequest is returned for malformed admin or normalization input.
	ErrInvalidRequest = errors.New("invalid request")
)

// Board creates intake items on the project board.
type Board interface {
	CreateItem(ctx context.Context, profile domain.ClientProfile, sub domain.Submission, summary string) (domain.BoardResult, error)
	Verify(ctx context.Context, req monday.VerifyRequest) domain.BoardCheck
}

// Summarizer turns a submission into contractor-ready text.
type Summarizer interface {
	Summarize(ctx context.Context, profile domain.ClientProfile, sub domain.Submission, fallback string) string
}

// Config holds optional collaborators.
type Config struct {
	Logger *slog.Logger
	Now    func() time.Time
}

// IntakeService serves authenticated client requests.
type IntakeService struct {
	repo       store.Repository
	issuer     *auth.Issuer
	summarizer Summarizer
	board      Board
	normalizer *intake.Normalizer
	logger     *slog.Logger
}

// New creates an IntakeService.
func New(repo store.Repository, issuer *auth.Issuer, summarizer Summarizer, board Board, cfg Config) *IntakeService {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &IntakeService{
		repo:       repo,
		issuer:     issuer,
		summarizer: summarizer,
		board:      board,
		normalizer: intake.NewNormalizer(cfg.Now),
		logger:     logger,
	}
}

// Authenticate resolves a client code, or free text containing one, to a
// profile and issues a bearer token for it.
func (s *IntakeService) Authenticate(ctx context.Context, input string) (domain.ClientAuth, error) {
	for _, code := range intake.ClientCodeAttempts(input) {
		profile, err := s.repo.GetClientProfile(ctx, code)
		if errors.Is(err, store.ErrNotFound) {
			continue
		}
		if err != nil {
			return domain.ClientAuth{}, fmt.Errorf("look up client code: %w", err)
		}
		token, err := s.issuer.Issue(profile.ClientCode, profile.ClientName)
		if err != nil {
			return domain.ClientAuth{}, err
		}
		s.logger.Info("Client authenticated", "client_code", profile.ClientCode)
		return domain.ClientAuth{AccessToken: token, TokenType: auth.TokenType, Profile: *profile}, nil
	}
	return domain.ClientAuth{}, ErrInvalidClientCode
}

// Profile returns the profile of an authenticated client.
func (s *IntakeService) Profile(ctx context.Context, clientCode string) (*domain.ClientProfile, error) {
	profile, err := s.repo.GetClientProfile(ctx, domain.NormalizeClientCode(clientCode))
	if err != nil {
		return nil, fmt.Errorf("get client profile: %w", err)
	}
	return profile, nil
}

// Options returns the services and questions offered to a client. A profile's
// own service list takes precedence over the global one.
func (s *IntakeService) Options(ctx context.Context, clientCode string) (domain.IntakeOptions, error) {
	profile, err := s.Profile(ctx, clientCode)
	if err != nil {
		return domain.IntakeOptions{}, err
	}
	services := profile.ServiceOptions
	if len(services) == 0 {
		services, err = s.repo.ListServiceOptions(ctx)
		if err != nil {
			return domain.IntakeOptions{}, fmt.Errorf("list service options: %w", err)
		}
	}
	return intake.DefaultOptions(services), nil
}

// NormalizeAnswer validates a single answer against the described question.
func (s *IntakeService) NormalizeAnswer(ctx context.Context, clientCode string, req intake.AnswerRequest) (intake.Result, error) {
	if _, err := s.Profile(ctx, clientCode); err != nil {
		return intake.Result{}, err
	}
	if strings.TrimSpace(req.QuestionID) == "" {
		return intake.Result{}, fmt.Errorf("%w: question_id is required", ErrInvalidRequest)
	}
	switch req.QuestionType {
	case domain.QuestionChoice, domain.QuestionText, domain.QuestionDate, domain.QuestionFile:
	default:
		return intake.Result{}, fmt.Errorf("%w: unknown question_type %q", ErrInvalidRequest, req.QuestionType)
	}
	return s.normalizer.Normalize(req.Question(), req.AnswerText), nil
}

// prepare validates a submission and fills in the profile's default approver.
func (s *IntakeService) prepare(ctx context.Context, clientCode string, sub domain.Submission) (*domain.ClientProfile, domain.Submission, error) {
	profile, err := s.Profile(ctx, clientCode)
	if err != nil {
		return nil, sub, err
	}
	if err := intake.ValidateSubmission(sub); err != nil {
		return nil, sub, fmt.Errorf("%w: %v", ErrInvalidSubmission, err)
	}
	if (sub.Approver == nil || strings.TrimSpace(*sub.Approver) == "") && profile.DefaultApprover != "" {
		approver := profile.DefaultApprover
		sub.Approver = &approver
	}
	if sub.References == nil {
		sub.References = []string{}
	}
	if sub.UploadedFiles == nil {
		sub.UploadedFiles = []string{}
	}
	if sub.BranchAnswers == nil {
		sub.BranchAnswers = map[string]any{}
	}
	return profile, sub, nil
}

func (s *IntakeService) summarize(ctx context.Context, profile *domain.ClientProfile, sub domain.Submission) string {
	fallback := intake.FallbackSummary(*profile, sub)
	if s.summarizer == nil {
		return fallback
	}
	return s.summarizer.Summarize(ctx, *profile, sub, fallback)
}

// Preview returns the summary a submission would produce without recording it.
func (s *IntakeService) Preview(ctx context.Context, clientCode string, sub domain.Submission) (string, error) {
	profile, sub, err := s.prepare(ctx, clientCode, sub)
	if err != nil {
		return "", err
	}
	return s.summarize(ctx, profile, sub), nil
}

// Submit creates the board item for a submission and records it. The
// confirmed summary is kept as is; a new one is generated only when the
// request carries none.
func (s *IntakeService) Submit(ctx context.Context, clientCode string, req domain.SubmitRequest) (domain.SubmitResult, error) {
	profile, sub, err := s.prepare(ctx, clientCode, req.Submission)
	if err != nil {
		return domain.SubmitResult{}, err
	}
	summary := strings.TrimSpace(req.Summary)
	if summary == "" {
		summary = s.summarize(ctx, profile, sub)
	}

	item, err := s.board.CreateItem(ctx, *profile, sub, summary)
	if err != nil {
		s.logger.Error("Failed to create board item", "client_code", profile.ClientCode, "error", err)
		return domain.SubmitResult{}, err
	}

	record := &domain.RequestLog{
		ClientCode:   profile.ClientCode,
		ClientName:   profile.ClientName,
		ServiceType:  sub.ServiceType,
		ProjectTitle: sub.ProjectTitle,
		Summary:      summary,
		MondayItemID: item.ItemID,
		Payload:      sub,
	}
	if err := s.repo.CreateRequestLog(ctx, record); err != nil {
		return domain.SubmitResult{}, fmt.Errorf("record request: %w", err)
	}

	s.logger.Info("Intake submitted",
		"request_id", record.ID,
		"client_code", profile.ClientCode,
		"service_type", sub.ServiceType,
		"monday_item_id", item.ItemID,
		"mock_mode", item.MockMode,
	)
	return domain.SubmitResult{RequestID: record.ID, Summary: summary, Monday: item}, nil
}
