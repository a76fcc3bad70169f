package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ashureev/biabot/internal/auth"
	"github.com/ashureev/biabot/internal/chat"
	"github.com/ashureev/biabot/internal/domain"
	"github.com/ashureev/biabot/internal/intake"
	"github.com/ashureev/biabot/internal/monday"
	"github.com/ashureev/biabot/internal/store"
)

type fakeBoard struct {
	err     error
	created []domain.Submission
	summary string
	verify  monday.VerifyRequest
}

func (f *fakeBoard) CreateItem(_ context.Context, _ domain.ClientProfile, sub domain.Submission, summary string) (domain.BoardResult, error) {
	if f.err != nil {
		return domain.BoardResult{}, f.err
	}
	f.created = append(f.created, sub)
	f.summary = summary
	return domain.BoardResult{ItemID: "item-1", BoardID: "42"}, nil
}

func (f *fakeBoard) Verify(_ context.Context, req monday.VerifyRequest) domain.BoardCheck {
	f.verify = req
	return domain.BoardCheck{OK: true, BoardID: req.BoardID}
}

type prefixSummarizer struct{}

func (prefixSummarizer) Summarize(_ context.Context, _ domain.ClientProfile, _ domain.Submission, fallback string) string {
	return "polished:\n" + fallback
}

type fixture struct {
	repo   *store.MemoryStore
	board  *fakeBoard
	issuer *auth.Issuer
	svc    *IntakeService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	repo := store.NewMemory()
	require.NoError(t, store.Seed(context.Background(), repo))
	board := &fakeBoard{}
	issuer := auth.NewIssuer("test-secret", time.Hour)
	now := func() time.Time { return time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC) }
	svc := New(repo, issuer, prefixSummarizer{}, board, Config{Now: now})
	return &fixture{repo: repo, board: board, issuer: issuer, svc: svc}
}

func validSubmission() domain.Submission {
	return domain.Submission{
		ServiceType:     "Custom graphic",
		ProjectTitle:    "Spring hiring flyer",
		Goal:            "Fill 20 roles",
		TargetAudience:  "Job seekers",
		PrimaryCTA:      "Apply online",
		TimeSensitivity: domain.SensitivityStandard,
		DueDate:         "2026-11-02",
	}
}

func TestAuthenticate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	for _, input := range []string{"READYONE01", " readyone01 ", "my code is readyone01 thanks"} {
		got, err := f.svc.Authenticate(ctx, input)
		require.NoError(t, err, input)
		assert.Equal(t, "READYONE01", got.Profile.ClientCode)
		assert.Equal(t, auth.TokenType, got.TokenType)

		claims, err := f.issuer.Verify(got.AccessToken)
		require.NoError(t, err)
		assert.Equal(t, "READYONE01", claims.Subject)
		assert.Equal(t, "ReadyOne Industries", claims.ClientName)
	}

	_, err := f.svc.Authenticate(ctx, "NOPE99")
	assert.ErrorIs(t, err, ErrInvalidClientCode)
	_, err = f.svc.Authenticate(ctx, "")
	assert.ErrorIs(t, err, ErrInvalidClientCode)
}

func TestOptionsPrefersProfileServices(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	profile := store.SampleProfile()
	profile.ServiceOptions = []string{"Press release"}
	_, err := f.repo.UpsertClientProfile(ctx, profile)
	require.NoError(t, err)

	opts, err := f.svc.Options(ctx, "READYONE01")
	require.NoError(t, err)
	assert.Equal(t, []string{"Press release"}, opts.ServiceOptions)
	assert.NotEmpty(t, opts.CoreQuestions)
	assert.Contains(t, opts.BranchQuestions, "Press release")

	profile.ServiceOptions = nil
	_, err = f.repo.UpsertClientProfile(ctx, profile)
	require.NoError(t, err)
	_, err = f.repo.SetServiceOptions(ctx, []string{"Custom graphic", "Other"})
	require.NoError(t, err)

	opts, err = f.svc.Options(ctx, "READYONE01")
	require.NoError(t, err)
	assert.Equal(t, []string{"Custom graphic", "Other"}, opts.ServiceOptions)
}

func TestOptionsUnknownClient(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Options(context.Background(), "GONE01")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestNormalizeAnswer(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	res, err := f.svc.NormalizeAnswer(ctx, "READYONE01", intake.AnswerRequest{
		QuestionID:   "time_sensitivity",
		QuestionType: domain.QuestionChoice,
		AnswerText:   "urgent!",
		Options:      []string{"Standard", "Soon", "Urgent"},
	})
	require.NoError(t, err)
	assert.True(t, res.OK)
	assert.Equal(t, "Urgent", res.Value)

	res, err = f.svc.NormalizeAnswer(ctx, "READYONE01", intake.AnswerRequest{
		QuestionID:   "due_date",
		QuestionType: domain.QuestionDate,
		AnswerText:   "tomorrow",
	})
	require.NoError(t, err)
	assert.Equal(t, "2026-10-20", res.Value)

	optional := false
	res, err = f.svc.NormalizeAnswer(ctx, "READYONE01", intake.AnswerRequest{
		QuestionID:   "references",
		QuestionType: domain.QuestionText,
		AnswerText:   "skip",
		Required:     &optional,
	})
	require.NoError(t, err)
	assert.True(t, res.Skipped())

	_, err = f.svc.NormalizeAnswer(ctx, "READYONE01", intake.AnswerRequest{QuestionID: "x", QuestionType: "slider"})
	assert.ErrorIs(t, err, ErrInvalidRequest)
}

func TestPreviewAppliesDefaultApprover(t *testing.T) {
	f := newFixture(t)

	summary, err := f.svc.Preview(context.Background(), "READYONE01", validSubmission())
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(summary, "polished:\n"))
	assert.Contains(t, summary, "Approver: Lupita R.")
	assert.Contains(t, summary, "Client: ReadyOne Industries (READYONE01)")
	assert.Empty(t, f.board.created, "preview must not create board items")
}

func TestPreviewRejectsIncompleteSubmission(t *testing.T) {
	f := newFixture(t)

	sub := validSubmission()
	sub.Goal = " "
	_, err := f.svc.Preview(context.Background(), "READYONE01", sub)
	require.ErrorIs(t, err, ErrInvalidSubmission)
	assert.Contains(t, err.Error(), "goal")

	sub = validSubmission()
	sub.DueDate = "2026-02-30"
	_, err = f.svc.Preview(context.Background(), "READYONE01", sub)
	assert.ErrorIs(t, err, ErrInvalidSubmission)
}

func TestSubmitRecordsRequest(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	approver := "Sam K."
	sub := validSubmission()
	sub.Approver = &approver

	res, err := f.svc.Submit(ctx, "READYONE01", domain.SubmitRequest{Submission: sub})
	require.NoError(t, err)
	assert.NotEmpty(t, res.RequestID)
	assert.Equal(t, "item-1", res.Monday.ItemID)
	assert.Equal(t, res.Summary, f.board.summary)
	assert.Contains(t, res.Summary, "Approver: Sam K.")

	logs, err := f.repo.ListRequestLogs(ctx, 10, 0)
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, res.RequestID, logs[0].ID)
	assert.Equal(t, "READYONE01", logs[0].ClientCode)
	assert.Equal(t, "Spring hiring flyer", logs[0].ProjectTitle)
	assert.Equal(t, "item-1", logs[0].MondayItemID)
	assert.Equal(t, []string{}, logs[0].Payload.References)
}

func TestSubmitBoardFailure(t *testing.T) {
	f := newFixture(t)
	f.board.err = errors.New("board down")

	_, err := f.svc.Submit(context.Background(), "READYONE01", domain.SubmitRequest{Submission: validSubmission()})
	require.Error(t, err)

	logs, err := f.repo.ListRequestLogs(context.Background(), 10, 0)
	require.NoError(t, err)
	assert.Empty(t, logs)
}

func TestLocalBackend(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	backend := NewLocalBackend(f.svc)

	authResult, err := backend.Authenticate(ctx, "READYONE01")
	require.NoError(t, err)

	opts, err := backend.Options(ctx, authResult.AccessToken)
	require.NoError(t, err)
	assert.NotEmpty(t, opts.ServiceOptions)

	_, err = backend.Options(ctx, "bogus")
	assert.ErrorIs(t, err, auth.ErrInvalidToken)

	res, err := backend.Submit(ctx, authResult.AccessToken, domain.SubmitRequest{Submission: validSubmission()})
	require.NoError(t, err)
	assert.Equal(t, "item-1", res.Monday.ItemID)
}

// countingSummarizer returns different text on every call.
type countingSummarizer struct {
	mu    sync.Mutex
	calls int
}

func (c *countingSummarizer) Summarize(_ context.Context, _ domain.ClientProfile, _ domain.Submission, _ string) string {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls++
	return fmt.Sprintf("model output #%d", c.calls)
}

func TestSubmitKeepsConfirmedSummary(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	res, err := f.svc.Submit(ctx, "READYONE01", domain.SubmitRequest{
		Submission: validSubmission(),
		Summary:    "  the text the client approved  ",
	})
	require.NoError(t, err)
	assert.Equal(t, "the text the client approved", res.Summary)
	assert.Equal(t, "the text the client approved", f.board.summary)

	logs, err := f.repo.ListRequestLogs(ctx, 10, 0)
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, "the text the client approved", logs[0].Summary)
}

func TestChatSubmitUsesPreviewedSummary(t *testing.T) {
	repo := store.NewMemory()
	require.NoError(t, store.Seed(context.Background(), repo))
	board := &fakeBoard{}
	summarizer := &countingSummarizer{}
	now := func() time.Time { return time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC) }
	svc := New(repo, auth.NewIssuer("test-secret", time.Hour), summarizer, board, Config{Now: now})
	controller := chat.NewController(NewLocalBackend(svc), chat.NewMemorySessionStore(), chat.ControllerConfig{Now: now})

	ctx := context.Background()
	send := func(id, message string) *chat.Reply {
		t.Helper()
		reply, err := controller.Handle(ctx, chat.Request{SessionID: id, Message: message})
		require.NoError(t, err)
		return reply
	}

	id := send("", "").SessionID
	send(id, "READYONE01")
	reply := send(id, "Custom graphic")
	for reply.Phase == chat.PhaseAwaitQuestion {
		sess, err := controller.Session(ctx, id)
		require.NoError(t, err)
		q, ok := sess.Phase.(chat.AwaitQuestion).Current()
		require.True(t, ok)

		answer := "answer for " + q.ID
		switch {
		case !q.Required:
			answer = "skip"
		case q.Type == domain.QuestionChoice:
			answer = q.Options[0]
		case q.Type == domain.QuestionDate:
			answer = "2026-11-02"
		}
		reply = send(id, answer)
	}
	require.Equal(t, chat.PhaseAwaitConfirmation, reply.Phase, reply.AssistantMessage)
	confirmed := reply.Summary
	assert.Equal(t, "model output #1", confirmed)

	reply = send(id, "submit")
	require.Equal(t, chat.PhaseDone, reply.Phase, reply.AssistantMessage)
	assert.Equal(t, confirmed, reply.Summary)
	assert.Equal(t, confirmed, board.summary)
	assert.Equal(t, 1, summarizer.calls)

	logs, err := repo.ListRequestLogs(ctx, 10, 0)
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, confirmed, logs[0].Summary)
}
