// Package chat implements the guided intake conversation.
package chat

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ashureev/biabot/internal/domain"
	"github.com/ashureev/biabot/internal/intake"
)

var (
	// ErrBusy is returned when a message arrives while the previous turn of the
	// same session is still waiting on the backend.
	ErrBusy = errors.New("chat session is busy")
	// ErrSessionReset is returned when the session was reset while a turn was
	// in flight. The turn's result is discarded.
	ErrSessionReset = errors.New("chat session was reset")
)

// Backend is the intake service the conversation talks to. It is satisfied
// in-process by the service package and remotely by the REST client.
type Backend interface {
	Authenticate(ctx context.Context, clientCode string) (domain.ClientAuth, error)
	Options(ctx context.Context, token string) (domain.IntakeOptions, error)
	Preview(ctx context.Context, token string, sub domain.Submission) (string, error)
	Submit(ctx context.Context, token string, req domain.SubmitRequest) (domain.SubmitResult, error)
}

// Request is one user turn.
type Request struct {
	SessionID string `json:"session_id"`
	Message   string `json:"message"`
	Reset     bool   `json:"reset"`
}

// Reply is the assistant's answer to one turn.
type Reply struct {
	SessionID        string                `json:"session_id"`
	AssistantMessage string                `json:"assistant_message"`
	Phase            PhaseName             `json:"phase"`
	Suggestions      []string              `json:"suggestions"`
	Profile          *domain.ClientProfile `json:"profile"`
	ServiceType      string                `json:"service_type,omitempty"`
	ReadyToSubmit    bool                  `json:"ready_to_submit"`
	Summary          string                `json:"summary,omitempty"`
	RequestID        string                `json:"request_id,omitempty"`
	MondayItemID     string                `json:"monday_item_id,omitempty"`
}

// ControllerConfig holds optional collaborators.
type ControllerConfig struct {
	Transcript TranscriptLogger
	Logger     *slog.Logger
	Now        func() time.Time
}

// Controller drives conversations through their phases.
type Controller struct {
	backend    Backend
	sessions   SessionStore
	normalizer *intake.Normalizer
	transcript TranscriptLogger
	logger     *slog.Logger
	now        func() time.Time

	mu      sync.Mutex
	busy    map[string]uint64
	turnSeq uint64

	// commitMu makes the generation check and the write of a turn atomic
	// with respect to resets.
	commitMu sync.Mutex
}

// NewController creates a controller backed by the given intake backend and
// session store.
func NewController(backend Backend, sessions SessionStore, cfg ControllerConfig) *Controller {
	if cfg.Transcript == nil {
		cfg.Transcript = noopTranscriptLogger{}
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Controller{
		backend:    backend,
		sessions:   sessions,
		normalizer: intake.NewNormalizer(cfg.Now),
		transcript: cfg.Transcript,
		logger:     cfg.Logger,
		now:        cfg.Now,
		busy:       make(map[string]uint64),
	}
}

type outcome struct {
	text        string
	suggestions []string
}

// Handle processes one user turn and returns the assistant reply.
func (c *Controller) Handle(ctx context.Context, req Request) (*Reply, error) {
	if req.Reset {
		return c.reset(ctx, req.SessionID)
	}

	message := strings.TrimSpace(req.Message)
	sess, created, err := c.loadOrCreate(ctx, req.SessionID)
	if err != nil {
		return nil, err
	}

	turn, ok := c.acquire(sess.ID)
	if !ok {
		return nil, ErrBusy
	}
	defer c.release(sess.ID, turn)

	generation := sess.Generation
	var out outcome
	if created && message == "" {
		out = outcome{text: msgWelcome}
	} else {
		out = c.step(ctx, sess, message)
	}

	if err := c.commit(ctx, sess, generation, message, out); err != nil {
		return nil, err
	}
	return c.reply(sess, out), nil
}

// Session returns a copy of the stored session.
func (c *Controller) Session(ctx context.Context, id string) (*Session, error) {
	return c.sessions.Get(ctx, id)
}

func (c *Controller) reset(ctx context.Context, id string) (*Reply, error) {
	c.commitMu.Lock()
	defer c.commitMu.Unlock()

	var generation uint64
	if id == "" {
		id = uuid.NewString()
	} else {
		prev, err := c.sessions.Get(ctx, id)
		switch {
		case err == nil:
			generation = prev.Generation + 1
		case errors.Is(err, ErrSessionNotFound):
		default:
			return nil, fmt.Errorf("load session: %w", err)
		}
	}

	sess := newSession(id, generation, c.now())
	out := outcome{text: msgNewChat}
	sess.appendMessage(RoleBot, out.text, c.now())
	sess.Suggestions = out.suggestions
	if err := c.sessions.Put(ctx, sess); err != nil {
		return nil, fmt.Errorf("save session: %w", err)
	}

	// A turn still in flight for the old generation no longer blocks input.
	c.mu.Lock()
	delete(c.busy, id)
	c.mu.Unlock()

	c.logger.Info("Chat session reset", "session_id", id, "generation", generation)
	c.record(sess, RoleBot, out.text)
	return c.reply(sess, out), nil
}

func (c *Controller) loadOrCreate(ctx context.Context, id string) (*Session, bool, error) {
	if id != "" {
		sess, err := c.sessions.Get(ctx, id)
		if err == nil {
			return sess, false, nil
		}
		if !errors.Is(err, ErrSessionNotFound) {
			return nil, false, fmt.Errorf("load session: %w", err)
		}
	}
	return newSession(uuid.NewString(), 0, c.now()), true, nil
}

func (c *Controller) acquire(id string) (uint64, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, held := c.busy[id]; held {
		return 0, false
	}
	c.turnSeq++
	c.busy[id] = c.turnSeq
	return c.turnSeq, true
}

func (c *Controller) release(id string, turn uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.busy[id] == turn {
		delete(c.busy, id)
	}
}

func (c *Controller) commit(ctx context.Context, sess *Session, generation uint64, message string, out outcome) error {
	c.commitMu.Lock()
	defer c.commitMu.Unlock()

	current, err := c.sessions.Get(ctx, sess.ID)
	switch {
	case err == nil && current.Generation != generation:
		c.logger.Info("Discarding stale chat turn",
			"session_id", sess.ID,
			"turn_generation", generation,
			"current_generation", current.Generation)
		return ErrSessionReset
	case err != nil && !errors.Is(err, ErrSessionNotFound):
		return fmt.Errorf("load session: %w", err)
	}

	now := c.now()
	if message != "" {
		sess.appendMessage(RoleUser, message, now)
	}
	sess.appendMessage(RoleBot, out.text, now)
	sess.Suggestions = out.suggestions
	sess.UpdatedAt = now
	if err := c.sessions.Put(ctx, sess); err != nil {
		return fmt.Errorf("save session: %w", err)
	}

	if message != "" {
		c.record(sess, RoleUser, message)
	}
	c.record(sess, RoleBot, out.text)
	return nil
}

func (c *Controller) record(sess *Session, role Role, text string) {
	event := TranscriptEvent{
		Timestamp:  c.now().UTC().Format(time.RFC3339Nano),
		SessionID:  sess.ID,
		Generation: sess.Generation,
		Role:       role,
		Phase:      sess.Phase.Name(),
		ContentRaw: text,
		Content:    readableText(text),
	}
	if sess.Profile != nil {
		event.ClientCode = sess.Profile.ClientCode
	}
	if sess.ServiceType != "" {
		event.Meta = map[string]any{"service_type": sess.ServiceType}
	}
	c.transcript.Log(event)
}

func (c *Controller) reply(sess *Session, out outcome) *Reply {
	r := &Reply{
		SessionID:        sess.ID,
		AssistantMessage: out.text,
		Phase:            sess.Phase.Name(),
		Suggestions:      out.suggestions,
		Profile:          sess.Profile,
		ServiceType:      sess.ServiceType,
	}
	if r.Suggestions == nil {
		r.Suggestions = []string{}
	}
	switch p := sess.Phase.(type) {
	case AwaitConfirmation:
		r.ReadyToSubmit = true
		r.Summary = p.Summary
	case Done:
		r.Summary = p.Summary
		r.RequestID = p.RequestID
		r.MondayItemID = p.ItemID
	}
	return r
}

func (c *Controller) step(ctx context.Context, sess *Session, message string) outcome {
	if logoutPattern.MatchString(message) && sess.Authenticated() {
		return c.logout(sess)
	}
	if helpPattern.MatchString(message) {
		text := msgHelp
		if !sess.Authenticated() {
			text += " Please share your client code to get started."
		}
		return outcome{text: text, suggestions: c.phaseSuggestions(sess)}
	}

	switch p := sess.Phase.(type) {
	case AwaitClientCode:
		return c.onClientCode(ctx, sess, p, message)
	case AwaitService:
		return c.onService(ctx, sess, p, message)
	case AwaitQuestion:
		return c.onAnswer(ctx, sess, p, message)
	case BuildingSummary:
		return c.buildSummary(ctx, sess, p.Queue)
	case AwaitConfirmation:
		return c.onConfirmation(ctx, sess, p, message)
	case Done:
		return c.onDone(sess, message)
	}
	return c.lostState(sess)
}

func (c *Controller) logout(sess *Session) outcome {
	c.logger.Info("Chat client signed out", "session_id", sess.ID)
	sess.restart(sess.Generation + 1)
	return outcome{text: msgSignedOut}
}

func (c *Controller) onClientCode(ctx context.Context, sess *Session, p AwaitClientCode, message string) outcome {
	if message == "" {
		return outcome{text: msgWelcome}
	}
	extracted := intake.ExtractClientCodes(message)
	if !looksLikeCodeAttempt(message, extracted) {
		return outcome{text: msgNeedCode}
	}

	var lastErr error
	for _, code := range intake.ClientCodeAttempts(message) {
		auth, err := c.backend.Authenticate(ctx, code)
		if err == nil {
			return c.signIn(ctx, sess, auth)
		}
		lastErr = err
		if ctx.Err() != nil {
			break
		}
	}

	p.Attempts++
	sess.Phase = p
	if lastErr != nil && !errors.Is(lastErr, domain.ErrInvalidClientCode) {
		c.logger.Warn("Client code verification failed", "session_id", sess.ID, "error", lastErr)
		return outcome{text: fmt.Sprintf("I could not verify your code right now: %v. Please try again in a moment. %s", lastErr, msgSupportHint)}
	}

	preferred := ""
	for _, candidate := range extracted {
		if !strings.EqualFold(candidate, message) {
			preferred = candidate
			break
		}
	}
	return outcome{text: codeRetryMessage(p.Attempts, preferred)}
}

var (
	codeWordPattern = regexp.MustCompile(`(?i)\b(client\s*(?:id|code)|id|code)\b`)
	digitPattern    = regexp.MustCompile(`\d`)
)

// looksLikeCodeAttempt separates code entry from small talk so that greetings
// are not counted as failed attempts.
func looksLikeCodeAttempt(message string, extracted []string) bool {
	if len(extracted) > 0 {
		return true
	}
	if codeWordPattern.MatchString(message) {
		return true
	}
	if codeShape.MatchString(message) && len(message) >= 4 {
		if digitPattern.MatchString(message) {
			return true
		}
		if strings.ToUpper(message) == message && len(message) >= 6 {
			return true
		}
	}
	return false
}

func (c *Controller) signIn(ctx context.Context, sess *Session, auth domain.ClientAuth) outcome {
	profile := auth.Profile
	sess.Profile = &profile
	sess.Token = auth.AccessToken
	sess.resetIntake()

	c.logger.Info("Chat client verified", "session_id", sess.ID, "client_code", profile.ClientCode)

	opts, err := c.backend.Options(ctx, sess.Token)
	if err != nil {
		c.logger.Warn("Failed to load intake options", "session_id", sess.ID, "error", err)
		sess.Options = nil
		return outcome{text: welcomeBack(profile.ClientName) + " I could not load the service list yet, so send any message and I will try again."}
	}
	sess.Options = &opts
	return outcome{text: welcomeBack(profile.ClientName), suggestions: sess.ServiceOptions()}
}

func (c *Controller) ensureOptions(ctx context.Context, sess *Session) error {
	if sess.Options != nil && len(sess.Options.ServiceOptions) > 0 {
		return nil
	}
	opts, err := c.backend.Options(ctx, sess.Token)
	if err != nil {
		return err
	}
	sess.Options = &opts
	return nil
}

func (c *Controller) onService(ctx context.Context, sess *Session, p AwaitService, message string) outcome {
	if !sess.Authenticated() {
		sess.Phase = AwaitClientCode{}
		return outcome{text: "I need your client code first. Please share it to continue."}
	}
	if err := c.ensureOptions(ctx, sess); err != nil {
		c.logger.Warn("Failed to load intake options", "session_id", sess.ID, "error", err)
		return outcome{text: fmt.Sprintf("I could not load the service list: %v. Please try again in a moment.", err)}
	}

	services := sess.ServiceOptions()
	selected, ok := intake.MatchOption(message, services)
	if !ok {
		p.Attempts++
		sess.Phase = p
		return outcome{text: serviceRetryMessage(p.Attempts, services), suggestions: services}
	}

	queue := intake.BuildQueue(*sess.Options, selected)
	if len(queue) == 0 {
		sess.Phase = AwaitService{}
		return outcome{text: msgNoQuestions, suggestions: services}
	}

	sess.ServiceType = selected
	sess.Phase = AwaitQuestion{Queue: queue, Index: 0}
	return outcome{
		text:        questionPrompt(queue[0], selected),
		suggestions: questionSuggestions(queue[0]),
	}
}

func (c *Controller) onAnswer(ctx context.Context, sess *Session, p AwaitQuestion, message string) outcome {
	q, ok := p.Current()
	if !ok || !sess.Authenticated() || sess.ServiceType == "" {
		return c.lostState(sess)
	}

	res := c.normalizer.Normalize(q, message)
	if !res.OK {
		text := res.Message
		if len(res.Options) > 0 {
			text += " Options: " + strings.Join(res.Options, ", ") + "."
		}
		return outcome{text: text, suggestions: questionSuggestions(q)}
	}

	sess.Answers[q.ID] = res.Value
	p.Index++
	if p.Index < len(p.Queue) {
		sess.Phase = p
		next := p.Queue[p.Index]
		return outcome{text: questionPrompt(next, sess.ServiceType), suggestions: questionSuggestions(next)}
	}
	return c.buildSummary(ctx, sess, p.Queue)
}

// buildSummary runs the preview call. Invalid answers send the conversation
// back to the question that holds them; a failed preview returns to the last
// question so the user can re-send it.
func (c *Controller) buildSummary(ctx context.Context, sess *Session, queue []domain.Question) outcome {
	if len(queue) == 0 {
		return c.lostState(sess)
	}
	sess.Phase = BuildingSummary{Queue: queue}
	last := AwaitQuestion{Queue: queue, Index: len(queue) - 1}

	sub := intake.BuildSubmission(sess.ServiceType, sess.Answers)
	if err := intake.ValidateSubmission(sub); err != nil {
		c.logger.Info("Intake answers failed validation", "session_id", sess.ID, "error", err)
		back := AwaitQuestion{Queue: queue, Index: invalidQuestion(queue, err)}
		sess.Phase = back
		q := queue[back.Index]
		return outcome{text: msgFixDetails + " " + questionPrompt(q, sess.ServiceType), suggestions: questionSuggestions(q)}
	}

	summary, err := c.backend.Preview(ctx, sess.Token, sub)
	if err != nil {
		c.logger.Warn("Summary preview failed", "session_id", sess.ID, "error", err)
		sess.Phase = last
		q := queue[len(queue)-1]
		return outcome{
			text:        fmt.Sprintf("I could not generate your summary yet: %v. Please answer the last question again so I can retry. %s", err, questionPrompt(q, sess.ServiceType)),
			suggestions: questionSuggestions(q),
		}
	}

	sess.Phase = AwaitConfirmation{Queue: queue, Summary: summary}
	return outcome{text: summaryMessage(summary), suggestions: []string{suggestSubmit, suggestRestart}}
}

// invalidQuestion returns the queue index of the first question whose answer
// failed validation, or the last index when none can be matched.
func invalidQuestion(queue []domain.Question, err error) int {
	var verr *intake.ValidationError
	if errors.As(err, &verr) {
		for i, q := range queue {
			if slices.Contains(verr.Fields, q.ID) {
				return i
			}
		}
	}
	return len(queue) - 1
}

func (c *Controller) onConfirmation(ctx context.Context, sess *Session, p AwaitConfirmation, message string) outcome {
	if !sess.Authenticated() {
		return c.lostState(sess)
	}

	switch confirmationIntent(message) {
	case intentRestart:
		if len(p.Queue) == 0 {
			return c.lostState(sess)
		}
		sess.Phase = AwaitQuestion{Queue: p.Queue, Index: 0}
		first := p.Queue[0]
		return outcome{text: msgEditAnswers + " " + questionPrompt(first, sess.ServiceType), suggestions: questionSuggestions(first)}
	case intentNone:
		return outcome{text: msgConfirmAmbiguous, suggestions: []string{suggestSubmit, suggestRestart}}
	}

	sub := intake.BuildSubmission(sess.ServiceType, sess.Answers)
	res, err := c.backend.Submit(ctx, sess.Token, domain.SubmitRequest{Submission: sub, Summary: p.Summary})
	if err != nil {
		c.logger.Warn("Submission failed", "session_id", sess.ID, "error", err)
		return outcome{text: fmt.Sprintf("I could not submit the request yet. %v", err), suggestions: []string{suggestSubmit, suggestRestart}}
	}

	summary := res.Summary
	if summary == "" {
		summary = p.Summary
	}
	sess.Phase = Done{RequestID: res.RequestID, ItemID: res.Monday.ItemID, MockMode: res.Monday.MockMode, Summary: summary}
	c.logger.Info("Chat request submitted",
		"session_id", sess.ID,
		"request_id", res.RequestID,
		"monday_item_id", res.Monday.ItemID,
		"mock_mode", res.Monday.MockMode)
	return outcome{
		text:        submittedMessage(res.RequestID, res.Monday.ItemID, res.Monday.MockMode),
		suggestions: []string{suggestNewRequest},
	}
}

func (c *Controller) onDone(sess *Session, message string) outcome {
	if restartPattern.MatchString(message) || newReqPattern.MatchString(message) {
		if !sess.Authenticated() {
			sess.Phase = AwaitClientCode{}
			return outcome{text: msgNeedCode}
		}
		sess.resetIntake()
		return outcome{text: msgNewRequest, suggestions: sess.ServiceOptions()}
	}
	return outcome{text: msgDoneIdle, suggestions: []string{suggestNewRequest}}
}

func (c *Controller) lostState(sess *Session) outcome {
	c.logger.Warn("Chat phase out of sync, recovering", "session_id", sess.ID, "phase", sess.Phase.Name())
	if !sess.Authenticated() {
		sess.restart(sess.Generation)
		return outcome{text: msgNeedCode}
	}
	sess.resetIntake()
	return outcome{text: msgLostState, suggestions: sess.ServiceOptions()}
}

func (c *Controller) phaseSuggestions(sess *Session) []string {
	switch p := sess.Phase.(type) {
	case AwaitService:
		return sess.ServiceOptions()
	case AwaitQuestion:
		if q, ok := p.Current(); ok {
			return questionSuggestions(q)
		}
	case AwaitConfirmation:
		return []string{suggestSubmit, suggestRestart}
	case Done:
		return []string{suggestNewRequest}
	}
	return nil
}
