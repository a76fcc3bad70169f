package chat

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/ashureev/biabot/internal/domain"
)

// Role identifies the author of a transcript message.
type Role string

const (
	RoleBot  Role = "bot"
	RoleUser Role = "user"
)

// Message is a single transcript entry.
type Message struct {
	Role Role      `json:"role"`
	Text string    `json:"text"`
	At   time.Time `json:"at"`
}

// Session is the state of one intake conversation.
type Session struct {
	ID string
	// Generation increases on every reset or logout. Work started under an
	// older generation is discarded instead of applied.
	Generation  uint64
	Phase       Phase
	Transcript  []Message
	Suggestions []string
	Answers     map[string]string
	Profile     *domain.ClientProfile
	Token       string
	Options     *domain.IntakeOptions
	ServiceType string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func newSession(id string, generation uint64, now time.Time) *Session {
	return &Session{
		ID:         id,
		Generation: generation,
		Phase:      AwaitClientCode{},
		Answers:    map[string]string{},
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

// Authenticated reports whether a client profile has been verified.
func (s *Session) Authenticated() bool {
	return s.Profile != nil
}

// ServiceOptions returns the service list offered to this session.
func (s *Session) ServiceOptions() []string {
	if s.Options == nil {
		return nil
	}
	return s.Options.ServiceOptions
}

// resetIntake clears everything collected for the current request but keeps
// the authenticated profile.
func (s *Session) resetIntake() {
	s.Phase = AwaitService{}
	s.ServiceType = ""
	s.Answers = map[string]string{}
	if s.Profile != nil && s.Profile.DefaultApprover != "" {
		s.Answers["approver"] = s.Profile.DefaultApprover
	}
}

// restart signs the session out and returns it to the first phase. The id
// and transcript are kept.
func (s *Session) restart(generation uint64) {
	transcript := s.Transcript
	*s = *newSession(s.ID, generation, s.CreatedAt)
	s.Transcript = transcript
}

func (s *Session) appendMessage(role Role, text string, at time.Time) {
	s.Transcript = append(s.Transcript, Message{Role: role, Text: text, At: at})
}

type phaseRecord struct {
	Name      PhaseName         `json:"name"`
	Attempts  int               `json:"attempts,omitempty"`
	Queue     []domain.Question `json:"queue,omitempty"`
	Index     int               `json:"index,omitempty"`
	Summary   string            `json:"summary,omitempty"`
	RequestID string            `json:"request_id,omitempty"`
	ItemID    string            `json:"item_id,omitempty"`
	MockMode  bool              `json:"mock_mode,omitempty"`
}

type sessionRecord struct {
	ID          string                `json:"id"`
	Generation  uint64                `json:"generation"`
	Phase       phaseRecord           `json:"phase"`
	Transcript  []Message             `json:"transcript"`
	Suggestions []string              `json:"suggestions"`
	Answers     map[string]string     `json:"answers"`
	Profile     *domain.ClientProfile `json:"profile,omitempty"`
	Token       string                `json:"token,omitempty"`
	Options     *domain.IntakeOptions `json:"options,omitempty"`
	ServiceType string                `json:"service_type,omitempty"`
	CreatedAt   time.Time             `json:"created_at"`
	UpdatedAt   time.Time             `json:"updated_at"`
}

// MarshalJSON encodes the session with its phase flattened into a tagged record.
func (s *Session) MarshalJSON() ([]byte, error) {
	rec := sessionRecord{
		ID:          s.ID,
		Generation:  s.Generation,
		Transcript:  s.Transcript,
		Suggestions: s.Suggestions,
		Answers:     s.Answers,
		Profile:     s.Profile,
		Token:       s.Token,
		Options:     s.Options,
		ServiceType: s.ServiceType,
		CreatedAt:   s.CreatedAt,
		UpdatedAt:   s.UpdatedAt,
	}
	switch p := s.Phase.(type) {
	case AwaitClientCode:
		rec.Phase = phaseRecord{Name: p.Name(), Attempts: p.Attempts}
	case AwaitService:
		rec.Phase = phaseRecord{Name: p.Name(), Attempts: p.Attempts}
	case AwaitQuestion:
		rec.Phase = phaseRecord{Name: p.Name(), Queue: p.Queue, Index: p.Index}
	case BuildingSummary:
		rec.Phase = phaseRecord{Name: p.Name(), Queue: p.Queue}
	case AwaitConfirmation:
		rec.Phase = phaseRecord{Name: p.Name(), Queue: p.Queue, Summary: p.Summary}
	case Done:
		rec.Phase = phaseRecord{Name: p.Name(), RequestID: p.RequestID, ItemID: p.ItemID, MockMode: p.MockMode, Summary: p.Summary}
	case nil:
		rec.Phase = phaseRecord{Name: PhaseAwaitClientCode}
	default:
		return nil, fmt.Errorf("unknown phase %T", s.Phase)
	}
	return json.Marshal(rec)
}

// UnmarshalJSON decodes a session written by MarshalJSON.
func (s *Session) UnmarshalJSON(data []byte) error {
	var rec sessionRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return err
	}
	var phase Phase
	switch rec.Phase.Name {
	case PhaseAwaitClientCode, "":
		phase = AwaitClientCode{Attempts: rec.Phase.Attempts}
	case PhaseAwaitService:
		phase = AwaitService{Attempts: rec.Phase.Attempts}
	case PhaseAwaitQuestion:
		phase = AwaitQuestion{Queue: rec.Phase.Queue, Index: rec.Phase.Index}
	case PhaseBuildingSummary:
		phase = BuildingSummary{Queue: rec.Phase.Queue}
	case PhaseAwaitConfirmation:
		phase = AwaitConfirmation{Queue: rec.Phase.Queue, Summary: rec.Phase.Summary}
	case PhaseDone:
		phase = Done{RequestID: rec.Phase.RequestID, ItemID: rec.Phase.ItemID, MockMode: rec.Phase.MockMode, Summary: rec.Phase.Summary}
	default:
		return fmt.Errorf("unknown phase %q", rec.Phase.Name)
	}
	if rec.Answers == nil {
		rec.Answers = map[string]string{}
	}
	*s = Session{
		ID:          rec.ID,
		Generation:  rec.Generation,
		Phase:       phase,
		Transcript:  rec.Transcript,
		Suggestions: rec.Suggestions,
		Answers:     rec.Answers,
		Profile:     rec.Profile,
		Token:       rec.Token,
		Options:     rec.Options,
		ServiceType: rec.ServiceType,
		CreatedAt:   rec.CreatedAt,
		UpdatedAt:   rec.UpdatedAt,
	}
	return nil
}
