package chat

import "github.com/ashureev/biabot/internal/domain"

// PhaseName is the wire name of a conversation phase.
type PhaseName string

const (
	PhaseAwaitClientCode   PhaseName = "await_client_code"
	PhaseAwaitService      PhaseName = "await_service"
	PhaseAwaitQuestion     PhaseName = "await_question"
	PhaseBuildingSummary   PhaseName = "building_summary"
	PhaseAwaitConfirmation PhaseName = "await_confirmation"
	PhaseDone              PhaseName = "done"
)

// Phase is the current step of a conversation. Each concrete phase carries
// only the data that is valid while the session is in it.
type Phase interface {
	Name() PhaseName
	isPhase()
}

// AwaitClientCode waits for the user to identify their account.
type AwaitClientCode struct {
	Attempts int
}

// AwaitService waits for a service selection.
type AwaitService struct {
	Attempts int
}

// AwaitQuestion waits for an answer to Queue[Index].
type AwaitQuestion struct {
	Queue []domain.Question
	Index int
}

// BuildingSummary is held while the summary preview is being generated.
type BuildingSummary struct {
	Queue []domain.Question
}

// AwaitConfirmation shows Summary and waits for submit or restart.
type AwaitConfirmation struct {
	Queue   []domain.Question
	Summary string
}

// Done holds the result of a successful submission.
type Done struct {
	RequestID string
	ItemID    string
	MockMode  bool
	Summary   string
}

func (AwaitClientCode) Name() PhaseName   { return PhaseAwaitClientCode }
func (AwaitService) Name() PhaseName      { return PhaseAwaitService }
func (AwaitQuestion) Name() PhaseName     { return PhaseAwaitQuestion }
func (BuildingSummary) Name() PhaseName   { return PhaseBuildingSummary }
func (AwaitConfirmation) Name() PhaseName { return PhaseAwaitConfirmation }
func (Done) Name() PhaseName              { return PhaseDone }

func (AwaitClientCode) isPhase()   {}
func (AwaitService) isPhase()      {}
func (AwaitQuestion) isPhase()     {}
func (BuildingSummary) isPhase()   {}
func (AwaitConfirmation) isPhase() {}
func (Done) isPhase()              {}

// Current returns the question being asked, or false if the index is out of range.
func (p AwaitQuestion) Current() (domain.Question, bool) {
	if p.Index < 0 || p.Index >= len(p.Queue) {
		return domain.Question{}, false
	}
	return p.Queue[p.Index], true
}

// Remaining returns the number of questions after the current one.
func (p AwaitQuestion) Remaining() int {
	if p.Index >= len(p.Queue) {
		return 0
	}
	return len(p.Queue) - p.Index - 1
}
