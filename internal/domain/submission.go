package domain

import "time"

// TimeSensitivity values accepted for a submission.
const (
	SensitivityStandard = "Standard"
	SensitivitySoon     = "Soon"
	SensitivityUrgent   = "Urgent"
)

// Submission is the fixed intake payload sent for preview and submit.
type Submission struct {
	ServiceType      string         `json:"service_type"`
	ProjectTitle     string         `json:"project_title"`
	Goal             string         `json:"goal"`
	TargetAudience   string         `json:"target_audience"`
	PrimaryCTA       string         `json:"primary_cta"`
	TimeSensitivity  string         `json:"time_sensitivity"`
	DueDate          string         `json:"due_date"`
	Approver         *string        `json:"approver"`
	RequiredElements *string        `json:"required_elements"`
	References       []string       `json:"references"`
	UploadedFiles    []string       `json:"uploaded_files"`
	BranchAnswers    map[string]any `json:"branch_answers"`
	Notes            *string        `json:"notes"`
}

// SubmitRequest is a submission together with the summary the client
// confirmed. An empty Summary is generated at submit time.
type SubmitRequest struct {
	Submission
	Summary string `json:"summary,omitempty"`
}

// ValidSensitivity reports whether s is an accepted time sensitivity value.
func ValidSensitivity(s string) bool {
	switch s {
	case SensitivityStandard, SensitivitySoon, SensitivityUrgent:
		return true
	}
	return false
}

// ValidDueDate reports whether the due date is a real calendar date.
func (s *Submission) ValidDueDate() bool {
	_, err := time.Parse(time.DateOnly, s.DueDate)
	return err == nil
}

// RequestLog is a persisted record of a finalized submission.
type RequestLog struct {
	ID           string     `json:"id"`
	CreatedAt    time.Time  `json:"created_at"`
	ClientCode   string     `json:"client_code"`
	ClientName   string     `json:"client_name"`
	ServiceType  string     `json:"service_type"`
	ProjectTitle string     `json:"project_title"`
	Summary      string     `json:"summary"`
	MondayItemID string     `json:"monday_item_id,omitempty"`
	Payload      Submission `json:"payload"`
}
