package domain

// QuestionType is the input kind a question expects.
type QuestionType string

const (
	QuestionChoice QuestionType = "choice"
	QuestionText   QuestionType = "text"
	QuestionDate   QuestionType = "date"
	QuestionFile   QuestionType = "file"
)

// Question is a single intake prompt.
type Question struct {
	ID       string       `json:"id"`
	Label    string       `json:"label"`
	Type     QuestionType `json:"question_type"`
	Required bool         `json:"required"`
	Options  []string     `json:"options"`
}

// IntakeOptions is everything a client needs to drive an intake conversation.
type IntakeOptions struct {
	ServiceOptions  []string              `json:"service_options"`
	CoreQuestions   []Question            `json:"core_questions"`
	BranchQuestions map[string][]Question `json:"branch_questions"`
}
