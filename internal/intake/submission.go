package intake

import (
	"fmt"
	"sort"
	"strings"

	"github.com/ashureev/biabot/internal/domain"
)

// coreFields are answer keys that map onto top-level submission fields.
// Everything else lands in BranchAnswers.
var coreFields = map[string]struct{}{
	"project_title":     {},
	"goal":              {},
	"target_audience":   {},
	"primary_cta":       {},
	"time_sensitivity":  {},
	"due_date":          {},
	"approver":          {},
	"required_elements": {},
	"references":        {},
	"uploaded_files":    {},
	"notes":             {},
}

// IsCoreField reports whether id is one of the fixed submission fields.
func IsCoreField(id string) bool {
	_, ok := coreFields[id]
	return ok
}

// BuildSubmission assembles the submission payload from a service type and
// the collected answers.
func BuildSubmission(serviceType string, answers map[string]string) domain.Submission {
	sensitivity := strings.TrimSpace(answers["time_sensitivity"])
	if sensitivity == "" {
		sensitivity = domain.SensitivityStandard
	}

	sub := domain.Submission{
		ServiceType:      serviceType,
		ProjectTitle:     strings.TrimSpace(answers["project_title"]),
		Goal:             strings.TrimSpace(answers["goal"]),
		TargetAudience:   strings.TrimSpace(answers["target_audience"]),
		PrimaryCTA:       strings.TrimSpace(answers["primary_cta"]),
		TimeSensitivity:  sensitivity,
		DueDate:          strings.TrimSpace(answers["due_date"]),
		Approver:         optional(answers["approver"]),
		RequiredElements: optional(answers["required_elements"]),
		References:       nonNil(ParseLinksAndFiles(answers["references"])),
		UploadedFiles:    nonNil(ParseLinksAndFiles(answers["uploaded_files"])),
		BranchAnswers:    map[string]any{},
		Notes:            optional(answers["notes"]),
	}

	for key, value := range answers {
		if IsCoreField(key) {
			continue
		}
		if value = strings.TrimSpace(value); value != "" {
			sub.BranchAnswers[key] = value
		}
	}
	return sub
}

// ValidationError names the submission fields that failed validation.
type ValidationError struct {
	Fields []string
	msg    string
}

func (e *ValidationError) Error() string { return e.msg }

// ValidateSubmission checks the fields a preview or submit requires. Failures
// are returned as *ValidationError.
func ValidateSubmission(sub domain.Submission) error {
	var missing []string
	for name, value := range map[string]string{
		"service_type":    sub.ServiceType,
		"project_title":   sub.ProjectTitle,
		"goal":            sub.Goal,
		"target_audience": sub.TargetAudience,
		"primary_cta":     sub.PrimaryCTA,
	} {
		if strings.TrimSpace(value) == "" {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return &ValidationError{Fields: missing, msg: "missing required fields: " + strings.Join(missing, ", ")}
	}
	if !domain.ValidSensitivity(sub.TimeSensitivity) {
		return &ValidationError{Fields: []string{"time_sensitivity"}, msg: "time_sensitivity must be one of Standard, Soon, Urgent"}
	}
	if !sub.ValidDueDate() {
		return &ValidationError{Fields: []string{"due_date"}, msg: fmt.Sprintf("due_date %q is not a valid YYYY-MM-DD date", sub.DueDate)}
	}
	return nil
}

func optional(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

func nonNil(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}
