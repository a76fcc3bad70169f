package intake

import (
	"fmt"
	"sort"
	"strings"

	"github.com/ashureev/biabot/internal/domain"
)

// FallbackSummary renders the deterministic plain-text summary used when no
// language model is configured or the model call fails.
func FallbackSummary(profile domain.ClientProfile, sub domain.Submission) string {
	links := sub.References
	if len(links) == 0 {
		links = []string{"None provided"}
	}
	files := sub.UploadedFiles
	if len(files) == 0 {
		files = []string{"None"}
	}
	approver := deref(sub.Approver)
	if approver == "" {
		approver = profile.DefaultApprover
	}
	if approver == "" {
		approver = "Not specified"
	}
	required := deref(sub.RequiredElements)
	if required == "" {
		required = "None specified"
	}
	name := profile.ClientName
	if name == "" {
		name = "Unknown"
	}

	lines := []string{
		fmt.Sprintf("Client: %s (%s)", name, profile.ClientCode),
		"Project Title: " + sub.ProjectTitle,
		"Deliverable: " + sub.ServiceType,
		"Goal: " + sub.Goal,
		"Audience: " + sub.TargetAudience,
		"CTA: " + sub.PrimaryCTA,
		"Due Date: " + sub.DueDate,
		"Urgency: " + sub.TimeSensitivity,
		"Approver: " + approver,
		"Required Elements: " + required,
		"Links: " + strings.Join(links, ", "),
		"Files: " + strings.Join(files, ", "),
	}

	if len(sub.BranchAnswers) > 0 {
		keys := make([]string, 0, len(sub.BranchAnswers))
		for k := range sub.BranchAnswers {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		lines = append(lines, "Branch Details:")
		for _, k := range keys {
			lines = append(lines, fmt.Sprintf("- %s: %v", k, sub.BranchAnswers[k]))
		}
	}
	if notes := deref(sub.Notes); notes != "" {
		lines = append(lines, "Notes: "+notes)
	}
	return strings.Join(lines, "\n")
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
