package intake

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ashureev/biabot/internal/domain"
)

func TestBuildSubmissionSplitsAndBranches(t *testing.T) {
	t.Parallel()

	sub := BuildSubmission("Campaign set (up to 6 assets)", map[string]string{
		"project_title": "X",
		"references":    "a, b",
		"channels":      "email; social",
	})

	assert.Equal(t, "X", sub.ProjectTitle)
	assert.Equal(t, []string{"a", "b"}, sub.References)
	assert.Equal(t, []string{}, sub.UploadedFiles)
	assert.Equal(t, "email; social", sub.BranchAnswers["channels"])
	assert.NotContains(t, sub.BranchAnswers, "references")
	assert.Equal(t, domain.SensitivityStandard, sub.TimeSensitivity)
	assert.Nil(t, sub.Approver)
	assert.Nil(t, sub.RequiredElements)
	assert.Nil(t, sub.Notes)
}

func TestBuildSubmissionDropsEmptyBranchAnswers(t *testing.T) {
	t.Parallel()

	sub := BuildSubmission("Other", map[string]string{
		"open_description": "brochure",
		"clarifications":   "",
		"approver":         "Lupita R.",
		"uploaded_files":   "brief.pdf\nlogo.png",
	})

	assert.Equal(t, map[string]any{"open_description": "brochure"}, sub.BranchAnswers)
	require.NotNil(t, sub.Approver)
	assert.Equal(t, "Lupita R.", *sub.Approver)
	assert.Equal(t, []string{"brief.pdf", "logo.png"}, sub.UploadedFiles)
}

func TestBuildSubmissionDeterministic(t *testing.T) {
	t.Parallel()

	answers := map[string]string{
		"project_title": "Spring hiring", "goal": "applicants", "channels": "email",
		"asset_list": "banner", "references": "https://a.example, https://b.example",
	}
	assert.Equal(t, BuildSubmission("Campaign set (up to 6 assets)", answers),
		BuildSubmission("Campaign set (up to 6 assets)", answers))
}

func TestValidateSubmission(t *testing.T) {
	t.Parallel()

	sub := BuildSubmission("Other", map[string]string{
		"project_title": "T", "goal": "G", "target_audience": "A", "primary_cta": "C",
		"due_date": "2026-03-05",
	})
	require.NoError(t, ValidateSubmission(sub))

	sub.DueDate = "2026-02-30"
	var verr *ValidationError
	require.ErrorAs(t, ValidateSubmission(sub), &verr)
	assert.Equal(t, []string{"due_date"}, verr.Fields)

	sub.DueDate = "2026-03-05"
	sub.Goal = ""
	sub.PrimaryCTA = ""
	err := ValidateSubmission(sub)
	assert.ErrorContains(t, err, "missing required fields: goal, primary_cta")
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, []string{"goal", "primary_cta"}, verr.Fields)
}

func TestFallbackSummary(t *testing.T) {
	t.Parallel()

	profile := domain.ClientProfile{ClientCode: "READYONE01", ClientName: "ReadyOne Industries", DefaultApprover: "Lupita R."}
	sub := BuildSubmission("Custom graphic", map[string]string{
		"project_title": "Job fair flyer", "goal": "Turnout", "target_audience": "job seekers",
		"primary_cta": "Register", "due_date": "2026-03-05", "dimensions": "8.5x11", "bilingual": "Yes",
	})

	summary := FallbackSummary(profile, sub)
	assert.Contains(t, summary, "Client: ReadyOne Industries (READYONE01)")
	assert.Contains(t, summary, "Approver: Lupita R.")
	assert.Contains(t, summary, "Links: None provided")
	assert.Contains(t, summary, "Branch Details:\n- bilingual: Yes\n- dimensions: 8.5x11")
}
