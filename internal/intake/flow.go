package intake

import "github.com/ashureev/biabot/internal/domain"

// UploadQuestionID is the trailing optional attachment question.
const UploadQuestionID = "uploaded_files"

// FallbackBranch is used when a service has no branch questions configured.
const FallbackBranch = "Other"

var yesNo = []string{"Yes", "No"}

// DefaultServiceOptions is the global service list used until an admin sets one.
var DefaultServiceOptions = []string{
	"Campaign set (up to 6 assets)",
	"Custom graphic",
	"Moderate layout graphic",
	"Internal newsletter (up to 3 pages)",
	"External newsletter (up to 3 pages)",
	"Press release",
	"Press release package",
	"Other",
}

// CoreQuestions are asked for every service, before branch questions.
var CoreQuestions = []domain.Question{
	text("project_title", "Project Title", true),
	text("goal", "Goal (desired outcome)", true),
	text("target_audience", "Target Audience", true),
	text("primary_cta", "Primary CTA", true),
	choice("time_sensitivity", "Time Sensitivity", domain.SensitivityStandard, domain.SensitivitySoon, domain.SensitivityUrgent),
	{ID: "due_date", Label: "Due Date", Type: domain.QuestionDate, Required: true},
	text("approver", "Approver", true),
	text("required_elements", "Required elements (logos, disclaimers, QR codes, etc.)", true),
	text("references", "References / links (comma-separated)", false),
}

var (
	graphicBranch = []domain.Question{
		text("dimensions", "Dimensions / format", true),
		choice("copy_provided", "Copy provided?", yesNo...),
		choice("bilingual", "Bilingual?", yesNo...),
		text("image_source", "Stock or provided images?", true),
		text("accessibility", "Accessibility requirements", false),
	}
	newsletterBranch = []domain.Question{
		text("newsletter_tone", "Internal or external tone", true),
		text("sections", "Sections required", true),
		text("content_status", "Content provided or drafted?", true),
		text("metrics", "Metrics to include", false),
		text("distribution", "Distribution channel", true),
	}
	pressBranch = []domain.Question{
		text("announcement_summary", "Announcement summary", true),
		choice("quotes_needed", "Quotes needed?", yesNo...),
		choice("boilerplate", "Boilerplate inclusion", yesNo...),
		text("media_targets", "Media targets", true),
		text("assets_needed", "Assets needed", false),
	}
)

// BranchQuestions holds the service-specific questions keyed by service option.
var BranchQuestions = map[string][]domain.Question{
	"Custom graphic":                      graphicBranch,
	"Moderate layout graphic":             graphicBranch,
	"Internal newsletter (up to 3 pages)": newsletterBranch,
	"External newsletter (up to 3 pages)": newsletterBranch,
	"Press release":                       pressBranch,
	"Press release package":               pressBranch,
	"Campaign set (up to 6 assets)": {
		text("channels", "Channels required", true),
		text("asset_list", "Asset list", true),
		text("launch_timeline", "Launch timeline", true),
		choice("paid_promo", "Paid promotion required?", yesNo...),
	},
	"Other": {
		text("open_description", "Open description", true),
		text("desired_output", "Desired output format", true),
		text("clarifications", "Clarifying follow-ups", false),
	},
}

// UploadQuestion is appended to every queue.
var UploadQuestion = domain.Question{
	ID:    UploadQuestionID,
	Label: "Any files to attach? Share filenames or links.",
	Type:  domain.QuestionFile,
}

// DefaultOptions returns the built-in question set with the given services.
func DefaultOptions(services []string) domain.IntakeOptions {
	return domain.IntakeOptions{
		ServiceOptions:  services,
		CoreQuestions:   CoreQuestions,
		BranchQuestions: BranchQuestions,
	}
}

// BuildQueue returns the fixed question queue for a service: core questions,
// then the branch, then the optional upload question. Returns nil when the
// options carry neither core nor branch questions for the service.
func BuildQueue(opts domain.IntakeOptions, service string) []domain.Question {
	branch, ok := opts.BranchQuestions[service]
	if !ok {
		branch = opts.BranchQuestions[FallbackBranch]
	}
	if len(opts.CoreQuestions) == 0 && len(branch) == 0 {
		return nil
	}
	queue := make([]domain.Question, 0, len(opts.CoreQuestions)+len(branch)+1)
	queue = append(queue, opts.CoreQuestions...)
	queue = append(queue, branch...)
	return append(queue, UploadQuestion)
}

func text(id, label string, required bool) domain.Question {
	return domain.Question{ID: id, Label: label, Type: domain.QuestionText, Required: required}
}

func choice(id, label string, options ...string) domain.Question {
	return domain.Question{ID: id, Label: label, Type: domain.QuestionChoice, Required: true, Options: options}
}
