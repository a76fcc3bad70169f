package intake

import (
	"regexp"
	"strings"
	"time"

	"github.com/ashureev/biabot/internal/domain"
)

// User-facing rejection messages.
const (
	MsgRequired     = "I need a response for this item before I can continue."
	MsgChooseOption = "Please choose one of the available options."
	MsgInvalidDate  = "Please provide a valid date. Use YYYY-MM-DD or a natural format like March 5, 2026."
)

var (
	skipPattern    = regexp.MustCompile(`(?i)^(skip|none|na|n/a)$`)
	ordinalSuffix  = regexp.MustCompile(`(?i)\b(\d+)(st|nd|rd|th)\b`)
	isoDate        = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
	nextWeekday    = regexp.MustCompile(`^next\s+(monday|tuesday|wednesday|thursday|friday|saturday|sunday)$`)
	listSeparators = regexp.MustCompile(`[,;\n]`)
)

var dateLayouts = []string{
	"01/02/2006",
	"1/2/2006",
	"01/02/06",
	"1/2/06",
	"01-02-2006",
	"01-02-06",
	"January 2, 2006",
	"January 2 2006",
	"Jan 2, 2006",
	"Jan 2 2006",
	"2 January 2006",
	"2 Jan 2006",
}

var weekdays = map[string]time.Weekday{
	"sunday":    time.Sunday,
	"monday":    time.Monday,
	"tuesday":   time.Tuesday,
	"wednesday": time.Wednesday,
	"thursday":  time.Thursday,
	"friday":    time.Friday,
	"saturday":  time.Saturday,
}

// Result is the outcome of normalizing one answer. When OK is false, Message
// is shown to the user and Options, if any, should be offered again.
type Result struct {
	OK      bool     `json:"ok"`
	Value   string   `json:"normalized_value"`
	Message string   `json:"message,omitempty"`
	Options []string `json:"options"`
}

// Skipped reports whether an accepted result means the question was skipped.
func (r Result) Skipped() bool {
	return r.OK && r.Value == ""
}

// Normalizer converts raw answers into typed values.
type Normalizer struct {
	now func() time.Time
}

// NewNormalizer returns a Normalizer that resolves relative dates against now.
// A nil now uses time.Now.
func NewNormalizer(now func() time.Time) *Normalizer {
	if now == nil {
		now = time.Now
	}
	return &Normalizer{now: now}
}

// Normalize validates raw against q using the wall clock for relative dates.
func Normalize(q domain.Question, raw string) Result {
	return NewNormalizer(nil).Normalize(q, raw)
}

// Normalize validates raw against q.
func (n *Normalizer) Normalize(q domain.Question, raw string) Result {
	value := strings.TrimSpace(raw)

	if !q.Required && (value == "" || skipPattern.MatchString(value)) {
		return Result{OK: true}
	}
	if q.Required && value == "" {
		return Result{Message: MsgRequired, Options: q.Options}
	}

	switch q.Type {
	case domain.QuestionChoice:
		matched, ok := MatchOption(value, q.Options)
		if !ok {
			return Result{Message: MsgChooseOption, Options: q.Options}
		}
		return Result{OK: true, Value: matched}
	case domain.QuestionDate:
		date, ok := n.ParseDate(value)
		if !ok {
			return Result{Message: MsgInvalidDate}
		}
		return Result{OK: true, Value: date}
	default:
		if IsLinkField(q.ID) {
			return Result{OK: true, Value: strings.Join(ParseLinksAndFiles(value), ", ")}
		}
		return Result{OK: true, Value: CleanFieldPrefix(value, q.ID, q.Label)}
	}
}

// ParseDate resolves a free-text date to YYYY-MM-DD.
func (n *Normalizer) ParseDate(input string) (string, bool) {
	cleaned := strings.TrimSpace(ordinalSuffix.ReplaceAllString(input, "$1"))
	if cleaned == "" {
		return "", false
	}

	today := n.now()
	lowered := strings.Join(strings.Fields(strings.ToLower(cleaned)), " ")
	switch lowered {
	case "today":
		return today.Format(time.DateOnly), true
	case "tomorrow", "tmr", "tmrw":
		return today.AddDate(0, 0, 1).Format(time.DateOnly), true
	}
	if m := nextWeekday.FindStringSubmatch(lowered); m != nil {
		ahead := (int(weekdays[m[1]]) - int(today.Weekday()) + 7) % 7
		if ahead == 0 {
			ahead = 7
		}
		return today.AddDate(0, 0, ahead).Format(time.DateOnly), true
	}

	if isoDate.MatchString(cleaned) {
		if _, err := time.Parse(time.DateOnly, cleaned); err != nil {
			return "", false
		}
		return cleaned, true
	}

	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, cleaned); err == nil {
			return t.Format(time.DateOnly), true
		}
	}
	if t, err := time.Parse(time.RFC3339, cleaned); err == nil {
		return t.Format(time.DateOnly), true
	}
	return "", false
}

// SplitList splits delimited free text on commas, semicolons and newlines,
// dropping empty entries.
func SplitList(s string) []string {
	var out []string
	for _, part := range listSeparators.Split(s, -1) {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// AnswerRequest describes one answer to validate outside a conversation.
type AnswerRequest struct {
	QuestionID    string              `json:"question_id"`
	QuestionType  domain.QuestionType `json:"question_type"`
	AnswerText    string              `json:"answer_text"`
	Required      *bool               `json:"required"`
	Options       []string            `json:"options"`
	QuestionLabel string              `json:"question_label,omitempty"`
}

// Question builds the question the answer is checked against. Required
// defaults to true.
func (r AnswerRequest) Question() domain.Question {
	required := true
	if r.Required != nil {
		required = *r.Required
	}
	return domain.Question{
		ID:       r.QuestionID,
		Label:    r.QuestionLabel,
		Type:     r.QuestionType,
		Required: required,
		Options:  r.Options,
	}
}
