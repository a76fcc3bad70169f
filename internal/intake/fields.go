package intake

import (
	"regexp"
	"slices"
	"strings"
)

var (
	urlPattern  = regexp.MustCompile(`(?i)https?://[^\s,;]+`)
	filePattern = regexp.MustCompile(`(?i)\b[^\s,;]+\.(?:pdf|docx?|pptx?|xlsx?|csv|png|jpe?g|gif|zip|txt)\b`)

	// "my project title is X", "our goal: X", "the audience = X".
	genericPrefix = regexp.MustCompile(`(?i)^(?:my|our|the)\s+[a-z0-9_\s-]{2,40}?(?:\s+is\b|\s*[=:])\s*`)
)

// linkFields are answers parsed for URLs and file names.
var linkFields = map[string]struct{}{
	"references":     {},
	UploadQuestionID: {},
}

// IsLinkField reports whether answers to id hold links or file names.
func IsLinkField(id string) bool {
	_, ok := linkFields[id]
	return ok
}

// CleanFieldPrefix strips a restatement of the question from the start of a
// free-text answer, so "my project title is Spring flyer" becomes
// "Spring flyer". The answer is returned unchanged when nothing would remain.
func CleanFieldPrefix(value, questionID, label string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return value
	}

	tokens := []string{strings.TrimSpace(strings.ReplaceAll(questionID, "_", " "))}
	if label != "" {
		tokens = append(tokens, NormalizeText(label))
	}
	for _, token := range tokens {
		if token == "" {
			continue
		}
		pattern := regexp.MustCompile(`(?i)^(?:(?:my|our|the)\s+)?` + strings.ReplaceAll(regexp.QuoteMeta(token), " ", `\s+`) + `\b\s*(?:is\b|=|:)?\s*`)
		if updated := strings.TrimSpace(pattern.ReplaceAllString(value, "")); updated != "" && updated != value {
			return updated
		}
	}

	if updated := strings.TrimSpace(genericPrefix.ReplaceAllString(value, "")); updated != "" {
		return updated
	}
	return value
}

// ParseLinksAndFiles returns the URLs and then the file names found in s,
// de-duplicated in order. Text with neither is split as a plain list.
func ParseLinksAndFiles(s string) []string {
	found := append(urlPattern.FindAllString(s, -1), filePattern.FindAllString(s, -1)...)
	if len(found) == 0 {
		return SplitList(s)
	}
	out := make([]string, 0, len(found))
	for _, v := range found {
		if !slices.Contains(out, v) {
			out = append(out, v)
		}
	}
	return out
}
