package intake

import (
	"regexp"
	"strings"
)

var (
	codeToken     = regexp.MustCompile(`[A-Za-z0-9_-]{4,}`)
	hasLetter     = regexp.MustCompile(`[A-Za-z]`)
	hasDigit      = regexp.MustCompile(`[0-9]`)
	codeStopWords = map[string]struct{}{
		"my": {}, "client": {}, "code": {}, "id": {}, "is": {}, "name": {},
		"the": {}, "for": {}, "hello": {}, "hi": {}, "please": {},
		"thanks": {}, "support": {},
	}
)

// ExtractClientCodes scans free text for plausible client codes. Candidates
// are upper-cased and returned in the order they first appear.
func ExtractClientCodes(text string) []string {
	var out []string
	seen := make(map[string]struct{})
	for _, token := range codeToken.FindAllString(text, -1) {
		if _, stop := codeStopWords[strings.ToLower(token)]; stop {
			continue
		}
		if !hasLetter.MatchString(token) || !hasDigit.MatchString(token) {
			continue
		}
		upper := strings.ToUpper(token)
		if _, dup := seen[upper]; dup {
			continue
		}
		seen[upper] = struct{}{}
		out = append(out, upper)
	}
	return out
}

// ClientCodeAttempts returns the ordered, de-duplicated list of codes to try
// for a message: the raw trimmed message first, then extracted candidates.
func ClientCodeAttempts(message string) []string {
	candidates := append([]string{message}, ExtractClientCodes(message)...)
	var out []string
	seen := make(map[string]struct{})
	for _, c := range candidates {
		c = strings.ToUpper(strings.TrimSpace(c))
		if c == "" {
			continue
		}
		if _, dup := seen[c]; dup {
			continue
		}
		seen[c] = struct{}{}
		out = append(out, c)
	}
	return out
}
