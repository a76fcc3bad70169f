// Package intake holds the pure answer-handling logic of the intake flow:
// option matching, field normalization, client-code extraction and
// submission building. Nothing in this package performs I/O.
package intake

import (
	"regexp"
	"strings"
)

var (
	nonAlnum   = regexp.MustCompile(`[^a-z0-9]+`)
	yesPattern = regexp.MustCompile(`(?i)^(yes|y|yeah|yep)$`)
	noPattern  = regexp.MustCompile(`(?i)^(no|n|nope)$`)
)

// keywordAlias maps a trigger keyword in the input to a substring that must
// appear in the chosen option. Scanned in order; first hit wins.
var keywordAliases = []struct {
	keyword string
	alias   string
}{
	{"campaign", "campaign"},
	{"graphic", "graphic"},
	{"newsletter", "newsletter"},
	{"press", "press release"},
	{"other", "other"},
	{"urgent", "urgent"},
	{"soon", "soon"},
	{"standard", "standard"},
}

// NormalizeText lower-cases s and collapses non-alphanumeric runs to a single space.
func NormalizeText(s string) string {
	return strings.TrimSpace(nonAlnum.ReplaceAllString(strings.ToLower(s), " "))
}

// MatchOption returns the option that best matches input and true, or ""
// and false when nothing matches. Options are tried in their given order.
func MatchOption(input string, options []string) (string, bool) {
	if len(options) == 0 {
		return "", false
	}
	in := NormalizeText(input)
	if in == "" {
		return "", false
	}

	normalized := make([]string, len(options))
	for i, opt := range options {
		normalized[i] = NormalizeText(opt)
	}

	for i, opt := range normalized {
		if opt != "" && opt == in {
			return options[i], true
		}
	}

	for i, opt := range normalized {
		if opt == "" {
			continue
		}
		if strings.Contains(in, opt) || strings.Contains(opt, in) {
			return options[i], true
		}
	}

	for _, ka := range keywordAliases {
		if !strings.Contains(in, ka.keyword) {
			continue
		}
		for i, opt := range normalized {
			if strings.Contains(opt, ka.alias) {
				return options[i], true
			}
		}
	}

	if yesIdx, noIdx, ok := yesNoOptions(normalized); ok {
		trimmed := strings.TrimSpace(input)
		switch {
		case yesPattern.MatchString(trimmed):
			return options[yesIdx], true
		case noPattern.MatchString(trimmed):
			return options[noIdx], true
		}
	}

	return "", false
}

// yesNoOptions reports whether the option set is exactly {yes, no}.
func yesNoOptions(normalized []string) (yesIdx, noIdx int, ok bool) {
	if len(normalized) != 2 {
		return 0, 0, false
	}
	yesIdx, noIdx = -1, -1
	for i, opt := range normalized {
		switch opt {
		case "yes":
			yesIdx = i
		case "no":
			noIdx = i
		}
	}
	return yesIdx, noIdx, yesIdx >= 0 && noIdx >= 0
}
