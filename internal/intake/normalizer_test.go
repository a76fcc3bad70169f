package intake

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ashureev/biabot/internal/domain"
)

// 2026-03-04 is a Wednesday.
func fixedNow() time.Time {
	return time.Date(2026, time.March, 4, 10, 0, 0, 0, time.UTC)
}

func TestNormalizeSkipOptional(t *testing.T) {
	t.Parallel()

	n := NewNormalizer(fixedNow)
	for _, qt := range []domain.QuestionType{domain.QuestionText, domain.QuestionDate, domain.QuestionChoice, domain.QuestionFile} {
		q := domain.Question{ID: "x", Type: qt, Options: []string{"Yes", "No"}}
		for _, input := range []string{"skip", "SKIP", "None", "na", "N/A", "n/a", "", "   "} {
			res := n.Normalize(q, input)
			assert.True(t, res.OK, "type %s input %q", qt, input)
			assert.True(t, res.Skipped(), "type %s input %q", qt, input)
		}
	}
}

func TestNormalizeRequiredEmptyRejected(t *testing.T) {
	t.Parallel()

	n := NewNormalizer(fixedNow)
	for _, qt := range []domain.QuestionType{domain.QuestionText, domain.QuestionDate, domain.QuestionChoice, domain.QuestionFile} {
		q := domain.Question{ID: "x", Type: qt, Required: true}
		res := n.Normalize(q, "  \t ")
		assert.False(t, res.OK, "type %s", qt)
		assert.Equal(t, MsgRequired, res.Message)
	}
}

func TestNormalizeRequiredSkipWordIsAnAnswer(t *testing.T) {
	t.Parallel()

	res := Normalize(domain.Question{ID: "goal", Type: domain.QuestionText, Required: true}, "none")
	require.True(t, res.OK)
	assert.Equal(t, "none", res.Value)
}

func TestNormalizeChoice(t *testing.T) {
	t.Parallel()

	q := domain.Question{ID: "time_sensitivity", Type: domain.QuestionChoice, Required: true, Options: []string{"Standard", "Soon", "Urgent"}}

	res := Normalize(q, "it's urgent")
	require.True(t, res.OK)
	assert.Equal(t, "Urgent", res.Value)

	res = Normalize(q, "whenever")
	assert.False(t, res.OK)
	assert.Equal(t, MsgChooseOption, res.Message)
	assert.Equal(t, q.Options, res.Options)
}

func TestNormalizeDate(t *testing.T) {
	t.Parallel()

	n := NewNormalizer(fixedNow)
	q := domain.Question{ID: "due_date", Type: domain.QuestionDate, Required: true}

	cases := map[string]string{
		"2026-04-01":           "2026-04-01",
		"March 5th, 2026":      "2026-03-05",
		"march 5 2026":         "2026-03-05",
		"Mar 21st 2026":        "2026-03-21",
		"3/5/2026":             "2026-03-05",
		"03/05/2026":           "2026-03-05",
		"12-31-26":             "2026-12-31",
		"5 April 2026":         "2026-04-05",
		"today":                "2026-03-04",
		"Tomorrow":             "2026-03-05",
		"next friday":          "2026-03-06",
		"next Wednesday":       "2026-03-11",
		"2026-05-01T09:00:00Z": "2026-05-01",
	}
	for input, want := range cases {
		res := n.Normalize(q, input)
		require.True(t, res.OK, "input %q: %s", input, res.Message)
		assert.Equal(t, want, res.Value, "input %q", input)
	}

	for _, input := range []string{"soonish", "02/30/2026", "the 5th", "2026-02-30", "2026-13-01"} {
		res := n.Normalize(q, input)
		assert.False(t, res.OK, "input %q", input)
		assert.Equal(t, MsgInvalidDate, res.Message)
	}
}

func TestNormalizeDateIdempotent(t *testing.T) {
	t.Parallel()

	n := NewNormalizer(fixedNow)
	q := domain.Question{ID: "due_date", Type: domain.QuestionDate, Required: true}
	for _, input := range []string{"2026-03-05", "next monday", "July 4, 2026"} {
		first := n.Normalize(q, input)
		require.True(t, first.OK)
		second := n.Normalize(q, first.Value)
		require.True(t, second.OK)
		assert.Equal(t, first.Value, second.Value)
	}
}

func TestNormalizeTextTrims(t *testing.T) {
	t.Parallel()

	res := Normalize(domain.Question{ID: "goal", Type: domain.QuestionText, Required: true}, "  more sign-ups \n")
	require.True(t, res.OK)
	assert.Equal(t, "more sign-ups", res.Value)
}

func TestSplitList(t *testing.T) {
	t.Parallel()

	assert.Equal(t, []string{"a", "b", "c", "d"}, SplitList("a, b;c\n\n d ,"))
	assert.Nil(t, SplitList(" , ;"))
}
