package llm

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ashureev/biabot/internal/domain"
)

type fakeCompleter struct {
	text   string
	err    error
	system string
	user   string
}

func (f *fakeCompleter) Complete(_ context.Context, system, user string) (string, error) {
	f.system, f.user = system, user
	return f.text, f.err
}

func (f *fakeCompleter) Model() string { return "fake" }

func sampleInput() (domain.ClientProfile, domain.Submission) {
	profile := domain.ClientProfile{
		ClientName:          "ReadyOne Industries",
		PreferredTone:       "confident",
		RequiredDisclaimers: "EOE statement",
		BrandVoiceRules:     "not sent to the model",
	}
	sub := domain.Submission{ServiceType: "Custom graphic", ProjectTitle: "Spring hiring flyer"}
	return profile, sub
}

func TestBuildPrompt(t *testing.T) {
	t.Parallel()

	profile, sub := sampleInput()
	prompt, err := BuildPrompt(profile, sub)
	require.NoError(t, err)

	head, body, ok := strings.Cut(prompt, "\n\n")
	require.True(t, ok)
	assert.Equal(t, "Convert this intake JSON into a concise contractor-ready summary. No deliverable drafting and no strategic advice.", head)

	var payload map[string]map[string]any
	require.NoError(t, json.Unmarshal([]byte(body), &payload))
	assert.Equal(t, "ReadyOne Industries", payload["client_profile"]["client_name"])
	assert.Equal(t, "EOE statement", payload["client_profile"]["required_disclaimers"])
	assert.NotContains(t, body, "not sent to the model")
	assert.Equal(t, "Spring hiring flyer", payload["request"]["project_title"])
}

func TestSummarizeUsesModelText(t *testing.T) {
	t.Parallel()

	fake := &fakeCompleter{text: "  Polished summary \n"}
	s := NewWithCompleter(fake, "", 0, nil)
	profile, sub := sampleInput()

	assert.Equal(t, "Polished summary", s.Summarize(context.Background(), profile, sub, "fallback"))
	assert.Equal(t, DefaultSystemPrompt, fake.system)
	assert.Contains(t, fake.user, "Spring hiring flyer")
}

func TestSummarizeFallsBack(t *testing.T) {
	t.Parallel()

	profile, sub := sampleInput()
	tests := []struct {
		name string
		s    *Summarizer
	}{
		{"disabled", NewWithCompleter(nil, "", 0, nil)},
		{"error", NewWithCompleter(&fakeCompleter{err: errors.New("boom")}, "", 0, nil)},
		{"empty", NewWithCompleter(&fakeCompleter{text: "   "}, "", 0, nil)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, "fallback", tt.s.Summarize(context.Background(), profile, sub, "fallback"))
		})
	}
}

func TestNewProviderSelection(t *testing.T) {
	t.Parallel()

	s, err := New(Config{Provider: "none", APIKey: "k"}, nil)
	require.NoError(t, err)
	assert.False(t, s.Enabled())

	s, err = New(Config{Provider: "OpenAI"}, nil)
	require.NoError(t, err)
	assert.False(t, s.Enabled(), "missing key disables polishing")

	s, err = New(Config{Provider: "claude", APIKey: "k"}, nil)
	require.NoError(t, err)
	assert.True(t, s.Enabled())
	assert.Equal(t, defaultAnthropicModel, s.completer.Model())

	_, err = New(Config{Provider: "watson"}, nil)
	assert.Error(t, err)
}

func TestOpenAICompleter(t *testing.T) {
	t.Parallel()

	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/chat/completions") {
			http.NotFound(w, r)
			return
		}
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &got)
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{
			"id": "chatcmpl-1",
			"object": "chat.completion",
			"created": 1,
			"model": "gpt-4.1-mini",
			"choices": [{"index": 0, "finish_reason": "stop",
				"message": {"role": "assistant", "content": "Summary from OpenAI"}}],
			"usage": {"prompt_tokens": 1, "completion_tokens": 1, "total_tokens": 2}
		}`)
	}))
	defer srv.Close()

	c := newOpenAICompleter(Config{APIKey: "k", BaseURL: srv.URL + "/v1/"})
	text, err := c.Complete(context.Background(), "system", "user")
	require.NoError(t, err)
	assert.Equal(t, "Summary from OpenAI", text)
	assert.Equal(t, defaultOpenAIModel, got["model"])
	assert.InDelta(t, 0.2, got["temperature"], 1e-9)
}

func TestAnthropicCompleter(t *testing.T) {
	t.Parallel()

	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/v1/messages") {
			http.NotFound(w, r)
			return
		}
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &got)
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{
			"id": "msg_1",
			"type": "message",
			"role": "assistant",
			"model": "claude-3-5-sonnet-latest",
			"content": [{"type": "text", "text": "Summary from Claude"}],
			"stop_reason": "end_turn",
			"usage": {"input_tokens": 1, "output_tokens": 1}
		}`)
	}))
	defer srv.Close()

	c := newAnthropicCompleter(Config{APIKey: "k", BaseURL: srv.URL})
	text, err := c.Complete(context.Background(), "system", "user")
	require.NoError(t, err)
	assert.Equal(t, "Summary from Claude", text)
	assert.InDelta(t, float64(summaryMaxTokens), got["max_tokens"], 1e-9)
}
