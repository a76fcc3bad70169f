//nolint:revive // "api" package name is intentionally concise for this layer.
package api

import (
	"net/http"
	"strings"
	"testing"

	"github.com/ashureev/biabot/internal/domain"
	"github.com/ashureev/biabot/internal/intake"
)

func validSubmission() map[string]interface{} {
	return map[string]interface{}{
		"service_type":     "Custom graphic",
		"project_title":    "Spring hiring flyer",
		"goal":             "Fill 20 roles",
		"target_audience":  "Job seekers",
		"primary_cta":      "Apply online",
		"time_sensitivity": "Standard",
		"due_date":         "2026-11-02",
		"references":       []string{"https://example.com/brief"},
		"branch_answers":   map[string]string{"dimensions": "1080x1080"},
	}
}

func TestAuthenticateClient(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/v1/auth/client-code", map[string]string{"client_code": "my code is readyone01"}, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var got domain.ClientAuth
	decode(t, rec, &got)
	if got.AccessToken == "" || got.TokenType != "bearer" {
		t.Fatalf("auth = %+v", got)
	}
	if got.Profile.ClientCode != "READYONE01" {
		t.Fatalf("profile code = %q", got.Profile.ClientCode)
	}

	rec = env.do(t, http.MethodPost, "/api/v1/auth/client-code", map[string]string{"client_code": "NOPE42"}, nil)
	if rec.Code != http.StatusNotFound || detail(t, rec) != "Invalid client code" {
		t.Fatalf("unknown code: status = %d, body = %s", rec.Code, rec.Body.String())
	}

	rec = env.do(t, http.MethodPost, "/api/v1/auth/client-code", "{not json", nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("bad JSON status = %d", rec.Code)
	}
}

func TestAuthenticateClientRateLimited(t *testing.T) {
	env := newTestEnv(t)

	var last int
	for i := 0; i < 16; i++ {
		rec := env.do(t, http.MethodPost, "/api/v1/auth/client-code", map[string]string{"client_code": "NOPE42"}, nil)
		last = rec.Code
		if i < 15 && rec.Code != http.StatusNotFound {
			t.Fatalf("request %d status = %d", i, rec.Code)
		}
	}
	if last != http.StatusTooManyRequests {
		t.Fatalf("16th request status = %d, want 429", last)
	}
}

func TestClientRoutesRequireToken(t *testing.T) {
	env := newTestEnv(t)

	for _, path := range []string{"/api/v1/client/profile", "/api/v1/intake/options"} {
		rec := env.do(t, http.MethodGet, path, nil, nil)
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("%s status = %d", path, rec.Code)
		}
		if got := detail(t, rec); got != "Missing bearer token" {
			t.Fatalf("%s detail = %q", path, got)
		}
	}
}

func TestClientProfileAndOptions(t *testing.T) {
	env := newTestEnv(t)
	headers := env.token(t)

	rec := env.do(t, http.MethodGet, "/api/v1/client/profile", nil, headers)
	if rec.Code != http.StatusOK {
		t.Fatalf("profile status = %d", rec.Code)
	}
	var profile domain.ClientProfile
	decode(t, rec, &profile)
	if profile.ClientName != "ReadyOne Industries" {
		t.Fatalf("profile = %+v", profile)
	}

	rec = env.do(t, http.MethodGet, "/api/v1/intake/options", nil, headers)
	if rec.Code != http.StatusOK {
		t.Fatalf("options status = %d", rec.Code)
	}
	var opts domain.IntakeOptions
	decode(t, rec, &opts)
	if len(opts.ServiceOptions) == 0 || len(opts.CoreQuestions) == 0 {
		t.Fatalf("options = %+v", opts)
	}
	if _, ok := opts.BranchQuestions["Custom graphic"]; !ok {
		t.Fatalf("missing branch questions for Custom graphic")
	}
}

func TestNormalizeAnswerEndpoint(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/v1/intake/normalize-answer", map[string]interface{}{
		"question_id":   "time_sensitivity",
		"question_type": "choice",
		"answer_text":   "urgent!",
		"options":       []string{"Standard", "Soon", "Urgent"},
	}, env.token(t))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var res intake.Result
	decode(t, rec, &res)
	if !res.OK || res.Value != "Urgent" {
		t.Fatalf("result = %+v", res)
	}
}

func TestPreviewAndSubmit(t *testing.T) {
	env := newTestEnv(t)
	headers := env.token(t)

	rec := env.do(t, http.MethodPost, "/api/v1/intake/preview", validSubmission(), headers)
	if rec.Code != http.StatusOK {
		t.Fatalf("preview status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var preview map[string]string
	decode(t, rec, &preview)
	if !strings.Contains(preview["summary"], "Approver: Lupita R.") {
		t.Fatalf("summary = %q", preview["summary"])
	}

	rec = env.do(t, http.MethodPost, "/api/v1/intake/submit", validSubmission(), headers)
	if rec.Code != http.StatusOK {
		t.Fatalf("submit status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var result domain.SubmitResult
	decode(t, rec, &result)
	if result.RequestID == "" {
		t.Fatal("request_id is empty")
	}
	if !result.Monday.MockMode || !strings.HasPrefix(result.Monday.ItemID, "mock-") {
		t.Fatalf("monday = %+v", result.Monday)
	}
}

func TestSubmitKeepsConfirmedSummary(t *testing.T) {
	env := newTestEnv(t)

	body := validSubmission()
	body["summary"] = "Approved summary text"
	rec := env.do(t, http.MethodPost, "/api/v1/intake/submit", body, env.token(t))
	if rec.Code != http.StatusOK {
		t.Fatalf("submit status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var result domain.SubmitResult
	decode(t, rec, &result)
	if result.Summary != "Approved summary text" {
		t.Fatalf("summary = %q", result.Summary)
	}
}

func TestPreviewRejectsInvalidSubmission(t *testing.T) {
	env := newTestEnv(t)

	sub := validSubmission()
	sub["time_sensitivity"] = "Yesterday"
	rec := env.do(t, http.MethodPost, "/api/v1/intake/preview", sub, env.token(t))
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d", rec.Code)
	}
	if got := detail(t, rec); !strings.Contains(got, "time_sensitivity") {
		t.Fatalf("detail = %q", got)
	}
}
