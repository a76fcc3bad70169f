//nolint:revive // "api" package name is intentionally concise for this layer.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/ashureev/biabot/internal/auth"
	"github.com/ashureev/biabot/internal/chat"
	"github.com/ashureev/biabot/internal/llm"
	"github.com/ashureev/biabot/internal/middleware"
	"github.com/ashureev/biabot/internal/monday"
	"github.com/ashureev/biabot/internal/service"
	"github.com/ashureev/biabot/internal/store"
)

const testAdminSecret = "s3cret"

type testEnv struct {
	repo    *store.MemoryStore
	issuer  *auth.Issuer
	router  http.Handler
	limiter *middleware.RateLimiter
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	repo := store.NewMemory()
	if err := store.Seed(context.Background(), repo); err != nil {
		t.Fatalf("seed: %v", err)
	}
	issuer := auth.NewIssuer("test-secret", time.Hour)
	board := monday.New(monday.Config{MockMode: true, BoardID: "42"}, nil)
	summarizer := llm.NewWithCompleter(nil, "", 0, nil)

	intakeSvc := service.New(repo, issuer, summarizer, board, service.Config{})
	adminSvc := service.NewAdmin(repo, board, testAdminSecret, nil)
	controller := chat.NewController(service.NewLocalBackend(intakeSvc), chat.NewMemorySessionStore(), chat.ControllerConfig{})
	limiter := middleware.NewRateLimiter(15, time.Minute)

	h := NewHandler(Deps{
		Intake:      intakeSvc,
		Admin:       adminSvc,
		Chat:        controller,
		Repo:        repo,
		Issuer:      issuer,
		AdminSecret: testAdminSecret,
		AuthLimiter: limiter,
		IsDev:       true,
	})
	r := chi.NewRouter()
	h.RegisterRoutes(r)
	return &testEnv{repo: repo, issuer: issuer, router: r, limiter: limiter}
}

func (e *testEnv) do(t *testing.T, method, path string, body interface{}, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if raw, ok := body.(string); ok {
			buf.WriteString(raw)
		} else if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func (e *testEnv) token(t *testing.T) map[string]string {
	t.Helper()
	token, err := e.issuer.Issue("READYONE01", "ReadyOne Industries")
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}
	return map[string]string{"Authorization": "Bearer " + token}
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), v); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
}

func detail(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body map[string]string
	decode(t, rec, &body)
	return body["detail"]
}

func TestJSON(t *testing.T) {
	w := httptest.NewRecorder()
	data := map[string]string{"foo": "bar"}

	JSON(w, http.StatusOK, data)

	resp := w.Result()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("Expected status 200, got %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q", ct)
	}

	var got map[string]string
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}

	if got["foo"] != "bar" {
		t.Errorf("Expected foo=bar, got %v", got["foo"])
	}
}

func TestWriteErrorMapping(t *testing.T) {
	tests := []struct {
		err        error
		wantStatus int
		wantDetail string
	}{
		{service.ErrInvalidClientCode, http.StatusNotFound, "Invalid client code"},
		{fmt.Errorf("get client profile: %w", store.ErrNotFound), http.StatusNotFound, "Client profile not found"},
		{fmt.Errorf("%w: goal is required", service.ErrInvalidSubmission), http.StatusUnprocessableEntity, "goal is required"},
		{fmt.Errorf("%w: At least one service option is required", service.ErrInvalidRequest), http.StatusBadRequest, "At least one service option is required"},
		{chat.ErrBusy, http.StatusConflict, ""},
		{chat.ErrSessionReset, http.StatusConflict, ""},
		{auth.ErrInvalidToken, http.StatusUnauthorized, "Invalid or expired token"},
		{fmt.Errorf("create item: %w: HTTP 500: boom", monday.ErrUpstream), http.StatusBadGateway, ""},
		{errors.New("disk on fire"), http.StatusInternalServerError, "Internal server error"},
	}
	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			rec := httptest.NewRecorder()
			writeError(rec, httptest.NewRequest(http.MethodGet, "/x", nil), tt.err)
			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			got := detail(t, rec)
			if got == "" {
				t.Fatal("detail must not be empty")
			}
			if tt.wantDetail != "" && got != tt.wantDetail {
				t.Fatalf("detail = %q, want %q", got, tt.wantDetail)
			}
		})
	}
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(t, http.MethodGet, "/api/v1/health", nil, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var body map[string]string
	decode(t, rec, &body)
	if body["status"] != "ok" {
		t.Fatalf("body = %v", body)
	}
}
