// Package client is a REST client for the biaBot API. It satisfies
// chat.Backend so a conversation can run against a remote server.
package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/ashureev/biabot/internal/chat"
	"github.com/ashureev/biabot/internal/domain"
	"github.com/ashureev/biabot/internal/intake"
	"github.com/ashureev/biabot/internal/monday"
)

// DefaultBaseURL points at a locally running server.
const DefaultBaseURL = "http://localhost:8080"

const apiPrefix = "/api/v1"

var _ chat.Backend = (*Client)(nil)

// APIError is a non-2xx response from the server.
type APIError struct {
	Status int
	Detail string
}

func (e *APIError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("HTTP %d", e.Status)
	}
	return fmt.Sprintf("HTTP %d: %s", e.Status, e.Detail)
}

// StatusOf returns the HTTP status carried by err, or 0.
func StatusOf(err error) int {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Status
	}
	return 0
}

// Config configures a Client.
type Config struct {
	BaseURL       string
	AdminPassword string
	Timeout       time.Duration
}

// Client calls the biaBot REST API.
type Client struct {
	http          *resty.Client
	adminPassword string
}

// New creates a Client.
func New(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	client := resty.New()
	client.SetBaseURL(strings.TrimRight(cfg.BaseURL, "/") + apiPrefix)
	client.SetTimeout(cfg.Timeout)
	client.SetHeader("Accept", "application/json")
	return &Client{http: client, adminPassword: cfg.AdminPassword}
}

type call struct {
	method string
	path   string
	token  string
	admin  bool
	query  map[string]string
	body   interface{}
	out    interface{}
}

func (c *Client) do(ctx context.Context, cl call) error {
	req := c.http.R().SetContext(ctx)
	if cl.token != "" {
		req.SetAuthToken(cl.token)
	}
	if cl.admin {
		req.SetHeader("X-Admin-Password", c.adminPassword)
	}
	if cl.query != nil {
		req.SetQueryParams(cl.query)
	}
	if cl.body != nil {
		req.SetHeader("Content-Type", "application/json").SetBody(cl.body)
	}

	resp, err := req.Execute(cl.method, cl.path)
	if err != nil {
		return fmt.Errorf("%s %s: %w", cl.method, cl.path, err)
	}
	if resp.IsError() {
		var body struct {
			Detail string `json:"detail"`
		}
		if jsonErr := json.Unmarshal(resp.Body(), &body); jsonErr != nil || body.Detail == "" {
			body.Detail = strings.TrimSpace(resp.String())
		}
		return &APIError{Status: resp.StatusCode(), Detail: body.Detail}
	}
	if cl.out != nil && len(resp.Body()) > 0 {
		if err := json.Unmarshal(resp.Body(), cl.out); err != nil {
			return fmt.Errorf("decode %s response: %w", cl.path, err)
		}
	}
	return nil
}

// Health checks that the server is up.
func (c *Client) Health(ctx context.Context) error {
	return c.do(ctx, call{method: http.MethodGet, path: "/health"})
}

// Authenticate implements chat.Backend. An unknown code is reported as
// domain.ErrInvalidClientCode.
func (c *Client) Authenticate(ctx context.Context, clientCode string) (domain.ClientAuth, error) {
	var out domain.ClientAuth
	err := c.do(ctx, call{
		method: http.MethodPost,
		path:   "/auth/client-code",
		body:   map[string]string{"client_code": clientCode},
		out:    &out,
	})
	if StatusOf(err) == http.StatusNotFound {
		return domain.ClientAuth{}, fmt.Errorf("%w: %s", domain.ErrInvalidClientCode, clientCode)
	}
	return out, err
}

// Profile returns the authenticated client's profile.
func (c *Client) Profile(ctx context.Context, token string) (domain.ClientProfile, error) {
	var out domain.ClientProfile
	err := c.do(ctx, call{method: http.MethodGet, path: "/client/profile", token: token, out: &out})
	return out, err
}

// Options implements chat.Backend.
func (c *Client) Options(ctx context.Context, token string) (domain.IntakeOptions, error) {
	var out domain.IntakeOptions
	err := c.do(ctx, call{method: http.MethodGet, path: "/intake/options", token: token, out: &out})
	return out, err
}

// NormalizeAnswer asks the server to validate one answer.
func (c *Client) NormalizeAnswer(ctx context.Context, token string, req intake.AnswerRequest) (intake.Result, error) {
	var out intake.Result
	err := c.do(ctx, call{method: http.MethodPost, path: "/intake/normalize-answer", token: token, body: req, out: &out})
	return out, err
}

// Preview implements chat.Backend.
func (c *Client) Preview(ctx context.Context, token string, sub domain.Submission) (string, error) {
	var out struct {
		Summary string `json:"summary"`
	}
	err := c.do(ctx, call{method: http.MethodPost, path: "/intake/preview", token: token, body: sub, out: &out})
	return out.Summary, err
}

// Submit implements chat.Backend.
func (c *Client) Submit(ctx context.Context, token string, req domain.SubmitRequest) (domain.SubmitResult, error) {
	var out domain.SubmitResult
	err := c.do(ctx, call{method: http.MethodPost, path: "/intake/submit", token: token, body: req, out: &out})
	return out, err
}

// Chat sends one turn to the server-side conversation.
func (c *Client) Chat(ctx context.Context, req chat.Request) (*chat.Reply, error) {
	var out chat.Reply
	if err := c.do(ctx, call{method: http.MethodPost, path: "/chat/message", body: req, out: &out}); err != nil {
		return nil, err
	}
	return &out, nil
}

// AdminAuth checks an admin password.
func (c *Client) AdminAuth(ctx context.Context, password string) error {
	return c.do(ctx, call{method: http.MethodPost, path: "/admin/auth", body: map[string]string{"password": password}})
}

// ListProfiles returns every client profile.
func (c *Client) ListProfiles(ctx context.Context) ([]domain.ClientProfile, error) {
	var out []domain.ClientProfile
	err := c.do(ctx, call{method: http.MethodGet, path: "/admin/client-profiles", admin: true, out: &out})
	return out, err
}

// GetProfile returns one client profile.
func (c *Client) GetProfile(ctx context.Context, code string) (domain.ClientProfile, error) {
	var out domain.ClientProfile
	err := c.do(ctx, call{method: http.MethodGet, path: "/admin/client-profiles/" + code, admin: true, out: &out})
	return out, err
}

// UpsertProfile creates or replaces a profile.
func (c *Client) UpsertProfile(ctx context.Context, profile domain.ClientProfile) (domain.ClientProfile, error) {
	var out domain.ClientProfile
	err := c.do(ctx, call{method: http.MethodPost, path: "/admin/client-profiles", admin: true, body: profile, out: &out})
	return out, err
}

// DeleteProfile removes a profile.
func (c *Client) DeleteProfile(ctx context.Context, code string) error {
	return c.do(ctx, call{method: http.MethodDelete, path: "/admin/client-profiles/" + code, admin: true})
}

// ServiceOptions returns the global service list.
func (c *Client) ServiceOptions(ctx context.Context) ([]string, error) {
	var out []string
	err := c.do(ctx, call{method: http.MethodGet, path: "/admin/service-options", admin: true, out: &out})
	return out, err
}

// SetServiceOptions replaces the global service list.
func (c *Client) SetServiceOptions(ctx context.Context, options []string) ([]string, error) {
	var out []string
	err := c.do(ctx, call{
		method: http.MethodPut,
		path:   "/admin/service-options",
		admin:  true,
		body:   map[string][]string{"options": options},
		out:    &out,
	})
	return out, err
}

// RequestLogs pages through finalized submissions.
func (c *Client) RequestLogs(ctx context.Context, limit, offset int) ([]domain.RequestLog, error) {
	var out []domain.RequestLog
	err := c.do(ctx, call{
		method: http.MethodGet,
		path:   "/admin/request-logs",
		admin:  true,
		query:  map[string]string{"limit": strconv.Itoa(limit), "offset": strconv.Itoa(offset)},
		out:    &out,
	})
	return out, err
}

// VerifyMonday checks board credentials on the server.
func (c *Client) VerifyMonday(ctx context.Context, req monday.VerifyRequest) (domain.BoardCheck, error) {
	var out domain.BoardCheck
	err := c.do(ctx, call{method: http.MethodPost, path: "/admin/monday/verify", admin: true, body: req, out: &out})
	return out, err
}
