// Package api provides HTTP handlers for the biaBot API.
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/ashureev/biabot/internal/auth"
	"github.com/ashureev/biabot/internal/chat"
	"github.com/ashureev/biabot/internal/domain"
	"github.com/ashureev/biabot/internal/middleware"
	"github.com/ashureev/biabot/internal/monday"
	"github.com/ashureev/biabot/internal/service"
	"github.com/ashureev/biabot/internal/store"
)

const (
	maxBodyBytes      = 1 << 20
	maxMessageLength  = 4000
	maxSessionIDBytes = 128
)

// Deps are the collaborators the handlers need.
type Deps struct {
	Intake         *service.IntakeService
	Admin          *service.AdminService
	Chat           *chat.Controller
	Repo           store.Repository
	Issuer         *auth.Issuer
	AdminSecret    string
	AuthLimiter    *middleware.RateLimiter
	AllowedOrigins []string
	IsDev          bool
}

// Handler serves the /api/v1 surface.
type Handler struct {
	intake      *service.IntakeService
	admin       *service.AdminService
	chat        *chat.Controller
	repo        store.Repository
	issuer      *auth.Issuer
	adminSecret string
	authLimiter *middleware.RateLimiter
	socket      *ChatSocketHandler
}

// NewHandler creates a new Handler with common dependencies.
func NewHandler(d Deps) *Handler {
	return &Handler{
		intake:      d.Intake,
		admin:       d.Admin,
		chat:        d.Chat,
		repo:        d.Repo,
		issuer:      d.Issuer,
		adminSecret: d.AdminSecret,
		authLimiter: d.AuthLimiter,
		socket:      NewChatSocketHandler(d.Chat, d.AllowedOrigins, d.IsDev),
	}
}

// JSON writes a JSON response with the given status code.
func JSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Debug("Failed to encode response", "error", err)
	}
}

// Error writes a JSON error response.
func Error(w http.ResponseWriter, status int, detail string) {
	JSON(w, status, map[string]string{"detail": detail})
}

// errEmptyBody is returned by decodeJSON when the request has no body.
var errEmptyBody = errors.New("request body is empty")

func decodeJSON(w http.ResponseWriter, r *http.Request, v interface{}) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return errEmptyBody
		}
		return fmt.Errorf("invalid JSON body: %w", err)
	}
	return nil
}

// detailOf strips a sentinel's own text from a wrapped error message.
func detailOf(err, sentinel error) string {
	return strings.TrimPrefix(err.Error(), sentinel.Error()+": ")
}

// writeError maps service errors to HTTP statuses.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidClientCode):
		Error(w, http.StatusNotFound, "Invalid client code")
	case errors.Is(err, store.ErrNotFound):
		Error(w, http.StatusNotFound, "Client profile not found")
	case errors.Is(err, domain.ErrInvalidProfile):
		Error(w, http.StatusUnprocessableEntity, detailOf(err, domain.ErrInvalidProfile))
	case errors.Is(err, service.ErrInvalidSubmission):
		Error(w, http.StatusUnprocessableEntity, detailOf(err, service.ErrInvalidSubmission))
	case errors.Is(err, service.ErrInvalidRequest):
		Error(w, http.StatusBadRequest, detailOf(err, service.ErrInvalidRequest))
	case errors.Is(err, chat.ErrBusy):
		Error(w, http.StatusConflict, "Still working on your previous message. Please wait a moment.")
	case errors.Is(err, chat.ErrSessionReset):
		Error(w, http.StatusConflict, "This chat was reset while your message was processing. Please send it again.")
	case errors.Is(err, auth.ErrInvalidToken):
		Error(w, http.StatusUnauthorized, "Invalid or expired token")
	case errors.Is(err, monday.ErrUpstream):
		slog.Error("Board request failed", "path", r.URL.Path, "error", err)
		Error(w, http.StatusBadGateway, err.Error())
	default:
		slog.Error("Request failed", "path", r.URL.Path, "error", err)
		Error(w, http.StatusInternalServerError, "Internal server error")
	}
}
