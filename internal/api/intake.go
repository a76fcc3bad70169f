package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/ashureev/biabot/internal/auth"
	"github.com/ashureev/biabot/internal/domain"
	"github.com/ashureev/biabot/internal/intake"
	"github.com/ashureev/biabot/internal/service"
)

// Health reports liveness and store connectivity.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	if err := h.repo.Ping(ctx); err != nil {
		slog.Warn("Health check failed", "error", err)
		Error(w, http.StatusServiceUnavailable, "store unavailable")
		return
	}
	JSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type clientCodeRequest struct {
	ClientCode string `json:"client_code"`
}

// AuthenticateClient exchanges a client code for a bearer token.
func (h *Handler) AuthenticateClient(w http.ResponseWriter, r *http.Request) {
	var req clientCodeRequest
	if err := decodeJSON(w, r, &req); err != nil {
		Error(w, http.StatusBadRequest, err.Error())
		return
	}
	if n := len(req.ClientCode); n == 0 || n > 200 {
		Error(w, http.StatusUnprocessableEntity, "client_code must be 1-200 characters")
		return
	}

	result, err := h.intake.Authenticate(r.Context(), req.ClientCode)
	if err != nil {
		if errors.Is(err, service.ErrInvalidClientCode) {
			slog.Info("Client code rejected", "remote_ip", r.RemoteAddr)
		}
		writeError(w, r, err)
		return
	}
	JSON(w, http.StatusOK, result)
}

// ClientProfile returns the authenticated client's profile.
func (h *Handler) ClientProfile(w http.ResponseWriter, r *http.Request) {
	profile, err := h.intake.Profile(r.Context(), auth.ClientCodeFromContext(r.Context()))
	if err != nil {
		writeError(w, r, err)
		return
	}
	JSON(w, http.StatusOK, profile)
}

// IntakeOptions returns the services and questions for the client.
func (h *Handler) IntakeOptions(w http.ResponseWriter, r *http.Request) {
	opts, err := h.intake.Options(r.Context(), auth.ClientCodeFromContext(r.Context()))
	if err != nil {
		writeError(w, r, err)
		return
	}
	JSON(w, http.StatusOK, opts)
}

// NormalizeAnswer validates one free-text answer.
func (h *Handler) NormalizeAnswer(w http.ResponseWriter, r *http.Request) {
	var req intake.AnswerRequest
	if err := decodeJSON(w, r, &req); err != nil {
		Error(w, http.StatusBadRequest, err.Error())
		return
	}
	if len(req.AnswerText) > maxMessageLength {
		Error(w, http.StatusUnprocessableEntity, "answer_text is too long")
		return
	}
	res, err := h.intake.NormalizeAnswer(r.Context(), auth.ClientCodeFromContext(r.Context()), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	JSON(w, http.StatusOK, res)
}

// Preview returns the summary for a submission without recording it.
func (h *Handler) Preview(w http.ResponseWriter, r *http.Request) {
	var sub domain.Submission
	if err := decodeJSON(w, r, &sub); err != nil {
		Error(w, http.StatusBadRequest, err.Error())
		return
	}
	summary, err := h.intake.Preview(r.Context(), auth.ClientCodeFromContext(r.Context()), sub)
	if err != nil {
		writeError(w, r, err)
		return
	}
	JSON(w, http.StatusOK, map[string]string{"summary": summary})
}

// Submit finalizes a submission. An optional "summary" field carries the
// text the client confirmed.
func (h *Handler) Submit(w http.ResponseWriter, r *http.Request) {
	var req domain.SubmitRequest
	if err := decodeJSON(w, r, &req); err != nil {
		Error(w, http.StatusBadRequest, err.Error())
		return
	}
	result, err := h.intake.Submit(r.Context(), auth.ClientCodeFromContext(r.Context()), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	JSON(w, http.StatusOK, result)
}
