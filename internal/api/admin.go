package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/ashureev/biabot/internal/domain"
	"github.com/ashureev/biabot/internal/monday"
)

type adminAuthRequest struct {
	Password string `json:"password"`
}

// AdminAuth checks an admin password without touching any data.
func (h *Handler) AdminAuth(w http.ResponseWriter, r *http.Request) {
	var req adminAuthRequest
	if err := decodeJSON(w, r, &req); err != nil {
		Error(w, http.StatusBadRequest, err.Error())
		return
	}
	if !h.admin.CheckPassword(req.Password) {
		Error(w, http.StatusUnauthorized, "Invalid admin password")
		return
	}
	JSON(w, http.StatusOK, map[string]bool{"ok": true})
}

// ListProfiles returns every client profile.
func (h *Handler) ListProfiles(w http.ResponseWriter, r *http.Request) {
	profiles, err := h.admin.ListProfiles(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	if profiles == nil {
		profiles = []domain.ClientProfile{}
	}
	JSON(w, http.StatusOK, profiles)
}

// GetProfile returns one client profile.
func (h *Handler) GetProfile(w http.ResponseWriter, r *http.Request) {
	profile, err := h.admin.GetProfile(r.Context(), chi.URLParam(r, "code"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	JSON(w, http.StatusOK, profile)
}

// UpsertProfile creates or replaces a profile.
func (h *Handler) UpsertProfile(w http.ResponseWriter, r *http.Request) {
	var profile domain.ClientProfile
	if err := decodeJSON(w, r, &profile); err != nil {
		Error(w, http.StatusBadRequest, err.Error())
		return
	}
	saved, err := h.admin.UpsertProfile(r.Context(), profile)
	if err != nil {
		writeError(w, r, err)
		return
	}
	JSON(w, http.StatusOK, saved)
}

// UpdateProfile replaces the profile addressed by the path.
func (h *Handler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	var profile domain.ClientProfile
	if err := decodeJSON(w, r, &profile); err != nil {
		Error(w, http.StatusBadRequest, err.Error())
		return
	}
	saved, err := h.admin.UpdateProfile(r.Context(), chi.URLParam(r, "code"), profile)
	if err != nil {
		writeError(w, r, err)
		return
	}
	JSON(w, http.StatusOK, saved)
}

// DeleteProfile removes a profile.
func (h *Handler) DeleteProfile(w http.ResponseWriter, r *http.Request) {
	if err := h.admin.DeleteProfile(r.Context(), chi.URLParam(r, "code")); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GetServiceOptions returns the global service list.
func (h *Handler) GetServiceOptions(w http.ResponseWriter, r *http.Request) {
	options, err := h.admin.ServiceOptions(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	JSON(w, http.StatusOK, options)
}

type serviceOptionsRequest struct {
	Options []string `json:"options"`
}

// SetServiceOptions replaces the global service list.
func (h *Handler) SetServiceOptions(w http.ResponseWriter, r *http.Request) {
	var req serviceOptionsRequest
	if err := decodeJSON(w, r, &req); err != nil {
		Error(w, http.StatusBadRequest, err.Error())
		return
	}
	saved, err := h.admin.SetServiceOptions(r.Context(), req.Options)
	if err != nil {
		writeError(w, r, err)
		return
	}
	JSON(w, http.StatusOK, saved)
}

// RequestLogs pages through finalized submissions.
func (h *Handler) RequestLogs(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit", 50)
	if err != nil || limit < 1 {
		Error(w, http.StatusBadRequest, "limit must be an integer between 1 and 500")
		return
	}
	offset, err := queryInt(r, "offset", 0)
	if err != nil {
		Error(w, http.StatusBadRequest, "offset must be an integer")
		return
	}
	logs, err := h.admin.RequestLogs(r.Context(), limit, offset)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if logs == nil {
		logs = []domain.RequestLog{}
	}
	JSON(w, http.StatusOK, logs)
}

func queryInt(r *http.Request, key string, fallback int) (int, error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return fallback, nil
	}
	return strconv.Atoi(raw)
}

// VerifyMonday checks board credentials.
func (h *Handler) VerifyMonday(w http.ResponseWriter, r *http.Request) {
	var req monday.VerifyRequest
	if err := decodeJSON(w, r, &req); err != nil && !errors.Is(err, errEmptyBody) {
		Error(w, http.StatusBadRequest, err.Error())
		return
	}
	JSON(w, http.StatusOK, h.admin.VerifyMonday(r.Context(), req))
}
