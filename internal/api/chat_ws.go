package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/coder/websocket"

	"github.com/ashureev/biabot/internal/chat"
)

const (
	wsReadLimit    = 64 << 10
	wsWriteTimeout = 10 * time.Second
)

// ChatSocketHandler carries chat turns over a websocket. Each text frame is
// a chat request; each reply frame is a chat reply or an error detail.
type ChatSocketHandler struct {
	chat           *chat.Controller
	allowedOrigins []string
	isDev          bool
}

// NewChatSocketHandler creates a websocket chat handler.
func NewChatSocketHandler(controller *chat.Controller, allowedOrigins []string, isDev bool) *ChatSocketHandler {
	return &ChatSocketHandler{chat: controller, allowedOrigins: allowedOrigins, isDev: isDev}
}

// wsFrame is an inbound frame: a chat request, or a control message when
// Type is set.
type wsFrame struct {
	Type string `json:"type,omitempty"`
	chat.Request
}

type wsError struct {
	Type   string `json:"type"`
	Status int    `json:"status"`
	Detail string `json:"detail"`
}

// ServeHTTP implements http.Handler for WebSocket upgrade.
func (h *ChatSocketHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if !h.checkOrigin(r) {
		Error(w, http.StatusForbidden, "origin not allowed")
		return
	}

	ws, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		slog.Error("Failed to accept WebSocket", "error", err, "ip", r.RemoteAddr)
		return
	}
	defer func() {
		if closeErr := ws.Close(websocket.StatusNormalClosure, "chat ended"); closeErr != nil {
			slog.Debug("Failed to close websocket", "error", closeErr)
		}
	}()
	ws.SetReadLimit(wsReadLimit)

	slog.Info("Chat websocket connected", "ip", r.RemoteAddr)
	h.readLoop(r.Context(), ws)
}

func (h *ChatSocketHandler) checkOrigin(r *http.Request) bool {
	if h.isDev {
		return true
	}
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	for _, o := range h.allowedOrigins {
		if o == "*" || o == origin {
			return true
		}
	}
	slog.Warn("WebSocket origin rejected", "origin", origin)
	return false
}

func (h *ChatSocketHandler) readLoop(ctx context.Context, ws *websocket.Conn) {
	// Frames without a session_id continue the connection's last session.
	var sessionID string
	for {
		_, data, err := ws.Read(ctx)
		if err != nil {
			if websocket.CloseStatus(err) != -1 || errors.Is(err, context.Canceled) {
				slog.Debug("Chat websocket closed", "session_id", sessionID)
			} else {
				slog.Warn("Chat websocket read error", "error", err, "session_id", sessionID)
			}
			return
		}

		var frame wsFrame
		if err := json.Unmarshal(data, &frame); err != nil {
			h.writeError(ctx, ws, http.StatusBadRequest, "invalid JSON frame")
			continue
		}
		if frame.Type == "ping" {
			if err := h.writeJSON(ctx, ws, map[string]string{"type": "pong"}); err != nil {
				return
			}
			continue
		}

		req := frame.Request
		if req.SessionID == "" {
			req.SessionID = sessionID
		}
		if err := validateChatRequest(req); err != nil {
			h.writeError(ctx, ws, http.StatusUnprocessableEntity, err.Error())
			continue
		}

		reply, err := h.chat.Handle(ctx, req)
		if err != nil {
			status, detail := socketError(err)
			h.writeError(ctx, ws, status, detail)
			continue
		}
		sessionID = reply.SessionID
		if err := h.writeJSON(ctx, ws, reply); err != nil {
			slog.Debug("Failed to write chat reply", "error", err, "session_id", sessionID)
			return
		}
	}
}

func socketError(err error) (int, string) {
	switch {
	case errors.Is(err, chat.ErrBusy):
		return http.StatusConflict, "Still working on your previous message. Please wait a moment."
	case errors.Is(err, chat.ErrSessionReset):
		return http.StatusConflict, "This chat was reset while your message was processing. Please send it again."
	default:
		slog.Error("Chat turn failed", "error", err)
		return http.StatusInternalServerError, "Internal server error"
	}
}

func (h *ChatSocketHandler) writeError(ctx context.Context, ws *websocket.Conn, status int, detail string) {
	if err := h.writeJSON(ctx, ws, wsError{Type: "error", Status: status, Detail: detail}); err != nil {
		slog.Debug("Failed to send websocket error", "error", err)
	}
}

func (h *ChatSocketHandler) writeJSON(ctx context.Context, ws *websocket.Conn, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, wsWriteTimeout)
	defer cancel()
	return ws.Write(ctx, websocket.MessageText, data)
}
