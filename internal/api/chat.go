package api

import (
	"fmt"
	"net/http"

	"github.com/ashureev/biabot/internal/chat"
)

func validateChatRequest(req chat.Request) error {
	if len(req.Message) > maxMessageLength {
		return fmt.Errorf("message must be at most %d characters", maxMessageLength)
	}
	if len(req.SessionID) > maxSessionIDBytes {
		return fmt.Errorf("session_id must be at most %d characters", maxSessionIDBytes)
	}
	return nil
}

// ChatMessage runs one conversational turn.
func (h *Handler) ChatMessage(w http.ResponseWriter, r *http.Request) {
	var req chat.Request
	if err := decodeJSON(w, r, &req); err != nil {
		Error(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := validateChatRequest(req); err != nil {
		Error(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	reply, err := h.chat.Handle(r.Context(), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	JSON(w, http.StatusOK, reply)
}
