package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// ChatRequest is the body for POST /chat/{subjectID}/messages.
type ChatRequest struct {
	Question string `json:"question" validate:"required,min=1"`
	Material string `json:"material,omitempty"`
}

// handleChatAsk streams the tutor's answer as SSE chunk events, ending with
// a done event carrying the full message.
func (h *handlers) handleChatAsk(w http.ResponseWriter, r *http.Request) {
	subjectID := chi.URLParam(r, "subjectID")
	var req ChatRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}

	sse, err := NewSSEWriter(w)
	if err != nil {
		h.errorResponse(w, http.StatusInternalServerError, err.Error())
		return
	}

	reply, err := h.tutor.Ask(r.Context(), subjectID, req.Material, req.Question, func(chunk string) error {
		return sse.WriteEvent("chunk", map[string]string{"text": chunk})
	})
	if err != nil {
		h.logger.Error().Err(err).Str("subject_id", subjectID).Msg("tutor reply failed")
		sse.WriteError("Failed to generate reply")
		return
	}
	sse.WriteEvent("done", reply) //nolint:errcheck
}

func (h *handlers) handleChatHistory(w http.ResponseWriter, r *http.Request) {
	subjectID := chi.URLParam(r, "subjectID")
	messages, err := h.tutor.History(r.Context(), subjectID)
	if err != nil {
		h.logger.Error().Err(err).Msg("chat history failed")
		h.errorResponse(w, http.StatusInternalServerError, "Failed to load chat history")
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"messages": messages})
}
