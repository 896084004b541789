// Package handler provides HTTP handlers for the API.
package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/bookline-ai/booking-agent/internal/middleware"
	"github.com/bookline-ai/booking-agent/internal/model"
	"github.com/bookline-ai/booking-agent/pkg/logger"
)

// ChatService runs conversation turns for the chat endpoint.
type ChatService interface {
	Chat(ctx context.Context, sessionID, message string) (*model.ChatResult, error)
	History(ctx context.Context, sessionID string) ([]model.Turn, bool)
}

// ChatHandler handles the conversational endpoints.
type ChatHandler struct {
	agent     ChatService
	validator *middleware.RequestValidator
	logger    *logger.Logger
}

// NewChatHandler creates a new chat handler.
func NewChatHandler(agent ChatService, v *middleware.RequestValidator, log *logger.Logger) *ChatHandler {
	return &ChatHandler{
		agent:     agent,
		validator: v,
		logger:    log,
	}
}

// Chat handles POST /chat
func (h *ChatHandler) Chat(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req model.ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.validator.Validate(req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	sessionID := req.SessionID
	if sessionID == "" {
		sessionID = uuid.NewString()
	}

	result, err := h.agent.Chat(ctx, sessionID, req.Message)
	if err != nil {
		h.logger.Error("chat turn failed",
			zap.String("session_id", sessionID),
			zap.Error(err),
		)
		writeError(w, http.StatusInternalServerError, "failed to process message")
		return
	}

	writeJSON(w, http.StatusOK, model.ChatResponse{
		Reply:            result.Reply,
		SessionID:        sessionID,
		BookingConfirmed: result.BookingConfirmed,
		Booking:          result.Booking,
	})
}

// History handles GET /chat/{session_id}/history
func (h *ChatHandler) History(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "session_id")

	turns, ok := h.agent.History(r.Context(), sessionID)
	if !ok {
		writeError(w, http.StatusNotFound, "session not found")
		return
	}

	if turns == nil {
		turns = []model.Turn{}
	}

	writeJSON(w, http.StatusOK, model.HistoryResponse{
		SessionID: sessionID,
		Turns:     turns,
	})
}
