package server

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/clawcoach/clawcoach/internal/chat"
)

type paidChatResponse struct {
	Content *string `json:"content"`
	Error   *string `json:"error"`
}

// handlePaidChat is the non-streaming variant of the chat endpoint, reached
// only after the payment middleware has verified an x402 proof. Quota checks
// do not apply; the caller has paid for this turn.
func (s *Server) handlePaidChat(w http.ResponseWriter, r *http.Request) {
	var body chatRequestBody
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBodySize)).Decode(&body); err != nil {
		msg := "invalid request body"
		writeJSON(w, http.StatusBadRequest, paidChatResponse{Error: &msg})
		return
	}
	if err := body.validate(); err != nil {
		msg := err.Error()
		writeJSON(w, http.StatusBadRequest, paidChatResponse{Error: &msg})
		return
	}

	req := chat.Request{
		Messages:      body.Messages,
		AgentName:     body.AgentName,
		CoachingStyle: body.CoachingStyle,
		AgentDBID:     body.AgentDBID,
		Wallet:        r.Header.Get(walletHeader),
	}

	content, err := s.svc.CompleteTurn(r.Context(), req)
	if err != nil {
		slog.Error("paid chat turn failed", "error", err)
		msg := "internal server error"
		writeJSON(w, http.StatusInternalServerError, paidChatResponse{Error: &msg})
		return
	}
	writeJSON(w, http.StatusOK, paidChatResponse{Content: &content})
}
