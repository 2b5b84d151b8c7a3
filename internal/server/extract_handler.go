package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/google/uuid"

	"github.com/clawcoach/clawcoach/internal/chat"
	"github.com/clawcoach/clawcoach/internal/types"
)

type extractRequestBody struct {
	AgentDBID       string              `json:"agentDbId"`
	Messages        []types.ChatMessage `json:"messages"`
	LatestUser      string              `json:"latestUser"`
	LatestAssistant string              `json:"latestAssistant"`
}

// handleExtract runs one extraction pass for an agent. Trusted internal
// call triggered after a turn completes; not payment-gated.
func (s *Server) handleExtract(w http.ResponseWriter, r *http.Request) {
	var body extractRequestBody
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBodySize)).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if _, err := uuid.Parse(body.AgentDBID); err != nil {
		writeError(w, http.StatusBadRequest, "agentDbId must be a uuid")
		return
	}
	for _, m := range body.Messages {
		if m.Role != types.RoleUser && m.Role != types.RoleAssistant {
			writeError(w, http.StatusBadRequest, "message roles must be user or assistant")
			return
		}
	}

	complete, err := s.svc.RunExtraction(r.Context(), body.AgentDBID, body.Messages, body.LatestUser, body.LatestAssistant)
	if err != nil {
		if errors.Is(err, chat.ErrAgentNotFound) {
			writeError(w, http.StatusNotFound, "agent not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "extraction failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"onboardingComplete": complete})
}
