package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/clawcoach/clawcoach/internal/repository"
	"github.com/clawcoach/clawcoach/internal/types"
)

type saveMessagesBody struct {
	WalletAddress  string              `json:"walletAddress"`
	AgentIDOnchain int64               `json:"agentIdOnchain"`
	Messages       []types.ChatMessage `json:"messages"`
}

// handleListMessages loads chat history for a wallet + on-chain agent id.
// Unknown wallets or agents yield an empty list, not an error.
func (s *Server) handleListMessages(w http.ResponseWriter, r *http.Request) {
	wallet := strings.ToLower(r.URL.Query().Get("wallet"))
	agentParam := r.URL.Query().Get("agentId")
	if wallet == "" || agentParam == "" {
		writeError(w, http.StatusBadRequest, "wallet and agentId params required")
		return
	}
	onchainID, err := strconv.ParseInt(agentParam, 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "agentId must be an integer")
		return
	}

	user, err := s.store.Users.GetByWallet(r.Context(), wallet)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeJSON(w, http.StatusOK, []types.ChatMessage{})
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to load history")
		return
	}

	agent, err := s.store.Agents.GetByOnchainID(r.Context(), onchainID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeJSON(w, http.StatusOK, []types.ChatMessage{})
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to load history")
		return
	}

	messages, err := s.store.Messages.List(r.Context(), user.ID, agent.ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load history")
		return
	}
	if messages == nil {
		messages = []types.ChatMessage{}
	}
	writeJSON(w, http.StatusOK, messages)
}

// handleSaveMessages persists new message pairs for a wallet + agent.
func (s *Server) handleSaveMessages(w http.ResponseWriter, r *http.Request) {
	var body saveMessagesBody
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBodySize)).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if body.WalletAddress == "" || len(body.Messages) == 0 {
		writeError(w, http.StatusBadRequest, "walletAddress, agentIdOnchain, and messages required")
		return
	}

	user, err := s.store.Users.Sync(r.Context(), body.WalletAddress)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to save messages")
		return
	}
	agent, err := s.store.Agents.GetByOnchainID(r.Context(), body.AgentIDOnchain)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeError(w, http.StatusNotFound, "agent not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to save messages")
		return
	}

	if err := s.store.Messages.Save(r.Context(), user.ID, agent.ID, body.Messages); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to save messages")
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"saved": true})
}
