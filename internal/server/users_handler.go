package server

import (
	"encoding/json"
	"net/http"
)

type syncUserBody struct {
	WalletAddress string `json:"walletAddress"`
}

// handleSyncUser finds or creates the user row for a wallet address.
func (s *Server) handleSyncUser(w http.ResponseWriter, r *http.Request) {
	var body syncUserBody
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBodySize)).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if body.WalletAddress == "" {
		writeError(w, http.StatusBadRequest, "walletAddress is required")
		return
	}

	user, err := s.store.Users.Sync(r.Context(), body.WalletAddress)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to sync user")
		return
	}
	writeJSON(w, http.StatusOK, user)
}
