package server

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/clawcoach/clawcoach/internal/chat"
	"github.com/clawcoach/clawcoach/internal/types"
)

// maxRequestBodySize bounds chat request bodies (1MB).
const maxRequestBodySize = 1 << 20

type chatRequestBody struct {
	Messages      []types.ChatMessage `json:"messages"`
	AgentName     string              `json:"agentName"`
	CoachingStyle string              `json:"coachingStyle"`
	AgentDBID     string              `json:"agentDbId"`
}

func (b chatRequestBody) validate() error {
	if len(b.Messages) == 0 {
		return fmt.Errorf("messages must not be empty")
	}
	if b.AgentName == "" {
		return fmt.Errorf("agentName is required")
	}
	if b.CoachingStyle == "" {
		return fmt.Errorf("coachingStyle is required")
	}
	return nil
}

// handleChat streams a coaching response as chunked text/plain. Quota
// rejections happen before any byte of the stream is committed; a mid-stream
// model failure is reported in-band since the status line is already gone.
func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var body chatRequestBody
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBodySize)).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := body.validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	wallet := r.Header.Get(walletHeader)
	decision := s.svc.CheckAccess(r.Context(), wallet, body.AgentDBID)
	switch decision.Status {
	case chat.AccessRateLimited:
		retryAfter := int(time.Until(decision.RateLimit.Reset).Seconds())
		if retryAfter < 1 {
			retryAfter = 1
		}
		w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
		writeJSON(w, http.StatusTooManyRequests, map[string]any{
			"error":  fmt.Sprintf("rate limit exceeded (%s)", decision.RateLimit.Window),
			"limit":  decision.RateLimit.Limit,
			"window": decision.RateLimit.Window,
		})
		return
	case chat.AccessPaywalled:
		writeJSON(w, http.StatusPaymentRequired, map[string]any{
			"error":        "free_tier_exceeded",
			"used":         decision.Free.Used,
			"limit":        decision.Free.Limit,
			"paidEndpoint": s.paidPath,
			"message":      "Free message limit reached. Continue coaching via the paid endpoint.",
		})
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(http.StatusOK)

	req := chat.Request{
		Messages:      body.Messages,
		AgentName:     body.AgentName,
		CoachingStyle: body.CoachingStyle,
		AgentDBID:     body.AgentDBID,
		Wallet:        wallet,
	}

	_, err := s.svc.StreamTurn(r.Context(), req, func(delta string) error {
		if _, werr := w.Write([]byte(delta)); werr != nil {
			return werr
		}
		flusher.Flush()
		return nil
	})
	if err != nil {
		// Partial output is already on the wire; append the error marker
		// in-band rather than discarding what was sent.
		slog.Error("chat stream failed", "error", err)
		fmt.Fprintf(w, "\n\n[Error: %s]", streamErrorMessage(err))
		flusher.Flush()
	}
}

func streamErrorMessage(err error) string {
	if err == nil {
		return "stream error"
	}
	return err.Error()
}
