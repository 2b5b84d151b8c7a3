package payment

import (
	"encoding/json"
	"log/slog"
	"net/http"
)

// PaymentHeader carries the payment proof on gated requests.
const PaymentHeader = "X-Payment"

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// Middleware rejects requests without a valid payment proof and settles the
// payment after the gated handler responds successfully. Settlement failures
// are logged but do not alter the response already sent.
func Middleware(validator Validator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			proof := r.Header.Get(PaymentHeader)
			if proof == "" {
				writePaymentRequired(w, validator, "payment required")
				return
			}
			if err := validator.Verify(r.Context(), proof); err != nil {
				slog.Info("payment verification failed", "error", err)
				writePaymentRequired(w, validator, "invalid payment")
				return
			}

			recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(recorder, r)

			if recorder.status < http.StatusBadRequest {
				if err := validator.Settle(r.Context(), proof); err != nil {
					slog.Error("payment settlement failed", "error", err)
				}
			}
		})
	}
}

func writePaymentRequired(w http.ResponseWriter, validator Validator, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusPaymentRequired)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"error":   message,
		"accepts": validator.Requirements(),
	})
}
