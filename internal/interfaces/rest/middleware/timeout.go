package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/pccbooth/payment-gateway/internal/interfaces/rest"
)

// Timeout bounds request handling so a stuck handler fails fast instead of
// holding the kiosk's connection open. The 503 body carries the same error
// envelope the handlers write, rendered once up front because
// http.TimeoutHandler takes its body as a string.
func Timeout(timeout time.Duration) func(http.Handler) http.Handler {
	body, _ := json.Marshal(rest.ErrorResponse{
		Error: rest.ErrorDetail{
			Code:    "TIMEOUT",
			Message: "request timed out",
		},
	})

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, cancel := context.WithTimeout(r.Context(), timeout)
			defer cancel()

			http.TimeoutHandler(next, timeout, string(body)).ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
