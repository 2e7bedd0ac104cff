// internal/api/middleware/auth.go
package middleware

import (
	"crypto/subtle"
	"errors"
	"net/http"

	"github.com/newthinker/crossover/internal/api/response"
	"github.com/newthinker/crossover/internal/core"
)

// APIKeyHeader carries the client key on protected routes.
const APIKeyHeader = "X-API-Key"

// APIKeyAuth rejects requests whose X-API-Key does not match apiKey with
// 401 UNAUTHORIZED. An empty apiKey disables the check.
func APIKeyAuth(apiKey string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if apiKey == "" {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			provided := r.Header.Get(APIKeyHeader)
			if provided == "" {
				response.FromError(w, core.WrapError(core.ErrUnauthorized,
					errors.New("X-API-Key header is required")))
				return
			}

			if subtle.ConstantTimeCompare([]byte(provided), []byte(apiKey)) != 1 {
				response.FromError(w, core.WrapError(core.ErrUnauthorized,
					errors.New("X-API-Key does not match")))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
