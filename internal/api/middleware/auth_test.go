// internal/api/middleware/auth_test.go
package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/newthinker/crossover/internal/api/response"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newMux mounts a protected backtest route and an open health route.
func newMux(apiKey string) *http.ServeMux {
	ok := func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusAccepted)
	}
	protect := APIKeyAuth(apiKey)

	mux := http.NewServeMux()
	mux.Handle("POST /api/v1/backtest", protect(http.HandlerFunc(ok)))
	mux.HandleFunc("GET /api/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	return mux
}

func TestAPIKeyAuth(t *testing.T) {
	tests := []struct {
		name      string
		apiKey    string
		header    string
		wantCode  int
		wantError string
	}{
		{name: "matching key", apiKey: "secret-key", header: "secret-key", wantCode: http.StatusAccepted},
		{name: "missing key", apiKey: "secret-key", wantCode: http.StatusUnauthorized, wantError: "X-API-Key header is required"},
		{name: "wrong key", apiKey: "secret-key", header: "wrong-key", wantCode: http.StatusUnauthorized, wantError: "X-API-Key does not match"},
		{name: "auth disabled", apiKey: "", wantCode: http.StatusAccepted},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/v1/backtest", nil)
			if tt.header != "" {
				req.Header.Set(APIKeyHeader, tt.header)
			}
			w := httptest.NewRecorder()

			newMux(tt.apiKey).ServeHTTP(w, req)

			require.Equal(t, tt.wantCode, w.Code)
			if tt.wantError == "" {
				return
			}
			var resp response.ErrorResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			assert.Equal(t, "UNAUTHORIZED", resp.Error.Code)
			assert.Equal(t, tt.wantError, resp.Error.Cause)
		})
	}
}

func TestAPIKeyAuth_HealthStaysOpen(t *testing.T) {
	w := httptest.NewRecorder()
	newMux("secret-key").ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/health", nil))

	assert.Equal(t, http.StatusOK, w.Code)
}
