// internal/api/handler/api/request.go
package api

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/newthinker/crossover/internal/core"
)

const maxBodyBytes = 8 << 20

var validate = validator.New(validator.WithRequiredStructEnabled())

// decode reads a JSON body into dst and validates its struct tags.
func decode(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return core.WrapError(core.ErrInvalidParameter, fmt.Errorf("decoding request: %w", err))
	}
	if err := validate.Struct(dst); err != nil {
		return core.WrapError(core.ErrInvalidParameter, err)
	}
	return nil
}
