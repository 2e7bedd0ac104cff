// internal/api/handler/api/reports.go
package api

import (
	"fmt"
	"net/http"

	"github.com/newthinker/crossover/internal/api/response"
	"github.com/newthinker/crossover/internal/core"
	"github.com/newthinker/crossover/internal/storage/report"
)

// ReportsHandler serves archived backtest results.
type ReportsHandler struct {
	store *report.Store // nil when archiving is disabled
}

// NewReportsHandler creates a new reports handler.
func NewReportsHandler(store *report.Store) *ReportsHandler {
	return &ReportsHandler{store: store}
}

// List returns the ids of all archived reports.
func (h *ReportsHandler) List(w http.ResponseWriter, r *http.Request) {
	ids := []string{}
	if h.store != nil {
		var err error
		ids, err = h.store.List(r.Context())
		if err != nil {
			response.FromError(w, err)
			return
		}
	}

	response.JSON(w, http.StatusOK, map[string]any{
		"reports": ids,
		"count":   len(ids),
	})
}

// Get returns one archived report.
func (h *ReportsHandler) Get(w http.ResponseWriter, r *http.Request, id string) {
	if h.store == nil {
		response.Error(w, http.StatusNotFound,
			core.WrapError(core.ErrReportNotFound, fmt.Errorf("report archive disabled")))
		return
	}

	result, err := h.store.Load(r.Context(), id)
	if err != nil {
		response.FromError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, result)
}
