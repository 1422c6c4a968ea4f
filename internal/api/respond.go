package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/jeremiasmarinho/techlog-clinic-os-sub000/internal/repo"
	"github.com/jeremiasmarinho/techlog-clinic-os-sub000/internal/tenant"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func jsonError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// fieldErrors reports per-field validation failures as 422.
func fieldErrors(w http.ResponseWriter, fields map[string]string) {
	writeJSON(w, http.StatusUnprocessableEntity, map[string]any{
		"error":  "validation failed",
		"fields": fields,
	})
}

// repoError maps repository and tenant errors onto the HTTP taxonomy.
// Unknown errors become a generic 500; the detail only leaves the process
// outside production.
func (h *Handler) repoError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, tenant.ErrNoClinic):
		jsonError(w, http.StatusUnauthorized, "clinic not identified")
	case errors.Is(err, repo.ErrNotFound):
		jsonError(w, http.StatusNotFound, "not found")
	case errors.Is(err, repo.ErrConflict):
		jsonError(w, http.StatusConflict, err.Error())
	default:
		log.Error().Err(err).Msg("request failed")
		if h.Cfg.IsProduction() {
			jsonError(w, http.StatusInternalServerError, "internal error")
			return
		}
		jsonError(w, http.StatusInternalServerError, err.Error())
	}
}
