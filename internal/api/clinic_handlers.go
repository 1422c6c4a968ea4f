package api

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/jeremiasmarinho/techlog-clinic-os-sub000/internal/repo"
	"github.com/jeremiasmarinho/techlog-clinic-os-sub000/internal/tenant"
)

// GetSettings returns the clinic's configuration blobs verbatim.
func (h *Handler) GetSettings(w http.ResponseWriter, r *http.Request) {
	scope, err := tenant.Resolve(r.Context(), "settings.get")
	if err != nil || scope.Clinic() == nil {
		h.repoError(w, tenant.ErrNoClinic)
		return
	}
	s, err := repo.SettingsByClinic(r.Context(), h.DB, *scope.Clinic())
	if err != nil {
		h.repoError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s)
}

// PutSettings upserts the configuration blobs. Each provided blob must be
// valid JSON; nil blobs keep their stored value.
func (h *Handler) PutSettings(w http.ResponseWriter, r *http.Request) {
	scope, err := tenant.Resolve(r.Context(), "settings.put")
	if err != nil || scope.Clinic() == nil {
		h.repoError(w, tenant.ErrNoClinic)
		return
	}
	var p repo.SettingsPatch
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid body")
		return
	}
	if err := p.Validate(); err != nil {
		fieldErrors(w, map[string]string{"settings": err.Error()})
		return
	}
	if err := repo.UpsertSettings(r.Context(), h.DB, *scope.Clinic(), p); err != nil {
		h.repoError(w, err)
		return
	}
	h.audit(r, "settings.update", "clinic_settings", "")
	s, err := repo.SettingsByClinic(r.Context(), h.DB, *scope.Clinic())
	if err != nil {
		h.repoError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s)
}

// ClinicInfo returns the authenticated user's own clinic.
func (h *Handler) ClinicInfo(w http.ResponseWriter, r *http.Request) {
	scope, err := tenant.Resolve(r.Context(), "clinic.info")
	if err != nil || scope.Clinic() == nil {
		h.repoError(w, tenant.ErrNoClinic)
		return
	}
	c, err := repo.ClinicByID(r.Context(), h.Pool, *scope.Clinic())
	if err != nil {
		h.repoError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

type UpgradeRequestBody struct {
	RequestedPlan string  `json:"requested_plan"`
	Notes         *string `json:"notes"`
}

// RequestUpgrade files a plan upgrade request for the caller's clinic.
func (h *Handler) RequestUpgrade(w http.ResponseWriter, r *http.Request) {
	scope, err := tenant.Resolve(r.Context(), "upgrade.request")
	if err != nil || scope.Clinic() == nil {
		h.repoError(w, tenant.ErrNoClinic)
		return
	}
	var req UpgradeRequestBody
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid body")
		return
	}
	req.RequestedPlan = strings.TrimSpace(req.RequestedPlan)
	if req.RequestedPlan == "" {
		fieldErrors(w, map[string]string{"requested_plan": "required"})
		return
	}
	u, err := repo.CreateUpgradeRequest(r.Context(), h.Pool, *scope.Clinic(), req.RequestedPlan, req.Notes)
	if err != nil {
		h.repoError(w, err)
		return
	}
	h.audit(r, "upgrade.request", "upgrade_request", "")
	writeJSON(w, http.StatusCreated, u)
}
