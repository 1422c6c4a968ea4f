package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"github.com/jeremiasmarinho/techlog-clinic-os-sub000/internal/export"
	"github.com/jeremiasmarinho/techlog-clinic-os-sub000/internal/repo"
)

// ListClinics returns every clinic with usage counters. Super admin only;
// the router enforces the role.
func (h *Handler) ListClinics(w http.ResponseWriter, r *http.Request) {
	list, err := repo.ListClinics(r.Context(), h.Pool)
	if err != nil {
		h.repoError(w, err)
		return
	}
	if list == nil {
		list = []repo.ClinicUsage{}
	}
	writeJSON(w, http.StatusOK, list)
}

type CreateClinicRequest struct {
	Name          string  `json:"name"`
	Slug          string  `json:"slug"`
	PlanTier      string  `json:"plan_tier"`
	OwnerEmail    *string `json:"owner_email"`
	AdminUsername string  `json:"admin_username"`
	AdminPassword string  `json:"admin_password"`
	AdminName     string  `json:"admin_name"`
}

// CreateClinic provisions a clinic and its first admin atomically.
func (h *Handler) CreateClinic(w http.ResponseWriter, r *http.Request) {
	var req CreateClinicRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid body")
		return
	}
	fields := map[string]string{}
	req.Name = strings.TrimSpace(req.Name)
	req.Slug = strings.ToLower(strings.TrimSpace(req.Slug))
	req.AdminUsername = strings.TrimSpace(req.AdminUsername)
	if req.Name == "" {
		fields["name"] = "required"
	}
	if req.Slug == "" {
		fields["slug"] = "required"
	}
	if req.AdminUsername == "" {
		fields["admin_username"] = "required"
	}
	if len(req.AdminPassword) < 8 {
		fields["admin_password"] = "minimum 8 characters"
	}
	if req.AdminName == "" {
		fields["admin_name"] = "required"
	}
	if len(fields) > 0 {
		fieldErrors(w, fields)
		return
	}
	c, err := repo.CreateClinicWithAdmin(r.Context(), h.Pool, repo.CreateClinicInput{
		Name:          req.Name,
		Slug:          req.Slug,
		PlanTier:      req.PlanTier,
		OwnerEmail:    req.OwnerEmail,
		AdminUsername: req.AdminUsername,
		AdminPassword: req.AdminPassword,
		AdminName:     req.AdminName,
	})
	if err != nil {
		h.repoError(w, err)
		return
	}
	h.audit(r, "clinic.create", "clinic", strconv.FormatInt(c.ID, 10))
	writeJSON(w, http.StatusCreated, c)
}

func clinicIDVar(r *http.Request) (int64, error) {
	return strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
}

func (h *Handler) GetClinic(w http.ResponseWriter, r *http.Request) {
	id, err := clinicIDVar(r)
	if err != nil {
		jsonError(w, http.StatusBadRequest, "invalid id")
		return
	}
	c, err := repo.ClinicByID(r.Context(), h.Pool, id)
	if err != nil {
		h.repoError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (h *Handler) UpdateClinic(w http.ResponseWriter, r *http.Request) {
	id, err := clinicIDVar(r)
	if err != nil {
		jsonError(w, http.StatusBadRequest, "invalid id")
		return
	}
	var p repo.ClinicPatch
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid body")
		return
	}
	if p.Empty() {
		jsonError(w, http.StatusBadRequest, "at least one field required")
		return
	}
	if p.Status != nil && !repo.ValidClinicStatus(*p.Status) {
		fieldErrors(w, map[string]string{"status": "unknown status"})
		return
	}
	if err := repo.UpdateClinic(r.Context(), h.Pool, id, p); err != nil {
		h.repoError(w, err)
		return
	}
	h.audit(r, "clinic.update", "clinic", strconv.FormatInt(id, 10))
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) DeleteClinic(w http.ResponseWriter, r *http.Request) {
	id, err := clinicIDVar(r)
	if err != nil {
		jsonError(w, http.StatusBadRequest, "invalid id")
		return
	}
	if err := repo.DeleteClinic(r.Context(), h.Pool, id); err != nil {
		h.repoError(w, err)
		return
	}
	h.Cache.DeletePrefix("calendar:")
	h.audit(r, "clinic.delete", "clinic", strconv.FormatInt(id, 10))
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) ListUpgradeRequests(w http.ResponseWriter, r *http.Request) {
	list, err := repo.ListUpgradeRequests(r.Context(), h.Pool, r.URL.Query().Get("status"))
	if err != nil {
		h.repoError(w, err)
		return
	}
	if list == nil {
		list = []repo.UpgradeRequest{}
	}
	writeJSON(w, http.StatusOK, list)
}

type ResolveUpgradeBody struct {
	Approve bool `json:"approve"`
}

// ResolveUpgradeRequest approves or rejects a pending upgrade. Approval
// moves the clinic onto the requested plan in the same transaction.
func (h *Handler) ResolveUpgradeRequest(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		jsonError(w, http.StatusBadRequest, "invalid id")
		return
	}
	var body ResolveUpgradeBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid body")
		return
	}
	u, err := repo.ResolveUpgradeRequest(r.Context(), h.Pool, id, body.Approve)
	if err != nil {
		h.repoError(w, err)
		return
	}
	h.audit(r, "upgrade.resolve", "upgrade_request", strconv.FormatInt(id, 10))
	writeJSON(w, http.StatusOK, u)
}

// PlatformAnalytics returns the cross-tenant rollup.
func (h *Handler) PlatformAnalytics(w http.ResponseWriter, r *http.Request) {
	a, err := repo.ComputePlatformAnalytics(r.Context(), h.Pool, time.Now())
	if err != nil {
		h.repoError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, a)
}

// ExportAnalytics downloads the per-clinic rollup as CSV (default) or XLSX.
func (h *Handler) ExportAnalytics(w http.ResponseWriter, r *http.Request) {
	rows, err := repo.AnalyticsRows(r.Context(), h.Pool)
	if err != nil {
		h.repoError(w, err)
		return
	}
	name := fmt.Sprintf("clinics-%s", time.Now().Format("2006-01-02"))
	switch r.URL.Query().Get("format") {
	case "xlsx":
		w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
		w.Header().Set("Content-Disposition", `attachment; filename="`+name+`.xlsx"`)
		if err := export.WriteXLSX(w, rows); err != nil {
			h.repoError(w, err)
		}
	case "", "csv":
		w.Header().Set("Content-Type", "text/csv")
		w.Header().Set("Content-Disposition", `attachment; filename="`+name+`.csv"`)
		if err := export.WriteCSV(w, rows); err != nil {
			h.repoError(w, err)
		}
	default:
		jsonError(w, http.StatusBadRequest, "format must be csv or xlsx")
	}
}

// ListAuditLogs returns recent audit entries, optionally for one clinic.
func (h *Handler) ListAuditLogs(w http.ResponseWriter, r *http.Request) {
	var clinicID *int64
	if s := r.URL.Query().Get("clinic_id"); s != "" {
		id, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			jsonError(w, http.StatusBadRequest, "invalid clinic_id")
			return
		}
		clinicID = &id
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	list, err := repo.ListAudit(r.Context(), h.Pool, clinicID, limit)
	if err != nil {
		h.repoError(w, err)
		return
	}
	if list == nil {
		list = []repo.AuditEntry{}
	}
	writeJSON(w, http.StatusOK, list)
}
