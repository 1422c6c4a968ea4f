package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/jeremiasmarinho/techlog-clinic-os-sub000/internal/calendar"
	"github.com/jeremiasmarinho/techlog-clinic-os-sub000/internal/repo"
	"github.com/jeremiasmarinho/techlog-clinic-os-sub000/internal/tenant"
)

// ListMedicalRecords returns the clinical history attached to one
// appointment.
func (h *Handler) ListMedicalRecords(w http.ResponseWriter, r *http.Request) {
	scope, err := tenant.Resolve(r.Context(), "medical_records.list")
	if err != nil {
		h.repoError(w, err)
		return
	}
	ref, err := calendar.ParseRef(mux.Vars(r)["id"])
	if err != nil || ref.Kind != calendar.KindAppointment {
		jsonError(w, http.StatusBadRequest, "invalid id")
		return
	}
	list, err := repo.MedicalRecordsByAppointment(r.Context(), h.Pool, ref.ID, scope.Clinic())
	if err != nil {
		h.repoError(w, err)
		return
	}
	if list == nil {
		list = []repo.MedicalRecord{}
	}
	writeJSON(w, http.StatusOK, list)
}
