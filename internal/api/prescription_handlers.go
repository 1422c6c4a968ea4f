package api

import (
	"fmt"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/jeremiasmarinho/techlog-clinic-os-sub000/internal/pdf"
	"github.com/jeremiasmarinho/techlog-clinic-os-sub000/internal/repo"
)

// VerifyPrescription is the public authenticity check behind the QR code.
func (h *Handler) VerifyPrescription(w http.ResponseWriter, r *http.Request) {
	p, err := repo.PrescriptionByToken(r.Context(), h.Pool, mux.Vars(r)["token"])
	if err != nil {
		h.repoError(w, err)
		return
	}
	clinic, err := repo.ClinicByID(r.Context(), h.Pool, p.ClinicID)
	if err != nil {
		h.repoError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"valid":     true,
		"clinic":    clinic.Name,
		"issued_at": p.CreatedAt,
	})
}

// PrescriptionPDF renders the prescription document with its verification QR.
func (h *Handler) PrescriptionPDF(w http.ResponseWriter, r *http.Request) {
	p, err := repo.PrescriptionByToken(r.Context(), h.Pool, mux.Vars(r)["token"])
	if err != nil {
		h.repoError(w, err)
		return
	}
	clinic, err := repo.ClinicByID(r.Context(), h.Pool, p.ClinicID)
	if err != nil {
		h.repoError(w, err)
		return
	}

	doc := pdf.PrescriptionDoc{
		ClinicName:        clinic.Name,
		Content:           p.Content,
		IssuedAt:          p.CreatedAt.Format("02/01/2006"),
		VerificationToken: p.VerificationToken,
		VerificationURL:   fmt.Sprintf("%s/verify/%s", h.Cfg.AppPublicURL, p.VerificationToken),
	}
	// Patient and doctor come from the appointment behind the record.
	if patient, doctor, err := appointmentForRecord(r, h, p.MedicalRecordID); err == nil {
		doc.PatientName = patient
		doc.DoctorName = doctor
	}

	out, err := pdf.BuildPrescriptionPDF(doc)
	if err != nil {
		h.repoError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", `inline; filename="receituario.pdf"`)
	w.Write(out)
}

func appointmentForRecord(r *http.Request, h *Handler, medicalRecordID int64) (patient, doctor string, err error) {
	var d *string
	err = h.Pool.QueryRow(r.Context(), `
		SELECT a.patient_name, a.doctor
		FROM medical_records m
		JOIN appointments a ON a.id = m.appointment_id
		WHERE m.id = $1
	`, medicalRecordID).Scan(&patient, &d)
	if d != nil {
		doctor = *d
	}
	return patient, doctor, err
}
