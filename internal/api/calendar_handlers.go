package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"

	"github.com/jeremiasmarinho/techlog-clinic-os-sub000/internal/auth"
	"github.com/jeremiasmarinho/techlog-clinic-os-sub000/internal/calendar"
	"github.com/jeremiasmarinho/techlog-clinic-os-sub000/internal/metrics"
	"github.com/jeremiasmarinho/techlog-clinic-os-sub000/internal/middleware"
	"github.com/jeremiasmarinho/techlog-clinic-os-sub000/internal/repo"
	"github.com/jeremiasmarinho/techlog-clinic-os-sub000/internal/tenant"
)

// CalendarResponse is the unioned agenda. Partial is set when one of the two
// sources failed and the other still answered.
type CalendarResponse struct {
	Items   []calendar.Record `json:"items"`
	Partial bool              `json:"partial,omitempty"`
}

// parseDateParam accepts RFC3339 or a bare date.
func parseDateParam(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return &t, nil
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return nil, fmt.Errorf("invalid date %q", s)
	}
	return &t, nil
}

// inclusiveEnd estende uma data sem horário até o fim do dia, para o
// limite superior ser inclusivo.
func inclusiveEnd(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	if t.Hour() == 0 && t.Minute() == 0 && t.Second() == 0 && t.Nanosecond() == 0 {
		e := t.Add(24*time.Hour - time.Nanosecond)
		return &e
	}
	return t
}

func calendarCacheKey(clinicID *int64, from, to *time.Time) string {
	key := "calendar:"
	if clinicID != nil {
		key += fmt.Sprintf("%d", *clinicID)
	}
	if from != nil {
		key += ":" + from.Format(time.RFC3339)
	}
	if to != nil {
		key += ":" + to.Format(time.RFC3339)
	}
	return key
}

// fetchCalendar queries both sources concurrently and merges. One side
// failing yields the other side plus partial=true; both failing is an error.
func (h *Handler) fetchCalendar(ctx context.Context, clinicID *int64, from, to *time.Time) (CalendarResponse, error) {
	type result struct {
		records []calendar.Record
		err     error
	}
	apptCh := make(chan result, 1)
	leadCh := make(chan result, 1)
	go func() {
		recs, err := repo.ListAppointmentRecords(ctx, h.Pool, clinicID, from, to)
		apptCh <- result{recs, err}
	}()
	go func() {
		recs, err := repo.ListLeadRecords(ctx, h.Pool, clinicID, from, to)
		leadCh <- result{recs, err}
	}()
	appts, leads := <-apptCh, <-leadCh

	if appts.err != nil && leads.err != nil {
		return CalendarResponse{}, fmt.Errorf("calendar query: %w", appts.err)
	}
	resp := CalendarResponse{Items: calendar.Merge(appts.records, leads.records)}
	if appts.err != nil || leads.err != nil {
		resp.Partial = true
		err := appts.err
		side := "appointments"
		if leads.err != nil {
			err = leads.err
			side = "leads"
		}
		log.Warn().Err(err).Str("source", side).Msg("calendar source failed, serving partial result")
	}
	if resp.Items == nil {
		resp.Items = []calendar.Record{}
	}
	return resp, nil
}

// ListCalendar returns appointments and scheduled leads as one agenda,
// ordered by start time.
func (h *Handler) ListCalendar(w http.ResponseWriter, r *http.Request) {
	scope, err := tenant.Resolve(r.Context(), "calendar.list")
	if err != nil {
		h.repoError(w, err)
		return
	}
	q := r.URL.Query()
	fromRaw := q.Get("startDate")
	if fromRaw == "" {
		fromRaw = q.Get("from")
	}
	toRaw := q.Get("endDate")
	if toRaw == "" {
		toRaw = q.Get("to")
	}
	from, err := parseDateParam(fromRaw)
	if err != nil {
		jsonError(w, http.StatusBadRequest, err.Error())
		return
	}
	to, err := parseDateParam(toRaw)
	if err != nil {
		jsonError(w, http.StatusBadRequest, err.Error())
		return
	}
	to = inclusiveEnd(to)

	// Complete responses for a concrete clinic are cached briefly; partial
	// and bypass reads always go to the database.
	key := calendarCacheKey(scope.Clinic(), from, to)
	if !scope.Bypass {
		if b := h.Cache.Get(key); b != nil {
			w.Header().Set("Content-Type", "application/json")
			w.Write(b)
			return
		}
	}

	resp, err := h.fetchCalendar(r.Context(), scope.Clinic(), from, to)
	if err != nil {
		h.repoError(w, err)
		return
	}
	if !scope.Bypass && !resp.Partial {
		if b, err := json.Marshal(resp); err == nil {
			h.Cache.Set(key, b)
			w.Header().Set("Content-Type", "application/json")
			w.Write(b)
			return
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

// GetCalendarItem fetches one agenda entry by its composite id.
func (h *Handler) GetCalendarItem(w http.ResponseWriter, r *http.Request) {
	scope, err := tenant.Resolve(r.Context(), "calendar.get")
	if err != nil {
		h.repoError(w, err)
		return
	}
	ref, err := calendar.ParseRef(mux.Vars(r)["id"])
	if err != nil {
		jsonError(w, http.StatusBadRequest, "invalid id")
		return
	}
	var rec *calendar.Record
	if ref.Kind == calendar.KindLead {
		rec, err = repo.LeadRecordByID(r.Context(), h.Pool, ref.ID, scope.Clinic())
	} else {
		rec, err = repo.AppointmentRecordByID(r.Context(), h.Pool, ref.ID, scope.Clinic())
	}
	if err != nil {
		h.repoError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

type CreateAppointmentRequest struct {
	PatientName     string   `json:"patient_name"`
	PatientPhone    *string  `json:"patient_phone"`
	AppointmentDate string   `json:"appointment_date"`
	DurationMinutes *int     `json:"duration_minutes"`
	Notes           *string  `json:"notes"`
	Doctor          *string  `json:"doctor"`
	Type            *string  `json:"type"`
	Insurance       *string  `json:"insurance"`
	Value           *float64 `json:"value"`
}

// toInput materializa os opcionais; os zeros viram defaults no repo.
func (req CreateAppointmentRequest) toInput(clinicID int64, date time.Time) repo.CreateAppointmentInput {
	in := repo.CreateAppointmentInput{
		ClinicID:        clinicID,
		PatientName:     req.PatientName,
		PatientPhone:    req.PatientPhone,
		AppointmentDate: date,
		Notes:           req.Notes,
		Doctor:          req.Doctor,
		Type:            req.Type,
	}
	if req.DurationMinutes != nil {
		in.DurationMinutes = *req.DurationMinutes
	}
	if req.Insurance != nil {
		in.Insurance = *req.Insurance
	}
	if req.Value != nil {
		in.Value = *req.Value
	}
	return in
}

// CreateAppointment inserts a new appointment and fires the WhatsApp
// confirmation off-request.
func (h *Handler) CreateAppointment(w http.ResponseWriter, r *http.Request) {
	scope, err := tenant.Resolve(r.Context(), "calendar.create")
	if err != nil {
		h.repoError(w, err)
		return
	}
	if scope.Bypass {
		// Creation always needs a concrete clinic, even for super admins.
		jsonError(w, http.StatusBadRequest, "clinic_id required for creation")
		return
	}
	var req CreateAppointmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid body")
		return
	}

	fields := map[string]string{}
	req.PatientName = strings.TrimSpace(req.PatientName)
	if req.PatientName == "" {
		fields["patient_name"] = "required"
	}
	date, err := parseDateParam(req.AppointmentDate)
	if err != nil || date == nil {
		fields["appointment_date"] = "required, RFC3339 or YYYY-MM-DD"
	}
	if req.DurationMinutes != nil && *req.DurationMinutes <= 0 {
		fields["duration_minutes"] = "must be positive"
	}
	if len(fields) > 0 {
		fieldErrors(w, fields)
		return
	}

	id, err := repo.CreateAppointment(r.Context(), h.Pool, req.toInput(*scope.ClinicID, *date))
	if err != nil {
		h.repoError(w, err)
		return
	}
	h.Cache.DeletePrefix("calendar:")
	h.audit(r, "appointment.create", "appointment", fmt.Sprintf("%d", id))

	if req.PatientPhone != nil && *req.PatientPhone != "" {
		phone, name, start := *req.PatientPhone, req.PatientName, *date
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
			defer cancel()
			if err := h.WhatsApp.SendConfirmation(ctx, phone, name, start); err != nil {
				log.Warn().Err(err).Msg("confirmation message failed")
			}
		}()
	}

	rec, err := repo.AppointmentRecordByID(r.Context(), h.Pool, id, scope.Clinic())
	if err != nil {
		h.repoError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, rec)
}

// UpdateCalendarItemRequest accepts the canonical field names plus the
// legacy aliases name/phone/appointmentDate and the snake_case variants
// older clients still send.
type UpdateCalendarItemRequest struct {
	Start              *time.Time `json:"start"`
	StartTime          *time.Time `json:"start_time"`
	End                *time.Time `json:"end"`
	EndTime            *time.Time `json:"end_time"`
	AppointmentDate    *string    `json:"appointmentDate"`
	AppointmentDateAlt *string    `json:"appointment_date"`
	Status             *string    `json:"status"`
	Notes              *string    `json:"notes"`
	PatientName        *string    `json:"patientName"`
	PatientNameAlt     *string    `json:"patient_name"`
	PatientPhone       *string    `json:"patientPhone"`
	PatientPhoneAlt    *string    `json:"patient_phone"`
	Name               *string    `json:"name"`
	Phone              *string    `json:"phone"`
	Insurance          *string    `json:"insurance"`
	Doctor             *string    `json:"doctor"`
	Type               *string    `json:"type"`
	Value              *float64   `json:"value"`
}

func firstTime(ts ...*time.Time) *time.Time {
	for _, t := range ts {
		if t != nil {
			return t
		}
	}
	return nil
}

func firstString(ss ...*string) *string {
	for _, s := range ss {
		if s != nil {
			return s
		}
	}
	return nil
}

// normalize dobra os aliases sobre os campos canônicos.
func (req *UpdateCalendarItemRequest) normalize() {
	req.Start = firstTime(req.Start, req.StartTime)
	req.End = firstTime(req.End, req.EndTime)
	req.AppointmentDate = firstString(req.AppointmentDate, req.AppointmentDateAlt)
	req.PatientName = firstString(req.PatientName, req.Name, req.PatientNameAlt)
	req.PatientPhone = firstString(req.PatientPhone, req.Phone, req.PatientPhoneAlt)
}

func (req *UpdateCalendarItemRequest) empty() bool {
	return req.Start == nil && req.End == nil && req.AppointmentDate == nil &&
		req.Status == nil && req.Notes == nil && req.PatientName == nil &&
		req.PatientPhone == nil && req.Insurance == nil && req.Doctor == nil &&
		req.Type == nil && req.Value == nil
}

// UpdateCalendarItem patches one agenda entry. Appointments accept the full
// field set; leads only honor appointment_date, their schema has nothing
// else to patch.
func (h *Handler) UpdateCalendarItem(w http.ResponseWriter, r *http.Request) {
	scope, err := tenant.Resolve(r.Context(), "calendar.update")
	if err != nil {
		h.repoError(w, err)
		return
	}
	ref, err := calendar.ParseRef(mux.Vars(r)["id"])
	if err != nil {
		jsonError(w, http.StatusBadRequest, "invalid id")
		return
	}
	var req UpdateCalendarItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid body")
		return
	}
	req.normalize()
	if req.empty() {
		jsonError(w, http.StatusBadRequest, "at least one field required")
		return
	}
	var apptDate *time.Time
	if req.AppointmentDate != nil {
		if apptDate, err = parseDateParam(*req.AppointmentDate); err != nil {
			fieldErrors(w, map[string]string{"appointment_date": "RFC3339 or YYYY-MM-DD"})
			return
		}
	}
	if req.Status != nil && !calendar.ValidStatus(*req.Status) {
		fieldErrors(w, map[string]string{"status": "unknown status"})
		return
	}

	if ref.Kind == calendar.KindLead {
		// O lead só tem a data para remarcar; o resto do payload é
		// ignorado sem erro.
		date := firstTime(apptDate, req.Start)
		if date == nil {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		err = repo.UpdateLeadAppointmentDate(r.Context(), h.Pool, ref.ID, scope.Clinic(), *date)
	} else {
		patch := repo.AppointmentPatch{
			Start:           req.Start,
			End:             req.End,
			AppointmentDate: apptDate,
			Status:          req.Status,
			Notes:           req.Notes,
			PatientName:     req.PatientName,
			PatientPhone:    req.PatientPhone,
			Insurance:       req.Insurance,
			Doctor:          req.Doctor,
			Type:            req.Type,
			Value:           req.Value,
		}
		err = repo.UpdateAppointment(r.Context(), h.Pool, ref.ID, scope.Clinic(), patch)
	}
	if err != nil {
		h.repoError(w, err)
		return
	}
	h.Cache.DeletePrefix("calendar:")
	h.audit(r, "calendar.update", "calendar", ref.String())
	w.WriteHeader(http.StatusNoContent)
}

// DeleteCalendarItem removes an appointment or a lead.
func (h *Handler) DeleteCalendarItem(w http.ResponseWriter, r *http.Request) {
	scope, err := tenant.Resolve(r.Context(), "calendar.delete")
	if err != nil {
		h.repoError(w, err)
		return
	}
	ref, err := calendar.ParseRef(mux.Vars(r)["id"])
	if err != nil {
		jsonError(w, http.StatusBadRequest, "invalid id")
		return
	}
	if ref.Kind == calendar.KindLead {
		err = repo.DeleteLead(r.Context(), h.Pool, ref.ID, scope.Clinic())
	} else {
		err = repo.DeleteAppointment(r.Context(), h.Pool, ref.ID, scope.Clinic())
	}
	if err != nil {
		h.repoError(w, err)
		return
	}
	h.Cache.DeletePrefix("calendar:")
	h.audit(r, "calendar.delete", "calendar", ref.String())
	w.WriteHeader(http.StatusNoContent)
}

type FinalizeRequest struct {
	Anamnesis    *string  `json:"anamnesis"`
	Diagnosis    *string  `json:"diagnosis"`
	Procedures   *string  `json:"procedures"`
	Prescription *string  `json:"prescription"`
	Value        *float64 `json:"value"`
}

// FinalizeAppointment closes an appointment with its clinical record and an
// optional prescription. Leads cannot be finalized directly.
func (h *Handler) FinalizeAppointment(w http.ResponseWriter, r *http.Request) {
	scope, err := tenant.Resolve(r.Context(), "calendar.finalize")
	if err != nil {
		h.repoError(w, err)
		return
	}
	ref, err := calendar.ParseRef(mux.Vars(r)["id"])
	if err != nil {
		jsonError(w, http.StatusBadRequest, "invalid id")
		return
	}
	if ref.Kind == calendar.KindLead {
		jsonError(w, http.StatusBadRequest, "leads cannot be finalized, convert to appointment first")
		return
	}
	var req FinalizeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid body")
		return
	}
	res, err := repo.FinalizeAppointment(r.Context(), h.Pool, ref.ID, scope.Clinic(), repo.FinalizeInput{
		Anamnesis:    req.Anamnesis,
		Diagnosis:    req.Diagnosis,
		Procedures:   req.Procedures,
		Prescription: req.Prescription,
		Value:        req.Value,
	})
	if err != nil {
		h.repoError(w, err)
		return
	}
	h.Cache.DeletePrefix("calendar:")
	h.audit(r, "appointment.finalize", "appointment", ref.String())
	writeJSON(w, http.StatusOK, res)
}

// Dashboard computes the daily metrics over a three-day window around now.
func (h *Handler) Dashboard(w http.ResponseWriter, r *http.Request) {
	scope, err := tenant.Resolve(r.Context(), "dashboard")
	if err != nil {
		h.repoError(w, err)
		return
	}
	now := time.Now()
	from := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location()).AddDate(0, 0, -1)
	to := from.AddDate(0, 0, 3)

	key := "dashboard:"
	if c := scope.Clinic(); c != nil {
		key += fmt.Sprintf("%d", *c)
	}
	key += ":" + now.Format("2006-01-02")

	b, err := h.Cache.GetOrFetch(key, func() ([]byte, error) {
		resp, err := h.fetchCalendar(r.Context(), scope.Clinic(), &from, &to)
		if err != nil {
			return nil, err
		}
		d := metrics.Compute(resp.Items, now, h.Cfg.DailyCapacity)
		return json.Marshal(d)
	})
	if err != nil {
		h.repoError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Write(b)
}

type PublicLeadRequest struct {
	Name            string  `json:"name"`
	Phone           *string `json:"phone"`
	AppointmentDate *string `json:"appointment_date"`
	Notes           *string `json:"notes"`
	Type            *string `json:"type"`
}

// PublicLeadIntake accepts unauthenticated lead submissions addressed to a
// clinic by slug, typically from the public booking page.
func (h *Handler) PublicLeadIntake(w http.ResponseWriter, r *http.Request) {
	clinic, err := repo.ClinicBySlug(r.Context(), h.Pool, mux.Vars(r)["slug"])
	if err != nil {
		h.repoError(w, err)
		return
	}
	if clinic.Status != repo.ClinicStatusActive {
		jsonError(w, http.StatusNotFound, "not found")
		return
	}
	var req PublicLeadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid body")
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		fieldErrors(w, map[string]string{"name": "required"})
		return
	}
	var date *time.Time
	if req.AppointmentDate != nil {
		if date, err = parseDateParam(*req.AppointmentDate); err != nil {
			fieldErrors(w, map[string]string{"appointment_date": "RFC3339 or YYYY-MM-DD"})
			return
		}
	}
	id, err := repo.CreateLead(r.Context(), h.Pool, repo.CreateLeadInput{
		ClinicID:        clinic.ID,
		Name:            req.Name,
		Phone:           req.Phone,
		AppointmentDate: date,
		Notes:           req.Notes,
		Type:            req.Type,
	})
	if err != nil {
		h.repoError(w, err)
		return
	}
	h.Cache.DeletePrefix("calendar:")
	writeJSON(w, http.StatusCreated, map[string]any{"id": calendar.Ref{Kind: calendar.KindLead, ID: id}.String()})
}

// audit appends an audit entry from request context; failures are logged
// and swallowed.
func (h *Handler) audit(r *http.Request, action, resourceType, resourceID string) {
	c := auth.ClaimsFrom(r.Context())
	e := repo.AuditEntry{
		Action:       action,
		ResourceType: &resourceType,
		ResourceID:   &resourceID,
	}
	if c != nil {
		e.ActorID = &c.UserID
		e.ActorRole = &c.Role
		e.ClinicID = c.ClinicID
	}
	if rid := requestID(r); rid != "" {
		e.RequestID = &rid
	}
	if err := repo.WriteAudit(r.Context(), h.Pool, e); err != nil {
		log.Warn().Err(err).Str("action", action).Msg("audit write failed")
	}
}

func requestID(r *http.Request) string {
	return middleware.RequestIDFromContext(r.Context())
}
