package repo

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jeremiasmarinho/techlog-clinic-os-sub000/internal/calendar"
)

// Appointment is a first-class scheduled consultation.
type Appointment struct {
	ID              int64
	ClinicID        int64
	PatientID       *int64
	PatientName     string
	PatientPhone    *string
	AppointmentDate time.Time
	StartTime       *time.Time
	EndTime         *time.Time
	DurationMinutes int
	Status          string
	Notes           *string
	Doctor          *string
	Type            *string
	Insurance       string
	Value           float64
}

// appointmentSelect resolves the effective start/end the same way the
// calendar does: start falls back to appointment_date, end falls back to
// start plus duration (60 min when the column is null on legacy rows).
const appointmentSelect = `
	SELECT a.id, a.clinic_id,
	       COALESCE(NULLIF(a.patient_name, ''), p.name, '') AS patient_name,
	       COALESCE(NULLIF(a.patient_phone, ''), p.phone, '') AS patient_phone,
	       COALESCE(a.start_time, a.appointment_date) AS start_at,
	       COALESCE(a.end_time, COALESCE(a.start_time, a.appointment_date)
	           + make_interval(mins => COALESCE(a.duration_minutes, 60))) AS end_at,
	       a.status, a.notes, a.doctor, a.type, a.insurance, a.value
	FROM appointments a
	LEFT JOIN patients p ON p.id = a.patient_id
`

func scanAppointmentRecord(row interface{ Scan(...any) error }) (calendar.Record, error) {
	var (
		rec       calendar.Record
		id        int64
		phone     string
		insurance string
	)
	err := row.Scan(&id, &rec.ClinicID, &rec.PatientName, &phone,
		&rec.StartTime, &rec.EndTime, &rec.Status, &rec.Notes,
		&rec.Doctor, &rec.Type, &insurance, &rec.Value)
	if err != nil {
		return rec, err
	}
	rec.ID = strconv.FormatInt(id, 10)
	rec.PatientPhone = phone
	rec.Source = calendar.SourceAppointment
	if insurance != "" {
		rec.Insurance = &insurance
	}
	return rec, nil
}

// ListAppointmentRecords returns the appointment side of the calendar.
// clinicID nil means a super-admin scan across all clinics. from/to bound
// the overlap of the resolved [start, end] interval; to is exclusive.
func ListAppointmentRecords(ctx context.Context, pool *pgxpool.Pool, clinicID *int64, from, to *time.Time) ([]calendar.Record, error) {
	q := appointmentSelect + ` WHERE 1=1`
	args := []any{}
	if clinicID != nil {
		args = append(args, *clinicID)
		q += fmt.Sprintf(" AND a.clinic_id = $%d", len(args))
	}
	if from != nil && to != nil {
		args = append(args, *to, *from)
		q += fmt.Sprintf(` AND COALESCE(a.start_time, a.appointment_date) <= $%d
			AND COALESCE(a.end_time, COALESCE(a.start_time, a.appointment_date)
			    + make_interval(mins => COALESCE(a.duration_minutes, 30))) >= $%d`, len(args)-1, len(args))
	}
	q += ` ORDER BY COALESCE(a.start_time, a.appointment_date)`

	rows, err := pool.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []calendar.Record
	for rows.Next() {
		rec, err := scanAppointmentRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// AppointmentRecordByID fetches one appointment as a normalized record,
// scoped to the clinic unless clinicID is nil (super admin).
func AppointmentRecordByID(ctx context.Context, pool *pgxpool.Pool, id int64, clinicID *int64) (*calendar.Record, error) {
	q := appointmentSelect + ` WHERE a.id = $1`
	args := []any{id}
	if clinicID != nil {
		args = append(args, *clinicID)
		q += ` AND a.clinic_id = $2`
	}
	rec, err := scanAppointmentRecord(pool.QueryRow(ctx, q, args...))
	if err != nil {
		if IsNoRows(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &rec, nil
}

// CreateAppointmentInput carries the fields accepted on creation.
type CreateAppointmentInput struct {
	ClinicID        int64
	PatientID       *int64
	PatientName     string
	PatientPhone    *string
	AppointmentDate time.Time
	DurationMinutes int
	EndTime         *time.Time
	Status          string
	Notes           *string
	Doctor          *string
	Type            *string
	Insurance       string
	Value           float64
}

func CreateAppointment(ctx context.Context, pool *pgxpool.Pool, in CreateAppointmentInput) (int64, error) {
	if in.DurationMinutes <= 0 {
		in.DurationMinutes = calendar.DefaultAppointmentMinutes
	}
	if in.Status == "" {
		in.Status = calendar.StatusScheduled
	}
	if in.Insurance == "" {
		in.Insurance = "Particular"
	}
	end := in.EndTime
	if end == nil {
		e := in.AppointmentDate.Add(time.Duration(in.DurationMinutes) * time.Minute)
		end = &e
	}
	var id int64
	err := pool.QueryRow(ctx, `
		INSERT INTO appointments (clinic_id, patient_id, patient_name, patient_phone,
			appointment_date, start_time, end_time, duration_minutes,
			status, notes, doctor, type, insurance, value)
		VALUES ($1, $2, $3, $4, $5, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING id
	`, in.ClinicID, in.PatientID, in.PatientName, in.PatientPhone,
		in.AppointmentDate, end, in.DurationMinutes,
		in.Status, in.Notes, in.Doctor, in.Type, in.Insurance, in.Value).Scan(&id)
	return id, err
}

// AppointmentPatch is the typed partial update. Only these fields are
// mutable; anything else in the request body is rejected at the API edge.
type AppointmentPatch struct {
	Start        *time.Time
	End          *time.Time
	Status       *string
	Notes        *string
	PatientName  *string
	PatientPhone *string
	Insurance    *string
	Doctor       *string
	Type         *string
	Value        *float64
	// AppointmentDate keeps start_time and appointment_date in sync
	// (legacy alias path).
	AppointmentDate *time.Time
}

// Empty reports whether the patch carries no recognized field.
func (p AppointmentPatch) Empty() bool {
	return p.Start == nil && p.End == nil && p.Status == nil && p.Notes == nil &&
		p.PatientName == nil && p.PatientPhone == nil && p.Insurance == nil &&
		p.Doctor == nil && p.Type == nil && p.Value == nil && p.AppointmentDate == nil
}

// setClauses translates the patch into a parameterized SET list. The column
// names come from this fixed allow-list, never from the request.
func (p AppointmentPatch) setClauses() (string, []any) {
	var sets []string
	var args []any
	add := func(col string, v any) {
		args = append(args, v)
		sets = append(sets, fmt.Sprintf("%s = $%d", col, len(args)))
	}
	if p.Start != nil {
		add("start_time", *p.Start)
	}
	if p.End != nil {
		add("end_time", *p.End)
	}
	if p.AppointmentDate != nil {
		add("appointment_date", *p.AppointmentDate)
		add("start_time", *p.AppointmentDate)
	}
	if p.Status != nil {
		add("status", *p.Status)
	}
	if p.Notes != nil {
		add("notes", *p.Notes)
	}
	if p.PatientName != nil {
		add("patient_name", *p.PatientName)
	}
	if p.PatientPhone != nil {
		add("patient_phone", *p.PatientPhone)
	}
	if p.Insurance != nil {
		add("insurance", *p.Insurance)
	}
	if p.Doctor != nil {
		add("doctor", *p.Doctor)
	}
	if p.Type != nil {
		add("type", *p.Type)
	}
	if p.Value != nil {
		add("value", *p.Value)
	}
	sets = append(sets, "updated_at = now()")
	return strings.Join(sets, ", "), args
}

// UpdateAppointment applies the patch scoped to the clinic (nil = super
// admin). Zero affected rows means absent or cross-tenant; both are ErrNotFound.
func UpdateAppointment(ctx context.Context, pool *pgxpool.Pool, id int64, clinicID *int64, patch AppointmentPatch) error {
	set, args := patch.setClauses()
	args = append(args, id)
	q := fmt.Sprintf("UPDATE appointments SET %s WHERE id = $%d", set, len(args))
	if clinicID != nil {
		args = append(args, *clinicID)
		q += fmt.Sprintf(" AND clinic_id = $%d", len(args))
	}
	tag, err := pool.Exec(ctx, q, args...)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func DeleteAppointment(ctx context.Context, pool *pgxpool.Pool, id int64, clinicID *int64) error {
	q := "DELETE FROM appointments WHERE id = $1"
	args := []any{id}
	if clinicID != nil {
		args = append(args, *clinicID)
		q += " AND clinic_id = $2"
	}
	tag, err := pool.Exec(ctx, q, args...)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// CountAppointmentsByClinic feeds the clinic usage counters.
func CountAppointmentsByClinic(ctx context.Context, pool *pgxpool.Pool, clinicID int64) (int, error) {
	var n int
	err := pool.QueryRow(ctx, "SELECT COUNT(*) FROM appointments WHERE clinic_id = $1", clinicID).Scan(&n)
	return n, err
}
