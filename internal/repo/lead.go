package repo

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jeremiasmarinho/techlog-clinic-os-sub000/internal/calendar"
)

// Lead is the legacy intake row. It predates the appointments table and
// stays readable/writable through the same calendar surface; a row with a
// non-null appointment_date is an implicit appointment.
type Lead struct {
	ID              int64
	ClinicID        int64
	Name            string
	Phone           *string
	Status          string
	AppointmentDate *time.Time
	Notes           *string
	Doctor          *string
	Type            *string
	Insurance       *string
	Value           float64
	CreatedAt       time.Time
}

const leadColumns = `id, clinic_id, name, phone, status, appointment_date, notes, doctor, type, insurance, value, created_at`

func scanLead(row interface{ Scan(...any) error }) (Lead, error) {
	var l Lead
	err := row.Scan(&l.ID, &l.ClinicID, &l.Name, &l.Phone, &l.Status,
		&l.AppointmentDate, &l.Notes, &l.Doctor, &l.Type, &l.Insurance, &l.Value, &l.CreatedAt)
	return l, err
}

// recordFromLead synthesizes the normalized calendar shape. The implicit
// appointment always lasts 30 minutes; leads carry no end time.
func recordFromLead(l Lead) calendar.Record {
	rec := calendar.Record{
		ID:          calendar.Ref{Kind: calendar.KindLead, ID: l.ID}.String(),
		ClinicID:    l.ClinicID,
		PatientName: l.Name,
		Status:      calendar.MapLeadStatus(l.Status),
		Source:      calendar.SourceLead,
		Notes:       l.Notes,
		Doctor:      l.Doctor,
		Type:        l.Type,
		Insurance:   l.Insurance,
		Value:       l.Value,
	}
	if l.Phone != nil {
		rec.PatientPhone = *l.Phone
	}
	if l.AppointmentDate != nil {
		rec.StartTime = *l.AppointmentDate
		rec.EndTime = l.AppointmentDate.Add(calendar.DefaultLeadMinutes * time.Minute)
	}
	return rec
}

// ListLeadRecords returns the lead side of the calendar: only leads with an
// appointment_date, bounded by [from, to) on that date.
func ListLeadRecords(ctx context.Context, pool *pgxpool.Pool, clinicID *int64, from, to *time.Time) ([]calendar.Record, error) {
	q := `SELECT ` + leadColumns + ` FROM leads WHERE appointment_date IS NOT NULL`
	args := []any{}
	if clinicID != nil {
		args = append(args, *clinicID)
		q += fmt.Sprintf(" AND clinic_id = $%d", len(args))
	}
	if from != nil && to != nil {
		args = append(args, *from, *to)
		q += fmt.Sprintf(" AND appointment_date >= $%d AND appointment_date <= $%d", len(args)-1, len(args))
	}
	q += ` ORDER BY appointment_date`

	rows, err := pool.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []calendar.Record
	for rows.Next() {
		l, err := scanLead(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, recordFromLead(l))
	}
	return out, rows.Err()
}

// LeadRecordByID fetches one lead as a normalized record, clinic scoped
// unless clinicID is nil.
func LeadRecordByID(ctx context.Context, pool *pgxpool.Pool, id int64, clinicID *int64) (*calendar.Record, error) {
	q := `SELECT ` + leadColumns + ` FROM leads WHERE id = $1`
	args := []any{id}
	if clinicID != nil {
		args = append(args, *clinicID)
		q += ` AND clinic_id = $2`
	}
	l, err := scanLead(pool.QueryRow(ctx, q, args...))
	if err != nil {
		if IsNoRows(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	rec := recordFromLead(l)
	return &rec, nil
}

// UpdateLeadAppointmentDate is the only mutation the calendar forwards to
// leads; their schema is narrower and every other patched field is ignored.
func UpdateLeadAppointmentDate(ctx context.Context, pool *pgxpool.Pool, id int64, clinicID *int64, date time.Time) error {
	q := "UPDATE leads SET appointment_date = $1, updated_at = now() WHERE id = $2"
	args := []any{date, id}
	if clinicID != nil {
		args = append(args, *clinicID)
		q += " AND clinic_id = $3"
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

func DeleteLead(ctx context.Context, pool *pgxpool.Pool, id int64, clinicID *int64) error {
	q := "DELETE FROM leads WHERE id = $1"
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

// CreateLeadInput is the public intake payload.
type CreateLeadInput struct {
	ClinicID        int64
	Name            string
	Phone           *string
	AppointmentDate *time.Time
	Notes           *string
	Doctor          *string
	Type            *string
	Insurance       *string
}

func CreateLead(ctx context.Context, pool *pgxpool.Pool, in CreateLeadInput) (int64, error) {
	var id int64
	err := pool.QueryRow(ctx, `
		INSERT INTO leads (clinic_id, name, phone, status, appointment_date, notes, doctor, type, insurance)
		VALUES ($1, $2, $3, 'novo', $4, $5, $6, $7, $8)
		RETURNING id
	`, in.ClinicID, in.Name, in.Phone, in.AppointmentDate, in.Notes, in.Doctor, in.Type, in.Insurance).Scan(&id)
	return id, err
}

func CountLeadsByClinic(ctx context.Context, pool *pgxpool.Pool, clinicID int64) (int, error) {
	var n int
	err := pool.QueryRow(ctx, "SELECT COUNT(*) FROM leads WHERE clinic_id = $1", clinicID).Scan(&n)
	return n, err
}
