package repo

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jeremiasmarinho/techlog-clinic-os-sub000/internal/calendar"
)

type MedicalRecord struct {
	ID            int64     `json:"id"`
	ClinicID      int64     `json:"clinic_id"`
	AppointmentID int64     `json:"appointment_id"`
	PatientID     *int64    `json:"patient_id"`
	Anamnesis     *string   `json:"anamnesis"`
	Diagnosis     *string   `json:"diagnosis"`
	Procedures    *string   `json:"procedures"`
	CreatedAt     time.Time `json:"created_at"`
}

type Prescription struct {
	ID                int64     `json:"id"`
	ClinicID          int64     `json:"clinic_id"`
	MedicalRecordID   int64     `json:"medical_record_id"`
	Content           string    `json:"content"`
	VerificationToken string    `json:"verification_token"`
	CreatedAt         time.Time `json:"created_at"`
}

// FinalizeInput is the clinical outcome captured when an appointment closes.
type FinalizeInput struct {
	Anamnesis    *string
	Diagnosis    *string
	Procedures   *string
	Prescription *string
	Value        *float64
}

// FinalizeResult reports what the finalize transaction produced.
type FinalizeResult struct {
	Record       MedicalRecord `json:"record"`
	Prescription *Prescription `json:"prescription,omitempty"`
}

// FinalizeAppointment closes an appointment: status moves to completed, a
// medical record is written, an optional prescription gets a verification
// token, and the linked patient (if any) advances to finalizado. All of it
// commits or none of it does. Finalizing twice conflicts.
func FinalizeAppointment(ctx context.Context, pool *pgxpool.Pool, appointmentID int64, clinicID *int64, in FinalizeInput) (*FinalizeResult, error) {
	tx, err := pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	q := `SELECT clinic_id, patient_id, status FROM appointments WHERE id = $1`
	args := []any{appointmentID}
	if clinicID != nil {
		args = append(args, *clinicID)
		q += ` AND clinic_id = $2`
	}
	q += ` FOR UPDATE`

	var (
		apptClinic int64
		patientID  *int64
		status     string
	)
	if err := tx.QueryRow(ctx, q, args...).Scan(&apptClinic, &patientID, &status); err != nil {
		if IsNoRows(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if status == calendar.StatusCompleted {
		return nil, fmt.Errorf("%w: appointment already completed", ErrConflict)
	}

	setValue := ""
	updateArgs := []any{appointmentID}
	if in.Value != nil {
		updateArgs = append(updateArgs, *in.Value)
		setValue = ", value = $2"
	}
	if _, err := tx.Exec(ctx,
		"UPDATE appointments SET status = 'completed', updated_at = now()"+setValue+" WHERE id = $1",
		updateArgs...); err != nil {
		return nil, err
	}

	var res FinalizeResult
	err = tx.QueryRow(ctx, `
		INSERT INTO medical_records (clinic_id, appointment_id, patient_id, anamnesis, diagnosis, procedures)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, clinic_id, appointment_id, patient_id, anamnesis, diagnosis, procedures, created_at
	`, apptClinic, appointmentID, patientID, in.Anamnesis, in.Diagnosis, in.Procedures).Scan(
		&res.Record.ID, &res.Record.ClinicID, &res.Record.AppointmentID, &res.Record.PatientID,
		&res.Record.Anamnesis, &res.Record.Diagnosis, &res.Record.Procedures, &res.Record.CreatedAt)
	if err != nil {
		return nil, err
	}

	if in.Prescription != nil && *in.Prescription != "" {
		var p Prescription
		err = tx.QueryRow(ctx, `
			INSERT INTO prescriptions (clinic_id, medical_record_id, content, verification_token)
			VALUES ($1, $2, $3, $4)
			RETURNING id, clinic_id, medical_record_id, content, verification_token, created_at
		`, apptClinic, res.Record.ID, *in.Prescription, uuid.NewString()).Scan(
			&p.ID, &p.ClinicID, &p.MedicalRecordID, &p.Content, &p.VerificationToken, &p.CreatedAt)
		if err != nil {
			return nil, err
		}
		res.Prescription = &p
	}

	if patientID != nil {
		if _, err := tx.Exec(ctx,
			"UPDATE patients SET status = 'finalizado' WHERE id = $1", *patientID); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return &res, nil
}

func PrescriptionByToken(ctx context.Context, pool *pgxpool.Pool, token string) (*Prescription, error) {
	var p Prescription
	err := pool.QueryRow(ctx, `
		SELECT id, clinic_id, medical_record_id, content, verification_token, created_at
		FROM prescriptions WHERE verification_token = $1
	`, token).Scan(&p.ID, &p.ClinicID, &p.MedicalRecordID, &p.Content, &p.VerificationToken, &p.CreatedAt)
	if err != nil {
		if IsNoRows(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

// MedicalRecordsByAppointment lists the clinical history of one appointment.
func MedicalRecordsByAppointment(ctx context.Context, pool *pgxpool.Pool, appointmentID int64, clinicID *int64) ([]MedicalRecord, error) {
	q := `SELECT id, clinic_id, appointment_id, patient_id, anamnesis, diagnosis, procedures, created_at
		FROM medical_records WHERE appointment_id = $1`
	args := []any{appointmentID}
	if clinicID != nil {
		args = append(args, *clinicID)
		q += ` AND clinic_id = $2`
	}
	q += ` ORDER BY created_at`
	rows, err := pool.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []MedicalRecord
	for rows.Next() {
		var m MedicalRecord
		if err := rows.Scan(&m.ID, &m.ClinicID, &m.AppointmentID, &m.PatientID,
			&m.Anamnesis, &m.Diagnosis, &m.Procedures, &m.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}
