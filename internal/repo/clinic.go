package repo

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jeremiasmarinho/techlog-clinic-os-sub000/internal/auth"
	"github.com/jeremiasmarinho/techlog-clinic-os-sub000/internal/seed"
)

const (
	ClinicStatusActive    = "active"
	ClinicStatusTrial     = "trial"
	ClinicStatusInactive  = "inactive"
	ClinicStatusSuspended = "suspended"
	ClinicStatusCancelled = "cancelled"
)

// ValidClinicStatus reports whether s is one of the lifecycle statuses.
func ValidClinicStatus(s string) bool {
	switch s {
	case ClinicStatusActive, ClinicStatusTrial, ClinicStatusInactive,
		ClinicStatusSuspended, ClinicStatusCancelled:
		return true
	}
	return false
}

// ErrSeedClinic is returned when a delete targets the bootstrap clinic.
var ErrSeedClinic = fmt.Errorf("%w: seed clinic cannot be deleted", ErrConflict)

type Clinic struct {
	ID         int64     `json:"id"`
	Name       string    `json:"name"`
	Slug       string    `json:"slug"`
	Status     string    `json:"status"`
	PlanTier   string    `json:"plan_tier"`
	OwnerEmail *string   `json:"owner_email"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// ClinicUsage is the per-clinic rollup shown on the SaaS panel.
type ClinicUsage struct {
	Clinic
	Users        int `json:"users"`
	Leads        int `json:"leads"`
	Appointments int `json:"appointments"`
}

const clinicColumns = `id, name, slug, status, plan_tier, owner_email, created_at, updated_at`

func scanClinic(row interface{ Scan(...any) error }) (Clinic, error) {
	var c Clinic
	err := row.Scan(&c.ID, &c.Name, &c.Slug, &c.Status, &c.PlanTier, &c.OwnerEmail, &c.CreatedAt, &c.UpdatedAt)
	return c, err
}

func ClinicByID(ctx context.Context, pool *pgxpool.Pool, id int64) (*Clinic, error) {
	c, err := scanClinic(pool.QueryRow(ctx, `SELECT `+clinicColumns+` FROM clinics WHERE id = $1`, id))
	if err != nil {
		if IsNoRows(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &c, nil
}

func ClinicBySlug(ctx context.Context, pool *pgxpool.Pool, slug string) (*Clinic, error) {
	c, err := scanClinic(pool.QueryRow(ctx, `SELECT `+clinicColumns+` FROM clinics WHERE slug = $1`, slug))
	if err != nil {
		if IsNoRows(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &c, nil
}

// ListClinics returns every clinic with usage counters, newest first.
func ListClinics(ctx context.Context, pool *pgxpool.Pool) ([]ClinicUsage, error) {
	rows, err := pool.Query(ctx, `
		SELECT c.id, c.name, c.slug, c.status, c.plan_tier, c.owner_email, c.created_at, c.updated_at,
		       (SELECT COUNT(*) FROM users u WHERE u.clinic_id = c.id),
		       (SELECT COUNT(*) FROM leads l WHERE l.clinic_id = c.id),
		       (SELECT COUNT(*) FROM appointments a WHERE a.clinic_id = c.id)
		FROM clinics c
		ORDER BY c.created_at DESC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []ClinicUsage
	for rows.Next() {
		var u ClinicUsage
		if err := rows.Scan(&u.ID, &u.Name, &u.Slug, &u.Status, &u.PlanTier, &u.OwnerEmail,
			&u.CreatedAt, &u.UpdatedAt, &u.Users, &u.Leads, &u.Appointments); err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

// CreateClinicInput provisions a clinic together with its first admin.
type CreateClinicInput struct {
	Name          string
	Slug          string
	PlanTier      string
	OwnerEmail    *string
	AdminUsername string
	AdminPassword string
	AdminName     string
}

// CreateClinicWithAdmin inserts the clinic, its owning clinic_admin and an
// empty settings row in one transaction. Either everything lands or nothing
// does; a taken slug or username surfaces as ErrConflict.
func CreateClinicWithAdmin(ctx context.Context, pool *pgxpool.Pool, in CreateClinicInput) (*Clinic, error) {
	hash, err := auth.HashPassword(in.AdminPassword)
	if err != nil {
		return nil, err
	}
	if in.PlanTier == "" {
		in.PlanTier = "basic"
	}

	tx, err := pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	c, err := scanClinic(tx.QueryRow(ctx, `
		INSERT INTO clinics (name, slug, plan_tier, owner_email)
		VALUES ($1, $2, $3, $4)
		RETURNING `+clinicColumns, in.Name, in.Slug, in.PlanTier, in.OwnerEmail))
	if err != nil {
		if IsUniqueViolation(err) {
			return nil, fmt.Errorf("%w: slug already in use", ErrConflict)
		}
		return nil, err
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO users (clinic_id, username, password_hash, name, role, is_owner)
		VALUES ($1, $2, $3, $4, $5, true)
	`, c.ID, strings.ToLower(in.AdminUsername), hash, in.AdminName, auth.RoleClinicAdmin)
	if err != nil {
		if IsUniqueViolation(err) {
			return nil, fmt.Errorf("%w: username already in use", ErrConflict)
		}
		return nil, err
	}

	if _, err := tx.Exec(ctx, `INSERT INTO clinic_settings (clinic_id) VALUES ($1)`, c.ID); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return &c, nil
}

// ClinicPatch holds the mutable clinic fields. Anything outside this set is
// dropped before it reaches SQL.
type ClinicPatch struct {
	Name       *string `json:"name"`
	PlanTier   *string `json:"plan_tier"`
	OwnerEmail *string `json:"owner_email"`
	Status     *string `json:"status"`
}

func (p ClinicPatch) Empty() bool {
	return p.Name == nil && p.PlanTier == nil && p.OwnerEmail == nil && p.Status == nil
}

func UpdateClinic(ctx context.Context, pool *pgxpool.Pool, id int64, p ClinicPatch) error {
	sets := []string{}
	args := []any{}
	add := func(col string, v any) {
		args = append(args, v)
		sets = append(sets, fmt.Sprintf("%s = $%d", col, len(args)))
	}
	if p.Name != nil {
		add("name", *p.Name)
	}
	if p.PlanTier != nil {
		add("plan_tier", *p.PlanTier)
	}
	if p.OwnerEmail != nil {
		add("owner_email", *p.OwnerEmail)
	}
	if p.Status != nil {
		add("status", *p.Status)
	}
	if len(sets) == 0 {
		return nil
	}
	sets = append(sets, "updated_at = now()")
	args = append(args, id)
	q := fmt.Sprintf("UPDATE clinics SET %s WHERE id = $%d", strings.Join(sets, ", "), len(args))
	tag, err := pool.Exec(ctx, q, args...)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func UpdateClinicStatus(ctx context.Context, pool *pgxpool.Pool, id int64, status string) error {
	tag, err := pool.Exec(ctx,
		"UPDATE clinics SET status = $1, updated_at = now() WHERE id = $2", status, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteClinic removes a clinic and, via FK cascade, everything under it.
// The bootstrap clinic is never deletable.
func DeleteClinic(ctx context.Context, pool *pgxpool.Pool, id int64) error {
	var slug string
	if err := pool.QueryRow(ctx, "SELECT slug FROM clinics WHERE id = $1", id).Scan(&slug); err != nil {
		if IsNoRows(err) {
			return ErrNotFound
		}
		return err
	}
	if slug == seed.DefaultClinicSlug {
		return ErrSeedClinic
	}
	_, err := pool.Exec(ctx, "DELETE FROM clinics WHERE id = $1", id)
	return err
}
