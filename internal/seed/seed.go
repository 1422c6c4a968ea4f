package seed

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"

	"github.com/jeremiasmarinho/techlog-clinic-os-sub000/internal/auth"
)

// DefaultClinicSlug marca a clínica seed; ela nunca pode ser excluída.
const DefaultClinicSlug = "default"

// Run cria a clínica padrão, o super admin e um admin de clínica na primeira
// subida. Idempotente: se já existem usuários, não faz nada.
func Run(ctx context.Context, pool *pgxpool.Pool) error {
	var n int
	if err := pool.QueryRow(ctx, "SELECT COUNT(*) FROM users").Scan(&n); err != nil {
		return err
	}
	if n > 0 {
		return nil
	}

	tx, err := pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	var clinicID int64
	err = tx.QueryRow(ctx, `
		INSERT INTO clinics (name, slug, status, plan_tier, owner_email)
		VALUES ('Clínica Padrão', $1, 'active', 'basic', 'admin@clinica.local')
		ON CONFLICT (slug) DO UPDATE SET updated_at = now()
		RETURNING id
	`, DefaultClinicSlug).Scan(&clinicID)
	if err != nil {
		return err
	}

	superHash, err := auth.HashPassword("SuperAdmin123!")
	if err != nil {
		return err
	}
	if _, err := tx.Exec(ctx, `
		INSERT INTO users (clinic_id, username, password_hash, name, role, is_owner)
		VALUES (NULL, 'superadmin', $1, 'Super Admin', $2, false)
	`, superHash, auth.RoleSuperAdmin); err != nil {
		return err
	}

	adminHash, err := auth.HashPassword("Admin123!")
	if err != nil {
		return err
	}
	if _, err := tx.Exec(ctx, `
		INSERT INTO users (clinic_id, username, password_hash, name, role, is_owner)
		VALUES ($1, 'admin', $2, 'Administrador', $3, true)
	`, clinicID, adminHash, auth.RoleClinicAdmin); err != nil {
		return err
	}

	if _, err := tx.Exec(ctx, `
		INSERT INTO clinic_settings (clinic_id, identity, hours, insurance, chatbot)
		VALUES ($1, '{}', '{}', '{}', '{}')
		ON CONFLICT (clinic_id) DO NOTHING
	`, clinicID); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return err
	}
	log.Info().Int64("clinic_id", clinicID).Msg("seed: default clinic and users created")
	return nil
}
