package repo

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

type AuditEntry struct {
	ID           int64           `json:"id"`
	ClinicID     *int64          `json:"clinic_id"`
	ActorID      *int64          `json:"actor_id"`
	ActorRole    *string         `json:"actor_role"`
	Action       string          `json:"action"`
	ResourceType *string         `json:"resource_type"`
	ResourceID   *string         `json:"resource_id"`
	RequestID    *string         `json:"request_id"`
	Metadata     json.RawMessage `json:"metadata"`
	CreatedAt    time.Time       `json:"created_at"`
}

// WriteAudit appends one entry. Audit failures never abort the operation
// that triggered them; callers log and move on.
func WriteAudit(ctx context.Context, pool *pgxpool.Pool, e AuditEntry) error {
	_, err := pool.Exec(ctx, `
		INSERT INTO audit_logs (clinic_id, actor_id, actor_role, action, resource_type, resource_id, request_id, metadata)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, e.ClinicID, e.ActorID, e.ActorRole, e.Action, e.ResourceType, e.ResourceID, e.RequestID, e.Metadata)
	return err
}

// ListAudit returns recent entries, optionally scoped to one clinic.
func ListAudit(ctx context.Context, pool *pgxpool.Pool, clinicID *int64, limit int) ([]AuditEntry, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	q := `SELECT id, clinic_id, actor_id, actor_role, action, resource_type, resource_id, request_id, metadata, created_at
		FROM audit_logs`
	args := []any{}
	if clinicID != nil {
		args = append(args, *clinicID)
		q += ` WHERE clinic_id = $1`
	}
	args = append(args, limit)
	q += fmt.Sprintf(` ORDER BY id DESC LIMIT $%d`, len(args))

	rows, err := pool.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []AuditEntry
	for rows.Next() {
		var e AuditEntry
		if err := rows.Scan(&e.ID, &e.ClinicID, &e.ActorID, &e.ActorRole, &e.Action,
			&e.ResourceType, &e.ResourceID, &e.RequestID, &e.Metadata, &e.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
