package repo

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	UpgradePending  = "pending"
	UpgradeApproved = "approved"
	UpgradeRejected = "rejected"
)

type UpgradeRequest struct {
	ID            int64      `json:"id"`
	ClinicID      int64      `json:"clinic_id"`
	CurrentPlan   string     `json:"current_plan"`
	RequestedPlan string     `json:"requested_plan"`
	Status        string     `json:"status"`
	Notes         *string    `json:"notes"`
	CreatedAt     time.Time  `json:"created_at"`
	ResolvedAt    *time.Time `json:"resolved_at"`
}

const upgradeColumns = `id, clinic_id, current_plan, requested_plan, status, notes, created_at, resolved_at`

func scanUpgrade(row interface{ Scan(...any) error }) (UpgradeRequest, error) {
	var u UpgradeRequest
	err := row.Scan(&u.ID, &u.ClinicID, &u.CurrentPlan, &u.RequestedPlan, &u.Status, &u.Notes, &u.CreatedAt, &u.ResolvedAt)
	return u, err
}

// CreateUpgradeRequest records a plan change request. A clinic can hold at
// most one pending request at a time.
func CreateUpgradeRequest(ctx context.Context, pool *pgxpool.Pool, clinicID int64, requestedPlan string, notes *string) (*UpgradeRequest, error) {
	var pending int
	err := pool.QueryRow(ctx,
		"SELECT COUNT(*) FROM upgrade_requests WHERE clinic_id = $1 AND status = 'pending'", clinicID).Scan(&pending)
	if err != nil {
		return nil, err
	}
	if pending > 0 {
		return nil, fmt.Errorf("%w: an upgrade request is already pending", ErrConflict)
	}

	var current string
	if err := pool.QueryRow(ctx, "SELECT plan_tier FROM clinics WHERE id = $1", clinicID).Scan(&current); err != nil {
		if IsNoRows(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	u, err := scanUpgrade(pool.QueryRow(ctx, `
		INSERT INTO upgrade_requests (clinic_id, current_plan, requested_plan, notes)
		VALUES ($1, $2, $3, $4)
		RETURNING `+upgradeColumns, clinicID, current, requestedPlan, notes))
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// ListUpgradeRequests returns requests across all clinics, pending first.
func ListUpgradeRequests(ctx context.Context, pool *pgxpool.Pool, status string) ([]UpgradeRequest, error) {
	q := `SELECT ` + upgradeColumns + ` FROM upgrade_requests`
	args := []any{}
	if status != "" {
		args = append(args, status)
		q += ` WHERE status = $1`
	}
	q += ` ORDER BY (status = 'pending') DESC, created_at DESC`
	rows, err := pool.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []UpgradeRequest
	for rows.Next() {
		u, err := scanUpgrade(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

// ResolveUpgradeRequest approves or rejects a pending request. Approval also
// moves the clinic onto the requested plan; both writes share a transaction.
// A request already resolved stays as it is and the call conflicts.
func ResolveUpgradeRequest(ctx context.Context, pool *pgxpool.Pool, id int64, approve bool) (*UpgradeRequest, error) {
	tx, err := pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	u, err := scanUpgrade(tx.QueryRow(ctx,
		`SELECT `+upgradeColumns+` FROM upgrade_requests WHERE id = $1 FOR UPDATE`, id))
	if err != nil {
		if IsNoRows(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if u.Status != UpgradePending {
		return nil, fmt.Errorf("%w: request already %s", ErrConflict, u.Status)
	}

	status := UpgradeRejected
	if approve {
		status = UpgradeApproved
		if _, err := tx.Exec(ctx,
			"UPDATE clinics SET plan_tier = $1, updated_at = now() WHERE id = $2",
			u.RequestedPlan, u.ClinicID); err != nil {
			return nil, err
		}
	}

	u2, err := scanUpgrade(tx.QueryRow(ctx, `
		UPDATE upgrade_requests SET status = $1, resolved_at = now() WHERE id = $2
		RETURNING `+upgradeColumns, status, id))
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return &u2, nil
}
