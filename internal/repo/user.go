package repo

import (
	"context"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

type User struct {
	ID           int64     `json:"id"`
	ClinicID     *int64    `json:"clinic_id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	Name         string    `json:"name"`
	Role         string    `json:"role"`
	IsOwner      bool      `json:"is_owner"`
	CreatedAt    time.Time `json:"created_at"`
}

// UserByUsername looks up a login candidate. Usernames are stored lowercase.
func UserByUsername(ctx context.Context, pool *pgxpool.Pool, username string) (*User, error) {
	var u User
	err := pool.QueryRow(ctx, `
		SELECT id, clinic_id, username, password_hash, name, role, is_owner, created_at
		FROM users WHERE username = $1
	`, strings.ToLower(strings.TrimSpace(username))).Scan(
		&u.ID, &u.ClinicID, &u.Username, &u.PasswordHash, &u.Name, &u.Role, &u.IsOwner, &u.CreatedAt)
	if err != nil {
		if IsNoRows(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &u, nil
}

func CountUsersByClinic(ctx context.Context, pool *pgxpool.Pool, clinicID int64) (int, error) {
	var n int
	err := pool.QueryRow(ctx, "SELECT COUNT(*) FROM users WHERE clinic_id = $1", clinicID).Scan(&n)
	return n, err
}
