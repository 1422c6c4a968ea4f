package repo

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// PlatformAnalytics is the cross-tenant rollup for the SaaS panel.
type PlatformAnalytics struct {
	TotalClinics      int     `json:"total_clinics"`
	ActiveClinics     int     `json:"active_clinics"`
	TotalUsers        int     `json:"total_users"`
	TotalLeads        int     `json:"total_leads"`
	TotalAppointments int     `json:"total_appointments"`
	RevenueThisMonth  float64 `json:"revenue_this_month"`
	PendingUpgrades   int     `json:"pending_upgrades"`
}

func ComputePlatformAnalytics(ctx context.Context, pool *pgxpool.Pool, now time.Time) (*PlatformAnalytics, error) {
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	var a PlatformAnalytics
	err := pool.QueryRow(ctx, `
		SELECT
			(SELECT COUNT(*) FROM clinics),
			(SELECT COUNT(*) FROM clinics WHERE status = 'active'),
			(SELECT COUNT(*) FROM users),
			(SELECT COUNT(*) FROM leads),
			(SELECT COUNT(*) FROM appointments),
			(SELECT COALESCE(SUM(amount), 0) FROM transactions
				WHERE type = 'income' AND status = 'paid' AND date >= $1),
			(SELECT COUNT(*) FROM upgrade_requests WHERE status = 'pending')
	`, monthStart).Scan(&a.TotalClinics, &a.ActiveClinics, &a.TotalUsers, &a.TotalLeads,
		&a.TotalAppointments, &a.RevenueThisMonth, &a.PendingUpgrades)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// AnalyticsRow is one clinic line of the export file.
type AnalyticsRow struct {
	ClinicID     int64
	ClinicName   string
	Slug         string
	Status       string
	PlanTier     string
	Users        int
	Leads        int
	Appointments int
	Revenue      float64
	CreatedAt    time.Time
}

// AnalyticsRows builds the per-clinic export, one row per clinic with its
// usage counters and lifetime paid income.
func AnalyticsRows(ctx context.Context, pool *pgxpool.Pool) ([]AnalyticsRow, error) {
	rows, err := pool.Query(ctx, `
		SELECT c.id, c.name, c.slug, c.status, c.plan_tier,
		       (SELECT COUNT(*) FROM users u WHERE u.clinic_id = c.id),
		       (SELECT COUNT(*) FROM leads l WHERE l.clinic_id = c.id),
		       (SELECT COUNT(*) FROM appointments a WHERE a.clinic_id = c.id),
		       (SELECT COALESCE(SUM(t.amount), 0) FROM transactions t
		        WHERE t.clinic_id = c.id AND t.type = 'income' AND t.status = 'paid'),
		       c.created_at
		FROM clinics c
		ORDER BY c.id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []AnalyticsRow
	for rows.Next() {
		var r AnalyticsRow
		if err := rows.Scan(&r.ClinicID, &r.ClinicName, &r.Slug, &r.Status, &r.PlanTier,
			&r.Users, &r.Leads, &r.Appointments, &r.Revenue, &r.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
