package repo

import (
	"context"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"
)

const (
	TransactionIncome  = "income"
	TransactionExpense = "expense"
)

const (
	TransactionPaid    = "paid"
	TransactionPending = "pending"
)

type Transaction struct {
	ID            int64     `json:"id"`
	ClinicID      int64     `json:"clinic_id"`
	Type          string    `json:"type"`
	Amount        float64   `json:"amount"`
	Category      string    `json:"category"`
	Description   *string   `json:"description"`
	PaymentMethod *string   `json:"payment_method"`
	Status        string    `json:"status"`
	Date          time.Time `json:"date"`
	CreatedAt     time.Time `json:"created_at"`
}

func ValidTransactionType(t string) bool {
	return t == TransactionIncome || t == TransactionExpense
}

const transactionColumns = `id, clinic_id, type, amount, category, description, payment_method, status, date, created_at`

// TransactionFilter narrows the list. Zero values mean no filter.
type TransactionFilter struct {
	Type     string
	Category string
	Status   string
	From     *time.Time
	To       *time.Time
}

func ListTransactions(ctx context.Context, db *gorm.DB, clinicID int64, f TransactionFilter) ([]Transaction, error) {
	q := `SELECT ` + transactionColumns + ` FROM transactions WHERE clinic_id = ?`
	args := []interface{}{clinicID}
	if f.Type != "" {
		q += ` AND type = ?`
		args = append(args, f.Type)
	}
	if f.Category != "" {
		q += ` AND category = ?`
		args = append(args, f.Category)
	}
	if f.Status != "" {
		q += ` AND status = ?`
		args = append(args, f.Status)
	}
	if f.From != nil {
		q += ` AND date >= ?`
		args = append(args, *f.From)
	}
	if f.To != nil {
		q += ` AND date <= ?`
		args = append(args, *f.To)
	}
	q += ` ORDER BY date DESC, id DESC`
	var list []Transaction
	err := db.WithContext(ctx).Raw(q, args...).Scan(&list).Error
	return list, err
}

func TransactionByID(ctx context.Context, db *gorm.DB, clinicID, id int64) (*Transaction, error) {
	var t Transaction
	err := db.WithContext(ctx).Raw(`
		SELECT `+transactionColumns+` FROM transactions WHERE id = ? AND clinic_id = ?
	`, id, clinicID).Scan(&t).Error
	if err != nil {
		return nil, err
	}
	if t.ID == 0 {
		return nil, ErrNotFound
	}
	return &t, nil
}

type CreateTransactionInput struct {
	Type          string
	Amount        float64
	Category      string
	Description   *string
	PaymentMethod *string
	Status        string
	Date          *time.Time
}

func CreateTransaction(ctx context.Context, db *gorm.DB, clinicID int64, in CreateTransactionInput) (*Transaction, error) {
	if in.Status == "" {
		in.Status = TransactionPaid
	}
	date := time.Now()
	if in.Date != nil {
		date = *in.Date
	}
	var t Transaction
	err := db.WithContext(ctx).Raw(`
		INSERT INTO transactions (clinic_id, type, amount, category, description, payment_method, status, date)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING `+transactionColumns,
		clinicID, in.Type, in.Amount, in.Category, in.Description, in.PaymentMethod, in.Status, date,
	).Scan(&t).Error
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// TransactionPatch is the mutable field set; unknown payload keys never
// reach SQL.
type TransactionPatch struct {
	Amount        *float64   `json:"amount"`
	Category      *string    `json:"category"`
	Description   *string    `json:"description"`
	PaymentMethod *string    `json:"payment_method"`
	Status        *string    `json:"status"`
	Date          *time.Time `json:"date"`
}

func (p TransactionPatch) Empty() bool {
	return p.Amount == nil && p.Category == nil && p.Description == nil &&
		p.PaymentMethod == nil && p.Status == nil && p.Date == nil
}

func UpdateTransaction(ctx context.Context, db *gorm.DB, clinicID, id int64, p TransactionPatch) error {
	sets := []string{}
	args := []interface{}{}
	add := func(col string, v interface{}) {
		sets = append(sets, col+" = ?")
		args = append(args, v)
	}
	if p.Amount != nil {
		add("amount", *p.Amount)
	}
	if p.Category != nil {
		add("category", *p.Category)
	}
	if p.Description != nil {
		add("description", *p.Description)
	}
	if p.PaymentMethod != nil {
		add("payment_method", *p.PaymentMethod)
	}
	if p.Status != nil {
		add("status", *p.Status)
	}
	if p.Date != nil {
		add("date", *p.Date)
	}
	if len(sets) == 0 {
		return nil
	}
	args = append(args, id, clinicID)
	q := fmt.Sprintf("UPDATE transactions SET %s WHERE id = ? AND clinic_id = ?", strings.Join(sets, ", "))
	res := db.WithContext(ctx).Exec(q, args...)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func DeleteTransaction(ctx context.Context, db *gorm.DB, clinicID, id int64) error {
	res := db.WithContext(ctx).Exec("DELETE FROM transactions WHERE id = ? AND clinic_id = ?", id, clinicID)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// ReportLine is one aggregation bucket of the financial report.
type ReportLine struct {
	Category string  `json:"category"`
	Type     string  `json:"type"`
	Total    float64 `json:"total"`
	Count    int     `json:"count"`
}

// FinancialReport aggregates amounts per category and type inside a period.
func FinancialReport(ctx context.Context, db *gorm.DB, clinicID int64, from, to time.Time) ([]ReportLine, error) {
	var lines []ReportLine
	err := db.WithContext(ctx).Raw(`
		SELECT category, type, COALESCE(SUM(amount), 0) AS total, COUNT(*) AS count
		FROM transactions
		WHERE clinic_id = ? AND date >= ? AND date <= ?
		GROUP BY category, type
		ORDER BY total DESC
	`, clinicID, from, to).Scan(&lines).Error
	return lines, err
}

// FinancialSummary is the month-to-date dashboard card set.
type FinancialSummary struct {
	MonthlyIncome  float64 `json:"monthly_income"`
	MonthlyExpense float64 `json:"monthly_expense"`
	Balance        float64 `json:"balance"`
	PendingAmount  float64 `json:"pending_amount"`
}

func FinancialDashboard(ctx context.Context, db *gorm.DB, clinicID int64, now time.Time) (*FinancialSummary, error) {
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	var s FinancialSummary
	err := db.WithContext(ctx).Raw(`
		SELECT
			COALESCE(SUM(amount) FILTER (WHERE type = 'income' AND status = 'paid'), 0) AS monthly_income,
			COALESCE(SUM(amount) FILTER (WHERE type = 'expense' AND status = 'paid'), 0) AS monthly_expense,
			COALESCE(SUM(amount) FILTER (WHERE status = 'pending'), 0) AS pending_amount
		FROM transactions
		WHERE clinic_id = ? AND date >= ? AND date <= ?
	`, clinicID, monthStart, now).Scan(&s).Error
	if err != nil {
		return nil, err
	}
	s.Balance = s.MonthlyIncome - s.MonthlyExpense
	return &s, nil
}
