package repo

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"
	gormpg "gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func newMockGorm(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	gdb, err := gorm.Open(gormpg.New(gormpg.Config{Conn: db}), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	return gdb, mock
}

func TestListTransactionsFilters(t *testing.T) {
	gdb, mock := newMockGorm(t)

	rows := sqlmock.NewRows([]string{
		"id", "clinic_id", "type", "amount", "category", "description",
		"payment_method", "status", "date", "created_at",
	}).AddRow(int64(1), int64(3), "income", 150.0, "consulta", nil, nil, "paid", time.Now(), time.Now())

	mock.ExpectQuery(`SELECT .* FROM transactions WHERE clinic_id = \$1 AND type = \$2 AND status = \$3 ORDER BY date DESC, id DESC`).
		WithArgs(int64(3), "income", "paid").
		WillReturnRows(rows)

	list, err := ListTransactions(context.Background(), gdb, 3, TransactionFilter{Type: "income", Status: "paid"})
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.Equal(t, "consulta", list[0].Category)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateTransactionNotFound(t *testing.T) {
	gdb, mock := newMockGorm(t)

	amount := 99.0
	mock.ExpectExec(`UPDATE transactions SET amount = \$1 WHERE id = \$2 AND clinic_id = \$3`).
		WithArgs(amount, int64(42), int64(3)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := UpdateTransaction(context.Background(), gdb, 3, 42, TransactionPatch{Amount: &amount})
	require.True(t, errors.Is(err, ErrNotFound))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteTransactionScopedToClinic(t *testing.T) {
	gdb, mock := newMockGorm(t)

	mock.ExpectExec(`DELETE FROM transactions WHERE id = \$1 AND clinic_id = \$2`).
		WithArgs(int64(7), int64(3)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, DeleteTransaction(context.Background(), gdb, 3, 7))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestFinancialDashboardBalance(t *testing.T) {
	gdb, mock := newMockGorm(t)

	rows := sqlmock.NewRows([]string{"monthly_income", "monthly_expense", "pending_amount"}).
		AddRow(1000.0, 400.0, 120.0)
	mock.ExpectQuery(`SELECT .* FROM transactions .*`).WillReturnRows(rows)

	s, err := FinancialDashboard(context.Background(), gdb, 3, time.Date(2025, 3, 15, 12, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.Equal(t, 600.0, s.Balance)
	require.Equal(t, 120.0, s.PendingAmount)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestTransactionPatchEmpty(t *testing.T) {
	require.True(t, TransactionPatch{}.Empty())
	v := 10.0
	require.False(t, TransactionPatch{Amount: &v}.Empty())
}
