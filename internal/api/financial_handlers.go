package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"github.com/jeremiasmarinho/techlog-clinic-os-sub000/internal/metrics"
	"github.com/jeremiasmarinho/techlog-clinic-os-sub000/internal/repo"
	"github.com/jeremiasmarinho/techlog-clinic-os-sub000/internal/tenant"
)

func (h *Handler) financialScope(w http.ResponseWriter, r *http.Request, op string) (int64, bool) {
	scope, err := tenant.Resolve(r.Context(), op)
	if err != nil || scope.Clinic() == nil {
		h.repoError(w, tenant.ErrNoClinic)
		return 0, false
	}
	return *scope.Clinic(), true
}

// ListTransactions returns the clinic's transactions with optional filters.
func (h *Handler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	clinicID, ok := h.financialScope(w, r, "financial.list")
	if !ok {
		return
	}
	q := r.URL.Query()
	f := repo.TransactionFilter{
		Type:     q.Get("type"),
		Category: q.Get("category"),
		Status:   q.Get("status"),
	}
	var err error
	if f.From, err = parseDateParam(q.Get("from")); err != nil {
		jsonError(w, http.StatusBadRequest, err.Error())
		return
	}
	if f.To, err = parseDateParam(q.Get("to")); err != nil {
		jsonError(w, http.StatusBadRequest, err.Error())
		return
	}
	list, err := repo.ListTransactions(r.Context(), h.DB, clinicID, f)
	if err != nil {
		h.repoError(w, err)
		return
	}
	if list == nil {
		list = []repo.Transaction{}
	}
	writeJSON(w, http.StatusOK, list)
}

type CreateTransactionRequest struct {
	Type          string  `json:"type"`
	Amount        float64 `json:"amount"`
	Category      string  `json:"category"`
	Description   *string `json:"description"`
	PaymentMethod *string `json:"payment_method"`
	Status        string  `json:"status"`
	Date          *string `json:"date"`
}

func (h *Handler) CreateTransaction(w http.ResponseWriter, r *http.Request) {
	clinicID, ok := h.financialScope(w, r, "financial.create")
	if !ok {
		return
	}
	var req CreateTransactionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid body")
		return
	}
	fields := map[string]string{}
	if !repo.ValidTransactionType(req.Type) {
		fields["type"] = "must be income or expense"
	}
	if req.Amount <= 0 {
		fields["amount"] = "must be positive"
	}
	if req.Category == "" {
		fields["category"] = "required"
	}
	var date *time.Time
	var err error
	if req.Date != nil {
		if date, err = parseDateParam(*req.Date); err != nil {
			fields["date"] = "RFC3339 or YYYY-MM-DD"
		}
	}
	if len(fields) > 0 {
		fieldErrors(w, fields)
		return
	}
	t, err := repo.CreateTransaction(r.Context(), h.DB, clinicID, repo.CreateTransactionInput{
		Type:          req.Type,
		Amount:        req.Amount,
		Category:      req.Category,
		Description:   req.Description,
		PaymentMethod: req.PaymentMethod,
		Status:        req.Status,
		Date:          date,
	})
	if err != nil {
		h.repoError(w, err)
		return
	}
	h.audit(r, "transaction.create", "transaction", strconv.FormatInt(t.ID, 10))
	writeJSON(w, http.StatusCreated, t)
}

func (h *Handler) UpdateTransaction(w http.ResponseWriter, r *http.Request) {
	clinicID, ok := h.financialScope(w, r, "financial.update")
	if !ok {
		return
	}
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		jsonError(w, http.StatusBadRequest, "invalid id")
		return
	}
	var p repo.TransactionPatch
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid body")
		return
	}
	if p.Empty() {
		jsonError(w, http.StatusBadRequest, "at least one field required")
		return
	}
	if p.Amount != nil && *p.Amount <= 0 {
		fieldErrors(w, map[string]string{"amount": "must be positive"})
		return
	}
	if err := repo.UpdateTransaction(r.Context(), h.DB, clinicID, id, p); err != nil {
		h.repoError(w, err)
		return
	}
	h.audit(r, "transaction.update", "transaction", strconv.FormatInt(id, 10))
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) DeleteTransaction(w http.ResponseWriter, r *http.Request) {
	clinicID, ok := h.financialScope(w, r, "financial.delete")
	if !ok {
		return
	}
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		jsonError(w, http.StatusBadRequest, "invalid id")
		return
	}
	if err := repo.DeleteTransaction(r.Context(), h.DB, clinicID, id); err != nil {
		h.repoError(w, err)
		return
	}
	h.audit(r, "transaction.delete", "transaction", strconv.FormatInt(id, 10))
	w.WriteHeader(http.StatusNoContent)
}

// FinancialReport aggregates by category and type over a period. Bounds
// default to the current month.
func (h *Handler) FinancialReport(w http.ResponseWriter, r *http.Request) {
	clinicID, ok := h.financialScope(w, r, "financial.report")
	if !ok {
		return
	}
	now := time.Now()
	from := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	to := now
	if p, err := parseDateParam(r.URL.Query().Get("from")); err == nil && p != nil {
		from = *p
	}
	if p, err := parseDateParam(r.URL.Query().Get("to")); err == nil && p != nil {
		to = *p
	}
	lines, err := repo.FinancialReport(r.Context(), h.DB, clinicID, from, to)
	if err != nil {
		h.repoError(w, err)
		return
	}
	if lines == nil {
		lines = []repo.ReportLine{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"from":  from.Format("2006-01-02"),
		"to":    to.Format("2006-01-02"),
		"lines": lines,
	})
}

// FinancialDashboard returns the month-to-date cards, with BRL-formatted
// strings alongside the raw numbers.
func (h *Handler) FinancialDashboard(w http.ResponseWriter, r *http.Request) {
	clinicID, ok := h.financialScope(w, r, "financial.dashboard")
	if !ok {
		return
	}
	s, err := repo.FinancialDashboard(r.Context(), h.DB, clinicID, time.Now())
	if err != nil {
		h.repoError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"monthly_income":            s.MonthlyIncome,
		"monthly_income_formatted":  metrics.FormatBRL(s.MonthlyIncome),
		"monthly_expense":           s.MonthlyExpense,
		"monthly_expense_formatted": metrics.FormatBRL(s.MonthlyExpense),
		"balance":                   s.Balance,
		"balance_formatted":         metrics.FormatBRL(s.Balance),
		"pending_amount":            s.PendingAmount,
		"pending_amount_formatted":  metrics.FormatBRL(s.PendingAmount),
	})
}
