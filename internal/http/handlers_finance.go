package http

import (
	"errors"
	"net/http"
	"time"

	"github.com/luke-anto/ledgerdesk/internal/core"
	"github.com/luke-anto/ledgerdesk/internal/storage"
)

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	id := tenantID(r)
	year, month := parseYearMonth(r, time.Now().UTC())
	transactions, err := s.storage.ListTransactions(r.Context(), id, year, month)
	if err != nil {
		s.logger.ErrorContext(r.Context(), "Transaction list failed", "tenant_id", id, "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	s.render(w, r, "transactions.html", map[string]any{
		"TenantID":     id,
		"Year":         year,
		"Month":        month,
		"Transactions": transactions,
	})
}

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	id := tenantID(r)
	if err := r.ParseForm(); err != nil {
		BadRequestError("invalid form").Write(w)
		return
	}

	date, err := parseDate(r.Form.Get("date"))
	if err != nil {
		UnprocessableEntityError("invalid date, expected YYYY-MM-DD").Write(w)
		return
	}
	cents, err := core.ParseDecimalToCents(r.Form.Get("amount"))
	if err != nil {
		UnprocessableEntityError("invalid amount").Write(w)
		return
	}
	kind := core.TransactionKind(r.Form.Get("kind"))
	if !kind.Valid() {
		UnprocessableEntityError("kind must be income or expense").Write(w)
		return
	}
	// Users type positive amounts; the kind decides the stored sign.
	if kind == core.KindExpense {
		cents = -cents
	}

	tx := core.Transaction{
		TenantID:    id,
		Date:        date,
		Description: sanitizeInput(r.Form.Get("description")),
		Amount:      core.Money{Cents: cents},
		Category:    sanitizeInput(r.Form.Get("category")),
		Kind:        kind,
	}
	if err := tx.Validate(); err != nil {
		UnprocessableEntityError(err.Error()).Write(w)
		return
	}

	txID, err := s.storage.CreateTransaction(r.Context(), tx)
	if err != nil {
		s.logger.ErrorContext(r.Context(), "Transaction create failed", "tenant_id", id, "error", err)
		InternalServerError("could not save transaction").Write(w)
		return
	}

	year, month := date.Year(), int(date.Month())
	s.invalidateOverview(id, year, month)
	s.logger.InfoContext(r.Context(), "Transaction created",
		"tenant_id", id, "transaction_id", txID, "amount_cents", cents)
	NewHTMXResponse().
		TriggerTransactionChanged(year, month).
		TriggerOverviewRefresh(year, month).
		TriggerFormReset().
		BodyHTML(SuccessSnippet("transaction saved")).
		Write(w)
}

func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	id := tenantID(r)
	txID, err := pathID(r, "txID")
	if err != nil {
		BadRequestError("invalid transaction id").Write(w)
		return
	}
	year, month, err := parseYearMonthStrict(r, time.Now().UTC())
	if err != nil {
		UnprocessableEntityError(err.Error()).Write(w)
		return
	}
	if err := s.storage.SoftDeleteTransaction(r.Context(), id, txID); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			http.NotFound(w, r)
			return
		}
		s.logger.ErrorContext(r.Context(), "Transaction delete failed", "transaction_id", txID, "error", err)
		InternalServerError("internal error").Write(w)
		return
	}
	s.invalidateOverview(id, year, month)
	NewHTMXResponse().
		TriggerTransactionChanged(year, month).
		TriggerOverviewRefresh(year, month).
		Write(w)
}

func (s *Server) handleListBudgets(w http.ResponseWriter, r *http.Request) {
	id := tenantID(r)
	year, month := parseYearMonth(r, time.Now().UTC())
	budgets, err := s.storage.ListBudgets(r.Context(), id, year, month)
	if err != nil {
		s.logger.ErrorContext(r.Context(), "Budget list failed", "tenant_id", id, "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	s.render(w, r, "budgets.html", map[string]any{
		"TenantID": id,
		"Year":     year,
		"Month":    month,
		"Budgets":  budgets,
	})
}

func (s *Server) handleUpsertBudget(w http.ResponseWriter, r *http.Request) {
	id := tenantID(r)
	if err := r.ParseForm(); err != nil {
		BadRequestError("invalid form").Write(w)
		return
	}
	year, month, err := parseYearMonthStrict(r, time.Now().UTC())
	if err != nil {
		UnprocessableEntityError(err.Error()).Write(w)
		return
	}
	cents, err := core.ParseDecimalToCents(r.Form.Get("amount"))
	if err != nil {
		UnprocessableEntityError("invalid amount").Write(w)
		return
	}
	budget := core.Budget{
		TenantID: id,
		Category: sanitizeInput(r.Form.Get("category")),
		Year:     year,
		Month:    month,
		Amount:   core.Money{Cents: cents},
	}
	if err := budget.Validate(); err != nil {
		UnprocessableEntityError(err.Error()).Write(w)
		return
	}
	if err := s.storage.UpsertBudget(r.Context(), budget); err != nil {
		s.logger.ErrorContext(r.Context(), "Budget upsert failed", "tenant_id", id, "error", err)
		InternalServerError("could not save budget").Write(w)
		return
	}
	s.invalidateOverview(id, year, month)
	NewHTMXResponse().
		TriggerOverviewRefresh(year, month).
		TriggerFormReset().
		BodyHTML(SuccessSnippet("budget saved")).
		Write(w)
}

func (s *Server) handleDeleteBudget(w http.ResponseWriter, r *http.Request) {
	id := tenantID(r)
	budgetID, err := pathID(r, "budgetID")
	if err != nil {
		BadRequestError("invalid budget id").Write(w)
		return
	}
	year, month, err := parseYearMonthStrict(r, time.Now().UTC())
	if err != nil {
		UnprocessableEntityError(err.Error()).Write(w)
		return
	}
	if err := s.storage.DeleteBudget(r.Context(), id, budgetID); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			http.NotFound(w, r)
			return
		}
		s.logger.ErrorContext(r.Context(), "Budget delete failed", "budget_id", budgetID, "error", err)
		InternalServerError("internal error").Write(w)
		return
	}
	s.invalidateOverview(id, year, month)
	NewHTMXResponse().TriggerOverviewRefresh(year, month).Write(w)
}

func (s *Server) handleListInvoices(w http.ResponseWriter, r *http.Request) {
	id := tenantID(r)
	invoices, err := s.storage.ListInvoices(r.Context(), id)
	if err != nil {
		s.logger.ErrorContext(r.Context(), "Invoice list failed", "tenant_id", id, "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	s.render(w, r, "invoices.html", map[string]any{
		"TenantID": id,
		"Invoices": invoices,
	})
}

func (s *Server) handleCreateInvoice(w http.ResponseWriter, r *http.Request) {
	id := tenantID(r)
	if err := r.ParseForm(); err != nil {
		BadRequestError("invalid form").Write(w)
		return
	}
	issue, err := parseDate(r.Form.Get("issue_date"))
	if err != nil {
		UnprocessableEntityError("invalid issue date").Write(w)
		return
	}
	due, err := parseDate(r.Form.Get("due_date"))
	if err != nil {
		UnprocessableEntityError("invalid due date").Write(w)
		return
	}
	cents, err := core.ParseDecimalToCents(r.Form.Get("amount"))
	if err != nil {
		UnprocessableEntityError("invalid amount").Write(w)
		return
	}

	number, err := s.storage.NextInvoiceNumber(r.Context(), id, issue.Year())
	if err != nil {
		s.logger.ErrorContext(r.Context(), "Invoice numbering failed", "tenant_id", id, "error", err)
		InternalServerError("could not number invoice").Write(w)
		return
	}
	inv := core.Invoice{
		TenantID:  id,
		Number:    number,
		IssueDate: issue,
		DueDate:   due,
		Amount:    core.Money{Cents: cents},
		Status:    core.InvoiceDraft,
	}
	if err := inv.Validate(); err != nil {
		UnprocessableEntityError(err.Error()).Write(w)
		return
	}
	invID, err := s.storage.CreateInvoice(r.Context(), inv)
	if err != nil {
		s.logger.ErrorContext(r.Context(), "Invoice create failed", "tenant_id", id, "error", err)
		InternalServerError("could not save invoice").Write(w)
		return
	}
	s.logger.InfoContext(r.Context(), "Invoice created",
		"tenant_id", id, "invoice_id", invID, "number", number)
	NewHTMXResponse().
		TriggerFormReset().
		BodyHTML(SuccessSnippet("invoice "+number+" created")).
		Write(w)
}

func (s *Server) handleInvoiceStatus(w http.ResponseWriter, r *http.Request) {
	id := tenantID(r)
	invoiceID, err := pathID(r, "invoiceID")
	if err != nil {
		BadRequestError("invalid invoice id").Write(w)
		return
	}
	if err := r.ParseForm(); err != nil {
		BadRequestError("invalid form").Write(w)
		return
	}
	next := core.InvoiceStatus(r.Form.Get("status"))

	inv, err := s.storage.GetInvoice(r.Context(), id, invoiceID)
	if errors.Is(err, storage.ErrNotFound) {
		http.NotFound(w, r)
		return
	}
	if err != nil {
		s.logger.ErrorContext(r.Context(), "Invoice load failed", "invoice_id", invoiceID, "error", err)
		InternalServerError("internal error").Write(w)
		return
	}
	if err := inv.Transition(next); err != nil {
		ConflictError(err.Error()).Write(w)
		return
	}
	if err := s.storage.UpdateInvoiceStatus(r.Context(), id, inv); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			http.NotFound(w, r)
			return
		}
		s.logger.ErrorContext(r.Context(), "Invoice status update failed", "invoice_id", invoiceID, "error", err)
		InternalServerError("internal error").Write(w)
		return
	}
	NewHTMXResponse().
		BodyHTML(SuccessSnippet("invoice " + inv.Number + " is now " + string(inv.Status))).
		Write(w)
}
