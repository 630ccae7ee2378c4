package http

import (
	"fmt"
	"net/http"
	"time"

	"github.com/luke-anto/ledgerdesk/internal/export"
)

func (s *Server) handleExportTransactions(w http.ResponseWriter, r *http.Request) {
	id := tenantID(r)
	year, month := parseYearMonth(r, time.Now().UTC())
	transactions, err := s.storage.ListTransactions(r.Context(), id, year, month)
	if err != nil {
		s.logger.ErrorContext(r.Context(), "Transaction export failed", "tenant_id", id, "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	name := fmt.Sprintf("transactions-%04d-%02d.csv", year, month)
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="`+name+`"`)
	if err := export.WriteTransactionsCSV(w, transactions); err != nil {
		s.logger.ErrorContext(r.Context(), "CSV write failed", "tenant_id", id, "error", err)
	}
}

func (s *Server) handleExportInvoices(w http.ResponseWriter, r *http.Request) {
	id := tenantID(r)
	invoices, err := s.storage.ListInvoices(r.Context(), id)
	if err != nil {
		s.logger.ErrorContext(r.Context(), "Invoice export failed", "tenant_id", id, "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="invoices.csv"`)
	if err := export.WriteInvoicesCSV(w, invoices); err != nil {
		s.logger.ErrorContext(r.Context(), "CSV write failed", "tenant_id", id, "error", err)
	}
}
