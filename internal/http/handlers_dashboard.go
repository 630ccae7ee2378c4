package http

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/luke-anto/ledgerdesk/internal/auth"
	"github.com/luke-anto/ledgerdesk/internal/core"
	"github.com/luke-anto/ledgerdesk/internal/storage"
)

// overviewBar is a pre-computed chart row for the month overview partial.
// Width is a percentage of the widest bar, clamped so every row stays visible.
type overviewBar struct {
	Label  string
	Amount int64
	Width  int
}

type overviewView struct {
	Year     int
	Month    int
	TotalIn  int64
	TotalOut int64
	Net      int64
	Bars     []overviewBar
	Budgets  []core.BudgetVariance
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.ClaimsFromContext(r.Context())
	if !ok {
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}
	user := core.User{ID: claims.UserID, Role: core.UserRole(claims.Role), TenantIDs: claims.TenantIDs}

	tenants, err := s.storage.ListTenants(r.Context(), user)
	if err != nil {
		s.logger.ErrorContext(r.Context(), "Tenant list failed", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	s.render(w, r, "index.html", map[string]any{
		"Tenants": tenants,
		"IsAdmin": user.Role == core.RoleAdmin,
	})
}

func (s *Server) handleTenantHome(w http.ResponseWriter, r *http.Request) {
	id := tenantID(r)
	tenant, err := s.storage.GetTenant(r.Context(), id)
	if errors.Is(err, storage.ErrNotFound) {
		http.NotFound(w, r)
		return
	}
	if err != nil {
		s.logger.ErrorContext(r.Context(), "Tenant load failed", "tenant_id", id, "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	now := time.Now().UTC()
	year, month := parseYearMonth(r, now)
	s.render(w, r, "tenant.html", map[string]any{
		"Tenant": tenant,
		"Year":   year,
		"Month":  month,
	})
}

// handleMonthOverview serves the financial summary partial: totals, a
// by-category bar chart, and budget variances. Results are cached per
// tenant-month; writes invalidate via the transaction handlers.
func (s *Server) handleMonthOverview(w http.ResponseWriter, r *http.Request) {
	id := tenantID(r)
	year, month := parseYearMonth(r, time.Now().UTC())

	key := overviewCacheKey(id, year, month)
	overview, ok := s.overviewCache.Get(key)
	if !ok {
		var err error
		overview, err = s.storage.ReadMonthOverview(r.Context(), id, year, month)
		if err != nil {
			s.logger.ErrorContext(r.Context(), "Overview read failed", "tenant_id", id, "error", err)
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}
		s.overviewCache.Set(key, overview)
	}

	view := overviewView{
		Year:     year,
		Month:    month,
		TotalIn:  overview.TotalIn.Cents,
		TotalOut: overview.TotalOut.Cents,
		Net:      overview.Net().Cents,
		Bars:     categoryBars(overview.ByCategory),
		Budgets:  overview.Budgets,
	}
	s.render(w, r, "month_overview.html", view)
}

func overviewCacheKey(tenantID int64, year, month int) string {
	return fmt.Sprintf("overview:%d:%04d-%02d", tenantID, year, month)
}

func (s *Server) invalidateOverview(tenantID int64, year, month int) {
	s.overviewCache.Delete(overviewCacheKey(tenantID, year, month))
}

// categoryBars scales category spend against the largest category so the
// widest bar fills the chart. Amounts are spend, stored negative.
func categoryBars(rows []core.CategoryAmount) []overviewBar {
	var max int64
	for _, row := range rows {
		if v := abs(row.Amount.Cents); v > max {
			max = v
		}
	}
	bars := make([]overviewBar, 0, len(rows))
	for _, row := range rows {
		cents := abs(row.Amount.Cents)
		width := 0
		if max > 0 {
			width = int((cents*100 + max/2) / max)
		}
		if width < 2 {
			width = 2
		}
		if width > 100 {
			width = 100
		}
		bars = append(bars, overviewBar{Label: row.Name, Amount: row.Amount.Cents, Width: width})
	}
	return bars
}

func abs(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}

func (s *Server) render(w http.ResponseWriter, r *http.Request, name string, data any) {
	if s.templates == nil {
		http.Error(w, "templates not loaded", http.StatusInternalServerError)
		return
	}
	if err := s.templates.ExecuteTemplate(w, name, data); err != nil {
		s.logger.ErrorContext(r.Context(), "Template render failed", "template", name, "error", err)
	}
}
