package http

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"github.com/luke-anto/ledgerdesk/internal/auth"
	"github.com/luke-anto/ledgerdesk/internal/core"
)

// tenantID returns the tenant resolved by the membership guard.
func tenantID(r *http.Request) int64 {
	id, _ := auth.TenantFromContext(r.Context())
	return id
}

// pathID parses one numeric mux variable. The route patterns already
// constrain these to digits; the error path covers overflow and
// hand-built requests in tests.
func pathID(r *http.Request, name string) (int64, error) {
	id, err := strconv.ParseInt(mux.Vars(r)[name], 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid %s", name)
	}
	return id, nil
}

// formInt reads an optional integer form value.
func formInt(r *http.Request, name string) (int, bool) {
	v, err := strconv.Atoi(strings.TrimSpace(r.Form.Get(name)))
	return v, err == nil
}

// parseYearMonth reads year/month query parameters, defaulting to the
// current month and correcting out-of-range months.
func parseYearMonth(r *http.Request, now time.Time) (int, int) {
	year := now.Year()
	month := int(now.Month())
	if v := strings.TrimSpace(r.URL.Query().Get("year")); v != "" {
		if y, err := strconv.Atoi(v); err == nil {
			year = y
		}
	}
	if v := strings.TrimSpace(r.URL.Query().Get("month")); v != "" {
		if m, err := strconv.Atoi(v); err == nil {
			month = m
		}
	}
	if !core.ValidMonth(month) {
		month = int(now.Month())
	}
	return year, month
}

// parseYearMonthStrict is the variant for mutating handlers: a malformed
// or out-of-range period parameter is an error, never silently corrected.
func parseYearMonthStrict(r *http.Request, now time.Time) (int, int, error) {
	year := now.Year()
	month := int(now.Month())
	if v := strings.TrimSpace(r.URL.Query().Get("year")); v != "" {
		y, err := strconv.Atoi(v)
		if err != nil {
			return 0, 0, fmt.Errorf("invalid year %q", v)
		}
		year = y
	}
	if v := strings.TrimSpace(r.URL.Query().Get("month")); v != "" {
		m, err := strconv.Atoi(v)
		if err != nil || !core.ValidMonth(m) {
			return 0, 0, fmt.Errorf("month must be between 1 and 12")
		}
		month = m
	}
	return year, month, nil
}

// parseDate parses a YYYY-MM-DD form value.
func parseDate(v string) (core.Date, error) {
	t, err := time.Parse("2006-01-02", strings.TrimSpace(v))
	if err != nil {
		return core.Date{}, core.ErrInvalidDate
	}
	return core.Date{Time: t}, nil
}

// sanitizeInput trims whitespace and strips control characters.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}
