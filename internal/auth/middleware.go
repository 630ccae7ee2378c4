package auth

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
)

// SessionCookie is the cookie name carrying the signed session token.
const SessionCookie = "ledgerdesk_session"

type contextKey string

const (
	claimsKey contextKey = "session_claims"
	tenantKey contextKey = "tenant_id"
)

// ClaimsFromContext returns the verified session claims, if any.
func ClaimsFromContext(ctx context.Context) (SessionClaims, bool) {
	claims, ok := ctx.Value(claimsKey).(SessionClaims)
	return claims, ok
}

// TenantFromContext returns the tenant ID resolved by RequireTenant.
func TenantFromContext(ctx context.Context) (int64, bool) {
	id, ok := ctx.Value(tenantKey).(int64)
	return id, ok
}

// RequireSession verifies the session cookie and stores the claims in the
// request context. Browser requests are redirected to the login page; HTMX
// and API requests get a bare 401.
func (m *Manager) RequireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie(SessionCookie)
		if err != nil {
			deny(w, r)
			return
		}
		claims, err := m.Verify(cookie.Value)
		if err != nil {
			deny(w, r)
			return
		}
		ctx := context.WithValue(r.Context(), claimsKey, claims)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireTenant resolves the {tenantID} route variable and rejects users
// who are not members. Non-members get a 404, the same answer a missing
// tenant would give.
func RequireTenant(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, ok := ClaimsFromContext(r.Context())
		if !ok {
			deny(w, r)
			return
		}
		tenantID, err := strconv.ParseInt(mux.Vars(r)["tenantID"], 10, 64)
		if err != nil {
			http.NotFound(w, r)
			return
		}
		if !claims.MemberOf(tenantID) {
			http.NotFound(w, r)
			return
		}
		ctx := context.WithValue(r.Context(), tenantKey, tenantID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireAdmin rejects non-admin sessions with a 403.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, ok := ClaimsFromContext(r.Context())
		if !ok {
			deny(w, r)
			return
		}
		if claims.Role != "admin" {
			http.Error(w, "forbidden", http.StatusForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func deny(w http.ResponseWriter, r *http.Request) {
	// HTMX cannot follow a redirect into a partial; tell it to reload.
	if r.Header.Get("HX-Request") == "true" {
		w.Header().Set("HX-Redirect", "/login")
		w.WriteHeader(http.StatusUnauthorized)
		return
	}
	if r.Header.Get("Accept") == "application/json" {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}
