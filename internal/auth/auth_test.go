package auth

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/mux"

	"github.com/luke-anto/ledgerdesk/internal/core"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func testUser() core.User {
	return core.User{
		ID:        7,
		Email:     "staff@ledgerdesk.test",
		Role:      core.RoleStaff,
		TenantIDs: []int64{3, 9},
	}
}

func TestIssueVerifyRoundTrip(t *testing.T) {
	m := NewManager(testSecret, time.Hour)

	token, err := m.Issue(testUser())
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}

	claims, err := m.Verify(token)
	if err != nil {
		t.Fatalf("Verify() error = %v", err)
	}
	if claims.UserID != 7 {
		t.Errorf("UserID = %d, want 7", claims.UserID)
	}
	if claims.Role != "staff" {
		t.Errorf("Role = %q, want staff", claims.Role)
	}
	if len(claims.TenantIDs) != 2 {
		t.Errorf("TenantIDs = %v, want two memberships", claims.TenantIDs)
	}
}

func TestVerifyRejects(t *testing.T) {
	m := NewManager(testSecret, time.Hour)
	token, err := m.Issue(testUser())
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}

	tests := []struct {
		name  string
		token string
		mgr   *Manager
	}{
		{"garbage", "not.a.token", m},
		{"tampered", token + "x", m},
		{"wrong secret", token, NewManager("another-secret-another-secret-ab", time.Hour)},
		{"expired", mustIssue(t, NewManager(testSecret, -time.Minute)), m},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := tt.mgr.Verify(tt.token); !errors.Is(err, ErrInvalidToken) {
				t.Errorf("Verify() error = %v, want ErrInvalidToken", err)
			}
		})
	}
}

func mustIssue(t *testing.T, m *Manager) string {
	t.Helper()
	token, err := m.Issue(testUser())
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}
	return token
}

func TestClaimsMemberOf(t *testing.T) {
	staff := SessionClaims{Role: "staff", TenantIDs: []int64{3}}
	if !staff.MemberOf(3) {
		t.Error("staff should be a member of tenant 3")
	}
	if staff.MemberOf(4) {
		t.Error("staff must not be a member of tenant 4")
	}
	admin := SessionClaims{Role: "admin"}
	if !admin.MemberOf(4) {
		t.Error("admin has access to every tenant")
	}
}

func TestPasswordRoundTrip(t *testing.T) {
	hash, err := HashPassword("correct horse battery staple")
	if err != nil {
		t.Fatalf("HashPassword() error = %v", err)
	}
	if err := CheckPassword(hash, "correct horse battery staple"); err != nil {
		t.Errorf("CheckPassword(correct) error = %v", err)
	}
	if err := CheckPassword(hash, "wrong"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("CheckPassword(wrong) error = %v, want ErrInvalidCredentials", err)
	}
}

func sessionRouter(m *Manager) *mux.Router {
	r := mux.NewRouter()
	r.Handle("/tenants/{tenantID}/ping",
		m.RequireSession(RequireTenant(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, ok := TenantFromContext(r.Context()); !ok {
				w.WriteHeader(http.StatusInternalServerError)
				return
			}
			w.WriteHeader(http.StatusOK)
		}))))
	return r
}

func TestMiddlewareGuards(t *testing.T) {
	m := NewManager(testSecret, time.Hour)
	router := sessionRouter(m)
	token := mustIssue(t, m)

	tests := []struct {
		name       string
		path       string
		cookie     string
		hxRequest  bool
		wantStatus int
	}{
		{"member tenant", "/tenants/3/ping", token, false, http.StatusOK},
		{"foreign tenant hidden", "/tenants/5/ping", token, false, http.StatusNotFound},
		{"bad tenant id", "/tenants/abc/ping", token, false, http.StatusNotFound},
		{"no cookie redirects", "/tenants/3/ping", "", false, http.StatusSeeOther},
		{"no cookie htmx 401", "/tenants/3/ping", "", true, http.StatusUnauthorized},
		{"bad cookie", "/tenants/3/ping", "broken", false, http.StatusSeeOther},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			if tt.cookie != "" {
				req.AddCookie(&http.Cookie{Name: SessionCookie, Value: tt.cookie})
			}
			if tt.hxRequest {
				req.Header.Set("HX-Request", "true")
			}
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)
			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
		})
	}
}
