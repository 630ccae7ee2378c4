package http

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/luke-anto/ledgerdesk/internal/auth"
	"github.com/luke-anto/ledgerdesk/internal/core"
	"github.com/luke-anto/ledgerdesk/internal/storage"
)

func (s *Server) handleLoginPage(w http.ResponseWriter, r *http.Request) {
	if s.templates == nil {
		http.Error(w, "templates not loaded", http.StatusInternalServerError)
		return
	}
	if err := s.templates.ExecuteTemplate(w, "login.html", nil); err != nil {
		s.logger.ErrorContext(r.Context(), "Login template failed", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		BadRequestError("invalid form").Write(w)
		return
	}
	email := strings.ToLower(sanitizeInput(r.Form.Get("email")))
	password := r.Form.Get("password")
	if email == "" || password == "" {
		UnprocessableEntityError("email and password are required").Write(w)
		return
	}

	user, err := s.storage.GetUserByEmail(r.Context(), email)
	if errors.Is(err, storage.ErrNotFound) {
		// Same answer as a wrong password.
		s.rejectLogin(w, r, email)
		return
	}
	if err != nil {
		s.logger.ErrorContext(r.Context(), "Login lookup failed", "error", err)
		InternalServerError("internal error").Write(w)
		return
	}
	if err := auth.CheckPassword(user.PasswordHash, password); err != nil {
		s.rejectLogin(w, r, email)
		return
	}

	token, err := s.authManager.Issue(user)
	if err != nil {
		s.logger.ErrorContext(r.Context(), "Token issue failed", "error", err)
		InternalServerError("internal error").Write(w)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     auth.SessionCookie,
		Value:    token,
		Path:     "/",
		MaxAge:   int(s.authManager.Expiry().Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	s.logger.InfoContext(r.Context(), "User logged in", "user_id", user.ID, "role", user.Role)

	if r.Header.Get("HX-Request") == "true" {
		w.Header().Set("HX-Redirect", "/")
		w.WriteHeader(http.StatusOK)
		return
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (s *Server) rejectLogin(w http.ResponseWriter, r *http.Request, email string) {
	s.logger.WarnContext(r.Context(), "Login rejected", "email", email)
	ErrorResponse(http.StatusUnauthorized, "invalid email or password").Write(w)
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     auth.SessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}

// handleCreateUser bootstraps staff accounts. Admin only.
func (s *Server) handleCreateUser(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		BadRequestError("invalid form").Write(w)
		return
	}
	email := strings.ToLower(sanitizeInput(r.Form.Get("email")))
	name := sanitizeInput(r.Form.Get("name"))
	password := r.Form.Get("password")
	role := core.UserRole(sanitizeInput(r.Form.Get("role")))
	if role == "" {
		role = core.RoleStaff
	}
	if len(password) < 8 {
		UnprocessableEntityError("password must be at least 8 characters").Write(w)
		return
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		InternalServerError("internal error").Write(w)
		return
	}
	user := core.User{Email: email, PasswordHash: hash, Name: name, Role: role}
	if err := user.Validate(); err != nil {
		UnprocessableEntityError(err.Error()).Write(w)
		return
	}

	id, err := s.storage.CreateUser(r.Context(), user)
	if err != nil {
		s.logger.ErrorContext(r.Context(), "User create failed", "error", err)
		InternalServerError("could not create user").Write(w)
		return
	}
	s.logger.InfoContext(r.Context(), "User created", "user_id", id, "role", role)
	NewHTMXResponse().TriggerFormReset().BodyHTML(SuccessSnippet("user created: " + email)).Write(w)
}

// handleGrantMembership adds a user to a tenant so tenant-scoped screens
// open for them. Admin only; admins themselves need no membership.
func (s *Server) handleGrantMembership(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		BadRequestError("invalid form").Write(w)
		return
	}
	email := strings.ToLower(sanitizeInput(r.Form.Get("email")))
	tid, err := strconv.ParseInt(r.Form.Get("tenant_id"), 10, 64)
	if email == "" || err != nil || tid <= 0 {
		UnprocessableEntityError("email and tenant_id are required").Write(w)
		return
	}

	user, err := s.storage.GetUserByEmail(r.Context(), email)
	if errors.Is(err, storage.ErrNotFound) {
		UnprocessableEntityError("no user with email " + email).Write(w)
		return
	}
	if err != nil {
		s.logger.ErrorContext(r.Context(), "Membership user lookup failed", "error", err)
		InternalServerError("internal error").Write(w)
		return
	}
	tenant, err := s.storage.GetTenant(r.Context(), tid)
	if errors.Is(err, storage.ErrNotFound) {
		http.NotFound(w, r)
		return
	}
	if err != nil {
		s.logger.ErrorContext(r.Context(), "Membership tenant lookup failed", "error", err)
		InternalServerError("internal error").Write(w)
		return
	}

	if err := s.storage.AddUserToTenant(r.Context(), user.ID, tenant.ID); err != nil {
		s.logger.ErrorContext(r.Context(), "Membership grant failed",
			"user_id", user.ID, "tenant_id", tenant.ID, "error", err)
		InternalServerError("could not grant membership").Write(w)
		return
	}
	s.logger.InfoContext(r.Context(), "Membership granted",
		"user_id", user.ID, "tenant_id", tenant.ID)
	NewHTMXResponse().
		TriggerFormReset().
		BodyHTML(SuccessSnippet(user.Name + " now has access to " + tenant.Name)).
		Write(w)
}
