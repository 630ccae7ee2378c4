package core

import (
	"errors"
	"net/mail"
	"strings"
	"time"
)

const (
	RoleAdmin UserRole = "admin"
	RoleStaff UserRole = "staff"
)

type (
	UserRole string

	// User is a dashboard operator. Staff see only the tenants they are
	// members of; admins may select any tenant.
	User struct {
		ID           int64
		Email        string
		PasswordHash string
		Name         string
		Role         UserRole
		TenantIDs    []int64
		CreatedAt    time.Time
	}
)

var ErrInvalidRole = errors.New("invalid user role")

func (r UserRole) Valid() bool {
	return r == RoleAdmin || r == RoleStaff
}

// MemberOf reports whether the user may operate on the given tenant.
func (u User) MemberOf(tenantID int64) bool {
	if u.Role == RoleAdmin {
		return true
	}
	for _, id := range u.TenantIDs {
		if id == tenantID {
			return true
		}
	}
	return false
}

func (u User) Validate() error {
	if _, err := mail.ParseAddress(u.Email); err != nil {
		return ErrInvalidEmail
	}
	if strings.TrimSpace(u.Name) == "" {
		return ErrEmptyName
	}
	if !u.Role.Valid() {
		return ErrInvalidRole
	}
	return nil
}
