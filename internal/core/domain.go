package core

import (
	"errors"
	"net/mail"
	"strings"
	"time"
)

const (
	TierBasic    ServiceTier = "basic"
	TierStandard ServiceTier = "standard"
	TierPremium  ServiceTier = "premium"
)

type (
	ServiceTier string

	Date struct {
		time.Time
	}

	Money struct {
		Cents int64
	}

	// Tenant is a client business of the practice. All operational rows
	// (cycles, transactions, budgets, invoices, contacts) hang off one.
	Tenant struct {
		ID               int64
		PublicID         string
		Name             string
		LegalName        string
		ContactEmail     string
		BillingRateCents int64
		Tier             ServiceTier
		Active           bool
		CreatedAt        time.Time
	}

	// Contact is a person at a tenant.
	Contact struct {
		ID        int64
		TenantID  int64
		Name      string
		Email     string
		Phone     string
		RoleLabel string
		CreatedAt time.Time
	}

	// Note is a timestamped free-text entry attached to a contact.
	Note struct {
		ID        int64
		ContactID int64
		Author    string
		Body      string
		CreatedAt time.Time
	}
)

var (
	ErrInvalidAmount    = errors.New("invalid amount")
	ErrEmptyName        = errors.New("empty name")
	ErrEmptyDescription = errors.New("empty description")
	ErrEmptyCategory    = errors.New("empty category")
	ErrInvalidEmail     = errors.New("invalid email address")
	ErrInvalidTier      = errors.New("invalid service tier")
	ErrInvalidDate      = errors.New("invalid date")
	ErrInvalidMonth     = errors.New("invalid month")
)

// NewDate creates a Date from year, month, day (UTC, midnight).
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

func (d Date) Validate() error {
	if d.IsZero() {
		return ErrInvalidDate
	}
	return nil
}

// Day returns the day of the month.
func (d Date) Day() int {
	return d.Time.Day()
}

// Month returns the month as an int.
func (d Date) Month() int {
	return int(d.Time.Month())
}

// Year returns the year.
func (d Date) Year() int {
	return d.Time.Year()
}

func (m Money) Validate() error {
	if m.Cents == 0 {
		return ErrInvalidAmount
	}
	return nil
}

func (t ServiceTier) Valid() bool {
	switch t {
	case TierBasic, TierStandard, TierPremium:
		return true
	}
	return false
}

func (t Tenant) Validate() error {
	if strings.TrimSpace(t.Name) == "" {
		return ErrEmptyName
	}
	if len(t.Name) > 200 {
		return errors.New("name too long (max 200 characters)")
	}
	if t.ContactEmail != "" {
		if _, err := mail.ParseAddress(t.ContactEmail); err != nil {
			return ErrInvalidEmail
		}
	}
	if !t.Tier.Valid() {
		return ErrInvalidTier
	}
	if t.BillingRateCents < 0 {
		return ErrInvalidAmount
	}
	return nil
}

func (c Contact) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return ErrEmptyName
	}
	if c.Email != "" {
		if _, err := mail.ParseAddress(c.Email); err != nil {
			return ErrInvalidEmail
		}
	}
	return nil
}

func (n Note) Validate() error {
	if strings.TrimSpace(n.Body) == "" {
		return errors.New("empty note body")
	}
	if len(n.Body) > 4000 {
		return errors.New("note too long (max 4000 characters)")
	}
	return nil
}

// ValidMonth reports whether month is in 1..12.
func ValidMonth(month int) bool {
	return month >= 1 && month <= 12
}
