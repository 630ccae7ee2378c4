package core

import (
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"
)

// Lead statuses for the intake pipeline.
const (
	LeadNew       LeadStatus = "new"
	LeadContacted LeadStatus = "contacted"
	LeadQualified LeadStatus = "qualified"
	LeadConverted LeadStatus = "converted"
	LeadDeclined  LeadStatus = "declined"
)

type (
	LeadStatus string

	// Lead is an intake form submission working its way toward becoming
	// a tenant. TenantID is set when the lead converts.
	Lead struct {
		ID           int64
		PublicID     string
		BusinessName string
		ContactName  string
		Email        string
		Phone        string
		Message      string
		TierInterest ServiceTier
		Source       string
		Status       LeadStatus
		TenantID     *int64
		CreatedAt    time.Time
	}
)

var ErrInvalidLeadStatus = errors.New("invalid lead status")

// leadTransitions: forward one step at a time; declined is reachable from
// any status that has not converted yet.
var leadTransitions = map[LeadStatus][]LeadStatus{
	LeadNew:       {LeadContacted, LeadDeclined},
	LeadContacted: {LeadQualified, LeadDeclined},
	LeadQualified: {LeadConverted, LeadDeclined},
	LeadConverted: {},
	LeadDeclined:  {},
}

func (s LeadStatus) Valid() bool {
	_, ok := leadTransitions[s]
	return ok
}

// CanTransition reports whether moving from s to next is allowed.
func (s LeadStatus) CanTransition(next LeadStatus) bool {
	for _, allowed := range leadTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Transition applies a status change to the lead.
func (l *Lead) Transition(next LeadStatus) error {
	if !next.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidLeadStatus, next)
	}
	if !l.Status.CanTransition(next) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidLeadStatus, l.Status, next)
	}
	l.Status = next
	return nil
}

func (l Lead) Validate() error {
	if strings.TrimSpace(l.BusinessName) == "" {
		return ErrEmptyName
	}
	if len(l.BusinessName) > 200 {
		return errors.New("business name too long (max 200 characters)")
	}
	if l.Email == "" {
		return ErrInvalidEmail
	}
	if _, err := mail.ParseAddress(l.Email); err != nil {
		return ErrInvalidEmail
	}
	if l.TierInterest != "" && !l.TierInterest.Valid() {
		return ErrInvalidTier
	}
	if len(l.Message) > 4000 {
		return errors.New("message too long (max 4000 characters)")
	}
	if !l.Status.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidLeadStatus, l.Status)
	}
	return nil
}
