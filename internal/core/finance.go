package core

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

const (
	KindIncome  TransactionKind = "income"
	KindExpense TransactionKind = "expense"
)

// Invoice statuses. draft -> sent -> paid is the happy path; void is
// reachable from draft and sent only.
const (
	InvoiceDraft InvoiceStatus = "draft"
	InvoiceSent  InvoiceStatus = "sent"
	InvoicePaid  InvoiceStatus = "paid"
	InvoiceVoid  InvoiceStatus = "void"
)

type (
	TransactionKind string
	InvoiceStatus   string

	// Transaction is a single money movement on a tenant's books.
	// Amount sign follows the bank convention: negative is money out.
	Transaction struct {
		ID          int64
		TenantID    int64
		Date        Date
		Description string
		Amount      Money
		Category    string
		Kind        TransactionKind
		InvoiceID   *int64
		CreatedAt   time.Time
	}

	// Budget is a per-category monthly spending target.
	Budget struct {
		ID       int64
		TenantID int64
		Category string
		Year     int
		Month    int
		Amount   Money
	}

	Invoice struct {
		ID        int64
		TenantID  int64
		Number    string
		IssueDate Date
		DueDate   Date
		Amount    Money
		Status    InvoiceStatus
		PaidAt    *time.Time
		CreatedAt time.Time
	}
)

var (
	ErrInvalidKind          = errors.New("invalid transaction kind")
	ErrInvalidInvoiceStatus = errors.New("invalid invoice status")
)

// invoiceTransitions is the fixed table of allowed status moves.
var invoiceTransitions = map[InvoiceStatus][]InvoiceStatus{
	InvoiceDraft: {InvoiceSent, InvoiceVoid},
	InvoiceSent:  {InvoicePaid, InvoiceVoid},
	InvoicePaid:  {},
	InvoiceVoid:  {},
}

func (k TransactionKind) Valid() bool {
	return k == KindIncome || k == KindExpense
}

func (s InvoiceStatus) Valid() bool {
	_, ok := invoiceTransitions[s]
	return ok
}

// CanTransition reports whether moving from s to next is allowed.
func (s InvoiceStatus) CanTransition(next InvoiceStatus) bool {
	for _, allowed := range invoiceTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Transition applies a status change, stamping PaidAt on paid.
func (i *Invoice) Transition(next InvoiceStatus) error {
	if !next.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidInvoiceStatus, next)
	}
	if !i.Status.CanTransition(next) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidInvoiceStatus, i.Status, next)
	}
	i.Status = next
	if next == InvoicePaid {
		now := time.Now().UTC()
		i.PaidAt = &now
	}
	return nil
}

func (t Transaction) Validate() error {
	if err := t.Date.Validate(); err != nil {
		return err
	}
	if strings.TrimSpace(t.Description) == "" {
		return ErrEmptyDescription
	}
	if len(t.Description) > 200 {
		return errors.New("description too long (max 200 characters)")
	}
	if err := t.Amount.Validate(); err != nil {
		return err
	}
	if strings.TrimSpace(t.Category) == "" {
		return ErrEmptyCategory
	}
	if !t.Kind.Valid() {
		return ErrInvalidKind
	}
	// Sign and kind must agree.
	if t.Kind == KindIncome && t.Amount.Cents < 0 {
		return fmt.Errorf("%w: income must be positive", ErrInvalidAmount)
	}
	if t.Kind == KindExpense && t.Amount.Cents > 0 {
		return fmt.Errorf("%w: expense must be negative", ErrInvalidAmount)
	}
	return nil
}

func (b Budget) Validate() error {
	if strings.TrimSpace(b.Category) == "" {
		return ErrEmptyCategory
	}
	if !ValidMonth(b.Month) {
		return ErrInvalidMonth
	}
	if b.Amount.Cents <= 0 {
		return ErrInvalidAmount
	}
	return nil
}

func (i Invoice) Validate() error {
	if strings.TrimSpace(i.Number) == "" {
		return errors.New("empty invoice number")
	}
	if err := i.IssueDate.Validate(); err != nil {
		return fmt.Errorf("issue date: %w", err)
	}
	if err := i.DueDate.Validate(); err != nil {
		return fmt.Errorf("due date: %w", err)
	}
	if i.DueDate.Before(i.IssueDate.Time) {
		return errors.New("due date before issue date")
	}
	if i.Amount.Cents <= 0 {
		return ErrInvalidAmount
	}
	if !i.Status.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidInvoiceStatus, i.Status)
	}
	return nil
}
