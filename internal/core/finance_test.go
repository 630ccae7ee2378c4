package core

import (
	"errors"
	"testing"
)

func TestInvoice_Transition(t *testing.T) {
	tests := []struct {
		name    string
		from    InvoiceStatus
		to      InvoiceStatus
		wantErr bool
	}{
		{"draft to sent", InvoiceDraft, InvoiceSent, false},
		{"draft to void", InvoiceDraft, InvoiceVoid, false},
		{"sent to paid", InvoiceSent, InvoicePaid, false},
		{"sent to void", InvoiceSent, InvoiceVoid, false},
		{"draft to paid", InvoiceDraft, InvoicePaid, true},
		{"paid to void", InvoicePaid, InvoiceVoid, true},
		{"void to sent", InvoiceVoid, InvoiceSent, true},
		{"unknown target", InvoiceDraft, "archived", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			inv := Invoice{Status: tt.from}
			err := inv.Transition(tt.to)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Transition(%s) error = %v, wantErr %v", tt.to, err, tt.wantErr)
			}
			if err == nil && inv.Status != tt.to {
				t.Errorf("status = %s, want %s", inv.Status, tt.to)
			}
		})
	}
}

func TestInvoice_TransitionStampsPaidAt(t *testing.T) {
	inv := Invoice{Status: InvoiceSent}
	if err := inv.Transition(InvoicePaid); err != nil {
		t.Fatalf("Transition: %v", err)
	}
	if inv.PaidAt == nil {
		t.Error("PaidAt not stamped")
	}
}

func TestTransaction_Validate(t *testing.T) {
	valid := Transaction{
		Date:        NewDate(2026, 8, 12),
		Description: "Stripe payout",
		Amount:      Money{Cents: 125000},
		Category:    "Revenue",
		Kind:        KindIncome,
	}

	tests := []struct {
		name   string
		mutate func(*Transaction)
		want   error
	}{
		{"valid income", func(tx *Transaction) {}, nil},
		{"valid expense", func(tx *Transaction) { tx.Kind = KindExpense; tx.Amount.Cents = -4500; tx.Category = "Software" }, nil},
		{"zero amount", func(tx *Transaction) { tx.Amount.Cents = 0 }, ErrInvalidAmount},
		{"empty description", func(tx *Transaction) { tx.Description = "  " }, ErrEmptyDescription},
		{"empty category", func(tx *Transaction) { tx.Category = "" }, ErrEmptyCategory},
		{"bad kind", func(tx *Transaction) { tx.Kind = "transfer" }, ErrInvalidKind},
		{"negative income", func(tx *Transaction) { tx.Amount.Cents = -100 }, ErrInvalidAmount},
		{"positive expense", func(tx *Transaction) { tx.Kind = KindExpense }, ErrInvalidAmount},
		{"zero date", func(tx *Transaction) { tx.Date = Date{} }, ErrInvalidDate},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tx := valid
			tt.mutate(&tx)
			err := tx.Validate()
			if tt.want == nil {
				if err != nil {
					t.Errorf("Validate() unexpected error: %v", err)
				}
				return
			}
			if !errors.Is(err, tt.want) {
				t.Errorf("Validate() error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestBudget_Validate(t *testing.T) {
	if err := (Budget{Category: "Software", Year: 2026, Month: 8, Amount: Money{Cents: 50000}}).Validate(); err != nil {
		t.Errorf("valid budget rejected: %v", err)
	}
	if err := (Budget{Category: "Software", Year: 2026, Month: 0, Amount: Money{Cents: 1}}).Validate(); !errors.Is(err, ErrInvalidMonth) {
		t.Error("month 0 should fail")
	}
	if err := (Budget{Category: "Software", Year: 2026, Month: 8, Amount: Money{Cents: -5}}).Validate(); !errors.Is(err, ErrInvalidAmount) {
		t.Error("negative budget should fail")
	}
}

func TestInvoice_Validate(t *testing.T) {
	valid := Invoice{
		Number:    "INV-2026-0001",
		IssueDate: NewDate(2026, 8, 1),
		DueDate:   NewDate(2026, 8, 31),
		Amount:    Money{Cents: 90000},
		Status:    InvoiceDraft,
	}
	if err := valid.Validate(); err != nil {
		t.Fatalf("valid invoice rejected: %v", err)
	}

	bad := valid
	bad.DueDate = NewDate(2026, 7, 1)
	if err := bad.Validate(); err == nil {
		t.Error("due date before issue date should fail")
	}
}
