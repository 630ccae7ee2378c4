package core

import (
	"errors"
	"testing"
)

func TestTenant_Validate(t *testing.T) {
	valid := Tenant{
		Name:             "Acme Plumbing LLC",
		LegalName:        "Acme Plumbing, LLC",
		ContactEmail:     "owner@acmeplumbing.example",
		BillingRateCents: 45000,
		Tier:             TierStandard,
		Active:           true,
	}

	tests := []struct {
		name   string
		mutate func(*Tenant)
		want   error
	}{
		{"valid", func(tn *Tenant) {}, nil},
		{"no email is fine", func(tn *Tenant) { tn.ContactEmail = "" }, nil},
		{"empty name", func(tn *Tenant) { tn.Name = " " }, ErrEmptyName},
		{"bad email", func(tn *Tenant) { tn.ContactEmail = "nope" }, ErrInvalidEmail},
		{"bad tier", func(tn *Tenant) { tn.Tier = "gold" }, ErrInvalidTier},
		{"negative rate", func(tn *Tenant) { tn.BillingRateCents = -1 }, ErrInvalidAmount},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tn := valid
			tt.mutate(&tn)
			err := tn.Validate()
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

func TestContact_Validate(t *testing.T) {
	if err := (Contact{Name: "Dana Reyes", Email: "dana@example.com"}).Validate(); err != nil {
		t.Errorf("valid contact rejected: %v", err)
	}
	if err := (Contact{Name: ""}).Validate(); !errors.Is(err, ErrEmptyName) {
		t.Error("empty name should fail")
	}
	if err := (Contact{Name: "X", Email: "broken@"}).Validate(); !errors.Is(err, ErrInvalidEmail) {
		t.Error("bad email should fail")
	}
}

func TestNote_Validate(t *testing.T) {
	if err := (Note{Body: "Called about Q3 receipts."}).Validate(); err != nil {
		t.Errorf("valid note rejected: %v", err)
	}
	if err := (Note{Body: "   "}).Validate(); err == nil {
		t.Error("blank note should fail")
	}
}
