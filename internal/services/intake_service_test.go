package services

import (
	"context"
	"testing"
	"time"

	"github.com/luke-anto/ledgerdesk/internal/amqp"
	"github.com/luke-anto/ledgerdesk/internal/core"
)

func submissionMessage(id string) *amqp.IntakeSubmissionMessage {
	return &amqp.IntakeSubmissionMessage{
		SubmissionID: id,
		BusinessName: "Gamma Consulting",
		Email:        "owner@gamma.test",
		TierInterest: "premium",
		Source:       "website",
		ReceivedAt:   time.Now().UTC(),
	}
}

func TestRecordSubmission(t *testing.T) {
	repo := newTestStorage(t)
	svc := NewIntakeService(repo)
	ctx := context.Background()

	if err := svc.RecordSubmission(ctx, submissionMessage("sub-1")); err != nil {
		t.Fatalf("RecordSubmission() error = %v", err)
	}

	// Replays land as success without a second lead.
	if err := svc.RecordSubmission(ctx, submissionMessage("sub-1")); err != nil {
		t.Fatalf("RecordSubmission(replay) error = %v", err)
	}

	leads, err := repo.ListLeads(ctx, "")
	if err != nil {
		t.Fatalf("ListLeads() error = %v", err)
	}
	if len(leads) != 1 {
		t.Fatalf("leads = %d, want 1", len(leads))
	}
	if leads[0].Status != core.LeadNew || leads[0].TierInterest != core.TierPremium {
		t.Errorf("lead = %+v, want new premium lead", leads[0])
	}
}

func TestLeadTransitionAndConvert(t *testing.T) {
	repo := newTestStorage(t)
	svc := NewIntakeService(repo)
	ctx := context.Background()

	if err := svc.RecordSubmission(ctx, submissionMessage("sub-2")); err != nil {
		t.Fatalf("RecordSubmission() error = %v", err)
	}
	leads, err := repo.ListLeads(ctx, core.LeadNew)
	if err != nil || len(leads) != 1 {
		t.Fatalf("ListLeads() = %d leads, err %v", len(leads), err)
	}
	leadID := leads[0].ID

	// Converting before qualification is rejected.
	if _, err := svc.Convert(ctx, leadID, 150000); err == nil {
		t.Fatal("Convert(new lead) error = nil, want error")
	}

	if _, err := svc.Transition(ctx, leadID, core.LeadContacted); err != nil {
		t.Fatalf("Transition(contacted) error = %v", err)
	}
	if _, err := svc.Transition(ctx, leadID, core.LeadQualified); err != nil {
		t.Fatalf("Transition(qualified) error = %v", err)
	}

	tenant, err := svc.Convert(ctx, leadID, 150000)
	if err != nil {
		t.Fatalf("Convert() error = %v", err)
	}
	if tenant.Name != "Gamma Consulting" || tenant.Tier != core.TierPremium {
		t.Errorf("tenant = %+v, want Gamma Consulting premium", tenant)
	}
	if tenant.BillingRateCents != 150000 {
		t.Errorf("BillingRateCents = %d, want 150000", tenant.BillingRateCents)
	}

	// Conversion seeds the default checklist templates.
	templates, err := repo.ListTaskTemplates(ctx, tenant.ID)
	if err != nil {
		t.Fatalf("ListTaskTemplates() error = %v", err)
	}
	if len(templates) != len(defaultTaskTemplates) {
		t.Errorf("templates = %d, want %d", len(templates), len(defaultTaskTemplates))
	}

	lead, err := repo.GetLead(ctx, leadID)
	if err != nil {
		t.Fatalf("GetLead() error = %v", err)
	}
	if lead.Status != core.LeadConverted {
		t.Errorf("lead status = %s, want converted", lead.Status)
	}
	if lead.TenantID == nil || *lead.TenantID != tenant.ID {
		t.Errorf("lead tenant = %v, want %d", lead.TenantID, tenant.ID)
	}
}
