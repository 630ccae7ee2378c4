package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/luke-anto/ledgerdesk/internal/amqp"
	"github.com/luke-anto/ledgerdesk/internal/core"
	"github.com/luke-anto/ledgerdesk/internal/storage"
)

// defaultTaskTemplates seed the checklist of every converted tenant. Staff
// tune them per tenant afterwards.
var defaultTaskTemplates = []core.TaskTemplate{
	{Name: "Collect bank statements", Stage: core.StatusCollecting, SortOrder: 1},
	{Name: "Collect receipts and invoices", Stage: core.StatusCollecting, SortOrder: 2},
	{Name: "Categorize transactions", Stage: core.StatusProcessing, SortOrder: 1},
	{Name: "Reconcile accounts", Stage: core.StatusReconciling, SortOrder: 1},
	{Name: "Prepare monthly report", Stage: core.StatusReporting, SortOrder: 1},
}

// IntakeService turns webhook submissions into leads and leads into tenants.
type IntakeService struct {
	storage *storage.SQLiteRepository
}

func NewIntakeService(storage *storage.SQLiteRepository) *IntakeService {
	return &IntakeService{storage: storage}
}

// RecordSubmission writes a lead from an intake message. Duplicate
// submissions are dropped without error so the sender sees success.
func (s *IntakeService) RecordSubmission(ctx context.Context, msg *amqp.IntakeSubmissionMessage) error {
	lead := core.Lead{
		BusinessName: msg.BusinessName,
		ContactName:  msg.ContactName,
		Email:        msg.Email,
		Phone:        msg.Phone,
		Message:      msg.Message,
		TierInterest: core.ServiceTier(msg.TierInterest),
		Source:       msg.Source,
		Status:       core.LeadNew,
	}

	_, err := s.storage.CreateLead(ctx, lead, msg.SubmissionID)
	if errors.Is(err, storage.ErrDuplicateSubmission) {
		slog.InfoContext(ctx, "Dropped replayed submission",
			"submission_id", msg.SubmissionID)
		return nil
	}
	if err != nil {
		return fmt.Errorf("record submission: %w", err)
	}
	return nil
}

// Transition moves a lead along its pipeline.
func (s *IntakeService) Transition(ctx context.Context, leadID int64, next core.LeadStatus) (core.Lead, error) {
	lead, err := s.storage.GetLead(ctx, leadID)
	if err != nil {
		return core.Lead{}, fmt.Errorf("load lead: %w", err)
	}
	if err := lead.Transition(next); err != nil {
		return core.Lead{}, err
	}
	if err := s.storage.UpdateLeadStatus(ctx, lead); err != nil {
		return core.Lead{}, fmt.Errorf("update lead: %w", err)
	}
	slog.InfoContext(ctx, "Lead transitioned",
		"lead_id", leadID, "status", lead.Status)
	return lead, nil
}

// Convert creates a tenant from a qualified lead, seeding the default
// checklist templates. Tenant creation, templates, and the lead update
// commit together or not at all.
func (s *IntakeService) Convert(ctx context.Context, leadID int64, billingRateCents int64) (core.Tenant, error) {
	lead, err := s.storage.GetLead(ctx, leadID)
	if err != nil {
		return core.Tenant{}, fmt.Errorf("load lead: %w", err)
	}

	tier := lead.TierInterest
	if tier == "" {
		tier = core.TierBasic
	}
	tenant := core.Tenant{
		Name:             lead.BusinessName,
		ContactEmail:     lead.Email,
		BillingRateCents: billingRateCents,
		Tier:             tier,
		Active:           true,
	}

	created, err := s.storage.ConvertLead(ctx, lead, tenant, defaultTaskTemplates)
	if err != nil {
		return core.Tenant{}, fmt.Errorf("convert lead %d: %w", leadID, err)
	}
	return created, nil
}
