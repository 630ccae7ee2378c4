package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/luke-anto/ledgerdesk/internal/core"
)

func newTestRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("NewSQLiteRepository() error = %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func seedTenant(t *testing.T, repo *SQLiteRepository, name string) core.Tenant {
	t.Helper()
	tenant, err := repo.CreateTenant(context.Background(), core.Tenant{
		Name:   name,
		Tier:   core.TierStandard,
		Active: true,
	})
	if err != nil {
		t.Fatalf("CreateTenant(%q) error = %v", name, err)
	}
	return tenant
}

func TestTenantScoping(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	alpha := seedTenant(t, repo, "Alpha Books")
	beta := seedTenant(t, repo, "Beta Retail")

	contactID, err := repo.CreateContact(ctx, core.Contact{
		TenantID: alpha.ID,
		Name:     "Dana Owner",
		Email:    "dana@alphabooks.test",
	})
	if err != nil {
		t.Fatalf("CreateContact() error = %v", err)
	}

	if _, err := repo.GetContact(ctx, alpha.ID, contactID); err != nil {
		t.Errorf("GetContact(owner tenant) error = %v", err)
	}

	// Another tenant must see the row as absent, not as forbidden.
	if _, err := repo.GetContact(ctx, beta.ID, contactID); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetContact(other tenant) error = %v, want ErrNotFound", err)
	}
	if err := repo.DeleteContact(ctx, beta.ID, contactID); !errors.Is(err, ErrNotFound) {
		t.Errorf("DeleteContact(other tenant) error = %v, want ErrNotFound", err)
	}
	if err := repo.DeleteContact(ctx, alpha.ID, contactID); err != nil {
		t.Errorf("DeleteContact(owner tenant) error = %v", err)
	}
}

func TestUserMemberships(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	alpha := seedTenant(t, repo, "Alpha Books")
	beta := seedTenant(t, repo, "Beta Retail")

	userID, err := repo.CreateUser(ctx, core.User{
		Email:        "staff@ledgerdesk.test",
		PasswordHash: "$2a$10$notarealhashnotarealhashnotarealhash",
		Name:         "Staff Member",
		Role:         core.RoleStaff,
		TenantIDs:    []int64{alpha.ID},
	})
	if err != nil {
		t.Fatalf("CreateUser() error = %v", err)
	}

	user, err := repo.GetUser(ctx, userID)
	if err != nil {
		t.Fatalf("GetUser() error = %v", err)
	}
	if len(user.TenantIDs) != 1 || user.TenantIDs[0] != alpha.ID {
		t.Errorf("TenantIDs = %v, want [%d]", user.TenantIDs, alpha.ID)
	}

	tenants, err := repo.ListTenants(ctx, user)
	if err != nil {
		t.Fatalf("ListTenants(staff) error = %v", err)
	}
	if len(tenants) != 1 || tenants[0].ID != alpha.ID {
		t.Errorf("staff sees %d tenants, want only membership tenant", len(tenants))
	}

	admin := core.User{ID: userID, Role: core.RoleAdmin}
	tenants, err = repo.ListTenants(ctx, admin)
	if err != nil {
		t.Fatalf("ListTenants(admin) error = %v", err)
	}
	if len(tenants) != 2 {
		t.Errorf("admin sees %d tenants, want 2", len(tenants))
	}
	_ = beta
}

func TestCycleLifecycle(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	tenant := seedTenant(t, repo, "Alpha Books")

	templates := []core.TaskTemplate{
		{TenantID: tenant.ID, Name: "Collect statements", Stage: core.StatusCollecting, SortOrder: 1},
		{TenantID: tenant.ID, Name: "Categorize entries", Stage: core.StatusProcessing, SortOrder: 1},
	}

	cycle, err := repo.CreateCycle(ctx, core.ServiceCycle{
		TenantID: tenant.ID,
		Year:     2026,
		Month:    8,
		Status:   core.StatusCollecting,
	}, templates)
	if err != nil {
		t.Fatalf("CreateCycle() error = %v", err)
	}

	// A second cycle for the same month must be rejected.
	_, err = repo.CreateCycle(ctx, core.ServiceCycle{
		TenantID: tenant.ID,
		Year:     2026,
		Month:    8,
		Status:   core.StatusCollecting,
	}, nil)
	if !errors.Is(err, ErrCycleExists) {
		t.Errorf("CreateCycle(same month) error = %v, want ErrCycleExists", err)
	}

	tasks, err := repo.ListCycleTasks(ctx, tenant.ID, cycle.ID)
	if err != nil {
		t.Fatalf("ListCycleTasks() error = %v", err)
	}
	if len(tasks) != 2 {
		t.Fatalf("seeded %d tasks, want 2", len(tasks))
	}

	stageOpen, totalOpen, err := repo.CountOpenTasks(ctx, tenant.ID, cycle.ID, core.StatusCollecting)
	if err != nil {
		t.Fatalf("CountOpenTasks() error = %v", err)
	}
	if stageOpen != 1 || totalOpen != 2 {
		t.Errorf("open tasks = (%d, %d), want (1, 2)", stageOpen, totalOpen)
	}

	if err := repo.SetTaskDone(ctx, tenant.ID, tasks[0].ID, true); err != nil {
		t.Fatalf("SetTaskDone() error = %v", err)
	}
	stageOpen, totalOpen, err = repo.CountOpenTasks(ctx, tenant.ID, cycle.ID, core.StatusCollecting)
	if err != nil {
		t.Fatalf("CountOpenTasks() after done error = %v", err)
	}
	if stageOpen != 0 || totalOpen != 1 {
		t.Errorf("open tasks after done = (%d, %d), want (0, 1)", stageOpen, totalOpen)
	}

	if err := cycle.Advance(core.StatusProcessing); err != nil {
		t.Fatalf("Advance() error = %v", err)
	}
	if err := repo.UpdateCycleStatus(ctx, tenant.ID, cycle); err != nil {
		t.Fatalf("UpdateCycleStatus() error = %v", err)
	}
	got, err := repo.GetCycleByMonth(ctx, tenant.ID, 2026, 8)
	if err != nil {
		t.Fatalf("GetCycleByMonth() error = %v", err)
	}
	if got.Status != core.StatusProcessing {
		t.Errorf("Status = %s, want processing", got.Status)
	}
}

func TestMonthOverview(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	tenant := seedTenant(t, repo, "Alpha Books")

	entries := []core.Transaction{
		{TenantID: tenant.ID, Date: core.NewDate(2026, 8, 3), Description: "Client retainer", Amount: core.Money{Cents: 250000}, Category: "revenue", Kind: core.KindIncome},
		{TenantID: tenant.ID, Date: core.NewDate(2026, 8, 10), Description: "Accounting software", Amount: core.Money{Cents: -4900}, Category: "software", Kind: core.KindExpense},
		{TenantID: tenant.ID, Date: core.NewDate(2026, 8, 12), Description: "Second seat", Amount: core.Money{Cents: -4900}, Category: "software", Kind: core.KindExpense},
		{TenantID: tenant.ID, Date: core.NewDate(2026, 7, 28), Description: "July rent", Amount: core.Money{Cents: -120000}, Category: "rent", Kind: core.KindExpense},
	}
	for _, tx := range entries {
		if _, err := repo.CreateTransaction(ctx, tx); err != nil {
			t.Fatalf("CreateTransaction(%q) error = %v", tx.Description, err)
		}
	}

	if err := repo.UpsertBudget(ctx, core.Budget{
		TenantID: tenant.ID, Category: "software", Year: 2026, Month: 8,
		Amount: core.Money{Cents: 15000},
	}); err != nil {
		t.Fatalf("UpsertBudget() error = %v", err)
	}

	overview, err := repo.ReadMonthOverview(ctx, tenant.ID, 2026, 8)
	if err != nil {
		t.Fatalf("ReadMonthOverview() error = %v", err)
	}
	if overview.TotalIn.Cents != 250000 {
		t.Errorf("TotalIn = %d, want 250000", overview.TotalIn.Cents)
	}
	if overview.TotalOut.Cents != -9800 {
		t.Errorf("TotalOut = %d, want -9800 (July rent must not leak in)", overview.TotalOut.Cents)
	}
	if overview.Net().Cents != 240200 {
		t.Errorf("Net = %d, want 240200", overview.Net().Cents)
	}
	if len(overview.Budgets) != 1 {
		t.Fatalf("budget variances = %d, want 1", len(overview.Budgets))
	}
	v := overview.Budgets[0]
	if v.Actual.Cents != 9800 || v.Variance.Cents != 5200 {
		t.Errorf("software variance = actual %d / variance %d, want 9800 / 5200", v.Actual.Cents, v.Variance.Cents)
	}

	// Soft-deleted rows drop out of the overview.
	list, err := repo.ListTransactions(ctx, tenant.ID, 2026, 8)
	if err != nil {
		t.Fatalf("ListTransactions() error = %v", err)
	}
	if len(list) != 3 {
		t.Fatalf("transactions = %d, want 3", len(list))
	}
	if err := repo.SoftDeleteTransaction(ctx, tenant.ID, list[0].ID); err != nil {
		t.Fatalf("SoftDeleteTransaction() error = %v", err)
	}
	list, err = repo.ListTransactions(ctx, tenant.ID, 2026, 8)
	if err != nil {
		t.Fatalf("ListTransactions() after delete error = %v", err)
	}
	if len(list) != 2 {
		t.Errorf("transactions after delete = %d, want 2", len(list))
	}
}

func TestInvoiceNumbering(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	alpha := seedTenant(t, repo, "Alpha Books")
	beta := seedTenant(t, repo, "Beta Retail")

	number, err := repo.NextInvoiceNumber(ctx, alpha.ID, 2026)
	if err != nil {
		t.Fatalf("NextInvoiceNumber() error = %v", err)
	}
	if number != "INV-2026-0001" {
		t.Errorf("first number = %q, want INV-2026-0001", number)
	}

	if _, err := repo.CreateInvoice(ctx, core.Invoice{
		TenantID:  alpha.ID,
		Number:    number,
		IssueDate: core.NewDate(2026, 8, 1),
		DueDate:   core.NewDate(2026, 8, 31),
		Amount:    core.Money{Cents: 50000},
		Status:    core.InvoiceDraft,
	}); err != nil {
		t.Fatalf("CreateInvoice() error = %v", err)
	}

	number, err = repo.NextInvoiceNumber(ctx, alpha.ID, 2026)
	if err != nil {
		t.Fatalf("NextInvoiceNumber() second call error = %v", err)
	}
	if number != "INV-2026-0002" {
		t.Errorf("second number = %q, want INV-2026-0002", number)
	}

	// Numbering is per tenant.
	number, err = repo.NextInvoiceNumber(ctx, beta.ID, 2026)
	if err != nil {
		t.Fatalf("NextInvoiceNumber(beta) error = %v", err)
	}
	if number != "INV-2026-0001" {
		t.Errorf("beta first number = %q, want INV-2026-0001", number)
	}
}

func TestLeadIntakeAndConversion(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	lead, err := repo.CreateLead(ctx, core.Lead{
		BusinessName: "Gamma Consulting",
		Email:        "owner@gamma.test",
		TierInterest: core.TierPremium,
		Source:       "website",
		Status:       core.LeadNew,
	}, "sub-001")
	if err != nil {
		t.Fatalf("CreateLead() error = %v", err)
	}

	// Webhook replays with the same submission ID are dropped.
	_, err = repo.CreateLead(ctx, core.Lead{
		BusinessName: "Gamma Consulting",
		Email:        "owner@gamma.test",
		Status:       core.LeadNew,
	}, "sub-001")
	if !errors.Is(err, ErrDuplicateSubmission) {
		t.Fatalf("CreateLead(replay) error = %v, want ErrDuplicateSubmission", err)
	}

	lead.Status = core.LeadQualified
	// Conversion requires a qualified lead; walk there via storage.
	if err := repo.UpdateLeadStatus(ctx, lead); err != nil {
		t.Fatalf("UpdateLeadStatus() error = %v", err)
	}

	tenant, err := repo.ConvertLead(ctx, lead, core.Tenant{
		Name:   "Gamma Consulting",
		Tier:   core.TierPremium,
		Active: true,
	}, []core.TaskTemplate{
		{Name: "Collect statements", Stage: core.StatusCollecting, SortOrder: 1},
	})
	if err != nil {
		t.Fatalf("ConvertLead() error = %v", err)
	}

	got, err := repo.GetLead(ctx, lead.ID)
	if err != nil {
		t.Fatalf("GetLead() error = %v", err)
	}
	if got.Status != core.LeadConverted {
		t.Errorf("lead status = %s, want converted", got.Status)
	}
	if got.TenantID == nil || *got.TenantID != tenant.ID {
		t.Errorf("lead tenant = %v, want %d", got.TenantID, tenant.ID)
	}

	templates, err := repo.ListTaskTemplates(ctx, tenant.ID)
	if err != nil {
		t.Fatalf("ListTaskTemplates() error = %v", err)
	}
	if len(templates) != 1 {
		t.Errorf("templates = %d, want 1", len(templates))
	}

	// Converting again must fail and leave no second tenant behind.
	before, err := repo.ListActiveTenants(ctx)
	if err != nil {
		t.Fatalf("ListActiveTenants() error = %v", err)
	}
	if _, err := repo.ConvertLead(ctx, got, core.Tenant{Name: "Gamma Again", Tier: core.TierBasic, Active: true}, nil); err == nil {
		t.Fatal("ConvertLead(converted lead) error = nil, want error")
	}
	after, err := repo.ListActiveTenants(ctx)
	if err != nil {
		t.Fatalf("ListActiveTenants() after error = %v", err)
	}
	if len(after) != len(before) {
		t.Errorf("tenant count changed %d -> %d, conversion must be atomic", len(before), len(after))
	}
}

func TestNotesRequireOwnedContact(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	alpha := seedTenant(t, repo, "Alpha Books")
	beta := seedTenant(t, repo, "Beta Retail")

	contactID, err := repo.CreateContact(ctx, core.Contact{TenantID: alpha.ID, Name: "Dana Owner"})
	if err != nil {
		t.Fatalf("CreateContact() error = %v", err)
	}

	if _, err := repo.CreateNote(ctx, beta.ID, core.Note{ContactID: contactID, Body: "should not land"}); !errors.Is(err, ErrNotFound) {
		t.Errorf("CreateNote(other tenant) error = %v, want ErrNotFound", err)
	}

	if _, err := repo.CreateNote(ctx, alpha.ID, core.Note{ContactID: contactID, Author: "staff", Body: "kickoff call done"}); err != nil {
		t.Fatalf("CreateNote() error = %v", err)
	}
	notes, err := repo.ListNotes(ctx, alpha.ID, contactID)
	if err != nil {
		t.Fatalf("ListNotes() error = %v", err)
	}
	if len(notes) != 1 || notes[0].Body != "kickoff call done" {
		t.Errorf("notes = %+v, want the one created note", notes)
	}
}
