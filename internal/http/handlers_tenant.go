package http

import (
	"errors"
	"net/http"

	"github.com/luke-anto/ledgerdesk/internal/core"
	"github.com/luke-anto/ledgerdesk/internal/storage"
)

// handleCreateTenant onboards a tenant directly, outside the lead pipeline.
// Admin only; converted leads go through the intake service instead.
func (s *Server) handleCreateTenant(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		BadRequestError("invalid form").Write(w)
		return
	}
	tier := core.ServiceTier(r.Form.Get("tier"))
	if tier == "" {
		tier = core.TierBasic
	}
	var rateCents int64
	if raw := r.Form.Get("billing_rate"); raw != "" {
		var err error
		rateCents, err = core.ParseDecimalToCents(raw)
		if err != nil {
			UnprocessableEntityError("invalid billing rate").Write(w)
			return
		}
	}

	tenant := core.Tenant{
		Name:             sanitizeInput(r.Form.Get("name")),
		LegalName:        sanitizeInput(r.Form.Get("legal_name")),
		ContactEmail:     sanitizeInput(r.Form.Get("contact_email")),
		BillingRateCents: rateCents,
		Tier:             tier,
		Active:           true,
	}
	if err := tenant.Validate(); err != nil {
		UnprocessableEntityError(err.Error()).Write(w)
		return
	}

	created, err := s.storage.CreateTenant(r.Context(), tenant)
	if err != nil {
		s.logger.ErrorContext(r.Context(), "Tenant create failed", "error", err)
		InternalServerError("could not create tenant").Write(w)
		return
	}
	s.logger.InfoContext(r.Context(), "Tenant created",
		"tenant_id", created.ID, "public_id", created.PublicID, "tier", created.Tier)
	NewHTMXResponse().
		TriggerFormReset().
		BodyHTML(SuccessSnippet("tenant " + created.Name + " created")).
		Write(w)
}

// handleUpdateTenant rewrites tenant settings, including the active flag.
// Admin only. Deactivation takes the tenant out of cycle opening but keeps
// every row.
func (s *Server) handleUpdateTenant(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "tenantID")
	if err != nil {
		BadRequestError("invalid tenant id").Write(w)
		return
	}
	if err := r.ParseForm(); err != nil {
		BadRequestError("invalid form").Write(w)
		return
	}

	tenant, err := s.storage.GetTenant(r.Context(), id)
	if errors.Is(err, storage.ErrNotFound) {
		http.NotFound(w, r)
		return
	}
	if err != nil {
		s.logger.ErrorContext(r.Context(), "Tenant load failed", "tenant_id", id, "error", err)
		InternalServerError("internal error").Write(w)
		return
	}

	tenant.Name = sanitizeInput(r.Form.Get("name"))
	tenant.LegalName = sanitizeInput(r.Form.Get("legal_name"))
	tenant.ContactEmail = sanitizeInput(r.Form.Get("contact_email"))
	if raw := r.Form.Get("billing_rate"); raw != "" {
		cents, err := core.ParseDecimalToCents(raw)
		if err != nil {
			UnprocessableEntityError("invalid billing rate").Write(w)
			return
		}
		tenant.BillingRateCents = cents
	}
	if tier := core.ServiceTier(r.Form.Get("tier")); tier != "" {
		tenant.Tier = tier
	}
	active := r.Form.Get("active")
	tenant.Active = active == "true" || active == "on"

	if err := tenant.Validate(); err != nil {
		UnprocessableEntityError(err.Error()).Write(w)
		return
	}
	if err := s.storage.UpdateTenant(r.Context(), tenant); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			http.NotFound(w, r)
			return
		}
		s.logger.ErrorContext(r.Context(), "Tenant update failed", "tenant_id", id, "error", err)
		InternalServerError("could not update tenant").Write(w)
		return
	}
	s.logger.InfoContext(r.Context(), "Tenant updated",
		"tenant_id", id, "active", tenant.Active, "tier", tenant.Tier)
	NewHTMXResponse().
		BodyHTML(SuccessSnippet("tenant " + tenant.Name + " updated")).
		Write(w)
}

func (s *Server) handleCreateTemplate(w http.ResponseWriter, r *http.Request) {
	id := tenantID(r)
	if err := r.ParseForm(); err != nil {
		BadRequestError("invalid form").Write(w)
		return
	}
	stage := core.CycleStatus(r.Form.Get("stage"))
	if !stage.Stage() || stage == core.StatusDelivered {
		UnprocessableEntityError("stage must be one of the working stages").Write(w)
		return
	}
	sortOrder := 0
	if v, ok := formInt(r, "sort_order"); ok {
		sortOrder = v
	}

	tpl := core.TaskTemplate{
		TenantID:  id,
		Name:      sanitizeInput(r.Form.Get("name")),
		Stage:     stage,
		SortOrder: sortOrder,
	}
	if tpl.Name == "" {
		UnprocessableEntityError("template name is required").Write(w)
		return
	}

	tplID, err := s.storage.CreateTaskTemplate(r.Context(), tpl)
	if err != nil {
		s.logger.ErrorContext(r.Context(), "Template create failed", "tenant_id", id, "error", err)
		InternalServerError("could not save template").Write(w)
		return
	}
	s.logger.InfoContext(r.Context(), "Task template created",
		"tenant_id", id, "template_id", tplID, "stage", stage)
	NewHTMXResponse().
		TriggerFormReset().
		BodyHTML(SuccessSnippet("template saved")).
		Write(w)
}

func (s *Server) handleDeleteTemplate(w http.ResponseWriter, r *http.Request) {
	id := tenantID(r)
	templateID, err := pathID(r, "templateID")
	if err != nil {
		BadRequestError("invalid template id").Write(w)
		return
	}
	if err := s.storage.DeleteTaskTemplate(r.Context(), id, templateID); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			http.NotFound(w, r)
			return
		}
		s.logger.ErrorContext(r.Context(), "Template delete failed", "template_id", templateID, "error", err)
		InternalServerError("internal error").Write(w)
		return
	}
	NewHTMXResponse().Write(w)
}
