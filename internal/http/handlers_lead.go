package http

import (
	"errors"
	"net/http"

	"github.com/luke-anto/ledgerdesk/internal/core"
	"github.com/luke-anto/ledgerdesk/internal/storage"
)

func (s *Server) handleLeads(w http.ResponseWriter, r *http.Request) {
	status := core.LeadStatus(r.URL.Query().Get("status"))
	if status != "" && !status.Valid() {
		BadRequestError("unknown lead status").Write(w)
		return
	}
	leads, err := s.storage.ListLeads(r.Context(), status)
	if err != nil {
		s.logger.ErrorContext(r.Context(), "Lead list failed", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	s.render(w, r, "leads.html", map[string]any{
		"Leads":  leads,
		"Filter": string(status),
	})
}

func (s *Server) handleLeadTransition(w http.ResponseWriter, r *http.Request) {
	leadID, err := pathID(r, "leadID")
	if err != nil {
		BadRequestError("invalid lead id").Write(w)
		return
	}
	if err := r.ParseForm(); err != nil {
		BadRequestError("invalid form").Write(w)
		return
	}
	next := core.LeadStatus(r.Form.Get("status"))

	lead, err := s.intake.Transition(r.Context(), leadID, next)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		http.NotFound(w, r)
		return
	case errors.Is(err, core.ErrInvalidLeadStatus):
		ConflictError(err.Error()).Write(w)
		return
	case err != nil:
		s.logger.ErrorContext(r.Context(), "Lead transition failed", "lead_id", leadID, "error", err)
		InternalServerError("internal error").Write(w)
		return
	}
	NewHTMXResponse().
		TriggerLeadChanged().
		BodyHTML(SuccessSnippet("lead is now " + string(lead.Status))).
		Write(w)
}

func (s *Server) handleLeadConvert(w http.ResponseWriter, r *http.Request) {
	leadID, err := pathID(r, "leadID")
	if err != nil {
		BadRequestError("invalid lead id").Write(w)
		return
	}
	if err := r.ParseForm(); err != nil {
		BadRequestError("invalid form").Write(w)
		return
	}
	var rateCents int64
	if raw := r.Form.Get("billing_rate"); raw != "" {
		rateCents, err = core.ParseDecimalToCents(raw)
		if err != nil {
			UnprocessableEntityError("invalid billing rate").Write(w)
			return
		}
	}

	tenant, err := s.intake.Convert(r.Context(), leadID, rateCents)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		http.NotFound(w, r)
		return
	case errors.Is(err, core.ErrInvalidLeadStatus):
		ConflictError(err.Error()).Write(w)
		return
	case err != nil:
		s.logger.ErrorContext(r.Context(), "Lead convert failed", "lead_id", leadID, "error", err)
		InternalServerError("internal error").Write(w)
		return
	}
	s.logger.InfoContext(r.Context(), "Lead converted",
		"lead_id", leadID, "tenant_id", tenant.ID, "tenant", tenant.Name)
	NewHTMXResponse().
		TriggerLeadChanged().
		BodyHTML(SuccessSnippet("converted into tenant " + tenant.Name)).
		Write(w)
}
