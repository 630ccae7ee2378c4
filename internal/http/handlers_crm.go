package http

import (
	"errors"
	"net/http"

	"github.com/luke-anto/ledgerdesk/internal/auth"
	"github.com/luke-anto/ledgerdesk/internal/core"
	"github.com/luke-anto/ledgerdesk/internal/storage"
)

func (s *Server) handleListContacts(w http.ResponseWriter, r *http.Request) {
	id := tenantID(r)
	contacts, err := s.storage.ListContacts(r.Context(), id)
	if err != nil {
		s.logger.ErrorContext(r.Context(), "Contact list failed", "tenant_id", id, "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	s.render(w, r, "contacts.html", map[string]any{
		"TenantID": id,
		"Contacts": contacts,
	})
}

func (s *Server) handleCreateContact(w http.ResponseWriter, r *http.Request) {
	id := tenantID(r)
	contact, ok := s.contactFromForm(w, r, id)
	if !ok {
		return
	}
	contactID, err := s.storage.CreateContact(r.Context(), contact)
	if err != nil {
		s.logger.ErrorContext(r.Context(), "Contact create failed", "tenant_id", id, "error", err)
		InternalServerError("could not save contact").Write(w)
		return
	}
	s.logger.InfoContext(r.Context(), "Contact created", "tenant_id", id, "contact_id", contactID)
	NewHTMXResponse().
		TriggerFormReset().
		BodyHTML(SuccessSnippet("contact saved")).
		Write(w)
}

func (s *Server) handleUpdateContact(w http.ResponseWriter, r *http.Request) {
	id := tenantID(r)
	contactID, err := pathID(r, "contactID")
	if err != nil {
		BadRequestError("invalid contact id").Write(w)
		return
	}
	contact, ok := s.contactFromForm(w, r, id)
	if !ok {
		return
	}
	contact.ID = contactID
	if err := s.storage.UpdateContact(r.Context(), id, contact); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			http.NotFound(w, r)
			return
		}
		s.logger.ErrorContext(r.Context(), "Contact update failed", "contact_id", contactID, "error", err)
		InternalServerError("internal error").Write(w)
		return
	}
	NewHTMXResponse().BodyHTML(SuccessSnippet("contact updated")).Write(w)
}

func (s *Server) handleDeleteContact(w http.ResponseWriter, r *http.Request) {
	id := tenantID(r)
	contactID, err := pathID(r, "contactID")
	if err != nil {
		BadRequestError("invalid contact id").Write(w)
		return
	}
	if err := s.storage.DeleteContact(r.Context(), id, contactID); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			http.NotFound(w, r)
			return
		}
		s.logger.ErrorContext(r.Context(), "Contact delete failed", "contact_id", contactID, "error", err)
		InternalServerError("internal error").Write(w)
		return
	}
	NewHTMXResponse().Write(w)
}

func (s *Server) handleCreateNote(w http.ResponseWriter, r *http.Request) {
	id := tenantID(r)
	contactID, err := pathID(r, "contactID")
	if err != nil {
		BadRequestError("invalid contact id").Write(w)
		return
	}
	if err := r.ParseForm(); err != nil {
		BadRequestError("invalid form").Write(w)
		return
	}

	author := "staff"
	if claims, ok := auth.ClaimsFromContext(r.Context()); ok {
		if user, err := s.storage.GetUser(r.Context(), claims.UserID); err == nil {
			author = user.Name
		}
	}
	note := core.Note{
		ContactID: contactID,
		Author:    author,
		Body:      sanitizeInput(r.Form.Get("body")),
	}
	if err := note.Validate(); err != nil {
		UnprocessableEntityError(err.Error()).Write(w)
		return
	}

	noteID, err := s.storage.CreateNote(r.Context(), id, note)
	if errors.Is(err, storage.ErrNotFound) {
		// Contact belongs to another tenant or does not exist.
		http.NotFound(w, r)
		return
	}
	if err != nil {
		s.logger.ErrorContext(r.Context(), "Note create failed", "contact_id", contactID, "error", err)
		InternalServerError("could not save note").Write(w)
		return
	}
	s.logger.InfoContext(r.Context(), "Note created", "tenant_id", id, "note_id", noteID)
	NewHTMXResponse().
		TriggerFormReset().
		BodyHTML(SuccessSnippet("note added")).
		Write(w)
}

func (s *Server) contactFromForm(w http.ResponseWriter, r *http.Request, tenantID int64) (core.Contact, bool) {
	if err := r.ParseForm(); err != nil {
		BadRequestError("invalid form").Write(w)
		return core.Contact{}, false
	}
	contact := core.Contact{
		TenantID:  tenantID,
		Name:      sanitizeInput(r.Form.Get("name")),
		Email:     sanitizeInput(r.Form.Get("email")),
		Phone:     sanitizeInput(r.Form.Get("phone")),
		RoleLabel: sanitizeInput(r.Form.Get("role_label")),
	}
	if err := contact.Validate(); err != nil {
		UnprocessableEntityError(err.Error()).Write(w)
		return core.Contact{}, false
	}
	return contact, true
}
