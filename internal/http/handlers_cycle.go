package http

import (
	"context"
	"errors"
	"net/http"

	"github.com/luke-anto/ledgerdesk/internal/core"
	"github.com/luke-anto/ledgerdesk/internal/services"
	"github.com/luke-anto/ledgerdesk/internal/storage"
)

func (s *Server) handleListCycles(w http.ResponseWriter, r *http.Request) {
	id := tenantID(r)
	cycles, err := s.storage.ListCycles(r.Context(), id, 24)
	if err != nil {
		s.logger.ErrorContext(r.Context(), "Cycle list failed", "tenant_id", id, "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	s.render(w, r, "cycles.html", map[string]any{
		"TenantID": id,
		"Cycles":   cycles,
	})
}

func (s *Server) handleCycleDetail(w http.ResponseWriter, r *http.Request) {
	id := tenantID(r)
	cycleID, err := pathID(r, "cycleID")
	if err != nil {
		BadRequestError("invalid cycle id").Write(w)
		return
	}
	cycle, err := s.storage.GetCycle(r.Context(), id, cycleID)
	if errors.Is(err, storage.ErrNotFound) {
		http.NotFound(w, r)
		return
	}
	if err != nil {
		s.logger.ErrorContext(r.Context(), "Cycle load failed", "cycle_id", cycleID, "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	tasks, err := s.storage.ListCycleTasks(r.Context(), id, cycleID)
	if err != nil {
		s.logger.ErrorContext(r.Context(), "Task list failed", "cycle_id", cycleID, "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	s.render(w, r, "cycle_detail.html", map[string]any{
		"TenantID": id,
		"Cycle":    cycle,
		"Tasks":    tasks,
		"NextStatus": func() core.CycleStatus {
			next, err := cycle.Status.Next()
			if err != nil {
				return ""
			}
			return next
		}(),
	})
}

func (s *Server) handleCycleAdvance(w http.ResponseWriter, r *http.Request) {
	id := tenantID(r)
	cycleID, err := pathID(r, "cycleID")
	if err != nil {
		BadRequestError("invalid cycle id").Write(w)
		return
	}
	if err := r.ParseForm(); err != nil {
		BadRequestError("invalid form").Write(w)
		return
	}
	next := core.CycleStatus(r.Form.Get("status"))

	cycle, err := s.cycles.Advance(r.Context(), id, cycleID, next)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		http.NotFound(w, r)
		return
	case services.IsBlockedByTasks(err):
		ConflictError(err.Error()).Write(w)
		return
	case errors.Is(err, core.ErrInvalidStatus), errors.Is(err, core.ErrCycleDelivered):
		ConflictError(err.Error()).Write(w)
		return
	case err != nil:
		s.logger.ErrorContext(r.Context(), "Cycle advance failed", "cycle_id", cycleID, "error", err)
		InternalServerError("internal error").Write(w)
		return
	}

	s.logger.InfoContext(r.Context(), "Cycle advanced",
		"tenant_id", id, "cycle_id", cycleID, "status", cycle.Status)
	NewHTMXResponse().
		TriggerCycleChanged(cycleID).
		BodyHTML(SuccessSnippet("cycle moved to "+string(cycle.Status))).
		Write(w)
}

func (s *Server) handleCyclePause(w http.ResponseWriter, r *http.Request) {
	s.cyclePauseResume(w, r, s.cycles.Pause, "paused")
}

func (s *Server) handleCycleResume(w http.ResponseWriter, r *http.Request) {
	s.cyclePauseResume(w, r, s.cycles.Resume, "resumed")
}

func (s *Server) cyclePauseResume(
	w http.ResponseWriter,
	r *http.Request,
	op func(ctx context.Context, tenantID, cycleID int64) (core.ServiceCycle, error),
	verb string,
) {
	id := tenantID(r)
	cycleID, err := pathID(r, "cycleID")
	if err != nil {
		BadRequestError("invalid cycle id").Write(w)
		return
	}
	cycle, err := op(r.Context(), id, cycleID)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		http.NotFound(w, r)
		return
	case errors.Is(err, core.ErrCycleAlreadyPaused),
		errors.Is(err, core.ErrCycleNotPaused),
		errors.Is(err, core.ErrCycleDelivered):
		ConflictError(err.Error()).Write(w)
		return
	case err != nil:
		s.logger.ErrorContext(r.Context(), "Cycle pause/resume failed", "cycle_id", cycleID, "error", err)
		InternalServerError("internal error").Write(w)
		return
	}
	NewHTMXResponse().
		TriggerCycleChanged(cycleID).
		BodyHTML(SuccessSnippet("cycle "+verb+", now "+string(cycle.Status))).
		Write(w)
}

func (s *Server) handleTaskToggle(w http.ResponseWriter, r *http.Request) {
	id := tenantID(r)
	taskID, err := pathID(r, "taskID")
	if err != nil {
		BadRequestError("invalid task id").Write(w)
		return
	}
	if err := r.ParseForm(); err != nil {
		BadRequestError("invalid form").Write(w)
		return
	}
	done := r.Form.Get("done") == "true" || r.Form.Get("done") == "on"

	if err := s.cycles.SetTaskDone(r.Context(), id, taskID, done); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			http.NotFound(w, r)
			return
		}
		s.logger.ErrorContext(r.Context(), "Task toggle failed", "task_id", taskID, "error", err)
		InternalServerError("internal error").Write(w)
		return
	}
	NewHTMXResponse().Write(w)
}
