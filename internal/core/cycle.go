package core

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Service cycle statuses. A cycle moves through the stages in order and
// ends at delivered; paused is a side-state that remembers where it was.
const (
	StatusCollecting  CycleStatus = "collecting"
	StatusProcessing  CycleStatus = "processing"
	StatusReconciling CycleStatus = "reconciling"
	StatusReporting   CycleStatus = "reporting"
	StatusDelivered   CycleStatus = "delivered"
	StatusPaused      CycleStatus = "paused"
)

type (
	CycleStatus string

	// ServiceCycle is one month of bookkeeping work for a tenant.
	ServiceCycle struct {
		ID          int64
		TenantID    int64
		Year        int
		Month       int
		Status      CycleStatus
		PausedFrom  CycleStatus // set only while Status == paused
		DeliveredAt *time.Time
		CreatedAt   time.Time
	}

	// CycleTask is one checklist item on a cycle, tied to a stage.
	CycleTask struct {
		ID          int64
		CycleID     int64
		Name        string
		Stage       CycleStatus
		Done        bool
		CompletedAt *time.Time
		SortOrder   int
	}

	// TaskTemplate seeds a tenant's cycle checklist when a new cycle opens.
	TaskTemplate struct {
		ID        int64
		TenantID  int64
		Name      string
		Stage     CycleStatus
		SortOrder int
	}
)

var (
	ErrInvalidStatus      = errors.New("invalid cycle status")
	ErrCycleDelivered     = errors.New("cycle already delivered")
	ErrCycleNotPaused     = errors.New("cycle is not paused")
	ErrCycleAlreadyPaused = errors.New("cycle is already paused")
	ErrTasksOpen          = errors.New("open checklist tasks block this transition")
)

// stageOrder is the forward path of a cycle.
var stageOrder = []CycleStatus{
	StatusCollecting,
	StatusProcessing,
	StatusReconciling,
	StatusReporting,
	StatusDelivered,
}

func (s CycleStatus) Valid() bool {
	if s == StatusPaused {
		return true
	}
	return s.stageIndex() >= 0
}

// Stage reports whether the status is one of the ordered working stages
// (everything except paused).
func (s CycleStatus) Stage() bool {
	return s.stageIndex() >= 0
}

func (s CycleStatus) stageIndex() int {
	for i, st := range stageOrder {
		if st == s {
			return i
		}
	}
	return -1
}

// Next returns the stage that follows s in the forward order.
func (s CycleStatus) Next() (CycleStatus, error) {
	i := s.stageIndex()
	if i < 0 {
		return "", fmt.Errorf("%w: %q", ErrInvalidStatus, s)
	}
	if s == StatusDelivered {
		return "", ErrCycleDelivered
	}
	return stageOrder[i+1], nil
}

// Advance validates and applies the forward transition to next.
// Pause/resume go through Pause and Resume, never through Advance.
func (c *ServiceCycle) Advance(next CycleStatus) error {
	if c.Status == StatusPaused {
		return fmt.Errorf("%w: resume before advancing", ErrCycleAlreadyPaused)
	}
	want, err := c.Status.Next()
	if err != nil {
		return err
	}
	if next != want {
		return fmt.Errorf("%w: %s -> %s (expected %s)", ErrInvalidStatus, c.Status, next, want)
	}
	c.Status = next
	if next == StatusDelivered {
		now := time.Now().UTC()
		c.DeliveredAt = &now
	}
	return nil
}

// Pause moves the cycle to paused, remembering the current stage.
func (c *ServiceCycle) Pause() error {
	if c.Status == StatusPaused {
		return ErrCycleAlreadyPaused
	}
	if c.Status == StatusDelivered {
		return ErrCycleDelivered
	}
	c.PausedFrom = c.Status
	c.Status = StatusPaused
	return nil
}

// Resume returns a paused cycle to the stage it was paused from.
func (c *ServiceCycle) Resume() error {
	if c.Status != StatusPaused {
		return ErrCycleNotPaused
	}
	if !c.PausedFrom.Stage() {
		return fmt.Errorf("%w: paused cycle has no stage to resume to", ErrInvalidStatus)
	}
	c.Status = c.PausedFrom
	c.PausedFrom = ""
	return nil
}

func (c ServiceCycle) Validate() error {
	if !ValidMonth(c.Month) {
		return ErrInvalidMonth
	}
	if c.Year < 2000 || c.Year > 2200 {
		return errors.New("year out of range")
	}
	if !c.Status.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidStatus, c.Status)
	}
	if c.Status == StatusPaused && !c.PausedFrom.Stage() {
		return fmt.Errorf("%w: paused cycle must record its previous stage", ErrInvalidStatus)
	}
	return nil
}

func (t CycleTask) Validate() error {
	if strings.TrimSpace(t.Name) == "" {
		return ErrEmptyName
	}
	if !t.Stage.Stage() || t.Stage == StatusDelivered {
		return fmt.Errorf("%w: task stage %q", ErrInvalidStatus, t.Stage)
	}
	return nil
}

func (t TaskTemplate) Validate() error {
	if strings.TrimSpace(t.Name) == "" {
		return ErrEmptyName
	}
	if !t.Stage.Stage() || t.Stage == StatusDelivered {
		return fmt.Errorf("%w: template stage %q", ErrInvalidStatus, t.Stage)
	}
	return nil
}
