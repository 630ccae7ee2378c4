package core

import (
	"errors"
	"testing"
)

func TestCycleStatus_Next(t *testing.T) {
	tests := []struct {
		from    CycleStatus
		want    CycleStatus
		wantErr error
	}{
		{StatusCollecting, StatusProcessing, nil},
		{StatusProcessing, StatusReconciling, nil},
		{StatusReconciling, StatusReporting, nil},
		{StatusReporting, StatusDelivered, nil},
		{StatusDelivered, "", ErrCycleDelivered},
		{StatusPaused, "", ErrInvalidStatus},
		{"bogus", "", ErrInvalidStatus},
	}

	for _, tt := range tests {
		t.Run(string(tt.from), func(t *testing.T) {
			got, err := tt.from.Next()
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("Next() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Next() unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("Next() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestServiceCycle_Advance(t *testing.T) {
	c := ServiceCycle{Status: StatusCollecting}

	if err := c.Advance(StatusReconciling); !errors.Is(err, ErrInvalidStatus) {
		t.Errorf("skipping a stage should fail, got %v", err)
	}
	if err := c.Advance(StatusProcessing); err != nil {
		t.Fatalf("Advance to processing: %v", err)
	}
	if c.Status != StatusProcessing {
		t.Errorf("status = %s, want processing", c.Status)
	}

	// Walk to delivered and check the timestamp.
	for _, next := range []CycleStatus{StatusReconciling, StatusReporting, StatusDelivered} {
		if err := c.Advance(next); err != nil {
			t.Fatalf("Advance to %s: %v", next, err)
		}
	}
	if c.DeliveredAt == nil {
		t.Error("DeliveredAt not stamped on delivery")
	}
	if err := c.Advance(StatusCollecting); !errors.Is(err, ErrCycleDelivered) {
		t.Errorf("advancing a delivered cycle should fail, got %v", err)
	}
}

func TestServiceCycle_PauseResume(t *testing.T) {
	c := ServiceCycle{Status: StatusReconciling}

	if err := c.Resume(); !errors.Is(err, ErrCycleNotPaused) {
		t.Errorf("resume of running cycle should fail, got %v", err)
	}

	if err := c.Pause(); err != nil {
		t.Fatalf("Pause: %v", err)
	}
	if c.Status != StatusPaused || c.PausedFrom != StatusReconciling {
		t.Errorf("after pause: status=%s pausedFrom=%s", c.Status, c.PausedFrom)
	}

	if err := c.Pause(); !errors.Is(err, ErrCycleAlreadyPaused) {
		t.Errorf("double pause should fail, got %v", err)
	}
	if err := c.Advance(StatusReporting); !errors.Is(err, ErrCycleAlreadyPaused) {
		t.Errorf("advancing while paused should fail, got %v", err)
	}

	if err := c.Resume(); err != nil {
		t.Fatalf("Resume: %v", err)
	}
	if c.Status != StatusReconciling || c.PausedFrom != "" {
		t.Errorf("after resume: status=%s pausedFrom=%q", c.Status, c.PausedFrom)
	}

	delivered := ServiceCycle{Status: StatusDelivered}
	if err := delivered.Pause(); !errors.Is(err, ErrCycleDelivered) {
		t.Errorf("pausing a delivered cycle should fail, got %v", err)
	}
}

func TestServiceCycle_Validate(t *testing.T) {
	tests := []struct {
		name    string
		cycle   ServiceCycle
		wantErr bool
	}{
		{"valid", ServiceCycle{Year: 2026, Month: 8, Status: StatusCollecting}, false},
		{"paused with stage", ServiceCycle{Year: 2026, Month: 8, Status: StatusPaused, PausedFrom: StatusProcessing}, false},
		{"paused without stage", ServiceCycle{Year: 2026, Month: 8, Status: StatusPaused}, true},
		{"bad month", ServiceCycle{Year: 2026, Month: 13, Status: StatusCollecting}, true},
		{"bad status", ServiceCycle{Year: 2026, Month: 8, Status: "archived"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cycle.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestCycleTask_Validate(t *testing.T) {
	if err := (CycleTask{Name: "Reconcile bank feed", Stage: StatusReconciling}).Validate(); err != nil {
		t.Errorf("valid task rejected: %v", err)
	}
	if err := (CycleTask{Name: "", Stage: StatusCollecting}).Validate(); !errors.Is(err, ErrEmptyName) {
		t.Errorf("empty name should fail, got %v", err)
	}
	if err := (CycleTask{Name: "x", Stage: StatusDelivered}).Validate(); err == nil {
		t.Error("delivered is not a task stage")
	}
	if err := (CycleTask{Name: "x", Stage: StatusPaused}).Validate(); err == nil {
		t.Error("paused is not a task stage")
	}
}
