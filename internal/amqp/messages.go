package amqp

import (
	"encoding/json"
	"time"
)

// IntakeSubmissionMessage carries one verified webhook submission from the
// intake endpoint to the worker that records the lead. The full form payload
// rides along so the worker needs no callback to the sender.
type IntakeSubmissionMessage struct {
	SubmissionID string    `json:"submission_id"`
	BusinessName string    `json:"business_name"`
	ContactName  string    `json:"contact_name,omitempty"`
	Email        string    `json:"email"`
	Phone        string    `json:"phone,omitempty"`
	Message      string    `json:"message,omitempty"`
	TierInterest string    `json:"tier_interest,omitempty"`
	Source       string    `json:"source,omitempty"`
	ReceivedAt   time.Time `json:"received_at"`
}

func (m *IntakeSubmissionMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func IntakeSubmissionMessageFromJSON(data []byte) (*IntakeSubmissionMessage, error) {
	var msg IntakeSubmissionMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

// ReportSyncMessage points the sync worker at a delivered-cycle report.
// Only the ID travels; the worker reads the current row from the database.
type ReportSyncMessage struct {
	ReportID  int64     `json:"report_id"`
	Timestamp time.Time `json:"timestamp"`
}

func NewReportSyncMessage(reportID int64) *ReportSyncMessage {
	return &ReportSyncMessage{ReportID: reportID, Timestamp: time.Now()}
}

func (m *ReportSyncMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func ReportSyncMessageFromJSON(data []byte) (*ReportSyncMessage, error) {
	var msg ReportSyncMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
