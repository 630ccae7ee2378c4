// Package webhook receives intake form submissions from the public site,
// verifies them, and hands them to the lead pipeline.
package webhook

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/luke-anto/ledgerdesk/internal/amqp"
	ldlog "github.com/luke-anto/ledgerdesk/internal/log"
)

// maxBodySize bounds the accepted payload. Intake forms are small; anything
// bigger is not a form submission.
const maxBodySize = 64 * 1024

// Publisher queues verified submissions for the intake worker.
type Publisher interface {
	PublishIntakeSubmission(ctx context.Context, msg *amqp.IntakeSubmissionMessage) error
}

// Recorder writes a lead directly, used when no broker is configured or a
// publish fails.
type Recorder interface {
	RecordSubmission(ctx context.Context, msg *amqp.IntakeSubmissionMessage) error
}

// submission is the wire format the public site posts.
type submission struct {
	SubmissionID string `json:"submission_id"`
	BusinessName string `json:"business_name"`
	ContactName  string `json:"contact_name"`
	Email        string `json:"email"`
	Phone        string `json:"phone"`
	Message      string `json:"message"`
	TierInterest string `json:"tier_interest"`
	Source       string `json:"source"`
}

type Handler struct {
	secret    string
	publisher Publisher
	recorder  Recorder
	deduper   *submissionDeduper
	logger    *ldlog.Logger
}

// NewHandler wires the intake endpoint. publisher may be nil; submissions
// then go straight to the recorder.
func NewHandler(secret string, publisher Publisher, recorder Recorder, logger *ldlog.Logger) *Handler {
	return &Handler{
		secret:    secret,
		publisher: publisher,
		recorder:  recorder,
		deduper:   newSubmissionDeduper(time.Hour),
		logger:    logger.WithComponent(ldlog.ComponentIntake),
	}
}

// ServeHTTP handles POST /webhooks/intake.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	signature := r.Header.Get(SignatureHeader)
	if err := ValidateSignatureHeader(signature); err != nil {
		h.logger.Warn("Rejected intake request", "reason", err.Error())
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodySize))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			http.Error(w, "payload too large", http.StatusRequestEntityTooLarge)
			return
		}
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}

	// Verify before parsing; unsigned bodies never reach the decoder.
	if !VerifySignature(body, signature, h.secret) {
		h.logger.Warn("Rejected intake request", "reason", "bad signature")
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	var sub submission
	if err := json.Unmarshal(body, &sub); err != nil {
		http.Error(w, "malformed payload", http.StatusBadRequest)
		return
	}
	if sub.SubmissionID == "" || sub.BusinessName == "" || sub.Email == "" {
		http.Error(w, "missing required fields", http.StatusBadRequest)
		return
	}

	// Replays are acknowledged so the sender stops retrying.
	if !h.deduper.markIfNew(sub.SubmissionID) {
		h.logger.Info("Dropped duplicate submission", "submission_id", sub.SubmissionID)
		w.WriteHeader(http.StatusAccepted)
		return
	}

	msg := &amqp.IntakeSubmissionMessage{
		SubmissionID: sub.SubmissionID,
		BusinessName: sub.BusinessName,
		ContactName:  sub.ContactName,
		Email:        sub.Email,
		Phone:        sub.Phone,
		Message:      sub.Message,
		TierInterest: sub.TierInterest,
		Source:       sub.Source,
		ReceivedAt:   time.Now().UTC(),
	}

	if err := h.dispatch(r.Context(), msg); err != nil {
		h.logger.Error("Failed to dispatch submission",
			"submission_id", sub.SubmissionID, "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusAccepted)
}

func (h *Handler) dispatch(ctx context.Context, msg *amqp.IntakeSubmissionMessage) error {
	if h.publisher != nil {
		err := h.publisher.PublishIntakeSubmission(ctx, msg)
		if err == nil {
			return nil
		}
		h.logger.Warn("Publish failed, recording submission directly",
			"submission_id", msg.SubmissionID, "error", err)
	}
	return h.recorder.RecordSubmission(ctx, msg)
}
