package webhook

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/luke-anto/ledgerdesk/internal/amqp"
	ldlog "github.com/luke-anto/ledgerdesk/internal/log"
)

const testSecret = "intake-webhook-secret"

type fakePublisher struct {
	published []*amqp.IntakeSubmissionMessage
	err       error
}

func (p *fakePublisher) PublishIntakeSubmission(_ context.Context, msg *amqp.IntakeSubmissionMessage) error {
	if p.err != nil {
		return p.err
	}
	p.published = append(p.published, msg)
	return nil
}

type fakeRecorder struct {
	recorded []*amqp.IntakeSubmissionMessage
	err      error
}

func (r *fakeRecorder) RecordSubmission(_ context.Context, msg *amqp.IntakeSubmissionMessage) error {
	if r.err != nil {
		return r.err
	}
	r.recorded = append(r.recorded, msg)
	return nil
}

func testLogger() *ldlog.Logger {
	return ldlog.New(ldlog.Config{Level: slog.LevelError, Component: "test"})
}

func validBody(submissionID string) []byte {
	return []byte(fmt.Sprintf(
		`{"submission_id":%q,"business_name":"Gamma Consulting","email":"owner@gamma.test","tier_interest":"premium","source":"website"}`,
		submissionID))
}

func post(h *Handler, body []byte, signature string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/webhooks/intake", bytes.NewReader(body))
	if signature != "" {
		req.Header.Set(SignatureHeader, signature)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHandlerVerification(t *testing.T) {
	body := validBody("sub-1")

	tests := []struct {
		name       string
		body       []byte
		signature  string
		wantStatus int
	}{
		{"valid signature", body, Sign(body, testSecret), http.StatusAccepted},
		{"missing header", body, "", http.StatusUnauthorized},
		{"malformed header", body, "md5=abc", http.StatusUnauthorized},
		{"wrong secret", body, Sign(body, "other-secret"), http.StatusUnauthorized},
		{"tampered body", append(body, ' '), Sign(body, testSecret), http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pub := &fakePublisher{}
			h := NewHandler(testSecret, pub, &fakeRecorder{}, testLogger())
			rec := post(h, tt.body, tt.signature)
			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			published := len(pub.published)
			if tt.wantStatus == http.StatusAccepted && published != 1 {
				t.Errorf("published = %d, want 1", published)
			}
			if tt.wantStatus != http.StatusAccepted && published != 0 {
				t.Errorf("published = %d, want 0 for rejected request", published)
			}
		})
	}
}

func TestHandlerEmptySecretNeverVerifies(t *testing.T) {
	body := validBody("sub-forged")
	pub := &fakePublisher{}
	h := NewHandler("", pub, &fakeRecorder{}, testLogger())

	// Signing with the empty key must not grant access when the handler
	// was built without a secret.
	rec := post(h, body, Sign(body, ""))
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusUnauthorized)
	}
	if len(pub.published) != 0 {
		t.Errorf("published = %d, want 0", len(pub.published))
	}
}

func TestHandlerRejectsOversizedBody(t *testing.T) {
	big := bytes.Repeat([]byte("a"), maxBodySize+1)
	h := NewHandler(testSecret, &fakePublisher{}, &fakeRecorder{}, testLogger())

	rec := post(h, big, Sign(big, testSecret))
	if rec.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusRequestEntityTooLarge)
	}
}

func TestHandlerRejectsBadPayload(t *testing.T) {
	tests := []struct {
		name string
		body []byte
	}{
		{"not json", []byte("not json at all")},
		{"missing submission id", []byte(`{"business_name":"X","email":"x@y.test"}`)},
		{"missing email", []byte(`{"submission_id":"s1","business_name":"X"}`)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewHandler(testSecret, &fakePublisher{}, &fakeRecorder{}, testLogger())
			rec := post(h, tt.body, Sign(tt.body, testSecret))
			if rec.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want %d", rec.Code, http.StatusBadRequest)
			}
		})
	}
}

func TestHandlerDropsReplays(t *testing.T) {
	pub := &fakePublisher{}
	h := NewHandler(testSecret, pub, &fakeRecorder{}, testLogger())
	body := validBody("sub-replay")
	sig := Sign(body, testSecret)

	for i := 0; i < 3; i++ {
		if rec := post(h, body, sig); rec.Code != http.StatusAccepted {
			t.Fatalf("delivery %d status = %d, want %d", i, rec.Code, http.StatusAccepted)
		}
	}
	if len(pub.published) != 1 {
		t.Errorf("published = %d, want 1 (replays must be dropped)", len(pub.published))
	}
}

func TestHandlerFallsBackToRecorder(t *testing.T) {
	t.Run("publisher error", func(t *testing.T) {
		rec := &fakeRecorder{}
		h := NewHandler(testSecret, &fakePublisher{err: errors.New("broker down")}, rec, testLogger())
		body := validBody("sub-fallback")

		resp := post(h, body, Sign(body, testSecret))
		if resp.Code != http.StatusAccepted {
			t.Errorf("status = %d, want %d", resp.Code, http.StatusAccepted)
		}
		if len(rec.recorded) != 1 {
			t.Fatalf("recorded = %d, want 1", len(rec.recorded))
		}
		if rec.recorded[0].SubmissionID != "sub-fallback" {
			t.Errorf("SubmissionID = %q, want sub-fallback", rec.recorded[0].SubmissionID)
		}
	})

	t.Run("no publisher configured", func(t *testing.T) {
		rec := &fakeRecorder{}
		h := NewHandler(testSecret, nil, rec, testLogger())
		body := validBody("sub-direct")

		resp := post(h, body, Sign(body, testSecret))
		if resp.Code != http.StatusAccepted {
			t.Errorf("status = %d, want %d", resp.Code, http.StatusAccepted)
		}
		if len(rec.recorded) != 1 {
			t.Errorf("recorded = %d, want 1", len(rec.recorded))
		}
	})

	t.Run("both paths fail", func(t *testing.T) {
		h := NewHandler(testSecret,
			&fakePublisher{err: errors.New("broker down")},
			&fakeRecorder{err: errors.New("db down")}, testLogger())
		body := validBody("sub-doomed")

		resp := post(h, body, Sign(body, testSecret))
		if resp.Code != http.StatusInternalServerError {
			t.Errorf("status = %d, want %d", resp.Code, http.StatusInternalServerError)
		}
	})
}

func TestDeduperExpiry(t *testing.T) {
	d := newSubmissionDeduper(10 * time.Millisecond)
	if !d.markIfNew("a") {
		t.Fatal("first sighting should be new")
	}
	if d.markIfNew("a") {
		t.Fatal("second sighting should be a duplicate")
	}
	time.Sleep(20 * time.Millisecond)
	if !d.markIfNew("a") {
		t.Error("expired entry should read as new again")
	}
}
