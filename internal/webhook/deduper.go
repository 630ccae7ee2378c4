package webhook

import (
	"sync"
	"time"
)

// submissionDeduper drops webhook replays before they hit the queue. The
// database UNIQUE constraint on submission IDs is the real guarantee; this
// just keeps retried deliveries from producing noise.
type submissionDeduper struct {
	mu      sync.Mutex
	entries map[string]time.Time
	ttl     time.Duration
}

func newSubmissionDeduper(ttl time.Duration) *submissionDeduper {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &submissionDeduper{
		entries: make(map[string]time.Time),
		ttl:     ttl,
	}
}

// markIfNew returns true if the submission ID has not been seen recently.
// When it returns true, the ID is recorded with an expiry timestamp.
func (d *submissionDeduper) markIfNew(id string) bool {
	now := time.Now()

	d.mu.Lock()
	defer d.mu.Unlock()

	for key, expiry := range d.entries {
		if now.After(expiry) {
			delete(d.entries, key)
		}
	}

	if expiry, ok := d.entries[id]; ok && now.Before(expiry) {
		return false
	}

	d.entries[id] = now.Add(d.ttl)
	return true
}
