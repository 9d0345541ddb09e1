package deepsight

import (
	"sync"
	"time"
)

// DefaultLockTTL is how long a stored analysis result stays valid.
const DefaultLockTTL = 30 * time.Second

// ResultLock holds the most recent deep-analysis result for a bounded time.
// While unexpired, its text overrides the state-derived default notification
// text. Reads after expiry return nothing; expiry is checked lazily.
type ResultLock struct {
	mu        sync.Mutex
	text      string
	data      *Analysis
	expiresAt time.Time
}

// NewResultLock creates an empty lock.
func NewResultLock() *ResultLock { return &ResultLock{} }

// Set stores a result valid for ttl from now. Non-positive ttl uses the
// default.
func (r *ResultLock) Set(text string, data *Analysis, ttl time.Duration, now time.Time) {
	if ttl <= 0 {
		ttl = DefaultLockTTL
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.text = text
	r.data = data
	r.expiresAt = now.Add(ttl)
}

// Text returns the stored text while unexpired.
func (r *ResultLock) Text(now time.Time) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.validLocked(now) {
		return "", false
	}
	return r.text, true
}

// Data returns the stored analysis while unexpired.
func (r *ResultLock) Data(now time.Time) (*Analysis, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.validLocked(now) {
		return nil, false
	}
	return r.data, true
}

func (r *ResultLock) validLocked(now time.Time) bool {
	return !r.expiresAt.IsZero() && now.Before(r.expiresAt)
}
