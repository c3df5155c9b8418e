package runtime

import "sync"

// Tracker records which locations have an initialization in flight.
// TryBegin is the single mechanism preventing two initializations from
// racing for the same location: the check and the insert happen under one
// lock, so exactly one of N concurrent callers wins.
type Tracker struct {
	mu           sync.Mutex
	initializing map[string]struct{}
}

func NewTracker() *Tracker {
	return &Tracker{initializing: make(map[string]struct{})}
}

// TryBegin atomically checks for an existing marker and inserts one if
// absent. It returns false when an initialization is already underway;
// the caller must not start a duplicate.
func (t *Tracker) TryBegin(location string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, busy := t.initializing[location]; busy {
		return false
	}
	t.initializing[location] = struct{}{}
	return true
}

// End removes the marker. Idempotent: ending an absent marker is a no-op.
func (t *Tracker) End(location string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.initializing, location)
}

func (t *Tracker) Active(location string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, busy := t.initializing[location]
	return busy
}

func (t *Tracker) Count() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.initializing)
}
