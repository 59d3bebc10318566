package history

import (
	"context"
	"sync"
	"time"
)

// MemoryStore keeps samples in process memory. It backs tests and hosts that
// do not want durable history.
type MemoryStore struct {
	mu      sync.Mutex
	samples []Sample
	now     func() time.Time
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{now: time.Now}
}

// SetNow overrides the clock used by the age filter. Intended for tests.
func (s *MemoryStore) SetNow(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

func (s *MemoryStore) Load(ctx context.Context) []Sample {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := trim(s.samples, s.now())
	cp := make([]Sample, len(out))
	copy(cp, out)
	return cp
}

func (s *MemoryStore) Record(ctx context.Context, sample Sample) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.samples = trim(append(s.samples, sample), s.now())
}

var _ Store = (*MemoryStore)(nil)
