package internal

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Stamper issues strictly increasing cache-buster values derived from the wall clock
// in milliseconds. A value that would not exceed the previous one is bumped to
// previous+1.
type Stamper struct {
	mu   sync.Mutex
	last int64
	now  func() time.Time
}

func NewStamper(now func() time.Time) *Stamper {
	if now == nil {
		now = time.Now
	}
	return &Stamper{now: now}
}

func (s *Stamper) Next() int64 {
	ms := s.now().UnixMilli()

	s.mu.Lock()
	defer s.mu.Unlock()
	if ms <= s.last {
		ms = s.last + 1
	}
	s.last = ms
	return ms
}

// NewRequestID returns a random request identifier.
func NewRequestID() string {
	return uuid.NewString()
}
