package storefront

import (
	"strings"
	"sync"
	"time"

	"github.com/angelmondragon/asala-storefront/internal/orders"
	"github.com/angelmondragon/asala-storefront/pkg/metrics"
	"github.com/google/uuid"
)

// Registry maps session ids to in-memory sessions. Nothing survives a restart.
type Registry struct {
	composer orders.Composer
	sender   orders.Sender
	metrics  *metrics.OrderMetrics
	now      func() time.Time

	mu       sync.Mutex
	sessions map[string]*Session
}

// RegistryOption configures a Registry.
type RegistryOption func(*Registry)

// WithClock overrides time.Now, for tests.
func WithClock(now func() time.Time) RegistryOption {
	return func(r *Registry) {
		if now != nil {
			r.now = now
		}
	}
}

// WithSessionMetrics publishes the session count gauge.
func WithSessionMetrics(m *metrics.OrderMetrics) RegistryOption {
	return func(r *Registry) {
		r.metrics = m
	}
}

func NewRegistry(composer orders.Composer, sender orders.Sender, opts ...RegistryOption) *Registry {
	r := &Registry{
		composer: composer,
		sender:   sender,
		now:      time.Now,
		sessions: make(map[string]*Session),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}
	return r
}

// GetOrCreate returns the session for id, creating one when id is blank or
// unknown. The second result reports whether a new session was created.
func (r *Registry) GetOrCreate(id string) (*Session, bool) {
	id = strings.TrimSpace(id)
	now := r.now()

	r.mu.Lock()
	if s, ok := r.sessions[id]; ok && id != "" {
		r.mu.Unlock()
		s.touch(now)
		return s, false
	}
	if id == "" {
		id = uuid.NewString()
	}
	s := NewSession(id, r.composer, r.sender)
	s.touch(now)
	r.sessions[id] = s
	n := len(r.sessions)
	r.mu.Unlock()

	r.metrics.SetSessions(n)
	return s, true
}

// Get returns an existing session and marks it active.
func (r *Registry) Get(id string) (*Session, bool) {
	r.mu.Lock()
	s, ok := r.sessions[id]
	r.mu.Unlock()
	if ok {
		s.touch(r.now())
	}
	return s, ok
}

// Sweep evicts sessions idle for longer than idle. Sessions with a submission
// in flight are kept. It returns the number evicted.
func (r *Registry) Sweep(idle time.Duration) int {
	cutoff := r.now().Add(-idle)

	r.mu.Lock()
	evicted := 0
	for id, s := range r.sessions {
		if !s.idleSince().Before(cutoff) || s.busy() {
			continue
		}
		delete(r.sessions, id)
		evicted++
	}
	n := len(r.sessions)
	r.mu.Unlock()

	r.metrics.SetSessions(n)
	return evicted
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}
