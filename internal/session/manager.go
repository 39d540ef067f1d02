package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"qna-agents/internal/inference"
)

// DefaultParagraph and DefaultQuestion seed new sessions.
const (
	DefaultParagraph = "Google LLC is an American multinational technology company that specializes in Internet-related services and products, which include online advertising technologies, search engine, cloud computing, software, and hardware. It is considered one of the Big Four technology companies, alongside Amazon, Apple, and Facebook. Google was founded in September 1998 by Larry Page and Sergey Brin while they were Ph.D. students at Stanford University in California. Together they own about 14 percent of its shares and control 56 percent of the stockholder voting power through supervoting stock. They incorporated Google as a California privately held company on September 4, 1998, in California. Google was then reincorporated in Delaware on October 22, 2002. An initial public offering (IPO) took place on August 19, 2004, and Google moved to its headquarters in Mountain View, California, nicknamed the Googleplex. In August 2015, Google announced plans to reorganize its various interests as a conglomerate called Alphabet Inc. Google is Alphabet's leading subsidiary and will continue to be the umbrella company for Alphabets Internet interests. Sundar Pichai was appointed CEO of Google, replacing Larry Page who became the CEO of Alphabet."
	DefaultQuestion  = "Who is the CEO of Google?"
)

var (
	ErrNotFound        = errors.New("session not found")
	ErrTooManySessions = errors.New("too many sessions")
)

// Limits bounds the live sessions. Zero values disable a limit.
type Limits struct {
	MaxSessions int
	// IdleTTL is how long a session may go untouched before Create may evict
	// it. Sessions with a call in flight are never evicted.
	IdleTTL time.Duration
}

type entry struct {
	o        *Orchestrator
	lastUsed time.Time
}

// Manager keeps the live sessions of one process. Sessions are not persisted.
type Manager struct {
	gw     inference.Gateway
	opts   Options
	limits Limits
	now    func() time.Time

	mu       sync.Mutex
	sessions map[uuid.UUID]*entry
}

func NewManager(gw inference.Gateway, opts Options, limits Limits) *Manager {
	return &Manager{
		gw:       gw,
		opts:     opts,
		limits:   limits,
		now:      time.Now,
		sessions: make(map[uuid.UUID]*entry),
	}
}

// Create starts a session and issues its first predict request. Idle
// sessions are evicted first; ErrTooManySessions is returned when the
// manager is still full.
func (m *Manager) Create(ctx context.Context, paragraph, question string) (*Orchestrator, error) {
	o := New(uuid.New(), m.gw, paragraph, question, m.opts)

	m.mu.Lock()
	now := m.now()
	m.evictIdle(now)
	if m.limits.MaxSessions > 0 && len(m.sessions) >= m.limits.MaxSessions {
		m.mu.Unlock()
		return nil, ErrTooManySessions
	}
	m.sessions[o.ID()] = &entry{o: o, lastUsed: now}
	m.mu.Unlock()

	o.Predict(ctx)
	return o, nil
}

// evictIdle must be called with m.mu held.
func (m *Manager) evictIdle(now time.Time) {
	if m.limits.IdleTTL <= 0 {
		return
	}
	for id, e := range m.sessions {
		if now.Sub(e.lastUsed) < m.limits.IdleTTL || e.o.Snapshot().Status == StatusRunning {
			continue
		}
		delete(m.sessions, id)
		m.opts.logger().Info("session evicted", "session_id", id, "idle", now.Sub(e.lastUsed).String())
	}
}

// Get returns a live session and marks it used.
func (m *Manager) Get(id uuid.UUID) (*Orchestrator, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.sessions[id]
	if !ok {
		return nil, ErrNotFound
	}
	e.lastUsed = m.now()
	return e.o, nil
}

// Delete ends a session. A call still in flight completes but its result is
// no longer reachable.
func (m *Manager) Delete(id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sessions[id]; !ok {
		return ErrNotFound
	}
	delete(m.sessions, id)
	return nil
}

func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}
