package session

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrNoRemote is returned when an operation needs the remote store but the
// user has not authenticated yet.
var ErrNoRemote = errors.New("not authenticated against a remote repository")

// Manager owns at most one session per path and fans session events out to
// subscribers (the shell's event stream).
type Manager struct {
	mu       sync.Mutex
	sessions map[string]*Session
	remote   RemoteStore
	drafts   DraftStore
	delay    time.Duration

	subMu sync.Mutex
	subs  map[chan Event]struct{}
}

func NewManager(drafts DraftStore, autosaveDelay time.Duration) *Manager {
	if autosaveDelay <= 0 {
		autosaveDelay = time.Second
	}
	return &Manager{
		sessions: make(map[string]*Session),
		drafts:   drafts,
		delay:    autosaveDelay,
		subs:     make(map[chan Event]struct{}),
	}
}

// SetRemote swaps the remote client. Called on login/logout; existing
// sessions keep the client they were opened with.
func (m *Manager) SetRemote(r RemoteStore) {
	m.mu.Lock()
	m.remote = r
	m.mu.Unlock()
}

// SetAutosaveDelay changes the debounce window for sessions opened from
// now on (config reload).
func (m *Manager) SetAutosaveDelay(d time.Duration) {
	if d <= 0 {
		return
	}
	m.mu.Lock()
	m.delay = d
	m.mu.Unlock()
}

// Open returns the existing session for path or opens a new one.
func (m *Manager) Open(ctx context.Context, path string, create bool) (*Session, error) {
	m.mu.Lock()
	if s, ok := m.sessions[path]; ok {
		m.mu.Unlock()
		return s, nil
	}
	rs := m.remote
	delay := m.delay
	m.mu.Unlock()

	if rs == nil {
		return nil, ErrNoRemote
	}

	s, err := Open(ctx, path, rs, m.drafts, Options{
		Create:        create,
		AutosaveDelay: delay,
		Notify:        m.publish,
	})
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	// Another Open for the same path may have won the race.
	if existing, ok := m.sessions[path]; ok {
		s.autosave.Cancel()
		return existing, nil
	}
	m.sessions[path] = s
	return s, nil
}

// Get returns the session for path if one is open.
func (m *Manager) Get(path string) (*Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[path]
	return s, ok
}

// Release flushes any pending autosave and drops the session. The draft,
// if one exists, stays in the store for the next open.
func (m *Manager) Release(path string) {
	m.mu.Lock()
	s, ok := m.sessions[path]
	delete(m.sessions, path)
	m.mu.Unlock()

	if ok {
		s.Flush()
	}
}

// Shutdown flushes all pending autosaves so no edit is lost to the
// debounce window.
func (m *Manager) Shutdown() {
	m.mu.Lock()
	sessions := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		sessions = append(sessions, s)
	}
	m.sessions = make(map[string]*Session)
	m.mu.Unlock()

	for _, s := range sessions {
		s.Flush()
	}
}

// Subscribe returns a channel of session events and a cancel func.
func (m *Manager) Subscribe() (chan Event, func()) {
	ch := make(chan Event, 64)

	m.subMu.Lock()
	m.subs[ch] = struct{}{}
	m.subMu.Unlock()

	cancel := func() {
		m.subMu.Lock()
		if _, ok := m.subs[ch]; ok {
			delete(m.subs, ch)
			close(ch)
		}
		m.subMu.Unlock()
	}
	return ch, cancel
}

func (m *Manager) publish(e Event) {
	m.subMu.Lock()
	for ch := range m.subs {
		select {
		case ch <- e:
		default:
			// drop on slow subscriber
		}
	}
	m.subMu.Unlock()
}
