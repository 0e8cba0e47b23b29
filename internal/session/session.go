package session

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mverbeek/gitpad/internal/content"
	"github.com/mverbeek/gitpad/internal/remote"
	"github.com/mverbeek/gitpad/internal/store"
)

// RemoteStore is the slice of the remote content API a session needs.
type RemoteStore interface {
	Read(ctx context.Context, path string) (remote.FileContent, error)
	Write(ctx context.Context, path string, content []byte, message, sha string) (string, error)
}

// DraftStore is the slice of the local persistence layer a session needs.
type DraftStore interface {
	Draft(path string) (store.Draft, bool)
	SaveDraft(store.Draft) error
	RemoveDraft(path string) error
}

// Session reconciles one file's local draft with its remote copy. All
// methods are safe for concurrent use, but a session belongs to a single
// user context; the remote store arbitrates conflicts between sessions on
// different devices via the version token.
type Session struct {
	ID   string
	Path string

	remote RemoteStore
	drafts DraftStore

	mu      sync.Mutex
	body    string
	fm      content.Frontmatter
	dirty   bool
	baseSHA string // version token observed at open or last commit

	autosave *debouncer
	notify   func(Event)
}

// State is a point-in-time snapshot of the editing session.
type State struct {
	SessionID   string              `json:"session_id"`
	Path        string              `json:"path"`
	Body        string              `json:"body"`
	Frontmatter content.Frontmatter `json:"frontmatter"`
	Dirty       bool                `json:"dirty"`
	BaseSHA     string              `json:"base_sha"`
}

// Event describes something a session did that the shell may want to show
// (the "Saved" indicator, commit confirmations).
type Event struct {
	Type      string    `json:"type"` // "autosave" or "commit"
	Path      string    `json:"path"`
	SessionID string    `json:"session_id"`
	SHA       string    `json:"sha,omitempty"`
	Time      time.Time `json:"time"`
}

// Options configure Open.
type Options struct {
	// Create permits opening a path that does not exist remotely yet.
	Create bool

	// AutosaveDelay is the quiet period before an edit is written to the
	// draft store. Zero means the package default of one second.
	AutosaveDelay time.Duration

	// Notify receives session events. May be nil.
	Notify func(Event)
}

// Open builds a session for path. The local draft and the remote file are
// fetched concurrently; a draft with a save timestamp wins over the remote
// copy (last local edit wins on open), otherwise the remote content is
// parsed fresh. The remote sha from this fetch becomes the baseline for
// the next commit either way.
func Open(ctx context.Context, path string, rs RemoteStore, ds DraftStore, opt Options) (*Session, error) {
	type remoteResult struct {
		fc  remote.FileContent
		err error
	}
	type draftResult struct {
		draft store.Draft
		ok    bool
	}

	remoteCh := make(chan remoteResult, 1)
	draftCh := make(chan draftResult, 1)

	go func() {
		fc, err := rs.Read(ctx, path)
		remoteCh <- remoteResult{fc, err}
	}()
	go func() {
		d, ok := ds.Draft(path)
		draftCh <- draftResult{d, ok}
	}()

	rr := <-remoteCh
	dr := <-draftCh

	if rr.err != nil {
		missing := errors.Is(rr.err, remote.ErrNotFound)
		if !missing || (!dr.ok && !opt.Create) {
			return nil, rr.err
		}
		// New file, or a draft for a path that vanished remotely: start
		// from an empty baseline so commit creates.
		rr.fc = remote.FileContent{Path: path}
	}

	delay := opt.AutosaveDelay
	if delay <= 0 {
		delay = time.Second
	}

	s := &Session{
		ID:      uuid.NewString(),
		Path:    path,
		remote:  rs,
		drafts:  ds,
		baseSHA: rr.fc.SHA,
		notify:  opt.Notify,
	}
	s.autosave = newDebouncer(delay, s.writeDraft)

	if dr.ok && dr.draft.SavedAt.UnixMilli() > 0 {
		// Pending local edits take precedence over remote state, even if
		// the remote has since changed.
		s.body = dr.draft.Body
		s.fm = content.Frontmatter(dr.draft.Frontmatter)
		if s.fm == nil {
			s.fm = content.Frontmatter{}
		}
		s.dirty = true
		return s, nil
	}

	fm, body, err := content.Parse(rr.fc.Content)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	s.fm = fm
	s.body = body
	s.dirty = false
	return s, nil
}

// State returns a snapshot of the session.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stateLocked()
}

func (s *Session) stateLocked() State {
	fm := make(content.Frontmatter, len(s.fm))
	for k, v := range s.fm {
		fm[k] = v
	}
	return State{
		SessionID:   s.ID,
		Path:        s.Path,
		Body:        s.body,
		Frontmatter: fm,
		Dirty:       s.dirty,
		BaseSHA:     s.baseSHA,
	}
}

// SetBody replaces the body, marks the session dirty and restarts the
// autosave window.
func (s *Session) SetBody(body string) {
	s.mu.Lock()
	s.body = body
	s.dirty = true
	s.mu.Unlock()
	s.autosave.Call()
}

// SetFrontmatter replaces the frontmatter mapping, marks the session dirty
// and restarts the autosave window.
func (s *Session) SetFrontmatter(fm content.Frontmatter) {
	if fm == nil {
		fm = content.Frontmatter{}
	}
	s.mu.Lock()
	s.fm = fm
	s.dirty = true
	s.mu.Unlock()
	s.autosave.Call()
}

// writeDraft is the debounced autosave target. A commit that lands while
// the timer was pending clears dirty, in which case there is nothing worth
// persisting anymore. The save itself stays under the lock: it is a fast
// local write, and releasing early would let a commit remove the draft
// only to have this save resurrect it.
func (s *Session) writeDraft() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.dirty {
		return
	}
	draft := store.Draft{
		Path:        s.Path,
		Body:        s.body,
		Frontmatter: s.fm,
		SavedAt:     time.Now(),
	}
	if err := s.drafts.SaveDraft(draft); err != nil {
		log.Printf("session: autosave of %s failed: %v", s.Path, err)
		return
	}
	s.emit(Event{Type: "autosave", Path: s.Path, SessionID: s.ID, Time: draft.SavedAt})
}

// Flush persists a pending autosave immediately. Used on shutdown so the
// last edit is not lost to the debounce window.
func (s *Session) Flush() {
	s.autosave.Flush()
}

// Commit serializes the document and writes it to the remote store under
// the baseline version token. On success the baseline advances to the
// returned token, the session becomes clean and the local draft is
// removed. On any failure — conflict, auth, network — nothing changes:
// the draft and the dirty flag stay as they were so the user can retry.
func (s *Session) Commit(ctx context.Context, message string) (State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := content.Serialize(s.fm, s.body)
	if err != nil {
		return s.stateLocked(), err
	}

	newSHA, err := s.remote.Write(ctx, s.Path, data, message, s.baseSHA)
	if err != nil {
		return s.stateLocked(), err
	}

	s.baseSHA = newSHA
	s.dirty = false
	s.autosave.Cancel()
	if err := s.drafts.RemoveDraft(s.Path); err != nil {
		// The commit itself succeeded; a stale draft is an annoyance,
		// not a failure.
		log.Printf("session: remove draft %s: %v", s.Path, err)
	}

	st := s.stateLocked()
	s.emit(Event{Type: "commit", Path: s.Path, SessionID: s.ID, SHA: newSHA, Time: time.Now()})
	return st, nil
}

// Discard drops local edits and the stored draft, then reloads the remote
// copy. The session comes back clean with a fresh baseline.
func (s *Session) Discard(ctx context.Context) (State, error) {
	fc, err := s.remote.Read(ctx, s.Path)
	if err != nil {
		return s.State(), err
	}
	fm, body, err := content.Parse(fc.Content)
	if err != nil {
		return s.State(), fmt.Errorf("parse %s: %w", s.Path, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.autosave.Cancel()
	if err := s.drafts.RemoveDraft(s.Path); err != nil {
		return s.stateLocked(), err
	}
	s.fm = fm
	s.body = body
	s.dirty = false
	s.baseSHA = fc.SHA
	return s.stateLocked(), nil
}

func (s *Session) emit(e Event) {
	if s.notify != nil {
		s.notify(e)
	}
}
