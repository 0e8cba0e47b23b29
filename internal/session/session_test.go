package session

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/mverbeek/gitpad/internal/content"
	"github.com/mverbeek/gitpad/internal/remote"
	"github.com/mverbeek/gitpad/internal/store"
)

// fakeRemote is an in-memory remote store with version-token semantics:
// writes carry the last observed sha and are rejected when it is stale.
type fakeRemote struct {
	mu    sync.Mutex
	files map[string]fakeFile
	seq   int
}

type fakeFile struct {
	sha     string
	content []byte
}

func newFakeRemote() *fakeRemote {
	return &fakeRemote{files: make(map[string]fakeFile)}
}

func (f *fakeRemote) put(path, text string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seq++
	sha := fmt.Sprintf("sha-%d", f.seq)
	f.files[path] = fakeFile{sha: sha, content: []byte(text)}
	return sha
}

func (f *fakeRemote) Read(ctx context.Context, path string) (remote.FileContent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	file, ok := f.files[path]
	if !ok {
		return remote.FileContent{}, fmt.Errorf("read %s: %w", path, remote.ErrNotFound)
	}
	return remote.FileContent{Path: path, SHA: file.sha, Content: file.content}, nil
}

func (f *fakeRemote) Write(ctx context.Context, path string, data []byte, message, sha string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	cur, exists := f.files[path]
	if exists && sha != cur.sha {
		return "", fmt.Errorf("write %s: %w", path, remote.ErrConflict)
	}
	if !exists && sha != "" {
		return "", fmt.Errorf("write %s: %w", path, remote.ErrConflict)
	}
	f.seq++
	newSHA := fmt.Sprintf("sha-%d", f.seq)
	f.files[path] = fakeFile{sha: newSHA, content: data}
	return newSHA, nil
}

func openTestStore(t *testing.T) *store.DB {
	t.Helper()
	dir := t.TempDir()
	db, err := store.Open(filepath.Join(dir, "gitpad.db"), filepath.Join(dir, "seal.key"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

const testDelay = 50 * time.Millisecond

func TestOpenCleanRemote(t *testing.T) {
	rs := newFakeRemote()
	sha := rs.put("posts/a.md", "---\ntitle: A\n---\nhello\n")
	db := openTestStore(t)

	s, err := Open(context.Background(), "posts/a.md", rs, db, Options{AutosaveDelay: testDelay})
	if err != nil {
		t.Fatal(err)
	}

	st := s.State()
	if st.Dirty {
		t.Error("fresh open of clean remote should not be dirty")
	}
	if st.Body != "hello\n" {
		t.Errorf("body = %q", st.Body)
	}
	if st.Frontmatter["title"] != "A" {
		t.Errorf("frontmatter = %#v", st.Frontmatter)
	}
	if st.BaseSHA != sha {
		t.Errorf("baseline = %q, want %q", st.BaseSHA, sha)
	}
}

func TestOpenDraftWinsOverRemote(t *testing.T) {
	rs := newFakeRemote()
	sha := rs.put("posts/a.md", "remote version\n")
	db := openTestStore(t)

	if err := db.SaveDraft(store.Draft{
		Path:        "posts/a.md",
		Body:        "local draft wins",
		Frontmatter: map[string]any{"title": "Draft"},
		SavedAt:     time.Now(),
	}); err != nil {
		t.Fatal(err)
	}

	s, err := Open(context.Background(), "posts/a.md", rs, db, Options{AutosaveDelay: testDelay})
	if err != nil {
		t.Fatal(err)
	}

	st := s.State()
	if !st.Dirty {
		t.Error("open with existing draft must be dirty")
	}
	if st.Body != "local draft wins" {
		t.Errorf("body = %q", st.Body)
	}
	// The baseline still tracks the remote fetch, not the draft.
	if st.BaseSHA != sha {
		t.Errorf("baseline = %q, want %q", st.BaseSHA, sha)
	}
}

func TestOpenMissingPath(t *testing.T) {
	rs := newFakeRemote()
	db := openTestStore(t)
	ctx := context.Background()

	if _, err := Open(ctx, "posts/nope.md", rs, db, Options{}); !errors.Is(err, remote.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}

	// With Create the session starts empty with no baseline.
	s, err := Open(ctx, "posts/new.md", rs, db, Options{Create: true, AutosaveDelay: testDelay})
	if err != nil {
		t.Fatal(err)
	}
	st := s.State()
	if st.BaseSHA != "" || st.Body != "" || st.Dirty {
		t.Errorf("new session state = %+v", st)
	}
}

func TestAutosaveCapturesLastEdit(t *testing.T) {
	rs := newFakeRemote()
	rs.put("posts/a.md", "original\n")
	db := openTestStore(t)

	s, err := Open(context.Background(), "posts/a.md", rs, db, Options{AutosaveDelay: testDelay})
	if err != nil {
		t.Fatal(err)
	}

	// Rapid edits: only the last one should land in the draft store.
	s.SetBody("edit one")
	s.SetBody("edit two")
	s.SetBody("New body")

	if _, ok := db.Draft("posts/a.md"); ok {
		t.Fatal("draft written before the quiet period elapsed")
	}

	time.Sleep(3 * testDelay)

	draft, ok := db.Draft("posts/a.md")
	if !ok {
		t.Fatal("draft missing after quiet period")
	}
	if draft.Body != "New body" {
		t.Errorf("draft body = %q, want last edit", draft.Body)
	}
}

func TestEditRestartsDebounceWindow(t *testing.T) {
	rs := newFakeRemote()
	rs.put("posts/a.md", "original\n")
	db := openTestStore(t)

	s, err := Open(context.Background(), "posts/a.md", rs, db, Options{AutosaveDelay: 4 * testDelay})
	if err != nil {
		t.Fatal(err)
	}

	s.SetBody("first")
	time.Sleep(2 * testDelay)
	s.SetBody("second") // restarts the window
	time.Sleep(3 * testDelay)

	// 5 windows of testDelay since the first edit, but only 3 since the
	// second: nothing should be persisted yet.
	if _, ok := db.Draft("posts/a.md"); ok {
		t.Fatal("autosave fired before the restarted window elapsed")
	}

	time.Sleep(3 * testDelay)
	if draft, ok := db.Draft("posts/a.md"); !ok || draft.Body != "second" {
		t.Fatalf("draft = %+v, %v", draft, ok)
	}
}

func TestCommitClearsDraftAndAdvancesBaseline(t *testing.T) {
	rs := newFakeRemote()
	rs.put("posts/a.md", "---\ntitle: A\n---\nold\n")
	db := openTestStore(t)
	ctx := context.Background()

	s, err := Open(ctx, "posts/a.md", rs, db, Options{AutosaveDelay: testDelay})
	if err != nil {
		t.Fatal(err)
	}

	s.SetBody("new body\n")
	s.Flush() // make sure a draft exists before committing
	if _, ok := db.Draft("posts/a.md"); !ok {
		t.Fatal("expected draft before commit")
	}

	st, err := s.Commit(ctx, "update post")
	if err != nil {
		t.Fatal(err)
	}
	if st.Dirty {
		t.Error("commit should clear dirty")
	}
	if _, ok := db.Draft("posts/a.md"); ok {
		t.Error("draft should be removed after commit")
	}

	fc, err := rs.Read(ctx, "posts/a.md")
	if err != nil {
		t.Fatal(err)
	}
	if st.BaseSHA != fc.SHA {
		t.Errorf("baseline %q != store sha %q", st.BaseSHA, fc.SHA)
	}
	fm, body, err := content.Parse(fc.Content)
	if err != nil {
		t.Fatal(err)
	}
	if body != "new body\n" || fm["title"] != "A" {
		t.Errorf("committed document fm=%#v body=%q", fm, body)
	}
}

func TestCommitConflictLeavesStateUntouched(t *testing.T) {
	rs := newFakeRemote()
	rs.put("posts/a.md", "v1\n")
	db := openTestStore(t)
	ctx := context.Background()

	s, err := Open(ctx, "posts/a.md", rs, db, Options{AutosaveDelay: testDelay})
	if err != nil {
		t.Fatal(err)
	}
	before := s.State()

	s.SetBody("my edit\n")
	s.Flush()

	// A collaborator commits in the meantime; our baseline goes stale.
	rs.put("posts/a.md", "their edit\n")

	_, err = s.Commit(ctx, "publish")
	if !errors.Is(err, remote.ErrConflict) {
		t.Fatalf("err = %v, want ErrConflict", err)
	}

	st := s.State()
	if !st.Dirty {
		t.Error("failed commit must keep the session dirty")
	}
	if st.Body != "my edit\n" {
		t.Errorf("body = %q", st.Body)
	}
	if st.BaseSHA != before.BaseSHA {
		t.Error("failed commit must not move the baseline")
	}
	if draft, ok := db.Draft("posts/a.md"); !ok || draft.Body != "my edit\n" {
		t.Errorf("draft after failed commit = %+v, %v", draft, ok)
	}
}

func TestCommitCreatesNewFile(t *testing.T) {
	rs := newFakeRemote()
	db := openTestStore(t)
	ctx := context.Background()

	s, err := Open(ctx, "posts/new.md", rs, db, Options{Create: true, AutosaveDelay: testDelay})
	if err != nil {
		t.Fatal(err)
	}
	s.SetBody("brand new\n")

	st, err := s.Commit(ctx, "first post")
	if err != nil {
		t.Fatal(err)
	}
	if st.BaseSHA == "" {
		t.Error("baseline empty after create commit")
	}
}

func TestDiscardReloadsRemote(t *testing.T) {
	rs := newFakeRemote()
	rs.put("posts/a.md", "remote\n")
	db := openTestStore(t)
	ctx := context.Background()

	s, err := Open(ctx, "posts/a.md", rs, db, Options{AutosaveDelay: testDelay})
	if err != nil {
		t.Fatal(err)
	}
	s.SetBody("scratch that")
	s.Flush()

	// Remote moved on while we were editing.
	newSHA := rs.put("posts/a.md", "remote v2\n")

	st, err := s.Discard(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if st.Dirty || st.Body != "remote v2\n" || st.BaseSHA != newSHA {
		t.Errorf("state after discard = %+v", st)
	}
	if _, ok := db.Draft("posts/a.md"); ok {
		t.Error("draft should be gone after discard")
	}
}

func TestCrashRestore(t *testing.T) {
	// Type, wait past the debounce, crash, reopen.
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "gitpad.db")
	keyPath := filepath.Join(dir, "seal.key")

	rs := newFakeRemote()
	rs.put("src/content/posts/hello.mdx", "---\ntitle: Hello\n---\nOld body\n")

	db, err := store.Open(dbPath, keyPath)
	if err != nil {
		t.Fatal(err)
	}

	s, err := Open(context.Background(), "src/content/posts/hello.mdx", rs, db, Options{AutosaveDelay: testDelay})
	if err != nil {
		t.Fatal(err)
	}
	s.SetBody("New body")
	time.Sleep(3 * testDelay) // let the autosave land
	db.Close()                // crash

	db2, err := store.Open(dbPath, keyPath)
	if err != nil {
		t.Fatal(err)
	}
	defer db2.Close()

	s2, err := Open(context.Background(), "src/content/posts/hello.mdx", rs, db2, Options{AutosaveDelay: testDelay})
	if err != nil {
		t.Fatal(err)
	}
	st := s2.State()
	if !st.Dirty {
		t.Error("restored session should be dirty")
	}
	if st.Body != "New body" {
		t.Errorf("restored body = %q, want New body", st.Body)
	}
}

// slowDrafts holds the first SaveDraft open until released, so a test can
// overlap an in-flight autosave with other session calls.
type slowDrafts struct {
	DraftStore
	entered chan struct{}
	release chan struct{}
	once    sync.Once
}

func (sd *slowDrafts) SaveDraft(d store.Draft) error {
	sd.once.Do(func() {
		sd.entered <- struct{}{}
		<-sd.release
	})
	return sd.DraftStore.SaveDraft(d)
}

func TestCommitDuringAutosaveDoesNotResurrectDraft(t *testing.T) {
	rs := newFakeRemote()
	rs.put("posts/a.md", "remote\n")
	db := openTestStore(t)
	ds := &slowDrafts{DraftStore: db, entered: make(chan struct{}), release: make(chan struct{})}

	s, err := Open(context.Background(), "posts/a.md", rs, ds, Options{AutosaveDelay: time.Hour})
	if err != nil {
		t.Fatal(err)
	}
	s.SetBody("my edit")

	// Run the pending autosave now; its SaveDraft parks at the gate.
	go s.Flush()
	<-ds.entered

	commitDone := make(chan error, 1)
	go func() {
		_, err := s.Commit(context.Background(), "publish")
		commitDone <- err
	}()

	// The commit must wait for the in-flight save, not interleave with it.
	select {
	case err := <-commitDone:
		t.Fatalf("commit finished while the save was still in flight (err=%v)", err)
	case <-time.After(50 * time.Millisecond):
	}

	close(ds.release)
	if err := <-commitDone; err != nil {
		t.Fatalf("commit: %v", err)
	}

	if st := s.State(); st.Dirty {
		t.Error("session should be clean after commit")
	}
	if d, ok := db.Draft("posts/a.md"); ok {
		t.Errorf("draft exists after successful commit: %+v", d)
	}
}
