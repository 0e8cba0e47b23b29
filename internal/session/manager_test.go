package session

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestManagerRequiresRemote(t *testing.T) {
	db := openTestStore(t)
	m := NewManager(db, testDelay)

	_, err := m.Open(context.Background(), "a.md", false)
	if !errors.Is(err, ErrNoRemote) {
		t.Errorf("err = %v, want ErrNoRemote", err)
	}
}

func TestManagerOneSessionPerPath(t *testing.T) {
	rs := newFakeRemote()
	rs.put("a.md", "x\n")
	db := openTestStore(t)

	m := NewManager(db, testDelay)
	m.SetRemote(rs)
	ctx := context.Background()

	s1, err := m.Open(ctx, "a.md", false)
	if err != nil {
		t.Fatal(err)
	}
	s2, err := m.Open(ctx, "a.md", false)
	if err != nil {
		t.Fatal(err)
	}
	if s1 != s2 {
		t.Error("expected the same session for repeated opens")
	}

	m.Release("a.md")
	s3, err := m.Open(ctx, "a.md", false)
	if err != nil {
		t.Fatal(err)
	}
	if s3 == s1 {
		t.Error("expected a fresh session after release")
	}
}

func TestManagerPublishesEvents(t *testing.T) {
	rs := newFakeRemote()
	rs.put("a.md", "x\n")
	db := openTestStore(t)

	m := NewManager(db, testDelay)
	m.SetRemote(rs)

	ch, cancel := m.Subscribe()
	defer cancel()

	s, err := m.Open(context.Background(), "a.md", false)
	if err != nil {
		t.Fatal(err)
	}
	s.SetBody("edited")

	select {
	case e := <-ch:
		if e.Type != "autosave" || e.Path != "a.md" {
			t.Errorf("event = %+v", e)
		}
	case <-time.After(5 * testDelay):
		t.Fatal("no autosave event received")
	}

	if _, err := s.Commit(context.Background(), "msg"); err != nil {
		t.Fatal(err)
	}
	select {
	case e := <-ch:
		if e.Type != "commit" || e.SHA == "" {
			t.Errorf("event = %+v", e)
		}
	case <-time.After(time.Second):
		t.Fatal("no commit event received")
	}
}

func TestManagerShutdownFlushes(t *testing.T) {
	rs := newFakeRemote()
	rs.put("a.md", "x\n")
	db := openTestStore(t)

	m := NewManager(db, time.Hour) // debounce so long it never fires on its own
	m.SetRemote(rs)

	s, err := m.Open(context.Background(), "a.md", false)
	if err != nil {
		t.Fatal(err)
	}
	s.SetBody("unsaved edit")

	m.Shutdown()

	draft, ok := db.Draft("a.md")
	if !ok || draft.Body != "unsaved edit" {
		t.Fatalf("draft after shutdown = %+v, %v", draft, ok)
	}
}
