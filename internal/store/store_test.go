package store

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	dir := t.TempDir()
	db, err := Open(filepath.Join(dir, "gitpad.db"), filepath.Join(dir, "seal.key"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestCredentialsRoundTrip(t *testing.T) {
	db := openTestDB(t)

	if _, ok := db.Credentials(); ok {
		t.Fatal("fresh database should have no credentials")
	}

	want := Credentials{Token: "ghp_secret", Owner: "alice", Repo: "site"}
	if err := db.SaveCredentials(want); err != nil {
		t.Fatal(err)
	}

	got, ok := db.Credentials()
	if !ok {
		t.Fatal("credentials not found after save")
	}
	if got != want {
		t.Errorf("got %+v, want %+v", got, want)
	}

	// Saving again replaces the single row.
	want.Repo = "blog"
	if err := db.SaveCredentials(want); err != nil {
		t.Fatal(err)
	}
	got, _ = db.Credentials()
	if got.Repo != "blog" {
		t.Errorf("repo = %q, want blog", got.Repo)
	}

	if err := db.ClearCredentials(); err != nil {
		t.Fatal(err)
	}
	if _, ok := db.Credentials(); ok {
		t.Fatal("credentials present after clear")
	}
}

func TestTokenSealedOnDisk(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "gitpad.db")
	db, err := Open(dbPath, filepath.Join(dir, "seal.key"))
	if err != nil {
		t.Fatal(err)
	}

	token := "ghp_very_secret_token_value"
	if err := db.SaveCredentials(Credentials{Token: token, Owner: "a", Repo: "b"}); err != nil {
		t.Fatal(err)
	}
	db.Close()

	raw, err := os.ReadFile(dbPath)
	if err != nil {
		t.Fatal(err)
	}
	if bytes.Contains(raw, []byte(token)) {
		t.Fatal("plaintext token found in database file")
	}
}

func TestCredentialsSurviveReopen(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "gitpad.db")
	keyPath := filepath.Join(dir, "seal.key")

	db, err := Open(dbPath, keyPath)
	if err != nil {
		t.Fatal(err)
	}
	if err := db.SaveCredentials(Credentials{Token: "tok", Owner: "a", Repo: "b"}); err != nil {
		t.Fatal(err)
	}
	db.Close()

	db, err = Open(dbPath, keyPath)
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	got, ok := db.Credentials()
	if !ok || got.Token != "tok" {
		t.Fatalf("credentials after reopen = %+v, %v", got, ok)
	}
}

func TestDraftLastWriteWins(t *testing.T) {
	db := openTestDB(t)

	path := "src/content/posts/hello.mdx"
	first := Draft{
		Path:        path,
		Body:        "first",
		Frontmatter: map[string]any{"title": "Hello"},
		SavedAt:     time.Now().Add(-time.Minute),
	}
	if err := db.SaveDraft(first); err != nil {
		t.Fatal(err)
	}

	second := first
	second.Body = "second"
	second.SavedAt = time.Now()
	if err := db.SaveDraft(second); err != nil {
		t.Fatal(err)
	}

	got, ok := db.Draft(path)
	if !ok {
		t.Fatal("draft missing")
	}
	if got.Body != "second" {
		t.Errorf("body = %q, want second", got.Body)
	}
	if got.Frontmatter["title"] != "Hello" {
		t.Errorf("frontmatter = %#v", got.Frontmatter)
	}

	drafts, err := db.ListDrafts()
	if err != nil {
		t.Fatal(err)
	}
	if len(drafts) != 1 {
		t.Fatalf("got %d drafts, want 1 (one draft per path)", len(drafts))
	}
}

func TestRemoveDraft(t *testing.T) {
	db := openTestDB(t)

	if err := db.SaveDraft(Draft{Path: "a.md", Body: "x", SavedAt: time.Now()}); err != nil {
		t.Fatal(err)
	}
	if err := db.RemoveDraft("a.md"); err != nil {
		t.Fatal(err)
	}
	if _, ok := db.Draft("a.md"); ok {
		t.Fatal("draft still present after remove")
	}

	// Removing again is fine.
	if err := db.RemoveDraft("a.md"); err != nil {
		t.Fatal(err)
	}
}
