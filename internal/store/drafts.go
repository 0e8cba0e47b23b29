package store

import (
	"encoding/json"
	"fmt"
	"time"
)

// Draft is a locally persisted, unpublished snapshot of in-progress edits
// for one file path. At most one draft exists per path; a newer autosave
// replaces the previous one.
type Draft struct {
	Path        string         `json:"path"`
	Body        string         `json:"body"`
	Frontmatter map[string]any `json:"frontmatter"`
	SavedAt     time.Time      `json:"saved_at"`
}

// SaveDraft stores or replaces the draft for draft.Path. Last write wins.
func (d *DB) SaveDraft(draft Draft) error {
	fm := draft.Frontmatter
	if fm == nil {
		fm = map[string]any{}
	}
	fmJSON, err := json.Marshal(fm)
	if err != nil {
		return fmt.Errorf("encode frontmatter: %w", err)
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	_, err = d.db.Exec(`
		INSERT INTO drafts (path, body, frontmatter, saved_at) VALUES (?, ?, ?, ?)
		ON CONFLICT(path) DO UPDATE SET
			body        = excluded.body,
			frontmatter = excluded.frontmatter,
			saved_at    = excluded.saved_at`,
		draft.Path, draft.Body, string(fmJSON), draft.SavedAt.UnixMilli(),
	)
	return err
}

// Draft returns the draft for path, or false if none exists.
func (d *DB) Draft(path string) (Draft, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	var draft Draft
	var fmJSON string
	var savedAt int64
	err := d.db.QueryRow(`SELECT path, body, frontmatter, saved_at FROM drafts WHERE path = ?`, path).
		Scan(&draft.Path, &draft.Body, &fmJSON, &savedAt)
	if err != nil {
		return Draft{}, false
	}

	draft.SavedAt = time.UnixMilli(savedAt)
	if err := json.Unmarshal([]byte(fmJSON), &draft.Frontmatter); err != nil {
		draft.Frontmatter = map[string]any{}
	}
	return draft, true
}

// RemoveDraft deletes the draft for path. Removing a missing draft is a no-op.
func (d *DB) RemoveDraft(path string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	_, err := d.db.Exec(`DELETE FROM drafts WHERE path = ?`, path)
	return err
}

// ListDrafts returns all drafts ordered by most recent save.
func (d *DB) ListDrafts() ([]Draft, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	rows, err := d.db.Query(`SELECT path, body, frontmatter, saved_at FROM drafts ORDER BY saved_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Draft
	for rows.Next() {
		var draft Draft
		var fmJSON string
		var savedAt int64
		if err := rows.Scan(&draft.Path, &draft.Body, &fmJSON, &savedAt); err != nil {
			return nil, err
		}
		draft.SavedAt = time.UnixMilli(savedAt)
		if err := json.Unmarshal([]byte(fmJSON), &draft.Frontmatter); err != nil {
			draft.Frontmatter = map[string]any{}
		}
		out = append(out, draft)
	}
	return out, rows.Err()
}
