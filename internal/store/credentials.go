package store

import "fmt"

// Credentials identify the remote content repository and the token that
// grants access to it.
type Credentials struct {
	Token string `json:"token"`
	Owner string `json:"owner"`
	Repo  string `json:"repo"`
}

// SaveCredentials persists the credentials, replacing any previous ones.
// The token is sealed before it touches disk.
func (d *DB) SaveCredentials(c Credentials) error {
	sealed, err := d.seal.seal([]byte(c.Token))
	if err != nil {
		return fmt.Errorf("seal token: %w", err)
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	_, err = d.db.Exec(`
		INSERT INTO credentials (id, owner, repo, token) VALUES (1, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			owner      = excluded.owner,
			repo       = excluded.repo,
			token      = excluded.token,
			created_at = CURRENT_TIMESTAMP`,
		c.Owner, c.Repo, sealed,
	)
	return err
}

// Credentials returns the stored credentials, or false if none are saved
// or the token cannot be unsealed (e.g. the key file was replaced).
func (d *DB) Credentials() (Credentials, bool) {
	d.mu.RLock()
	var c Credentials
	var sealed []byte
	err := d.db.QueryRow(`SELECT owner, repo, token FROM credentials WHERE id = 1`).
		Scan(&c.Owner, &c.Repo, &sealed)
	d.mu.RUnlock()
	if err != nil {
		return Credentials{}, false
	}

	token, err := d.seal.open(sealed)
	if err != nil {
		return Credentials{}, false
	}
	c.Token = string(token)
	return c, true
}

// ClearCredentials removes the stored credentials (logout).
func (d *DB) ClearCredentials() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	_, err := d.db.Exec(`DELETE FROM credentials WHERE id = 1`)
	return err
}
