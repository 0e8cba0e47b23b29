package remote

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const userAgent = "gitpad"

// RepoFile is a read-only listing entry.
type RepoFile struct {
	Name string `json:"name"`
	Path string `json:"path"`
	SHA  string `json:"sha"`
	Type string `json:"type"` // "file" or "dir"
}

// FileContent is a snapshot of one file at a remote version.
type FileContent struct {
	Path    string
	SHA     string
	Content []byte
}

// Options configure a Client.
type Options struct {
	APIBase string // e.g. https://api.github.com
	Token   string
	Owner   string
	Repo    string
	Branch  string // empty = repository default
	Timeout time.Duration
}

// Client talks to a GitHub-style contents API. All write conflicts are
// arbitrated remotely via the blob sha carried on updates.
type Client struct {
	base   string
	token  string
	owner  string
	repo   string
	branch string
	hc     *http.Client
}

func New(opt Options) *Client {
	base := strings.TrimRight(opt.APIBase, "/")
	if base == "" {
		base = "https://api.github.com"
	}
	timeout := opt.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		base:   base,
		token:  opt.Token,
		owner:  opt.Owner,
		repo:   opt.Repo,
		branch: opt.Branch,
		hc:     &http.Client{Timeout: timeout},
	}
}

// Validate checks that the token can see the repository. A missing repo and
// a bad token both come back as false; transport failures are returned as
// errors so the caller can distinguish "wrong credentials" from "offline".
func (c *Client) Validate(ctx context.Context) (bool, error) {
	req, err := c.newRequest(ctx, http.MethodGet, c.repoURL(""), nil)
	if err != nil {
		return false, err
	}
	resp, err := c.hc.Do(req)
	if err != nil {
		return false, &NetError{Op: "validate", Err: err}
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
		return true, nil
	case resp.StatusCode == http.StatusUnauthorized,
		resp.StatusCode == http.StatusForbidden,
		resp.StatusCode == http.StatusNotFound:
		return false, nil
	default:
		return false, statusErr("validate", resp)
	}
}

// List returns all file entries under path, recursing into subdirectories.
// A missing path is an empty listing, not an error.
func (c *Client) List(ctx context.Context, path string) ([]RepoFile, error) {
	var out []RepoFile
	if err := c.list(ctx, path, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) list(ctx context.Context, path string, out *[]RepoFile) error {
	req, err := c.newRequest(ctx, http.MethodGet, c.contentsURL(path), nil)
	if err != nil {
		return err
	}
	resp, err := c.hc.Do(req)
	if err != nil {
		return &NetError{Op: "list", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil
	}
	if resp.StatusCode != http.StatusOK {
		return statusErr("list", resp)
	}

	// A directory decodes as an array; listing a file path yields an object.
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return &NetError{Op: "list", Err: err}
	}

	var entries []RepoFile
	if err := json.Unmarshal(body, &entries); err != nil {
		var single RepoFile
		if err2 := json.Unmarshal(body, &single); err2 != nil {
			return fmt.Errorf("decode listing: %w", err)
		}
		entries = []RepoFile{single}
	}

	for _, e := range entries {
		switch e.Type {
		case "dir":
			if err := c.list(ctx, e.Path, out); err != nil {
				return err
			}
		case "file":
			*out = append(*out, e)
		}
	}
	return nil
}

// Read fetches one file. The API transports content base64-encoded; the
// returned bytes are decoded.
func (c *Client) Read(ctx context.Context, path string) (FileContent, error) {
	req, err := c.newRequest(ctx, http.MethodGet, c.contentsURL(path), nil)
	if err != nil {
		return FileContent{}, err
	}
	resp, err := c.hc.Do(req)
	if err != nil {
		return FileContent{}, &NetError{Op: "read", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return FileContent{}, statusErr("read", resp)
	}

	var raw struct {
		Path     string `json:"path"`
		SHA      string `json:"sha"`
		Content  string `json:"content"`
		Encoding string `json:"encoding"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return FileContent{}, fmt.Errorf("decode file: %w", err)
	}
	if raw.Encoding != "" && raw.Encoding != "base64" {
		return FileContent{}, fmt.Errorf("unsupported content encoding %q", raw.Encoding)
	}

	data, err := decodeBase64(raw.Content)
	if err != nil {
		return FileContent{}, fmt.Errorf("decode content of %s: %w", path, err)
	}
	return FileContent{Path: raw.Path, SHA: raw.SHA, Content: data}, nil
}

// Write creates or updates a file and returns the new blob sha.
// sha must be the last observed version token when updating an existing
// file, and empty when creating; a stale token yields ErrConflict.
func (c *Client) Write(ctx context.Context, path string, content []byte, message, sha string) (string, error) {
	payload := map[string]any{
		"message": message,
		"content": base64.StdEncoding.EncodeToString(content),
	}
	if sha != "" {
		payload["sha"] = sha
	}
	if c.branch != "" {
		payload["branch"] = c.branch
	}
	body, _ := json.Marshal(payload)

	req, err := c.newRequest(ctx, http.MethodPut, c.contentsURL(path), bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	resp, err := c.hc.Do(req)
	if err != nil {
		return "", &NetError{Op: "write", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return "", statusErr("write", resp)
	}

	var out struct {
		Content struct {
			SHA string `json:"sha"`
		} `json:"content"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode write response: %w", err)
	}
	return out.Content.SHA, nil
}

// Delete removes a file. The current sha and a commit message are required.
func (c *Client) Delete(ctx context.Context, path, message, sha string) error {
	payload := map[string]any{
		"message": message,
		"sha":     sha,
	}
	if c.branch != "" {
		payload["branch"] = c.branch
	}
	body, _ := json.Marshal(payload)

	req, err := c.newRequest(ctx, http.MethodDelete, c.contentsURL(path), bytes.NewReader(body))
	if err != nil {
		return err
	}
	resp, err := c.hc.Do(req)
	if err != nil {
		return &NetError{Op: "delete", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return statusErr("delete", resp)
	}
	return nil
}

func (c *Client) repoURL(suffix string) string {
	return fmt.Sprintf("%s/repos/%s/%s%s", c.base, c.owner, c.repo, suffix)
}

func (c *Client) contentsURL(path string) string {
	path = strings.TrimPrefix(path, "/")
	u := c.repoURL("/contents/" + escapePath(path))
	if c.branch != "" {
		u += "?ref=" + url.QueryEscape(c.branch)
	}
	return u
}

// escapePath escapes each segment but keeps the slashes.
func escapePath(p string) string {
	segs := strings.Split(p, "/")
	for i, s := range segs {
		segs[i] = url.PathEscape(s)
	}
	return strings.Join(segs, "/")
}

func (c *Client) newRequest(ctx context.Context, method, u string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("User-Agent", userAgent)
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return req, nil
}

// statusErr maps an HTTP status to one of the error kinds. The response
// body's message, if any, is folded into the error text.
func statusErr(op string, resp *http.Response) error {
	msg := apiMessage(resp)

	switch resp.StatusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		return fmt.Errorf("%s: %w: %s", op, ErrAuth, msg)
	case http.StatusNotFound:
		return fmt.Errorf("%s: %w: %s", op, ErrNotFound, msg)
	case http.StatusConflict:
		return fmt.Errorf("%s: %w: %s", op, ErrConflict, msg)
	case http.StatusUnprocessableEntity:
		// The API reports a stale sha on update as 422.
		if strings.Contains(strings.ToLower(msg), "sha") || strings.Contains(strings.ToLower(msg), "match") {
			return fmt.Errorf("%s: %w: %s", op, ErrConflict, msg)
		}
		return fmt.Errorf("%s: unprocessable: %s", op, msg)
	default:
		return fmt.Errorf("%s: unexpected status %d: %s", op, resp.StatusCode, msg)
	}
}

func apiMessage(resp *http.Response) string {
	b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	var body struct {
		Message string `json:"message"`
	}
	if json.Unmarshal(b, &body) == nil && body.Message != "" {
		return body.Message
	}
	return strings.TrimSpace(string(b))
}

// decodeBase64 tolerates the line breaks the API inserts into content.
func decodeBase64(s string) ([]byte, error) {
	s = strings.Map(func(r rune) rune {
		if r == '\n' || r == '\r' {
			return -1
		}
		return r
	}, s)
	return base64.StdEncoding.DecodeString(s)
}
