package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"

	"github.com/mverbeek/gitpad/internal/util"
)

type Config struct {
	Remote Remote `json:"remote"`
	Paths  Paths  `json:"paths"`
	Editor Editor `json:"editor"`
	Viewer Viewer `json:"viewer"`
}

type Remote struct {
	// Base URL of the contents API. Default is the public GitHub API.
	APIBase string `json:"api_base"`

	// Branch ref passed on reads and writes. Empty means the repository default.
	Branch string `json:"branch"`

	// Seconds before an API request is abandoned.
	TimeoutSec int `json:"timeout_seconds"`
}

type Paths struct {
	Database string `json:"database"`
	SealKey  string `json:"seal_key_file"`
}

type Editor struct {
	// Quiet period after the last edit before a draft is written, in ms.
	AutosaveDebounceMs int `json:"autosave_debounce_ms"`

	// Only files with these extensions show up in listings. Empty = all files.
	Extensions []string `json:"extensions"`
}

type Viewer struct {
	HTTPAddr string `json:"http_addr"`
	Debug    bool   `json:"debug"`
	Theme    string `json:"theme"`

	// Max-age for the cached application shell, in seconds.
	ShellMaxAgeSec int `json:"shell_max_age_seconds"`
}

func Default() Config {
	return Config{
		Remote: Remote{
			APIBase:    "https://api.github.com",
			Branch:     "",
			TimeoutSec: 15,
		},
		Paths: Paths{
			Database: "data/gitpad.db",
			SealKey:  "data/seal.key",
		},
		Editor: Editor{
			AutosaveDebounceMs: 1000,
			Extensions:         []string{".md", ".mdx", ".markdown"},
		},
		Viewer: Viewer{
			HTTPAddr:       "127.0.0.1:7878",
			Debug:          false,
			Theme:          "dark",
			ShellMaxAgeSec: 86400,
		},
	}
}

func (c *Config) Validate() error {
	// Remote
	if err := validateAPIBase(c.Remote.APIBase); err != nil {
		return fmt.Errorf("remote.api_base: %w", err)
	}
	if c.Remote.TimeoutSec < 1 || c.Remote.TimeoutSec > 120 {
		return errors.New("remote.timeout_seconds must be 1..120")
	}

	// Paths
	if strings.TrimSpace(c.Paths.Database) == "" {
		return errors.New("paths.database is required")
	}
	if strings.TrimSpace(c.Paths.SealKey) == "" {
		return errors.New("paths.seal_key_file is required")
	}

	// Editor
	if c.Editor.AutosaveDebounceMs < 100 || c.Editor.AutosaveDebounceMs > 60000 {
		return errors.New("editor.autosave_debounce_ms must be 100..60000")
	}
	for _, ext := range c.Editor.Extensions {
		if !strings.HasPrefix(ext, ".") {
			return fmt.Errorf("editor.extensions entry %q must start with a dot", ext)
		}
	}

	// Viewer
	if strings.TrimSpace(c.Viewer.HTTPAddr) == "" {
		return errors.New("viewer.http_addr is required")
	}
	if c.Viewer.ShellMaxAgeSec < 0 {
		return errors.New("viewer.shell_max_age_seconds must be >= 0")
	}

	return nil
}

func validateAPIBase(raw string) error {
	if strings.TrimSpace(raw) == "" {
		return errors.New("required")
	}
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid url: %v", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return errors.New("scheme must be http or https")
	}
	if u.Host == "" {
		return errors.New("missing host")
	}
	return nil
}

func Load(path string) (Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}

	// Strip UTF-8 BOM if present (common when editing JSON on Windows).
	b = stripBOM(b)

	// Start from defaults so missing JSON fields remain initialized.
	cfg := Default()
	if err := json.Unmarshal(b, &cfg); err != nil {
		return Config{}, err
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// stripBOM removes a UTF-8 byte order mark if present.
func stripBOM(b []byte) []byte {
	if len(b) >= 3 && b[0] == 0xEF && b[1] == 0xBB && b[2] == 0xBF {
		return b[3:]
	}
	return b
}

func Save(path string, cfg Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	return util.WriteJSONFile(path, cfg)
}

// Ensure loads config if it exists; otherwise creates a default config file.
// Returns (cfg, createdNew, err).
func Ensure(path string) (Config, bool, error) {
	if _, err := os.Stat(path); err == nil {
		cfg, err := Load(path)
		return cfg, false, err
	} else if !os.IsNotExist(err) {
		return Config{}, false, err
	}

	cfg := Default()
	if err := Save(path, cfg); err != nil {
		return Config{}, false, fmt.Errorf("create default config: %w", err)
	}
	return cfg, true, nil
}
