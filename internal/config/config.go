// Package config loads server configuration from the environment, with an
// optional fileserver.jsonc file providing defaults. Environment variables
// always win.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Defaults applied when neither environment nor file sets a value.
const (
	DefaultPort           = 6789
	DefaultMaxFileSizeMB  = 10
	DefaultSearchWorkers  = 8
	DefaultRequestTimeout = 60 * time.Second
	DefaultSupervisorURL  = "http://supervisor"
)

// Config holds all server settings.
type Config struct {
	Port           int
	APIKey         string
	ReadOnly       bool
	MaxFileSize    int64 // bytes
	AllowedDirs    []string
	SearchWorkers  int
	RequestTimeout time.Duration
	DataDir        string

	SupervisorToken string
	SupervisorURL   string
}

// fileConfig mirrors the knobs a fileserver.jsonc file may set.
type fileConfig struct {
	Port                  *int     `json:"port"`
	APIKey                *string  `json:"api_key"`
	ReadOnly              *bool    `json:"read_only"`
	MaxFileSizeMB         *int     `json:"max_file_size_mb"`
	AllowedDirs           []string `json:"allowed_dirs"`
	SearchWorkers         *int     `json:"search_workers"`
	RequestTimeoutSeconds *int     `json:"request_timeout_seconds"`
	SupervisorURL         *string  `json:"supervisor_url"`
}

// Load reads configuration. The data dir is resolved first so the optional
// fileserver.jsonc next to the audit database can be found.
func Load() (*Config, error) {
	cfg := &Config{
		Port:           DefaultPort,
		MaxFileSize:    int64(DefaultMaxFileSizeMB) << 20,
		SearchWorkers:  DefaultSearchWorkers,
		RequestTimeout: DefaultRequestTimeout,
		SupervisorURL:  DefaultSupervisorURL,
		DataDir:        os.Getenv("MCP_DATA_DIR"),
	}

	if cfg.DataDir != "" {
		if err := cfg.applyFile(filepath.Join(cfg.DataDir, "fileserver.jsonc")); err != nil {
			return nil, err
		}
	}
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}

	if len(cfg.AllowedDirs) == 0 {
		return nil, fmt.Errorf("no allowed directories configured: set MCP_ALLOWED_DIRS")
	}
	if cfg.Port < 1 || cfg.Port > 65535 {
		return nil, fmt.Errorf("invalid port %d", cfg.Port)
	}
	if cfg.SearchWorkers < 1 {
		return nil, fmt.Errorf("search workers must be at least 1, got %d", cfg.SearchWorkers)
	}

	return cfg, nil
}

// applyFile merges settings from a fileserver.jsonc file. A missing file is
// not an error.
func (c *Config) applyFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to read config file: %w", err)
	}

	var fc fileConfig
	if err := json.Unmarshal(StripJSONComments(data), &fc); err != nil {
		return fmt.Errorf("failed to parse %s: %w", path, err)
	}

	if fc.Port != nil {
		c.Port = *fc.Port
	}
	if fc.APIKey != nil {
		c.APIKey = *fc.APIKey
	}
	if fc.ReadOnly != nil {
		c.ReadOnly = *fc.ReadOnly
	}
	if fc.MaxFileSizeMB != nil {
		c.MaxFileSize = int64(*fc.MaxFileSizeMB) << 20
	}
	if len(fc.AllowedDirs) > 0 {
		c.AllowedDirs = fc.AllowedDirs
	}
	if fc.SearchWorkers != nil {
		c.SearchWorkers = *fc.SearchWorkers
	}
	if fc.RequestTimeoutSeconds != nil {
		c.RequestTimeout = time.Duration(*fc.RequestTimeoutSeconds) * time.Second
	}
	if fc.SupervisorURL != nil {
		c.SupervisorURL = *fc.SupervisorURL
	}
	return nil
}

func (c *Config) applyEnv() error {
	if v := os.Getenv("MCP_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid MCP_PORT %q: %w", v, err)
		}
		c.Port = port
	}
	if v := os.Getenv("MCP_API_KEY"); v != "" {
		c.APIKey = v
	}
	if v := os.Getenv("MCP_READ_ONLY"); v != "" {
		readOnly, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid MCP_READ_ONLY %q: %w", v, err)
		}
		c.ReadOnly = readOnly
	}
	if v := os.Getenv("MCP_MAX_FILE_SIZE_MB"); v != "" {
		mb, err := strconv.Atoi(v)
		if err != nil || mb < 1 {
			return fmt.Errorf("invalid MCP_MAX_FILE_SIZE_MB %q", v)
		}
		c.MaxFileSize = int64(mb) << 20
	}
	if v := os.Getenv("MCP_ALLOWED_DIRS"); v != "" {
		dirs, err := ParseAllowedDirs(v)
		if err != nil {
			return err
		}
		c.AllowedDirs = dirs
	}
	if v := os.Getenv("MCP_SEARCH_WORKERS"); v != "" {
		workers, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid MCP_SEARCH_WORKERS %q: %w", v, err)
		}
		c.SearchWorkers = workers
	}
	if v := os.Getenv("MCP_REQUEST_TIMEOUT_SECONDS"); v != "" {
		secs, err := strconv.Atoi(v)
		if err != nil || secs < 1 {
			return fmt.Errorf("invalid MCP_REQUEST_TIMEOUT_SECONDS %q", v)
		}
		c.RequestTimeout = time.Duration(secs) * time.Second
	}
	if v := os.Getenv("SUPERVISOR_TOKEN"); v != "" {
		c.SupervisorToken = v
	}
	if v := os.Getenv("SUPERVISOR_URL"); v != "" {
		c.SupervisorURL = v
	}
	return nil
}

// ParseAllowedDirs accepts either a JSON array of paths or a
// newline-separated list.
func ParseAllowedDirs(raw string) ([]string, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return nil, nil
	}

	if strings.HasPrefix(trimmed, "[") {
		var dirs []string
		if err := json.Unmarshal([]byte(trimmed), &dirs); err != nil {
			return nil, fmt.Errorf("invalid MCP_ALLOWED_DIRS JSON: %w", err)
		}
		return compactDirs(dirs), nil
	}

	return compactDirs(strings.Split(trimmed, "\n")), nil
}

func compactDirs(dirs []string) []string {
	var out []string
	for _, d := range dirs {
		d = strings.TrimSpace(d)
		if d != "" {
			out = append(out, d)
		}
	}
	return out
}

// HasSupervisor reports whether the Supervisor integration is available.
func (c *Config) HasSupervisor() bool {
	return c.SupervisorToken != ""
}

// AuditEnabled reports whether audit recording is configured.
func (c *Config) AuditEnabled() bool {
	return c.DataDir != ""
}
