// Copyright 2026 The Debuginfod Go Authors
// SPDX-License-Identifier: Apache-2.0

// Package config resolves the module's two external inputs — the
// server list and the cache root — along with the optional transfer
// limits, from the standard debuginfod environment variables or from
// a single explicit YAML file.
//
// Environment variables (the debuginfod conventions honored by the
// reference C client):
//
//   - DEBUGINFOD_URLS — server base URLs, separated by spaces or
//     commas, in decreasing priority order
//   - DEBUGINFOD_CACHE_PATH — cache directory; defaults to
//     debuginfod_client under the user cache directory
//     ($XDG_CACHE_HOME, falling back to $HOME/.cache)
//   - DEBUGINFOD_TIMEOUT — per-request timeout in seconds
//   - DEBUGINFOD_MAXSIZE — maximum artifact size in bytes
//
// [LoadFile] reads the same settings from one YAML file. There is no
// search path and no discovery: callers name the file explicitly, and
// environment variables win over file values via [Merge].
//
// An empty server list is not an error here. Debuginfod is
// conventionally disabled by leaving DEBUGINFOD_URLS unset, so
// whether an empty list means "feature off" or "failure" is the
// caller's decision (see [ErrNoServers]).
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Environment variable names.
const (
	EnvURLs      = "DEBUGINFOD_URLS"
	EnvCachePath = "DEBUGINFOD_CACHE_PATH"
	EnvTimeout   = "DEBUGINFOD_TIMEOUT"
	EnvMaxSize   = "DEBUGINFOD_MAXSIZE"
)

// cacheSubdir is the directory name under the user cache directory,
// shared with other debuginfod-aware programs.
const cacheSubdir = "debuginfod_client"

// ErrNoServers is returned by consumers of a Config whose server
// list is empty.
var ErrNoServers = errors.New("debuginfod: no servers configured")

// Config carries the resolved configuration.
type Config struct {
	// Servers is the ordered list of server base URLs. The first
	// entry has the highest priority.
	Servers []string

	// CacheDir is the cache root directory.
	CacheDir string

	// Timeout bounds each HTTP request end to end. Zero means no
	// limit beyond the transport's own.
	Timeout time.Duration

	// MaxSize bounds the size of a single cached artifact in
	// bytes. Zero means unbounded.
	MaxSize int64
}

// FromEnv resolves configuration from the environment. Unset
// variables produce zero values (and the default cache directory);
// set-but-malformed numeric variables are an error.
func FromEnv() (Config, error) {
	config := Config{
		Servers: SplitServerList(os.Getenv(EnvURLs)),
	}

	config.CacheDir = os.Getenv(EnvCachePath)
	if config.CacheDir == "" {
		userCache, err := os.UserCacheDir()
		if err != nil {
			return Config{}, fmt.Errorf("resolving default cache directory: %w", err)
		}
		config.CacheDir = filepath.Join(userCache, cacheSubdir)
	}

	if raw := os.Getenv(EnvTimeout); raw != "" {
		seconds, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || seconds < 0 {
			return Config{}, fmt.Errorf("%s=%q is not a non-negative number of seconds", EnvTimeout, raw)
		}
		config.Timeout = time.Duration(seconds) * time.Second
	}

	if raw := os.Getenv(EnvMaxSize); raw != "" {
		maxSize, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || maxSize < 0 {
			return Config{}, fmt.Errorf("%s=%q is not a non-negative byte count", EnvMaxSize, raw)
		}
		config.MaxSize = maxSize
	}

	return config, nil
}

// SplitServerList splits a DEBUGINFOD_URLS-style value on spaces and
// commas, dropping empty elements. Order is preserved.
func SplitServerList(value string) []string {
	fields := strings.FieldsFunc(value, func(r rune) bool {
		return r == ' ' || r == ',' || r == '\t' || r == '\n'
	})
	servers := make([]string, 0, len(fields))
	for _, field := range fields {
		if trimmed := strings.TrimSpace(field); trimmed != "" {
			servers = append(servers, trimmed)
		}
	}
	return servers
}

// fileConfig is the YAML shape of a settings file.
type fileConfig struct {
	URLs     []string `yaml:"urls"`
	CacheDir string   `yaml:"cache_dir"`
	Timeout  string   `yaml:"timeout"`
	MaxSize  int64    `yaml:"max_size"`
}

// LoadFile reads configuration from a single YAML file. Unknown keys
// are rejected. The timeout field accepts Go duration syntax ("90s",
// "2m").
func LoadFile(path string) (Config, error) {
	file, err := os.Open(path)
	if err != nil {
		return Config{}, fmt.Errorf("opening config file: %w", err)
	}
	defer file.Close()

	decoder := yaml.NewDecoder(file)
	decoder.KnownFields(true)

	var raw fileConfig
	if err := decoder.Decode(&raw); err != nil {
		return Config{}, fmt.Errorf("parsing config file %s: %w", path, err)
	}
	if raw.MaxSize < 0 {
		return Config{}, fmt.Errorf("config file %s: max_size must be non-negative", path)
	}

	config := Config{
		Servers:  raw.URLs,
		CacheDir: raw.CacheDir,
		MaxSize:  raw.MaxSize,
	}
	if raw.Timeout != "" {
		timeout, err := time.ParseDuration(raw.Timeout)
		if err != nil || timeout < 0 {
			return Config{}, fmt.Errorf("config file %s: invalid timeout %q", path, raw.Timeout)
		}
		config.Timeout = timeout
	}
	return config, nil
}

// Merge overlays override onto base: any field set in override wins.
// Used to give environment variables precedence over file settings.
func Merge(base, override Config) Config {
	merged := base
	if len(override.Servers) > 0 {
		merged.Servers = override.Servers
	}
	if override.CacheDir != "" {
		merged.CacheDir = override.CacheDir
	}
	if override.Timeout != 0 {
		merged.Timeout = override.Timeout
	}
	if override.MaxSize != 0 {
		merged.MaxSize = override.MaxSize
	}
	return merged
}
