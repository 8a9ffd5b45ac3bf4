// Package config loads gateway configuration from the environment plus an
// optional YAML file for per-source overrides. Environment wins over the
// file; built-in per-source defaults fill the rest.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/adliye/lexgate/legal"
	"github.com/adliye/lexgate/runtime/session"
)

// Recognized environment keys.
const (
	EnvConfigFile      = "LEXGATE_CONFIG"
	EnvEnableAuth      = "ENABLE_AUTH"
	EnvAuthToken       = "LEXGATE_AUTH_TOKEN"
	EnvAllowedOrigins  = "ALLOWED_ORIGINS"
	EnvWebSearchToken  = "LEXGATE_WEBSEARCH_TOKEN"
	EnvDisabledSources = "LEXGATE_DISABLED_SOURCES"
	EnvLogDir          = "LEXGATE_LOG_DIR"
)

type (
	// SourceOverride tunes one backend's client beyond the built-ins.
	SourceOverride struct {
		Timeout             time.Duration `yaml:"timeout"`
		InsecureSkipVerify  *bool         `yaml:"insecure_skip_verify"`
		LegacyRenegotiation *bool         `yaml:"legacy_renegotiation"`
		RatePerSecond       float64       `yaml:"rate_per_second"`
		MaxConcurrent       int64         `yaml:"max_concurrent"`
		MaxQueue            int64         `yaml:"max_queue"`
	}

	// Config is the resolved gateway configuration.
	Config struct {
		// EnableAuth toggles the external auth collaborator on the outer
		// transport. The core tools never see it.
		EnableAuth bool `yaml:"enable_auth"`
		// AuthToken is the bearer token the HTTP transport checks when
		// EnableAuth is set. Unused on stdio.
		AuthToken string `yaml:"auth_token"`
		// AllowedOrigins feeds CORS on the transport layer.
		AllowedOrigins []string `yaml:"allowed_origins"`
		// WebSearchToken authenticates against the external web-search API
		// serving the bddk and kvkk backends.
		WebSearchToken string `yaml:"websearch_token"`
		// DisabledSources are excluded from registration and health probing.
		DisabledSources []legal.SourceID `yaml:"disabled_sources"`
		// LogDir receives the rotated log files; empty logs to stderr only.
		LogDir string `yaml:"log_dir"`
		// Sources carries per-backend overrides keyed by source id.
		Sources map[legal.SourceID]SourceOverride `yaml:"sources"`
	}
)

// Load resolves configuration from the process environment and, when
// LEXGATE_CONFIG names a file, the YAML file underneath it.
func Load() (*Config, error) {
	cfg := &Config{Sources: map[legal.SourceID]SourceOverride{}}

	if path := os.Getenv(EnvConfigFile); path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(raw, cfg); err != nil {
			return nil, fmt.Errorf("parse config file %s: %w", path, err)
		}
		if cfg.Sources == nil {
			cfg.Sources = map[legal.SourceID]SourceOverride{}
		}
	}

	if v := os.Getenv(EnvEnableAuth); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return nil, fmt.Errorf("%s: %q is not a boolean", EnvEnableAuth, v)
		}
		cfg.EnableAuth = b
	}
	if v := os.Getenv(EnvAuthToken); v != "" {
		cfg.AuthToken = v
	}
	if v := os.Getenv(EnvAllowedOrigins); v != "" {
		cfg.AllowedOrigins = splitCSV(v)
	}
	if v := os.Getenv(EnvWebSearchToken); v != "" {
		cfg.WebSearchToken = v
	}
	if v := os.Getenv(EnvDisabledSources); v != "" {
		cfg.DisabledSources = nil
		for _, s := range splitCSV(v) {
			cfg.DisabledSources = append(cfg.DisabledSources, legal.SourceID(s))
		}
	}
	if v := os.Getenv(EnvLogDir); v != "" {
		cfg.LogDir = v
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate enforces the start-up invariants: every configured source id must
// be a registered backend, and the regulator backends cannot run without a
// web-search token.
func (c *Config) Validate() error {
	for id := range c.Sources {
		if !knownSource(id) {
			return fmt.Errorf("config names unknown source %q", id)
		}
	}
	for _, id := range c.DisabledSources {
		if !knownSource(id) {
			return fmt.Errorf("disabled_sources names unknown source %q", id)
		}
	}
	if c.WebSearchToken == "" {
		for _, id := range []legal.SourceID{legal.SourceBDDK, legal.SourceKVKK} {
			if c.SourceEnabled(id) {
				return fmt.Errorf("source %s requires %s or must be listed in %s", id, EnvWebSearchToken, EnvDisabledSources)
			}
		}
	}
	return nil
}

// SourceEnabled reports whether source should be registered.
func (c *Config) SourceEnabled(source legal.SourceID) bool {
	for _, id := range c.DisabledSources {
		if id == source {
			return false
		}
	}
	return true
}

// SessionConfig resolves the session pool configuration for source:
// built-in defaults overlaid with any file override.
func (c *Config) SessionConfig(source legal.SourceID) session.Config {
	cfg := builtinDefaults[source]
	o, ok := c.Sources[source]
	if !ok {
		return cfg
	}
	if o.Timeout > 0 {
		cfg.Timeout = o.Timeout
	}
	if o.InsecureSkipVerify != nil {
		cfg.TLS.InsecureSkipVerify = *o.InsecureSkipVerify
	}
	if o.LegacyRenegotiation != nil {
		cfg.TLS.LegacyRenegotiation = *o.LegacyRenegotiation
	}
	if o.RatePerSecond > 0 {
		cfg.RatePerSecond = o.RatePerSecond
	}
	if o.MaxConcurrent > 0 {
		cfg.MaxConcurrent = o.MaxConcurrent
	}
	if o.MaxQueue > 0 {
		cfg.MaxQueue = o.MaxQueue
	}
	return cfg
}

// builtinDefaults carries the per-backend stances that are facts about the
// backends, not deployment choices. The KİK legacy origin still requires
// legacy TLS renegotiation and cannot present a verifiable chain.
var builtinDefaults = map[legal.SourceID]session.Config{
	legal.SourceYargitay: {Timeout: 60 * time.Second},
	legal.SourceDanistay: {Timeout: 60 * time.Second},
	legal.SourceEmsal:    {Timeout: 60 * time.Second},
	legal.SourceUyusmazlik: {
		Timeout: 30 * time.Second,
		Profile: session.Profile{Referer: "https://kararlar.uyusmazlik.gov.tr/"},
	},
	legal.SourceAnayasa: {Timeout: 45 * time.Second},
	legal.SourceKIK: {
		Timeout: 60 * time.Second,
		TLS:     session.TLSPolicy{InsecureSkipVerify: true, LegacyRenegotiation: true},
		Profile: session.Profile{Referer: "https://ekap.kik.gov.tr/EKAP/"},
	},
	legal.SourceRekabet: {Timeout: 45 * time.Second},
	legal.SourceSayistay: {
		Timeout: 45 * time.Second,
		Profile: session.Profile{Origin: "https://www.sayistay.gov.tr"},
	},
	legal.SourceBDDK:     {Timeout: 30 * time.Second},
	legal.SourceKVKK:     {Timeout: 30 * time.Second},
	legal.SourceBedesten: {Timeout: 60 * time.Second, RatePerSecond: 5},
}

// AllSources lists every registered backend in a stable order.
func AllSources() []legal.SourceID {
	return []legal.SourceID{
		legal.SourceYargitay,
		legal.SourceDanistay,
		legal.SourceEmsal,
		legal.SourceUyusmazlik,
		legal.SourceAnayasa,
		legal.SourceKIK,
		legal.SourceRekabet,
		legal.SourceSayistay,
		legal.SourceBDDK,
		legal.SourceKVKK,
		legal.SourceBedesten,
	}
}

func knownSource(id legal.SourceID) bool {
	for _, s := range AllSources() {
		if s == id {
			return true
		}
	}
	return false
}

func splitCSV(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
