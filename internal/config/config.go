// Package config loads and validates cissync connection settings.
package config

import (
	"fmt"
	"os"
	"strings"

	"sigs.k8s.io/yaml"
)

// CentralSettings holds the RHACS Central connection parameters.
type CentralSettings struct {
	CentralURL            string `json:"central_url"`
	APIToken              string `json:"api_token"`
	APITokenFile          string `json:"api_token_file"`
	SOCKS5Proxy           string `json:"socks5_proxy"`
	InsecureSkipTLSVerify bool   `json:"insecure_skip_tls_verify"` // default true; Central ships with self-signed certs
}

// PolicySettings controls which bundle is synced and how duplicates are handled.
type PolicySettings struct {
	ConfigFile   string `json:"config_file"`
	SkipExisting bool   `json:"skip_existing"`
}

// LoggingSettings selects the slog handler.
type LoggingSettings struct {
	Level  string `json:"level"`  // debug, info, warn, error
	Format string `json:"format"` // text, json
}

// WebhookConfig describes a single notification target.
type WebhookConfig struct {
	Type   string `json:"type"` // slack, generic
	URL    string `json:"url"`
	APIKey string `json:"api_key"`
}

// NotificationConfig enables post-run webhook notifications.
type NotificationConfig struct {
	Enabled  bool            `json:"enabled"`
	Webhooks []WebhookConfig `json:"webhooks"`
}

// MetricsSettings enables a Pushgateway push after each run.
type MetricsSettings struct {
	PushgatewayURL string `json:"pushgateway_url"`
	Job            string `json:"job"`
}

// HistorySettings enables the local SQLite run history.
type HistorySettings struct {
	Enabled bool   `json:"enabled"`
	Path    string `json:"path"`
}

// Settings is the full cissync settings file.
type Settings struct {
	Central       CentralSettings    `json:"rhacs"`
	Policies      PolicySettings     `json:"policies"`
	Logging       LoggingSettings    `json:"logging"`
	Notifications NotificationConfig `json:"notifications"`
	Metrics       MetricsSettings    `json:"metrics"`
	History       HistorySettings    `json:"history"`
}

// Defaults returns Settings with sane defaults.
func Defaults() *Settings {
	return &Settings{
		Central: CentralSettings{
			InsecureSkipTLSVerify: true,
		},
		Policies: PolicySettings{
			ConfigFile:   "cis_policies.json",
			SkipExisting: true,
		},
		Logging: LoggingSettings{
			Level:  "info",
			Format: "text",
		},
		Metrics: MetricsSettings{
			Job: "cissync",
		},
		History: HistorySettings{
			Path: "cissync-history.db",
		},
	}
}

// Load reads a settings file (JSON or YAML) and merges it with defaults.
// The API token may come from api_token, api_token_file, or ROX_API_TOKEN,
// in that order of precedence.
func Load(path string) (*Settings, error) {
	s, err := LoadPartial(path)
	if err != nil {
		return nil, err
	}
	if err := s.resolveToken(); err != nil {
		return nil, err
	}
	if err := s.Validate(); err != nil {
		return nil, fmt.Errorf("settings validation: %w", err)
	}
	return s, nil
}

// LoadPartial reads and merges a settings file over defaults without
// resolving the token or validating. Callers that obtain connection details
// from another source (for example in-cluster discovery) fill them in and
// validate afterwards. An empty path returns plain defaults.
func LoadPartial(path string) (*Settings, error) {
	s := Defaults()
	if path == "" {
		return s, nil
	}
	b, err := os.ReadFile(path) //nolint:gosec // user-provided settings path
	if err != nil {
		return nil, err
	}
	if err := yaml.Unmarshal(b, s); err != nil {
		return nil, fmt.Errorf("parsing settings: %w", err)
	}
	return s, nil
}

// ResolveToken fills Central.APIToken from api_token_file or ROX_API_TOKEN
// when it is not set directly.
func (s *Settings) ResolveToken() error {
	return s.resolveToken()
}

func (s *Settings) resolveToken() error {
	if s.Central.APIToken != "" {
		return nil
	}
	if s.Central.APITokenFile != "" {
		b, err := os.ReadFile(s.Central.APITokenFile) //nolint:gosec // user-provided token path
		if err != nil {
			return fmt.Errorf("reading api_token_file: %w", err)
		}
		s.Central.APIToken = strings.TrimSpace(string(b))
		return nil
	}
	s.Central.APIToken = strings.TrimSpace(os.Getenv("ROX_API_TOKEN"))
	return nil
}

// Validate checks that required settings are present and well-formed.
func (s *Settings) Validate() error {
	if s.Central.CentralURL == "" {
		return fmt.Errorf("rhacs.central_url must be set")
	}
	if s.Central.APIToken == "" {
		return fmt.Errorf("rhacs.api_token must be set (directly, via api_token_file, or ROX_API_TOKEN)")
	}
	if s.Policies.ConfigFile == "" {
		return fmt.Errorf("policies.config_file must not be empty")
	}
	switch s.Logging.Level {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be debug, info, warn, or error, got %q", s.Logging.Level)
	}
	switch s.Logging.Format {
	case "", "text", "json":
	default:
		return fmt.Errorf("logging.format must be text or json, got %q", s.Logging.Format)
	}
	for i := range s.Notifications.Webhooks {
		if s.Notifications.Webhooks[i].URL == "" {
			return fmt.Errorf("notifications.webhooks[%d].url must not be empty", i)
		}
	}
	return nil
}
