// Package config loads the gateway's runtime configuration. Loading a file
// from disk and reading environment variables are the external
// collaborators named in the core's scope; this package is a thin shell
// around the convo.CompressionConfig/credential data the core consumes.
package config

import (
	"encoding/json"
	"os"
	"strconv"

	"github.com/relaygate/gateway/internal/convo"
)

// Config is the gateway's top-level configuration.
type Config struct {
	Host string `json:"host"`
	Port int    `json:"port"`

	Region     string `json:"region"`
	AuthRegion string `json:"auth_region,omitempty"`
	APIRegion  string `json:"api_region,omitempty"`

	UpstreamBaseURL string `json:"upstream_base_url"`

	LoadBalancingMode string `json:"load_balancing_mode"` // priority | balanced
	CredentialRPM     int    `json:"credential_rpm,omitempty"`

	AdminAPIKey string `json:"admin_api_key,omitempty"`

	Compression convo.CompressionConfig `json:"compression"`

	configPath string
}

// EffectiveAuthRegion returns AuthRegion, falling back to Region.
func (c Config) EffectiveAuthRegion() string {
	if c.AuthRegion != "" {
		return c.AuthRegion
	}
	return c.Region
}

// EffectiveAPIRegion returns APIRegion, falling back to Region.
func (c Config) EffectiveAPIRegion() string {
	if c.APIRegion != "" {
		return c.APIRegion
	}
	return c.Region
}

// Default returns the gateway's zero-config defaults.
func Default() Config {
	return Config{
		Host:              "0.0.0.0",
		Port:              8080,
		Region:            "us-east-1",
		LoadBalancingMode: "priority",
		Compression:       convo.DefaultCompressionConfig(),
	}
}

// Load reads config from path, falling back to Default() when the file is
// absent, then applies RELAYGATE_* environment overrides on top. This
// mirrors the original Config::load behavior: a missing file is not an
// error, it just means "use the defaults".
func Load(path string) (Config, error) {
	cfg := Default()
	cfg.configPath = path

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case os.IsNotExist(err):
			// fall through to defaults
		case err != nil:
			return Config{}, err
		default:
			if err := json.Unmarshal(data, &cfg); err != nil {
				return Config{}, err
			}
			cfg.configPath = path
		}
	}

	applyEnvOverrides(&cfg)
	return cfg, nil
}

// applyEnvOverrides lets deployment environments override individual fields
// without editing the config file, the same "config field or env fallback"
// pattern the teacher's gateway provider uses for its API key.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("RELAYGATE_HOST"); v != "" {
		cfg.Host = v
	}
	if v := os.Getenv("RELAYGATE_PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			cfg.Port = p
		}
	}
	if v := os.Getenv("RELAYGATE_REGION"); v != "" {
		cfg.Region = v
	}
	if v := os.Getenv("RELAYGATE_UPSTREAM_BASE_URL"); v != "" {
		cfg.UpstreamBaseURL = v
	}
	if v := os.Getenv("RELAYGATE_LOAD_BALANCING_MODE"); v != "" {
		cfg.LoadBalancingMode = v
	}
	if v := os.Getenv("RELAYGATE_ADMIN_API_KEY"); v != "" {
		cfg.AdminAPIKey = v
	}
}

// Save serializes cfg back to its loaded path. Nothing in this module calls
// it.
func (c Config) Save() error {
	if c.configPath == "" {
		return nil
	}
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(c.configPath, data, 0o600)
}
