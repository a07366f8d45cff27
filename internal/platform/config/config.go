// Package config loads service configuration from defaults, an optional
// YAML file and QUICKCASE_ environment variables, in that order.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

const envPrefix = "QUICKCASE_"

type Config struct {
	Server   ServerConfig   `koanf:"server"`
	Database DatabaseConfig `koanf:"database"`
	Log      LogConfig      `koanf:"log"`
	Auth     AuthConfig     `koanf:"auth"`
	Audit    AuditConfig    `koanf:"audit"`
	CORS     CORSConfig     `koanf:"cors"`
	RBAC     RBACConfig     `koanf:"rbac"`
}

type AuthConfig struct {
	DevMode bool          `koanf:"devmode"`
	OIDC    OIDCConfig    `koanf:"oidc"`
	Dev     DevUserConfig `koanf:"dev"`
}

type OIDCConfig struct {
	IssuerURL        string       `koanf:"issuerurl"`
	Audience         string       `koanf:"audience"`
	JWKSURL          string       `koanf:"jwksurl"`
	Provider         string       `koanf:"provider"`
	JWKSCacheTTLSecs int          `koanf:"jwkscachettlsecs"`
	Claims           ClaimsConfig `koanf:"claims"`
}

// JWKSEndpoint returns the configured JWKS URL, defaulting to the issuer's
// well-known key set.
func (c OIDCConfig) JWKSEndpoint() string {
	if c.JWKSURL != "" {
		return c.JWKSURL
	}
	return strings.TrimSuffix(c.IssuerURL, "/") + "/.well-known/jwks.json"
}

// JWKSCacheTTL returns the key set cache lifetime.
func (c OIDCConfig) JWKSCacheTTL() time.Duration {
	return time.Duration(c.JWKSCacheTTLSecs) * time.Second
}

type ClaimsConfig struct {
	Names ClaimNamesConfig `koanf:"names"`
}

// ClaimNamesConfig overrides the claim keys read from tokens. Empty fields
// keep the provider's default.
type ClaimNamesConfig struct {
	Sub                 string `koanf:"sub"`
	Name                string `koanf:"name"`
	Email               string `koanf:"email"`
	Roles               string `koanf:"roles"`
	Organisations       string `koanf:"organisations"`
	DefaultJurisdiction string `koanf:"defaultjurisdiction"`
	DefaultCaseType     string `koanf:"defaultcasetype"`
	DefaultState        string `koanf:"defaultstate"`
}

// DevUserConfig describes the identity granted to the dev bearer token.
type DevUserConfig struct {
	Subject       string `koanf:"subject"`
	Email         string `koanf:"email"`
	Roles         string `koanf:"roles"`
	Organisations string `koanf:"organisations"`
}

type ServerConfig struct {
	Host                string `koanf:"host"`
	Port                int    `koanf:"port"`
	ShutdownTimeoutSecs int    `koanf:"shutdowntimeoutsecs"`
}

func (c ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

type DatabaseConfig struct {
	URL      string `koanf:"url"`
	MaxConns int    `koanf:"maxconns"`
}

type LogConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

type AuditConfig struct {
	BufferSize      int `koanf:"buffersize"`
	BatchSize       int `koanf:"batchsize"`
	FlushIntervalMs int `koanf:"flushintervalms"`
}

type CORSConfig struct {
	AllowedOrigins []string `koanf:"allowedorigins"`
}

// RBACConfig maps role names, as granted in token authorities, to
// permission strings. "*" grants every permission.
type RBACConfig struct {
	Roles map[string][]string `koanf:"roles"`
}

func Load(configPaths ...string) (*Config, error) {
	k := koanf.New(".")

	// Defaults
	_ = k.Load(confmap.Provider(map[string]any{
		"server.port":                8080,
		"server.host":                "0.0.0.0",
		"server.shutdowntimeoutsecs": 15,
		"database.maxconns":          10,
		"log.level":                  "info",
		"log.format":                 "json",
		"auth.devmode":               false,
		"auth.oidc.provider":         "quickcase",
		"auth.oidc.jwkscachettlsecs": 3600,
		"auth.dev.subject":           "dev-user",
		"auth.dev.email":             "dev@quickcase.app",
		"auth.dev.roles":             "quickcase-admin",
		"audit.buffersize":           4096,
		"audit.batchsize":            100,
		"audit.flushintervalms":      500,
	}, "."), nil)

	// YAML file (optional)
	for _, path := range configPaths {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			// Config file is optional, skip if not found
			continue
		}
	}

	// Environment variables override everything
	// QUICKCASE_AUTH_OIDC_ISSUERURL -> auth.oidc.issuerurl
	_ = k.Load(env.Provider(envPrefix, ".", func(s string) string {
		return strings.ReplaceAll(
			strings.ToLower(strings.TrimPrefix(s, envPrefix)),
			"_", ".",
		)
	}), nil)

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) validate() error {
	switch c.Auth.OIDC.Provider {
	case "quickcase", "cognito":
	default:
		return fmt.Errorf("auth.oidc.provider: unsupported provider %q", c.Auth.OIDC.Provider)
	}
	if c.Auth.OIDC.IssuerURL == "" && !c.Auth.DevMode {
		return fmt.Errorf("auth.oidc.issuerurl is required unless auth.devmode is set")
	}
	return nil
}
