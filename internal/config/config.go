// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Parlor Contributors

// Package config loads the server configuration from defaults, an optional
// YAML file, command-line flags and a few secret-bearing environment
// variables, in that order of precedence.
package config

import (
	"errors"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/samber/oops"
	"github.com/spf13/pflag"

	"github.com/parlor/parlor/internal/session"
)

// Environment variables read after every other source.
const (
	EnvDatabaseURL   = "DATABASE_URL"
	EnvSessionSecret = "PARLOR_SESSION_SECRET"
	EnvSMTPPassword  = "PARLOR_SMTP_PASSWORD"
)

// Store drivers.
const (
	StorePostgres = "postgres"
	StoreMemory   = "memory"
)

// Mail drivers.
const (
	MailSMTP = "smtp"
	MailLog  = "log"
)

// Config is the full server configuration.
type Config struct {
	HTTP      HTTPConfig      `koanf:"http"`
	Metrics   MetricsConfig   `koanf:"metrics"`
	Log       LogConfig       `koanf:"log"`
	App       AppConfig       `koanf:"app"`
	Store     StoreConfig     `koanf:"store"`
	Database  DatabaseConfig  `koanf:"database"`
	Session   SessionConfig   `koanf:"session"`
	Tokens    TokensConfig    `koanf:"tokens"`
	Hash      HashConfig      `koanf:"hash"`
	Mail      MailConfig      `koanf:"mail"`
	RateLimit RateLimitConfig `koanf:"ratelimit"`
}

// HTTPConfig configures the public listener.
type HTTPConfig struct {
	Addr            string        `koanf:"addr" validate:"required,hostname_port"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout" validate:"gt=0"`
}

// MetricsConfig configures the observability listener. An empty address
// disables it.
type MetricsConfig struct {
	Addr string `koanf:"addr" validate:"omitempty,hostname_port"`
}

// LogConfig configures the default logger.
type LogConfig struct {
	Format string `koanf:"format" validate:"oneof=json text"`
	Level  string `koanf:"level" validate:"oneof=debug info warn error"`
}

// AppConfig holds values shared by several components.
type AppConfig struct {
	// Origin is the public base URL used in mailed links.
	Origin string `koanf:"origin" validate:"required,url"`
}

// StoreConfig selects the persistence backend.
type StoreConfig struct {
	Driver string `koanf:"driver" validate:"oneof=postgres memory"`
}

// DatabaseConfig configures the PostgreSQL pool.
type DatabaseConfig struct {
	URL            string `koanf:"url"`
	ConnectRetries uint64 `koanf:"connect_retries"`
	// AutoMigrate applies pending migrations before serving.
	AutoMigrate bool `koanf:"auto_migrate"`
}

// SessionConfig configures access and refresh token signing.
type SessionConfig struct {
	Secret     string        `koanf:"secret" validate:"required,min=32"`
	Issuer     string        `koanf:"issuer"`
	AccessTTL  time.Duration `koanf:"access_ttl" validate:"gt=0"`
	RefreshTTL time.Duration `koanf:"refresh_ttl" validate:"gtfield=AccessTTL"`
}

// TokensConfig sets how long mailed tokens stay valid.
type TokensConfig struct {
	VerifyTTL time.Duration `koanf:"verify_ttl" validate:"gt=0"`
	ResetTTL  time.Duration `koanf:"reset_ttl" validate:"gt=0"`
}

// HashConfig holds argon2id cost parameters. Zero values use the hasher's
// defaults.
type HashConfig struct {
	Time      uint32 `koanf:"time"`
	MemoryKiB uint32 `koanf:"memory_kib"`
	Threads   uint8  `koanf:"threads"`
}

// MailConfig selects and configures the mail gateway.
type MailConfig struct {
	Driver string     `koanf:"driver" validate:"oneof=smtp log"`
	From   string     `koanf:"from" validate:"required,email"`
	SMTP   SMTPConfig `koanf:"smtp"`
}

// SMTPConfig configures the SMTP relay.
type SMTPConfig struct {
	Host     string `koanf:"host"`
	Port     int    `koanf:"port" validate:"gte=1,lte=65535"`
	Username string `koanf:"username"`
	Password string `koanf:"password"`
	Retries  uint64 `koanf:"retries"`
}

// RateLimitConfig configures per-address limiting of login, registration
// and reset requests.
type RateLimitConfig struct {
	Enabled bool    `koanf:"enabled"`
	Burst   int     `koanf:"burst" validate:"gte=0"`
	Rate    float64 `koanf:"rate" validate:"gte=0"`
}

// Default values.
const (
	DefaultHTTPAddr        = ":8080"
	DefaultMetricsAddr     = "127.0.0.1:9100"
	DefaultShutdownTimeout = 10 * time.Second
	DefaultOrigin          = "http://localhost:8080"
	DefaultAccessTTL       = 15 * time.Minute
	DefaultRefreshTTL      = 7 * 24 * time.Hour
	DefaultVerifyTTL       = 24 * time.Hour
	DefaultResetTTL        = time.Hour
	DefaultConnectRetries  = 5
	DefaultMailFrom        = "no-reply@parlor.local"
	DefaultSMTPPort        = 587
	DefaultSMTPRetries     = 2
)

// Default returns the configuration used when nothing else is set.
func Default() Config {
	return Config{
		HTTP:     HTTPConfig{Addr: DefaultHTTPAddr, ShutdownTimeout: DefaultShutdownTimeout},
		Metrics:  MetricsConfig{Addr: DefaultMetricsAddr},
		Log:      LogConfig{Format: "json", Level: "info"},
		App:      AppConfig{Origin: DefaultOrigin},
		Store:    StoreConfig{Driver: StorePostgres},
		Database: DatabaseConfig{ConnectRetries: DefaultConnectRetries},
		Session:  SessionConfig{Issuer: "parlor", AccessTTL: DefaultAccessTTL, RefreshTTL: DefaultRefreshTTL},
		Tokens:   TokensConfig{VerifyTTL: DefaultVerifyTTL, ResetTTL: DefaultResetTTL},
		Mail: MailConfig{
			Driver: MailLog,
			From:   DefaultMailFrom,
			SMTP:   SMTPConfig{Port: DefaultSMTPPort, Retries: DefaultSMTPRetries},
		},
		RateLimit: RateLimitConfig{Enabled: true},
	}
}

// defaults flattens Default into koanf keys.
func defaults() map[string]any {
	d := Default()
	return map[string]any{
		"http.addr":                d.HTTP.Addr,
		"http.shutdown_timeout":    d.HTTP.ShutdownTimeout,
		"metrics.addr":             d.Metrics.Addr,
		"log.format":               d.Log.Format,
		"log.level":                d.Log.Level,
		"app.origin":               d.App.Origin,
		"store.driver":             d.Store.Driver,
		"database.url":             d.Database.URL,
		"database.connect_retries": d.Database.ConnectRetries,
		"database.auto_migrate":    d.Database.AutoMigrate,
		"session.secret":           d.Session.Secret,
		"session.issuer":           d.Session.Issuer,
		"session.access_ttl":       d.Session.AccessTTL,
		"session.refresh_ttl":      d.Session.RefreshTTL,
		"tokens.verify_ttl":        d.Tokens.VerifyTTL,
		"tokens.reset_ttl":         d.Tokens.ResetTTL,
		"hash.time":                d.Hash.Time,
		"hash.memory_kib":          d.Hash.MemoryKiB,
		"hash.threads":             d.Hash.Threads,
		"mail.driver":              d.Mail.Driver,
		"mail.from":                d.Mail.From,
		"mail.smtp.host":           d.Mail.SMTP.Host,
		"mail.smtp.port":           d.Mail.SMTP.Port,
		"mail.smtp.username":       d.Mail.SMTP.Username,
		"mail.smtp.password":       d.Mail.SMTP.Password,
		"mail.smtp.retries":        d.Mail.SMTP.Retries,
		"ratelimit.enabled":        d.RateLimit.Enabled,
		"ratelimit.burst":          d.RateLimit.Burst,
		"ratelimit.rate":           d.RateLimit.Rate,
	}
}

// Sources lists where Load reads from. Every field is optional.
type Sources struct {
	// File is a YAML file path.
	File string
	// Flags are command-line flags named after their key with dashes for
	// dots (--http-addr sets http.addr). Only changed flags override the
	// file.
	Flags *pflag.FlagSet
	// Getenv defaults to os.Getenv.
	Getenv func(string) string
}

// FlagKey maps a flag name to its configuration key.
func FlagKey(name string) string {
	return strings.ReplaceAll(name, "-", ".")
}

// BindFlags registers the flags serve exposes, with the same defaults as
// Default.
func BindFlags(fs *pflag.FlagSet) {
	d := Default()
	fs.String("http-addr", d.HTTP.Addr, "public HTTP listen address")
	fs.String("metrics-addr", d.Metrics.Addr, "metrics and health listen address (empty disables)")
	fs.String("log-format", d.Log.Format, "log format (json or text)")
	fs.String("log-level", d.Log.Level, "log level (debug, info, warn, error)")
	fs.String("store-driver", d.Store.Driver, "persistence backend (postgres or memory)")
	fs.String("app-origin", d.App.Origin, "public base URL used in mailed links")
}

// Load builds and validates a Config.
func Load(src Sources) (Config, error) {
	k, err := load(src)
	if err != nil {
		return Config{}, err
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return Config{}, oops.Code("CONFIG_INVALID").With("operation", "decode").Wrap(err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// LoadDatabase reads only the database section, for commands that never
// start the API. The URL is required.
func LoadDatabase(src Sources) (DatabaseConfig, error) {
	k, err := load(src)
	if err != nil {
		return DatabaseConfig{}, err
	}

	var db DatabaseConfig
	if err := k.Unmarshal("database", &db); err != nil {
		return DatabaseConfig{}, oops.Code("CONFIG_INVALID").With("operation", "decode").Wrap(err)
	}
	if db.URL == "" {
		return DatabaseConfig{}, oops.Code("CONFIG_INVALID").
			With("key", "database.url").
			Errorf("%s environment variable or database.url is required", EnvDatabaseURL)
	}
	return db, nil
}

func load(src Sources) (*koanf.Koanf, error) {
	k := koanf.New(".")

	for key, value := range defaults() {
		if err := k.Set(key, value); err != nil {
			return nil, oops.Code("CONFIG_INVALID").With("key", key).Wrap(err)
		}
	}

	if src.File != "" {
		if err := k.Load(file.Provider(src.File), yaml.Parser()); err != nil {
			return nil, oops.Code("CONFIG_LOAD_FAILED").With("file", src.File).Wrap(err)
		}
	}

	if src.Flags != nil {
		provider := posflag.ProviderWithFlag(src.Flags, ".", k, func(f *pflag.Flag) (string, any) {
			key := FlagKey(f.Name)
			if !f.Changed || !k.Exists(key) {
				return "", nil
			}
			return key, posflag.FlagVal(src.Flags, f)
		})
		if err := k.Load(provider, nil); err != nil {
			return nil, oops.Code("CONFIG_LOAD_FAILED").With("source", "flags").Wrap(err)
		}
	}

	getenv := src.Getenv
	if getenv == nil {
		getenv = os.Getenv
	}
	for env, key := range map[string]string{
		EnvDatabaseURL:   "database.url",
		EnvSessionSecret: "session.secret",
		EnvSMTPPassword:  "mail.smtp.password",
	} {
		if v := getenv(env); v != "" {
			if err := k.Set(key, v); err != nil {
				return nil, oops.Code("CONFIG_INVALID").With("env", env).Wrap(err)
			}
		}
	}
	return k, nil
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks field constraints and the rules that span sections.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return oops.Code("CONFIG_INVALID").With("fields", fieldErrors(err)).Wrap(err)
	}
	if c.Store.Driver == StorePostgres && c.Database.URL == "" {
		return oops.Code("CONFIG_INVALID").
			With("key", "database.url").
			Errorf("%s or database.url is required for the postgres store", EnvDatabaseURL)
	}
	if c.Mail.Driver == MailSMTP && c.Mail.SMTP.Host == "" {
		return oops.Code("CONFIG_INVALID").
			With("key", "mail.smtp.host").
			Errorf("mail.smtp.host is required for the smtp mail driver")
	}
	if len(c.Session.Secret) < session.MinSecretLength {
		return oops.Code("CONFIG_INVALID").
			With("key", "session.secret").
			Errorf("session secret must be at least %d bytes", session.MinSecretLength)
	}
	return nil
}

func fieldErrors(err error) []string {
	var out []string
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		for _, fe := range verrs {
			out = append(out, fe.Namespace()+":"+fe.Tag())
		}
	}
	return out
}
