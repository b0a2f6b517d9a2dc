// Package config implements QuicPulse's layered configuration load (spec
// §6.2): TOML at <config-dir>/config.toml, loaded through rakunlabs/chu the
// same way the teacher loads its own config.go, with an environment
// variable overlay and optional vault://<path>#<field> / consul://<key>
// secret resolution via chu's external loaders.
package config

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "github.com/rakunlabs/chu/loader/external/loaderconsul"
	_ "github.com/rakunlabs/chu/loader/external/loadervault"
	"github.com/rakunlabs/chu"
	"github.com/rakunlabs/chu/loader/loaderenv"
	"github.com/rakunlabs/logi"
	"github.com/rakunlabs/tell"
)

// Config is the root of <config-dir>/config.toml.
type Config struct {
	LogLevel string `cfg:"log_level,no_prefix" default:"info"`

	// Defaults is the [defaults] table (spec §6.2): values applied to every
	// invocation unless overridden on the command line.
	Defaults Defaults `cfg:"defaults"`

	// Hooks is the [hooks] table: script file paths run at fixed lifecycle
	// points, resolved relative to the config dir, independent of any one
	// workflow's own pre_script/post_script.
	Hooks Hooks `cfg:"hooks"`

	// Server configures the OAuth2 loopback callback listener (spec §4.1.5).
	Server Server `cfg:"server"`

	// History configures the run-history store (spec §6.1 SUPPLEMENT).
	History History `cfg:"history"`

	Security Security `cfg:"security"`

	// Notify is the [notify] table: sink credentials shared by every
	// workflow's `notify:` targets (SUPPLEMENT, spec §3).
	Notify Notify `cfg:"notify"`

	Telemetry tell.Config `cfg:"telemetry,noprefix"`
}

// Defaults is the [defaults] table.
//
// Example TOML:
//
//	[defaults]
//	base_url = "https://api.example.com"
//	timeout = "30s"
//	verify = "yes"
//	follow = true
//	max_redirects = 10
//
//	[defaults.headers]
//	User-Agent = "quicpulse/1.0"
//
//	[defaults.proxy]
//	https = "http://proxy.example.com:8080"
type Defaults struct {
	BaseURL      string            `cfg:"base_url"`
	Headers      map[string]string `cfg:"headers"`
	Timeout      time.Duration     `cfg:"timeout" default:"30s"`
	Verify       string            `cfg:"verify" default:"yes"`
	Follow       bool              `cfg:"follow"`
	MaxRedirects int               `cfg:"max_redirects" default:"10"`
	HTTPVersion  string            `cfg:"http_version"`

	// Proxy maps a protocol ("http", "https", "all") to a proxy URL,
	// mirroring the repeatable `--proxy PROTO:URL` CLI flag (spec §6.1).
	Proxy map[string]string `cfg:"proxy"`

	// Auth is a default "user:pass" or bearer token applied when a request
	// specifies no --auth of its own.
	Auth     string `cfg:"auth" log:"-"`
	AuthType string `cfg:"auth_type"`
}

// Hooks is the [hooks] table. Paths are relative to the config dir.
type Hooks struct {
	PreRequest   string `cfg:"pre_request"`
	PostResponse string `cfg:"post_response"`
}

// Server configures the OAuth2 loopback callback listener.
type Server struct {
	Host string `cfg:"host" default:"127.0.0.1"`
	Port string `cfg:"port" default:"0"` // "0" = OS-assigned ephemeral port
}

// History configures the HistoryStore backend (SUPPLEMENT, spec §6.1).
type History struct {
	Driver     string `cfg:"driver" default:"sqlite"` // "sqlite" | "postgres"
	Datasource string `cfg:"datasource" log:"-"`
}

// Security configures at-rest encryption of session files (spec §6.2),
// adapted from the teacher's provider-config encryption key.
type Security struct {
	// EncryptionKey, if set, enables AES-256-GCM encryption of session auth
	// headers and cookie values via internal/crypto.EncryptSession. Any
	// non-empty string works; it is SHA-256-derived to 32 bytes internally.
	EncryptionKey string `cfg:"encryption_key" log:"-"`
}

// Notify carries the shared credentials a NotifyTarget needs to actually
// deliver (spec §3 SUPPLEMENT): a workflow's `notify:` entries only name the
// destination (webhook URL, chat ID, recipient address); the bot token / SMTP
// server they travel through is account-wide, not per-workflow.
type Notify struct {
	TelegramBotToken string `cfg:"telegram_bot_token" log:"-"`

	SMTPHost     string `cfg:"smtp_host"`
	SMTPPort     int    `cfg:"smtp_port" default:"587"`
	SMTPUsername string `cfg:"smtp_username"`
	SMTPPassword string `cfg:"smtp_password" log:"-"`
	SMTPFrom     string `cfg:"smtp_from"`
}

// Load reads <path> (or <config-dir>/config.toml when path is empty) into a
// Config, applies the QP_-prefixed environment overlay, and sets the
// process log level.
func Load(ctx context.Context, path string) (*Config, error) {
	if path == "" {
		dir, err := Dir()
		if err != nil {
			return nil, fmt.Errorf("resolve config dir: %w", err)
		}
		path = filepath.Join(dir, "config.toml")
	}

	var cfg Config
	if err := chu.Load(ctx, path, &cfg, chu.WithLoaderOption(loaderenv.New(loaderenv.WithPrefix("QP_")))); err != nil {
		return nil, err
	}

	if err := logi.SetLogLevel(cfg.LogLevel); err != nil {
		return nil, fmt.Errorf("set log level %s: %w", cfg.LogLevel, err)
	}

	slog.Info("loaded configuration", "config", chu.MarshalMap(cfg))

	return &cfg, nil
}

// Dir returns the QuicPulse config directory, creating it if it doesn't
// exist: $QUICPULSE_CONFIG_DIR if set, else <user-config-dir>/quicpulse.
// No ecosystem library in the pack improves on os.UserConfigDir for this.
func Dir() (string, error) {
	if v := os.Getenv("QUICPULSE_CONFIG_DIR"); v != "" {
		return v, ensureDir(v)
	}
	base, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	dir := filepath.Join(base, "quicpulse")
	return dir, ensureDir(dir)
}

func ensureDir(dir string) error {
	return os.MkdirAll(dir, 0o700)
}
