package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoadArgsDefaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, app, err := LoadArgs(nil, nil,
		AppKey{Name: "page_file", Default: "", Desc: "host page"},
		AppKey{Name: "clock_interval", Default: time.Second, Desc: "clock period"},
	)
	if err != nil {
		t.Fatalf("LoadArgs() error = %v", err)
	}
	if cfg.Env != "dev" || cfg.HTTP.HTTPPort != 8080 {
		t.Errorf("env/port = %q/%d", cfg.Env, cfg.HTTP.HTTPPort)
	}
	if cfg.HTTP.ShutdownTimeout != 15*time.Second {
		t.Errorf("ShutdownTimeout = %v", cfg.HTTP.ShutdownTimeout)
	}
	if cfg.HTTP.WriteTimeout != 0 {
		t.Errorf("WriteTimeout = %v, want 0", cfg.HTTP.WriteTimeout)
	}
	if !cfg.Security.EnableSecurityHeaders || cfg.Security.XFrameOptions != "SAMEORIGIN" {
		t.Errorf("security = %+v", cfg.Security)
	}
	if got := app.Duration("clock_interval", 0); got != time.Second {
		t.Errorf("clock_interval = %v", got)
	}
	if app.String("page_file") != "" {
		t.Errorf("page_file = %q", app.String("page_file"))
	}
	if cfg.TLS.LetsEncryptChallenge != ChallengeHTTP01 || cfg.TLS.ACMEDirectoryURL != DefaultACMEDirectoryURL {
		t.Errorf("acme = %q %q", cfg.TLS.LetsEncryptChallenge, cfg.TLS.ACMEDirectoryURL)
	}
}

func TestLoadArgsPrecedence(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	if err := os.WriteFile(filepath.Join(dir, "config.toml"), []byte("http_port = 9000\nlog_level = \"warn\"\nclock_interval = \"3s\"\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("CONTACTFORM_LOG_LEVEL", "error")
	t.Setenv("CONTACTFORM_WS_ORIGIN_PATTERNS", `["example.com","*.example.com"]`)
	t.Setenv("CONTACTFORM_WATCH_PAGE", "true")

	cfg, app, err := LoadArgs(nil, []string{"--http_port=9100"},
		AppKey{Name: "clock_interval", Default: time.Second},
		AppKey{Name: "ws_origin_patterns", Default: []string{}},
		AppKey{Name: "watch_page", Default: false},
	)
	if err != nil {
		t.Fatalf("LoadArgs() error = %v", err)
	}
	if cfg.HTTP.HTTPPort != 9100 {
		t.Errorf("flag did not win: http_port = %d", cfg.HTTP.HTTPPort)
	}
	if cfg.LogLevel != "error" {
		t.Errorf("env did not beat file: log_level = %q", cfg.LogLevel)
	}
	if got := app.Duration("clock_interval", time.Second); got != 3*time.Second {
		t.Errorf("file value ignored: clock_interval = %v", got)
	}
	if got := app.StringSlice("ws_origin_patterns"); len(got) != 2 || got[1] != "*.example.com" {
		t.Errorf("ws_origin_patterns = %v", got)
	}
	if !app.Bool("watch_page") {
		t.Error("watch_page from env not applied")
	}
}

func TestValidateCoreConfig(t *testing.T) {
	base := func() CoreConfig {
		return CoreConfig{
			Env:              "dev",
			LogLevel:         "info",
			HTTP:             HTTPConfig{HTTPPort: 8080, HTTPSPort: 443},
			CompressionLevel: 5,
		}
	}

	tests := []struct {
		name    string
		mutate  func(*CoreConfig)
		wantErr string
	}{
		{"valid", func(*CoreConfig) {}, ""},
		{"bad env", func(c *CoreConfig) { c.Env = "staging" }, "env must be"},
		{"bad log level", func(c *CoreConfig) { c.LogLevel = "loud" }, "log_level"},
		{"acme without https", func(c *CoreConfig) { c.TLS.UseLetsEncrypt = true }, "requires use_https"},
		{"acme missing domain", func(c *CoreConfig) {
			c.HTTP.UseHTTPS = true
			c.TLS.UseLetsEncrypt = true
			c.TLS.LetsEncryptEmail = "ops@example.com"
		}, "CONTACTFORM_DOMAIN"},
		{"dns-01 missing zone", func(c *CoreConfig) {
			c.HTTP.UseHTTPS = true
			c.TLS.UseLetsEncrypt = true
			c.TLS.Domain = "example.com"
			c.TLS.LetsEncryptEmail = "ops@example.com"
			c.TLS.LetsEncryptChallenge = ChallengeDNS01
		}, "CONTACTFORM_ROUTE53_HOSTED_ZONE_ID"},
		{"dns-01 with zone", func(c *CoreConfig) {
			c.HTTP.UseHTTPS = true
			c.TLS.UseLetsEncrypt = true
			c.TLS.Domain = "example.com"
			c.TLS.LetsEncryptEmail = "ops@example.com"
			c.TLS.LetsEncryptChallenge = ChallengeDNS01
			c.TLS.Route53HostedZoneID = "Z123"
		}, ""},
		{"dns-01 half a key pair", func(c *CoreConfig) {
			c.HTTP.UseHTTPS = true
			c.TLS.UseLetsEncrypt = true
			c.TLS.Domain = "example.com"
			c.TLS.LetsEncryptEmail = "ops@example.com"
			c.TLS.LetsEncryptChallenge = ChallengeDNS01
			c.TLS.Route53HostedZoneID = "Z123"
			c.TLS.Route53AccessKeyID = "AKIA"
		}, "must be set together"},
		{"unknown challenge", func(c *CoreConfig) {
			c.HTTP.UseHTTPS = true
			c.TLS.UseLetsEncrypt = true
			c.TLS.Domain = "example.com"
			c.TLS.LetsEncryptEmail = "ops@example.com"
			c.TLS.LetsEncryptChallenge = "tls-alpn-01"
		}, "lets_encrypt_challenge"},
		{"manual tls missing files", func(c *CoreConfig) { c.HTTP.UseHTTPS = true }, "CONTACTFORM_CERT_FILE"},
		{"bad port", func(c *CoreConfig) { c.HTTP.HTTPPort = 0 }, "http_port"},
		{"bad compression", func(c *CoreConfig) {
			c.EnableCompression = true
			c.CompressionLevel = 12
		}, "compression_level"},
		{"cors wildcard with credentials", func(c *CoreConfig) {
			c.CORS = CORSConfig{
				EnableCORS:           true,
				CORSAllowedOrigins:   []string{"*"},
				CORSAllowedMethods:   []string{"GET"},
				CORSAllowCredentials: true,
			}
		}, "cannot use"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base()
			tt.mutate(&cfg)
			err := validateCoreConfig(cfg)
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("validateCoreConfig() = %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("validateCoreConfig() = %v, want %q", err, tt.wantErr)
			}
		})
	}
}

func TestParseDurationFlexible(t *testing.T) {
	tests := []struct {
		raw     any
		want    time.Duration
		wantErr bool
	}{
		{"90s", 90 * time.Second, false},
		{"120", 120 * time.Second, false},
		{5, 5 * time.Second, false},
		{int64(2), 2 * time.Second, false},
		{1.5, 1500 * time.Millisecond, false},
		{"", time.Minute, false},
		{nil, time.Minute, false},
		{"-1s", time.Minute, true},
		{"soon", time.Minute, true},
	}
	for _, tt := range tests {
		got, err := parseDurationFlexible(tt.raw, time.Minute)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("parseDurationFlexible(%v) = %v, %v; want %v, err=%v", tt.raw, got, err, tt.want, tt.wantErr)
		}
	}
}
