package goGuard

import (
	"errors"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/MrEthical07/goGuard/keys"
)

func validConfig() Config {
	cfg := DefaultConfig()
	cfg.JWT.Secret = []byte(strings.Repeat("k", 64))
	return cfg
}

func TestDefaultConfigValidates(t *testing.T) {
	cfg := validConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config: %v", err)
	}
	if cfg.JWT.AccessTTL != time.Hour || cfg.JWT.RefreshTTL != 604800*time.Second {
		t.Fatalf("unexpected ttl defaults %s %s", cfg.JWT.AccessTTL, cfg.JWT.RefreshTTL)
	}
	if cfg.RefreshToken.Cookie.Name != "refresh_token" || cfg.Ledger.IncidentKey != "jwt.latest_incident_date_time" {
		t.Fatalf("unexpected names %+v %+v", cfg.RefreshToken.Cookie, cfg.Ledger)
	}
}

func TestConfigValidateRejects(t *testing.T) {
	cases := map[string]func(*Config){
		"missing algorithm": func(c *Config) { c.JWT.Algorithm = " " },
		"short access ttl":  func(c *Config) { c.JWT.AccessTTL = time.Millisecond },
		"short refresh ttl": func(c *Config) { c.JWT.RefreshTTL = 0 },
		"negative leeway":   func(c *Config) { c.JWT.Leeway = -time.Second },
		"zero retries":      func(c *Config) { c.Ledger.MaxRetries = 0 },
		"empty prefix":      func(c *Config) { c.Ledger.KeyPrefix = "" },
		"bad mechanism":     func(c *Config) { c.RefreshToken.Mechanism = "query" },
		"cookie name":       func(c *Config) { c.RefreshToken.Cookie.Name = "" },
		"verifier cookie": func(c *Config) {
			c.AccessTokenVerifier.Enabled = true
			c.AccessTokenVerifier.Cookie.Name = ""
		},
		"samesite none insecure": func(c *Config) {
			c.RefreshToken.Cookie.SameSite = http.SameSiteNoneMode
			c.RefreshToken.Cookie.Secure = false
		},
		"audit buffer": func(c *Config) {
			c.Audit.Enabled = true
			c.Audit.BufferSize = 0
		},
		"histograms without metrics": func(c *Config) { c.Metrics.EnableLatencyHistograms = true },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := validConfig()
			mutate(&cfg)
			if err := cfg.Validate(); err == nil {
				t.Fatalf("expected validation error")
			}
		})
	}
}

func TestConfigValidateAlgorithmMissingIsSentinel(t *testing.T) {
	cfg := validConfig()
	cfg.JWT.Algorithm = ""
	if err := cfg.Validate(); !errors.Is(err, ErrAlgorithmMissing) || !errors.Is(err, keys.ErrAlgorithmMissing) {
		t.Fatalf("expected ErrAlgorithmMissing, got %v", err)
	}
}

func TestHeaderMechanismNeedsNoCookieName(t *testing.T) {
	cfg := validConfig()
	cfg.RefreshToken.Mechanism = RefreshHeader
	cfg.RefreshToken.Cookie.Name = ""
	if err := cfg.Validate(); err != nil {
		t.Fatalf("header mechanism: %v", err)
	}
}

func TestBuildConfigImmutabilityAgainstExternalMutation(t *testing.T) {
	cfg := validConfig()
	engine, _ := newTestEngine(t, func(b *Builder) { b.WithConfig(cfg) })

	cfg.JWT.Secret[0] = 'x'
	cfg.JWT.AccessTTL = time.Second

	got := engine.Config()
	if got.JWT.Secret[0] != 'k' || got.JWT.AccessTTL != time.Hour {
		t.Fatalf("engine config changed after build")
	}
	got.JWT.Secret[0] = 'y'
	if engine.Config().JWT.Secret[0] != 'k' {
		t.Fatalf("Config() must return a copy")
	}
}

func TestLint(t *testing.T) {
	cfg := validConfig()
	codes := cfg.Lint().Codes()
	for _, unwanted := range []string{"secret_short", "leeway_large", "access_ttl_long", "refresh_ttl_long", "cookie_insecure"} {
		if containsCode(codes, unwanted) {
			t.Errorf("default config should not produce %q", unwanted)
		}
	}
	if !containsCode(codes, "verifier_disabled") {
		t.Errorf("expected verifier_disabled info")
	}
	if err := cfg.Lint().AsError(LintWarn); err != nil {
		t.Errorf("default config should have no warnings: %v", err)
	}

	cfg.JWT.Secret = []byte("short")
	cfg.JWT.Leeway = time.Minute
	cfg.RefreshToken.Cookie.Secure = false
	ws := cfg.Lint()
	for _, want := range []string{"secret_short", "leeway_large", "cookie_insecure"} {
		if !containsCode(ws.Codes(), want) {
			t.Errorf("expected %q", want)
		}
	}
	if high := ws.BySeverity(LintHigh); len(high) != 1 || high[0].Code != "secret_short" {
		t.Errorf("unexpected high findings %+v", high)
	}
	if err := ws.AsError(LintHigh); err == nil || !strings.Contains(err.Error(), "secret_short") {
		t.Errorf("expected AsError to mention secret_short, got %v", err)
	}
}

func TestLintKeyPairSkipsSecretChecks(t *testing.T) {
	cfg := validConfig()
	cfg.JWT.Algorithm = "RS256"
	cfg.JWT.Secret = nil
	cfg.JWT.PrivateKeyPath = "private.pem"
	if containsCode(cfg.Lint().Codes(), "secret_short") {
		t.Fatal("key pair config must not warn about the secret")
	}
}

func containsCode(codes []string, code string) bool {
	for _, c := range codes {
		if c == code {
			return true
		}
	}
	return false
}
