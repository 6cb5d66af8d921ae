package goGuard

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/MrEthical07/goGuard/incident"
	"github.com/MrEthical07/goGuard/keys"
	"github.com/MrEthical07/goGuard/ledger"
)

// Config is the full engine configuration. Build clones it, so later mutation by the
// caller has no effect on a built Engine.
type Config struct {
	JWT                 JWTConfig
	Ledger              LedgerConfig
	RefreshToken        RefreshTokenConfig
	AccessTokenVerifier AccessTokenVerifierConfig
	Audit               AuditConfig
	Metrics             MetricsConfig
}

/*
====================================
JWT CONFIG
====================================
*/

// JWTConfig selects key material and token lifetimes.
//
// A key pair (PEM bytes or paths) takes precedence over Secret.
type JWTConfig struct {
	Algorithm  string
	Secret     []byte
	AccessTTL  time.Duration
	RefreshTTL time.Duration
	Issuer     string
	KeyID      string
	Leeway     time.Duration

	PrivateKey     []byte
	PublicKey      []byte
	PrivateKeyPath string
	PublicKeyPath  string
	Passphrase     []byte
}

// KeyConfig converts the JWT section into keys.Config.
func (c JWTConfig) KeyConfig() keys.Config {
	return keys.Config{
		Algorithm:      c.Algorithm,
		Secret:         c.Secret,
		PrivateKey:     c.PrivateKey,
		PublicKey:      c.PublicKey,
		PrivateKeyPath: c.PrivateKeyPath,
		PublicKeyPath:  c.PublicKeyPath,
		Passphrase:     c.Passphrase,
	}
}

/*
====================================
LEDGER CONFIG
====================================
*/

// LedgerConfig controls the issued-token ledger.
type LedgerConfig struct {
	// KeyPrefix namespaces Redis ledger keys as "<prefix>.<subject>".
	KeyPrefix string
	// IncidentKey is the Redis key of the incident clock.
	IncidentKey string
	// MaxRetries bounds optimistic compare-and-swap attempts per mutation.
	MaxRetries int
}

/*
====================================
TRANSPORT CONFIG
====================================
*/

// RefreshMechanism selects where HTTP adapters read refresh tokens from.
type RefreshMechanism string

const (
	// RefreshCookie reads refresh tokens from a cookie.
	RefreshCookie RefreshMechanism = "cookie"
	// RefreshHeader reads refresh tokens from the Authorization header.
	RefreshHeader RefreshMechanism = "header"
)

// CookieConfig describes one cookie written by the HTTP adapters.
type CookieConfig struct {
	Name     string
	Path     string
	Domain   string
	HTTPOnly bool
	Secure   bool
	SameSite http.SameSite
}

// RefreshTokenConfig controls refresh token transport.
type RefreshTokenConfig struct {
	Mechanism RefreshMechanism
	Cookie    CookieConfig
}

// AccessTokenVerifierConfig controls the access-token verifier (atv) check. When enabled the
// atv claim of every access token must equal the verifier cookie sent with the request.
type AccessTokenVerifierConfig struct {
	Enabled bool
	Cookie  CookieConfig
}

/*
====================================
OBSERVABILITY CONFIG
====================================
*/

// AuditConfig controls the asynchronous audit dispatcher.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

// MetricsConfig controls in-process counters.
type MetricsConfig struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

/*
====================================
DEFAULTS
====================================
*/

// DefaultConfig returns a Config with HS256, one hour access tokens and seven day refresh
// tokens delivered by cookie. A Secret or key pair must still be provided.
func DefaultConfig() Config {
	return Config{
		JWT: JWTConfig{
			Algorithm:  "HS256",
			AccessTTL:  time.Hour,
			RefreshTTL: 7 * 24 * time.Hour,
		},
		Ledger: LedgerConfig{
			KeyPrefix:   ledger.DefaultKeyPrefix,
			IncidentKey: incident.Key,
			MaxRetries:  ledger.DefaultMaxRetries,
		},
		RefreshToken: RefreshTokenConfig{
			Mechanism: RefreshCookie,
			Cookie: CookieConfig{
				Name:     "refresh_token",
				Path:     "/",
				HTTPOnly: true,
				Secure:   true,
				SameSite: http.SameSiteLaxMode,
			},
		},
		AccessTokenVerifier: AccessTokenVerifierConfig{
			Enabled: false,
			Cookie: CookieConfig{
				Name:     "access_token_verifier",
				Path:     "/",
				HTTPOnly: true,
				Secure:   true,
				SameSite: http.SameSiteLaxMode,
			},
		},
		Audit: AuditConfig{
			Enabled:    false,
			BufferSize: 1024,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled:                 false,
			EnableLatencyHistograms: false,
		},
	}
}

func cloneConfig(cfg Config) Config {
	out := cfg
	out.JWT.Secret = cloneBytes(cfg.JWT.Secret)
	out.JWT.PrivateKey = cloneBytes(cfg.JWT.PrivateKey)
	out.JWT.PublicKey = cloneBytes(cfg.JWT.PublicKey)
	out.JWT.Passphrase = cloneBytes(cfg.JWT.Passphrase)
	return out
}

func cloneBytes(b []byte) []byte {
	if len(b) == 0 {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

/*
====================================
VALIDATION
====================================
*/

// Validate checks the configuration for values the engine cannot run with.
// Key material itself is checked when the key provider is resolved.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.JWT.Algorithm) == "" {
		return keys.ErrAlgorithmMissing
	}
	if c.JWT.AccessTTL < time.Second {
		return errors.New("JWT AccessTTL must be >= 1s")
	}
	if c.JWT.RefreshTTL < time.Second {
		return errors.New("JWT RefreshTTL must be >= 1s")
	}
	if c.JWT.Leeway < 0 || c.JWT.Leeway > 2*time.Minute {
		return errors.New("JWT Leeway must be between 0 and 2m")
	}

	if c.Ledger.MaxRetries <= 0 {
		return errors.New("Ledger MaxRetries must be > 0")
	}
	if strings.TrimSpace(c.Ledger.KeyPrefix) == "" {
		return errors.New("Ledger KeyPrefix must not be empty")
	}
	if strings.TrimSpace(c.Ledger.IncidentKey) == "" {
		return errors.New("Ledger IncidentKey must not be empty")
	}

	switch c.RefreshToken.Mechanism {
	case RefreshCookie:
		if strings.TrimSpace(c.RefreshToken.Cookie.Name) == "" {
			return errors.New("RefreshToken Cookie Name is required for the cookie mechanism")
		}
	case RefreshHeader:
	default:
		return errors.New("RefreshToken Mechanism must be 'cookie' or 'header'")
	}

	if c.AccessTokenVerifier.Enabled && strings.TrimSpace(c.AccessTokenVerifier.Cookie.Name) == "" {
		return errors.New("AccessTokenVerifier Cookie Name is required when enabled")
	}
	if c.RefreshToken.Cookie.SameSite == http.SameSiteNoneMode && !c.RefreshToken.Cookie.Secure {
		return errors.New("SameSite=None cookies must be Secure")
	}

	if c.Audit.Enabled && c.Audit.BufferSize <= 0 {
		return errors.New("Audit BufferSize must be > 0 when audit is enabled")
	}
	if c.Metrics.EnableLatencyHistograms && !c.Metrics.Enabled {
		return errors.New("Metrics EnableLatencyHistograms requires Metrics Enabled")
	}
	return nil
}
