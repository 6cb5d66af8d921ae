package goGuard

import (
	"fmt"
	"strings"
	"time"
)

// LintSeverity ranks configuration warnings.
type LintSeverity int

const (
	LintInfo LintSeverity = iota
	LintWarn
	LintHigh
)

func (s LintSeverity) String() string {
	switch s {
	case LintInfo:
		return "INFO"
	case LintWarn:
		return "WARN"
	case LintHigh:
		return "HIGH"
	}
	return fmt.Sprintf("LintSeverity(%d)", int(s))
}

// LintWarning is one finding of Config.Lint. Code is stable across releases.
type LintWarning struct {
	Code     string
	Severity LintSeverity
	Message  string
}

// LintWarnings is the result of Config.Lint.
type LintWarnings []LintWarning

func (ws LintWarnings) Codes() []string {
	out := make([]string, 0, len(ws))
	for _, w := range ws {
		out = append(out, w.Code)
	}
	return out
}

// BySeverity returns the warnings at or above min.
func (ws LintWarnings) BySeverity(min LintSeverity) LintWarnings {
	var out LintWarnings
	for _, w := range ws {
		if w.Severity >= min {
			out = append(out, w)
		}
	}
	return out
}

// AsError folds warnings at or above min into one error, or returns nil.
func (ws LintWarnings) AsError(min LintSeverity) error {
	hits := ws.BySeverity(min)
	if len(hits) == 0 {
		return nil
	}
	parts := make([]string, 0, len(hits))
	for _, w := range hits {
		parts = append(parts, fmt.Sprintf("[%s] %s: %s", w.Severity, w.Code, w.Message))
	}
	return fmt.Errorf("config lint: %s", strings.Join(parts, "; "))
}

// minSecretBytes is the HMAC key size below which Lint reports secret_short.
const minSecretBytes = 32

// Lint reports settings that are valid but risky. It never fails; use AsError to gate
// startup on a severity.
func (c Config) Lint() LintWarnings {
	var ws LintWarnings
	add := func(code string, sev LintSeverity, msg string) {
		ws = append(ws, LintWarning{Code: code, Severity: sev, Message: msg})
	}

	alg := strings.ToUpper(strings.TrimSpace(c.JWT.Algorithm))
	usesSecret := strings.HasPrefix(alg, "HS") && len(c.JWT.PrivateKey) == 0 && c.JWT.PrivateKeyPath == ""
	if usesSecret {
		if len(c.JWT.Secret) < minSecretBytes {
			add("secret_short", LintHigh, fmt.Sprintf("HMAC secret is %d bytes, want at least %d", len(c.JWT.Secret), minSecretBytes))
		}
		add("symmetric_key", LintInfo, "verifiers of an HMAC token can also mint tokens")
	}
	if c.JWT.Leeway > 30*time.Second {
		add("leeway_large", LintWarn, fmt.Sprintf("leeway %s exceeds 30s", c.JWT.Leeway))
	}
	if c.JWT.AccessTTL > time.Hour {
		add("access_ttl_long", LintWarn, fmt.Sprintf("access TTL %s exceeds 1h", c.JWT.AccessTTL))
	}
	if c.JWT.RefreshTTL > 30*24*time.Hour {
		add("refresh_ttl_long", LintWarn, fmt.Sprintf("refresh TTL %s exceeds 30 days", c.JWT.RefreshTTL))
	}
	if c.JWT.RefreshTTL <= c.JWT.AccessTTL {
		add("refresh_not_longer", LintWarn, "refresh TTL should exceed access TTL")
	}
	if c.RefreshToken.Mechanism == RefreshCookie && !c.RefreshToken.Cookie.Secure {
		add("cookie_insecure", LintWarn, "refresh cookie is sent over plain HTTP")
	}
	if c.RefreshToken.Mechanism == RefreshCookie && !c.RefreshToken.Cookie.HTTPOnly {
		add("cookie_script_readable", LintWarn, "refresh cookie is readable from scripts")
	}
	if !c.AccessTokenVerifier.Enabled {
		add("verifier_disabled", LintInfo, "stolen access tokens are usable from the same user agent")
	}
	if !c.Audit.Enabled {
		add("audit_disabled", LintInfo, "revocations are not audited")
	}
	return ws
}
