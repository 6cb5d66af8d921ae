package goGuard

import (
	"context"
	"strings"

	"github.com/MrEthical07/goGuard/jwt"
)

// RequestToken is a token whose signature and lifetime have been verified.
// A nil RequestToken answers ErrUndefinedClaim for every accessor.
type RequestToken struct {
	raw     string
	claims  jwt.Claims
	headers map[string]any
}

// Verify decodes raw and checks its algorithm, signature and lifetime. It does not consult
// the ledger; see IsBlacklisted and Authenticate.
func (e *Engine) Verify(_ context.Context, raw string) (*RequestToken, error) {
	if e == nil {
		return nil, ErrEngineNotReady
	}
	raw = strings.TrimSpace(raw)
	if !jwt.WellFormed(raw) {
		e.metricInc(MetricVerifyFailure)
		return nil, ErrInvalidToken
	}
	claims, headers, err := e.codec.Decode(raw, e.verifyKey, e.method)
	if err != nil {
		e.metricInc(MetricVerifyFailure)
		return nil, err
	}
	return &RequestToken{raw: raw, claims: *claims, headers: headers}, nil
}

// Raw returns the compact token string.
func (t *RequestToken) Raw() string {
	if t == nil {
		return ""
	}
	return t.raw
}

// Claims returns a copy of the decoded claims.
func (t *RequestToken) Claims() (jwt.Claims, error) {
	if t == nil {
		return jwt.Claims{}, ErrUndefinedClaim
	}
	out := t.claims
	out.Extra = copyClaims(t.claims.Extra)
	return out, nil
}

func (t *RequestToken) Subject() (string, error) {
	return t.stringClaim(jwt.ClaimSubject)
}

func (t *RequestToken) Type() (TokenType, error) {
	s, err := t.stringClaim(jwt.ClaimType)
	return TokenType(s), err
}

func (t *RequestToken) IssuedAt() (int64, error) {
	return t.intClaim(jwt.ClaimIssuedAt)
}

func (t *RequestToken) ExpiresAt() (int64, error) {
	return t.intClaim(jwt.ClaimExpiresAt)
}

// UserAgent returns the iua claim, the device the token was issued to.
func (t *RequestToken) UserAgent() (string, error) {
	return t.stringClaim(jwt.ClaimUserAgent)
}

func (t *RequestToken) ID() (string, error) {
	return t.stringClaim(jwt.ClaimID)
}

// Verifier returns the atv claim. Refresh tokens carry none.
func (t *RequestToken) Verifier() (string, error) {
	return t.stringClaim(jwt.ClaimVerifier)
}

func (t *RequestToken) Issuer() (string, error) {
	return t.stringClaim(jwt.ClaimIssuer)
}

// Claim returns any claim by name, reserved or custom.
func (t *RequestToken) Claim(name string) (any, error) {
	if t == nil {
		return nil, ErrUndefinedClaim
	}
	v, ok := t.claims.Lookup(name)
	if !ok {
		return nil, ErrUndefinedClaim
	}
	return v, nil
}

// Headers returns a copy of the JOSE header.
func (t *RequestToken) Headers() (map[string]any, error) {
	if t == nil || len(t.headers) == 0 {
		return nil, ErrUndefinedClaim
	}
	out := make(map[string]any, len(t.headers))
	for k, v := range t.headers {
		out[k] = v
	}
	return out, nil
}

func (t *RequestToken) stringClaim(name string) (string, error) {
	v, err := t.Claim(name)
	if err != nil {
		return "", err
	}
	switch s := v.(type) {
	case string:
		return s, nil
	case jwt.TokenType:
		return string(s), nil
	}
	return "", ErrUndefinedClaim
}

func (t *RequestToken) intClaim(name string) (int64, error) {
	v, err := t.Claim(name)
	if err != nil {
		return 0, err
	}
	n, ok := v.(int64)
	if !ok {
		return 0, ErrUndefinedClaim
	}
	return n, nil
}
