package goGuard

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/MrEthical07/goGuard/jwt"
)

// Authenticate runs the full request check: user agent present, incident clock ready, token
// present and well formed, signature and lifetime, device binding, token type, ledger
// blacklist, access-token verifier (when enabled) and finally the user lookup.
//
// A token presented from another device revokes the claimed device's tokens of the
// required type. A verifier mismatch revokes both types for the token's device.
func (e *Engine) Authenticate(ctx context.Context, req AuthRequest) (*Authenticated, error) {
	if e == nil || e.ledger == nil {
		return nil, ErrEngineNotReady
	}
	if e.metrics.LatencyEnabled() {
		start := time.Now()
		defer func() { e.metrics.Observe(MetricAuthenticateLatency, time.Since(start)) }()
	}

	required := req.Required
	if required == "" {
		required = AccessToken
	}
	if !required.Valid() {
		return nil, fmt.Errorf("%w: unknown token type %q", ErrInvalidAction, required)
	}

	if strings.TrimSpace(req.UserAgent) == "" {
		return nil, ErrMissingHeader
	}
	if _, err := e.incidents.EnsureInitialized(ctx); err != nil {
		return nil, err
	}
	if strings.TrimSpace(req.Token) == "" {
		return nil, ErrMissingToken
	}

	token, err := e.Verify(ctx, req.Token)
	if err != nil {
		e.log.WithError(err).Debug("token rejected")
		return nil, err
	}
	c := token.claims

	if c.UserAgent != req.UserAgent {
		e.metricInc(MetricDeviceMismatch)
		presented := c.Type
		if !presented.Valid() {
			presented = required
		}
		if err := e.ledger.RecordRevocation(ctx, c.Subject, c.UserAgent, presented, e.now().Unix()); err != nil {
			return nil, err
		}
		e.log.WithFields(tokenFields(c)).Warn("token presented from another user agent, revoked")
		e.emitAudit(ctx, auditEventDeviceMismatch, false, detailsOf(c), ErrInvalidIssuedUserAgent, nil)
		return nil, ErrInvalidIssuedUserAgent
	}

	if c.Type != required {
		return nil, &InvalidTokenTypeError{Expected: required, Actual: c.Type}
	}

	revoked, err := e.IsBlacklisted(ctx, token)
	if err != nil {
		return nil, err
	}
	if revoked {
		e.metricInc(MetricBlacklistHit)
		e.log.WithFields(tokenFields(c)).Debug("token rejected by ledger")
		return nil, fmt.Errorf("%w: token revoked", ErrInvalidToken)
	}

	if e.config.AccessTokenVerifier.Enabled && c.Type == AccessToken {
		if !verifierMatches(c.Verifier, req.Verifier) {
			e.metricInc(MetricVerifierMismatch)
			if err := e.ledger.RecordRevocations(ctx, c.Subject, c.UserAgent, jwt.TokenTypes, e.now().Unix()); err != nil {
				return nil, err
			}
			e.log.WithFields(tokenFields(c)).Warn("access token verifier mismatch, device revoked")
			e.emitAudit(ctx, auditEventVerifierMismatch, false, detailsOf(c), ErrAccessTokenIssuerMismatch, nil)
			return nil, ErrAccessTokenIssuerMismatch
		}
	}

	principal, err := e.lookup(ctx, c.Subject)
	if err != nil {
		return nil, err
	}

	return &Authenticated{Principal: principal, Token: token}, nil
}

func verifierMatches(claim *string, presented string) bool {
	if claim == nil || *claim == "" || presented == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(*claim), []byte(presented)) == 1
}

func (e *Engine) lookup(ctx context.Context, subject string) (Principal, error) {
	if e.directory == nil {
		return nil, fmt.Errorf("%w: user directory not configured", ErrEngineNotReady)
	}
	p, err := e.directory.RetrieveByID(ctx, subject)
	if errors.Is(err, ErrUserNotFound) || (err == nil && p == nil) {
		return nil, ErrUnauthenticated
	}
	if err != nil {
		return nil, err
	}
	return p, nil
}
