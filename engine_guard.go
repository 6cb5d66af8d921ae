package goGuard

import (
	"context"
	"errors"
	"fmt"
)

// Attempt resolves creds through the user directory, validates them and logs the user in
// on device.
func (e *Engine) Attempt(ctx context.Context, creds Credentials, device string) (*LoginResult, error) {
	if e == nil || e.ledger == nil {
		return nil, ErrEngineNotReady
	}
	if e.directory == nil {
		return nil, fmt.Errorf("%w: user directory not configured", ErrEngineNotReady)
	}
	d := auditDetails{device: device}
	e.emitAudit(ctx, auditEventAttempting, true, d, nil, nil)

	p, err := e.directory.RetrieveByCredentials(ctx, creds)
	if err != nil && !errors.Is(err, ErrUserNotFound) {
		return nil, err
	}
	if p == nil || err != nil {
		e.failedAttempt(ctx, d)
		return nil, ErrInvalidCredentials
	}
	d.subject = p.AuthIdentifier()

	ok, err := e.directory.ValidateCredentials(ctx, p, creds)
	if err != nil {
		return nil, err
	}
	if !ok {
		e.failedAttempt(ctx, d)
		return nil, ErrInvalidCredentials
	}
	e.emitAudit(ctx, auditEventValidated, true, d, nil, nil)

	return e.Login(ctx, p, device)
}

func (e *Engine) failedAttempt(ctx context.Context, d auditDetails) {
	e.metricInc(MetricLoginFailure)
	e.emitAudit(ctx, auditEventFailed, false, d, ErrInvalidCredentials, nil)
}

// Login issues an access and refresh token pair for principal on device. The pair
// supersedes every earlier pair of the same device.
func (e *Engine) Login(ctx context.Context, principal Principal, device string) (*LoginResult, error) {
	res, err := e.issuePair(ctx, principal, device)
	if err != nil {
		return nil, err
	}
	e.metricInc(MetricLoginSuccess)
	e.emitAudit(ctx, auditEventLogin, true, auditDetails{subject: principal.AuthIdentifier(), device: device}, nil, nil)
	return res, nil
}

func (e *Engine) issuePair(ctx context.Context, principal Principal, device string) (*LoginResult, error) {
	access, err := e.Issue(ctx, AccessToken, principal, device)
	if err != nil {
		return nil, err
	}
	refresh, err := e.Issue(ctx, RefreshToken, principal, device)
	if err != nil {
		return nil, err
	}
	return &LoginResult{
		Principal:           principal,
		AccessToken:         access.Token,
		RefreshToken:        refresh.Token,
		AccessTokenVerifier: access.Verifier,
		AccessExpiresAt:     access.ExpiresAt(),
		RefreshExpiresAt:    refresh.ExpiresAt(),
	}, nil
}

// Logout revokes both token types of the token's device.
func (e *Engine) Logout(ctx context.Context, token *RequestToken) error {
	if e == nil || e.ledger == nil {
		return ErrEngineNotReady
	}
	if token == nil {
		return ErrUndefinedClaim
	}
	c := token.claims
	if err := e.ledger.RecordRevocations(ctx, c.Subject, c.UserAgent, []TokenType{AccessToken, RefreshToken}, e.now().Unix()); err != nil {
		return err
	}
	e.metricInc(MetricLogout)
	e.emitAudit(ctx, auditEventLogout, true, detailsOf(c), nil, nil)
	return nil
}

// Refresh exchanges a verified refresh token for a new pair on the same device. When
// principal is nil it is resolved from the token subject.
func (e *Engine) Refresh(ctx context.Context, token *RequestToken, principal Principal) (*LoginResult, error) {
	if e == nil || e.ledger == nil {
		return nil, ErrEngineNotReady
	}
	if token == nil {
		return nil, ErrUndefinedClaim
	}
	c := token.claims
	if c.Type != RefreshToken {
		return nil, &InvalidTokenTypeError{Expected: RefreshToken, Actual: c.Type}
	}
	if principal == nil {
		p, err := e.lookup(ctx, c.Subject)
		if err != nil {
			return nil, err
		}
		principal = p
	}
	if principal.AuthIdentifier() != c.Subject {
		return nil, fmt.Errorf("%w: principal does not own the refresh token", ErrUnauthenticated)
	}

	res, err := e.issuePair(ctx, principal, c.UserAgent)
	if err != nil {
		return nil, err
	}
	e.metricInc(MetricRefresh)
	e.emitAudit(ctx, auditEventRefresh, true, detailsOf(c), nil, nil)
	return res, nil
}
