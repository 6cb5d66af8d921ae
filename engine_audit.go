package goGuard

import (
	"context"
	"errors"
)

const (
	auditEventAttempting       = "attempting"
	auditEventValidated        = "validated"
	auditEventFailed           = "failed"
	auditEventLogin            = "login"
	auditEventLogout           = "logout"
	auditEventRefresh          = "refresh"
	auditEventRevoked          = "revoked"
	auditEventDeviceMismatch   = "device_mismatch"
	auditEventIncidentRevoked  = "incident_revoked"
	auditEventVerifierMismatch = "verifier_mismatch"
	auditEventIncidentDeclared = "incident_declared"
)

// AuditErrorCode is the stable error string written to AuditEvent.Error.
type AuditErrorCode string

const (
	auditErrInvalidCredentials AuditErrorCode = "invalid_credentials"
	auditErrUserNotFound       AuditErrorCode = "user_not_found"
	auditErrInvalidToken       AuditErrorCode = "invalid_token"
	auditErrInvalidType        AuditErrorCode = "invalid_token_type"
	auditErrDeviceMismatch     AuditErrorCode = "device_mismatch"
	auditErrVerifierMismatch   AuditErrorCode = "verifier_mismatch"
	auditErrUnauthenticated    AuditErrorCode = "unauthenticated"
	auditErrUnavailable        AuditErrorCode = "backend_unavailable"
	auditErrConflict           AuditErrorCode = "ledger_conflict"
	auditErrInternal           AuditErrorCode = "internal_error"
)

type auditDetails struct {
	subject   string
	device    string
	tokenType TokenType
	tokenID   string
}

func (e *Engine) emitAudit(
	ctx context.Context,
	eventType string,
	success bool,
	d auditDetails,
	err error,
	metadataBuilder func() map[string]string,
) {
	if e == nil || e.audit == nil {
		return
	}

	var metadata map[string]string
	if metadataBuilder != nil {
		metadata = metadataBuilder()
	}

	at := e.now().UTC()
	event := AuditEvent{
		ID:        e.auditIDs.NewAt(at),
		Timestamp: at,
		EventType: eventType,
		Subject:   d.subject,
		Device:    d.device,
		TokenType: string(d.tokenType),
		TokenID:   d.tokenID,
		Success:   success,
		Metadata:  metadata,
	}
	if code := auditErrorCode(err); code != "" {
		event.Error = string(code)
	}

	e.audit.Emit(ctx, event)
}

func auditErrorCode(err error) AuditErrorCode {
	if err == nil {
		return ""
	}

	switch {
	case errors.Is(err, ErrInvalidCredentials):
		return auditErrInvalidCredentials
	case errors.Is(err, ErrUserNotFound):
		return auditErrUserNotFound
	case errors.Is(err, ErrInvalidTokenType):
		return auditErrInvalidType
	case errors.Is(err, ErrInvalidIssuedUserAgent):
		return auditErrDeviceMismatch
	case errors.Is(err, ErrAccessTokenIssuerMismatch):
		return auditErrVerifierMismatch
	case errors.Is(err, ErrInvalidToken), errors.Is(err, ErrMissingToken):
		return auditErrInvalidToken
	case errors.Is(err, ErrUnauthenticated):
		return auditErrUnauthenticated
	case errors.Is(err, ErrLedgerUnavailable):
		return auditErrUnavailable
	case errors.Is(err, ErrLedgerConflict):
		return auditErrConflict
	default:
		return auditErrInternal
	}
}
