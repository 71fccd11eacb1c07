package goTrust

import (
	"context"
	"errors"

	"github.com/MrEthical07/goTrust/credential"
	"github.com/MrEthical07/goTrust/hashing"
	"github.com/MrEthical07/goTrust/metadata"
)

const (
	auditEventPasswordSet           = "password_set"
	auditEventPasswordVerify        = "password_verify"
	auditEventHashUpgraded          = "hash_upgraded"
	auditEventHashParamFallback     = "hash_param_fallback"
	auditEventAuthenticatorRejected = "authenticator_rejected"
	auditEventAuthenticatorAdvisory = "authenticator_advisory"
	auditEventCatalogPublished      = "catalog_published"
)

// AuditErrorCode is the stable error label written into audit events.
type AuditErrorCode string

const (
	auditErrInvalidCredentials AuditErrorCode = "invalid_credentials"
	auditErrInvalidHash        AuditErrorCode = "invalid_hash"
	auditErrUnknownAlgorithm   AuditErrorCode = "unknown_algorithm"
	auditErrRecordedFailure    AuditErrorCode = "recorded_failure"
	auditErrInvalidStatus      AuditErrorCode = "invalid_status"
	auditErrNoStatus           AuditErrorCode = "no_applicable_status"
	auditErrUnavailable        AuditErrorCode = "backend_unavailable"
	auditErrConflict           AuditErrorCode = "conflict"
	auditErrThrottled          AuditErrorCode = "throttled"
	auditErrInternal           AuditErrorCode = "internal_error"
)

func (e *Engine) emitAudit(
	ctx context.Context,
	eventType string,
	success bool,
	userID string,
	subject string,
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

	event := AuditEvent{
		EventType: eventType,
		UserID:    userID,
		Subject:   subject,
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

	var trustErr *metadata.TrustError
	if errors.As(err, &trustErr) {
		switch trustErr.Kind {
		case metadata.KindRecordedFailure:
			return auditErrRecordedFailure
		case metadata.KindInvalidStatus:
			return auditErrInvalidStatus
		case metadata.KindNoApplicableStatus:
			return auditErrNoStatus
		}
	}

	switch {
	case errors.Is(err, ErrInvalidCredentials):
		return auditErrInvalidCredentials
	case errors.Is(err, hashing.ErrInvalidHashString),
		errors.Is(err, hashing.ErrMissingSalt),
		errors.Is(err, hashing.ErrInvalidSalt):
		return auditErrInvalidHash
	case errors.Is(err, hashing.ErrUnknownAlgorithm):
		return auditErrUnknownAlgorithm
	case errors.Is(err, ErrVerifyThrottled):
		return auditErrThrottled
	case errors.Is(err, credential.ErrConflict):
		return auditErrConflict
	case errors.Is(err, ErrCredentialUnavailable),
		errors.Is(err, credential.ErrUnavailable):
		return auditErrUnavailable
	default:
		return auditErrInternal
	}
}
