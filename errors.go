package goTrust

import "errors"

var (
	// ErrInvalidCredentials is returned when a password does not match the stored hash,
	// or when no credential exists for the user.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrEngineNotReady is returned by methods called on a nil or partially built Engine.
	ErrEngineNotReady = errors.New("engine not ready")
	// ErrNoCredentialStore is returned by password operations when no credential store is configured.
	ErrNoCredentialStore = errors.New("credential store not configured")
	// ErrNoBlobSource is returned by RefreshCatalog when no statement blob source is configured.
	ErrNoBlobSource = errors.New("metadata blob source not configured")
	// ErrCredentialUnavailable is returned when the credential backend fails.
	ErrCredentialUnavailable = errors.New("credential backend unavailable")
	// ErrVerifyThrottled is returned by VerifyPassword once a user has spent the
	// configured failure budget for the current window.
	ErrVerifyThrottled = errors.New("too many failed verifications")
)
