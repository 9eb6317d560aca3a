package domain

import (
	apperrors "github.com/allisson/gatekeeper/internal/errors"
)

// Domain-specific errors for authentication operations.
var (
	// ErrAPIKeyNotFound indicates the requested API key does not exist.
	ErrAPIKeyNotFound = apperrors.Wrap(apperrors.ErrNotFound, "api key not found")

	// ErrInvalidCredentials indicates the presented credential is unknown,
	// revoked, or does not match. Returned uniformly to prevent enumeration.
	ErrInvalidCredentials = apperrors.Wrap(apperrors.ErrForbidden, "invalid credentials")
)
