// Package exitcode defines exit codes for the CLI.
package exitcode

import (
	"errors"

	"tasklink/internal/credential"
	"tasklink/internal/service"
	"tasklink/internal/session"
)

// Exit codes.
const (
	// Success indicates successful completion.
	Success = 0

	// UserError indicates a user error (bad args, not found, validation).
	UserError = 1

	// AuthError indicates an auth/config error.
	AuthError = 2

	// BackendError indicates a backend/API/network error.
	BackendError = 3
)

// For returns the exit code for err.
func For(err error) int {
	if err == nil {
		return Success
	}

	var cfgErr *credential.ConfigurationError
	if errors.As(err, &cfgErr) || errors.Is(err, session.ErrNoSession) {
		return AuthError
	}

	var svcErr *service.Error
	if !errors.As(err, &svcErr) {
		return BackendError
	}
	switch svcErr.Kind {
	case service.KindUnauthorized:
		return AuthError
	case service.KindNotFound, service.KindValidation:
		return UserError
	default:
		return BackendError
	}
}
