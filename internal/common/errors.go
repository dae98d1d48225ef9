// Package common defines shared constants and sentinel errors used across
// the user service layers. Callers should use errors.Is to match these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound = errors.New("not found")

	// Service-level errors (generic/internal flow control).
	ErrorInternal = errors.New("internal error")

	// Token validation outcomes.
	ErrInvalidToken = errors.New("invalid token")
	ErrInvalidUser  = errors.New("invalid user")
	ErrTokenExpired = errors.New("token expired")

	// A role the service depends on is not provisioned in storage.
	ErrConfigurationMissing = errors.New("configuration missing")

	// Account flow errors.
	ErrEmailTaken       = errors.New("email is already used")
	ErrWrongCredentials = errors.New("wrong email or password")
	ErrAlreadyElevated  = errors.New("already elevated")
)
