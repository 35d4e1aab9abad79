package model

import "errors"

var (
	// Authentication errors. ErrInvalidCredentials deliberately covers bad
	// logins and bad refresh tokens alike so callers cannot probe usernames.
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrRefreshTokenReuse  = errors.New("refresh token reuse detected")
	ErrTokenExpired       = errors.New("token expired")
	ErrTokenMalformed     = errors.New("token malformed")

	// API token errors
	ErrInvalidAPIToken  = errors.New("invalid api token")
	ErrAPITokenNotFound = errors.New("api token not found")

	// Authorization errors
	ErrForbidden         = errors.New("forbidden")
	ErrInsufficientScope = errors.New("insufficient token scope")

	// User errors
	ErrUserNotFound      = errors.New("user not found")
	ErrUserAlreadyExists = errors.New("user already exists")

	// Redirect errors
	ErrRedirectNotFound = errors.New("redirect not found")
	ErrUniqueConstraint = errors.New("unique constraint violation")

	ErrInvalidInput = errors.New("invalid input")
)
