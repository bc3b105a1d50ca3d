package service

import "errors"

// External error taxonomy. Revoked, expired, replaced and unknown refresh
// tokens all collapse into ErrInvalidToken so a caller cannot probe which
// case it hit.
var (
	ErrInvalidCredentials = errors.New("email or password is incorrect")
	ErrInvalidToken       = errors.New("invalid token")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrValidation         = errors.New("validation failed")
	ErrConflict           = errors.New("email is already registered")
	ErrNotFound           = errors.New("account not found")
	ErrVerification       = errors.New("verification failed")
)
