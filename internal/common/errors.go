// Package common defines shared constants and sentinel errors used across
// ShareKeeper layers. Callers should use errors.Is to match these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound = errors.New("not found")
	ErrConflict   = errors.New("conflict")

	// Authorization errors raised by the gateway and the ledger.
	ErrPermission = errors.New("permission denied")

	// Cipher engine errors. ErrIntegrity signals tampering or corruption and
	// is never retried.
	ErrIntegrity  = errors.New("integrity check failed")
	ErrEncryption = errors.New("encryption failed")
	ErrDecryption = errors.New("decryption failed")

	// Blob storage errors.
	ErrStorageIO = errors.New("storage i/o error")

	// Validation errors.
	ErrInvalidArgument = errors.New("invalid argument")

	// Service-level errors.
	ErrorInternal     = errors.New("internal error")
	ErrorUnauthorized = errors.New("unauthorized")

	// Auth errors (invalid or malformed token).
	ErrInvalidToken = errors.New("invalid token")
)
