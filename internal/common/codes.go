package common

import "errors"

// Stable error codes returned to external callers. They are part of the
// public contract and must not change once released.
const (
	CodeNotFound        = "not_found"
	CodePermission      = "permission_denied"
	CodeIntegrity       = "integrity_error"
	CodeEncryption      = "encryption_error"
	CodeDecryption      = "decryption_error"
	CodeConflict        = "conflict"
	CodeStorageIO       = "storage_io"
	CodeInvalidArgument = "invalid_argument"
	CodeUnauthorized    = "unauthorized"
	CodeInternal        = "internal"
)

var codeTable = []struct {
	err  error
	code string
}{
	{ErrorNotFound, CodeNotFound},
	{ErrPermission, CodePermission},
	{ErrIntegrity, CodeIntegrity},
	{ErrEncryption, CodeEncryption},
	{ErrDecryption, CodeDecryption},
	{ErrConflict, CodeConflict},
	{ErrStorageIO, CodeStorageIO},
	{ErrInvalidArgument, CodeInvalidArgument},
	{ErrorUnauthorized, CodeUnauthorized},
	{ErrInvalidToken, CodeUnauthorized},
}

// Code maps err to its stable error code. The first matching sentinel in
// table order wins; unknown errors map to CodeInternal.
func Code(err error) string {
	if err == nil {
		return ""
	}
	for _, c := range codeTable {
		if errors.Is(err, c.err) {
			return c.code
		}
	}
	return CodeInternal
}
