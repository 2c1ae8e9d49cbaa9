package common

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"nil", nil, ""},
		{"not found", ErrorNotFound, CodeNotFound},
		{"wrapped permission", fmt.Errorf("share: %w", ErrPermission), CodePermission},
		{"integrity", fmt.Errorf("decrypt: %w", ErrIntegrity), CodeIntegrity},
		{"encryption", ErrEncryption, CodeEncryption},
		{"decryption", ErrDecryption, CodeDecryption},
		{"conflict", ErrConflict, CodeConflict},
		{"storage", fmt.Errorf("put: %w", ErrStorageIO), CodeStorageIO},
		{"invalid", ErrInvalidArgument, CodeInvalidArgument},
		{"token", ErrInvalidToken, CodeUnauthorized},
		{"unknown", errors.New("boom"), CodeInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Code(tt.err))
		})
	}
}

func TestCode_NotFoundAndPermissionAreDistinct(t *testing.T) {
	assert.NotEqual(t, Code(ErrorNotFound), Code(ErrPermission))
}
