package cryptox

import (
	"crypto/aes"
	"crypto/cipher"
	"fmt"

	"github.com/dmitrijs2005/sharekeeper/internal/common"
	"golang.org/x/crypto/argon2"
)

// DeriveMasterKey stretches a passphrase into a 256-bit key with Argon2id.
func DeriveMasterKey(password []byte, salt []byte) []byte {
	return argon2.IDKey(password, salt, 1, 64*1024, 4, KeySize)
}

// MasterKey seals per-file keys before they are written to persistent
// storage. The sealed form is nonce || AES-256-GCM(key).
type MasterKey struct {
	aead cipher.AEAD
}

// NewMasterKey derives the sealing key from passphrase and salt.
func NewMasterKey(passphrase, salt string) (*MasterKey, error) {
	if passphrase == "" || salt == "" {
		return nil, fmt.Errorf("%w: master key passphrase and salt are required", common.ErrInvalidArgument)
	}

	key := DeriveMasterKey([]byte(passphrase), []byte(salt))
	defer common.WipeByteArray(key)

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("%w: new cipher: %v", common.ErrEncryption, err)
	}
	aesgcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("%w: new gcm: %v", common.ErrEncryption, err)
	}

	return &MasterKey{aead: aesgcm}, nil
}

// Seal wraps a file key.
func (m *MasterKey) Seal(fileKey []byte) ([]byte, error) {
	nonce := common.GenerateRandByteArray(m.aead.NonceSize())
	return m.aead.Seal(nonce, nonce, fileKey, nil), nil
}

// Open unwraps a file key sealed by Seal.
func (m *MasterKey) Open(sealed []byte) ([]byte, error) {
	ns := m.aead.NonceSize()
	if len(sealed) < ns {
		return nil, fmt.Errorf("%w: sealed key too short", common.ErrDecryption)
	}

	key, err := m.aead.Open(nil, sealed[:ns], sealed[ns:], nil)
	if err != nil {
		return nil, fmt.Errorf("%w: cannot unseal file key", common.ErrDecryption)
	}
	return key, nil
}
