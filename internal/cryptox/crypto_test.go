package cryptox

import (
	"bytes"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"testing"

	"github.com/dmitrijs2005/sharekeeper/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func randomPayload(t *testing.T, n int) []byte {
	t.Helper()
	b := make([]byte, n)
	_, err := rand.Read(b)
	require.NoError(t, err)
	return b
}

func TestEngine_RoundTrip(t *testing.T) {
	sizes := []int{0, 1, 10, 4096, 1<<16 + 7}

	for _, alg := range []string{AlgAES256GCM, AlgAES256CTR} {
		e, err := NewEngine(alg)
		require.NoError(t, err)

		for _, size := range sizes {
			payload := randomPayload(t, size)

			var ct bytes.Buffer
			sealed, err := e.Encrypt(&ct, bytes.NewReader(payload))
			require.NoError(t, err, "%s/%d", alg, size)

			sum := sha256.Sum256(payload)
			assert.Equal(t, sum[:], sealed.Digest)
			assert.Equal(t, int64(size), sealed.PlaintextSize)
			assert.Equal(t, int64(ct.Len()), sealed.CiphertextSize)
			assert.Len(t, sealed.Key, KeySize)
			assert.Equal(t, alg, sealed.Algorithm)

			var pt bytes.Buffer
			err = Decrypt(&pt, bytes.NewReader(ct.Bytes()), sealed.Params, sealed.Digest)
			require.NoError(t, err, "%s/%d", alg, size)
			assert.True(t, bytes.Equal(payload, pt.Bytes()), "%s/%d: plaintext mismatch", alg, size)
		}
	}
}

func TestEngine_FreshKeyPerFile(t *testing.T) {
	e, err := NewEngine(AlgAES256GCM)
	require.NoError(t, err)

	a, err := e.Encrypt(&bytes.Buffer{}, bytes.NewReader([]byte("same")))
	require.NoError(t, err)
	b, err := e.Encrypt(&bytes.Buffer{}, bytes.NewReader([]byte("same")))
	require.NoError(t, err)

	assert.NotEqual(t, a.Key, b.Key)
	assert.NotEqual(t, a.IV, b.IV)
	assert.Equal(t, a.Digest, b.Digest)
}

func TestDecrypt_TamperedCiphertext(t *testing.T) {
	for _, alg := range []string{AlgAES256GCM, AlgAES256CTR} {
		t.Run(alg, func(t *testing.T) {
			e, err := NewEngine(alg)
			require.NoError(t, err)

			var ct bytes.Buffer
			sealed, err := e.Encrypt(&ct, bytes.NewReader([]byte("report body")))
			require.NoError(t, err)

			tampered := ct.Bytes()
			tampered[0] ^= 0xff

			err = Decrypt(&bytes.Buffer{}, bytes.NewReader(tampered), sealed.Params, sealed.Digest)
			assert.True(t, errors.Is(err, common.ErrIntegrity), "got %v", err)
		})
	}
}

func TestDecrypt_DigestMismatch(t *testing.T) {
	e, err := NewEngine(AlgAES256GCM)
	require.NoError(t, err)

	var ct bytes.Buffer
	sealed, err := e.Encrypt(&ct, bytes.NewReader([]byte("report body")))
	require.NoError(t, err)

	other := Digest([]byte("something else"))
	var pt bytes.Buffer
	err = Decrypt(&pt, bytes.NewReader(ct.Bytes()), sealed.Params, other)
	assert.ErrorIs(t, err, common.ErrIntegrity)
	assert.Zero(t, pt.Len(), "unverified GCM plaintext must not be written")
}

func TestDecrypt_BadParams(t *testing.T) {
	digest := Digest(nil)

	tests := []struct {
		name string
		p    Params
	}{
		{"short key", Params{Algorithm: AlgAES256GCM, Key: []byte("short"), IV: make([]byte, 12)}},
		{"bad nonce", Params{Algorithm: AlgAES256GCM, Key: make([]byte, KeySize), IV: make([]byte, 3)}},
		{"bad iv", Params{Algorithm: AlgAES256CTR, Key: make([]byte, KeySize), IV: make([]byte, 3)}},
		{"unknown algorithm", Params{Algorithm: "ROT13", Key: make([]byte, KeySize)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Decrypt(&bytes.Buffer{}, bytes.NewReader(nil), tt.p, digest)
			require.ErrorIs(t, err, common.ErrDecryption)
			assert.NotContains(t, err.Error(), hex.EncodeToString(tt.p.Key))
		})
	}
}

func TestNewEngine_Unsupported(t *testing.T) {
	_, err := NewEngine("DES")
	assert.ErrorIs(t, err, common.ErrEncryption)
}

func TestDeriveMasterKey_Deterministic(t *testing.T) {
	password := []byte("secret-password")
	salt := []byte("fixed-salt")

	key1 := DeriveMasterKey(password, salt)
	key2 := DeriveMasterKey(password, salt)
	assert.Equal(t, key1, key2)

	expectedHex := "9290403300158e19f27e48e7087f7383b03065bf5b25ef23ebc40229616cd8b3"
	assert.Equal(t, expectedHex, hex.EncodeToString(key1))
}

func TestDeriveMasterKey_DifferentSalts(t *testing.T) {
	password := []byte("secret-password")
	assert.NotEqual(t, DeriveMasterKey(password, []byte("salt-1")), DeriveMasterKey(password, []byte("salt-2")))
}

func TestMasterKey_SealOpen(t *testing.T) {
	mk, err := NewMasterKey("passphrase", "salt-value")
	require.NoError(t, err)

	fileKey := common.GenerateRandByteArray(KeySize)
	sealed, err := mk.Seal(fileKey)
	require.NoError(t, err)
	assert.NotContains(t, string(sealed), string(fileKey))

	opened, err := mk.Open(sealed)
	require.NoError(t, err)
	assert.Equal(t, fileKey, opened)

	other, err := NewMasterKey("another", "salt-value")
	require.NoError(t, err)
	_, err = other.Open(sealed)
	assert.ErrorIs(t, err, common.ErrDecryption)

	_, err = mk.Open([]byte{1, 2})
	assert.ErrorIs(t, err, common.ErrDecryption)
}

func TestNewMasterKey_RequiresInputs(t *testing.T) {
	_, err := NewMasterKey("", "salt")
	assert.ErrorIs(t, err, common.ErrInvalidArgument)
}
