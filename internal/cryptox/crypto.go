// Package cryptox implements the cipher engine: per-file symmetric
// encryption with a detached SHA-256 digest of the plaintext, plus sealing of
// per-file keys under a server master key.
package cryptox

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/sha256"
	"crypto/subtle"
	"fmt"
	"io"

	"github.com/dmitrijs2005/sharekeeper/internal/common"
)

// Supported algorithms. The value is persisted with every file, so existing
// names must never change.
const (
	AlgAES256GCM = "AES-256-GCM"
	AlgAES256CTR = "AES-256-CTR"
)

// KeySize is the length of every per-file key (AES-256).
const KeySize = 32

const ctrIVSize = aes.BlockSize

// Params identifies how a single ciphertext was produced.
type Params struct {
	Algorithm string
	Key       []byte
	IV        []byte
}

// Sealed is the result of Encrypt: the cipher parameters bound to the new
// ciphertext and the digest of the plaintext that produced it.
type Sealed struct {
	Params
	Digest         []byte
	PlaintextSize  int64
	CiphertextSize int64
}

// Engine encrypts and decrypts file contents. It holds no mutable state and
// is safe for concurrent use.
type Engine struct {
	algorithm string
}

// NewEngine returns an engine that encrypts new content with algorithm.
// Decrypt accepts any supported algorithm regardless of this setting.
func NewEngine(algorithm string) (*Engine, error) {
	if !Supported(algorithm) {
		return nil, fmt.Errorf("%w: unsupported algorithm %q", common.ErrEncryption, algorithm)
	}
	return &Engine{algorithm: algorithm}, nil
}

// Supported reports whether algorithm is known to the engine.
func Supported(algorithm string) bool {
	return algorithm == AlgAES256GCM || algorithm == AlgAES256CTR
}

// Algorithm returns the algorithm used for new content.
func (e *Engine) Algorithm() string { return e.algorithm }

// Encrypt reads src to EOF and writes its ciphertext to dst. A fresh random
// key and IV are generated on every call; they are returned in Sealed and
// exist nowhere else.
func (e *Engine) Encrypt(dst io.Writer, src io.Reader) (*Sealed, error) {
	key := common.GenerateRandByteArray(KeySize)

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("%w: new cipher: %v", common.ErrEncryption, err)
	}

	switch e.algorithm {
	case AlgAES256GCM:
		return sealGCM(dst, src, block, key)
	case AlgAES256CTR:
		return sealCTR(dst, src, block, key)
	default:
		return nil, fmt.Errorf("%w: unsupported algorithm %q", common.ErrEncryption, e.algorithm)
	}
}

func sealGCM(dst io.Writer, src io.Reader, block cipher.Block, key []byte) (*Sealed, error) {
	aesgcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("%w: new gcm: %v", common.ErrEncryption, err)
	}

	plaintext, err := io.ReadAll(src)
	if err != nil {
		return nil, fmt.Errorf("read plaintext: %w", err)
	}
	defer common.WipeByteArray(plaintext)

	nonce := common.GenerateRandByteArray(aesgcm.NonceSize())
	ciphertext := aesgcm.Seal(nil, nonce, plaintext, nil)
	digest := sha256.Sum256(plaintext)

	n, err := dst.Write(ciphertext)
	if err != nil {
		return nil, fmt.Errorf("write ciphertext: %w", err)
	}

	return &Sealed{
		Params:         Params{Algorithm: AlgAES256GCM, Key: key, IV: nonce},
		Digest:         digest[:],
		PlaintextSize:  int64(len(plaintext)),
		CiphertextSize: int64(n),
	}, nil
}

func sealCTR(dst io.Writer, src io.Reader, block cipher.Block, key []byte) (*Sealed, error) {
	iv := common.GenerateRandByteArray(ctrIVSize)

	h := sha256.New()
	cw := &countingWriter{w: dst}
	sw := cipher.StreamWriter{S: cipher.NewCTR(block, iv), W: cw}

	n, err := io.Copy(io.MultiWriter(h, sw), src)
	if err != nil {
		return nil, fmt.Errorf("stream ciphertext: %w", err)
	}

	return &Sealed{
		Params:         Params{Algorithm: AlgAES256CTR, Key: key, IV: iv},
		Digest:         h.Sum(nil),
		PlaintextSize:  n,
		CiphertextSize: cw.n,
	}, nil
}

// Decrypt reads the ciphertext from src, writes the plaintext to dst and
// verifies it against digest. A mismatch (or a GCM authentication failure)
// yields common.ErrIntegrity.
//
// With AES-256-CTR the plaintext is streamed, so dst may already hold
// unverified output when an error is returned. Callers must discard dst on
// any error.
func Decrypt(dst io.Writer, src io.Reader, p Params, digest []byte) error {
	if len(p.Key) != KeySize {
		return fmt.Errorf("%w: invalid key length", common.ErrDecryption)
	}
	if len(digest) != sha256.Size {
		return fmt.Errorf("%w: invalid digest length", common.ErrDecryption)
	}

	block, err := aes.NewCipher(p.Key)
	if err != nil {
		return fmt.Errorf("%w: new cipher: %v", common.ErrDecryption, err)
	}

	switch p.Algorithm {
	case AlgAES256GCM:
		return openGCM(dst, src, block, p.IV, digest)
	case AlgAES256CTR:
		return openCTR(dst, src, block, p.IV, digest)
	default:
		return fmt.Errorf("%w: unsupported algorithm %q", common.ErrDecryption, p.Algorithm)
	}
}

func openGCM(dst io.Writer, src io.Reader, block cipher.Block, nonce, digest []byte) error {
	aesgcm, err := cipher.NewGCM(block)
	if err != nil {
		return fmt.Errorf("%w: new gcm: %v", common.ErrDecryption, err)
	}
	if len(nonce) != aesgcm.NonceSize() {
		return fmt.Errorf("%w: invalid nonce length", common.ErrDecryption)
	}

	ciphertext, err := io.ReadAll(src)
	if err != nil {
		return fmt.Errorf("read ciphertext: %w", err)
	}

	plaintext, err := aesgcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return fmt.Errorf("%w: authentication failed", common.ErrIntegrity)
	}
	defer common.WipeByteArray(plaintext)

	sum := sha256.Sum256(plaintext)
	if subtle.ConstantTimeCompare(sum[:], digest) != 1 {
		return fmt.Errorf("%w: digest mismatch", common.ErrIntegrity)
	}

	if _, err := io.Copy(dst, bytes.NewReader(plaintext)); err != nil {
		return fmt.Errorf("write plaintext: %w", err)
	}
	return nil
}

func openCTR(dst io.Writer, src io.Reader, block cipher.Block, iv, digest []byte) error {
	if len(iv) != ctrIVSize {
		return fmt.Errorf("%w: invalid iv length", common.ErrDecryption)
	}

	h := sha256.New()
	sr := cipher.StreamReader{S: cipher.NewCTR(block, iv), R: src}

	if _, err := io.Copy(io.MultiWriter(dst, h), sr); err != nil {
		return fmt.Errorf("stream plaintext: %w", err)
	}

	if subtle.ConstantTimeCompare(h.Sum(nil), digest) != 1 {
		return fmt.Errorf("%w: digest mismatch", common.ErrIntegrity)
	}
	return nil
}

// Digest returns the SHA-256 of data.
func Digest(data []byte) []byte {
	sum := sha256.Sum256(data)
	return sum[:]
}

type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}
