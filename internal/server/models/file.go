// Package models defines server-side data models persisted by the
// repositories and returned by the access gateway.
package models

import "time"

// EncryptedFile is the metadata record of one stored file. The ciphertext
// itself lives in blob storage under StorageLocator.
type EncryptedFile struct {
	ID              string    `json:"id"`
	OwnerID         string    `json:"owner_id"`
	OriginalName    string    `json:"original_name"`
	MimeType        string    `json:"mime_type"`
	PlaintextSize   int64     `json:"plaintext_size"`
	StoredSize      int64     `json:"stored_size"`
	Digest          []byte    `json:"digest"`
	CipherAlgorithm string    `json:"cipher_algorithm"`
	CreatedAt       time.Time `json:"created_at"`
	LastAccessedAt  time.Time `json:"last_accessed_at"`
	StorageLocator  string    `json:"-"`

	// CipherKey and CipherIV are set once at creation and never serialized.
	CipherKey []byte `json:"-"`
	CipherIV  []byte `json:"-"`
}

// Summary returns the key-free view of f used in listings and events.
func (f *EncryptedFile) Summary() FileSummary {
	return FileSummary{
		ID:            f.ID,
		OwnerID:       f.OwnerID,
		OriginalName:  f.OriginalName,
		MimeType:      f.MimeType,
		PlaintextSize: f.PlaintextSize,
		CreatedAt:     f.CreatedAt,
	}
}

// FileSummary is the public subset of EncryptedFile.
type FileSummary struct {
	ID            string    `json:"id"`
	OwnerID       string    `json:"owner_id"`
	OriginalName  string    `json:"original_name"`
	MimeType      string    `json:"mime_type"`
	PlaintextSize int64     `json:"plaintext_size"`
	CreatedAt     time.Time `json:"created_at"`
}
