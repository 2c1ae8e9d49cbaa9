// Package filex contains filesystem helpers for transient spool files: the
// encrypted upload staged before it reaches blob storage and the decrypted
// download held until its digest is verified.
package filex

import (
	"context"
	"fmt"
	"io"
	"os"
)

// EnsureDir creates dir (and parents) if it does not exist.
func EnsureDir(dir string) (string, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", fmt.Errorf("mkdir %s: %w", dir, err)
	}
	return dir, nil
}

// Spool is a temporary file that is removed by Discard or, after Rewind, by
// closing the reader handed out to the caller.
type Spool struct {
	f *os.File
}

// NewSpool creates an empty spool file in dir.
func NewSpool(dir, pattern string) (*Spool, error) {
	f, err := os.CreateTemp(dir, pattern)
	if err != nil {
		return nil, fmt.Errorf("create spool: %w", err)
	}
	return &Spool{f: f}, nil
}

func (s *Spool) Write(p []byte) (int, error) { return s.f.Write(p) }

// Name returns the path of the spool file.
func (s *Spool) Name() string { return s.f.Name() }

// Rewind seeks back to the start so the spool can be read.
func (s *Spool) Rewind() (*os.File, error) {
	if _, err := s.f.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("rewind spool: %w", err)
	}
	return s.f, nil
}

// Discard closes and removes the spool file. Safe to call more than once.
func (s *Spool) Discard() {
	_ = s.f.Close()
	_ = os.Remove(s.f.Name())
}

// Reader rewinds the spool and returns a ReadCloser whose Close removes the
// file.
func (s *Spool) Reader() (io.ReadCloser, error) {
	f, err := s.Rewind()
	if err != nil {
		s.Discard()
		return nil, err
	}
	return &removeOnClose{File: f}, nil
}

type removeOnClose struct {
	*os.File
}

func (r *removeOnClose) Close() error {
	err := r.File.Close()
	if rmErr := os.Remove(r.File.Name()); rmErr != nil && !os.IsNotExist(rmErr) && err == nil {
		err = rmErr
	}
	return err
}

// ContextReader returns a reader that fails with ctx.Err() once ctx is done,
// so long copies stop promptly on cancellation.
func ContextReader(ctx context.Context, r io.Reader) io.Reader {
	return &ctxReader{ctx: ctx, r: r}
}

type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func (c *ctxReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}
