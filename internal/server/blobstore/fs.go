package blobstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/dmitrijs2005/sharekeeper/internal/common"
	"github.com/dmitrijs2005/sharekeeper/internal/filex"
)

// FSStore keeps blobs as files below a root directory.
type FSStore struct {
	root string
}

func NewFSStore(root string) (*FSStore, error) {
	if _, err := filex.EnsureDir(filepath.Join(root, Namespace)); err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrStorageIO, err)
	}
	return &FSStore{root: root}, nil
}

func (s *FSStore) path(key string) string {
	return filepath.Join(s.root, filepath.FromSlash(key))
}

// Put writes to a temporary file in the target directory and renames it into
// place.
func (s *FSStore) Put(ctx context.Context, key string, r io.Reader, _ int64) error {
	if err := checkKey(key); err != nil {
		return err
	}
	dst := s.path(key)
	dir, err := filex.EnsureDir(filepath.Dir(dst))
	if err != nil {
		return fmt.Errorf("%w: %v", common.ErrStorageIO, err)
	}

	tmp, err := filex.NewSpool(dir, ".put-*")
	if err != nil {
		return fmt.Errorf("%w: %v", common.ErrStorageIO, err)
	}
	defer tmp.Discard()

	if _, err := io.Copy(tmp, filex.ContextReader(ctx, r)); err != nil {
		return fmt.Errorf("%w: write blob: %w", common.ErrStorageIO, err)
	}
	f, err := tmp.Rewind()
	if err != nil {
		return fmt.Errorf("%w: %v", common.ErrStorageIO, err)
	}
	if err := f.Sync(); err != nil {
		return fmt.Errorf("%w: sync blob: %v", common.ErrStorageIO, err)
	}
	if err := os.Rename(tmp.Name(), dst); err != nil {
		return fmt.Errorf("%w: rename blob: %v", common.ErrStorageIO, err)
	}
	return nil
}

func (s *FSStore) Get(_ context.Context, key string) (io.ReadCloser, error) {
	if err := checkKey(key); err != nil {
		return nil, err
	}
	f, err := os.Open(s.path(key))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: blob %s is missing", common.ErrStorageIO, key)
		}
		return nil, fmt.Errorf("%w: %v", common.ErrStorageIO, err)
	}
	return f, nil
}

func (s *FSStore) Delete(_ context.Context, key string) error {
	if err := checkKey(key); err != nil {
		return err
	}
	if err := os.Remove(s.path(key)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%w: %v", common.ErrStorageIO, err)
	}
	return nil
}
