package filex

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnsureDir_CreatesNested(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "a", "b")

	got, err := EnsureDir(dir)
	require.NoError(t, err)
	assert.Equal(t, dir, got)

	fi, err := os.Stat(dir)
	require.NoError(t, err)
	assert.True(t, fi.IsDir())

	_, err = EnsureDir(dir)
	require.NoError(t, err, "must be idempotent")
}

func TestSpool_ReaderRemovesOnClose(t *testing.T) {
	dir := t.TempDir()

	s, err := NewSpool(dir, "plain-*")
	require.NoError(t, err)
	_, err = s.Write([]byte("hello"))
	require.NoError(t, err)

	rc, err := s.Reader()
	require.NoError(t, err)

	b, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(b))

	require.NoError(t, rc.Close())
	_, err = os.Stat(s.Name())
	assert.True(t, os.IsNotExist(err))
}

func TestSpool_Discard(t *testing.T) {
	dir := t.TempDir()

	s, err := NewSpool(dir, "cipher-*")
	require.NoError(t, err)
	s.Discard()
	s.Discard()

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestContextReader_StopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	r := ContextReader(ctx, strings.NewReader(strings.Repeat("x", 1024)))

	buf := make([]byte, 16)
	n, err := r.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, 16, n)

	cancel()
	_, err = r.Read(buf)
	assert.ErrorIs(t, err, context.Canceled)
}
