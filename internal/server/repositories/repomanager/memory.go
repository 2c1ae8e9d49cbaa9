package repomanager

import (
	"context"

	"github.com/dmitrijs2005/sharekeeper/internal/server/repositories/memory"
)

// MemoryRepositoryManager keeps everything in process. Nothing survives a
// restart.
type MemoryRepositoryManager struct {
	memory.View
	store *memory.Store
}

func NewMemoryRepositoryManager() *MemoryRepositoryManager {
	s := memory.NewStore()
	return &MemoryRepositoryManager{View: s.View(), store: s}
}

func (m *MemoryRepositoryManager) RunMigrations(context.Context) error { return nil }

func (m *MemoryRepositoryManager) WithTx(ctx context.Context, fn func(ctx context.Context, r Repositories) error) error {
	return m.store.Atomically(func(v memory.View) error {
		return fn(ctx, v)
	})
}

func (m *MemoryRepositoryManager) Close() error { return nil }
