// Package repomanager selects the repository variant configured for the
// server and exposes it as one RepositoryManager.
package repomanager

import (
	"context"

	"github.com/dmitrijs2005/sharekeeper/internal/server/repositories/accesslog"
	"github.com/dmitrijs2005/sharekeeper/internal/server/repositories/files"
	"github.com/dmitrijs2005/sharekeeper/internal/server/repositories/shares"
	"github.com/dmitrijs2005/sharekeeper/internal/server/repositories/users"
)

// Repositories is one consistent set of repositories, either bound to the
// shared connection or to a single transaction.
type Repositories interface {
	Files() files.Repository
	Shares() shares.Repository
	AccessLog() accesslog.Repository
	Users() users.Repository
}

type RepositoryManager interface {
	Repositories

	RunMigrations(ctx context.Context) error
	// WithTx runs fn against repositories whose changes commit together or
	// not at all.
	WithTx(ctx context.Context, fn func(ctx context.Context, r Repositories) error) error
	Close() error
}

// Store kinds accepted by New.
const (
	StoreMemory   = "memory"
	StorePostgres = "postgres"
)
