package repomanager

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dmitrijs2005/sharekeeper/internal/common"
	"github.com/dmitrijs2005/sharekeeper/internal/server/repositories/files"
)

// sqlOpen is a seam for tests.
var sqlOpen = sql.Open

// New builds the manager for kind. For postgres the connection is opened and
// pinged before returning.
func New(ctx context.Context, kind, dsn string, sealer files.KeySealer) (RepositoryManager, error) {
	switch kind {
	case StoreMemory:
		return NewMemoryRepositoryManager(), nil
	case StorePostgres, "":
		if dsn == "" {
			return nil, fmt.Errorf("%w: database dsn is required for the postgres store", common.ErrInvalidArgument)
		}
		db, err := sqlOpen("pgx", dsn)
		if err != nil {
			return nil, err
		}
		if err := db.PingContext(ctx); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("ping database: %w", err)
		}
		return NewPostgresRepositoryManager(db, sealer), nil
	default:
		return nil, fmt.Errorf("%w: unknown record store %q", common.ErrInvalidArgument, kind)
	}
}
