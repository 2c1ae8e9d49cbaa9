package memory

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/sharekeeper/internal/common"
	"github.com/dmitrijs2005/sharekeeper/internal/server/models"
)

type logRepo View

// Append rejects entries for files that do not exist.
func (r logRepo) Append(_ context.Context, e *models.AccessLogEntry) error {
	defer r.s.lock(r.tx)()
	st := r.s.st

	if _, ok := st.files[e.FileID]; !ok {
		return fmt.Errorf("%w: file %s", common.ErrorNotFound, e.FileID)
	}

	st.logID++
	e.ID = st.logID
	st.log[e.FileID] = append(st.log[e.FileID], *e)
	return nil
}

func (r logRepo) ListRecent(_ context.Context, fileID string, limit int) ([]*models.AccessLogEntry, error) {
	defer r.s.rlock(r.tx)()

	entries := r.s.st.log[fileID]
	result := make([]*models.AccessLogEntry, 0, min(limit, len(entries)))
	for i := len(entries) - 1; i >= 0 && len(result) < limit; i-- {
		e := entries[i]
		result = append(result, &e)
	}
	return result, nil
}

func (r logRepo) DeleteByFile(_ context.Context, fileID string) (int64, error) {
	defer r.s.lock(r.tx)()

	n := int64(len(r.s.st.log[fileID]))
	delete(r.s.st.log, fileID)
	return n, nil
}
