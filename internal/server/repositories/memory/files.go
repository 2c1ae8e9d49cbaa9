package memory

import (
	"context"
	"fmt"
	"time"

	"github.com/dmitrijs2005/sharekeeper/internal/common"
	"github.com/dmitrijs2005/sharekeeper/internal/server/models"
)

type fileRepo View

func (r fileRepo) Create(_ context.Context, f *models.EncryptedFile) error {
	defer r.s.lock(r.tx)()
	st := r.s.st

	if _, ok := st.files[f.ID]; ok {
		return fmt.Errorf("%w: file %s already exists", common.ErrConflict, f.ID)
	}
	if _, ok := st.locators[f.StorageLocator]; ok {
		return fmt.Errorf("%w: locator already in use", common.ErrConflict)
	}
	if _, ok := st.users[f.OwnerID]; !ok {
		return fmt.Errorf("%w: owner %s", common.ErrorNotFound, f.OwnerID)
	}

	st.files[f.ID] = fileRow{file: *f, seq: st.next()}
	st.locators[f.StorageLocator] = f.ID
	return nil
}

func (r fileRepo) Get(_ context.Context, id string) (*models.EncryptedFile, error) {
	defer r.s.rlock(r.tx)()

	row, ok := r.s.st.files[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	f := row.file
	return &f, nil
}

func (r fileRepo) ListByOwner(_ context.Context, ownerID string) ([]*models.EncryptedFile, error) {
	defer r.s.rlock(r.tx)()

	var rows []fileRow
	for _, row := range r.s.st.files {
		if row.file.OwnerID == ownerID {
			rows = append(rows, row)
		}
	}
	newestFirst(rows, func(row fileRow) (int64, uint64) { return row.file.CreatedAt.UnixNano(), row.seq })

	result := make([]*models.EncryptedFile, 0, len(rows))
	for _, row := range rows {
		f := row.file
		result = append(result, &f)
	}
	return result, nil
}

func (r fileRepo) TouchAccessed(_ context.Context, id string, at time.Time) error {
	defer r.s.lock(r.tx)()

	row, ok := r.s.st.files[id]
	if ok && row.file.LastAccessedAt.Before(at) {
		row.file.LastAccessedAt = at
		r.s.st.files[id] = row
	}
	return nil
}

func (r fileRepo) Delete(_ context.Context, id string) (bool, error) {
	defer r.s.lock(r.tx)()
	st := r.s.st

	row, ok := st.files[id]
	if !ok {
		return false, nil
	}
	delete(st.files, id)
	delete(st.locators, row.file.StorageLocator)
	delete(st.log, id)
	for gid, g := range st.grants {
		if g.grant.FileID == id {
			delete(st.grants, gid)
		}
	}
	return true, nil
}
