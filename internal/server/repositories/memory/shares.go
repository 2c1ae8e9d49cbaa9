package memory

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/sharekeeper/internal/common"
	"github.com/dmitrijs2005/sharekeeper/internal/server/models"
)

type shareRepo View

func (r shareRepo) Upsert(_ context.Context, g *models.ShareGrant) (*models.ShareGrant, error) {
	defer r.s.lock(r.tx)()
	st := r.s.st

	if _, ok := st.files[g.FileID]; !ok {
		return nil, fmt.Errorf("%w: file %s", common.ErrorNotFound, g.FileID)
	}
	if g.GrantorID == g.GranteeID {
		return nil, fmt.Errorf("%w: grantor and grantee are the same user", common.ErrInvalidArgument)
	}

	for id, row := range st.grants {
		if row.grant.FileID == g.FileID && row.grant.GranteeID == g.GranteeID {
			row.grant.Level = g.Level
			row.grant.Note = g.Note
			st.grants[id] = row
			out := row.grant
			return &out, nil
		}
	}

	if _, ok := st.grants[g.ID]; ok {
		return nil, fmt.Errorf("%w: grant %s already exists", common.ErrConflict, g.ID)
	}
	row := grantRow{grant: *g, seq: st.next()}
	row.grant.Viewed = false
	st.grants[g.ID] = row
	out := row.grant
	return &out, nil
}

func (r shareRepo) Get(_ context.Context, id string) (*models.ShareGrant, error) {
	defer r.s.rlock(r.tx)()

	row, ok := r.s.st.grants[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	g := row.grant
	return &g, nil
}

func (r shareRepo) Delete(_ context.Context, id string) (bool, error) {
	defer r.s.lock(r.tx)()

	if _, ok := r.s.st.grants[id]; !ok {
		return false, nil
	}
	delete(r.s.st.grants, id)
	return true, nil
}

func (r shareRepo) DeleteByFile(_ context.Context, fileID string) (int64, error) {
	defer r.s.lock(r.tx)()

	var n int64
	for id, row := range r.s.st.grants {
		if row.grant.FileID == fileID {
			delete(r.s.st.grants, id)
			n++
		}
	}
	return n, nil
}

func (r shareRepo) ListByFile(_ context.Context, fileID string) ([]*models.ShareGrant, error) {
	defer r.s.rlock(r.tx)()

	rows := r.collect(func(g *models.ShareGrant) bool { return g.FileID == fileID })
	result := make([]*models.ShareGrant, 0, len(rows))
	for _, row := range rows {
		g := row.grant
		result = append(result, &g)
	}
	return result, nil
}

func (r shareRepo) ListForGrantee(_ context.Context, userID string) ([]*models.SharedFile, error) {
	defer r.s.rlock(r.tx)()

	rows := r.collect(func(g *models.ShareGrant) bool { return g.GranteeID == userID })
	return r.join(rows, func(g *models.ShareGrant) string { return g.GrantorID }), nil
}

func (r shareRepo) ListByGrantor(_ context.Context, userID string) ([]*models.SharedFile, error) {
	defer r.s.rlock(r.tx)()

	rows := r.collect(func(g *models.ShareGrant) bool { return g.GrantorID == userID })
	return r.join(rows, func(g *models.ShareGrant) string { return g.GranteeID }), nil
}

// MarkViewed sets viewed and reports whether the grant exists.
func (r shareRepo) MarkViewed(_ context.Context, id string) (bool, error) {
	defer r.s.lock(r.tx)()

	row, ok := r.s.st.grants[id]
	if !ok {
		return false, nil
	}
	row.grant.Viewed = true
	r.s.st.grants[id] = row
	return true, nil
}

func (r shareRepo) LevelFor(_ context.Context, fileID, userID string) (models.PermissionLevel, error) {
	defer r.s.rlock(r.tx)()

	best := models.LevelNone
	for _, row := range r.s.st.grants {
		if row.grant.FileID == fileID && row.grant.GranteeID == userID && row.grant.Level > best {
			best = row.grant.Level
		}
	}
	return best, nil
}

// collect must be called with the store locked.
func (r shareRepo) collect(match func(*models.ShareGrant) bool) []grantRow {
	var rows []grantRow
	for _, row := range r.s.st.grants {
		if match(&row.grant) {
			rows = append(rows, row)
		}
	}
	newestFirst(rows, func(row grantRow) (int64, uint64) { return row.grant.CreatedAt.UnixNano(), row.seq })
	return rows
}

// join must be called with the store locked.
func (r shareRepo) join(rows []grantRow, counterpart func(*models.ShareGrant) string) []*models.SharedFile {
	result := make([]*models.SharedFile, 0, len(rows))
	for _, row := range rows {
		fr, ok := r.s.st.files[row.grant.FileID]
		if !ok {
			continue
		}
		uid := counterpart(&row.grant)
		u, ok := r.s.st.users[uid]
		if !ok {
			u = models.User{ID: uid}
		}
		result = append(result, &models.SharedFile{
			Grant:       row.grant,
			File:        fr.file.Summary(),
			Counterpart: u,
		})
	}
	return result
}
