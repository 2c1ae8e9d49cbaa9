package memory

import (
	"context"
	"time"

	"github.com/dmitrijs2005/sharekeeper/internal/common"
	"github.com/dmitrijs2005/sharekeeper/internal/server/models"
)

type userRepo View

func (r userRepo) Upsert(_ context.Context, u *models.User) error {
	defer r.s.lock(r.tx)()

	existing, ok := r.s.st.users[u.ID]
	if !ok {
		existing = models.User{ID: u.ID, CreatedAt: time.Now().UTC()}
	}
	if u.UserName != "" {
		existing.UserName = u.UserName
	}
	r.s.st.users[u.ID] = existing
	return nil
}

func (r userRepo) GetByID(_ context.Context, id string) (*models.User, error) {
	defer r.s.rlock(r.tx)()

	u, ok := r.s.st.users[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return &u, nil
}
