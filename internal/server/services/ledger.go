package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/sharekeeper/internal/common"
	"github.com/dmitrijs2005/sharekeeper/internal/server/models"
	"github.com/dmitrijs2005/sharekeeper/internal/server/repositories/repomanager"
	"github.com/google/uuid"
)

// GrantFailure reports a grantee skipped by Grant.
type GrantFailure struct {
	GranteeID string `json:"grantee_id"`
	Err       error  `json:"-"`
}

// Ledger records who may access which file and at what level. It operates on
// whatever Repositories it is bound to, so the gateway can run it inside a
// transaction.
type Ledger struct {
	repos repomanager.Repositories
	now   func() time.Time
}

func NewLedger(r repomanager.Repositories) *Ledger {
	return &Ledger{repos: r, now: time.Now}
}

func (l *Ledger) bind(r repomanager.Repositories) *Ledger {
	return &Ledger{repos: r, now: l.now}
}

// Grant gives each grantee access to fileID at level. grantorID must own the
// file. Unknown grantees and the grantor itself are skipped and reported in
// the failures; any other error aborts the call. An existing grant for the
// same grantee is updated in place.
func (l *Ledger) Grant(ctx context.Context, fileID, grantorID string, granteeIDs []string,
	level models.PermissionLevel, note string) ([]*models.ShareGrant, []GrantFailure, error) {

	if level < models.LevelView || level > models.LevelFull {
		return nil, nil, fmt.Errorf("%w: level %s cannot be granted", common.ErrInvalidArgument, level)
	}

	file, err := l.repos.Files().Get(ctx, fileID)
	if err != nil {
		return nil, nil, err
	}
	if file.OwnerID != grantorID {
		return nil, nil, fmt.Errorf("%w: only the owner can share a file", common.ErrPermission)
	}

	var (
		grants   []*models.ShareGrant
		failures []GrantFailure
		seen     = make(map[string]bool, len(granteeIDs))
	)
	for _, granteeID := range granteeIDs {
		if seen[granteeID] {
			continue
		}
		seen[granteeID] = true

		if granteeID == "" || granteeID == grantorID {
			failures = append(failures, GrantFailure{GranteeID: granteeID,
				Err: fmt.Errorf("%w: cannot share a file with its owner", common.ErrInvalidArgument)})
			continue
		}
		if _, err := l.repos.Users().GetByID(ctx, granteeID); err != nil {
			if errors.Is(err, common.ErrorNotFound) {
				failures = append(failures, GrantFailure{GranteeID: granteeID,
					Err: fmt.Errorf("%w: user %s", common.ErrorNotFound, granteeID)})
				continue
			}
			return nil, nil, err
		}

		g, err := l.repos.Shares().Upsert(ctx, &models.ShareGrant{
			ID:        uuid.NewString(),
			FileID:    fileID,
			GrantorID: grantorID,
			GranteeID: granteeID,
			Level:     level,
			Note:      note,
			CreatedAt: l.now().UTC(),
		})
		if err != nil {
			return nil, nil, err
		}
		grants = append(grants, g)
	}
	return grants, failures, nil
}

func (l *Ledger) Revoke(ctx context.Context, grantID string) (bool, error) {
	return l.repos.Shares().Delete(ctx, grantID)
}

func (l *Ledger) GetGrant(ctx context.Context, grantID string) (*models.ShareGrant, error) {
	return l.repos.Shares().Get(ctx, grantID)
}

func (l *Ledger) ListGrantedToMe(ctx context.Context, userID string) ([]*models.SharedFile, error) {
	return l.repos.Shares().ListForGrantee(ctx, userID)
}

func (l *Ledger) ListGrantedByMe(ctx context.Context, userID string) ([]*models.SharedFile, error) {
	return l.repos.Shares().ListByGrantor(ctx, userID)
}

// MarkViewed flips viewed to true. It returns false only when the grant does
// not exist.
func (l *Ledger) MarkViewed(ctx context.Context, grantID string) (bool, error) {
	return l.repos.Shares().MarkViewed(ctx, grantID)
}

func (l *Ledger) CascadeDeleteForFile(ctx context.Context, fileID string) (int64, error) {
	return l.repos.Shares().DeleteByFile(ctx, fileID)
}

// EffectiveLevel is LevelFull for the owner, otherwise the highest level
// granted to userID, or LevelNone.
func (l *Ledger) EffectiveLevel(ctx context.Context, fileID, userID string) (models.PermissionLevel, error) {
	_, level, err := l.resolve(ctx, fileID, userID)
	return level, err
}

func (l *Ledger) resolve(ctx context.Context, fileID, userID string) (*models.EncryptedFile, models.PermissionLevel, error) {
	file, err := l.repos.Files().Get(ctx, fileID)
	if err != nil {
		return nil, models.LevelNone, err
	}
	if file.OwnerID == userID {
		return file, models.LevelFull, nil
	}
	level, err := l.repos.Shares().LevelFor(ctx, fileID, userID)
	if err != nil {
		return nil, models.LevelNone, err
	}
	return file, level, nil
}
