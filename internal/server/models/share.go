package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/dmitrijs2005/sharekeeper/internal/common"
)

// PermissionLevel is an ordered access level. The zero value means no access.
type PermissionLevel int

const (
	LevelNone PermissionLevel = iota
	LevelView
	LevelDownload
	LevelFull
)

var levelNames = map[PermissionLevel]string{
	LevelNone:     "none",
	LevelView:     "view",
	LevelDownload: "download",
	LevelFull:     "full",
}

func (l PermissionLevel) String() string {
	if s, ok := levelNames[l]; ok {
		return s
	}
	return fmt.Sprintf("level(%d)", int(l))
}

// Allows reports whether l satisfies the required level.
func (l PermissionLevel) Allows(required PermissionLevel) bool {
	return l >= required && l > LevelNone
}

// ParsePermissionLevel parses a grantable level name (view, download, full).
func ParsePermissionLevel(s string) (PermissionLevel, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "view":
		return LevelView, nil
	case "download":
		return LevelDownload, nil
	case "full":
		return LevelFull, nil
	}
	return LevelNone, fmt.Errorf("%w: unknown permission level %q", common.ErrInvalidArgument, s)
}

func (l PermissionLevel) MarshalText() ([]byte, error) {
	return []byte(l.String()), nil
}

func (l *PermissionLevel) UnmarshalText(b []byte) error {
	if string(b) == "none" {
		*l = LevelNone
		return nil
	}
	v, err := ParsePermissionLevel(string(b))
	if err != nil {
		return err
	}
	*l = v
	return nil
}

// ShareGrant gives GranteeID access to FileID at Level. There is at most one
// grant per (FileID, GranteeID).
type ShareGrant struct {
	ID        string          `json:"id"`
	FileID    string          `json:"file_id"`
	GrantorID string          `json:"grantor_id"`
	GranteeID string          `json:"grantee_id"`
	Level     PermissionLevel `json:"level"`
	Note      string          `json:"note,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
	Viewed    bool            `json:"viewed"`
}

// SharedFile is a grant joined with the file it covers and the user on the
// other side of it (the grantor for received shares, the grantee for sent).
type SharedFile struct {
	Grant       ShareGrant  `json:"grant"`
	File        FileSummary `json:"file"`
	Counterpart User        `json:"counterpart"`
}
