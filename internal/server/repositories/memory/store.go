// Package memory is the in-process variant of every repository. All maps are
// guarded by one RWMutex; Atomically holds it exclusively for the duration of
// a multi-step change and restores a snapshot if the change fails.
package memory

import (
	"maps"
	"sort"
	"sync"

	"github.com/dmitrijs2005/sharekeeper/internal/server/models"
	"github.com/dmitrijs2005/sharekeeper/internal/server/repositories/accesslog"
	"github.com/dmitrijs2005/sharekeeper/internal/server/repositories/files"
	"github.com/dmitrijs2005/sharekeeper/internal/server/repositories/shares"
	"github.com/dmitrijs2005/sharekeeper/internal/server/repositories/users"
)

type fileRow struct {
	file models.EncryptedFile
	seq  uint64
}

type grantRow struct {
	grant models.ShareGrant
	seq   uint64
}

type state struct {
	seq      uint64
	logID    int64
	files    map[string]fileRow
	locators map[string]string
	grants   map[string]grantRow
	log      map[string][]models.AccessLogEntry
	users    map[string]models.User
}

func newState() *state {
	return &state{
		files:    make(map[string]fileRow),
		locators: make(map[string]string),
		grants:   make(map[string]grantRow),
		log:      make(map[string][]models.AccessLogEntry),
		users:    make(map[string]models.User),
	}
}

// clone copies the maps. Row values are copied by value; byte slices are
// shared because nothing mutates them in place.
func (st *state) clone() *state {
	c := &state{
		seq:      st.seq,
		logID:    st.logID,
		files:    maps.Clone(st.files),
		locators: maps.Clone(st.locators),
		grants:   maps.Clone(st.grants),
		log:      make(map[string][]models.AccessLogEntry, len(st.log)),
		users:    maps.Clone(st.users),
	}
	for k, v := range st.log {
		c.log[k] = append([]models.AccessLogEntry(nil), v...)
	}
	return c
}

func (st *state) next() uint64 {
	st.seq++
	return st.seq
}

// Store keeps metadata in-process.
type Store struct {
	mu sync.RWMutex
	st *state
}

// NewStore initializes an empty store.
func NewStore() *Store {
	return &Store{st: newState()}
}

// View returns repositories that lock the store on every call.
func (s *Store) View() View {
	return View{s: s}
}

// Atomically runs fn with exclusive access to the store. fn must only use the
// View it is given. If fn returns an error every change it made is undone.
func (s *Store) Atomically(fn func(View) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := s.st.clone()
	if err := fn(View{s: s, tx: true}); err != nil {
		s.st = snapshot
		return err
	}
	return nil
}

func (s *Store) rlock(tx bool) func() {
	if tx {
		return func() {}
	}
	s.mu.RLock()
	return s.mu.RUnlock
}

func (s *Store) lock(tx bool) func() {
	if tx {
		return func() {}
	}
	s.mu.Lock()
	return s.mu.Unlock
}

// View exposes the store through the repository interfaces.
type View struct {
	s  *Store
	tx bool
}

func (v View) Files() files.Repository         { return fileRepo(v) }
func (v View) Shares() shares.Repository       { return shareRepo(v) }
func (v View) AccessLog() accesslog.Repository { return logRepo(v) }
func (v View) Users() users.Repository         { return userRepo(v) }

// newestFirst sorts by CreatedAt descending, breaking ties by reverse
// insertion order.
func newestFirst[T any](rows []T, at func(T) (int64, uint64)) {
	sort.SliceStable(rows, func(i, j int) bool {
		ti, si := at(rows[i])
		tj, sj := at(rows[j])
		if ti != tj {
			return ti > tj
		}
		return si > sj
	})
}
