package server

import (
	"errors"
	"os"
	"sync"
	"time"

	. "ecloudframes/common"
	"ecloudframes/store"
)

// A Snapshot serves the most recently persisted store.  The file is checked on every access and
// reloaded when its modification time or size has changed; the engine replaces the file atomically,
// so a reload always sees a complete snapshot.
type Snapshot struct {
	filename string

	// MT: Locked
	sync.Mutex
	modTime time.Time
	size    int64
	current *store.Store
}

func NewSnapshot(filename string) *Snapshot {
	return &Snapshot{filename: filename}
}

// The current store, which must not be modified.  A missing file is an empty store.  If a changed
// file cannot be loaded the previous store is kept and the error is logged.
func (s *Snapshot) Store() (*store.Store, error) {
	s.Lock()
	defer s.Unlock()

	info, err := os.Stat(s.filename)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return nil, err
		}
		if s.current == nil || !s.modTime.IsZero() {
			s.current = store.New(s.filename)
			s.modTime, s.size = time.Time{}, 0
		}
		return s.current, nil
	}
	if s.current != nil && info.ModTime().Equal(s.modTime) && info.Size() == s.size {
		return s.current, nil
	}
	st, err := store.Load(s.filename)
	if err != nil {
		if s.current != nil {
			Log.Warningf("Keeping previous snapshot: %v", err)
			return s.current, nil
		}
		return nil, err
	}
	Log.Infof("Loaded snapshot %s", s.filename)
	s.current, s.modTime, s.size = st, info.ModTime(), info.Size()
	return s.current, nil
}
