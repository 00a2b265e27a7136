package state

import (
	"sync"

	"github.com/danhigham/groupcast/internal/domain"
)

// Store holds the last group snapshot of the active session and the ordered
// selection of send targets chosen from it.
type Store struct {
	mu        sync.RWMutex
	account   string
	groups    []domain.Group
	selection []int64
	onChange  func()
}

func New(onChange func()) *Store {
	return &Store{onChange: onChange}
}

func (s *Store) changed() {
	if s.onChange != nil {
		s.onChange()
	}
}

// OnGroupsUpdate replaces the snapshot. Selected ids that are no longer
// present, or that belonged to another account, are dropped.
func (s *Store) OnGroupsUpdate(account string, groups []domain.Group) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.groups = make([]domain.Group, len(groups))
	copy(s.groups, groups)

	if account != s.account {
		s.selection = nil
	}
	s.account = account

	kept := s.selection[:0]
	for _, id := range s.selection {
		if s.indexOf(id) >= 0 {
			kept = append(kept, id)
		}
	}
	s.selection = kept
	s.changed()
}

func (s *Store) Account() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.account
}

func (s *Store) Groups() []domain.Group {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Group, len(s.groups))
	copy(out, s.groups)
	return out
}

func (s *Store) GroupAt(i int) (domain.Group, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if i < 0 || i >= len(s.groups) {
		return domain.Group{}, false
	}
	return s.groups[i], true
}

func (s *Store) GroupByID(id int64) (domain.Group, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if i := s.indexOf(id); i >= 0 {
		return s.groups[i], true
	}
	return domain.Group{}, false
}

// Select replaces the selection with ids, in order. Unknown and duplicate
// ids are skipped; the number of ids kept is returned.
func (s *Store) Select(ids []int64) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	seen := make(map[int64]bool, len(ids))
	s.selection = s.selection[:0]
	for _, id := range ids {
		if seen[id] || s.indexOf(id) < 0 {
			continue
		}
		seen[id] = true
		s.selection = append(s.selection, id)
	}
	s.changed()
	return len(s.selection)
}

func (s *Store) ClearSelection() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.selection = nil
	s.changed()
}

// Selected returns the selected groups in selection order.
func (s *Store) Selected() []domain.Group {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Group, 0, len(s.selection))
	for _, id := range s.selection {
		if i := s.indexOf(id); i >= 0 {
			out = append(out, s.groups[i])
		}
	}
	return out
}

// SelectedIDs returns the selected ids in selection order.
func (s *Store) SelectedIDs() []int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]int64(nil), s.selection...)
}

func (s *Store) indexOf(id int64) int {
	for i, g := range s.groups {
		if g.ID == id {
			return i
		}
	}
	return -1
}
