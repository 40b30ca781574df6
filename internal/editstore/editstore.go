// Package editstore keeps one inert snapshot of the annotation layer per
// visited page of a document session.
package editstore

import (
	"fmt"
	"sort"
	"sync"

	"github.com/example/possemark/internal/annotation"
)

// Snapshot is the serialised annotation layer of a page at the moment it was
// left. A zero Data slice is an empty layer.
type Snapshot struct {
	Page int
	Data []byte
}

// Take serialises list into a snapshot for page.
func Take(page int, list []annotation.Annotation) (Snapshot, error) {
	if len(list) == 0 {
		return Snapshot{Page: page}, nil
	}
	data, err := annotation.Marshal(list)
	if err != nil {
		return Snapshot{}, fmt.Errorf("snapshot page %d: %w", page, err)
	}
	return Snapshot{Page: page, Data: data}, nil
}

// Empty reports whether the snapshot holds no annotations.
func (s Snapshot) Empty() bool { return len(s.Data) == 0 }

// Annotations rebuilds fresh annotation values from the snapshot. Each call
// returns new values so the snapshot itself is never mutated.
func (s Snapshot) Annotations() ([]annotation.Annotation, error) {
	list, err := annotation.Unmarshal(s.Data)
	if err != nil {
		return nil, fmt.Errorf("restore page %d: %w", s.Page, err)
	}
	return list, nil
}

// Store maps page numbers to snapshots. It is safe for concurrent use.
type Store struct {
	mu    sync.Mutex
	pages map[int]Snapshot
}

// New returns an empty store.
func New() *Store {
	return &Store{pages: make(map[int]Snapshot)}
}

// Put records snap under snap.Page, replacing any earlier snapshot.
func (s *Store) Put(snap Snapshot) {
	snap.Data = append([]byte(nil), snap.Data...)
	s.mu.Lock()
	s.pages[snap.Page] = snap
	s.mu.Unlock()
}

// Get returns the snapshot for page. A page that was never stored yields an
// empty snapshot and false; callers treat it as a blank layer.
func (s *Store) Get(page int) (Snapshot, bool) {
	s.mu.Lock()
	snap, ok := s.pages[page]
	s.mu.Unlock()
	if !ok {
		return Snapshot{Page: page}, false
	}
	snap.Data = append([]byte(nil), snap.Data...)
	return snap, true
}

// Delete forgets page.
func (s *Store) Delete(page int) {
	s.mu.Lock()
	delete(s.pages, page)
	s.mu.Unlock()
}

// Pages lists the stored page numbers in ascending order.
func (s *Store) Pages() []int {
	s.mu.Lock()
	out := make([]int, 0, len(s.pages))
	for p := range s.pages {
		out = append(out, p)
	}
	s.mu.Unlock()
	sort.Ints(out)
	return out
}

// Len returns the number of stored pages.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pages)
}

// Reset drops every snapshot. It is called when the document source changes.
func (s *Store) Reset() {
	s.mu.Lock()
	s.pages = make(map[int]Snapshot)
	s.mu.Unlock()
}
