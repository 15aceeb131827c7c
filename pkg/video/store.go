package video

import (
	"sort"
	"strings"
	"sync"
)

// FilterAll selects every platform.
const FilterAll = "All"

// Store is the in-memory, newest-first view of one owner's records.
// It is safe for concurrent use; processing outcomes arrive from other goroutines.
type Store struct {
	ownerID string

	mu      sync.RWMutex
	records []Record
	loaded  bool
}

func NewStore(ownerID string) *Store {
	return &Store{ownerID: ownerID}
}

func (s *Store) OwnerID() string { return s.ownerID }

// Load replaces the store contents. Records of other owners are dropped.
func (s *Store) Load(records []Record) {
	loaded := make([]Record, 0, len(records))
	for _, r := range records {
		if r.OwnerID != s.ownerID {
			continue
		}
		loaded = append(loaded, r.Clone())
	}
	sortNewestFirst(loaded)

	s.mu.Lock()
	s.records = loaded
	s.loaded = true
	s.mu.Unlock()
}

// Loaded reports whether Load has run since the store was created.
func (s *Store) Loaded() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loaded
}

// All returns a copy of every record, newest first.
func (s *Store) All() []Record {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Record, len(s.records))
	for i, r := range s.records {
		out[i] = r.Clone()
	}
	return out
}

// Filter returns the records for one platform without changing the store.
// An empty filter or FilterAll returns everything; an unrecognised label
// matches nothing.
func (s *Store) Filter(platform string) []Record {
	platform = strings.TrimSpace(platform)
	if platform == "" || strings.EqualFold(platform, FilterAll) {
		return s.All()
	}
	p, ok := ParsePlatform(platform)
	if !ok {
		return []Record{}
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Record, 0)
	for _, r := range s.records {
		if r.Platform == p {
			out = append(out, r.Clone())
		}
	}
	return out
}

// Append inserts r in createdAt order. An existing record with the same id is
// replaced. It reports false when r belongs to another owner.
func (s *Store) Append(r Record) bool {
	if r.OwnerID != s.ownerID {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if i := s.indexLocked(r.ID); i >= 0 {
		s.records[i] = r.Clone()
		return true
	}
	i := sort.Search(len(s.records), func(i int) bool {
		return !s.records[i].CreatedAt.After(r.CreatedAt)
	})
	s.records = append(s.records, Record{})
	copy(s.records[i+1:], s.records[i:])
	s.records[i] = r.Clone()
	return true
}

// Replace swaps the record with r.ID. It reports false when no such record exists.
func (s *Store) Replace(r Record) bool {
	if r.OwnerID != s.ownerID {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexLocked(r.ID)
	if i < 0 {
		return false
	}
	s.records[i] = r.Clone()
	return true
}

// Update applies fn to the record with id under the store lock and returns the
// updated copy.
func (s *Store) Update(id string, fn func(*Record)) (Record, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexLocked(id)
	if i < 0 {
		return Record{}, false
	}
	fn(&s.records[i])
	return s.records[i].Clone(), true
}

func (s *Store) Remove(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexLocked(id)
	if i < 0 {
		return false
	}
	s.records = append(s.records[:i], s.records[i+1:]...)
	return true
}

func (s *Store) Get(id string) (Record, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i := s.indexLocked(id)
	if i < 0 {
		return Record{}, false
	}
	return s.records[i].Clone(), true
}

// Unsettled returns the ids of records still pending or processing.
func (s *Store) Unsettled() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var ids []string
	for _, r := range s.records {
		if !r.Status.Settled() {
			ids = append(ids, r.ID)
		}
	}
	return ids
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

func (s *Store) indexLocked(id string) int {
	for i := range s.records {
		if s.records[i].ID == id {
			return i
		}
	}
	return -1
}

func sortNewestFirst(records []Record) {
	sort.SliceStable(records, func(i, j int) bool {
		return records[i].CreatedAt.After(records[j].CreatedAt)
	})
}

// Stores hands out one Store per owner.
type Stores struct {
	mu     sync.Mutex
	stores map[string]*Store
}

func NewStores() *Stores {
	return &Stores{stores: make(map[string]*Store)}
}

// For returns the owner's store, creating an empty one on first use.
func (s *Stores) For(ownerID string) *Store {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.stores[ownerID]
	if !ok {
		st = NewStore(ownerID)
		s.stores[ownerID] = st
	}
	return st
}

// Owners lists the owners that currently have a store.
func (s *Stores) Owners() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	owners := make([]string, 0, len(s.stores))
	for owner := range s.stores {
		owners = append(owners, owner)
	}
	sort.Strings(owners)
	return owners
}

// Drop forgets an owner's store.
func (s *Stores) Drop(ownerID string) {
	s.mu.Lock()
	delete(s.stores, ownerID)
	s.mu.Unlock()
}
