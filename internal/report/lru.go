package report

import (
	lru "github.com/hashicorp/golang-lru/v2"
)

// LRUStore keeps the most recently used records in memory and writes through
// to a backing Store, which also serves cache misses.
type LRUStore struct {
	cache *lru.Cache[string, *RunRecord]
	back  Store
}

// NewLRUStore returns a cache holding up to size records in front of back.
// A size below 1 is raised to 1.
func NewLRUStore(size int, back Store) *LRUStore {
	if size < 1 {
		size = 1
	}
	// New only fails for a non-positive size.
	cache, _ := lru.New[string, *RunRecord](size)
	return &LRUStore{cache: cache, back: back}
}

// Save caches rec and writes it to the backing store.
func (s *LRUStore) Save(rec *RunRecord) error {
	s.cache.Add(rec.ID, rec)
	return s.back.Save(rec)
}

// Load serves runID from the cache. On a miss the backing store is read and
// the record cached.
func (s *LRUStore) Load(runID string) (*RunRecord, error) {
	if rec, ok := s.cache.Get(runID); ok {
		return rec, nil
	}

	rec, err := s.back.Load(runID)
	if err != nil {
		return nil, err
	}
	s.cache.Add(runID, rec)
	return rec, nil
}

// Len returns the number of cached records.
func (s *LRUStore) Len() int {
	return s.cache.Len()
}
