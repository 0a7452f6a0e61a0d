package store

import (
	"sort"
	"sync"

	"github.com/Sussexdowns/Foodshare/internal/model"
)

// LocationStore is the in-memory working set of locations for one session
// of the map. All mutations happen under a single lock so readers never see
// a half-applied replace or merge.
type LocationStore struct {
	mu        sync.RWMutex
	locations []model.Location
	index     map[int]int // id -> position in locations
	counties  map[string]bool
}

// NewLocationStore returns an empty store.
func NewLocationStore() *LocationStore {
	return &LocationStore{
		index:    make(map[int]int),
		counties: make(map[string]bool),
	}
}

// Replace discards the current contents and installs set. Duplicate ids in
// set keep their last occurrence at the first occurrence's position.
func (s *LocationStore) Replace(set []model.Location) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.locations = make([]model.Location, 0, len(set))
	s.index = make(map[int]int, len(set))
	s.counties = make(map[string]bool)
	for _, l := range set {
		if i, ok := s.index[l.ID]; ok {
			s.locations[i] = l
			continue
		}
		s.index[l.ID] = len(s.locations)
		s.locations = append(s.locations, l)
	}
}

// Merge appends locations whose id is not yet present and marks countyIDs
// as loaded. It returns the number of locations added.
func (s *LocationStore) Merge(set []model.Location, countyIDs ...string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	added := 0
	for _, l := range set {
		if _, ok := s.index[l.ID]; ok {
			continue
		}
		s.index[l.ID] = len(s.locations)
		s.locations = append(s.locations, l)
		added++
	}
	for _, id := range countyIDs {
		if id != "" {
			s.counties[id] = true
		}
	}
	return added
}

// All returns a copy of the working set in insertion order.
func (s *LocationStore) All() []model.Location {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]model.Location, len(s.locations))
	copy(out, s.locations)
	return out
}

// Len returns the number of locations held.
func (s *LocationStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.locations)
}

// Get returns the location with the given id.
func (s *LocationStore) Get(id int) (model.Location, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	i, ok := s.index[id]
	if !ok {
		return model.Location{}, false
	}
	return s.locations[i], true
}

// IsCountyLoaded reports whether a county has already been merged.
func (s *LocationStore) IsCountyLoaded(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.counties[id]
}

// LoadedCounties returns the merged county ids, sorted.
func (s *LocationStore) LoadedCounties() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]string, 0, len(s.counties))
	for id := range s.counties {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Increment bumps the like or dislike counter of a stored location and
// returns the updated record. Report actions carry no counter.
func (s *LocationStore) Increment(id int, action model.Action) (model.Location, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i, ok := s.index[id]
	if !ok {
		return model.Location{}, false
	}
	switch action {
	case model.ActionLike:
		s.locations[i].Likes++
	case model.ActionDislike:
		s.locations[i].Dislikes++
	}
	return s.locations[i], true
}
