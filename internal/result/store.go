package result

import "sync"

// DefaultCapacity is the hard ceiling on retained results.
const DefaultCapacity = 100

// Store is the bounded, insertion-ordered result collection reconciling two
// independent feeds: periodic REST snapshots (wholesale replace) and
// websocket push deliveries (append with oldest-first eviction).
//
// The store imposes no ordering across the two sources; views that need
// chronological order sort explicitly. Each operation is a single atomic
// step under the mutex, so snapshot and push ingestion may interleave
// arbitrarily without intermediate observable state.
type Store struct {
	mu       sync.RWMutex
	capacity int
	results  []AIResult
}

// NewStore creates an empty store. A non-positive capacity selects
// DefaultCapacity.
func NewStore(capacity int) *Store {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Store{capacity: capacity}
}

// Capacity returns the eviction bound.
func (s *Store) Capacity() int { return s.capacity }

// IngestSnapshot replaces the store's contents wholesale with the fetched
// snapshot, most-recent-last. The snapshot is the authoritative
// reconciliation point: it corrects drift and gaps from missed push events.
// If the server over-delivers, only the newest capacity entries are kept.
func (s *Store) IngestSnapshot(results []AIResult) {
	if len(results) > s.capacity {
		results = results[len(results)-s.capacity:]
	}
	buf := make([]AIResult, len(results))
	copy(buf, results)

	s.mu.Lock()
	s.results = buf
	s.mu.Unlock()
}

// IngestPush appends one push-delivered result to the tail, evicting the
// oldest entry when the store is at capacity. Newest entries are never
// evicted in favor of older ones.
func (s *Store) IngestPush(r AIResult) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.results) >= s.capacity {
		drop := len(s.results) - s.capacity + 1
		s.results = append(s.results[:0], s.results[drop:]...)
	}
	s.results = append(s.results, r)
}

// Current returns a copy of the store's state. It never blocks ingestion
// beyond the copy itself and is safe to call concurrently with both ingest
// operations.
func (s *Store) Current() []AIResult {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]AIResult, len(s.results))
	copy(out, s.results)
	return out
}

// Len returns the number of retained results.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.results)
}
