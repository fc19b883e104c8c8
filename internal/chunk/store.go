package chunk

import (
	"crypto/rand"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// Default lifetimes; overridable per Store instance.
const (
	DefaultTTL           = time.Hour
	DefaultSweepInterval = 5 * time.Minute
)

// Bundle is the stored collection of segments for one response. Bundles
// are immutable after Put; concurrent readers of the same key are safe.
type Bundle struct {
	Key       string
	Segments  []Segment
	CreatedAt time.Time
	ExpiresAt time.Time
}

// Metadata summarizes a bundle without its content.
type Metadata struct {
	Key       string    `json:"key"`
	Total     int       `json:"total_chunks"`
	Bytes     int       `json:"bytes"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Store is an in-memory, time-bounded key → segment-list cache. Each
// instance owns its lifecycle; there is no package-level state. Expired
// bundles are dropped lazily on read and by a periodic sweep. The sweep
// goroutine only runs while the store holds at least one bundle.
type Store struct {
	mu       sync.Mutex
	bundles  map[string]*Bundle
	ttl      time.Duration
	sweep    time.Duration
	sweeping bool
	closed   bool
	stop     chan struct{}

	now func() time.Time
}

// NewStore creates a store with the given TTL and sweep interval.
// Nonpositive values fall back to the defaults.
func NewStore(ttl, sweepInterval time.Duration) *Store {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if sweepInterval <= 0 {
		sweepInterval = DefaultSweepInterval
	}
	return &Store{
		bundles: make(map[string]*Bundle),
		ttl:     ttl,
		sweep:   sweepInterval,
		stop:    make(chan struct{}),
		now:     time.Now,
	}
}

// Put stores segments under a fresh key and returns the key. The key
// combines a time component with random entropy (ULID), so concurrent
// puts cannot collide and keys cannot be guessed by enumeration.
func (s *Store) Put(segments []Segment) string {
	key := newKey()
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.bundles[key] = &Bundle{
		Key:       key,
		Segments:  segments,
		CreatedAt: now,
		ExpiresAt: now.Add(s.ttl),
	}
	if !s.sweeping && !s.closed {
		s.sweeping = true
		go s.sweepLoop()
	}
	return key
}

// Get returns the bundle for key, or false if it was never stored,
// was evicted, or is past expiry. Expiry is checked lazily here with
// the same test the sweeper uses.
func (s *Store) Get(key string) (*Bundle, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.bundles[key]
	if !ok {
		return nil, false
	}
	if s.expired(b, s.now()) {
		delete(s.bundles, key)
		return nil, false
	}
	return b, true
}

// GetSegment returns segment index (1-based) of the bundle for key.
// Absent if the bundle is absent or index is outside [1, Total].
func (s *Store) GetSegment(key string, index int) (Segment, bool) {
	b, ok := s.Get(key)
	if !ok {
		return Segment{}, false
	}
	if index < 1 || index > len(b.Segments) {
		return Segment{}, false
	}
	return b.Segments[index-1], true
}

// Info returns metadata for key, or false when absent.
func (s *Store) Info(key string) (Metadata, bool) {
	b, ok := s.Get(key)
	if !ok {
		return Metadata{}, false
	}
	return metadataOf(b), true
}

// List returns metadata for every live bundle, newest first.
func (s *Store) List() []Metadata {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	out := make([]Metadata, 0, len(s.bundles))
	for key, b := range s.bundles {
		if s.expired(b, now) {
			delete(s.bundles, key)
			continue
		}
		out = append(out, metadataOf(b))
	}
	// ULIDs are lexically time-ordered; newest first.
	for i := 0; i < len(out); i++ {
		for j := i + 1; j < len(out); j++ {
			if out[j].Key > out[i].Key {
				out[i], out[j] = out[j], out[i]
			}
		}
	}
	return out
}

// Evict removes key immediately.
func (s *Store) Evict(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.bundles, key)
}

// Len reports the number of live bundles (expired ones still awaiting
// sweep are not counted).
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	n := 0
	for _, b := range s.bundles {
		if !s.expired(b, now) {
			n++
		}
	}
	return n
}

// Close stops the sweeper and drops all bundles.
func (s *Store) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	close(s.stop)
	s.bundles = make(map[string]*Bundle)
}

// sweepLoop removes expired bundles on a fixed interval. It deactivates
// itself once the store is empty; the next Put restarts it.
func (s *Store) sweepLoop() {
	ticker := time.NewTicker(s.sweep)
	defer ticker.Stop()
	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			if s.sweepOnce() == 0 {
				s.mu.Lock()
				// Re-check under the lock; a Put may have raced in.
				if len(s.bundles) == 0 {
					s.sweeping = false
					s.mu.Unlock()
					return
				}
				s.mu.Unlock()
			}
		}
	}
}

// sweepOnce drops expired bundles and returns the remaining count.
func (s *Store) sweepOnce() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	for key, b := range s.bundles {
		if s.expired(b, now) {
			delete(s.bundles, key)
		}
	}
	return len(s.bundles)
}

// expired is the single expiry test shared by reads and the sweeper.
func (s *Store) expired(b *Bundle, now time.Time) bool {
	return now.After(b.ExpiresAt)
}

func metadataOf(b *Bundle) Metadata {
	bytes := 0
	for _, seg := range b.Segments {
		bytes += len(seg.Content)
	}
	return Metadata{
		Key:       b.Key,
		Total:     len(b.Segments),
		Bytes:     bytes,
		CreatedAt: b.CreatedAt,
		ExpiresAt: b.ExpiresAt,
	}
}

// newKey generates a fresh ULID with monotonic entropy.
func newKey() string {
	entropy := ulid.Monotonic(rand.Reader, 0)
	return ulid.MustNew(ulid.Timestamp(time.Now()), entropy).String()
}
