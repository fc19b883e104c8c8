package chunk

import (
	"strings"
	"sync"
	"testing"
	"time"
)

func singleSegment(content string) []Segment {
	return []Segment{{Index: 1, Total: 1, Content: content}}
}

func TestStorePutGet(t *testing.T) {
	s := NewStore(DefaultTTL, DefaultSweepInterval)
	defer s.Close()

	key := s.Put(singleSegment("x"))
	if key == "" {
		t.Fatal("empty key")
	}

	b, ok := s.Get(key)
	if !ok {
		t.Fatal("bundle absent right after Put")
	}
	if len(b.Segments) != 1 || b.Segments[0].Content != "x" {
		t.Errorf("bundle = %+v", b)
	}
	if !b.ExpiresAt.After(b.CreatedAt) {
		t.Error("ExpiresAt should be after CreatedAt")
	}
}

// Scenario: a one-segment bundle is retrievable at index 1 and absent at
// index 2.
func TestStoreGetSegmentBounds(t *testing.T) {
	s := NewStore(DefaultTTL, DefaultSweepInterval)
	defer s.Close()

	key := s.Put(singleSegment("x"))

	seg, ok := s.GetSegment(key, 1)
	if !ok || seg.Content != "x" {
		t.Errorf("GetSegment(1) = %+v, %v", seg, ok)
	}
	if _, ok := s.GetSegment(key, 2); ok {
		t.Error("index 2 of a one-segment bundle should be absent")
	}
	if _, ok := s.GetSegment(key, 0); ok {
		t.Error("index 0 should be absent (indexes are 1-based)")
	}
	if _, ok := s.GetSegment("01ARZ3NDEKTSV4RRFFQ69G5FAV", 1); ok {
		t.Error("unknown key should be absent")
	}
}

func TestStoreTTLBoundary(t *testing.T) {
	s := NewStore(time.Hour, DefaultSweepInterval)
	defer s.Close()

	base := time.Now()
	s.now = func() time.Time { return base }
	key := s.Put(singleSegment("x"))

	// Just before expiry: present.
	s.now = func() time.Time { return base.Add(time.Hour - time.Millisecond) }
	if _, ok := s.Get(key); !ok {
		t.Error("bundle absent before TTL")
	}
	if _, ok := s.GetSegment(key, 1); !ok {
		t.Error("segment absent before TTL")
	}

	// Just after expiry: absent via the lazy check.
	s.now = func() time.Time { return base.Add(time.Hour + time.Millisecond) }
	if _, ok := s.Get(key); ok {
		t.Error("bundle present after TTL")
	}
	if _, ok := s.GetSegment(key, 1); ok {
		t.Error("segment present after TTL")
	}
	if _, ok := s.Info(key); ok {
		t.Error("metadata present after TTL")
	}
}

func TestStoreEvict(t *testing.T) {
	s := NewStore(DefaultTTL, DefaultSweepInterval)
	defer s.Close()

	key := s.Put(singleSegment("x"))
	s.Evict(key)
	if _, ok := s.Get(key); ok {
		t.Error("bundle present after Evict")
	}
}

func TestStoreInfoAndList(t *testing.T) {
	s := NewStore(DefaultTTL, DefaultSweepInterval)
	defer s.Close()

	segs := Split(strings.Repeat("m", 2500), 1000)
	key := s.Put(segs)

	md, ok := s.Info(key)
	if !ok {
		t.Fatal("metadata absent")
	}
	if md.Total != 3 || md.Bytes != 2500 {
		t.Errorf("metadata = %+v", md)
	}

	time.Sleep(2 * time.Millisecond) // ULID timestamps have millisecond precision
	s.Put(singleSegment("y"))
	list := s.List()
	if len(list) != 2 {
		t.Fatalf("List = %d entries, want 2", len(list))
	}
	// Newest first: ULIDs sort by creation time.
	if list[0].Key < list[1].Key {
		t.Error("List should be newest first")
	}
}

func TestStoreSweepRemovesExpiredAndIdles(t *testing.T) {
	s := NewStore(30*time.Millisecond, 20*time.Millisecond)
	defer s.Close()

	s.Put(singleSegment("x"))
	s.Put(singleSegment("y"))

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		s.mu.Lock()
		raw := len(s.bundles)
		active := s.sweeping
		s.mu.Unlock()
		if raw == 0 && !active {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}

	s.mu.Lock()
	raw, active := len(s.bundles), s.sweeping
	s.mu.Unlock()
	if raw != 0 {
		t.Errorf("%d bundles survived the sweep", raw)
	}
	if active {
		t.Error("sweeper still active on an empty store")
	}

	// A later Put restarts the sweeper.
	s.Put(singleSegment("z"))
	s.mu.Lock()
	active = s.sweeping
	s.mu.Unlock()
	if !active {
		t.Error("Put did not reactivate the sweeper")
	}
}

func TestStoreConcurrentPuts(t *testing.T) {
	s := NewStore(DefaultTTL, DefaultSweepInterval)
	defer s.Close()

	const n = 64
	keys := make([]string, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			keys[i] = s.Put(singleSegment("c"))
		}(i)
	}
	wg.Wait()

	seen := make(map[string]bool, n)
	for _, k := range keys {
		if seen[k] {
			t.Fatalf("duplicate key %s", k)
		}
		seen[k] = true
		if _, ok := s.Get(k); !ok {
			t.Errorf("key %s missing", k)
		}
	}
}

func TestStoreCloseDropsEverything(t *testing.T) {
	s := NewStore(DefaultTTL, DefaultSweepInterval)
	key := s.Put(singleSegment("x"))
	s.Close()
	if _, ok := s.Get(key); ok {
		t.Error("bundle survived Close")
	}
	// Close twice is fine.
	s.Close()
}
