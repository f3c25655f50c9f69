package idempotency

import (
	"context"
	"sync"
	"time"
)

type memoryEntry struct {
	value     []byte
	owner     string
	expiresAt time.Time
}

// MemoryStore keeps locks and results in process. Only valid for a single instance.
type MemoryStore struct {
	mu      sync.Mutex
	results map[string]memoryEntry
	locks   map[string]memoryEntry
	now     func() time.Time

	stop     chan struct{}
	stopOnce sync.Once
}

// NewMemoryStore starts a background sweep when sweepInterval > 0; call Close to stop it.
func NewMemoryStore(sweepInterval time.Duration) *MemoryStore {
	s := newMemoryStore(time.Now)
	if sweepInterval > 0 {
		go s.sweepLoop(sweepInterval)
	}
	return s
}

func newMemoryStore(now func() time.Time) *MemoryStore {
	return &MemoryStore{
		results: map[string]memoryEntry{},
		locks:   map[string]memoryEntry{},
		now:     now,
		stop:    make(chan struct{}),
	}
}

func (s *MemoryStore) GetResult(_ context.Context, key string) ([]byte, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.results[key]
	if !ok {
		return nil, false, nil
	}
	if !s.now().Before(entry.expiresAt) {
		delete(s.results, key)
		return nil, false, nil
	}

	value := make([]byte, len(entry.value))
	copy(value, entry.value)
	return value, true, nil
}

func (s *MemoryStore) SetResult(_ context.Context, key string, value []byte, ttl time.Duration) error {
	stored := make([]byte, len(value))
	copy(stored, value)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.results[key] = memoryEntry{value: stored, expiresAt: s.now().Add(ttl)}
	return nil
}

func (s *MemoryStore) AcquireLock(_ context.Context, key, token string, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if entry, ok := s.locks[key]; ok && now.Before(entry.expiresAt) {
		return false, nil
	}
	s.locks[key] = memoryEntry{owner: token, expiresAt: now.Add(ttl)}
	return true, nil
}

func (s *MemoryStore) ReleaseLock(_ context.Context, key, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if entry, ok := s.locks[key]; ok && entry.owner == token {
		delete(s.locks, key)
	}
	return nil
}

func (s *MemoryStore) Close() error {
	s.stopOnce.Do(func() { close(s.stop) })
	return nil
}

func (s *MemoryStore) sweepLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			s.sweep()
		}
	}
}

func (s *MemoryStore) sweep() {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	for key, entry := range s.results {
		if !now.Before(entry.expiresAt) {
			delete(s.results, key)
		}
	}
	for key, entry := range s.locks {
		if !now.Before(entry.expiresAt) {
			delete(s.locks, key)
		}
	}
}
