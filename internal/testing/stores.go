package testing

import (
	"errors"
	"slices"
	"sync"

	"github.com/desertthunder/multistream/internal/models"
)

// ErrStoreUnavailable is returned by the memory stores when configured to fail.
var ErrStoreUnavailable = errors.New("store unavailable")

// MemoryEntryStore is an in-memory [models.EntryStore].
type MemoryEntryStore struct {
	mu       sync.Mutex
	entries  []models.StreamEntry
	saves    int
	FailSave bool
	FailLoad bool
}

func NewMemoryEntryStore(entries ...models.StreamEntry) *MemoryEntryStore {
	return &MemoryEntryStore{entries: entries}
}

func (s *MemoryEntryStore) Load() ([]models.StreamEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailLoad {
		return nil, ErrStoreUnavailable
	}
	return slices.Clone(s.entries), nil
}

func (s *MemoryEntryStore) Save(entries []models.StreamEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailSave {
		return ErrStoreUnavailable
	}
	s.saves++
	s.entries = slices.Clone(entries)
	return nil
}

// Entries returns the last saved entries.
func (s *MemoryEntryStore) Entries() []models.StreamEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.entries)
}

// Saves returns the number of successful saves.
func (s *MemoryEntryStore) Saves() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saves
}

// MemoryTokenStore is an in-memory [models.TokenStore].
type MemoryTokenStore struct {
	mu    sync.Mutex
	token string
}

func NewMemoryTokenStore(token string) *MemoryTokenStore {
	return &MemoryTokenStore{token: token}
}

func (s *MemoryTokenStore) Token() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token, nil
}

func (s *MemoryTokenStore) SetToken(token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = token
	return nil
}

func (s *MemoryTokenStore) ClearToken() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = ""
	return nil
}
