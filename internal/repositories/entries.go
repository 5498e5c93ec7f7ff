package repositories

import (
	"encoding/json"
	"fmt"

	"github.com/desertthunder/multistream/internal/models"
)

var _ models.EntryStore = (*EntryRepository)(nil)

// EntryRepository implements [models.EntryStore] as one JSON array under [StreamsKey].
type EntryRepository struct {
	kv *KVRepository
}

// NewEntryRepository creates a new EntryRepository backed by kv
func NewEntryRepository(kv *KVRepository) *EntryRepository {
	return &EntryRepository{kv: kv}
}

// storedEntry tolerates records written without the locked flag.
type storedEntry struct {
	ID      int64  `json:"id"`
	Channel string `json:"channel"`
	Locked  *bool  `json:"locked,omitempty"`
}

// Load decodes the stored layout. A missing record yields an empty list; an undecodable one
// yields [ErrCorruptRecord] so callers can fall back to an empty layout.
func (r *EntryRepository) Load() ([]models.StreamEntry, error) {
	raw, ok, err := r.kv.Get(StreamsKey)
	if err != nil {
		return nil, err
	}
	if !ok {
		return []models.StreamEntry{}, nil
	}

	var stored []storedEntry
	if err := json.Unmarshal([]byte(raw), &stored); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrCorruptRecord, StreamsKey, err)
	}

	entries := make([]models.StreamEntry, 0, len(stored))
	for _, s := range stored {
		entries = append(entries, models.StreamEntry{
			ID:      s.ID,
			Channel: s.Channel,
			Locked:  s.Locked != nil && *s.Locked,
		})
	}
	return entries, nil
}

// Save replaces the stored layout with entries.
func (r *EntryRepository) Save(entries []models.StreamEntry) error {
	if entries == nil {
		entries = []models.StreamEntry{}
	}
	data, err := json.Marshal(entries)
	if err != nil {
		return fmt.Errorf("failed to encode entries: %w", err)
	}
	return r.kv.Set(StreamsKey, string(data))
}
