package repositories

import (
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/desertthunder/multistream/internal/models"
	"github.com/desertthunder/multistream/internal/shared"
)

// setupTestDB creates an in-memory SQLite database with migrations applied
func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := shared.NewDatabase(":memory:")
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}
	shared.ConfigureDatabase(db, 1, 1)

	if err := shared.RunMigrations(db); err != nil {
		db.Close()
		t.Fatalf("failed to run migrations: %v", err)
	}

	t.Cleanup(func() { db.Close() })
	return db
}

func TestKVRepository(t *testing.T) {
	t.Run("Get Missing", func(t *testing.T) {
		repo := NewKVRepository(setupTestDB(t))

		value, ok, err := repo.Get("missing")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if ok || value != "" {
			t.Errorf("expected missing key, got %q (ok=%v)", value, ok)
		}
	})

	t.Run("Set Then Overwrite", func(t *testing.T) {
		repo := NewKVRepository(setupTestDB(t))

		if err := repo.Set("k", "one"); err != nil {
			t.Fatalf("failed to set: %v", err)
		}
		if err := repo.Set("k", "two"); err != nil {
			t.Fatalf("failed to overwrite: %v", err)
		}

		value, ok, err := repo.Get("k")
		if err != nil || !ok {
			t.Fatalf("expected stored value, err=%v ok=%v", err, ok)
		}
		if value != "two" {
			t.Errorf("expected two, got %s", value)
		}
	})

	t.Run("Delete", func(t *testing.T) {
		repo := NewKVRepository(setupTestDB(t))

		if err := repo.Set("k", "v"); err != nil {
			t.Fatalf("failed to set: %v", err)
		}
		if err := repo.Delete("k"); err != nil {
			t.Fatalf("failed to delete: %v", err)
		}
		if err := repo.Delete("k"); err != nil {
			t.Errorf("deleting a missing key should not fail: %v", err)
		}
		if _, ok, _ := repo.Get("k"); ok {
			t.Error("expected key to be gone")
		}
	})
}

func TestEntryRepository(t *testing.T) {
	t.Run("Load Without Record", func(t *testing.T) {
		repo := NewEntryRepository(NewKVRepository(setupTestDB(t)))

		entries, err := repo.Load()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(entries) != 0 {
			t.Errorf("expected empty layout, got %v", entries)
		}
	})

	t.Run("Save And Load Preserves Order", func(t *testing.T) {
		repo := NewEntryRepository(NewKVRepository(setupTestDB(t)))
		want := []models.StreamEntry{
			{ID: 3, Channel: "xqc"},
			{ID: 1, Channel: "shroud", Locked: true},
			{ID: 2, Channel: "pokimane"},
		}

		if err := repo.Save(want); err != nil {
			t.Fatalf("failed to save: %v", err)
		}

		got, err := repo.Load()
		if err != nil {
			t.Fatalf("failed to load: %v", err)
		}
		if len(got) != len(want) {
			t.Fatalf("expected %d entries, got %d", len(want), len(got))
		}
		for i := range want {
			if got[i] != want[i] {
				t.Errorf("entry %d: expected %+v, got %+v", i, want[i], got[i])
			}
		}
	})

	t.Run("Save Nil Writes Empty Array", func(t *testing.T) {
		kv := NewKVRepository(setupTestDB(t))
		repo := NewEntryRepository(kv)

		if err := repo.Save(nil); err != nil {
			t.Fatalf("failed to save: %v", err)
		}

		raw, _, _ := kv.Get(StreamsKey)
		if raw != "[]" {
			t.Errorf("expected [], got %s", raw)
		}
	})

	t.Run("Missing Locked Defaults To False", func(t *testing.T) {
		kv := NewKVRepository(setupTestDB(t))
		if err := kv.Set(StreamsKey, `[{"id":5,"channel":"ninja"}]`); err != nil {
			t.Fatalf("failed to seed: %v", err)
		}

		entries, err := NewEntryRepository(kv).Load()
		if err != nil {
			t.Fatalf("failed to load: %v", err)
		}
		if len(entries) != 1 || entries[0].Locked || entries[0].Channel != "ninja" {
			t.Errorf("unexpected entries %+v", entries)
		}
	})

	t.Run("Malformed Record", func(t *testing.T) {
		kv := NewKVRepository(setupTestDB(t))
		if err := kv.Set(StreamsKey, `{not json`); err != nil {
			t.Fatalf("failed to seed: %v", err)
		}

		_, err := NewEntryRepository(kv).Load()
		if !errors.Is(err, ErrCorruptRecord) {
			t.Errorf("expected ErrCorruptRecord, got %v", err)
		}
	})
}

func TestTokenRepository(t *testing.T) {
	repo := NewTokenRepository(NewKVRepository(setupTestDB(t)))

	token, err := repo.Token()
	if err != nil || token != "" {
		t.Fatalf("expected no token, got %q err=%v", token, err)
	}

	if err := repo.SetToken("abc"); err != nil {
		t.Fatalf("failed to set token: %v", err)
	}
	if token, _ := repo.Token(); token != "abc" {
		t.Errorf("expected abc, got %q", token)
	}

	if err := repo.ClearToken(); err != nil {
		t.Fatalf("failed to clear token: %v", err)
	}
	if token, _ := repo.Token(); token != "" {
		t.Errorf("expected cleared token, got %q", token)
	}
}

func TestRedisSnapshotCache(t *testing.T) {
	t.Run("Invalid URL", func(t *testing.T) {
		if _, err := NewRedisSnapshotCache("not a url", "cid", time.Minute); err == nil {
			t.Error("expected error for invalid redis url")
		}
	})

	t.Run("Key Format And Default TTL", func(t *testing.T) {
		cache, err := NewRedisSnapshotCache("redis://localhost:6379/0", "cid", 0)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		defer cache.Close()

		if got := cache.key("42"); got != "cid:follows:42" {
			t.Errorf("expected cid:follows:42, got %s", got)
		}
		if cache.ttl != time.Minute {
			t.Errorf("expected default ttl 1m, got %v", cache.ttl)
		}
	})
}
