package grid

import (
	"errors"
	"fmt"
	"io"
	"testing"
	"time"

	"github.com/desertthunder/multistream/internal/events"
	"github.com/desertthunder/multistream/internal/models"
	"github.com/desertthunder/multistream/internal/repositories"
	"github.com/desertthunder/multistream/internal/shared"
	tu "github.com/desertthunder/multistream/internal/testing"
)

type brokenStore struct{ err error }

func (s brokenStore) Load() ([]models.StreamEntry, error) { return nil, s.err }
func (s brokenStore) Save([]models.StreamEntry) error     { return s.err }

func newTestController(store models.EntryStore, bus *events.Bus) *Controller {
	return NewController(ControllerOpts{
		Store:  store,
		Bus:    bus,
		Clock:  tu.NewFakeClock(time.UnixMilli(1700000000000)),
		Logger: shared.NewLogger(io.Discard),
	})
}

func channels(entries []models.StreamEntry) string {
	var out []string
	for _, e := range entries {
		out = append(out, e.Channel)
	}
	return fmt.Sprint(out)
}

func mustAdd(t *testing.T, c *Controller, channel string) models.StreamEntry {
	t.Helper()
	e, err := c.Add(channel)
	if err != nil {
		t.Fatalf("failed to add %s: %v", channel, err)
	}
	return e
}

func TestController(t *testing.T) {
	t.Run("Add", func(t *testing.T) {
		t.Run("Normalizes And Persists", func(t *testing.T) {
			store := tu.NewMemoryEntryStore()
			c := newTestController(store, nil)

			e := mustAdd(t, c, "  Shroud ")

			if e.Channel != "shroud" || e.Locked {
				t.Errorf("unexpected entry %+v", e)
			}
			if channels(store.Entries()) != "[shroud]" {
				t.Errorf("expected persisted [shroud], got %s", channels(store.Entries()))
			}
		})

		t.Run("Rejects Duplicate Ignoring Case", func(t *testing.T) {
			store := tu.NewMemoryEntryStore()
			c := newTestController(store, nil)
			mustAdd(t, c, "Shroud")

			_, err := c.Add("shroud")
			if !errors.Is(err, shared.ErrDuplicateChannel) {
				t.Errorf("expected ErrDuplicateChannel, got %v", err)
			}
			if c.Len() != 1 || store.Saves() != 1 {
				t.Errorf("expected state untouched, got %d entries and %d saves", c.Len(), store.Saves())
			}
		})

		t.Run("Rejects Empty", func(t *testing.T) {
			store := tu.NewMemoryEntryStore()
			c := newTestController(store, nil)

			for _, input := range []string{"", "   ", "\t"} {
				if _, err := c.Add(input); !errors.Is(err, shared.ErrEmptyChannel) {
					t.Errorf("expected ErrEmptyChannel for %q, got %v", input, err)
				}
			}
			if store.Saves() != 0 {
				t.Error("expected no saves")
			}
		})

		t.Run("IDs Strictly Increase", func(t *testing.T) {
			c := newTestController(tu.NewMemoryEntryStore(), nil)

			a := mustAdd(t, c, "a")
			b := mustAdd(t, c, "b")
			d := mustAdd(t, c, "c")

			if a.ID != 1700000000000 {
				t.Errorf("expected first id to be the clock time, got %d", a.ID)
			}
			if b.ID != a.ID+1 || d.ID != b.ID+1 {
				t.Errorf("expected bumped ids, got %d %d %d", a.ID, b.ID, d.ID)
			}
		})

		t.Run("Save Failure Keeps State", func(t *testing.T) {
			store := tu.NewMemoryEntryStore()
			store.FailSave = true
			c := newTestController(store, nil)

			if _, err := c.Add("xqc"); err != nil {
				t.Fatalf("expected save failure to be swallowed, got %v", err)
			}
			if c.Len() != 1 {
				t.Error("expected entry kept in memory")
			}
		})
	})

	t.Run("Persisted Matches Memory", func(t *testing.T) {
		store := tu.NewMemoryEntryStore()
		c := newTestController(store, nil)

		ops := []func(){
			func() { mustAdd(t, c, "a") },
			func() { mustAdd(t, c, "b") },
			func() { mustAdd(t, c, "c") },
			func() { c.Remove(c.Entries()[1].ID) },
			func() { mustAdd(t, c, "d") },
			func() { c.Reorder(0, 2) },
			func() { c.Remove(c.Entries()[0].ID) },
			func() { mustAdd(t, c, "b") },
		}
		for i, op := range ops {
			op()
			if got, want := fmt.Sprint(store.Entries()), fmt.Sprint(c.Entries()); got != want {
				t.Fatalf("after op %d: persisted %s, memory %s", i, got, want)
			}
		}
		if got := channels(c.Entries()); got != "[d a b]" {
			t.Errorf("expected final order [d a b], got %s", got)
		}
	})

	t.Run("Remove", func(t *testing.T) {
		t.Run("Unknown Is No-op", func(t *testing.T) {
			store := tu.NewMemoryEntryStore()
			c := newTestController(store, nil)
			mustAdd(t, c, "a")

			if c.Remove(12345) {
				t.Error("expected false for unknown id")
			}
			if store.Saves() != 1 {
				t.Error("expected no extra save")
			}
		})

		t.Run("Clears Focus", func(t *testing.T) {
			c := newTestController(tu.NewMemoryEntryStore(), nil)
			a := mustAdd(t, c, "a")
			mustAdd(t, c, "b")
			mustAdd(t, c, "c")
			c.ToggleFocus(a.ID)

			c.Remove(a.ID)

			if c.Focused() != 0 {
				t.Errorf("expected focus cleared, got %d", c.Focused())
			}
			if c.Layout().FocusMode {
				t.Error("expected focus mode off")
			}
		})
	})

	t.Run("Reorder", func(t *testing.T) {
		tests := []struct {
			name     string
			from, to int
			want     string
			moved    bool
		}{
			{"Forward", 0, 2, "[b c a d]", true},
			{"Backward", 3, 1, "[a d b c]", true},
			{"Same Index", 1, 1, "[a b c d]", false},
			{"Negative", -1, 2, "[a b c d]", false},
			{"Out Of Range", 0, 4, "[a b c d]", false},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				store := tu.NewMemoryEntryStore()
				c := newTestController(store, nil)
				for _, ch := range []string{"a", "b", "c", "d"} {
					mustAdd(t, c, ch)
				}

				if moved := c.Reorder(tt.from, tt.to); moved != tt.moved {
					t.Errorf("expected moved=%v, got %v", tt.moved, moved)
				}
				if got := channels(c.Entries()); got != tt.want {
					t.Errorf("expected %s, got %s", tt.want, got)
				}
				if got := channels(store.Entries()); got != tt.want {
					t.Errorf("expected persisted %s, got %s", tt.want, got)
				}
			})
		}

		t.Run("Focus Follows Entry", func(t *testing.T) {
			c := newTestController(tu.NewMemoryEntryStore(), nil)
			a := mustAdd(t, c, "a")
			mustAdd(t, c, "b")
			c.ToggleFocus(a.ID)

			c.Reorder(0, 1)

			if c.Focused() != a.ID {
				t.Error("expected focus to stay on the moved entry")
			}
		})
	})

	t.Run("Layout", func(t *testing.T) {
		c := newTestController(tu.NewMemoryEntryStore(), nil)

		if l := c.Layout(); l.Single || l.FocusMode || l.CanFocus {
			t.Errorf("unexpected empty layout %+v", l)
		}

		a := mustAdd(t, c, "a")
		if l := c.Layout(); !l.Single || l.CanFocus {
			t.Errorf("expected single card layout, got %+v", l)
		}

		c.ToggleFocus(a.ID)
		if l := c.Layout(); l.FocusMode || !l.Single {
			t.Errorf("expected no focus mode with one entry, got %+v", l)
		}

		mustAdd(t, c, "b")
		if l := c.Layout(); !l.FocusMode || l.Single || l.FocusedID != a.ID || !l.CanFocus {
			t.Errorf("expected focus mode on a, got %+v", l)
		}

		c.ToggleFocus(a.ID)
		if l := c.Layout(); l.FocusMode || l.FocusedID != 0 {
			t.Errorf("expected focus cleared, got %+v", l)
		}

		if c.ToggleFocus(999) {
			t.Error("expected unknown id to be ignored")
		}
	})

	t.Run("Load", func(t *testing.T) {
		t.Run("From Store", func(t *testing.T) {
			store := tu.NewMemoryEntryStore(
				models.StreamEntry{ID: 5, Channel: "a"},
				models.StreamEntry{ID: 9, Channel: "B"},
				models.StreamEntry{ID: 7, Channel: "b"},
			)
			c := newTestController(store, nil)
			c.Load()

			if got := channels(c.Entries()); got != "[a b]" {
				t.Errorf("expected deduplicated [a b], got %s", got)
			}

			e := mustAdd(t, c, "c")
			if e.ID <= 9 {
				t.Errorf("expected id above loaded ids, got %d", e.ID)
			}
		})

		t.Run("Corrupt Record Loads Empty", func(t *testing.T) {
			c := newTestController(brokenStore{err: fmt.Errorf("%w: bad json", repositories.ErrCorruptRecord)}, nil)
			c.Load()

			if c.Len() != 0 {
				t.Errorf("expected empty list, got %d", c.Len())
			}
		})

		t.Run("Unavailable Store Loads Empty", func(t *testing.T) {
			store := tu.NewMemoryEntryStore(models.StreamEntry{ID: 1, Channel: "a"})
			store.FailLoad = true
			c := newTestController(store, nil)
			c.Load()

			if c.Len() != 0 {
				t.Errorf("expected empty list, got %d", c.Len())
			}
		})
	})

	t.Run("Publishes Grid Changes", func(t *testing.T) {
		bus := events.New(nil)
		var layouts []Layout
		bus.Subscribe(func(e events.Event) { layouts = append(layouts, e.Data.(Layout)) }, events.GridChanged)
		c := newTestController(tu.NewMemoryEntryStore(), bus)

		a := mustAdd(t, c, "a")
		c.Add("a")
		c.ToggleFocus(a.ID)
		c.Remove(a.ID)

		if len(layouts) != 3 {
			t.Fatalf("expected 3 grid events, got %d", len(layouts))
		}
		if len(layouts[2].Entries) != 0 {
			t.Errorf("expected empty final layout, got %+v", layouts[2])
		}
	})
}
