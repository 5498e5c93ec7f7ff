package grid

import (
	"fmt"
	"slices"
	"testing"

	"github.com/desertthunder/multistream/internal/models"
)

func entriesOf(ids ...int64) []models.StreamEntry {
	out := make([]models.StreamEntry, len(ids))
	for i, id := range ids {
		out[i] = models.StreamEntry{ID: id, Channel: fmt.Sprintf("ch%d", id)}
	}
	return out
}

func TestReconciler(t *testing.T) {
	t.Run("First Render Resets", func(t *testing.T) {
		var r Reconciler
		p := r.Next(entriesOf(1, 2))

		if !p.Reset || p.Empty || len(p.Added) != 2 {
			t.Errorf("expected full render, got %+v", p)
		}
	})

	t.Run("Empty To Empty Shows Placeholder", func(t *testing.T) {
		var r Reconciler
		p := r.Next(nil)

		if !p.Reset || !p.Empty {
			t.Errorf("expected empty reset, got %+v", p)
		}
	})

	t.Run("Append Does Not Reset", func(t *testing.T) {
		var r Reconciler
		r.Next(entriesOf(1, 2))
		p := r.Next(entriesOf(1, 2, 3))

		if p.Reset || len(p.Removed) != 0 {
			t.Errorf("expected incremental patch, got %+v", p)
		}
		if len(p.Added) != 1 || p.Added[0].ID != 3 {
			t.Errorf("expected only entry 3 added, got %+v", p.Added)
		}
	})

	t.Run("Remove And Reorder", func(t *testing.T) {
		var r Reconciler
		r.Next(entriesOf(1, 2, 3))
		p := r.Next(entriesOf(3, 1))

		if p.Reset || len(p.Added) != 0 {
			t.Errorf("expected no reset or additions, got %+v", p)
		}
		if !slices.Equal(p.Removed, []int64{2}) {
			t.Errorf("expected 2 removed, got %v", p.Removed)
		}
		if !slices.Equal(p.Order, []int64{3, 1}) {
			t.Errorf("expected order [3 1], got %v", p.Order)
		}
		if !slices.Equal(r.Rendered(), []int64{3, 1}) {
			t.Errorf("expected rendered [3 1], got %v", r.Rendered())
		}
	})

	t.Run("Last Removal Resets To Empty", func(t *testing.T) {
		var r Reconciler
		r.Next(entriesOf(1))
		p := r.Next(nil)

		if !p.Reset || !p.Empty {
			t.Errorf("expected reset to empty, got %+v", p)
		}
	})

	t.Run("Changed", func(t *testing.T) {
		var r Reconciler
		r.Next(entriesOf(1, 2))
		prev := r.Rendered()

		if p := r.Next(entriesOf(1, 2)); p.Changed(prev) {
			t.Errorf("expected identical list to be unchanged, got %+v", p)
		}
		if p := r.Next(entriesOf(2, 1)); !p.Changed(prev) {
			t.Error("expected reorder to be a change")
		}
	})
}
