package grid

import (
	"slices"

	"github.com/desertthunder/multistream/internal/models"
)

// Patch is the minimal set of changes a view applies to move from its rendered cards to the
// current entry list.
type Patch struct {
	Reset   bool                 `json:"reset"`   // discard all cards and render Added in order
	Empty   bool                 `json:"empty"`   // show the empty-state placeholder
	Removed []int64              `json:"removed"` // cards to drop
	Added   []models.StreamEntry `json:"added"`   // cards to create, in list order
	Order   []int64              `json:"order"`   // final card order by id
}

// Changed reports whether applying the patch alters the rendered cards.
func (p Patch) Changed(previous []int64) bool {
	return p.Reset || len(p.Removed) > 0 || len(p.Added) > 0 || !slices.Equal(previous, p.Order)
}

// Reconciler remembers what one view has rendered. Existing cards are never recreated, so
// their embedded players keep playing across reorders.
type Reconciler struct {
	rendered []int64
}

// Next diffs entries against the rendered ids and records entries as rendered.
//
// A full reset happens only when moving between zero and non-zero entries.
func (r *Reconciler) Next(entries []models.StreamEntry) Patch {
	ids := make([]int64, len(entries))
	for i, e := range entries {
		ids[i] = e.ID
	}
	defer func() { r.rendered = ids }()

	if len(r.rendered) == 0 || len(entries) == 0 {
		return Patch{
			Reset: true,
			Empty: len(entries) == 0,
			Added: slices.Clone(entries),
			Order: ids,
		}
	}

	patch := Patch{Order: ids}
	for _, id := range r.rendered {
		if !slices.Contains(ids, id) {
			patch.Removed = append(patch.Removed, id)
		}
	}
	for _, e := range entries {
		if !slices.Contains(r.rendered, e.ID) {
			patch.Added = append(patch.Added, e)
		}
	}
	return patch
}

// Rendered returns the ids the view currently shows.
func (r *Reconciler) Rendered() []int64 {
	return slices.Clone(r.rendered)
}
