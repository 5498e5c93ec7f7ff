package grid

import "sync"

// Reorderer moves an entry between positions.
type Reorderer interface {
	Reorder(from, to int) bool
}

// Drag tracks one drag-and-drop gesture over grid positions for a single view.
//
// Source is the index the drag started from and Target the index currently marked as the drop
// target; both are -1 when unset.
type Drag struct {
	grid Reorderer

	mu     sync.Mutex
	source int
	target int
}

func NewDrag(grid Reorderer) *Drag {
	return &Drag{grid: grid, source: -1, target: -1}
}

// Start records the source index.
func (d *Drag) Start(index int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.source = index
}

// Over marks index as the drop target.
func (d *Drag) Over(index int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.target = index
}

// Leave clears the drop-target marker.
func (d *Drag) Leave(index int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.target = -1
}

// Drop moves the source entry to index. A drop outside a target (negative index), without a
// source, or onto the source itself does nothing.
func (d *Drag) Drop(index int) bool {
	d.mu.Lock()
	from := d.source
	d.target = -1
	d.mu.Unlock()

	if from < 0 || index < 0 || from == index {
		return false
	}
	return d.grid.Reorder(from, index)
}

// End clears the gesture regardless of outcome.
func (d *Drag) End() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.source = -1
	d.target = -1
}

// State returns the source and target indices.
func (d *Drag) State() (source, target int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.source, d.target
}
