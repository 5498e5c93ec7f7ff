// Package grid manages the ordered list of embedded streams.
//
// [Controller] owns the entries and the focused id and persists after every mutation.
// [Reconciler] turns successive entry lists into minimal patches so a view can keep existing
// player embeds alive. [Drag] turns drag-and-drop gestures into [Controller.Reorder] calls.
package grid
