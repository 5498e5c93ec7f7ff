// Package ui implements the terminal view using bubbletea's Elm architecture.
//
// The screen has two panes:
//   - Followed channels: live first, then offline a page at a time; enter adds the channel
//   - Streams: the grid entries in order, with remove, focus, open-in-browser and move
//
// "a" opens the add box, which doubles as channel search: typing feeds the debounced searcher
// and the suggestions appear below it.
//
// The (view) [Model] never owns state. It subscribes to the app's [events.Bus], turns each event
// into a [Msg] and re-reads the grid and directory from the app when handling it. Moving an
// entry reuses [grid.Drag]: "m" picks up the selected entry, the cursor marks the drop target
// and enter drops it.
//
// The terminal counts as a visible view while it has focus, so the refresh loop pauses when
// the terminal reports a blur.
package ui
