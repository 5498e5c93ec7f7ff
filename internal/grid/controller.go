package grid

import (
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/multistream/internal/events"
	"github.com/desertthunder/multistream/internal/models"
	"github.com/desertthunder/multistream/internal/repositories"
	"github.com/desertthunder/multistream/internal/shared"
)

// Layout is the render-ready state of the grid.
type Layout struct {
	Entries   []models.StreamEntry `json:"entries"`
	FocusedID int64                `json:"focused_id,omitempty"`
	FocusMode bool                 `json:"focus_mode"` // one entry is enlarged, the rest are secondary
	Single    bool                 `json:"single"`     // exactly one entry, shown alone
	CanFocus  bool                 `json:"can_focus"`  // focus toggles are offered
}

// Controller owns the ordered list of stream entries and the focus state.
//
// Every successful mutation is persisted to the store and announced with [events.GridChanged].
// Persistence is best effort: a failed save is logged and the in-memory state is kept.
type Controller struct {
	store  models.EntryStore
	bus    *events.Bus
	clock  shared.Clock
	logger *log.Logger

	mu      sync.Mutex
	entries []models.StreamEntry
	focused int64
	lastID  int64
}

// ControllerOpts configures a [Controller]. Store is required.
type ControllerOpts struct {
	Store  models.EntryStore
	Bus    *events.Bus
	Clock  shared.Clock
	Logger *log.Logger
}

func NewController(opts ControllerOpts) *Controller {
	if opts.Clock == nil {
		opts.Clock = shared.RealClock{}
	}
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}
	return &Controller{store: opts.Store, bus: opts.Bus, clock: opts.Clock, logger: opts.Logger}
}

// Load replaces the in-memory list with the persisted one. A missing record loads as empty; a
// corrupt or unreadable one is logged and also loads as empty.
func (c *Controller) Load() {
	entries, err := c.store.Load()
	if err != nil {
		if errors.Is(err, repositories.ErrCorruptRecord) {
			c.logger.Warn("discarding corrupt stream layout", "error", err)
		} else {
			c.logger.Error("failed to load stream layout", "error", err)
		}
		entries = nil
	}

	c.mu.Lock()
	c.entries = dedupe(entries)
	c.focused = 0
	for _, e := range c.entries {
		c.lastID = max(c.lastID, e.ID)
	}
	c.mu.Unlock()

	c.publish()
}

// dedupe drops entries whose channel repeats an earlier one and normalizes channel case.
func dedupe(entries []models.StreamEntry) []models.StreamEntry {
	out := make([]models.StreamEntry, 0, len(entries))
	for _, e := range entries {
		e.Channel = shared.NormalizeChannel(e.Channel)
		if e.Channel == "" || slices.ContainsFunc(out, func(o models.StreamEntry) bool { return o.Channel == e.Channel }) {
			continue
		}
		out = append(out, e)
	}
	return out
}

func (c *Controller) nextIDLocked() int64 {
	id := max(c.clock.Now().UnixMilli(), c.lastID+1)
	c.lastID = id
	return id
}

// Add appends a new entry for channel. The channel is trimmed and lowercased first.
func (c *Controller) Add(channel string) (models.StreamEntry, error) {
	channel = shared.NormalizeChannel(channel)
	if channel == "" {
		return models.StreamEntry{}, shared.ErrEmptyChannel
	}

	c.mu.Lock()
	if slices.ContainsFunc(c.entries, func(e models.StreamEntry) bool { return e.SameChannel(channel) }) {
		c.mu.Unlock()
		return models.StreamEntry{}, fmt.Errorf("%w: %s", shared.ErrDuplicateChannel, channel)
	}
	entry := models.StreamEntry{ID: c.nextIDLocked(), Channel: channel}
	c.entries = append(c.entries, entry)
	c.persistLocked()
	c.mu.Unlock()

	c.publish()
	return entry, nil
}

// Remove deletes the entry with id, clearing focus if it pointed there. It reports whether an
// entry was removed.
func (c *Controller) Remove(id int64) bool {
	c.mu.Lock()
	idx := c.indexLocked(id)
	if idx < 0 {
		c.mu.Unlock()
		return false
	}
	c.entries = slices.Delete(c.entries, idx, idx+1)
	if c.focused == id {
		c.focused = 0
	}
	c.persistLocked()
	c.mu.Unlock()

	c.publish()
	return true
}

// Reorder moves the entry at from to position to. Invalid or equal indices are a no-op.
func (c *Controller) Reorder(from, to int) bool {
	c.mu.Lock()
	n := len(c.entries)
	if from < 0 || to < 0 || from >= n || to >= n || from == to {
		c.mu.Unlock()
		return false
	}
	moved := c.entries[from]
	c.entries = slices.Delete(c.entries, from, from+1)
	c.entries = slices.Insert(c.entries, to, moved)
	c.persistLocked()
	c.mu.Unlock()

	c.publish()
	return true
}

// ToggleFocus focuses the entry with id, or clears focus if it is already focused. Unknown ids
// are ignored.
func (c *Controller) ToggleFocus(id int64) bool {
	c.mu.Lock()
	if c.indexLocked(id) < 0 {
		c.mu.Unlock()
		return false
	}
	if c.focused == id {
		c.focused = 0
	} else {
		c.focused = id
	}
	c.mu.Unlock()

	c.publish()
	return true
}

// Entries returns a copy of the ordered list.
func (c *Controller) Entries() []models.StreamEntry {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Clone(c.entries)
}

// Len returns the number of entries.
func (c *Controller) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Focused returns the focused id, or 0.
func (c *Controller) Focused() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.focused
}

// Layout returns the render-ready grid state.
func (c *Controller) Layout() Layout {
	c.mu.Lock()
	defer c.mu.Unlock()

	n := len(c.entries)
	focusMode := c.focused != 0 && n > 1
	return Layout{
		Entries:   slices.Clone(c.entries),
		FocusedID: c.focused,
		FocusMode: focusMode,
		Single:    n == 1 && !focusMode,
		CanFocus:  n > 1,
	}
}

func (c *Controller) indexLocked(id int64) int {
	return slices.IndexFunc(c.entries, func(e models.StreamEntry) bool { return e.ID == id })
}

// persistLocked saves the list while c.mu is held so saves land in mutation order.
func (c *Controller) persistLocked() {
	if err := c.store.Save(slices.Clone(c.entries)); err != nil {
		c.logger.Error("failed to save stream layout", "error", err)
	}
}

func (c *Controller) publish() {
	if c.bus != nil {
		c.bus.Publish(events.GridChanged, c.Layout())
	}
}
