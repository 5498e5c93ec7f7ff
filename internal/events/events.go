// package events implements the in-process notification bus shared by the headless core and its views
package events

import (
	"slices"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/multistream/internal/models"
	"github.com/google/uuid"
)

// Kind enumerates all notification types.
type Kind int

const (
	AuthChanged Kind = iota
	DirectoryUpdated
	LoadingChanged
	GridChanged
	AddChannelRequested
	AddTypedRequested
	Notice
	SearchResults
)

func (k Kind) String() string {
	switch k {
	case AuthChanged:
		return "auth_changed"
	case DirectoryUpdated:
		return "directory_updated"
	case LoadingChanged:
		return "loading_changed"
	case GridChanged:
		return "grid_changed"
	case AddChannelRequested:
		return "add_channel_requested"
	case AddTypedRequested:
		return "add_typed_requested"
	case Notice:
		return "notice"
	case SearchResults:
		return "search_results"
	default:
		return ""
	}
}

// Event is a single notification. Data holds the kind-specific payload.
type Event struct {
	Kind Kind
	Data any
}

// AuthPayload is the payload of [AuthChanged].
type AuthPayload struct {
	Authenticated bool
	User          *models.SessionUser
}

// NoticeLevel distinguishes informational notices from failures.
type NoticeLevel int

const (
	LevelInfo NoticeLevel = iota
	LevelError
)

func (l NoticeLevel) String() string {
	if l == LevelError {
		return "error"
	}
	return "info"
}

// NoticePayload is the payload of [Notice].
type NoticePayload struct {
	Level   NoticeLevel
	Message string
}

// SearchPayload is the payload of [SearchResults]. Visible is false when suggestions should be hidden.
type SearchPayload struct {
	Query       string
	Visible     bool
	Suggestions []models.ChannelSuggestion
}

// Handler receives published events.
type Handler func(Event)

type subscription struct {
	id    string
	kinds []Kind
	fn    Handler
}

func (s subscription) wants(k Kind) bool {
	return len(s.kinds) == 0 || slices.Contains(s.kinds, k)
}

// Bus delivers events synchronously to subscribers in subscription order.
//
// Handlers run on the publisher's goroutine without the bus lock held, so a handler may publish
// or subscribe without deadlocking.
type Bus struct {
	mu     sync.RWMutex
	subs   []subscription
	logger *log.Logger
}

// New creates an empty bus.
func New(logger *log.Logger) *Bus {
	return &Bus{logger: logger}
}

// Subscribe registers fn for kinds (all kinds when none are given) and returns a func that removes it.
func (b *Bus) Subscribe(fn Handler, kinds ...Kind) func() {
	id := uuid.NewString()

	b.mu.Lock()
	b.subs = append(b.subs, subscription{id: id, kinds: kinds, fn: fn})
	b.mu.Unlock()

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		b.subs = slices.DeleteFunc(b.subs, func(s subscription) bool { return s.id == id })
	}
}

// Publish delivers an event of kind with data to every matching subscriber.
func (b *Bus) Publish(kind Kind, data any) {
	b.mu.RLock()
	subs := slices.Clone(b.subs)
	b.mu.RUnlock()

	if b.logger != nil {
		b.logger.Debug("publish", "kind", kind, "subscribers", len(subs))
	}

	evt := Event{Kind: kind, Data: data}
	for _, s := range subs {
		if s.wants(kind) {
			s.fn(evt)
		}
	}
}

// Notify publishes a [Notice] event.
func (b *Bus) Notify(level NoticeLevel, message string) {
	b.Publish(Notice, NoticePayload{Level: level, Message: message})
}

// Len returns the number of active subscriptions.
func (b *Bus) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}
