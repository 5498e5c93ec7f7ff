package tasks

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/multistream/internal/events"
	"github.com/desertthunder/multistream/internal/models"
	"github.com/desertthunder/multistream/internal/services"
	"github.com/desertthunder/multistream/internal/shared"
)

const (
	DefaultDebounce       = 300 * time.Millisecond
	DefaultMinQueryLength = 2
	DefaultSearchLimit    = 10
)

const searchFailedMessage = "Couldn't search Twitch right now."

// Debouncer runs the most recent triggered func once no trigger has arrived for the delay.
type Debouncer struct {
	clock shared.Clock
	delay time.Duration

	mu    sync.Mutex
	gen   uint64
	timer shared.Timer
}

func NewDebouncer(clock shared.Clock, delay time.Duration) *Debouncer {
	if clock == nil {
		clock = shared.RealClock{}
	}
	return &Debouncer{clock: clock, delay: delay}
}

// Trigger re-arms the timer with f, dropping any previously pending func.
func (d *Debouncer) Trigger(f func()) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.stopLocked()
	gen := d.gen
	d.timer = d.clock.AfterFunc(d.delay, func() {
		d.mu.Lock()
		if gen != d.gen {
			d.mu.Unlock()
			return
		}
		d.timer = nil
		d.mu.Unlock()
		f()
	})
}

// Cancel drops the pending func, if any.
func (d *Debouncer) Cancel() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.stopLocked()
}

func (d *Debouncer) stopLocked() {
	d.gen++
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
}

// Searcher looks up channels by name for the add-stream input.
//
// Logged-out users search a fixed demo list; otherwise Helix /search/channels is queried.
type Searcher struct {
	api       services.TwitchAPI
	source    IdentitySource
	bus       *events.Bus
	debouncer *Debouncer
	logger    *log.Logger
	minLength int
	limit     int

	mu     sync.Mutex
	seq    uint64
	cancel context.CancelFunc
}

// SearcherOpts configures a [Searcher]. API and Source are required.
type SearcherOpts struct {
	API       services.TwitchAPI
	Source    IdentitySource
	Bus       *events.Bus
	Clock     shared.Clock
	Logger    *log.Logger
	Debounce  time.Duration
	MinLength int
	Limit     int
}

func NewSearcher(opts SearcherOpts) *Searcher {
	if opts.Debounce <= 0 {
		opts.Debounce = DefaultDebounce
	}
	if opts.MinLength <= 0 {
		opts.MinLength = DefaultMinQueryLength
	}
	if opts.Limit <= 0 {
		opts.Limit = DefaultSearchLimit
	}
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}

	return &Searcher{
		api:       opts.API,
		source:    opts.Source,
		bus:       opts.Bus,
		debouncer: NewDebouncer(opts.Clock, opts.Debounce),
		logger:    opts.Logger,
		minLength: opts.MinLength,
		limit:     opts.Limit,
	}
}

func (s *Searcher) publish(kind events.Kind, data any) {
	if s.bus != nil {
		s.bus.Publish(kind, data)
	}
}

// Search runs query immediately.
//
// A 401/403 invalidates the session before the error is returned.
func (s *Searcher) Search(ctx context.Context, query string) ([]models.ChannelSuggestion, error) {
	query = strings.TrimSpace(query)
	if len(query) < s.minLength {
		return nil, fmt.Errorf("%w: query must be at least %d characters", shared.ErrInvalidInput, s.minLength)
	}

	id := s.source.Identity()
	if id.Token == "" {
		return DemoSuggestions(query), nil
	}

	results, err := s.api.SearchChannels(ctx, id.Token, query, s.limit)
	if err != nil {
		if errors.Is(err, shared.ErrUnauthorized) {
			s.source.Invalidate()
		}
		return nil, err
	}
	return results, nil
}

// Input handles a keystroke in the search field. Short queries hide suggestions at once; others
// are searched after the debounce delay.
func (s *Searcher) Input(query string) {
	query = strings.TrimSpace(query)
	if len(query) < s.minLength {
		s.debouncer.Cancel()
		s.abort()
		s.publish(events.SearchResults, events.SearchPayload{Query: query})
		return
	}

	s.debouncer.Trigger(func() { s.run(query) })
}

// Hide drops any pending search and hides suggestions.
func (s *Searcher) Hide() {
	s.debouncer.Cancel()
	s.abort()
	s.publish(events.SearchResults, events.SearchPayload{})
}

func (s *Searcher) abort() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
}

func (s *Searcher) run(query string) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	s.mu.Lock()
	if s.cancel != nil {
		s.cancel()
	}
	s.seq++
	seq := s.seq
	s.cancel = cancel
	s.mu.Unlock()

	results, err := s.Search(ctx, query)

	s.mu.Lock()
	stale := seq != s.seq
	if !stale {
		s.cancel = nil
	}
	s.mu.Unlock()
	if stale {
		return
	}

	if err != nil {
		s.logger.Error("channel search failed", "query", query, "error", err)
		s.publish(events.SearchResults, events.SearchPayload{Query: query})
		if s.bus != nil {
			s.bus.Notify(events.LevelError, searchFailedMessage)
		}
		return
	}

	s.logger.Debug(searchUpdate(query, len(results)).Message)
	s.publish(events.SearchResults, events.SearchPayload{Query: query, Visible: true, Suggestions: results})
}

// Select publishes a request to add the suggestion's channel and hides suggestions.
func (s *Searcher) Select(suggestion models.ChannelSuggestion) {
	s.Hide()
	s.publish(events.AddChannelRequested, suggestion.Channel())
}
