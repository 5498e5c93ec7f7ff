package tasks

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/multistream/internal/events"
	"github.com/desertthunder/multistream/internal/models"
	"github.com/desertthunder/multistream/internal/services"
	"github.com/desertthunder/multistream/internal/shared"
)

// DefaultPageSize is the number of offline channels revealed per "show more".
const DefaultPageSize = 100

// Identity is the credential and user a directory fetch runs as.
type Identity struct {
	Token string
	User  *models.SessionUser
}

// Anonymous reports whether the identity lacks a token or a resolved user.
func (i Identity) Anonymous() bool {
	return i.Token == "" || i.User == nil
}

// IdentitySource provides the current identity and discards it when Helix rejects it.
type IdentitySource interface {
	Identity() Identity
	Invalidate()
}

// SnapshotCache stores the last successful directory snapshot.
type SnapshotCache interface {
	Put(ctx context.Context, snap models.DirectorySnapshot) error
}

// DirectoryView is the ordered, paged projection of the directory rendered by views.
type DirectoryView struct {
	Live         []models.FollowedChannel
	Offline      []models.FollowedChannel // visible slice of the sorted offline list
	OfflineTotal int
	HasMore      bool
	Loading      bool
	Demo         bool
	FetchedAt    time.Time
}

// Directory holds the followed-channel list and refreshes it from Helix.
//
// At most one fetch is in flight: starting a refresh cancels the previous one, and a result is
// applied only if no newer refresh started meanwhile.
type Directory struct {
	api      services.TwitchAPI
	source   IdentitySource
	bus      *events.Bus
	cache    SnapshotCache
	clock    shared.Clock
	logger   *log.Logger
	pageSize int
	progress chan<- ProgressUpdate

	mu        sync.Mutex
	channels  []models.FollowedChannel
	demo      bool
	visible   int
	inflight  int
	seq       uint64
	cancel    context.CancelFunc
	fetchedAt time.Time
}

// DirectoryOpts configures a [Directory]. API and Source are required.
type DirectoryOpts struct {
	API      services.TwitchAPI
	Source   IdentitySource
	Bus      *events.Bus
	Cache    SnapshotCache
	Clock    shared.Clock
	Logger   *log.Logger
	PageSize int
}

// NewDirectory creates a directory preloaded with the demo dataset.
func NewDirectory(opts DirectoryOpts) *Directory {
	if opts.PageSize <= 0 {
		opts.PageSize = DefaultPageSize
	}
	if opts.Clock == nil {
		opts.Clock = shared.RealClock{}
	}
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}

	return &Directory{
		api:      opts.API,
		source:   opts.Source,
		bus:      opts.Bus,
		cache:    opts.Cache,
		clock:    opts.Clock,
		logger:   opts.Logger,
		pageSize: opts.PageSize,
		channels: DemoFollows(),
		demo:     true,
		visible:  opts.PageSize,
	}
}

// SetProgress sets the channel that receives fetch progress. Sends never block.
func (d *Directory) SetProgress(ch chan<- ProgressUpdate) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.progress = ch
}

func (d *Directory) publish(kind events.Kind, data any) {
	if d.bus != nil {
		d.bus.Publish(kind, data)
	}
}

// Fetch runs the follow, live and profile lookups for id and assembles the unsorted result:
// live channels in stream order, then offline channels in follow order.
//
// An anonymous identity yields the demo dataset.
func (d *Directory) Fetch(ctx context.Context, id Identity) ([]models.FollowedChannel, error) {
	if id.Anonymous() {
		return DemoFollows(), nil
	}

	d.mu.Lock()
	progress := d.progress
	d.mu.Unlock()

	page := 0
	follows, err := services.CollectPages(ctx, func(ctx context.Context, after string) (*services.Page[services.Follow], error) {
		p, err := d.api.FollowedChannels(ctx, id.Token, id.User.ID, after)
		if err == nil {
			page++
			sendProgress(progress, fetchFollowsUpdate(page, len(p.Data)))
		}
		return p, err
	})
	if err != nil {
		return nil, fmt.Errorf("followed channels: %w", err)
	}

	page = 0
	streams, err := services.CollectPages(ctx, func(ctx context.Context, after string) (*services.Page[services.LiveStream], error) {
		p, err := d.api.FollowedStreams(ctx, id.Token, id.User.ID, after)
		if err == nil {
			page++
			sendProgress(progress, fetchLiveUpdate(page, len(p.Data)))
		}
		return p, err
	})
	if err != nil {
		return nil, fmt.Errorf("followed streams: %w", err)
	}

	liveIDs := make(map[string]bool, len(streams))
	ids := make([]string, 0, len(follows))
	for _, s := range streams {
		if !liveIDs[s.UserID] {
			liveIDs[s.UserID] = true
			ids = append(ids, s.UserID)
		}
	}

	var offline []services.Follow
	seen := make(map[string]bool, len(follows))
	for _, f := range follows {
		if liveIDs[f.BroadcasterID] || seen[f.BroadcasterID] {
			continue
		}
		seen[f.BroadcasterID] = true
		offline = append(offline, f)
		ids = append(ids, f.BroadcasterID)
	}

	users := make(map[string]services.User, len(ids))
	chunks := services.Chunk(ids, services.MaxBatch)
	for i, chunk := range chunks {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		batch, err := d.api.UsersByID(ctx, id.Token, chunk)
		if err != nil {
			return nil, fmt.Errorf("users: %w", err)
		}
		for _, u := range batch {
			users[u.ID] = u
		}
		sendProgress(progress, fetchUsersUpdate(i+1, len(chunks)))
	}

	channels := make([]models.FollowedChannel, 0, len(ids))
	for _, s := range streams {
		channels = append(channels, models.FollowedChannel{
			ID:              s.UserID,
			Login:           s.UserLogin,
			DisplayName:     s.UserName,
			ProfileImageURL: users[s.UserID].ProfileImageURL,
			IsLive:          true,
			GameName:        s.GameName,
			ViewerCount:     s.ViewerCount,
			Title:           s.Title,
		})
	}
	for _, f := range offline {
		u, ok := users[f.BroadcasterID]
		login, display := f.BroadcasterLogin, f.BroadcasterName
		if ok {
			login = cmp.Or(u.Login, login)
			display = cmp.Or(u.DisplayName, u.Login, display)
		}
		channels = append(channels, models.FollowedChannel{
			ID:              f.BroadcasterID,
			Login:           login,
			DisplayName:     cmp.Or(display, login),
			ProfileImageURL: u.ProfileImageURL,
			GameName:        "Offline",
		})
	}

	sendProgress(progress, assembleUpdate(len(streams), len(offline)))
	return channels, nil
}

// begin supersedes any running refresh and returns the new sequence number with its context.
func (d *Directory) begin(parent context.Context) (context.Context, uint64) {
	ctx, cancel := context.WithCancel(parent)

	d.mu.Lock()
	if d.cancel != nil {
		d.cancel()
	}
	d.seq++
	seq := d.seq
	d.cancel = cancel
	d.inflight++
	loading := d.inflight == 1
	d.mu.Unlock()

	if loading {
		d.publish(events.LoadingChanged, true)
	}
	return ctx, seq
}

func (d *Directory) finish(seq uint64) {
	d.mu.Lock()
	if d.seq == seq && d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	d.inflight--
	idle := d.inflight == 0
	d.mu.Unlock()

	if idle {
		d.publish(events.LoadingChanged, false)
	}
}

// Cancel aborts the in-flight refresh, if any. The aborted refresh applies nothing.
func (d *Directory) Cancel() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	d.seq++
}

// Refresh fetches the directory for the current identity and applies it.
//
// A superseded or cancelled refresh applies nothing and returns an error wrapping
// [shared.ErrSuperseded] without logging. Any other failure is logged, replaces the list with
// the demo dataset and is returned so the caller can back off. A 401/403 also invalidates the
// session.
func (d *Directory) Refresh(ctx context.Context) error {
	ctx, seq := d.begin(ctx)
	defer d.finish(seq)

	id := d.source.Identity()
	channels, err := d.Fetch(ctx, id)

	if d.superseded(seq) || ctx.Err() != nil {
		if err == nil {
			err = context.Canceled
		}
		return fmt.Errorf("%w: %w", shared.ErrSuperseded, err)
	}

	if err != nil {
		d.logger.Error("follows refresh failed", "error", err)
		d.apply(seq, DemoFollows(), true, id)
		if errors.Is(err, shared.ErrUnauthorized) {
			d.source.Invalidate()
		}
		return err
	}

	d.apply(seq, channels, id.Anonymous(), id)
	return nil
}

func (d *Directory) superseded(seq uint64) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.seq != seq
}

func (d *Directory) apply(seq uint64, channels []models.FollowedChannel, demo bool, id Identity) {
	d.mu.Lock()
	if d.seq != seq {
		d.mu.Unlock()
		return
	}
	d.channels = channels
	d.demo = demo
	d.visible = d.pageSize
	d.fetchedAt = d.clock.Now()
	fetchedAt := d.fetchedAt
	d.mu.Unlock()

	if !demo && d.cache != nil {
		snap := models.DirectorySnapshot{UserID: id.User.ID, FetchedAt: fetchedAt, Channels: channels}
		if err := d.cache.Put(context.Background(), snap); err != nil {
			d.logger.Warn("failed to cache follows snapshot", "error", err)
		}
	}

	d.publish(events.DirectoryUpdated, d.View())
}

// ShowMore reveals the next page of offline channels.
func (d *Directory) ShowMore() {
	d.mu.Lock()
	d.visible += d.pageSize
	d.mu.Unlock()

	d.publish(events.DirectoryUpdated, d.View())
}

// View returns the ordered projection of the current list.
func (d *Directory) View() DirectoryView {
	d.mu.Lock()
	defer d.mu.Unlock()

	live, offline := SortChannels(d.channels)
	visible := min(d.visible, len(offline))

	return DirectoryView{
		Live:         live,
		Offline:      offline[:visible],
		OfflineTotal: len(offline),
		HasMore:      len(offline) > visible,
		Loading:      d.inflight > 0,
		Demo:         d.demo,
		FetchedAt:    d.fetchedAt,
	}
}

// Channels returns every channel, live first, in view order.
func (d *Directory) Channels() []models.FollowedChannel {
	d.mu.Lock()
	defer d.mu.Unlock()
	live, offline := SortChannels(d.channels)
	return append(live, offline...)
}

// Loading reports whether a refresh is in flight.
func (d *Directory) Loading() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.inflight > 0
}

// SortChannels splits channels into live (viewers descending, display name tiebreak) and offline
// (display name ascending ignoring case, login tiebreak). The input is not modified.
func SortChannels(channels []models.FollowedChannel) (live, offline []models.FollowedChannel) {
	for _, ch := range channels {
		if ch.IsLive {
			live = append(live, ch)
		} else {
			offline = append(offline, ch)
		}
	}

	slices.SortStableFunc(live, func(a, b models.FollowedChannel) int {
		return cmp.Or(
			cmp.Compare(b.ViewerCount, a.ViewerCount),
			cmp.Compare(strings.ToLower(a.DisplayName), strings.ToLower(b.DisplayName)),
		)
	})
	slices.SortStableFunc(offline, func(a, b models.FollowedChannel) int {
		return cmp.Or(
			cmp.Compare(strings.ToLower(a.DisplayName), strings.ToLower(b.DisplayName)),
			cmp.Compare(a.Login, b.Login),
		)
	})
	return live, offline
}
