package tasks

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/desertthunder/multistream/internal/events"
	"github.com/desertthunder/multistream/internal/models"
	"github.com/desertthunder/multistream/internal/services"
	"github.com/desertthunder/multistream/internal/shared"
	tu "github.com/desertthunder/multistream/internal/testing"
)

type stubSource struct {
	mu          sync.Mutex
	id          Identity
	invalidated int
}

func newStubSource(token string) *stubSource {
	if token == "" {
		return &stubSource{}
	}
	return &stubSource{id: Identity{Token: token, User: &models.SessionUser{ID: "42", Login: "viewer"}}}
}

func (s *stubSource) Identity() Identity {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.id
}

func (s *stubSource) Invalidate() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.invalidated++
	s.id = Identity{}
}

type stubCache struct {
	snaps []models.DirectorySnapshot
	err   error
}

func (c *stubCache) Put(ctx context.Context, snap models.DirectorySnapshot) error {
	c.snaps = append(c.snaps, snap)
	return c.err
}

type recorder struct {
	mu     sync.Mutex
	events []events.Event
}

func record(bus *events.Bus, kinds ...events.Kind) *recorder {
	r := &recorder{}
	bus.Subscribe(func(e events.Event) {
		r.mu.Lock()
		defer r.mu.Unlock()
		r.events = append(r.events, e)
	}, kinds...)
	return r
}

func (r *recorder) all() []events.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]events.Event(nil), r.events...)
}

func newTestDirectory(helix *tu.FakeHelix, source IdentitySource, bus *events.Bus) *Directory {
	return NewDirectory(DirectoryOpts{
		API:    helix,
		Source: source,
		Bus:    bus,
		Clock:  tu.NewFakeClock(time.Unix(1700000000, 0)),
		Logger: shared.NewLogger(io.Discard),
	})
}

func logins(channels []models.FollowedChannel) string {
	var out []string
	for _, ch := range channels {
		out = append(out, ch.Login)
	}
	return fmt.Sprint(out)
}

func TestDirectory(t *testing.T) {
	t.Run("Starts With Demo Data", func(t *testing.T) {
		d := newTestDirectory(tu.NewFakeHelix(), newStubSource(""), nil)
		view := d.View()

		if !view.Demo {
			t.Error("expected demo view")
		}
		if len(view.Live) == 0 || len(view.Offline) == 0 {
			t.Errorf("expected demo live and offline channels, got %d/%d", len(view.Live), len(view.Offline))
		}
	})

	t.Run("Fetch", func(t *testing.T) {
		t.Run("Anonymous Returns Demo", func(t *testing.T) {
			helix := tu.NewFakeHelix()
			d := newTestDirectory(helix, newStubSource(""), nil)

			channels, err := d.Fetch(context.Background(), Identity{})
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if len(channels) != len(DemoFollows()) {
				t.Errorf("expected demo dataset, got %d channels", len(channels))
			}
			if helix.Calls("follows") != 0 {
				t.Error("expected no network calls when anonymous")
			}
		})

		t.Run("Cross References Live And Offline", func(t *testing.T) {
			helix := tu.NewFakeHelix()
			helix.AddFollow("1", "alpha", "Alpha")
			helix.AddFollow("2", "bravo", "Bravo")
			helix.AddFollow("3", "charlie", "Charlie")
			helix.AddStream("2", "bravo", "Bravo", "Chess", 500)

			source := newStubSource("tok")
			d := newTestDirectory(helix, source, nil)

			channels, err := d.Fetch(context.Background(), source.Identity())
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if got := logins(channels); got != "[bravo alpha charlie]" {
				t.Fatalf("unexpected order %s", got)
			}

			live := channels[0]
			if !live.IsLive || live.ViewerCount != 500 || live.GameName != "Chess" || live.Title != "Bravo live" {
				t.Errorf("unexpected live entry %+v", live)
			}
			if live.ProfileImageURL != "https://img.test/bravo.png" {
				t.Errorf("expected profile image from user lookup, got %q", live.ProfileImageURL)
			}

			for _, ch := range channels[1:] {
				if ch.IsLive || ch.GameName != "Offline" || ch.ViewerCount != 0 || ch.Title != "" {
					t.Errorf("unexpected offline entry %+v", ch)
				}
			}
		})

		t.Run("Follows Pagination", func(t *testing.T) {
			helix := tu.NewFakeHelix()
			helix.PageSize = 2
			for i := range 5 {
				helix.AddFollow(fmt.Sprint(i), fmt.Sprintf("ch%d", i), fmt.Sprintf("Ch%d", i))
			}
			source := newStubSource("tok")
			d := newTestDirectory(helix, source, nil)

			channels, err := d.Fetch(context.Background(), source.Identity())
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if len(channels) != 5 {
				t.Errorf("expected 5 channels, got %d", len(channels))
			}
			if helix.Calls("follows") != 3 {
				t.Errorf("expected 3 follows pages, got %d", helix.Calls("follows"))
			}
		})

		t.Run("Batches User Lookups", func(t *testing.T) {
			helix := tu.NewFakeHelix()
			helix.PageSize = 1000
			for i := range 250 {
				helix.AddFollow(fmt.Sprint(i), fmt.Sprintf("ch%03d", i), fmt.Sprintf("Ch%03d", i))
			}
			source := newStubSource("tok")
			d := newTestDirectory(helix, source, nil)

			if _, err := d.Fetch(context.Background(), source.Identity()); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if helix.Calls("lookup") != 3 {
				t.Errorf("expected 3 lookup batches, got %d", helix.Calls("lookup"))
			}
		})

		t.Run("Falls Back To Follow Names", func(t *testing.T) {
			helix := tu.NewFakeHelix()
			helix.Follows = append(helix.Follows, followOf("9", "ghost", "Ghost"))
			source := newStubSource("tok")
			d := newTestDirectory(helix, source, nil)

			channels, err := d.Fetch(context.Background(), source.Identity())
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if channels[0].Login != "ghost" || channels[0].DisplayName != "Ghost" {
				t.Errorf("unexpected entry %+v", channels[0])
			}
		})
	})

	t.Run("Refresh", func(t *testing.T) {
		t.Run("Applies Result And Emits Events", func(t *testing.T) {
			helix := tu.NewFakeHelix()
			helix.AddFollow("1", "alpha", "Alpha")
			bus := events.New(nil)
			rec := record(bus, events.LoadingChanged, events.DirectoryUpdated)
			cache := &stubCache{}

			d := NewDirectory(DirectoryOpts{API: helix, Source: newStubSource("tok"), Bus: bus, Cache: cache, Logger: shared.NewLogger(io.Discard)})
			if err := d.Refresh(context.Background()); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			view := d.View()
			if view.Demo || view.Loading {
				t.Errorf("expected settled real view, got %+v", view)
			}
			if logins(view.Offline) != "[alpha]" {
				t.Errorf("unexpected offline %s", logins(view.Offline))
			}

			got := rec.all()
			if len(got) != 3 {
				t.Fatalf("expected 3 events, got %d", len(got))
			}
			if got[0].Kind != events.LoadingChanged || got[0].Data != true {
				t.Errorf("expected loading=true first, got %+v", got[0])
			}
			if got[1].Kind != events.DirectoryUpdated {
				t.Errorf("expected directory update, got %v", got[1].Kind)
			}
			if got[2].Kind != events.LoadingChanged || got[2].Data != false {
				t.Errorf("expected loading=false last, got %+v", got[2])
			}

			if len(cache.snaps) != 1 || cache.snaps[0].UserID != "42" {
				t.Errorf("expected one cached snapshot for user 42, got %+v", cache.snaps)
			}
		})

		t.Run("Cache Failure Is Not Fatal", func(t *testing.T) {
			helix := tu.NewFakeHelix()
			cache := &stubCache{err: errors.New("redis down")}
			d := NewDirectory(DirectoryOpts{API: helix, Source: newStubSource("tok"), Cache: cache, Logger: shared.NewLogger(io.Discard)})

			if err := d.Refresh(context.Background()); err != nil {
				t.Errorf("expected no error, got %v", err)
			}
		})

		t.Run("Unauthorized Invalidates And Shows Demo", func(t *testing.T) {
			helix := tu.NewFakeHelix()
			helix.Errs["follows"] = fmt.Errorf("%w: status 401", shared.ErrUnauthorized)
			source := newStubSource("tok")
			d := newTestDirectory(helix, source, nil)

			err := d.Refresh(context.Background())
			if !errors.Is(err, shared.ErrUnauthorized) {
				t.Fatalf("expected ErrUnauthorized, got %v", err)
			}
			if source.invalidated != 1 {
				t.Errorf("expected session to be invalidated once, got %d", source.invalidated)
			}
			if !d.View().Demo {
				t.Error("expected demo data after auth failure")
			}
		})

		t.Run("Failure Shows Demo And Returns Error", func(t *testing.T) {
			helix := tu.NewFakeHelix()
			helix.AddFollow("1", "alpha", "Alpha")
			source := newStubSource("tok")
			d := newTestDirectory(helix, source, nil)
			if err := d.Refresh(context.Background()); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			helix.Errs["streams"] = fmt.Errorf("%w: status 500", shared.ErrAPIRequest)
			err := d.Refresh(context.Background())
			if !errors.Is(err, shared.ErrAPIRequest) {
				t.Fatalf("expected ErrAPIRequest, got %v", err)
			}
			if !d.View().Demo {
				t.Error("expected demo data after failure")
			}
			if source.invalidated != 0 {
				t.Error("expected session to be kept on non-auth failure")
			}
		})

		t.Run("Superseded Fetch Never Applies", func(t *testing.T) {
			helix := tu.NewFakeHelix()
			helix.AddFollow("1", "alpha", "Alpha")

			var calls atomic.Int32
			entered := make(chan struct{})
			helix.Hook = func(ctx context.Context, endpoint string) error {
				if endpoint == "follows" && calls.Add(1) == 1 {
					close(entered)
					<-ctx.Done()
					return ctx.Err()
				}
				return nil
			}

			bus := events.New(nil)
			rec := record(bus, events.LoadingChanged)
			d := newTestDirectory(helix, newStubSource("tok"), bus)

			firstErr := make(chan error, 1)
			go func() { firstErr <- d.Refresh(context.Background()) }()
			<-entered

			if err := d.Refresh(context.Background()); err != nil {
				t.Fatalf("expected second refresh to succeed, got %v", err)
			}

			err := <-firstErr
			if !errors.Is(err, shared.ErrSuperseded) {
				t.Errorf("expected ErrSuperseded, got %v", err)
			}

			view := d.View()
			if view.Demo || logins(view.Offline) != "[alpha]" {
				t.Errorf("expected second result to stand, got %+v", view)
			}
			if view.Loading {
				t.Error("expected loading cleared")
			}

			got := rec.all()
			if last := got[len(got)-1]; last.Data != false {
				t.Errorf("expected final loading=false, got %+v", last)
			}
		})

		t.Run("Cancel Aborts In Flight Fetch", func(t *testing.T) {
			helix := tu.NewFakeHelix()
			entered := make(chan struct{})
			helix.Hook = func(ctx context.Context, endpoint string) error {
				close(entered)
				<-ctx.Done()
				return ctx.Err()
			}
			d := newTestDirectory(helix, newStubSource("tok"), nil)

			done := make(chan error, 1)
			go func() { done <- d.Refresh(context.Background()) }()
			<-entered
			d.Cancel()

			if err := <-done; !errors.Is(err, shared.ErrSuperseded) {
				t.Errorf("expected ErrSuperseded, got %v", err)
			}
			if !d.View().Demo {
				t.Error("expected initial demo data untouched")
			}
			if d.Loading() {
				t.Error("expected loading cleared")
			}
		})
	})

	t.Run("Offline Paging", func(t *testing.T) {
		helix := tu.NewFakeHelix()
		helix.PageSize = 1000
		for i := range 250 {
			helix.AddFollow(fmt.Sprint(i), fmt.Sprintf("ch%03d", i), fmt.Sprintf("Ch%03d", i))
		}
		d := newTestDirectory(helix, newStubSource("tok"), nil)
		if err := d.Refresh(context.Background()); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		steps := []struct {
			visible int
			more    bool
		}{
			{100, true},
			{200, true},
			{250, false},
		}
		for i, step := range steps {
			if i > 0 {
				d.ShowMore()
			}
			view := d.View()
			if len(view.Offline) != step.visible || view.HasMore != step.more {
				t.Errorf("step %d: expected %d visible (more=%v), got %d (more=%v)", i, step.visible, step.more, len(view.Offline), view.HasMore)
			}
			if view.OfflineTotal != 250 {
				t.Errorf("expected total 250, got %d", view.OfflineTotal)
			}
		}

		if err := d.Refresh(context.Background()); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if got := len(d.View().Offline); got != 100 {
			t.Errorf("expected refresh to reset page to 100, got %d", got)
		}
	})

	t.Run("Progress", func(t *testing.T) {
		helix := tu.NewFakeHelix()
		helix.AddFollow("1", "alpha", "Alpha")
		d := newTestDirectory(helix, newStubSource("tok"), nil)

		progress := make(chan ProgressUpdate, 10)
		d.SetProgress(progress)
		if err := d.Refresh(context.Background()); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		close(progress)

		var phases []Phase
		for u := range progress {
			phases = append(phases, u.Phase)
		}
		want := fmt.Sprint([]Phase{FetchFollows, FetchLive, FetchUsers, Assemble})
		if fmt.Sprint(phases) != want {
			t.Errorf("expected phases %s, got %v", want, phases)
		}
	})
}

func TestSortChannels(t *testing.T) {
	channels := []models.FollowedChannel{
		{Login: "zed", DisplayName: "zed"},
		{Login: "low", DisplayName: "Low", IsLive: true, ViewerCount: 10},
		{Login: "apple", DisplayName: "Apple"},
		{Login: "high", DisplayName: "High", IsLive: true, ViewerCount: 900},
		{Login: "banana", DisplayName: "banana"},
		{Login: "tie_b", DisplayName: "Tie", IsLive: true, ViewerCount: 10},
		{Login: "apple2", DisplayName: "apple"},
	}

	live, offline := SortChannels(channels)

	if got := logins(live); got != "[high low tie_b]" {
		t.Errorf("unexpected live order %s", got)
	}
	if got := logins(offline); got != "[apple apple2 banana zed]" {
		t.Errorf("unexpected offline order %s", got)
	}
	if channels[0].Login != "zed" {
		t.Error("expected input to be left untouched")
	}
}

func followOf(id, login, name string) services.Follow {
	return services.Follow{BroadcasterID: id, BroadcasterLogin: login, BroadcasterName: name}
}
