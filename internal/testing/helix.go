package testing

import (
	"context"
	"strconv"
	"strings"
	"sync"

	"github.com/desertthunder/multistream/internal/models"
	"github.com/desertthunder/multistream/internal/services"
)

var _ services.TwitchAPI = (*FakeHelix)(nil)

// FakeHelix is an in-memory [services.TwitchAPI].
//
// List endpoints page through their data PageSize records at a time using the record offset as
// cursor. Errs maps an endpoint name ("users", "follows", "streams", "lookup", "search") to the
// error it returns. Hook, when set, runs before every call and may block or fail it.
type FakeHelix struct {
	mu       sync.Mutex
	User     *models.SessionUser
	Follows  []services.Follow
	Streams  []services.LiveStream
	Users    map[string]services.User
	Results  []models.ChannelSuggestion
	PageSize int
	Errs     map[string]error
	Hook     func(ctx context.Context, endpoint string) error
	calls    map[string]int
	tokens   []string
}

// NewFakeHelix creates an empty fake with a default page size of 100.
func NewFakeHelix() *FakeHelix {
	return &FakeHelix{
		Users:    map[string]services.User{},
		Errs:     map[string]error{},
		PageSize: services.MaxBatch,
		calls:    map[string]int{},
	}
}

// AddFollow registers a followed channel and its user record.
func (f *FakeHelix) AddFollow(id, login, display string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Follows = append(f.Follows, services.Follow{BroadcasterID: id, BroadcasterLogin: login, BroadcasterName: display})
	f.Users[id] = services.User{ID: id, Login: login, DisplayName: display, ProfileImageURL: "https://img.test/" + login + ".png"}
}

// AddStream marks a followed channel live.
func (f *FakeHelix) AddStream(id, login, display, game string, viewers int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Streams = append(f.Streams, services.LiveStream{
		UserID: id, UserLogin: login, UserName: display, GameName: game, ViewerCount: viewers, Title: display + " live",
	})
}

// Calls returns how many times endpoint was called.
func (f *FakeHelix) Calls(endpoint string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[endpoint]
}

// Tokens returns every token presented, in call order.
func (f *FakeHelix) Tokens() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.tokens...)
}

func (f *FakeHelix) enter(ctx context.Context, endpoint, token string) error {
	f.mu.Lock()
	f.calls[endpoint]++
	f.tokens = append(f.tokens, token)
	hook := f.Hook
	err := f.Errs[endpoint]
	f.mu.Unlock()

	if hook != nil {
		if herr := hook(ctx, endpoint); herr != nil {
			return herr
		}
	}
	if err != nil {
		return err
	}
	return ctx.Err()
}

func (f *FakeHelix) ClientID() string { return "fake-client" }

func (f *FakeHelix) CurrentUser(ctx context.Context, token string) (*models.SessionUser, error) {
	if err := f.enter(ctx, "users", token); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.User == nil {
		return &models.SessionUser{ID: "1", Login: "viewer", DisplayName: "Viewer"}, nil
	}
	u := *f.User
	return &u, nil
}

func paginate[T any](data []T, after string, size int) *services.Page[T] {
	start, _ := strconv.Atoi(after)
	if start > len(data) {
		start = len(data)
	}
	end := min(start+size, len(data))

	page := &services.Page[T]{Data: append([]T(nil), data[start:end]...)}
	if end < len(data) {
		page.Pagination.Cursor = strconv.Itoa(end)
	}
	return page
}

func (f *FakeHelix) FollowedChannels(ctx context.Context, token, userID, after string) (*services.Page[services.Follow], error) {
	if err := f.enter(ctx, "follows", token); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return paginate(f.Follows, after, f.PageSize), nil
}

func (f *FakeHelix) FollowedStreams(ctx context.Context, token, userID, after string) (*services.Page[services.LiveStream], error) {
	if err := f.enter(ctx, "streams", token); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return paginate(f.Streams, after, f.PageSize), nil
}

func (f *FakeHelix) UsersByID(ctx context.Context, token string, ids []string) ([]services.User, error) {
	if err := f.enter(ctx, "lookup", token); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	var users []services.User
	for _, id := range ids {
		if u, ok := f.Users[id]; ok {
			users = append(users, u)
		}
	}
	return users, nil
}

func (f *FakeHelix) SearchChannels(ctx context.Context, token, query string, first int) ([]models.ChannelSuggestion, error) {
	if err := f.enter(ctx, "search", token); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.ChannelSuggestion
	q := strings.ToLower(query)
	for _, r := range f.Results {
		if strings.Contains(strings.ToLower(r.Login), q) || strings.Contains(strings.ToLower(r.DisplayName), q) {
			out = append(out, r)
		}
		if len(out) == first {
			break
		}
	}
	return out, nil
}
