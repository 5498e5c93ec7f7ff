// package services defines interface TwitchAPI for interacting with the Twitch Helix HTTP API
package services

import (
	"context"
	"time"

	"github.com/desertthunder/multistream/internal/models"
)

// TwitchAPI defines the Helix operations the viewer consumes. Every call carries the bearer
// token explicitly because the session may replace or discard it between calls.
type TwitchAPI interface {
	// CurrentUser returns the user that owns token.
	CurrentUser(ctx context.Context, token string) (*models.SessionUser, error)

	// FollowedChannels returns one page of channels followed by userID, starting at cursor after.
	FollowedChannels(ctx context.Context, token, userID, after string) (*Page[Follow], error)

	// FollowedStreams returns one page of live streams among channels followed by userID.
	FollowedStreams(ctx context.Context, token, userID, after string) (*Page[LiveStream], error)

	// UsersByID returns profile records for at most [MaxBatch] ids.
	UsersByID(ctx context.Context, token string, ids []string) ([]User, error)

	// SearchChannels searches channels by query, returning at most first results.
	SearchChannels(ctx context.Context, token, query string, first int) ([]models.ChannelSuggestion, error)

	// ClientID returns the application client identifier sent with every request.
	ClientID() string
}

// MaxBatch is the Helix limit for page sizes and id lists.
const MaxBatch = 100

// Page is a cursor-paginated Helix response.
type Page[T any] struct {
	Data       []T        `json:"data"`
	Pagination Pagination `json:"pagination"`
}

// Pagination holds the opaque cursor for the next page; empty when exhausted.
type Pagination struct {
	Cursor string `json:"cursor"`
}

// Follow is a followed-channel record from /channels/followed.
type Follow struct {
	BroadcasterID    string    `json:"broadcaster_id"`
	BroadcasterLogin string    `json:"broadcaster_login"`
	BroadcasterName  string    `json:"broadcaster_name"`
	FollowedAt       time.Time `json:"followed_at"`
}

// LiveStream is a live stream record from /streams/followed.
type LiveStream struct {
	ID           string    `json:"id"`
	UserID       string    `json:"user_id"`
	UserLogin    string    `json:"user_login"`
	UserName     string    `json:"user_name"`
	GameID       string    `json:"game_id"`
	GameName     string    `json:"game_name"`
	Type         string    `json:"type"`
	Title        string    `json:"title"`
	ViewerCount  int       `json:"viewer_count"`
	StartedAt    time.Time `json:"started_at"`
	ThumbnailURL string    `json:"thumbnail_url"`
}

// User is a profile record from /users.
type User struct {
	ID              string `json:"id"`
	Login           string `json:"login"`
	DisplayName     string `json:"display_name"`
	ProfileImageURL string `json:"profile_image_url"`
	Email           string `json:"email,omitempty"`
}

// SessionUser converts the profile to the session identity.
func (u User) SessionUser() *models.SessionUser {
	return &models.SessionUser{
		ID:              u.ID,
		Login:           u.Login,
		DisplayName:     u.DisplayName,
		ProfileImageURL: u.ProfileImageURL,
		Email:           u.Email,
	}
}

// CollectPages follows cursors from fetch until a page has no cursor.
//
// Cancellation of ctx stops paging and returns ctx.Err().
func CollectPages[T any](ctx context.Context, fetch func(ctx context.Context, after string) (*Page[T], error)) ([]T, error) {
	var (
		all   []T
		after string
	)
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		page, err := fetch(ctx, after)
		if err != nil {
			return nil, err
		}
		all = append(all, page.Data...)

		after = page.Pagination.Cursor
		if after == "" {
			return all, nil
		}
	}
}

// Chunk splits ids into consecutive slices of at most size elements.
func Chunk(ids []string, size int) [][]string {
	if size <= 0 {
		size = MaxBatch
	}
	var chunks [][]string
	for start := 0; start < len(ids); start += size {
		end := min(start+size, len(ids))
		chunks = append(chunks, ids[start:end])
	}
	return chunks
}
