// package models defines the data model for the multistream viewer
package models

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

// StreamEntry is one channel embed in the grid.
//
// ID is the creation timestamp in milliseconds and is unique for the lifetime of the layout.
type StreamEntry struct {
	ID      int64  `json:"id"`
	Channel string `json:"channel"`
	Locked  bool   `json:"locked"`
}

// PlayerURL returns the Twitch player embed URL for the entry, scoped to parent host.
func (e StreamEntry) PlayerURL(parent string) string {
	return fmt.Sprintf("https://player.twitch.tv/?channel=%s&parent=%s", url.QueryEscape(e.Channel), url.QueryEscape(parent))
}

// ChatURL returns the Twitch chat embed URL for the entry, scoped to parent host.
func (e StreamEntry) ChatURL(parent string) string {
	return fmt.Sprintf("https://www.twitch.tv/embed/%s/chat?darkpopout&parent=%s", url.PathEscape(e.Channel), url.QueryEscape(parent))
}

// SameChannel reports whether the entry's channel matches channel, ignoring case.
func (e StreamEntry) SameChannel(channel string) bool {
	return strings.EqualFold(e.Channel, strings.TrimSpace(channel))
}

// FollowedChannel is a channel the authenticated user follows, with derived live status.
type FollowedChannel struct {
	ID              string `json:"id"`
	Login           string `json:"login"`
	DisplayName     string `json:"display_name"`
	ProfileImageURL string `json:"profile_image_url"`
	IsLive          bool   `json:"is_live"`
	GameName        string `json:"game_name"`
	ViewerCount     int    `json:"viewer_count"`
	Title           string `json:"title"`
}

// SessionUser is the authenticated Twitch identity.
type SessionUser struct {
	ID              string `json:"id"`
	Login           string `json:"login"`
	DisplayName     string `json:"display_name"`
	ProfileImageURL string `json:"profile_image_url"`
	Email           string `json:"email,omitempty"`
}

// ChannelSuggestion is a single channel search result.
type ChannelSuggestion struct {
	ID           string `json:"id"`
	Login        string `json:"broadcaster_login"`
	DisplayName  string `json:"display_name"`
	GameName     string `json:"game_name"`
	IsLive       bool   `json:"is_live"`
	ThumbnailURL string `json:"thumbnail_url"`
	Title        string `json:"title"`
}

// Channel returns the handle to add to the grid when the suggestion is selected.
func (s ChannelSuggestion) Channel() string {
	if s.Login != "" {
		return strings.ToLower(s.Login)
	}
	return strings.ToLower(s.DisplayName)
}

// EntryStore persists the ordered list of stream entries as a single record.
type EntryStore interface {
	Load() ([]StreamEntry, error) // Load returns the persisted entries, empty when nothing is stored
	Save([]StreamEntry) error     // Save replaces the persisted record with entries
}

// TokenStore persists the OAuth credential.
type TokenStore interface {
	Token() (string, error) // Token returns the stored access token, or "" if none
	SetToken(string) error  // SetToken stores the access token
	ClearToken() error      // ClearToken removes the stored access token
}

// DirectorySnapshot is the result of one successful followed-channel fetch.
type DirectorySnapshot struct {
	UserID    string            `json:"user_id"`
	FetchedAt time.Time         `json:"fetched_at"`
	Channels  []FollowedChannel `json:"channels"`
}
