package web

import (
	"github.com/desertthunder/multistream/internal/events"
	"github.com/desertthunder/multistream/internal/grid"
	"github.com/desertthunder/multistream/internal/models"
	"github.com/desertthunder/multistream/internal/shared"
	"github.com/desertthunder/multistream/internal/tasks"
)

// Client → server frame types.
const (
	MsgAdd        = "add"       // sidebar click, {channel}
	MsgAddTyped   = "add_typed" // text input, {channel}
	MsgRemove     = "remove"    // {id}
	MsgFocus      = "focus"     // {id}
	MsgDragStart  = "drag_start"
	MsgDragOver   = "drag_over"
	MsgDragLeave  = "drag_leave"
	MsgDrop       = "drop"
	MsgDragEnd    = "drag_end"
	MsgSearch     = "search" // {query}
	MsgSelect     = "select" // suggestion
	MsgSearchHide = "search_hide"
	MsgShowMore   = "show_more"
	MsgRefresh    = "refresh"
	MsgVisibility = "visibility" // {visible}
	MsgOnline     = "online"     // {online}
)

// Server → client frame types.
const (
	FrameGrid        = "grid"
	FrameDirectory   = "directory"
	FrameAuth        = "auth"
	FrameLoading     = "loading"
	FrameNotice      = "notice"
	FrameSuggestions = "suggestions"
	FrameDrag        = "drag"
)

type channelRequest struct {
	Channel string `json:"channel"`
}

type idRequest struct {
	ID int64 `json:"id"`
}

type indexRequest struct {
	Index int `json:"index"`
}

type searchRequest struct {
	Query string `json:"query"`
}

type visibilityRequest struct {
	Visible bool `json:"visible"`
}

type onlineRequest struct {
	Online bool `json:"online"`
}

type card struct {
	ID        int64  `json:"id"`
	Channel   string `json:"channel"`
	PlayerURL string `json:"player_url"`
	ChatURL   string `json:"chat_url"`
}

type gridFrame struct {
	Reset     bool    `json:"reset"`
	Empty     bool    `json:"empty"`
	Removed   []int64 `json:"removed"`
	Added     []card  `json:"added"`
	Order     []int64 `json:"order"`
	FocusedID int64   `json:"focused_id"`
	FocusMode bool    `json:"focus_mode"`
	Single    bool    `json:"single"`
	CanFocus  bool    `json:"can_focus"`
}

func newGridFrame(patch grid.Patch, layout grid.Layout, parent string) gridFrame {
	added := make([]card, len(patch.Added))
	for i, e := range patch.Added {
		added[i] = card{ID: e.ID, Channel: e.Channel, PlayerURL: e.PlayerURL(parent), ChatURL: e.ChatURL(parent)}
	}
	return gridFrame{
		Reset:     patch.Reset,
		Empty:     patch.Empty,
		Removed:   patch.Removed,
		Added:     added,
		Order:     patch.Order,
		FocusedID: layout.FocusedID,
		FocusMode: layout.FocusMode,
		Single:    layout.Single,
		CanFocus:  layout.CanFocus,
	}
}

type channelItem struct {
	Login           string `json:"login"`
	DisplayName     string `json:"display_name"`
	ProfileImageURL string `json:"profile_image_url"`
	IsLive          bool   `json:"is_live"`
	GameName        string `json:"game_name"`
	Viewers         string `json:"viewers"`
	Title           string `json:"title"`
}

type directoryFrame struct {
	Live         []channelItem `json:"live"`
	Offline      []channelItem `json:"offline"`
	OfflineTotal int           `json:"offline_total"`
	HasMore      bool          `json:"has_more"`
	Demo         bool          `json:"demo"`
}

func channelItems(channels []models.FollowedChannel) []channelItem {
	items := make([]channelItem, len(channels))
	for i, c := range channels {
		items[i] = channelItem{
			Login:           c.Login,
			DisplayName:     c.DisplayName,
			ProfileImageURL: c.ProfileImageURL,
			IsLive:          c.IsLive,
			GameName:        c.GameName,
			Title:           c.Title,
		}
		if c.IsLive {
			items[i].Viewers = shared.FormatViewerCount(c.ViewerCount)
		}
	}
	return items
}

func newDirectoryFrame(v tasks.DirectoryView) directoryFrame {
	return directoryFrame{
		Live:         channelItems(v.Live),
		Offline:      channelItems(v.Offline),
		OfflineTotal: v.OfflineTotal,
		HasMore:      v.HasMore,
		Demo:         v.Demo,
	}
}

type authFrame struct {
	Authenticated bool                `json:"authenticated"`
	User          *models.SessionUser `json:"user,omitempty"`
}

func newAuthFrame(p events.AuthPayload) authFrame {
	return authFrame{Authenticated: p.Authenticated, User: p.User}
}

type loadingFrame struct {
	Loading bool `json:"loading"`
}

type noticeFrame struct {
	Level   string `json:"level"`
	Message string `json:"message"`
}

type suggestionsFrame struct {
	Query       string                     `json:"query"`
	Visible     bool                       `json:"visible"`
	Suggestions []models.ChannelSuggestion `json:"suggestions"`
}

type dragFrame struct {
	Source int `json:"source"`
	Target int `json:"target"`
}
