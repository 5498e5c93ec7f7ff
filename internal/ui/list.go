package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/list"
	"github.com/desertthunder/multistream/internal/models"
	"github.com/desertthunder/multistream/internal/shared"
)

var (
	_ list.Item = entryItem{}
	_ list.Item = channelItem{}
	_ list.Item = moreItem{}
)

// entryItem wraps [models.StreamEntry] to implement [list.Item].
type entryItem struct {
	entry   models.StreamEntry
	focused bool
	moving  bool
	target  bool
}

func (i entryItem) FilterValue() string { return i.entry.Channel }
func (i entryItem) Title() string {
	var marks []string
	if i.moving {
		marks = append(marks, "⇅")
	}
	if i.target {
		marks = append(marks, "→")
	}
	if i.focused {
		marks = append(marks, "★")
	}
	marks = append(marks, i.entry.Channel)
	return strings.Join(marks, " ")
}
func (i entryItem) Description() string {
	return "twitch.tv/" + i.entry.Channel
}

// channelItem wraps [models.FollowedChannel] to implement [list.Item].
type channelItem struct {
	channel models.FollowedChannel
}

func (i channelItem) FilterValue() string { return i.channel.Login }
func (i channelItem) Title() string {
	if i.channel.IsLive {
		return "● " + i.channel.DisplayName
	}
	return "○ " + i.channel.DisplayName
}
func (i channelItem) Description() string {
	if !i.channel.IsLive {
		return "Offline"
	}
	return fmt.Sprintf("%s • %s viewers", i.channel.GameName, shared.FormatViewerCount(i.channel.ViewerCount))
}

// moreItem is the trailing "show more" row of the directory.
type moreItem struct {
	remaining int
}

func (i moreItem) FilterValue() string { return "" }
func (i moreItem) Title() string       { return "Show more" }
func (i moreItem) Description() string { return fmt.Sprintf("%d more offline", i.remaining) }
