package ui

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/multistream/internal/events"
	"github.com/desertthunder/multistream/internal/models"
)

// MsgKind enumerates all message types in the application.
type MsgKind int

// Msg represents all possible messages in the TUI (Elm-style message union).
type Msg struct {
	kind MsgKind
	data any
}

var (
	_ tea.Msg = Msg{}
)

const (
	MsgAuthChanged MsgKind = iota
	MsgDirectoryUpdated
	MsgLoadingChanged
	MsgGridChanged
	MsgNotice
	MsgSuggestions
	MsgEventsClosed
)

type suggestionsData struct {
	visible     bool
	suggestions []models.ChannelSuggestion
}

type noticeData struct {
	err     bool
	message string
}

// fromEvent converts a bus event into a TUI message. Grid, directory and auth messages carry
// no payload; the model reads current state from the app when it handles them.
func fromEvent(e events.Event) (Msg, bool) {
	switch e.Kind {
	case events.AuthChanged:
		return Msg{kind: MsgAuthChanged}, true
	case events.DirectoryUpdated:
		return Msg{kind: MsgDirectoryUpdated}, true
	case events.GridChanged:
		return Msg{kind: MsgGridChanged}, true
	case events.LoadingChanged:
		loading, _ := e.Data.(bool)
		return loadingChangedMsg(loading), true
	case events.Notice:
		p, _ := e.Data.(events.NoticePayload)
		return noticeMsg(p.Level == events.LevelError, p.Message), true
	case events.SearchResults:
		p, _ := e.Data.(events.SearchPayload)
		return suggestionsMsg(p.Visible, p.Suggestions), true
	default:
		return Msg{}, false
	}
}

// loadingChangedMsg is the constructor for [MsgLoadingChanged]
func loadingChangedMsg(loading bool) Msg {
	return Msg{kind: MsgLoadingChanged, data: loading}
}

// noticeMsg is the constructor for [MsgNotice]
func noticeMsg(err bool, message string) Msg {
	return Msg{kind: MsgNotice, data: noticeData{err: err, message: message}}
}

// suggestionsMsg is the constructor for [MsgSuggestions]
func suggestionsMsg(visible bool, suggestions []models.ChannelSuggestion) Msg {
	return Msg{kind: MsgSuggestions, data: suggestionsData{visible: visible, suggestions: suggestions}}
}
