package web

import (
	"sync"

	"github.com/desertthunder/multistream/internal/events"
	"github.com/desertthunder/multistream/internal/grid"
	"github.com/desertthunder/multistream/internal/models"
	"github.com/desertthunder/multistream/internal/server"
)

var _ server.ClientHandler = (*Server)(nil)

// view is the per-tab state: what the tab has rendered and its drag gesture.
type view struct {
	client *server.Client
	grid   *grid.Controller

	mu   sync.Mutex
	rec  grid.Reconciler
	drag *grid.Drag
}

func (v *view) sendGrid() {
	v.mu.Lock()
	defer v.mu.Unlock()
	layout := v.grid.Layout()
	patch := v.rec.Next(layout.Entries)
	v.client.SendEnvelope(FrameGrid, newGridFrame(patch, layout, v.client.Host))
}

func (v *view) sendDrag() {
	source, target := v.drag.State()
	v.client.SendEnvelope(FrameDrag, dragFrame{Source: source, Target: target})
}

// Connected sends the tab a full snapshot and counts it as visible.
func (s *Server) Connected(c *server.Client) {
	v := &view{client: c, grid: s.app.Grid, drag: grid.NewDrag(s.app.Grid)}
	s.mu.Lock()
	s.views[c] = v
	s.mu.Unlock()

	c.SendEnvelope(FrameAuth, authFrame{
		Authenticated: s.app.Session.Authenticated(),
		User:          s.app.Session.User(),
	})
	c.SendEnvelope(FrameDirectory, newDirectoryFrame(s.app.Directory.View()))
	c.SendEnvelope(FrameLoading, loadingFrame{Loading: s.app.Directory.Loading()})
	v.sendGrid()

	s.app.SetVisible(c.ID, true)
}

// Disconnected drops the tab's state.
func (s *Server) Disconnected(c *server.Client) {
	s.mu.Lock()
	delete(s.views, c)
	s.mu.Unlock()
	s.app.RemoveView(c.ID)
}

// Message dispatches one client frame.
func (s *Server) Message(c *server.Client, env *server.Envelope) {
	s.mu.RLock()
	v := s.views[c]
	s.mu.RUnlock()
	if v == nil {
		return
	}

	var err error
	switch env.Type {
	case MsgAdd, MsgAddTyped:
		var req channelRequest
		if err = env.Decode(&req); err == nil {
			kind := events.AddChannelRequested
			if env.Type == MsgAddTyped {
				kind = events.AddTypedRequested
			}
			s.app.Bus.Publish(kind, req.Channel)
		}
	case MsgRemove:
		var req idRequest
		if err = env.Decode(&req); err == nil {
			s.app.Grid.Remove(req.ID)
		}
	case MsgFocus:
		var req idRequest
		if err = env.Decode(&req); err == nil {
			s.app.Grid.ToggleFocus(req.ID)
		}
	case MsgDragStart, MsgDragOver, MsgDragLeave, MsgDrop:
		var req indexRequest
		if err = env.Decode(&req); err == nil {
			s.dragEvent(v, env.Type, req.Index)
		}
	case MsgDragEnd:
		v.drag.End()
		v.sendDrag()
	case MsgSearch:
		var req searchRequest
		if err = env.Decode(&req); err == nil {
			s.app.Searcher.Input(req.Query)
		}
	case MsgSelect:
		var suggestion models.ChannelSuggestion
		if err = env.Decode(&suggestion); err == nil {
			s.app.Searcher.Select(suggestion)
		}
	case MsgSearchHide:
		s.app.Searcher.Hide()
	case MsgShowMore:
		s.app.Directory.ShowMore()
	case MsgRefresh:
		s.app.RefreshNow()
	case MsgVisibility:
		var req visibilityRequest
		if err = env.Decode(&req); err == nil {
			s.app.SetVisible(c.ID, req.Visible)
		}
	case MsgOnline:
		var req onlineRequest
		if err = env.Decode(&req); err == nil {
			s.app.SetOnline(req.Online)
		}
	default:
		s.logger.Debug("unknown frame", "type", env.Type, "client", c.ID)
		return
	}

	if err != nil {
		s.logger.Debug("malformed frame", "type", env.Type, "client", c.ID, "error", err)
	}
}

func (s *Server) dragEvent(v *view, kind string, index int) {
	switch kind {
	case MsgDragStart:
		v.drag.Start(index)
	case MsgDragOver:
		v.drag.Over(index)
	case MsgDragLeave:
		v.drag.Leave(index)
	case MsgDrop:
		v.drag.Drop(index)
	}
	v.sendDrag()
}
