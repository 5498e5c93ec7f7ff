package web

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"html/template"
	"net/http"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/multistream/internal/app"
	"github.com/desertthunder/multistream/internal/events"
	"github.com/desertthunder/multistream/internal/models"
	"github.com/desertthunder/multistream/internal/server"
	"github.com/desertthunder/multistream/internal/shared"
	"github.com/desertthunder/multistream/internal/tasks"
)

//go:embed templates/*.html
var templateFS embed.FS

var pageTemplate = template.Must(template.ParseFS(templateFS, "templates/index.html"))

// Server serves the grid page and keeps connected tabs in sync with the app.
type Server struct {
	app    *app.App
	hub    *server.Hub
	router *server.BasicRouter
	logger *log.Logger

	mu     sync.RWMutex
	views  map[*server.Client]*view
	unsubs []func()
}

// Opts configures a [Server].
type Opts struct {
	App    *app.App
	Logger *log.Logger
}

// New creates the web server and subscribes it to the app's bus.
func New(opts Opts) *Server {
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	s := &Server{
		app:    opts.App,
		hub:    server.NewHub(shared.WithLogger(opts.Logger, "component", "hub"), nil),
		logger: opts.Logger,
		views:  make(map[*server.Client]*view),
	}

	s.router = server.NewBasicRouter(server.Recover(opts.Logger), server.Logging(opts.Logger))
	s.router.HandleFunc("GET,HEAD", "/{$}", s.index)
	s.router.HandleFunc(http.MethodGet, "/login", s.login)
	s.router.HandleFunc(http.MethodPost, "/logout", s.logout)
	s.router.HandleFunc(http.MethodGet, "/ws", s.websocket)
	s.router.HandleFunc("GET,HEAD", "/healthz", s.health)
	s.router.Handler(server.NewCallbackHandler(server.CallbackOpts{
		Bootstrap: opts.App.Session.Bootstrap,
		Logger:    shared.WithLogger(opts.Logger, "component", "callback"),
		Next:      "/",
	}))

	bus := opts.App.Bus
	s.unsubs = append(s.unsubs,
		bus.Subscribe(s.onGrid, events.GridChanged),
		bus.Subscribe(s.onDirectory, events.DirectoryUpdated),
		bus.Subscribe(s.onAuth, events.AuthChanged),
		bus.Subscribe(s.onLoading, events.LoadingChanged),
		bus.Subscribe(s.onNotice, events.Notice),
		bus.Subscribe(s.onSuggestions, events.SearchResults),
	)
	return s
}

// ServeHTTP implements [http.Handler].
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Run runs the websocket hub until ctx is cancelled.
func (s *Server) Run(ctx context.Context) {
	s.hub.Run(ctx)
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
	}

	hubCtx, stopHub := context.WithCancel(ctx)
	defer stopHub()
	go s.Run(hubCtx)

	errs := make(chan error, 1)
	go func() {
		s.logger.Info("serving", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errs <- err
		}
		close(errs)
	}()

	select {
	case err := <-errs:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	stopHub()
	return srv.Shutdown(shutdownCtx)
}

// Close unsubscribes from the bus.
func (s *Server) Close() {
	for _, unsub := range s.unsubs {
		unsub()
	}
}

type pageData struct {
	Authenticated bool
	User          *models.SessionUser
}

func (s *Server) index(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	data := pageData{Authenticated: s.app.Session.Authenticated(), User: s.app.Session.User()}
	if err := pageTemplate.Execute(w, data); err != nil {
		s.logger.Error("render page", "error", err)
	}
}

func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, s.app.Session.BeginLogin(), http.StatusFound)
}

func (s *Server) logout(w http.ResponseWriter, r *http.Request) {
	s.app.Session.Logout()
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (s *Server) websocket(w http.ResponseWriter, r *http.Request) {
	s.hub.Serve(w, r, s)
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"status":        "ok",
		"authenticated": s.app.Session.Authenticated(),
		"clients":       s.hub.Len(),
		"streams":       s.app.Grid.Len(),
	})
}

func (s *Server) broadcast(frame string, data any) {
	if err := s.hub.Broadcast(frame, data); err != nil {
		s.logger.Error("broadcast", "frame", frame, "error", err)
	}
}

func (s *Server) onGrid(e events.Event) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, v := range s.views {
		v.sendGrid()
	}
}

func (s *Server) onDirectory(e events.Event) {
	view, ok := e.Data.(tasks.DirectoryView)
	if !ok {
		view = s.app.Directory.View()
	}
	s.broadcast(FrameDirectory, newDirectoryFrame(view))
}

func (s *Server) onAuth(e events.Event) {
	payload, _ := e.Data.(events.AuthPayload)
	s.broadcast(FrameAuth, newAuthFrame(payload))
}

func (s *Server) onLoading(e events.Event) {
	loading, _ := e.Data.(bool)
	s.broadcast(FrameLoading, loadingFrame{Loading: loading})
}

func (s *Server) onNotice(e events.Event) {
	payload, _ := e.Data.(events.NoticePayload)
	s.broadcast(FrameNotice, noticeFrame{Level: payload.Level.String(), Message: payload.Message})
}

func (s *Server) onSuggestions(e events.Event) {
	payload, _ := e.Data.(events.SearchPayload)
	s.broadcast(FrameSuggestions, suggestionsFrame{
		Query:       payload.Query,
		Visible:     payload.Visible,
		Suggestions: payload.Suggestions,
	})
}
