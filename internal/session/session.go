// package session manages the Twitch login state established by the OAuth implicit flow
package session

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/multistream/internal/events"
	"github.com/desertthunder/multistream/internal/models"
	"github.com/desertthunder/multistream/internal/services"
	"github.com/desertthunder/multistream/internal/shared"
	"github.com/desertthunder/multistream/internal/tasks"
	"github.com/google/uuid"
	"golang.org/x/oauth2"
)

const (
	DefaultAuthURL     = "https://id.twitch.tv/oauth2/authorize"
	DefaultRedirectURL = "http://localhost:3000/callback"
)

// DefaultScopes are requested on every login.
var DefaultScopes = []string{"user:read:email", "user:read:follows"}

// State enumerates the session lifecycle.
type State int

const (
	StateAnonymous State = iota
	StateAuthenticating
	StateAuthenticated
	StateError
)

func (s State) String() string {
	switch s {
	case StateAnonymous:
		return "anonymous"
	case StateAuthenticating:
		return "authenticating"
	case StateAuthenticated:
		return "authenticated"
	case StateError:
		return "error"
	default:
		return ""
	}
}

// Fragment holds the parameters the identity provider returns in the redirect URL fragment.
type Fragment struct {
	AccessToken      string
	Scope            string
	State            string
	Error            string
	ErrorDescription string
}

// ParseFragment parses a URL fragment with or without its leading '#'.
func ParseFragment(fragment string) Fragment {
	values, err := url.ParseQuery(strings.TrimPrefix(fragment, "#"))
	if err != nil {
		return Fragment{}
	}
	return Fragment{
		AccessToken:      values.Get("access_token"),
		Scope:            values.Get("scope"),
		State:            values.Get("state"),
		Error:            values.Get("error"),
		ErrorDescription: values.Get("error_description"),
	}
}

var _ tasks.IdentitySource = (*Manager)(nil)

// Manager owns the credential and the resolved user.
//
// Every settle into anonymous or authenticated publishes [events.AuthChanged].
type Manager struct {
	api    services.TwitchAPI
	tokens models.TokenStore
	bus    *events.Bus
	logger *log.Logger
	oauth  *oauth2.Config

	mu      sync.Mutex
	state   State
	user    *models.SessionUser
	token   string
	pending string // state param of the login in progress
}

// Opts configures a [Manager]. API and Tokens are required.
type Opts struct {
	API         services.TwitchAPI
	Tokens      models.TokenStore
	Bus         *events.Bus
	Logger      *log.Logger
	ClientID    string
	RedirectURL string
	AuthURL     string
	Scopes      []string
}

func NewManager(opts Opts) *Manager {
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}
	if opts.AuthURL == "" {
		opts.AuthURL = DefaultAuthURL
	}
	if opts.RedirectURL == "" {
		opts.RedirectURL = DefaultRedirectURL
	}
	if len(opts.Scopes) == 0 {
		opts.Scopes = DefaultScopes
	}
	if opts.ClientID == "" && opts.API != nil {
		opts.ClientID = opts.API.ClientID()
	}

	return &Manager{
		api:    opts.API,
		tokens: opts.Tokens,
		bus:    opts.Bus,
		logger: opts.Logger,
		oauth: &oauth2.Config{
			ClientID:    opts.ClientID,
			RedirectURL: opts.RedirectURL,
			Scopes:      opts.Scopes,
			Endpoint:    oauth2.Endpoint{AuthURL: opts.AuthURL},
		},
	}
}

// AuthorizeURL builds the implicit-flow authorization URL carrying state.
func (m *Manager) AuthorizeURL(state string) string {
	return m.oauth.AuthCodeURL(state,
		oauth2.SetAuthURLParam("response_type", "token"),
		oauth2.SetAuthURLParam("force_verify", "true"),
	)
}

// BeginLogin returns an authorization URL with a fresh state and remembers the state so the
// matching fragment can be verified.
func (m *Manager) BeginLogin() string {
	state := uuid.NewString()
	m.mu.Lock()
	m.pending = state
	m.mu.Unlock()
	return m.AuthorizeURL(state)
}

// Bootstrap settles the session from the redirect fragment, falling back to the stored token.
//
//   - error param: notice, discard token, anonymous
//   - access_token param: store it and authenticate
//   - neither: authenticate with the stored token, or settle anonymous
func (m *Manager) Bootstrap(ctx context.Context, fragment string) error {
	f := ParseFragment(fragment)

	if f.Error == "" && f.AccessToken != "" && f.State != "" {
		m.mu.Lock()
		pending := m.pending
		m.mu.Unlock()
		if pending != "" && pending != f.State {
			f = Fragment{Error: "state_mismatch", ErrorDescription: "login response does not match the request"}
		}
	}

	switch {
	case f.Error != "":
		msg := "Login failed: " + f.Error
		if f.ErrorDescription != "" {
			msg += " (" + f.ErrorDescription + ")"
		}
		m.setState(StateError)
		m.logger.Warn("twitch login failed", "error", f.Error, "description", f.ErrorDescription)
		if m.bus != nil {
			m.bus.Notify(events.LevelError, msg)
		}
		m.discardToken()
		m.settle(StateAnonymous, nil, "")
		return fmt.Errorf("%w: %s", shared.ErrAuthFailed, f.Error)

	case f.AccessToken != "":
		m.mu.Lock()
		m.pending = ""
		m.mu.Unlock()
		if err := m.tokens.SetToken(f.AccessToken); err != nil {
			m.logger.Error("failed to store access token", "error", err)
		}
		return m.Authenticate(ctx, f.AccessToken)

	default:
		token, err := m.tokens.Token()
		if err != nil {
			m.logger.Error("failed to read stored token", "error", err)
		}
		if token != "" {
			return m.Authenticate(ctx, token)
		}
		m.settle(StateAnonymous, nil, "")
		return nil
	}
}

// Authenticate resolves the user for token. On failure the token is discarded and the session
// settles anonymous.
func (m *Manager) Authenticate(ctx context.Context, token string) error {
	m.setState(StateAuthenticating)

	user, err := m.api.CurrentUser(ctx, token)
	if err != nil {
		if !errors.Is(err, context.Canceled) {
			m.logger.Error("failed to fetch user", "error", err)
		}
		m.discardToken()
		m.settle(StateAnonymous, nil, "")
		return fmt.Errorf("%w: %w", shared.ErrAuthFailed, err)
	}

	m.logger.Info("logged in", "user", user.Login)
	m.settle(StateAuthenticated, user, token)
	return nil
}

// Logout discards the token unconditionally and settles anonymous.
func (m *Manager) Logout() {
	m.discardToken()
	m.settle(StateAnonymous, nil, "")
}

// Invalidate is called when Helix rejects the credential. It is a no-op when already anonymous.
func (m *Manager) Invalidate() {
	m.mu.Lock()
	wasAuthed := m.state == StateAuthenticated || m.token != ""
	m.mu.Unlock()

	m.discardToken()
	if wasAuthed {
		m.logger.Warn("twitch rejected the stored credential, logging out")
		m.settle(StateAnonymous, nil, "")
	}
}

// Identity returns the token and user for Helix calls; anonymous unless authenticated.
func (m *Manager) Identity() tasks.Identity {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state != StateAuthenticated {
		return tasks.Identity{}
	}
	return tasks.Identity{Token: m.token, User: m.user}
}

// State returns the current lifecycle state.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// User returns the authenticated user, or nil.
func (m *Manager) User() *models.SessionUser {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.user
}

// Authenticated reports whether a user is logged in.
func (m *Manager) Authenticated() bool {
	return m.State() == StateAuthenticated
}

func (m *Manager) setState(s State) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state = s
}

func (m *Manager) discardToken() {
	if err := m.tokens.ClearToken(); err != nil {
		m.logger.Error("failed to clear stored token", "error", err)
	}
	m.mu.Lock()
	m.token = ""
	m.mu.Unlock()
}

func (m *Manager) settle(s State, user *models.SessionUser, token string) {
	m.mu.Lock()
	m.state = s
	m.user = user
	m.token = token
	m.mu.Unlock()

	if m.bus != nil {
		m.bus.Publish(events.AuthChanged, events.AuthPayload{Authenticated: s == StateAuthenticated, User: user})
	}
}
