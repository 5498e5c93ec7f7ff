// Twitch Helix implementation of [TwitchAPI]
//
// Response shapes follow https://dev.twitch.tv/docs/api/reference/
package services

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/desertthunder/multistream/internal/models"
	"github.com/desertthunder/multistream/internal/shared"
	"golang.org/x/oauth2"
	"golang.org/x/time/rate"
)

const (
	DefaultHelixURL = "https://api.twitch.tv/helix"
	defaultRPS      = 10
)

var _ TwitchAPI = (*HelixClient)(nil)

// HelixClient implements [TwitchAPI] over HTTP.
//
// Requests are authorized with an [oauth2.Transport] wrapping a static bearer token and are
// throttled by a shared [rate.Limiter].
type HelixClient struct {
	baseURL    string
	clientID   string
	httpClient *http.Client
	limiter    *rate.Limiter
}

// HelixOpts configures a [HelixClient].
type HelixOpts struct {
	BaseURL           string
	ClientID          string
	HTTPClient        *http.Client
	RequestsPerSecond float64
}

// NewHelixClient creates a new Helix client. Zero-valued options take defaults.
func NewHelixClient(opts HelixOpts) *HelixClient {
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultHelixURL
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = http.DefaultClient
	}
	if opts.RequestsPerSecond <= 0 {
		opts.RequestsPerSecond = defaultRPS
	}

	return &HelixClient{
		baseURL:    opts.BaseURL,
		clientID:   opts.ClientID,
		httpClient: opts.HTTPClient,
		limiter:    rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), int(max(opts.RequestsPerSecond, 1))),
	}
}

func (h *HelixClient) ClientID() string {
	return h.clientID
}

// authorized returns an HTTP client that injects token as a bearer credential.
func (h *HelixClient) authorized(token string) *http.Client {
	base := h.httpClient.Transport
	if base == nil {
		base = http.DefaultTransport
	}
	return &http.Client{
		Timeout: h.httpClient.Timeout,
		Transport: &oauth2.Transport{
			Source: oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token, TokenType: "Bearer"}),
			Base:   base,
		},
	}
}

// doRequest performs an authenticated GET against endpoint and decodes the JSON body into result.
//
// Status mapping: 401/403 → [shared.ErrUnauthorized], 429 → [shared.ErrRateLimited],
// other non-2xx → [shared.ErrAPIRequest].
func (h *HelixClient) doRequest(ctx context.Context, token, endpoint string, query url.Values, result any) error {
	if token == "" {
		return fmt.Errorf("%w: no access token", shared.ErrNotAuthenticated)
	}

	if err := h.limiter.Wait(ctx); err != nil {
		return err
	}

	apiURL := h.baseURL + endpoint
	if len(query) > 0 {
		apiURL += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, apiURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Client-Id", h.clientID)

	resp, err := h.authorized(token).Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("%w: %s: %v", shared.ErrAPIRequest, endpoint, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return fmt.Errorf("%w: %s status %d", shared.ErrUnauthorized, endpoint, resp.StatusCode)
	case resp.StatusCode == http.StatusTooManyRequests:
		return fmt.Errorf("%w: %s", shared.ErrRateLimited, endpoint)
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		var errResp struct {
			Message string `json:"message"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&errResp); err == nil && errResp.Message != "" {
			return fmt.Errorf("%w: %s status %d: %s", shared.ErrAPIRequest, endpoint, resp.StatusCode, errResp.Message)
		}
		return fmt.Errorf("%w: %s status %d", shared.ErrAPIRequest, endpoint, resp.StatusCode)
	}

	if result != nil {
		if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}

	return nil
}

// CurrentUser calls GET /users without parameters, which resolves the token owner.
func (h *HelixClient) CurrentUser(ctx context.Context, token string) (*models.SessionUser, error) {
	var page Page[User]
	if err := h.doRequest(ctx, token, "/users", nil, &page); err != nil {
		return nil, err
	}
	if len(page.Data) == 0 {
		return nil, fmt.Errorf("%w: empty user response", shared.ErrAuthFailed)
	}
	return page.Data[0].SessionUser(), nil
}

func pageQuery(userID, after string) url.Values {
	q := url.Values{}
	q.Set("user_id", userID)
	q.Set("first", strconv.Itoa(MaxBatch))
	if after != "" {
		q.Set("after", after)
	}
	return q
}

// FollowedChannels calls GET /channels/followed.
func (h *HelixClient) FollowedChannels(ctx context.Context, token, userID, after string) (*Page[Follow], error) {
	var page Page[Follow]
	if err := h.doRequest(ctx, token, "/channels/followed", pageQuery(userID, after), &page); err != nil {
		return nil, err
	}
	return &page, nil
}

// FollowedStreams calls GET /streams/followed.
func (h *HelixClient) FollowedStreams(ctx context.Context, token, userID, after string) (*Page[LiveStream], error) {
	var page Page[LiveStream]
	if err := h.doRequest(ctx, token, "/streams/followed", pageQuery(userID, after), &page); err != nil {
		return nil, err
	}
	return &page, nil
}

// UsersByID calls GET /users?id=...; ids beyond [MaxBatch] are rejected.
func (h *HelixClient) UsersByID(ctx context.Context, token string, ids []string) ([]User, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	if len(ids) > MaxBatch {
		return nil, fmt.Errorf("%w: %d ids exceeds batch size %d", shared.ErrInvalidArgument, len(ids), MaxBatch)
	}

	q := url.Values{}
	for _, id := range ids {
		q.Add("id", id)
	}

	var page Page[User]
	if err := h.doRequest(ctx, token, "/users", q, &page); err != nil {
		return nil, err
	}
	return page.Data, nil
}

type searchChannel struct {
	ID               string `json:"id"`
	BroadcasterLogin string `json:"broadcaster_login"`
	DisplayName      string `json:"display_name"`
	GameName         string `json:"game_name"`
	IsLive           bool   `json:"is_live"`
	ThumbnailURL     string `json:"thumbnail_url"`
	Title            string `json:"title"`
}

// SearchChannels calls GET /search/channels.
func (h *HelixClient) SearchChannels(ctx context.Context, token, query string, first int) ([]models.ChannelSuggestion, error) {
	q := url.Values{}
	q.Set("query", query)
	q.Set("first", strconv.Itoa(first))

	var page Page[searchChannel]
	if err := h.doRequest(ctx, token, "/search/channels", q, &page); err != nil {
		return nil, err
	}

	results := make([]models.ChannelSuggestion, 0, len(page.Data))
	for _, ch := range page.Data {
		display := ch.DisplayName
		if display == "" {
			display = ch.BroadcasterLogin
		}
		results = append(results, models.ChannelSuggestion{
			ID:           ch.ID,
			Login:        ch.BroadcasterLogin,
			DisplayName:  display,
			GameName:     ch.GameName,
			IsLive:       ch.IsLive,
			ThumbnailURL: ch.ThumbnailURL,
			Title:        ch.Title,
		})
	}
	return results, nil
}
