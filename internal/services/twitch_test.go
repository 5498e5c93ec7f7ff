package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/desertthunder/multistream/internal/shared"
)

type failingTransport struct{}

func (failingTransport) RoundTrip(*http.Request) (*http.Response, error) {
	return nil, errors.New("dial failed")
}

func newTestClient(url string) *HelixClient {
	return NewHelixClient(HelixOpts{BaseURL: url, ClientID: "test-client", RequestsPerSecond: 1000})
}

func TestHelixClient(t *testing.T) {
	t.Run("New", func(t *testing.T) {
		t.Run("Defaults", func(t *testing.T) {
			c := NewHelixClient(HelixOpts{ClientID: "abc"})

			if c.baseURL != DefaultHelixURL {
				t.Errorf("expected default base URL, got %s", c.baseURL)
			}
			if c.httpClient != http.DefaultClient {
				t.Error("expected http.DefaultClient to be used")
			}
			if c.ClientID() != "abc" {
				t.Errorf("expected client id abc, got %s", c.ClientID())
			}
		})
	})

	t.Run("Headers", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if got := r.Header.Get("Authorization"); got != "Bearer tok" {
				t.Errorf("expected bearer header, got %q", got)
			}
			if got := r.Header.Get("Client-Id"); got != "test-client" {
				t.Errorf("expected Client-Id header, got %q", got)
			}
			json.NewEncoder(w).Encode(map[string]any{
				"data": []map[string]string{{"id": "1", "login": "me", "display_name": "Me"}},
			})
		}))
		defer server.Close()

		user, err := newTestClient(server.URL).CurrentUser(context.Background(), "tok")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if user.ID != "1" || user.Login != "me" || user.DisplayName != "Me" {
			t.Errorf("unexpected user: %+v", user)
		}
	})

	t.Run("CurrentUser", func(t *testing.T) {
		t.Run("Empty Token", func(t *testing.T) {
			_, err := newTestClient("http://127.0.0.1:0").CurrentUser(context.Background(), "")
			if !errors.Is(err, shared.ErrNotAuthenticated) {
				t.Errorf("expected ErrNotAuthenticated, got %v", err)
			}
		})

		t.Run("Empty Data", func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(`{"data":[]}`))
			}))
			defer server.Close()

			_, err := newTestClient(server.URL).CurrentUser(context.Background(), "tok")
			if !errors.Is(err, shared.ErrAuthFailed) {
				t.Errorf("expected ErrAuthFailed, got %v", err)
			}
		})
	})

	t.Run("Status Mapping", func(t *testing.T) {
		tests := []struct {
			name   string
			status int
			want   error
		}{
			{"Unauthorized", http.StatusUnauthorized, shared.ErrUnauthorized},
			{"Forbidden", http.StatusForbidden, shared.ErrUnauthorized},
			{"Rate Limited", http.StatusTooManyRequests, shared.ErrRateLimited},
			{"Server Error", http.StatusInternalServerError, shared.ErrAPIRequest},
			{"Bad Request", http.StatusBadRequest, shared.ErrAPIRequest},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
					w.WriteHeader(tt.status)
					w.Write([]byte(`{"error":"x","status":0,"message":"boom"}`))
				}))
				defer server.Close()

				_, err := newTestClient(server.URL).SearchChannels(context.Background(), "tok", "abc", 10)
				if !errors.Is(err, tt.want) {
					t.Errorf("expected %v, got %v", tt.want, err)
				}
			})
		}
	})

	t.Run("Transport Error", func(t *testing.T) {
		c := NewHelixClient(HelixOpts{
			BaseURL:    "http://example.com",
			HTTPClient: &http.Client{Transport: failingTransport{}},
		})

		_, err := c.CurrentUser(context.Background(), "tok")
		if !errors.Is(err, shared.ErrAPIRequest) {
			t.Errorf("expected ErrAPIRequest, got %v", err)
		}
	})

	t.Run("Cancelled Context", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err := newTestClient("http://example.com").CurrentUser(ctx, "tok")
		if !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
	})

	t.Run("FollowedChannels", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/channels/followed" {
				t.Errorf("unexpected path %s", r.URL.Path)
			}
			q := r.URL.Query()
			if q.Get("user_id") != "42" || q.Get("first") != "100" {
				t.Errorf("unexpected query %s", r.URL.RawQuery)
			}
			if q.Get("after") != "cur1" {
				t.Errorf("expected after=cur1, got %q", q.Get("after"))
			}
			w.Write([]byte(`{"data":[{"broadcaster_id":"7","broadcaster_login":"a","broadcaster_name":"A","followed_at":"2024-01-01T00:00:00Z"}],"pagination":{"cursor":"cur2"}}`))
		}))
		defer server.Close()

		page, err := newTestClient(server.URL).FollowedChannels(context.Background(), "tok", "42", "cur1")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if len(page.Data) != 1 || page.Data[0].BroadcasterID != "7" {
			t.Errorf("unexpected data: %+v", page.Data)
		}
		if page.Pagination.Cursor != "cur2" {
			t.Errorf("expected cursor cur2, got %s", page.Pagination.Cursor)
		}
	})

	t.Run("FollowedStreams", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/streams/followed" {
				t.Errorf("unexpected path %s", r.URL.Path)
			}
			if r.URL.Query().Has("after") {
				t.Error("expected no after param on first page")
			}
			w.Write([]byte(`{"data":[{"user_id":"7","user_login":"a","user_name":"A","game_name":"Chess","viewer_count":12,"title":"hi"}],"pagination":{}}`))
		}))
		defer server.Close()

		page, err := newTestClient(server.URL).FollowedStreams(context.Background(), "tok", "42", "")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if len(page.Data) != 1 || page.Data[0].ViewerCount != 12 || page.Data[0].GameName != "Chess" {
			t.Errorf("unexpected data: %+v", page.Data)
		}
		if page.Pagination.Cursor != "" {
			t.Errorf("expected empty cursor, got %s", page.Pagination.Cursor)
		}
	})

	t.Run("UsersByID", func(t *testing.T) {
		t.Run("Repeats id Param", func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				ids := r.URL.Query()["id"]
				if strings.Join(ids, ",") != "1,2" {
					t.Errorf("expected ids 1,2, got %v", ids)
				}
				w.Write([]byte(`{"data":[{"id":"1","login":"a","profile_image_url":"x"},{"id":"2","login":"b"}]}`))
			}))
			defer server.Close()

			users, err := newTestClient(server.URL).UsersByID(context.Background(), "tok", []string{"1", "2"})
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if len(users) != 2 || users[0].ProfileImageURL != "x" {
				t.Errorf("unexpected users: %+v", users)
			}
		})

		t.Run("Empty ids", func(t *testing.T) {
			users, err := newTestClient("http://example.com").UsersByID(context.Background(), "tok", nil)
			if err != nil || users != nil {
				t.Errorf("expected nil, nil; got %v, %v", users, err)
			}
		})

		t.Run("Too Many ids", func(t *testing.T) {
			ids := make([]string, MaxBatch+1)
			_, err := newTestClient("http://example.com").UsersByID(context.Background(), "tok", ids)
			if !errors.Is(err, shared.ErrInvalidArgument) {
				t.Errorf("expected ErrInvalidArgument, got %v", err)
			}
		})
	})

	t.Run("SearchChannels", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			q := r.URL.Query()
			if q.Get("query") != "sh" || q.Get("first") != "10" {
				t.Errorf("unexpected query %s", r.URL.RawQuery)
			}
			w.Write([]byte(`{"data":[{"id":"1","broadcaster_login":"shroud","display_name":"shroud","is_live":true,"game_name":"VALORANT"},{"id":"2","broadcaster_login":"Other"}]}`))
		}))
		defer server.Close()

		results, err := newTestClient(server.URL).SearchChannels(context.Background(), "tok", "sh", 10)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if len(results) != 2 {
			t.Fatalf("expected 2 results, got %d", len(results))
		}
		if !results[0].IsLive || results[0].Channel() != "shroud" {
			t.Errorf("unexpected first result: %+v", results[0])
		}
		if results[1].DisplayName != "Other" {
			t.Errorf("expected display name fallback to login, got %q", results[1].DisplayName)
		}
	})
}

func TestCollectPages(t *testing.T) {
	t.Run("Follows Cursor Until Empty", func(t *testing.T) {
		var seen []string
		fetch := func(ctx context.Context, after string) (*Page[int], error) {
			seen = append(seen, after)
			switch after {
			case "":
				return &Page[int]{Data: []int{1, 2}, Pagination: Pagination{Cursor: "a"}}, nil
			case "a":
				return &Page[int]{Data: []int{3}, Pagination: Pagination{Cursor: "b"}}, nil
			default:
				return &Page[int]{Data: []int{4}}, nil
			}
		}

		all, err := CollectPages(context.Background(), fetch)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if fmt.Sprint(all) != "[1 2 3 4]" {
			t.Errorf("unexpected items %v", all)
		}
		if fmt.Sprint(seen) != "[ a b]" {
			t.Errorf("unexpected cursors %q", seen)
		}
	})

	t.Run("Stops On Error", func(t *testing.T) {
		boom := errors.New("boom")
		_, err := CollectPages(context.Background(), func(ctx context.Context, after string) (*Page[int], error) {
			return nil, boom
		})
		if !errors.Is(err, boom) {
			t.Errorf("expected boom, got %v", err)
		}
	})

	t.Run("Stops On Cancel", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		calls := 0
		_, err := CollectPages(ctx, func(ctx context.Context, after string) (*Page[int], error) {
			calls++
			cancel()
			return &Page[int]{Data: []int{1}, Pagination: Pagination{Cursor: "next"}}, nil
		})
		if !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
		if calls != 1 {
			t.Errorf("expected 1 call, got %d", calls)
		}
	})
}

func TestChunk(t *testing.T) {
	tests := []struct {
		name string
		n    int
		size int
		want []int
	}{
		{"Empty", 0, 100, nil},
		{"Exact", 100, 100, []int{100}},
		{"Remainder", 250, 100, []int{100, 100, 50}},
		{"Zero Size Uses Max", 150, 0, []int{100, 50}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ids := make([]string, tt.n)
			chunks := Chunk(ids, tt.size)
			var sizes []int
			for _, c := range chunks {
				sizes = append(sizes, len(c))
			}
			if fmt.Sprint(sizes) != fmt.Sprint(tt.want) {
				t.Errorf("expected %v, got %v", tt.want, sizes)
			}
		})
	}
}
