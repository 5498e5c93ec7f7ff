package server

import (
	"context"
	"encoding/json"
	"html/template"
	"io"
	"net/http"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/multistream/internal/shared"
)

const (
	CallbackPath = "/callback"
	FragmentPath = "/auth/fragment"

	maxFragmentBytes = 8 << 10
)

// BootstrapFunc settles a session from an implicit-flow redirect fragment.
type BootstrapFunc func(ctx context.Context, fragment string) error

// CallbackHandler completes the implicit grant.
//
// The identity provider redirects the browser to [CallbackPath] with the token in the URL
// fragment, which never reaches the server. The callback page posts the fragment to
// [FragmentPath], strips it from the address bar and continues to Next.
type CallbackHandler struct {
	bootstrap BootstrapFunc
	logger    *log.Logger
	next      string

	results chan error
	once    sync.Once
}

// CallbackOpts configures a [CallbackHandler].
type CallbackOpts struct {
	Bootstrap BootstrapFunc
	Logger    *log.Logger
	Next      string // where the page navigates after a successful login; empty shows a close-this-tab message
}

// NewCallbackHandler creates a handler that passes posted fragments to opts.Bootstrap.
func NewCallbackHandler(opts CallbackOpts) *CallbackHandler {
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	return &CallbackHandler{
		bootstrap: opts.Bootstrap,
		logger:    opts.Logger,
		next:      opts.Next,
		results:   make(chan error, 1),
	}
}

// Routes returns the HTTP routes this handler serves.
func (h *CallbackHandler) Routes() []string {
	return []string{CallbackPath, FragmentPath}
}

type fragmentRequest struct {
	Fragment string `json:"fragment"`
}

type fragmentResponse struct {
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
}

func (h *CallbackHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch {
	case r.URL.Path == CallbackPath && (r.Method == http.MethodGet || r.Method == http.MethodHead):
		h.servePage(w)
	case r.URL.Path == FragmentPath && r.Method == http.MethodPost:
		h.serveFragment(w, r)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *CallbackHandler) servePage(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	if err := callbackPage.Execute(w, struct{ Next, FragmentPath string }{h.next, FragmentPath}); err != nil {
		h.logger.Error("render callback page", "error", err)
	}
}

func (h *CallbackHandler) serveFragment(w http.ResponseWriter, r *http.Request) {
	var req fragmentRequest
	body, err := io.ReadAll(io.LimitReader(r.Body, maxFragmentBytes))
	if err == nil {
		err = json.Unmarshal(body, &req)
	}
	if err != nil {
		writeFragmentResponse(w, http.StatusBadRequest, fragmentResponse{Error: "malformed request"})
		return
	}

	err = h.bootstrap(r.Context(), req.Fragment)
	h.Send(err)
	if err != nil {
		h.logger.Warn("login callback failed", "error", err)
		writeFragmentResponse(w, http.StatusUnauthorized, fragmentResponse{Error: err.Error()})
		return
	}
	writeFragmentResponse(w, http.StatusOK, fragmentResponse{OK: true})
}

func writeFragmentResponse(w http.ResponseWriter, status int, resp fragmentResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(resp)
}

// Send records the outcome of the first posted fragment.
func (h *CallbackHandler) Send(err error) {
	h.once.Do(func() {
		h.results <- err
		close(h.results)
	})
}

// Result receives the outcome of the first posted fragment, then closes.
func (h *CallbackHandler) Result() <-chan error {
	return h.results
}

var callbackPage = template.Must(template.New("callback").Parse(`<!DOCTYPE html>
<html>
<head>
    <meta charset="utf-8">
    <title>Signing in…</title>
    <style>
        body { font-family: -apple-system, BlinkMacSystemFont, "Segoe UI", Roboto, sans-serif;
               display: flex; align-items: center; justify-content: center; height: 100vh;
               margin: 0; background: #0e0e10; color: #efeff1; }
        .container { text-align: center; background: #18181b; padding: 2rem; border-radius: 8px; }
        h1 { color: #9146ff; margin: 0 0 1rem 0; }
        p { color: #adadb8; margin: 0; }
    </style>
</head>
<body>
    <div class="container">
        <h1 id="title">Signing in…</h1>
        <p id="detail"></p>
    </div>
    <script>
    (function () {
        var fragment = window.location.hash;
        history.replaceState(null, "", window.location.pathname);
        var next = {{.Next}};
        fetch({{.FragmentPath}}, {
            method: "POST",
            headers: { "Content-Type": "application/json" },
            body: JSON.stringify({ fragment: fragment })
        })
        .then(function (r) { return r.json(); })
        .then(function (res) {
            if (!res.ok) {
                alert("Login failed: " + res.error);
            }
            if (next) {
                window.location.replace(next);
                return;
            }
            document.getElementById("title").textContent = res.ok ? "✓ Signed in" : "Login failed";
            document.getElementById("detail").textContent = "You can close this window and return to the terminal.";
        });
    })();
    </script>
</body>
</html>
`))
