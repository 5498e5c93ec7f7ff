package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/desertthunder/multistream/internal/app"
	"github.com/desertthunder/multistream/internal/server"
	"github.com/desertthunder/multistream/internal/shared"
	"github.com/urfave/cli/v3"
)

// AuthLogin runs the implicit-flow login in the browser.
//
// Starts a local HTTP server for the redirect, opens the authorization URL and waits for the
// callback page to post the token fragment back.
func (r *Runner) AuthLogin(ctx context.Context, cmd *cli.Command) error {
	a, err := r.openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	if err := r.doLogin(ctx, a); err != nil {
		return err
	}

	user := a.Session.User()
	if user == nil {
		return fmt.Errorf("%w: no user resolved", shared.ErrAuthFailed)
	}
	return r.writePlain("✓ Logged in as %s (%s)\n", user.DisplayName, user.Login)
}

func (r *Runner) doLogin(ctx context.Context, a *app.App) error {
	callback := server.NewCallbackHandler(server.CallbackOpts{
		Bootstrap: a.Session.Bootstrap,
		Logger:    shared.WithLogger(r.logger, "component", "callback"),
	})
	router := server.NewBasicRouter(server.Recover(r.logger), server.Logging(r.logger))
	router.Handler(callback)

	serverAddr := r.config.Server.Addr()
	ln, err := net.Listen("tcp", serverAddr)
	if err != nil {
		return fmt.Errorf("%w: cannot listen on %s: %w", shared.ErrServiceUnavailable, serverAddr, err)
	}
	httpServer := &http.Server{
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErrors := make(chan error, 1)
	go func() {
		r.logger.Infof("starting login server at %v", serverAddr)
		if err := httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErrors <- err
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			r.logger.Warn("error shutting down server", "error", err)
		}
	}()

	authURL := a.Session.BeginLogin()
	r.writePlain("→ Opening browser for Twitch login...\n")
	if err := r.browser(authURL); err != nil {
		r.logger.Warnf("failed to open browser automatically %v", err)
		r.writePlainln("⚠ Could not open browser automatically.")
		r.writePlain("Please open this URL in your browser:\n%s\n\n", authURL)
	}

	r.writePlain("→ Waiting for authorization (%v timeout)...\n", r.loginTimeout)

	timeout := time.NewTimer(r.loginTimeout)
	defer timeout.Stop()

	select {
	case err := <-callback.Result():
		if err != nil {
			return fmt.Errorf("authorization failed: %w", err)
		}
		return nil
	case err := <-serverErrors:
		return fmt.Errorf("server error: %w", err)
	case <-timeout.C:
		return fmt.Errorf("%w: authorization timed out after %v", shared.ErrTimeout, r.loginTimeout)
	case <-ctx.Done():
		return ctx.Err()
	}
}

// AuthLogout discards the stored token.
func (r *Runner) AuthLogout(ctx context.Context, cmd *cli.Command) error {
	a, err := r.openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	a.Session.Logout()
	return r.writePlain("✓ Logged out\n")
}

type authStatus struct {
	Authenticated bool   `json:"authenticated"`
	Login         string `json:"login,omitempty"`
	DisplayName   string `json:"display_name,omitempty"`
	UserID        string `json:"user_id,omitempty"`
	ClientID      string `json:"client_id"`
}

// AuthStatus validates the stored token against Twitch and reports the user.
func (r *Runner) AuthStatus(ctx context.Context, cmd *cli.Command) error {
	return r.withSession(ctx, func(a *app.App) error {
		status := authStatus{ClientID: r.config.Twitch.ClientID}
		if user := a.Session.User(); user != nil && a.Session.Authenticated() {
			status.Authenticated = true
			status.Login = user.Login
			status.DisplayName = user.DisplayName
			status.UserID = user.ID
		}

		if cmd.Bool("json") {
			return r.writeJSON(status, true)
		}

		r.writePlainHeader("Twitch")
		if status.Authenticated {
			r.writePlain("Authentication: ✓ Logged in as %s (%s)\n", status.DisplayName, status.Login)
		} else {
			r.writePlain("Authentication: ✗ Not logged in\n")
		}
		return r.writePlain("Client ID: %s\n", status.ClientID)
	})
}
