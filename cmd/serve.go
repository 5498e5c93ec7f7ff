package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/desertthunder/multistream/internal/shared"
	"github.com/desertthunder/multistream/internal/web"
	"github.com/urfave/cli/v3"
)

// Serve runs the web view until interrupted.
func (r *Runner) Serve(ctx context.Context, cmd *cli.Command) error {
	if port := cmd.Int("port"); port > 0 {
		r.config.Server.Port = int(port)
	}
	if host := cmd.String("host"); host != "" {
		r.config.Server.Host = host
	}

	a, err := r.openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	a.Start(ctx)

	srv := web.New(web.Opts{App: a, Logger: shared.WithLogger(r.logger, "component", "web")})
	defer srv.Close()

	addr := r.config.Server.Addr()
	r.writePlain("→ Serving on http://%s (Ctrl+C to stop)\n", addr)
	if err := srv.ListenAndServe(ctx, addr); err != nil {
		return fmt.Errorf("%w: %w", shared.ErrServiceUnavailable, err)
	}
	return nil
}
