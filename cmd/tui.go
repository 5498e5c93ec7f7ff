package main

import (
	"context"
	"fmt"

	"github.com/desertthunder/multistream/internal/shared"
	"github.com/desertthunder/multistream/internal/ui"
	"github.com/urfave/cli/v3"
)

// TUI launches the interactive terminal UI.
func (r *Runner) TUI(ctx context.Context, cmd *cli.Command) error {
	// Redirect logs to file to avoid interfering with TUI rendering
	fileLogger, err := shared.NewFileLogger("./tmp/multistream-tui.log")
	if err != nil {
		return fmt.Errorf("failed to create file logger: %w", err)
	}
	r.SetLogger(fileLogger)

	a, err := r.openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	a.Start(ctx)
	return ui.Run(ctx, a)
}
