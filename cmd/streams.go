package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/desertthunder/multistream/internal/app"
	"github.com/desertthunder/multistream/internal/formatter"
	"github.com/desertthunder/multistream/internal/shared"
	"github.com/urfave/cli/v3"
)

// withGrid opens the app, loads the persisted grid and runs fn.
func (r *Runner) withGrid(fn func(a *app.App) error) error {
	a, err := r.openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	a.Grid.Load()
	return fn(a)
}

func parseIndex(name, value string) (int, error) {
	if strings.TrimSpace(value) == "" {
		return 0, fmt.Errorf("%w: %s", shared.ErrMissingArgument, name)
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("%w: %s must be a number, got %q", shared.ErrInvalidArgument, name, value)
	}
	return n, nil
}

// StreamsList prints the grid in order.
func (r *Runner) StreamsList(ctx context.Context, cmd *cli.Command) error {
	format, err := outputFormat(cmd)
	if err != nil {
		return err
	}

	return r.withGrid(func(a *app.App) error {
		data, err := formatter.Entries(a.Grid.Entries(), format)
		if err != nil {
			return err
		}
		return r.writeBytes(data)
	})
}

// StreamsAdd appends a channel to the grid.
func (r *Runner) StreamsAdd(ctx context.Context, cmd *cli.Command) error {
	channel := cmd.StringArg("channel")

	return r.withGrid(func(a *app.App) error {
		entry, err := a.Grid.Add(channel)
		if err != nil {
			return err
		}
		r.logger.Debug("stream added", "channel", entry.Channel, "id", entry.ID)
		return r.writePlain("✓ Added %s (id %d)\n", entry.Channel, entry.ID)
	})
}

// StreamsRemove deletes the entry with the given id.
func (r *Runner) StreamsRemove(ctx context.Context, cmd *cli.Command) error {
	raw := cmd.StringArg("id")
	if strings.TrimSpace(raw) == "" {
		return fmt.Errorf("%w: id", shared.ErrMissingArgument)
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return fmt.Errorf("%w: id must be a number, got %q", shared.ErrInvalidArgument, raw)
	}

	return r.withGrid(func(a *app.App) error {
		if !a.Grid.Remove(id) {
			return fmt.Errorf("%w: id %d", shared.ErrEntryNotFound, id)
		}
		return r.writePlain("✓ Removed stream %d\n", id)
	})
}

// StreamsMove moves the entry at position from to position to (zero-based).
func (r *Runner) StreamsMove(ctx context.Context, cmd *cli.Command) error {
	from, err := parseIndex("from", cmd.StringArg("from"))
	if err != nil {
		return err
	}
	to, err := parseIndex("to", cmd.StringArg("to"))
	if err != nil {
		return err
	}

	return r.withGrid(func(a *app.App) error {
		n := a.Grid.Len()
		valid := from >= 0 && to >= 0 && from < n && to < n
		if !valid || (from != to && !a.Grid.Reorder(from, to)) {
			return fmt.Errorf("%w: cannot move %d to %d in a grid of %d", shared.ErrInvalidArgument, from, to, n)
		}
		data, err := formatter.Entries(a.Grid.Entries(), formatter.FormatText)
		if err != nil {
			return err
		}
		return r.writeBytes(data)
	})
}
