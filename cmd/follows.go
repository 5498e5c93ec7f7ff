package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/desertthunder/multistream/internal/app"
	"github.com/desertthunder/multistream/internal/formatter"
	"github.com/desertthunder/multistream/internal/models"
	"github.com/desertthunder/multistream/internal/shared"
	"github.com/desertthunder/multistream/internal/tasks"
	"github.com/urfave/cli/v3"
)

// withSession opens the app, settles the session from the stored token and runs fn.
func (r *Runner) withSession(ctx context.Context, fn func(a *app.App) error) error {
	a, err := r.openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.Session.Bootstrap(ctx, ""); err != nil {
		r.logger.Warn("stored login is no longer valid", "error", err)
	}
	return fn(a)
}

func directoryTitle(user *models.SessionUser) string {
	if user == nil {
		return "Demo Channels"
	}
	return fmt.Sprintf("%s's Followed Channels", user.DisplayName)
}

// FollowsList prints the followed channels, live first. Anonymous users get the demo list.
func (r *Runner) FollowsList(ctx context.Context, cmd *cli.Command) error {
	format, err := outputFormat(cmd)
	if err != nil {
		return err
	}
	outputDir := cmd.String("output")

	return r.withSession(ctx, func(a *app.App) error {
		user := a.Session.User()
		d := formatter.Directory{Title: directoryTitle(user)}

		if cmd.Bool("cached") {
			channels, err := r.cachedFollows(ctx, a, user)
			if err != nil {
				return err
			}
			d.Live, d.Offline = tasks.SortChannels(channels)
		} else {
			if err := r.refreshDirectory(ctx, a); err != nil {
				return err
			}
			view := a.Directory.View()
			d.Live, d.Offline = view.Live, view.Offline
			if cmd.Bool("all") {
				d.Live, d.Offline = tasks.SortChannels(a.Directory.Channels())
			} else if view.HasMore && format == formatter.FormatText && outputDir == "" {
				defer r.writePlain("… %d more offline (use --all)\n", view.OfflineTotal-len(view.Offline))
			}
		}

		if user == nil {
			r.logger.Warn("not logged in, showing demo channels (run 'multistream auth login')")
		}

		if outputDir != "" {
			result, err := formatter.WriteMarkdownExport(ctx, r.httpClient, d, outputDir, cmd.Bool("avatars"))
			if err != nil {
				return err
			}
			if len(result.Failed) > 0 {
				r.logger.Warn("some avatars could not be saved", "channels", strings.Join(result.Failed, ", "))
			}
			r.writePlain("✓ Exported %d channels to %s\n", len(d.Live)+len(d.Offline), result.Directory)
			for _, f := range result.Files {
				r.writePlain("  %s\n", f)
			}
			return nil
		}

		data, err := formatter.Follows(d, format)
		if err != nil {
			return err
		}
		return r.writeBytes(data)
	})
}

// refreshDirectory runs one directory refresh, logging fetch progress.
func (r *Runner) refreshDirectory(ctx context.Context, a *app.App) error {
	progress := make(chan tasks.ProgressUpdate, 16)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for update := range progress {
			r.logger.Info(update.Message, "phase", update.Phase)
		}
	}()

	a.Directory.SetProgress(progress)
	err := a.Directory.Refresh(ctx)
	a.Directory.SetProgress(nil)
	close(progress)
	<-done

	if err != nil {
		return fmt.Errorf("failed to fetch follows: %w", err)
	}
	return nil
}

func (r *Runner) cachedFollows(ctx context.Context, a *app.App, user *models.SessionUser) ([]models.FollowedChannel, error) {
	if a.Snapshots == nil {
		return nil, fmt.Errorf("%w: set cache.redis_url to use --cached", shared.ErrMissingConfig)
	}
	if user == nil {
		return nil, fmt.Errorf("%w: cached follows are stored per user", shared.ErrNotAuthenticated)
	}

	snap, ok, err := a.Snapshots.Get(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: no cached follows for %s, run 'multistream follows list' first", shared.ErrMissingConfig, user.Login)
	}
	r.logger.Info("using cached follows", "fetched_at", snap.FetchedAt)
	return snap.Channels, nil
}

// Search prints channels matching query.
func (r *Runner) Search(ctx context.Context, cmd *cli.Command) error {
	query := cmd.StringArg("query")
	if strings.TrimSpace(query) == "" {
		return fmt.Errorf("%w: query", shared.ErrMissingArgument)
	}
	format, err := outputFormat(cmd)
	if err != nil {
		return err
	}

	return r.withSession(ctx, func(a *app.App) error {
		results, err := a.Searcher.Search(ctx, query)
		if err != nil {
			return err
		}
		data, err := formatter.Suggestions(results, format)
		if err != nil {
			return err
		}
		return r.writeBytes(data)
	})
}
