// submodule cmd contains command definitions
package main

import "github.com/urfave/cli/v3"

func configFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "config",
		Aliases: []string{"c"},
		Usage:   "Path to configuration file",
		Value:   "config.toml",
	}
}

func formatFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "format",
			Aliases: []string{"f"},
			Usage:   "Output format (text, csv, md, json)",
			Value:   "text",
		},
		&cli.BoolFlag{
			Name:  "json",
			Usage: "Output JSON (same as --format json)",
		},
	}
}

// setupCommand writes the configuration file and initializes the database.
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:   "setup",
		Usage:  "Create config.toml, initialize the database and run migrations",
		Flags:  []cli.Flag{configFlag()},
		Action: r.Setup,
	}
}

// serveCommand runs the web view.
func serveCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Serve the multi-stream web view",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "port",
				Aliases: []string{"p"},
				Usage:   "Port to listen on (default from config)",
			},
			&cli.StringFlag{
				Name:  "host",
				Usage: "Host to bind (default from config)",
			},
		},
		Action: r.Serve,
	}
}

// tuiCommand runs the terminal view.
func tuiCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:   "tui",
		Usage:  "Launch the interactive terminal UI",
		Action: r.TUI,
	}
}

// streamsCommand edits the persisted stream grid.
func streamsCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "streams",
		Aliases: []string{"grid"},
		Usage:   "Manage the streams in the grid",
		Commands: []*cli.Command{
			{
				Name:   "list",
				Usage:  "List the streams in grid order",
				Flags:  formatFlags(),
				Action: r.StreamsList,
			},
			{
				Name:      "add",
				Usage:     "Add a channel to the grid",
				ArgsUsage: "<channel>",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "channel"},
				},
				Action: r.StreamsAdd,
			},
			{
				Name:      "remove",
				Aliases:   []string{"rm"},
				Usage:     "Remove a stream by id",
				ArgsUsage: "<id>",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "id"},
				},
				Action: r.StreamsRemove,
			},
			{
				Name:      "move",
				Aliases:   []string{"mv"},
				Usage:     "Move the stream at one position to another",
				ArgsUsage: "<from> <to>",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "from"},
					&cli.StringArg{Name: "to"},
				},
				Action: r.StreamsMove,
			},
		},
	}
}

// followsCommand lists followed channels.
func followsCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "follows",
		Usage: "Followed channel operations",
		Commands: []*cli.Command{
			{
				Name:  "list",
				Usage: "List followed channels, live first",
				Flags: append(formatFlags(),
					&cli.BoolFlag{
						Name:    "all",
						Aliases: []string{"a"},
						Usage:   "Include every offline channel instead of the first page",
					},
					&cli.BoolFlag{
						Name:  "cached",
						Usage: "Read the last snapshot from the redis cache instead of Twitch",
					},
					&cli.StringFlag{
						Name:    "output",
						Aliases: []string{"o"},
						Usage:   "Write a Markdown export to this directory",
					},
					&cli.BoolFlag{
						Name:  "avatars",
						Usage: "Download profile images with --output",
					},
				),
				Action: r.FollowsList,
			},
		},
	}
}

// searchCommand looks up channels by name.
func searchCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:      "search",
		Usage:     "Search Twitch channels",
		ArgsUsage: "<query>",
		Arguments: []cli.Argument{
			&cli.StringArg{Name: "query"},
		},
		Flags:  formatFlags(),
		Action: r.Search,
	}
}

// authCommand handles Twitch login.
func authCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "auth",
		Usage: "Twitch authentication",
		Commands: []*cli.Command{
			{
				Name:   "login",
				Usage:  "Log in with Twitch in the browser",
				Action: r.AuthLogin,
			},
			{
				Name:   "logout",
				Usage:  "Discard the stored access token",
				Action: r.AuthLogout,
			},
			{
				Name:  "status",
				Usage: "Show the logged in user",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output JSON",
					},
				},
				Action: r.AuthStatus,
			},
		},
	}
}
