// submodule cmd contains command definitions
package main

import (
	"time"

	"github.com/urfave/cli/v3"
)

func configFlag() *cli.StringFlag {
	return &cli.StringFlag{
		Name:    "config",
		Aliases: []string{"c"},
		Usage:   "Path to configuration file",
		Value:   "config.toml",
	}
}

// setupCommand initializes the local database and config file.
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:   "setup",
		Usage:  "Initialize config file, database, and migrations",
		Flags:  []cli.Flag{configFlag()},
		Action: r.Setup,
	}
}

// scrapeCommand collects audio titles from a profile's videos.
func scrapeCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "scrape",
		Usage: "Collect audio titles from a TikTok profile",
		Arguments: []cli.Argument{
			&cli.StringArg{Name: "profile"},
		},
		Flags: []cli.Flag{
			configFlag(),
			&cli.IntFlag{
				Name:  "max-videos",
				Usage: "Maximum number of videos to visit (0 = config default)",
			},
			&cli.StringFlag{
				Name:    "save",
				Aliases: []string{"s"},
				Usage:   "Directory to write raw_songs.json to",
			},
			&cli.BoolFlag{
				Name:  "pretty",
				Usage: "Pretty-print output",
				Value: true,
			},
		},
		Action: r.Scrape,
	}
}

// classifyCommand runs AI classification over collected titles.
func classifyCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "classify",
		Usage: "Classify collected audio titles into songs",
		Flags: []cli.Flag{
			configFlag(),
			&cli.StringFlag{
				Name:    "input",
				Aliases: []string{"i"},
				Usage:   "raw_songs.json file to classify (default: latest cached scrape)",
			},
			&cli.StringFlag{
				Name:    "profile",
				Aliases: []string{"p"},
				Usage:   "Profile whose cached scrape to classify",
			},
			&cli.StringFlag{
				Name:    "save",
				Aliases: []string{"s"},
				Usage:   "Directory to write processed_songs.json and songs.json to",
			},
			&cli.StringFlag{
				Name:  "csv",
				Usage: "Also write a CSV listing to this path",
			},
			&cli.BoolFlag{
				Name:  "pretty",
				Usage: "Pretty-print output",
				Value: true,
			},
		},
		Action: r.Classify,
	}
}

// authCommand manages the Spotify session.
func authCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "auth",
		Usage: "Manage Spotify authorization",
		Commands: []*cli.Command{
			{
				Name:   "login",
				Usage:  "Authorize with Spotify via the browser (PKCE)",
				Flags:  []cli.Flag{configFlag()},
				Action: r.AuthLogin,
			},
			{
				Name:   "status",
				Usage:  "Show the stored session state",
				Flags:  []cli.Flag{configFlag()},
				Action: r.AuthStatus,
			},
			{
				Name:   "logout",
				Usage:  "Clear the stored session",
				Flags:  []cli.Flag{configFlag()},
				Action: r.AuthLogout,
			},
		},
	}
}

// runCommand executes the full pipeline for one profile.
func runCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "run",
		Usage: "Scrape, classify, and sync a profile's songs to Spotify",
		Arguments: []cli.Argument{
			&cli.StringArg{Name: "profile"},
		},
		Flags: []cli.Flag{
			configFlag(),
			&cli.BoolFlag{
				Name:  "sync",
				Usage: "Create the Spotify playlist after classification",
				Value: true,
			},
			&cli.StringFlag{
				Name:  "playlist-name",
				Usage: "Override the default playlist name",
			},
			&cli.BoolFlag{
				Name:  "cached",
				Usage: "Reuse the most recent cached scrape for this profile",
			},
			&cli.BoolFlag{
				Name:  "ui",
				Usage: "Show interactive progress display",
			},
			&cli.StringFlag{
				Name:    "save",
				Aliases: []string{"s"},
				Usage:   "Directory to write JSON exports to",
			},
		},
		Action: r.Run,
	}
}

// syncCommand pushes already-classified songs to a playlist.
func syncCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "sync",
		Usage: "Create a Spotify playlist from a processed_songs.json file",
		Flags: []cli.Flag{
			configFlag(),
			&cli.StringFlag{
				Name:     "input",
				Aliases:  []string{"i"},
				Usage:    "processed_songs.json file to sync",
				Required: true,
			},
			&cli.StringFlag{
				Name:  "playlist-name",
				Usage: "Override the default playlist name",
			},
		},
		Action: r.Sync,
	}
}

// cacheCommand inspects and prunes cached scrape results.
func cacheCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "cache",
		Usage: "Manage cached scrape results",
		Commands: []*cli.Command{
			{
				Name:  "show",
				Usage: "Show the most recent cached scrape for a profile",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "profile"},
				},
				Flags: []cli.Flag{
					configFlag(),
					&cli.BoolFlag{
						Name:  "pretty",
						Usage: "Pretty-print output",
						Value: true,
					},
				},
				Action: r.CacheShow,
			},
			{
				Name:  "prune",
				Usage: "Delete cached scrapes older than the given age",
				Flags: []cli.Flag{
					configFlag(),
					&cli.DurationFlag{
						Name:  "max-age",
						Usage: "Age past which cached scrapes are deleted",
						Value: 7 * 24 * time.Hour,
					},
				},
				Action: r.CachePrune,
			},
		},
	}
}

// serveCommand starts the HTTP wrapper.
func serveCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Serve the scrape and classify pipeline over HTTP",
		Flags: []cli.Flag{
			configFlag(),
			&cli.StringFlag{
				Name:  "host",
				Usage: "Host to bind (overrides config)",
			},
			&cli.IntFlag{
				Name:  "port",
				Usage: "Port to bind (overrides config)",
			},
		},
		Action: r.Serve,
	}
}
