// submodule cmd contains command definitions
package main

import (
	"github.com/desertthunder/songdl/internal/sources"
	"github.com/urfave/cli/v3"
)

func configFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "config",
		Aliases: []string{"c"},
		Usage:   "Path to configuration file",
		Value:   "config.toml",
	}
}

func debugFlag() cli.Flag {
	return &cli.BoolFlag{
		Name:  "debug",
		Usage: "Log resolver queries and per-track state changes",
	}
}

// runFlags are shared by every download subcommand.
func runFlags() []cli.Flag {
	return []cli.Flag{
		configFlag(),
		&cli.StringFlag{
			Name:    "output",
			Aliases: []string{"o"},
			Usage:   "Directory for finished files (overrides output.dir)",
		},
		&cli.StringFlag{
			Name:    "quality",
			Aliases: []string{"q"},
			Usage:   "Bitrate in kbps (128, 192, 256, 320) or best",
		},
		&cli.StringFlag{
			Name:  "format",
			Usage: "Audio container (mp3, m4a, opus, flac, wav)",
		},
		&cli.StringFlag{
			Name:  "report",
			Usage: "Write a run report to this file (outside the output directory)",
		},
		&cli.StringFlag{
			Name:  "report-format",
			Usage: "Report format: csv, json, markdown or text (default: from the file extension)",
		},
		&cli.BoolFlag{
			Name:  "tui",
			Usage: "Show the interactive progress view (falls back to plain output without a terminal)",
		},
		&cli.BoolFlag{
			Name:  "no-retry",
			Usage: "Skip the shortened last-resort search",
		},
		&cli.BoolFlag{
			Name:  "no-pacing",
			Usage: "Do not wait between network calls",
		},
		debugFlag(),
	}
}

// downloadCommand fetches audio for every track of a source
func downloadCommand(r *Runner) *cli.Command {
	sub := func(name, usage, arg string, kind sources.Kind, auto bool) *cli.Command {
		return &cli.Command{
			Name:      name,
			Usage:     usage,
			ArgsUsage: "<" + arg + ">",
			Arguments: []cli.Argument{
				&cli.StringArg{Name: "source"},
			},
			Flags:  runFlags(),
			Action: r.Download(kind, auto),
		}
	}

	return &cli.Command{
		Name:    "download",
		Aliases: []string{"dl"},
		Usage:   "Download audio for a list of tracks",
		Commands: []*cli.Command{
			sub("csv", "Read an exported playlist spreadsheet (Track Name, Artist Name, Album Name)", "file.csv", sources.KindCSV, false),
			sub("lines", "Read \"Artist - Title\" lines or media URLs, one per line (- for stdin)", "file|-", sources.KindLines, false),
			sub("playlist", "Download every entry of a YouTube playlist", "url", sources.KindPlaylist, false),
			sub("spotify", "Resolve and download a Spotify playlist, album or track", "url", sources.KindSpotify, false),
			sub("auto", "Detect the source kind from the argument", "file|url", sources.KindLines, true),
		},
	}
}

// resolveCommand runs the tiered search without downloading
func resolveCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:      "resolve",
		Usage:     "Show the search plan and the media URL for an \"Artist - Title\" query",
		ArgsUsage: "<query>",
		Arguments: []cli.Argument{
			&cli.StringArg{Name: "query"},
		},
		Flags: []cli.Flag{
			configFlag(),
			&cli.BoolFlag{
				Name:  "plan",
				Usage: "Print the queries only, without searching",
			},
			&cli.BoolFlag{
				Name:  "no-retry",
				Usage: "Skip the shortened last-resort search",
			},
			debugFlag(),
		},
		Action: r.Resolve,
	}
}

// inspectCommand prints embedded tags
func inspectCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:      "inspect",
		Usage:     "Print the title, artist and album tags of audio files",
		ArgsUsage: "<file>...",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Output raw JSON",
			},
		},
		Action: r.Inspect,
	}
}

// cleanCommand removes stray temp artifacts
func cleanCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "clean",
		Usage: "Remove partial downloads left in the output directory",
		Flags: []cli.Flag{
			configFlag(),
			&cli.StringFlag{
				Name:    "output",
				Aliases: []string{"o"},
				Usage:   "Directory to clean (overrides output.dir)",
			},
			debugFlag(),
		},
		Action: r.Clean,
	}
}

// setupCommand handles configuration and database setup.
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "setup",
		Usage: "Setup and configuration commands",
		Commands: []*cli.Command{
			{
				Name:   "config",
				Usage:  "Write the example configuration file",
				Flags:  []cli.Flag{configFlag()},
				Action: r.SetupConfig,
			},
			{
				Name:  "database",
				Usage: "Create the resolution cache database and run migrations",
				Flags: []cli.Flag{
					configFlag(),
					debugFlag(),
					&cli.BoolFlag{
						Name:  "rollback",
						Usage: "Roll back the most recent migration after opening",
					},
				},
				Action: r.SetupDatabase,
			},
		},
	}
}

// cacheCommand manages the opt-in resolution cache
func cacheCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "cache",
		Usage: "Inspect or clear remembered resolutions and run history",
		Commands: []*cli.Command{
			{
				Name:  "list",
				Usage: "List cached resolutions",
				Flags: []cli.Flag{
					configFlag(),
					&cli.StringFlag{
						Name:  "tier",
						Usage: "Only entries resolved by this tier (official, plain, first_word, degraded)",
					},
					&cli.IntFlag{
						Name:  "limit",
						Usage: "Maximum number of entries to return",
						Value: 50,
					},
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
				},
				Action: r.CacheList,
			},
			{
				Name:  "runs",
				Usage: "Show the per-track results recorded by past runs",
				Flags: []cli.Flag{
					configFlag(),
					&cli.StringFlag{
						Name:  "run-id",
						Usage: "Only results of this run",
					},
					&cli.StringFlag{
						Name:  "outcome",
						Usage: "Only results with this outcome (downloaded, skipped_existing, skipped_no_result, failed)",
					},
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
				},
				Action: r.CacheRuns,
			},
			{
				Name:   "clear",
				Usage:  "Forget every cached resolution",
				Flags:  []cli.Flag{configFlag()},
				Action: r.CacheClear,
			},
		},
	}
}
