// submodule cmd contains command definitions
package main

import (
	"strings"

	"github.com/desertthunder/releasedash/internal/formatter"
	"github.com/urfave/cli/v3"
)

func formatFlag() *cli.StringFlag {
	names := make([]string, len(formatter.Formats))
	for i, f := range formatter.Formats {
		names[i] = string(f)
	}

	return &cli.StringFlag{
		Name:    "format",
		Aliases: []string{"f"},
		Usage:   "Output format (" + strings.Join(names, ", ") + ")",
		Value:   string(formatter.Text),
	}
}

func outputFlag() *cli.StringFlag {
	return &cli.StringFlag{
		Name:    "output",
		Aliases: []string{"o"},
		Usage:   "Write to file instead of stdout",
	}
}

// serveCommand runs the web dashboard
func serveCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run the web dashboard",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "host",
				Usage: "Listen host (overrides config)",
			},
			&cli.IntFlag{
				Name:  "port",
				Usage: "Listen port (overrides config)",
			},
			&cli.BoolFlag{
				Name:  "no-banner",
				Usage: "Skip the startup banner",
			},
		},
		Action: r.Serve,
	}
}

// authCommand handles authorization operations
func authCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "auth",
		Usage: "Authorize with the provider",
		Commands: []*cli.Command{
			{
				Name:   "url",
				Usage:  "Print the authorization URL",
				Action: r.AuthURL,
			},
			{
				Name:  "login",
				Usage: "Authorize through the browser with a local callback server",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output token status as JSON",
					},
				},
				Action: r.AuthLogin,
			},
		},
	}
}

// releasesCommand lists new releases
func releasesCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "releases",
		Aliases: []string{"rel"},
		Usage:   "List new releases",
		Flags: []cli.Flag{
			formatFlag(),
			outputFlag(),
			&cli.BoolFlag{
				Name:    "tracks",
				Aliases: []string{"t"},
				Usage:   "Include each album's tracks",
			},
		},
		Action: r.Releases,
	}
}

// tracksCommand lists an album's tracks
func tracksCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "tracks",
		Usage: "List the tracks of an album",
		Arguments: []cli.Argument{
			&cli.StringArg{
				Name: "album-id",
			},
		},
		Flags:  []cli.Flag{formatFlag(), outputFlag()},
		Action: r.Tracks,
	}
}

// tuiCommand returns the top-level TUI command for interactive browsing.
func tuiCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "tui",
		Aliases: []string{"interactive", "ui"},
		Usage:   "Launch the interactive release browser",
		Action:  r.TUI,
	}
}

// configCommand handles configuration files
func configCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "config",
		Usage: "Configuration commands",
		Commands: []*cli.Command{
			{
				Name:  "init",
				Usage: "Write the example configuration",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "path",
						Usage: "Destination path",
						Value: "config.toml",
					},
				},
				Action: r.ConfigInit,
			},
		},
	}
}
