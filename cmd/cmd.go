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

// setupCommand initializes the database and configuration.
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "setup",
		Usage: "Initialize the database and configuration",
		Flags: []cli.Flag{
			configFlag(),
			&cli.BoolFlag{
				Name:  "rollback",
				Usage: "Roll back the most recent migration instead of migrating up",
			},
		},
		Action: r.SetupDatabase,
	}
}

// serveCommand starts the HTTP API server.
func serveCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "serve",
		Aliases: []string{"s"},
		Usage:   "Start the HTTP API server",
		Flags: []cli.Flag{
			configFlag(),
			&cli.StringFlag{
				Name:  "addr",
				Usage: "Listen address, overrides the configured host and port",
			},
			&cli.BoolFlag{
				Name:  "memory",
				Usage: "Use an in-memory user store instead of SQLite",
			},
		},
		Action: r.Serve,
	}
}

// sessionCommand manages the locally cached login session.
func sessionCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "session",
		Aliases: []string{"sess"},
		Usage:   "Manage the cached login session",
		Commands: []*cli.Command{
			{
				Name:  "show",
				Usage: "Show the cached session state",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
				},
				Action: r.SessionShow,
			},
			{
				Name:  "import",
				Usage: "Import a session from a login redirect URL",
				Arguments: []cli.Argument{
					&cli.StringArg{
						Name: "url",
					},
				},
				Action: r.SessionImport,
			},
			{
				Name:   "clear",
				Usage:  "Forget the cached session",
				Action: r.SessionClear,
			},
			{
				Name:  "login",
				Usage: "Open the login page in a browser",
				Flags: []cli.Flag{
					configFlag(),
				},
				Action: r.SessionLogin,
			},
		},
	}
}

// configCommand manages configuration files.
func configCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "config",
		Usage: "Configuration file operations",
		Commands: []*cli.Command{
			{
				Name:  "init",
				Usage: "Create a configuration file from the bundled template",
				Flags: []cli.Flag{
					configFlag(),
				},
				Action: r.ConfigInit,
			},
			{
				Name:  "show",
				Usage: "Print the effective configuration",
				Flags: []cli.Flag{
					configFlag(),
					&cli.BoolFlag{
						Name:  "pretty",
						Usage: "Pretty-print output",
					},
				},
				Action: r.ConfigShow,
			},
		},
	}
}
