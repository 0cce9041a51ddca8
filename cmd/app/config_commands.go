package main

import (
	"context"

	"github.com/urfave/cli/v3"

	"github.com/allisson/txgateway/cmd/app/commands"
	"github.com/allisson/txgateway/internal/app"
	"github.com/allisson/txgateway/internal/config"
)

func getConfigCommands() []*cli.Command {
	return []*cli.Command{
		{
			Name:  "seed-config",
			Usage: "Validate configuration documents and write them to the cache",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:  "api",
					Usage: "JSON file with transaction request settings",
				},
				&cli.StringFlag{
					Name:  "services",
					Usage: "JSON file with backend service definitions",
				},
				&cli.StringFlag{
					Name:  "config",
					Usage: "JSON file with general settings (data sources, first login, OTP)",
				},
				&cli.StringFlag{
					Name:  "code",
					Usage: "JSON file with response code mappings",
				},
				&cli.StringFlag{
					Name:    "whitelist",
					Aliases: []string{"w"},
					Usage:   "Comma separated usernames allowed to log in (replaces the current set)",
				},
			},
			Action: func(ctx context.Context, cmd *cli.Command) error {
				cfg := config.Load()
				container := app.NewContainer(cfg)
				defer func() { _ = container.Shutdown(ctx) }()

				seedUseCase, err := container.SeedUseCase()
				if err != nil {
					return err
				}

				return commands.RunSeedConfig(
					ctx,
					seedUseCase,
					container.Logger(),
					commands.DefaultIO().Writer,
					commands.SeedFiles{
						API:      cmd.String("api"),
						Services: cmd.String("services"),
						Config:   cmd.String("config"),
						Code:     cmd.String("code"),
					},
					cmd.String("whitelist"),
				)
			},
		},
	}
}
