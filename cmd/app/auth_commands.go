package main

import (
	"context"

	"github.com/urfave/cli/v3"

	"github.com/allisson/gatekeeper/cmd/app/commands"
	"github.com/allisson/gatekeeper/internal/app"
	"github.com/allisson/gatekeeper/internal/config"
)

func getAuthCommands() []*cli.Command {
	return []*cli.Command{
		{
			Name:  "create-api-key",
			Usage: "Issue a new API key (the token is shown only once)",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:     "name",
					Aliases:  []string{"n"},
					Required: true,
					Usage:    "Human-readable key name",
				},
				&cli.StringFlag{
					Name:  "description",
					Usage: "Optional description",
				},
				&cli.StringFlag{
					Name:  "tenant-id",
					Usage: "Tenant the key belongs to",
				},
				&cli.StringFlag{
					Name:  "org-id",
					Usage: "Organization the key belongs to",
				},
				&cli.StringSliceFlag{
					Name:    "scope",
					Aliases: []string{"s"},
					Usage:   "Scope granted to the key (repeatable)",
				},
				&cli.StringFlag{
					Name:    "format",
					Aliases: []string{"f"},
					Value:   "text",
					Usage:   "Output format: 'text' or 'json'",
				},
			},
			Action: func(ctx context.Context, cmd *cli.Command) error {
				cfg := config.Load()
				container := app.NewContainer(cfg)
				defer func() { _ = container.Shutdown(ctx) }()

				apiKeyUseCase, err := container.APIKeyUseCase()
				if err != nil {
					return err
				}

				return commands.RunCreateAPIKey(
					ctx,
					apiKeyUseCase,
					container.Logger(),
					commands.DefaultIO().Writer,
					cmd.String("name"),
					cmd.String("description"),
					cmd.String("tenant-id"),
					cmd.String("org-id"),
					cmd.StringSlice("scope"),
					cmd.String("format"),
				)
			},
		},
		{
			Name:  "revoke-api-key",
			Usage: "Revoke an API key by id",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:     "id",
					Aliases:  []string{"i"},
					Required: true,
					Usage:    "API key ID (UUID)",
				},
			},
			Action: func(ctx context.Context, cmd *cli.Command) error {
				cfg := config.Load()
				container := app.NewContainer(cfg)
				defer func() { _ = container.Shutdown(ctx) }()

				apiKeyUseCase, err := container.APIKeyUseCase()
				if err != nil {
					return err
				}

				return commands.RunRevokeAPIKey(
					ctx,
					apiKeyUseCase,
					container.Logger(),
					commands.DefaultIO().Writer,
					cmd.String("id"),
				)
			},
		},
	}
}
