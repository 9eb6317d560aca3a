package main

import (
	"context"

	"github.com/urfave/cli/v3"

	"github.com/allisson/gatekeeper/cmd/app/commands"
	"github.com/allisson/gatekeeper/internal/app"
	"github.com/allisson/gatekeeper/internal/config"
)

func getAuditCommands() []*cli.Command {
	return []*cli.Command{
		{
			Name:  "clean-audit-logs",
			Usage: "Delete audit logs older than specified days",
			Flags: []cli.Flag{
				&cli.IntFlag{
					Name:     "days",
					Aliases:  []string{"d"},
					Required: true,
					Usage:    "Delete audit logs older than this many days",
				},
				&cli.BoolFlag{
					Name:    "dry-run",
					Aliases: []string{"n"},
					Value:   false,
					Usage:   "Show how many logs would be deleted without deleting",
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

				chainUseCase, err := container.ChainUseCase()
				if err != nil {
					return err
				}

				return commands.RunCleanAuditLogs(
					ctx,
					chainUseCase,
					container.Logger(),
					commands.DefaultIO().Writer,
					int(cmd.Int("days")),
					cmd.Bool("dry-run"),
					cmd.String("format"),
				)
			},
		},
		{
			Name:  "verify-chain",
			Usage: "Verify hash linkage integrity of an audit chain",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:    "chain-id",
					Aliases: []string{"c"},
					Value:   "",
					Usage:   "Chain to verify (defaults to the global chain)",
				},
				&cli.IntFlag{
					Name:    "limit",
					Aliases: []string{"l"},
					Value:   0,
					Usage:   "Maximum entries to check (0 checks the whole chain)",
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

				chainUseCase, err := container.ChainUseCase()
				if err != nil {
					return err
				}

				return commands.RunVerifyChain(
					ctx,
					chainUseCase,
					container.Logger(),
					commands.DefaultIO().Writer,
					cmd.String("chain-id"),
					int(cmd.Int("limit")),
					cmd.String("format"),
				)
			},
		},
		{
			Name:  "create-checkpoint",
			Usage: "Snapshot an audit chain's latest hash into a signed checkpoint",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:    "chain-id",
					Aliases: []string{"c"},
					Value:   "",
					Usage:   "Chain to checkpoint (defaults to the global chain)",
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

				chainUseCase, err := container.ChainUseCase()
				if err != nil {
					return err
				}

				return commands.RunCreateCheckpoint(
					ctx,
					chainUseCase,
					container.Logger(),
					commands.DefaultIO().Writer,
					cmd.String("chain-id"),
					cmd.String("format"),
				)
			},
		},
	}
}
