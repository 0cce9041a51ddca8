package main

import (
	"context"

	"github.com/urfave/cli/v3"

	"github.com/allisson/txgateway/cmd/app/commands"
	"github.com/allisson/txgateway/internal/app"
	"github.com/allisson/txgateway/internal/config"
	cryptoService "github.com/allisson/txgateway/internal/crypto/service"
)

func getKeyCommands() []*cli.Command {
	return []*cli.Command{
		{
			Name:  "wrap-secret",
			Usage: "Encrypt a secret with KMS for use in *_SECRET variables",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:    "name",
					Aliases: []string{"n"},
					Value:   "SECRET",
					Usage:   "Environment variable name to print (e.g., JWT_SECRET)",
				},
				&cli.StringFlag{
					Name:     "value",
					Required: true,
					Usage:    "Plaintext secret to wrap",
				},
				&cli.StringFlag{
					Name:     "kms-provider",
					Required: true,
					Usage:    "KMS provider (localsecrets, gcpkms, awskms, azurekeyvault, hashivault)",
				},
				&cli.StringFlag{
					Name:     "kms-key-uri",
					Required: true,
					Usage:    "KMS key URI (e.g., base64key://, gcpkms://projects/.../cryptoKeys/...)",
				},
			},
			Action: func(ctx context.Context, cmd *cli.Command) error {
				cfg := config.Load()
				container := app.NewContainer(cfg)
				defer func() { _ = container.Shutdown(ctx) }()

				return commands.RunWrapSecret(
					ctx,
					cryptoService.NewKMSService(),
					container.Logger(),
					commands.DefaultIO().Writer,
					cmd.String("name"),
					cmd.String("value"),
					cmd.String("kms-provider"),
					cmd.String("kms-key-uri"),
				)
			},
		},
		{
			Name:  "generate-keypair",
			Usage: "Generate the RSA key pair used to open client envelopes",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:    "out",
					Aliases: []string{"o"},
					Value:   "keys",
					Usage:   "Output directory",
				},
				&cli.IntFlag{
					Name:    "bits",
					Aliases: []string{"b"},
					Value:   2048,
					Usage:   "RSA modulus size",
				},
				&cli.StringFlag{
					Name:     "passphrase",
					Aliases:  []string{"p"},
					Required: true,
					Usage:    "Passphrase protecting the private key",
				},
				&cli.BoolFlag{
					Name:  "force",
					Usage: "Replace existing key files",
				},
			},
			Action: func(ctx context.Context, cmd *cli.Command) error {
				cfg := config.Load()
				container := app.NewContainer(cfg)
				defer func() { _ = container.Shutdown(ctx) }()

				return commands.RunGenerateKeyPair(
					container.Logger(),
					commands.DefaultIO().Writer,
					cmd.String("out"),
					int(cmd.Int("bits")),
					cmd.String("passphrase"),
					cmd.Bool("force"),
				)
			},
		},
	}
}
