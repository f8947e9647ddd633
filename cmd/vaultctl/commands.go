package main

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/dmitrymomot/lifevault/app/vault"
	"github.com/dmitrymomot/lifevault/core/authenticator"
	"github.com/dmitrymomot/lifevault/core/config"
	"github.com/dmitrymomot/lifevault/core/logger"
	"github.com/dmitrymomot/lifevault/core/vaultpin"
	"github.com/dmitrymomot/lifevault/integration/database/pg"
	"github.com/dmitrymomot/lifevault/pkg/hasher"
	"github.com/dmitrymomot/lifevault/pkg/secrets"
	"github.com/dmitrymomot/lifevault/pkg/totp"
)

func newRootCommand(out io.Writer) *cli.Command {
	return &cli.Command{
		Name:    "vaultctl",
		Usage:   "operate the vault sign-in services",
		Version: version,
		Commands: []*cli.Command{
			totpCommand(out),
			keygenCommand(out),
			pinHashCommand(out),
			migrateCommand(out),
			serveCommand(),
		},
	}
}

func totpFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:     "secret",
			Aliases:  []string{"s"},
			Usage:    "base32 shared secret",
			Sources:  cli.EnvVars("TOTP_SECRET"),
			Required: true,
		},
		&cli.IntFlag{Name: "digits", Value: totp.DefaultDigits, Usage: "code length (6-8)"},
		&cli.IntFlag{Name: "period", Value: totp.DefaultPeriod, Usage: "time step in seconds"},
		&cli.StringFlag{Name: "algorithm", Value: string(totp.AlgorithmSHA1), Usage: "SHA1, SHA256 or SHA512"},
	}
}

func totpParams(cmd *cli.Command) (totp.Params, error) {
	alg, err := totp.ParseAlgorithm(cmd.String("algorithm"))
	if err != nil {
		return totp.Params{}, err
	}
	p := totp.Params{
		Digits:    int(cmd.Int("digits")),
		Period:    int(cmd.Int("period")),
		Algorithm: alg,
	}
	return p, p.Validate()
}

func totpCommand(out io.Writer) *cli.Command {
	return &cli.Command{
		Name:  "totp",
		Usage: "authenticator code helpers",
		Commands: []*cli.Command{
			{
				Name:  "code",
				Usage: "print the current code for a secret",
				Flags: totpFlags(),
				Action: func(_ context.Context, cmd *cli.Command) error {
					return printCode(out, cmd, time.Now())
				},
			},
			{
				Name:  "verify",
				Usage: "check a code against a secret, allowing one step of clock drift",
				Flags: append(totpFlags(), &cli.StringFlag{Name: "code", Required: true, Usage: "code to check"}),
				Action: func(_ context.Context, cmd *cli.Command) error {
					p, err := totpParams(cmd)
					if err != nil {
						return err
					}
					secret, err := totp.DecodeSecret(cmd.String("secret"))
					if err != nil {
						return err
					}
					if !totp.Validate(secret, cmd.String("code"), p, time.Now(), totp.DefaultSkew) {
						return errors.New("code does not match")
					}
					fmt.Fprintln(out, "ok")
					return nil
				},
			},
			{
				Name:  "enroll",
				Usage: "generate a secret, its otpauth URI and a QR code",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "issuer", Value: "LifeVault", Usage: "issuer shown in the authenticator app"},
					&cli.StringFlag{Name: "account", Required: true, Usage: "account label, usually the email"},
					&cli.StringFlag{Name: "qr", Usage: "write the QR code PNG to this path"},
				},
				Action: func(_ context.Context, cmd *cli.Command) error {
					e, err := authenticator.Enroll(cmd.String("issuer"), cmd.String("account"), totp.DefaultParams())
					if err != nil {
						return err
					}
					fmt.Fprintf(out, "secret: %s\nuri:    %s\n", e.Secret, e.URI)

					if path := cmd.String("qr"); path != "" {
						if err := os.WriteFile(path, e.QRCode, 0o600); err != nil {
							return fmt.Errorf("write qr code: %w", err)
						}
						fmt.Fprintf(out, "qr:     %s\n", path)
					}
					return nil
				},
			},
		},
	}
}

func printCode(out io.Writer, cmd *cli.Command, at time.Time) error {
	p, err := totpParams(cmd)
	if err != nil {
		return err
	}
	secret, err := totp.DecodeSecret(cmd.String("secret"))
	if err != nil {
		return err
	}
	code, err := totp.Generate(secret, p, at)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "%s (%ds left)\n", code, totp.RemainingSeconds(p.Period, at))
	return nil
}

func keygenCommand(out io.Writer) *cli.Command {
	return &cli.Command{
		Name:  "keygen",
		Usage: "generate a SECRETS_APP_KEY value",
		Action: func(_ context.Context, _ *cli.Command) error {
			key, err := secrets.GenerateKey()
			if err != nil {
				return err
			}
			fmt.Fprintln(out, hex.EncodeToString(key))
			return nil
		},
	}
}

func pinHashCommand(out io.Writer) *cli.Command {
	return &cli.Command{
		Name:      "pin-hash",
		Usage:     "hash a vault PIN for seeding a PIN record",
		ArgsUsage: "<pin>",
		Action: func(_ context.Context, cmd *cli.Command) error {
			pin := strings.TrimSpace(cmd.Args().First())
			if err := vaultpin.ValidatePin(pin); err != nil {
				return err
			}
			h, err := hasher.New(hasher.DefaultParams())
			if err != nil {
				return err
			}
			hash, err := h.Hash(pin)
			if err != nil {
				return err
			}
			fmt.Fprintln(out, hash)
			return nil
		},
	}
}

func migrateCommand(out io.Writer) *cli.Command {
	return &cli.Command{
		Name:  "migrate",
		Usage: "apply database migrations (PG_CONN_URL)",
		Action: func(ctx context.Context, _ *cli.Command) error {
			var cfg pg.Config
			if err := config.Load(&cfg); err != nil {
				return err
			}
			pool, err := pg.Connect(ctx, cfg)
			if err != nil {
				return err
			}
			defer pool.Close()

			if err := pg.Migrate(ctx, pool, cfg, logger.New(logger.WithOutput(out))); err != nil {
				return err
			}
			fmt.Fprintln(out, "migrations applied")
			return nil
		},
	}
}

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "start the vault services and run background jobs until interrupted",
		Action: func(ctx context.Context, _ *cli.Command) error {
			app, err := vault.NewApp(ctx)
			if err != nil {
				return err
			}
			defer app.Close()

			if err := app.Healthcheck(ctx); err != nil {
				return err
			}
			return app.Run(ctx)
		},
	}
}
