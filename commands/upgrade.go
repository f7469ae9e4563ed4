package commands

import (
	"context"
	"encoding/hex"

	"github.com/urfave/cli/v2"
	tracesdk "go.opentelemetry.io/otel/sdk/trace"
	"golang.org/x/xerrors"

	"github.com/wormhole-foundation/suigov/upgrade"
)

var upgradeFlags struct {
	envelope EnvelopeOpts
	vaa      string
	path     string
	dryRun   bool
}

var UpgradeCmd = &cli.Command{
	Name:  "upgrade",
	Usage: "Upgrade the wormhole package under a governance VAA and run its migration.",
	Description: `The package is built and authorized by the VAA given with --vaa, or by a VAA
signed on the spot with the guardian keys in $TESTNET_GUARDIAN_PRIVATE_KEY.
Transactions are paid for by the account in $TESTNET_WALLET_PRIVATE_KEY.

Every step is recorded in the journal; a run interrupted after the upgrade was
finalized is finished with the migrate command.`,
	Flags: append(envelopeFlags(&upgradeFlags.envelope),
		&cli.StringFlag{
			Name:        "vaa",
			Usage:       "Hex signed VAA authorizing the upgrade",
			Destination: &upgradeFlags.vaa,
		},
		&cli.StringFlag{
			Name:        "package",
			Usage:       "Path of the move package, Package.Path when empty",
			Destination: &upgradeFlags.path,
		},
		&cli.BoolFlag{
			Name:        "dry-run",
			Usage:       "Compose and simulate the upgrade without submitting it",
			Destination: &upgradeFlags.dryRun,
		},
	),
	Before: setupObservability,
	Action: func(c *cli.Context) error {
		cfg, err := loadConfig(ConfigFlags)
		if err != nil {
			return err
		}
		rcfg, err := runnerConfig(cfg)
		if err != nil {
			return err
		}

		artifact, err := buildPackage(c.Context, cfg, upgradeFlags.path)
		if err != nil {
			return err
		}

		var signed []byte
		if upgradeFlags.vaa != "" {
			signed, err = decodeVAAHex(upgradeFlags.vaa)
		} else {
			signed, err = governanceVAA(cfg, upgradeFlags.envelope, artifact.Digest[:])
		}
		if err != nil {
			return err
		}
		log.Infow("upgrade vaa", "run", upgrade.RunID(signed), "vaa", hex.EncodeToString(signed))

		api, closer, err := openLedger(c.Context, cfg, true)
		if err != nil {
			return err
		}
		defer closer()

		journal, err := openJournal(c.Context, cfg)
		if err != nil {
			return err
		}
		defer func() {
			if err := journal.Close(); err != nil {
				log.Errorw("close journal", "error", err)
			}
		}()

		res, err := upgrade.NewRunner(api, journal, rcfg).Upgrade(c.Context, upgrade.Request{
			Artifact:  artifact,
			SignedVAA: signed,
			DryRun:    upgradeFlags.dryRun,
		})
		printResult(c, res)
		if err != nil {
			return err
		}
		if upgradeFlags.dryRun && res.UpgradeTx != nil {
			log.Infow("dry run", "commands", res.UpgradeTx.CommandNames())
		}
		return nil
	},
	After: shutdownObservability,
}

var tracerProvider *tracesdk.TracerProvider

// setupObservability is the Before hook of commands that talk to the ledger.
func setupObservability(c *cli.Context) error {
	if err := setupLogging(LogFlags); err != nil {
		return xerrors.Errorf("setup logging: %w", err)
	}
	if err := setupMetrics(MetricFlags); err != nil {
		return xerrors.Errorf("setup metrics: %w", err)
	}
	tp, err := setupTracing(TracingFlags)
	if err != nil {
		return err
	}
	tracerProvider = tp
	return nil
}

func shutdownObservability(c *cli.Context) error {
	if tracerProvider == nil {
		return nil
	}
	if err := tracerProvider.Shutdown(context.Background()); err != nil {
		log.Errorw("shutdown tracing", "error", err)
	}
	return nil
}
