package commands

import (
	"errors"

	"github.com/urfave/cli/v2"
	"golang.org/x/xerrors"

	"github.com/wormhole-foundation/suigov/storage"
	"github.com/wormhole-foundation/suigov/upgrade"
)

var migrateFlags struct {
	vaa string
}

var MigrateCmd = &cli.Command{
	Name:  "migrate",
	Usage: "Run the migration of an upgrade that was finalized without it.",
	Description: `Without --vaa the VAA of the last run recorded in the journal for the state
object is used, provided that run stopped between the upgrade and the migration.`,
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:        "vaa",
			Usage:       "Hex signed VAA that authorized the upgrade",
			Destination: &migrateFlags.vaa,
		},
	},
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

		journal, err := openJournal(c.Context, cfg)
		if err != nil {
			return err
		}
		defer func() {
			if err := journal.Close(); err != nil {
				log.Errorw("close journal", "error", err)
			}
		}()

		hexVAA := migrateFlags.vaa
		if hexVAA == "" {
			last, err := journal.Last(c.Context, rcfg.Network.StateID.String())
			if err != nil {
				if errors.Is(err, storage.ErrNoRecord) {
					return xerrors.Errorf("no run of %s in the journal, pass --vaa", rcfg.Network.StateID)
				}
				return err
			}
			if !last.PendingMigration() {
				return xerrors.Errorf("last run %s stopped at %s %s, nothing to migrate", last.RunID, last.Step, last.Status)
			}
			log.Infow("resuming run", "run", last.RunID, "step", last.Step, "status", last.Status)
			hexVAA = last.SignedVAA
		}
		signed, err := decodeVAAHex(hexVAA)
		if err != nil {
			return err
		}

		api, closer, err := openLedger(c.Context, cfg, true)
		if err != nil {
			return err
		}
		defer closer()

		res, err := upgrade.NewRunner(api, journal, rcfg).Migrate(c.Context, signed)
		printResult(c, res)
		return err
	},
	After: shutdownObservability,
}
