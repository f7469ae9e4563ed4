package commands

import (
	"fmt"

	"github.com/urfave/cli/v2"
	"golang.org/x/xerrors"

	"github.com/wormhole-foundation/suigov/upgrade"
)

var ResolveCmd = &cli.Command{
	Name:  "resolve",
	Usage: "Print the package currently referenced by the wormhole state object.",
	Action: func(c *cli.Context) error {
		if err := setupLogging(LogFlags); err != nil {
			return xerrors.Errorf("setup logging: %w", err)
		}
		cfg, err := loadConfig(ConfigFlags)
		if err != nil {
			return err
		}
		state, err := cfg.StateID()
		if err != nil {
			return err
		}

		api, closer, err := openLedger(c.Context, cfg, false)
		if err != nil {
			return err
		}
		defer closer()

		pkg, err := upgrade.NewResolver(api).Resolve(c.Context, state)
		if err != nil {
			return err
		}
		fmt.Fprintln(c.App.Writer, pkg)
		return nil
	},
}
