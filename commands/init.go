package commands

import (
	"os"
	"path/filepath"

	"github.com/mitchellh/go-homedir"
	"github.com/urfave/cli/v2"
	"golang.org/x/xerrors"

	"github.com/wormhole-foundation/suigov/config"
)

var InitCmd = &cli.Command{
	Name:  "init",
	Usage: "Write a config file documenting the defaults.",
	Action: func(c *cli.Context) error {
		if err := setupLogging(LogFlags); err != nil {
			return xerrors.Errorf("setup logging: %w", err)
		}

		path, err := homedir.Expand(ConfigFlags.Path)
		if err != nil {
			return xerrors.Errorf("expand config path: %w", err)
		}
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return xerrors.Errorf("create config dir: %w", err)
		}
		if err := config.EnsureExists(path); err != nil {
			return xerrors.Errorf("ensuring config is present at %q: %w", path, err)
		}
		log.Infof("config at %s", path)
		return nil
	},
}
