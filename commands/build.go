package commands

import (
	"encoding/hex"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/urfave/cli/v2"
	"golang.org/x/xerrors"
)

var buildFlags struct {
	path string
}

var BuildCmd = &cli.Command{
	Name:  "build",
	Usage: "Build the move package and print the digest a governance VAA must authorize.",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:        "package",
			Usage:       "Path of the move package, Package.Path when empty",
			Destination: &buildFlags.path,
		},
	},
	Action: func(c *cli.Context) error {
		if err := setupLogging(LogFlags); err != nil {
			return xerrors.Errorf("setup logging: %w", err)
		}
		cfg, err := loadConfig(ConfigFlags)
		if err != nil {
			return err
		}
		a, err := buildPackage(c.Context, cfg, buildFlags.path)
		if err != nil {
			return err
		}

		tw := tabwriter.NewWriter(os.Stdout, 2, 4, 2, ' ', 0)
		fmt.Fprintf(tw, "digest\t%s\n", hex.EncodeToString(a.Digest[:]))
		fmt.Fprintf(tw, "modules\t%d\n", len(a.Modules))
		for _, d := range a.Dependencies {
			fmt.Fprintf(tw, "dependency\t%s\n", d)
		}
		return tw.Flush()
	},
}
