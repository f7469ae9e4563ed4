package commands

import (
	"encoding/hex"
	"fmt"

	"github.com/urfave/cli/v2"
	"golang.org/x/xerrors"
)

var signFlags struct {
	envelope EnvelopeOpts
	digest   string
	path     string
}

var SignCmd = &cli.Command{
	Name:  "sign",
	Usage: "Sign a contract upgrade governance VAA with the guardian keys from the environment.",
	Description: `The VAA authorizes the package digest given with --digest. Without it the
package is built and its digest is signed. The signed VAA is printed as hex.`,
	Flags: append(envelopeFlags(&signFlags.envelope),
		&cli.StringFlag{
			Name:        "digest",
			Usage:       "Hex package digest to authorize",
			Destination: &signFlags.digest,
		},
		&cli.StringFlag{
			Name:        "package",
			Usage:       "Path of the move package to build, Package.Path when empty",
			Destination: &signFlags.path,
		},
	),
	Action: func(c *cli.Context) error {
		if err := setupLogging(LogFlags); err != nil {
			return xerrors.Errorf("setup logging: %w", err)
		}
		cfg, err := loadConfig(ConfigFlags)
		if err != nil {
			return err
		}

		var digest []byte
		if signFlags.digest != "" {
			digest, err = decodeVAAHex(signFlags.digest)
			if err != nil {
				return xerrors.Errorf("digest: %w", err)
			}
		} else {
			a, err := buildPackage(c.Context, cfg, signFlags.path)
			if err != nil {
				return err
			}
			digest = a.Digest[:]
		}

		signed, err := governanceVAA(cfg, signFlags.envelope, digest)
		if err != nil {
			return err
		}
		fmt.Fprintln(c.App.Writer, hex.EncodeToString(signed))
		return nil
	},
}
