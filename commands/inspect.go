package commands

import (
	"encoding/hex"
	"fmt"
	"os"
	"sort"
	"text/tabwriter"

	"github.com/urfave/cli/v2"
	"golang.org/x/xerrors"

	"github.com/wormhole-foundation/suigov/vaa"
)

var InspectCmd = &cli.Command{
	Name:      "inspect",
	Usage:     "Decode a signed VAA and recover its signers.",
	ArgsUsage: "<hex vaa>",
	Action: func(c *cli.Context) error {
		if c.Args().Len() != 1 {
			return xerrors.Errorf("expected one hex encoded vaa")
		}
		raw, err := decodeVAAHex(c.Args().First())
		if err != nil {
			return err
		}
		v, err := vaa.Unmarshal(raw)
		if err != nil {
			return err
		}

		tw := tabwriter.NewWriter(os.Stdout, 2, 4, 2, ' ', 0)
		fmt.Fprintf(tw, "version\t%d\n", v.Version)
		fmt.Fprintf(tw, "guardian set\t%d\n", v.GuardianSetIndex)
		fmt.Fprintf(tw, "timestamp\t%s\n", v.Timestamp.UTC())
		fmt.Fprintf(tw, "nonce\t%d\n", v.Nonce)
		fmt.Fprintf(tw, "emitter\t%s %s\n", v.EmitterChain, v.EmitterAddress)
		fmt.Fprintf(tw, "sequence\t%d\n", v.Sequence)
		fmt.Fprintf(tw, "consistency\t%d\n", v.ConsistencyLevel)
		digest := v.SigningDigest()
		fmt.Fprintf(tw, "signing digest\t%s\n", hex.EncodeToString(digest[:]))

		if msg, err := v.GovernanceMessage(); err != nil {
			fmt.Fprintf(tw, "payload\t%s\n", hex.EncodeToString(v.Payload))
		} else {
			fmt.Fprintf(tw, "module\t%s\n", msg.ModuleName())
			fmt.Fprintf(tw, "action\t%s\n", msg.Action)
			fmt.Fprintf(tw, "target chain\t%s\n", msg.TargetChainID)
			fmt.Fprintf(tw, "package digest\t%s\n", hex.EncodeToString(msg.Payload))
		}

		signers, err := v.RecoverSigners()
		if err != nil {
			return err
		}
		indices := make([]int, 0, len(signers))
		for i := range signers {
			indices = append(indices, int(i))
		}
		sort.Ints(indices)
		for _, i := range indices {
			fmt.Fprintf(tw, "guardian %d\t%s\n", i, signers[uint8(i)].Hex()) // #nosec G115
		}
		return tw.Flush()
	},
}
