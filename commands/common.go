package commands

import (
	"context"
	"encoding/hex"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/mitchellh/go-homedir"
	"github.com/urfave/cli/v2"
	"go.uber.org/multierr"
	"golang.org/x/xerrors"

	"github.com/wormhole-foundation/suigov/builder"
	"github.com/wormhole-foundation/suigov/config"
	"github.com/wormhole-foundation/suigov/lens"
	"github.com/wormhole-foundation/suigov/lens/sui"
	"github.com/wormhole-foundation/suigov/storage"
	"github.com/wormhole-foundation/suigov/upgrade"
	"github.com/wormhole-foundation/suigov/vaa"
)

// ConfigOpts are the global flags selecting and overriding the config file.
type ConfigOpts struct {
	Path    string
	RPCURL  string
	StateID string
	Journal string
}

var ConfigFlags ConfigOpts

var ConfigCLIFlags = []cli.Flag{
	&cli.StringFlag{
		Name:        "config",
		EnvVars:     []string{"SUIGOV_CONFIG"},
		Value:       "~/.suigov/config.toml",
		Usage:       "Path of the config file, defaults are used when it does not exist",
		Destination: &ConfigFlags.Path,
	},
	&cli.StringFlag{
		Name:        "rpc",
		EnvVars:     []string{"SUIGOV_RPC"},
		Usage:       "Override Network.RPCURL",
		Destination: &ConfigFlags.RPCURL,
	},
	&cli.StringFlag{
		Name:        "state",
		EnvVars:     []string{"SUIGOV_STATE"},
		Usage:       "Override Network.StateID, the wormhole state object",
		Destination: &ConfigFlags.StateID,
	},
	&cli.StringFlag{
		Name:        "journal",
		EnvVars:     []string{"SUIGOV_JOURNAL"},
		Usage:       "Override Journal.Kind: csv, postgres or none",
		Destination: &ConfigFlags.Journal,
	},
}

func loadConfig(flags ConfigOpts) (*config.Conf, error) {
	path, err := homedir.Expand(flags.Path)
	if err != nil {
		return nil, xerrors.Errorf("expand config path: %w", err)
	}

	// a missing file yields the defaults
	cfg, err := config.FromFile(path)
	if err != nil {
		return nil, err
	}

	if flags.RPCURL != "" {
		cfg.Network.RPCURL = flags.RPCURL
	}
	if flags.StateID != "" {
		cfg.Network.StateID = flags.StateID
	}
	if flags.Journal != "" {
		cfg.Journal.Kind = flags.Journal
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// openLedger dials the configured node. The wallet key is only read when withKey
// is set, read only commands work without it.
func openLedger(ctx context.Context, cfg *config.Conf, withKey bool) (lens.API, lens.APICloser, error) {
	var key *sui.Keypair
	if withKey {
		encoded, err := config.WalletKey()
		if err != nil {
			return nil, nil, err
		}
		key, err = sui.ParseKeystoreKey(encoded)
		if err != nil {
			return nil, nil, xerrors.Errorf("%s: %w", config.EnvWalletKey, err)
		}
		log.Infow("loaded wallet", "address", key.Address())
	}

	opener, closer, err := sui.NewAPIOpener(cfg.Network.RPCURL, key, cfg.Network.GasBudget, cfg.Network.CacheSize)
	if err != nil {
		return nil, nil, err
	}
	api, apiCloser, err := opener.Open(ctx)
	if err != nil {
		closer()
		return nil, nil, err
	}
	return api, func() {
		apiCloser()
		closer()
	}, nil
}

func openJournal(ctx context.Context, cfg *config.Conf) (storage.Journal, error) {
	switch cfg.Journal.Kind {
	case config.JournalNone:
		return &storage.NullJournal{}, nil
	case config.JournalPostgres:
		url := cfg.Journal.URL
		if cfg.Journal.URLEnv != "" {
			if v, ok := os.LookupEnv(cfg.Journal.URLEnv); ok {
				url = v
			}
		}
		if url == "" {
			return nil, xerrors.Errorf("no database url in Journal.URL or $%s: %w", cfg.Journal.URLEnv, config.ErrConfiguration)
		}
		db, err := storage.NewDatabase(ctx, url)
		if err != nil {
			return nil, err
		}
		if err := db.CreateSchema(); err != nil {
			return nil, multierr.Append(xerrors.Errorf("create schema: %w", err), db.Close())
		}
		return db, nil
	default:
		dir, err := homedir.Expand(cfg.Journal.Path)
		if err != nil {
			return nil, xerrors.Errorf("expand journal path: %w", err)
		}
		return storage.NewCSVJournal(dir)
	}
}

func runnerConfig(cfg *config.Conf) (upgrade.Config, error) {
	state, err := cfg.StateID()
	if err != nil {
		return upgrade.Config{}, err
	}
	clk, err := cfg.ClockID()
	if err != nil {
		return upgrade.Config{}, err
	}
	emitter, err := cfg.Emitter()
	if err != nil {
		return upgrade.Config{}, err
	}
	return upgrade.Config{
		Network:         upgrade.Network{StateID: state, ClockID: clk},
		NetworkName:     cfg.Network.Name,
		Emitter:         emitter,
		ChainID:         vaa.ChainIDSui,
		PollInterval:    cfg.Finality.PollInterval.Std(),
		FinalityTimeout: cfg.Finality.Timeout.Std(),
		SettleDelay:     cfg.Finality.SettleDelay.Std(),
	}, nil
}

// buildPackage stages the package when a staging dir is configured and builds it.
func buildPackage(ctx context.Context, cfg *config.Conf, path string) (a *builder.Artifact, err error) {
	if path == "" {
		path = cfg.Package.Path
	}
	path, err = homedir.Expand(path)
	if err != nil {
		return nil, xerrors.Errorf("expand package path: %w", err)
	}

	if cfg.Package.StagingDir != "" {
		staging, err := homedir.Expand(cfg.Package.StagingDir)
		if err != nil {
			return nil, xerrors.Errorf("expand staging dir: %w", err)
		}
		staging = filepath.Join(staging, filepath.Base(path))
		if err := builder.Stage(path, staging, cfg.Package.Name); err != nil {
			return nil, multierr.Append(err, builder.Cleanup(staging))
		}
		defer func() {
			err = multierr.Append(err, builder.Cleanup(staging))
		}()
		path = staging
	}

	return (&builder.SuiMove{Binary: cfg.Package.SuiBinary}).Build(ctx, path)
}

// EnvelopeOpts are the envelope fields of a governance VAA that are not taken from the config.
type EnvelopeOpts struct {
	Timestamp int64
	Nonce     uint
	Sequence  uint64
}

func envelopeFlags(opts *EnvelopeOpts) []cli.Flag {
	return []cli.Flag{
		&cli.Int64Flag{
			Name:        "timestamp",
			Usage:       "Unix time of the governance message, now when zero",
			Destination: &opts.Timestamp,
		},
		&cli.UintFlag{
			Name:        "nonce",
			Destination: &opts.Nonce,
		},
		&cli.Uint64Flag{
			Name:        "sequence",
			Usage:       "Sequence of the governance message, must not have been used by the emitter",
			Destination: &opts.Sequence,
		},
	}
}

// governanceVAA signs a contract upgrade for digest with the guardian keys from the environment.
func governanceVAA(cfg *config.Conf, opts EnvelopeOpts, digest []byte) ([]byte, error) {
	hexKeys, err := config.GuardianKeys()
	if err != nil {
		return nil, err
	}
	keys, err := vaa.ParseGuardianKeys(hexKeys, cfg.Governance.GuardianIndices)
	if err != nil {
		return nil, err
	}
	emitter, err := cfg.Emitter()
	if err != nil {
		return nil, err
	}
	action, err := vaa.EncodeUpgradeAction(vaa.ChainID(cfg.Governance.TargetChain), digest)
	if err != nil {
		return nil, err
	}

	ts := time.Now()
	if opts.Timestamp != 0 {
		ts = time.Unix(opts.Timestamp, 0)
	}
	if opts.Timestamp < 0 || opts.Timestamp > math.MaxUint32 {
		return nil, xerrors.Errorf("%w: timestamp %d does not fit 32 bits", vaa.ErrEncoding, opts.Timestamp)
	}
	if opts.Nonce > math.MaxUint32 {
		return nil, xerrors.Errorf("%w: nonce %d does not fit 32 bits", vaa.ErrEncoding, opts.Nonce)
	}
	env := vaa.NewGovernanceEnvelope(emitter, ts, uint32(opts.Nonce), opts.Sequence, cfg.Governance.ConsistencyLevel, action) // #nosec G115

	signed, err := vaa.Sign(env, keys, cfg.Governance.GuardianSetIndex)
	if err != nil {
		return nil, err
	}
	log.Infow("signed governance vaa", "guardians", len(keys), "guardianSet", cfg.Governance.GuardianSetIndex, "sequence", opts.Sequence)
	return signed.Marshal()
}

func decodeVAAHex(s string) ([]byte, error) {
	s = strings.TrimPrefix(strings.TrimSpace(s), "0x")
	b, err := hex.DecodeString(s)
	if err != nil {
		return nil, xerrors.Errorf("decode vaa hex: %w", err)
	}
	return b, nil
}

func printResult(c *cli.Context, res *upgrade.Result) {
	if res == nil {
		return
	}
	w := c.App.Writer
	fmt.Fprintf(w, "run:\t%s\n", res.RunID)
	if !res.PreviousPackage.IsZero() {
		fmt.Fprintf(w, "previous package:\t%s\n", res.PreviousPackage)
	}
	if res.Upgrade != nil {
		fmt.Fprintf(w, "upgrade tx:\t%s\n", res.Upgrade.Digest)
	}
	if !res.Package.IsZero() {
		fmt.Fprintf(w, "package:\t%s\n", res.Package)
	}
	if res.Migration != nil {
		fmt.Fprintf(w, "migration tx:\t%s\n", res.Migration.Digest)
	}
}
