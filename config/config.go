package config

import (
	"bufio"
	"bytes"
	"errors"
	"io"
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"golang.org/x/xerrors"

	"github.com/wormhole-foundation/suigov/ptb"
	"github.com/wormhole-foundation/suigov/vaa"
)

// ErrConfiguration is returned when configuration or secrets are missing or malformed.
var ErrConfiguration = errors.New("configuration error")

// Conf defines the upgrade tool config.
type Conf struct {
	Network    NetworkConf
	Governance GovernanceConf
	Package    PackageConf
	Finality   FinalityConf
	Journal    JournalConf
}

type NetworkConf struct {
	Name      string // used to tag metrics
	RPCURL    string
	StateID   string // wormhole state object
	ClockID   string
	GasBudget uint64
	CacheSize int // shared object versions kept by the ledger client
}

type GovernanceConf struct {
	EmitterChain     uint16
	EmitterAddress   string
	TargetChain      uint16 // 0 accepts any chain
	GuardianSetIndex uint32
	GuardianIndices  []uint8 // index of each guardian key, in key order; empty means 0..n-1
	ConsistencyLevel uint8
}

type PackageConf struct {
	Path       string // source of the wormhole move package
	Name       string // named address rewritten in Move.toml when staging
	StagingDir string // when set the package is staged here before building
	SuiBinary  string
}

type FinalityConf struct {
	PollInterval Duration
	Timeout      Duration
	SettleDelay  Duration // waited after finality, before the package is resolved again
}

type JournalConf struct {
	Kind   string // csv, postgres or none
	Path   string // directory of the csv journal
	URLEnv string // name of an environment variable that contains the database URL
	URL    string // URL used to connect to postgresql if URLEnv is not set
}

const (
	JournalCSV      = "csv"
	JournalPostgres = "postgres"
	JournalNone     = "none"
)

func DefaultConf() *Conf {
	return &Conf{
		Network: NetworkConf{
			Name:      "testnet",
			RPCURL:    "https://fullnode.testnet.sui.io:443",
			StateID:   "0x31358d198147da50db32eda2562951d53973a0c0ad5ed738e9b17d88b213d790",
			ClockID:   ptb.ClockObjectID.String(),
			GasBudget: 1_000_000_000,
			CacheSize: 128,
		},
		Governance: GovernanceConf{
			EmitterChain:     uint16(vaa.DefaultGovernanceEmitter.Chain),
			EmitterAddress:   vaa.DefaultGovernanceEmitter.Address.String(),
			TargetChain:      uint16(vaa.ChainIDSui),
			GuardianSetIndex: 0,
			ConsistencyLevel: vaa.DefaultConsistencyLevel,
		},
		Package: PackageConf{
			Path:      "wormhole",
			Name:      "wormhole",
			SuiBinary: "sui",
		},
		Finality: FinalityConf{
			PollInterval: Duration(2 * time.Second),
			Timeout:      Duration(2 * time.Minute),
			SettleDelay:  Duration(5 * time.Second),
		},
		Journal: JournalConf{
			Kind:   JournalCSV,
			Path:   "~/.suigov",
			URLEnv: "SUIGOV_DB",
		},
	}
}

// Validate checks the values that cannot be checked by decoding alone.
func (c *Conf) Validate() error {
	if c.Network.RPCURL == "" {
		return xerrors.Errorf("Network.RPCURL is empty: %w", ErrConfiguration)
	}
	if _, err := c.StateID(); err != nil {
		return err
	}
	if _, err := c.Emitter(); err != nil {
		return err
	}
	if c.Network.GasBudget == 0 {
		return xerrors.Errorf("Network.GasBudget is zero: %w", ErrConfiguration)
	}
	if c.Finality.PollInterval <= 0 || c.Finality.Timeout <= 0 || c.Finality.SettleDelay < 0 {
		return xerrors.Errorf("Finality durations must be positive: %w", ErrConfiguration)
	}
	switch c.Journal.Kind {
	case JournalCSV, JournalPostgres, JournalNone:
	default:
		return xerrors.Errorf("unknown Journal.Kind %q: %w", c.Journal.Kind, ErrConfiguration)
	}
	return nil
}

func (c *Conf) StateID() (ptb.ObjectID, error) {
	id, err := ptb.ParseObjectID(c.Network.StateID)
	if err != nil {
		return ptb.ObjectID{}, xerrors.Errorf("Network.StateID: %v: %w", err, ErrConfiguration)
	}
	return id, nil
}

func (c *Conf) ClockID() (ptb.ObjectID, error) {
	if c.Network.ClockID == "" {
		return ptb.ClockObjectID, nil
	}
	id, err := ptb.ParseObjectID(c.Network.ClockID)
	if err != nil {
		return ptb.ObjectID{}, xerrors.Errorf("Network.ClockID: %v: %w", err, ErrConfiguration)
	}
	return id, nil
}

func (c *Conf) Emitter() (vaa.GovernanceEmitter, error) {
	addr, err := vaa.StringToAddress(c.Governance.EmitterAddress)
	if err != nil {
		return vaa.GovernanceEmitter{}, xerrors.Errorf("Governance.EmitterAddress: %v: %w", err, ErrConfiguration)
	}
	return vaa.GovernanceEmitter{Chain: vaa.ChainID(c.Governance.EmitterChain), Address: addr}, nil
}

func EnsureExists(path string) error {
	_, err := os.Stat(path)
	if err == nil {
		return nil
	} else if !os.IsNotExist(err) {
		return err
	}

	c, err := os.Create(path)
	if err != nil {
		return err
	}

	comm, err := ConfigComment(DefaultConf())
	if err != nil {
		return xerrors.Errorf("comment: %w", err)
	}
	_, err = c.Write(comm)
	if err != nil {
		_ = c.Close() // ignore error since we are recovering from a write error anyway
		return xerrors.Errorf("write config: %w", err)
	}

	if err := c.Close(); err != nil {
		return xerrors.Errorf("close config: %w", err)
	}
	return nil
}

// ConfigComment encodes cfg as TOML with every value commented out, so the file
// documents the defaults without pinning them.
func ConfigComment(cfg *Conf) ([]byte, error) {
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(cfg); err != nil {
		return nil, xerrors.Errorf("encoding config: %w", err)
	}

	var out bytes.Buffer
	out.WriteString("# Default config:\n")
	sc := bufio.NewScanner(&buf)
	for sc.Scan() {
		line := sc.Text()
		switch {
		case strings.TrimSpace(line) == "":
			out.WriteString("\n")
		case strings.HasPrefix(strings.TrimSpace(line), "["):
			out.WriteString(line + "\n")
		default:
			out.WriteString("#" + line + "\n")
		}
	}
	return out.Bytes(), sc.Err()
}

// FromFile loads config from a specified file. If file does not exist or is empty defaults are assumed.
func FromFile(path string) (*Conf, error) {
	file, err := os.Open(path)
	switch {
	case os.IsNotExist(err):
		return DefaultConf(), nil
	case err != nil:
		return nil, err
	}

	defer file.Close() //nolint:errcheck // The file is RO
	return FromReader(file, DefaultConf())
}

// FromReader loads config from a reader instance.
func FromReader(reader io.Reader, def *Conf) (*Conf, error) {
	cfg := *def
	_, err := toml.NewDecoder(reader).Decode(&cfg)
	if err != nil {
		return nil, xerrors.Errorf("decode config: %v: %w", err, ErrConfiguration)
	}

	return &cfg, nil
}
