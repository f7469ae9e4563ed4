package upgrade

import (
	"context"
	"encoding/hex"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wormhole-foundation/suigov/builder"
	"github.com/wormhole-foundation/suigov/lens"
	"github.com/wormhole-foundation/suigov/ptb"
	"github.com/wormhole-foundation/suigov/storage"
	"github.com/wormhole-foundation/suigov/vaa"
	"github.com/wormhole-foundation/suigov/wait"
)

var upgradedPackage = ptb.MustParseObjectID("0xbbbb")

// fakeLedger executes transactions against a single state object. A successful
// upgrade moves the state to upgradedPackage.
type fakeLedger struct {
	mu sync.Mutex

	pkg          ptb.ObjectID
	nextPkg      ptb.ObjectID
	failUpgrade  string // execution error of upgrade transactions
	pendingPolls int    // GetTransaction reports this many polls without a checkpoint

	executed    []*ptb.Transaction
	resolutions []ptb.ObjectID
	polls       int
}

func newFakeLedger() *fakeLedger {
	return &fakeLedger{pkg: testPackage, nextPkg: upgradedPackage}
}

func (f *fakeLedger) GetObject(_ context.Context, id ptb.ObjectID, _ lens.ObjectOptions) (*lens.Object, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if id != testStateID {
		return nil, lens.ErrObjectNotFound
	}
	f.resolutions = append(f.resolutions, f.pkg)
	return stateObject(fmt.Sprintf(`{"upgrade_cap":{"fields":{"package":"%s"}}}`, f.pkg)), nil
}

func (f *fakeLedger) SignAndExecuteTransaction(_ context.Context, tx *ptb.Transaction, _ lens.ResponseOptions) (*lens.TransactionResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.executed = append(f.executed, tx)
	resp := &lens.TransactionResponse{
		Digest:  fmt.Sprintf("tx%d", len(f.executed)),
		Effects: &lens.Effects{Status: lens.ExecutionStatus{Status: lens.ExecutionSuccess}},
	}

	isUpgrade := false
	for _, c := range tx.Commands {
		if _, ok := c.(*ptb.Upgrade); ok {
			isUpgrade = true
		}
	}
	if isUpgrade {
		if f.failUpgrade != "" {
			resp.Effects.Status = lens.ExecutionStatus{Status: lens.ExecutionFailure, Error: f.failUpgrade}
			return resp, resp.Err()
		}
		f.pkg = f.nextPkg
	}
	return resp, nil
}

func (f *fakeLedger) GetTransaction(_ context.Context, digest string, _ lens.ResponseOptions) (*lens.TransactionResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.polls++
	resp := &lens.TransactionResponse{
		Digest:  digest,
		Effects: &lens.Effects{Status: lens.ExecutionStatus{Status: lens.ExecutionSuccess}},
	}
	if f.pendingPolls > 0 {
		f.pendingPolls--
		return resp, nil
	}
	cp := lens.Uint64(100)
	resp.Checkpoint = &cp
	return resp, nil
}

type dryRunLedger struct {
	*fakeLedger
	dryRuns int
}

func (d *dryRunLedger) DryRunTransaction(context.Context, *ptb.Transaction) (*lens.TransactionResponse, error) {
	d.dryRuns++
	return &lens.TransactionResponse{Effects: &lens.Effects{Status: lens.ExecutionStatus{Status: lens.ExecutionSuccess}}}, nil
}

func testConfig() Config {
	return Config{
		Network:         testNetwork,
		NetworkName:     "test",
		Emitter:         vaa.DefaultGovernanceEmitter,
		ChainID:         vaa.ChainIDSui,
		PollInterval:    time.Millisecond,
		FinalityTimeout: time.Second,
		SettleDelay:     time.Millisecond,
	}
}

func testArtifact() *builder.Artifact {
	a := &builder.Artifact{
		Modules:      [][]byte{[]byte("vaa module"), []byte("upgrade_contract module")},
		Dependencies: []ptb.ObjectID{ptb.MustParseObjectID("0x1"), ptb.MustParseObjectID("0x2")},
	}
	a.Digest = builder.ComputeDigest(a.Modules, a.Dependencies)
	return a
}

func signedUpgrade(t *testing.T, target vaa.ChainID, digest []byte) []byte {
	action, err := vaa.EncodeUpgradeAction(target, digest)
	require.NoError(t, err)
	key, err := crypto.GenerateKey()
	require.NoError(t, err)

	env := vaa.NewGovernanceEnvelope(vaa.DefaultGovernanceEmitter, time.Unix(12345678, 0), 0, 2, vaa.DefaultConsistencyLevel, action)
	signed, err := vaa.Sign(env, []vaa.GuardianKey{{Index: 0, Key: key}}, 0)
	require.NoError(t, err)
	out, err := signed.Marshal()
	require.NoError(t, err)
	return out
}

func TestRunnerUpgrade(t *testing.T) {
	ledger := newFakeLedger()
	journal := storage.NewMemJournal()
	artifact := testArtifact()
	signed := signedUpgrade(t, vaa.ChainIDSui, artifact.Digest[:])

	res, err := NewRunner(ledger, journal, testConfig()).Upgrade(context.Background(), Request{Artifact: artifact, SignedVAA: signed})
	require.NoError(t, err)

	assert.Equal(t, testPackage, res.PreviousPackage)
	assert.Equal(t, upgradedPackage, res.Package)
	assert.Equal(t, "tx1", res.Upgrade.Digest)
	assert.Equal(t, "tx2", res.Migration.Digest)
	assert.Equal(t, RunID(signed), res.RunID)

	// resolved before each transaction, the second time after the upgrade landed
	assert.Equal(t, []ptb.ObjectID{testPackage, upgradedPackage}, ledger.resolutions)

	require.Len(t, ledger.executed, 2)
	upgradeTx, migrationTx := ledger.executed[0], ledger.executed[1]
	assert.Len(t, upgradeTx.Commands, 6)
	for _, c := range upgradeTx.Commands {
		if call, ok := c.(*ptb.MoveCall); ok {
			assert.Equal(t, testPackage, call.Target.Package)
		}
	}
	assert.Equal(t, []string{"migrate::migrate"}, migrationTx.CommandNames())
	assert.Equal(t, upgradedPackage, migrationTx.Commands[0].(*ptb.MoveCall).Target.Package)
	// the migration is authorized by the same signed vaa
	assert.Equal(t, ptb.EncodeBytes(signed), migrationTx.Inputs[1].Pure)

	var steps []string
	for _, r := range journal.Records {
		steps = append(steps, r.Step+"/"+r.Status)
		assert.Equal(t, res.RunID, r.RunID)
		assert.Equal(t, hex.EncodeToString(signed), r.SignedVAA)
	}
	assert.Equal(t, []string{"upgrade/submitted", "upgrade/finalized", "migrate/submitted", "migrate/finalized"}, steps)

	last, err := journal.Last(context.Background(), testStateID.String())
	require.NoError(t, err)
	assert.False(t, last.PendingMigration())
}

func TestRunnerUpgradeAnyChain(t *testing.T) {
	ledger := newFakeLedger()
	artifact := testArtifact()
	signed := signedUpgrade(t, vaa.ChainIDUnset, artifact.Digest[:])

	_, err := NewRunner(ledger, nil, testConfig()).Upgrade(context.Background(), Request{Artifact: artifact, SignedVAA: signed})
	require.NoError(t, err)
	assert.Len(t, ledger.executed, 2)
}

func TestRunnerRefusesBeforeSubmission(t *testing.T) {
	artifact := testArtifact()
	other := testArtifact()
	other.Modules = [][]byte{[]byte("substituted")}
	other.Digest = builder.ComputeDigest(other.Modules, other.Dependencies)

	testCases := map[string]struct {
		req  func(t *testing.T) Request
		want error
	}{
		"digest mismatch": {
			req: func(t *testing.T) Request {
				return Request{Artifact: other, SignedVAA: signedUpgrade(t, vaa.ChainIDSui, artifact.Digest[:])}
			},
			want: builder.ErrDigestMismatch,
		},
		"tampered artifact": {
			req: func(t *testing.T) Request {
				tampered := *artifact
				tampered.Modules = other.Modules
				return Request{Artifact: &tampered, SignedVAA: signedUpgrade(t, vaa.ChainIDSui, artifact.Digest[:])}
			},
			want: builder.ErrDigestMismatch,
		},
		"other chain": {
			req: func(t *testing.T) Request {
				return Request{Artifact: artifact, SignedVAA: signedUpgrade(t, vaa.ChainIDSolana, artifact.Digest[:])}
			},
			want: vaa.ErrEncoding,
		},
		"malformed vaa": {
			req: func(t *testing.T) Request {
				return Request{Artifact: artifact, SignedVAA: []byte{1, 2}}
			},
			want: vaa.ErrEncoding,
		},
	}
	for name, tc := range testCases {
		t.Run(name, func(t *testing.T) {
			ledger := newFakeLedger()
			_, err := NewRunner(ledger, nil, testConfig()).Upgrade(context.Background(), tc.req(t))
			assert.ErrorIs(t, err, tc.want)
			assert.Empty(t, ledger.executed)
			assert.Empty(t, ledger.resolutions)
		})
	}
}

func TestRunnerResolutionFailure(t *testing.T) {
	ledger := newFakeLedger()
	cfg := testConfig()
	cfg.Network.StateID = ptb.MustParseObjectID("0xdead")
	artifact := testArtifact()

	_, err := NewRunner(ledger, nil, cfg).Upgrade(context.Background(), Request{Artifact: artifact, SignedVAA: signedUpgrade(t, vaa.ChainIDSui, artifact.Digest[:])})
	assert.ErrorIs(t, err, ErrResolution)
	assert.Empty(t, ledger.executed)
}

func TestRunnerUpgradeRejected(t *testing.T) {
	ledger := newFakeLedger()
	ledger.failUpgrade = "MoveAbort(package::authorize_upgrade, 1)"
	journal := storage.NewMemJournal()
	artifact := testArtifact()

	res, err := NewRunner(ledger, journal, testConfig()).Upgrade(context.Background(), Request{Artifact: artifact, SignedVAA: signedUpgrade(t, vaa.ChainIDSui, artifact.Digest[:])})
	require.ErrorIs(t, err, lens.ErrTransactionRejected)
	assert.Contains(t, err.Error(), "authorize_upgrade")
	assert.Nil(t, res.Migration)

	// no migration after a rejected upgrade
	assert.Len(t, ledger.executed, 1)
	require.Len(t, journal.Records, 1)
	assert.Equal(t, storage.StatusFailed, journal.Records[0].Status)
	assert.Contains(t, journal.Records[0].Error, "authorize_upgrade")
	assert.False(t, journal.Records[0].PendingMigration())
}

func TestRunnerPackageUnchanged(t *testing.T) {
	ledger := newFakeLedger()
	ledger.nextPkg = testPackage
	artifact := testArtifact()

	_, err := NewRunner(ledger, nil, testConfig()).Upgrade(context.Background(), Request{Artifact: artifact, SignedVAA: signedUpgrade(t, vaa.ChainIDSui, artifact.Digest[:])})
	assert.ErrorIs(t, err, ErrResolution)
	assert.Len(t, ledger.executed, 1)
}

func TestRunnerWaitsForFinality(t *testing.T) {
	ledger := newFakeLedger()
	ledger.pendingPolls = 3
	artifact := testArtifact()

	_, err := NewRunner(ledger, nil, testConfig()).Upgrade(context.Background(), Request{Artifact: artifact, SignedVAA: signedUpgrade(t, vaa.ChainIDSui, artifact.Digest[:])})
	require.NoError(t, err)
	// three pending polls, then one finalized poll per transaction
	assert.Equal(t, 5, ledger.polls)
}

func TestRunnerFinalityTimeout(t *testing.T) {
	ledger := newFakeLedger()
	ledger.pendingPolls = 1 << 30
	journal := storage.NewMemJournal()
	cfg := testConfig()
	cfg.FinalityTimeout = 20 * time.Millisecond
	artifact := testArtifact()

	_, err := NewRunner(ledger, journal, cfg).Upgrade(context.Background(), Request{Artifact: artifact, SignedVAA: signedUpgrade(t, vaa.ChainIDSui, artifact.Digest[:])})
	assert.ErrorIs(t, err, wait.ErrTimeout)
	assert.Len(t, ledger.executed, 1)

	// the upgrade was applied, so the run resumes with the migration
	last, err := journal.Last(context.Background(), testStateID.String())
	require.NoError(t, err)
	assert.Equal(t, storage.StepUpgrade, last.Step)
	assert.Equal(t, storage.StatusExecuted, last.Status)
	assert.Equal(t, "tx1", last.TxDigest)
	assert.Contains(t, last.Error, "timed out")
	assert.True(t, last.PendingMigration())

	signed, err := hex.DecodeString(last.SignedVAA)
	require.NoError(t, err)
	ledger.pendingPolls = 0
	res, err := NewRunner(ledger, journal, testConfig()).Migrate(context.Background(), signed)
	require.NoError(t, err)
	assert.Equal(t, upgradedPackage, res.Package)
	require.Len(t, ledger.executed, 2)
	assert.Equal(t, []string{"migrate::migrate"}, ledger.executed[1].CommandNames())

	last, err = journal.Last(context.Background(), testStateID.String())
	require.NoError(t, err)
	assert.Equal(t, storage.StepMigrate, last.Step)
	assert.False(t, last.PendingMigration())
}

func TestRunnerMigrate(t *testing.T) {
	ledger := newFakeLedger()
	ledger.pkg = upgradedPackage
	journal := storage.NewMemJournal()
	artifact := testArtifact()
	signed := signedUpgrade(t, vaa.ChainIDSui, artifact.Digest[:])

	res, err := NewRunner(ledger, journal, testConfig()).Migrate(context.Background(), signed)
	require.NoError(t, err)
	assert.Equal(t, upgradedPackage, res.Package)
	require.Len(t, ledger.executed, 1)
	assert.Equal(t, []string{"migrate::migrate"}, ledger.executed[0].CommandNames())
	require.Len(t, journal.Records, 2)
	assert.Equal(t, storage.StepMigrate, journal.Records[1].Step)

	_, err = NewRunner(ledger, journal, testConfig()).Migrate(context.Background(), []byte("junk"))
	assert.ErrorIs(t, err, vaa.ErrEncoding)
}

func TestRunnerDryRun(t *testing.T) {
	artifact := testArtifact()
	signed := signedUpgrade(t, vaa.ChainIDSui, artifact.Digest[:])

	ledger := &dryRunLedger{fakeLedger: newFakeLedger()}
	res, err := NewRunner(ledger, nil, testConfig()).Upgrade(context.Background(), Request{Artifact: artifact, SignedVAA: signed, DryRun: true})
	require.NoError(t, err)
	assert.Equal(t, 1, ledger.dryRuns)
	assert.Empty(t, ledger.executed)
	require.NotNil(t, res.UpgradeTx)
	assert.Len(t, res.UpgradeTx.Commands, 6)
	assert.True(t, res.Upgrade.Succeeded())

	// without simulation support the composed transaction is still returned
	plain := newFakeLedger()
	res, err = NewRunner(plain, nil, testConfig()).Upgrade(context.Background(), Request{Artifact: artifact, SignedVAA: signed, DryRun: true})
	require.NoError(t, err)
	assert.Nil(t, res.Upgrade)
	assert.NotNil(t, res.UpgradeTx)
	assert.Empty(t, plain.executed)
}

func TestRunID(t *testing.T) {
	artifact := testArtifact()
	a := signedUpgrade(t, vaa.ChainIDSui, artifact.Digest[:])
	assert.Len(t, RunID(a), 16)
	assert.Equal(t, RunID(a), RunID(a))
	assert.Empty(t, RunID([]byte("junk")))
}
