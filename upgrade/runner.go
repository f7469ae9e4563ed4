package upgrade

import (
	"context"
	"encoding/hex"
	"time"

	logging "github.com/ipfs/go-log/v2"
	"github.com/raulk/clock"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/xerrors"

	"github.com/wormhole-foundation/suigov/builder"
	"github.com/wormhole-foundation/suigov/lens"
	"github.com/wormhole-foundation/suigov/metrics"
	"github.com/wormhole-foundation/suigov/ptb"
	"github.com/wormhole-foundation/suigov/storage"
	"github.com/wormhole-foundation/suigov/vaa"
	"github.com/wormhole-foundation/suigov/wait"
)

var log = logging.Logger("suigov/upgrade")

var tracer = otel.Tracer("suigov/upgrade")

type Config struct {
	Network     Network
	NetworkName string // tags metrics

	Emitter vaa.GovernanceEmitter
	ChainID vaa.ChainID // chain being upgraded, VAAs must target it or every chain

	PollInterval    time.Duration
	FinalityTimeout time.Duration
	SettleDelay     time.Duration
}

// Request is one governed upgrade.
type Request struct {
	Artifact  *builder.Artifact
	SignedVAA []byte
	// DryRun composes and simulates the upgrade transaction without submitting anything.
	DryRun bool
}

type Result struct {
	RunID           string
	PreviousPackage ptb.ObjectID
	Package         ptb.ObjectID
	Upgrade         *lens.TransactionResponse
	Migration       *lens.TransactionResponse

	// composed transactions, kept for dry runs and logs
	UpgradeTx   *ptb.Transaction
	MigrationTx *ptb.Transaction
}

// Runner drives an upgrade run: the upgrade transaction, finality, then the migration.
type Runner struct {
	api      lens.API
	resolver *Resolver
	journal  storage.Journal
	clock    clock.Clock
	cfg      Config
}

type RunnerOption func(*Runner)

func WithClock(clk clock.Clock) RunnerOption {
	return func(r *Runner) {
		r.clock = clk
	}
}

func NewRunner(api lens.API, journal storage.Journal, cfg Config, opts ...RunnerOption) *Runner {
	if journal == nil {
		journal = &storage.NullJournal{}
	}
	r := &Runner{
		api:      api,
		resolver: NewResolver(api),
		journal:  journal,
		clock:    clock.New(),
		cfg:      cfg,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// RunID identifies the run of a signed VAA. The upgrade and its migration share it.
func RunID(signedVAA []byte) string {
	v, err := vaa.Unmarshal(signedVAA)
	if err != nil {
		return ""
	}
	d := v.SigningDigest()
	return hex.EncodeToString(d[:8])
}

// CheckRequest verifies, without touching the ledger, that the VAA authorizes the
// artifact: a core contract upgrade from the governance emitter, targeting this
// chain, whose digest is the digest of the artifact's modules.
func (r *Runner) CheckRequest(req Request) error {
	if req.Artifact == nil {
		return xerrors.Errorf("no build artifact")
	}
	signed, err := vaa.Unmarshal(req.SignedVAA)
	if err != nil {
		return xerrors.Errorf("signed vaa: %w", err)
	}
	if err := signed.VerifyGovernanceEmitter(r.cfg.Emitter); err != nil {
		return err
	}
	msg, err := signed.GovernanceMessage()
	if err != nil {
		return err
	}
	if msg.ModuleName() != "Core" {
		return xerrors.Errorf("%w: governance module %q is not Core", vaa.ErrEncoding, msg.ModuleName())
	}
	if msg.TargetChainID != vaa.ChainIDUnset && msg.TargetChainID != r.cfg.ChainID {
		return xerrors.Errorf("%w: upgrade targets chain %d, not %d", vaa.ErrEncoding, msg.TargetChainID, r.cfg.ChainID)
	}
	if err := req.Artifact.Verify(); err != nil {
		return err
	}
	return req.Artifact.VerifyAuthorized(msg.Payload)
}

// Upgrade submits the upgrade transaction, waits for it to be finalized and then
// runs the migration. A failure before the upgrade is submitted leaves the ledger untouched.
func (r *Runner) Upgrade(ctx context.Context, req Request) (res *Result, err error) {
	ctx = metrics.WithTagValue(ctx, metrics.Network, r.cfg.NetworkName)
	ctx, span := tracer.Start(ctx, "Runner.Upgrade", trace.WithAttributes(attribute.Bool("dry_run", req.DryRun)))
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			metrics.RecordInc(ctx, metrics.RunError)
		} else {
			metrics.RecordInc(ctx, metrics.RunComplete)
		}
		span.End()
	}()
	metrics.RecordInc(ctx, metrics.RunStart)

	if err := r.CheckRequest(req); err != nil {
		return nil, xerrors.Errorf("check request: %w", err)
	}

	res = &Result{RunID: RunID(req.SignedVAA)}
	span.SetAttributes(attribute.String("run_id", res.RunID))

	pkg, err := r.resolve(ctx, "resolve")
	if err != nil {
		return nil, err
	}
	res.PreviousPackage = pkg
	res.UpgradeTx = ComposeUpgrade(r.cfg.Network, pkg, req.Artifact, req.SignedVAA)
	log.Infow("composed upgrade", "runId", res.RunID, "package", pkg, "commands", res.UpgradeTx.CommandNames())

	if req.DryRun {
		dr, ok := r.api.(lens.DryRunner)
		if !ok {
			return res, nil
		}
		res.Upgrade, err = dr.DryRunTransaction(ctx, res.UpgradeTx)
		if err != nil {
			return res, xerrors.Errorf("dry run upgrade: %w", err)
		}
		return res, nil
	}

	res.Upgrade, err = r.execute(ctx, storage.StepUpgrade, res.RunID, pkg, req.SignedVAA, res.UpgradeTx)
	if err != nil {
		return res, err
	}

	res.Package, res.Migration, res.MigrationTx, err = r.migrate(ctx, res.RunID, req.SignedVAA, &pkg)
	return res, err
}

// Migrate runs only the migration, for runs whose upgrade was finalized but whose
// migration was not.
func (r *Runner) Migrate(ctx context.Context, signedVAA []byte) (res *Result, err error) {
	ctx = metrics.WithTagValue(ctx, metrics.Network, r.cfg.NetworkName)
	ctx, span := tracer.Start(ctx, "Runner.Migrate")
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	if _, err := vaa.Unmarshal(signedVAA); err != nil {
		return nil, xerrors.Errorf("signed vaa: %w", err)
	}
	res = &Result{RunID: RunID(signedVAA)}
	res.Package, res.Migration, res.MigrationTx, err = r.migrate(ctx, res.RunID, signedVAA, nil)
	return res, err
}

// migrate resolves the package again and calls its migration. When previous is
// set the resolved package must differ from it.
func (r *Runner) migrate(ctx context.Context, runID string, signedVAA []byte, previous *ptb.ObjectID) (ptb.ObjectID, *lens.TransactionResponse, *ptb.Transaction, error) {
	pkg, err := r.resolve(ctx, "re-resolve")
	if err != nil {
		return ptb.ObjectID{}, nil, nil, err
	}
	if previous != nil && pkg == *previous {
		return pkg, nil, nil, xerrors.Errorf("package %s did not change after the upgrade: %w", pkg, ErrResolution)
	}

	tx := ComposeMigration(r.cfg.Network, pkg, signedVAA)
	log.Infow("composed migration", "runId", runID, "package", pkg)
	resp, err := r.execute(ctx, storage.StepMigrate, runID, pkg, signedVAA, tx)
	return pkg, resp, tx, err
}

func (r *Runner) resolve(ctx context.Context, step string) (ptb.ObjectID, error) {
	defer metrics.Timer(metrics.WithTagValue(ctx, metrics.Step, step), metrics.StepDuration)()
	pkg, err := r.resolver.Resolve(ctx, r.cfg.Network.StateID)
	if err != nil {
		return ptb.ObjectID{}, err
	}
	log.Infow("resolved package", "step", step, "state", r.cfg.Network.StateID, "package", pkg)
	return pkg, nil
}

// execute submits tx, journals the outcome and waits for finality.
func (r *Runner) execute(ctx context.Context, step, runID string, pkg ptb.ObjectID, signedVAA []byte, tx *ptb.Transaction) (*lens.TransactionResponse, error) {
	ctx = metrics.WithTagValue(ctx, metrics.Step, step)
	defer metrics.Timer(ctx, metrics.StepDuration)()
	ctx, span := tracer.Start(ctx, "Runner.execute", trace.WithAttributes(attribute.String("step", step), attribute.String("package", pkg.String())))
	defer span.End()

	record := func(status, digest string, cause error) {
		rec := &storage.Record{
			RunID:     runID,
			Step:      step,
			Status:    status,
			StateID:   r.cfg.Network.StateID.String(),
			PackageID: pkg.String(),
			TxDigest:  digest,
			SignedVAA: hex.EncodeToString(signedVAA),
		}
		if cause != nil {
			rec.Error = cause.Error()
		}
		if err := r.journal.Record(ctx, rec); err != nil {
			log.Errorw("failed to journal step", "step", step, "status", status, "error", err)
		}
	}

	metrics.RecordInc(ctx, metrics.TransactionSubmitted)
	resp, err := r.api.SignAndExecuteTransaction(ctx, tx, lens.ResponseOptions{ShowEffects: true, ShowEvents: true})
	if err != nil {
		metrics.RecordInc(ctx, metrics.TransactionRejected)
		digest := ""
		if resp != nil {
			digest = resp.Digest
		}
		record(storage.StatusFailed, digest, err)
		return resp, xerrors.Errorf("%s: %w", step, err)
	}
	record(storage.StatusSubmitted, resp.Digest, nil)
	span.SetAttributes(attribute.String("digest", resp.Digest))
	log.Infow("transaction succeeded", "step", step, "runId", runID, "digest", resp.Digest)

	if err := r.waitFinality(ctx, resp.Digest); err != nil {
		// the ledger executed the transaction, only its finality is unknown
		record(storage.StatusExecuted, resp.Digest, err)
		return resp, xerrors.Errorf("%s: %w", step, err)
	}
	record(storage.StatusFinalized, resp.Digest, nil)
	return resp, nil
}

// waitFinality polls the transaction until it is part of a checkpoint, then waits
// the settle delay so full nodes serve the new state.
func (r *Runner) waitFinality(ctx context.Context, digest string) error {
	defer metrics.Timer(ctx, metrics.FinalityWaitDuration)()

	err := wait.Poll(ctx, r.clock, r.cfg.PollInterval, r.cfg.FinalityTimeout, func(ctx context.Context) (bool, error) {
		resp, err := r.api.GetTransaction(ctx, digest, lens.ResponseOptions{ShowEffects: true})
		if err != nil {
			// not yet indexed by the node we talk to
			log.Debugw("transaction not available", "digest", digest, "error", err)
			return false, nil
		}
		if !resp.Finalized() {
			return false, nil
		}
		return true, resp.Err()
	})
	if err != nil {
		return xerrors.Errorf("wait for finality of %s: %w", digest, err)
	}
	log.Infow("transaction finalized", "digest", digest, "settle", r.cfg.SettleDelay)
	return wait.Sleep(ctx, r.clock, r.cfg.SettleDelay)
}
