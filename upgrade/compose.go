package upgrade

import (
	"github.com/wormhole-foundation/suigov/builder"
	"github.com/wormhole-foundation/suigov/ptb"
)

// Move modules and functions of the core package called by the upgrade flow.
const (
	ModuleVAA               = "vaa"
	ModuleUpgradeContract   = "upgrade_contract"
	ModuleGovernanceMessage = "governance_message"
	ModuleMigrate           = "migrate"

	FuncParseAndVerify       = "parse_and_verify"
	FuncAuthorizeGovernance  = "authorize_governance"
	FuncVerifyVAA            = "verify_vaa"
	FuncAuthorizeUpgrade     = "authorize_upgrade"
	FuncCommitUpgrade        = "commit_upgrade"
	FuncMigrate              = "migrate"
	GovernanceWitnessTypeTag = "GovernanceWitness"
)

// Network holds the well-known objects of a deployment.
type Network struct {
	StateID ptb.ObjectID
	ClockID ptb.ObjectID
}

func (n Network) clock() ptb.ObjectID {
	if n.ClockID.IsZero() {
		return ptb.ClockObjectID
	}
	return n.ClockID
}

// UpgradeComposer builds the governed upgrade transaction. Each stage returns the
// only type able to add the next call, so the calls can only be made in order:
//
//	NewUpgradeComposer(net, pkg).
//		ParseAndVerify(vaa).
//		AuthorizeGovernance().
//		VerifyDecree().
//		AuthorizeUpgrade().
//		PerformUpgrade(artifact).
//		CommitUpgrade()
type UpgradeComposer struct {
	tx    *ptb.Transaction
	net   Network
	pkg   ptb.ObjectID
	state ptb.Argument
}

// NewUpgradeComposer starts a transaction against the package currently
// referenced by the state object. The state object is the first input.
func NewUpgradeComposer(n Network, pkg ptb.ObjectID) *UpgradeComposer {
	tx := ptb.New()
	return &UpgradeComposer{
		tx:    tx,
		net:   n,
		pkg:   pkg,
		state: tx.Object(n.StateID, true),
	}
}

func (c *UpgradeComposer) call(module, function string, typeArgs []ptb.StructTag, args ...ptb.Argument) ptb.Argument {
	return c.tx.MoveCall(ptb.Target{Package: c.pkg, Module: module, Function: function}, typeArgs, args...)
}

type VerifiedVAA struct {
	c   *UpgradeComposer
	vaa ptb.Argument
}

// ParseAndVerify checks the guardian signatures of signedVAA on chain.
func (c *UpgradeComposer) ParseAndVerify(signedVAA []byte) *VerifiedVAA {
	buf := c.tx.PureBytes(signedVAA)
	clock := c.tx.Object(c.net.clock(), false)
	return &VerifiedVAA{c: c, vaa: c.call(ModuleVAA, FuncParseAndVerify, nil, c.state, buf, clock)}
}

type DecreeTicket struct {
	c      *UpgradeComposer
	vaa    ptb.Argument
	ticket ptb.Argument
}

func (v *VerifiedVAA) AuthorizeGovernance() *DecreeTicket {
	c := v.c
	return &DecreeTicket{c: c, vaa: v.vaa, ticket: c.call(ModuleUpgradeContract, FuncAuthorizeGovernance, nil, c.state)}
}

type DecreeReceipt struct {
	c       *UpgradeComposer
	receipt ptb.Argument
}

// VerifyDecree consumes the verified VAA and the ticket, checking the VAA is a
// governance message for the upgrade contract.
func (d *DecreeTicket) VerifyDecree() *DecreeReceipt {
	c := d.c
	witness := ptb.StructTag{Address: c.pkg, Module: ModuleUpgradeContract, Name: GovernanceWitnessTypeTag}
	receipt := c.call(ModuleGovernanceMessage, FuncVerifyVAA, []ptb.StructTag{witness}, c.state, d.vaa, d.ticket)
	return &DecreeReceipt{c: c, receipt: receipt}
}

type UpgradeTicket struct {
	c      *UpgradeComposer
	ticket ptb.Argument
}

func (r *DecreeReceipt) AuthorizeUpgrade() *UpgradeTicket {
	c := r.c
	return &UpgradeTicket{c: c, ticket: c.call(ModuleUpgradeContract, FuncAuthorizeUpgrade, nil, c.state, r.receipt)}
}

type UpgradeReceipt struct {
	c       *UpgradeComposer
	receipt ptb.Argument
}

// PerformUpgrade publishes the artifact's bytecode. The ledger only accepts it
// when the artifact digest matches the digest authorized by the ticket.
func (u *UpgradeTicket) PerformUpgrade(a *builder.Artifact) *UpgradeReceipt {
	c := u.c
	return &UpgradeReceipt{c: c, receipt: c.tx.Upgrade(a.Modules, a.Dependencies, c.pkg, u.ticket)}
}

// CommitUpgrade finishes the transaction.
func (r *UpgradeReceipt) CommitUpgrade() *ptb.Transaction {
	c := r.c
	c.call(ModuleUpgradeContract, FuncCommitUpgrade, nil, c.state, r.receipt)
	return c.tx
}

// ComposeUpgrade builds the whole upgrade transaction for pkg.
func ComposeUpgrade(n Network, pkg ptb.ObjectID, a *builder.Artifact, signedVAA []byte) *ptb.Transaction {
	return NewUpgradeComposer(n, pkg).
		ParseAndVerify(signedVAA).
		AuthorizeGovernance().
		VerifyDecree().
		AuthorizeUpgrade().
		PerformUpgrade(a).
		CommitUpgrade()
}

// ComposeMigration builds the transaction running the migration of the freshly
// upgraded package pkg, authorized by the same signed VAA.
func ComposeMigration(n Network, pkg ptb.ObjectID, signedVAA []byte) *ptb.Transaction {
	tx := ptb.New()
	state := tx.Object(n.StateID, true)
	buf := tx.PureBytes(signedVAA)
	clock := tx.Object(n.clock(), false)
	tx.MoveCall(ptb.Target{Package: pkg, Module: ModuleMigrate, Function: FuncMigrate}, nil, state, buf, clock)
	return tx
}
