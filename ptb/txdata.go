package ptb

import (
	"github.com/minio/blake2b-simd"
	"golang.org/x/xerrors"
)

// ObjectRef pins an owned or immutable object at a version.
type ObjectRef struct {
	ObjectID ObjectID
	Version  uint64
	Digest   [32]byte
}

// SharedObject is a reference to a shared object by its initial shared version.
type SharedObject struct {
	ObjectID             ObjectID
	InitialSharedVersion uint64
	Mutable              bool
}

// CallArg is a resolved input. Exactly one field is set.
type CallArg struct {
	Pure       []byte
	ImmOrOwned *ObjectRef
	Shared     *SharedObject
}

// GasData selects the coins paying for a transaction.
type GasData struct {
	Payment []ObjectRef
	Owner   Address
	Price   uint64
	Budget  uint64
}

// TransactionData is a fully resolved programmable transaction ready for signing.
type TransactionData struct {
	Sender   Address
	Inputs   []CallArg
	Commands []Command
	Gas      GasData
}

// enum tags, in declaration order of the ledger's types.
const (
	transactionDataV1           = 0
	transactionKindProgrammable = 0
	callArgPure                 = 0
	callArgObject               = 1
	objectArgImmOrOwned         = 0
	objectArgShared             = 1
	commandMoveCall             = 0
	commandUpgrade              = 6
	typeTagStruct               = 7
	transactionExpirationNone   = 0
	intentScopeTransactionData  = 0
	intentVersionV0             = 0
	intentAppIDSui              = 0
	signatureSchemeED25519      = 0x00
)

// Marshal returns the BCS encoding of the transaction data.
func (d *TransactionData) Marshal() ([]byte, error) {
	if len(d.Commands) == 0 {
		return nil, xerrors.Errorf("transaction has no commands")
	}
	var e encoder
	e.variant(transactionDataV1)

	// kind
	e.variant(transactionKindProgrammable)
	e.length(len(d.Inputs))
	for i, in := range d.Inputs {
		if err := in.encode(&e); err != nil {
			return nil, xerrors.Errorf("input %d: %w", i, err)
		}
	}
	e.length(len(d.Commands))
	for _, c := range d.Commands {
		c.encode(&e)
	}

	e.objectID(d.Sender)

	// gas data
	e.length(len(d.Gas.Payment))
	for _, ref := range d.Gas.Payment {
		ref.encode(&e)
	}
	e.objectID(d.Gas.Owner)
	e.u64(d.Gas.Price)
	e.u64(d.Gas.Budget)

	e.variant(transactionExpirationNone)
	return e.Bytes(), nil
}

// SigningDigest is the blake2b-256 hash of the intent message wrapping txBytes.
func SigningDigest(txBytes []byte) [32]byte {
	h := blake2b.New256()
	_, _ = h.Write([]byte{intentScopeTransactionData, intentVersionV0, intentAppIDSui})
	_, _ = h.Write(txBytes)
	var out [32]byte
	copy(out[:], h.Sum(nil))
	return out
}

func (a CallArg) encode(e *encoder) error {
	switch {
	case a.Pure != nil:
		e.variant(callArgPure)
		e.bytes(a.Pure)
	case a.ImmOrOwned != nil:
		e.variant(callArgObject)
		e.variant(objectArgImmOrOwned)
		a.ImmOrOwned.encode(e)
	case a.Shared != nil:
		e.variant(callArgObject)
		e.variant(objectArgShared)
		e.objectID(a.Shared.ObjectID)
		e.u64(a.Shared.InitialSharedVersion)
		e.bool(a.Shared.Mutable)
	default:
		return xerrors.Errorf("unresolved call argument")
	}
	return nil
}

func (r ObjectRef) encode(e *encoder) {
	e.objectID(r.ObjectID)
	e.u64(r.Version)
	e.bytes(r.Digest[:])
}

func (a Argument) encode(e *encoder) {
	e.variant(int(a.Kind))
	switch a.Kind {
	case ArgInput, ArgResult:
		e.u16(a.Index)
	case ArgNestedResult:
		e.u16(a.Index)
		e.u16(a.NestedIndex)
	}
}

func (s StructTag) encode(e *encoder) {
	e.variant(typeTagStruct)
	e.objectID(s.Address)
	e.string(s.Module)
	e.string(s.Name)
	e.length(0) // type params
}

func (c *MoveCall) encode(e *encoder) {
	e.variant(commandMoveCall)
	e.objectID(c.Target.Package)
	e.string(c.Target.Module)
	e.string(c.Target.Function)
	e.length(len(c.TypeArguments))
	for _, t := range c.TypeArguments {
		t.encode(e)
	}
	e.length(len(c.Arguments))
	for _, a := range c.Arguments {
		a.encode(e)
	}
}

func (c *Upgrade) encode(e *encoder) {
	e.variant(commandUpgrade)
	e.length(len(c.Modules))
	for _, m := range c.Modules {
		e.bytes(m)
	}
	e.length(len(c.Dependencies))
	for _, d := range c.Dependencies {
		e.objectID(d)
	}
	e.objectID(c.Package)
	c.Ticket.encode(e)
}

// SerializeSignature returns the wire form of an ed25519 signature: scheme flag | signature | public key.
func SerializeSignature(sig, pub []byte) []byte {
	out := make([]byte, 0, 1+len(sig)+len(pub))
	out = append(out, signatureSchemeED25519)
	out = append(out, sig...)
	return append(out, pub...)
}

// AddressFromPublicKey derives the account address of an ed25519 public key.
func AddressFromPublicKey(pub []byte) Address {
	h := blake2b.New256()
	_, _ = h.Write([]byte{signatureSchemeED25519})
	_, _ = h.Write(pub)
	var out Address
	copy(out[:], h.Sum(nil))
	return out
}
