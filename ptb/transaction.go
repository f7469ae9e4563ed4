package ptb

import (
	"fmt"
	"strings"

	"golang.org/x/xerrors"
)

// ArgumentKind says where a command argument comes from.
type ArgumentKind uint8

const (
	ArgGasCoin ArgumentKind = iota
	ArgInput
	ArgResult
	ArgNestedResult
)

// Argument refers to a transaction input or to the result of an earlier command.
type Argument struct {
	Kind        ArgumentKind
	Index       uint16
	NestedIndex uint16
}

func (a Argument) String() string {
	switch a.Kind {
	case ArgGasCoin:
		return "GasCoin"
	case ArgInput:
		return fmt.Sprintf("Input(%d)", a.Index)
	case ArgResult:
		return fmt.Sprintf("Result(%d)", a.Index)
	default:
		return fmt.Sprintf("NestedResult(%d,%d)", a.Index, a.NestedIndex)
	}
}

// InputKind distinguishes pure values from object references.
type InputKind uint8

const (
	InputPure InputKind = iota
	InputObject
)

// Input is an unresolved transaction input. Object inputs are resolved to
// shared or owned references by the ledger client when the transaction is signed.
type Input struct {
	Kind    InputKind
	Pure    []byte
	Object  ObjectID
	Mutable bool
}

// Target names a Move function.
type Target struct {
	Package  ObjectID
	Module   string
	Function string
}

func (t Target) String() string {
	return fmt.Sprintf("%s::%s::%s", t.Package, t.Module, t.Function)
}

// StructTag names a Move struct type without type parameters.
type StructTag struct {
	Address ObjectID
	Module  string
	Name    string
}

func (s StructTag) String() string {
	return fmt.Sprintf("%s::%s::%s", s.Address, s.Module, s.Name)
}

// ParseStructTag parses "address::module::Name".
func ParseStructTag(s string) (StructTag, error) {
	parts := strings.Split(s, "::")
	if len(parts) != 3 || parts[1] == "" || parts[2] == "" {
		return StructTag{}, xerrors.Errorf("invalid struct tag %q", s)
	}
	addr, err := ParseObjectID(parts[0])
	if err != nil {
		return StructTag{}, xerrors.Errorf("struct tag %q: %w", s, err)
	}
	return StructTag{Address: addr, Module: parts[1], Name: parts[2]}, nil
}

// Command is one step of a programmable transaction.
type Command interface {
	// Name is a short description used in logs and tests, e.g. "vaa::parse_and_verify".
	Name() string
	encode(e *encoder)
}

// MoveCall calls a Move function.
type MoveCall struct {
	Target        Target
	TypeArguments []StructTag
	Arguments     []Argument
}

func (c *MoveCall) Name() string {
	return c.Target.Module + "::" + c.Target.Function
}

// Upgrade publishes new bytecode for Package, authorized by Ticket.
type Upgrade struct {
	Modules      [][]byte
	Dependencies []ObjectID
	Package      ObjectID
	Ticket       Argument
}

func (c *Upgrade) Name() string {
	return "upgrade"
}

// Transaction is a programmable transaction: inputs plus an ordered list of commands
// whose results may feed later commands. The ledger executes it atomically.
type Transaction struct {
	Inputs   []Input
	Commands []Command
}

func New() *Transaction {
	return &Transaction{}
}

// Object adds an object input, or returns the existing input for id. Asking for a
// mutable reference to an input first added as immutable makes it mutable.
func (tx *Transaction) Object(id ObjectID, mutable bool) Argument {
	for i := range tx.Inputs {
		in := &tx.Inputs[i]
		if in.Kind == InputObject && in.Object == id {
			in.Mutable = in.Mutable || mutable
			return Argument{Kind: ArgInput, Index: uint16(i)} // #nosec G115
		}
	}
	tx.Inputs = append(tx.Inputs, Input{Kind: InputObject, Object: id, Mutable: mutable})
	return Argument{Kind: ArgInput, Index: uint16(len(tx.Inputs) - 1)} // #nosec G115
}

// PureBytes adds a vector<u8> input.
func (tx *Transaction) PureBytes(b []byte) Argument {
	tx.Inputs = append(tx.Inputs, Input{Kind: InputPure, Pure: EncodeBytes(b)})
	return Argument{Kind: ArgInput, Index: uint16(len(tx.Inputs) - 1)} // #nosec G115
}

// MoveCall appends a call and returns a handle to its result.
func (tx *Transaction) MoveCall(target Target, typeArgs []StructTag, args ...Argument) Argument {
	return tx.add(&MoveCall{Target: target, TypeArguments: typeArgs, Arguments: args})
}

// Upgrade appends a package upgrade and returns a handle to its receipt.
func (tx *Transaction) Upgrade(modules [][]byte, deps []ObjectID, pkg ObjectID, ticket Argument) Argument {
	return tx.add(&Upgrade{Modules: modules, Dependencies: deps, Package: pkg, Ticket: ticket})
}

func (tx *Transaction) add(c Command) Argument {
	tx.Commands = append(tx.Commands, c)
	return Argument{Kind: ArgResult, Index: uint16(len(tx.Commands) - 1)} // #nosec G115
}

// CommandNames lists the commands in execution order.
func (tx *Transaction) CommandNames() []string {
	names := make([]string, 0, len(tx.Commands))
	for _, c := range tx.Commands {
		names = append(names, c.Name())
	}
	return names
}

// Validate checks every argument refers to an existing input or to the result of
// an earlier command.
func (tx *Transaction) Validate() error {
	if len(tx.Commands) == 0 {
		return xerrors.Errorf("transaction has no commands")
	}
	check := func(cmd int, a Argument) error {
		switch a.Kind {
		case ArgGasCoin:
			return nil
		case ArgInput:
			if int(a.Index) >= len(tx.Inputs) {
				return xerrors.Errorf("command %d: %s out of range", cmd, a)
			}
		case ArgResult, ArgNestedResult:
			if int(a.Index) >= cmd {
				return xerrors.Errorf("command %d: %s does not refer to an earlier command", cmd, a)
			}
		}
		return nil
	}
	for i, c := range tx.Commands {
		var args []Argument
		switch c := c.(type) {
		case *MoveCall:
			args = c.Arguments
		case *Upgrade:
			args = []Argument{c.Ticket}
		}
		for _, a := range args {
			if err := check(i, a); err != nil {
				return err
			}
		}
	}
	return nil
}
