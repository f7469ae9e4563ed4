package vaa

import (
	"bytes"
	"encoding/binary"

	"golang.org/x/xerrors"
)

// ModuleLength is the width of the module tag at the start of every governance action.
const ModuleLength = 32

// DigestLength is the length of a package digest carried by a contract upgrade.
const DigestLength = 32

// upgradeActionLength is module | action | target chain | digest.
const upgradeActionLength = ModuleLength + 1 + 2 + DigestLength

// CoreModule is the module tag of the Wormhole core contract, "Core" left padded with zeroes.
var CoreModule = mustLeftPad("Core")

// GovernanceEmitter identifies the sender of governance messages. Consumers must
// check both fields before trusting a governance payload.
type GovernanceEmitter struct {
	Chain   ChainID
	Address Address
}

// DefaultGovernanceEmitter is the emitter used by Wormhole mainnet and testnet.
var DefaultGovernanceEmitter = GovernanceEmitter{
	Chain:   ChainIDSolana,
	Address: Address{31: 4},
}

// GovernanceMessage is a decoded governance action.
type GovernanceMessage struct {
	Module        [ModuleLength]byte
	Action        GovernanceAction
	TargetChainID ChainID
	Payload       []byte
}

// ModuleName returns the module tag without its zero padding.
func (m *GovernanceMessage) ModuleName() string {
	return string(bytes.TrimLeft(m.Module[:], "\x00"))
}

// BodyContractUpgrade is a governance message that authorizes an upgrade of a
// module to the package whose digest is NewDigest.
type BodyContractUpgrade struct {
	Module        string
	TargetChainID ChainID
	NewDigest     []byte
}

// Serialize encodes the upgrade action.
func (b BodyContractUpgrade) Serialize() ([]byte, error) {
	if len(b.NewDigest) != DigestLength {
		return nil, xerrors.Errorf("%w: digest must be %d bytes, got %d", ErrEncoding, DigestLength, len(b.NewDigest))
	}
	module, err := LeftPadBytes(b.Module, ModuleLength)
	if err != nil {
		return nil, err
	}

	buf := bytes.NewBuffer(make([]byte, 0, upgradeActionLength))
	buf.Write(module)
	MustWrite(buf, binary.BigEndian, ActionContractUpgrade)
	MustWrite(buf, binary.BigEndian, uint16(b.TargetChainID))
	buf.Write(b.NewDigest)
	return buf.Bytes(), nil
}

// EncodeUpgradeAction encodes a core contract upgrade for targetChain. A target of
// ChainIDUnset authorizes the upgrade on any chain.
func EncodeUpgradeAction(targetChain ChainID, digest []byte) ([]byte, error) {
	return BodyContractUpgrade{
		Module:        "Core",
		TargetChainID: targetChain,
		NewDigest:     digest,
	}.Serialize()
}

// DecodeGovernanceAction decodes a governance action. Only contract upgrades are
// understood; anything else is rejected.
func DecodeGovernanceAction(data []byte) (*GovernanceMessage, error) {
	if len(data) < ModuleLength+3 {
		return nil, xerrors.Errorf("%w: governance action too short: %d bytes", ErrEncoding, len(data))
	}

	m := &GovernanceMessage{}
	copy(m.Module[:], data[:ModuleLength])
	m.Action = GovernanceAction(data[ModuleLength])
	m.TargetChainID = ChainID(binary.BigEndian.Uint16(data[ModuleLength+1:]))

	switch m.Action {
	case ActionContractUpgrade:
		if len(data) != upgradeActionLength {
			return nil, xerrors.Errorf("%w: contract upgrade must be %d bytes, got %d", ErrEncoding, upgradeActionLength, len(data))
		}
	default:
		return nil, xerrors.Errorf("%w: %s", ErrEncoding, m.Action)
	}

	m.Payload = make([]byte, len(data)-ModuleLength-3)
	copy(m.Payload, data[ModuleLength+3:])
	return m, nil
}

// LeftPadBytes left pads payload with zeroes to length bytes.
func LeftPadBytes(payload string, length int) ([]byte, error) {
	if length < 0 {
		return nil, xerrors.Errorf("%w: cannot prepend bytes to a negative length buffer", ErrEncoding)
	}
	if len(payload) > length {
		return nil, xerrors.Errorf("%w: %q does not fit in %d bytes", ErrEncoding, payload, length)
	}

	buf := make([]byte, length)
	copy(buf[length-len(payload):], payload)
	return buf, nil
}

func mustLeftPad(s string) []byte {
	b, err := LeftPadBytes(s, ModuleLength)
	if err != nil {
		panic(err)
	}
	return b
}

// MustWrite calls binary.Write and panics on errors. Writes to a bytes.Buffer cannot fail.
func MustWrite(w *bytes.Buffer, order binary.ByteOrder, data interface{}) {
	if err := binary.Write(w, order, data); err != nil {
		panic(xerrors.Errorf("failed to write binary data: %v", data).Error())
	}
}
