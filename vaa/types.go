package vaa

import (
	"encoding/hex"
	"fmt"
	"strings"

	"golang.org/x/xerrors"
)

// ChainID is a Wormhole chain id.
type ChainID uint16

const (
	// ChainIDUnset is used by governance actions that apply to every chain.
	ChainIDUnset  ChainID = 0
	ChainIDSolana ChainID = 1
	ChainIDSui    ChainID = 21
)

func (c ChainID) String() string {
	switch c {
	case ChainIDUnset:
		return "any"
	case ChainIDSolana:
		return "solana"
	case ChainIDSui:
		return "sui"
	default:
		return fmt.Sprintf("unknown chain ID: %d", uint16(c))
	}
}

// Address is a 32 byte emitter address.
type Address [32]byte

func (a Address) String() string {
	return hex.EncodeToString(a[:])
}

func (a Address) Bytes() []byte {
	return a[:]
}

// StringToAddress parses a hex encoded address, with or without a 0x prefix.
// Short addresses are left padded with zeroes.
func StringToAddress(value string) (Address, error) {
	var address Address
	value = strings.TrimPrefix(value, "0x")
	if len(value)%2 == 1 {
		value = "0" + value
	}
	res, err := hex.DecodeString(value)
	if err != nil {
		return address, xerrors.Errorf("%w: decode address %q: %v", ErrEncoding, value, err)
	}
	if len(res) > len(address) {
		return address, xerrors.Errorf("%w: address %q longer than 32 bytes", ErrEncoding, value)
	}
	copy(address[len(address)-len(res):], res)
	return address, nil
}

// GovernanceAction discriminates the body of a governance message.
type GovernanceAction uint8

const (
	ActionContractUpgrade GovernanceAction = 1
)

func (a GovernanceAction) String() string {
	switch a {
	case ActionContractUpgrade:
		return "ContractUpgrade"
	default:
		return fmt.Sprintf("unknown action: %d", uint8(a))
	}
}
