package vaa

import (
	"crypto/ecdsa"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"golang.org/x/xerrors"
)

// GuardianKey is a guardian private key and the guardian's position in the
// guardian set. The position is what the on-chain verifier uses to look up the
// guardian's public key, so it must match the set, not the order keys are supplied in.
type GuardianKey struct {
	Index uint8
	Key   *ecdsa.PrivateKey
}

// Address returns the guardian's Ethereum-style address.
func (g GuardianKey) Address() common.Address {
	return crypto.PubkeyToAddress(g.Key.PublicKey)
}

// ParseGuardianKey parses a hex encoded secp256k1 private key.
func ParseGuardianKey(index uint8, hexKey string) (GuardianKey, error) {
	key, err := crypto.HexToECDSA(trimHexPrefix(strings.TrimSpace(hexKey)))
	if err != nil {
		return GuardianKey{}, xerrors.Errorf("%w: guardian key %d: %v", ErrSigning, index, err)
	}
	return GuardianKey{Index: index, Key: key}, nil
}

// ParseGuardianKeys parses keys and pairs each with the guardian index at the
// same position in indices. When indices is empty keys are assigned 0..n-1.
func ParseGuardianKeys(hexKeys []string, indices []uint8) ([]GuardianKey, error) {
	if len(indices) != 0 && len(indices) != len(hexKeys) {
		return nil, xerrors.Errorf("%w: %d guardian keys but %d guardian indices", ErrSigning, len(hexKeys), len(indices))
	}

	keys := make([]GuardianKey, 0, len(hexKeys))
	for i, hk := range hexKeys {
		index := uint8(i) // #nosec G115 -- a guardian set never exceeds 255 members
		if len(indices) != 0 {
			index = indices[i]
		}
		k, err := ParseGuardianKey(index, hk)
		if err != nil {
			return nil, err
		}
		keys = append(keys, k)
	}
	return keys, nil
}

// Sign has every guardian key sign the envelope and returns the signed VAA.
// Signatures are ordered by guardian index. Signing with no keys is allowed:
// quorum is enforced by the verifier on chain, which knows the guardian set.
func Sign(envelope Envelope, keys []GuardianKey, guardianSetIndex uint32) (*VAA, error) {
	if err := envelope.Validate(); err != nil {
		return nil, err
	}
	if len(keys) > 0xff {
		return nil, xerrors.Errorf("%w: too many guardian keys: %d", ErrSigning, len(keys))
	}

	v := &VAA{
		Version:          SupportedVAAVersion,
		GuardianSetIndex: guardianSetIndex,
		Signatures:       make([]*Signature, 0, len(keys)),
		Envelope:         envelope,
	}

	digest := v.SigningDigest()
	for _, k := range keys {
		if k.Key == nil {
			return nil, xerrors.Errorf("%w: guardian %d has no key", ErrSigning, k.Index)
		}
		sig, err := crypto.Sign(digest.Bytes(), k.Key)
		if err != nil {
			return nil, xerrors.Errorf("%w: guardian %d: %v", ErrSigning, k.Index, err)
		}
		s := &Signature{Index: k.Index}
		copy(s.Signature[:], sig)
		v.Signatures = append(v.Signatures, s)
	}

	if err := sortSignatures(v.Signatures); err != nil {
		return nil, err
	}
	return v, nil
}

// SignBytes signs an already encoded envelope.
func SignBytes(envelope []byte, keys []GuardianKey, guardianSetIndex uint32) (*VAA, error) {
	e, err := UnmarshalEnvelope(envelope)
	if err != nil {
		return nil, err
	}
	return Sign(*e, keys, guardianSetIndex)
}
