package sui

import (
	"crypto/ed25519"
	"encoding/base64"
	"errors"
	"strings"

	"golang.org/x/xerrors"

	"github.com/wormhole-foundation/suigov/ptb"
)

var ErrInvalidKey = errors.New("invalid wallet key")

// flag byte prefixing ed25519 entries of a sui keystore
const ed25519KeystoreFlag = 0x00

// Keypair is the ed25519 key of the account that sends and pays for transactions.
type Keypair struct {
	priv ed25519.PrivateKey
}

// ParseKeystoreKey decodes a base64 keystore entry: a scheme flag followed by a
// 32 byte seed. A bare 32 byte seed is accepted as well.
func ParseKeystoreKey(encoded string) (*Keypair, error) {
	raw, err := base64.StdEncoding.DecodeString(strings.TrimSpace(encoded))
	if err != nil {
		return nil, xerrors.Errorf("decode base64: %w", ErrInvalidKey)
	}
	switch len(raw) {
	case ed25519.SeedSize + 1:
		if raw[0] != ed25519KeystoreFlag {
			return nil, xerrors.Errorf("unsupported signature scheme %#x: %w", raw[0], ErrInvalidKey)
		}
		raw = raw[1:]
	case ed25519.SeedSize:
	default:
		return nil, xerrors.Errorf("key is %d bytes: %w", len(raw), ErrInvalidKey)
	}
	return NewKeypair(raw), nil
}

func NewKeypair(seed []byte) *Keypair {
	return &Keypair{priv: ed25519.NewKeyFromSeed(seed)}
}

func (k *Keypair) PublicKey() ed25519.PublicKey {
	return k.priv.Public().(ed25519.PublicKey)
}

func (k *Keypair) Address() ptb.Address {
	return ptb.AddressFromPublicKey(k.PublicKey())
}

// SignTransaction signs the intent message of txBytes and returns the serialized signature.
func (k *Keypair) SignTransaction(txBytes []byte) []byte {
	digest := ptb.SigningDigest(txBytes)
	return ptb.SerializeSignature(ed25519.Sign(k.priv, digest[:]), k.PublicKey())
}
