package builder

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"sort"

	"github.com/minio/blake2b-simd"
	"golang.org/x/xerrors"

	"github.com/wormhole-foundation/suigov/ptb"
)

// ErrDigestMismatch is returned when an artifact's modules and dependencies do not
// hash to its declared digest, or when the digest is not the one a VAA authorizes.
var ErrDigestMismatch = errors.New("package digest mismatch")

// Artifact is the output of a package build. Modules and Digest are bound: the
// ledger recomputes the digest of the submitted modules and rejects an upgrade
// whose ticket was issued for another digest.
type Artifact struct {
	Modules      [][]byte
	Dependencies []ptb.ObjectID
	Digest       [32]byte
}

// A Provider builds a package and returns its bytecode, dependencies and digest.
type Provider interface {
	Build(ctx context.Context, packagePath string) (*Artifact, error)
}

type buildOutput struct {
	Modules      []string `json:"modules"`
	Dependencies []string `json:"dependencies"`
	Digest       []int    `json:"digest"`
}

// DecodeBuildOutput parses the JSON printed by `sui move build --dump-bytecode-as-base64`.
func DecodeBuildOutput(data []byte) (*Artifact, error) {
	var out buildOutput
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, xerrors.Errorf("decode build output: %w", err)
	}
	if len(out.Modules) == 0 {
		return nil, xerrors.Errorf("build output has no modules")
	}
	if len(out.Digest) != 32 {
		return nil, xerrors.Errorf("build output digest is %d bytes, expected 32", len(out.Digest))
	}

	a := &Artifact{
		Modules:      make([][]byte, 0, len(out.Modules)),
		Dependencies: make([]ptb.ObjectID, 0, len(out.Dependencies)),
	}
	for i, m := range out.Modules {
		b, err := base64.StdEncoding.DecodeString(m)
		if err != nil {
			return nil, xerrors.Errorf("decode module %d: %w", i, err)
		}
		a.Modules = append(a.Modules, b)
	}
	for _, d := range out.Dependencies {
		id, err := ptb.ParseObjectID(d)
		if err != nil {
			return nil, xerrors.Errorf("dependency: %w", err)
		}
		a.Dependencies = append(a.Dependencies, id)
	}
	for i, v := range out.Digest {
		if v < 0 || v > 0xff {
			return nil, xerrors.Errorf("digest byte %d out of range: %d", i, v)
		}
		a.Digest[i] = byte(v)
	}
	return a, nil
}

// ComputeDigest returns the package digest the ledger derives from modules and
// dependencies: blake2b-256 over the sorted set of module hashes and dependency ids.
func ComputeDigest(modules [][]byte, deps []ptb.ObjectID) [32]byte {
	components := make([][]byte, 0, len(modules)+len(deps))
	for _, m := range modules {
		h := blake2b.New256()
		_, _ = h.Write(m)
		components = append(components, h.Sum(nil))
	}
	for i := range deps {
		components = append(components, deps[i][:])
	}
	sort.Slice(components, func(i, j int) bool {
		return bytes.Compare(components[i], components[j]) < 0
	})

	h := blake2b.New256()
	for _, c := range components {
		_, _ = h.Write(c)
	}
	var out [32]byte
	copy(out[:], h.Sum(nil))
	return out
}

// Verify checks the declared digest matches the modules and dependencies.
func (a *Artifact) Verify() error {
	if got := ComputeDigest(a.Modules, a.Dependencies); got != a.Digest {
		return xerrors.Errorf("%w: modules hash to %x, artifact declares %x", ErrDigestMismatch, got, a.Digest)
	}
	return nil
}

// VerifyAuthorized checks the artifact is the one authorized by digest.
func (a *Artifact) VerifyAuthorized(digest []byte) error {
	if !bytes.Equal(a.Digest[:], digest) {
		return xerrors.Errorf("%w: artifact digest %x, authorized digest %s", ErrDigestMismatch, a.Digest, hex.EncodeToString(digest))
	}
	return nil
}
