package builder

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wormhole-foundation/suigov/ptb"
)

func fixtureOutput(t testing.TB, modules [][]byte, deps []string, digest [32]byte) []byte {
	out := buildOutput{Dependencies: deps}
	for _, m := range modules {
		out.Modules = append(out.Modules, base64.StdEncoding.EncodeToString(m))
	}
	for _, b := range digest {
		out.Digest = append(out.Digest, int(b))
	}
	data, err := json.Marshal(out)
	require.NoError(t, err)
	return data
}

func TestDecodeBuildOutput(t *testing.T) {
	modules := [][]byte{{0xa1, 0x1c, 0xeb, 0x0b}, {0x01, 0x02}}
	deps := []string{"0x1", "0x2"}
	digest := ComputeDigest(modules, []ptb.ObjectID{ptb.MustParseObjectID("0x1"), ptb.MustParseObjectID("0x2")})

	a, err := DecodeBuildOutput(fixtureOutput(t, modules, deps, digest))
	require.NoError(t, err)
	assert.Equal(t, modules, a.Modules)
	assert.Equal(t, "0x0000000000000000000000000000000000000000000000000000000000000001", a.Dependencies[0].String())
	assert.Equal(t, digest, a.Digest)
	assert.NoError(t, a.Verify())
}

func TestDecodeBuildOutputErrors(t *testing.T) {
	testCases := map[string]string{
		"not json":      `modules`,
		"no modules":    `{"modules":[],"dependencies":[],"digest":[]}`,
		"short digest":  `{"modules":["AQ=="],"dependencies":[],"digest":[1,2,3]}`,
		"bad base64":    `{"modules":["!!"],"dependencies":[],"digest":[0,0,0,0,0,0,0,0,0,0,0,0,0,0,0,0,0,0,0,0,0,0,0,0,0,0,0,0,0,0,0,0]}`,
		"bad dep":       `{"modules":["AQ=="],"dependencies":["0xzz"],"digest":[0,0,0,0,0,0,0,0,0,0,0,0,0,0,0,0,0,0,0,0,0,0,0,0,0,0,0,0,0,0,0,0]}`,
		"byte overflow": `{"modules":["AQ=="],"dependencies":[],"digest":[256,0,0,0,0,0,0,0,0,0,0,0,0,0,0,0,0,0,0,0,0,0,0,0,0,0,0,0,0,0,0,0]}`,
	}
	for name, in := range testCases {
		t.Run(name, func(t *testing.T) {
			_, err := DecodeBuildOutput([]byte(in))
			assert.Error(t, err)
		})
	}
}

func TestComputeDigestOrderIndependent(t *testing.T) {
	m1, m2 := []byte("module one"), []byte("module two")
	d1, d2 := ptb.MustParseObjectID("0x1"), ptb.MustParseObjectID("0x2")

	a := ComputeDigest([][]byte{m1, m2}, []ptb.ObjectID{d1, d2})
	b := ComputeDigest([][]byte{m2, m1}, []ptb.ObjectID{d2, d1})
	assert.Equal(t, a, b)

	c := ComputeDigest([][]byte{m1}, []ptb.ObjectID{d1, d2})
	assert.NotEqual(t, a, c)
}

func TestArtifactVerify(t *testing.T) {
	a := &Artifact{
		Modules:      [][]byte{[]byte("m")},
		Dependencies: []ptb.ObjectID{ptb.MustParseObjectID("0x2")},
	}
	a.Digest = ComputeDigest(a.Modules, a.Dependencies)
	require.NoError(t, a.Verify())
	require.NoError(t, a.VerifyAuthorized(a.Digest[:]))

	other := *a
	other.Modules = [][]byte{[]byte("substituted")}
	assert.ErrorIs(t, other.Verify(), ErrDigestMismatch)

	assert.ErrorIs(t, a.VerifyAuthorized(make([]byte, 32)), ErrDigestMismatch)
}

func TestRewriteManifest(t *testing.T) {
	in := "[addresses]\nwormhole = \"_\"\nsui = \"0x2\"\n"
	assert.Equal(t, "[addresses]\nwormhole = \"0x0\"\nsui = \"0x2\"\n", RewriteManifest(in, "wormhole"))
	assert.Equal(t, in, RewriteManifest(in, "token_bridge"))
}

func TestStageAndCleanup(t *testing.T) {
	src := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(src, "Move.toml"), []byte("[addresses]\nwormhole = \"_\"\n"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(src, "Move.lock"), []byte("lock"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(src, "README.md"), []byte("readme"), 0o600))
	require.NoError(t, os.MkdirAll(filepath.Join(src, "sources"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(src, "sources", "vaa.move"), []byte("module wormhole::vaa {}"), 0o600))
	require.NoError(t, os.MkdirAll(filepath.Join(src, "build", "wormhole"), 0o755))

	dst := filepath.Join(t.TempDir(), "staged")
	require.NoError(t, Stage(src, dst, "wormhole"))

	manifest, err := os.ReadFile(filepath.Join(dst, "Move.toml"))
	require.NoError(t, err)
	assert.Contains(t, string(manifest), `wormhole = "0x0"`)

	assert.FileExists(t, filepath.Join(dst, "sources", "vaa.move"))
	assert.NoFileExists(t, filepath.Join(dst, "Move.lock"))
	assert.NoFileExists(t, filepath.Join(dst, "README.md"))
	assert.NoDirExists(t, filepath.Join(dst, "build"))

	// the source is untouched
	assert.FileExists(t, filepath.Join(src, "Move.lock"))

	require.NoError(t, Cleanup(dst))
	assert.NoDirExists(t, dst)
}

func TestSuiMoveBuild(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("uses a shell script in place of the sui binary")
	}

	modules := [][]byte{[]byte("bytecode")}
	digest := ComputeDigest(modules, nil)
	out := fixtureOutput(t, modules, []string{}, digest)

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "out.json"), out, 0o600))
	script := filepath.Join(dir, "sui")
	require.NoError(t, os.WriteFile(script, []byte("#!/bin/sh\ncat \""+filepath.Join(dir, "out.json")+"\"\n"), 0o700)) // #nosec G306

	a, err := (&SuiMove{Binary: script}).Build(context.Background(), dir)
	require.NoError(t, err)
	assert.Equal(t, modules, a.Modules)
	assert.Equal(t, digest, a.Digest)

	failing := filepath.Join(dir, "fail")
	require.NoError(t, os.WriteFile(failing, []byte("#!/bin/sh\necho 'error: package not found' >&2\nexit 1\n"), 0o700)) // #nosec G306
	_, err = (&SuiMove{Binary: failing}).Build(context.Background(), dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "package not found")
}
