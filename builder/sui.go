package builder

import (
	"bytes"
	"context"
	"os/exec"
	"strings"

	logging "github.com/ipfs/go-log/v2"
	"golang.org/x/xerrors"
)

var log = logging.Logger("suigov/builder")

// SuiMove builds packages with the sui CLI.
type SuiMove struct {
	// Binary is the sui executable, "sui" when empty.
	Binary string
	// ExtraArgs are appended to the build command, for example an environment selection.
	ExtraArgs []string
}

var _ Provider = (*SuiMove)(nil)

func (s *SuiMove) Build(ctx context.Context, packagePath string) (*Artifact, error) {
	bin := s.Binary
	if bin == "" {
		bin = "sui"
	}
	args := append([]string{"move", "build", "--dump-bytecode-as-base64", "-p", packagePath}, s.ExtraArgs...)

	log.Infow("building package", "path", packagePath, "cmd", bin+" "+strings.Join(args, " "))

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, bin, args...) // #nosec G204 -- operator supplied binary and path
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		log.Debugw("build failed", "stderr", stderr.String())
		return nil, xerrors.Errorf("sui move build: %w: %s", err, strings.TrimSpace(lastLine(stderr.String())))
	}

	a, err := DecodeBuildOutput(stdout.Bytes())
	if err != nil {
		return nil, err
	}
	log.Infow("built package", "modules", len(a.Modules), "dependencies", len(a.Dependencies), "digest", a.Digest)
	return a, nil
}

func lastLine(s string) string {
	s = strings.TrimRight(s, "\n")
	if i := strings.LastIndexByte(s, '\n'); i >= 0 {
		return s[i+1:]
	}
	return s
}
