package builder

import (
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/xerrors"
)

// stagingRemovals are files that do not take part in the build and would confuse it.
var stagingRemovals = []string{
	"Move.devnet.toml",
	"Move.lock",
	"Makefile",
	"README.md",
	"build",
}

// Stage copies the package at src to dst and rewrites the named address of the
// package in Move.toml from the "_" placeholder to "0x0", the form an upgrade
// build requires.
func Stage(src, dst, packageName string) error {
	if err := copyDir(src, dst); err != nil {
		return xerrors.Errorf("copy package: %w", err)
	}

	for _, name := range stagingRemovals {
		if err := os.RemoveAll(filepath.Join(dst, name)); err != nil {
			return xerrors.Errorf("remove %s: %w", name, err)
		}
	}

	manifest := filepath.Join(dst, "Move.toml")
	data, err := os.ReadFile(manifest) // #nosec G304
	if err != nil {
		return xerrors.Errorf("read manifest: %w", err)
	}
	rewritten := RewriteManifest(string(data), packageName)
	if err := os.WriteFile(manifest, []byte(rewritten), 0o600); err != nil {
		return xerrors.Errorf("write manifest: %w", err)
	}

	log.Infow("staged package", "src", src, "dst", dst)
	return nil
}

// RewriteManifest replaces `<name> = "_"` with `<name> = "0x0"`.
func RewriteManifest(manifest, packageName string) string {
	return strings.Replace(manifest, packageName+` = "_"`, packageName+` = "0x0"`, 1)
}

// Cleanup removes a staged package directory.
func Cleanup(dst string) error {
	if err := os.RemoveAll(dst); err != nil {
		return xerrors.Errorf("clean up %s: %w", dst, err)
	}
	return nil
}

func copyDir(src, dst string) error {
	return filepath.WalkDir(src, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		target := filepath.Join(dst, rel)

		if d.IsDir() {
			return os.MkdirAll(target, 0o755)
		}
		if !d.Type().IsRegular() {
			return nil
		}
		return copyFile(path, target)
	})
}

func copyFile(src, dst string) error {
	in, err := os.Open(src) // #nosec G304
	if err != nil {
		return err
	}
	defer in.Close() //nolint:errcheck // read only

	out, err := os.Create(dst) // #nosec G304
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		return err
	}
	return out.Close()
}
