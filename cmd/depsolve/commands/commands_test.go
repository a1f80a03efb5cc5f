package commands

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/depsolve/go-depsolve/lockfile"
)

const testSnapshot = `
[packages.alpha]
name = "alpha"

[packages.alpha.releases."1.0"]
requirements = ["beta >=1.0"]

[packages.beta]
name = "beta"

[packages.beta.releases."1.2"]
`

const testManifest = `[project]
name = "demo"
requires = ">=3.9"
dependencies = ["alpha >=1.0"]
`

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cli := New()
	var out, errOut bytes.Buffer
	cli.SetOutput(&out, &errOut)
	cli.SetArgs(args)
	err := cli.Execute(context.Background())
	return out.String(), err
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestResolveCommand(t *testing.T) {
	dir := t.TempDir()
	manifest := writeFile(t, dir, "depsolve.toml", testManifest)
	snapshot := writeFile(t, dir, "snapshot.toml", testSnapshot)
	lockPath := filepath.Join(dir, "depsolve.lock")

	out, err := runCLI(t, "resolve",
		"--manifest", manifest,
		"--snapshot", snapshot,
		"--output", lockPath)
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	if !strings.Contains(out, "Locked 2 packages") {
		t.Errorf("output = %q", out)
	}

	doc, err := lockfile.ReadFile(lockPath)
	if err != nil {
		t.Fatalf("reading written lock: %v", err)
	}
	if _, ok := doc.Package("beta"); !ok {
		t.Error("beta missing from written lock")
	}
	if doc.Metadata.Requires != ">=3.9" {
		t.Errorf("lock Requires = %q", doc.Metadata.Requires)
	}
}

func TestVersionShorthand(t *testing.T) {
	// -v is the version flag's shorthand; --verbose deliberately has none,
	// so registering both must not collide when cobra merges flag sets.
	out, err := runCLI(t, "-v")
	if err != nil {
		t.Fatalf("-v failed: %v", err)
	}
	if !strings.Contains(out, Version) {
		t.Errorf("output = %q, want it to contain %q", out, Version)
	}
}

func TestResolveCommandVerbose(t *testing.T) {
	dir := t.TempDir()
	manifest := writeFile(t, dir, "depsolve.toml", testManifest)
	snapshot := writeFile(t, dir, "snapshot.toml", testSnapshot)
	lockPath := filepath.Join(dir, "depsolve.lock")

	out, err := runCLI(t, "resolve", "--verbose",
		"--manifest", manifest,
		"--snapshot", snapshot,
		"--output", lockPath)
	if err != nil {
		t.Fatalf("resolve --verbose failed: %v", err)
	}
	if !strings.Contains(out, "Locked 2 packages") {
		t.Errorf("output = %q", out)
	}
}

func TestResolveCommandRequiresSource(t *testing.T) {
	dir := t.TempDir()
	manifest := writeFile(t, dir, "depsolve.toml", testManifest)

	if _, err := runCLI(t, "resolve", "--manifest", manifest); err == nil {
		t.Error("resolve without --index/--snapshot succeeded")
	}
}

func TestVerifyCommand(t *testing.T) {
	dir := t.TempDir()

	content := []byte("artifact bytes")
	doc := lockfile.New()
	doc.Add(lockfile.Entry{
		Name:    "alpha",
		Version: "1.0",
		Artifacts: []lockfile.Artifact{
			{File: "alpha-1.0.tar.gz", Digest: lockfile.SHA256Digest(content)},
		},
	})
	lockPath := filepath.Join(dir, "depsolve.lock")
	if err := doc.WriteFile(lockPath); err != nil {
		t.Fatal(err)
	}
	writeFile(t, dir, "alpha-1.0.tar.gz", string(content))

	out, err := runCLI(t, "verify", lockPath, "--artifacts", dir)
	if err != nil {
		t.Fatalf("verify failed: %v", err)
	}
	if !strings.Contains(out, "All artifact digests OK") {
		t.Errorf("output = %q", out)
	}

	// Corrupt the artifact: verification must fail.
	writeFile(t, dir, "alpha-1.0.tar.gz", "tampered")
	if _, err := runCLI(t, "verify", lockPath, "--artifacts", dir); err == nil {
		t.Error("verify of a tampered artifact succeeded")
	}
}

func TestDiffCommand(t *testing.T) {
	dir := t.TempDir()

	oldDoc := lockfile.New()
	oldDoc.Add(lockfile.Entry{Name: "alpha", Version: "1.0"})
	newDoc := lockfile.New()
	newDoc.Add(lockfile.Entry{Name: "alpha", Version: "1.1"})
	newDoc.Add(lockfile.Entry{Name: "beta", Version: "2.0"})

	oldPath := filepath.Join(dir, "old.lock")
	newPath := filepath.Join(dir, "new.lock")
	if err := oldDoc.WriteFile(oldPath); err != nil {
		t.Fatal(err)
	}
	if err := newDoc.WriteFile(newPath); err != nil {
		t.Fatal(err)
	}

	out, err := runCLI(t, "diff", oldPath, newPath)
	if err != nil {
		t.Fatalf("diff failed: %v", err)
	}
	if !strings.Contains(out, "+ beta 2.0") || !strings.Contains(out, "~ alpha 1.0 -> 1.1") {
		t.Errorf("output = %q", out)
	}

	same, err := runCLI(t, "diff", newPath, newPath)
	if err != nil {
		t.Fatalf("self diff failed: %v", err)
	}
	if !strings.Contains(same, "identical") {
		t.Errorf("output = %q", same)
	}
}
