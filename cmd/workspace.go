package cmd

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/eykd/shipcrate/internal/config"
	"github.com/eykd/shipcrate/internal/workspace"
	"github.com/eykd/shipcrate/internal/writegate"
)

// ReleaseIO handles I/O for the commands that load a workspace.
type ReleaseIO interface {
	writegate.FS
	LoadWorkspace(ctx context.Context, manifestPath, metadataFile string) (*workspace.Workspace, error)
	LoadConfig(path, workspaceRoot string) (*config.Config, error)
}

// fileReleaseIO implements ReleaseIO using OS file I/O and cargo.
type fileReleaseIO struct {
	writegate.OSFS
}

func newDefaultReleaseIO() *fileReleaseIO {
	return &fileReleaseIO{}
}

// LoadWorkspace reads workspace metadata from metadataFile when set, and
// from `cargo metadata` otherwise.
func (f *fileReleaseIO) LoadWorkspace(ctx context.Context, manifestPath, metadataFile string) (*workspace.Workspace, error) {
	if metadataFile != "" {
		return LoadMetadataFileImpl(metadataFile)
	}
	return LoadCargoMetadataImpl(ctx, manifestPath)
}

// LoadConfig loads the config file at path, or discovers one in
// workspaceRoot when path is empty.
func (f *fileReleaseIO) LoadConfig(path, workspaceRoot string) (*config.Config, error) {
	if path != "" {
		return config.Load(path)
	}
	return config.Discover(workspaceRoot)
}

// LoadMetadataFileImpl decodes pre-generated `cargo metadata` output.
// Relative paths in the file resolve against its directory. It is an Impl
// function: it performs OS filesystem operations and is excluded from unit
// test coverage calculations.
func LoadMetadataFileImpl(path string) (*workspace.Workspace, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening metadata: %w", err)
	}
	defer f.Close()

	abs, err := filepath.Abs(filepath.Dir(path))
	if err != nil {
		return nil, err
	}
	return workspace.DecodeMetadata(f, abs)
}

// LoadCargoMetadataImpl runs `$CARGO metadata` for manifestPath (the
// current directory's manifest when empty). It is an Impl function: it runs
// an external process and is excluded from unit test coverage calculations.
func LoadCargoMetadataImpl(ctx context.Context, manifestPath string) (*workspace.Workspace, error) {
	cargo := os.Getenv("CARGO")
	if cargo == "" {
		cargo = "cargo"
	}
	args := []string{"metadata", "--format-version", "1", "--all-features"}
	if manifestPath != "" {
		args = append(args, "--manifest-path", manifestPath)
	}

	var stdout, stderr bytes.Buffer
	c := exec.CommandContext(ctx, cargo, args...)
	c.Stdout = &stdout
	c.Stderr = &stderr
	if err := c.Run(); err != nil {
		return nil, fmt.Errorf("running %s metadata: %w: %s", cargo, err, strings.TrimSpace(stderr.String()))
	}
	return workspace.DecodeMetadata(&stdout, "")
}
