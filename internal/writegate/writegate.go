// Package writegate routes every file mutation through a single point that
// either previews the change as a unified diff (dry run) or replaces the
// target atomically (execute).
package writegate

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/pmezard/go-difflib/difflib"

	"github.com/eykd/shipcrate/internal/logging"
)

// FS is the filesystem surface the gate needs.
type FS interface {
	ReadFile(ctx context.Context, path string) ([]byte, error)
	WriteFileAtomic(ctx context.Context, path string, data []byte) error
}

// Notifier receives "action: detail" status lines.
type Notifier interface {
	Status(action, detail string)
}

// Change is one proposed file mutation.
type Change struct {
	Path   string
	Action string // status verb, e.g. "Replacing"
	Label  string // diff label for the proposed side, e.g. "replaced"
	Detail string // dry-run notice detail; defaults to "in PATH"
	Before []byte
	After  []byte
}

// Result is the outcome of a Commit.
type Result struct {
	Path    string `json:"path"`
	Changed bool   `json:"changed"`
	Written bool   `json:"written"`
	Diff    string `json:"diff,omitempty"`
}

// Gate commits changes. In dry-run mode proposed content is kept in an
// in-memory overlay so later reads through the gate observe it, which makes a
// dry run compute exactly what an execute run would write.
//
// A Gate is not safe for concurrent use.
type Gate struct {
	FS      FS
	DryRun  bool
	Verbose bool
	Notify  Notifier     // may be nil
	Logger  *slog.Logger // may be nil

	overlay map[string][]byte
}

// New returns a Gate over fs.
func New(fs FS, dryRun bool) *Gate {
	return &Gate{FS: fs, DryRun: dryRun}
}

func (g *Gate) logger() *slog.Logger {
	if g.Logger != nil {
		return g.Logger
	}
	return slog.Default()
}

func overlayKey(path string) string {
	if abs, err := filepath.Abs(path); err == nil {
		return abs
	}
	return filepath.Clean(path)
}

// ReadFile returns the current content of path, including changes proposed
// earlier in a dry run.
func (g *Gate) ReadFile(ctx context.Context, path string) ([]byte, error) {
	if data, ok := g.overlay[overlayKey(path)]; ok {
		return append([]byte(nil), data...), nil
	}
	return g.FS.ReadFile(ctx, path)
}

// Commit applies c. Identical content is reported unchanged and neither
// diffed nor written.
func (g *Gate) Commit(ctx context.Context, c Change) (Result, error) {
	res := Result{Path: c.Path}
	if bytes.Equal(c.Before, c.After) {
		logging.Trace(ctx, g.logger(), "unchanged", "path", c.Path)
		return res, nil
	}
	res.Changed = true

	label := c.Label
	if label == "" {
		label = "updated"
	}
	res.Diff = UnifiedDiff(c.Path, c.Before, c.After, "original", label)
	g.logger().Debug("change", "path", c.Path, "diff", res.Diff)

	if g.DryRun {
		if g.overlay == nil {
			g.overlay = make(map[string][]byte)
		}
		g.overlay[overlayKey(c.Path)] = append([]byte(nil), c.After...)
		if g.Notify != nil && c.Action != "" {
			detail := c.Detail
			if detail == "" {
				detail = "in " + c.Path
			}
			if g.Verbose {
				detail += "\n" + strings.TrimRight(res.Diff, "\n")
			}
			g.Notify.Status(c.Action, detail)
		}
		return res, nil
	}

	if err := g.FS.WriteFileAtomic(ctx, c.Path, c.After); err != nil {
		return res, fmt.Errorf("writing %s: %w", c.Path, err)
	}
	res.Written = true
	return res, nil
}

// UnifiedDiff returns a zero-context unified diff of before and after.
func UnifiedDiff(path string, before, after []byte, fromLabel, toLabel string) string {
	text, err := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        difflib.SplitLines(string(before)),
		B:        difflib.SplitLines(string(after)),
		FromFile: path,
		ToFile:   path,
		FromDate: fromLabel,
		ToDate:   toLabel,
		Context:  0,
	})
	if err != nil {
		return ""
	}
	return text
}

// OSFS implements FS using the operating system.
type OSFS struct{}

// ReadFile reads the file at path.
func (OSFS) ReadFile(_ context.Context, path string) ([]byte, error) {
	return os.ReadFile(path)
}

// WriteFileAtomic replaces path with data via a sibling temp file.
func (OSFS) WriteFileAtomic(_ context.Context, path string, data []byte) error {
	return WriteFileAtomic(path, data)
}

// WriteFileAtomic writes data to a temp file in the directory of path and
// renames it over path, so readers see either the old or the new content.
// The permissions of an existing file are kept.
func WriteFileAtomic(path string, data []byte) error {
	perm := os.FileMode(0o644)
	if info, err := os.Stat(path); err == nil {
		perm = info.Mode().Perm()
	}

	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+"-*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err = tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("writing temp file: %w", err)
	}
	if err = tmp.Sync(); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("syncing temp file: %w", err)
	}
	if err = tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("closing temp file: %w", err)
	}
	if err = os.Chmod(tmpName, perm); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("setting permissions: %w", err)
	}
	if err = os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("renaming temp file: %w", err)
	}
	return nil
}
