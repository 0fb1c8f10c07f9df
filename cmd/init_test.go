package cmd

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/eykd/shipcrate/internal/config"
)

// mockInitIO is a test double for InitIO.
type mockInitIO struct {
	exists   bool
	statErr  error
	writeErr error
	written  map[string]string // keyed by path
}

func newMockInitIO() *mockInitIO {
	return &mockInitIO{written: make(map[string]string)}
}

func (m *mockInitIO) StatFile(string) (bool, error) {
	return m.exists, m.statErr
}

func (m *mockInitIO) WriteFileAtomic(path, content string) error {
	if m.writeErr != nil {
		return m.writeErr
	}
	m.written[path] = content
	return nil
}

func TestNewInitCmd_HasRequiredFlags(t *testing.T) {
	c := NewInitCmd(nil)
	for _, name := range []string{"manifest-path", "force"} {
		t.Run(name, func(t *testing.T) {
			if c.Flags().Lookup(name) == nil {
				t.Errorf("expected --%s flag on init command", name)
			}
		})
	}
}

func TestInitCmd_WritesDefaultConfigInCWD(t *testing.T) {
	mock := newMockInitIO()
	c := newInitCmdWithGetCWD(mock, func() (string, error) { return "/ws", nil })
	stdout, _, err := runCmd(c)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	path := filepath.Join("/ws", config.FileTOML)
	if mock.written[path] != config.DefaultTOML {
		t.Errorf("expected default config written to %s, got %v", path, mock.written)
	}
	if stdout != "Created "+path+"\n" {
		t.Errorf("stdout = %q", stdout)
	}
}

func TestInitCmd_UsesManifestDir(t *testing.T) {
	mock := newMockInitIO()
	c := newInitCmdWithGetCWD(mock, func() (string, error) { return "", errors.New("should not be called") })
	if _, _, err := runCmd(c, "--manifest-path", "/other/Cargo.toml"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := mock.written[filepath.Join("/other", config.FileTOML)]; !ok {
		t.Errorf("expected config next to manifest, got %v", mock.written)
	}
}

func TestInitCmd_RefusesToOverwrite(t *testing.T) {
	mock := newMockInitIO()
	mock.exists = true
	c := newInitCmdWithGetCWD(mock, func() (string, error) { return "/ws", nil })
	_, _, err := runCmd(c)
	if err == nil || !strings.Contains(err.Error(), "--force") {
		t.Fatalf("expected --force hint, got %v", err)
	}
	if len(mock.written) != 0 {
		t.Errorf("nothing should be written, got %v", mock.written)
	}
}

func TestInitCmd_ForceOverwritesWithWarning(t *testing.T) {
	mock := newMockInitIO()
	mock.exists = true
	c := newInitCmdWithGetCWD(mock, func() (string, error) { return "/ws", nil })
	_, stderr, err := runCmd(c, "--force")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(stderr, "warning: overwrote existing release.toml") {
		t.Errorf("expected overwrite warning, got %q", stderr)
	}
}

func TestInitCmd_Errors(t *testing.T) {
	tests := []struct {
		name  string
		mock  func(*mockInitIO)
		getwd func() (string, error)
		want  string
	}{
		{"getwd", nil, func() (string, error) { return "", errors.New("getwd failed") }, "getting working directory"},
		{"stat", func(m *mockInitIO) { m.statErr = errors.New("denied") }, nil, "checking"},
		{"write", func(m *mockInitIO) { m.writeErr = errors.New("disk full") }, nil, "writing release.toml"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := newMockInitIO()
			if tt.mock != nil {
				tt.mock(mock)
			}
			getwd := tt.getwd
			if getwd == nil {
				getwd = func() (string, error) { return "/ws", nil }
			}
			_, _, err := runCmd(newInitCmdWithGetCWD(mock, getwd))
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("expected error containing %q, got %v", tt.want, err)
			}
		})
	}
}

func TestFileInitIO(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, config.FileTOML)
	fio := newDefaultInitIO()

	exists, err := fio.StatFile(path)
	if err != nil || exists {
		t.Fatalf("StatFile on missing file = %v, %v", exists, err)
	}
	if err := fio.WriteFileAtomic(path, config.DefaultTOML); err != nil {
		t.Fatalf("WriteFileAtomic: %v", err)
	}
	exists, err = fio.StatFile(path)
	if err != nil || !exists {
		t.Fatalf("StatFile on written file = %v, %v", exists, err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(data, []byte(config.DefaultTOML)) {
		t.Errorf("written content differs")
	}
}
