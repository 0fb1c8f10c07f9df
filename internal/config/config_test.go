package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/eykd/shipcrate/internal/semver"
)

func writeConfig(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(strings.TrimLeft(content, "\n")), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestDiscoverDefaultsWhenMissing(t *testing.T) {
	cfg, err := Discover(t.TempDir())
	if err != nil {
		t.Fatalf("Discover returned error: %v", err)
	}
	policy, err := cfg.Policy()
	if err != nil || policy != semver.PolicyFix {
		t.Fatalf("expected default policy fix, got %q (%v)", policy, err)
	}
	if !cfg.IsRelease() {
		t.Fatal("expected packages to be released by default")
	}
	if cfg.TagNameTemplate() != DefaultTagName {
		t.Fatalf("unexpected tag-name %q", cfg.TagNameTemplate())
	}
	if cfg.TagPrefixTemplate(true) != "" || cfg.TagPrefixTemplate(false) != "{{crate_name}}-" {
		t.Fatal("unexpected default tag prefixes")
	}
}

func TestLoadParsesTOML(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, FileTOML, `
dependent-version = "upgrade"
tag-prefix = ""

[[pre-release-replacements]]
file = "CHANGELOG.md"
search = "Unreleased"
replace = "{{version}}"
exactly = 1

[[pre-release-replacements]]
file = "README.md"
search = "v[0-9.]+"
replace = "v{{version}}"
min = 0
prerelease = true
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Path != path {
		t.Fatalf("expected Path %s, got %s", path, cfg.Path)
	}
	if p, _ := cfg.Policy(); p != semver.PolicyUpgrade {
		t.Fatalf("expected upgrade policy, got %q", p)
	}
	if len(cfg.PreReleaseReplacements) != 2 {
		t.Fatalf("expected 2 rules, got %d", len(cfg.PreReleaseReplacements))
	}
	first := cfg.PreReleaseReplacements[0]
	if lo, hi := first.Bounds(); lo != 1 || hi != 1 {
		t.Fatalf("expected exactly 1, got [%d, %d]", lo, hi)
	}
	second := cfg.PreReleaseReplacements[1]
	if !second.Prerelease || second.Min == nil || *second.Min != 0 {
		t.Fatalf("unexpected second rule: %+v", second)
	}
	if cfg.TagPrefixTemplate(false) != "" {
		t.Fatal("explicit empty tag-prefix must win over the member default")
	}
}

func TestLoadParsesYAML(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, FileYAML, `
dependent-version: fix
release: false
pre-release-replacements:
  - file: CHANGELOG.md
    search: ReleaseDate
    replace: "{{date}}"
    max: 2
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.IsRelease() {
		t.Fatal("expected release = false")
	}
	rule := cfg.PreReleaseReplacements[0]
	if rule.Replace != "{{date}}" {
		t.Fatalf("unexpected replace %q", rule.Replace)
	}
	if lo, hi := rule.Bounds(); lo != 1 || hi != 2 {
		t.Fatalf("expected [1, 2], got [%d, %d]", lo, hi)
	}
}

func TestLoadValidation(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		content string
		want    string
	}{
		{"unknown key toml", FileTOML, "dependent_version = \"fix\"\n", "parse"},
		{"unknown key yaml", FileYAML, "tag_name: x\n", "parse"},
		{"bad policy", FileTOML, "dependent-version = \"always\"\n", "unknown dependent-version policy"},
		{"missing file field", FileTOML, "[[pre-release-replacements]]\nsearch = \"x\"\n", "file is required"},
		{"missing search", FileYML, "pre-release-replacements:\n  - file: a.md\n", "search is required"},
		{"negative bound", FileTOML, "[[pre-release-replacements]]\nfile = \"a\"\nsearch = \"x\"\nmin = -1\n", "min must not be negative"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeConfig(t, t.TempDir(), tt.file, tt.content)
			_, err := Load(path)
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("expected error containing %q, got %v", tt.want, err)
			}
		})
	}
}

func TestDiscoverPrefersTOML(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, FileYAML, "tag-name: from-yaml\n")
	writeConfig(t, dir, FileTOML, "tag-name = \"from-toml\"\n")
	cfg, err := Discover(dir)
	if err != nil {
		t.Fatalf("Discover returned error: %v", err)
	}
	if cfg.TagNameTemplate() != "from-toml" {
		t.Fatalf("expected TOML to win, got %q", cfg.TagNameTemplate())
	}
}

func TestForPackageLayersMemberConfig(t *testing.T) {
	root := t.TempDir()
	member := filepath.Join(root, "core")
	if err := os.Mkdir(member, 0755); err != nil {
		t.Fatal(err)
	}
	writeConfig(t, root, FileTOML, `
dependent-version = "upgrade"
tag-name = "release-{{version}}"

[[pre-release-replacements]]
file = "CHANGELOG.md"
search = "a"
replace = "b"
`)
	writeConfig(t, member, FileTOML, `
tag-name = "{{crate_name}}/{{version}}"
pre-release-replacements = []
`)

	ws, err := Discover(root)
	if err != nil {
		t.Fatal(err)
	}
	cfg, err := ForPackage(ws, root, member)
	if err != nil {
		t.Fatalf("ForPackage returned error: %v", err)
	}
	if cfg.TagNameTemplate() != "{{crate_name}}/{{version}}" {
		t.Fatalf("member tag-name should win, got %q", cfg.TagNameTemplate())
	}
	if p, _ := cfg.Policy(); p != semver.PolicyUpgrade {
		t.Fatalf("workspace policy should carry through, got %q", p)
	}
	if len(cfg.PreReleaseReplacements) != 0 {
		t.Fatalf("member list should replace the workspace list, got %d rules", len(cfg.PreReleaseReplacements))
	}

	rootCfg, err := ForPackage(ws, root, root)
	if err != nil {
		t.Fatal(err)
	}
	if len(rootCfg.PreReleaseReplacements) != 1 {
		t.Fatalf("root package should see the workspace rules, got %d", len(rootCfg.PreReleaseReplacements))
	}
}

func TestDefaultTOMLDecodes(t *testing.T) {
	cfg, err := Decode([]byte(DefaultTOML), ".toml")
	if err != nil {
		t.Fatalf("DefaultTOML does not decode: %v", err)
	}
	if err := cfg.validate(); err != nil {
		t.Fatalf("DefaultTOML is invalid: %v", err)
	}
	if cfg.TagNameTemplate() != DefaultTagName {
		t.Fatalf("unexpected tag-name %q", cfg.TagNameTemplate())
	}
}

func TestDecodeUnsupportedFormat(t *testing.T) {
	if _, err := Decode([]byte("{}"), ".json"); err == nil {
		t.Fatal("expected error for .json")
	}
}
