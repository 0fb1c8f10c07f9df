// Package config loads release settings from release.toml or release.yaml.
//
// A workspace-level file sits next to the root Cargo.toml. A member may carry
// its own file next to its manifest; values it sets win over the workspace
// file.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/eykd/shipcrate/internal/replace"
	"github.com/eykd/shipcrate/internal/semver"
)

// Config file names, in lookup order.
const (
	FileTOML = "release.toml"
	FileYAML = "release.yaml"
	FileYML  = "release.yml"
)

// DefaultTagName is the tag template used when tag-name is not set.
const DefaultTagName = "{{prefix}}v{{version}}"

// DefaultTOML is written by `init`.
const DefaultTOML = `# shipcrate release configuration

# How dependents' version requirements follow a released package:
#   "fix"     rewrite only requirements the new version no longer satisfies
#   "upgrade" always move requirements to the new version
dependent-version = "fix"

# Tag naming. {{prefix}} defaults to "" for the root package and
# "{{crate_name}}-" for other workspace members.
# tag-prefix = ""
tag-name = "{{prefix}}v{{version}}"

# Text replacements applied to each released package's files.
# Tokens: {{version}} {{prev_version}} {{metadata}} {{prev_metadata}}
#         {{crate_name}} {{date}} {{prefix}} {{tag_name}}
#
# [[pre-release-replacements]]
# file = "CHANGELOG.md"
# search = "Unreleased"
# replace = "{{version}}"
# exactly = 1
#
# [[pre-release-replacements]]
# file = "CHANGELOG.md"
# search = "ReleaseDate"
# replace = "{{date}}"
# min = 1
`

// Config models a release configuration file. Nil fields are unset and fall
// back to the layer below.
type Config struct {
	DependentVersion       *string        `toml:"dependent-version,omitempty" yaml:"dependent-version,omitempty"`
	PreReleaseReplacements []replace.Rule `toml:"pre-release-replacements,omitempty" yaml:"pre-release-replacements,omitempty"`
	TagPrefix              *string        `toml:"tag-prefix,omitempty" yaml:"tag-prefix,omitempty"`
	TagName                *string        `toml:"tag-name,omitempty" yaml:"tag-name,omitempty"`
	Release                *bool          `toml:"release,omitempty" yaml:"release,omitempty"`

	// Path is the file the values were read from; empty for defaults.
	Path string `toml:"-" yaml:"-"`
}

// Policy returns the dependent-version policy.
func (c *Config) Policy() (semver.Policy, error) {
	if c == nil || c.DependentVersion == nil {
		return semver.PolicyFix, nil
	}
	return semver.ParsePolicy(*c.DependentVersion)
}

// IsRelease reports whether the package takes part in releases.
func (c *Config) IsRelease() bool {
	return c == nil || c.Release == nil || *c.Release
}

// TagNameTemplate returns the tag-name template.
func (c *Config) TagNameTemplate() string {
	if c == nil || c.TagName == nil {
		return DefaultTagName
	}
	return *c.TagName
}

// TagPrefixTemplate returns the tag-prefix template. shared is true for the
// root package of a workspace or the only package of a single-package
// workspace, whose tags carry no prefix by default.
func (c *Config) TagPrefixTemplate(shared bool) string {
	if c != nil && c.TagPrefix != nil {
		return *c.TagPrefix
	}
	if shared {
		return ""
	}
	return "{{crate_name}}-"
}

// Merge returns base overlaid with the fields over sets.
func Merge(base, over *Config) *Config {
	out := &Config{}
	if base != nil {
		*out = *base
	}
	if over == nil {
		return out
	}
	if over.DependentVersion != nil {
		out.DependentVersion = over.DependentVersion
	}
	if over.PreReleaseReplacements != nil {
		out.PreReleaseReplacements = over.PreReleaseReplacements
	}
	if over.TagPrefix != nil {
		out.TagPrefix = over.TagPrefix
	}
	if over.TagName != nil {
		out.TagName = over.TagName
	}
	if over.Release != nil {
		out.Release = over.Release
	}
	if over.Path != "" {
		out.Path = over.Path
	}
	return out
}

// Load reads the config file at path. The format follows the extension.
// Unknown keys are rejected.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	cfg, err := Decode(data, filepath.Ext(path))
	if err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	cfg.Path = path
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config: %s: %w", path, err)
	}
	return cfg, nil
}

// Decode parses data as TOML (ext ".toml") or YAML (".yaml", ".yml").
func Decode(data []byte, ext string) (*Config, error) {
	var cfg Config
	switch strings.ToLower(ext) {
	case ".toml":
		dec := toml.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&cfg); err != nil {
			return nil, err
		}
	case ".yaml", ".yml":
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("unsupported config format %q", ext)
	}
	return &cfg, nil
}

// Discover loads the first config file found in dir. It returns an empty
// Config when dir has none.
func Discover(dir string) (*Config, error) {
	for _, name := range []string{FileTOML, FileYAML, FileYML} {
		path := filepath.Join(dir, name)
		if _, err := os.Stat(path); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return nil, fmt.Errorf("config: stat %s: %w", path, err)
		}
		return Load(path)
	}
	return &Config{}, nil
}

// ForPackage layers the config found in pkgDir over ws. The workspace root
// is not read twice.
func ForPackage(ws *Config, wsRoot, pkgDir string) (*Config, error) {
	if filepath.Clean(wsRoot) == filepath.Clean(pkgDir) {
		return Merge(ws, nil), nil
	}
	pkg, err := Discover(pkgDir)
	if err != nil {
		return nil, err
	}
	return Merge(ws, pkg), nil
}

func (c *Config) validate() error {
	if _, err := c.Policy(); err != nil {
		return err
	}
	for i, r := range c.PreReleaseReplacements {
		if r.File == "" {
			return fmt.Errorf("pre-release-replacements[%d]: file is required", i)
		}
		if r.Search == "" {
			return fmt.Errorf("pre-release-replacements[%d]: search is required", i)
		}
		for _, b := range []struct {
			name string
			n    *int
		}{{"min", r.Min}, {"max", r.Max}, {"exactly", r.Exactly}} {
			if b.n != nil && *b.n < 0 {
				return fmt.Errorf("pre-release-replacements[%d]: %s must not be negative", i, b.name)
			}
		}
	}
	return nil
}
