package replace

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eykd/shipcrate/internal/writegate"
)

func intp(n int) *int { return &n }

func TestTemplate_Render(t *testing.T) {
	tmpl := Template{Version: Value("2.0.0"), Date: Value("2024-01-01")}
	assert.Equal(t, "Released 2.0.0 on 2024-01-01", tmpl.Render("Released {{version}} on {{date}}"))
}

func TestTemplate_RenderLeavesUnsetAndUnknownTokens(t *testing.T) {
	tmpl := Template{CrateName: Value("core"), Metadata: Value("")}
	got := tmpl.Render("{{crate_name}}{{metadata}} {{tag_name}} {{Version}} {{nope}}")
	assert.Equal(t, "core {{tag_name}} {{Version}} {{nope}}", got)
}

func TestTemplate_RenderAllTokens(t *testing.T) {
	tmpl := Template{
		PrevVersion:  Value("1.0.0"),
		PrevMetadata: Value("a"),
		Version:      Value("1.1.0"),
		Metadata:     Value("b"),
		CrateName:    Value("core"),
		Date:         Value("2024-05-06"),
		Prefix:       Value("core-"),
		TagName:      Value("core-v1.1.0"),
	}
	got := tmpl.Render("{{prev_version}}+{{prev_metadata}} {{version}}+{{metadata}} {{crate_name}} {{date}} {{prefix}} {{tag_name}}")
	assert.Equal(t, "1.0.0+a 1.1.0+b core 2024-05-06 core- core-v1.1.0", got)
}

func TestToday(t *testing.T) {
	loc := time.FixedZone("east", 10*3600)
	assert.Equal(t, "2023-12-31", Today(time.Date(2024, 1, 1, 5, 0, 0, 0, loc)))
}

func TestRule_Bounds(t *testing.T) {
	tests := []struct {
		name   string
		rule   Rule
		lo, hi int
	}{
		{"default exactly one", Rule{}, 1, 1},
		{"exactly", Rule{Exactly: intp(3)}, 3, 3},
		{"min only is unbounded", Rule{Min: intp(0)}, 0, int(^uint(0) >> 1)},
		{"max only", Rule{Max: intp(4)}, 1, 4},
		{"min and max", Rule{Min: intp(2), Max: intp(5)}, 2, 5},
		{"min overrides exactly", Rule{Exactly: intp(3), Min: intp(1)}, 1, 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lo, hi := tt.rule.Bounds()
			assert.Equal(t, tt.lo, lo)
			assert.Equal(t, tt.hi, hi)
		})
	}
}

const changelog = "# Changelog\n\n## [Unreleased] - ReleaseDate\n\n- Fixed things\n\n## [1.0.0] - 2023-01-01\n"

func TestTransform_ExactlyOneMatch(t *testing.T) {
	rules := []Rule{{File: "CHANGELOG.md", Search: "Unreleased", Replace: "{{version}}", Exactly: intp(1)}}
	got, err := Transform(changelog, "CHANGELOG.md", rules, Template{Version: Value("1.1.0")}, false, nil)
	require.NoError(t, err)
	assert.Equal(t, "# Changelog\n\n## [1.1.0] - ReleaseDate\n\n- Fixed things\n\n## [1.0.0] - 2023-01-01\n", got)
}

func TestTransform_BoundViolations(t *testing.T) {
	tests := []struct {
		name    string
		content string
		msg     string
		atLeast bool
	}{
		{"zero matches", "nothing here\n", "for `Unreleased` in 'CHANGELOG.md', at least 1 replacements expected, found 0", true},
		{"two matches", "Unreleased\nUnreleased\n", "for `Unreleased` in 'CHANGELOG.md', at most 1 replacements expected, found 2", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rules := []Rule{{File: "CHANGELOG.md", Search: "Unreleased", Replace: "x", Exactly: intp(1)}}
			_, err := Transform(tt.content, "CHANGELOG.md", rules, Template{}, false, nil)
			var be *BoundsError
			require.ErrorAs(t, err, &be)
			assert.Equal(t, tt.atLeast, be.AtLeast)
			assert.EqualError(t, err, tt.msg)
		})
	}
}

func TestTransform_RulesApplySequentially(t *testing.T) {
	rules := []Rule{
		{Search: "ReleaseDate", Replace: "{{date}}"},
		{Search: `\[Unreleased\] - (\d{4})`, Replace: "[{{version}}] - $1"},
	}
	tmpl := Template{Version: Value("1.1.0"), Date: Value("2024-01-01")}
	got, err := Transform(changelog, "CHANGELOG.md", rules, tmpl, false, nil)
	require.NoError(t, err)
	assert.Contains(t, got, "## [1.1.0] - $1-01-01\n", "replacement text is literal")
}

func TestTransform_MultiLineAnchors(t *testing.T) {
	rules := []Rule{{Search: `^## \[Unreleased\].*$`, Replace: "## [Unreleased] - ReleaseDate\n\n## [{{version}}] - {{date}}"}}
	tmpl := Template{Version: Value("1.1.0"), Date: Value("2024-01-01")}
	got, err := Transform(changelog, "CHANGELOG.md", rules, tmpl, false, nil)
	require.NoError(t, err)
	assert.Contains(t, got, "## [Unreleased] - ReleaseDate\n\n## [1.1.0] - 2024-01-01\n\n- Fixed things")
}

func TestTransform_PrereleaseSkipsStableOnlyRules(t *testing.T) {
	rules := []Rule{
		{Search: "Unreleased", Replace: "{{version}}"},
		{Search: "Fixed", Replace: "Repaired", Prerelease: true},
	}
	got, err := Transform(changelog, "CHANGELOG.md", rules, Template{Version: Value("1.1.0-rc.1")}, true, nil)
	require.NoError(t, err)
	assert.Contains(t, got, "[Unreleased]")
	assert.Contains(t, got, "- Repaired things")
}

func TestTransform_InvalidRegex(t *testing.T) {
	_, err := Transform("x", "f", []Rule{{Search: "(", Replace: ""}}, Template{}, false, nil)
	require.ErrorIs(t, err, ErrInvalidPattern)
	assert.Equal(t, CodeInvalidPattern, Code(err))
}

func TestCode(t *testing.T) {
	assert.Equal(t, CodeTooFewMatches, Code(&FileError{File: "a", Err: &BoundsError{AtLeast: true}}))
	assert.Equal(t, CodeTooManyMatches, Code(&BoundsError{}))
	assert.Equal(t, CodeFileMissing, Code(&FileError{File: "a", Err: ErrFileNotFound}))
	assert.Equal(t, "", Code(errors.New("other")))
}

func writeFiles(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
	}
	return dir
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(data)
}

func TestEngine_ApplyIsolatesFileFailures(t *testing.T) {
	dir := writeFiles(t, map[string]string{
		"README.md":    "version = 1.0.0\nversion = 1.0.0\n",
		"CHANGELOG.md": changelog,
	})
	rules := []Rule{
		{File: "README.md", Search: `1\.0\.0`, Replace: "{{version}}"},
		{File: "CHANGELOG.md", Search: "Unreleased", Replace: "{{version}}"},
	}
	e := &Engine{Gate: writegate.New(writegate.OSFS{}, false)}

	changed, results, err := e.Apply(context.Background(), rules, Template{Version: Value("1.1.0")}, dir, false)
	require.Error(t, err)

	var fe *FileError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, "README.md", fe.File)
	var be *BoundsError
	require.ErrorAs(t, err, &be)
	assert.Equal(t, 2, be.Found)

	assert.True(t, changed)
	require.Len(t, results, 1)
	assert.Equal(t, filepath.Join(dir, "CHANGELOG.md"), results[0].Path)
	assert.Contains(t, readFile(t, filepath.Join(dir, "CHANGELOG.md")), "## [1.1.0]")
	assert.Equal(t, "version = 1.0.0\nversion = 1.0.0\n", readFile(t, filepath.Join(dir, "README.md")))
}

func TestEngine_ApplyMissingFile(t *testing.T) {
	dir := t.TempDir()
	e := &Engine{Gate: writegate.New(writegate.OSFS{}, false)}
	changed, _, err := e.Apply(context.Background(), []Rule{{File: "nope.md", Search: "x", Replace: "y"}}, Template{}, dir, false)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrFileNotFound))
	assert.False(t, changed)
}

func TestEngine_ApplyDryRunLeavesDisk(t *testing.T) {
	dir := writeFiles(t, map[string]string{"b.md": "v0\n", "a.md": "v0\n"})
	rules := []Rule{
		{File: "b.md", Search: "v0", Replace: "v{{version}}"},
		{File: "a.md", Search: "v0", Replace: "v{{version}}"},
	}
	e := &Engine{Gate: writegate.New(writegate.OSFS{}, true)}

	changed, results, err := e.Apply(context.Background(), rules, Template{Version: Value("1")}, dir, false)
	require.NoError(t, err)
	assert.True(t, changed)
	require.Len(t, results, 2)
	assert.Equal(t, filepath.Join(dir, "a.md"), results[0].Path, "files are processed in sorted order")
	assert.Contains(t, results[0].Diff, "+v1")
	assert.Equal(t, "v0\n", readFile(t, filepath.Join(dir, "a.md")))
	assert.Equal(t, "v0\n", readFile(t, filepath.Join(dir, "b.md")))
}

func TestEngine_ApplyUnchanged(t *testing.T) {
	dir := writeFiles(t, map[string]string{"a.md": "v1\n"})
	e := &Engine{Gate: writegate.New(writegate.OSFS{}, false)}
	changed, results, err := e.Apply(context.Background(), []Rule{{File: "a.md", Search: "v1", Replace: "v1"}}, Template{}, dir, false)
	require.NoError(t, err)
	assert.False(t, changed)
	assert.Empty(t, results)
}
