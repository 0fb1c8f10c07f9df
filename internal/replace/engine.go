package replace

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"path/filepath"
	"regexp"
	"sort"

	"github.com/eykd/shipcrate/internal/logging"
	"github.com/eykd/shipcrate/internal/writegate"
)

var (
	// ErrFileNotFound is wrapped by the error for a rule whose file is missing.
	ErrFileNotFound = errors.New("unable to find file to perform replace")
	// ErrInvalidPattern is wrapped by the error for a search that does not compile.
	ErrInvalidPattern = errors.New("invalid search pattern")
)

// Engine applies rule sets through a write gate.
type Engine struct {
	Gate   *writegate.Gate
	Logger *slog.Logger // may be nil
}

func (e *Engine) logger() *slog.Logger {
	if e.Logger != nil {
		return e.Logger
	}
	return slog.Default()
}

// Apply runs rules against their files, resolved relative to cwd, and
// reports whether any file changed.
//
// Rules are grouped by file and the files processed in sorted order; within
// a file rules run in the order given, each seeing the output of the
// previous one. When prerelease is set, rules without Prerelease are
// skipped. A failing rule aborts its whole file so no partial result lands,
// but other files are still processed. The failures are returned together.
func (e *Engine) Apply(ctx context.Context, rules []Rule, tmpl Template, cwd string, prerelease bool) (bool, []writegate.Result, error) {
	byFile := make(map[string][]Rule)
	for _, r := range rules {
		byFile[r.File] = append(byFile[r.File], r)
	}
	files := make([]string, 0, len(byFile))
	for f := range byFile {
		files = append(files, f)
	}
	sort.Strings(files)

	var (
		changed bool
		results []writegate.Result
		errs    []error
	)
	for _, file := range files {
		res, err := e.applyFile(ctx, file, byFile[file], tmpl, cwd, prerelease)
		if err != nil {
			errs = append(errs, &FileError{File: file, Err: err})
			continue
		}
		if res.Changed {
			changed = true
			results = append(results, res)
		}
	}
	return changed, results, errors.Join(errs...)
}

func (e *Engine) applyFile(ctx context.Context, file string, rules []Rule, tmpl Template, cwd string, prerelease bool) (writegate.Result, error) {
	path := file
	if !filepath.IsAbs(path) {
		path = filepath.Join(cwd, file)
	}
	e.logger().Debug("processing replacements", "file", path)

	data, err := e.Gate.ReadFile(ctx, path)
	if errors.Is(err, fs.ErrNotExist) {
		return writegate.Result{}, fmt.Errorf("%w: %s", ErrFileNotFound, path)
	}
	if err != nil {
		return writegate.Result{}, err
	}

	replaced, err := Transform(string(data), file, rules, tmpl, prerelease, e.logger())
	if err != nil {
		return writegate.Result{}, err
	}

	return e.Gate.Commit(ctx, writegate.Change{
		Path:   path,
		Action: "Replacing",
		Label:  "replaced",
		Before: data,
		After:  []byte(replaced),
	})
}

// Transform applies rules to content in memory. name is used in error
// messages only.
func Transform(content, name string, rules []Rule, tmpl Template, prerelease bool, logger *slog.Logger) (string, error) {
	if logger == nil {
		logger = logging.Discard()
	}
	for _, r := range rules {
		if prerelease && !r.Prerelease {
			logging.Trace(context.Background(), logger, "pre-release, not replacing", "search", r.Search)
			continue
		}

		re, err := regexp.Compile("(?m)" + r.Search)
		if err != nil {
			return "", fmt.Errorf("%w `%s`: %v", ErrInvalidPattern, r.Search, err)
		}

		lo, hi := r.Bounds()
		found := len(re.FindAllStringIndex(content, -1))
		switch {
		case found < lo:
			return "", &BoundsError{Pattern: r.Search, File: name, AtLeast: true, Bound: lo, Found: found}
		case found > hi:
			return "", &BoundsError{Pattern: r.Search, File: name, Bound: hi, Found: found}
		}

		content = re.ReplaceAllLiteralString(content, tmpl.Render(r.Replace))
	}
	return content, nil
}
