package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/eykd/shipcrate/internal/logging"
	"github.com/eykd/shipcrate/internal/release"
	"github.com/eykd/shipcrate/internal/replace"
	"github.com/eykd/shipcrate/internal/shell"
	"github.com/eykd/shipcrate/internal/writegate"
)

// ErrStepFailed is returned when a step has already reported its failures
// on the status channel.
var ErrStepFailed = errors.New("release step failed")

// releaseFlags are the flags shared by the mutating commands.
type releaseFlags struct {
	manifestPath string
	metadataFile string
	configPath   string
	execute      bool
	dryRun       bool
	verbose      int
	quiet        bool
	date         string
	jsonMode     bool

	packages  []string
	workspace bool
	exclude   []string
}

func (f *releaseFlags) register(cmd *cobra.Command, selection bool) {
	fl := cmd.Flags()
	fl.StringVar(&f.manifestPath, "manifest-path", "", "Path to Cargo.toml")
	fl.StringVar(&f.metadataFile, "metadata-file", "", "Read workspace metadata from a `cargo metadata` JSON file instead of running cargo")
	fl.StringVar(&f.configPath, "config", "", "Custom config file")
	fl.BoolVarP(&f.execute, "execute", "x", false, "Actually perform the changes")
	fl.BoolVarP(&f.dryRun, "dry-run", "n", false, "Preview the changes without writing (the default)")
	fl.CountVarP(&f.verbose, "verbose", "v", "Use verbose output (-vv very verbose, -vvv trace)")
	fl.BoolVarP(&f.quiet, "quiet", "q", false, "Do not print status messages")
	fl.StringVar(&f.date, "date", "", "Value of the {{date}} token, YYYY-MM-DD (default: today, UTC)")
	fl.BoolVar(&f.jsonMode, "json", false, "Output result as JSON")
	if selection {
		fl.StringArrayVarP(&f.packages, "package", "p", nil, "Package to process (repeatable)")
		fl.BoolVar(&f.workspace, "workspace", false, "Process all packages in the workspace (the default)")
		fl.StringArrayVar(&f.exclude, "exclude", nil, "Exclude a package (repeatable)")
		cmd.MarkFlagsMutuallyExclusive("package", "workspace")
	}
}

// selection returns the packages named on the command line; --workspace and
// no --package both select every member.
func (f *releaseFlags) selection() release.Selection {
	return release.Selection{Packages: f.packages, Exclude: f.exclude}
}

// session is the state of one command invocation.
type session struct {
	runner *release.Runner
	shell  *shell.Shell
	logger *slog.Logger
	runID  string
	dryRun bool
}

// newSession loads the workspace and configuration and wires the runner.
func newSession(cmd *cobra.Command, io ReleaseIO, f *releaseFlags, now func() time.Time) (*session, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("generating run id: %w", err)
	}
	logger := logging.New(cmd.ErrOrStderr(), logging.Level(f.verbose, f.quiet)).With("run", id.String())
	sh := shell.New(cmd.ErrOrStderr(), f.quiet)
	if f.dryRun {
		sh.Warn("`--dry-run` is superfluous, dry-run is done by default")
	}

	date := f.date
	if date == "" {
		date = replace.Today(now())
	} else if _, err := time.Parse(time.DateOnly, date); err != nil {
		return nil, fmt.Errorf("invalid --date %q: expected YYYY-MM-DD", date)
	}

	ws, err := io.LoadWorkspace(cmd.Context(), f.manifestPath, f.metadataFile)
	if err != nil {
		return nil, fmt.Errorf("loading workspace: %w", err)
	}
	cfg, err := io.LoadConfig(f.configPath, ws.Root)
	if err != nil {
		return nil, err
	}
	logger.Debug("workspace loaded", "root", ws.Root, "members", len(ws.Members), "config", cfg.Path)

	dryRun := !f.execute
	gate := writegate.New(io, dryRun)
	gate.Verbose = f.verbose > 0
	gate.Notify = sh
	gate.Logger = logger

	return &session{
		runner: &release.Runner{
			Workspace: ws,
			Config:    cfg,
			Gate:      gate,
			Report:    sh,
			Logger:    logger,
			Date:      date,
		},
		shell:  sh,
		logger: logger,
		runID:  id.String(),
		dryRun: dryRun,
	}, nil
}

// stepResult is the JSON form of a step outcome.
type stepResult struct {
	Version string `json:"version"`
	RunID   string `json:"run_id,omitempty"`
	DryRun  bool   `json:"dry_run"`
	*release.Outcome
}

// finish reports the outcome of a step and returns ErrStepFailed when it
// failed.
func (s *session) finish(cmd *cobra.Command, out *release.Outcome, jsonMode bool) error {
	s.logger.Debug("step finished", "changed", out.Changed, "files", len(out.Files), "failed", out.Failed)
	if jsonMode {
		if err := json.NewEncoder(cmd.OutOrStdout()).Encode(stepResult{Version: "1", RunID: s.runID, DryRun: s.dryRun, Outcome: out}); err != nil {
			return fmt.Errorf("encoding output: %w", err)
		}
	}
	if out.Failed {
		return ErrStepFailed
	}
	if s.dryRun && out.Changed {
		s.shell.Warn("aborting due to dry run; re-run with `--execute`")
	}
	return nil
}
