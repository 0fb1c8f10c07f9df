package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/eykd/shipcrate/internal/manifest"
	"github.com/eykd/shipcrate/internal/release"
	"github.com/eykd/shipcrate/internal/writegate"
)

// CodeLoadFailure marks a workspace, metadata or config file that could not
// be loaded.
const CodeLoadFailure = "RLE002"

// emitLoadError reports a failure to set up a run and returns a non-nil
// error so the caller exits with non-zero code. When jsonMode is true the
// diagnostic is written as a JSON result to stdout; otherwise it is left to
// the caller's error output.
func emitLoadError(cmd *cobra.Command, jsonMode bool, origErr error) error {
	if jsonMode {
		out := &release.Outcome{
			Files: []writegate.Result{},
			Diagnostics: []manifest.Diagnostic{{
				Severity: manifest.SeverityError,
				Code:     CodeLoadFailure,
				Message:  origErr.Error(),
			}},
			Failed: true,
		}
		_ = json.NewEncoder(cmd.OutOrStdout()).Encode(stepResult{Version: "1", DryRun: true, Outcome: out})
	}
	return fmt.Errorf("%w (%s)", origErr, CodeLoadFailure)
}
