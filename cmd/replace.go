package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/eykd/shipcrate/internal/semver"
)

// NewReplaceCmd creates the replace subcommand.
func NewReplaceCmd(io ReleaseIO) *cobra.Command {
	return newReplaceCmdWithClock(io, time.Now)
}

func newReplaceCmdWithClock(io ReleaseIO, now func() time.Time) *cobra.Command {
	var (
		flags       releaseFlags
		prevVersion string
	)

	cmd := &cobra.Command{
		Use:   "replace",
		Short: "Apply pre-release-replacements for the current package versions",
		Long: `Apply each selected package's pre-release-replacements, using the version
currently in its manifest. Files are resolved relative to the package root.
Rules without prerelease = true are skipped for pre-release versions.`,
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			var prev semver.Version
			if prevVersion != "" {
				v, err := semver.ParseVersion(prevVersion)
				if err != nil {
					return emitLoadError(cmd, flags.jsonMode, fmt.Errorf("invalid --prev-version: %w", err))
				}
				prev = v
			}

			s, err := newSession(cmd, io, &flags, now)
			if err != nil {
				return emitLoadError(cmd, flags.jsonMode, err)
			}
			pkgs, err := s.runner.Select(flags.selection())
			if err != nil {
				return emitLoadError(cmd, flags.jsonMode, err)
			}
			if !prev.IsZero() {
				for _, p := range pkgs {
					p.Initial = prev
				}
			}

			out, err := s.runner.Replace(cmd.Context(), pkgs)
			if err != nil {
				return err
			}
			return s.finish(cmd, out, flags.jsonMode)
		},
	}

	flags.register(cmd, true)
	cmd.Flags().StringVar(&prevVersion, "prev-version", "", "Value of {{prev_version}} (default: the current version)")

	return cmd
}
