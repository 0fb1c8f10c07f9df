package cmd

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/eykd/shipcrate/internal/release"
)

// NewVersionCmd creates the version subcommand.
func NewVersionCmd(io ReleaseIO) *cobra.Command {
	return newVersionCmdWithClock(io, time.Now)
}

func newVersionCmdWithClock(io ReleaseIO, now func() time.Time) *cobra.Command {
	var (
		flags    releaseFlags
		metadata string
	)

	cmd := &cobra.Command{
		Use:   "version LEVEL|VERSION",
		Short: "Change the version of workspace packages and update their dependents",
		Long: `Change the version of the selected packages.

LEVEL is one of major, minor, patch, release, rc, beta or alpha; anything
else is taken as an explicit version. Packages are processed in publish
order, and every path dependency on a changed package is moved to the new
version according to the dependent-version policy.`,
		Args:         cobra.ExactArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := newSession(cmd, io, &flags, now)
			if err != nil {
				return emitLoadError(cmd, flags.jsonMode, err)
			}

			pkgs, err := s.runner.Select(flags.selection())
			if err != nil {
				return emitLoadError(cmd, flags.jsonMode, err)
			}
			if err := release.Plan(pkgs, args[0], metadata); err != nil {
				return emitLoadError(cmd, flags.jsonMode, err)
			}

			out, err := s.runner.Version(cmd.Context(), pkgs)
			if err != nil {
				return err
			}
			return s.finish(cmd, out, flags.jsonMode)
		},
	}

	flags.register(cmd, true)
	cmd.Flags().StringVarP(&metadata, "metadata", "m", "", "Semver metadata to attach to the new version")

	return cmd
}
