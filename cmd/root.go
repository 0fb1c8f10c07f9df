// Package cmd implements the shipcrate CLI commands.
package cmd

import (
	"github.com/spf13/cobra"
)

// NewRootCmd creates the root shipcrate command with all subcommands registered.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "shipcrate",
		Short:         "shipcrate - release steps for Cargo workspaces",
		Args:          cobra.NoArgs,
		SilenceErrors: true,
		RunE:          rootRunE,
	}
	io := newDefaultReleaseIO()
	root.AddCommand(NewOrderCmd(io))
	root.AddCommand(NewVersionCmd(io))
	root.AddCommand(NewReplaceCmd(io))
	root.AddCommand(NewInitCmd(newDefaultInitIO()))
	return root
}

func rootRunE(cmd *cobra.Command, _ []string) error {
	return cmd.Help()
}
