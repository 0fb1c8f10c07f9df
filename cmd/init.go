package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/eykd/shipcrate/internal/config"
	"github.com/eykd/shipcrate/internal/shell"
	"github.com/eykd/shipcrate/internal/writegate"
)

// InitIO handles I/O for the init command.
type InitIO interface {
	StatFile(path string) (bool, error)
	WriteFileAtomic(path, content string) error
}

// NewInitCmd creates the init subcommand.
func NewInitCmd(io InitIO) *cobra.Command {
	return newInitCmdWithGetCWD(io, os.Getwd)
}

func newInitCmdWithGetCWD(io InitIO, getwd func() (string, error)) *cobra.Command {
	var (
		force        bool
		manifestPath string
	)

	cmd := &cobra.Command{
		Use:          "init",
		Short:        "Write a default release.toml next to the workspace manifest",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := filepath.Dir(manifestPath)
			if manifestPath == "" {
				cwd, err := getwd()
				if err != nil {
					return fmt.Errorf("getting working directory: %w", err)
				}
				dir = cwd
			}

			configPath := filepath.Join(dir, config.FileTOML)
			exists, err := io.StatFile(configPath)
			if err != nil {
				return fmt.Errorf("checking %s: %w", configPath, err)
			}
			if exists && !force {
				return fmt.Errorf("%s already exists in %s; use --force to overwrite", config.FileTOML, shell.Sanitize(dir))
			}

			if err := io.WriteFileAtomic(configPath, config.DefaultTOML); err != nil {
				return fmt.Errorf("writing %s: %w", config.FileTOML, err)
			}
			if exists {
				fmt.Fprintln(cmd.ErrOrStderr(), "warning: overwrote existing "+config.FileTOML)
			}

			fmt.Fprintln(cmd.OutOrStdout(), "Created "+shell.Sanitize(configPath))
			return nil
		},
	}

	cmd.Flags().StringVar(&manifestPath, "manifest-path", "", "Path to the workspace Cargo.toml (default: current directory)")
	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing release.toml")

	return cmd
}

// fileInitIO implements InitIO using OS file I/O.
type fileInitIO struct{}

func newDefaultInitIO() *fileInitIO {
	return &fileInitIO{}
}

// StatFile returns true if the file at path exists, false if it does not.
// Returns an error only for unexpected OS errors.
func (f *fileInitIO) StatFile(path string) (bool, error) {
	_, err := os.Stat(path)
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, err
}

// WriteFileAtomic writes content to path via a temp file and rename.
func (f *fileInitIO) WriteFileAtomic(path, content string) error {
	return writegate.WriteFileAtomic(path, []byte(content))
}
