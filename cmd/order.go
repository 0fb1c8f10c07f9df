package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/eykd/shipcrate/internal/shell"
	"github.com/eykd/shipcrate/internal/workspace"
)

// orderEntry is one member in JSON output.
type orderEntry struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Version string `json:"version"`
}

// orderResult is the JSON output of the order command.
type orderResult struct {
	Version string       `json:"version"`
	Order   []orderEntry `json:"order"`
}

// NewOrderCmd creates the order subcommand.
func NewOrderCmd(io ReleaseIO) *cobra.Command {
	var (
		manifestPath string
		metadataFile string
		jsonMode     bool
	)

	cmd := &cobra.Command{
		Use:          "order",
		Short:        "Print workspace members in publish order",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			ws, err := io.LoadWorkspace(cmd.Context(), manifestPath, metadataFile)
			if err != nil {
				return emitLoadError(cmd, jsonMode, fmt.Errorf("loading workspace: %w", err))
			}

			res := orderResult{Version: "1", Order: []orderEntry{}}
			for _, id := range workspace.Order(ws.Members) {
				m, _ := ws.Member(id)
				res.Order = append(res.Order, orderEntry{ID: m.ID, Name: m.Name, Version: m.Version})
			}

			if jsonMode {
				if err := json.NewEncoder(cmd.OutOrStdout()).Encode(res); err != nil {
					return fmt.Errorf("encoding output: %w", err)
				}
				return nil
			}
			for _, e := range res.Order {
				if _, err := fmt.Fprintln(cmd.OutOrStdout(), shell.Sanitize(e.Name)); err != nil {
					return fmt.Errorf("writing output: %w", err)
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&manifestPath, "manifest-path", "", "Path to Cargo.toml")
	cmd.Flags().StringVar(&metadataFile, "metadata-file", "", "Read workspace metadata from a `cargo metadata` JSON file instead of running cargo")
	cmd.Flags().BoolVar(&jsonMode, "json", false, "Output result as JSON")

	return cmd
}
