package commands

import (
	"encoding/json"
	"fmt"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/tendermint/tmquery/version"
)

const versionCmdName = "version"

// MakeVersionCommand constructs a command that prints version info.
func MakeVersionCommand() *cobra.Command {
	var verbose bool
	cmd := &cobra.Command{
		Use:   versionCmdName,
		Short: "Show version info",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !verbose {
				fmt.Fprintln(cmd.OutOrStdout(), version.Version)
				return nil
			}
			values, err := json.MarshalIndent(struct {
				TMQuery   string `json:"tmquery"`
				GitCommit string `json:"git_commit,omitempty"`
				Grammar   int    `json:"grammar"`
				Go        string `json:"go"`
			}{
				TMQuery:   version.Version,
				GitCommit: version.GitCommit,
				Grammar:   version.GrammarVersion,
				Go:        runtime.Version(),
			}, "", "  ")
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(values))
			return nil
		},
	}
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Show grammar and toolchain versions")
	return cmd
}
