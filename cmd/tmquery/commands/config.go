package commands

import (
	"github.com/spf13/cobra"

	"github.com/tendermint/tmquery/config"
	"github.com/tendermint/tmquery/internal/libs/confix"
)

// MakeConfigCommand constructs the command group for config file
// maintenance.
func MakeConfigCommand(conf *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Maintain the config file",
	}

	var in, out string
	upgrade := &cobra.Command{
		Use:   "upgrade",
		Short: "Rewrite a config file from an older release in the current layout",
		Long: `Rewrite a config file from an older release in the current layout.

Keys are renamed to kebab-case, settings that moved are relocated and new
settings are added with their defaults. The result is checked before it is
written. Without --out it is printed to stdout.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if in == "" {
				in = config.ConfigFile(conf.RootDir)
			}
			ctx := confix.WithLogWriter(cmd.Context(), cmd.ErrOrStderr())
			return confix.Upgrade(ctx, in, out)
		},
	}
	upgrade.Flags().StringVar(&in, "in", "", "config file to upgrade (default is the config file under --home)")
	upgrade.Flags().StringVar(&out, "out", "", "where to write the result (default stdout)")

	cmd.AddCommand(upgrade)
	return cmd
}
