package commands

import (
	"github.com/spf13/cobra"

	"github.com/tendermint/tmquery/config"
	"github.com/tendermint/tmquery/libs/log"
	tmos "github.com/tendermint/tmquery/libs/os"
)

// MakeInitCommand constructs a command that writes a config file into the
// home directory.
func MakeInitCommand(conf *config.Config, logger log.Logger) *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Initialize the home directory with a config file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path := config.ConfigFile(conf.RootDir)
			if tmos.FileExists(path) {
				logger.Info("Found config file", "path", path)
				return nil
			}
			if err := config.WriteConfigFile(conf.RootDir, conf); err != nil {
				return err
			}
			logger.Info("Generated config file", "path", path)
			return nil
		},
	}
}
