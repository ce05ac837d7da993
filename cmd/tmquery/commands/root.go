package commands

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/tendermint/tmquery/config"
	"github.com/tendermint/tmquery/libs/log"
	"github.com/tendermint/tmquery/libs/pubsub/query/syntax"
)

// EnvPrefix is the prefix of environment variables that override config
// settings, as in TMQ_LOG_LEVEL.
const EnvPrefix = "TMQ"

// ParseConfig retrieves the default environment configuration,
// sets up the tmquery root and ensures that the root exists
func ParseConfig(conf *config.Config) (*config.Config, error) {
	if err := viper.Unmarshal(conf); err != nil {
		return nil, err
	}

	conf.SetRoot(conf.RootDir)

	if err := conf.ValidateBasic(); err != nil {
		return nil, fmt.Errorf("error in config file: %w", err)
	}
	return conf, nil
}

// RootCommand constructs the root command-line entry point for tmquery.
// The config and logger are updated in place before any subcommand runs.
func RootCommand(conf *config.Config, logger log.Logger) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tmquery",
		Short: "Parse and evaluate predicate filter queries over JSON records",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Name() == versionCmdName {
				return nil
			}

			pconf, err := ParseConfig(conf)
			if err != nil {
				return err
			}
			*conf = *pconf
			config.EnsureRoot(conf.RootDir)
			if err := log.OverrideWithNewLogger(logger, conf.LogFormat, conf.LogLevel); err != nil {
				return err
			}

			if err := syntax.CheckGrammar(); err != nil {
				logger.Error("query grammar is invalid", "err", err)
				return err
			}
			return nil
		},
	}
	cmd.PersistentFlags().String("log-level", conf.LogLevel, "log level")
	cmd.PersistentFlags().String("log-format", conf.LogFormat, "log format: plain | text | json")
	return cmd
}
