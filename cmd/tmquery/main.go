package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/tendermint/tmquery/cmd/tmquery/commands"
	"github.com/tendermint/tmquery/config"
	"github.com/tendermint/tmquery/libs/cli"
	"github.com/tendermint/tmquery/libs/log"
	tmos "github.com/tendermint/tmquery/libs/os"
)

func main() {
	conf := config.DefaultConfig()

	logger, err := log.NewDefaultLogger(conf.LogFormat, conf.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "creating logger: %v\n", err)
		os.Exit(1)
	}

	rcmd := commands.RootCommand(conf, logger)
	rcmd.AddCommand(
		commands.MakeParseCommand(conf),
		commands.MakeFilterCommand(conf, logger),
		commands.MakeStoreCommand(conf, logger),
		commands.MakeInitCommand(conf, logger),
		commands.MakeConfigCommand(conf),
		commands.MakeVersionCommand(),
	)

	home := os.ExpandEnv(filepath.Join("$HOME", config.DefaultTMQueryDir))
	cmd := cli.PrepareBaseCmd(rcmd, commands.EnvPrefix, home)
	ctx, stop := tmos.TrapSignal(context.Background(), logger)
	code := cli.Execute(ctx, cmd, os.Stderr)
	stop()
	os.Exit(code)
}
