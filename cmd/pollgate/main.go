package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/carr-o-t/pollgate/internal/config"
	"github.com/carr-o-t/pollgate/internal/logger"
)

var (
	// Version information - set at build time
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
	GoVersion = "unknown"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	var configPath string

	rootCmd := &cobra.Command{
		Use:   "pollgate",
		Short: "Interval gates for hardware polling loops",
		Long: `pollgate runs hardware actions from a fast scan loop at most once per
configured interval, either by polling each gate every tick or by pacing a
dedicated loop per gate.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "config file (default ./pollgate.yaml)")

	load := func() (*config.Config, *zap.Logger, error) {
		cfg, err := config.Load(configPath)
		if err != nil {
			return nil, nil, err
		}
		log, err := logger.New(cfg.LogLevel)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to build logger: %w", err)
		}
		return cfg, log, nil
	}

	rootCmd.AddCommand(newVersionCommand())
	rootCmd.AddCommand(newIPCommand(load))
	rootCmd.AddCommand(newRunCommand(load))
	rootCmd.AddCommand(newServeCommand(load))

	return rootCmd
}

type loadFunc func() (*config.Config, *zap.Logger, error)
