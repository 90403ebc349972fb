package main

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"os"
	"os/signal"
	"slices"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/carr-o-t/pollgate/internal/netinfo"
	"github.com/carr-o-t/pollgate/internal/scanloop"
)

func newRunCommand(load loadFunc) *cobra.Command {
	var duration time.Duration

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the configured gates in a scan loop",
		Long: `Run every configured gate until interrupted or until --duration elapses.
Each permitted action logs the gate name and the host address, the way a
status display would refresh.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := load()
			if err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()

			if len(cfg.Gates) == 0 {
				return errors.New("no gates configured")
			}

			action := func(_ context.Context, gate string) error {
				log.Info("gate open",
					zap.String("gate", gate),
					zap.String("address", netinfo.InterfaceAddress(cfg.Interface)))
				return nil
			}

			runner, err := scanloop.New(cfg.GateSpecs(), cfg.Scan.Tick, action, scanloop.WithLogger(log))
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			if duration > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, duration)
				defer cancel()
			}

			if err := runner.Run(ctx); err != nil {
				return err
			}
			stats := runner.Stats()
			for _, name := range slices.Sorted(maps.Keys(stats)) {
				st := stats[name]
				fmt.Fprintf(cmd.OutOrStdout(), "%s: %d permits, %d errors\n", name, st.Permits, st.Errors)
			}
			return nil
		},
	}
	cmd.Flags().DurationVar(&duration, "duration", 0, "stop after this long (0 runs until interrupted)")

	return cmd
}
