package main

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/carr-o-t/pollgate/internal/config"
	"github.com/carr-o-t/pollgate/internal/core"
	"github.com/carr-o-t/pollgate/internal/netinfo"
)

func newServeCommand(load loadFunc) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the host address over HTTP, gated per client",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := load()
			if err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()
			if addr != "" {
				cfg.Serve.Addr = addr
			}

			m, err := core.NewManager(cfg.Serve.Interval, cfg.Manager.GateTTL, cfg.Manager.CleanupInterval,
				core.WithLogger(log))
			if err != nil {
				return err
			}
			defer m.Close()

			srv := &http.Server{
				Addr:              cfg.Serve.Addr,
				Handler:           newStatusHandler(cfg, m),
				ReadHeaderTimeout: 5 * time.Second,
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			errCh := make(chan error, 1)
			go func() {
				log.Info("serving", zap.String("addr", srv.Addr), zap.Duration("interval", cfg.Serve.Interval))
				errCh <- srv.ListenAndServe()
			}()

			select {
			case err := <-errCh:
				if !errors.Is(err, http.ErrServerClosed) {
					return err
				}
				return nil
			case <-ctx.Done():
			}

			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides serve.addr)")

	return cmd
}

type addressResponse struct {
	Interface string `json:"interface"`
	Address   string `json:"address"`
}

func newStatusHandler(cfg *config.Config, m *core.Manager) http.Handler {
	address := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(addressResponse{
			Interface: cfg.Interface,
			Address:   netinfo.InterfaceAddress(cfg.Interface),
		})
	})

	mux := http.NewServeMux()
	mux.Handle("GET /address", m.Middleware(clientKey)(address))
	return mux
}

func clientKey(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
