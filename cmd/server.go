package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/brk3/habitlog/internal/config"
	"github.com/brk3/habitlog/internal/logger"
	"github.com/brk3/habitlog/internal/server"
	"github.com/brk3/habitlog/internal/storage/bolt"
	"github.com/brk3/habitlog/internal/storage/sqlstore"
	"github.com/brk3/habitlog/internal/syncer"
	"github.com/brk3/habitlog/pkg/datekey"
	"github.com/spf13/cobra"
)

const shutdownTimeout = 10 * time.Second

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Start the HTTP server",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return startServer(cmd.Context(), cfg)
	},
}

func init() {
	rootCmd.AddCommand(serverCmd)
}

func startServer(ctx context.Context, cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	loc, err := cfg.Location()
	if err != nil {
		return err
	}
	clock := datekey.SystemClock{Location: loc}

	open, closeStore, err := openStorage(ctx, cfg, clock)
	if err != nil {
		return err
	}
	defer closeStore()

	var opts []server.Option
	if cfg.Auth.Enabled {
		providers, err := server.ConfigureOIDCProviders(ctx, cfg.Auth.Providers)
		if err != nil {
			return err
		}
		opts = append(opts, server.WithAuthProviders(providers))
	}
	srv, err := server.New(cfg, open, opts...)
	if err != nil {
		return err
	}
	httpSrv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           srv.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Starting server", "addr", cfg.ListenAddr, "storage", cfg.Storage.Mode, "auth", cfg.Auth.Enabled)
		errCh <- httpSrv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server: %w", err)
		}
	case <-ctx.Done():
		logger.Info("Shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("HTTP shutdown did not complete", "error", err)
	}
	// let remote writes already issued land before the store closes
	srv.Drain()
	return nil
}

// openStorage opens the configured store and returns the session opener
// for it, plus a func that closes the store.
func openStorage(ctx context.Context, cfg *config.Config, clock datekey.Clock) (server.Opener, func(), error) {
	switch cfg.Storage.Mode {
	case config.StorageRemote:
		rc := cfg.Storage.Remote
		dialect, err := sqlstore.DialectFor(rc.Driver)
		if err != nil {
			return nil, nil, err
		}
		store, err := sqlstore.Open(ctx, dialect, rc.DSN, sqlstore.Tables{Habits: rc.HabitsTable, Log: rc.LogTable})
		if err != nil {
			return nil, nil, err
		}
		open := func(ctx context.Context, ownerID string) (syncer.Session, error) {
			// the load outlives the request that triggered it
			return syncer.LoadRemote(context.WithoutCancel(ctx), store, ownerID, clock), nil
		}
		return open, closer("remote", store.Close), nil

	case config.StorageLocal:
		lc := cfg.Storage.Local
		store, err := bolt.Open(lc.Path)
		if err != nil {
			return nil, nil, err
		}
		keys := syncer.Keys{Habits: lc.HabitsKey, Log: lc.LogKey}
		open := func(_ context.Context, ownerID string) (syncer.Session, error) {
			return syncer.LoadLocal(store, ownerID, keys, clock)
		}
		return open, closer("local", store.Close), nil
	}
	return nil, nil, fmt.Errorf("unsupported storage mode %q", cfg.Storage.Mode)
}

func closer(name string, closeFn func() error) func() {
	return func() {
		if err := closeFn(); err != nil {
			logger.Error("Failed to close store", "store", name, "error", err)
		}
	}
}
