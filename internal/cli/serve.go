package cli

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/noema/hlr/internal/registry"
	"github.com/noema/hlr/internal/server"
	"github.com/noema/hlr/pkg/errors"
	"github.com/noema/hlr/pkg/log"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP sidecar",
		RunE:  runServe,
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	log.SetupLogger(cfg.Log.Level)
	logger := log.GetLoggerWithName("cli")

	st, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := st.Close(); err != nil {
			log.LogError(err, "close store")
		}
	}()

	reg := registry.New(cfg.Model.HalfLife(), registry.WithPersister(st))
	srv := server.New(reg, VersionString())

	httpServer := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      srv,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// The checkpoint loop outlives the listener so the final flush sees
	// every request that was drained during shutdown.
	loopCtx, stopLoop := context.WithCancel(context.WithoutCancel(cmd.Context()))
	loopDone := make(chan error, 1)
	go func() {
		loopDone <- reg.Run(loopCtx, cfg.Checkpoint.Interval)
	}()

	sigCtx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("hlr serving",
			"addr", cfg.Addr(),
			"store", cfg.Store.Path,
			"in_memory", cfg.Store.InMemory,
			"version", VersionString(),
		)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	var runErr error
	select {
	case <-sigCtx.Done():
		logger.Info("shutting down")
	case err := <-serveErr:
		if err != nil {
			runErr = errors.Wrap(err, "http server")
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil && runErr == nil {
		runErr = errors.Wrap(err, "shutdown")
	}

	stopLoop()
	if err := <-loopDone; err != nil {
		log.LogError(err, "final checkpoint failed")
		if runErr == nil {
			runErr = err
		}
	}
	return runErr
}
