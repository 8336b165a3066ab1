package app

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"go.uber.org/zap"

	"github.com/transportresilience/rdr/internal/controllers/restserver"
	"github.com/transportresilience/rdr/internal/storage/sqlite"
)

// Serve exposes the runs of a store over HTTP until ctx is cancelled or the
// process receives SIGINT or SIGTERM.
func Serve(ctx context.Context, storePath, listenAddr string, port int, logger *zap.SugaredLogger) error {
	var wg sync.WaitGroup

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	store, err := sqlite.Open(storePath, logger)
	if err != nil {
		return err
	}
	defer store.Close()

	ctrl := restserver.NewController(ctx, &wg, store, listenAddr, port, logger)
	if err := ctrl.StartController(); err != nil {
		return err
	}

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigs)

	select {
	case <-sigs:
		logger.Info("shutdown signal received, initiating graceful shutdown...")
	case <-ctx.Done():
		logger.Info("context cancelled, shutting down...")
	}

	cancel()

	logger.Info("waiting for the REST server to terminate...")
	wg.Wait()
	logger.Info("shutdown complete")
	return nil
}
