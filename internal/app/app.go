// Package app wires configuration, storage, the travel provider and the
// engine into the operations the command-line tools expose.
package app

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/transportresilience/rdr/internal/engine"
	"github.com/transportresilience/rdr/internal/report"
	"github.com/transportresilience/rdr/internal/storage/postgres"
	"github.com/transportresilience/rdr/internal/storage/sqlite"
	"github.com/transportresilience/rdr/internal/tables"
	"github.com/transportresilience/rdr/internal/travel"
	"github.com/transportresilience/rdr/pkg/config"
)

// App represents the main application
type App struct {
	cfg    *config.ConfigData
	logger *zap.SugaredLogger
}

// New creates a new application instance
func New(cfg *config.ConfigData, logger *zap.SugaredLogger) *App {
	return &App{
		cfg:    cfg,
		logger: logger,
	}
}

func (a *App) openStore() (*sqlite.Store, error) {
	store, err := sqlite.Open(a.cfg.Runtime.StorePath, a.logger)
	if err != nil {
		return nil, err
	}
	a.logger.Infof("using run store %s", store.Path())
	return store, nil
}

// provider returns the configured travel metrics source. The command
// provider is always memoized through the store.
func (a *App) provider(store *sqlite.Store) travel.Provider {
	if a.cfg.Travel.Provider == config.TravelProviderCommand {
		runner := &travel.CommandRunner{Command: a.cfg.Travel.Command, Timeout: a.cfg.Travel.Timeout}
		return travel.NewMemoizingProvider(store, runner, a.logger)
	}
	return &travel.StoreProvider{Store: store}
}

// Run evaluates the configured analysis and writes its outputs. SIGINT and
// SIGTERM stop scheduling new scenarios; finished ones stay in the store and
// the next run with the same inputs resumes from them.
func (a *App) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	in, err := engine.LoadInputs(a.cfg)
	if err != nil {
		return err
	}

	store, err := a.openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	e, err := engine.New(a.cfg, in, store, a.provider(store), a.logger)
	if err != nil {
		return err
	}

	out, err := e.Run(ctx)
	if err != nil {
		return err
	}

	w := report.NewWriter(a.cfg.Runtime.OutputDir, a.cfg.Runtime.OutputFormat, a.logger)
	dir, err := w.WriteRun(out.Run, out.Results, out.Summary)
	if err != nil {
		return err
	}
	a.logger.Infof("outputs of run %s written to %s", out.Run.ID, dir)

	if a.cfg.Runtime.PostgresDSN != "" {
		exporter, err := postgres.Connect(a.cfg.Runtime.PostgresDSN, a.logger)
		if err != nil {
			return err
		}
		defer exporter.Close()
		if err := exporter.Export(ctx, out.Run, out.Results, out.Summary); err != nil {
			return err
		}
	}
	return nil
}

// Enumerate builds the scenario space and writes it without evaluating
// anything. The inputs are still loaded and joined, so data problems show up
// before a long run.
func (a *App) Enumerate() (string, error) {
	in, err := engine.LoadInputs(a.cfg)
	if err != nil {
		return "", err
	}
	e, err := engine.New(a.cfg, in, nil, nil, a.logger)
	if err != nil {
		return "", err
	}
	space, err := e.Enumerate()
	if err != nil {
		return "", err
	}
	return report.NewWriter(a.cfg.Runtime.OutputDir, a.cfg.Runtime.OutputFormat, a.logger).WriteScenarios(space)
}

// ImportSnapshots loads a travel metrics CSV into the store and reports how
// many snapshots were new.
func (a *App) ImportSnapshots(ctx context.Context, file string) (int, error) {
	snaps, err := tables.NewLoader("").Snapshots(file)
	if err != nil {
		return 0, err
	}

	store, err := a.openStore()
	if err != nil {
		return 0, err
	}
	defer store.Close()

	n, err := store.ImportSnapshots(ctx, snaps)
	if err != nil {
		return 0, fmt.Errorf("failed to import %s: %w", file, err)
	}
	a.logger.Infow("travel snapshots imported", "file", file, "rows", len(snaps), "new", n)
	return n, nil
}
