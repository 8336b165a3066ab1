package restserver

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/transportresilience/rdr/internal/log"
	"github.com/transportresilience/rdr/internal/types"
)

// DefaultPort is used when no listen port is configured
const DefaultPort = 8080

// RunStore is the read side of the run store served over HTTP
type RunStore interface {
	Runs(ctx context.Context) ([]types.Run, error)
	Run(ctx context.Context, id string) (types.Run, error)
	Results(ctx context.Context, runID string) ([]types.BenefitCostResult, error)
	Damage(ctx context.Context, runID string) ([]types.DamageRecord, error)
	Summary(ctx context.Context, runID string) ([]types.RankedSummary, error)
}

// Controller represents the REST server controller
type Controller struct {
	ctx      context.Context
	wg       *sync.WaitGroup
	Server   http.Server
	store    RunStore
	logger   *zap.SugaredLogger
	handlers *Handlers
}

// NewController creates a new REST server controller
func NewController(ctx context.Context, wg *sync.WaitGroup, store RunStore, listenAddr string, port int, logger *zap.SugaredLogger) *Controller {
	ctrl := &Controller{
		ctx:    ctx,
		wg:     wg,
		store:  store,
		logger: logger,
	}

	if listenAddr == "" {
		logger.Info("listen address not provided; defaulting to 0.0.0.0 (all interfaces)")
		listenAddr = "0.0.0.0"
	}
	if port == 0 {
		logger.Infof("listen port not provided; defaulting to %d", DefaultPort)
		port = DefaultPort
	}

	ctrl.handlers = NewHandlers(ctrl)
	ctrl.Server.Addr = fmt.Sprintf("%v:%v", listenAddr, port)
	ctrl.Server.Handler = ctrl.Router()
	ctrl.Server.ReadHeaderTimeout = 10 * time.Second

	return ctrl
}

// StartController starts the REST server
func (c *Controller) StartController() error {
	c.logger.Infof("starting REST server on %s", c.Server.Addr)
	c.wg.Add(1)

	go func() {
		defer c.wg.Done()
		if err := c.Server.ListenAndServe(); err != http.ErrServerClosed {
			c.logger.Errorf("REST server error: %v", err)
		}
	}()

	go func() {
		<-c.ctx.Done()
		c.logger.Info("shutting down the REST server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		c.Server.Shutdown(shutdownCtx)
	}()

	return nil
}

// Router configures the HTTP router with all endpoints
func (c *Controller) Router() *mux.Router {
	router := mux.NewRouter()
	router.Use(log.HTTPMiddleware)

	api := router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/health", c.handlers.GetHealth).Methods(http.MethodGet)
	api.HandleFunc("/runs", c.handlers.GetRuns).Methods(http.MethodGet)
	api.HandleFunc("/runs/{run}", c.handlers.GetRun).Methods(http.MethodGet)
	api.HandleFunc("/runs/{run}/summary", c.handlers.GetSummary).Methods(http.MethodGet)
	api.HandleFunc("/runs/{run}/results", c.handlers.GetResults).Methods(http.MethodGet)
	api.HandleFunc("/runs/{run}/damage", c.handlers.GetDamage).Methods(http.MethodGet)

	return router
}
