package restserver

import (
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/transportresilience/rdr/internal/storage/sqlite"
	"github.com/transportresilience/rdr/internal/types"
	"github.com/transportresilience/rdr/pkg/responseformat"
)

// Handlers contains all HTTP handlers for the REST server
type Handlers struct {
	controller *Controller
	formatter  *responseformat.Formatter
}

// NewHandlers creates a new handlers instance
func NewHandlers(ctrl *Controller) *Handlers {
	return &Handlers{
		controller: ctrl,
		formatter:  responseformat.NewFormatter(),
	}
}

func (h *Handlers) write(w http.ResponseWriter, req *http.Request, data any) {
	if err := h.formatter.WriteResponse(w, req, data, nil); err != nil {
		h.controller.logger.Errorf("error writing response for %s: %v", req.URL.Path, err)
	}
}

// requireRun resolves the {run} path variable. It writes the error response
// and returns false when the run does not exist.
func (h *Handlers) requireRun(w http.ResponseWriter, req *http.Request) (types.Run, bool) {
	id := mux.Vars(req)["run"]
	run, err := h.controller.store.Run(req.Context(), id)
	if errors.Is(err, sqlite.ErrRunNotFound) {
		h.formatter.WriteError(w, http.StatusNotFound, "run not found: "+id)
		return run, false
	}
	if err != nil {
		h.controller.logger.Errorf("error fetching run %s: %v", id, err)
		h.formatter.WriteError(w, http.StatusInternalServerError, "error fetching run")
		return run, false
	}
	return run, true
}

// GetHealth reports that the server is up
func (h *Handlers) GetHealth(w http.ResponseWriter, req *http.Request) {
	h.write(w, req, map[string]string{"status": "ok"})
}

// GetRuns lists every run, newest first
func (h *Handlers) GetRuns(w http.ResponseWriter, req *http.Request) {
	runs, err := h.controller.store.Runs(req.Context())
	if err != nil {
		h.controller.logger.Errorf("error fetching runs: %v", err)
		h.formatter.WriteError(w, http.StatusInternalServerError, "error fetching runs")
		return
	}
	if runs == nil {
		runs = []types.Run{}
	}
	h.write(w, req, runs)
}

// GetRun returns one run with its status and diagnostics
func (h *Handlers) GetRun(w http.ResponseWriter, req *http.Request) {
	run, ok := h.requireRun(w, req)
	if !ok {
		return
	}
	h.write(w, req, run)
}

// GetSummary returns the ranked summary of a run. Optional project_group and
// project query parameters filter the rows.
func (h *Handlers) GetSummary(w http.ResponseWriter, req *http.Request) {
	run, ok := h.requireRun(w, req)
	if !ok {
		return
	}
	rows, err := h.controller.store.Summary(req.Context(), run.ID)
	if err != nil {
		h.controller.logger.Errorf("error fetching summary of run %s: %v", run.ID, err)
		h.formatter.WriteError(w, http.StatusInternalServerError, "error fetching summary")
		return
	}

	group, project := req.URL.Query().Get("project_group"), req.URL.Query().Get("project")
	out := make([]types.RankedSummary, 0, len(rows))
	for _, r := range rows {
		if (group == "" || r.ProjectGroup == group) && (project == "" || r.Project == project) {
			out = append(out, r)
		}
	}
	h.write(w, req, out)
}

// GetResults returns the per-scenario benefit-cost results of a run.
// Optional project_group and project query parameters filter the rows.
func (h *Handlers) GetResults(w http.ResponseWriter, req *http.Request) {
	run, ok := h.requireRun(w, req)
	if !ok {
		return
	}
	results, err := h.controller.store.Results(req.Context(), run.ID)
	if err != nil {
		h.controller.logger.Errorf("error fetching results of run %s: %v", run.ID, err)
		h.formatter.WriteError(w, http.StatusInternalServerError, "error fetching results")
		return
	}

	group, project := req.URL.Query().Get("project_group"), req.URL.Query().Get("project")
	out := make([]types.BenefitCostResult, 0, len(results))
	for _, r := range results {
		if (group == "" || r.Scenario.ProjectGroup == group) && (project == "" || r.Scenario.Project == project) {
			out = append(out, r)
		}
	}
	h.write(w, req, out)
}

// GetDamage returns every stage damage record of a run
func (h *Handlers) GetDamage(w http.ResponseWriter, req *http.Request) {
	run, ok := h.requireRun(w, req)
	if !ok {
		return
	}
	records, err := h.controller.store.Damage(req.Context(), run.ID)
	if err != nil {
		h.controller.logger.Errorf("error fetching damage of run %s: %v", run.ID, err)
		h.formatter.WriteError(w, http.StatusInternalServerError, "error fetching damage")
		return
	}
	if records == nil {
		records = []types.DamageRecord{}
	}
	h.write(w, req, records)
}
