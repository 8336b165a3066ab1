package types

import "time"

// Run statuses
const (
	RunRunning   = "running"
	RunFailed    = "failed"
	RunCompleted = "completed"
)

// Run is one execution of the engine over a configuration and set of input
// tables. Its id is derived from both, so a rerun of the same inputs resumes.
type Run struct {
	ID           string      `json:"id"`
	Fingerprint  string      `json:"fingerprint"`
	TablesDigest string      `json:"tables_digest"`
	AnalysisType string      `json:"analysis_type"`
	Status       string      `json:"status"`
	Scenarios    int         `json:"scenarios"`
	Diagnostics  Diagnostics `json:"diagnostics"`
	StartedAt    time.Time   `json:"started_at"`
	FinishedAt   *time.Time  `json:"finished_at,omitempty"`
}

// Diagnostics counts data problems tolerated during a run
type Diagnostics struct {
	MissingExposure     int `json:"missing_exposure"`
	UnmatchedDamage     int `json:"unmatched_damage"`
	UnmatchedRepairCost int `json:"unmatched_repair_cost"`
	UnmatchedRepairTime int `json:"unmatched_repair_time"`
	SkippedProjects     int `json:"skipped_projects"`
}

// Add accumulates another set of counts
func (d *Diagnostics) Add(o Diagnostics) {
	d.MissingExposure += o.MissingExposure
	d.UnmatchedDamage += o.UnmatchedDamage
	d.UnmatchedRepairCost += o.UnmatchedRepairCost
	d.UnmatchedRepairTime += o.UnmatchedRepairTime
	d.SkippedProjects += o.SkippedProjects
}

// Total returns the sum of all counts
func (d Diagnostics) Total() int {
	return d.MissingExposure + d.UnmatchedDamage + d.UnmatchedRepairCost + d.UnmatchedRepairTime + d.SkippedProjects
}
