// Package tables loads the typed static lookup tables and network inputs
// from CSV. Every loader enforces its required columns and reports the file
// and column on failure.
package tables

import (
	"bytes"
	"crypto/sha256"
	"embed"
	"encoding/hex"
	"fmt"
	"hash"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/transportresilience/rdr/internal/constants"
	"github.com/transportresilience/rdr/internal/types"
)

//go:embed defaults/*.csv
var defaultTables embed.FS

// Default table names
const (
	DefaultExposureDamage = "defaults/exposure_damage.csv"
	DefaultRepairCost     = "defaults/repair_cost.csv"
	DefaultRepairTime     = "defaults/repair_time.csv"
)

// Loader reads tables relative to a base directory and keeps a digest of
// every byte it read, so that a run can be identified by its inputs.
type Loader struct {
	dir    string
	digest hash.Hash
}

// NewLoader creates a loader rooted at dir
func NewLoader(dir string) *Loader {
	return &Loader{dir: dir, digest: sha256.New()}
}

// Digest returns the hex digest of all tables read so far
func (l *Loader) Digest() string {
	return hex.EncodeToString(l.digest.Sum(nil))
}

// Path resolves a table file name against the loader directory
func (l *Loader) Path(name string) string {
	if filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(l.dir, name)
}

func (l *Loader) read(name string, required []string) ([]record, error) {
	path := l.Path(name)
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("required table %s: %w", path, err)
	}
	l.digest.Write([]byte(name))
	l.digest.Write(b)
	return readRecords(path, bytes.NewReader(b), required)
}

func (l *Loader) readDefault(name string, required []string) ([]record, error) {
	b, err := defaultTables.ReadFile(name)
	if err != nil {
		return nil, fmt.Errorf("embedded table %s: %w", name, err)
	}
	l.digest.Write([]byte(name))
	l.digest.Write(b)
	return readRecords(name, bytes.NewReader(b), required)
}

func nonEmpty(name string, records []record) error {
	if len(records) == 0 {
		return fmt.Errorf("%s: %w", name, ErrEmptyTable)
	}
	return nil
}

// HazardLevels loads the hazard-level table
func (l *Loader) HazardLevels(name string) ([]types.HazardLevel, error) {
	records, err := l.read(name, []string{"level", "dimension1", "dimension2", "event", "recovery_depth", "start_year_probability", "source_file"})
	if err != nil {
		return nil, err
	}
	if err := nonEmpty(l.Path(name), records); err != nil {
		return nil, err
	}

	levels := make([]types.HazardLevel, 0, len(records))
	for _, r := range records {
		level, err := r.int("level")
		if err != nil {
			return nil, err
		}
		depth, err := r.float("recovery_depth")
		if err != nil {
			return nil, err
		}
		prob, err := r.float("start_year_probability")
		if err != nil {
			return nil, err
		}
		if prob < 0 || prob > 1 {
			return nil, &FieldError{File: r.file, Line: r.line, Column: "start_year_probability", Value: r.str("start_year_probability"), Err: fmt.Errorf("probability outside [0,1]")}
		}
		levels = append(levels, types.HazardLevel{
			Level:                level,
			Dimension1:           r.str("dimension1"),
			Dimension2:           r.str("dimension2"),
			Event:                r.str("event"),
			RecoveryDepth:        depth,
			StartYearProbability: prob,
			SourceFile:           r.str("source_file"),
		})
	}
	return levels, nil
}

// Links loads the network link table
func (l *Loader) Links(name string) ([]types.Link, error) {
	records, err := l.read(name, []string{"link_id", "asset_type", "length", "lanes", "facility_type"})
	if err != nil {
		return nil, err
	}
	if err := nonEmpty(l.Path(name), records); err != nil {
		return nil, err
	}

	links := make([]types.Link, 0, len(records))
	for _, r := range records {
		length, err := r.float("length")
		if err != nil {
			return nil, err
		}
		lanes, err := r.int("lanes")
		if err != nil {
			return nil, err
		}
		facility, err := r.int("facility_type")
		if err != nil {
			return nil, err
		}
		links = append(links, types.Link{
			ID:           r.str("link_id"),
			AssetType:    strings.ToLower(r.str("asset_type")),
			LengthMiles:  length,
			Lanes:        lanes,
			FacilityType: facility,
		})
	}
	return links, nil
}

// Exposures loads one hazard event's exposure file, keyed by link id
func (l *Loader) Exposures(name string) (map[string]float64, error) {
	records, err := l.read(name, []string{"link_id", "exposure"})
	if err != nil {
		return nil, err
	}

	exposures := make(map[string]float64, len(records))
	for _, r := range records {
		v, err := r.float("exposure")
		if err != nil {
			return nil, err
		}
		exposures[r.str("link_id")] = v
	}
	return exposures, nil
}

// Projects loads project costs and lifespans, keyed by project id. The
// baseline project is added with zero cost when the file omits it.
func (l *Loader) Projects(name string) (map[string]types.Project, error) {
	records, err := l.read(name, []string{"project", "asset", "cost", "redeployment_cost", "lifespan", "annual_maintenance"})
	if err != nil {
		return nil, err
	}

	projects := make(map[string]types.Project, len(records)+1)
	for _, r := range records {
		cost, err := r.float("cost")
		if err != nil {
			return nil, err
		}
		redeploy, err := r.float("redeployment_cost")
		if err != nil {
			return nil, err
		}
		lifespan, err := r.int("lifespan")
		if err != nil {
			return nil, err
		}
		maint, err := r.float("annual_maintenance")
		if err != nil {
			return nil, err
		}
		p := types.Project{
			ID:                r.str("project"),
			Asset:             r.str("asset"),
			Cost:              cost,
			RedeploymentCost:  redeploy,
			Lifespan:          lifespan,
			AnnualMaintenance: maint,
		}
		if p.ID != constants.BaselineProject && p.Lifespan <= 0 {
			return nil, &FieldError{File: r.file, Line: r.line, Column: "lifespan", Value: r.str("lifespan"), Err: fmt.Errorf("lifespan must be positive")}
		}
		projects[p.ID] = p
	}
	if _, ok := projects[constants.BaselineProject]; !ok {
		projects[constants.BaselineProject] = types.Project{ID: constants.BaselineProject}
	}
	return projects, nil
}

// ProjectLinks loads per-link exposure reductions: project -> link -> reduction
func (l *Loader) ProjectLinks(name string) (map[string]map[string]float64, error) {
	records, err := l.read(name, []string{"project", "link_id", "exposure_reduction"})
	if err != nil {
		return nil, err
	}

	reductions := make(map[string]map[string]float64)
	for _, r := range records {
		v, err := r.float("exposure_reduction")
		if err != nil {
			return nil, err
		}
		p := r.str("project")
		if reductions[p] == nil {
			reductions[p] = make(map[string]float64)
		}
		reductions[p][r.str("link_id")] = v
	}
	return reductions, nil
}

// Membership is one row of the project-group mapping
type Membership struct {
	ProjectGroup string
	Project      string
}

// ProjectGroups loads the project-group mapping in file order
func (l *Loader) ProjectGroups(name string) ([]Membership, error) {
	records, err := l.read(name, []string{"project_group", "project"})
	if err != nil {
		return nil, err
	}
	if err := nonEmpty(l.Path(name), records); err != nil {
		return nil, err
	}

	members := make([]Membership, 0, len(records))
	for _, r := range records {
		members = append(members, Membership{ProjectGroup: r.str("project_group"), Project: r.str("project")})
	}
	return members, nil
}

// ExposureDamageRow maps an exposure range of one asset type to a damage fraction
type ExposureDamageRow struct {
	AssetType      string
	MinExposure    float64
	MaxExposure    float64
	DamageFraction float64
}

// ExposureDamage loads a user table, or the embedded default when name is empty
func (l *Loader) ExposureDamage(name string) ([]ExposureDamageRow, error) {
	cols := []string{"asset_type", "min_exposure", "max_exposure", "damage_fraction"}
	records, err := l.readTable(name, DefaultExposureDamage, cols)
	if err != nil {
		return nil, err
	}

	rows := make([]ExposureDamageRow, 0, len(records))
	for _, r := range records {
		lo, err := r.float("min_exposure")
		if err != nil {
			return nil, err
		}
		hi, err := r.float("max_exposure")
		if err != nil {
			return nil, err
		}
		frac, err := r.float("damage_fraction")
		if err != nil {
			return nil, err
		}
		if frac < 0 || frac > 1 {
			return nil, &FieldError{File: r.file, Line: r.line, Column: "damage_fraction", Value: r.str("damage_fraction"), Err: fmt.Errorf("fraction outside [0,1]")}
		}
		rows = append(rows, ExposureDamageRow{AssetType: strings.ToLower(r.str("asset_type")), MinExposure: lo, MaxExposure: hi, DamageFraction: frac})
	}
	return rows, nil
}

// RepairCostRow holds unit repair costs of an asset/facility combination
type RepairCostRow struct {
	AssetType        string
	FacilityType     int
	DamageRepairCost float64
	TotalRepairCost  float64
}

// RepairCost loads a user table, or the embedded default when name is empty
func (l *Loader) RepairCost(name string) ([]RepairCostRow, error) {
	cols := []string{"asset_type", "facility_type", "damage_repair_cost", "total_repair_cost"}
	records, err := l.readTable(name, DefaultRepairCost, cols)
	if err != nil {
		return nil, err
	}

	rows := make([]RepairCostRow, 0, len(records))
	for _, r := range records {
		facility := constants.AnyFacility
		if r.str("facility_type") != "*" {
			if facility, err = r.int("facility_type"); err != nil {
				return nil, err
			}
		}
		partial, err := r.float("damage_repair_cost")
		if err != nil {
			return nil, err
		}
		total, err := r.float("total_repair_cost")
		if err != nil {
			return nil, err
		}
		rows = append(rows, RepairCostRow{AssetType: strings.ToLower(r.str("asset_type")), FacilityType: facility, DamageRepairCost: partial, TotalRepairCost: total})
	}
	return rows, nil
}

// RepairTimeRow maps a severity range of one asset type to a repair time in days
type RepairTimeRow struct {
	AssetType   string
	MinSeverity float64
	MaxSeverity float64
	RepairTime  float64
}

// RepairTime loads a user table, or the embedded default when name is empty
func (l *Loader) RepairTime(name string) ([]RepairTimeRow, error) {
	cols := []string{"asset_type", "min_severity", "max_severity", "repair_time"}
	records, err := l.readTable(name, DefaultRepairTime, cols)
	if err != nil {
		return nil, err
	}

	rows := make([]RepairTimeRow, 0, len(records))
	for _, r := range records {
		lo, err := r.float("min_severity")
		if err != nil {
			return nil, err
		}
		hi, err := r.float("max_severity")
		if err != nil {
			return nil, err
		}
		days, err := r.float("repair_time")
		if err != nil {
			return nil, err
		}
		rows = append(rows, RepairTimeRow{AssetType: strings.ToLower(r.str("asset_type")), MinSeverity: lo, MaxSeverity: hi, RepairTime: days})
	}
	return rows, nil
}

func (l *Loader) readTable(name, fallback string, cols []string) ([]record, error) {
	var records []record
	var err error
	if name == "" {
		records, err = l.readDefault(fallback, cols)
		name = fallback
	} else {
		records, err = l.read(name, cols)
		name = l.Path(name)
	}
	if err != nil {
		return nil, err
	}
	return records, nonEmpty(name, records)
}

// Snapshots loads a long-format travel-metrics file, one row per
// (key, year type, mode). Rows of the same key and year type are merged.
func (l *Loader) Snapshots(name string) ([]types.Snapshot, error) {
	records, err := l.read(name, []string{"economic", "project_group", "project", "elasticity", "hazard", "recovery_stage", "year_type", "trips", "miles", "hours"})
	if err != nil {
		return nil, err
	}

	type snapID struct {
		key      types.SnapshotKey
		yearType types.YearType
	}
	merged := make(map[snapID]*types.Snapshot)
	order := make([]snapID, 0)

	for _, r := range records {
		elasticity, err := r.float("elasticity")
		if err != nil {
			return nil, err
		}
		stage, err := r.int("recovery_stage")
		if err != nil {
			return nil, err
		}
		yt := types.YearType(strings.ToLower(r.str("year_type")))
		if yt != types.YearBase && yt != types.YearFuture {
			return nil, &FieldError{File: r.file, Line: r.line, Column: "year_type", Value: string(yt), Err: fmt.Errorf("expected base or future")}
		}
		modeName := ""
		if r.has("mode") {
			modeName = r.str("mode")
		}
		mode, err := types.ParseMode(modeName)
		if err != nil {
			return nil, &FieldError{File: r.file, Line: r.line, Column: "mode", Value: modeName, Err: err}
		}

		var m types.ModeMetrics
		if m.Trips, err = r.float("trips"); err != nil {
			return nil, err
		}
		if m.Miles, err = r.float("miles"); err != nil {
			return nil, err
		}
		if m.Hours, err = r.float("hours"); err != nil {
			return nil, err
		}

		id := snapID{
			key: types.SnapshotKey{
				Economic:      r.str("economic"),
				ProjectGroup:  r.str("project_group"),
				Project:       r.str("project"),
				Elasticity:    elasticity,
				HazardEvent:   r.str("hazard"),
				RecoveryStage: stage,
			},
			yearType: yt,
		}
		s, ok := merged[id]
		if !ok {
			s = &types.Snapshot{Key: id.key, YearType: yt, Modes: make(map[types.Mode]types.ModeMetrics)}
			merged[id] = s
			order = append(order, id)
		}
		s.Modes[mode] = s.Modes[mode].Add(m)
	}

	snapshots := make([]types.Snapshot, 0, len(order))
	for _, id := range order {
		snapshots = append(snapshots, *merged[id])
	}
	return snapshots, nil
}

// EventsFromLevels groups the hazard-level table by event name, preserving
// table order for levels. Event names are returned sorted.
func EventsFromLevels(levels []types.HazardLevel) (map[string][]types.HazardLevel, []string) {
	byEvent := make(map[string][]types.HazardLevel)
	for _, hl := range levels {
		byEvent[hl.Event] = append(byEvent[hl.Event], hl)
	}
	names := make([]string, 0, len(byEvent))
	for name := range byEvent {
		names = append(names, name)
	}
	sort.Strings(names)
	return byEvent, names
}
