package types

// Link is one network asset that may be exposed to a hazard
type Link struct {
	ID           string  `json:"link_id"`
	AssetType    string  `json:"asset_type"`
	LengthMiles  float64 `json:"length"`
	Lanes        int     `json:"lanes"`
	FacilityType int     `json:"facility_type"`
}

// HazardLevel is one row of the hazard-level table. Levels of one event share
// a source file; exposure at a level is the raw exposure less its recovery depth.
type HazardLevel struct {
	Level                int     `json:"level"`
	Dimension1           string  `json:"dimension1"`
	Dimension2           string  `json:"dimension2"`
	Event                string  `json:"event"`
	RecoveryDepth        float64 `json:"recovery_depth"`
	StartYearProbability float64 `json:"start_year_probability"`
	SourceFile           string  `json:"source_file"`
}

// Project is a candidate resilience investment
type Project struct {
	ID                string  `json:"project"`
	Asset             string  `json:"asset"`
	Cost              float64 `json:"cost"`
	RedeploymentCost  float64 `json:"redeployment_cost"`
	Lifespan          int     `json:"lifespan"`
	AnnualMaintenance float64 `json:"annual_maintenance"`
}
