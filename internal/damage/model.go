// Package damage turns link exposures into damage fractions, repair costs
// and repair durations, aggregated per scenario stage.
package damage

import (
	"fmt"

	"github.com/transportresilience/rdr/internal/tables"
	"github.com/transportresilience/rdr/internal/types"
)

// Model maps the exposure of one link to a damage fraction in [0,1]. An
// invalid result means no lookup row applied.
type Model interface {
	Fraction(assetType string, exposure float64) types.NullFloat
}

// BinaryModel treats any positive exposure as total damage
type BinaryModel struct{}

// Fraction returns 1 for positive exposure and 0 otherwise
func (BinaryModel) Fraction(_ string, exposure float64) types.NullFloat {
	if exposure > 0 {
		return types.Float(1)
	}
	return types.Float(0)
}

// TableModel looks the fraction up in an exposure-damage table. The first
// row whose asset type matches and whose [min, max) range holds the exposure
// wins.
type TableModel struct {
	rows []tables.ExposureDamageRow
}

// NewTableModel wraps a loaded exposure-damage table
func NewTableModel(rows []tables.ExposureDamageRow) *TableModel {
	return &TableModel{rows: rows}
}

// Fraction returns the matching row's damage fraction
func (m *TableModel) Fraction(assetType string, exposure float64) types.NullFloat {
	for _, r := range m.rows {
		if r.AssetType == assetType && r.MinExposure <= exposure && exposure < r.MaxExposure {
			return types.Float(r.DamageFraction)
		}
	}
	return types.NullFloat{}
}

// feetPer converts supported exposure units to feet
var feetPer = map[string]float64{
	"feet":        1,
	"meters":      3.280839895,
	"inches":      1.0 / 12.0,
	"centimeters": 0.03280839895,
}

// UnitFactor returns the multiplier converting unit to feet
func UnitFactor(unit string) (float64, error) {
	f, ok := feetPer[unit]
	if !ok {
		return 0, fmt.Errorf("unsupported exposure unit %q", unit)
	}
	return f, nil
}
