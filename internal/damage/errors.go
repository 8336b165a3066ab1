package damage

import "fmt"

// JoinError reports that no network link matched any exposure row of an
// event. It is always fatal, whatever the missing-data policy.
type JoinError struct {
	Event string
	File  string
}

func (e *JoinError) Error() string {
	return fmt.Sprintf("hazard event %q: no network link matches any row of exposure file %s", e.Event, e.File)
}

// MismatchError reports a link-level lookup miss under the fail policy
type MismatchError struct {
	Kind  string
	Event string
	Link  string
	Key   string
}

func (e *MismatchError) Error() string {
	return fmt.Sprintf("hazard event %q, link %s: no %s row for %s", e.Event, e.Link, e.Kind, e.Key)
}

// Mismatch kinds
const (
	MismatchExposure   = "exposure"
	MismatchDamage     = "exposure-damage"
	MismatchRepairCost = "repair cost"
	MismatchRepairTime = "repair time"
)
