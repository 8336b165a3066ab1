// Package constants defines application-wide constants and version information.
package constants

import "runtime"

// Version holds the application version information
const Version = "1.4-" + runtime.GOOS + "/" + runtime.GOARCH

// BaselineProject is the resilience project id that denotes "no investment".
// Every project group carries exactly one baseline per uncertainty scenario.
const BaselineProject = "no"

// FullMitigation is the exposure-reduction sentinel meaning the project removes
// all exposure on the link, regardless of the raw exposure value.
const FullMitigation = 99999.0

// AnyFacility matches every facility type in the repair cost table ("*" in CSV)
const AnyFacility = -1

// Asset categories with special sizing rules
const (
	AssetBridge = "bridge"
	AssetRoad   = "road"
)

// Bridge deck sizing
const (
	FeetPerMile         = 5280.0
	BridgeDeckWidthFeet = 12.0
)

// Runtime defaults
const (
	DefaultWorkers   = 4
	DefaultStorePath = "rdr.db"
	DefaultOutputDir = "output"
)
