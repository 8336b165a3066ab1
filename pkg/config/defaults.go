package config

import (
	"time"

	"github.com/transportresilience/rdr/internal/constants"
)

// DefaultTravelTimeout bounds one external travel-model invocation
const DefaultTravelTimeout = 30 * time.Minute

// ApplyDefaults fills optional settings that were left empty
func ApplyDefaults(c *ConfigData) {
	if c.Hazard.HazardRecovPathModel == "" {
		c.Hazard.HazardRecovPathModel = "equal"
	}
	if c.Hazard.ExposureUnit == "" {
		c.Hazard.ExposureUnit = "feet"
	}
	if c.Damage.MissingDataPolicy == "" {
		c.Damage.MissingDataPolicy = MissingZeroFill
	}
	if c.Travel.Provider == "" {
		c.Travel.Provider = TravelProviderStore
	}
	if c.Travel.Timeout == 0 {
		c.Travel.Timeout = DefaultTravelTimeout
	}
	if c.Runtime.StorePath == "" {
		c.Runtime.StorePath = constants.DefaultStorePath
	}
	if c.Runtime.OutputDir == "" {
		c.Runtime.OutputDir = constants.DefaultOutputDir
	}
	if c.Runtime.OutputFormat == "" {
		c.Runtime.OutputFormat = OutputJSON
	}
	if c.Runtime.Workers == 0 {
		c.Runtime.Workers = constants.DefaultWorkers
	}
}
