package config

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/transportresilience/rdr/internal/constants"
)

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

func getValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		// "baseline" requires the do-nothing project in a project list
		_ = validate.RegisterValidation("baseline", func(fl validator.FieldLevel) bool {
			projects, ok := fl.Field().Interface().([]string)
			if !ok {
				return false
			}
			for _, p := range projects {
				if p == constants.BaselineProject {
					return true
				}
			}
			return false
		})
		validate.RegisterStructValidation(validateCrossSection, ConfigData{})
	})
	return validate
}

// Validate checks enum values, ranges and cross-section requirements
func Validate(c *ConfigData) error {
	err := getValidator().Struct(c)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return &ConfigError{Type: ErrTypeValidation, Message: "validation failed", Err: err}
	}

	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, describeFieldError(fe))
	}
	return &ConfigError{Type: ErrTypeValidation, Message: strings.Join(msgs, "; ")}
}

func describeFieldError(fe validator.FieldError) string {
	field := strings.TrimPrefix(fe.Namespace(), "ConfigData.")
	switch fe.Tag() {
	case "oneof":
		return fmt.Sprintf("%s: %q is not one of [%s]", field, fmt.Sprint(fe.Value()), fe.Param())
	case "baseline":
		return fmt.Sprintf("%s: must include the baseline project %q", field, constants.BaselineProject)
	case "required", "required_if":
		return fmt.Sprintf("%s: is required", field)
	default:
		if fe.Param() != "" {
			return fmt.Sprintf("%s: failed %s=%s (value %v)", field, fe.Tag(), fe.Param(), fe.Value())
		}
		return fmt.Sprintf("%s: failed %s (value %v)", field, fe.Tag(), fe.Value())
	}
}

var knownModes = map[string]bool{"car": true, "bus": true, "light_rail": true, "heavy_rail": true}

func validateCrossSection(sl validator.StructLevel) {
	c := sl.Current().Interface().(ConfigData)

	if c.Damage.ExposureDamageApproach == ExposureManual && c.Inputs.ExposureDamage == "" {
		sl.ReportError(c.Inputs.ExposureDamage, "Inputs.ExposureDamage", "ExposureDamage", "required_if", "exposure_damage_approach manual")
	}
	if c.Damage.RepairCostApproach == TableUserDefined && c.Inputs.RepairCost == "" {
		sl.ReportError(c.Inputs.RepairCost, "Inputs.RepairCost", "RepairCost", "required_if", "repair_cost_approach user-defined")
	}
	if c.Damage.RepairTimeApproach == TableUserDefined && c.Inputs.RepairTime == "" {
		sl.ReportError(c.Inputs.RepairTime, "Inputs.RepairTime", "RepairTime", "required_if", "repair_time_approach user-defined")
	}
	if c.Travel.Provider == TravelProviderCommand && len(c.Travel.Command) == 0 {
		sl.ReportError(c.Travel.Command, "Travel.Command", "Command", "required_if", "provider command")
	}
	if c.Hazard.HazardRecovType == RecoveryDays && c.Hazard.HazardRecovLength != math.Trunc(c.Hazard.HazardRecovLength) {
		sl.ReportError(c.Hazard.HazardRecovLength, "Hazard.HazardRecovLength", "HazardRecovLength", "integer_days", "")
	}
	for name := range c.Monetization.Modes {
		if !knownModes[name] {
			sl.ReportError(name, "Monetization.Modes", "Modes", "oneof", "car bus light_rail heavy_rail")
		}
	}
}
