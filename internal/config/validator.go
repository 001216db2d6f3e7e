package config

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/darianrosebrook/conscious-bot-experiment-sub011/internal/types"
)

// ConfigValidator validates configuration values.
type ConfigValidator interface {
	Validate(cfg *Config) error
}

// validatorImpl implements ConfigValidator using go-playground/validator.
type validatorImpl struct {
	validate *validator.Validate
}

// NewValidator creates a new ConfigValidator instance.
func NewValidator() ConfigValidator {
	return &validatorImpl{
		validate: validator.New(),
	}
}

// Validate validates the configuration and returns detailed error messages.
func (v *validatorImpl) Validate(cfg *Config) error {
	if cfg == nil {
		return types.NewError(types.CONFIG_VALIDATION_FAILED, "configuration is nil")
	}

	if err := v.validate.Struct(cfg); err != nil {
		validationErrs, ok := err.(validator.ValidationErrors)
		if !ok {
			return types.WrapError(types.CONFIG_VALIDATION_FAILED, "validation error", err)
		}

		var errorMessages []string
		for _, e := range validationErrs {
			errorMessages = append(errorMessages, formatValidationError(e))
		}
		return types.NewError(types.CONFIG_VALIDATION_FAILED,
			fmt.Sprintf("configuration validation failed:\n  - %s", strings.Join(errorMessages, "\n  - ")))
	}

	// The time budgets must nest: a reflex waits less than a repair, a
	// repair replans for less than a full plan, and an action outlives any
	// planning that schedules it.
	if cfg.Reflex.Budget > cfg.Repair.Budget {
		return types.NewError(types.CONFIG_VALIDATION_FAILED,
			fmt.Sprintf("configuration validation failed:\n  - reflex.budget (%v) must not exceed repair.budget (%v)",
				cfg.Reflex.Budget, cfg.Repair.Budget))
	}
	if cfg.Repair.Budget > cfg.Planner.Budget {
		return types.NewError(types.CONFIG_VALIDATION_FAILED,
			fmt.Sprintf("configuration validation failed:\n  - repair.budget (%v) must not exceed planner.budget (%v)",
				cfg.Repair.Budget, cfg.Planner.Budget))
	}
	if cfg.Executor.ActionTimeout <= cfg.Planner.Budget {
		return types.NewError(types.CONFIG_VALIDATION_FAILED,
			fmt.Sprintf("configuration validation failed:\n  - executor.action_timeout (%v) must exceed planner.budget (%v)",
				cfg.Executor.ActionTimeout, cfg.Planner.Budget))
	}

	if cfg.Metrics.Enabled {
		if cfg.Metrics.Port < 1024 || cfg.Metrics.Port > 65535 {
			return types.NewError(types.CONFIG_VALIDATION_FAILED,
				fmt.Sprintf("configuration validation failed:\n  - metrics.port must be between 1024 and 65535 when enabled (got: %d)", cfg.Metrics.Port))
		}
	}

	for i, trig := range cfg.Reflex.Triggers {
		switch {
		case trig.Name == "":
			return types.NewError(types.CONFIG_VALIDATION_FAILED,
				fmt.Sprintf("configuration validation failed:\n  - reflex.triggers[%d] has no name", i))
		case trig.When == "":
			return types.NewError(types.CONFIG_VALIDATION_FAILED,
				fmt.Sprintf("configuration validation failed:\n  - reflex.triggers[%d] (%s) has no when expression", i, trig.Name))
		case trig.Capability == "":
			return types.NewError(types.CONFIG_VALIDATION_FAILED,
				fmt.Sprintf("configuration validation failed:\n  - reflex.triggers[%d] (%s) has no capability", i, trig.Name))
		case trig.Priority <= 0:
			return types.NewError(types.CONFIG_VALIDATION_FAILED,
				fmt.Sprintf("configuration validation failed:\n  - reflex.triggers[%d] (%s) needs a positive priority (got: %d)", i, trig.Name, trig.Priority))
		}
	}

	return nil
}

// formatValidationError formats a single validation error with field path and details.
func formatValidationError(e validator.FieldError) string {
	fieldPath := formatFieldPath(e.Namespace())

	switch e.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", fieldPath)
	case "min":
		return fmt.Sprintf("%s must be at least %s (got: %v)", fieldPath, e.Param(), e.Value())
	case "max":
		return fmt.Sprintf("%s must be at most %s (got: %v)", fieldPath, e.Param(), e.Value())
	case "gte":
		return fmt.Sprintf("%s must be >= %s (got: %v)", fieldPath, e.Param(), e.Value())
	case "lte":
		return fmt.Sprintf("%s must be <= %s (got: %v)", fieldPath, e.Param(), e.Value())
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s] (got: %v)", fieldPath, e.Param(), e.Value())
	default:
		return fmt.Sprintf("%s failed validation '%s' (got: %v)", fieldPath, e.Tag(), e.Value())
	}
}

// formatFieldPath converts validator namespace to a more readable field path.
// Example: "Config.Planner.MaxExpansions" -> "planner.max_expansions"
func formatFieldPath(namespace string) string {
	parts := strings.Split(namespace, ".")
	if len(parts) <= 1 {
		return namespace
	}

	result := make([]string, 0, len(parts)-1)
	for i := 1; i < len(parts); i++ {
		result = append(result, camelToSnake(parts[i]))
	}
	return strings.Join(result, ".")
}

// camelToSnake converts CamelCase to snake_case.
func camelToSnake(s string) string {
	var result strings.Builder
	for i, r := range s {
		if i > 0 && r >= 'A' && r <= 'Z' {
			result.WriteRune('_')
		}
		result.WriteRune(r)
	}
	return strings.ToLower(result.String())
}
