package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"reflect"
	"regexp"
	"strings"

	mapstructure "github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"

	"github.com/darianrosebrook/conscious-bot-experiment-sub011/internal/state"
	"github.com/darianrosebrook/conscious-bot-experiment-sub011/internal/types"
)

// ConfigLoader handles loading configuration from files.
type ConfigLoader interface {
	Load(path string) (*Config, error)
	LoadWithDefaults(path string) (*Config, error)
}

// viperConfigLoader implements ConfigLoader using Viper.
type viperConfigLoader struct {
	validator ConfigValidator
}

// NewConfigLoader creates a new ConfigLoader instance.
func NewConfigLoader(validator ConfigValidator) ConfigLoader {
	return &viperConfigLoader{
		validator: validator,
	}
}

// Load loads configuration from the specified file path. Settings absent
// from the file fall back to DefaultConfig values, so partial files that
// tune a single budget are valid.
func (l *viperConfigLoader) Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, types.WrapError(types.CONFIG_NOT_FOUND,
				fmt.Sprintf("config file %s", path), err)
		}
		return nil, types.WrapError(types.CONFIG_LOAD_FAILED, "reading config file", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, viper.DecodeHook(decodeHooks())); err != nil {
		return nil, types.WrapError(types.CONFIG_PARSE_FAILED, "unmarshaling config", err)
	}

	applyInterpolation(&cfg)

	if err := l.validator.Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadWithDefaults loads configuration from the specified file path. If the
// file doesn't exist, returns default configuration.
func (l *viperConfigLoader) LoadWithDefaults(path string) (*Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		cfg := DefaultConfig()
		if err := l.validator.Validate(cfg); err != nil {
			return nil, err
		}
		return cfg, nil
	}
	return l.Load(path)
}

// setDefaults seeds every leaf key from DefaultConfig so file values
// override rather than replace the defaults.
func setDefaults(v *viper.Viper) {
	d := DefaultConfig()
	v.SetDefault("core.agent_id", d.Core.AgentID)
	v.SetDefault("core.tick_interval", d.Core.TickInterval)
	v.SetDefault("core.debug", d.Core.Debug)
	v.SetDefault("planner.budget", d.Planner.Budget)
	v.SetDefault("planner.max_expansions", d.Planner.MaxExpansions)
	v.SetDefault("planner.cache_size", d.Planner.CacheSize)
	v.SetDefault("repair.budget", d.Repair.Budget)
	v.SetDefault("repair.max_edit_distance", d.Repair.MaxEditDistance)
	v.SetDefault("repair.cost_ratio", d.Repair.CostRatio)
	v.SetDefault("reflex.budget", d.Reflex.Budget)
	v.SetDefault("reflex.thresholds.critical_health", d.Reflex.Thresholds.CriticalHealth)
	v.SetDefault("reflex.thresholds.critical_breath", d.Reflex.Thresholds.CriticalBreath)
	v.SetDefault("reflex.thresholds.hazard_distance", d.Reflex.Thresholds.HazardDistance)
	v.SetDefault("reflex.thresholds.swarm_size", d.Reflex.Thresholds.SwarmSize)
	v.SetDefault("reflex.thresholds.low_visibility", d.Reflex.Thresholds.LowVisibility)
	v.SetDefault("executor.action_timeout", d.Executor.ActionTimeout)
	v.SetDefault("executor.breaker_threshold", d.Executor.BreakerThreshold)
	v.SetDefault("logging.level", d.Logging.Level)
	v.SetDefault("logging.format", d.Logging.Format)
	v.SetDefault("tracing.enabled", d.Tracing.Enabled)
	v.SetDefault("tracing.endpoint", d.Tracing.Endpoint)
	v.SetDefault("tracing.sample_rate", d.Tracing.SampleRate)
	v.SetDefault("metrics.enabled", d.Metrics.Enabled)
	v.SetDefault("metrics.port", d.Metrics.Port)
}

// decodeHooks composes the stock duration and slice hooks with one that
// turns YAML scalars into predicate values for trigger params.
func decodeHooks() mapstructure.DecodeHookFunc {
	return mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
		stateValueHook(),
	)
}

func stateValueHook() mapstructure.DecodeHookFuncType {
	target := reflect.TypeOf(state.Value{})
	return func(from reflect.Type, to reflect.Type, data any) (any, error) {
		if to != target || from == target {
			return data, nil
		}
		switch v := data.(type) {
		case bool:
			return state.Bool(v), nil
		case int:
			return state.Num(float64(v)), nil
		case int64:
			return state.Num(float64(v)), nil
		case uint64:
			return state.Num(float64(v)), nil
		case float64:
			return state.Num(v), nil
		case string:
			return state.Str(v), nil
		default:
			return nil, fmt.Errorf("cannot use %T as a predicate value", data)
		}
	}
}

// applyInterpolation expands ${VAR_NAME} in the string settings that
// commonly carry environment-specific values.
func applyInterpolation(cfg *Config) {
	cfg.Core.AgentID = interpolateString(cfg.Core.AgentID)
	cfg.Logging.Level = interpolateString(cfg.Logging.Level)
	cfg.Logging.Format = interpolateString(cfg.Logging.Format)
	cfg.Tracing.Endpoint = interpolateString(cfg.Tracing.Endpoint)
}

var envVarPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// interpolateString replaces ${VAR_NAME} with environment variable values.
// Unset variables keep the original text so validation fails loudly.
func interpolateString(s string) string {
	return envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		varName := strings.TrimSuffix(strings.TrimPrefix(match, "${"), "}")
		if envValue := os.Getenv(varName); envValue != "" {
			return envValue
		}
		return match
	})
}
