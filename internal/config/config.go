package config

import (
	"time"

	"github.com/darianrosebrook/conscious-bot-experiment-sub011/internal/reflex"
)

// Config is the root configuration for the botcore agent.
type Config struct {
	Core     CoreConfig     `mapstructure:"core" yaml:"core" validate:"required"`
	Planner  PlannerConfig  `mapstructure:"planner" yaml:"planner" validate:"required"`
	Repair   RepairConfig   `mapstructure:"repair" yaml:"repair" validate:"required"`
	Reflex   ReflexConfig   `mapstructure:"reflex" yaml:"reflex"`
	Executor ExecutorConfig `mapstructure:"executor" yaml:"executor" validate:"required"`
	Logging  LoggingConfig  `mapstructure:"logging" yaml:"logging"`
	Tracing  TracingConfig  `mapstructure:"tracing" yaml:"tracing"`
	Metrics  MetricsConfig  `mapstructure:"metrics" yaml:"metrics"`
}

// CoreConfig contains core agent settings.
type CoreConfig struct {
	// AgentID identifies this agent in telemetry and logs. Supports
	// ${ENV_VAR} interpolation.
	AgentID string `mapstructure:"agent_id" yaml:"agent_id"`

	// TickInterval is the executor's decision cadence.
	TickInterval time.Duration `mapstructure:"tick_interval" yaml:"tick_interval" validate:"min=1ms,max=10s"`

	Debug bool `mapstructure:"debug" yaml:"debug"`
}

// PlannerConfig bounds the search.
type PlannerConfig struct {
	// Budget is the wall-clock ceiling for one planning call.
	Budget time.Duration `mapstructure:"budget" yaml:"budget" validate:"min=1ms,max=1s"`

	// MaxExpansions is the node-expansion guard behind the budget.
	MaxExpansions int `mapstructure:"max_expansions" yaml:"max_expansions" validate:"min=100"`

	// CacheSize is the plan cache capacity in entries.
	CacheSize int `mapstructure:"cache_size" yaml:"cache_size" validate:"min=1,max=65536"`
}

// RepairConfig tunes the repair-versus-replan decision.
type RepairConfig struct {
	// Budget is the wall-clock ceiling for one suffix replan.
	Budget time.Duration `mapstructure:"budget" yaml:"budget" validate:"min=1ms,max=1s"`

	// MaxEditDistance is the largest plan divergence still committed as a
	// repair.
	MaxEditDistance int `mapstructure:"max_edit_distance" yaml:"max_edit_distance" validate:"min=0,max=64"`

	// CostRatio is the factor by which a repaired plan may exceed the cost
	// of the original remainder.
	CostRatio float64 `mapstructure:"cost_ratio" yaml:"cost_ratio" validate:"min=1"`
}

// ReflexConfig tunes the safety layer.
type ReflexConfig struct {
	// Budget is the synchronous wait for a reflex dispatch.
	Budget time.Duration `mapstructure:"budget" yaml:"budget" validate:"min=1ms,max=1s"`

	// Thresholds override the built-in trigger firing bounds.
	Thresholds reflex.Thresholds `mapstructure:"thresholds" yaml:"thresholds"`

	// Triggers are additional reflexes compiled from boolean expressions.
	Triggers []reflex.CustomTrigger `mapstructure:"triggers" yaml:"triggers,omitempty"`
}

// ExecutorConfig tunes the act loop.
type ExecutorConfig struct {
	// ActionTimeout bounds one dispatched plan action.
	ActionTimeout time.Duration `mapstructure:"action_timeout" yaml:"action_timeout" validate:"min=10ms"`

	// BreakerThreshold is the consecutive-failure count that skips repair
	// and forces a replan.
	BreakerThreshold int `mapstructure:"breaker_threshold" yaml:"breaker_threshold" validate:"min=1,max=100"`
}

// LoggingConfig contains logging configuration.
type LoggingConfig struct {
	Level  string `mapstructure:"level" yaml:"level" validate:"oneof=debug info warn error"`
	Format string `mapstructure:"format" yaml:"format" validate:"oneof=text json"`
}

// TracingConfig contains distributed tracing configuration.
type TracingConfig struct {
	Enabled  bool   `mapstructure:"enabled" yaml:"enabled"`
	Endpoint string `mapstructure:"endpoint" yaml:"endpoint"`

	// SampleRate is the fraction of traces recorded, 0 to 1.
	SampleRate float64 `mapstructure:"sample_rate" yaml:"sample_rate" validate:"gte=0,lte=1"`
}

// MetricsConfig contains metrics export configuration.
type MetricsConfig struct {
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`

	// Port is the TCP port for the Prometheus scrape endpoint.
	// Validation only applies when Enabled is true.
	Port int `mapstructure:"port" yaml:"port"`
}
