package config

import (
	"time"

	"github.com/darianrosebrook/conscious-bot-experiment-sub011/internal/executor"
	"github.com/darianrosebrook/conscious-bot-experiment-sub011/internal/goap"
	"github.com/darianrosebrook/conscious-bot-experiment-sub011/internal/reflex"
	"github.com/darianrosebrook/conscious-bot-experiment-sub011/internal/repair"
)

// DefaultConfig returns a Config with the stock budgets and thresholds.
func DefaultConfig() *Config {
	return &Config{
		Core: CoreConfig{
			AgentID:      "botcore",
			TickInterval: 50 * time.Millisecond,
			Debug:        false,
		},
		Planner: PlannerConfig{
			Budget:        goap.DefaultBudget,
			MaxExpansions: goap.DefaultMaxExpansions,
			CacheSize:     goap.DefaultCacheSize,
		},
		Repair: RepairConfig{
			Budget:          repair.DefaultBudget,
			MaxEditDistance: repair.DefaultMaxEditDistance,
			CostRatio:       repair.DefaultCostRatio,
		},
		Reflex: ReflexConfig{
			Budget:     reflex.DefaultBudget,
			Thresholds: reflex.DefaultThresholds(),
		},
		Executor: ExecutorConfig{
			ActionTimeout:    executor.DefaultActionTimeout,
			BreakerThreshold: executor.DefaultBreakerThreshold,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
		Tracing: TracingConfig{
			Enabled:    false,
			Endpoint:   "",
			SampleRate: 1.0,
		},
		Metrics: MetricsConfig{
			Enabled: false,
			Port:    9090,
		},
	}
}
