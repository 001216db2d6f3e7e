package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sort"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/darianrosebrook/conscious-bot-experiment-sub011/cmd/botcore/internal"
	"github.com/darianrosebrook/conscious-bot-experiment-sub011/internal/action"
	"github.com/darianrosebrook/conscious-bot-experiment-sub011/internal/config"
	"github.com/darianrosebrook/conscious-bot-experiment-sub011/internal/executor"
	"github.com/darianrosebrook/conscious-bot-experiment-sub011/internal/reflex"
	"github.com/darianrosebrook/conscious-bot-experiment-sub011/internal/sim"
	"github.com/darianrosebrook/conscious-bot-experiment-sub011/internal/telemetry"
	"github.com/darianrosebrook/conscious-bot-experiment-sub011/internal/types"
	"github.com/darianrosebrook/conscious-bot-experiment-sub011/pkg/version"
)

var (
	runActionsFile string
	runTicks       int
	runWatch       bool
)

var runCmd = &cobra.Command{
	Use:   "run <scenario.yaml>",
	Short: "Run the agent loop against a scenario",
	Long: `Run loads an action set and a scenario file, builds the simulated
world, and drives the executor tick loop until every scripted goal is
achieved or abandoned, or the tick budget runs out.

The scenario file controls the tick interval, the gateway's capabilities
and fault injection, and the goal script. Tuning knobs for the planner,
repair, reflexes, and the executor come from the config file.

Exit codes: 0 when every goal was achieved, 2 when goals were abandoned
as unsatisfiable, 3 when the tick budget ran out with goals remaining.`,
	Args: cobra.ExactArgs(1),
	RunE: runRun,
}

func init() {
	runCmd.Flags().StringVarP(&runActionsFile, "actions", "a", "", "Path to the action set YAML file (required)")
	runCmd.Flags().IntVar(&runTicks, "ticks", 0, "Override the scenario's tick budget")
	runCmd.Flags().BoolVar(&runWatch, "watch", false, "Print executor events to stderr as they happen")
	_ = runCmd.MarkFlagRequired("actions")
}

func runRun(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	flags, err := ParseGlobalFlags(cmd)
	if err != nil {
		return err
	}

	cfgPath, err := expandPath(flags.ConfigPath())
	if err != nil {
		return err
	}
	loader := config.NewConfigLoader(config.NewValidator())
	cfg, err := loader.LoadWithDefaults(cfgPath)
	if err != nil {
		return err
	}

	logger := internal.NewLogger(cfg.Logging, flags.IsVerbose(), flags.IsQuiet())

	actionsPath, err := expandPath(runActionsFile)
	if err != nil {
		return err
	}
	model, err := action.LoadSet(actionsPath)
	if err != nil {
		return err
	}

	scenarioPath, err := expandPath(args[0])
	if err != nil {
		return err
	}
	sc, err := sim.LoadScenario(scenarioPath)
	if err != nil {
		return err
	}
	if runTicks > 0 {
		sc.Ticks = runTicks
	}

	if cfg.Tracing.Enabled {
		shutdown, err := telemetry.InitTracing(ctx, cfg.Tracing.Endpoint, "botcore", version.Version, cfg.Tracing.SampleRate)
		if err != nil {
			return internal.WrapError(internal.ExitError, "tracing setup failed", err)
		}
		defer func() {
			flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := shutdown(flushCtx); err != nil {
				logger.Warn("tracer shutdown failed", "error", err)
			}
		}()
	}

	world, gw, sup := sc.Build(model, logger)

	ev := reflex.NewEvaluator(
		reflex.WithThresholds(cfg.Reflex.Thresholds),
		reflex.WithLogger(logger),
	)
	for _, trigger := range cfg.Reflex.Triggers {
		if err := ev.AddCustom(trigger); err != nil {
			return err
		}
	}

	var sinks []telemetry.Sink

	var reg *prometheus.Registry
	if cfg.Metrics.Enabled {
		reg = prometheus.NewRegistry()
		promSink, err := telemetry.NewPromSink(reg)
		if err != nil {
			return internal.WrapError(internal.ExitError, "metrics setup failed", err)
		}
		sinks = append(sinks, promSink)
	}

	var stream *telemetry.Stream
	if runWatch {
		stream = telemetry.NewStream()
		sinks = append(sinks, stream)
	}

	ex, err := executor.New(model, gw, sup, world,
		executor.WithPlanBudget(cfg.Planner.Budget),
		executor.WithMaxExpansions(cfg.Planner.MaxExpansions),
		executor.WithCacheSize(cfg.Planner.CacheSize),
		executor.WithRepairBudget(cfg.Repair.Budget),
		executor.WithMaxEditDistance(cfg.Repair.MaxEditDistance),
		executor.WithCostRatio(cfg.Repair.CostRatio),
		executor.WithReflexBudget(cfg.Reflex.Budget),
		executor.WithActionTimeout(cfg.Executor.ActionTimeout),
		executor.WithBreakerThreshold(cfg.Executor.BreakerThreshold),
		executor.WithReflexes(ev),
		executor.WithSinks(sinks...),
		executor.WithAgentID(types.ID(cfg.Core.AgentID)),
		executor.WithLogger(logger),
	)
	if err != nil {
		return err
	}

	logger.Info("scenario starting",
		"scenario", sc.Name,
		"goals", len(sc.Goals),
		"ticks", sc.Ticks,
		"tick_interval", time.Duration(sc.TickInterval))

	g, gctx := errgroup.WithContext(ctx)

	var srv *http.Server
	if cfg.Metrics.Enabled {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
		srv = &http.Server{Addr: fmt.Sprintf(":%d", cfg.Metrics.Port), Handler: mux}
		g.Go(func() error {
			logger.Info("metrics listening", "addr", srv.Addr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
	}

	if stream != nil {
		events, unsubscribe := stream.Subscribe()
		g.Go(func() error {
			defer unsubscribe()
			for event := range events {
				printEvent(cmd, event)
			}
			return nil
		})
	}

	g.Go(func() error {
		// Closing the stream and the metrics server here unblocks the
		// other goroutines once the loop ends, however it ends.
		defer func() {
			if stream != nil {
				_ = stream.Close()
			}
			if srv != nil {
				stopCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
				defer cancel()
				_ = srv.Shutdown(stopCtx)
			}
		}()
		return tickLoop(gctx, ex, world, sup, sc, logger)
	})

	if err := g.Wait(); err != nil {
		return err
	}

	formatter := internal.NewFormatter(flags.GetOutputFormat(), cmd.OutOrStdout())
	if err := printRunReport(formatter, flags, ex.Report(), sup, sc); err != nil {
		return err
	}

	if n := len(sup.Escalations()); n > 0 {
		return internal.NewCLIError(internal.ExitNoPlan,
			fmt.Sprintf("%d of %d goals abandoned", n, len(sc.Goals)))
	}
	if !sup.Done() {
		return internal.NewCLIError(internal.ExitTimeout,
			fmt.Sprintf("tick budget exhausted with %d goals remaining", sup.Remaining()))
	}
	return nil
}

// tickLoop drives the executor at the scenario's tick interval, applying
// scripted world events before the tick they belong to. It returns once
// the goal script is exhausted and the executor has gone idle, or when
// the tick budget runs out.
func tickLoop(ctx context.Context, ex *executor.Executor, world *sim.World, sup *sim.Supplier, sc *sim.Scenario, logger *slog.Logger) error {
	ticker := time.NewTicker(time.Duration(sc.TickInterval))
	defer ticker.Stop()

	for tick := 0; tick < sc.Ticks; tick++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}

		for _, ev := range sc.EventsAt(tick) {
			world.ApplyEvent(ev)
		}

		if err := ex.Tick(ctx); err != nil {
			return err
		}

		if sup.Done() && ex.State() == executor.StateIdle {
			logger.Info("scenario complete", "ticks", tick+1)
			return nil
		}
	}

	logger.Info("tick budget exhausted", "ticks", sc.Ticks)
	return nil
}

// printEvent renders one telemetry event as a single stderr line.
func printEvent(cmd *cobra.Command, event telemetry.Event) {
	payload, _ := json.Marshal(event.Payload)
	cmd.PrintErrf("%s %-20s %s\n",
		event.Timestamp.Format("15:04:05.000"), event.Type, payload)
}

func printRunReport(f internal.Formatter, flags *GlobalFlags, report executor.Report, sup *sim.Supplier, sc *sim.Scenario) error {
	escalations := sup.Escalations()

	if flags.GetOutputFormat() == internal.FormatJSON {
		return f.PrintJSON(map[string]any{
			"scenario":    sc.Name,
			"report":      report,
			"escalations": escalations,
		})
	}

	stats := report.Stats
	pairs := [][2]string{
		{"ticks", strconv.FormatUint(report.Ticks, 10)},
		{"goals achieved", strconv.FormatUint(stats.GoalsAchieved, 10)},
		{"goals abandoned", strconv.Itoa(len(escalations))},
		{"plans generated", strconv.FormatUint(stats.PlansGenerated, 10)},
		{"plans from cache", strconv.FormatUint(stats.PlansFromCache, 10)},
		{"plans not found", strconv.FormatUint(stats.PlansNotFound, 10)},
		{"planning time", stats.PlanningTime.String()},
		{"actions dispatched", strconv.FormatUint(stats.ActionsDispatched, 10)},
		{"actions completed", strconv.FormatUint(stats.ActionsCompleted, 10)},
		{"actions failed", strconv.FormatUint(stats.ActionsFailed, 10)},
		{"actions cancelled", strconv.FormatUint(stats.ActionsCancelled, 10)},
		{"plans repaired", strconv.FormatUint(stats.Repaired, 10)},
		{"full replans", strconv.FormatUint(stats.Replanned, 10)},
		{"breaker trips", strconv.FormatUint(stats.BreakerTrips, 10)},
	}
	for _, name := range sortedReflexNames(stats.ReflexActivations) {
		pairs = append(pairs, [2]string{
			"reflex " + name, strconv.FormatUint(stats.ReflexActivations[name], 10),
		})
	}
	if err := f.PrintKeyValues(pairs); err != nil {
		return err
	}

	for _, esc := range escalations {
		if err := f.PrintError(fmt.Sprintf("goal %s abandoned: %v", esc.Goal, esc.Cause)); err != nil {
			return err
		}
	}
	if len(escalations) == 0 && sup.Done() {
		return f.PrintSuccess(fmt.Sprintf("scenario %s: all %d goals achieved", sc.Name, len(sc.Goals)))
	}
	return nil
}

func sortedReflexNames(activations map[string]uint64) []string {
	names := make([]string, 0, len(activations))
	for name := range activations {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
