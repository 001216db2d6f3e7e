package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/darianrosebrook/conscious-bot-experiment-sub011/cmd/botcore/internal"
	"github.com/darianrosebrook/conscious-bot-experiment-sub011/internal/action"
	"github.com/darianrosebrook/conscious-bot-experiment-sub011/internal/config"
	"github.com/darianrosebrook/conscious-bot-experiment-sub011/internal/goap"
	"github.com/darianrosebrook/conscious-bot-experiment-sub011/internal/sim"
)

var planActionsFile string

var planCmd = &cobra.Command{
	Use:   "plan <scenario.yaml> [goal]",
	Short: "Plan the scenario's goals without executing them",
	Long: `Plan runs the planner against the scenario's starting facts and
prints the resulting action sequences without dispatching anything.

Each goal in the scenario is planned independently from the same start
state. Naming a goal restricts planning to that goal. The planning
budget, expansion bound, and cache size come from the config file.`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runPlan,
}

func init() {
	planCmd.Flags().StringVarP(&planActionsFile, "actions", "a", "", "Path to the action set YAML file (required)")
	_ = planCmd.MarkFlagRequired("actions")
}

func runPlan(cmd *cobra.Command, args []string) error {
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

	actionsPath, err := expandPath(planActionsFile)
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

	goals := sc.Goals
	if len(args) == 2 {
		goals = nil
		for _, goal := range sc.Goals {
			if goal.Name == args[1] {
				goals = append(goals, goal)
			}
		}
		if len(goals) == 0 {
			return internal.NewCLIError(internal.ExitError,
				fmt.Sprintf("scenario %s has no goal named %q", sc.Name, args[1]))
		}
	}

	world, _, _ := sc.Build(model, logger)
	snap := world.Snapshot()
	ec := world.Context()

	planner := goap.NewPlanner(model,
		goap.WithBudget(cfg.Planner.Budget),
		goap.WithMaxExpansions(cfg.Planner.MaxExpansions),
		goap.WithCache(goap.NewCache(cfg.Planner.CacheSize)),
		goap.WithLogger(logger),
	)

	formatter := internal.NewFormatter(flags.GetOutputFormat(), cmd.OutOrStdout())

	outcomes := make([]map[string]any, 0, len(goals))
	failures := 0

	for _, goal := range goals {
		res, err := planner.Plan(ctx, goap.Request{Goal: goal, Start: snap, Context: ec})
		if err != nil {
			failures++
			outcomes = append(outcomes, map[string]any{
				"goal":  goal.Name,
				"error": err.Error(),
			})
			if flags.GetOutputFormat() == internal.FormatText {
				if err := formatter.PrintError(fmt.Sprintf("goal %s: %v", goal.Name, err)); err != nil {
					return err
				}
			}
			continue
		}

		p := res.Plan
		steps := make([]map[string]any, 0, p.Len())
		for _, step := range p.Steps {
			steps = append(steps, map[string]any{
				"name":       step.Name,
				"capability": step.Action.Capability,
				"cost":       step.Cost,
			})
		}
		outcomes = append(outcomes, map[string]any{
			"goal":        goal.Name,
			"steps":       steps,
			"total_cost":  p.TotalCost,
			"from_cache":  res.FromCache,
			"expansions":  res.Expansions,
			"duration_ms": float64(res.Duration) / float64(time.Millisecond),
		})

		if flags.GetOutputFormat() == internal.FormatText {
			if err := printPlanText(cmd, formatter, goal.Name, p, res); err != nil {
				return err
			}
		}
	}

	if flags.GetOutputFormat() == internal.FormatJSON {
		if err := formatter.PrintJSON(map[string]any{
			"scenario": sc.Name,
			"plans":    outcomes,
		}); err != nil {
			return err
		}
	}

	if failures > 0 {
		return internal.NewCLIError(internal.ExitNoPlan,
			fmt.Sprintf("no plan for %d of %d goals", failures, len(goals)))
	}
	return nil
}

func printPlanText(cmd *cobra.Command, formatter internal.Formatter, goalName string, p *goap.Plan, res goap.Result) error {
	source := "search"
	if res.FromCache {
		source = "cache"
	}
	cmd.Printf("goal %s: %d steps, total cost %.1f (%s, %d expansions, %s)\n",
		goalName, p.Len(), p.TotalCost, source, res.Expansions,
		res.Duration.Round(time.Microsecond))

	if p.Len() == 0 {
		cmd.Println("  already satisfied by the start state")
		return nil
	}

	rows := make([][]string, 0, p.Len())
	for i, step := range p.Steps {
		rows = append(rows, []string{
			strconv.Itoa(i + 1),
			step.Name,
			step.Action.Capability,
			fmt.Sprintf("%.1f", step.Cost),
		})
	}
	return formatter.PrintTable([]string{"step", "action", "capability", "cost"}, rows)
}
