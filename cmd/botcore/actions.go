package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/darianrosebrook/conscious-bot-experiment-sub011/cmd/botcore/internal"
	"github.com/darianrosebrook/conscious-bot-experiment-sub011/internal/action"
	"github.com/darianrosebrook/conscious-bot-experiment-sub011/internal/state"
)

var actionsCmd = &cobra.Command{
	Use:   "actions",
	Short: "Inspect and validate action set files",
}

var actionsListCmd = &cobra.Command{
	Use:   "list <actions.yaml>",
	Short: "List the actions in an action set",
	Args:  cobra.ExactArgs(1),
	RunE:  runActionsList,
}

var actionsValidateCmd = &cobra.Command{
	Use:   "validate <actions.yaml>",
	Short: "Validate an action set file",
	Long: `Validate parses an action set file and reports the first problem it
finds: unknown fields, missing effects, malformed cost expressions, or
duplicate action names.`,
	Args: cobra.ExactArgs(1),
	RunE: runActionsValidate,
}

func init() {
	actionsCmd.AddCommand(actionsListCmd)
	actionsCmd.AddCommand(actionsValidateCmd)
}

func runActionsList(cmd *cobra.Command, args []string) error {
	flags, err := ParseGlobalFlags(cmd)
	if err != nil {
		return err
	}

	path, err := expandPath(args[0])
	if err != nil {
		return err
	}
	model, err := action.LoadSet(path)
	if err != nil {
		return err
	}

	rows := make([][]string, 0, model.Len())
	for _, a := range model.Actions() {
		cost := fmt.Sprintf("%.1f", a.BaseCost)
		if a.CostFn != nil {
			cost += " (dynamic)"
		}
		rows = append(rows, []string{
			a.Name,
			a.Capability,
			cost,
			renderTerms(a.Preconditions),
			renderTerms(a.Effects),
		})
	}

	formatter := internal.NewFormatter(flags.GetOutputFormat(), cmd.OutOrStdout())
	return formatter.PrintTable(
		[]string{"name", "capability", "cost", "preconditions", "effects"}, rows)
}

func runActionsValidate(cmd *cobra.Command, args []string) error {
	flags, err := ParseGlobalFlags(cmd)
	if err != nil {
		return err
	}

	path, err := expandPath(args[0])
	if err != nil {
		return err
	}
	model, err := action.LoadSet(path)
	if err != nil {
		return err
	}

	formatter := internal.NewFormatter(flags.GetOutputFormat(), cmd.OutOrStdout())
	return formatter.PrintSuccess(fmt.Sprintf("%s: %d actions valid", args[0], model.Len()))
}

func renderTerms(terms []state.Term) string {
	if len(terms) == 0 {
		return "-"
	}
	parts := make([]string, len(terms))
	for i, t := range terms {
		parts[i] = t.String()
	}
	return strings.Join(parts, ", ")
}
