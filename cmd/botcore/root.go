package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/darianrosebrook/conscious-bot-experiment-sub011/cmd/botcore/internal"
	"github.com/darianrosebrook/conscious-bot-experiment-sub011/pkg/version"
)

var rootCmd = &cobra.Command{
	Use:   "botcore",
	Short: "botcore - reactive action planning core for embodied agents",
	Long: `botcore is the real-time planning layer of an embodied agent: a bounded
A* planner over a declarative action model, plan repair for when the world
diverges, safety reflexes that preempt deliberation, and a tick-driven
executor that holds them together.

The CLI drives that core against simulated worlds described as scenario
files. Use "botcore run" to execute a scenario, "botcore plan" to inspect
what the planner would do without executing, and "botcore actions" to work
with action set files.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command with signal handling
func Execute(ctx context.Context) error {
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	return rootCmd.ExecuteContext(ctx)
}

func init() {
	RegisterGlobalFlags(rootCmd)

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(planCmd)
	rootCmd.AddCommand(actionsCmd)
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(completionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	RunE: func(cmd *cobra.Command, args []string) error {
		flags, err := ParseGlobalFlags(cmd)
		if err != nil {
			return err
		}
		if flags.GetOutputFormat() == internal.FormatJSON {
			return internal.NewJSONFormatter(cmd.OutOrStdout()).PrintJSON(version.Info())
		}
		cmd.Println(version.String())
		return nil
	},
}

var completionCmd = &cobra.Command{
	Use:   "completion [bash|zsh|fish|powershell]",
	Short: "Generate shell completion scripts",
	Long: `Generate shell completion scripts for botcore.

To load completions:

Bash:

  $ source <(botcore completion bash)

  # To load completions for each session, execute once:
  # Linux:
  $ botcore completion bash > /etc/bash_completion.d/botcore
  # macOS:
  $ botcore completion bash > $(brew --prefix)/etc/bash_completion.d/botcore

Zsh:

  # If shell completion is not already enabled in your environment,
  # you will need to enable it. You can execute the following once:

  $ echo "autoload -U compinit; compinit" >> ~/.zshrc

  # To load completions for each session, execute once:
  $ botcore completion zsh > "${fpath[1]}/_botcore"

  # You will need to start a new shell for this setup to take effect.

Fish:

  $ botcore completion fish | source

  # To load completions for each session, execute once:
  $ botcore completion fish > ~/.config/fish/completions/botcore.fish

PowerShell:

  PS> botcore completion powershell | Out-String | Invoke-Expression

  # To load completions for every new session, run:
  PS> botcore completion powershell > botcore.ps1
  # and source this file from your PowerShell profile.
`,
	DisableFlagsInUseLine: true,
	ValidArgs:             []string{"bash", "zsh", "fish", "powershell"},
	Args:                  cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
	Run: func(cmd *cobra.Command, args []string) {
		switch args[0] {
		case "bash":
			_ = cmd.Root().GenBashCompletion(os.Stdout)
		case "zsh":
			_ = cmd.Root().GenZshCompletion(os.Stdout)
		case "fish":
			_ = cmd.Root().GenFishCompletion(os.Stdout, true)
		case "powershell":
			_ = cmd.Root().GenPowerShellCompletionWithDesc(os.Stdout)
		}
	},
}
