package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/darianrosebrook/conscious-bot-experiment-sub011/cmd/botcore/internal"
	"github.com/darianrosebrook/conscious-bot-experiment-sub011/internal/util"
)

// DefaultConfigFile is where the CLI looks for configuration when
// --config is not given. A missing file falls back to built-in defaults.
const DefaultConfigFile = "botcore.yaml"

// GlobalFlags holds global flags available to all commands
type GlobalFlags struct {
	Verbose      bool
	Quiet        bool
	OutputFormat string
	ConfigFile   string
}

var globalFlags = &GlobalFlags{}

// RegisterGlobalFlags registers persistent flags on the root command
func RegisterGlobalFlags(cmd *cobra.Command) {
	cmd.PersistentFlags().BoolVarP(&globalFlags.Verbose, "verbose", "v", false, "Enable verbose output")
	cmd.PersistentFlags().BoolVarP(&globalFlags.Quiet, "quiet", "q", false, "Suppress non-essential output")
	cmd.PersistentFlags().StringVarP(&globalFlags.OutputFormat, "output", "o", "text", "Output format (text|json)")
	cmd.PersistentFlags().StringVar(&globalFlags.ConfigFile, "config", "", "Path to config file (default: "+DefaultConfigFile+")")
}

// ParseGlobalFlags parses and validates global flags from the command
func ParseGlobalFlags(cmd *cobra.Command) (*GlobalFlags, error) {
	format := globalFlags.OutputFormat
	if format != string(internal.FormatText) && format != string(internal.FormatJSON) {
		return nil, internal.NewCLIError(internal.ExitError,
			fmt.Sprintf("invalid output format %q (want text or json)", format))
	}

	if globalFlags.Verbose && globalFlags.Quiet {
		return nil, internal.NewCLIError(internal.ExitError,
			"--verbose and --quiet cannot be used together")
	}

	return globalFlags, nil
}

// GetOutputFormat returns the parsed OutputFormat enum
func (f *GlobalFlags) GetOutputFormat() internal.OutputFormat {
	if f.OutputFormat == string(internal.FormatJSON) {
		return internal.FormatJSON
	}
	return internal.FormatText
}

// ConfigPath returns the config file path, falling back to the default.
func (f *GlobalFlags) ConfigPath() string {
	if f.ConfigFile != "" {
		return f.ConfigFile
	}
	return DefaultConfigFile
}

// IsVerbose returns true if verbose mode is enabled
func (f *GlobalFlags) IsVerbose() bool {
	return f.Verbose && !f.Quiet
}

// expandPath resolves ~ and environment variables in a user-supplied
// file path.
func expandPath(path string) (string, error) {
	expanded, err := util.ExpandPath(path)
	if err != nil {
		return "", internal.WrapError(internal.ExitError,
			fmt.Sprintf("cannot resolve path %s", path), err)
	}
	return expanded, nil
}

// IsQuiet returns true if quiet mode is enabled
func (f *GlobalFlags) IsQuiet() bool {
	return f.Quiet
}
