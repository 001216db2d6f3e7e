// Package util holds small helpers shared by the CLI commands.
package util

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ExpandPath resolves the path forms users hand to the CLI: a leading
// tilde becomes the home directory, $VAR and ${VAR} expand from the
// environment, and the result is cleaned.
//
//	~/scenarios/raid.yaml  -> /home/user/scenarios/raid.yaml
//	$BOTCORE_DIR/core.yaml -> /opt/botcore/core.yaml
func ExpandPath(path string) (string, error) {
	if path == "" {
		return "", nil
	}

	if strings.HasPrefix(path, "~/") || path == "~" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if path == "~" {
			return home, nil
		}
		path = filepath.Join(home, path[2:])
	}

	return filepath.Clean(os.ExpandEnv(path)), nil
}
