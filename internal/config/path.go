package config

import (
	"fmt"
	"os"
	"path/filepath"
)

const configFileName = "config.conf"

// ResolvePath returns the explicit path when given, otherwise the default
// location under $XDG_CONFIG_HOME/hark (falling back to ~/.config/hark).
func ResolvePath(explicit string) (string, error) {
	if explicit != "" {
		return explicit, nil
	}

	if configHome := os.Getenv("XDG_CONFIG_HOME"); configHome != "" {
		return filepath.Join(configHome, "hark", configFileName), nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve config path: %w", err)
	}
	return filepath.Join(home, ".config", "hark", configFileName), nil
}
