package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
)

// Loaded carries the effective configuration alongside where it came from.
type Loaded struct {
	Path     string
	Config   Config
	Warnings []Warning
	Exists   bool
}

// Load reads configuration from the given path (or the default location when
// empty). A missing file is not an error: defaults apply.
func Load(explicit string) (Loaded, error) {
	path, err := ResolvePath(explicit)
	if err != nil {
		return Loaded{}, err
	}

	content, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			if explicit != "" {
				return Loaded{}, fmt.Errorf("config file %s does not exist", path)
			}
			cfg := Default()
			warnings, verr := Validate(cfg)
			if verr != nil {
				return Loaded{}, verr
			}
			return Loaded{Path: path, Config: cfg, Warnings: warnings}, nil
		}
		return Loaded{}, fmt.Errorf("read config %s: %w", path, err)
	}

	cfg, warnings, err := Parse(string(content), Default())
	if err != nil {
		return Loaded{}, fmt.Errorf("parse config %s: %w", path, err)
	}
	return Loaded{Path: path, Config: cfg, Warnings: warnings, Exists: true}, nil
}
