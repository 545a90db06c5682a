// FILE: actionwisp/src/internal/config/saver.go
package config

import (
	"fmt"
	"os"

	lconfig "github.com/lixenwraith/config"
)

// SaveToFile writes the configuration as TOML. An existing file is only
// replaced when overwrite is set.
func (c *Config) SaveToFile(path string, overwrite bool) error {
	if path == "" {
		return fmt.Errorf("cannot save config: path is empty")
	}
	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("cannot save config: %s already exists", path)
		}
	}

	lcfg, err := lconfig.NewBuilder().
		WithFile(path).
		WithTarget(c).
		WithFileFormat("toml").
		Build()
	if err != nil {
		return fmt.Errorf("failed to create config builder: %w", err)
	}

	if err := lcfg.Save(path); err != nil {
		return fmt.Errorf("failed to save config: %w", err)
	}
	return nil
}
