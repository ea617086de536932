// conf/utils.go path helpers for the configuration package
package conf

import (
	"os"
	"path/filepath"

	"github.com/sirekapreview/reviewer/internal/errors"
)

const appDirName = "sheetreview"

// GetDefaultConfigPaths returns the directories searched for config.yaml,
// most specific first. If one already holds a config.yaml, only that
// directory is returned.
func GetDefaultConfigPaths() ([]string, error) {
	var configPaths []string

	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		configPaths = append(configPaths, filepath.Join(xdg, appDirName))
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, errors.New(err).
			Category(errors.CategoryConfiguration).
			Context("operation", "get-home-directory").
			Build()
	}
	configPaths = append(configPaths, filepath.Join(homeDir, ".config", appDirName), ".")

	for _, path := range configPaths {
		if _, err := os.Stat(filepath.Join(path, "config.yaml")); err == nil {
			return []string{path}, nil
		}
	}

	return configPaths, nil
}

// ConfigDir returns the directory holding the active config file, or the
// first default path when none was read.
func ConfigDir() (string, error) {
	paths, err := GetDefaultConfigPaths()
	if err != nil {
		return "", err
	}
	return paths[0], nil
}

// LedgerPath resolves where the ledger backend keeps its data. An explicit
// path wins; otherwise state.yaml or state.db is placed in the config directory.
func (s *Settings) LedgerPath() (string, error) {
	if s.Ledger.Path != "" {
		return os.ExpandEnv(s.Ledger.Path), nil
	}

	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}

	if s.Ledger.Backend == LedgerBackendSQLite {
		return filepath.Join(dir, "state.db"), nil
	}
	return filepath.Join(dir, "state.yaml"), nil
}
