package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/Paintersrp/folio/internal/constants"
)

func GetConfigPath(homeDir string) string {
	return filepath.Join(
		homeDir,
		constants.ConfigDir,
		constants.ConfigFile+"."+constants.ConfigFileType,
	)
}

// EnsureConfigExists creates the settings file with defaults if it is missing.
func EnsureConfigExists(homeDir string) error {
	configPath := GetConfigPath(homeDir)

	if _, err := os.Stat(configPath); err == nil {
		return nil
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("failed to check config file existence: %w", err)
	}

	if err := New(configPath).Save(); err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	return nil
}
