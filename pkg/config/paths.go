// ABOUTME: Locates the blinkpay-mcp config file holding Debit API credentials
// ABOUTME: BLINKPAY_CONFIG_PATH wins, then the XDG config home, then ~/.config

package config

import (
	"os"
	"path/filepath"
)

// EnvConfigPath names the variable that points at an explicit config file
const EnvConfigPath = "BLINKPAY_CONFIG_PATH"

const (
	configDirName  = "blinkpay-mcp"
	configFileName = "config.yaml"
)

// DefaultConfigPath is where the CLI reads and the init command writes the
// Debit API client id, secret and environment when no --config flag is given.
func DefaultConfigPath() string {
	if explicit := os.Getenv(EnvConfigPath); explicit != "" {
		return filepath.Clean(explicit)
	}
	root, ok := configRoot()
	if !ok {
		return configFileName
	}
	return filepath.Join(root, configDirName, configFileName)
}

// configRoot resolves the per-user config directory. A relative
// XDG_CONFIG_HOME is ignored.
func configRoot() (string, bool) {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); filepath.IsAbs(xdg) {
		return xdg, true
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", false
	}
	return filepath.Join(home, ".config"), true
}

// EnsureParentDir creates the directory that will hold the config file.
// It is private to the user since the file carries the client secret.
func EnsureParentDir(path string) error {
	return os.MkdirAll(filepath.Dir(path), 0o700)
}
