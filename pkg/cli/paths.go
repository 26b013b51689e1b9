package cli

import (
	"fmt"
	"os"
	"path/filepath"
)

// Paths locates the files of one app under ~/.livestudio/<app>.
type Paths struct {
	AppName string
	HomeDir string
}

// NewPaths returns the Paths of appName in the user's home directory.
func NewPaths(appName string) (*Paths, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("cli: home dir: %w", err)
	}
	return &Paths{AppName: appName, HomeDir: home}, nil
}

// AppDir is ~/.livestudio/<app>.
func (p *Paths) AppDir() string {
	return filepath.Join(p.HomeDir, DefaultBaseDir, p.AppName)
}

// ConfigFile is ~/.livestudio/<app>/config.yaml.
func (p *Paths) ConfigFile() string {
	return filepath.Join(p.AppDir(), DefaultConfigFile)
}

// DataDir is ~/.livestudio/<app>/data.
func (p *Paths) DataDir() string {
	return filepath.Join(p.AppDir(), "data")
}

// HistoryDir holds the turn history database.
func (p *Paths) HistoryDir() string {
	return filepath.Join(p.DataDir(), "history")
}

// Ensure creates dir and its parents.
func Ensure(dir string) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("cli: create %s: %w", dir, err)
	}
	return dir, nil
}
