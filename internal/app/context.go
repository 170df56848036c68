package app

import (
	"fmt"
	"os"

	"mindkeep/internal/config"
)

// ResolveConfig loads mindkeep.yml from the workspace, falling back to the
// built-in defaults when the file is absent so a fresh workspace works
// without any setup step.
func ResolveConfig(workspace string) (*config.Config, error) {
	cfg, err := config.LoadOptional(workspace)
	if err != nil {
		return nil, err
	}
	if cfg == nil {
		cfg = config.Default("local")
	}
	return cfg, nil
}

// WriteDefault seeds mindkeep.yml in the workspace. It refuses to overwrite
// an existing file.
func WriteDefault(workspace, profile string) (string, error) {
	path := config.Path(workspace)
	if _, err := os.Stat(path); err == nil {
		return "", fmt.Errorf("%s already exists; remove it first to re-init", path)
	}
	if profile == "" {
		profile = "local"
	}
	if err := os.WriteFile(path, []byte(config.GenerateDefault(profile)), 0o644); err != nil {
		return "", err
	}
	return path, nil
}
