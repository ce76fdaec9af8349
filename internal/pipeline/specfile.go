package pipeline

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// SpecPath finds the app's JSON parameter-schema file, searching the given
// directories in order for <dir>/<app>.json.
func SpecPath(dirs []string, app string) (string, error) {
	for _, dir := range dirs {
		p := filepath.Join(dir, app+".json")
		if info, err := os.Stat(p); err == nil && !info.IsDir() {
			return p, nil
		}
	}
	return "", fmt.Errorf("%w: %s.json not in %s", ErrSpecNotFound, app, strings.Join(dirs, ", "))
}

// CheckBinary verifies the pipeline launcher is invocable before any job
// is dispatched.
func CheckBinary(command string) error {
	if _, err := exec.LookPath(command); err != nil {
		return fmt.Errorf("pipeline command %q not found: %w", command, err)
	}
	return nil
}
