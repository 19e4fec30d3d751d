// conf/utils.go various util functions for configuration package
package conf

import (
	"os"
	"path/filepath"
	"runtime"

	"github.com/tphakala/audioengine/internal/errors"
)

const (
	osWindows = "windows"
	appName   = "audioengine"
)

// GetDefaultConfigPaths returns the config search paths for the current operating system,
// most specific first. The working directory is always searched.
func GetDefaultConfigPaths() ([]string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, errors.New(err).
			Category(errors.CategorySystem).
			Context("operation", "get-home-directory").
			Build()
	}

	switch runtime.GOOS {
	case osWindows:
		exePath, err := os.Executable()
		if err != nil {
			return nil, errors.New(err).
				Category(errors.CategorySystem).
				Context("operation", "get-executable-path").
				Build()
		}
		return []string{
			".",
			filepath.Dir(exePath),
			filepath.Join(homeDir, "AppData", "Roaming", appName),
		}, nil
	default:
		return []string{
			".",
			filepath.Join(homeDir, ".config", appName),
			"/etc/" + appName,
		}, nil
	}
}
