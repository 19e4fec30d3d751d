// Package conf provides configuration management for the audio engine.
package conf

import "github.com/tphakala/audioengine/internal/logger"

// GetLogger returns the config package logger scoped to the config module.
// The logger is fetched from the global logger each time so it follows
// a centralized logger installed after package init.
func GetLogger() logger.Logger {
	return logger.Global().Module("config")
}
