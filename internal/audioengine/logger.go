package audioengine

import "github.com/tphakala/audioengine/internal/logger"

// GetLogger returns the engine logger.
func GetLogger() logger.Logger {
	return logger.Global().Module("audioengine")
}
