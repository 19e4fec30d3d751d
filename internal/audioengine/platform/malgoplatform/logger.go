package malgoplatform

import "github.com/tphakala/audioengine/internal/logger"

// GetLogger returns the miniaudio provider logger.
func GetLogger() logger.Logger {
	return logger.Global().Module("audioengine").Module("malgo")
}
