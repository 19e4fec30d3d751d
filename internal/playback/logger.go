package playback

import "github.com/tphakala/audioengine/internal/logger"

// GetLogger returns the playback logger.
func GetLogger() logger.Logger {
	return logger.Global().Module("playback")
}
