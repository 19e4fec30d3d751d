package encoder

import "github.com/tphakala/audioengine/internal/logger"

// GetLogger returns the encoder logger.
func GetLogger() logger.Logger {
	return logger.Global().Module("encoder")
}
