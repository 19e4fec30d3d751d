// conf/defaults.go default values for settings
package conf

import (
	"time"

	"github.com/spf13/viper"
)

// Sets default values for the configuration.
func setDefaultConfig() {
	setDefaultsOn(viper.GetViper())
}

func setDefaultsOn(v *viper.Viper) {
	v.SetDefault("debug", false)

	v.SetDefault("engine.backend", "auto")
	v.SetDefault("engine.periodframes", 480)
	v.SetDefault("engine.waittimeoutperiods", 2)
	v.SetDefault("engine.failurethreshold", 10)
	v.SetDefault("engine.underrunfill", "silence")
	v.SetDefault("engine.threadpriority.enabled", true)
	v.SetDefault("engine.threadpriority.profile", "Pro Audio")
	v.SetDefault("engine.threadpriority.rtpriority", 10)
	v.SetDefault("engine.aec.enabled", false)
	v.SetDefault("engine.aec.geometrycachettl", 5*time.Minute)

	v.SetDefault("capture.device", -1)
	v.SetDefault("capture.samplerate", 48000)
	v.SetDefault("capture.channels", 1)
	v.SetDefault("render.device", -1)
	v.SetDefault("render.samplerate", 48000)
	v.SetDefault("render.channels", 2)

	v.SetDefault("telemetry.enabled", false)
	v.SetDefault("telemetry.listen", "localhost:8090")

	v.SetDefault("logging.defaultlevel", "info")
	v.SetDefault("logging.timezone", "Local")
	v.SetDefault("logging.console.enabled", true)
	v.SetDefault("logging.console.level", "info")
	v.SetDefault("logging.fileoutput.enabled", false)
	v.SetDefault("logging.fileoutput.path", "logs/audioengine.log")
	v.SetDefault("logging.fileoutput.level", "debug")
	v.SetDefault("logging.fileoutput.buffersize", 32*1024)
	v.SetDefault("logging.fileoutput.flushinterval", 5*time.Second)
}
