package config

const (
	defaultDataDir         = "~/.local/share/chemdrive"
	defaultLogDir          = "~/.local/share/chemdrive/logs"
	defaultServerBinary    = "flowchem"
	defaultReadyMarker     = "Uvicorn running on "
	defaultStopGrace       = 3
	defaultKillGrace       = 1
	defaultDisplayHost     = "127.0.0.1"
	defaultEthernetPort    = 30718
	defaultEthernetTimeout = 3
	defaultNtfyTimeout     = 10
	defaultLogFormat       = "console"
	defaultLogLevel        = "info"
)

func defaultSerialGlobs() []string {
	return []string{"/dev/ttyUSB*", "/dev/ttyACM*"}
}

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir: defaultDataDir,
			LogDir:  defaultLogDir,
		},
		Server: Server{
			Binary:      defaultServerBinary,
			ReadyMarker: defaultReadyMarker,
			StopGrace:   defaultStopGrace,
			KillGrace:   defaultKillGrace,
			DisplayHost: defaultDisplayHost,
		},
		Discovery: Discovery{
			SerialGlobs:     defaultSerialGlobs(),
			EthernetPort:    defaultEthernetPort,
			EthernetTimeout: defaultEthernetTimeout,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNtfyTimeout,
			ServerEvents:   true,
			Errors:         true,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
