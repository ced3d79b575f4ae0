package config

import "flag"

var (
	flagConfig = flag.String("config", "", "Path to config file")
	flagDebug  = flag.Bool("debug", false, "Enable debug logging")
	flagAddr   = flag.String("addr", "", "HTTP listen address")
	flagRooms  = flag.String("rooms", "", "Directory holding <room>.glb models")
	flagServer = flag.String("server", "", "Base URL of the scene server")
	flagRoom   = flag.String("room", "", "Room to display")
	flagPoll   = flag.Duration("poll", 0, "Entity poll interval")
)

// ParseFlags parses command-line flags. Call this early in main().
func ParseFlags() {
	flag.Parse()
}

// Args returns the positional arguments left after flag parsing.
func Args() []string {
	return flag.Args()
}

// ConfigPath returns the explicit config path if provided via --config flag.
func ConfigPath() string {
	return *flagConfig
}

// applyFlags applies CLI flag overrides to the config.
func applyFlags(cfg *Config) {
	if *flagDebug {
		cfg.Logging.Level = "debug"
	}
	if *flagAddr != "" {
		cfg.Server.Addr = *flagAddr
	}
	if *flagRooms != "" {
		cfg.Rooms.Dir = *flagRooms
	}
	if *flagServer != "" {
		cfg.Viewer.ServerURL = *flagServer
	}
	if *flagRoom != "" {
		cfg.Viewer.Room = *flagRoom
	}
	if *flagPoll > 0 {
		cfg.Viewer.PollInterval = *flagPoll
	}
}
