// Package config handles service and viewer configuration loading.
package config

import (
	"fmt"
	"time"
)

// Config holds all settings shared by the server and the viewer.
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Rooms   RoomsConfig   `yaml:"rooms"`
	Viewer  ViewerConfig  `yaml:"viewer"`
	Logging LoggingConfig `yaml:"logging"`
}

// ServerConfig holds HTTP listener settings.
type ServerConfig struct {
	Addr            string        `yaml:"addr"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
}

// RoomsConfig holds room model storage and the initial roster.
type RoomsConfig struct {
	Dir       string       `yaml:"dir"`         // Directory of <room>.glb files
	MaxFileMB int          `yaml:"max_file_mb"` // 0 disables the limit
	Seed      []SeedEntity `yaml:"seed"`
}

// SeedEntity is a roster entry loaded at startup.
type SeedEntity struct {
	ID       string     `yaml:"id"`
	Kind     string     `yaml:"kind"`
	Name     string     `yaml:"name,omitempty"`
	Status   string     `yaml:"status,omitempty"`
	Position [3]float32 `yaml:"position,flow"`
}

// ViewerConfig holds headless viewer settings.
type ViewerConfig struct {
	ServerURL      string        `yaml:"server_url"`
	Room           string        `yaml:"room"`
	PollInterval   time.Duration `yaml:"poll_interval"`
	RequestTimeout time.Duration `yaml:"request_timeout"`

	Width      int     `yaml:"width"`
	Height     int     `yaml:"height"`
	Projection string  `yaml:"projection"` // perspective or topdown
	FOVDegrees float32 `yaml:"fov_degrees"`
	TopDown    struct {
		Margin float32 `yaml:"margin"`
	} `yaml:"topdown"`

	DeviceRadius      float32 `yaml:"device_radius"`
	ParticipantRadius float32 `yaml:"participant_radius"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level   string `yaml:"level"`
	LogFile string `yaml:"log_file"`
	Format  string `yaml:"format"` // console or json, file output only
}

// Projection modes.
const (
	ProjectionPerspective = "perspective"
	ProjectionTopDown     = "topdown"
)

// Default returns a Config with sensible default values.
func Default() *Config {
	cfg := &Config{
		Server: ServerConfig{
			Addr:            ":8080",
			ShutdownTimeout: 10 * time.Second,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    30 * time.Second,
		},
		Rooms: RoomsConfig{
			Dir:       "rooms",
			MaxFileMB: 64,
		},
		Viewer: ViewerConfig{
			ServerURL:         "http://127.0.0.1:8080",
			Room:              "lobby",
			PollInterval:      2 * time.Second,
			RequestTimeout:    5 * time.Second,
			Width:             1280,
			Height:            720,
			Projection:        ProjectionPerspective,
			FOVDegrees:        45,
			DeviceRadius:      12,
			ParticipantRadius: 20,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
	cfg.Viewer.TopDown.Margin = 32
	return cfg
}

// Validate rejects settings the binaries cannot run with.
func (c *Config) Validate() error {
	switch c.Viewer.Projection {
	case ProjectionPerspective, ProjectionTopDown:
	default:
		return fmt.Errorf("viewer.projection: unknown mode %q", c.Viewer.Projection)
	}
	if c.Viewer.PollInterval <= 0 {
		return fmt.Errorf("viewer.poll_interval must be positive, got %v", c.Viewer.PollInterval)
	}
	if c.Viewer.Width <= 0 || c.Viewer.Height <= 0 {
		return fmt.Errorf("viewer size must be positive, got %dx%d", c.Viewer.Width, c.Viewer.Height)
	}
	if c.Viewer.FOVDegrees <= 0 || c.Viewer.FOVDegrees >= 180 {
		return fmt.Errorf("viewer.fov_degrees out of range: %v", c.Viewer.FOVDegrees)
	}
	if c.Rooms.MaxFileMB < 0 {
		return fmt.Errorf("rooms.max_file_mb must not be negative")
	}
	for i, s := range c.Rooms.Seed {
		if s.ID == "" || s.Kind == "" {
			return fmt.Errorf("rooms.seed[%d]: id and kind are required", i)
		}
	}
	return nil
}

// MaxFileBytes returns the model size limit in bytes, 0 when unlimited.
func (c *Config) MaxFileBytes() int64 {
	return int64(c.Rooms.MaxFileMB) << 20
}
