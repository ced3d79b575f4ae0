package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	// Server defaults
	if cfg.Server.Addr != ":8080" {
		t.Errorf("expected addr :8080, got %s", cfg.Server.Addr)
	}
	if cfg.Server.ShutdownTimeout != 10*time.Second {
		t.Errorf("expected shutdown timeout 10s, got %v", cfg.Server.ShutdownTimeout)
	}

	// Room defaults
	if cfg.Rooms.Dir != "rooms" {
		t.Errorf("expected rooms dir 'rooms', got %s", cfg.Rooms.Dir)
	}
	if cfg.MaxFileBytes() != 64<<20 {
		t.Errorf("expected 64 MiB limit, got %d", cfg.MaxFileBytes())
	}

	// Viewer defaults
	if cfg.Viewer.PollInterval != 2*time.Second {
		t.Errorf("expected poll interval 2s, got %v", cfg.Viewer.PollInterval)
	}
	if cfg.Viewer.Projection != ProjectionPerspective {
		t.Errorf("expected perspective projection, got %s", cfg.Viewer.Projection)
	}
	if cfg.Viewer.DeviceRadius != 12 || cfg.Viewer.ParticipantRadius != 20 {
		t.Errorf("unexpected hit radii %v/%v", cfg.Viewer.DeviceRadius, cfg.Viewer.ParticipantRadius)
	}

	// Logging defaults
	if cfg.Logging.Level != "info" {
		t.Errorf("expected log level 'info', got %s", cfg.Logging.Level)
	}
	if cfg.Logging.LogFile != "" {
		t.Errorf("expected empty log file, got %s", cfg.Logging.LogFile)
	}

	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults should validate: %v", err)
	}
}

func TestLoadFromFile(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	yamlContent := `
server:
  addr: "0.0.0.0:9000"
  shutdown_timeout: 3s

rooms:
  dir: "/srv/rooms"
  max_file_mb: 8
  seed:
    - id: "lock-1"
      kind: device
      name: "Front door"
      status: online
      position: [1.5, 0, -2]
    - id: "7"
      kind: participant

viewer:
  server_url: "http://scape.local:8080"
  room: "office"
  poll_interval: 500ms
  projection: topdown
  topdown:
    margin: 10

logging:
  level: "debug"
  log_file: "scape.log"
  format: json
`

	if err := os.WriteFile(configPath, []byte(yamlContent), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	cfg := Default()
	if err := loadFromFile(cfg, configPath); err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if cfg.Server.Addr != "0.0.0.0:9000" {
		t.Errorf("expected addr 0.0.0.0:9000, got %s", cfg.Server.Addr)
	}
	if cfg.Server.ShutdownTimeout != 3*time.Second {
		t.Errorf("expected shutdown timeout 3s, got %v", cfg.Server.ShutdownTimeout)
	}
	// Untouched keys keep their defaults
	if cfg.Server.ReadTimeout != 15*time.Second {
		t.Errorf("expected default read timeout, got %v", cfg.Server.ReadTimeout)
	}

	if cfg.Rooms.Dir != "/srv/rooms" || cfg.Rooms.MaxFileMB != 8 {
		t.Errorf("unexpected rooms config %+v", cfg.Rooms)
	}
	if len(cfg.Rooms.Seed) != 2 {
		t.Fatalf("expected 2 seed entries, got %d", len(cfg.Rooms.Seed))
	}
	if got := cfg.Rooms.Seed[0]; got.Name != "Front door" || got.Position != [3]float32{1.5, 0, -2} {
		t.Errorf("unexpected seed entry %+v", got)
	}

	if cfg.Viewer.Room != "office" {
		t.Errorf("expected room 'office', got %s", cfg.Viewer.Room)
	}
	if cfg.Viewer.PollInterval != 500*time.Millisecond {
		t.Errorf("expected poll interval 500ms, got %v", cfg.Viewer.PollInterval)
	}
	if cfg.Viewer.Projection != ProjectionTopDown {
		t.Errorf("expected topdown projection, got %s", cfg.Viewer.Projection)
	}
	if cfg.Viewer.TopDown.Margin != 10 {
		t.Errorf("expected margin 10, got %v", cfg.Viewer.TopDown.Margin)
	}

	if cfg.Logging.Level != "debug" {
		t.Errorf("expected log level 'debug', got %s", cfg.Logging.Level)
	}
	if cfg.Logging.LogFile != "scape.log" {
		t.Errorf("expected log file 'scape.log', got %s", cfg.Logging.LogFile)
	}
	if cfg.Logging.Format != "json" {
		t.Errorf("expected json format, got %s", cfg.Logging.Format)
	}
}

func TestLoadFromFileInvalid(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "invalid.yaml")

	invalidYAML := `
viewer:
  width: not a number
  invalid syntax here
`

	if err := os.WriteFile(configPath, []byte(invalidYAML), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	cfg := Default()
	err := loadFromFile(cfg, configPath)
	if err == nil {
		t.Fatal("expected error loading invalid YAML, got nil")
	}
	if !strings.Contains(err.Error(), "invalid.yaml") {
		t.Errorf("expected file name in error, got %v", err)
	}
}

func TestLoadFromFileMissing(t *testing.T) {
	cfg := Default()
	err := loadFromFile(cfg, "/nonexistent/path/config.yaml")
	if err == nil {
		t.Error("expected error loading missing file, got nil")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:    "unknown projection",
			mutate:  func(c *Config) { c.Viewer.Projection = "isometric" },
			wantErr: "viewer.projection",
		},
		{
			name:    "zero poll interval",
			mutate:  func(c *Config) { c.Viewer.PollInterval = 0 },
			wantErr: "poll_interval",
		},
		{
			name:    "empty viewport",
			mutate:  func(c *Config) { c.Viewer.Width = 0 },
			wantErr: "viewer size",
		},
		{
			name:    "flat fov",
			mutate:  func(c *Config) { c.Viewer.FOVDegrees = 180 },
			wantErr: "fov_degrees",
		},
		{
			name:    "negative limit",
			mutate:  func(c *Config) { c.Rooms.MaxFileMB = -1 },
			wantErr: "max_file_mb",
		},
		{
			name: "seed without kind",
			mutate: func(c *Config) {
				c.Rooms.Seed = []SeedEntity{{ID: "x"}}
			},
			wantErr: "rooms.seed[0]",
		},
		{
			name:   "topdown",
			mutate: func(c *Config) { c.Viewer.Projection = ProjectionTopDown },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()

			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestConfigDir(t *testing.T) {
	dir := ConfigDir()

	// Actual path depends on OS
	if dir == "" {
		t.Error("ConfigDir returned empty string")
	}
	if !filepath.IsAbs(dir) {
		t.Errorf("ConfigDir should return absolute path, got %s", dir)
	}
}

func TestFindConfigFile(t *testing.T) {
	// Isolate from any real user config
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("HOME", t.TempDir())

	tmpDir := t.TempDir()
	t.Chdir(tmpDir)

	// No config file exists - should return empty
	path := findConfigFile()
	if path != "" {
		t.Errorf("expected empty path when no config exists, got %s", path)
	}

	configPath := filepath.Join(tmpDir, "config.yaml")
	if err := os.WriteFile(configPath, []byte("viewer:\n  width: 800\n"), 0644); err != nil {
		t.Fatalf("failed to create test config: %v", err)
	}

	path = findConfigFile()
	if path == "" {
		t.Error("expected to find config.yaml in current directory")
	}
}

func TestApplyFlags(t *testing.T) {
	tests := []struct {
		name     string
		setup    func()
		verify   func(*testing.T, *Config)
		teardown func()
	}{
		{
			name:  "debug flag",
			setup: func() { *flagDebug = true },
			verify: func(t *testing.T, cfg *Config) {
				if cfg.Logging.Level != "debug" {
					t.Errorf("expected log level 'debug', got %s", cfg.Logging.Level)
				}
			},
			teardown: func() { *flagDebug = false },
		},
		{
			name: "server flags",
			setup: func() {
				*flagAddr = ":9999"
				*flagRooms = "/data/rooms"
			},
			verify: func(t *testing.T, cfg *Config) {
				if cfg.Server.Addr != ":9999" {
					t.Errorf("expected addr :9999, got %s", cfg.Server.Addr)
				}
				if cfg.Rooms.Dir != "/data/rooms" {
					t.Errorf("expected rooms dir /data/rooms, got %s", cfg.Rooms.Dir)
				}
			},
			teardown: func() {
				*flagAddr = ""
				*flagRooms = ""
			},
		},
		{
			name: "viewer flags",
			setup: func() {
				*flagServer = "http://10.0.0.5:8080"
				*flagRoom = "lab"
				*flagPoll = 250 * time.Millisecond
			},
			verify: func(t *testing.T, cfg *Config) {
				if cfg.Viewer.ServerURL != "http://10.0.0.5:8080" {
					t.Errorf("expected server url override, got %s", cfg.Viewer.ServerURL)
				}
				if cfg.Viewer.Room != "lab" {
					t.Errorf("expected room 'lab', got %s", cfg.Viewer.Room)
				}
				if cfg.Viewer.PollInterval != 250*time.Millisecond {
					t.Errorf("expected poll 250ms, got %v", cfg.Viewer.PollInterval)
				}
			},
			teardown: func() {
				*flagServer = ""
				*flagRoom = ""
				*flagPoll = 0
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.setup()
			defer tt.teardown()

			cfg := Default()
			applyFlags(cfg)

			tt.verify(t, cfg)
		})
	}
}

func TestLoadPriority(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	yamlContent := `
viewer:
  room: "from-file"
  server_url: "http://file:8080"
`

	if err := os.WriteFile(configPath, []byte(yamlContent), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	// Set flag to override config file
	*flagConfig = configPath
	*flagRoom = "from-flag"
	defer func() {
		*flagConfig = ""
		*flagRoom = ""
	}()

	cfg, err := Load()
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	// Room should be from flag, not file
	if cfg.Viewer.Room != "from-flag" {
		t.Errorf("expected room from flag, got %s", cfg.Viewer.Room)
	}

	// Server URL from file since no flag override
	if cfg.Viewer.ServerURL != "http://file:8080" {
		t.Errorf("expected server url from file, got %s", cfg.Viewer.ServerURL)
	}
}

func TestLoadRejectsInvalid(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(configPath, []byte("viewer:\n  projection: fisheye\n"), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	*flagConfig = configPath
	defer func() { *flagConfig = "" }()

	if _, err := Load(); err == nil {
		t.Error("expected invalid projection to fail Load")
	}
}

func TestSaveTo(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	cfg := Default()
	cfg.Viewer.Room = "saved"
	cfg.Rooms.Seed = []SeedEntity{{ID: "d1", Kind: "device", Position: [3]float32{1, 2, 3}}}
	if err := cfg.SaveTo(path); err != nil {
		t.Fatalf("SaveTo: %v", err)
	}

	loaded := Default()
	if err := loadFromFile(loaded, path); err != nil {
		t.Fatalf("reloading saved config: %v", err)
	}
	if loaded.Viewer.Room != "saved" {
		t.Errorf("expected room 'saved', got %s", loaded.Viewer.Room)
	}
	if len(loaded.Rooms.Seed) != 1 || loaded.Rooms.Seed[0].Position != [3]float32{1, 2, 3} {
		t.Errorf("seed did not survive round trip: %+v", loaded.Rooms.Seed)
	}
	if loaded.Server.ShutdownTimeout != cfg.Server.ShutdownTimeout {
		t.Errorf("durations did not survive round trip")
	}
}

func TestLoadFromEnv(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "env.yaml")
	if err := os.WriteFile(configPath, []byte("server:\n  addr: \":7070\"\n"), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}
	t.Setenv(EnvConfig, configPath)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}
	if cfg.Server.Addr != ":7070" {
		t.Errorf("expected addr from $%s, got %s", EnvConfig, cfg.Server.Addr)
	}
}
