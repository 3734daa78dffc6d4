package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/actionsum/sac/pkg/classify"
)

// Config holds all application configuration
type Config struct {
	Monitor    MonitorConfig    `mapstructure:"monitor"`
	Capture    CaptureConfig    `mapstructure:"capture"`
	Classifier ClassifierConfig `mapstructure:"classifier"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Daemon     DaemonConfig     `mapstructure:"daemon"`
	Log        LogConfig        `mapstructure:"log"`
	Web        WebConfig        `mapstructure:"web"`
	Redis      RedisConfig      `mapstructure:"redis"`
	Report     ReportConfig     `mapstructure:"report"`
}

// MonitorConfig holds the cycle cadence
type MonitorConfig struct {
	Interval      time.Duration `mapstructure:"interval"`       // Time between cycles
	MinInterval   time.Duration `mapstructure:"min_interval"`   // Minimum allowed interval
	MaxInterval   time.Duration `mapstructure:"max_interval"`   // Maximum allowed interval
	BatchSize     int           `mapstructure:"batch_size"`     // Frames per cycle
	FrameInterval time.Duration `mapstructure:"frame_interval"` // Pause between frames of a batch
	FailFast      bool          `mapstructure:"fail_fast"`      // Stop on the first failed cycle
}

// CaptureConfig selects the frame source
type CaptureConfig struct {
	Source string `mapstructure:"source"` // "x11" or "folder"
	Folder string `mapstructure:"folder"` // Replay folder for the "folder" source
	Loop   bool   `mapstructure:"loop"`   // Restart the replay when exhausted
}

// ClassifierConfig selects how frames become labels
type ClassifierConfig struct {
	Kind          string          `mapstructure:"kind"` // "window" or "genai"
	Model         string          `mapstructure:"model"`
	APIKey        string          `mapstructure:"api_key"`
	ContextFiles  []string        `mapstructure:"context_files"`
	IdleThreshold time.Duration   `mapstructure:"idle_threshold"` // Time before considering user idle
	Rules         []classify.Rule `mapstructure:"rules"`
}

// DatabaseConfig holds database-related configuration
type DatabaseConfig struct {
	Enabled bool   `mapstructure:"enabled"` // Record activities to SQLite
	Path    string `mapstructure:"path"`    // Path to SQLite database file
}

// DaemonConfig holds daemon process configuration
type DaemonConfig struct {
	PIDFile string `mapstructure:"pid_file"` // Path to PID file for daemon management
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level      string `mapstructure:"level"`
	File       string `mapstructure:"file"` // Empty logs to stderr
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
	Compress   bool   `mapstructure:"compress"`
}

// WebConfig holds web server configuration
type WebConfig struct {
	Host string `mapstructure:"host"` // Host to bind web server to
	Port int    `mapstructure:"port"` // Port for web server
}

// RedisConfig enables publishing labels to a Redis channel when Addr is set
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	Channel  string `mapstructure:"channel"`
}

// ReportConfig holds report generation configuration
type ReportConfig struct {
	TimeZone string `mapstructure:"time_zone"`
}

// Default returns a Config with sensible default values
func Default() *Config {
	return &Config{
		Monitor: MonitorConfig{
			Interval:      10 * time.Second,
			MinInterval:   1 * time.Second,
			MaxInterval:   1 * time.Hour,
			BatchSize:     1,
			FrameInterval: 500 * time.Millisecond,
		},
		Capture: CaptureConfig{
			Source: "x11",
		},
		Classifier: ClassifierConfig{
			Kind:          "window",
			Model:         classify.DefaultModel,
			IdleThreshold: 300 * time.Second, // 5 minutes idle threshold
		},
		Database: DatabaseConfig{
			Enabled: true,
			Path:    "", // Empty means use default ~/.config/sac/sac.db
		},
		Daemon: DaemonConfig{
			PIDFile: fmt.Sprintf("/tmp/sac-%d.pid", os.Getuid()),
		},
		Log: LogConfig{
			Level:      "info",
			MaxSizeMB:  10,
			MaxBackups: 3,
			MaxAgeDays: 7,
		},
		Web: WebConfig{
			Host: "localhost",
			Port: 10000 + os.Getuid()%50000,
		},
		Redis: RedisConfig{
			Channel: "sac:activity",
		},
		Report: ReportConfig{
			TimeZone: "Local",
		},
	}
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Monitor.Interval < c.Monitor.MinInterval {
		return fmt.Errorf("monitor interval (%v) cannot be less than minimum (%v)",
			c.Monitor.Interval, c.Monitor.MinInterval)
	}

	if c.Monitor.Interval > c.Monitor.MaxInterval {
		return fmt.Errorf("monitor interval (%v) cannot be greater than maximum (%v)",
			c.Monitor.Interval, c.Monitor.MaxInterval)
	}

	if c.Monitor.BatchSize < 1 {
		return fmt.Errorf("batch size must be at least 1, got %d", c.Monitor.BatchSize)
	}

	if c.Monitor.FrameInterval < 0 {
		return fmt.Errorf("frame interval cannot be negative")
	}

	switch c.Capture.Source {
	case "x11":
	case "folder":
		if c.Capture.Folder == "" {
			return fmt.Errorf("capture source \"folder\" requires capture.folder")
		}
	default:
		return fmt.Errorf("unknown capture source %q (valid: x11, folder)", c.Capture.Source)
	}

	switch c.Classifier.Kind {
	case "window":
		if c.Capture.Source == "folder" {
			return fmt.Errorf("the window classifier cannot label replayed frames, use the genai classifier")
		}
	case "genai":
		if c.Classifier.APIKey == "" {
			return fmt.Errorf("the genai classifier requires classifier.api_key")
		}
	default:
		return fmt.Errorf("unknown classifier %q (valid: window, genai)", c.Classifier.Kind)
	}

	if c.Classifier.IdleThreshold < 0 {
		return fmt.Errorf("idle threshold cannot be negative")
	}

	if c.Web.Port < 1 || c.Web.Port > 65535 {
		return fmt.Errorf("web port must be between 1 and 65535, got %d", c.Web.Port)
	}

	if c.Web.Host == "" {
		return fmt.Errorf("web host cannot be empty")
	}

	if c.Daemon.PIDFile == "" {
		return fmt.Errorf("PID file path cannot be empty")
	}

	if c.Redis.Addr != "" && c.Redis.Channel == "" {
		return fmt.Errorf("redis channel cannot be empty when redis.addr is set")
	}

	return nil
}

// SetInterval sets the monitor interval with validation
func (c *Config) SetInterval(interval time.Duration) error {
	if interval < c.Monitor.MinInterval {
		return fmt.Errorf("monitor interval cannot be less than %v", c.Monitor.MinInterval)
	}
	if interval > c.Monitor.MaxInterval {
		return fmt.Errorf("monitor interval cannot be greater than %v", c.Monitor.MaxInterval)
	}
	c.Monitor.Interval = interval
	return nil
}

// SetWebPort sets the web server port with validation
func (c *Config) SetWebPort(port int) error {
	if port < 1 || port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535, got %d", port)
	}
	c.Web.Port = port
	return nil
}

// GetIntervalSeconds returns the monitor interval in seconds
func (c *Config) GetIntervalSeconds() int64 {
	return int64(c.Monitor.Interval.Seconds())
}

// String returns a string representation of the config. The API key is masked.
func (c *Config) String() string {
	apiKey := ""
	if c.Classifier.APIKey != "" {
		apiKey = "****"
	}
	return fmt.Sprintf(`Configuration:
  Monitor:
    Interval: %v
    Batch Size: %d
    Frame Interval: %v
    Fail Fast: %v
  Capture:
    Source: %s
    Folder: %s
  Classifier:
    Kind: %s
    Model: %s
    API Key: %s
    Context Files: %s
    Idle Threshold: %v
    Custom Rules: %d
  Database:
    Enabled: %v
    Path: %s
  Daemon:
    PID File: %s
  Log:
    Level: %s
    File: %s
  Web:
    Host: %s
    Port: %d
  Redis:
    Addr: %s
    Channel: %s`,
		c.Monitor.Interval,
		c.Monitor.BatchSize,
		c.Monitor.FrameInterval,
		c.Monitor.FailFast,
		c.Capture.Source,
		c.Capture.Folder,
		c.Classifier.Kind,
		c.Classifier.Model,
		apiKey,
		strings.Join(c.Classifier.ContextFiles, ", "),
		c.Classifier.IdleThreshold,
		len(c.Classifier.Rules),
		c.Database.Enabled,
		c.Database.Path,
		c.Daemon.PIDFile,
		c.Log.Level,
		c.Log.File,
		c.Web.Host,
		c.Web.Port,
		c.Redis.Addr,
		c.Redis.Channel,
	)
}
