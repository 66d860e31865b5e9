package config

import (
	"os"

	"gopkg.in/yaml.v3"
)

var GlobalConfig *Config

// Config global configuration
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	MySQL     MySQLConfig     `yaml:"mysql"`
	Redis     RedisConfig     `yaml:"redis"`
	Inbox     InboxConfig     `yaml:"inbox"`
	Jobs      JobsConfig      `yaml:"jobs"`
	Downloads DownloadsConfig `yaml:"downloads"`
	Logger    LoggerConfig    `yaml:"logger"`
}

// ServerConfig server configuration
type ServerConfig struct {
	Port   int    `yaml:"port"`
	Mode   string `yaml:"mode"` // debug, release
	APIKey string `yaml:"api_key"`
}

// MySQLConfig MySQL configuration
type MySQLConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Database string `yaml:"database"`
}

// RedisConfig Redis configuration (optional, used for job locks)
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// InboxConfig shared filesystem inbox written by the CLI agent
type InboxConfig struct {
	Dir                   string `yaml:"dir"`                     // event queue directory (workspaces/.events)
	WorkspacesDir         string `yaml:"workspaces_dir"`          // root of workspace repositories
	RetainProcessedHours  int    `yaml:"retain_processed_hours"`  // how long acknowledged files are kept in .processed/
	WatchEnabled          bool   `yaml:"watch_enabled"`           // fsnotify nudge between polls
}

// JobsConfig periods and thresholds for the periodic background jobs
type JobsConfig struct {
	ReplicatorPeriodSeconds   int `yaml:"replicator_period_seconds"`
	SynchronizerPeriodSeconds int `yaml:"synchronizer_period_seconds"`
	DetectorPeriodSeconds     int `yaml:"detector_period_seconds"`
	CompressionPeriodSeconds  int `yaml:"compression_period_seconds"`
	RetentionPeriodHours      int `yaml:"retention_period_hours"`

	SessionGracePeriodMinutes int `yaml:"session_grace_period_minutes"` // inactivity before a session is FINISHED
	SessionRetentionDays      int `yaml:"session_retention_days"`
	InstanceRetentionDays     int `yaml:"instance_retention_days"`
	EventRetentionDays        int `yaml:"event_retention_days"`
	MessageRetentionDays      int `yaml:"message_retention_days"`
}

// DownloadsConfig in-memory download task registry tuning
type DownloadsConfig struct {
	CompletedTaskTTLMinutes int `yaml:"completed_task_ttl_minutes"`
	CleanupIntervalMinutes  int `yaml:"cleanup_interval_minutes"`
	Parallelism             int `yaml:"parallelism"` // concurrent file transfers per task
	TempDir                 string `yaml:"temp_dir"`
}

// LoggerConfig logger configuration
type LoggerConfig struct {
	Level  string           `yaml:"level"`  // debug, info, warn, error
	Output string           `yaml:"output"` // console, file, both
	File   LoggerFileConfig `yaml:"file"`
}

// LoggerFileConfig logger file configuration
type LoggerFileConfig struct {
	Path string `yaml:"path"`
}

// Init initializes configuration
func Init() error {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config/config.yaml"
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return err
	}

	GlobalConfig = &cfg
	return nil
}
