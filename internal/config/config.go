package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Database   DatabaseConfig   `yaml:"database"`
	Queue      QueueConfig      `yaml:"queue"`
	Monitoring MonitoringConfig `yaml:"monitoring"`
	Printing   PrintingConfig   `yaml:"printing"`
	Webhooks   WebhookConfig    `yaml:"webhooks"`
	Logging    LoggingConfig    `yaml:"logging"`
}

type ServerConfig struct {
	Port         int           `yaml:"port"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
}

type DatabaseConfig struct {
	Path string `yaml:"path"`
}

type QueueConfig struct {
	WorkerInterval time.Duration `yaml:"worker_interval"`
	JobRetention   time.Duration `yaml:"job_retention"`
	WaitTimePerJob time.Duration `yaml:"wait_time_per_job"`
}

type MonitoringConfig struct {
	MaxHistoryPerJob int           `yaml:"max_history_per_job"`
	RetentionHours   int           `yaml:"retention_hours"`
	OfflineThreshold time.Duration `yaml:"offline_threshold"`
}

type PrintingConfig struct {
	ConnectionTimeout time.Duration `yaml:"connection_timeout"`
	DefaultPort       int           `yaml:"default_port"`
}

type WebhookConfig struct {
	RetryCount  int           `yaml:"retry_count"`
	RetryDelay  time.Duration `yaml:"retry_delay"`
	Timeout     time.Duration `yaml:"timeout"`
	WorkerCount int           `yaml:"worker_count"`
	QueueSize   int           `yaml:"queue_size"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

func defaults() *Config {
	return &Config{
		Server: ServerConfig{
			Port:         8080,
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 30 * time.Second,
		},
		Database: DatabaseConfig{
			Path: "./data/thermal-print.db",
		},
		Queue: QueueConfig{
			WorkerInterval: 1 * time.Second,
			JobRetention:   60 * time.Second,
			WaitTimePerJob: 10 * time.Second,
		},
		Monitoring: MonitoringConfig{
			MaxHistoryPerJob: 50,
			RetentionHours:   24,
			OfflineThreshold: 5 * time.Minute,
		},
		Printing: PrintingConfig{
			ConnectionTimeout: 10 * time.Second,
			DefaultPort:       9100,
		},
		Webhooks: WebhookConfig{
			RetryCount:  3,
			RetryDelay:  5 * time.Second,
			Timeout:     10 * time.Second,
			WorkerCount: 3,
			QueueSize:   100,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

func Load(configPath string) (*Config, error) {
	cfg := defaults()

	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return cfg, nil
}

func LoadFromEnv() *Config {
	cfg := defaults()

	if v := os.Getenv("TPS_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}

	if v := os.Getenv("TPS_DB_PATH"); v != "" {
		cfg.Database.Path = v
	}

	if v := os.Getenv("TPS_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}

	return cfg
}

func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server port must be between 1 and 65535, got %d", c.Server.Port)
	}

	if c.Server.ReadTimeout < 0 {
		return fmt.Errorf("server read timeout must be non-negative")
	}

	if c.Server.WriteTimeout < 0 {
		return fmt.Errorf("server write timeout must be non-negative")
	}

	if c.Database.Path == "" {
		return fmt.Errorf("database path is required")
	}

	if c.Queue.WorkerInterval <= 0 {
		return fmt.Errorf("queue worker interval must be positive")
	}

	if c.Queue.JobRetention < 0 {
		return fmt.Errorf("queue job retention must be non-negative")
	}

	if c.Queue.WaitTimePerJob < 0 {
		return fmt.Errorf("queue wait time per job must be non-negative")
	}

	if c.Monitoring.MaxHistoryPerJob < 1 {
		return fmt.Errorf("monitoring max history per job must be at least 1")
	}

	if c.Monitoring.RetentionHours < 0 {
		return fmt.Errorf("monitoring retention hours must be non-negative")
	}

	if c.Monitoring.OfflineThreshold < 0 {
		return fmt.Errorf("monitoring offline threshold must be non-negative")
	}

	if c.Printing.ConnectionTimeout < 0 {
		return fmt.Errorf("printing connection timeout must be non-negative")
	}

	if c.Printing.DefaultPort < 1 || c.Printing.DefaultPort > 65535 {
		return fmt.Errorf("printing default port must be between 1 and 65535, got %d", c.Printing.DefaultPort)
	}

	if c.Webhooks.WorkerCount < 1 {
		return fmt.Errorf("webhook worker count must be at least 1")
	}

	validLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}

	if !validLevels[c.Logging.Level] {
		return fmt.Errorf("invalid log level: %s (valid: debug, info, warn, error)", c.Logging.Level)
	}

	return nil
}
