package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all application configuration, layered env-var-first with a
// YAML-file override, matching the teacher's Load -> LoadFromFile ->
// LoadFromEnv precedence.
type Config struct {
	Server       ServerConfig
	Database     DatabaseConfig
	Redis        RedisConfig
	Monitoring   MonitoringConfig
	Notification NotificationConfig
	Log          LogConfig
}

// ServerConfig holds the relay's HTTP (websocket-upgrade + /metrics +
// /healthz) server configuration. No REST/CRUD surface lives behind it —
// that is an external collaborator per spec.
type ServerConfig struct {
	Port         int
	ReadTimeout  int
	WriteTimeout int
}

// DatabaseConfig holds database connection configuration.
type DatabaseConfig struct {
	Type            string // postgres, mysql, sqlite
	Host            string
	Port            int
	User            string
	Password        string
	Name            string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime int
}

// RedisConfig holds the Redis connection used for the TTL/lock store, the
// delayed-job queue, and the monitor_updates_stream.
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
	Prefix   string
}

// MonitoringConfig holds defaults for the probe/scheduler/alert core that
// are not per-monitor (those live on models.Monitor).
type MonitoringConfig struct {
	// MinIntervalMinutes is the product-level floor on monitor cadence (§1
	// Non-goals: "minimum interval is 5 minutes for the product, though the
	// engine itself is not limited").
	MinIntervalMinutes int
	// WorkerPoolSize is loaded from WORKER_POOL_SIZE. Nothing outside this
	// package reads it; internal/scheduler runs claimed jobs one at a time.
	WorkerPoolSize int
	// ManualCheckCooldown is loaded from MANUAL_CHECK_COOLDOWN. internal/
	// scheduler does not read it; RunNow uses scheduler.ManualCheckCooldown.
	ManualCheckCooldown time.Duration
	// JobVisibilityBuffer is loaded from JOB_VISIBILITY_BUFFER. internal/
	// scheduler does not read it; job leases use scheduler.JobVisibilityBuffer.
	JobVisibilityBuffer time.Duration
	// MaxJobRetries is loaded from JOB_MAX_RETRIES. internal/scheduler does
	// not read it; dead-lettering uses scheduler.MaxJobRetries.
	MaxJobRetries int
	// MasterLockTTL and MasterLockRenew are loaded from the environment.
	// internal/scheduler does not read them; its leader lock uses a fixed
	// 15s TTL renewed every 5s.
	MasterLockTTL   time.Duration
	MasterLockRenew time.Duration
	// CheckRetentionDays is the Check TTL (§3: "Retained 90 days then expired").
	CheckRetentionDays int
}

// NotificationConfig holds outbound channel credentials shared across all
// monitors' notification fan-out (§4.F, §6).
type NotificationConfig struct {
	SMTPHost     string
	SMTPPort     int
	SMTPUsername string
	SMTPPassword string
	SMTPFrom     string
	SMTPUseTLS   bool

	SMSProviderURL string
	SMSAPIKey      string

	DingTalkWebhookURL string
	DingTalkSecret     string

	WeChatWebhookURL string

	ChannelTimeout time.Duration
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level  string
	Format string
}

// Load loads configuration from environment variables only.
func Load() (*Config, error) {
	return LoadFromEnv(), nil
}

// LoadFromFile loads configuration from a YAML file, falling back to
// environment variables entirely if the file does not exist, and layering
// file values over env defaults otherwise (teacher's Load/LoadFromFile
// pattern in internal/config/config.go).
func LoadFromFile(filename string) (*Config, error) {
	if _, err := os.Stat(filename); os.IsNotExist(err) {
		return LoadFromEnv(), nil
	}

	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", filename, err)
	}

	var file ConfigFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", filename, err)
	}

	cfg := LoadFromEnv()

	if file.Server.HTTPPort != 0 {
		cfg.Server.Port = file.Server.HTTPPort
	}
	if file.Database.Type != "" {
		cfg.Database.Type = file.Database.Type
	}
	if file.Database.Host != "" {
		cfg.Database.Host = file.Database.Host
	}
	if file.Database.Port != 0 {
		cfg.Database.Port = file.Database.Port
	}
	if file.Database.Database != "" {
		cfg.Database.Name = file.Database.Database
	}
	if file.Database.Username != "" {
		cfg.Database.User = file.Database.Username
	}
	if file.Database.Password != "" {
		cfg.Database.Password = file.Database.Password
	}
	if file.Database.SSLMode != "" {
		cfg.Database.SSLMode = file.Database.SSLMode
	}
	if file.Redis.Host != "" {
		cfg.Redis.Host = file.Redis.Host
	}
	if file.Redis.Port != 0 {
		cfg.Redis.Port = file.Redis.Port
	}
	if file.Notification.SMTPHost != "" {
		cfg.Notification.SMTPHost = file.Notification.SMTPHost
	}
	if file.Notification.SMTPPort != 0 {
		cfg.Notification.SMTPPort = file.Notification.SMTPPort
	}
	if file.Notification.SMTPUsername != "" {
		cfg.Notification.SMTPUsername = file.Notification.SMTPUsername
	}
	if file.Notification.SMTPPassword != "" {
		cfg.Notification.SMTPPassword = file.Notification.SMTPPassword
	}
	if file.Notification.SMTPFrom != "" {
		cfg.Notification.SMTPFrom = file.Notification.SMTPFrom
	}

	return cfg, nil
}

// ConfigFile represents the YAML configuration file structure. Only the
// sections this core reads are represented; an unknown YAML key is ignored.
type ConfigFile struct {
	Server struct {
		HTTPPort int `yaml:"http_port"`
	} `yaml:"server"`

	Database struct {
		Type     string `yaml:"type"`
		Host     string `yaml:"host"`
		Port     int    `yaml:"port"`
		Database string `yaml:"database"`
		Username string `yaml:"username"`
		Password string `yaml:"password"`
		SSLMode  string `yaml:"ssl_mode"`
	} `yaml:"database"`

	Redis struct {
		Host string `yaml:"host"`
		Port int    `yaml:"port"`
	} `yaml:"redis"`

	Notification struct {
		SMTPHost     string `yaml:"smtp_host"`
		SMTPPort     int    `yaml:"smtp_port"`
		SMTPUsername string `yaml:"smtp_username"`
		SMTPPassword string `yaml:"smtp_password"`
		SMTPFrom     string `yaml:"smtp_from"`
	} `yaml:"notification"`
}

// LoadFromEnv loads configuration entirely from environment variables,
// applying the defaults the product ships with.
func LoadFromEnv() *Config {
	return &Config{
		Server: ServerConfig{
			Port:         getEnvAsInt("SERVER_PORT", 8080),
			ReadTimeout:  getEnvAsInt("SERVER_READ_TIMEOUT", 60),
			WriteTimeout: getEnvAsInt("SERVER_WRITE_TIMEOUT", 60),
		},
		Database: DatabaseConfig{
			Type:            getEnv("DB_TYPE", "sqlite"),
			Host:            getEnv("DB_HOST", "localhost"),
			Port:            getEnvAsInt("DB_PORT", 5432),
			User:            getEnv("DB_USER", "pulseguard"),
			Password:        getEnv("DB_PASSWORD", ""),
			Name:            getEnv("DB_NAME", "pulseguard.db"),
			SSLMode:         getEnv("DB_SSLMODE", "disable"),
			MaxOpenConns:    getEnvAsInt("DB_MAX_OPEN_CONNS", 100),
			MaxIdleConns:    getEnvAsInt("DB_MAX_IDLE_CONNS", 10),
			ConnMaxLifetime: getEnvAsInt("DB_CONN_MAX_LIFETIME", 3600),
		},
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnvAsInt("REDIS_PORT", 6379),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
			Prefix:   getEnv("REDIS_PREFIX", "pulseguard"),
		},
		Monitoring: MonitoringConfig{
			MinIntervalMinutes:  getEnvAsInt("MONITOR_MIN_INTERVAL_MINUTES", 5),
			WorkerPoolSize:      getEnvAsInt("WORKER_POOL_SIZE", 10),
			ManualCheckCooldown: getEnvAsDuration("MANUAL_CHECK_COOLDOWN", 30*time.Second),
			JobVisibilityBuffer: getEnvAsDuration("JOB_VISIBILITY_BUFFER", 15*time.Second),
			MaxJobRetries:       getEnvAsInt("JOB_MAX_RETRIES", 5),
			MasterLockTTL:       getEnvAsDuration("SCHEDULER_MASTER_LOCK_TTL", 30*time.Second),
			MasterLockRenew:     getEnvAsDuration("SCHEDULER_MASTER_LOCK_RENEW", 10*time.Second),
			CheckRetentionDays:  getEnvAsInt("CHECK_RETENTION_DAYS", 90),
		},
		Notification: NotificationConfig{
			SMTPHost:           getEnv("SMTP_HOST", ""),
			SMTPPort:           getEnvAsInt("SMTP_PORT", 587),
			SMTPUsername:       getEnv("SMTP_USERNAME", ""),
			SMTPPassword:       getEnv("SMTP_PASSWORD", ""),
			SMTPFrom:           getEnv("SMTP_FROM", ""),
			SMTPUseTLS:         getEnvAsBool("SMTP_USE_TLS", true),
			SMSProviderURL:     getEnv("SMS_PROVIDER_URL", ""),
			SMSAPIKey:          getEnv("SMS_API_KEY", ""),
			DingTalkWebhookURL: getEnv("DINGTALK_WEBHOOK_URL", ""),
			DingTalkSecret:     getEnv("DINGTALK_SECRET", ""),
			WeChatWebhookURL:   getEnv("WECHAT_WEBHOOK_URL", ""),
			ChannelTimeout:     getEnvAsDuration("NOTIFICATION_CHANNEL_TIMEOUT", 10*time.Second),
		},
		Log: LogConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
	}
}

// DSN returns the database connection string for postgres-family drivers.
func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode)
}

// Addr returns the Redis connection address.
func (c *RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// Validate checks for configuration errors that would make the core
// misbehave rather than merely run in a degraded mode.
func (c *Config) Validate() error {
	if c.Monitoring.MinIntervalMinutes <= 0 {
		return fmt.Errorf("MONITOR_MIN_INTERVAL_MINUTES must be positive")
	}
	if c.Monitoring.WorkerPoolSize <= 0 {
		return fmt.Errorf("WORKER_POOL_SIZE must be positive")
	}
	switch c.Database.Type {
	case "postgres", "postgresql", "mysql", "sqlite":
	default:
		return fmt.Errorf("unsupported database type: %s (supported: postgres, mysql, sqlite)", c.Database.Type)
	}
	return nil
}

// ValidateOrExit validates the configuration and exits if validation fails.
func (c *Config) ValidateOrExit() {
	if err := c.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		os.Exit(1)
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value, err := strconv.Atoi(os.Getenv(key)); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value, err := strconv.ParseBool(os.Getenv(key)); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value, err := time.ParseDuration(os.Getenv(key)); err == nil {
		return value
	}
	return defaultValue
}
