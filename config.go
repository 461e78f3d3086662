package main

import (
	"fmt"
	"time"

	"github.com/spf13/viper"

	"farm-order-mailer/internal/mailer"
	"farm-order-mailer/internal/scheduler"
)

// Config holds all configuration for the application
type Config struct {
	Server    ServerConfig      `mapstructure:"server"`
	Redis     RedisConfig       `mapstructure:"redis"`
	Database  DatabaseConfig    `mapstructure:"database"`
	SMTP      mailer.SMTPConfig `mapstructure:"smtp"`
	Scheduler scheduler.Config  `mapstructure:"scheduler"`
	Worker    WorkerConfig      `mapstructure:"worker"`
	SiteURL   string            `mapstructure:"site_url"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port         string        `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	// CronSecret gates the manual worker trigger endpoint. When empty,
	// all trigger requests are rejected.
	CronSecret string `mapstructure:"cron_secret"`
}

// RedisConfig holds the job store connection configuration
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// DatabaseConfig holds the dispatch log database configuration
type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
}

// WorkerConfig holds batch worker configuration
type WorkerConfig struct {
	BatchSize   int `mapstructure:"batch_size"`
	MaxAttempts int `mapstructure:"max_attempts"`
}

// LoadConfig loads configuration from environment variables and config file
func LoadConfig() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")

	// Set defaults
	setDefaults()

	// Read config file if it exists
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	// Environment variables override config file
	viper.AutomaticEnv()

	// Bind environment variables
	bindEnvVars()

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	return &config, nil
}

// setDefaults sets default configuration values
func setDefaults() {
	viper.SetDefault("server.port", "8080")
	viper.SetDefault("server.read_timeout", "30s")
	viper.SetDefault("server.write_timeout", "30s")

	viper.SetDefault("redis.addr", "localhost:6379")
	viper.SetDefault("redis.db", 0)

	viper.SetDefault("database.host", "localhost")
	viper.SetDefault("database.port", 3306)

	viper.SetDefault("smtp.host", "smtp.zoho.com")
	viper.SetDefault("smtp.port", 587)
	viper.SetDefault("smtp.from_name", "Sky Growers")

	viper.SetDefault("scheduler.interval_minutes", 5)

	viper.SetDefault("worker.batch_size", 10)
	viper.SetDefault("worker.max_attempts", 3)

	viper.SetDefault("site_url", "https://skygrowers.com")
}

// bindEnvVars binds environment variables to configuration keys
func bindEnvVars() {
	// Server
	viper.BindEnv("server.port", "SERVER_PORT")
	viper.BindEnv("server.read_timeout", "SERVER_READ_TIMEOUT")
	viper.BindEnv("server.write_timeout", "SERVER_WRITE_TIMEOUT")
	viper.BindEnv("server.cron_secret", "CRON_SECRET")

	// Redis
	viper.BindEnv("redis.addr", "REDIS_ADDR")
	viper.BindEnv("redis.password", "REDIS_PASSWORD")
	viper.BindEnv("redis.db", "REDIS_DB")

	// Database
	viper.BindEnv("database.host", "DB_HOST")
	viper.BindEnv("database.port", "DB_PORT")
	viper.BindEnv("database.user", "DB_USER")
	viper.BindEnv("database.password", "DB_PASSWORD")
	viper.BindEnv("database.dbname", "DB_NAME")

	// SMTP
	viper.BindEnv("smtp.host", "SMTP_HOST")
	viper.BindEnv("smtp.port", "SMTP_PORT")
	viper.BindEnv("smtp.user", "SMTP_USER")
	viper.BindEnv("smtp.password", "SMTP_PASS")
	viper.BindEnv("smtp.from_name", "EMAIL_FROM_NAME")
	viper.BindEnv("smtp.reply_to", "EMAIL_REPLY_TO")
	viper.BindEnv("smtp.admin_emails", "ADMIN_ORDER_EMAILS")

	// Scheduler
	viper.BindEnv("scheduler.interval_minutes", "SCHEDULER_INTERVAL_MINUTES")

	// Worker
	viper.BindEnv("worker.batch_size", "WORKER_BATCH_SIZE")
	viper.BindEnv("worker.max_attempts", "WORKER_MAX_ATTEMPTS")

	viper.BindEnv("site_url", "SITE_URL")
}

// GetDSN returns the database connection string
func (c *DatabaseConfig) GetDSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=True&loc=Local",
		c.User, c.Password, c.Host, c.Port, c.DBName)
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("server port is required")
	}

	if c.Redis.Addr == "" {
		return fmt.Errorf("redis addr is required")
	}

	if c.Database.Host == "" || c.Database.User == "" || c.Database.DBName == "" {
		return fmt.Errorf("database host, user, and dbname are required")
	}

	if c.SMTP.Host == "" || c.SMTP.User == "" || c.SMTP.Password == "" {
		return fmt.Errorf("SMTP host, user, and password are required")
	}

	if c.Scheduler.IntervalMinutes <= 0 {
		return fmt.Errorf("scheduler interval must be greater than 0")
	}

	if c.Worker.BatchSize <= 0 {
		return fmt.Errorf("worker batch size must be greater than 0")
	}

	if c.Worker.MaxAttempts <= 0 {
		return fmt.Errorf("worker max attempts must be greater than 0")
	}

	return nil
}
