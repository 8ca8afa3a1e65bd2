package config

import (
	"database/sql"
	"fmt"
	"os"
	"strconv"
	"time"

	gomysql "github.com/go-sql-driver/mysql"
	"gopkg.in/yaml.v3"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Log      LogConfig      `yaml:"log"`
	Database DatabaseConfig `yaml:"database"`
	OpenAI   OpenAIConfig   `yaml:"openai"`
	Engine   EngineConfig   `yaml:"engine"`
	Auth     AuthConfig     `yaml:"auth"`
}

type ServerConfig struct {
	Port int `yaml:"port"`
}

type LogConfig struct {
	Level      string `yaml:"level"`
	File       string `yaml:"file"`
	Console    bool   `yaml:"console"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
}

type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Name     string `yaml:"name"`
}

type OpenAIConfig struct {
	BaseURL string `yaml:"base_url"`
	APIKey  string `yaml:"api_key"`
	Model   string `yaml:"model"`
}

// EngineConfig tunes the scheduling and orchestration loops.
type EngineConfig struct {
	SweepInterval       time.Duration `yaml:"sweep_interval"`
	DispatchBatch       int           `yaml:"dispatch_batch"`
	DispatchMaxAttempts int           `yaml:"dispatch_max_attempts"`
	DispatchBaseDelay   time.Duration `yaml:"dispatch_base_delay"`
	NotifyTimeout       time.Duration `yaml:"notify_timeout"`
	GenerateMaxAttempts int           `yaml:"generate_max_attempts"`
	GenerateBaseDelay   time.Duration `yaml:"generate_base_delay"`
	GenerateTimeout     time.Duration `yaml:"generate_timeout"`
	SubmissionWindow    time.Duration `yaml:"submission_window"`
}

type AuthConfig struct {
	JWTSecret string `yaml:"jwt_secret"`
}

func Load(configFile string) *Config {
	c := &Config{
		Server: ServerConfig{Port: 9880},
		Log:    LogConfig{Level: "info", Console: true, MaxSizeMB: 100, MaxBackups: 3, MaxAgeDays: 30},
		OpenAI: OpenAIConfig{BaseURL: "https://api.openai.com", Model: "gpt-4o-mini"},
		Database: DatabaseConfig{
			Host: "127.0.0.1", Port: 3306, Name: "speedy_status",
		},
		Engine: EngineConfig{
			SweepInterval:       time.Minute,
			DispatchBatch:       50,
			DispatchMaxAttempts: 5,
			DispatchBaseDelay:   2 * time.Second,
			NotifyTimeout:       15 * time.Second,
			GenerateMaxAttempts: 3,
			GenerateBaseDelay:   time.Second,
			GenerateTimeout:     60 * time.Second,
			SubmissionWindow:    24 * time.Hour,
		},
		Auth: AuthConfig{JWTSecret: "speedy-status-secret"},
	}

	paths := []string{"etc/config-dev.yaml", "/etc/speedy-status/config.yaml"}
	if configFile != "" {
		paths = []string{configFile}
	}
	for _, path := range paths {
		if data, err := os.ReadFile(path); err == nil {
			yaml.Unmarshal(data, c)
			break
		}
	}

	envOverride(&c.OpenAI.BaseURL, "OPENAI_BASE_URL")
	envOverride(&c.OpenAI.APIKey, "OPENAI_API_KEY")
	envOverride(&c.OpenAI.Model, "OPENAI_MODEL")
	envOverride(&c.Database.Host, "DB_HOST")
	envOverride(&c.Database.User, "DB_USER")
	envOverride(&c.Database.Password, "DB_PASS")
	envOverride(&c.Database.Name, "DB_NAME")
	envOverride(&c.Auth.JWTSecret, "JWT_SECRET")
	envOverride(&c.Log.Level, "LOG_LEVEL")
	envOverride(&c.Log.File, "LOG_FILE")
	envOverrideInt(&c.Server.Port, "PORT")
	envOverrideInt(&c.Database.Port, "DB_PORT")

	return c
}

func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.Server.Port)
}

func (c *Config) OpenGormDB() (*gorm.DB, error) {
	cfg := gomysql.NewConfig()
	cfg.User = c.Database.User
	cfg.Passwd = c.Database.Password
	cfg.Net = "tcp"
	cfg.Addr = fmt.Sprintf("%s:%d", c.Database.Host, c.Database.Port)
	cfg.DBName = c.Database.Name
	cfg.ParseTime = true

	connector, err := gomysql.NewConnector(cfg)
	if err != nil {
		return nil, fmt.Errorf("create connector: %w", err)
	}
	sqlDB := sql.OpenDB(connector)
	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("ping db: %w", err)
	}

	return gorm.Open(mysql.New(mysql.Config{Conn: sqlDB}), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
}

func envOverride(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func envOverrideInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}
