// Package config loads settings from .env, an optional YAML file and the
// environment, in that order of increasing precedence.
package config

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment override, e.g.
// SECTORBOARD_STORAGE_DATA_FILE.
const EnvPrefix = "SECTORBOARD"

// Config represents the complete application configuration.
type Config struct {
	Storage  StorageConfig  `mapstructure:"storage"`
	Reports  ReportsConfig  `mapstructure:"reports"`
	Logging  LoggingConfig  `mapstructure:"logging"`
	API      APIConfig      `mapstructure:"api"`
	Telegram TelegramConfig `mapstructure:"telegram"`
	Market   MarketConfig   `mapstructure:"market"`
}

// StorageConfig locates the hierarchy document.
type StorageConfig struct {
	DataFile string `mapstructure:"data_file"`
}

// ReportsConfig selects where report snapshots are archived.
type ReportsConfig struct {
	Driver      string `mapstructure:"driver"` // "fs" or "s3"
	Dir         string `mapstructure:"dir"`
	S3Bucket    string `mapstructure:"s3_bucket"`
	S3Region    string `mapstructure:"s3_region"`
	S3Endpoint  string `mapstructure:"s3_endpoint"`
	S3Prefix    string `mapstructure:"s3_prefix"`
	S3PathStyle bool   `mapstructure:"s3_path_style"`

	// Optional static keys; the AWS default chain applies otherwise.
	S3AccessKeyID     string `mapstructure:"s3_access_key_id"`
	S3SecretAccessKey string `mapstructure:"s3_secret_access_key"`
}

// LoggingConfig controls the rotating log file.
type LoggingConfig struct {
	File       string `mapstructure:"file"`
	Level      string `mapstructure:"level"`
	MaxSizeMB  int64  `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
}

// APIConfig holds the HTTP server settings.
type APIConfig struct {
	Host        string   `mapstructure:"host"`
	Port        int      `mapstructure:"port"`
	CORSOrigins []string `mapstructure:"cors_origins"`
}

// Addr returns host:port for http.Server.
func (a APIConfig) Addr() string {
	return fmt.Sprintf("%s:%d", a.Host, a.Port)
}

// TelegramConfig holds the bot credentials.
type TelegramConfig struct {
	BotToken       string `mapstructure:"bot_token"`
	ChatID         string `mapstructure:"chat_id"`
	ConfirmTTLSec  int    `mapstructure:"confirm_ttl_sec"`
	PollTimeoutSec int    `mapstructure:"poll_timeout_sec"`
}

// Enabled reports whether both token and chat are set.
func (t TelegramConfig) Enabled() bool {
	return t.BotToken != "" && t.ChatID != ""
}

// MarketConfig toggles quote refreshes. Alpaca credentials are read by the
// SDK itself from APCA_API_KEY_ID / APCA_API_SECRET_KEY.
type MarketConfig struct {
	Enabled     bool `mapstructure:"enabled"`
	HistoryDays int  `mapstructure:"history_days"`
}

// Load builds the configuration. When path is empty the YAML file is looked
// up as ./config/config.yaml, then ~/.sectorboard/config.yaml; a missing file
// is not an error.
func Load(path string) (*Config, error) {
	// Load .env variables into the process environment
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: No .env file found, using system environment variables")
	}

	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./config")
		v.AddConfigPath(filepath.Join(homeDir(), ".sectorboard"))
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok || path != "" {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	overrideFromEnv(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("storage.data_file", "sectors.json")

	v.SetDefault("reports.driver", "fs")
	v.SetDefault("reports.dir", "saved_reports")
	v.SetDefault("reports.s3_region", "us-east-1")
	v.SetDefault("reports.s3_prefix", "reports/")
	v.SetDefault("reports.s3_bucket", "")
	v.SetDefault("reports.s3_endpoint", "")
	v.SetDefault("reports.s3_path_style", false)
	v.SetDefault("reports.s3_access_key_id", "")
	v.SetDefault("reports.s3_secret_access_key", "")

	v.SetDefault("logging.file", "sectorboard.log")
	v.SetDefault("logging.level", "INFO")
	v.SetDefault("logging.max_size_mb", 5)
	v.SetDefault("logging.max_backups", 3)

	v.SetDefault("api.host", "127.0.0.1")
	v.SetDefault("api.port", 8080)
	v.SetDefault("api.cors_origins", []string{"http://localhost:3000"})

	v.SetDefault("telegram.bot_token", "")
	v.SetDefault("telegram.chat_id", "")
	v.SetDefault("telegram.confirm_ttl_sec", 300)
	v.SetDefault("telegram.poll_timeout_sec", 30)

	v.SetDefault("market.enabled", false)
	v.SetDefault("market.history_days", 7)
}

// overrideFromEnv keeps the plain variable names older deployments use.
func overrideFromEnv(cfg *Config) {
	if cfg.Telegram.BotToken == "" {
		cfg.Telegram.BotToken = os.Getenv("TELEGRAM_BOT_TOKEN")
	}
	if cfg.Telegram.ChatID == "" {
		cfg.Telegram.ChatID = os.Getenv("TELEGRAM_CHAT_ID")
	}
	if !cfg.Market.Enabled && os.Getenv("APCA_API_KEY_ID") != "" && os.Getenv("APCA_API_SECRET_KEY") != "" {
		cfg.Market.Enabled = true
	}
}

// Validate rejects settings the application cannot start with.
func (c *Config) Validate() error {
	var problems []string
	if strings.TrimSpace(c.Storage.DataFile) == "" {
		problems = append(problems, "storage.data_file is empty")
	}
	switch c.Reports.Driver {
	case "fs":
		if c.Reports.Dir == "" {
			problems = append(problems, "reports.dir is empty")
		}
	case "s3":
		if c.Reports.S3Bucket == "" {
			problems = append(problems, "reports.s3_bucket is required for the s3 driver")
		}
	default:
		problems = append(problems, fmt.Sprintf("reports.driver %q is not fs or s3", c.Reports.Driver))
	}
	if c.API.Port <= 0 || c.API.Port > 65535 {
		problems = append(problems, fmt.Sprintf("api.port %d out of range", c.API.Port))
	}
	if c.Telegram.ConfirmTTLSec <= 0 {
		problems = append(problems, "telegram.confirm_ttl_sec must be positive")
	}
	if len(problems) > 0 {
		return fmt.Errorf("invalid configuration: %s", strings.Join(problems, "; "))
	}
	return nil
}

// LogSummary prints the effective settings, masking secrets.
func (c *Config) LogSummary() {
	log.Println("--- Configuration ---")
	log.Printf("storage.data_file=%s", c.Storage.DataFile)
	log.Printf("reports.driver=%s", c.Reports.Driver)
	if c.Reports.Driver == "s3" {
		log.Printf("reports.s3_bucket=%s reports.s3_region=%s", c.Reports.S3Bucket, c.Reports.S3Region)
		log.Printf("reports.s3_access_key_id=%s", Mask(c.Reports.S3AccessKeyID))
	} else {
		log.Printf("reports.dir=%s", c.Reports.Dir)
	}
	log.Printf("logging.level=%s logging.file=%s", c.Logging.Level, c.Logging.File)
	log.Printf("api.addr=%s", c.API.Addr())
	log.Printf("telegram.bot_token=%s", Mask(c.Telegram.BotToken))
	log.Printf("telegram.chat_id=%s", Mask(c.Telegram.ChatID))
	log.Printf("market.enabled=%t", c.Market.Enabled)
	log.Println("---------------------")
}

// Mask hides a secret value: show only last 4 chars.
func Mask(val string) string {
	if val == "" {
		return "(unset)"
	}
	if len(val) > 4 {
		return "***" + val[len(val)-4:]
	}
	return "***"
}

func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return home
}
