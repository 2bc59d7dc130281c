package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Storage driver and title resolver selections.
const (
	DriverSQLite = "sqlite"
	DriverBadger = "badger"

	ResolverHTTP    = "http"
	ResolverBrowser = "browser"
)

// Config holds all configuration for the application. Values are read by
// viper from a config file or environment variables.
type Config struct {
	TelegramBotToken string `mapstructure:"TELEGRAM_BOT_TOKEN"`

	// StorageDriver selects the Repository implementation: "sqlite"
	// (default) or "badger".
	StorageDriver string `mapstructure:"STORAGE_DRIVER"`
	SQLitePath    string `mapstructure:"SQLITE_PATH"`
	BadgerDBPath  string `mapstructure:"BADGERDB_PATH"`

	// TitleResolver selects the remote title lookup: "http" (default) or
	// "browser" for pages that only render a title under JavaScript.
	TitleResolver string `mapstructure:"TITLE_RESOLVER"`

	// TitleFetchTimeout bounds one remote title lookup, retries included.
	TitleFetchTimeout time.Duration `mapstructure:"TITLE_FETCH_TIMEOUT"`

	LogLevel string `mapstructure:"LOG_LEVEL"`
}

// LoadConfig reads configuration from file or environment variables.
func LoadConfig(path string) (config Config, err error) {
	viper.AddConfigPath(path)
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")

	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Unmarshal only sees keys viper knows about, so register every key
	// with a default to make env-only configuration work.
	viper.SetDefault("TELEGRAM_BOT_TOKEN", "")
	viper.SetDefault("STORAGE_DRIVER", DriverSQLite)
	viper.SetDefault("SQLITE_PATH", "./archivist.db")
	viper.SetDefault("BADGERDB_PATH", "./badger_data")
	viper.SetDefault("TITLE_RESOLVER", ResolverHTTP)
	viper.SetDefault("TITLE_FETCH_TIMEOUT", 15*time.Second)
	viper.SetDefault("LOG_LEVEL", "info")

	if err = viper.ReadInConfig(); err != nil {
		// A missing config file is fine as long as env vars cover the
		// required values.
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return Config{}, fmt.Errorf("error reading config file: %w", err)
		}
	}

	if err = viper.Unmarshal(&config); err != nil {
		return Config{}, fmt.Errorf("unable to decode into struct: %w", err)
	}

	if config.TelegramBotToken == "" {
		return Config{}, fmt.Errorf("TELEGRAM_BOT_TOKEN is not set")
	}
	switch config.StorageDriver {
	case DriverSQLite, DriverBadger:
	default:
		return Config{}, fmt.Errorf("unknown STORAGE_DRIVER %q (want %q or %q)", config.StorageDriver, DriverSQLite, DriverBadger)
	}
	switch config.TitleResolver {
	case ResolverHTTP, ResolverBrowser:
	default:
		return Config{}, fmt.Errorf("unknown TITLE_RESOLVER %q (want %q or %q)", config.TitleResolver, ResolverHTTP, ResolverBrowser)
	}
	if config.TitleFetchTimeout <= 0 {
		return Config{}, fmt.Errorf("TITLE_FETCH_TIMEOUT must be positive, got %s", config.TitleFetchTimeout)
	}

	return config, nil
}
