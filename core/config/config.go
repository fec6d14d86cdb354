package config

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"

	"calendar-sync/core/database"
	"calendar-sync/core/logger"
	"calendar-sync/core/server"
	"calendar-sync/core/storage"
	"calendar-sync/feature/gcal"
	"calendar-sync/feature/ical"
	"calendar-sync/feature/notion"
	"calendar-sync/feature/sync"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all configuration for the application.
// It is divided into partial configurations for better modularity.
type Config struct {
	// Server holds configuration for the HTTP server.
	Server server.Config `mapstructure:"server"`
	// Storage holds configuration for the report archive (S3, Minio).
	Storage storage.Config `mapstructure:"storage"`
	// Log holds configuration for the logger.
	Log logger.Config `mapstructure:"log"`
	// Database holds configuration for the run journal.
	Database database.Config `mapstructure:"database"`
	// Google holds the Google Calendar credentials.
	Google gcal.Config `mapstructure:"google"`
	// Notion holds the Notion API settings and tokens.
	Notion notion.Config `mapstructure:"notion"`
	// ICal holds the feed fetcher settings.
	ICal ical.Config `mapstructure:"ical"`
	// Sync holds the reconciliation settings.
	Sync sync.Config `mapstructure:"sync"`

	// Databases and Feeds are the sync targets. They are only read from the
	// config file.
	Databases []notion.Database `mapstructure:"databases"`
	Feeds     []ical.Feed       `mapstructure:"feeds"`
}

// Targets returns the configured sync targets.
func (c *Config) Targets() sync.Targets {
	return sync.Targets{Databases: c.Databases, Feeds: c.Feeds}
}

// LoadConfig loads configuration from config.yaml, environment variables and
// .env file. path is a directory holding both files, or the config file itself.
func LoadConfig(path string) (*Config, error) {
	dir, file := path, filepath.Join(path, "config.yaml")
	if ext := filepath.Ext(path); ext == ".yaml" || ext == ".yml" {
		dir, file = filepath.Dir(path), path
	}

	// Ignore error if file doesn't exist (e.g. production)
	_ = godotenv.Overload(filepath.Join(dir, ".env"))

	v := viper.New()

	// Recursively parse struct tags to set default values
	bindValues(v, Config{}, "")

	// Map environment variables to nested keys (e.g. SERVER_PORT -> server.port)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetConfigFile(file)
	if err := v.ReadInConfig(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, err
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, err
	}

	return &config, nil
}

// bindValues uses reflection to iterate over the struct and set default values in Viper
// based on the 'default' and 'mapstructure' tags.
func bindValues(v *viper.Viper, iface any, prefix string) {
	t := reflect.TypeOf(iface)

	// If it's a pointer, get the element
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		tag := field.Tag.Get("mapstructure")

		// Skip if no tag
		if tag == "" {
			continue
		}

		// Build the key
		key := tag
		if prefix != "" {
			key = prefix + "." + tag
		}

		switch field.Type.Kind() {
		case reflect.Struct:
			bindValues(v, reflect.New(field.Type).Elem().Interface(), key)
			continue
		case reflect.Slice, reflect.Map:
			// Lists come from the config file only.
			continue
		}

		defaultValue := field.Tag.Get("default")
		// Always set default (even if empty) to register the key for AutomaticEnv
		v.SetDefault(key, defaultValue)
	}
}
