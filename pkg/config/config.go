// Package config resolves the runtime settings of gravityyaml.
package config

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	DefaultConfigPath  = "gravity.yaml"
	DefaultDatabaseDir = "/etc/pihole/"
	DefaultLogLevel    = "info"
	DefaultLogFile     = "stdout"
)

// Settings contains all runtime options of a gravityyaml run.
type Settings struct {
	ConfigPath  string `mapstructure:"config"`
	DatabaseDir string `mapstructure:"database"`
	SchemaPath  string `mapstructure:"schema"`
	LogLevel    string `mapstructure:"log-level"`
	LogFile     string `mapstructure:"log-file"`
	Debug       bool   `mapstructure:"debug"`
}

// ValidateLogLevel ensures the user-provided log level matches the supported set.
func ValidateLogLevel(level string) error {
	validLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLevels[strings.ToLower(level)] {
		return fmt.Errorf("invalid log level: %s (must be one of: debug, info, warn, error)", level)
	}
	return nil
}

// RegisterFlags adds the settings flags to flags.
func RegisterFlags(flags *pflag.FlagSet) {
	flags.StringP("config", "c", DefaultConfigPath, "Path to gravity.yaml config file")
	flags.StringP("database", "d", DefaultDatabaseDir, "Path to database directory")
	flags.String("schema", "", "Path to an SQL schema overriding the built-in one")
	flags.String("log-level", DefaultLogLevel, "Log level (debug, info, warn, error)")
	flags.String("log-file", DefaultLogFile, "Log destination: stdout, stderr or a file path")
	flags.Bool("debug", false, "Enable debug mode, errors are not translated")
}

// Setup resolves Settings from parsed command line flags.
func Setup(flags *pflag.FlagSet) (*Settings, error) {
	v := viper.New()
	setDefaults(v)

	if err := v.BindPFlags(flags); err != nil {
		return nil, fmt.Errorf("bind flags: %w", err)
	}

	var settings Settings
	hook := viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(trimSpaceHook()))
	if err := v.Unmarshal(&settings, hook); err != nil {
		return nil, fmt.Errorf("parse settings: %w", err)
	}

	if settings.Debug {
		settings.LogLevel = "debug"
	}

	if err := validateSettings(&settings); err != nil {
		return nil, err
	}
	return &settings, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("config", DefaultConfigPath)
	v.SetDefault("database", DefaultDatabaseDir)
	v.SetDefault("schema", "")
	v.SetDefault("log-level", DefaultLogLevel)
	v.SetDefault("log-file", DefaultLogFile)
	v.SetDefault("debug", false)
}

func validateSettings(s *Settings) error {
	if err := ValidateLogLevel(s.LogLevel); err != nil {
		return err
	}
	if s.ConfigPath == "" {
		return fmt.Errorf("config path must not be empty")
	}
	if s.DatabaseDir == "" {
		return fmt.Errorf("database directory must not be empty")
	}
	return nil
}

func trimSpaceHook() mapstructure.DecodeHookFuncType {
	return func(from reflect.Type, to reflect.Type, data any) (any, error) {
		if from.Kind() != reflect.String || to.Kind() != reflect.String {
			return data, nil
		}
		return strings.TrimSpace(data.(string)), nil
	}
}
