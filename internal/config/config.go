// Package config defines the data structures related to configuration and
// includes functions for loading and parsing the config.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/iwvelando/topgirl-optimizer/pkg/constants"
	"github.com/iwvelando/topgirl-optimizer/pkg/validation"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Configuration holds all configuration for topgirl-optimizer.
type Configuration struct {
	API     APIConfig     `mapstructure:"api" yaml:"api"`
	Session SessionConfig `mapstructure:"session" yaml:"session"`
	Logging LoggingConfig `mapstructure:"logging" yaml:"logging,omitempty"`
	Output  OutputConfig  `mapstructure:"output" yaml:"output,omitempty"`
	Server  ServerConfig  `mapstructure:"server" yaml:"server,omitempty"`
}

// APIConfig locates the optimizer backend.
type APIConfig struct {
	BaseURL string        `mapstructure:"baseURL" yaml:"baseURL"`
	Timeout time.Duration `mapstructure:"timeout" yaml:"timeout"`
}

// SessionConfig selects where the last optimization request is kept.
type SessionConfig struct {
	Backend  string `mapstructure:"backend" yaml:"backend"` // file, redis, memory
	Path     string `mapstructure:"path" yaml:"path,omitempty"`
	RedisURL string `mapstructure:"redisURL" yaml:"redisURL,omitempty"`
	Key      string `mapstructure:"key" yaml:"key"`
}

// LoggingConfig holds logging configuration options
type LoggingConfig struct {
	Level      string `mapstructure:"level" yaml:"level,omitempty"`           // debug, info, warn, error
	Format     string `mapstructure:"format" yaml:"format,omitempty"`         // json, console
	OutputFile string `mapstructure:"outputFile" yaml:"outputFile,omitempty"` // optional file output
}

// OutputConfig holds output format configuration options
type OutputConfig struct {
	Format string `mapstructure:"format" yaml:"format,omitempty"` // pretty, csv, yaml, xlsx
	File   string `mapstructure:"file" yaml:"file,omitempty"`
}

// ServerConfig defines runtime parameters for the panel server.
type ServerConfig struct {
	Address     string `mapstructure:"address" yaml:"address"`
	MaxBodySize string `mapstructure:"maxBodySize" yaml:"maxBodySize"`
}

// LoadConfiguration reads the environment file envPath and then the YAML
// configuration at configPath. Either file may be absent when it is the
// default path; environment variables override file values.
func LoadConfiguration(configPath, envPath string) (*Configuration, error) {
	if err := loadEnvFile(envPath); err != nil {
		return nil, err
	}

	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(constants.EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if err := v.BindEnv("api.baseURL", constants.EnvAPIURL, constants.EnvLegacyAPIURL); err != nil {
		return nil, fmt.Errorf("failed to bind environment: %w", err)
	}

	if configPath != "" {
		v.SetConfigFile(configPath)
		v.SetConfigType("yml")
		if err := v.ReadInConfig(); err != nil {
			if !isMissing(err) || configPath != constants.DefaultConfigFile {
				return nil, fmt.Errorf("error reading config file, %s", err)
			}
		}
	}

	var configuration Configuration
	if err := v.Unmarshal(&configuration); err != nil {
		return nil, fmt.Errorf("unable to decode into struct, %s", err)
	}
	configuration.API.BaseURL = strings.TrimRight(strings.TrimSpace(configuration.API.BaseURL), "/")

	return &configuration, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("api.baseURL", "")
	v.SetDefault("api.timeout", time.Duration(constants.DefaultAPITimeoutSeconds)*time.Second)
	v.SetDefault("session.backend", constants.SessionBackendFile)
	v.SetDefault("session.path", "")
	v.SetDefault("session.redisURL", "")
	v.SetDefault("session.key", constants.DefaultSessionKey)
	v.SetDefault("logging.level", "")
	v.SetDefault("logging.format", "")
	v.SetDefault("logging.outputFile", "")
	v.SetDefault("output.format", constants.OutputFormatPretty)
	v.SetDefault("output.file", "")
	v.SetDefault("server.address", constants.DefaultServerAddress)
	v.SetDefault("server.maxBodySize", strconv.FormatInt(constants.DefaultMaxBodySizeBytes, 10))
}

func loadEnvFile(path string) error {
	if path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) && path == constants.DefaultEnvFile {
			return nil
		}
		return fmt.Errorf("failed to load environment file %s: %w", path, err)
	}
	return nil
}

func isMissing(err error) bool {
	var notFound viper.ConfigFileNotFoundError
	return errors.As(err, &notFound) || errors.Is(err, fs.ErrNotExist)
}

// Validate checks the settings every command depends on.
func (c *Configuration) Validate() error {
	if err := validation.ValidateBaseURL(c.API.BaseURL); err != nil {
		return err
	}
	if c.API.Timeout < 0 {
		return fmt.Errorf("api timeout must not be negative, got %s", c.API.Timeout)
	}
	if err := validation.ValidateSessionBackend(c.Session.Backend, c.Session.RedisURL); err != nil {
		return err
	}
	if err := validation.ValidateOutputFormat(c.Output.Format); err != nil {
		return err
	}
	if c.Output.Format == constants.OutputFormatXLSX && c.Output.File == "" {
		return fmt.Errorf("output format %s requires an output file", constants.OutputFormatXLSX)
	}
	if _, err := c.Server.MaxBodySizeBytes(); err != nil {
		return err
	}
	return nil
}

// MaxBodySizeBytes returns the configured request body limit in bytes.
func (s ServerConfig) MaxBodySizeBytes() (int64, error) {
	size, err := ParseSize(s.MaxBodySize)
	if err != nil {
		return 0, err
	}
	if size <= 0 {
		size = constants.DefaultMaxBodySizeBytes
	}
	return size, nil
}

// ParseSize converts a human-friendly byte string (e.g., "256K", "10M") into bytes.
func ParseSize(value string) (int64, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return constants.DefaultMaxBodySizeBytes, nil
	}

	upper := strings.ToUpper(trimmed)
	idx := len(upper)
	for idx > 0 && !unicode.IsDigit(rune(upper[idx-1])) {
		idx--
	}
	if idx == 0 {
		return 0, fmt.Errorf("invalid size: %s", value)
	}
	numPart := strings.TrimSpace(upper[:idx])
	unitPart := strings.TrimSpace(upper[idx:])

	n, err := strconv.ParseInt(numPart, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid size value %q: %w", value, err)
	}

	var multiplier int64
	switch unitPart {
	case "", "B":
		multiplier = 1
	case "K", "KB":
		multiplier = 1024
	case "M", "MB":
		multiplier = 1024 * 1024
	case "G", "GB":
		multiplier = 1024 * 1024 * 1024
	default:
		return 0, fmt.Errorf("unsupported size unit %q", unitPart)
	}

	result := n * multiplier
	if result < 0 || (n != 0 && result/n != multiplier) {
		return 0, fmt.Errorf("size overflow for value %s", value)
	}
	return result, nil
}
