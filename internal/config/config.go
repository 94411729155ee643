// Package config loads homepage settings from config.yaml, the environment
// and an optional .env file.
package config

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/mesh-intelligence/homepage/internal/legacy"
	"github.com/mesh-intelligence/homepage/pkg/types"
)

const (
	configFileName = "config"
	configFileType = "yaml"
	configFileExt  = "config.yaml"

	// EnvPrefix prefixes every environment override, e.g. HOMEPAGE_SERVER_ADDR.
	EnvPrefix = "HOMEPAGE"
)

// Config keys.
const (
	KeyDataDir    = "data_dir"
	KeyLegacyPath = "legacy_path"
	KeyQuotaBytes = "quota_bytes"
	KeyLogLevel   = "log.level"
	KeyLogFormat  = "log.format"
	KeyServerAddr = "server.addr"
)

// Log formats.
const (
	FormatText = "text"
	FormatJSON = "json"
)

// ErrInvalidConfig is returned for values that fail validation.
var ErrInvalidConfig = errors.New("invalid config")

// Config is the resolved configuration.
type Config struct {
	DataDir    string       `mapstructure:"data_dir" yaml:"data_dir,omitempty"`
	LegacyPath string       `mapstructure:"legacy_path" yaml:"legacy_path,omitempty"`
	QuotaBytes int64        `mapstructure:"quota_bytes" yaml:"quota_bytes"`
	Log        LogConfig    `mapstructure:"log" yaml:"log"`
	Server     ServerConfig `mapstructure:"server" yaml:"server"`
}

// LogConfig selects the slog handler.
type LogConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
}

// ServerConfig configures the HTTP surface.
type ServerConfig struct {
	Addr string `mapstructure:"addr" yaml:"addr"`
}

// Default returns the values written to a fresh config.yaml.
func Default() Config {
	return Config{
		QuotaBytes: 50 << 20,
		Log:        LogConfig{Level: "info", Format: FormatText},
		Server:     ServerConfig{Addr: "127.0.0.1:8787"},
	}
}

// Load reads config.yaml from configDir, creating the directory and a
// default file on first run. When envFile is non-empty it is loaded with
// godotenv first; a missing .env file is not an error. Environment
// variables prefixed with HOMEPAGE_ override file values.
func Load(configDir, envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("load %s: %w", envFile, err)
		}
	}

	if err := os.MkdirAll(configDir, 0o755); err != nil {
		return nil, fmt.Errorf("ensure config dir: %w", err)
	}
	if err := writeDefaultIfMissing(filepath.Join(configDir, configFileExt)); err != nil {
		return nil, fmt.Errorf("ensure default config: %w", err)
	}

	v := viper.New()
	def := Default()
	v.SetDefault(KeyDataDir, def.DataDir)
	v.SetDefault(KeyLegacyPath, def.LegacyPath)
	v.SetDefault(KeyQuotaBytes, def.QuotaBytes)
	v.SetDefault(KeyLogLevel, def.Log.Level)
	v.SetDefault(KeyLogFormat, def.Log.Format)
	v.SetDefault(KeyServerAddr, def.Server.Addr)

	v.SetConfigName(configFileName)
	v.SetConfigType(configFileType)
	v.AddConfigPath(configDir)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func writeDefaultIfMissing(path string) error {
	_, err := os.Stat(path)
	if err == nil {
		return nil
	}
	if !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("stat config file: %w", err)
	}

	data, err := yaml.Marshal(Default())
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	header := "# homepage configuration\n# Every key may be overridden by a HOMEPAGE_ environment variable.\n"
	return os.WriteFile(path, append([]byte(header), data...), 0o644)
}

// Validate checks the log settings and the store limits.
func (c Config) Validate() error {
	if _, err := c.level(); err != nil {
		return err
	}
	switch c.Log.Format {
	case FormatText, FormatJSON:
	default:
		return fmt.Errorf("%w: log.format %q must be text or json", ErrInvalidConfig, c.Log.Format)
	}
	if c.QuotaBytes < 0 {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, types.ErrQuotaInvalid)
	}
	return nil
}

func (c Config) level() (slog.Level, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(c.Log.Level)); err != nil {
		return 0, fmt.Errorf("%w: log.level %q", ErrInvalidConfig, c.Log.Level)
	}
	return lvl, nil
}

// Store returns the storage configuration rooted at dataDir. An empty
// legacy_path places the legacy database next to the store.
func (c Config) Store(dataDir string) types.Config {
	legacyPath := c.LegacyPath
	if legacyPath == "" {
		legacyPath = filepath.Join(dataDir, legacy.DatabaseFile)
	}
	return types.Config{
		Backend:    types.BackendSQLite,
		DataDir:    dataDir,
		LegacyPath: legacyPath,
		QuotaBytes: c.QuotaBytes,
	}
}

// Logger builds a slog logger writing to w. verbose forces debug level.
func (c Config) Logger(w io.Writer, verbose bool) *slog.Logger {
	lvl, err := c.level()
	if err != nil {
		lvl = slog.LevelInfo
	}
	if verbose {
		lvl = slog.LevelDebug
	}
	opts := &slog.HandlerOptions{Level: lvl}
	if c.Log.Format == FormatJSON {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}
