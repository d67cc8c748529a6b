package ember

import (
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/viper"

	"github.com/abdul-hamid-achik/ember/pkg/scanner"
)

// ConfigFileName is the project configuration file read by LoadConfig.
const ConfigFileName = "ember.yaml"

// legacyConfigFileName holds only {"parent_folder": "..."}.
const legacyConfigFileName = "project.json"

// Config is the project configuration.
type Config struct {
	// ParentFolder is the route root, relative to the config directory
	ParentFolder string `mapstructure:"parent_folder" yaml:"parent_folder" json:"parent_folder"`
	// Host is the listen host
	Host string `mapstructure:"host" yaml:"host" json:"host"`
	// Port is the listen port
	Port int `mapstructure:"port" yaml:"port" json:"port"`
	// Dev enables development mode
	Dev bool `mapstructure:"dev" yaml:"dev" json:"dev"`
	// HotReload restarts the app on route changes under "ember dev"
	HotReload bool `mapstructure:"hot_reload" yaml:"hot_reload" json:"hot_reload"`
	// LogLevel is the request log level
	LogLevel string `mapstructure:"log_level" yaml:"log_level" json:"log_level"`
	// RawFallback serves handler files as text when no handler answers
	RawFallback bool `mapstructure:"raw_fallback" yaml:"raw_fallback" json:"raw_fallback"`
	// MatchCache configures resolve memoization
	MatchCache MatchCacheConfig `mapstructure:"match_cache" yaml:"match_cache" json:"match_cache"`
	// MaxBodyBytes bounds request bodies
	MaxBodyBytes int64 `mapstructure:"max_body_bytes" yaml:"max_body_bytes" json:"max_body_bytes"`
	// GeneratedDir is where "ember generate" writes registration code
	GeneratedDir string `mapstructure:"generated_dir" yaml:"generated_dir" json:"generated_dir"`
}

// MatchCacheConfig configures the match cache.
type MatchCacheConfig struct {
	Enabled    bool `mapstructure:"enabled" yaml:"enabled" json:"enabled"`
	MaxEntries int  `mapstructure:"max_entries" yaml:"max_entries" json:"max_entries"`
}

// DefaultConfig returns the configuration used when no file exists.
func DefaultConfig() *Config {
	return &Config{
		ParentFolder: ".",
		Host:         "0.0.0.0",
		Port:         5000,
		LogLevel:     "info",
		RawFallback:  true,
		MatchCache:   MatchCacheConfig{Enabled: true},
		MaxBodyBytes: DefaultMaxBodyBytes,
		GeneratedDir: scanner.DefaultOutputDir,
	}
}

// LoadConfig reads ember.yaml from dir, falling back to project.json, and
// applies environment overrides. A broken config file yields the defaults
// with no route root, so the app serves nothing instead of the wrong tree.
func LoadConfig(dir string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("EMBER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for _, key := range []string{"port", "host", "dev", "hot_reload", "log_level"} {
		env := strings.ToUpper(key)
		_ = v.BindEnv(key, "EMBER_"+env, env)
	}

	if path, typ, ok := findConfigFile(dir); ok {
		v.SetConfigFile(path)
		v.SetConfigType(typ)
		if err := v.ReadInConfig(); err != nil {
			return noRoutes(), fmt.Errorf("%w: %s: %v", ErrInvalidConfig, path, err)
		}
	}

	cfg := DefaultConfig()
	if err := v.Unmarshal(cfg); err != nil {
		return noRoutes(), fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if !v.IsSet("hot_reload") {
		cfg.HotReload = cfg.Dev
	}
	if !v.IsSet("log_level") && cfg.Dev {
		cfg.LogLevel = "debug"
	}

	if err := cfg.Validate(); err != nil {
		return noRoutes(), err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	d := DefaultConfig()
	v.SetDefault("parent_folder", d.ParentFolder)
	v.SetDefault("host", d.Host)
	v.SetDefault("port", d.Port)
	v.SetDefault("dev", false)
	v.SetDefault("raw_fallback", d.RawFallback)
	v.SetDefault("match_cache.enabled", d.MatchCache.Enabled)
	v.SetDefault("match_cache.max_entries", d.MatchCache.MaxEntries)
	v.SetDefault("max_body_bytes", d.MaxBodyBytes)
	v.SetDefault("generated_dir", d.GeneratedDir)
}

func findConfigFile(dir string) (path, typ string, ok bool) {
	candidates := []struct{ name, typ string }{
		{ConfigFileName, "yaml"},
		{"ember.yml", "yaml"},
		{legacyConfigFileName, "json"},
	}
	for _, c := range candidates {
		p := filepath.Join(dir, c.name)
		if _, err := os.Stat(p); err == nil {
			return p, c.typ, true
		}
	}
	return "", "", false
}

func noRoutes() *Config {
	cfg := DefaultConfig()
	cfg.ParentFolder = ""
	return cfg
}

// Validate checks value ranges.
func (c *Config) Validate() error {
	var errs []error
	if c.Port < 0 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("port %d out of range", c.Port))
	}
	if c.MatchCache.MaxEntries < 0 {
		errs = append(errs, fmt.Errorf("match_cache.max_entries must not be negative"))
	}
	if c.MaxBodyBytes < 0 {
		errs = append(errs, fmt.Errorf("max_body_bytes must not be negative"))
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return nil
}

// ListenAddress returns host:port.
func (c *Config) ListenAddress() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// RouteRoot resolves ParentFolder against dir. It returns "" when no route
// root is configured.
func (c *Config) RouteRoot(dir string) string {
	if c.ParentFolder == "" {
		return ""
	}
	if filepath.IsAbs(c.ParentFolder) {
		return filepath.Clean(c.ParentFolder)
	}
	return filepath.Join(dir, c.ParentFolder)
}
