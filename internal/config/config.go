package config

import (
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/sells-group/venue-atlas/internal/geojson"
)

// Config holds the full application configuration.
type Config struct {
	Source     SourceConfig  `yaml:"source" mapstructure:"source"`
	Geocode    GeocodeConfig `yaml:"geocode" mapstructure:"geocode"`
	Cache      CacheConfig   `yaml:"cache" mapstructure:"cache"`
	Output     OutputConfig  `yaml:"output" mapstructure:"output"`
	Upload     UploadConfig  `yaml:"upload" mapstructure:"upload"`
	Server     ServerConfig  `yaml:"server" mapstructure:"server"`
	Log        LogConfig     `yaml:"log" mapstructure:"log"`
	StatesFile string        `yaml:"states_file" mapstructure:"states_file"`
}

// SourceConfig configures the listing directory being harvested.
type SourceConfig struct {
	BaseURL           string  `yaml:"base_url" mapstructure:"base_url"`
	Country           string  `yaml:"country" mapstructure:"country"`
	PageSize          int     `yaml:"page_size" mapstructure:"page_size"`
	NoListingsMarker  string  `yaml:"no_listings_marker" mapstructure:"no_listings_marker"`
	UserAgent         string  `yaml:"user_agent" mapstructure:"user_agent"`
	RequestsPerSecond float64 `yaml:"requests_per_second" mapstructure:"requests_per_second"`
	TimeoutSecs       int     `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	MaxRetries        int     `yaml:"max_retries" mapstructure:"max_retries"`
	RatingStride      int     `yaml:"rating_stride" mapstructure:"rating_stride"`
}

// GeocodeConfig configures the external geocoding service.
type GeocodeConfig struct {
	Provider         string `yaml:"provider" mapstructure:"provider"`
	BaseURL          string `yaml:"base_url" mapstructure:"base_url"`
	GoogleKey        string `yaml:"google_key" mapstructure:"google_key"`
	UserAgent        string `yaml:"user_agent" mapstructure:"user_agent"`
	DelayMs          int    `yaml:"delay_ms" mapstructure:"delay_ms"`
	TimeoutSecs      int    `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	BreakerThreshold int    `yaml:"breaker_threshold" mapstructure:"breaker_threshold"`
	BreakerResetSecs int    `yaml:"breaker_reset_secs" mapstructure:"breaker_reset_secs"`
	MemoTTLMins      int    `yaml:"memo_ttl_mins" mapstructure:"memo_ttl_mins"`
}

// Delay returns the fixed pause between geocode requests.
func (g GeocodeConfig) Delay() time.Duration {
	return time.Duration(g.DelayMs) * time.Millisecond
}

// CacheConfig configures the persistent geocode cache.
type CacheConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	Path        string `yaml:"path" mapstructure:"path"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// OutputConfig configures where and how feature collections are written.
type OutputConfig struct {
	Dir  string `yaml:"dir" mapstructure:"dir"`
	Mode string `yaml:"mode" mapstructure:"mode"`
}

// UploadConfig holds the hosted map import API credentials.
type UploadConfig struct {
	Account          string `yaml:"account" mapstructure:"account"`
	Key              string `yaml:"key" mapstructure:"key"`
	BaseURL          string `yaml:"base_url" mapstructure:"base_url"`
	PollIntervalSecs int    `yaml:"poll_interval_secs" mapstructure:"poll_interval_secs"`
	TimeoutSecs      int    `yaml:"timeout_secs" mapstructure:"timeout_secs"`
}

// ServerConfig configures the feature server.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("VENUE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("source.base_url", "https://www.beeradvocate.com")
	v.SetDefault("source.country", "US")
	v.SetDefault("source.page_size", 20)
	v.SetDefault("source.no_listings_marker", "failure")
	v.SetDefault("source.user_agent", "venue-atlas/1.0")
	v.SetDefault("source.requests_per_second", 2.0)
	v.SetDefault("source.timeout_secs", 30)
	v.SetDefault("source.max_retries", 3)
	v.SetDefault("source.rating_stride", 4)
	v.SetDefault("geocode.provider", "nominatim")
	v.SetDefault("geocode.base_url", "https://nominatim.openstreetmap.org")
	v.SetDefault("geocode.user_agent", "venue-atlas/1.0")
	v.SetDefault("geocode.delay_ms", 1000)
	v.SetDefault("geocode.timeout_secs", 5)
	v.SetDefault("geocode.breaker_threshold", 5)
	v.SetDefault("geocode.breaker_reset_secs", 60)
	v.SetDefault("geocode.memo_ttl_mins", 60)
	v.SetDefault("cache.driver", "sqlite")
	v.SetDefault("cache.path", "venues.db")
	v.SetDefault("output.dir", ".")
	v.SetDefault("output.mode", "replace")
	v.SetDefault("upload.poll_interval_secs", 2)
	v.SetDefault("upload.timeout_secs", 300)
	v.SetDefault("server.port", 8080)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// Validate checks that the fields a command needs are present. Mode is one
// of "harvest", "cities", "cache", "upload", "serve".
func (c *Config) Validate(mode string) error {
	var errs []string

	switch mode {
	case "harvest":
		errs = append(errs, c.validateSource()...)
		errs = append(errs, c.validateGeocode()...)
		errs = append(errs, c.validateCache()...)
		if _, err := geojson.ParseMode(c.Output.Mode); err != nil {
			errs = append(errs, "output.mode must be one of replace, merge, append")
		}
	case "cities":
		errs = append(errs, c.validateSource()...)
	case "cache":
		errs = append(errs, c.validateCache()...)
	case "upload":
		if c.Upload.Account == "" && c.Upload.BaseURL == "" {
			errs = append(errs, "upload.account is required")
		}
		if c.Upload.Key == "" {
			errs = append(errs, "upload.key is required")
		}
	case "serve":
		errs = append(errs, c.validateCache()...)
		if c.Server.Port <= 0 {
			errs = append(errs, "server.port must be > 0")
		}
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if len(errs) > 0 {
		return eris.Errorf("config: %s", strings.Join(errs, "; "))
	}
	return nil
}

func (c *Config) validateSource() []string {
	var errs []string
	if c.Source.BaseURL == "" {
		errs = append(errs, "source.base_url is required")
	}
	if c.Source.PageSize <= 0 {
		errs = append(errs, "source.page_size must be > 0")
	}
	if c.Source.RatingStride <= 0 {
		errs = append(errs, "source.rating_stride must be > 0")
	}
	return errs
}

func (c *Config) validateGeocode() []string {
	var errs []string
	switch c.Geocode.Provider {
	case "nominatim":
		if c.Geocode.BaseURL == "" {
			errs = append(errs, "geocode.base_url is required")
		}
	case "google":
		if c.Geocode.GoogleKey == "" {
			errs = append(errs, "geocode.google_key is required")
		}
	default:
		errs = append(errs, "geocode.provider must be one of nominatim, google")
	}
	if c.Geocode.DelayMs < 0 {
		errs = append(errs, "geocode.delay_ms must be >= 0")
	}
	return errs
}

func (c *Config) validateCache() []string {
	switch c.Cache.Driver {
	case "sqlite":
		if c.Cache.Path == "" {
			return []string{"cache.path is required"}
		}
	case "postgres":
		if c.Cache.DatabaseURL == "" {
			return []string{"cache.database_url is required"}
		}
	default:
		return []string{"cache.driver must be one of sqlite, postgres"}
	}
	return nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
