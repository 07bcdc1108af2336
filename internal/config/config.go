package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

type Config struct {
	Server   ServerConfig   `toml:"server"`
	Data     DataConfig     `toml:"data"`
	Logger   LoggerConfig   `toml:"logger"`
	Security SecurityConfig `toml:"security"`
	Forecast ForecastConfig `toml:"forecast"`
	Charts   ChartConfig    `toml:"charts"`
}

type ServerConfig struct {
	Host            string        `toml:"host"`
	Port            int           `toml:"port"`
	ReadTimeout     time.Duration `toml:"-"`
	WriteTimeout    time.Duration `toml:"-"`
	IdleTimeout     time.Duration `toml:"-"`
	ShutdownTimeout time.Duration `toml:"-"`
}

type DataConfig struct {
	File         string `toml:"file"`
	CacheDir     string `toml:"cache_dir"`
	CacheEnabled bool   `toml:"cache_enabled"`
}

type LoggerConfig struct {
	Level     string `toml:"level"`
	Format    string `toml:"format"`
	AddSource bool   `toml:"add_source"`
}

type SecurityConfig struct {
	EnableRateLimit bool     `toml:"rate_limit_enabled"`
	RateLimitRPS    int      `toml:"rate_limit_rps"`
	RateLimitBurst  int      `toml:"rate_limit_burst"`
	AllowedOrigins  []string `toml:"allowed_origins"`
	TrustedProxies  []string `toml:"trusted_proxies"`
}

type ForecastConfig struct {
	DefaultHorizon int `toml:"default_horizon"`
	MaxHorizon     int `toml:"max_horizon"`
	SeasonalOrder  int `toml:"seasonal_order"`
}

type ChartConfig struct {
	WidthInches  float64 `toml:"width_inches"`
	HeightInches float64 `toml:"height_inches"`
}

func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "localhost",
			Port:            8084,
			ReadTimeout:     10 * time.Second,
			WriteTimeout:    30 * time.Second,
			IdleTimeout:     60 * time.Second,
			ShutdownTimeout: 30 * time.Second,
		},
		Data: DataConfig{
			File:         "apple_sales_2024.csv",
			CacheDir:     ".cache",
			CacheEnabled: true,
		},
		Logger: LoggerConfig{
			Level:  "info",
			Format: "json",
		},
		Security: SecurityConfig{
			EnableRateLimit: true,
			RateLimitRPS:    100,
			RateLimitBurst:  10,
			AllowedOrigins:  []string{"http://localhost:8084"},
			TrustedProxies:  []string{"127.0.0.1"},
		},
		Forecast: ForecastConfig{
			DefaultHorizon: 3,
			MaxHorizon:     12,
			SeasonalOrder:  3,
		},
		Charts: ChartConfig{
			WidthInches:  10,
			HeightInches: 5,
		},
	}
}

// Load layers configuration: defaults, then the TOML file named by
// CONFIG_FILE (if any), then environment variables.
func Load() (*Config, error) {
	cfg := Default()

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := cfg.mergeFile(path); err != nil {
			return nil, err
		}
	}

	cfg.applyEnv()

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

func (c *Config) mergeFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := toml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() {
	c.Server.Host = getEnvString("SERVER_HOST", c.Server.Host)
	c.Server.Port = getEnvInt("SERVER_PORT", c.Server.Port)
	c.Server.ReadTimeout = getEnvDuration("SERVER_READ_TIMEOUT", c.Server.ReadTimeout)
	c.Server.WriteTimeout = getEnvDuration("SERVER_WRITE_TIMEOUT", c.Server.WriteTimeout)
	c.Server.IdleTimeout = getEnvDuration("SERVER_IDLE_TIMEOUT", c.Server.IdleTimeout)
	c.Server.ShutdownTimeout = getEnvDuration("SERVER_SHUTDOWN_TIMEOUT", c.Server.ShutdownTimeout)

	c.Data.File = getEnvString("DATA_FILE", c.Data.File)
	c.Data.CacheDir = getEnvString("DATA_CACHE_DIR", c.Data.CacheDir)
	c.Data.CacheEnabled = getEnvBool("DATA_CACHE_ENABLED", c.Data.CacheEnabled)

	c.Logger.Level = getEnvString("LOG_LEVEL", c.Logger.Level)
	c.Logger.Format = getEnvString("LOG_FORMAT", c.Logger.Format)
	c.Logger.AddSource = getEnvBool("LOG_ADD_SOURCE", c.Logger.AddSource)

	c.Security.EnableRateLimit = getEnvBool("SECURITY_RATE_LIMIT_ENABLED", c.Security.EnableRateLimit)
	c.Security.RateLimitRPS = getEnvInt("SECURITY_RATE_LIMIT_RPS", c.Security.RateLimitRPS)
	c.Security.RateLimitBurst = getEnvInt("SECURITY_RATE_LIMIT_BURST", c.Security.RateLimitBurst)
	c.Security.AllowedOrigins = getEnvStringSlice("SECURITY_ALLOWED_ORIGINS", c.Security.AllowedOrigins)
	c.Security.TrustedProxies = getEnvStringSlice("SECURITY_TRUSTED_PROXIES", c.Security.TrustedProxies)

	c.Forecast.DefaultHorizon = getEnvInt("FORECAST_DEFAULT_HORIZON", c.Forecast.DefaultHorizon)
	c.Forecast.MaxHorizon = getEnvInt("FORECAST_MAX_HORIZON", c.Forecast.MaxHorizon)
	c.Forecast.SeasonalOrder = getEnvInt("FORECAST_SEASONAL_ORDER", c.Forecast.SeasonalOrder)

	c.Charts.WidthInches = getEnvFloat("CHART_WIDTH_INCHES", c.Charts.WidthInches)
	c.Charts.HeightInches = getEnvFloat("CHART_HEIGHT_INCHES", c.Charts.HeightInches)
}

func (c *Config) validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server port must be between 1 and 65535, got %d", c.Server.Port)
	}

	if c.Server.ReadTimeout <= 0 {
		return fmt.Errorf("server read timeout must be positive")
	}

	if c.Server.WriteTimeout <= 0 {
		return fmt.Errorf("server write timeout must be positive")
	}

	if c.Data.File == "" {
		return fmt.Errorf("data file path cannot be empty")
	}

	if c.Data.CacheEnabled && c.Data.CacheDir == "" {
		return fmt.Errorf("cache directory cannot be empty when the cache is enabled")
	}

	validLogLevels := []string{"debug", "info", "warn", "error"}
	if !contains(validLogLevels, c.Logger.Level) {
		return fmt.Errorf("invalid log level %q, must be one of: %s", c.Logger.Level, strings.Join(validLogLevels, ", "))
	}

	validLogFormats := []string{"json", "text"}
	if !contains(validLogFormats, c.Logger.Format) {
		return fmt.Errorf("invalid log format %q, must be one of: %s", c.Logger.Format, strings.Join(validLogFormats, ", "))
	}

	if c.Security.RateLimitRPS <= 0 {
		return fmt.Errorf("rate limit RPS must be positive")
	}

	if c.Security.RateLimitBurst <= 0 {
		return fmt.Errorf("rate limit burst must be positive")
	}

	if c.Forecast.MaxHorizon < 1 {
		return fmt.Errorf("forecast max horizon must be at least 1")
	}

	if c.Forecast.DefaultHorizon < 1 || c.Forecast.DefaultHorizon > c.Forecast.MaxHorizon {
		return fmt.Errorf("forecast default horizon must be between 1 and %d, got %d", c.Forecast.MaxHorizon, c.Forecast.DefaultHorizon)
	}

	if c.Forecast.SeasonalOrder < 0 {
		return fmt.Errorf("forecast seasonal order cannot be negative")
	}

	if c.Charts.WidthInches <= 0 || c.Charts.HeightInches <= 0 {
		return fmt.Errorf("chart dimensions must be positive")
	}

	return nil
}

func getEnvString(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func getEnvStringSlice(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		return strings.Split(value, ",")
	}
	return defaultValue
}

func contains(slice []string, item string) bool {
	for _, s := range slice {
		if s == item {
			return true
		}
	}
	return false
}

func (c *Config) Address() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}
