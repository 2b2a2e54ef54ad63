package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig    `json:"server"`
	Database  DatabaseConfig  `json:"database"`
	Security  SecurityConfig  `json:"security"`
	RateLimit RateLimitConfig `json:"rate_limit"`
	Cache     CacheConfig     `json:"cache"`
	Tracing   TracingConfig   `json:"tracing"`
	Display   DisplayConfig   `json:"display"`
}

// ServerConfig holds server-related configuration.
type ServerConfig struct {
	Port string `json:"port"`
	Host string `json:"host"`
}

// DatabaseConfig holds database-related configuration.
type DatabaseConfig struct {
	Path string `json:"path"`
}

// SecurityConfig holds security-related configuration.
type SecurityConfig struct {
	// Max request body size in bytes (default: 1MB)
	MaxRequestBodySize int64 `json:"max_request_body_size"`
	// Allowed CORS origins (comma-separated)
	AllowedOrigins string `json:"allowed_origins"`
	// HMAC secret for viewer tokens; empty disables viewer identification
	JWTSecret string `json:"jwt_secret"`
}

// RateLimitConfig holds rate limiting configuration.
type RateLimitConfig struct {
	Enabled bool `json:"enabled"`
	Rate    int  `json:"rate"`
	Window  int  `json:"window"` // in seconds
}

// CacheConfig holds rendered-table cache configuration. An empty RedisAddr
// selects the in-process cache.
type CacheConfig struct {
	Enabled       bool   `json:"enabled"`
	RedisAddr     string `json:"redis_addr"`
	RedisPassword string `json:"redis_password"`
	RedisDB       int    `json:"redis_db"`
	TTLSeconds    int    `json:"ttl_seconds"`
}

// TracingConfig holds distributed tracing configuration.
type TracingConfig struct {
	Enabled     bool   `json:"enabled"`
	Endpoint    string `json:"endpoint"`
	ServiceName string `json:"service_name"`
	Environment string `json:"environment"`
}

// DisplayConfig holds shop localization for rendered tables: currency
// formatting, quantity nouns, column headers, the site time zone rule-set
// windows are evaluated in, and the attribute carrying the carton size.
type DisplayConfig struct {
	CurrencySymbol     string `json:"currency_symbol"`
	SymbolPosition     string `json:"symbol_position"` // "left" or "right"
	DecimalSeparator   string `json:"decimal_separator"`
	ThousandSeparator  string `json:"thousand_separator"`
	Decimals           int    `json:"decimals"`
	CartonSingular     string `json:"carton_singular"`
	CartonPlural       string `json:"carton_plural"`
	UnitSingular       string `json:"unit_singular"`
	UnitPlural         string `json:"unit_plural"`
	CartonsHeader      string `json:"cartons_header"`
	DiscountHeader     string `json:"discount_header"`
	PriceHeader        string `json:"price_header"`
	Timezone           string `json:"timezone"`
	PiecesPerCartonKey string `json:"pieces_per_carton_key"`
}

// LoadConfig loads configuration from defaults, an optional JSON config file
// and environment variables, in increasing order of precedence.
func LoadConfig(configFile string) (*Config, error) {
	cfg := defaultConfig()

	if configFile != "" {
		if err := loadFromFile(configFile, cfg); err != nil {
			return nil, fmt.Errorf("failed to load config file: %w", err)
		}
	}

	applyEnv(cfg)

	return cfg, nil
}

func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port: "8080",
		},
		Database: DatabaseConfig{
			Path: "./pricing_table.db",
		},
		Security: SecurityConfig{
			MaxRequestBodySize: 1 << 20,
			AllowedOrigins:     "*",
		},
		RateLimit: RateLimitConfig{
			Enabled: true,
			Rate:    100,
			Window:  60,
		},
		Cache: CacheConfig{
			Enabled:    true,
			TTLSeconds: 300,
		},
		Tracing: TracingConfig{
			ServiceName: "pricing-table-api",
			Environment: "development",
		},
		Display: DisplayConfig{
			CurrencySymbol:     "€",
			SymbolPosition:     "left",
			DecimalSeparator:   ",",
			ThousandSeparator:  ".",
			Decimals:           2,
			CartonSingular:     "carton",
			CartonPlural:       "cartons",
			UnitSingular:       "unit",
			UnitPlural:         "units",
			CartonsHeader:      "Cartons",
			DiscountHeader:     "Discount",
			PriceHeader:        "€/unit",
			Timezone:           "Europe/Rome",
			PiecesPerCartonKey: "pieces-per-carton",
		},
	}
}

// loadFromFile loads configuration from a JSON file.
func loadFromFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	return json.Unmarshal(data, cfg)
}

// applyEnv overrides configuration with environment variables.
func applyEnv(cfg *Config) {
	setString(&cfg.Server.Port, "SERVER_PORT")
	setString(&cfg.Server.Host, "SERVER_HOST")
	setString(&cfg.Database.Path, "DATABASE_PATH")
	setInt64(&cfg.Security.MaxRequestBodySize, "MAX_REQUEST_BODY_SIZE")
	setString(&cfg.Security.AllowedOrigins, "ALLOWED_ORIGINS")
	setString(&cfg.Security.JWTSecret, "JWT_SECRET")
	setBool(&cfg.RateLimit.Enabled, "RATE_LIMIT_ENABLED")
	setInt(&cfg.RateLimit.Rate, "RATE_LIMIT_RATE")
	setInt(&cfg.RateLimit.Window, "RATE_LIMIT_WINDOW")
	setBool(&cfg.Cache.Enabled, "CACHE_ENABLED")
	setString(&cfg.Cache.RedisAddr, "REDIS_ADDR")
	setString(&cfg.Cache.RedisPassword, "REDIS_PASSWORD")
	setInt(&cfg.Cache.RedisDB, "REDIS_DB")
	setInt(&cfg.Cache.TTLSeconds, "CACHE_TTL_SECONDS")
	setBool(&cfg.Tracing.Enabled, "TRACING_ENABLED")
	setString(&cfg.Tracing.Endpoint, "TRACING_ENDPOINT")
	setString(&cfg.Tracing.ServiceName, "TRACING_SERVICE_NAME")
	setString(&cfg.Tracing.Environment, "TRACING_ENVIRONMENT")
	setString(&cfg.Display.CurrencySymbol, "DISPLAY_CURRENCY_SYMBOL")
	setString(&cfg.Display.SymbolPosition, "DISPLAY_SYMBOL_POSITION")
	setString(&cfg.Display.DecimalSeparator, "DISPLAY_DECIMAL_SEPARATOR")
	setString(&cfg.Display.ThousandSeparator, "DISPLAY_THOUSAND_SEPARATOR")
	setInt(&cfg.Display.Decimals, "DISPLAY_DECIMALS")
	setString(&cfg.Display.UnitSingular, "DISPLAY_UNIT_SINGULAR")
	setString(&cfg.Display.UnitPlural, "DISPLAY_UNIT_PLURAL")
	setString(&cfg.Display.CartonsHeader, "DISPLAY_CARTONS_HEADER")
	setString(&cfg.Display.DiscountHeader, "DISPLAY_DISCOUNT_HEADER")
	setString(&cfg.Display.PriceHeader, "DISPLAY_PRICE_HEADER")
	setString(&cfg.Display.Timezone, "DISPLAY_TIMEZONE")
	setString(&cfg.Display.PiecesPerCartonKey, "DISPLAY_PIECES_PER_CARTON_KEY")
}

func setString(dest *string, key string) {
	if value := os.Getenv(key); value != "" {
		*dest = value
	}
}

func setBool(dest *bool, key string) {
	if value := os.Getenv(key); value != "" {
		*dest = strings.ToLower(value) == "true" || value == "1"
	}
}

func setInt(dest *int, key string) {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			*dest = i
		}
	}
}

func setInt64(dest *int64, key string) {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.ParseInt(value, 10, 64); err == nil {
			*dest = i
		}
	}
}

// Location resolves the configured site time zone.
func (c *Config) Location() (*time.Location, error) {
	if c.Display.Timezone == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Display.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid display timezone %q: %w", c.Display.Timezone, err)
	}
	return loc, nil
}

// Validate validates the configuration and returns any errors.
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("server port is required")
	}
	if c.Database.Path == "" {
		return fmt.Errorf("database path is required")
	}
	if c.RateLimit.Enabled {
		if c.RateLimit.Rate <= 0 {
			return fmt.Errorf("rate limit rate must be positive")
		}
		if c.RateLimit.Window <= 0 {
			return fmt.Errorf("rate limit window must be positive")
		}
	}
	if c.Cache.Enabled && c.Cache.TTLSeconds <= 0 {
		return fmt.Errorf("cache ttl must be positive")
	}
	if c.Tracing.Enabled && c.Tracing.Endpoint == "" {
		return fmt.Errorf("tracing endpoint is required when tracing is enabled")
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	return nil
}
