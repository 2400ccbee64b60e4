package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"time"
)

// ARCHITECTURAL DISCOVERY: Configuration layer serves as system-wide settings
// coordinator; clean separation between configuration and business logic
type Config struct {
	HTTP      *HTTPConfig      `json:"http"`
	WebSocket *WebSocketConfig `json:"websocket"`
	Redis     *RedisConfig     `json:"redis"`
	Archive   *ArchiveConfig   `json:"archive"`
}

// HTTPConfig balances performance and reliability for the outer server
type HTTPConfig struct {
	Port         int           `json:"port"`
	ReadTimeout  time.Duration `json:"read_timeout"`
	WriteTimeout time.Duration `json:"write_timeout"`
	Host         string        `json:"host"`
}

// WebSocketConfig tunes the per-connection loops and the routing layer
type WebSocketConfig struct {
	PingInterval       time.Duration `json:"ping_interval"`
	ReadTimeout        time.Duration `json:"read_timeout"`
	RateLimitPerMinute int           `json:"rate_limit_per_minute"`
}

// RedisConfig holds session store settings
// FUNCTIONAL DISCOVERY: CheckpointTTL of zero keeps canvas state until an
// external lifecycle deletes it; this subsystem never deletes state itself
type RedisConfig struct {
	Addr          string        `json:"addr"`
	Password      string        `json:"password"`
	DB            int           `json:"db"`
	DialTimeout   time.Duration `json:"dial_timeout"`
	CheckpointTTL time.Duration `json:"checkpoint_ttl"`
}

// ArchiveConfig controls the periodic snapshot archive
type ArchiveConfig struct {
	Enabled      bool          `json:"enabled"`
	DatabasePath string        `json:"database_path"`
	Interval     time.Duration `json:"interval"`
}

// DefaultConfig returns production-ready defaults
func DefaultConfig() *Config {
	return &Config{
		HTTP: &HTTPConfig{
			Port:         8080,
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 30 * time.Second,
			Host:         "0.0.0.0",
		},
		WebSocket: &WebSocketConfig{
			PingInterval:       30 * time.Second,
			ReadTimeout:        60 * time.Second,
			RateLimitPerMinute: 240,
		},
		Redis: &RedisConfig{
			Addr:        "localhost:6379",
			DB:          0,
			DialTimeout: 5 * time.Second,
		},
		Archive: &ArchiveConfig{
			Enabled:      true,
			DatabasePath: "./data/drawboard.db",
			Interval:     5 * time.Minute,
		},
	}
}

// Validate prevents invalid system configurations from reaching runtime
func (c *Config) Validate() error {
	if c.HTTP == nil {
		return fmt.Errorf("HTTP configuration is required")
	}
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("HTTP port must be between 1 and 65535")
	}
	if c.HTTP.ReadTimeout <= 0 {
		return fmt.Errorf("HTTP read timeout must be positive")
	}
	if c.HTTP.WriteTimeout <= 0 {
		return fmt.Errorf("HTTP write timeout must be positive")
	}
	if c.HTTP.Host == "" {
		return fmt.Errorf("HTTP host cannot be empty")
	}

	if c.WebSocket == nil {
		return fmt.Errorf("WebSocket configuration is required")
	}
	if c.WebSocket.PingInterval <= 0 {
		return fmt.Errorf("WebSocket ping interval must be positive")
	}
	if c.WebSocket.ReadTimeout <= 0 {
		return fmt.Errorf("WebSocket read timeout must be positive")
	}
	if c.WebSocket.RateLimitPerMinute <= 0 {
		return fmt.Errorf("WebSocket rate limit must be positive")
	}

	if c.Redis == nil {
		return fmt.Errorf("redis configuration is required")
	}
	if c.Redis.Addr == "" {
		return fmt.Errorf("redis address cannot be empty")
	}
	if c.Redis.DB < 0 {
		return fmt.Errorf("redis DB index cannot be negative")
	}
	if c.Redis.DialTimeout <= 0 {
		return fmt.Errorf("redis dial timeout must be positive")
	}
	if c.Redis.CheckpointTTL < 0 {
		return fmt.Errorf("redis checkpoint TTL cannot be negative")
	}

	if c.Archive == nil {
		return fmt.Errorf("archive configuration is required")
	}
	if c.Archive.Enabled {
		if c.Archive.DatabasePath == "" {
			return fmt.Errorf("archive database path cannot be empty")
		}
		if c.Archive.Interval <= 0 {
			return fmt.Errorf("archive interval must be positive")
		}
	}

	return nil
}

// LoadFromEnv overlays environment variables on the defaults
// FUNCTIONAL DISCOVERY: Environment variable configuration supports
// containerized deployments and configuration management systems
func LoadFromEnv() *Config {
	config := DefaultConfig()

	if port := os.Getenv("DRAWBOARD_HTTP_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.HTTP.Port = p
		}
	}

	if host := os.Getenv("DRAWBOARD_HTTP_HOST"); host != "" {
		config.HTTP.Host = host
	}

	if readTimeout := os.Getenv("DRAWBOARD_HTTP_READ_TIMEOUT"); readTimeout != "" {
		if timeout, err := time.ParseDuration(readTimeout); err == nil {
			config.HTTP.ReadTimeout = timeout
		}
	}

	if writeTimeout := os.Getenv("DRAWBOARD_HTTP_WRITE_TIMEOUT"); writeTimeout != "" {
		if timeout, err := time.ParseDuration(writeTimeout); err == nil {
			config.HTTP.WriteTimeout = timeout
		}
	}

	if pingInterval := os.Getenv("DRAWBOARD_WEBSOCKET_PING_INTERVAL"); pingInterval != "" {
		if interval, err := time.ParseDuration(pingInterval); err == nil {
			config.WebSocket.PingInterval = interval
		}
	}

	if wsReadTimeout := os.Getenv("DRAWBOARD_WEBSOCKET_READ_TIMEOUT"); wsReadTimeout != "" {
		if timeout, err := time.ParseDuration(wsReadTimeout); err == nil {
			config.WebSocket.ReadTimeout = timeout
		}
	}

	if rateLimit := os.Getenv("DRAWBOARD_WEBSOCKET_RATE_LIMIT"); rateLimit != "" {
		if limit, err := strconv.Atoi(rateLimit); err == nil {
			config.WebSocket.RateLimitPerMinute = limit
		}
	}

	if addr := os.Getenv("DRAWBOARD_REDIS_ADDR"); addr != "" {
		config.Redis.Addr = addr
	}

	if password := os.Getenv("DRAWBOARD_REDIS_PASSWORD"); password != "" {
		config.Redis.Password = password
	}

	if db := os.Getenv("DRAWBOARD_REDIS_DB"); db != "" {
		if n, err := strconv.Atoi(db); err == nil {
			config.Redis.DB = n
		}
	}

	if ttl := os.Getenv("DRAWBOARD_REDIS_CHECKPOINT_TTL"); ttl != "" {
		if d, err := time.ParseDuration(ttl); err == nil {
			config.Redis.CheckpointTTL = d
		}
	}

	if enabled := os.Getenv("DRAWBOARD_ARCHIVE_ENABLED"); enabled != "" {
		if b, err := strconv.ParseBool(enabled); err == nil {
			config.Archive.Enabled = b
		}
	}

	if path := os.Getenv("DRAWBOARD_ARCHIVE_PATH"); path != "" {
		config.Archive.DatabasePath = path
	}

	if interval := os.Getenv("DRAWBOARD_ARCHIVE_INTERVAL"); interval != "" {
		if d, err := time.ParseDuration(interval); err == nil {
			config.Archive.Interval = d
		}
	}

	return config
}

// ConfigFile represents the JSON structure for file-based configuration
// FUNCTIONAL DISCOVERY: Separate struct for JSON parsing to handle duration
// strings
type ConfigFile struct {
	HTTP      *HTTPConfigFile      `json:"http"`
	WebSocket *WebSocketConfigFile `json:"websocket"`
	Redis     *RedisConfigFile     `json:"redis"`
	Archive   *ArchiveConfigFile   `json:"archive"`
}

type HTTPConfigFile struct {
	Port         int    `json:"port"`
	ReadTimeout  string `json:"read_timeout"`
	WriteTimeout string `json:"write_timeout"`
	Host         string `json:"host"`
}

type WebSocketConfigFile struct {
	PingInterval       string `json:"ping_interval"`
	ReadTimeout        string `json:"read_timeout"`
	RateLimitPerMinute int    `json:"rate_limit_per_minute"`
}

type RedisConfigFile struct {
	Addr          string `json:"addr"`
	Password      string `json:"password"`
	DB            int    `json:"db"`
	DialTimeout   string `json:"dial_timeout"`
	CheckpointTTL string `json:"checkpoint_ttl"`
}

type ArchiveConfigFile struct {
	Enabled      *bool  `json:"enabled"`
	DatabasePath string `json:"database_path"`
	Interval     string `json:"interval"`
}

// LoadFromFile reads JSON configuration, overlaying it on the defaults
func LoadFromFile(filepath string) (*Config, error) {
	data, err := os.ReadFile(filepath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", filepath, err)
	}

	var configFile ConfigFile
	if err := json.Unmarshal(data, &configFile); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", filepath, err)
	}

	config := DefaultConfig()

	if configFile.HTTP != nil {
		if configFile.HTTP.Port > 0 {
			config.HTTP.Port = configFile.HTTP.Port
		}
		if configFile.HTTP.Host != "" {
			config.HTTP.Host = configFile.HTTP.Host
		}
		if configFile.HTTP.ReadTimeout != "" {
			if timeout, err := time.ParseDuration(configFile.HTTP.ReadTimeout); err == nil {
				config.HTTP.ReadTimeout = timeout
			}
		}
		if configFile.HTTP.WriteTimeout != "" {
			if timeout, err := time.ParseDuration(configFile.HTTP.WriteTimeout); err == nil {
				config.HTTP.WriteTimeout = timeout
			}
		}
	}

	if configFile.WebSocket != nil {
		if configFile.WebSocket.RateLimitPerMinute > 0 {
			config.WebSocket.RateLimitPerMinute = configFile.WebSocket.RateLimitPerMinute
		}
		if configFile.WebSocket.PingInterval != "" {
			if interval, err := time.ParseDuration(configFile.WebSocket.PingInterval); err == nil {
				config.WebSocket.PingInterval = interval
			}
		}
		if configFile.WebSocket.ReadTimeout != "" {
			if timeout, err := time.ParseDuration(configFile.WebSocket.ReadTimeout); err == nil {
				config.WebSocket.ReadTimeout = timeout
			}
		}
	}

	if configFile.Redis != nil {
		if configFile.Redis.Addr != "" {
			config.Redis.Addr = configFile.Redis.Addr
		}
		if configFile.Redis.Password != "" {
			config.Redis.Password = configFile.Redis.Password
		}
		if configFile.Redis.DB > 0 {
			config.Redis.DB = configFile.Redis.DB
		}
		if configFile.Redis.DialTimeout != "" {
			if timeout, err := time.ParseDuration(configFile.Redis.DialTimeout); err == nil {
				config.Redis.DialTimeout = timeout
			}
		}
		if configFile.Redis.CheckpointTTL != "" {
			if ttl, err := time.ParseDuration(configFile.Redis.CheckpointTTL); err == nil {
				config.Redis.CheckpointTTL = ttl
			}
		}
	}

	if configFile.Archive != nil {
		if configFile.Archive.Enabled != nil {
			config.Archive.Enabled = *configFile.Archive.Enabled
		}
		if configFile.Archive.DatabasePath != "" {
			config.Archive.DatabasePath = configFile.Archive.DatabasePath
		}
		if configFile.Archive.Interval != "" {
			if interval, err := time.ParseDuration(configFile.Archive.Interval); err == nil {
				config.Archive.Interval = interval
			}
		}
	}

	// ARCHITECTURAL DISCOVERY: Validate configuration after loading to catch
	// errors early
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration in %s: %w", filepath, err)
	}

	return config, nil
}

// LoadConfigWithPrecedence loads configuration: file > environment > defaults
func LoadConfigWithPrecedence(filepath string) *Config {
	config := DefaultConfig()

	envConfig := LoadFromEnv()
	if envConfig != nil {
		config = envConfig
	}

	if filepath != "" {
		if fileConfig, err := LoadFromFile(filepath); err == nil {
			config = fileConfig
		}
		// Silently ignore file errors - environment/defaults still work
	}

	return config
}
