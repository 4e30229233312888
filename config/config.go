package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration loaded from environment variables.
type Config struct {
	// Market data
	Symbol   string        // trading pair, e.g. "BTCUSDT"
	Interval time.Duration // base candle interval
	FeedURL  string        // exchange WebSocket endpoint
	SimMode  bool          // use the simulated feed instead of the exchange

	// Engine
	BufferCapacity    int           // candle window size
	Cadence           time.Duration // idle recompute cadence; 0 = derive from Interval
	DefaultIndicators string        // comma-separated ids activated at startup

	// Infrastructure
	RedisAddr     string
	RedisPassword string
	SQLitePath    string
	MetricsAddr   string
	GatewayAddr   string
	LogLevel      string
}

// Load reads configuration from environment variables with sensible defaults.
func Load() *Config {
	return &Config{
		Symbol:   getEnv("SYMBOL", "BTCUSDT"),
		Interval: getEnvDuration("INTERVAL", time.Minute),
		FeedURL:  getEnv("FEED_URL", "wss://wbs.mexc.com/ws"),
		SimMode:  strings.EqualFold(getEnv("SIM_MODE", "false"), "true"),

		BufferCapacity:    getEnvInt("BUFFER_CAPACITY", 200),
		Cadence:           getEnvDuration("CADENCE", 0),
		DefaultIndicators: getEnv("DEFAULT_INDICATORS", "SMA_20,EMA_12,RSI_14"),

		RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		SQLitePath:    getEnv("SQLITE_PATH", "data/candles.db"),
		MetricsAddr:   getEnv("METRICS_ADDR", ":9090"),
		GatewayAddr:   getEnv("GATEWAY_ADDR", ":8080"),
		LogLevel:      getEnv("LOG_LEVEL", "info"),
	}
}

// ParseIndicators splits DefaultIndicators into a list of ids.
func (c *Config) ParseIndicators() []string {
	parts := strings.Split(c.DefaultIndicators, ",")
	ids := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		ids = append(ids, p)
	}
	return ids
}

func getEnv(key, fallback string) string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v
}

func getEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		log.Printf("[config] invalid %s=%q, using %d", key, v, fallback)
		return fallback
	}
	return n
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil || d < 0 {
		log.Printf("[config] invalid %s=%q, using %v", key, v, fallback)
		return fallback
	}
	return d
}
