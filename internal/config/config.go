package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config aggregates the demo server's settings.
type Config struct {
	Server  ServerConfig
	Yemot   YemotConfig
	Store   StoreConfig
	Monitor MonitorConfig
}

// Load reads the configuration from environment variables.
func Load() (*Config, error) {
	server, err := loadServerConfig()
	if err != nil {
		return nil, err
	}

	yemot, err := loadYemotConfig()
	if err != nil {
		return nil, err
	}

	store, err := loadStoreConfig()
	if err != nil {
		return nil, err
	}

	monitor, err := parseBoolEnv("MONITOR_ENABLED", true)
	if err != nil {
		return nil, err
	}

	return &Config{
		Server:  server,
		Yemot:   yemot,
		Store:   store,
		Monitor: MonitorConfig{Enabled: monitor},
	}, nil
}

// ServerConfig describes the HTTP listener.
type ServerConfig struct {
	Addr string
}

func loadServerConfig() (ServerConfig, error) {
	port := strings.TrimSpace(os.Getenv("PORT"))
	if port == "" {
		port = "8080"
	}

	if strings.Contains(port, ":") {
		// Allow passing ":8080" or "127.0.0.1:8080" directly.
		return ServerConfig{Addr: port}, nil
	}

	if strings.Contains(port, " ") {
		return ServerConfig{}, fmt.Errorf("invalid PORT value: %q", port)
	}

	return ServerConfig{Addr: ":" + port}, nil
}

// YemotConfig describes the call-flow router settings.
type YemotConfig struct {
	// ReadTimeout bounds how long a suspended read waits for the caller's
	// next request. Zero waits forever.
	ReadTimeout time.Duration
	PrintLog    bool
}

func loadYemotConfig() (YemotConfig, error) {
	timeout, err := parseDurationEnv("YEMOT_READ_TIMEOUT", 0)
	if err != nil {
		return YemotConfig{}, err
	}
	if timeout < 0 {
		return YemotConfig{}, fmt.Errorf("YEMOT_READ_TIMEOUT must not be negative, got %s", timeout)
	}

	printLog, err := parseBoolEnv("YEMOT_PRINT_LOG", false)
	if err != nil {
		return YemotConfig{}, err
	}

	return YemotConfig{ReadTimeout: timeout, PrintLog: printLog}, nil
}

// StoreConfig selects the per-call scratch store backend. An empty
// RedisAddr means the in-memory store.
type StoreConfig struct {
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	KeyPrefix     string
	TTL           time.Duration
}

func loadStoreConfig() (StoreConfig, error) {
	db, err := parseOptionalIntEnv("REDIS_DB")
	if err != nil {
		return StoreConfig{}, err
	}
	redisDB := 0
	if db != nil {
		redisDB = *db
	}

	ttl, err := parseDurationEnv("CALLSTORE_TTL", time.Hour)
	if err != nil {
		return StoreConfig{}, err
	}

	return StoreConfig{
		RedisAddr:     strings.TrimSpace(os.Getenv("REDIS_ADDR")),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		RedisDB:       redisDB,
		KeyPrefix:     getEnvOrDefault("CALLSTORE_KEY_PREFIX", ""),
		TTL:           ttl,
	}, nil
}

// MonitorConfig toggles the websocket call monitor.
type MonitorConfig struct {
	Enabled bool
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func parseBoolEnv(key string, defaultValue bool) (bool, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return defaultValue, nil
	}

	val, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("invalid %s value %q: %w", key, raw, err)
	}
	return val, nil
}

func parseOptionalIntEnv(key string) (*int, error) {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return nil, nil
	}

	value := strings.TrimSpace(raw)
	if value == "" {
		return nil, nil
	}

	val, err := strconv.Atoi(value)
	if err != nil {
		return nil, fmt.Errorf("invalid %s value %q: %w", key, value, err)
	}
	return &val, nil
}

func parseDurationEnv(key string, defaultValue time.Duration) (time.Duration, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return defaultValue, nil
	}

	val, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s value %q: %w", key, raw, err)
	}
	return val, nil
}
