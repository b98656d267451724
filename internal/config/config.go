package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Port           string        `yaml:"port"`
	RemoteURL      string        `yaml:"remote_url"`
	RemoteTimeout  time.Duration `yaml:"remote_timeout"`
	CacheBackend   string        `yaml:"cache_backend"`
	CacheTTL       time.Duration `yaml:"cache_ttl"`
	RedisAddr      string        `yaml:"redis_addr"`
	RedisNamespace string        `yaml:"redis_namespace"`
	Printer        string        `yaml:"printer"`
	PrinterPath    string        `yaml:"printer_path"`
	AMQPURL        string        `yaml:"amqp_url"`
	PrintQueue     string        `yaml:"print_queue"`
	LogLevel       string        `yaml:"log_level"`
	OTLPEndpoint   string        `yaml:"otlp_endpoint"`
	AllowedOrigins []string      `yaml:"allowed_origins"`

	// ReissueReceiptOnUpdate mints a new receipt number every time an
	// existing order is updated. Off by default: a receipt number stays
	// stable for the life of an order.
	ReissueReceiptOnUpdate bool `yaml:"reissue_receipt_on_update"`
}

func defaults() *Config {
	return &Config{
		Port:           "8090",
		RemoteURL:      "http://localhost:8081",
		RemoteTimeout:  10 * time.Second,
		CacheBackend:   "memory",
		CacheTTL:       10 * time.Minute,
		RedisAddr:      "localhost:6379",
		RedisNamespace: "pos:terminal",
		Printer:        "stdout",
		PrintQueue:     "receipts.print",
		LogLevel:       "info",
		AllowedOrigins: []string{"http://localhost:5173"},
	}
}

// Load builds the configuration from defaults, then the YAML file named by
// POS_CONFIG (if set), then environment variables.
func Load() (*Config, error) {
	cfg := defaults()

	if path := os.Getenv("POS_CONFIG"); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}

	cfg.Port = getEnv("PORT", cfg.Port)
	cfg.RemoteURL = getEnv("REMOTE_URL", cfg.RemoteURL)
	cfg.CacheBackend = getEnv("CACHE_BACKEND", cfg.CacheBackend)
	cfg.RedisAddr = getEnv("REDIS_ADDR", cfg.RedisAddr)
	cfg.RedisNamespace = getEnv("REDIS_NAMESPACE", cfg.RedisNamespace)
	cfg.Printer = getEnv("PRINTER", cfg.Printer)
	cfg.PrinterPath = getEnv("PRINTER_PATH", cfg.PrinterPath)
	cfg.AMQPURL = getEnv("AMQP_URL", cfg.AMQPURL)
	cfg.PrintQueue = getEnv("PRINT_QUEUE", cfg.PrintQueue)
	cfg.LogLevel = getEnv("LOG_LEVEL", cfg.LogLevel)
	cfg.OTLPEndpoint = getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", cfg.OTLPEndpoint)

	var err error
	if cfg.RemoteTimeout, err = getDuration("REMOTE_TIMEOUT", cfg.RemoteTimeout); err != nil {
		return nil, err
	}
	if cfg.CacheTTL, err = getDuration("CACHE_TTL", cfg.CacheTTL); err != nil {
		return nil, err
	}
	if cfg.ReissueReceiptOnUpdate, err = getBool("REISSUE_RECEIPT_ON_UPDATE", cfg.ReissueReceiptOnUpdate); err != nil {
		return nil, err
	}
	if v := os.Getenv("ALLOWED_ORIGINS"); v != "" {
		cfg.AllowedOrigins = splitList(v)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(b, c); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

func (c *Config) validate() error {
	switch c.CacheBackend {
	case "memory", "redis":
	default:
		return fmt.Errorf("invalid CACHE_BACKEND %q", c.CacheBackend)
	}
	switch c.Printer {
	case "stdout", "file", "amqp":
	default:
		return fmt.Errorf("invalid PRINTER %q", c.Printer)
	}
	if c.Printer == "file" && c.PrinterPath == "" {
		return fmt.Errorf("PRINTER_PATH is required for the file printer")
	}
	if c.Printer == "amqp" && c.AMQPURL == "" {
		return fmt.Errorf("AMQP_URL is required for the amqp printer")
	}
	return nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}

func getBool(key string, fallback bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("invalid %s: %w", key, err)
	}
	return b, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
