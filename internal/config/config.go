package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// App holds the runtime configuration loaded from an optional YAML file and environment variables.
type App struct {
	Env              string        `yaml:"env"`
	HTTPPort         string        `yaml:"http_port"`
	DatabaseURL      string        `yaml:"database_url"`
	RedisAddr        string        `yaml:"redis_addr"`
	QueueBackend     string        `yaml:"queue_backend"`
	KafkaBrokers     []string      `yaml:"kafka_brokers"`
	OutcomeTopic     string        `yaml:"outcome_topic"`
	JWTIssuer        string        `yaml:"jwt_issuer"`
	JWTSigningKey    string        `yaml:"jwt_signing_key"`
	AdminTokenTTL    time.Duration `yaml:"admin_token_ttl"`
	RateLimitPerMin  int           `yaml:"rate_limit_per_min"`
	CameraSnapshot   string        `yaml:"camera_snapshot"`
	FrameInterval    time.Duration `yaml:"frame_interval"`
	DebounceWindow   time.Duration `yaml:"debounce_window"`
	StatusResetDelay time.Duration `yaml:"status_reset_delay"`
	TimeZone         string        `yaml:"timezone"`
	LogLevel         string        `yaml:"log_level"`
}

// Defaults returns the configuration used when nothing is set.
func Defaults() App {
	return App{
		Env:              "dev",
		HTTPPort:         "8081",
		DatabaseURL:      "sqlite://attendance.db",
		RedisAddr:        "localhost:6379",
		QueueBackend:     "memory",
		KafkaBrokers:     []string{"localhost:9092"},
		OutcomeTopic:     "attendance.outcomes",
		JWTIssuer:        "scanattend",
		JWTSigningKey:    "dev-signing-secret-change",
		AdminTokenTTL:    12 * time.Hour,
		RateLimitPerMin:  120,
		FrameInterval:    33 * time.Millisecond,
		DebounceWindow:   3 * time.Second,
		StatusResetDelay: 3 * time.Second,
		TimeZone:         "Local",
		LogLevel:         "info",
	}
}

// Load returns application config: defaults, then the YAML file named by
// ATTENDANCE_CONFIG (if any), then environment variables.
func Load() App {
	cfg := Defaults()
	if path := os.Getenv("ATTENDANCE_CONFIG"); path != "" {
		if err := cfg.mergeFile(path); err != nil {
			slog.Warn("config file ignored", "path", path, "err", err)
		}
	}
	cfg.applyEnv()
	return cfg
}

func (c *App) mergeFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	// Fields absent from the file keep their current values.
	return yaml.Unmarshal(data, c)
}

func (c *App) applyEnv() {
	c.Env = getEnv("APP_ENV", c.Env)
	c.HTTPPort = getEnv("HTTP_PORT", c.HTTPPort)
	c.DatabaseURL = getEnv("DATABASE_URL", c.DatabaseURL)
	c.RedisAddr = getEnv("REDIS_ADDR", c.RedisAddr)
	c.QueueBackend = getEnv("QUEUE_BACKEND", c.QueueBackend)
	c.KafkaBrokers = listEnv("KAFKA_BROKERS", c.KafkaBrokers)
	c.OutcomeTopic = getEnv("OUTCOME_TOPIC", c.OutcomeTopic)
	c.JWTIssuer = getEnv("JWT_ISSUER", c.JWTIssuer)
	c.JWTSigningKey = getEnv("JWT_SIGNING_KEY", c.JWTSigningKey)
	c.AdminTokenTTL = durationEnv("ADMIN_TOKEN_TTL", c.AdminTokenTTL)
	c.RateLimitPerMin = intEnv("RATE_LIMIT_PER_MIN", c.RateLimitPerMin)
	c.CameraSnapshot = getEnv("CAMERA_SNAPSHOT", c.CameraSnapshot)
	c.FrameInterval = durationEnv("FRAME_INTERVAL", c.FrameInterval)
	c.DebounceWindow = durationEnv("DEBOUNCE_WINDOW", c.DebounceWindow)
	c.StatusResetDelay = durationEnv("STATUS_RESET_DELAY", c.StatusResetDelay)
	c.TimeZone = getEnv("TIMEZONE", c.TimeZone)
	c.LogLevel = getEnv("LOG_LEVEL", c.LogLevel)
}

// Validate reports the first setting that cannot be used.
func (c App) Validate() error {
	switch c.QueueBackend {
	case "memory", "redis", "kafka":
	default:
		return fmt.Errorf("unknown queue backend %q", c.QueueBackend)
	}
	if c.QueueBackend == "kafka" && len(c.KafkaBrokers) == 0 {
		return errors.New("kafka backend needs at least one broker")
	}
	if c.FrameInterval <= 0 {
		return errors.New("frame interval must be positive")
	}
	if c.DebounceWindow < 0 {
		return errors.New("debounce window must not be negative")
	}
	if c.StatusResetDelay <= 0 {
		return errors.New("status reset delay must be positive")
	}
	if c.DatabaseURL == "" {
		return errors.New("database url required")
	}
	if _, err := c.Location(); err != nil {
		return fmt.Errorf("timezone: %w", err)
	}
	return nil
}

// Location resolves TimeZone; the calendar day of a scan is taken in this location.
func (c App) Location() (*time.Location, error) {
	if c.TimeZone == "" || c.TimeZone == "Local" {
		return time.Local, nil
	}
	return time.LoadLocation(c.TimeZone)
}

// Production reports whether the app runs with production defaults.
func (c App) Production() bool {
	return c.Env == "production" || c.Env == "prod"
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func listEnv(key string, fallback []string) []string {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	var out []string
	for _, part := range strings.Split(val, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func durationEnv(key string, fallback time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		d, err := time.ParseDuration(val)
		if err != nil {
			slog.Warn("invalid duration, using fallback", "key", key, "err", err, "fallback", fallback)
			return fallback
		}
		return d
	}
	return fallback
}

func intEnv(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		var parsed int
		if _, err := fmt.Sscanf(val, "%d", &parsed); err == nil {
			return parsed
		}
		slog.Warn("invalid int, using fallback", "key", key, "fallback", fallback)
	}
	return fallback
}
