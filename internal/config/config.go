package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

const (
	StoreMongo  = "mongo"
	StoreMemory = "memory"
)

// Config holds the server settings. Environment variables provide defaults and
// an optional YAML file overrides them.
type Config struct {
	Port               string        `yaml:"port"`
	Store              string        `yaml:"store"`
	MongoURI           string        `yaml:"mongo_uri"`
	MongoDatabase      string        `yaml:"mongo_database"`
	JWTSecret          string        `yaml:"jwt_secret"`
	LogLevel           string        `yaml:"log_level"`
	LogFormat          string        `yaml:"log_format"`
	ShutdownTimeout    time.Duration `yaml:"shutdown_timeout"`
	AllowRoleSelection bool          `yaml:"allow_role_selection"`
	RateLimit          RateLimit     `yaml:"rate_limit"`
	MQTT               MQTT          `yaml:"mqtt"`
	Admin              Admin         `yaml:"admin"`
}

// RateLimit bounds login and registration attempts per client IP.
type RateLimit struct {
	Requests int           `yaml:"requests"`
	Window   time.Duration `yaml:"window"`
}

// MQTT configures the lifecycle event stream. An empty broker disables it.
type MQTT struct {
	Broker    string `yaml:"broker"`
	ClientID  string `yaml:"client_id"`
	Topic     string `yaml:"topic"`
	Username  string `yaml:"username"`
	Password  string `yaml:"password"`
	QoS       int    `yaml:"qos"`
	QueueSize int    `yaml:"queue_size"`
}

// Admin is the bootstrap administrator created on startup when no account
// holds its email yet. An empty email disables the bootstrap.
type Admin struct {
	Name     string `yaml:"name"`
	Email    string `yaml:"email"`
	Password string `yaml:"password"`
}

// Load reads .env (if present), the environment and then the YAML file at path.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	cfg := &Config{
		Port:               getEnv("PORT", "8080"),
		Store:              getEnv("STORE_DRIVER", StoreMongo),
		MongoURI:           getEnv("MONGO_URI", "mongodb://localhost:27017"),
		MongoDatabase:      getEnv("MONGO_DB", "bike_service"),
		JWTSecret:          os.Getenv("JWT_SECRET"),
		LogLevel:           getEnv("LOG_LEVEL", "info"),
		LogFormat:          getEnv("LOG_FORMAT", "json"),
		ShutdownTimeout:    getEnvDuration("SHUTDOWN_TIMEOUT", 15*time.Second),
		AllowRoleSelection: getEnvBool("ALLOW_ROLE_SELECTION", false),
		RateLimit: RateLimit{
			Requests: getEnvInt("RATE_LIMIT_REQUESTS", 20),
			Window:   getEnvDuration("RATE_LIMIT_WINDOW", time.Minute),
		},
		MQTT: MQTT{
			Broker:    os.Getenv("MQTT_BROKER"),
			ClientID:  getEnv("MQTT_CLIENT_ID", "bike-service"),
			Topic:     getEnv("MQTT_TOPIC", "bike-service/events"),
			Username:  os.Getenv("MQTT_USERNAME"),
			Password:  os.Getenv("MQTT_PASSWORD"),
			QoS:       getEnvInt("MQTT_QOS", 1),
			QueueSize: getEnvInt("EVENT_QUEUE_SIZE", 100),
		},
		Admin: Admin{
			Name:     getEnv("ADMIN_NAME", "Administrator"),
			Email:    os.Getenv("ADMIN_EMAIL"),
			Password: os.Getenv("ADMIN_PASSWORD"),
		},
	}

	if path != "" {
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer f.Close()

		dec := yaml.NewDecoder(f)
		if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("decode %s: %w", path, err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects settings the server cannot start with.
func (c *Config) Validate() error {
	if c.JWTSecret == "" {
		return errors.New("jwt secret is required (JWT_SECRET)")
	}
	switch c.Store {
	case StoreMongo:
		if c.MongoURI == "" {
			return errors.New("mongo uri is required for the mongo store")
		}
	case StoreMemory:
	default:
		return fmt.Errorf("unknown store driver %q", c.Store)
	}
	if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
		return fmt.Errorf("mqtt qos must be 0, 1 or 2, got %d", c.MQTT.QoS)
	}
	if c.RateLimit.Requests <= 0 || c.RateLimit.Window <= 0 {
		return errors.New("rate limit requests and window must be positive")
	}
	if c.Admin.Email != "" && c.Admin.Password == "" {
		return errors.New("admin password is required when admin email is set")
	}
	return nil
}

// NewLogger builds the process logger from the configured level and format.
func (c *Config) NewLogger(out io.Writer) (*log.Logger, error) {
	logger := log.New()
	logger.SetOutput(out)

	level, err := log.ParseLevel(c.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("log level: %w", err)
	}
	logger.SetLevel(level)

	switch strings.ToLower(c.LogFormat) {
	case "json", "":
		logger.SetFormatter(&log.JSONFormatter{})
	case "text":
		logger.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	default:
		return nil, fmt.Errorf("unknown log format %q", c.LogFormat)
	}
	return logger, nil
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func getEnvBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return def
}

func getEnvDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}
