package config

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	return &Config{
		Port:          "8080",
		Store:         StoreMemory,
		JWTSecret:     "secret",
		LogLevel:      "info",
		LogFormat:     "json",
		RateLimit:     RateLimit{Requests: 10, Window: time.Minute},
		MQTT:          MQTT{QoS: 1},
		MongoDatabase: "bike_service",
	}
}

func TestLoad_FromEnvironment(t *testing.T) {
	t.Setenv("JWT_SECRET", "from-env")
	t.Setenv("PORT", "9090")
	t.Setenv("STORE_DRIVER", "memory")
	t.Setenv("RATE_LIMIT_REQUESTS", "5")
	t.Setenv("RATE_LIMIT_WINDOW", "30s")
	t.Setenv("ALLOW_ROLE_SELECTION", "true")
	t.Setenv("MQTT_BROKER", "tcp://broker:1883")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.JWTSecret)
	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, StoreMemory, cfg.Store)
	assert.Equal(t, 5, cfg.RateLimit.Requests)
	assert.Equal(t, 30*time.Second, cfg.RateLimit.Window)
	assert.True(t, cfg.AllowRoleSelection)
	assert.Equal(t, "tcp://broker:1883", cfg.MQTT.Broker)
	assert.Equal(t, "bike-service/events", cfg.MQTT.Topic)
	assert.Equal(t, 15*time.Second, cfg.ShutdownTimeout)
}

func TestLoad_YAMLOverridesEnvironment(t *testing.T) {
	t.Setenv("JWT_SECRET", "from-env")
	t.Setenv("PORT", "9090")

	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
port: "7070"
store: memory
log_format: text
rate_limit:
  requests: 3
  window: 10s
admin:
  email: root@garage.test
  password: password123
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "7070", cfg.Port)
	assert.Equal(t, "from-env", cfg.JWTSecret)
	assert.Equal(t, "text", cfg.LogFormat)
	assert.Equal(t, 3, cfg.RateLimit.Requests)
	assert.Equal(t, 10*time.Second, cfg.RateLimit.Window)
	assert.Equal(t, "root@garage.test", cfg.Admin.Email)
	assert.Equal(t, "Administrator", cfg.Admin.Name)
}

func TestLoad_Errors(t *testing.T) {
	t.Run("missing secret", func(t *testing.T) {
		t.Setenv("JWT_SECRET", "")
		_, err := Load("")
		assert.Error(t, err)
	})

	t.Run("missing file", func(t *testing.T) {
		t.Setenv("JWT_SECRET", "secret")
		_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
		assert.Error(t, err)
	})

	t.Run("malformed yaml", func(t *testing.T) {
		t.Setenv("JWT_SECRET", "secret")
		path := filepath.Join(t.TempDir(), "bad.yaml")
		require.NoError(t, os.WriteFile(path, []byte("port: [unclosed"), 0o600))
		_, err := Load(path)
		assert.Error(t, err)
	})
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"valid", func(*Config) {}, false},
		{"empty secret", func(c *Config) { c.JWTSecret = "" }, true},
		{"unknown store", func(c *Config) { c.Store = "postgres" }, true},
		{"mongo without uri", func(c *Config) { c.Store = StoreMongo; c.MongoURI = "" }, true},
		{"mongo with uri", func(c *Config) { c.Store = StoreMongo; c.MongoURI = "mongodb://db:27017" }, false},
		{"bad qos", func(c *Config) { c.MQTT.QoS = 3 }, true},
		{"zero rate limit", func(c *Config) { c.RateLimit.Requests = 0 }, true},
		{"admin without password", func(c *Config) { c.Admin.Email = "root@garage.test" }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestNewLogger(t *testing.T) {
	cfg := validConfig()
	cfg.LogLevel = "warn"

	var buf bytes.Buffer
	logger, err := cfg.NewLogger(&buf)
	require.NoError(t, err)
	assert.Equal(t, log.WarnLevel, logger.GetLevel())

	logger.Info("hidden")
	logger.WithField("booking_id", "b1").Warn("shown")
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), `"booking_id":"b1"`)

	cfg.LogLevel = "loud"
	_, err = cfg.NewLogger(&buf)
	assert.Error(t, err)

	cfg.LogLevel = "info"
	cfg.LogFormat = "xml"
	_, err = cfg.NewLogger(&buf)
	assert.Error(t, err)
}
