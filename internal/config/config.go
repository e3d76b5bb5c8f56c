package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds runtime configuration values for the marketplace API.
type Config struct {
	AppName      string
	AppEnv       string
	AppPort      string
	DatabaseURL  string
	RedisURL     string
	JWTSecret    string
	SyncInterval time.Duration
	SendTimeout  time.Duration
	QRSessionTTL time.Duration
}

// HTTPAddress returns the address the HTTP server should listen on.
func (c Config) HTTPAddress() string {
	if strings.HasPrefix(c.AppPort, ":") {
		return c.AppPort
	}

	return fmt.Sprintf(":%s", c.AppPort)
}

// Load reads configuration values from environment variables and optional .env file.
func Load() (Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix("TERRA")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault("app.name", "Terra Capital Market API")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.port", "8080")
	v.SetDefault("chat.sync_interval", "2500ms")
	v.SetDefault("chat.send_timeout", "15s")
	v.SetDefault("qr.session_ttl", "10m")

	syncInterval, err := parseDuration(v, "chat.sync_interval", 2500*time.Millisecond)
	if err != nil {
		return Config{}, fmt.Errorf("invalid chat sync interval: %w", err)
	}

	sendTimeout, err := parseDuration(v, "chat.send_timeout", 15*time.Second)
	if err != nil {
		return Config{}, fmt.Errorf("invalid chat send timeout: %w", err)
	}

	qrSessionTTL, err := parseDuration(v, "qr.session_ttl", 10*time.Minute)
	if err != nil {
		return Config{}, fmt.Errorf("invalid qr session ttl: %w", err)
	}

	cfg := Config{
		AppName:      v.GetString("app.name"),
		AppEnv:       v.GetString("app.env"),
		AppPort:      v.GetString("app.port"),
		DatabaseURL:  v.GetString("database.url"),
		RedisURL:     v.GetString("redis.url"),
		JWTSecret:    v.GetString("jwt.secret"),
		SyncInterval: syncInterval,
		SendTimeout:  sendTimeout,
		QRSessionTTL: qrSessionTTL,
	}

	if cfg.JWTSecret == "" {
		return Config{}, fmt.Errorf("jwt secret must be provided")
	}

	return cfg, nil
}

func parseDuration(v *viper.Viper, key string, fallback time.Duration) (time.Duration, error) {
	raw := v.GetString(key)
	if raw == "" {
		return fallback, nil
	}

	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return 0, err
	}
	if parsed <= 0 {
		return fallback, nil
	}

	return parsed, nil
}
