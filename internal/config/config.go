package config

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Store drivers.
const (
	StoreMongo    = "mongo"
	StoreMySQL    = "mysql"
	StorePostgres = "postgres"
)

// JWTConfig defines issuer/secret pair for admin auth verification.
type JWTConfig struct {
	Issuer string
	Secret []byte
}

// Config holds runtime configuration shared across the application.
type Config struct {
	AppName                      string
	Env                          string
	Addr                         string
	StoreDriver                  string
	MongoURI                     string
	MongoDatabase                string
	RegistrationCollection       string
	FailedNotificationCollection string
	SQLDSN                       string
	Timeout                      time.Duration
	Logger                       zerolog.Logger
	AllowedOrigins               []string
	ThankYouPath                 string
	MessengerEndpoint            string
	MessengerDestination         string
	MessengerTimeout             time.Duration
	AdminBaseURL                 string
	AdminJWT                     *JWTConfig
	AdminJWTAudience             string
}

// Load reads environment variables and returns a fully populated Config.
func Load() (Config, error) {
	return load(os.Stdout)
}

// load builds the Config, sending the startup log line to logOutput.
func load(logOutput io.Writer) (Config, error) {
	cfg := Config{
		AppName:                      envOrDefault("APP_NAME", "student-health-card"),
		Env:                          envOrDefault("APP_ENV", "dev"),
		Addr:                         envOrDefault("HTTP_ADDR", ":8080"),
		StoreDriver:                  strings.ToLower(envOrDefault("STORE_DRIVER", StoreMongo)),
		MongoURI:                     envOrDefault("MONGO_URI", "mongodb://localhost:27017"),
		MongoDatabase:                envOrDefault("MONGO_DB", "student_health_card"),
		RegistrationCollection:       envOrDefault("REGISTRATION_COLLECTION", "users"),
		FailedNotificationCollection: envOrDefault("FAILED_NOTIFICATION_COLLECTION", "failed_notifications"),
		SQLDSN:                       strings.TrimSpace(os.Getenv("SQL_DSN")),
		Timeout:                      durationOrDefault("MONGO_CONNECT_TIMEOUT", 10*time.Second),
		AllowedOrigins:               parseList("API_ALLOWED_ORIGINS", []string{"*"}),
		ThankYouPath:                 envOrDefault("THANK_YOU_PATH", "/thank-you"),
		MessengerEndpoint:            strings.TrimRight(strings.TrimSpace(os.Getenv("MESSENGER_GATEWAY_URL")), "/"),
		MessengerDestination:         strings.TrimSpace(os.Getenv("MESSENGER_ADMIN_DESTINATION")),
		MessengerTimeout:             durationOrDefault("MESSENGER_GATEWAY_TIMEOUT", 3*time.Second),
		AdminBaseURL:                 strings.TrimSpace(os.Getenv("ADMIN_REGISTRATION_BASE_URL")),
		AdminJWTAudience:             strings.TrimSpace(os.Getenv("ADMIN_JWT_AUDIENCE")),
	}

	level, err := zerolog.ParseLevel(strings.ToLower(envOrDefault("LOG_LEVEL", "info")))
	if err != nil {
		return Config{}, fmt.Errorf("LOG_LEVEL: %w", err)
	}
	cfg.Logger = zerolog.New(logOutput).Level(level).With().Timestamp().Str("app", cfg.AppName).Logger()

	switch cfg.StoreDriver {
	case StoreMongo:
	case StoreMySQL, StorePostgres:
		if cfg.SQLDSN == "" {
			return Config{}, fmt.Errorf("SQL_DSN is required when STORE_DRIVER=%s", cfg.StoreDriver)
		}
	default:
		return Config{}, fmt.Errorf("unknown STORE_DRIVER %q", cfg.StoreDriver)
	}

	if secret := strings.TrimSpace(os.Getenv("ADMIN_JWT_SECRET")); secret != "" {
		cfg.AdminJWT = &JWTConfig{
			Issuer: envOrDefault("ADMIN_JWT_ISSUER", "student-health-card-admin"),
			Secret: []byte(secret),
		}
	}

	if cfg.MessengerDestination != "" && cfg.MessengerEndpoint == "" {
		cfg.MessengerEndpoint = "http://messenger-gateway:3000"
	}

	cfg.Logger.Info().
		Str("env", cfg.Env).
		Str("store", cfg.StoreDriver).
		Str("messengerEndpoint", cfg.MessengerEndpoint).
		Bool("admin", cfg.AdminJWT != nil).
		Msg("loaded config")

	return cfg, nil
}

// Production reports whether the app runs with production hardening.
func (c Config) Production() bool {
	return c.Env == "prod" || c.Env == "production"
}

// envOrDefault returns the trimmed variable, or fallback when unset.
func envOrDefault(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

// durationOrDefault parses a positive duration, or returns fallback.
func durationOrDefault(key string, fallback time.Duration) time.Duration {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil || parsed <= 0 {
		return fallback
	}
	return parsed
}

// parseList splits a comma-separated variable, skipping blanks.
func parseList(key string, fallback []string) []string {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}

	parts := strings.Split(raw, ",")
	values := make([]string, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part != "" {
			values = append(values, part)
		}
	}

	if len(values) == 0 {
		return fallback
	}
	return values
}
