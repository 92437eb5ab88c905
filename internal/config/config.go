package config

import (
	"errors"
	"os"
	"strings"
)

// ErrStoreMisconfigured is returned by Load when no document store connection string is set.
var ErrStoreMisconfigured = errors.New("MONGO_URI is not defined")

type Config struct {
	MongoURI          string
	MongoDatabase     string
	EntriesCollection string
	PostgresURI       string // optional: entry audit log
	RedisURI          string // optional: shared rate limits and entry event fan-out
	JWTSecret         string // optional: verify bearer tokens instead of only decoding them
	EncryptionKey     string // optional: base64 AES-256 key for entry fields at rest
	Port              string
	AllowedOrigins    []string
	Environment       string // ENV: production, development, etc.
	LogLevel          string
	LogFormat         string

	CloudinaryName      string
	CloudinaryAPIKey    string
	CloudinaryAPISecret string
}

// Load reads the configuration from the environment. It is called once at startup;
// a missing store connection string is fatal for the process.
func Load() (*Config, error) {
	mongoURI := strings.TrimSpace(getEnv("MONGO_URI", getEnv("MONGODB_URI", "")))
	if mongoURI == "" {
		return nil, ErrStoreMisconfigured
	}

	allowedOrigins := parseOrigins(getEnv("ALLOWED_ORIGINS", ""))
	if len(allowedOrigins) == 0 {
		for _, u := range []string{getEnv("FRONTEND_URL", "http://localhost:3000"), getEnv("FRONTEND_URL_2", "")} {
			u = strings.TrimSpace(u)
			if u != "" && !containsOrigin(allowedOrigins, u) {
				allowedOrigins = append(allowedOrigins, u)
			}
		}
	}

	return &Config{
		MongoURI:            mongoURI,
		MongoDatabase:       getEnv("MONGO_DB", "diaryDB"),
		EntriesCollection:   getEnv("MONGO_COLLECTION", "entries"),
		PostgresURI:         getEnv("POSTGRES_URI", ""),
		RedisURI:            getEnv("REDIS_URI", ""),
		JWTSecret:           getEnv("JWT_SECRET", ""),
		EncryptionKey:       getEnv("ENCRYPTION_KEY", ""),
		Port:                getEnv("PORT", "8080"),
		AllowedOrigins:      allowedOrigins,
		Environment:         strings.ToLower(strings.TrimSpace(getEnv("ENV", "development"))),
		LogLevel:            getEnv("LOG_LEVEL", "info"),
		LogFormat:           getEnv("LOG_FORMAT", "json"),
		CloudinaryName:      getEnv("CLOUDINARY_CLOUD_NAME", ""),
		CloudinaryAPIKey:    getEnv("CLOUDINARY_API_KEY", ""),
		CloudinaryAPISecret: getEnv("CLOUDINARY_API_SECRET", ""),
	}, nil
}

// IsProduction returns true when ENV is set to "production".
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// CloudinaryEnabled reports whether all attachment upload credentials are present.
func (c *Config) CloudinaryEnabled() bool {
	return c.CloudinaryName != "" && c.CloudinaryAPIKey != "" && c.CloudinaryAPISecret != ""
}

func parseOrigins(s string) []string {
	if s == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}

func containsOrigin(list []string, o string) bool {
	o = strings.TrimSpace(strings.ToLower(o))
	for _, v := range list {
		if strings.TrimSpace(strings.ToLower(v)) == o {
			return true
		}
	}
	return false
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
