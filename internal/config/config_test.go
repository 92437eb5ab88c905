package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	for _, k := range []string{
		"MONGO_URI", "MONGODB_URI", "MONGO_DB", "MONGO_COLLECTION", "ALLOWED_ORIGINS",
		"FRONTEND_URL", "FRONTEND_URL_2", "ENV", "PORT", "REDIS_URI", "POSTGRES_URI",
		"CLOUDINARY_CLOUD_NAME", "CLOUDINARY_API_KEY", "CLOUDINARY_API_SECRET",
	} {
		t.Setenv(k, "")
	}
}

func TestLoad_MissingMongoURI(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	require.ErrorIs(t, err, ErrStoreMisconfigured)
	assert.Nil(t, cfg)
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)
	t.Setenv("MONGO_URI", "mongodb://localhost:27017")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "mongodb://localhost:27017", cfg.MongoURI)
	assert.Equal(t, "diaryDB", cfg.MongoDatabase)
	assert.Equal(t, "entries", cfg.EntriesCollection)
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, []string{"http://localhost:3000"}, cfg.AllowedOrigins)
	assert.False(t, cfg.IsProduction())
	assert.False(t, cfg.CloudinaryEnabled())
}

func TestLoad_FallbackURIAndOrigins(t *testing.T) {
	clearEnv(t)
	t.Setenv("MONGODB_URI", "mongodb://db:27017")
	t.Setenv("ALLOWED_ORIGINS", " https://diary.example.com , ,http://localhost:5173")
	t.Setenv("ENV", " Production ")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "mongodb://db:27017", cfg.MongoURI)
	assert.Equal(t, []string{"https://diary.example.com", "http://localhost:5173"}, cfg.AllowedOrigins)
	assert.True(t, cfg.IsProduction())
}

func TestCloudinaryEnabled(t *testing.T) {
	cfg := &Config{CloudinaryName: "n", CloudinaryAPIKey: "k"}
	assert.False(t, cfg.CloudinaryEnabled())

	cfg.CloudinaryAPISecret = "s"
	assert.True(t, cfg.CloudinaryEnabled())
}
