package config

import (
	"log/slog"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config carries every tunable the service exposes. Values come from the
// environment, with .env support for local development.
type Config struct {
	DatabaseURL  string
	AwsAccessKey string
	AwsSecretKey string
	AwsRegion    string
	BucketName   string
	AIAPIKey     string
	EmbedModel   string
	GenModel     string
	JWTSecret    string
	Port         string

	// Ingestion and retrieval tunables.
	MaxFileSize        int64 // bytes; uploads above this are rejected
	AcceptedType       string
	MaxAttachedFiles   int // max simultaneous attachments per conversation
	TopK               int // retrieved chunks per document
	ChunkTargetTokens  int
	ChunkOverlapTokens int
	EmbedBatchSize     int
}

// LoadConfig loads the environment variables and returns the config.
func LoadConfig() *Config {
	_ = godotenv.Load()

	cfg := &Config{
		DatabaseURL:  getEnv("DATABASE_URL", ""),
		AwsAccessKey: getEnv("AWS_ACCESS_KEY", ""),
		AwsSecretKey: getEnv("AWS_SECRET_KEY", ""),
		AwsRegion:    getEnv("AWS_REGION", "us-east-2"),
		BucketName:   getEnv("BUCKET_NAME", "chatdocs-documents"),
		AIAPIKey:     getEnv("GEMINI_API_KEY", ""),
		EmbedModel:   getEnv("EMBED_MODEL", "text-embedding-004"),
		GenModel:     getEnv("GEN_MODEL", "gemini-1.5-flash"),
		JWTSecret:    getEnv("JWT_SECRET", ""),
		Port:         getEnv("PORT", "8080"),

		MaxFileSize:        int64(getEnvInt("MAX_FILE_SIZE", 10<<20)),
		AcceptedType:       getEnv("ACCEPTED_CONTENT_TYPE", "application/pdf"),
		MaxAttachedFiles:   getEnvInt("MAX_ATTACHED_FILES", 10),
		TopK:               getEnvInt("TOP_K", 4),
		ChunkTargetTokens:  getEnvInt("CHUNK_TARGET_TOKENS", 500),
		ChunkOverlapTokens: getEnvInt("CHUNK_OVERLAP_TOKENS", 50),
		EmbedBatchSize:     getEnvInt("EMBED_BATCH_SIZE", 16),
	}

	if cfg.DatabaseURL == "" {
		slog.Error("DATABASE_URL not set")
		os.Exit(1)
	}

	return cfg
}

// Helper to read environment variables with a default fallback.
func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvInt(key string, def int) int {
	v := getEnv(key, "")
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		slog.Warn("env var not an int, using default", "key", key, "value", v, "default", def)
		return def
	}
	return n
}
