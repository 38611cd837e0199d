package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	RedisURL    string
	DatabaseURL string
	KeyPrefix   string

	ArchiveDir       string
	MonitorInterval  time.Duration
	SnapshotInterval time.Duration
	MaxAuditLogs     int

	TokenSecret string
	SessionTTL  time.Duration

	MeiliURL       string
	MeiliMasterKey string

	// MinIO - empty endpoint disables artifact uploads
	MinioEndpoint  string
	MinioAccessKey string
	MinioSecretKey string
	MinioBucket    string
	MinioUseSSL    bool

	// SMTP - empty host disables the email notification mirror
	SMTPHost     string
	SMTPPort     string
	SMTPUsername string
	SMTPPassword string
	SMTPFrom     string
	SMTPFromName string
}

func Load() Config {
	return Config{
		RedisURL:    getenv("TENDERHUB_REDIS_URL", "redis://localhost:6379/0"),
		DatabaseURL: getenv("TENDERHUB_DATABASE_URL", ""),
		KeyPrefix:   getenv("TENDERHUB_KEY_PREFIX", "tenderhub:"),

		ArchiveDir:       getenv("TENDERHUB_ARCHIVE_DIR", "./data/archive"),
		MonitorInterval:  time.Duration(getenvInt("TENDERHUB_MONITOR_INTERVAL_SECONDS", 30)) * time.Second,
		SnapshotInterval: time.Duration(getenvInt("TENDERHUB_SNAPSHOT_INTERVAL_SECONDS", 3600)) * time.Second,
		MaxAuditLogs:     getenvInt("TENDERHUB_MAX_AUDIT_LOGS", 10000),

		TokenSecret: getenv("TENDERHUB_TOKEN_SECRET", "tenderhub-dev-secret"),
		SessionTTL:  time.Duration(getenvInt("TENDERHUB_SESSION_TTL_SECONDS", 28800)) * time.Second,

		MeiliURL:       getenv("MEILI_URL", ""),
		MeiliMasterKey: getenv("MEILI_MASTER_KEY", ""),

		MinioEndpoint:  getenv("MINIO_ENDPOINT", ""),
		MinioAccessKey: getenv("MINIO_ACCESS_KEY", ""),
		MinioSecretKey: getenv("MINIO_SECRET_KEY", ""),
		MinioBucket:    getenv("MINIO_BUCKET", "tenderhub-exports"),
		MinioUseSSL:    getenvBool("MINIO_USE_SSL", false),

		SMTPHost:     getenv("SMTP_HOST", ""),
		SMTPPort:     getenv("SMTP_PORT", "587"),
		SMTPUsername: getenv("SMTP_USERNAME", ""),
		SMTPPassword: getenv("SMTP_PASSWORD", ""),
		SMTPFrom:     getenv("SMTP_FROM", ""),
		SMTPFromName: getenv("SMTP_FROM_NAME", "TenderHub"),
	}
}

func getenv(key, fallback string) string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	return value
}

func getenvInt(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getenvBool(key string, fallback bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return fallback
	}
	return parsed
}
