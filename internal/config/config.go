package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port            string
	DatabaseURL     string
	AllowOrigins    []string
	LogstashTCPAddr string
	FrontendBaseURL string

	JWTSecret   string
	JWTIssuer   string
	JWTAudience string
	SessionTTL  time.Duration
	ResetTTL    time.Duration

	GoogleAudience string

	SignupCodeTTL     time.Duration
	ChallengeSweepIvl time.Duration
	RateLimitWindow   time.Duration
	RateLimitMax      int

	SMTPHost     string
	SMTPPort     int
	SMTPUsername string
	SMTPPassword string
	SMTPFrom     string

	MinIOEndpoint     string
	MinIOAccessKey    string
	MinIOSecretKey    string
	MinIOUseSSL       bool
	MinIOBucketAvatar string
	MinIOPublicURL    string

	AvatarMaxDimension int
	AvatarMaxBytes     int64
}

func Load() Config {
	if err := godotenv.Load(); err != nil {
		log.Printf("Warning: .env file not found: %v", err)
	}

	avatarMaxBytes := int64(2 << 20)
	if v, err := strconv.ParseInt(getenv("AVATAR_MAX_BYTES", "2097152"), 10, 64); err == nil && v > 0 {
		avatarMaxBytes = v
	}

	avatarMaxDim := 1024
	if v, err := strconv.Atoi(getenv("AVATAR_MAX_DIMENSION", "1024")); err == nil && v > 0 {
		avatarMaxDim = v
	}

	rateLimitMax := 3
	if v, err := strconv.Atoi(getenv("RATE_LIMIT_MAX", "3")); err == nil && v > 0 {
		rateLimitMax = v
	}

	return Config{
		Port:            getenv("PORT", "8080"),
		DatabaseURL:     must("DATABASE_URL"),
		AllowOrigins:    splitAndTrim(getenv("ALLOW_ORIGINS", "*")),
		LogstashTCPAddr: getenv("LOGSTASH_TCP_ADDR", ""),
		FrontendBaseURL: getenv("FRONTEND_BASE_URL", ""),

		JWTSecret:   must("JWT_SECRET"),
		JWTIssuer:   getenv("JWT_ISSUER", "versachat-api"),
		JWTAudience: getenv("JWT_AUDIENCE", "versachat"),
		SessionTTL:  getduration("SESSION_TTL", 7*24*time.Hour),
		ResetTTL:    getduration("PASSWORD_RESET_TTL", time.Hour),

		GoogleAudience: getenv("GOOGLE_AUDIENCE", ""),

		SignupCodeTTL:     getduration("SIGNUP_CODE_TTL", 10*time.Minute),
		ChallengeSweepIvl: getduration("CHALLENGE_SWEEP_INTERVAL", 5*time.Minute),
		RateLimitWindow:   getduration("RATE_LIMIT_WINDOW", time.Minute),
		RateLimitMax:      rateLimitMax,

		SMTPHost:     getenv("SMTP_HOST", ""),
		SMTPPort:     getint("SMTP_PORT", 587),
		SMTPUsername: getenv("SMTP_USERNAME", ""),
		SMTPPassword: getenv("SMTP_PASSWORD", ""),
		SMTPFrom:     getenv("SMTP_FROM", ""),

		MinIOEndpoint:     getenv("MINIO_ENDPOINT", ""),
		MinIOAccessKey:    getenv("MINIO_ACCESS_KEY", ""),
		MinIOSecretKey:    getenv("MINIO_SECRET_KEY", ""),
		MinIOUseSSL:       getenv("MINIO_USE_SSL", "false") == "true",
		MinIOBucketAvatar: getenv("MINIO_BUCKET_AVATARS", "versachat-avatars"),
		MinIOPublicURL:    getenv("MINIO_PUBLIC_URL", ""),

		AvatarMaxDimension: avatarMaxDim,
		AvatarMaxBytes:     avatarMaxBytes,
	}
}

func splitAndTrim(input string) []string {
	parts := strings.Split(input, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		trimmed := strings.TrimSpace(p)
		if trimmed != "" {
			out = append(out, trimmed)
		}
	}
	if len(out) == 0 {
		return []string{"*"}
	}
	return out
}

func getenv(k, d string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return d
}

func getint(k string, d int) int {
	if v, err := strconv.Atoi(os.Getenv(k)); err == nil && v > 0 {
		return v
	}
	return d
}

func getduration(k string, d time.Duration) time.Duration {
	if v, err := time.ParseDuration(os.Getenv(k)); err == nil && v > 0 {
		return v
	}
	return d
}

func must(k string) string {
	v := os.Getenv(k)
	if v == "" {
		panic("missing env: " + k)
	}
	return v
}
