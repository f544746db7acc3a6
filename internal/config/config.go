package config

import (
	"os"
	"strconv"
	"strings"
)

type Config struct {
	ListenAddr string

	DBDSN string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	KafkaBrokers []string
	KafkaTopic   string

	SMTPHost     string
	SMTPPort     int
	SMTPUsername string
	SMTPPassword string
	SMTPFrom     string

	AccessSecret  string
	RefreshSecret string

	BlobDir string
}

func Load() Config {
	cfg := Config{
		ListenAddr:    getenv("APP_ADDR", ":8080"),
		DBDSN:         getenv("DB_DSN", "user:password@tcp(127.0.0.1:3306)/talkflow?charset=utf8mb4&parseTime=True"),
		RedisAddr:     getenv("REDIS_ADDR", "127.0.0.1:6379"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		KafkaTopic:    getenv("KAFKA_TOPIC", "talkflow.social"),
		SMTPHost:      os.Getenv("SMTP_HOST"),
		SMTPUsername:  os.Getenv("SMTP_USERNAME"),
		SMTPPassword:  os.Getenv("SMTP_PASSWORD"),
		SMTPFrom:      getenv("SMTP_FROM", "NoReply <no-reply@example.com>"),
		AccessSecret:  os.Getenv("JWT_ACCESS_SECRET"),
		RefreshSecret: os.Getenv("JWT_REFRESH_SECRET"),
		BlobDir:       getenv("BLOB_DIR", "./blobs"),
	}

	if v := os.Getenv("REDIS_DB"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.RedisDB = n
		}
	}

	cfg.SMTPPort = 587
	if v := os.Getenv("SMTP_PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			cfg.SMTPPort = p
		}
	}

	// empty means no broker: the outbox falls back to the log sender
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		cfg.KafkaBrokers = strings.Split(v, ",")
	}

	return cfg
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
