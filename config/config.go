package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	ServerPort int
	BaseURL    string
	Database   DatabaseConfig
	JWT        JWTConfig
	Redis      RedisConfig
	SMTP       SMTPConfig
	Mail       MailConfig
	RabbitMQ   RabbitMQConfig
	PubSub     PubSubConfig
	Avatar     AvatarConfig
	Minio      MinioConfig
	GCS        GCSConfig
}

type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	UseSSL   bool
}

type JWTConfig struct {
	Secret     string
	AccessTTL  time.Duration
	RefreshTTL time.Duration
	EmailTTL   time.Duration
}

// RedisConfig configures the rate-limiter counter store.
type RedisConfig struct {
	URL string
}

type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// MailConfig selects the verification-mail delivery path. Broker is one
// of "rabbitmq", "pubsub", or empty for synchronous in-process delivery.
type MailConfig struct {
	Broker string
	Queue  string
}

type RabbitMQConfig struct {
	URL             string
	QueueDurable    bool
	QueueAutoDelete bool
	PrefetchCount   int
}

type PubSubConfig struct {
	ProjectID          string
	CredentialsFile    string
	SubscriptionSuffix string
}

// AvatarConfig selects the object-storage backend for avatar uploads.
// Backend is one of "minio", "gcs", or empty to disable uploads.
type AvatarConfig struct {
	Backend string
}

type MinioConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

type GCSConfig struct {
	Bucket          string
	ProjectID       string
	CredentialsFile string
}

func LoadConfig() Config {
	if os.Getenv("ENV") == "dev" {
		godotenv.Load()
	}

	dbConfig := DatabaseConfig{
		Host:     getEnv("DB_HOST", "localhost"),
		Port:     getEnvInt("DB_PORT", 5432),
		User:     getEnv("DB_USER", "contactsbook"),
		Password: getEnv("DB_PASSWORD", "password"),
		DBName:   getEnv("DB_NAME", "contactsbook_db"),
		UseSSL:   getEnvBool("DB_USE_SSL", false),
	}

	jwtConfig := JWTConfig{
		Secret:     getEnv("JWT_SECRET", ""),
		AccessTTL:  getEnvDuration("JWT_ACCESS_TTL", 15*time.Minute),
		RefreshTTL: getEnvDuration("JWT_REFRESH_TTL", 7*24*time.Hour),
		EmailTTL:   getEnvDuration("JWT_EMAIL_TTL", 24*time.Hour),
	}

	smtpConfig := SMTPConfig{
		Host:     getEnv("SMTP_HOST", "localhost"),
		Port:     getEnvInt("SMTP_PORT", 587),
		Username: getEnv("SMTP_USERNAME", ""),
		Password: getEnv("SMTP_PASSWORD", ""),
		From:     getEnv("SMTP_FROM", "noreply@contactsbook.local"),
	}

	mailConfig := MailConfig{
		Broker: getEnv("MAIL_BROKER", ""),
		Queue:  getEnv("MAIL_QUEUE", "mail.verification"),
	}

	rabbitConfig := RabbitMQConfig{
		URL:             getEnv("RABBITMQ_URL", ""),
		QueueDurable:    getEnvBool("RABBITMQ_QUEUE_DURABLE", true),
		QueueAutoDelete: getEnvBool("RABBITMQ_QUEUE_AUTODELETE", false),
		PrefetchCount:   getEnvInt("RABBITMQ_PREFETCH", 1),
	}

	pubsubConfig := PubSubConfig{
		ProjectID:          getEnv("PUBSUB_PROJECT_ID", ""),
		CredentialsFile:    getEnv("PUBSUB_CREDENTIALS_FILE", ""),
		SubscriptionSuffix: getEnv("PUBSUB_SUBSCRIPTION_SUFFIX", "-sub"),
	}

	minioConfig := MinioConfig{
		Endpoint:  getEnv("MINIO_ENDPOINT", ""),
		AccessKey: getEnv("MINIO_ACCESS_KEY", ""),
		SecretKey: getEnv("MINIO_SECRET_KEY", ""),
		Bucket:    getEnv("MINIO_BUCKET", "avatars"),
		UseSSL:    getEnvBool("MINIO_USE_SSL", false),
	}

	gcsConfig := GCSConfig{
		Bucket:          getEnv("GCS_BUCKET", ""),
		ProjectID:       getEnv("GCS_PROJECT_ID", ""),
		CredentialsFile: getEnv("GCS_CREDENTIALS_FILE", ""),
	}

	return Config{
		ServerPort: getEnvInt("SERVER_PORT", 8080),
		BaseURL:    getEnv("BASE_URL", "http://localhost:8080"),
		Database:   dbConfig,
		JWT:        jwtConfig,
		Redis:      RedisConfig{URL: getEnv("REDIS_URL", "")},
		SMTP:       smtpConfig,
		Mail:       mailConfig,
		RabbitMQ:   rabbitConfig,
		PubSub:     pubsubConfig,
		Avatar:     AvatarConfig{Backend: getEnv("AVATAR_STORAGE", "")},
		Minio:      minioConfig,
		GCS:        gcsConfig,
	}
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if valueStr, exists := os.LookupEnv(key); exists {
		var value int
		fmt.Sscanf(valueStr, "%d", &value)
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if valueStr, exists := os.LookupEnv(key); exists {
		return valueStr == "1" || valueStr == "true" || valueStr == "yes"
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if valueStr, exists := os.LookupEnv(key); exists {
		if value, err := time.ParseDuration(valueStr); err == nil {
			return value
		}
	}
	return defaultValue
}
