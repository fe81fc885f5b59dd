package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	// Server
	ServerPort     string
	ServerHost     string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	MaxUploadBytes int64

	// Database
	PostgresHost     string
	PostgresPort     string
	PostgresUser     string
	PostgresPassword string
	PostgresDB       string
	PostgresSSLMode  string

	// Redis
	RedisHost     string
	RedisPort     string
	RedisPassword string
	RedisDB       int

	// Kafka
	KafkaBrokers    []string
	KafkaBatchTopic string

	// Mailbox defaults, used to seed the delivery configuration row
	IMAPServer    string
	IMAPPort      int
	SMTPServer    string
	SMTPPort      int
	MailUsername  string
	MailPassword  string
	MailFolder    string
	SubjectFilter string
	PollInterval  time.Duration

	// Monitoring loop
	ErrorBackoff    time.Duration
	StopWaitTimeout time.Duration

	// Processing log retention
	LogRetentionDays  int
	RetentionInterval time.Duration

	// Header alias rules (optional YAML file)
	HeaderAliasFile string

	// Analytics cache
	SummaryCacheTTL time.Duration

	// LLM
	LLMAPIKey    string
	LLMBaseURL   string
	LLMModelName string
}

func Load() *Config {
	return &Config{
		ServerPort:     getEnv("SERVER_PORT", "8080"),
		ServerHost:     getEnv("SERVER_HOST", "0.0.0.0"),
		ReadTimeout:    getDuration("READ_TIMEOUT", 30*time.Second),
		WriteTimeout:   getDuration("WRITE_TIMEOUT", 60*time.Second),
		MaxUploadBytes: int64(getIntEnv("MAX_UPLOAD_BYTES", 16*1024*1024)),

		PostgresHost:     getEnv("POSTGRES_HOST", "localhost"),
		PostgresPort:     getEnv("POSTGRES_PORT", "5432"),
		PostgresUser:     getEnv("POSTGRES_USER", "cotmap"),
		PostgresPassword: getEnv("POSTGRES_PASSWORD", "cotmap123"),
		PostgresDB:       getEnv("POSTGRES_DB", "cotmap"),
		PostgresSSLMode:  getEnv("POSTGRES_SSLMODE", "disable"),

		RedisHost:     getEnv("REDIS_HOST", "localhost"),
		RedisPort:     getEnv("REDIS_PORT", "6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getIntEnv("REDIS_DB", 0),

		KafkaBrokers:    getStringSliceEnv("KAFKA_BROKERS", []string{"localhost:9092"}),
		KafkaBatchTopic: getEnv("KAFKA_BATCH_TOPIC", ""),

		IMAPServer:    getEnv("IMAP_SERVER", "imap.gmail.com"),
		IMAPPort:      getIntEnv("IMAP_PORT", 993),
		SMTPServer:    getEnv("SMTP_SERVER", "smtp.gmail.com"),
		SMTPPort:      getIntEnv("SMTP_PORT", 587),
		MailUsername:  getEnv("MAIL_USERNAME", ""),
		MailPassword:  getEnv("MAIL_PASSWORD", ""),
		MailFolder:    getEnv("MAIL_FOLDER", "INBOX"),
		SubjectFilter: getEnv("MAIL_SUBJECT_FILTER", "CoT"),
		PollInterval:  getDuration("MAIL_POLL_INTERVAL", 300*time.Second),

		ErrorBackoff:    getDuration("MONITOR_ERROR_BACKOFF", 60*time.Second),
		StopWaitTimeout: getDuration("MONITOR_STOP_TIMEOUT", 10*time.Second),

		LogRetentionDays:  getIntEnv("LOG_RETENTION_DAYS", 30),
		RetentionInterval: getDuration("LOG_RETENTION_INTERVAL", 24*time.Hour),

		HeaderAliasFile: getEnv("HEADER_ALIAS_FILE", ""),

		SummaryCacheTTL: getDuration("SUMMARY_CACHE_TTL", 15*time.Minute),

		LLMAPIKey:    getEnv("LLM_API_KEY", ""),
		LLMBaseURL:   getEnv("LLM_BASE_URL", ""),
		LLMModelName: getEnv("LLM_MODEL_NAME", "llama3.1:8b"),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getStringSliceEnv(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		parts := strings.Split(value, ",")
		out := make([]string, 0, len(parts))
		for _, p := range parts {
			if trimmed := strings.TrimSpace(p); trimmed != "" {
				out = append(out, trimmed)
			}
		}
		if len(out) > 0 {
			return out
		}
	}
	return defaultValue
}

func getDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
