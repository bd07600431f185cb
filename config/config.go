package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	AppEnv     string
	ServerPort string
	Debug      bool

	DBDriver         string
	PostgresHost     string
	PostgresPort     string
	PostgresUser     string
	PostgresPassword string
	PostgresDB       string
	SQLitePath       string

	RedisHost     string
	RedisPort     string
	RedisPassword string
	RedisDB       int

	RabbitMQUser      string
	RabbitMQPassword  string
	RabbitMQHost      string
	RabbitMQPort      string
	NotificationQueue string
	ChatEventsQueue   string
	RabbitMQEnabled   bool

	KafkaBrokers   []string
	KafkaPushTopic string

	JWTAccessKey string

	RBACModelPath  string
	PrimaryAdminID string
	DefaultAvatar  string

	SocketPingInterval time.Duration
	SocketPingTimeout  time.Duration
	EventTimeout       time.Duration
	PresenceTimeout    time.Duration
	SocketRateLimit    float64
	SocketRateBurst    int

	OtelEnabled     bool
	OtelEndpoint    string
	OtelInsecure    bool
	OtelSampleRatio float64
}

func Load() (*Config, error) {
	// .env is optional; real environment wins.
	_ = godotenv.Load(".env")

	cfg := &Config{
		AppEnv:     getEnv("APP_ENV", "development"),
		ServerPort: getEnv("SERVER_PORT", "3000"),
		Debug:      getBool("DEBUG", false),

		DBDriver:         strings.ToLower(getEnv("DB_DRIVER", "postgres")),
		PostgresHost:     getEnv("POSTGRES_HOST", "localhost"),
		PostgresPort:     getEnv("POSTGRES_PORT", "5432"),
		PostgresUser:     getEnv("POSTGRES_USER", "postgres"),
		PostgresPassword: os.Getenv("POSTGRES_PASSWORD"),
		PostgresDB:       getEnv("POSTGRES_DB", "chat"),
		SQLitePath:       getEnv("SQLITE_PATH", "chat.db"),

		RedisHost:     getEnv("REDIS_HOST", "localhost"),
		RedisPort:     getEnv("REDIS_PORT", "6379"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		RedisDB:       getInt("REDIS_DB", 1),

		RabbitMQUser:      getEnv("RABBITMQ_USER", "guest"),
		RabbitMQPassword:  getEnv("RABBITMQ_PASSWORD", "guest"),
		RabbitMQHost:      getEnv("RABBITMQ_HOST", "localhost"),
		RabbitMQPort:      getEnv("RABBITMQ_PORT", "5672"),
		NotificationQueue: getEnv("RABBITMQ_NOTIFICATION_QUEUE", "notifications"),
		ChatEventsQueue:   getEnv("RABBITMQ_CHAT_EVENTS_QUEUE", "chat-events"),
		RabbitMQEnabled:   getBool("RABBITMQ_ENABLED", true),

		KafkaBrokers:   splitList(os.Getenv("KAFKA_BROKERS")),
		KafkaPushTopic: getEnv("KAFKA_PUSH_TOPIC", "push-notifications"),

		JWTAccessKey: os.Getenv("JWT_ACCESS_KEY"),

		RBACModelPath:  getEnv("RBAC_MODEL_PATH", "config/restful_rbac_model.conf"),
		PrimaryAdminID: os.Getenv("PRIMARY_ADMIN_ID"),
		DefaultAvatar:  os.Getenv("DEFAULT_AVATAR_URL"),

		SocketPingInterval: getDuration("SOCKET_PING_INTERVAL", 25*time.Second),
		SocketPingTimeout:  getDuration("SOCKET_PING_TIMEOUT", 20*time.Second),
		EventTimeout:       getDuration("EVENT_TIMEOUT", 10*time.Second),
		PresenceTimeout:    getDuration("PRESENCE_TIMEOUT", 2*time.Second),
		SocketRateLimit:    getFloat("SOCKET_RATE_LIMIT", 10),
		SocketRateBurst:    getInt("SOCKET_RATE_BURST", 20),

		OtelEnabled:     getBool("OTEL_ENABLED", false),
		OtelEndpoint:    os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
		OtelInsecure:    getBool("OTEL_EXPORTER_OTLP_INSECURE", false),
		OtelSampleRatio: getFloat("OTEL_SAMPLER_RATIO", 0.1),
	}

	if cfg.JWTAccessKey == "" {
		return nil, fmt.Errorf("JWT_ACCESS_KEY is required")
	}
	if cfg.DBDriver != "postgres" && cfg.DBDriver != "sqlite" {
		return nil, fmt.Errorf("unsupported DB_DRIVER %q", cfg.DBDriver)
	}
	return cfg, nil
}

func (c *Config) PostgresDSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		c.PostgresHost,
		c.PostgresPort,
		c.PostgresUser,
		c.PostgresPassword,
		c.PostgresDB,
	)
}

func (c *Config) RabbitMQURL() string {
	return fmt.Sprintf("amqp://%s:%s@%s:%s/",
		c.RabbitMQUser,
		c.RabbitMQPassword,
		c.RabbitMQHost,
		c.RabbitMQPort,
	)
}

func (c *Config) IsProduction() bool {
	return c.AppEnv == "production" || c.AppEnv == "prod"
}

func getEnv(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func getBool(key string, def bool) bool {
	v := strings.TrimSpace(strings.ToLower(os.Getenv(key)))
	if v == "" {
		return def
	}
	return v == "1" || v == "true" || v == "yes" || v == "on"
}

func getInt(key string, def int) int {
	v, err := strconv.Atoi(strings.TrimSpace(os.Getenv(key)))
	if err != nil {
		return def
	}
	return v
}

func getFloat(key string, def float64) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(os.Getenv(key)), 64)
	if err != nil {
		return def
	}
	return v
}

func getDuration(key string, def time.Duration) time.Duration {
	v, err := time.ParseDuration(strings.TrimSpace(os.Getenv(key)))
	if err != nil || v <= 0 {
		return def
	}
	return v
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
