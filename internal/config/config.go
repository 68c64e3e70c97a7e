package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	// Persistencia
	SQLitePath  string
	PostgresDSN string // si está definido, Postgres sustituye a SQLite
	MongoURI    string // si está definido, las tareas se guardan en MongoDB
	MongoDBName string

	// Cache y analítica
	RedisAddr      string
	CacheTTL       time.Duration
	ClickHouseAddr string // opcional, habilita el histórico analítico
	ClickHouseDB   string

	// Bus de eventos
	KafkaBrokers  []string
	InboundTopic  string // vacío = consumidor deshabilitado
	OutboundTopic string
	ConsumerGroup string

	// Consumo
	BatchSize      int
	ReceiveWait    time.Duration
	ReceiveBackoff time.Duration

	// Circuit breaker de publicación
	BreakerThreshold    int
	BreakerResetTimeout time.Duration

	HTTPPort string
}

func LoadConfig() *Config {
	kafkaBrokers := strings.Split(getEnv("KAFKA_BROKERS", "localhost:9092"), ",")

	return &Config{
		SQLitePath:  getEnv("SQLITE_PATH", "./tallerlab.db"),
		PostgresDSN: os.Getenv("POSTGRES_DSN"),
		MongoURI:    os.Getenv("MONGO_URI"),
		MongoDBName: getEnv("MONGO_DB", "tallerlab"),

		RedisAddr:      getEnv("REDIS_ADDR", "localhost:6379"),
		CacheTTL:       getDuration("CACHE_TTL", 5*time.Minute),
		ClickHouseAddr: os.Getenv("CLICKHOUSE_ADDR"),
		ClickHouseDB:   getEnv("CLICKHOUSE_DB", "tallerlab"),

		KafkaBrokers:  kafkaBrokers,
		InboundTopic:  os.Getenv("INBOUND_TOPIC"),
		OutboundTopic: getEnv("OUTBOUND_TOPIC", "execution-events"),
		ConsumerGroup: getEnv("CONSUMER_GROUP", "tallerlab-execution-service"),

		BatchSize:      getInt("BATCH_SIZE", 10),
		ReceiveWait:    getDuration("RECEIVE_WAIT", 5*time.Second),
		ReceiveBackoff: getDuration("RECEIVE_BACKOFF", 2*time.Second),

		BreakerThreshold:    getInt("BREAKER_THRESHOLD", 5),
		BreakerResetTimeout: getDuration("BREAKER_RESET_TIMEOUT", 30*time.Second),

		HTTPPort: getEnv("HTTP_PORT", "8080"),
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
