package config

import (
	"log"
	"time"

	"github.com/spf13/viper"
)

type ServerConfig struct {
	Port int    `mapstructure:"port"`
	Host string `mapstructure:"host"`
}

type PostgresConfig struct {
	URL string `mapstructure:"url"`
}

type RedisConfig struct {
	URL string `mapstructure:"url"`
}

type TelemetryConfig struct {
	Enabled     bool   `mapstructure:"enabled"`
	ServiceName string `mapstructure:"service_name"`
	JaegerURL   string `mapstructure:"jaeger_url"`
}

type ServiceConfig struct {
	DefaultURL  string `mapstructure:"default_url"`
	FallbackURL string `mapstructure:"fallback_url"`
}

// HealthConfig tunes health-probe cadence and timeout.
type HealthConfig struct {
	ProbeInterval time.Duration `mapstructure:"probe_interval"`
	ProbeTimeout  time.Duration `mapstructure:"probe_timeout"`
}

// QueueConfig tunes the ingress and retry queue capacities.
type QueueConfig struct {
	IngressCapacity  int           `mapstructure:"ingress_capacity"`
	RetryCapacity    int           `mapstructure:"retry_capacity"`
	RetryAttemptsTTL time.Duration `mapstructure:"retry_attempts_ttl"`
}

// WorkerConfig tunes the dispatch worker pool.
type WorkerConfig struct {
	PoolSize int `mapstructure:"pool_size"`
}

// BufferConfig tunes the write buffer's flush behavior.
type BufferConfig struct {
	BatchSize     int           `mapstructure:"batch_size"`
	FlushInterval time.Duration `mapstructure:"flush_interval"`
}

type AppConfig struct {
	Server    *ServerConfig    `mapstructure:"server"`
	Postgres  *PostgresConfig  `mapstructure:"postgres"`
	Redis     *RedisConfig     `mapstructure:"redis"`
	Telemetry *TelemetryConfig `mapstructure:"telemetry"`
	Service   *ServiceConfig   `mapstructure:"service"`
	Health    *HealthConfig    `mapstructure:"health"`
	Queue     *QueueConfig     `mapstructure:"queue"`
	Worker    *WorkerConfig    `mapstructure:"worker"`
	Buffer    *BufferConfig    `mapstructure:"buffer"`
}

func LoadConfig() (*AppConfig, error) {
	viper.AutomaticEnv()

	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("telemetry.enabled", false)
	viper.SetDefault("telemetry.service_name", "payment-gateway")
	viper.SetDefault("telemetry.jaeger_url", "http://jaeger:14268/api/traces")
	viper.SetDefault("service.default_url", "http://payment-processor-default:8080")
	viper.SetDefault("service.fallback_url", "http://payment-processor-fallback:8080")
	viper.SetDefault("redis.url", "redis://cache:6379")

	viper.SetDefault("health.probe_interval", 5*time.Second)
	viper.SetDefault("health.probe_timeout", 2*time.Second)

	viper.SetDefault("queue.ingress_capacity", 10_000)
	viper.SetDefault("queue.retry_capacity", 1_000)
	viper.SetDefault("queue.retry_attempts_ttl", 10*time.Minute)

	viper.SetDefault("worker.pool_size", 10)

	viper.SetDefault("buffer.batch_size", 50)
	viper.SetDefault("buffer.flush_interval", 1500*time.Millisecond)

	_ = viper.BindEnv("server.port", "SERVER_PORT")
	_ = viper.BindEnv("server.host", "SERVER_HOST")
	_ = viper.BindEnv("postgres.url", "DATABASE_URL")
	_ = viper.BindEnv("redis.url", "REDIS_URL")
	_ = viper.BindEnv("telemetry.enabled", "TELEMETRY_ENABLED")
	_ = viper.BindEnv("telemetry.service_name", "TELEMETRY_SERVICE_NAME")
	_ = viper.BindEnv("telemetry.jaeger_url", "JAEGER_URL")
	_ = viper.BindEnv("service.default_url", "DEFAULT_PAYMENT_PROCESSOR")
	_ = viper.BindEnv("service.fallback_url", "FALLBACK_PAYMENT_PROCESSOR")
	_ = viper.BindEnv("health.probe_interval", "HEALTH_PROBE_INTERVAL")
	_ = viper.BindEnv("health.probe_timeout", "HEALTH_PROBE_TIMEOUT")
	_ = viper.BindEnv("queue.ingress_capacity", "QUEUE_INGRESS_CAPACITY")
	_ = viper.BindEnv("queue.retry_capacity", "QUEUE_RETRY_CAPACITY")
	_ = viper.BindEnv("queue.retry_attempts_ttl", "QUEUE_RETRY_ATTEMPTS_TTL")
	_ = viper.BindEnv("worker.pool_size", "WORKER_POOL_SIZE")
	_ = viper.BindEnv("buffer.batch_size", "BUFFER_BATCH_SIZE")
	_ = viper.BindEnv("buffer.flush_interval", "BUFFER_FLUSH_INTERVAL")

	var cfg AppConfig
	if err := viper.Unmarshal(&cfg); err != nil {
		log.Fatalf("unable to decode config into struct, %v", err)
	}

	return &cfg, nil
}
