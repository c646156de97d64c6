package config

import (
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds application configuration
type Config struct {
	Server    ServerConfig
	Postgres  PostgresConfig
	Redis     RedisConfig
	Kafka     KafkaConfig
	Search    SearchConfig
	Mongo     MongoConfig
	JWT       JWTConfig
	Jobs      JobsConfig
	Breaker   BreakerConfig
	RateLimit RateLimitConfig
	Admin     AdminConfig
}

type ServerConfig struct {
	Port         string
	Host         string
	Environment  string
	LogLevel     string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

type PostgresConfig struct {
	DSN string
}

type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

type KafkaConfig struct {
	Brokers       []string
	ConsumerGroup string
	TopicIndex    string
	TopicDelete   string
	Partitions    int32
}

type SearchConfig struct {
	// Engine selects the search backend at startup. Only "bleve" is built in.
	Engine    string
	IndexPath string
	CacheTTL  time.Duration
}

type MongoConfig struct {
	// URI enables the Mongo analytics sink when non-empty.
	URI        string
	Database   string
	Collection string
	Timeout    time.Duration
}

type JWTConfig struct {
	Secret         string
	AccessTokenTTL time.Duration
}

type JobsConfig struct {
	PoolSize    int
	MaxAttempts int
	BaseBackoff time.Duration
}

type BreakerConfig struct {
	CallTimeout     time.Duration
	SleepWindow     time.Duration
	RollingWindow   time.Duration
	VolumeThreshold int64
	ErrorThreshold  float64
}

type RateLimitConfig struct {
	Enabled bool
	// Fallback bucket parameters for the in-memory limiter used when
	// Redis is not configured.
	RPS   float64
	Burst int
}

type AdminConfig struct {
	// Token guards tenant administration endpoints.
	Token string
}

// LoadConfig loads configuration from environment variables and .env file
func LoadConfig() (*Config, error) {
	_ = godotenv.Load()

	viper.AutomaticEnv()

	viper.SetDefault("SERVER_PORT", "5001")
	viper.SetDefault("SERVER_HOST", "0.0.0.0")
	viper.SetDefault("SERVER_ENVIRONMENT", "development")
	viper.SetDefault("LOG_LEVEL", "info")
	viper.SetDefault("KAFKA_CONSUMER_GROUP", "docgate-indexer")
	viper.SetDefault("KAFKA_TOPIC_INDEX", "document.index")
	viper.SetDefault("KAFKA_TOPIC_DELETE", "document.delete")
	viper.SetDefault("KAFKA_PARTITIONS", 6)
	viper.SetDefault("SEARCH_ENGINE", "bleve")
	viper.SetDefault("SEARCH_INDEX_PATH", "data/search.bleve")
	viper.SetDefault("SEARCH_CACHE_TTL_SECONDS", 600)
	viper.SetDefault("MONGODB_DATABASE", "docgate")
	viper.SetDefault("MONGODB_COLLECTION", "search_analytics")
	viper.SetDefault("MONGODB_TIMEOUT", 10)
	viper.SetDefault("JWT_ACCESS_TOKEN_TTL", 15)
	viper.SetDefault("JOBS_POOL_SIZE", 16)
	viper.SetDefault("JOBS_MAX_ATTEMPTS", 5)
	viper.SetDefault("JOBS_BASE_BACKOFF_MS", 500)
	viper.SetDefault("BREAKER_CALL_TIMEOUT_MS", 3000)
	viper.SetDefault("BREAKER_SLEEP_WINDOW_MS", 10000)
	viper.SetDefault("BREAKER_ROLLING_WINDOW_MS", 60000)
	viper.SetDefault("BREAKER_VOLUME_THRESHOLD", 10)
	viper.SetDefault("BREAKER_ERROR_THRESHOLD", 0.5)
	viper.SetDefault("RATE_LIMIT_ENABLED", true)
	viper.SetDefault("RATE_LIMIT_RPS", 5.0)
	viper.SetDefault("RATE_LIMIT_BURST", 10)

	cfg := &Config{
		Server: ServerConfig{
			Port:         viper.GetString("SERVER_PORT"),
			Host:         viper.GetString("SERVER_HOST"),
			Environment:  viper.GetString("SERVER_ENVIRONMENT"),
			LogLevel:     viper.GetString("LOG_LEVEL"),
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 30 * time.Second,
		},
		Postgres: PostgresConfig{
			DSN: viper.GetString("POSTGRES_DSN"),
		},
		Redis: RedisConfig{
			Host:     viper.GetString("REDIS_HOST"),
			Port:     viper.GetString("REDIS_PORT"),
			Password: viper.GetString("REDIS_PASSWORD"),
			DB:       0,
		},
		Kafka: KafkaConfig{
			Brokers:       viper.GetStringSlice("KAFKA_BROKERS"),
			ConsumerGroup: viper.GetString("KAFKA_CONSUMER_GROUP"),
			TopicIndex:    viper.GetString("KAFKA_TOPIC_INDEX"),
			TopicDelete:   viper.GetString("KAFKA_TOPIC_DELETE"),
			Partitions:    viper.GetInt32("KAFKA_PARTITIONS"),
		},
		Search: SearchConfig{
			Engine:    viper.GetString("SEARCH_ENGINE"),
			IndexPath: viper.GetString("SEARCH_INDEX_PATH"),
			CacheTTL:  time.Duration(viper.GetInt("SEARCH_CACHE_TTL_SECONDS")) * time.Second,
		},
		Mongo: MongoConfig{
			URI:        viper.GetString("MONGODB_URI"),
			Database:   viper.GetString("MONGODB_DATABASE"),
			Collection: viper.GetString("MONGODB_COLLECTION"),
			Timeout:    time.Duration(viper.GetInt("MONGODB_TIMEOUT")) * time.Second,
		},
		JWT: JWTConfig{
			Secret:         viper.GetString("JWT_SECRET"),
			AccessTokenTTL: time.Duration(viper.GetInt("JWT_ACCESS_TOKEN_TTL")) * time.Minute,
		},
		Jobs: JobsConfig{
			PoolSize:    viper.GetInt("JOBS_POOL_SIZE"),
			MaxAttempts: viper.GetInt("JOBS_MAX_ATTEMPTS"),
			BaseBackoff: time.Duration(viper.GetInt("JOBS_BASE_BACKOFF_MS")) * time.Millisecond,
		},
		Breaker: BreakerConfig{
			CallTimeout:     time.Duration(viper.GetInt("BREAKER_CALL_TIMEOUT_MS")) * time.Millisecond,
			SleepWindow:     time.Duration(viper.GetInt("BREAKER_SLEEP_WINDOW_MS")) * time.Millisecond,
			RollingWindow:   time.Duration(viper.GetInt("BREAKER_ROLLING_WINDOW_MS")) * time.Millisecond,
			VolumeThreshold: viper.GetInt64("BREAKER_VOLUME_THRESHOLD"),
			ErrorThreshold:  viper.GetFloat64("BREAKER_ERROR_THRESHOLD"),
		},
		RateLimit: RateLimitConfig{
			Enabled: viper.GetBool("RATE_LIMIT_ENABLED"),
			RPS:     viper.GetFloat64("RATE_LIMIT_RPS"),
			Burst:   viper.GetInt("RATE_LIMIT_BURST"),
		},
		Admin: AdminConfig{
			Token: viper.GetString("ADMIN_TOKEN"),
		},
	}

	return cfg, nil
}
