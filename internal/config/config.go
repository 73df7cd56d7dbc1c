package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

// APIServerConfig 保存 API 服务器特有的配置。
type APIServerConfig struct {
	Host            string        `mapstructure:"HOST"`
	Port            string        `mapstructure:"PORT"`
	ReadTimeout     time.Duration `mapstructure:"READ_TIMEOUT"`
	WriteTimeout    time.Duration `mapstructure:"WRITE_TIMEOUT"`
	ShutdownTimeout time.Duration `mapstructure:"SHUTDOWN_TIMEOUT"`
	CORS            CORSConfig    `mapstructure:"CORS"`
}

// CORSConfig holds configuration for CORS.
type CORSConfig struct {
	AllowedOrigins   []string `mapstructure:"ALLOWED_ORIGINS"`
	AllowedMethods   []string `mapstructure:"ALLOWED_METHODS"`
	AllowedHeaders   []string `mapstructure:"ALLOWED_HEADERS"`
	ExposedHeaders   []string `mapstructure:"EXPOSED_HEADERS"`
	AllowCredentials bool     `mapstructure:"ALLOW_CREDENTIALS"`
	MaxAge           int      `mapstructure:"MAX_AGE"`
}

// GraphConfig configures the social graph store.
// TYPE is "neo4j" or "memory"; the memory store is for local runs and tests.
type GraphConfig struct {
	Type               string        `mapstructure:"TYPE"`
	URI                string        `mapstructure:"URI"`
	Username           string        `mapstructure:"USERNAME"`
	Password           string        `mapstructure:"PASSWORD"`
	Database           string        `mapstructure:"DATABASE"`
	MaxPoolSize        int           `mapstructure:"MAX_POOL_SIZE"`
	AcquisitionTimeout time.Duration `mapstructure:"ACQUISITION_TIMEOUT"`
	EnsureSchema       bool          `mapstructure:"ENSURE_SCHEMA"`
}

// RedisConfig holds configuration for Redis.
type RedisConfig struct {
	Enabled       bool          `mapstructure:"ENABLED"`
	Addr          string        `mapstructure:"ADDR"`
	Password      string        `mapstructure:"PASSWORD"`
	DB            int           `mapstructure:"DB"`
	SuggestionTTL time.Duration `mapstructure:"SUGGESTION_TTL"`
}

// SuggestionsConfig bounds the size of suggestion lists.
type SuggestionsConfig struct {
	DefaultLimit int `mapstructure:"DEFAULT_LIMIT"`
	MaxLimit     int `mapstructure:"MAX_LIMIT"`
}

// Config holds all configuration for the application.
// The values are read by viper from a config file or environment variables.
type Config struct {
	AppName     string            `mapstructure:"APP_NAME"`
	AppVersion  string            `mapstructure:"APP_VERSION"`
	LogLevel    string            `mapstructure:"LOG_LEVEL"`
	APIServer   APIServerConfig   `mapstructure:"API_SERVER"`
	Graph       GraphConfig       `mapstructure:"GRAPH"`
	Database    DatabaseConfig    `mapstructure:"DATABASE"`
	Kafka       KafkaConfig       `mapstructure:"KAFKA"`
	Redis       RedisConfig       `mapstructure:"REDIS"`
	Auth        AuthConfig        `mapstructure:"AUTH"`
	Suggestions SuggestionsConfig `mapstructure:"SUGGESTIONS"`
}

// KafkaConfig holds configuration for Kafka.
// Domain events are only published when ENABLED is true.
type KafkaConfig struct {
	Enabled       bool     `mapstructure:"ENABLED"`
	Brokers       []string `mapstructure:"BROKERS"`
	ClientID      string   `mapstructure:"CLIENT_ID"`
	Protocol      string   `mapstructure:"PROTOCOL"`
	EventsTopic   string   `mapstructure:"EVENTS_TOPIC"` // 社交图谱领域事件
	UsersTopic    string   `mapstructure:"USERS_TOPIC"`  // 身份服务发布的用户注册/资料变更事件
	ConsumerGroup string   `mapstructure:"CONSUMER_GROUP"`
}

// DatabaseConfig holds configuration for the relational database that stores group posts.
type DatabaseConfig struct {
	Type     string `mapstructure:"TYPE"`
	Host     string `mapstructure:"HOST"`
	Port     int    `mapstructure:"PORT"`
	User     string `mapstructure:"USER"`
	Password string `mapstructure:"PASSWORD"`
	DBName   string `mapstructure:"DB_NAME"`
	SSLMode  string `mapstructure:"SSL_MODE"`
	Path     string `mapstructure:"PATH"` // sqlite only
}

// AuthConfig holds configuration for authentication (e.g., JWT).
type AuthConfig struct {
	JWTSecretKey string        `mapstructure:"JWT_SECRET_KEY"`
	JWTExpiry    time.Duration `mapstructure:"JWT_EXPIRY"`
}

// LoadConfig reads configuration from file or environment variables.
func LoadConfig(path string) (config Config, err error) {
	v := viper.New()

	v.SetDefault("APP_NAME", "NeoSocial")
	v.SetDefault("APP_VERSION", "0.1.0")
	v.SetDefault("LOG_LEVEL", "info")

	v.SetDefault("API_SERVER.HOST", "0.0.0.0")
	v.SetDefault("API_SERVER.PORT", "8081")
	v.SetDefault("API_SERVER.READ_TIMEOUT", 15*time.Second)
	v.SetDefault("API_SERVER.WRITE_TIMEOUT", 15*time.Second)
	v.SetDefault("API_SERVER.SHUTDOWN_TIMEOUT", 5*time.Second)
	v.SetDefault("API_SERVER.CORS.ALLOWED_ORIGINS", []string{"http://localhost:5173"})
	v.SetDefault("API_SERVER.CORS.ALLOWED_METHODS", []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"})
	v.SetDefault("API_SERVER.CORS.ALLOWED_HEADERS", []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"})
	v.SetDefault("API_SERVER.CORS.EXPOSED_HEADERS", []string{"Content-Length"})
	v.SetDefault("API_SERVER.CORS.ALLOW_CREDENTIALS", true)
	v.SetDefault("API_SERVER.CORS.MAX_AGE", 300)

	// Graph Defaults
	v.SetDefault("GRAPH.TYPE", "neo4j")
	v.SetDefault("GRAPH.URI", "neo4j://localhost:7687")
	v.SetDefault("GRAPH.USERNAME", "neo4j")
	v.SetDefault("GRAPH.PASSWORD", "password")
	v.SetDefault("GRAPH.DATABASE", "neo4j")
	v.SetDefault("GRAPH.MAX_POOL_SIZE", 50)
	v.SetDefault("GRAPH.ACQUISITION_TIMEOUT", 30*time.Second)
	v.SetDefault("GRAPH.ENSURE_SCHEMA", true)

	// Database Defaults (posts)
	v.SetDefault("DATABASE.TYPE", "postgres")
	v.SetDefault("DATABASE.HOST", "localhost")
	v.SetDefault("DATABASE.PORT", 5432)
	v.SetDefault("DATABASE.USER", "postgres")
	v.SetDefault("DATABASE.PASSWORD", "password")
	v.SetDefault("DATABASE.DB_NAME", "neosocial")
	v.SetDefault("DATABASE.SSL_MODE", "disable")
	v.SetDefault("DATABASE.PATH", "neosocial.db")

	v.SetDefault("KAFKA.ENABLED", false)
	v.SetDefault("KAFKA.BROKERS", []string{"localhost:9092"})
	v.SetDefault("KAFKA.CLIENT_ID", "neosocial-api")
	v.SetDefault("KAFKA.PROTOCOL", "plaintext")
	v.SetDefault("KAFKA.EVENTS_TOPIC", "social-graph-events")
	v.SetDefault("KAFKA.USERS_TOPIC", "user-events")
	v.SetDefault("KAFKA.CONSUMER_GROUP", "neosocial-graph")

	v.SetDefault("REDIS.ENABLED", false)
	v.SetDefault("REDIS.ADDR", "localhost:6379")
	v.SetDefault("REDIS.PASSWORD", "")
	v.SetDefault("REDIS.DB", 0)
	v.SetDefault("REDIS.SUGGESTION_TTL", 5*time.Minute)

	v.SetDefault("AUTH.JWT_SECRET_KEY", "a_very_secret_key_that_should_be_changed")
	v.SetDefault("AUTH.JWT_EXPIRY", 24*time.Hour)

	v.SetDefault("SUGGESTIONS.DEFAULT_LIMIT", 10)
	v.SetDefault("SUGGESTIONS.MAX_LIMIT", 50)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.AddConfigPath("./config")
		v.AddConfigPath(".")
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}

	// GRAPH_URI overrides Graph.URI, and so on.
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err = v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return
		}
		// 没有配置文件时使用默认值
		err = nil
	}

	err = v.Unmarshal(&config)
	return
}
