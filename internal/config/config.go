package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Env         string
	DataBackend string
	Server      ServerConfig
	Database    DatabaseConfig
	Auth        AuthConfig
	RateLimit   RateLimitConfig
	Redis       RedisConfig
	Events      EventsConfig
	Worker      WorkerConfig
}

type ServerConfig struct {
	Host         string
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

type DatabaseConfig struct {
	Host            string
	Port            int
	User            string
	Password        string
	Name            string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxIdleTime time.Duration
	ConnMaxLifetime time.Duration
	AutoMigrate     bool
}

// AuthConfig описывает проверку токенов внешнего провайдера идентификации.
type AuthConfig struct {
	JWTSecret    string
	JWTIssuer    string
	JWTAudience  string
	JobTokenHash string
}

type RateLimitConfig struct {
	Backend      string
	PerMinute    int
	Burst        int
	JobPerMinute int
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type EventsConfig struct {
	AMQPURL  string
	Exchange string
}

type WorkerConfig struct {
	Interval time.Duration
	Timeout  time.Duration
}

const (
	BackendPostgres = "postgres"
	BackendMemory   = "memory"

	RateLimitMemory = "memory"
	RateLimitRedis  = "redis"
)

// Load загружает конфигурацию приложения из окружения и .env.
func Load() (Config, error) {
	cfg := Config{}

	if err := loadEnv(); err != nil {
		return cfg, err
	}

	cfg.Env = getEnv("APP_ENV", "local")
	cfg.DataBackend = strings.ToLower(getEnv("DATA_BACKEND", BackendPostgres))

	serverPort, err := parseIntEnv("SERVER_PORT", 8080)
	if err != nil {
		return cfg, err
	}

	readTimeout, err := parseDurationEnv("SERVER_READ_TIMEOUT", 5*time.Second)
	if err != nil {
		return cfg, err
	}

	// SSE-поток держит соединение открытым, поэтому таймаут записи по умолчанию выключен.
	writeTimeout, err := parseDurationEnv("SERVER_WRITE_TIMEOUT", 0)
	if err != nil {
		return cfg, err
	}

	idleTimeout, err := parseDurationEnv("SERVER_IDLE_TIMEOUT", 60*time.Second)
	if err != nil {
		return cfg, err
	}

	cfg.Server = ServerConfig{
		Host:         getEnv("SERVER_HOST", "0.0.0.0"),
		Port:         serverPort,
		ReadTimeout:  readTimeout,
		WriteTimeout: writeTimeout,
		IdleTimeout:  idleTimeout,
	}

	dbPort, err := parseIntEnv("DB_PORT", 5432)
	if err != nil {
		return cfg, err
	}

	maxOpenConns, err := parseIntEnv("DB_MAX_OPEN_CONNS", 10)
	if err != nil {
		return cfg, err
	}

	maxIdleConns, err := parseIntEnv("DB_MAX_IDLE_CONNS", 5)
	if err != nil {
		return cfg, err
	}

	connMaxIdleTime, err := parseDurationEnv("DB_CONN_MAX_IDLE_TIME", 5*time.Minute)
	if err != nil {
		return cfg, err
	}

	connMaxLifetime, err := parseDurationEnv("DB_CONN_MAX_LIFETIME", 30*time.Minute)
	if err != nil {
		return cfg, err
	}

	autoMigrate, err := parseBoolEnv("DB_AUTO_MIGRATE", true)
	if err != nil {
		return cfg, err
	}

	cfg.Database = DatabaseConfig{
		Host:            getEnv("DB_HOST", "localhost"),
		Port:            dbPort,
		User:            getEnv("DB_USER", "finance"),
		Password:        getEnv("DB_PASSWORD", "finance"),
		Name:            getEnv("DB_NAME", "finance_tracker"),
		SSLMode:         getEnv("DB_SSLMODE", "disable"),
		MaxOpenConns:    maxOpenConns,
		MaxIdleConns:    maxIdleConns,
		ConnMaxIdleTime: connMaxIdleTime,
		ConnMaxLifetime: connMaxLifetime,
		AutoMigrate:     autoMigrate,
	}

	cfg.Auth = AuthConfig{
		JWTSecret:    getEnv("JWT_SECRET", ""),
		JWTIssuer:    getEnv("JWT_ISSUER", ""),
		JWTAudience:  getEnv("JWT_AUDIENCE", "authenticated"),
		JobTokenHash: getEnv("JOB_TOKEN_HASH", ""),
	}

	rateLimitPerMinute, err := parseIntEnv("RATE_LIMIT_PER_MINUTE", 120)
	if err != nil {
		return cfg, err
	}

	rateLimitBurst, err := parseIntEnv("RATE_LIMIT_BURST", 20)
	if err != nil {
		return cfg, err
	}

	jobRateLimitPerMinute, err := parseIntEnv("JOB_RATE_LIMIT_PER_MINUTE", 6)
	if err != nil {
		return cfg, err
	}

	cfg.RateLimit = RateLimitConfig{
		Backend:      strings.ToLower(getEnv("RATE_LIMIT_BACKEND", RateLimitMemory)),
		PerMinute:    rateLimitPerMinute,
		Burst:        rateLimitBurst,
		JobPerMinute: jobRateLimitPerMinute,
	}

	redisDB, err := parseNonNegativeIntEnv("REDIS_DB", 0)
	if err != nil {
		return cfg, err
	}

	cfg.Redis = RedisConfig{
		Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
		Password: getEnv("REDIS_PASSWORD", ""),
		DB:       redisDB,
	}

	cfg.Events = EventsConfig{
		AMQPURL:  getEnv("AMQP_URL", ""),
		Exchange: getEnv("AMQP_EXCHANGE", "finance.events"),
	}

	workerInterval, err := parseDurationEnv("WORKER_INTERVAL", time.Hour)
	if err != nil {
		return cfg, err
	}

	workerTimeout, err := parseDurationEnv("WORKER_TIMEOUT", 5*time.Minute)
	if err != nil {
		return cfg, err
	}

	cfg.Worker = WorkerConfig{
		Interval: workerInterval,
		Timeout:  workerTimeout,
	}

	if err := cfg.validate(); err != nil {
		return cfg, err
	}

	return cfg, nil
}

// DSN возвращает строку подключения к базе данных.
func (c DatabaseConfig) DSN() string {
	user := url.UserPassword(c.User, c.Password)
	dsn := url.URL{
		Scheme: "postgres",
		User:   user,
		Host:   fmt.Sprintf("%s:%d", c.Host, c.Port),
		Path:   c.Name,
	}

	query := url.Values{}
	query.Set("sslmode", c.SSLMode)
	return dsn.String() + "?" + query.Encode()
}

func (c Config) validate() error {
	if c.Server.Port <= 0 {
		return fmt.Errorf("SERVER_PORT must be greater than 0")
	}

	switch c.DataBackend {
	case BackendPostgres:
		if c.Database.Host == "" {
			return fmt.Errorf("DB_HOST is required")
		}

		if c.Database.User == "" {
			return fmt.Errorf("DB_USER is required")
		}

		if c.Database.Name == "" {
			return fmt.Errorf("DB_NAME is required")
		}

		if c.Database.MaxIdleConns > c.Database.MaxOpenConns {
			return fmt.Errorf("DB_MAX_IDLE_CONNS cannot exceed DB_MAX_OPEN_CONNS")
		}
	case BackendMemory:
	default:
		return fmt.Errorf("DATA_BACKEND must be one of %s, %s", BackendPostgres, BackendMemory)
	}

	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}

	switch c.RateLimit.Backend {
	case RateLimitMemory:
	case RateLimitRedis:
		if c.Redis.Addr == "" {
			return fmt.Errorf("REDIS_ADDR is required for redis rate limiting")
		}
	default:
		return fmt.Errorf("RATE_LIMIT_BACKEND must be one of %s, %s", RateLimitMemory, RateLimitRedis)
	}

	if c.Events.AMQPURL != "" && c.Events.Exchange == "" {
		return fmt.Errorf("AMQP_EXCHANGE is required when AMQP_URL is set")
	}

	return nil
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}

	return fallback
}

func parseIntEnv(key string, fallback int) (int, error) {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback, nil
	}

	parsed, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer: %w", key, err)
	}

	if parsed <= 0 {
		return 0, fmt.Errorf("%s must be greater than 0", key)
	}

	return parsed, nil
}

func parseDurationEnv(key string, fallback time.Duration) (time.Duration, error) {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback, nil
	}

	parsed, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("%s must be a duration: %w", key, err)
	}

	if parsed < 0 || (parsed == 0 && fallback > 0) {
		return 0, fmt.Errorf("%s must be greater than 0", key)
	}

	return parsed, nil
}

func parseNonNegativeIntEnv(key string, fallback int) (int, error) {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback, nil
	}

	parsed, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer: %w", key, err)
	}

	if parsed < 0 {
		return 0, fmt.Errorf("%s must not be negative", key)
	}

	return parsed, nil
}

func parseBoolEnv(key string, fallback bool) (bool, error) {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback, nil
	}

	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return false, fmt.Errorf("%s must be a boolean: %w", key, err)
	}

	return parsed, nil
}

func loadEnv() error {
	if envFile := os.Getenv("ENV_FILE"); envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			return fmt.Errorf("load env file %s: %w", envFile, err)
		}
		return nil
	}

	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("load .env: %w", err)
	}

	return nil
}
