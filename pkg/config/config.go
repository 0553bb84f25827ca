package config

import (
	"errors"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

type Config struct {
	Env       string
	Port      int
	APIPrefix string

	Database      DatabaseConfig
	Redis         RedisConfig
	JWT           JWTConfig
	CORS          CORSConfig
	Log           LogConfig
	GPS           GPSConfig
	Attendance    AttendanceConfig
	Collaborators CollaboratorConfig
	Cache         CacheConfig
	Notifications NotificationConfig
	Reports       ReportsConfig
}

type DatabaseConfig struct {
	Host         string
	Port         int
	User         string
	Password     string
	Name         string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// JWTConfig holds the shared secret used for inter-service tokens.
type JWTConfig struct {
	Secret     string
	Expiration time.Duration
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// GPSConfig tunes the geodesy engine and fix validation.
type GPSConfig struct {
	AccuracyThresholdMeters float64
	MaxAccuracyMeters       float64
	EarthRadiusKm           float64
	DefaultDetectionRadius  float64
}

// AttendanceConfig governs dedup and lateness rules.
type AttendanceConfig struct {
	MinRecordInterval time.Duration
	LateGrace         time.Duration
	ScheduleTolerance time.Duration
}

// CollaboratorConfig points at the user/course/notification services.
type CollaboratorConfig struct {
	UserServiceURL         string
	CourseServiceURL       string
	NotificationServiceURL string
	Timeout                time.Duration
	MaxRetries             int
	RetryDelay             time.Duration
}

// CacheConfig controls collaborator response caching.
type CacheConfig struct {
	Enabled       bool
	CoordinateTTL time.Duration
	ScheduleTTL   time.Duration
}

// NotificationConfig tunes the outbound notification queue.
type NotificationConfig struct {
	Workers    int
	BufferSize int
	MaxRetries int
	RetryDelay time.Duration
}

// ReportsConfig toggles the attendance report endpoints.
type ReportsConfig struct {
	Enabled bool
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
	}

	cfg := &Config{}

	cfg.Env = v.GetString("ENV")
	cfg.Port = v.GetInt("PORT")
	cfg.APIPrefix = v.GetString("API_PREFIX")

	cfg.Database = DatabaseConfig{
		Host:         v.GetString("DB_HOST"),
		Port:         v.GetInt("DB_PORT"),
		User:         v.GetString("DB_USER"),
		Password:     v.GetString("DB_PASSWORD"),
		Name:         v.GetString("DB_NAME"),
		SSLMode:      v.GetString("DB_SSL_MODE"),
		MaxOpenConns: v.GetInt("DB_MAX_OPEN_CONNS"),
		MaxIdleConns: v.GetInt("DB_MAX_IDLE_CONNS"),
	}

	cfg.Redis = RedisConfig{
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}

	cfg.JWT = JWTConfig{
		Secret:     v.GetString("JWT_SECRET"),
		Expiration: parseDuration(v.GetString("JWT_EXPIRATION"), 5*time.Minute),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.GPS = GPSConfig{
		AccuracyThresholdMeters: v.GetFloat64("GPS_ACCURACY_THRESHOLD"),
		MaxAccuracyMeters:       v.GetFloat64("GPS_MAX_ACCURACY"),
		EarthRadiusKm:           v.GetFloat64("EARTH_RADIUS_KM"),
		DefaultDetectionRadius:  v.GetFloat64("DEFAULT_DETECTION_RADIUS"),
	}

	cfg.Attendance = AttendanceConfig{
		MinRecordInterval: parseDuration(v.GetString("MIN_TIME_BETWEEN_RECORDS"), 5*time.Minute),
		LateGrace:         parseDuration(v.GetString("LATE_GRACE"), 15*time.Minute),
		ScheduleTolerance: parseDuration(v.GetString("SCHEDULE_TOLERANCE"), 15*time.Minute),
	}

	cfg.Collaborators = CollaboratorConfig{
		UserServiceURL:         v.GetString("USER_SERVICE_URL"),
		CourseServiceURL:       v.GetString("COURSE_SERVICE_URL"),
		NotificationServiceURL: v.GetString("NOTIFICATION_SERVICE_URL"),
		Timeout:                parseDuration(v.GetString("HTTP_TIMEOUT"), 10*time.Second),
		MaxRetries:             v.GetInt("MAX_RETRIES"),
		RetryDelay:             parseDuration(v.GetString("RETRY_DELAY"), 500*time.Millisecond),
	}

	cfg.Cache = CacheConfig{
		Enabled:       v.GetBool("ENABLE_CACHE"),
		CoordinateTTL: parseDuration(v.GetString("COORDINATE_CACHE_TTL"), 10*time.Minute),
		ScheduleTTL:   parseDuration(v.GetString("SCHEDULE_CACHE_TTL"), time.Minute),
	}

	cfg.Notifications = NotificationConfig{
		Workers:    v.GetInt("NOTIFICATION_WORKERS"),
		BufferSize: v.GetInt("NOTIFICATION_BUFFER_SIZE"),
		MaxRetries: v.GetInt("NOTIFICATION_MAX_RETRIES"),
		RetryDelay: parseDuration(v.GetString("NOTIFICATION_RETRY_DELAY"), time.Second),
	}

	cfg.Reports = ReportsConfig{
		Enabled: v.GetBool("ENABLE_REPORTS"),
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8003)
	v.SetDefault("API_PREFIX", "/api/v1")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "attendance_db")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("JWT_SECRET", "dev_secret")
	v.SetDefault("JWT_EXPIRATION", "5m")

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("GPS_ACCURACY_THRESHOLD", 10.0)
	v.SetDefault("GPS_MAX_ACCURACY", 50.0)
	v.SetDefault("EARTH_RADIUS_KM", 6371.0)
	v.SetDefault("DEFAULT_DETECTION_RADIUS", 2.0)

	v.SetDefault("MIN_TIME_BETWEEN_RECORDS", "5m")
	v.SetDefault("LATE_GRACE", "15m")
	v.SetDefault("SCHEDULE_TOLERANCE", "15m")

	v.SetDefault("USER_SERVICE_URL", "http://localhost:8001")
	v.SetDefault("COURSE_SERVICE_URL", "http://localhost:8002")
	v.SetDefault("NOTIFICATION_SERVICE_URL", "http://localhost:8004")
	v.SetDefault("HTTP_TIMEOUT", "10s")
	v.SetDefault("MAX_RETRIES", 3)
	v.SetDefault("RETRY_DELAY", "500ms")

	v.SetDefault("ENABLE_CACHE", false)
	v.SetDefault("COORDINATE_CACHE_TTL", "10m")
	v.SetDefault("SCHEDULE_CACHE_TTL", "1m")

	v.SetDefault("NOTIFICATION_WORKERS", 2)
	v.SetDefault("NOTIFICATION_BUFFER_SIZE", 64)
	v.SetDefault("NOTIFICATION_MAX_RETRIES", 3)
	v.SetDefault("NOTIFICATION_RETRY_DELAY", "1s")

	v.SetDefault("ENABLE_REPORTS", true)
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}

	d, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}

	return d
}

func splitAndTrim(raw string) []string {
	if raw == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}
