package config

import (
	"errors"
	"io/fs"
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
	Timezone  string

	Database   DatabaseConfig
	Redis      RedisConfig
	JWT        JWTConfig
	CORS       CORSConfig
	Log        LogConfig
	QR         QRConfig
	Photos     PhotoConfig
	Attendance AttendanceConfig
	Dashboard  DashboardConfig
	Reports    ReportsConfig
	Telemetry  TelemetryConfig
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

// QRConfig controls the rotating kiosk token.
type QRConfig struct {
	Secret        string
	WindowSeconds int
	MaxAgeSeconds int
}

// PhotoConfig controls punch photo intake and storage.
type PhotoConfig struct {
	StorageDir      string
	MaxUploadBytes  int64
	MaxSide         int
	JPEGQuality     int
	SignedURLSecret string
	SignedURLTTL    time.Duration
}

// AttendanceConfig holds the punctuality policy used by reconciliation.
type AttendanceConfig struct {
	GraceMinutes int
	EarlyWindow  time.Duration
	NoShowWindow time.Duration
	StaleAfter   time.Duration
}

// DashboardConfig governs the manager dashboard.
type DashboardConfig struct {
	RankingSize int
	EventLimit  int
	CacheTTL    time.Duration
}

// ReportsConfig configures asynchronous report generation.
type ReportsConfig struct {
	Enabled           bool
	StorageDir        string
	SignedURLSecret   string
	SignedURLTTL      time.Duration
	CleanupInterval   time.Duration
	WorkerConcurrency int
	WorkerRetries     int
}

// TelemetryConfig toggles OTLP trace export.
type TelemetryConfig struct {
	Enabled     bool
	Endpoint    string
	ServiceName string
}

// Location resolves the facility timezone, falling back to UTC.
func (c *Config) Location() *time.Location {
	if c == nil || c.Timezone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
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
		if !errors.As(err, &notFound) && !isMissingFile(err) {
			return nil, err
		}
	}

	cfg := &Config{}

	cfg.Env = v.GetString("ENV")
	cfg.Port = v.GetInt("PORT")
	cfg.APIPrefix = v.GetString("API_PREFIX")
	cfg.Timezone = v.GetString("FACILITY_TIMEZONE")

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
		Expiration: parseDuration(v.GetString("JWT_EXPIRATION"), 12*time.Hour),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.QR = QRConfig{
		Secret:        v.GetString("QR_SECRET"),
		WindowSeconds: positiveInt(v.GetInt("QR_WINDOW_SECONDS"), 60),
		MaxAgeSeconds: positiveInt(v.GetInt("QR_MAX_AGE_SECONDS"), 70),
	}

	maxUpload := v.GetInt64("PHOTO_MAX_UPLOAD_BYTES")
	if maxUpload <= 0 {
		maxUpload = 10 * 1024 * 1024
	}
	cfg.Photos = PhotoConfig{
		StorageDir:      v.GetString("PHOTO_STORAGE_DIR"),
		MaxUploadBytes:  maxUpload,
		MaxSide:         positiveInt(v.GetInt("PHOTO_MAX_SIDE"), 1024),
		JPEGQuality:     positiveInt(v.GetInt("PHOTO_JPEG_QUALITY"), 75),
		SignedURLSecret: v.GetString("PHOTO_SIGNED_URL_SECRET"),
		SignedURLTTL:    parseDuration(v.GetString("PHOTO_SIGNED_URL_TTL"), 15*time.Minute),
	}

	cfg.Attendance = AttendanceConfig{
		GraceMinutes: positiveInt(v.GetInt("ATTENDANCE_GRACE_MINUTES"), 15),
		EarlyWindow:  parseDuration(v.GetString("ATTENDANCE_EARLY_WINDOW"), time.Hour),
		NoShowWindow: parseDuration(v.GetString("ATTENDANCE_NO_SHOW_WINDOW"), 2*time.Hour),
		StaleAfter:   parseDuration(v.GetString("ATTENDANCE_STALE_AFTER"), 10*time.Hour),
	}

	cfg.Dashboard = DashboardConfig{
		RankingSize: positiveInt(v.GetInt("DASHBOARD_RANKING_SIZE"), 5),
		EventLimit:  positiveInt(v.GetInt("DASHBOARD_EVENT_LIMIT"), 200),
		CacheTTL:    parseDuration(v.GetString("DASHBOARD_CACHE_TTL"), time.Minute),
	}

	cfg.Reports = ReportsConfig{
		Enabled:           v.GetBool("ENABLE_REPORTS"),
		StorageDir:        v.GetString("REPORTS_STORAGE_DIR"),
		SignedURLSecret:   v.GetString("REPORTS_SIGNED_URL_SECRET"),
		SignedURLTTL:      parseDuration(v.GetString("REPORTS_SIGNED_URL_TTL"), 24*time.Hour),
		CleanupInterval:   parseDuration(v.GetString("REPORTS_CLEANUP_INTERVAL"), time.Hour),
		WorkerConcurrency: v.GetInt("REPORTS_WORKER_CONCURRENCY"),
		WorkerRetries:     v.GetInt("REPORTS_WORKER_RETRIES"),
	}

	cfg.Telemetry = TelemetryConfig{
		Enabled:     v.GetBool("OTEL_ENABLED"),
		Endpoint:    v.GetString("OTEL_EXPORTER_ENDPOINT"),
		ServiceName: v.GetString("OTEL_SERVICE_NAME"),
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "/api/v1")
	v.SetDefault("FACILITY_TIMEZONE", "Asia/Jakarta")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "clinic_attendance")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("JWT_SECRET", "dev_secret")
	v.SetDefault("JWT_EXPIRATION", "12h")

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("QR_SECRET", "dev_qr_secret")
	v.SetDefault("QR_WINDOW_SECONDS", 60)
	v.SetDefault("QR_MAX_AGE_SECONDS", 70)

	v.SetDefault("PHOTO_STORAGE_DIR", "./media/attendance")
	v.SetDefault("PHOTO_MAX_UPLOAD_BYTES", 10*1024*1024)
	v.SetDefault("PHOTO_MAX_SIDE", 1024)
	v.SetDefault("PHOTO_JPEG_QUALITY", 75)
	v.SetDefault("PHOTO_SIGNED_URL_SECRET", "dev_photo_secret")
	v.SetDefault("PHOTO_SIGNED_URL_TTL", "15m")

	v.SetDefault("ATTENDANCE_GRACE_MINUTES", 15)
	v.SetDefault("ATTENDANCE_EARLY_WINDOW", "60m")
	v.SetDefault("ATTENDANCE_NO_SHOW_WINDOW", "120m")
	v.SetDefault("ATTENDANCE_STALE_AFTER", "10h")

	v.SetDefault("DASHBOARD_RANKING_SIZE", 5)
	v.SetDefault("DASHBOARD_EVENT_LIMIT", 200)
	v.SetDefault("DASHBOARD_CACHE_TTL", "1m")

	v.SetDefault("ENABLE_REPORTS", true)
	v.SetDefault("REPORTS_STORAGE_DIR", "./exports")
	v.SetDefault("REPORTS_SIGNED_URL_SECRET", "dev_reports_secret")
	v.SetDefault("REPORTS_SIGNED_URL_TTL", "24h")
	v.SetDefault("REPORTS_CLEANUP_INTERVAL", "1h")
	v.SetDefault("REPORTS_WORKER_CONCURRENCY", 1)
	v.SetDefault("REPORTS_WORKER_RETRIES", 3)

	v.SetDefault("OTEL_ENABLED", false)
	v.SetDefault("OTEL_EXPORTER_ENDPOINT", "")
	v.SetDefault("OTEL_SERVICE_NAME", "clinic-attendance-api")
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

func isMissingFile(err error) bool {
	return errors.Is(err, fs.ErrNotExist)
}

func positiveInt(value, fallback int) int {
	if value <= 0 {
		return fallback
	}
	return value
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
