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

	Database  DatabaseConfig
	Redis     RedisConfig
	CORS      CORSConfig
	Log       LogConfig
	Scheduler SchedulerConfig
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
	AutoMigrate  bool
}

type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     int
	Password string
	DB       int
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// SchedulerConfig tunes the maintenance auto-scheduler.
type SchedulerConfig struct {
	Enabled               bool
	HorizonDays           int
	DailyDays             int
	MaxIterations         int
	FleetBatchSize        int
	AvgDailyFlightHours   float64
	DedupFraction         int
	SlotStepMinutes       int
	ForcedLead            time.Duration
	SearchRadiusDays      int
	WidenRadiusDays       int
	CacheTTL              time.Duration
	AsyncWorkers          int
	AsyncRetries          int
	FlightLookbackDays    int
	MaxConflictSearchDays int
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

	cfg.Database = DatabaseConfig{
		Host:         v.GetString("DB_HOST"),
		Port:         v.GetInt("DB_PORT"),
		User:         v.GetString("DB_USER"),
		Password:     v.GetString("DB_PASSWORD"),
		Name:         v.GetString("DB_NAME"),
		SSLMode:      v.GetString("DB_SSL_MODE"),
		MaxOpenConns: v.GetInt("DB_MAX_OPEN_CONNS"),
		MaxIdleConns: v.GetInt("DB_MAX_IDLE_CONNS"),
		AutoMigrate:  v.GetBool("DB_AUTO_MIGRATE"),
	}

	cfg.Redis = RedisConfig{
		Enabled:  v.GetBool("REDIS_ENABLED"),
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.Scheduler = SchedulerConfig{
		Enabled:               v.GetBool("ENABLE_SCHEDULER_API"),
		HorizonDays:           clampInt(v.GetInt("SCHEDULER_HORIZON_DAYS"), 60, 365),
		DailyDays:             positiveInt(v.GetInt("SCHEDULER_DAILY_DAYS"), 7),
		MaxIterations:         positiveInt(v.GetInt("SCHEDULER_MAX_ITERATIONS"), 20),
		FleetBatchSize:        positiveInt(v.GetInt("SCHEDULER_FLEET_BATCH_SIZE"), 5),
		AvgDailyFlightHours:   positiveFloat(v.GetFloat64("SCHEDULER_AVG_DAILY_FLIGHT_HOURS"), 7),
		DedupFraction:         positiveInt(v.GetInt("SCHEDULER_DEDUP_FRACTION"), 3),
		SlotStepMinutes:       positiveInt(v.GetInt("SCHEDULER_SLOT_STEP_MINUTES"), 15),
		ForcedLead:            parseDuration(v.GetString("SCHEDULER_FORCED_LEAD"), 2*time.Hour),
		SearchRadiusDays:      positiveInt(v.GetInt("SCHEDULER_SEARCH_RADIUS_DAYS"), 3),
		WidenRadiusDays:       positiveInt(v.GetInt("SCHEDULER_WIDEN_RADIUS_DAYS"), 7),
		CacheTTL:              parseDuration(v.GetString("SCHEDULER_CACHE_TTL"), 2*time.Minute),
		AsyncWorkers:          positiveInt(v.GetInt("SCHEDULER_ASYNC_WORKERS"), 2),
		AsyncRetries:          positiveInt(v.GetInt("SCHEDULER_ASYNC_RETRIES"), 2),
		FlightLookbackDays:    positiveInt(v.GetInt("SCHEDULER_FLIGHT_LOOKBACK_DAYS"), 30),
		MaxConflictSearchDays: positiveInt(v.GetInt("SCHEDULER_MAX_CONFLICT_SEARCH_DAYS"), 30),
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "/api/v1")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "fleet_mx")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)
	v.SetDefault("DB_AUTO_MIGRATE", false)

	v.SetDefault("REDIS_ENABLED", false)
	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("ENABLE_SCHEDULER_API", true)
	v.SetDefault("SCHEDULER_HORIZON_DAYS", 120)
	v.SetDefault("SCHEDULER_DAILY_DAYS", 7)
	v.SetDefault("SCHEDULER_MAX_ITERATIONS", 20)
	v.SetDefault("SCHEDULER_FLEET_BATCH_SIZE", 5)
	v.SetDefault("SCHEDULER_AVG_DAILY_FLIGHT_HOURS", 7)
	v.SetDefault("SCHEDULER_DEDUP_FRACTION", 3)
	v.SetDefault("SCHEDULER_SLOT_STEP_MINUTES", 15)
	v.SetDefault("SCHEDULER_FORCED_LEAD", "2h")
	v.SetDefault("SCHEDULER_SEARCH_RADIUS_DAYS", 3)
	v.SetDefault("SCHEDULER_WIDEN_RADIUS_DAYS", 7)
	v.SetDefault("SCHEDULER_CACHE_TTL", "2m")
	v.SetDefault("SCHEDULER_ASYNC_WORKERS", 2)
	v.SetDefault("SCHEDULER_ASYNC_RETRIES", 2)
	v.SetDefault("SCHEDULER_FLIGHT_LOOKBACK_DAYS", 30)
	v.SetDefault("SCHEDULER_MAX_CONFLICT_SEARCH_DAYS", 30)
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

func positiveInt(value, fallback int) int {
	if value <= 0 {
		return fallback
	}
	return value
}

func positiveFloat(value, fallback float64) float64 {
	if value <= 0 {
		return fallback
	}
	return value
}

func clampInt(value, min, max int) int {
	if value < min {
		return min
	}
	if value > max {
		return max
	}
	return value
}

// viper reports a missing explicit config file as a plain fs error rather than
// ConfigFileNotFoundError.
func isMissingFile(err error) bool {
	return strings.Contains(err.Error(), "no such file or directory")
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
