package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/example/maintenance-scheduler/internal/calendar"
)

// Storage backends selectable through SCHEDULER_STORAGE.
const (
	StorageMemory = "memory"
	StorageSQLite = "sqlite"
	StorageRedis  = "redis"
)

// DefaultHolidays are observed when SCHEDULER_HOLIDAYS is unset.
const DefaultHolidays = "New Year's Day=01-01,Independence Day=07-04,Christmas Day=12-25"

// Config captures environment driven configuration values for the scheduler service.
type Config struct {
	HTTPPort       int
	Storage        string
	SQLiteDSN      string
	RedisAddr      string
	RedisKeyPrefix string
	Location       *time.Location
	Holidays       []calendar.Holiday
	SweepSchedule  string
	MetricsEnabled bool
	MetricsPath    string
	LogFile        string
	LogLevel       slog.Level
	CORSOrigins    []string
	DirectoryFile  string
}

// Load parses configuration values from the current process environment.
//
// The loader applies defaults for optional fields and reports every missing or
// invalid key in a single error.
func Load() (Config, error) {
	holidays, _ := calendar.ParseHolidays(DefaultHolidays)
	cfg := Config{
		HTTPPort:       8080,
		Storage:        StorageMemory,
		SQLiteDSN:      "scheduler.db",
		RedisKeyPrefix: "maintenance-scheduler",
		Location:       time.UTC,
		Holidays:       holidays,
		SweepSchedule:  "*/15 * * * *",
		MetricsEnabled: true,
		MetricsPath:    "/metrics",
		LogLevel:       slog.LevelInfo,
		CORSOrigins:    []string{"*"},
	}

	missing := make([]string, 0, 1)
	invalid := make([]string, 0, 2)

	if portValue := env("HTTP_PORT"); portValue != "" {
		port, err := strconv.Atoi(portValue)
		if err != nil || port <= 0 || port > 65535 {
			invalid = append(invalid, "SCHEDULER_HTTP_PORT")
		} else {
			cfg.HTTPPort = port
		}
	}

	if storage := strings.ToLower(env("STORAGE")); storage != "" {
		switch storage {
		case StorageMemory, StorageSQLite, StorageRedis:
			cfg.Storage = storage
		default:
			invalid = append(invalid, "SCHEDULER_STORAGE")
		}
	}

	if dsn := env("SQLITE_DSN"); dsn != "" {
		cfg.SQLiteDSN = dsn
	}

	cfg.RedisAddr = env("REDIS_ADDR")
	if cfg.Storage == StorageRedis && cfg.RedisAddr == "" {
		missing = append(missing, "SCHEDULER_REDIS_ADDR")
	}
	if prefix := env("REDIS_KEY_PREFIX"); prefix != "" {
		cfg.RedisKeyPrefix = prefix
	}

	if tz := env("TIMEZONE"); tz != "" {
		loc, err := time.LoadLocation(tz)
		if err != nil {
			invalid = append(invalid, "SCHEDULER_TIMEZONE")
		} else {
			cfg.Location = loc
		}
	}

	if value, ok := os.LookupEnv("SCHEDULER_HOLIDAYS"); ok {
		parsed, err := calendar.ParseHolidays(value)
		if err != nil {
			invalid = append(invalid, "SCHEDULER_HOLIDAYS")
		} else {
			cfg.Holidays = parsed
		}
	}

	if spec := env("SWEEP_SCHEDULE"); spec != "" {
		if _, err := cron.ParseStandard(spec); err != nil {
			invalid = append(invalid, "SCHEDULER_SWEEP_SCHEDULE")
		} else {
			cfg.SweepSchedule = spec
		}
	}

	if enabled := env("METRICS_ENABLED"); enabled != "" {
		value, err := strconv.ParseBool(enabled)
		if err != nil {
			invalid = append(invalid, "SCHEDULER_METRICS_ENABLED")
		} else {
			cfg.MetricsEnabled = value
		}
	}
	if path := env("METRICS_PATH"); path != "" {
		if !strings.HasPrefix(path, "/") {
			invalid = append(invalid, "SCHEDULER_METRICS_PATH")
		} else {
			cfg.MetricsPath = path
		}
	}

	cfg.LogFile = env("LOG_FILE")
	if level := env("LOG_LEVEL"); level != "" {
		if err := cfg.LogLevel.UnmarshalText([]byte(level)); err != nil {
			invalid = append(invalid, "SCHEDULER_LOG_LEVEL")
		}
	}

	if origins := env("CORS_ORIGINS"); origins != "" {
		cfg.CORSOrigins = splitList(origins)
	}
	cfg.DirectoryFile = env("DIRECTORY_FILE")

	if len(missing) > 0 {
		return Config{}, fmt.Errorf("required environment variables are not set: %s", strings.Join(missing, ", "))
	}
	if len(invalid) > 0 {
		return Config{}, fmt.Errorf("invalid environment variable values: %s", strings.Join(invalid, ", "))
	}

	return cfg, nil
}

func env(key string) string {
	return strings.TrimSpace(os.Getenv("SCHEDULER_" + key))
}

func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
