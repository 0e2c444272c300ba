package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/mind-engage/classroom-gateway/internal/timegrid"
)

type Mode string

const (
	ModeOffline Mode = "offline"
	ModeOnline  Mode = "online"
)

type Config struct {
	Mode     Mode
	HTTPAddr string

	DBDriver string
	DBDSN    string

	AuthSecret string
	TokenTTL   time.Duration

	AdminUser     string
	AdminPassHash string // bcrypt; empty skips seeding

	CORSOrigins []string

	RedisAddr        string // empty disables the question cache
	RedisPassword    string
	RedisDB          int
	QuestionCacheTTL time.Duration

	LogLevel  string
	LogFormat string // json|console

	ShutdownTimeout time.Duration

	Grid timegrid.Grid
}

const devSecret = "dev-secret-change-me"

// Load reads configuration from the environment. envFile, when it exists, is
// loaded first; variables already set in the process win over it.
func Load(envFile string) (Config, error) {
	if envFile != "" {
		if _, err := os.Stat(envFile); err == nil {
			if err := godotenv.Load(envFile); err != nil {
				return Config{}, fmt.Errorf("config.godotenv(%s): %w", envFile, err)
			}
		} else if !errors.Is(err, os.ErrNotExist) {
			return Config{}, fmt.Errorf("config.stat(%s): %w", envFile, err)
		}
	}

	v := viper.New()
	v.SetTypeByDefaultValue(true)
	v.SetDefault("MODE", string(ModeOffline))
	v.SetDefault("HTTP_ADDR", ":8080")
	v.SetDefault("DB_DRIVER", "sqlite")
	v.SetDefault("DB_DSN", "")
	v.SetDefault("AUTH_HMAC_SECRET", devSecret)
	v.SetDefault("TOKEN_TTL", 8*time.Hour)
	v.SetDefault("ADMIN_USER", "admin")
	v.SetDefault("ADMIN_PASS_HASH", "")
	v.SetDefault("CORS_ORIGINS", "http://localhost:3000,http://localhost:5173")
	v.SetDefault("REDIS_ADDR", "")
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("QUESTION_CACHE_TTL", 5*time.Minute)
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")
	v.SetDefault("SHUTDOWN_TIMEOUT", 10*time.Second)
	def := timegrid.Default()
	v.SetDefault("GRID_START_HOUR", def.StartHour)
	v.SetDefault("GRID_END_HOUR", def.EndHour)
	v.SetDefault("GRID_PIXELS_PER_HOUR", def.PixelsPerHour)
	v.AutomaticEnv()

	c := Config{
		Mode:             Mode(strings.ToLower(v.GetString("MODE"))),
		HTTPAddr:         v.GetString("HTTP_ADDR"),
		DBDriver:         strings.ToLower(v.GetString("DB_DRIVER")),
		DBDSN:            v.GetString("DB_DSN"),
		AuthSecret:       v.GetString("AUTH_HMAC_SECRET"),
		TokenTTL:         v.GetDuration("TOKEN_TTL"),
		AdminUser:        v.GetString("ADMIN_USER"),
		AdminPassHash:    v.GetString("ADMIN_PASS_HASH"),
		CORSOrigins:      splitCSV(v.GetString("CORS_ORIGINS")),
		RedisAddr:        v.GetString("REDIS_ADDR"),
		RedisPassword:    v.GetString("REDIS_PASSWORD"),
		RedisDB:          v.GetInt("REDIS_DB"),
		QuestionCacheTTL: v.GetDuration("QUESTION_CACHE_TTL"),
		LogLevel:         v.GetString("LOG_LEVEL"),
		LogFormat:        strings.ToLower(v.GetString("LOG_FORMAT")),
		ShutdownTimeout:  v.GetDuration("SHUTDOWN_TIMEOUT"),
		Grid: timegrid.Grid{
			StartHour:     v.GetInt("GRID_START_HOUR"),
			EndHour:       v.GetInt("GRID_END_HOUR"),
			PixelsPerHour: v.GetFloat64("GRID_PIXELS_PER_HOUR"),
		},
	}
	return c, c.validate()
}

func (c Config) validate() error {
	switch c.Mode {
	case ModeOffline, ModeOnline:
	default:
		return fmt.Errorf("MODE must be offline or online, got %q", c.Mode)
	}
	switch c.DBDriver {
	case "sqlite", "postgres":
	default:
		return fmt.Errorf("DB_DRIVER must be sqlite or postgres, got %q", c.DBDriver)
	}
	if c.Mode == ModeOnline && (c.AuthSecret == "" || c.AuthSecret == devSecret) {
		return errors.New("AUTH_HMAC_SECRET must be set in online mode")
	}
	if c.Grid.PixelsPerHour <= 0 {
		return fmt.Errorf("GRID_PIXELS_PER_HOUR must be positive, got %v", c.Grid.PixelsPerHour)
	}
	if c.Grid.StartHour < 0 || c.Grid.EndHour > 23 || c.Grid.StartHour > c.Grid.EndHour {
		return fmt.Errorf("grid hours must satisfy 0 <= start <= end <= 23, got %d..%d", c.Grid.StartHour, c.Grid.EndHour)
	}
	return nil
}

func splitCSV(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	return out
}
