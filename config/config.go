package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

var ErrInvalid = errors.New("invalid configuration")

type Config struct {
	Port      string
	LogLevel  slog.Level
	LogFormat string
	// AllowedOrigins is empty when every origin is accepted.
	AllowedOrigins []string
	StaticDir      string
	PublicURL      string

	RateLimit      float64
	RateBurst      int
	MaxMessageSize int64

	BotDelay         time.Duration
	AutoRestartDelay time.Duration
	ShutdownTimeout  time.Duration
}

func Default() Config {
	return Config{
		Port:            "8080",
		LogLevel:        slog.LevelInfo,
		LogFormat:       "text",
		PublicURL:       "http://localhost:8080",
		RateLimit:       20,
		RateBurst:       40,
		MaxMessageSize:  65536,
		BotDelay:        600 * time.Millisecond,
		ShutdownTimeout: 10 * time.Second,
	}
}

// Load reads .env when present and then the process environment.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil {
		slog.Warn("no .env file found, using environment variables")
	}
	return FromEnv(os.LookupEnv)
}

// FromEnv builds a Config from lookup, falling back to Default for unset keys.
func FromEnv(lookup func(string) (string, bool)) (Config, error) {
	cfg := Default()
	var errs []error

	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && strings.TrimSpace(v) != "" {
			*dst = strings.TrimSpace(v)
		}
	}
	parse := func(key string, fn func(string) error) {
		v, ok := lookup(key)
		if !ok || strings.TrimSpace(v) == "" {
			return
		}
		if err := fn(strings.TrimSpace(v)); err != nil {
			errs = append(errs, fmt.Errorf("%w: %s=%q: %v", ErrInvalid, key, v, err))
		}
	}
	duration := func(key string, dst *time.Duration) {
		parse(key, func(v string) error {
			d, err := time.ParseDuration(v)
			if err != nil {
				return err
			}
			if d < 0 {
				return errors.New("must not be negative")
			}
			*dst = d
			return nil
		})
	}

	str("PORT", &cfg.Port)
	str("LOG_FORMAT", &cfg.LogFormat)
	str("STATIC_DIR", &cfg.StaticDir)
	str("PUBLIC_URL", &cfg.PublicURL)
	cfg.PublicURL = strings.TrimRight(cfg.PublicURL, "/")

	parse("PORT", func(v string) error {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 || n > 65535 {
			return errors.New("must be a port number")
		}
		return nil
	})
	parse("LOG_LEVEL", func(v string) error {
		return cfg.LogLevel.UnmarshalText([]byte(v))
	})
	parse("LOG_FORMAT", func(v string) error {
		if v != "text" && v != "json" {
			return errors.New("must be text or json")
		}
		return nil
	})
	parse("ALLOWED_ORIGINS", func(v string) error {
		for _, o := range strings.Split(v, ",") {
			if o = strings.TrimSpace(o); o != "" {
				cfg.AllowedOrigins = append(cfg.AllowedOrigins, o)
			}
		}
		return nil
	})
	parse("RATE_LIMIT", func(v string) error {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return err
		}
		if f < 0 {
			return errors.New("must not be negative")
		}
		cfg.RateLimit = f
		return nil
	})
	parse("RATE_BURST", func(v string) error {
		n, err := strconv.Atoi(v)
		if err != nil {
			return err
		}
		if n <= 0 {
			return errors.New("must be positive")
		}
		cfg.RateBurst = n
		return nil
	})
	parse("MAX_MESSAGE_SIZE", func(v string) error {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return err
		}
		if n <= 0 {
			return errors.New("must be positive")
		}
		cfg.MaxMessageSize = n
		return nil
	})
	duration("BOT_DELAY", &cfg.BotDelay)
	duration("AUTO_RESTART_DELAY", &cfg.AutoRestartDelay)
	duration("SHUTDOWN_TIMEOUT", &cfg.ShutdownTimeout)

	if err := errors.Join(errs...); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Addr() string { return ":" + c.Port }
