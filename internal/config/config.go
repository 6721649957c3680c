package config

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/jengzang/staypoint-backend-go/internal/staypoint"
)

// ErrMissingJWTSecret is returned when JWT_SECRET is unset; it signs admin tokens
var ErrMissingJWTSecret = errors.New("JWT_SECRET must be set")

// Config 应用配置
type Config struct {
	Port           string
	DBPath         string
	JWTSecret      string
	LogLevel       zerolog.Level
	MaxUploadBytes int64 // 单次导入最大字节数

	// Stay point detection defaults
	StayDistanceKm  float64
	StayMinDuration time.Duration

	// Per-IP rate limit
	RateLimit  int
	RateWindow time.Duration
}

// Load 加载配置. An optional .env file at envPath is applied first;
// variables already set in the environment are overwritten by it.
func Load(envPath string) (*Config, error) {
	if envPath != "" {
		if err := loadDotEnv(envPath); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("failed to load %s: %w", envPath, err)
		}
	}

	defaults := staypoint.DefaultOptions()
	cfg := &Config{
		Port:            getenv("PORT", ":8080"),
		DBPath:          getenv("DB_PATH", "./data/tracks/tracks.db"),
		JWTSecret:       os.Getenv("JWT_SECRET"),
		LogLevel:        zerolog.InfoLevel,
		MaxUploadBytes:  1024 * 1024 * 800, // 800MB
		StayDistanceKm:  defaults.DistanceKm,
		StayMinDuration: defaults.MinDuration,
		RateLimit:       120,
		RateWindow:      time.Minute,
	}

	// 管理接口的令牌签名密钥, 没有默认值
	if cfg.JWTSecret == "" {
		return nil, ErrMissingJWTSecret
	}

	if v := os.Getenv("LOG_LEVEL"); v != "" {
		level, err := zerolog.ParseLevel(v)
		if err != nil {
			return nil, fmt.Errorf("LOG_LEVEL: %w", err)
		}
		cfg.LogLevel = level
	}
	if v := os.Getenv("MAX_UPLOAD_BYTES"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("MAX_UPLOAD_BYTES: %w", err)
		}
		cfg.MaxUploadBytes = n
	}
	if v := os.Getenv("STAY_DISTANCE_KM"); v != "" {
		km, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return nil, fmt.Errorf("STAY_DISTANCE_KM: %w", err)
		}
		cfg.StayDistanceKm = km
	}
	if v := os.Getenv("STAY_MIN_DURATION"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("STAY_MIN_DURATION: %w", err)
		}
		cfg.StayMinDuration = d
	}
	if v := os.Getenv("RATE_LIMIT"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("RATE_LIMIT: %w", err)
		}
		cfg.RateLimit = n
	}
	if v := os.Getenv("RATE_WINDOW"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("RATE_WINDOW: %w", err)
		}
		cfg.RateWindow = d
	}

	return cfg, nil
}

// StayOptions returns the configured detection thresholds
func (c *Config) StayOptions() staypoint.Options {
	return staypoint.Options{
		DistanceKm:  c.StayDistanceKm,
		MinDuration: c.StayMinDuration,
	}
}

func loadDotEnv(path string) error {
	file, err := os.Open(path)
	if err != nil {
		return err
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		if key == "" {
			continue
		}
		_ = os.Setenv(key, strings.Trim(strings.TrimSpace(value), `"`))
	}

	return scanner.Err()
}

func getenv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
