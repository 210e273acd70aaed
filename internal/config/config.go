package config

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"
)

var (
	ErrMissingDatabaseDSN = errors.New("DB_DSN is required")
	ErrMissingMasterKey   = errors.New("at least one master key is required")
)

type Config struct {
	HTTP   HTTPConfig
	DB     DBConfig
	Redis  RedisConfig
	LLM    LLMConfig
	Rate   RateConfig
	Crypto CryptoConfig
	Log    LogConfig
}

type HTTPConfig struct {
	ListenAddr  string
	HealthPath  string
	MetricsPath string
}

type DBConfig struct {
	Driver      string
	DSN         string
	AutoMigrate bool
}

type RedisConfig struct {
	Addr            string
	Password        string
	DB              int
	SuggestCooldown time.Duration
}

// LLMConfig carries the outbound transport policy. The connect timeout
// is short so a dead endpoint fails fast; the read timeout is long
// because locally hosted models can take minutes to finish a reply.
type LLMConfig struct {
	ConnectTimeout time.Duration
	ReadTimeout    time.Duration
}

type RateConfig struct {
	SendsPerHour int64
}

type CryptoConfig struct {
	CurrentKeyID string
	Keys         map[string][]byte
}

type LogConfig struct {
	Level string
}

func Load() (*Config, error) {
	cfg := &Config{
		HTTP: HTTPConfig{
			ListenAddr:  mustEnv("HTTP_LISTEN_ADDR", ":8080"),
			HealthPath:  mustEnv("HEALTH_PATH", "/healthz"),
			MetricsPath: mustEnv("METRICS_PATH", "/metrics"),
		},
		DB: DBConfig{
			Driver:      strings.ToLower(mustEnv("DB_DRIVER", "sqlite")),
			DSN:         mustEnv("DB_DSN", "file:carebot.db?_pragma=busy_timeout(5000)"),
			AutoMigrate: mustBool("AUTO_MIGRATE", true),
		},
		Redis: RedisConfig{
			Addr:            mustEnv("REDIS_ADDR", "127.0.0.1:6379"),
			Password:        mustEnv("REDIS_PASSWORD", ""),
			DB:              mustInt("REDIS_DB", 0),
			SuggestCooldown: mustDuration("SUGGEST_COOLDOWN", 10*time.Minute),
		},
		LLM: LLMConfig{
			ConnectTimeout: mustDuration("LLM_CONNECT_TIMEOUT", 10*time.Second),
			ReadTimeout:    mustDuration("LLM_READ_TIMEOUT", 300*time.Second),
		},
		Rate: RateConfig{
			SendsPerHour: int64(mustInt("RATE_LIMIT_PER_HOUR", 60)),
		},
		Log: LogConfig{
			Level: strings.ToLower(mustEnv("LOG_LEVEL", "info")),
		},
	}

	if cfg.DB.DSN == "" {
		return nil, ErrMissingDatabaseDSN
	}

	cc, err := loadCryptoConfig()
	if err != nil {
		return nil, err
	}
	cfg.Crypto = cc

	return cfg, nil
}

func loadCryptoConfig() (CryptoConfig, error) {
	keysB64 := map[string]string{}

	if raw := mustEnv("MASTER_KEYS_JSON", ""); raw != "" {
		var parsed map[string]string
		if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
			return CryptoConfig{}, fmt.Errorf("parse MASTER_KEYS_JSON: %w", err)
		}
		for id, val := range parsed {
			if strings.TrimSpace(id) == "" || strings.TrimSpace(val) == "" {
				continue
			}
			keysB64[id] = val
		}
	}

	current := mustEnv("MASTER_KEY_CURRENT_ID", "")
	if singleton := mustEnv("MASTER_KEY_B64", ""); singleton != "" {
		if current == "" {
			current = "default"
		}
		keysB64[current] = singleton
	}

	if len(keysB64) == 0 {
		return CryptoConfig{}, ErrMissingMasterKey
	}

	keys := make(map[string][]byte, len(keysB64))
	for id, b64 := range keysB64 {
		raw, err := base64.StdEncoding.DecodeString(b64)
		if err != nil {
			return CryptoConfig{}, fmt.Errorf("decode master key %q: %w", id, err)
		}
		if len(raw) != 32 {
			return CryptoConfig{}, fmt.Errorf("master key %q must be 32 bytes after base64 decode", id)
		}
		keys[id] = raw
	}

	if current == "" {
		// Without an explicit current id the choice must still be
		// stable across restarts: pick the lexicographically first key.
		ids := make([]string, 0, len(keys))
		for id := range keys {
			ids = append(ids, id)
		}
		sort.Strings(ids)
		current = ids[0]
	}
	if _, ok := keys[current]; !ok {
		return CryptoConfig{}, fmt.Errorf("MASTER_KEY_CURRENT_ID=%q does not exist in provided keys", current)
	}

	return CryptoConfig{CurrentKeyID: current, Keys: keys}, nil
}

func mustEnv(key string, def string) string {
	if v := os.Getenv(key); v != "" {
		return strings.TrimSpace(v)
	}
	return def
}

func mustInt(key string, def int) int {
	v := mustEnv(key, "")
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func mustBool(key string, def bool) bool {
	v := mustEnv(key, "")
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func mustDuration(key string, def time.Duration) time.Duration {
	v := mustEnv(key, "")
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def
	}
	return d
}
