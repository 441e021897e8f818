package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/Dosada05/scrim-system/rating"
	"github.com/Dosada05/scrim-system/storage"
	"github.com/joho/godotenv"
)

const (
	defaultServerPort       = 8080
	defaultRoomCapacity     = 10
	defaultMaxBalanceRoster = 12
	maxBalanceRosterCeiling = 16
	defaultRoomIdleTTL      = 2 * time.Hour
)

// DefaultMapPool is the competitive map rotation used when MAP_POOL is not set.
var DefaultMapPool = []string{"inferno", "mirage", "dust2", "nuke", "overpass", "ancient", "anubis"}

// Config хранит все конфигурационные параметры приложения.
type Config struct {
	DatabaseURL  string
	JWTSecretKey string
	ServerPort   int
	LogLevel     slog.Level

	MapPool             []string
	RoomCapacity        int
	MaxBalanceRoster    int
	MissingRatingPolicy rating.MissingPolicy
	RoomIdleTTL         time.Duration
	CORSAllowedOrigins  []string

	// R2 пустой, если хранилище аватаров не настроено.
	R2 storage.R2Config
}

// Load загружает конфигурацию из переменных окружения.
// Опционально подгружает .env файл (полезно для локальной разработки).
func Load() (*Config, error) {
	// Загружаем .env файл, если он есть. Ошибку не считаем фатальной.
	_ = godotenv.Load()

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		return nil, fmt.Errorf("DATABASE_URL environment variable is not set")
	}

	jwtKey := os.Getenv("JWT_SECRET_KEY")
	if jwtKey == "" {
		return nil, fmt.Errorf("JWT_SECRET_KEY environment variable is not set")
	}

	port, err := intFromEnv("SERVER_PORT", defaultServerPort)
	if err != nil {
		return nil, err
	}
	if port <= 0 || port > 65535 {
		return nil, fmt.Errorf("SERVER_PORT must be between 1 and 65535, got %d", port)
	}

	var level slog.Level
	if raw := os.Getenv("LOG_LEVEL"); raw != "" {
		if err := level.UnmarshalText([]byte(raw)); err != nil {
			return nil, fmt.Errorf("invalid LOG_LEVEL %q: %w", raw, err)
		}
	}

	pool, err := parseMapPool(os.Getenv("MAP_POOL"))
	if err != nil {
		return nil, err
	}

	capacity, err := intFromEnv("ROOM_CAPACITY", defaultRoomCapacity)
	if err != nil {
		return nil, err
	}
	if capacity < 2 {
		return nil, fmt.Errorf("ROOM_CAPACITY must be at least 2, got %d", capacity)
	}

	maxRoster, err := intFromEnv("MAX_BALANCE_ROSTER", defaultMaxBalanceRoster)
	if err != nil {
		return nil, err
	}
	if maxRoster < 2 || maxRoster > maxBalanceRosterCeiling {
		return nil, fmt.Errorf("MAX_BALANCE_ROSTER must be between 2 and %d, got %d", maxBalanceRosterCeiling, maxRoster)
	}
	if capacity > maxRoster {
		return nil, fmt.Errorf("ROOM_CAPACITY (%d) cannot exceed MAX_BALANCE_ROSTER (%d)", capacity, maxRoster)
	}

	policy := rating.MissingPolicy(strings.ToLower(strings.TrimSpace(os.Getenv("MISSING_RATING_POLICY"))))
	switch policy {
	case "":
		policy = rating.MissingSkip
	case rating.MissingSkip, rating.MissingError:
	default:
		return nil, fmt.Errorf("MISSING_RATING_POLICY must be %q or %q, got %q", rating.MissingSkip, rating.MissingError, policy)
	}

	idleTTL := defaultRoomIdleTTL
	if raw := os.Getenv("ROOM_IDLE_TTL"); raw != "" {
		idleTTL, err = time.ParseDuration(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid ROOM_IDLE_TTL: %w", err)
		}
	}

	var origins []string
	for _, o := range strings.Split(os.Getenv("CORS_ALLOWED_ORIGINS"), ",") {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}

	r2 := storage.R2Config{
		AccountID:       os.Getenv("R2_ACCOUNT_ID"),
		AccessKeyID:     os.Getenv("R2_ACCESS_KEY_ID"),
		SecretAccessKey: os.Getenv("R2_SECRET_ACCESS_KEY"),
		BucketName:      os.Getenv("R2_BUCKET_NAME"),
		PublicBaseURL:   os.Getenv("R2_PUBLIC_BASE_URL"),
	}
	if r2.Enabled() {
		if err := r2.Validate(); err != nil {
			return nil, err
		}
	}

	cfg := &Config{
		DatabaseURL:         dbURL,
		JWTSecretKey:        jwtKey,
		ServerPort:          port,
		LogLevel:            level,
		MapPool:             pool,
		RoomCapacity:        capacity,
		MaxBalanceRoster:    maxRoster,
		MissingRatingPolicy: policy,
		RoomIdleTTL:         idleTTL,
		CORSAllowedOrigins:  origins,
		R2:                  r2,
	}

	return cfg, nil
}

func intFromEnv(key string, def int) (int, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s environment variable: %w", key, err)
	}
	return v, nil
}

func parseMapPool(raw string) ([]string, error) {
	if strings.TrimSpace(raw) == "" {
		return append([]string(nil), DefaultMapPool...), nil
	}
	pool := make([]string, 0)
	seen := make(map[string]bool)
	for _, part := range strings.Split(raw, ",") {
		name := strings.ToLower(strings.TrimSpace(part))
		if name == "" {
			continue
		}
		if seen[name] {
			return nil, fmt.Errorf("MAP_POOL contains %q twice", name)
		}
		seen[name] = true
		pool = append(pool, name)
	}
	if len(pool) < 2 {
		return nil, fmt.Errorf("MAP_POOL must list at least 2 distinct maps, got %d", len(pool))
	}
	return pool, nil
}
