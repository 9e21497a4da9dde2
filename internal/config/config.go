package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	defaultJWTSecret     = "dev-secret-change-in-production"
	defaultCoordinateKey = "your-private-key"
)

var (
	ErrDefaultJWTSecret     = errors.New("JWT_SECRET must be set in production environment")
	ErrDefaultCoordinateKey = errors.New("COORDINATE_KEY must be set in production environment")
	ErrHashParams           = errors.New("ARGON2_MEMORY_KIB must be 8..1048576 and ARGON2_TIME at least 1")
)

type Config struct {
	Port          string
	Env           string
	MySQLDSN      string
	MongoURI      string
	MongoDB       string
	JWTSecret     string
	JWTExpiry     time.Duration
	CoordinateKey string
	StoreTimeout  time.Duration
	CORSOrigins   []string
	LogLevel      string
	LogDev        bool
	LogFile       string
	NodeID        int64
	HashMemoryKiB uint32
	HashTime      uint32
	HashThreads   uint8
}

// Load reads the configuration from the environment, falling back to
// development defaults for anything unset.
func Load() Config {
	return Config{
		Port:          getEnv("PORT", "8080"),
		Env:           getEnv("ENV", "development"),
		MySQLDSN:      getEnv("MYSQL_DSN", "root:password@tcp(127.0.0.1:3306)/poivault?parseTime=true"),
		MongoURI:      getEnv("MONGO_URI", "mongodb://localhost:27017/?replicaSet=rs0"),
		MongoDB:       getEnv("MONGO_DB", "poivault"),
		JWTSecret:     getEnv("JWT_SECRET", defaultJWTSecret),
		JWTExpiry:     getDuration("JWT_EXPIRY", 24*time.Hour),
		CoordinateKey: getEnv("COORDINATE_KEY", defaultCoordinateKey),
		StoreTimeout:  getDuration("STORE_TIMEOUT", 8*time.Second),
		CORSOrigins:   splitList(getEnv("CORS_ORIGINS", "http://localhost:3000,http://localhost:5173")),
		LogLevel:      getEnv("LOG_LEVEL", "info"),
		LogDev:        os.Getenv("LOG_DEV") == "1",
		LogFile:       os.Getenv("LOG_FILE"),
		NodeID:        getInt("NODE_ID", 1),
		HashMemoryKiB: uint32(getInt("ARGON2_MEMORY_KIB", 64*1024)),
		HashTime:      uint32(getInt("ARGON2_TIME", 3)),
		HashThreads:   uint8(getInt("ARGON2_THREADS", 2)),
	}
}

// Validate checks the argon2 cost settings and rejects development secrets
// when running in production.
func (c Config) Validate() error {
	if c.HashMemoryKiB < 8 || c.HashMemoryKiB > 1024*1024 || c.HashTime < 1 {
		return ErrHashParams
	}
	if c.Env != "production" {
		return nil
	}
	if c.JWTSecret == defaultJWTSecret {
		return ErrDefaultJWTSecret
	}
	if c.CoordinateKey == defaultCoordinateKey {
		return ErrDefaultCoordinateKey
	}
	return nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}

func getInt(key string, fallback int64) int64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return fallback
	}
	return n
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
