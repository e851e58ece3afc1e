// loads up the .env files and typed settings used internally by Wishful.

package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds every setting read from the environment at startup.
type Config struct {
	Env      string
	Version  string
	SrvAddr  string
	SrvPort  string
	CORSOrig string

	AccessSecret  string
	RefreshSecret string
	CookieSecure  bool
	CookieDomain  string

	// Broker is either "local" (single process) or "redis" (pub/sub fan-out across instances)
	Broker string
	// WSSendBuffer is the per-session outbound queue length
	WSSendBuffer int

	UploadPath    string
	MaxUploadSize int64

	MetricsFlushInterval time.Duration
}

// uses go package: godotenv to load up development enviroment variables
func LoadDevConfig() {
	err := godotenv.Load("config/dev.env")
	if err != nil {
		fmt.Println(err.Error())
		os.Exit(-1)
	}
}

// Load reads Config from the process environment, missing values fall back to defaults.
func Load() Config {
	return Config{
		Env:                  getEnv("ENV", "dev"),
		Version:              getEnv("VERSION", "dev"),
		SrvAddr:              getEnv("SRV_ADDR", "localhost"),
		SrvPort:              getEnv("SRV_PORT", "8080"),
		CORSOrig:             getEnv("CORS_ORIGIN", "*"),
		AccessSecret:         os.Getenv("ACCESS_SECRET"),
		RefreshSecret:        os.Getenv("REFRESH_SECRET"),
		CookieSecure:         getBool("COOKIE_SECURE", false),
		CookieDomain:         os.Getenv("COOKIE_DOMAIN"),
		Broker:               strings.ToLower(getEnv("BROKER", "local")),
		WSSendBuffer:         getInt("WS_SEND_BUFFER", 64),
		UploadPath:           getEnv("UPLOAD_PATH", "./uploads/"),
		MaxUploadSize:        int64(getInt("MAX_UPLOAD_SIZE", 5<<20)),
		MetricsFlushInterval: getDuration("METRICS_FLUSH_INTERVAL", 30*time.Second),
	}
}

// Address the HTTP server listens on.
func (c Config) ListenAddr() string {
	return c.SrvAddr + ":" + c.SrvPort
}

func getEnv(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok && val != "" {
		return val
	}
	return fallback
}

func getInt(key string, fallback int) int {
	val, err := strconv.Atoi(os.Getenv(key))
	if err != nil || val <= 0 {
		return fallback
	}
	return val
}

func getBool(key string, fallback bool) bool {
	val, err := strconv.ParseBool(os.Getenv(key))
	if err != nil {
		return fallback
	}
	return val
}

func getDuration(key string, fallback time.Duration) time.Duration {
	val, err := time.ParseDuration(os.Getenv(key))
	if err != nil || val <= 0 {
		return fallback
	}
	return val
}
