package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	ServerPort string
	SiteURL    string

	BackendURL string
	BackendKey string
	JWTSecret  string

	ProfileRetryMax  int
	ProfileRetryBase time.Duration

	RedisURL string

	AuthRateRPS   float64
	AuthRateBurst int

	LogLevel  string
	LogPretty bool
}

func LoadConfig() (*Config, error) {
	err := godotenv.Load()
	if err != nil {
		log.Println("No .env file found or error loading it, relying on environment variables")
	}

	backendURL := os.Getenv("BACKEND_URL")
	if backendURL == "" {
		return nil, fmt.Errorf("BACKEND_URL is required")
	}
	backendKey := os.Getenv("BACKEND_ANON_KEY")
	if backendKey == "" {
		return nil, fmt.Errorf("BACKEND_ANON_KEY is required")
	}

	serverPort := os.Getenv("SERVER_PORT")
	if serverPort == "" {
		serverPort = "8080"
	}

	siteURL := os.Getenv("SITE_URL")
	if siteURL == "" {
		siteURL = "http://localhost:" + serverPort + "/"
	}

	profileRetryMax, err := strconv.Atoi(os.Getenv("PROFILE_RETRY_MAX"))
	if err != nil || profileRetryMax <= 0 {
		profileRetryMax = 7
	}

	profileRetryBaseMS, err := strconv.Atoi(os.Getenv("PROFILE_RETRY_BASE_MS"))
	if err != nil || profileRetryBaseMS <= 0 {
		profileRetryBaseMS = 500
	}

	authRateRPS, err := strconv.ParseFloat(os.Getenv("AUTH_RATE_RPS"), 64)
	if err != nil || authRateRPS <= 0 {
		authRateRPS = 1
	}

	authRateBurst, err := strconv.Atoi(os.Getenv("AUTH_RATE_BURST"))
	if err != nil || authRateBurst <= 0 {
		authRateBurst = 5
	}

	logLevel := os.Getenv("LOG_LEVEL")
	if logLevel == "" {
		logLevel = "info"
	}

	return &Config{
		ServerPort: serverPort,
		SiteURL:    siteURL,

		BackendURL: backendURL,
		BackendKey: backendKey,
		JWTSecret:  os.Getenv("BACKEND_JWT_SECRET"),

		ProfileRetryMax:  profileRetryMax,
		ProfileRetryBase: time.Duration(profileRetryBaseMS) * time.Millisecond,

		RedisURL: os.Getenv("REDIS_URL"),

		AuthRateRPS:   authRateRPS,
		AuthRateBurst: authRateBurst,

		LogLevel:  logLevel,
		LogPretty: os.Getenv("LOG_PRETTY") == "true",
	}, nil
}
