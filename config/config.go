package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port          string
	DatabaseURL   string
	SessionSecret string
	ClientURL     string
	UploadDir     string
	SessionTTL    time.Duration
}

func LoadConfig() (*Config, error) {
	// Load .env file if it exists
	err := godotenv.Load()
	if err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = "4000" // default port
	}

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		return nil, errors.New("DATABASE_URL environment variable is required")
	}

	secret := os.Getenv("SESSION_SECRET")
	if secret == "" {
		return nil, errors.New("SESSION_SECRET environment variable is required")
	}

	clientURL := os.Getenv("CLIENT_URL")
	if clientURL == "" {
		return nil, errors.New("CLIENT_URL environment variable is required")
	}

	uploadDir := os.Getenv("UPLOAD_DIR")
	if uploadDir == "" {
		uploadDir = "uploads"
	}

	// Session lifetime is explicit so nobody depends on signing-library
	// defaults.
	sessionTTL := 24 * time.Hour
	if v := os.Getenv("SESSION_TTL"); v != "" {
		sessionTTL, err = time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("invalid SESSION_TTL: %w", err)
		}
	}

	return &Config{
		Port:          port,
		DatabaseURL:   dbURL,
		SessionSecret: secret,
		ClientURL:     clientURL,
		UploadDir:     uploadDir,
		SessionTTL:    sessionTTL,
	}, nil
}

func (c *Config) Addr() string {
	return ":" + c.Port
}
