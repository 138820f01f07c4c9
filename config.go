package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
)

type Config struct {
	Port        string
	Environment string

	MongoURI string
	MongoDB  string

	JWTAccessSecret  string
	JWTRefreshSecret string

	SMTPHost string
	SMTPPort string
	SMTPUser string
	SMTPPass string

	AWSRegion    string
	AWSEndpoint  string
	AWSAccessKey string
	AWSSecretKey string
	S3Bucket     string

	RedisAddr string

	UploadDir string
	BaseURL   string
}

func LoadConfig() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Port:             getEnv("PORT", "5000"),
		Environment:      getEnv("APP_ENV", "development"),
		MongoURI:         getEnv("MONGO_URI", "mongodb://localhost:27017"),
		MongoDB:          getEnv("MONGO_DB", "marketplace"),
		JWTAccessSecret:  os.Getenv("JWT_ACCESS_SECRET"),
		JWTRefreshSecret: os.Getenv("JWT_REFRESH_SECRET"),
		SMTPHost:         os.Getenv("SMTP_HOST"),
		SMTPPort:         getEnv("SMTP_PORT", "587"),
		SMTPUser:         os.Getenv("SMTP_USER"),
		SMTPPass:         os.Getenv("SMTP_PASS"),
		AWSRegion:        getEnv("AWS_REGION", "us-east-1"),
		AWSEndpoint:      os.Getenv("AWS_ENDPOINT"),
		AWSAccessKey:     os.Getenv("AWS_ACCESS_KEY_ID"),
		AWSSecretKey:     os.Getenv("AWS_SECRET_ACCESS_KEY"),
		S3Bucket:         os.Getenv("S3_BUCKET"),
		RedisAddr:        os.Getenv("REDIS_ADDR"),
		UploadDir:        getEnv("UPLOAD_DIR", "uploads"),
		BaseURL:          getEnv("BASE_URL", "http://localhost:5000"),
	}

	if cfg.JWTAccessSecret == "" || cfg.JWTRefreshSecret == "" {
		return nil, fmt.Errorf("JWT_ACCESS_SECRET and JWT_REFRESH_SECRET are required")
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}
