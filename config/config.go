package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds the application configuration
type Config struct {
	// Database (empty disables persistence)
	DatabaseURL string

	// Server
	ServerPort string

	// Executor backend: "local" or "sagemaker"
	ExecutorBackend string

	// AWS / SageMaker
	AWSRegion        string
	SageMakerRoleARN string
	TrainingImage    string
	OutputS3Path     string
	MetricName       string

	// Controller timing
	AdmissionInterval time.Duration
	PollInterval      time.Duration
}

// Load loads configuration from environment variables
func Load() *Config {
	return &Config{
		DatabaseURL:       getEnv("DATABASE_URL", ""),
		ServerPort:        getEnv("SERVER_PORT", "8080"),
		ExecutorBackend:   getEnv("EXECUTOR_BACKEND", "local"),
		AWSRegion:         getEnv("AWS_REGION", "us-east-1"),
		SageMakerRoleARN:  getEnv("SAGEMAKER_ROLE_ARN", ""),
		TrainingImage:     getEnv("TRAINING_IMAGE", ""),
		OutputS3Path:      getEnv("OUTPUT_S3_PATH", ""),
		MetricName:        getEnv("METRIC_NAME", "objective"),
		AdmissionInterval: getEnvMillis("ADMISSION_INTERVAL_MS", 2000),
		PollInterval:      getEnvMillis("POLL_INTERVAL_MS", 5000),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvMillis(key string, defaultMillis int) time.Duration {
	if value := os.Getenv(key); value != "" {
		if ms, err := strconv.Atoi(value); err == nil && ms > 0 {
			return time.Duration(ms) * time.Millisecond
		}
	}
	return time.Duration(defaultMillis) * time.Millisecond
}
