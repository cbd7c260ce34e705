package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Port         string `yaml:"port"`
	DatabaseURL  string `yaml:"database_url"`
	DatabasePath string `yaml:"database_path"`

	// Google Tasks mirror
	GoogleClientID     string `yaml:"google_client_id"`
	GoogleClientSecret string `yaml:"google_client_secret"`
	GoogleRefreshToken string `yaml:"google_refresh_token"`
	GoogleCredentials  string `yaml:"google_credentials"`
	GoogleTasklist     string `yaml:"google_tasklist"`

	// Remote call discipline
	RemoteMaxAttempts int           `yaml:"remote_max_attempts"`
	RemoteBaseDelay   time.Duration `yaml:"remote_base_delay"`
	RemoteTimeout     time.Duration `yaml:"remote_timeout"`

	// Reconciliation batch
	GoogleProjectID   string        `yaml:"google_project_id"`
	ReconcileTopic    string        `yaml:"reconcile_topic"`
	ReconcileInterval time.Duration `yaml:"reconcile_interval"`
	DailyDigest       bool          `yaml:"daily_digest"`

	// Notifications
	SlackWebhookURL     string `yaml:"slack_webhook_url"`
	FirebaseCredentials string `yaml:"firebase_credentials"`
	FCMTopic            string `yaml:"fcm_topic"`
	SnoozeAdvisory      string `yaml:"snooze_advisory"` // "every" or "crossing"

	APIJWTSecret string `yaml:"api_jwt_secret"`
}

func Load() *Config {
	// Load .env file if it exists
	_ = godotenv.Load()

	cfg := &Config{
		Port:                getEnv("PORT", "8080"),
		DatabaseURL:         getEnv("DATABASE_URL", ""),
		DatabasePath:        getEnv("DATABASE_PATH", "taskflow.db"),
		GoogleClientID:      getEnv("GOOGLE_CLIENT_ID", ""),
		GoogleClientSecret:  getEnv("GOOGLE_CLIENT_SECRET", ""),
		GoogleRefreshToken:  getEnv("GOOGLE_REFRESH_TOKEN", ""),
		GoogleCredentials:   getEnv("GOOGLE_CREDENTIALS", ""),
		GoogleTasklist:      getEnv("GOOGLE_TASKLIST", "Task manager"),
		RemoteMaxAttempts:   getEnvInt("REMOTE_MAX_ATTEMPTS", 3),
		RemoteBaseDelay:     getEnvDuration("REMOTE_BASE_DELAY", 2*time.Second),
		RemoteTimeout:       getEnvDuration("REMOTE_TIMEOUT", 10*time.Second),
		GoogleProjectID:     getEnv("GOOGLE_PROJECT_ID", ""),
		ReconcileTopic:      getEnv("RECONCILE_TOPIC", "taskflow-reconcile"),
		ReconcileInterval:   getEnvDuration("RECONCILE_INTERVAL", 24*time.Hour),
		DailyDigest:         getEnvBool("DAILY_DIGEST", false),
		SlackWebhookURL:     getEnv("SLACK_WEBHOOK_URL", ""),
		FirebaseCredentials: getEnv("FIREBASE_CREDENTIALS", ""),
		FCMTopic:            getEnv("FCM_TOPIC", "taskflow"),
		SnoozeAdvisory:      getEnv("SNOOZE_ADVISORY", "every"),
		APIJWTSecret:        getEnv("API_JWT_SECRET", ""),
	}

	if path := os.Getenv("TASKFLOW_CONFIG"); path != "" {
		if err := cfg.MergeFile(path); err != nil {
			log.Printf("[Config] Ignoring config file %s: %v", path, err)
		}
	}

	return cfg
}

// MergeFile overlays non-empty values from a YAML file
func (c *Config) MergeFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	var file Config
	if err := yaml.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	overlay(&c.Port, file.Port)
	overlay(&c.DatabaseURL, file.DatabaseURL)
	overlay(&c.DatabasePath, file.DatabasePath)
	overlay(&c.GoogleClientID, file.GoogleClientID)
	overlay(&c.GoogleClientSecret, file.GoogleClientSecret)
	overlay(&c.GoogleRefreshToken, file.GoogleRefreshToken)
	overlay(&c.GoogleCredentials, file.GoogleCredentials)
	overlay(&c.GoogleTasklist, file.GoogleTasklist)
	overlay(&c.GoogleProjectID, file.GoogleProjectID)
	overlay(&c.ReconcileTopic, file.ReconcileTopic)
	overlay(&c.SlackWebhookURL, file.SlackWebhookURL)
	overlay(&c.FirebaseCredentials, file.FirebaseCredentials)
	overlay(&c.FCMTopic, file.FCMTopic)
	overlay(&c.SnoozeAdvisory, file.SnoozeAdvisory)
	overlay(&c.APIJWTSecret, file.APIJWTSecret)
	if file.RemoteMaxAttempts > 0 {
		c.RemoteMaxAttempts = file.RemoteMaxAttempts
	}
	if file.RemoteBaseDelay > 0 {
		c.RemoteBaseDelay = file.RemoteBaseDelay
	}
	if file.RemoteTimeout > 0 {
		c.RemoteTimeout = file.RemoteTimeout
	}
	if file.ReconcileInterval > 0 {
		c.ReconcileInterval = file.ReconcileInterval
	}
	if file.DailyDigest {
		c.DailyDigest = true
	}
	return nil
}

func overlay(dst *string, value string) {
	if value != "" {
		*dst = value
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}
