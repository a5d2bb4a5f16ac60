package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Database DatabaseConfig
	JWT      JWTConfig
	App      AppConfig
	Storage  StorageConfig
	Gate     GateConfig
	Geocode  GeocodeConfig
	Detector DetectorConfig
	Session  SessionConfig
}

type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Name     string
	SSLMode  string
}

// JWTConfig holds JWT configuration
type JWTConfig struct {
	Secret            string
	RefreshExpiration string
	AccessExpiration  string
}

// AppConfig holds application configuration
type AppConfig struct {
	Port        int
	Env         string
	LogLevel    string
	FrontendURL string
	// Timezone used to bucket capture timestamps into calendar days.
	Timezone string
}

type StorageConfig struct {
	Type     string
	BasePath string
	BaseURL  string
}

// GateConfig tunes the automatic capture gate.
type GateConfig struct {
	ConfidenceThreshold float64
	SmileThreshold      float64
	ArmDelay            time.Duration
	Cooldown            time.Duration
	PollInterval        time.Duration
}

type GeocodeConfig struct {
	BaseURL   string
	UserAgent string
	Timeout   time.Duration
}

type DetectorConfig struct {
	BaseURL string
	Timeout time.Duration
}

type SessionConfig struct {
	// Sessions with no frame activity for this long get reaped.
	IdleTimeout  time.Duration
	ReapInterval time.Duration
}

func Load() (*Config, error) {
	// .env is optional outside local development
	_ = godotenv.Load()

	config := &Config{}

	dbPort, err := strconv.Atoi(getEnv("DB_PORT", "5432"))
	if err != nil {
		return nil, fmt.Errorf("invalid DB_PORT: %w", err)
	}

	config.Database = DatabaseConfig{
		Host:     getEnv("DB_HOST", "localhost"),
		Port:     dbPort,
		User:     getEnv("DB_USER", "postgres"),
		Password: getEnv("DB_PASSWORD", ""),
		Name:     getEnv("DB_NAME", "presence"),
		SSLMode:  getEnv("DB_SSL_MODE", "disable"),
	}

	appPort, err := strconv.Atoi(getEnv("APP_PORT", "8080"))
	if err != nil {
		return nil, fmt.Errorf("invalid APP_PORT: %w", err)
	}

	config.App = AppConfig{
		Port:        appPort,
		Env:         getEnv("APP_ENV", "development"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		FrontendURL: getEnv("FRONTEND_URL", "http://localhost:3000"),
		Timezone:    getEnv("APP_TIMEZONE", "Asia/Jakarta"),
	}

	config.JWT = JWTConfig{
		Secret:            getEnv("JWT_SECRET_KEY", ""),
		RefreshExpiration: getEnv("JWT_REFRESH_EXPIRATION_TIME", "168h"),
		AccessExpiration:  getEnv("JWT_ACCESS_EXPIRATION_TIME", "1h"),
	}

	config.Storage = StorageConfig{
		Type:     getEnv("STORAGE_TYPE", "local"),
		BasePath: getEnv("STORAGE_BASE_PATH", "./uploads"),
		BaseURL:  getEnv("STORAGE_BASE_URL", "http://localhost:8080/uploads"),
	}

	confidence, err := getEnvFloat("GATE_CONFIDENCE_THRESHOLD", 0.72)
	if err != nil {
		return nil, err
	}
	smile, err := getEnvFloat("GATE_SMILE_THRESHOLD", 0.58)
	if err != nil {
		return nil, err
	}
	armDelay, err := getEnvDuration("GATE_ARM_DELAY", 2*time.Second)
	if err != nil {
		return nil, err
	}
	cooldown, err := getEnvDuration("GATE_COOLDOWN", 5*time.Second)
	if err != nil {
		return nil, err
	}
	pollInterval, err := getEnvDuration("GATE_POLL_INTERVAL", 1100*time.Millisecond)
	if err != nil {
		return nil, err
	}

	config.Gate = GateConfig{
		ConfidenceThreshold: confidence,
		SmileThreshold:      smile,
		ArmDelay:            armDelay,
		Cooldown:            cooldown,
		PollInterval:        pollInterval,
	}

	geocodeTimeout, err := getEnvDuration("GEOCODE_TIMEOUT", 10*time.Second)
	if err != nil {
		return nil, err
	}
	config.Geocode = GeocodeConfig{
		BaseURL:   getEnv("GEOCODE_BASE_URL", "https://nominatim.openstreetmap.org"),
		UserAgent: getEnv("GEOCODE_USER_AGENT", "presence-backend/1.0"),
		Timeout:   geocodeTimeout,
	}

	detectorTimeout, err := getEnvDuration("DETECTOR_TIMEOUT", 15*time.Second)
	if err != nil {
		return nil, err
	}
	config.Detector = DetectorConfig{
		BaseURL: getEnv("DETECTOR_BASE_URL", ""),
		Timeout: detectorTimeout,
	}

	idleTimeout, err := getEnvDuration("SESSION_IDLE_TIMEOUT", 5*time.Minute)
	if err != nil {
		return nil, err
	}
	reapInterval, err := getEnvDuration("SESSION_REAP_INTERVAL", 1*time.Minute)
	if err != nil {
		return nil, err
	}
	config.Session = SessionConfig{
		IdleTimeout:  idleTimeout,
		ReapInterval: reapInterval,
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Database.Password == "" {
		return fmt.Errorf("DB_PASSWORD is required")
	}
	if c.JWT.Secret == "" {
		return fmt.Errorf("JWT_SECRET_KEY is required")
	}
	if c.Gate.ConfidenceThreshold <= 0 || c.Gate.ConfidenceThreshold >= 1 {
		return fmt.Errorf("GATE_CONFIDENCE_THRESHOLD must be between 0 and 1")
	}
	if c.Gate.SmileThreshold <= 0 || c.Gate.SmileThreshold >= 1 {
		return fmt.Errorf("GATE_SMILE_THRESHOLD must be between 0 and 1")
	}
	if _, err := time.LoadLocation(c.App.Timezone); err != nil {
		return fmt.Errorf("invalid APP_TIMEZONE: %w", err)
	}
	return nil
}

// DatabaseURL returns the PostgreSQL connection string
func (c *Config) DatabaseURL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.Name,
		c.Database.SSLMode,
	)
}

// Location returns the configured local timezone.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.App.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) (float64, error) {
	value := os.Getenv(key)
	if value == "" {
		return fallback, nil
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return f, nil
}

func getEnvDuration(key string, fallback time.Duration) (time.Duration, error) {
	value := os.Getenv(key)
	if value == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}
