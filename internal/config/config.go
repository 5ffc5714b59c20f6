package config

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	GitHub   GitHubConfig
	JWT      JWTConfig
	Polar    PolarConfig
	Judge    JudgeConfig
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Port       string
	Host       string
	APIBaseURL string // External API base URL (e.g., https://api.example.com)
	Env        string // Environment: development, staging, production
}

// IsDevelopment returns true if the environment is development
func (s *ServerConfig) IsDevelopment() bool {
	return s.Env == "development" || s.Env == ""
}

// BaseURL returns the base URL for the application
// If APIBaseURL is configured, it returns that, otherwise constructs from host:port
func (s *ServerConfig) BaseURL(path string) string {
	if s.APIBaseURL != "" {
		return s.APIBaseURL + path
	}

	host := s.Host
	// Handle 0.0.0.0 or empty host - use localhost for URLs
	if host == "0.0.0.0" || host == "" {
		host = "localhost"
	}
	return fmt.Sprintf("http://%s:%s%s", host, s.Port, path)
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	URL string
}

// GitHubConfig holds GitHub OAuth configuration
type GitHubConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
}

// JWTConfig holds JWT configuration
type JWTConfig struct {
	Secret string
}

// PolarConfig holds Polar payment configuration
type PolarConfig struct {
	AccessToken   string
	ProductID     string
	WebhookSecret string
	Server        string
	// DeadLetter enables persisting webhook events whose customer cannot be
	// resolved to a local user, for manual reconciliation.
	DeadLetter bool
}

// JudgeConfig holds code-execution judge configuration
type JudgeConfig struct {
	BaseURL    string
	LanguageID int
}

// ChallengesDir returns the optional on-disk challenge directory.
// Empty means the embedded challenge set is used.
func ChallengesDir() string {
	return os.Getenv("CHALLENGES_DIR")
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists (ignore error if file doesn't exist)
	_ = godotenv.Load()

	config := &Config{
		Server: ServerConfig{
			Port:       getEnv("PORT", "8080"),
			Host:       getEnv("HOST", "0.0.0.0"),
			APIBaseURL: getEnv("API_BASE_URL", ""),
			Env:        getEnv("ENV", "development"),
		},
		Database: DatabaseConfig{
			URL: getEnv("DATABASE_URL", ""),
		},
		GitHub: GitHubConfig{
			ClientID:     getEnv("GITHUB_CLIENT_ID", ""),
			ClientSecret: getEnv("GITHUB_CLIENT_SECRET", ""),
			RedirectURL:  getEnv("GITHUB_REDIRECT_URL", ""),
		},
		JWT: JWTConfig{
			Secret: getEnv("JWT_SECRET", ""),
		},
		Polar: PolarConfig{
			AccessToken:   getEnv("POLAR_ACCESS_TOKEN", ""),
			ProductID:     getEnv("POLAR_PRODUCT_ID", ""),
			WebhookSecret: getEnv("POLAR_WEBHOOK_SECRET", ""),
			Server:        getEnv("POLAR_SERVER", "sandbox"),
			DeadLetter:    getEnv("POLAR_DEAD_LETTER", "") == "true",
		},
		Judge: JudgeConfig{
			BaseURL:    getEnv("JUDGE_BASE_URL", "http://localhost:2358"),
			LanguageID: getEnvInt("JUDGE_LANGUAGE_ID", 50), // C (GCC) on Judge0
		},
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return config, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Database.URL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	if c.JWT.Secret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}
	return nil
}

// getEnv gets an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var n int
	if _, err := fmt.Sscanf(value, "%d", &n); err != nil {
		return defaultValue
	}
	return n
}
