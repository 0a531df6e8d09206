package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server   ServerConfig
	App      AppConfig
	Storage  StorageConfig
	Firebase FirebaseConfig
	Mongo    MongoConfig
	Postgres PostgresConfig
	Redis    RedisConfig
	LLM      LLMConfig
	GitHub   GitHubConfig
	AWS      AWSConfig
	Quota    QuotaConfig
}

type ServerConfig struct {
	Port            string
	AllowedOrigins  []string
	ShutdownTimeout time.Duration
}

type AppConfig struct {
	Environment string
	LogLevel    string
	Version     string
	// AuthMode is "firebase" or "dev". Dev trusts the X-User-Id header.
	AuthMode           string
	ArchetypesSeedPath string
}

type StorageConfig struct {
	// Driver selects the repository backend: firestore, mongo, postgres or memory.
	Driver string
}

type FirebaseConfig struct {
	CredentialsPath string
	ProjectID       string
}

type MongoConfig struct {
	URI      string
	Database string
}

type PostgresConfig struct {
	DSN string
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type LLMConfig struct {
	Provider          string
	GeminiAPIKey      string
	GeminiModel       string
	DeepseekAPIKey    string
	DeepseekModel     string
	DeepseekBaseURL   string
	OpenRouterAPIKey  string
	OpenRouterModel   string
	OpenRouterBaseURL string
	OpenRouterSiteURL string
	Timeout           time.Duration
	RequestsPerSecond float64
	Burst             int
}

type GitHubConfig struct {
	Token   string
	APIURL  string
	Default string // default owner when a request does not name one
}

type AWSConfig struct {
	PricingRegion string
}

type QuotaConfig struct {
	DailyLimit  int
	WeeklyLimit int
}

// Load reads the configuration and validates it for the API server.
func Load() (*Config, error) {
	cfg := Read()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Read loads .env and the environment without validating. Tools that only
// touch storage, such as the migrate command, start from here.
func Read() *Config {
	// Load .env file if it exists (ignore error in production)
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	return &Config{
		Server: ServerConfig{
			Port:            getEnv("PORT", "8080"),
			AllowedOrigins:  getEnvAsList("ALLOWED_ORIGINS", []string{"http://localhost:4200"}),
			ShutdownTimeout: getEnvAsDuration("SHUTDOWN_TIMEOUT", 10*time.Second),
		},
		App: AppConfig{
			Environment:        getEnv("APP_ENV", "development"),
			LogLevel:           getEnv("LOG_LEVEL", "info"),
			Version:            getEnv("APP_VERSION", "1.0.0"),
			AuthMode:           getEnv("AUTH_MODE", "firebase"),
			ArchetypesSeedPath: getEnv("ARCHETYPES_SEED_PATH", ""),
		},
		Storage: StorageConfig{
			Driver: strings.ToLower(getEnv("STORAGE_DRIVER", "firestore")),
		},
		Firebase: FirebaseConfig{
			CredentialsPath: getEnv("FIREBASE_CREDENTIALS_PATH", ""),
			ProjectID:       getEnv("FIREBASE_PROJECT_ID", ""),
		},
		Mongo: MongoConfig{
			URI:      getEnv("MONGO_URI", "mongodb://localhost:27017"),
			Database: getEnv("MONGO_DATABASE", "lexis"),
		},
		Postgres: PostgresConfig{
			DSN: getEnv("DB_DSN", ""),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", ""),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
		},
		LLM: LLMConfig{
			Provider:          strings.ToLower(getEnv("LLM_PROVIDER", "gemini")),
			GeminiAPIKey:      getEnv("GEMINI_API_KEY", ""),
			GeminiModel:       getEnv("GEMINI_MODEL", "gemini-2.5-flash"),
			DeepseekAPIKey:    getEnv("DEEPSEEK_API_KEY", ""),
			DeepseekModel:     getEnv("DEEPSEEK_MODEL", "deepseek-chat"),
			DeepseekBaseURL:   getEnv("DEEPSEEK_BASE_URL", "https://api.deepseek.com/v1"),
			OpenRouterAPIKey:  getEnv("OPENROUTER_API_KEY", ""),
			OpenRouterModel:   getEnv("OPENROUTER_MODEL", "deepseek/deepseek-chat"),
			OpenRouterBaseURL: getEnv("OPENROUTER_BASE_URL", "https://openrouter.ai/api/v1"),
			OpenRouterSiteURL: getEnv("OPENROUTER_SITE_URL", ""),
			Timeout:           getEnvAsDuration("LLM_TIMEOUT", 3*time.Minute),
			RequestsPerSecond: getEnvAsFloat("LLM_RPS", 2),
			Burst:             getEnvAsInt("LLM_BURST", 4),
		},
		GitHub: GitHubConfig{
			Token:   getEnv("GITHUB_TOKEN", ""),
			APIURL:  getEnv("GITHUB_API_URL", "https://api.github.com"),
			Default: getEnv("GITHUB_DEFAULT_OWNER", ""),
		},
		AWS: AWSConfig{
			PricingRegion: getEnv("AWS_PRICING_REGION", "us-east-1"),
		},
		Quota: QuotaConfig{
			DailyLimit:  getEnvAsInt("QUOTA_DAILY_LIMIT", 10),
			WeeklyLimit: getEnvAsInt("QUOTA_WEEKLY_LIMIT", 50),
		},
	}
}

func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("PORT is required")
	}

	switch c.Storage.Driver {
	case "firestore":
		if c.Firebase.CredentialsPath == "" {
			return fmt.Errorf("FIREBASE_CREDENTIALS_PATH is required for firestore storage")
		}
	case "mongo":
		if c.Mongo.URI == "" || c.Mongo.Database == "" {
			return fmt.Errorf("MONGO_URI and MONGO_DATABASE are required for mongo storage")
		}
	case "postgres":
		if c.Postgres.DSN == "" {
			return fmt.Errorf("DB_DSN is required for postgres storage")
		}
	case "memory":
	default:
		return fmt.Errorf("unknown STORAGE_DRIVER %q", c.Storage.Driver)
	}

	switch c.LLM.Provider {
	case "gemini":
		if c.LLM.GeminiAPIKey == "" {
			return fmt.Errorf("GEMINI_API_KEY is required")
		}
	case "deepseek":
		if c.LLM.DeepseekAPIKey == "" {
			return fmt.Errorf("DEEPSEEK_API_KEY is required")
		}
	case "openrouter":
		if c.LLM.OpenRouterAPIKey == "" {
			return fmt.Errorf("OPENROUTER_API_KEY is required")
		}
	default:
		return fmt.Errorf("unknown LLM_PROVIDER %q", c.LLM.Provider)
	}

	switch c.App.AuthMode {
	case "firebase":
		if c.Firebase.CredentialsPath == "" {
			return fmt.Errorf("FIREBASE_CREDENTIALS_PATH is required for firebase auth")
		}
	case "dev":
		if c.App.Environment == "production" {
			return fmt.Errorf("AUTH_MODE=dev is not allowed in production")
		}
	default:
		return fmt.Errorf("unknown AUTH_MODE %q", c.App.AuthMode)
	}

	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
		log.Printf("Warning: Invalid integer for %s, using default: %d", key, defaultValue)
		return defaultValue
	}

	return value
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		log.Printf("Warning: Invalid number for %s, using default: %v", key, defaultValue)
		return defaultValue
	}

	return value
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := time.ParseDuration(valueStr)
	if err != nil {
		log.Printf("Warning: Invalid duration for %s, using default: %s", key, defaultValue)
		return defaultValue
	}

	return value
}

func getEnvAsList(key string, defaultValue []string) []string {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	out := make([]string, 0, 4)
	for _, part := range strings.Split(valueStr, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
