package config

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config represents the complete application configuration
type Config struct {
	Server        ServerConfig
	Database      DatabaseConfig
	Storage       StorageConfig
	Ingestion     IngestionConfig
	Retrieval     RetrievalConfig
	Providers     ProvidersConfig
	Observability ObservabilityConfig
	Environment   string
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host            string
	Port            int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

// DatabaseConfig holds PostgreSQL database configuration.
// When ConnectionString (from DATABASE_URL) is set, it takes precedence over individual fields.
type DatabaseConfig struct {
	ConnectionString string // From DATABASE_URL when set
	Host             string
	Port             int
	User             string
	Password         string
	Database         string
	SSLMode          string
	MaxOpenConns     int
	MaxIdleConns     int
	ConnMaxLifetime  time.Duration
}

// DSN returns the connection string for database/sql
func (c DatabaseConfig) DSN() string {
	if c.ConnectionString != "" {
		return c.ConnectionString
	}
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode)
}

// LogString returns a connection description safe for logging (no password)
func (c DatabaseConfig) LogString() string {
	if c.ConnectionString != "" {
		if u, err := url.Parse(c.ConnectionString); err == nil {
			u.User = url.User(u.User.Username())
			return u.Redacted()
		}
		return "DATABASE_URL"
	}
	return fmt.Sprintf("host=%s port=%d dbname=%s", c.Host, c.Port, c.Database)
}

// StorageConfig holds raw file retention configuration
type StorageConfig struct {
	UploadDir string
}

// IngestionConfig holds document chunking and embedding batch configuration
type IngestionConfig struct {
	ChunkSize          int
	ChunkOverlap       int
	EmbeddingBatchSize int
}

// RetrievalConfig holds default retrieval parameters
type RetrievalConfig struct {
	TopK                int
	SimilarityThreshold float64

	// MergePolicy selects how knowledge-base and web sources are combined:
	// "local_first" lists all knowledge-base sources before web sources,
	// "interleave" alternates between the two lists.
	MergePolicy string
}

// MergePolicyLocalFirst and MergePolicyInterleave are the supported merge policies
const (
	MergePolicyLocalFirst = "local_first"
	MergePolicyInterleave = "interleave"
)

// ProvidersConfig holds external provider configurations
type ProvidersConfig struct {
	Embedding  EmbeddingConfig
	Generation GenerationConfig
	Search     SearchConfig
}

// EmbeddingConfig holds embedding provider configuration
type EmbeddingConfig struct {
	APIKey     string
	BaseURL    string
	Model      string
	Dimension  int
	Timeout    time.Duration
	MaxRetries int
	RetryDelay time.Duration
}

// GenerationConfig holds generation provider configuration
type GenerationConfig struct {
	APIKey     string
	BaseURL    string
	Model      string
	Timeout    time.Duration
	MaxRetries int
	RetryDelay time.Duration
}

// SearchConfig holds web search provider configuration
type SearchConfig struct {
	// Provider selects the web search backend: "serper", "bing" or "" (disabled)
	Provider     string
	SerperAPIKey string
	ResultCount  int
	Timeout      time.Duration
}

// ObservabilityConfig holds logging configuration
type ObservabilityConfig struct {
	LogLevel  string
	LogFormat string // json or text
}

// New creates a new Config instance by loading environment variables
func New(ctx context.Context) (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load(".env")

	cfg := &Config{
		Environment: getEnv("ENVIRONMENT", "development"),
		Server: ServerConfig{
			Host:            getEnv("SERVER_HOST", "0.0.0.0"),
			Port:            getEnvAsInt("SERVER_PORT", 8080),
			ReadTimeout:     getEnvAsDuration("SERVER_READ_TIMEOUT", 30*time.Second),
			WriteTimeout:    getEnvAsDuration("SERVER_WRITE_TIMEOUT", 60*time.Second),
			ShutdownTimeout: getEnvAsDuration("SERVER_SHUTDOWN_TIMEOUT", 15*time.Second),
		},
		Database: DatabaseConfig{
			ConnectionString: getEnv("DATABASE_URL", ""),
			Host:             getEnv("DB_HOST", "localhost"),
			Port:             getEnvAsInt("DB_PORT", 5432),
			User:             getEnv("DB_USER", "postgres"),
			Password:         getEnv("DB_PASSWORD", ""),
			Database:         getEnv("DB_NAME", "knowledge_engine"),
			SSLMode:          getEnv("DB_SSLMODE", "disable"),
			MaxOpenConns:     getEnvAsInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns:     getEnvAsInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime:  getEnvAsDuration("DB_CONN_MAX_LIFETIME", 5*time.Minute),
		},
		Storage: StorageConfig{
			UploadDir: getEnv("UPLOAD_DIR", "uploads"),
		},
		Ingestion: IngestionConfig{
			ChunkSize:          getEnvAsInt("CHUNK_SIZE", 500),
			ChunkOverlap:       getEnvAsInt("CHUNK_OVERLAP", 50),
			EmbeddingBatchSize: getEnvAsInt("EMBEDDING_BATCH_SIZE", 64),
		},
		Retrieval: RetrievalConfig{
			TopK:                getEnvAsInt("TOP_K", 5),
			SimilarityThreshold: getEnvAsFloat("SIMILARITY_THRESHOLD", 0.7),
			MergePolicy:         getEnv("RETRIEVAL_MERGE_POLICY", MergePolicyLocalFirst),
		},
		Providers: ProvidersConfig{
			Embedding: EmbeddingConfig{
				APIKey:     getEnv("EMBEDDING_API_KEY", ""),
				BaseURL:    getEnv("EMBEDDING_BASE_URL", "https://api.openai.com/v1"),
				Model:      getEnv("EMBEDDING_MODEL", "text-embedding-3-small"),
				Dimension:  getEnvAsInt("EMBEDDING_DIMENSION", 1536),
				Timeout:    getEnvAsDuration("PROVIDER_TIMEOUT", 30*time.Second),
				MaxRetries: getEnvAsInt("PROVIDER_MAX_RETRIES", 2),
				RetryDelay: getEnvAsDuration("PROVIDER_RETRY_DELAY", time.Second),
			},
			Generation: GenerationConfig{
				APIKey:     getEnv("GENERATION_API_KEY", ""),
				BaseURL:    getEnv("GENERATION_BASE_URL", "https://api.deepseek.com/v1"),
				Model:      getEnv("GENERATION_MODEL", "deepseek-chat"),
				Timeout:    getEnvAsDuration("GENERATION_TIMEOUT", 60*time.Second),
				MaxRetries: getEnvAsInt("PROVIDER_MAX_RETRIES", 2),
				RetryDelay: getEnvAsDuration("PROVIDER_RETRY_DELAY", time.Second),
			},
			Search: SearchConfig{
				Provider:     getEnv("SEARCH_PROVIDER", "bing"),
				SerperAPIKey: getEnv("SERPER_API_KEY", ""),
				ResultCount:  getEnvAsInt("SEARCH_RESULTS_COUNT", 5),
				Timeout:      getEnvAsDuration("SEARCH_TIMEOUT", 15*time.Second),
			},
		},
		Observability: ObservabilityConfig{
			LogLevel:  getEnv("LOG_LEVEL", "info"),
			LogFormat: getEnv("LOG_FORMAT", "json"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks configuration invariants
func (c *Config) Validate() error {
	if c.Ingestion.ChunkSize <= 0 {
		return fmt.Errorf("CHUNK_SIZE must be positive, got %d", c.Ingestion.ChunkSize)
	}
	if c.Ingestion.ChunkOverlap < 0 || c.Ingestion.ChunkOverlap >= c.Ingestion.ChunkSize {
		return fmt.Errorf("CHUNK_OVERLAP must be in [0, CHUNK_SIZE), got %d", c.Ingestion.ChunkOverlap)
	}
	if c.Ingestion.EmbeddingBatchSize <= 0 {
		return fmt.Errorf("EMBEDDING_BATCH_SIZE must be positive, got %d", c.Ingestion.EmbeddingBatchSize)
	}
	if c.Providers.Embedding.Dimension <= 0 {
		return fmt.Errorf("EMBEDDING_DIMENSION must be positive, got %d", c.Providers.Embedding.Dimension)
	}
	if c.Retrieval.TopK <= 0 {
		return fmt.Errorf("TOP_K must be positive, got %d", c.Retrieval.TopK)
	}
	switch c.Retrieval.MergePolicy {
	case MergePolicyLocalFirst, MergePolicyInterleave:
	default:
		return fmt.Errorf("RETRIEVAL_MERGE_POLICY must be %q or %q, got %q",
			MergePolicyLocalFirst, MergePolicyInterleave, c.Retrieval.MergePolicy)
	}
	switch c.Providers.Search.Provider {
	case "serper", "bing", "":
	default:
		return fmt.Errorf("SEARCH_PROVIDER must be \"serper\", \"bing\" or empty, got %q", c.Providers.Search.Provider)
	}
	return nil
}

// IsDevelopment returns true when running in the development environment
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseFloat(value, 64); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}
