package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port        string
	GinMode     string
	CORSOrigins []string

	// MongoDB
	MongoURI string
	DBName   string

	// Redis Configuration
	RedisURL      string
	RedisPassword string
	RedisDB       int

	RateLimitReqs   int
	RateLimitWindow int

	// Gemini credential pool, in rotation order
	GeminiAPIKeys         []string
	GoogleEmbeddingsModel string // e.g., "text-embedding-004"
	GeminiTier            string
	ChatModel             string
	ChatMaxSteps          int

	// Vector store
	VectorStore       string // "qdrant" (default), "memory"
	QdrantURL         string
	QdrantAPIKey      string
	VectorDimensions  int
	SearchTopK        int
	SearchCollections []string

	// Ingestion
	BatchSize        int
	BatchDelay       time.Duration
	RetryBackoff     time.Duration
	MaxChunkSize     int
	ChunkOverlap     int
	MinChunkLength   int
	DefaultSourceTag string
	BooksDir         string
	InboxDir         string

	// External tools
	NewsAPIKey        string
	NewsAPIURL        string
	OpenWeatherAPIKey string
	OpenWeatherAPIURL string

	// Telemetry
	OTelEnabled  bool
	OTelEndpoint string
}

func LoadConfig() (*Config, error) {
	// Load .env file if exists
	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(); err != nil {
			return nil, fmt.Errorf("error loading .env file: %v", err)
		}
	}

	cfg := &Config{
		Port:        getEnv("PORT", "8080"),
		GinMode:     getEnv("GIN_MODE", "debug"),
		CORSOrigins: strings.Split(getEnv("CORS_ORIGINS", "http://localhost:3000,http://localhost:8080"), ","),

		MongoURI: getEnv("MONGO_URI", "mongodb://localhost:27017"),
		DBName:   getEnv("DB_NAME", "lillith"),

		// Redis Configuration
		RedisURL:      getEnv("REDIS_URL", "localhost:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("REDIS_DB", 0),

		RateLimitReqs:   getEnvInt("RATE_LIMIT_REQUESTS", 100),
		RateLimitWindow: getEnvInt("RATE_LIMIT_WINDOW", 60),

		GeminiAPIKeys:         geminiKeys(),
		GoogleEmbeddingsModel: getEnv("GOOGLE_EMBEDDINGS_MODEL", "text-embedding-004"),
		GeminiTier:            getEnv("GEMINI_TIER", "free"),
		ChatModel:             getEnv("CHAT_MODEL", "gemini-2.5-flash"),
		ChatMaxSteps:          getEnvInt("CHAT_MAX_STEPS", 5),

		VectorStore:       getEnv("VECTOR_STORE", "qdrant"),
		QdrantURL:         getEnv("QDRANT_URL", "http://localhost:6334"),
		QdrantAPIKey:      getEnv("QDRANT_API_KEY", ""),
		VectorDimensions:  getEnvInt("VECTOR_DIM", 0),
		SearchTopK:        getEnvInt("SEARCH_TOP_K", 5),
		SearchCollections: getEnvList("SEARCH_COLLECTIONS", "Hadith,Tafseer"),

		BatchSize:        getEnvInt("INGEST_BATCH_SIZE", 20),
		BatchDelay:       getEnvMillis("INGEST_BATCH_DELAY_MS", 1000),
		RetryBackoff:     getEnvMillis("INGEST_RETRY_BACKOFF_MS", 1000),
		MaxChunkSize:     getEnvInt("MAX_CHUNK_SIZE", 1000),
		ChunkOverlap:     getEnvInt("CHUNK_OVERLAP", 200),
		MinChunkLength:   getEnvInt("MIN_CHUNK_LENGTH", 6),
		DefaultSourceTag: getEnv("DEFAULT_SOURCE_TAG", "General"),
		BooksDir:         getEnv("BOOKS_DIR", "./Islamic_Books"),
		InboxDir:         getEnv("INBOX_DIR", ""),

		NewsAPIKey:        getEnv("NEWS_API_KEY", ""),
		NewsAPIURL:        getEnv("NEWS_API_URL", "https://newsapi.org/v2/"),
		OpenWeatherAPIKey: getEnv("OPENWEATHER_API_KEY", ""),
		OpenWeatherAPIURL: getEnv("OPENWEATHER_API_URL", "https://api.openweathermap.org/data/2.5"),

		OTelEnabled:  getEnvBool("OTEL_ENABLED", false),
		OTelEndpoint: getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks the settings every entry point depends on.
func (c *Config) Validate() error {
	if len(c.GeminiAPIKeys) == 0 {
		return fmt.Errorf("GEMINI_API_KEY (or GEMINI_API_KEY_1..10) is required - set it in .env file")
	}

	// No default: it must match the embedding model output.
	if c.VectorDimensions <= 0 {
		return fmt.Errorf("VECTOR_DIM is required and must match the embedding model output")
	}

	if c.MaxChunkSize <= 0 || c.ChunkOverlap <= 0 || c.ChunkOverlap >= c.MaxChunkSize {
		return fmt.Errorf("invalid chunking: MAX_CHUNK_SIZE=%d CHUNK_OVERLAP=%d", c.MaxChunkSize, c.ChunkOverlap)
	}

	if c.BatchSize <= 0 {
		return fmt.Errorf("INGEST_BATCH_SIZE must be positive, got %d", c.BatchSize)
	}

	switch c.VectorStore {
	case "qdrant", "memory":
	default:
		return fmt.Errorf("unknown VECTOR_STORE: %s", c.VectorStore)
	}

	if len(c.SearchCollections) == 0 {
		return fmt.Errorf("SEARCH_COLLECTIONS must name at least one collection")
	}

	return nil
}
