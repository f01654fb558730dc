package config

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/rs/zerolog/log"
)

const (
	ProviderOpenAI = "openai"
	ProviderGemini = "gemini"

	BackendQdrant   = "qdrant"
	BackendPGVector = "pgvector"
	BackendMemory   = "memory"
)

// Config is built once at startup and treated as read-only afterwards.
type Config struct {
	Port          string `envconfig:"PORT" default:"8080"`
	Debug         bool   `envconfig:"DEBUG" default:"false"`
	Environment   string `envconfig:"ENVIRONMENT" default:"development"`
	SentryDSN     string `envconfig:"SENTRY_DSN"`
	SentryRelease string `envconfig:"SENTRY_RELEASE"`

	DatabaseURL string `envconfig:"DATABASE_URL" required:"true"`
	DBMaxConns  int32  `envconfig:"DB_MAX_CONNS" default:"10"`

	S3Endpoint      string `envconfig:"S3_ENDPOINT"`
	S3AccessKey     string `envconfig:"S3_ACCESS_KEY_ID"`
	S3SecretKey     string `envconfig:"S3_SECRET_ACCESS_KEY"`
	S3Bucket        string `envconfig:"S3_BUCKET" default:"skimzy-uploads"`
	S3Region        string `envconfig:"S3_REGION" default:"us-east-1"`
	S3UsersFolder   string `envconfig:"S3_USERS_FOLDER" default:"users"`
	S3PublicBaseURL string `envconfig:"S3_PUBLIC_BASE_URL"`

	LLMProvider         string `envconfig:"LLM_PROVIDER" default:"openai"`
	OpenAIAPIKey        string `envconfig:"OPENAI_API_KEY"`
	OpenAIBaseURL       string `envconfig:"OPENAI_BASE_URL"`
	GeminiAPIKey        string `envconfig:"GEMINI_API_KEY"`
	LLMModel            string `envconfig:"LLM_MODEL" default:"gpt-4o-mini"`
	EmbeddingModel      string `envconfig:"EMBEDDING_MODEL" default:"text-embedding-3-small"`
	EmbeddingDimensions int    `envconfig:"EMBEDDING_DIMENSIONS" default:"1536"`
	EmbeddingBatchSize  int    `envconfig:"EMBEDDING_BATCH_SIZE" default:"100"`

	VectorBackend    string `envconfig:"VECTOR_BACKEND" default:"qdrant"`
	QdrantHost       string `envconfig:"QDRANT_HOST" default:"localhost"`
	QdrantPort       int    `envconfig:"QDRANT_PORT" default:"6334"`
	QdrantAPIKey     string `envconfig:"QDRANT_API_KEY"`
	QdrantUseTLS     bool   `envconfig:"QDRANT_USE_TLS" default:"false"`
	QdrantCollection string `envconfig:"QDRANT_COLLECTION" default:"skimzy_vectors"`

	ChunkSize    int `envconfig:"CHUNK_SIZE" default:"500"`
	ChunkOverlap int `envconfig:"CHUNK_OVERLAP" default:"50"`
	SearchLimit  int `envconfig:"SEARCH_LIMIT" default:"5"`

	LLMTimeout    time.Duration `envconfig:"LLM_TIMEOUT" default:"90s"`
	EmbedTimeout  time.Duration `envconfig:"EMBED_TIMEOUT" default:"60s"`
	VectorTimeout time.Duration `envconfig:"VECTOR_TIMEOUT" default:"15s"`
	FetchTimeout  time.Duration `envconfig:"FETCH_TIMEOUT" default:"25s"`
	RenderTimeout time.Duration `envconfig:"RENDER_TIMEOUT" default:"20s"`

	// BrowserRender enables headless Chrome rendering before the plain fetch.
	BrowserRender bool   `envconfig:"BROWSER_RENDER" default:"true"`
	ChromePath    string `envconfig:"CHROME_PATH"`

	RateLimitPerSecond float64 `envconfig:"RATE_LIMIT_PER_SECOND" default:"5"`
	RateLimitBurst     int     `envconfig:"RATE_LIMIT_BURST" default:"10"`

	ReindexPollInterval time.Duration `envconfig:"REINDEX_POLL_INTERVAL" default:"5s"`
	ReindexBatchSize    int           `envconfig:"REINDEX_BATCH_SIZE" default:"10"`

	// Bootstrap: create an initial user and API key on startup
	InitUserEmail string `envconfig:"INIT_USER_EMAIL"`
	InitAPIKey    string `envconfig:"INIT_API_KEY"`
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("SKIMZY", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	return cfg
}

// Validate checks cross-field constraints envconfig cannot express.
func (c *Config) Validate() error {
	switch c.LLMProvider {
	case ProviderOpenAI, ProviderGemini:
	default:
		return fmt.Errorf("invalid LLM_PROVIDER %q: must be %s or %s", c.LLMProvider, ProviderOpenAI, ProviderGemini)
	}

	switch c.VectorBackend {
	case BackendQdrant, BackendPGVector, BackendMemory:
	default:
		return fmt.Errorf("invalid VECTOR_BACKEND %q", c.VectorBackend)
	}

	if c.EmbeddingDimensions <= 0 {
		return fmt.Errorf("EMBEDDING_DIMENSIONS must be positive, got %d", c.EmbeddingDimensions)
	}
	if c.ChunkSize <= 0 {
		return fmt.Errorf("CHUNK_SIZE must be positive, got %d", c.ChunkSize)
	}
	if c.ChunkOverlap < 0 || c.ChunkOverlap >= c.ChunkSize {
		return fmt.Errorf("CHUNK_OVERLAP must be in [0, CHUNK_SIZE), got %d", c.ChunkOverlap)
	}
	if c.SearchLimit <= 0 {
		return fmt.Errorf("SEARCH_LIMIT must be positive, got %d", c.SearchLimit)
	}
	if c.EmbeddingBatchSize <= 0 {
		return fmt.Errorf("EMBEDDING_BATCH_SIZE must be positive, got %d", c.EmbeddingBatchSize)
	}

	return nil
}

func (c *Config) HasS3() bool {
	return c.S3Endpoint != "" && c.S3AccessKey != "" && c.S3SecretKey != ""
}

func (c *Config) HasOpenAI() bool {
	return c.OpenAIAPIKey != ""
}

func (c *Config) HasGemini() bool {
	return c.GeminiAPIKey != ""
}

func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}
