package admin

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
	goopenai "github.com/sashabaranov/go-openai"

	"github.com/skimzy/skimzy/internal/config"
	"github.com/skimzy/skimzy/internal/database"
	"github.com/skimzy/skimzy/internal/extract"
	"github.com/skimzy/skimzy/internal/gemini"
	"github.com/skimzy/skimzy/internal/logging"
	"github.com/skimzy/skimzy/internal/openai"
	"github.com/skimzy/skimzy/internal/repository"
	"github.com/skimzy/skimzy/internal/service"
	"github.com/skimzy/skimzy/internal/storage"
	"github.com/skimzy/skimzy/internal/vectorindex"
)

// llm bundles the three model-backed collaborators one provider serves.
type llm interface {
	service.Embedder
	service.ContentGenerator
	service.Answerer
}

// app holds the collaborators every daemon command builds from Config.
type app struct {
	cfg     *config.Config
	pool    *pgxpool.Pool
	index   vectorindex.Index
	model   llm
	storage *storage.S3Client
	closers []func()
}

func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

// loadConfig loads Config and installs the global logger.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	logging.Setup(cfg.Debug, cfg.Environment)
	return cfg, nil
}

func getDBPool(ctx context.Context, cfg *config.Config) (*pgxpool.Pool, error) {
	pool, err := database.NewPool(ctx, database.Config{URL: cfg.DatabaseURL, MaxConns: cfg.DBMaxConns})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return pool, nil
}

// newApp connects to every backing service. Object storage is optional.
func newApp(ctx context.Context, cfg *config.Config) (*app, error) {
	a := &app{cfg: cfg}

	pool, err := getDBPool(ctx, cfg)
	if err != nil {
		return nil, err
	}
	a.pool = pool
	a.closers = append(a.closers, pool.Close)

	if err := a.initIndex(ctx); err != nil {
		a.Close()
		return nil, err
	}

	if err := a.initModel(ctx); err != nil {
		a.Close()
		return nil, err
	}

	if cfg.HasS3() {
		if err := a.initStorage(ctx); err != nil {
			a.Close()
			return nil, err
		}
	} else {
		log.Warn().Msg("S3 not configured: uploaded PDFs will not be stored")
	}

	return a, nil
}

func (a *app) initIndex(ctx context.Context) error {
	cfg := a.cfg
	switch cfg.VectorBackend {
	case config.BackendQdrant:
		q, err := vectorindex.NewQdrant(vectorindex.QdrantConfig{
			Host:       cfg.QdrantHost,
			Port:       cfg.QdrantPort,
			APIKey:     cfg.QdrantAPIKey,
			UseTLS:     cfg.QdrantUseTLS,
			Collection: cfg.QdrantCollection,
			Dimension:  cfg.EmbeddingDimensions,
		})
		if err != nil {
			return err
		}
		a.closers = append(a.closers, func() { _ = q.Close() })
		a.index = q
	case config.BackendPGVector:
		a.index = vectorindex.NewPGVector(a.pool, cfg.EmbeddingDimensions)
	default:
		log.Warn().Msg("using in-memory vector index: points are lost on restart")
		a.index = vectorindex.NewMemory(cfg.EmbeddingDimensions)
	}

	if err := a.index.EnsureCollection(ctx); err != nil {
		return fmt.Errorf("failed to prepare vector index: %w", err)
	}
	log.Info().Str("backend", cfg.VectorBackend).Int("dimension", cfg.EmbeddingDimensions).Msg("vector index ready")
	return nil
}

func (a *app) initModel(ctx context.Context) error {
	cfg := a.cfg
	switch cfg.LLMProvider {
	case config.ProviderGemini:
		if !cfg.HasGemini() {
			return fmt.Errorf("SKIMZY_GEMINI_API_KEY is required for provider %s", cfg.LLMProvider)
		}
		gcfg := gemini.Config{
			APIKey:     cfg.GeminiAPIKey,
			Dimensions: cfg.EmbeddingDimensions,
			BatchSize:  cfg.EmbeddingBatchSize,
		}
		// Model names default to OpenAI ones; only pass through explicit Gemini models.
		if strings.HasPrefix(cfg.LLMModel, "gemini") {
			gcfg.ChatModel = cfg.LLMModel
		}
		if !strings.HasPrefix(cfg.EmbeddingModel, "text-embedding-3") {
			gcfg.EmbeddingModel = cfg.EmbeddingModel
		}
		client, err := gemini.NewClient(ctx, gcfg)
		if err != nil {
			return fmt.Errorf("failed to create gemini client: %w", err)
		}
		a.model = client
	default:
		if !cfg.HasOpenAI() {
			return fmt.Errorf("SKIMZY_OPENAI_API_KEY is required for provider %s", cfg.LLMProvider)
		}
		a.model = openai.NewClientWithConfig(openai.Config{
			APIKey:              cfg.OpenAIAPIKey,
			BaseURL:             cfg.OpenAIBaseURL,
			EmbeddingModel:      goopenai.EmbeddingModel(cfg.EmbeddingModel),
			EmbeddingDimensions: cfg.EmbeddingDimensions,
			ChatModel:           cfg.LLMModel,
			BatchSize:           cfg.EmbeddingBatchSize,
		})
	}
	log.Info().Str("provider", cfg.LLMProvider).Msg("model provider ready")
	return nil
}

func (a *app) initStorage(ctx context.Context) error {
	cfg := a.cfg
	client, err := storage.NewS3Client(ctx, storage.S3ClientConfig{
		Endpoint:        cfg.S3Endpoint,
		Region:          cfg.S3Region,
		AccessKeyID:     cfg.S3AccessKey,
		SecretAccessKey: cfg.S3SecretKey,
		Bucket:          cfg.S3Bucket,
		UsersFolder:     cfg.S3UsersFolder,
		PublicBaseURL:   cfg.S3PublicBaseURL,
		UsePathStyle:    true,
	})
	if err != nil {
		return fmt.Errorf("failed to create S3 client: %w", err)
	}
	if err := client.EnsureBucket(ctx); err != nil {
		return fmt.Errorf("failed to ensure S3 bucket: %w", err)
	}
	log.Info().Str("bucket", cfg.S3Bucket).Msg("S3 bucket ready")
	a.storage = client
	return nil
}

func (a *app) timeouts() service.Timeouts {
	return service.Timeouts{
		LLM:    a.cfg.LLMTimeout,
		Embed:  a.cfg.EmbedTimeout,
		Vector: a.cfg.VectorTimeout,
	}
}

func (a *app) chunkConfig() service.ChunkConfig {
	return service.ChunkConfig{Size: a.cfg.ChunkSize, Overlap: a.cfg.ChunkOverlap}
}

func (a *app) storageClient() service.StorageClientInterface {
	if a.storage == nil {
		return nil
	}
	return a.storage
}

func (a *app) authService() *service.AuthService {
	return service.NewAuthService(
		repository.NewUserRepository(a.pool),
		repository.NewAPIKeyRepository(a.pool),
		nil,
	).WithTxRunner(repository.NewTxRunner(a.pool))
}

func (a *app) reindexService() *service.ReindexService {
	return service.NewReindexService(
		repository.NewLibraryItemRepository(a.pool),
		repository.NewReindexJobRepository(a.pool),
		a.model,
		a.index,
		a.chunkConfig(),
		a.timeouts(),
	)
}

func (a *app) webExtractor() *extract.Web {
	var renderer extract.Renderer
	if a.cfg.BrowserRender {
		renderer = extract.NewChromeRenderer(a.cfg.ChromePath)
	}
	fetcher := extract.NewHTTPFetcher(&http.Client{Timeout: a.cfg.FetchTimeout})
	return extract.NewWeb(renderer, fetcher, extract.WebConfig{
		RenderTimeout: a.cfg.RenderTimeout,
		FetchTimeout:  a.cfg.FetchTimeout,
	})
}
