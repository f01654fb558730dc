// Package gemini provides the embedder, content generator and answerer on
// top of the Google Gen AI SDK.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"google.golang.org/genai"

	"github.com/skimzy/skimzy/internal/prompt"
)

const (
	DefaultChatModel      = "gemini-2.0-flash"
	DefaultEmbeddingModel = "gemini-embedding-001"
	DefaultBatchSize      = 100

	retryDelay = 5 * time.Second

	taskDocument = "RETRIEVAL_DOCUMENT"
	taskQuery    = "RETRIEVAL_QUERY"
)

var (
	ErrEmptyText       = errors.New("text cannot be empty")
	ErrWrongDimensions = errors.New("embedding has wrong dimensions")
	ErrEmptyResponse   = errors.New("model returned no content")
)

// API is the subset of the Gen AI surface the client needs.
type API interface {
	EmbedContent(ctx context.Context, texts []string, taskType string) ([][]float32, error)
	GenerateContent(ctx context.Context, system, user string, temperature float32, json bool) (string, error)
}

type Config struct {
	APIKey         string
	ChatModel      string
	EmbeddingModel string
	Dimensions     int
	BatchSize      int
}

type GenAIAdapter struct {
	client         *genai.Client
	chatModel      string
	embeddingModel string
	dimensions     int32
}

func NewGenAIAdapter(ctx context.Context, cfg Config) (*GenAIAdapter, error) {
	c, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: cfg.APIKey, Backend: genai.BackendGeminiAPI})
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	chatModel := cfg.ChatModel
	if chatModel == "" {
		chatModel = DefaultChatModel
	}
	embeddingModel := cfg.EmbeddingModel
	if embeddingModel == "" {
		embeddingModel = DefaultEmbeddingModel
	}
	return &GenAIAdapter{
		client:         c,
		chatModel:      chatModel,
		embeddingModel: embeddingModel,
		dimensions:     int32(cfg.Dimensions),
	}, nil
}

func (a *GenAIAdapter) EmbedContent(ctx context.Context, texts []string, taskType string) ([][]float32, error) {
	contents := make([]*genai.Content, 0, len(texts))
	for _, t := range texts {
		contents = append(contents, &genai.Content{Parts: []*genai.Part{{Text: t}}})
	}

	res, err := a.client.Models.EmbedContent(ctx, a.embeddingModel, contents, &genai.EmbedContentConfig{
		OutputDimensionality: &a.dimensions,
		TaskType:             taskType,
	})
	if err != nil {
		return nil, err
	}

	out := make([][]float32, 0, len(res.Embeddings))
	for _, e := range res.Embeddings {
		if e == nil {
			return nil, errors.New("missing embedding in response")
		}
		out = append(out, e.Values)
	}
	return out, nil
}

func (a *GenAIAdapter) GenerateContent(ctx context.Context, system, user string, temperature float32, json bool) (string, error) {
	cfg := &genai.GenerateContentConfig{
		SystemInstruction: &genai.Content{Parts: []*genai.Part{{Text: system}}},
		Temperature:       &temperature,
	}
	if json {
		cfg.ResponseMIMEType = "application/json"
	}

	result, err := a.client.Models.GenerateContent(ctx, a.chatModel, genai.Text(user), cfg)
	if err != nil {
		return "", err
	}
	return result.Text(), nil
}

// Client embeds chunks, generates study material and answers questions.
type Client struct {
	api        API
	dimensions int
	batchSize  int
}

func NewClient(ctx context.Context, cfg Config) (*Client, error) {
	adapter, err := NewGenAIAdapter(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return NewClientWithAPI(adapter, cfg.Dimensions, cfg.BatchSize), nil
}

func NewClientWithAPI(api API, dimensions, batchSize int) *Client {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	return &Client{api: api, dimensions: dimensions, batchSize: batchSize}
}

// Embed returns one document vector per text, in input order. A
// rate-limited batch is retried once.
func (c *Client) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	return c.embed(ctx, texts, taskDocument)
}

// EmbedQuery embeds a question for searching against document vectors.
func (c *Client) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	vectors, err := c.embed(ctx, []string{text}, taskQuery)
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

func (c *Client) embed(ctx context.Context, texts []string, taskType string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}
	for _, t := range texts {
		if strings.TrimSpace(t) == "" {
			return nil, ErrEmptyText
		}
	}

	out := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += c.batchSize {
		end := min(start+c.batchSize, len(texts))
		batch := texts[start:end]

		vectors, err := c.api.EmbedContent(ctx, batch, taskType)
		if err != nil && isRateLimited(err) {
			log.Warn().Err(err).Dur("retry_in", retryDelay).Msg("gemini embedding rate limited")
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(retryDelay):
			}
			vectors, err = c.api.EmbedContent(ctx, batch, taskType)
		}
		if err != nil {
			return nil, fmt.Errorf("failed to create embeddings: %w", err)
		}
		if len(vectors) != len(batch) {
			return nil, fmt.Errorf("failed to create embeddings: expected %d vectors, got %d", len(batch), len(vectors))
		}
		for _, v := range vectors {
			if c.dimensions > 0 && len(v) != c.dimensions {
				return nil, fmt.Errorf("%w: expected %d, got %d", ErrWrongDimensions, c.dimensions, len(v))
			}
		}
		out = append(out, vectors...)
	}
	return out, nil
}

func (c *Client) Generate(ctx context.Context, text string) (string, error) {
	if strings.TrimSpace(text) == "" {
		return "", ErrEmptyText
	}
	out, err := c.api.GenerateContent(ctx, prompt.StudyMaterialSystem, prompt.StudyMaterialUser(text), 0.7, true)
	if err != nil {
		return "", fmt.Errorf("failed to generate study material: %w", err)
	}
	return out, nil
}

func (c *Client) Answer(ctx context.Context, question string, chunks []string) (string, error) {
	out, err := c.api.GenerateContent(ctx, prompt.AnswerSystem, prompt.AnswerUser(question, chunks), 0.3, false)
	if err != nil {
		return "", fmt.Errorf("failed to answer question: %w", err)
	}
	answer := strings.TrimSpace(out)
	if answer == "" {
		return "", ErrEmptyResponse
	}
	return answer, nil
}

// isRateLimited matches the 429 the Gemini REST API answers with.
func isRateLimited(err error) bool {
	var apiErr genai.APIError
	return errors.As(err, &apiErr) && apiErr.Code == http.StatusTooManyRequests
}
