package openai

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/skimzy/skimzy/internal/prompt"
)

const (
	// DefaultEmbeddingModel is the OpenAI model used for generating embeddings
	DefaultEmbeddingModel = openai.SmallEmbedding3
	// DefaultEmbeddingDimensions is the expected dimension of embeddings
	DefaultEmbeddingDimensions = 1536
	DefaultChatModel           = openai.GPT4oMini
	DefaultBatchSize           = 100

	generationTemperature = 0.7
	answerTemperature     = 0.3
)

var (
	// ErrEmptyText is returned when text is empty
	ErrEmptyText = errors.New("text cannot be empty")
	// ErrWrongDimensions is returned when embedding has wrong dimensions
	ErrWrongDimensions = errors.New("embedding has wrong dimensions")
	ErrEmptyCompletion = errors.New("model returned no content")
)

// API is the subset of the OpenAI surface the client needs.
type API interface {
	CreateEmbeddings(ctx context.Context, texts []string) ([][]float32, error)
	CreateCompletion(ctx context.Context, req CompletionRequest) (string, error)
}

type CompletionRequest struct {
	System      string
	User        string
	Temperature float32
	JSON        bool
}

// Client embeds chunks, generates study material and answers questions.
type Client struct {
	api        API
	dimensions int
	batchSize  int
}

type OpenAIAdapter struct {
	client         *openai.Client
	embeddingModel openai.EmbeddingModel
	chatModel      string
	dimensions     int
}

func NewOpenAIAdapter(cfg Config) *OpenAIAdapter {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	model := cfg.EmbeddingModel
	if model == "" {
		model = DefaultEmbeddingModel
	}
	chatModel := cfg.ChatModel
	if chatModel == "" {
		chatModel = DefaultChatModel
	}
	return &OpenAIAdapter{
		client:         openai.NewClientWithConfig(clientCfg),
		embeddingModel: model,
		chatModel:      chatModel,
		dimensions:     cfg.EmbeddingDimensions,
	}
}

// CreateEmbeddings calls the OpenAI API once for the whole batch.
func (a *OpenAIAdapter) CreateEmbeddings(ctx context.Context, texts []string) ([][]float32, error) {
	req := openai.EmbeddingRequest{
		Input: texts,
		Model: a.embeddingModel,
	}
	if strings.HasPrefix(string(a.embeddingModel), "text-embedding-3") {
		req.Dimensions = a.dimensions
	}

	resp, err := a.client.CreateEmbeddings(ctx, req)
	if err != nil {
		return nil, err
	}

	if len(resp.Data) != len(texts) {
		return nil, fmt.Errorf("expected %d embeddings, got %d", len(texts), len(resp.Data))
	}

	data := resp.Data
	sort.Slice(data, func(i, j int) bool { return data[i].Index < data[j].Index })
	out := make([][]float32, len(data))
	for i, d := range data {
		out[i] = d.Embedding
	}
	return out, nil
}

func (a *OpenAIAdapter) CreateCompletion(ctx context.Context, req CompletionRequest) (string, error) {
	chatReq := openai.ChatCompletionRequest{
		Model: a.chatModel,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: req.System},
			{Role: openai.ChatMessageRoleUser, Content: req.User},
		},
		Temperature: req.Temperature,
	}
	if req.JSON {
		chatReq.ResponseFormat = &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		}
	}

	resp, err := a.client.CreateChatCompletion(ctx, chatReq)
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", ErrEmptyCompletion
	}
	return resp.Choices[0].Message.Content, nil
}

type Config struct {
	APIKey              string
	BaseURL             string
	EmbeddingModel      openai.EmbeddingModel
	EmbeddingDimensions int
	ChatModel           string
	BatchSize           int
}

// NewClient creates a new OpenAI client using defaults.
func NewClient(apiKey string) *Client {
	return NewClientWithConfig(Config{APIKey: apiKey})
}

// NewClientWithConfig creates a new OpenAI client with explicit configuration.
func NewClientWithConfig(cfg Config) *Client {
	if cfg.EmbeddingDimensions <= 0 {
		cfg.EmbeddingDimensions = DefaultEmbeddingDimensions
	}
	return NewClientWithAPI(NewOpenAIAdapter(cfg), cfg.EmbeddingDimensions, cfg.BatchSize)
}

func NewClientWithAPI(api API, dimensions, batchSize int) *Client {
	if dimensions <= 0 {
		dimensions = DefaultEmbeddingDimensions
	}
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	return &Client{
		api:        api,
		dimensions: dimensions,
		batchSize:  batchSize,
	}
}

// Embed returns one vector per text, in input order. Texts are sent in
// batches of at most batchSize.
func (c *Client) Embed(ctx context.Context, texts []string) ([][]float32, error) {
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

		vectors, err := c.api.CreateEmbeddings(ctx, texts[start:end])
		if err != nil {
			return nil, fmt.Errorf("failed to create embeddings: %w", err)
		}
		if len(vectors) != end-start {
			return nil, fmt.Errorf("failed to create embeddings: expected %d vectors, got %d", end-start, len(vectors))
		}
		for _, v := range vectors {
			if len(v) != c.dimensions {
				return nil, fmt.Errorf("%w: expected %d, got %d", ErrWrongDimensions, c.dimensions, len(v))
			}
		}
		out = append(out, vectors...)
	}

	return out, nil
}

// Generate asks the model for the study-material JSON object and returns it unparsed.
func (c *Client) Generate(ctx context.Context, text string) (string, error) {
	if strings.TrimSpace(text) == "" {
		return "", ErrEmptyText
	}

	out, err := c.api.CreateCompletion(ctx, CompletionRequest{
		System:      prompt.StudyMaterialSystem,
		User:        prompt.StudyMaterialUser(text),
		Temperature: generationTemperature,
		JSON:        true,
	})
	if err != nil {
		return "", fmt.Errorf("failed to generate study material: %w", err)
	}
	return out, nil
}

// Answer answers question from the given context chunks.
func (c *Client) Answer(ctx context.Context, question string, chunks []string) (string, error) {
	out, err := c.api.CreateCompletion(ctx, CompletionRequest{
		System:      prompt.AnswerSystem,
		User:        prompt.AnswerUser(question, chunks),
		Temperature: answerTemperature,
	})
	if err != nil {
		return "", fmt.Errorf("failed to answer question: %w", err)
	}

	answer := strings.TrimSpace(out)
	if answer == "" {
		return "", ErrEmptyCompletion
	}
	return answer, nil
}
