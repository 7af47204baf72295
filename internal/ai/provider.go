package ai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

var ErrUnavailable = errors.New("ai provider unavailable")

type GenerateOptions struct {
	MaxTokens     int
	Temperature   float32
	StopSequences []string
}

type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type ChatOptions struct {
	SystemPrompt string
	MaxTokens    int
	Temperature  float32
}

// StreamFunc receives incremental output. Returning an error stops the stream.
type StreamFunc func(delta string) error

// LLM is the language-model capability consumed by the generator and agent.
type LLM interface {
	Name() string
	Generate(ctx context.Context, prompt string, opts GenerateOptions) (string, error)
	GenerateStream(ctx context.Context, prompt string, opts GenerateOptions, fn StreamFunc) error
	Chat(ctx context.Context, messages []ChatMessage, opts ChatOptions) (string, error)
	ChatStream(ctx context.Context, messages []ChatMessage, opts ChatOptions, fn StreamFunc) error
}

// Embedder is the embedding capability consumed by the retriever and pipeline.
type Embedder interface {
	Name() string
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	Dimensions() int
}

type LLMFactory func(args interface{}) (LLM, error)

type EmbedFactory func(args interface{}) (Embedder, error)

var (
	llmRegistry   = map[string]LLMFactory{}
	embedRegistry = map[string]EmbedFactory{}
)

func Register(name string, factory LLMFactory) {
	key := strings.ToLower(strings.TrimSpace(name))
	if key == "" || factory == nil {
		return
	}
	llmRegistry[key] = factory
}

func RegisterEmbed(name string, factory EmbedFactory) {
	key := strings.ToLower(strings.TrimSpace(name))
	if key == "" || factory == nil {
		return
	}
	embedRegistry[key] = factory
}

func NewLLM(name string, args interface{}) (LLM, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	if key == "" {
		return nil, fmt.Errorf("ai.provider is required")
	}
	factory := llmRegistry[key]
	if factory == nil {
		return nil, fmt.Errorf("unsupported llm provider: %s", name)
	}
	return factory(args)
}

func NewEmbedder(name string, args interface{}) (Embedder, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	if key == "" {
		return nil, fmt.Errorf("ai.provider is required")
	}
	factory := embedRegistry[key]
	if factory == nil {
		return nil, fmt.Errorf("unsupported embedding provider: %s", name)
	}
	return factory(args)
}

func decodeConfig(args interface{}, dst interface{}) error {
	if args == nil {
		return fmt.Errorf("ai provider config is required")
	}
	data, err := json.Marshal(args)
	if err != nil {
		return fmt.Errorf("encode ai provider config: %w", err)
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return fmt.Errorf("decode ai provider config: %w", err)
	}
	return nil
}
