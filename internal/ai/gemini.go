package ai

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/genai"
)

const defaultGeminiDimensions = 768

type geminiConfig struct {
	APIKey     string `json:"api_key"`
	Model      string `json:"model"`
	Dimensions int    `json:"dimensions"`
	TaskType   string `json:"task_type"`
}

type geminiLLM struct {
	apiKey string
	model  string
}

func (p *geminiLLM) Name() string {
	return "gemini"
}

func (p *geminiLLM) client(ctx context.Context) (*genai.Client, error) {
	if p.apiKey == "" {
		return nil, ErrUnavailable
	}
	return genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  p.apiKey,
		Backend: genai.BackendGeminiAPI,
	})
}

func generateConfig(opts GenerateOptions) *genai.GenerateContentConfig {
	cfg := &genai.GenerateContentConfig{}
	if opts.MaxTokens > 0 {
		cfg.MaxOutputTokens = int32(opts.MaxTokens)
	}
	if opts.Temperature > 0 {
		cfg.Temperature = genai.Ptr(opts.Temperature)
	}
	if len(opts.StopSequences) > 0 {
		cfg.StopSequences = opts.StopSequences
	}
	return cfg
}

func chatConfig(opts ChatOptions) *genai.GenerateContentConfig {
	cfg := &genai.GenerateContentConfig{}
	if opts.MaxTokens > 0 {
		cfg.MaxOutputTokens = int32(opts.MaxTokens)
	}
	if opts.Temperature > 0 {
		cfg.Temperature = genai.Ptr(opts.Temperature)
	}
	if opts.SystemPrompt != "" {
		cfg.SystemInstruction = &genai.Content{Parts: []*genai.Part{{Text: opts.SystemPrompt}}}
	}
	return cfg
}

func chatContents(messages []ChatMessage) []*genai.Content {
	contents := make([]*genai.Content, 0, len(messages))
	for _, msg := range messages {
		role := genai.RoleUser
		if msg.Role == "assistant" || msg.Role == "model" {
			role = genai.RoleModel
		}
		contents = append(contents, &genai.Content{
			Role:  role,
			Parts: []*genai.Part{{Text: msg.Content}},
		})
	}
	return contents
}

func (p *geminiLLM) Generate(ctx context.Context, prompt string, opts GenerateOptions) (string, error) {
	client, err := p.client(ctx)
	if err != nil {
		return "", err
	}
	resp, err := client.Models.GenerateContent(
		ctx,
		p.model,
		[]*genai.Content{{Parts: []*genai.Part{{Text: prompt}}}},
		generateConfig(opts),
	)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(resp.Text()), nil
}

func (p *geminiLLM) GenerateStream(ctx context.Context, prompt string, opts GenerateOptions, fn StreamFunc) error {
	client, err := p.client(ctx)
	if err != nil {
		return err
	}
	contents := []*genai.Content{{Parts: []*genai.Part{{Text: prompt}}}}
	for resp, err := range client.Models.GenerateContentStream(ctx, p.model, contents, generateConfig(opts)) {
		if err != nil {
			return err
		}
		if err := fn(resp.Text()); err != nil {
			return err
		}
	}
	return nil
}

func (p *geminiLLM) Chat(ctx context.Context, messages []ChatMessage, opts ChatOptions) (string, error) {
	client, err := p.client(ctx)
	if err != nil {
		return "", err
	}
	resp, err := client.Models.GenerateContent(ctx, p.model, chatContents(messages), chatConfig(opts))
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(resp.Text()), nil
}

func (p *geminiLLM) ChatStream(ctx context.Context, messages []ChatMessage, opts ChatOptions, fn StreamFunc) error {
	client, err := p.client(ctx)
	if err != nil {
		return err
	}
	for resp, err := range client.Models.GenerateContentStream(ctx, p.model, chatContents(messages), chatConfig(opts)) {
		if err != nil {
			return err
		}
		if err := fn(resp.Text()); err != nil {
			return err
		}
	}
	return nil
}

type geminiEmbedder struct {
	apiKey     string
	model      string
	dimensions int
	taskType   string
}

func (p *geminiEmbedder) Name() string {
	return "gemini"
}

func (p *geminiEmbedder) Dimensions() int {
	return p.dimensions
}

func (p *geminiEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vectors, err := p.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

func (p *geminiEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if p.apiKey == "" {
		return nil, ErrUnavailable
	}
	if len(texts) == 0 {
		return [][]float32{}, nil
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  p.apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, err
	}
	contents := make([]*genai.Content, 0, len(texts))
	for _, text := range texts {
		contents = append(contents, &genai.Content{Parts: []*genai.Part{{Text: text}}})
	}
	config := &genai.EmbedContentConfig{}
	if p.taskType != "" {
		config.TaskType = p.taskType
	}
	if p.dimensions > 0 {
		config.OutputDimensionality = genai.Ptr(int32(p.dimensions))
	}
	resp, err := client.Models.EmbedContent(ctx, p.model, contents, config)
	if err != nil {
		return nil, err
	}
	if len(resp.Embeddings) != len(texts) {
		return nil, fmt.Errorf("expected %d embeddings, got %d", len(texts), len(resp.Embeddings))
	}
	vectors := make([][]float32, 0, len(resp.Embeddings))
	for _, emb := range resp.Embeddings {
		vectors = append(vectors, emb.Values)
	}
	return vectors, nil
}

func createGeminiLLM(args interface{}) (LLM, error) {
	cfg := &geminiConfig{}
	if err := decodeConfig(args, cfg); err != nil {
		return nil, err
	}
	if cfg.Model == "" {
		cfg.Model = "gemini-2.0-flash"
	}
	return &geminiLLM{
		apiKey: strings.TrimSpace(cfg.APIKey),
		model:  cfg.Model,
	}, nil
}

func createGeminiEmbedder(args interface{}) (Embedder, error) {
	cfg := &geminiConfig{}
	if err := decodeConfig(args, cfg); err != nil {
		return nil, err
	}
	if cfg.Model == "" {
		cfg.Model = "text-embedding-004"
	}
	if cfg.Dimensions <= 0 {
		cfg.Dimensions = defaultGeminiDimensions
	}
	if cfg.TaskType == "" {
		cfg.TaskType = "RETRIEVAL_DOCUMENT"
	}
	return &geminiEmbedder{
		apiKey:     strings.TrimSpace(cfg.APIKey),
		model:      cfg.Model,
		dimensions: cfg.Dimensions,
		taskType:   cfg.TaskType,
	}, nil
}

func init() {
	Register("gemini", createGeminiLLM)
	RegisterEmbed("gemini", createGeminiEmbedder)
}
