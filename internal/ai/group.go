package ai

import (
	"context"
	"fmt"
	"strings"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"
)

type groupLLM struct {
	items []LLM
}

// NewGroupLLM chains providers so a failed call falls through to the next one.
func NewGroupLLM(items []LLM) LLM {
	if len(items) == 0 {
		return nil
	}
	return &groupLLM{items: items}
}

func (g *groupLLM) Name() string {
	names := make([]string, 0, len(g.items))
	for _, item := range g.items {
		names = append(names, item.Name())
	}
	return strings.Join(names, "|")
}

func (g *groupLLM) Generate(ctx context.Context, prompt string, opts GenerateOptions) (string, error) {
	var lastErr error
	for i, item := range g.items {
		res, err := item.Generate(ctx, prompt, opts)
		if err == nil {
			return res, nil
		}
		lastErr = err
		logutil.GetLogger(ctx).Warn("llm generate failed", zap.Int("index", i), zap.String("name", item.Name()), zap.Error(err))
	}
	if lastErr == nil {
		return "", fmt.Errorf("llm not configured")
	}
	return "", lastErr
}

func (g *groupLLM) GenerateStream(ctx context.Context, prompt string, opts GenerateOptions, fn StreamFunc) error {
	var lastErr error
	for i, item := range g.items {
		err := item.GenerateStream(ctx, prompt, opts, fn)
		if err == nil {
			return nil
		}
		lastErr = err
		logutil.GetLogger(ctx).Warn("llm stream failed", zap.Int("index", i), zap.String("name", item.Name()), zap.Error(err))
	}
	if lastErr == nil {
		return fmt.Errorf("llm not configured")
	}
	return lastErr
}

func (g *groupLLM) Chat(ctx context.Context, messages []ChatMessage, opts ChatOptions) (string, error) {
	var lastErr error
	for i, item := range g.items {
		res, err := item.Chat(ctx, messages, opts)
		if err == nil {
			return res, nil
		}
		lastErr = err
		logutil.GetLogger(ctx).Warn("llm chat failed", zap.Int("index", i), zap.String("name", item.Name()), zap.Error(err))
	}
	if lastErr == nil {
		return "", fmt.Errorf("llm not configured")
	}
	return "", lastErr
}

func (g *groupLLM) ChatStream(ctx context.Context, messages []ChatMessage, opts ChatOptions, fn StreamFunc) error {
	var lastErr error
	for i, item := range g.items {
		err := item.ChatStream(ctx, messages, opts, fn)
		if err == nil {
			return nil
		}
		lastErr = err
		logutil.GetLogger(ctx).Warn("llm chat stream failed", zap.Int("index", i), zap.String("name", item.Name()), zap.Error(err))
	}
	if lastErr == nil {
		return fmt.Errorf("llm not configured")
	}
	return lastErr
}

type groupEmbedder struct {
	items []Embedder
}

// NewGroupEmbedder chains embedders with fallthrough. All entries must share
// the same output dimensionality, otherwise stored vectors become unsearchable.
func NewGroupEmbedder(items []Embedder) Embedder {
	if len(items) == 0 {
		return nil
	}
	return &groupEmbedder{items: items}
}

func (g *groupEmbedder) Name() string {
	names := make([]string, 0, len(g.items))
	for _, item := range g.items {
		names = append(names, item.Name())
	}
	return strings.Join(names, "|")
}

func (g *groupEmbedder) Dimensions() int {
	return g.items[0].Dimensions()
}

func (g *groupEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	var lastErr error
	for i, item := range g.items {
		res, err := item.Embed(ctx, text)
		if err == nil {
			return res, nil
		}
		lastErr = err
		logutil.GetLogger(ctx).Warn("embedder failed", zap.Int("index", i), zap.String("name", item.Name()), zap.Error(err))
	}
	if lastErr == nil {
		return nil, fmt.Errorf("embedder not configured")
	}
	return nil, lastErr
}

func (g *groupEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	var lastErr error
	for i, item := range g.items {
		res, err := item.EmbedBatch(ctx, texts)
		if err == nil {
			return res, nil
		}
		lastErr = err
		logutil.GetLogger(ctx).Warn("embedder batch failed", zap.Int("index", i), zap.String("name", item.Name()), zap.Error(err))
	}
	if lastErr == nil {
		return nil, fmt.Errorf("embedder not configured")
	}
	return nil, lastErr
}
