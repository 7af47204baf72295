package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/chatrecall/internal/agent"
	"github.com/xxxsen/chatrecall/internal/ai"
	"github.com/xxxsen/chatrecall/internal/model"
	appErr "github.com/xxxsen/chatrecall/internal/pkg/errors"
	"github.com/xxxsen/chatrecall/internal/retriever"
	"github.com/xxxsen/chatrecall/internal/vectorstore"
)

const (
	answerSystemPrompt = "You answer questions about a personal chat archive. " +
		"Use only the provided excerpts. If the excerpts do not contain the answer, say so. " +
		"Answer in the same language as the question."

	answerMaxTokens     = 1024
	answerContextBudget = 8000
	queryCacheSize      = 2000
	queryCacheTTL       = 30 * time.Minute
)

type QueryRequest struct {
	Question       string
	TopK           int
	MinScore       float64
	Participants   []string
	StartTime      *time.Time
	EndTime        *time.Time
	ConversationID string
}

type QueryMetadata struct {
	ElapsedMs  int64 `json:"elapsed_ms"`
	ChunksUsed int   `json:"chunks_used"`
	Cached     bool  `json:"cached"`
}

type QueryResult struct {
	Answer   string           `json:"answer"`
	Sources  []model.Citation `json:"sources"`
	Metadata QueryMetadata    `json:"metadata"`
}

// QueryService answers questions over the archive, either single-shot
// (retrieve, assemble context, one chat call) or via the agent loop.
type QueryService struct {
	retriever *retriever.Retriever
	llm       ai.LLM
	agent     *agent.Agent
	cache     *expirable.LRU[string, *QueryResult]
}

func NewQueryService(r *retriever.Retriever, llm ai.LLM, agentRunner *agent.Agent) *QueryService {
	return &QueryService{
		retriever: r,
		llm:       llm,
		agent:     agentRunner,
		cache:     expirable.NewLRU[string, *QueryResult](queryCacheSize, nil, queryCacheTTL),
	}
}

func (s *QueryService) filter(req *QueryRequest) *vectorstore.SearchFilter {
	if len(req.Participants) == 0 && req.StartTime == nil && req.EndTime == nil && req.ConversationID == "" {
		return nil
	}
	return &vectorstore.SearchFilter{
		Participants:   req.Participants,
		StartTime:      req.StartTime,
		EndTime:        req.EndTime,
		ConversationID: req.ConversationID,
	}
}

// Search exposes raw hybrid retrieval without answer generation.
func (s *QueryService) Search(ctx context.Context, req *QueryRequest) (*model.RetrievalResult, error) {
	if req.Question == "" {
		return nil, appErr.ErrInvalid
	}
	return s.retriever.Retrieve(ctx, req.Question, retriever.Options{
		TopK:     req.TopK,
		MinScore: req.MinScore,
		Filter:   s.filter(req),
	})
}

func (s *QueryService) cacheKey(req *QueryRequest) string {
	blob, err := json.Marshal(req)
	if err != nil {
		return ""
	}
	hash := sha256.Sum256(blob)
	return "query:" + hex.EncodeToString(hash[:])
}

// Query answers a question in a single shot with citations.
func (s *QueryService) Query(ctx context.Context, req *QueryRequest) (*QueryResult, error) {
	if req.Question == "" {
		return nil, appErr.ErrInvalid
	}
	key := s.cacheKey(req)
	if key != "" {
		if cached, ok := s.cache.Get(key); ok {
			hit := *cached
			hit.Metadata.Cached = true
			return &hit, nil
		}
	}
	start := time.Now()
	retrieved, err := s.retriever.Retrieve(ctx, req.Question, retriever.Options{
		TopK:     req.TopK,
		MinScore: req.MinScore,
		Filter:   s.filter(req),
	})
	if err != nil {
		return nil, err
	}
	result := &QueryResult{Sources: []model.Citation{}}
	if len(retrieved.Chunks) == 0 {
		result.Answer = "I could not find any relevant messages in the chat archive."
		result.Metadata.ElapsedMs = time.Since(start).Milliseconds()
		return result, nil
	}
	contextText := retriever.BuildContext(retrieved.Chunks, answerContextBudget)
	answer, err := s.llm.Chat(ctx, []ai.ChatMessage{
		{Role: "user", Content: fmt.Sprintf("Chat excerpts:\n%s\n\nQuestion: %s", contextText, req.Question)},
	}, ai.ChatOptions{
		SystemPrompt: answerSystemPrompt,
		MaxTokens:    answerMaxTokens,
	})
	if err != nil {
		return nil, fmt.Errorf("generate answer: %w", err)
	}
	result.Answer = answer
	result.Sources = retriever.BuildCitations(retrieved.Chunks)
	result.Metadata.ChunksUsed = len(retrieved.Chunks)
	result.Metadata.ElapsedMs = time.Since(start).Milliseconds()
	if key != "" {
		s.cache.Add(key, result)
	}
	logutil.GetLogger(ctx).Debug("query answered",
		zap.Int("chunks", len(retrieved.Chunks)),
		zap.Int64("elapsed_ms", result.Metadata.ElapsedMs))
	return result, nil
}

// RunAgent answers a question via the multi-step reasoning loop.
func (s *QueryService) RunAgent(ctx context.Context, question string) (*agent.Result, error) {
	if question == "" {
		return nil, appErr.ErrInvalid
	}
	return s.agent.Run(ctx, question)
}
