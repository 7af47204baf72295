package service

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/chatrecall/internal/ai"
	"github.com/xxxsen/chatrecall/internal/chunker"
	"github.com/xxxsen/chatrecall/internal/filestore"
	"github.com/xxxsen/chatrecall/internal/model"
	"github.com/xxxsen/chatrecall/internal/parser"
	appErr "github.com/xxxsen/chatrecall/internal/pkg/errors"
	"github.com/xxxsen/chatrecall/internal/vectorstore"
)

const (
	defaultEmbedBatchSize   = 10
	defaultMaxEmbedChars    = 8000
	summarizePromptMaxChars = 6000
	summaryMaxTokens        = 256
)

type IngestOptions struct {
	ConversationName string
	ParserOptions    parser.Options
	ChunkerOptions   chunker.Options
	Summarize        bool
}

// IngestService runs the ingestion pipeline: parse, chunk, embed in
// sequential batches, optionally summarize, then store. Every stage reports
// into the progress tracker; any failure marks the job failed and propagates.
type IngestService struct {
	parser        *parser.Parser
	chunker       *chunker.Chunker
	embedder      ai.Embedder
	llm           ai.LLM
	store         vectorstore.Store
	tracker       *ProgressTracker
	conversations *ConversationService
	archive       filestore.Store

	batchSize     int
	maxEmbedChars int
}

type IngestServiceOption func(*IngestService)

func WithEmbedBatchSize(n int) IngestServiceOption {
	return func(s *IngestService) {
		if n > 0 {
			s.batchSize = n
		}
	}
}

func WithMaxEmbedChars(n int) IngestServiceOption {
	return func(s *IngestService) {
		if n > 0 {
			s.maxEmbedChars = n
		}
	}
}

// WithArchive keeps a copy of each job's raw export in the file store.
func WithArchive(store filestore.Store) IngestServiceOption {
	return func(s *IngestService) {
		s.archive = store
	}
}

func NewIngestService(p *parser.Parser, c *chunker.Chunker, embedder ai.Embedder, llm ai.LLM,
	store vectorstore.Store, tracker *ProgressTracker, conversations *ConversationService, opts ...IngestServiceOption) *IngestService {
	s := &IngestService{
		parser:        p,
		chunker:       c,
		embedder:      embedder,
		llm:           llm,
		store:         store,
		tracker:       tracker,
		conversations: conversations,
		batchSize:     defaultEmbedBatchSize,
		maxEmbedChars: defaultMaxEmbedChars,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// StartIngest registers a job and runs the pipeline in the background.
// Progress is observable via the tracker; the job is not cancellable.
func (s *IngestService) StartIngest(ctx context.Context, source string, opts IngestOptions) string {
	jobID := newID()
	s.tracker.Create(jobID)
	go func() {
		if _, err := s.runIngest(context.Background(), jobID, source, opts); err != nil {
			logutil.GetLogger(context.Background()).Error("ingestion job failed",
				zap.String("job_id", jobID), zap.Error(err))
		}
	}()
	return jobID
}

// Ingest runs the pipeline synchronously and returns the final result.
func (s *IngestService) Ingest(ctx context.Context, source string, opts IngestOptions) (*model.IngestionResult, error) {
	jobID := newID()
	s.tracker.Create(jobID)
	return s.runIngest(ctx, jobID, source, opts)
}

func (s *IngestService) Progress(jobID string) (*model.IngestionProgress, error) {
	return s.tracker.Get(jobID)
}

// OpenExport streams back the archived raw export of a finished job.
func (s *IngestService) OpenExport(ctx context.Context, jobID string) (io.ReadCloser, error) {
	if s.archive == nil {
		return nil, appErr.ErrNotFound
	}
	rc, err := s.archive.Open(ctx, filestore.ExportKey(jobID))
	if err != nil {
		return nil, appErr.ErrNotFound
	}
	return rc, nil
}

func (s *IngestService) runIngest(ctx context.Context, jobID, source string, opts IngestOptions) (*model.IngestionResult, error) {
	result, err := s.runStages(ctx, jobID, source, opts)
	if err != nil {
		s.tracker.Update(jobID, ProgressUpdate{
			Status:      statusPtr(model.JobStatusFailed),
			Error:       stringPtr(err.Error()),
			CompletedAt: timePtr(time.Now()),
		})
		return nil, err
	}
	s.tracker.Update(jobID, ProgressUpdate{
		Status:      statusPtr(model.JobStatusCompleted),
		CompletedAt: timePtr(time.Now()),
	})
	return result, nil
}

func (s *IngestService) runStages(ctx context.Context, jobID, source string, opts IngestOptions) (*model.IngestionResult, error) {
	logger := logutil.GetLogger(ctx).With(zap.String("job_id", jobID))
	if s.archive != nil {
		key := filestore.ExportKey(jobID)
		if err := s.archive.Save(ctx, key, strings.NewReader(source), int64(len(source))); err != nil {
			// archiving is a convenience, never fail the job for it
			logger.Warn("archive export failed", zap.String("key", key), zap.Error(err))
		}
	}
	conversationID := newID()
	conversationName := strings.TrimSpace(opts.ConversationName)
	s.tracker.Update(jobID, ProgressUpdate{
		Status:           statusPtr(model.JobStatusParsing),
		ConversationID:   stringPtr(conversationID),
		ConversationName: stringPtr(conversationName),
	})

	parsed := s.parser.Parse(source, opts.ParserOptions)
	if len(parsed.Messages) == 0 {
		return nil, appErr.ErrExportEmpty
	}
	s.tracker.Update(jobID, ProgressUpdate{
		Status:         statusPtr(model.JobStatusChunking),
		MessagesParsed: intPtr(len(parsed.Messages)),
	})
	logger.Info("export parsed", zap.Int("messages", len(parsed.Messages)),
		zap.Int("participants", len(parsed.Participants)))

	chunked := s.chunker.Chunk(parsed.Messages, opts.ChunkerOptions)
	for i := range chunked.Chunks {
		chunked.Chunks[i].Metadata.ConversationID = conversationID
	}
	s.tracker.Update(jobID, ProgressUpdate{
		Status:        statusPtr(model.JobStatusEmbedding),
		ChunksCreated: intPtr(len(chunked.Chunks)),
	})
	logger.Info("messages chunked", zap.Int("chunks", len(chunked.Chunks)))

	stored, err := s.embedChunks(ctx, jobID, conversationName, chunked.Chunks)
	if err != nil {
		return nil, err
	}
	if opts.Summarize && s.llm != nil {
		s.summarizeChunks(ctx, stored)
	}

	s.tracker.Update(jobID, ProgressUpdate{Status: statusPtr(model.JobStatusStoring)})
	storedCount := 0
	for start := 0; start < len(stored); start += s.batchSize {
		end := start + s.batchSize
		if end > len(stored) {
			end = len(stored)
		}
		if err := s.store.UpsertBatch(ctx, stored[start:end]); err != nil {
			return nil, fmt.Errorf("store chunks: %w", err)
		}
		storedCount = end
		s.tracker.Update(jobID, ProgressUpdate{ChunksStored: intPtr(storedCount)})
	}
	logger.Info("chunks stored", zap.Int("count", storedCount))

	s.conversations.Put(&model.Conversation{
		ID:           conversationID,
		Name:         conversationName,
		MessageCount: len(parsed.Messages),
		ChunkCount:   len(stored),
		Participants: parsed.Participants,
		StartDate:    parsed.StartDate,
		EndDate:      parsed.EndDate,
		IngestedAt:   time.Now(),
	})
	return &model.IngestionResult{
		JobID:            jobID,
		ConversationID:   conversationID,
		ConversationName: conversationName,
		MessageCount:     len(parsed.Messages),
		ChunkCount:       len(stored),
		Participants:     parsed.Participants,
		StartDate:        parsed.StartDate,
		EndDate:          parsed.EndDate,
	}, nil
}

// embedChunks embeds rendered chunk text in strictly sequential batches so
// provider rate limits stay predictable.
func (s *IngestService) embedChunks(ctx context.Context, jobID, conversationName string, chunks []model.Chunk) ([]*model.StoredChunk, error) {
	stored := make([]*model.StoredChunk, 0, len(chunks))
	for start := 0; start < len(chunks); start += s.batchSize {
		end := start + s.batchSize
		if end > len(chunks) {
			end = len(chunks)
		}
		batch := chunks[start:end]
		texts := make([]string, 0, len(batch))
		for _, chunk := range batch {
			texts = append(texts, truncateForEmbedding(chunker.RenderChunk(chunk), s.maxEmbedChars))
		}
		vectors, err := s.embedder.EmbedBatch(ctx, texts)
		if err != nil {
			return nil, fmt.Errorf("embed batch at %d: %w", start, err)
		}
		if len(vectors) != len(batch) {
			return nil, fmt.Errorf("embed batch at %d: expected %d vectors, got %d", start, len(batch), len(vectors))
		}
		for i, chunk := range batch {
			stored = append(stored, &model.StoredChunk{
				Chunk:            chunk,
				Embedding:        vectors[i],
				ConversationName: conversationName,
			})
		}
		s.tracker.Update(jobID, ProgressUpdate{ChunksEmbedded: intPtr(len(stored))})
	}
	return stored, nil
}

// summarizeChunks is best-effort: a failed call leaves the summary empty.
func (s *IngestService) summarizeChunks(ctx context.Context, chunks []*model.StoredChunk) {
	for _, chunk := range chunks {
		summary, err := SummarizeChunk(ctx, s.llm, chunk)
		if err != nil {
			logutil.GetLogger(ctx).Warn("chunk summarization failed",
				zap.String("chunk_id", chunk.ID), zap.Error(err))
			continue
		}
		chunk.Summary = summary
	}
}

// SummarizeChunk asks the model for a short recap of one chunk.
func SummarizeChunk(ctx context.Context, llm ai.LLM, chunk *model.StoredChunk) (string, error) {
	text := truncateForEmbedding(chunker.RenderChunk(chunk.Chunk), summarizePromptMaxChars)
	prompt := "Summarize the following chat excerpt in one or two sentences. " +
		"Mention the participants and the main topic.\n\n" + text + "\n\nSummary:"
	summary, err := llm.Generate(ctx, prompt, ai.GenerateOptions{MaxTokens: summaryMaxTokens})
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(summary), nil
}

func truncateForEmbedding(text string, limit int) string {
	if len(text) <= limit {
		return text
	}
	// never cut inside a multi-byte rune
	cut := limit - 3
	for cut > 0 && !utf8.RuneStart(text[cut]) {
		cut--
	}
	return text[:cut] + "..."
}
