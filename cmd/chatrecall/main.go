package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"github.com/xxxsen/common/logger"
	"github.com/xxxsen/common/logutil"
	"github.com/xxxsen/common/webapi"
	"go.uber.org/zap"

	"github.com/xxxsen/chatrecall/internal/agent"
	"github.com/xxxsen/chatrecall/internal/ai"
	"github.com/xxxsen/chatrecall/internal/chunker"
	"github.com/xxxsen/chatrecall/internal/config"
	"github.com/xxxsen/chatrecall/internal/filestore"
	"github.com/xxxsen/chatrecall/internal/handler"
	"github.com/xxxsen/chatrecall/internal/job"
	"github.com/xxxsen/chatrecall/internal/middleware"
	"github.com/xxxsen/chatrecall/internal/parser"
	"github.com/xxxsen/chatrecall/internal/pkg/password"
	"github.com/xxxsen/chatrecall/internal/retriever"
	"github.com/xxxsen/chatrecall/internal/schedule"
	"github.com/xxxsen/chatrecall/internal/service"
	"github.com/xxxsen/chatrecall/internal/vectorstore"
)

func main() {
	var configPath string

	rootCmd := &cobra.Command{
		Use:   "chatrecall",
		Short: "chatrecall backend server",
	}

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "run chatrecall server",
		RunE: func(cmd *cobra.Command, args []string) error {
			if configPath == "" {
				return fmt.Errorf("--config is required")
			}
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			logger.Init(
				cfg.LogConfig.File,
				cfg.LogConfig.Level,
				int(cfg.LogConfig.FileCount),
				int(cfg.LogConfig.FileSize),
				int(cfg.LogConfig.KeepDays),
				cfg.LogConfig.Console,
			)
			logutil.GetLogger(context.Background()).Info("config loaded", zap.String("config", configPath))
			return runServer(cfg)
		},
	}
	runCmd.Flags().StringVar(&configPath, "config", "", "path to config.json")
	rootCmd.AddCommand(runCmd)

	hashCmd := &cobra.Command{
		Use:   "hash-secret [secret]",
		Short: "hash an access secret for the auth.secret_hash config field",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			hash, err := password.Hash(args[0])
			if err != nil {
				return err
			}
			fmt.Println(hash)
			return nil
		},
	}
	rootCmd.AddCommand(hashCmd)

	if err := rootCmd.Execute(); err != nil {
		logutil.GetLogger(context.Background()).Fatal("startup error", zap.Error(err))
	}
}

func buildLLM(cfg *config.Config) (ai.LLM, error) {
	items := make([]ai.LLM, 0, len(cfg.AI.LLMProviders))
	for _, provider := range cfg.AI.LLMProviders {
		item, err := ai.NewLLM(provider.Type, provider.Data)
		if err != nil {
			return nil, fmt.Errorf("init llm provider %s: %w", provider.Type, err)
		}
		items = append(items, item)
	}
	return ai.NewGroupLLM(items), nil
}

func buildEmbedder(cfg *config.Config) (ai.Embedder, error) {
	items := make([]ai.Embedder, 0, len(cfg.AI.EmbedProviders))
	for _, provider := range cfg.AI.EmbedProviders {
		item, err := ai.NewEmbedder(provider.Type, provider.Data)
		if err != nil {
			return nil, fmt.Errorf("init embed provider %s: %w", provider.Type, err)
		}
		items = append(items, item)
	}
	embedder := ai.NewGroupEmbedder(items)
	embedder = ai.WrapLRUCache(embedder, cfg.AI.EmbedCacheSize,
		time.Duration(cfg.AI.EmbedCacheTTLMinutes)*time.Minute)
	return embedder, nil
}

func runServer(cfg *config.Config) error {
	logutil.GetLogger(context.Background()).Info(
		"starting server",
		zap.Int("port", cfg.Port),
		zap.String("vector_store", cfg.VectorStore.Type),
	)

	llm, err := buildLLM(cfg)
	if err != nil {
		return err
	}
	embedder, err := buildEmbedder(cfg)
	if err != nil {
		return err
	}
	store, err := vectorstore.New(cfg.VectorStore.Type, cfg.VectorStore.Data)
	if err != nil {
		return fmt.Errorf("init vector store: %w", err)
	}
	if err := store.Initialize(context.Background(), embedder.Dimensions()); err != nil {
		return fmt.Errorf("initialize vector store: %w", err)
	}

	conversationService := service.NewConversationService(store)
	ingestOpts := []service.IngestServiceOption{
		service.WithEmbedBatchSize(cfg.Ingest.BatchSize),
		service.WithMaxEmbedChars(cfg.Ingest.MaxEmbedChars),
	}
	if cfg.FileStore.Type != "" {
		archive, err := filestore.New(cfg.FileStore.Type, cfg.FileStore.Data)
		if err != nil {
			return fmt.Errorf("init file store: %w", err)
		}
		ingestOpts = append(ingestOpts, service.WithArchive(archive))
	}
	ingestService := service.NewIngestService(
		parser.New(), chunker.New(), embedder, llm, store,
		service.NewProgressTracker(), conversationService, ingestOpts...)
	hybridRetriever := retriever.New(embedder, store)
	agentRunner := agent.New(llm, agent.NewToolset(hybridRetriever))
	queryService := service.NewQueryService(hybridRetriever, llm, agentRunner)

	deps := handler.RouterDeps{
		Auth:          handler.NewAuthHandler(service.NewAuthService(cfg.Auth.SecretHash, []byte(cfg.Auth.JWTSecret), time.Hour*time.Duration(cfg.Auth.JWTTTLHours))),
		Ingest:        handler.NewIngestHandler(ingestService),
		Query:         handler.NewQueryHandler(queryService),
		Conversations: handler.NewConversationHandler(conversationService),
		JWTSecret:     []byte(cfg.Auth.JWTSecret),
		UploadWindow:  time.Duration(cfg.Ingest.UploadWindowSeconds) * time.Second,
	}

	engine, err := webapi.NewEngine(
		"/api/v1",
		fmt.Sprintf("0.0.0.0:%d", cfg.Port),
		webapi.WithRegister(func(group *gin.RouterGroup) {
			handler.RegisterRoutes(group, deps)
		}),
		webapi.WithExtraMiddlewares(
			middleware.RequestID(),
			middleware.CORS(cfg.CORSOrigins),
			gzip.Gzip(gzip.DefaultCompression),
		),
	)
	if err != nil {
		return fmt.Errorf("init web engine: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	scheduler := schedule.NewCronScheduler()
	if cfg.Ingest.Summarize {
		backfill := job.NewSummaryBackfillJob(
			service.NewSummaryService(llm, store), cfg.Schedule.SummaryBackfillLimit)
		if err := scheduler.AddJob(backfill, cfg.Schedule.SummaryBackfillSpec); err != nil {
			return err
		}
	}
	scheduler.Start(ctx)
	defer scheduler.Stop()

	logutil.GetLogger(context.Background()).Info("http server listening", zap.String("addr", fmt.Sprintf("0.0.0.0:%d", cfg.Port)))
	go func() {
		if err := engine.Run(); err != nil && err != http.ErrServerClosed {
			logutil.GetLogger(context.Background()).Error("server error", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logutil.GetLogger(context.Background()).Info("server stopping...")
	return nil
}
