package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/xxxsen/common/logger"
)

type ProviderConfig struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

type AIConfig struct {
	// tried in order, the first provider that answers wins
	LLMProviders   []ProviderConfig `json:"llm_providers"`
	EmbedProviders []ProviderConfig `json:"embed_providers"`
	// embedding memoization, 0 disables
	EmbedCacheSize       int `json:"embed_cache_size"`
	EmbedCacheTTLMinutes int `json:"embed_cache_ttl_minutes"`
}

type AuthConfig struct {
	SecretHash  string `json:"secret_hash"`
	JWTSecret   string `json:"jwt_secret"`
	JWTTTLHours int    `json:"jwt_ttl_hours"`
}

type VectorStoreConfig struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

type FileStoreConfig struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

type IngestConfig struct {
	BatchSize     int  `json:"batch_size"`
	MaxEmbedChars int  `json:"max_embed_chars"`
	Summarize     bool `json:"summarize"`
	// minimum seconds between uploads from one client, 0 disables
	UploadWindowSeconds int `json:"upload_window_seconds"`
}

type ScheduleConfig struct {
	SummaryBackfillSpec  string `json:"summary_backfill_spec"`
	SummaryBackfillLimit int    `json:"summary_backfill_limit"`
}

type Config struct {
	Port        int               `json:"port"`
	LogConfig   logger.LogConfig  `json:"log_config"`
	Auth        AuthConfig        `json:"auth"`
	AI          AIConfig          `json:"ai"`
	VectorStore VectorStoreConfig `json:"vector_store"`
	FileStore   FileStoreConfig   `json:"file_store"`
	Ingest      IngestConfig      `json:"ingest"`
	Schedule    ScheduleConfig    `json:"schedule"`
	CORSOrigins []string          `json:"cors_origins"`
}

func Load(path string) (*Config, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	var cfg Config
	if err := json.NewDecoder(file).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if cfg.Port == 0 {
		return nil, fmt.Errorf("port is required")
	}
	if cfg.Auth.SecretHash == "" {
		return nil, fmt.Errorf("auth.secret_hash is required, generate one with the hash-secret command")
	}
	if cfg.Auth.JWTSecret == "" {
		return nil, fmt.Errorf("auth.jwt_secret is required")
	}
	if cfg.Auth.JWTTTLHours == 0 {
		cfg.Auth.JWTTTLHours = 72
	}
	if len(cfg.AI.LLMProviders) == 0 {
		return nil, fmt.Errorf("ai.llm_providers is required")
	}
	if len(cfg.AI.EmbedProviders) == 0 {
		return nil, fmt.Errorf("ai.embed_providers is required")
	}
	if cfg.LogConfig.Level == "" {
		cfg.LogConfig.Level = "info"
	}
	if cfg.VectorStore.Type == "" {
		cfg.VectorStore.Type = "memory"
	}
	if cfg.Ingest.BatchSize == 0 {
		cfg.Ingest.BatchSize = 10
	}
	if cfg.Schedule.SummaryBackfillSpec == "" {
		cfg.Schedule.SummaryBackfillSpec = "0 3 * * *"
	}
	return &cfg, nil
}
