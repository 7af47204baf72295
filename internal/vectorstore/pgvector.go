package vectorstore

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/didi/gendry/builder"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/pgvector/pgvector-go"

	"github.com/xxxsen/chatrecall/internal/model"
)

type pgvectorConfig struct {
	DSN      string `json:"dsn"`
	Host     string `json:"host"`
	Port     int    `json:"port"`
	User     string `json:"user"`
	Password string `json:"password"`
	DBName   string `json:"db_name"`
	SSLMode  string `json:"ssl_mode"`
	Table    string `json:"table"`
}

// pgvectorStore persists chunks in Postgres and searches with the pgvector
// cosine operator. Score is 1 - cosine distance, matching the in-memory store.
type pgvectorStore struct {
	db    *sqlx.DB
	table string
}

type chunkRow struct {
	ID               string          `db:"id"`
	ConversationID   string          `db:"conversation_id"`
	ConversationName string          `db:"conversation_name"`
	Participants     json.RawMessage `db:"participants"`
	Messages         json.RawMessage `db:"messages"`
	StartTime        time.Time       `db:"start_time"`
	EndTime          time.Time       `db:"end_time"`
	Summary          string          `db:"summary"`
	Metadata         json.RawMessage `db:"metadata"`
	Embedding        pgvector.Vector `db:"embedding"`
}

func newPgvectorStore(args interface{}) (Store, error) {
	cfg := &pgvectorConfig{}
	if err := decodeConfig(args, cfg); err != nil {
		return nil, err
	}
	dsn := cfg.DSN
	if dsn == "" {
		sslmode := cfg.SSLMode
		if sslmode == "" {
			sslmode = "disable"
		}
		dsn = fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
			cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.DBName, sslmode)
	}
	db, err := sqlx.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		return nil, err
	}
	table := cfg.Table
	if table == "" {
		table = "chat_chunks"
	}
	return &pgvectorStore{db: db, table: table}, nil
}

func (s *pgvectorStore) Initialize(ctx context.Context, dimensions int) error {
	if dimensions <= 0 {
		return fmt.Errorf("invalid embedding dimensions: %d", dimensions)
	}
	statements := []string{
		`CREATE EXTENSION IF NOT EXISTS vector`,
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			id TEXT PRIMARY KEY,
			conversation_id TEXT NOT NULL,
			conversation_name TEXT NOT NULL DEFAULT '',
			participants JSONB NOT NULL DEFAULT '[]',
			messages JSONB NOT NULL DEFAULT '[]',
			start_time TIMESTAMPTZ NOT NULL,
			end_time TIMESTAMPTZ NOT NULL,
			summary TEXT NOT NULL DEFAULT '',
			metadata JSONB NOT NULL DEFAULT '{}',
			embedding VECTOR(%d) NOT NULL
		)`, s.table, dimensions),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS idx_%s_conversation ON %s (conversation_id)`, s.table, s.table),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS idx_%s_time ON %s (start_time, end_time)`, s.table, s.table),
	}
	for _, stmt := range statements {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("initialize vector store: %w", err)
		}
	}
	return nil
}

func (s *pgvectorStore) UpsertBatch(ctx context.Context, chunks []*model.StoredChunk) error {
	if len(chunks) == 0 {
		return nil
	}
	rows := make([]map[string]interface{}, 0, len(chunks))
	for _, chunk := range chunks {
		if chunk.ID == "" {
			return fmt.Errorf("chunk id is required")
		}
		participants, err := json.Marshal(chunk.Participants)
		if err != nil {
			return err
		}
		messages, err := json.Marshal(chunk.Messages)
		if err != nil {
			return err
		}
		metadata, err := json.Marshal(chunk.Metadata)
		if err != nil {
			return err
		}
		rows = append(rows, map[string]interface{}{
			"id":                chunk.ID,
			"conversation_id":   chunk.Metadata.ConversationID,
			"conversation_name": chunk.ConversationName,
			"participants":      participants,
			"messages":          messages,
			"start_time":        chunk.StartTime,
			"end_time":          chunk.EndTime,
			"summary":           chunk.Summary,
			"metadata":          metadata,
			"embedding":         pgvector.NewVector(chunk.Embedding),
		})
	}
	sqlStr, args, err := builder.BuildInsert(s.table, rows)
	if err != nil {
		return err
	}
	sqlStr += ` ON CONFLICT (id) DO UPDATE SET
		conversation_name = EXCLUDED.conversation_name,
		participants = EXCLUDED.participants,
		messages = EXCLUDED.messages,
		start_time = EXCLUDED.start_time,
		end_time = EXCLUDED.end_time,
		summary = EXCLUDED.summary,
		metadata = EXCLUDED.metadata,
		embedding = EXCLUDED.embedding`
	_, err = s.db.ExecContext(ctx, s.db.Rebind(sqlStr), args...)
	return err
}

func buildFilterClauses(filter *SearchFilter) (string, []interface{}) {
	if filter == nil {
		return "", nil
	}
	var clauses []string
	var args []interface{}
	if filter.ConversationID != "" {
		clauses = append(clauses, "conversation_id = ?")
		args = append(args, filter.ConversationID)
	}
	if filter.StartTime != nil {
		clauses = append(clauses, "end_time >= ?")
		args = append(args, *filter.StartTime)
	}
	if filter.EndTime != nil {
		clauses = append(clauses, "start_time <= ?")
		args = append(args, *filter.EndTime)
	}
	if len(filter.Participants) > 0 {
		var sub []string
		for _, participant := range filter.Participants {
			blob, err := json.Marshal([]string{participant})
			if err != nil {
				continue
			}
			sub = append(sub, "participants @> ?")
			args = append(args, string(blob))
		}
		if len(sub) > 0 {
			clauses = append(clauses, "("+strings.Join(sub, " OR ")+")")
		}
	}
	if len(clauses) == 0 {
		return "", nil
	}
	return " AND " + strings.Join(clauses, " AND "), args
}

func (s *pgvectorStore) Search(ctx context.Context, embedding []float32, opts SearchOptions) ([]model.ScoredChunk, error) {
	topK := opts.TopK
	if topK <= 0 {
		topK = 10
	}
	where, whereArgs := buildFilterClauses(opts.Filter)
	query := fmt.Sprintf(`SELECT id, conversation_id, conversation_name, participants, messages,
		start_time, end_time, summary, metadata, embedding,
		1 - (embedding <=> ?) AS score
		FROM %s WHERE 1 - (embedding <=> ?) >= ?%s
		ORDER BY embedding <=> ? LIMIT ?`, s.table, where)
	vec := pgvector.NewVector(embedding)
	args := []interface{}{vec, vec, opts.MinScore}
	args = append(args, whereArgs...)
	args = append(args, vec, topK)
	rows, err := s.db.QueryxContext(ctx, s.db.Rebind(query), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var results []model.ScoredChunk
	for rows.Next() {
		var row chunkRow
		var score float64
		dest := []interface{}{
			&row.ID, &row.ConversationID, &row.ConversationName, &row.Participants, &row.Messages,
			&row.StartTime, &row.EndTime, &row.Summary, &row.Metadata, &row.Embedding, &score,
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, err
		}
		chunk, err := row.toStoredChunk()
		if err != nil {
			return nil, err
		}
		results = append(results, model.ScoredChunk{Chunk: chunk, Score: score})
	}
	return results, rows.Err()
}

func (s *pgvectorStore) ScrollAll(ctx context.Context, filter *SearchFilter, fn func(chunk *model.StoredChunk) error) error {
	where, whereArgs := buildFilterClauses(filter)
	query := fmt.Sprintf(`SELECT id, conversation_id, conversation_name, participants, messages,
		start_time, end_time, summary, metadata, embedding
		FROM %s WHERE 1=1%s ORDER BY start_time, id`, s.table, where)
	rows, err := s.db.QueryxContext(ctx, s.db.Rebind(query), whereArgs...)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var row chunkRow
		if err := rows.StructScan(&row); err != nil {
			return err
		}
		chunk, err := row.toStoredChunk()
		if err != nil {
			return err
		}
		if err := fn(chunk); err != nil {
			return err
		}
	}
	return rows.Err()
}

func (s *pgvectorStore) Count(ctx context.Context, conversationID string) (int64, error) {
	var (
		query string
		args  []interface{}
	)
	if conversationID == "" {
		query = fmt.Sprintf("SELECT COUNT(*) FROM %s", s.table)
	} else {
		query = s.db.Rebind(fmt.Sprintf("SELECT COUNT(*) FROM %s WHERE conversation_id = ?", s.table))
		args = append(args, conversationID)
	}
	var count int64
	if err := s.db.GetContext(ctx, &count, query, args...); err != nil {
		return 0, err
	}
	return count, nil
}

func (s *pgvectorStore) DeleteByConversation(ctx context.Context, conversationID string) error {
	query := s.db.Rebind(fmt.Sprintf("DELETE FROM %s WHERE conversation_id = ?", s.table))
	_, err := s.db.ExecContext(ctx, query, conversationID)
	return err
}

func (r *chunkRow) toStoredChunk() (*model.StoredChunk, error) {
	chunk := &model.StoredChunk{
		Chunk: model.Chunk{
			ID:        r.ID,
			StartTime: r.StartTime,
			EndTime:   r.EndTime,
		},
		Embedding:        r.Embedding.Slice(),
		Summary:          r.Summary,
		ConversationName: r.ConversationName,
	}
	if err := json.Unmarshal(r.Participants, &chunk.Participants); err != nil {
		return nil, fmt.Errorf("decode participants for chunk %s: %w", r.ID, err)
	}
	if err := json.Unmarshal(r.Messages, &chunk.Messages); err != nil {
		return nil, fmt.Errorf("decode messages for chunk %s: %w", r.ID, err)
	}
	if err := json.Unmarshal(r.Metadata, &chunk.Metadata); err != nil {
		return nil, fmt.Errorf("decode metadata for chunk %s: %w", r.ID, err)
	}
	return chunk, nil
}

func init() {
	Register("pgvector", newPgvectorStore)
}
