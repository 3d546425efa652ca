package memory

import (
	"context"
	"fmt"
	"time"

	"quickhand-be/internal/entity"
	"quickhand-be/pkg/embedding"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"
	"gorm.io/gorm"
)

// PgStore is the durable memory backend: pgvector cosine search over
// embedded conversation summaries.
type PgStore struct {
	db       *gorm.DB
	embedder embedding.EmbeddingProvider
}

func NewPgStore(db *gorm.DB, embedder embedding.EmbeddingProvider) *PgStore {
	return &PgStore{
		db:       db,
		embedder: embedder,
	}
}

func (s *PgStore) Append(ctx context.Context, userId, scope string, entries []string) error {
	now := time.Now()
	rows := make([]*entity.MemoryEntry, 0, len(entries))
	for _, e := range entries {
		if e == "" {
			continue
		}
		emb, err := s.embedder.Generate(e, "RETRIEVAL_DOCUMENT")
		if err != nil {
			return fmt.Errorf("embed memory entry: %w", err)
		}
		rows = append(rows, &entity.MemoryEntry{
			Id:        uuid.New(),
			UserId:    userId,
			Scope:     scope,
			Content:   e,
			Embedding: pgvector.NewVector(emb.Embedding.Values),
			CreatedAt: now,
		})
	}
	if len(rows) == 0 {
		return nil
	}
	return s.db.WithContext(ctx).Create(rows).Error
}

func (s *PgStore) Search(ctx context.Context, userId, scope, query string, limit int) ([]string, error) {
	if limit <= 0 {
		limit = 3
	}

	emb, err := s.embedder.Generate(query, "RETRIEVAL_QUERY")
	if err != nil {
		return nil, fmt.Errorf("embed memory query: %w", err)
	}

	var rows []*entity.MemoryEntry
	// Cosine distance ordering; the user_id + scope filter is the role
	// isolation boundary and must never be relaxed.
	err = s.db.WithContext(ctx).
		Where("user_id = ?", userId).
		Where("scope = ?", scope).
		Order(gorm.Expr("embedding <=> ?", pgvector.NewVector(emb.Embedding.Values))).
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	out := make([]string, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.Content)
	}
	return out, nil
}
