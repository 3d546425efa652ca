package entity

import (
	"time"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"
)

// MemoryEntry is one remembered conversation summary, hard-scoped by
// (UserId, Scope). Scope is the role key; entries must never be visible
// across scopes for the same user.
type MemoryEntry struct {
	Id        uuid.UUID `gorm:"type:uuid;primaryKey"`
	UserId    string    `gorm:"index:idx_memory_user_scope"`
	Scope     string    `gorm:"index:idx_memory_user_scope"`
	Content   string
	Embedding pgvector.Vector `gorm:"type:vector(768)"`
	CreatedAt time.Time
}

func (MemoryEntry) TableName() string {
	return "memory_entries"
}
