package entity

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// AssistantExchange is the audit record of one completed turn: the user
// query, the reply, and the structured parts of the response envelope.
type AssistantExchange struct {
	Id        uuid.UUID `gorm:"type:uuid;primaryKey"`
	UserId    string    `gorm:"index"`
	RoleKey   string
	Query     string
	Content   string
	Citations datatypes.JSON
	Plan      datatypes.JSON
	Metadata  datatypes.JSON
	CreatedAt time.Time
}

func (AssistantExchange) TableName() string {
	return "assistant_exchanges"
}
