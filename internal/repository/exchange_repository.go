package repository

import (
	"context"

	"quickhand-be/internal/entity"
)

// ExchangeRepository persists completed assistant turns for auditing and
// history views.
type ExchangeRepository interface {
	Create(ctx context.Context, exchange *entity.AssistantExchange) error
	GetByUserId(ctx context.Context, userId string, limit, offset int) ([]entity.AssistantExchange, int64, error)
}
