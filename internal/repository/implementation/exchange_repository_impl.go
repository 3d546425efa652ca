package implementation

import (
	"context"

	"quickhand-be/internal/entity"
	"quickhand-be/internal/repository"

	"gorm.io/gorm"
)

type ExchangeRepositoryImpl struct {
	db *gorm.DB
}

func NewExchangeRepository(db *gorm.DB) repository.ExchangeRepository {
	return &ExchangeRepositoryImpl{db: db}
}

func (r *ExchangeRepositoryImpl) Create(ctx context.Context, exchange *entity.AssistantExchange) error {
	return r.db.WithContext(ctx).Create(exchange).Error
}

func (r *ExchangeRepositoryImpl) GetByUserId(ctx context.Context, userId string, limit, offset int) ([]entity.AssistantExchange, int64, error) {
	var exchanges []entity.AssistantExchange
	var total int64

	db := r.db.WithContext(ctx).Model(&entity.AssistantExchange{}).Where("user_id = ?", userId)

	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := db.Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&exchanges).Error

	return exchanges, total, err
}
