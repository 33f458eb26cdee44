package repository

import (
	"context"

	"symbiotic_city/internal/domain/payment/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// WebhookEventRepository 网关事件投递记录
type WebhookEventRepository interface {
	// Record 首次投递插入，重复投递累加 attempts 并覆盖状态；已 processed 的记录保持 processed
	Record(ctx context.Context, ev *model.WebhookEvent) error
}

type webhookEventRepository struct {
	db *gorm.DB
}

func NewWebhookEventRepository(db *gorm.DB) WebhookEventRepository {
	return &webhookEventRepository{db: db}
}

func (r *webhookEventRepository) Record(ctx context.Context, ev *model.WebhookEvent) error {
	if ev.Attempts == 0 {
		ev.Attempts = 1
	}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "event_id"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"status": gorm.Expr("CASE WHEN webhook_events.status = ? THEN webhook_events.status ELSE ? END",
				model.EventProcessed, ev.Status),
			"last_error": ev.LastError,
			"attempts":   gorm.Expr("webhook_events.attempts + 1"),
			"updated_at": gorm.Expr("NOW()"),
		}),
	}).Create(ev).Error
}
