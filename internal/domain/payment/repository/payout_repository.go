package repository

import (
	"context"
	"time"

	"symbiotic_city/internal/domain/payment/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// PayoutRepository 结算单存储
type PayoutRepository interface {
	// Transaction 在同一事务中执行 fn，fn 返回错误时整体回滚
	Transaction(ctx context.Context, fn func(tx PayoutRepository) error) error

	EligibleOrders(ctx context.Context, sellerID string) ([]model.EligibleOrder, error)
	CreatePayout(ctx context.Context, p *model.Payout) error
	LockPayout(ctx context.Context, id string) (*model.Payout, error)
	GetPayout(ctx context.Context, id string) (*model.Payout, error)
	ListPayouts(ctx context.Context, sellerID string, offset, limit int) ([]model.Payout, int64, error)
	UpdatePayoutStatus(ctx context.Context, id, status string, paidAt *time.Time) error
	ReleaseItems(ctx context.Context, payoutID string, at time.Time) error
}

type payoutRepository struct {
	db *gorm.DB
}

func NewPayoutRepository(db *gorm.DB) PayoutRepository {
	return &payoutRepository{db: db}
}

func (r *payoutRepository) Transaction(ctx context.Context, fn func(tx PayoutRepository) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&payoutRepository{db: tx})
	})
}

// EligibleOrders 已成功支付、属于该卖家、且未被任何未释放结算单占用的订单
func (r *payoutRepository) EligibleOrders(ctx context.Context, sellerID string) ([]model.EligibleOrder, error) {
	var rows []model.EligibleOrder
	err := r.db.WithContext(ctx).
		Table("payments AS p").
		Select("p.order_id, p.seller_amount, p.currency").
		Joins("JOIN orders o ON o.id = p.order_id").
		Where("p.status = ? AND o.seller_id = ?", "succeeded", sellerID).
		Where("NOT EXISTS (SELECT 1 FROM payout_items pi WHERE pi.order_id = p.order_id AND pi.released_at IS NULL)").
		Order("p.created_at ASC").
		Scan(&rows).Error
	return rows, err
}

// CreatePayout 写入结算单及其订单明细
func (r *payoutRepository) CreatePayout(ctx context.Context, p *model.Payout) error {
	return r.db.WithContext(ctx).Create(p).Error
}

// LockPayout 行锁读取结算单，需在事务中调用
func (r *payoutRepository) LockPayout(ctx context.Context, id string) (*model.Payout, error) {
	var p model.Payout
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).
		First(&p).Error
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *payoutRepository) GetPayout(ctx context.Context, id string) (*model.Payout, error) {
	var p model.Payout
	err := r.db.WithContext(ctx).Preload("Items").Where("id = ?", id).First(&p).Error
	if err != nil {
		return nil, err
	}
	p.FillOrdersIncluded()
	return &p, nil
}

func (r *payoutRepository) ListPayouts(ctx context.Context, sellerID string, offset, limit int) ([]model.Payout, int64, error) {
	var payouts []model.Payout
	var total int64

	query := func() *gorm.DB {
		q := r.db.WithContext(ctx).Model(&model.Payout{})
		if sellerID != "" {
			q = q.Where("seller_id = ?", sellerID)
		}
		return q
	}
	if err := query().Count(&total).Error; err != nil {
		return nil, 0, err
	}
	if err := query().Preload("Items").Order("created_at DESC").Offset(offset).Limit(limit).Find(&payouts).Error; err != nil {
		return nil, 0, err
	}
	for i := range payouts {
		payouts[i].FillOrdersIncluded()
	}
	return payouts, total, nil
}

func (r *payoutRepository) UpdatePayoutStatus(ctx context.Context, id, status string, paidAt *time.Time) error {
	updates := map[string]interface{}{
		"status": status,
	}
	if paidAt != nil {
		updates["paid_at"] = paidAt
	}
	return r.db.WithContext(ctx).Model(&model.Payout{}).Where("id = ?", id).Updates(updates).Error
}

// ReleaseItems 释放结算单占用的订单，使其可被再次结算
func (r *payoutRepository) ReleaseItems(ctx context.Context, payoutID string, at time.Time) error {
	return r.db.WithContext(ctx).Model(&model.PayoutItem{}).
		Where("payout_id = ? AND released_at IS NULL", payoutID).
		Update("released_at", at).Error
}
