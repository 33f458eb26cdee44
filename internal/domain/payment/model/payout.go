package model

import (
	"time"

	baseModel "symbiotic_city/pkg/model"

	"gorm.io/datatypes"
)

// Payout 卖家结算单：一次性汇总若干订单的卖家所得
type Payout struct {
	baseModel.BaseModel
	SellerID      string       `gorm:"type:uuid;not null" json:"seller_id"`
	AmountCents   int64        `gorm:"not null" json:"amount_cents"`
	Currency      string       `gorm:"size:3;not null" json:"currency"`
	Status        string       `gorm:"default:'pending'" json:"status"`
	PayoutMethod  string       `gorm:"not null" json:"payout_method"`
	ScheduledDate time.Time    `gorm:"not null" json:"scheduled_date"`
	PaidAt        *time.Time   `json:"paid_at,omitempty"`
	Items         []PayoutItem `gorm:"foreignKey:PayoutID" json:"-"`

	OrdersIncluded []string `gorm:"-" json:"orders_included"`
}

// PayoutItem 结算单包含的订单，ReleasedAt 非空表示已释放（结算失败）
type PayoutItem struct {
	baseModel.BaseModel
	PayoutID     string     `gorm:"type:uuid;not null" json:"payout_id"`
	OrderID      string     `gorm:"type:uuid;not null" json:"order_id"`
	SellerAmount int64      `gorm:"not null" json:"seller_amount"`
	ReleasedAt   *time.Time `json:"released_at,omitempty"`
}

// EligibleOrder 可结算订单
type EligibleOrder struct {
	OrderID      string
	SellerAmount int64
	Currency     string
}

// WebhookEvent 网关事件投递记录
type WebhookEvent struct {
	baseModel.BaseModel
	EventID   string         `gorm:"unique;not null" json:"event_id"`
	EventType string         `gorm:"not null" json:"event_type"`
	Status    string         `gorm:"not null" json:"status"`
	Attempts  int            `gorm:"not null;default:1" json:"attempts"`
	LastError string         `json:"last_error"`
	Payload   datatypes.JSON `gorm:"type:jsonb" json:"-"`
}

const (
	PayoutStatusPending    = "pending"
	PayoutStatusProcessing = "processing"
	PayoutStatusPaid       = "paid"
	PayoutStatusFailed     = "failed"

	PayoutMethodStripeTransfer = "stripe_transfer"
)

// 事件处理结果
const (
	EventProcessed = "processed"
	EventDuplicate = "duplicate"
	EventIgnored   = "ignored"
	EventFailed    = "failed"
	EventRejected  = "rejected"
)

// CanTransitionPayout pending -> processing -> paid，未完成前可转为 failed
func CanTransitionPayout(from, to string) bool {
	switch from {
	case PayoutStatusPending:
		return to == PayoutStatusProcessing || to == PayoutStatusFailed
	case PayoutStatusProcessing:
		return to == PayoutStatusPaid || to == PayoutStatusFailed
	}
	return false
}

// IsValidPayoutStatus 是否为合法结算状态
func IsValidPayoutStatus(s string) bool {
	switch s {
	case PayoutStatusPending, PayoutStatusProcessing, PayoutStatusPaid, PayoutStatusFailed:
		return true
	}
	return false
}

// FillOrdersIncluded 由 Items 生成 orders_included
func (p *Payout) FillOrdersIncluded() {
	p.OrdersIncluded = make([]string, 0, len(p.Items))
	for _, it := range p.Items {
		p.OrdersIncluded = append(p.OrdersIncluded, it.OrderID)
	}
}
