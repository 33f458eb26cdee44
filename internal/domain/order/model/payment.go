package model

import (
	"time"

	baseModel "symbiotic_city/pkg/model"
)

// Payment 网关侧结算记录，与订单一一对应
type Payment struct {
	baseModel.BaseModel
	OrderID         string     `gorm:"type:uuid;not null;unique" json:"order_id"`
	SellerID        string     `gorm:"type:uuid;not null" json:"seller_id"`
	PaymentIntentID string     `gorm:"not null" json:"payment_intent_id"` // 幂等键
	AmountCents     int64      `gorm:"not null" json:"amount_cents"`
	Currency        string     `gorm:"size:3;not null" json:"currency"`
	PaymentMethod   string     `json:"payment_method"`
	Gateway         string     `gorm:"default:'stripe'" json:"gateway"`
	Status          string     `gorm:"not null" json:"status"`
	PlatformFeeBps  int64      `gorm:"not null" json:"platform_fee_bps"` // 下单时使用的费率
	PlatformFee     int64      `gorm:"not null" json:"platform_fee"`
	SellerAmount    int64      `gorm:"not null" json:"seller_amount"`
	RefundedAt      *time.Time `json:"refunded_at,omitempty"`
}

// PaymentStatusView 支付记录 + 订单号/订单状态
type PaymentStatusView struct {
	Payment     `gorm:"embedded"`
	OrderNumber string `json:"order_number"`
	OrderStatus string `json:"order_status"`
}

const (
	PaymentSucceeded = "succeeded"
	PaymentFailed    = "failed"
	PaymentRefunded  = "refunded"

	GatewayStripe = "stripe"
)

// SplitFee 按费率拆分平台佣金与卖家所得
// 佣金向下取整，零头归卖家；fee + seller == amount 恒成立
func SplitFee(subtotal, amount, feeBps int64) (fee, seller int64) {
	if subtotal <= 0 {
		return 0, amount
	}
	fee = subtotal * feeBps / 10000
	return fee, amount - fee
}
