package model

import (
	"time"

	baseModel "symbiotic_city/pkg/model"

	"gorm.io/datatypes"
)

// Order 订单：一次结账中属于单个卖家的部分
type Order struct {
	baseModel.BaseModel
	OrderNumber     string         `gorm:"unique;not null" json:"order_number"`
	BuyerID         string         `gorm:"type:uuid;not null" json:"buyer_id"`
	SellerID        string         `gorm:"type:uuid;not null" json:"seller_id"`
	SubtotalCents   int64          `gorm:"not null" json:"subtotal_cents"`
	ShippingCents   int64          `gorm:"not null;default:0" json:"shipping_cents"`
	TaxCents        int64          `gorm:"not null;default:0" json:"tax_cents"`
	DiscountCents   int64          `gorm:"not null;default:0" json:"discount_cents"`
	TotalCents      int64          `gorm:"not null" json:"total_cents"`
	Currency        string         `gorm:"size:3;not null" json:"currency"`
	Status          string         `gorm:"default:'pending'" json:"status"`
	PaymentStatus   string         `gorm:"default:'pending'" json:"payment_status"`
	ShippingAddress datatypes.JSON `gorm:"type:jsonb" json:"shipping_address,omitempty"`
	RefundReason    string         `json:"refund_reason,omitempty"`
	Items           []OrderItem    `gorm:"foreignKey:OrderID" json:"items,omitempty"`
	Timeline        []OrderEvent   `gorm:"foreignKey:OrderID" json:"timeline,omitempty"`
}

// OrderItem 订单行，价格在下单时快照，不跟随商品后续调价
type OrderItem struct {
	baseModel.BaseModel
	OrderID        string `gorm:"type:uuid;not null;index" json:"order_id"`
	Position       int    `gorm:"not null" json:"position"`
	ProductID      string `gorm:"type:uuid;not null" json:"product_id"`
	Quantity       int    `gorm:"not null" json:"quantity"`
	UnitPriceCents int64  `gorm:"not null" json:"unit_price_cents"`
}

// LineTotal 行小计
func (i OrderItem) LineTotal() int64 {
	return i.UnitPriceCents * int64(i.Quantity)
}

// OrderEvent 订单时间线，只追加不修改
type OrderEvent struct {
	baseModel.BaseModel
	OrderID string `gorm:"type:uuid;not null;index" json:"order_id"`
	Status  string `gorm:"not null" json:"status"`
	Note    string `json:"note"`
}

// Product 商品（仅包含账务相关字段）
type Product struct {
	baseModel.BaseModel
	SellerID   string `gorm:"type:uuid;not null" json:"seller_id"`
	Name       string `gorm:"not null" json:"name"`
	PriceCents int64  `gorm:"not null" json:"price_cents"`
	Stock      int    `gorm:"not null" json:"stock"`
	SalesCount int    `gorm:"not null;default:0" json:"sales_count"`
}

// 订单履约状态
const (
	OrderStatusPending      = "pending"
	OrderStatusConfirmed    = "confirmed"
	OrderStatusInProduction = "in_production"
	OrderStatusReady        = "ready"
	OrderStatusInTransit    = "in_transit"
	OrderStatusDelivered    = "delivered"
	OrderStatusCancelled    = "cancelled"
	OrderStatusRefunded     = "refunded"
)

// 订单支付状态，与履约状态分开记录：交付后仍可能退款
const (
	PaymentStatusPending    = "pending"
	PaymentStatusProcessing = "processing"
	PaymentStatusPaid       = "paid"
	PaymentStatusFailed     = "failed"
	PaymentStatusRefunded   = "refunded"
)

// forwardProgression 正向履约顺序
var forwardProgression = []string{
	OrderStatusPending,
	OrderStatusConfirmed,
	OrderStatusInProduction,
	OrderStatusReady,
	OrderStatusInTransit,
	OrderStatusDelivered,
}

// IsValidOrderStatus 是否为已知状态
func IsValidOrderStatus(s string) bool {
	switch s {
	case OrderStatusCancelled, OrderStatusRefunded:
		return true
	}
	return stageOf(s) >= 0
}

// IsTerminal 终态：交付、取消、退款
func IsTerminal(s string) bool {
	return s == OrderStatusDelivered || s == OrderStatusCancelled || s == OrderStatusRefunded
}

// CanTransition 判断人工状态更新是否合法
// 允许：原地不动、前进一步、非终态取消。refunded 只能走退款流程
func CanTransition(from, to string) bool {
	if from == to {
		return true
	}
	if to == OrderStatusCancelled {
		return !IsTerminal(from)
	}
	i, j := stageOf(from), stageOf(to)
	return i >= 0 && j == i+1
}

func stageOf(s string) int {
	for i, st := range forwardProgression {
		if st == s {
			return i
		}
	}
	return -1
}

// NewEvent 构造一条时间线记录
func NewEvent(orderID, status, note string, at time.Time) OrderEvent {
	ev := OrderEvent{OrderID: orderID, Status: status, Note: note}
	ev.CreatedAt = at
	ev.UpdatedAt = at
	return ev
}
