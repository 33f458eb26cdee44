package repository

import (
	"context"
	"errors"
	"time"

	"symbiotic_city/internal/domain/order/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	// ErrInsufficientStock 库存不足
	ErrInsufficientStock = errors.New("insufficient stock")
	// ErrProductNotFound 商品不存在或不属于该卖家
	ErrProductNotFound = errors.New("product not found for seller")
	// ErrPriceMismatch 购物车单价与商品当前价格不一致
	ErrPriceMismatch = errors.New("unit price does not match product price")
)

// LedgerRepository 订单/支付账本存储
type LedgerRepository interface {
	// Transaction 在同一事务中执行 fn，fn 返回错误时整体回滚
	Transaction(ctx context.Context, fn func(tx LedgerRepository) error) error

	OrderNumberExists(ctx context.Context, orderNumber string) (bool, error)
	CreateOrder(ctx context.Context, order *model.Order) error
	LockOrder(ctx context.Context, id string) (*model.Order, error)
	GetOrder(ctx context.Context, id string) (*model.Order, error)
	ListItems(ctx context.Context, orderID string) ([]model.OrderItem, error)
	UpdateOrderStatus(ctx context.Context, id, status string) error
	MarkOrderRefunded(ctx context.Context, id, reason string) error
	AppendEvent(ctx context.Context, ev *model.OrderEvent) error
	ListOrders(ctx context.Context, filter OrderFilter, offset, limit int) ([]model.Order, int64, error)

	ProductsByIDs(ctx context.Context, ids []string) ([]model.Product, error)
	DecrementStock(ctx context.Context, productID, sellerID string, qty int, unitPriceCents int64) error
	IncrementSales(ctx context.Context, productID string, qty int) error

	CreatePayment(ctx context.Context, p *model.Payment) error
	PaymentsByIntent(ctx context.Context, intentID string, forUpdate bool) ([]model.Payment, error)
	MarkPaymentRefunded(ctx context.Context, id string, at time.Time) error
	PaymentStatusesByIntent(ctx context.Context, intentID, buyerID string) ([]model.PaymentStatusView, error)
}

type ledgerRepository struct {
	db *gorm.DB
}

func NewLedgerRepository(db *gorm.DB) LedgerRepository {
	return &ledgerRepository{db: db}
}

func (r *ledgerRepository) Transaction(ctx context.Context, fn func(tx LedgerRepository) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&ledgerRepository{db: tx})
	})
}

func (r *ledgerRepository) OrderNumberExists(ctx context.Context, orderNumber string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.Order{}).
		Where("order_number = ?", orderNumber).
		Count(&count).Error
	return count > 0, err
}

// CreateOrder 创建订单，同时写入订单行
func (r *ledgerRepository) CreateOrder(ctx context.Context, order *model.Order) error {
	return r.db.WithContext(ctx).Omit("Timeline").Create(order).Error
}

// LockOrder 行锁读取订单（SELECT ... FOR UPDATE），需在事务中调用
func (r *ledgerRepository) LockOrder(ctx context.Context, id string) (*model.Order, error) {
	var order model.Order
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).
		First(&order).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// GetOrder 读取订单及订单行、时间线
func (r *ledgerRepository) GetOrder(ctx context.Context, id string) (*model.Order, error) {
	var order model.Order
	err := r.db.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("position ASC") }).
		Preload("Timeline", func(db *gorm.DB) *gorm.DB { return db.Order("created_at ASC") }).
		Where("id = ?", id).
		First(&order).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *ledgerRepository) ListItems(ctx context.Context, orderID string) ([]model.OrderItem, error) {
	var items []model.OrderItem
	err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("position ASC").
		Find(&items).Error
	return items, err
}

func (r *ledgerRepository) UpdateOrderStatus(ctx context.Context, id, status string) error {
	return r.db.WithContext(ctx).Model(&model.Order{}).
		Where("id = ?", id).
		Update("status", status).Error
}

func (r *ledgerRepository) MarkOrderRefunded(ctx context.Context, id, reason string) error {
	return r.db.WithContext(ctx).Model(&model.Order{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":         model.OrderStatusRefunded,
			"payment_status": model.PaymentStatusRefunded,
			"refund_reason":  reason,
		}).Error
}

func (r *ledgerRepository) AppendEvent(ctx context.Context, ev *model.OrderEvent) error {
	return r.db.WithContext(ctx).Create(ev).Error
}

// ListOrders 按过滤条件分页查询
func (r *ledgerRepository) ListOrders(ctx context.Context, filter OrderFilter, offset, limit int) ([]model.Order, int64, error) {
	var orders []model.Order
	var total int64

	query := func() *gorm.DB {
		return r.db.WithContext(ctx).Model(&model.Order{}).Scopes(filter.Scopes()...)
	}
	if err := query().Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := query().
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("position ASC") }).
		Order("created_at DESC").
		Offset(offset).Limit(limit).
		Find(&orders).Error
	if err != nil {
		return nil, 0, err
	}
	return orders, total, nil
}

func (r *ledgerRepository) ProductsByIDs(ctx context.Context, ids []string) ([]model.Product, error) {
	var products []model.Product
	if len(ids) == 0 {
		return products, nil
	}
	err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&products).Error
	return products, err
}

// DecrementStock 条件更新扣减库存，避免读改写竞争导致库存为负
// 价格一并作为条件，下单后改价的商品不会按旧价成交
func (r *ledgerRepository) DecrementStock(ctx context.Context, productID, sellerID string, qty int, unitPriceCents int64) error {
	result := r.db.WithContext(ctx).Model(&model.Product{}).
		Where("id = ? AND seller_id = ? AND price_cents = ? AND stock >= ?", productID, sellerID, unitPriceCents, qty).
		UpdateColumn("stock", gorm.Expr("stock - ?", qty))

	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected > 0 {
		return nil
	}

	// 未命中时区分原因
	var p model.Product
	err := r.db.WithContext(ctx).Select("id", "seller_id", "price_cents", "stock").
		Where("id = ? AND seller_id = ?", productID, sellerID).
		Take(&p).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return ErrProductNotFound
	case err != nil:
		return err
	case p.PriceCents != unitPriceCents:
		return ErrPriceMismatch
	default:
		return ErrInsufficientStock
	}
}

func (r *ledgerRepository) IncrementSales(ctx context.Context, productID string, qty int) error {
	return r.db.WithContext(ctx).Model(&model.Product{}).
		Where("id = ?", productID).
		UpdateColumn("sales_count", gorm.Expr("sales_count + ?", qty)).Error
}

func (r *ledgerRepository) CreatePayment(ctx context.Context, p *model.Payment) error {
	return r.db.WithContext(ctx).Create(p).Error
}

func (r *ledgerRepository) PaymentsByIntent(ctx context.Context, intentID string, forUpdate bool) ([]model.Payment, error) {
	var payments []model.Payment
	q := r.db.WithContext(ctx).Where("payment_intent_id = ?", intentID)
	if forUpdate {
		q = q.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	err := q.Order("created_at ASC").Find(&payments).Error
	return payments, err
}

func (r *ledgerRepository) MarkPaymentRefunded(ctx context.Context, id string, at time.Time) error {
	return r.db.WithContext(ctx).Model(&model.Payment{}).
		Where("id = ? AND status = ?", id, model.PaymentSucceeded).
		Updates(map[string]interface{}{
			"status":      model.PaymentRefunded,
			"refunded_at": at,
		}).Error
}

// PaymentStatusesByIntent 支付记录关联订单号，仅返回属于该买家的记录
func (r *ledgerRepository) PaymentStatusesByIntent(ctx context.Context, intentID, buyerID string) ([]model.PaymentStatusView, error) {
	var rows []model.PaymentStatusView
	err := r.db.WithContext(ctx).
		Table("payments AS p").
		Select("p.*, o.order_number, o.status AS order_status").
		Joins("JOIN orders o ON o.id = p.order_id").
		Where("p.payment_intent_id = ? AND o.buyer_id = ?", intentID, buyerID).
		Order("p.created_at ASC").
		Scan(&rows).Error
	return rows, err
}
