// Package ordertest 提供内存版账本存储，供各领域的单元测试使用
// 模拟数据库的唯一约束、条件扣减与事务回滚
package ordertest

import (
	"context"
	"sort"
	"sync"
	"time"

	"symbiotic_city/internal/domain/order/model"
	"symbiotic_city/internal/domain/order/repository"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

// Store 内存账本
type Store struct {
	txMu sync.Mutex // 串行化事务
	mu   sync.Mutex

	orders   map[string]model.Order
	items    []model.OrderItem
	events   []model.OrderEvent
	payments []model.Payment
	products map[string]model.Product

	failures map[string]error
}

var _ repository.LedgerRepository = (*Store)(nil)

func NewStore() *Store {
	return &Store{
		orders:   make(map[string]model.Order),
		products: make(map[string]model.Product),
		failures: make(map[string]error),
	}
}

// FailNext 下一次调用 method 时返回 err
func (s *Store) FailNext(method string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[method] = err
}

func (s *Store) injected(method string) error {
	if err, ok := s.failures[method]; ok {
		delete(s.failures, method)
		return err
	}
	return nil
}

// AddProduct 预置商品
func (s *Store) AddProduct(p model.Product) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	s.products[p.ID] = p
}

func (s *Store) Product(id string) model.Product {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.products[id]
}

// Orders 全部订单（含订单行），按创建顺序
func (s *Store) Orders() []model.Order {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.Order, 0, len(s.orders))
	for _, o := range s.orders {
		out = append(out, s.withItems(o))
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].OrderNumber < out[j].OrderNumber
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

func (s *Store) Payments() []model.Payment {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.Payment(nil), s.payments...)
}

func (s *Store) Events(orderID string) []model.OrderEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.OrderEvent
	for _, ev := range s.events {
		if ev.OrderID == orderID {
			out = append(out, ev)
		}
	}
	return out
}

// PutOrder 直接写入订单与支付记录，用于构造测试前置状态
func (s *Store) PutOrder(o model.Order, p *model.Payment) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if o.ID == "" {
		o.ID = uuid.New().String()
	}
	if o.CreatedAt.IsZero() {
		o.CreatedAt = time.Now()
	}
	for i, it := range o.Items {
		it.OrderID = o.ID
		if it.ID == "" {
			it.ID = uuid.New().String()
		}
		s.items = append(s.items, it)
		o.Items[i] = it
	}
	o.Items = nil
	s.orders[o.ID] = o
	if p != nil {
		p.OrderID = o.ID
		if p.ID == "" {
			p.ID = uuid.New().String()
		}
		if p.SellerID == "" {
			p.SellerID = o.SellerID
		}
		s.payments = append(s.payments, *p)
	}
}

func (s *Store) Transaction(ctx context.Context, fn func(tx repository.LedgerRepository) error) error {
	s.txMu.Lock()
	defer s.txMu.Unlock()

	s.mu.Lock()
	snap := s.snapshot()
	s.mu.Unlock()

	if err := fn(s); err != nil {
		s.mu.Lock()
		s.restore(snap)
		s.mu.Unlock()
		return err
	}
	return nil
}

type snapshot struct {
	orders   map[string]model.Order
	items    []model.OrderItem
	events   []model.OrderEvent
	payments []model.Payment
	products map[string]model.Product
}

func (s *Store) snapshot() snapshot {
	snap := snapshot{
		orders:   make(map[string]model.Order, len(s.orders)),
		items:    append([]model.OrderItem(nil), s.items...),
		events:   append([]model.OrderEvent(nil), s.events...),
		payments: append([]model.Payment(nil), s.payments...),
		products: make(map[string]model.Product, len(s.products)),
	}
	for k, v := range s.orders {
		snap.orders[k] = v
	}
	for k, v := range s.products {
		snap.products[k] = v
	}
	return snap
}

func (s *Store) restore(snap snapshot) {
	s.orders = snap.orders
	s.items = snap.items
	s.events = snap.events
	s.payments = snap.payments
	s.products = snap.products
}

func (s *Store) OrderNumberExists(ctx context.Context, orderNumber string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, o := range s.orders {
		if o.OrderNumber == orderNumber {
			return true, nil
		}
	}
	return false, nil
}

func (s *Store) CreateOrder(ctx context.Context, order *model.Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.injected("CreateOrder"); err != nil {
		return err
	}
	for _, o := range s.orders {
		if o.OrderNumber == order.OrderNumber {
			return &pgconn.PgError{Code: "23505", ConstraintName: "uq_orders_order_number"}
		}
	}
	if order.ID == "" {
		order.ID = uuid.New().String()
	}
	now := time.Now()
	order.CreatedAt, order.UpdatedAt = now, now
	for i := range order.Items {
		it := &order.Items[i]
		it.OrderID = order.ID
		if it.ID == "" {
			it.ID = uuid.New().String()
		}
		s.items = append(s.items, *it)
	}
	stored := *order
	stored.Items = nil
	stored.Timeline = nil
	s.orders[order.ID] = stored
	return nil
}

func (s *Store) LockOrder(ctx context.Context, id string) (*model.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &o, nil
}

func (s *Store) GetOrder(ctx context.Context, id string) (*model.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	o = s.withItems(o)
	for _, ev := range s.events {
		if ev.OrderID == id {
			o.Timeline = append(o.Timeline, ev)
		}
	}
	return &o, nil
}

func (s *Store) withItems(o model.Order) model.Order {
	o.Items = nil
	for _, it := range s.items {
		if it.OrderID == o.ID {
			o.Items = append(o.Items, it)
		}
	}
	sort.Slice(o.Items, func(i, j int) bool { return o.Items[i].Position < o.Items[j].Position })
	return o
}

func (s *Store) ListItems(ctx context.Context, orderID string) ([]model.OrderItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.withItems(model.Order{BaseModel: s.orders[orderID].BaseModel}).Items, nil
}

func (s *Store) UpdateOrderStatus(ctx context.Context, id, status string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.injected("UpdateOrderStatus"); err != nil {
		return err
	}
	o := s.orders[id]
	o.Status = status
	o.UpdatedAt = time.Now()
	s.orders[id] = o
	return nil
}

func (s *Store) MarkOrderRefunded(ctx context.Context, id, reason string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	o := s.orders[id]
	o.Status = model.OrderStatusRefunded
	o.PaymentStatus = model.PaymentStatusRefunded
	o.RefundReason = reason
	s.orders[id] = o
	return nil
}

func (s *Store) AppendEvent(ctx context.Context, ev *model.OrderEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if ev.ID == "" {
		ev.ID = uuid.New().String()
	}
	s.events = append(s.events, *ev)
	return nil
}

func (s *Store) ListOrders(ctx context.Context, filter repository.OrderFilter, offset, limit int) ([]model.Order, int64, error) {
	all := s.Orders()
	var matched []model.Order
	for _, o := range all {
		if filter.BuyerID != "" && o.BuyerID != filter.BuyerID {
			continue
		}
		if filter.SellerID != "" && o.SellerID != filter.SellerID {
			continue
		}
		if filter.Status != "" && o.Status != filter.Status {
			continue
		}
		if filter.PaymentStatus != "" && o.PaymentStatus != filter.PaymentStatus {
			continue
		}
		matched = append(matched, o)
	}
	total := int64(len(matched))
	if offset >= len(matched) {
		return []model.Order{}, total, nil
	}
	end := offset + limit
	if end > len(matched) {
		end = len(matched)
	}
	return matched[offset:end], total, nil
}

func (s *Store) ProductsByIDs(ctx context.Context, ids []string) ([]model.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.injected("ProductsByIDs"); err != nil {
		return nil, err
	}
	var out []model.Product
	for _, id := range ids {
		if p, ok := s.products[id]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

func (s *Store) DecrementStock(ctx context.Context, productID, sellerID string, qty int, unitPriceCents int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.injected("DecrementStock"); err != nil {
		return err
	}
	p, ok := s.products[productID]
	switch {
	case !ok || p.SellerID != sellerID:
		return repository.ErrProductNotFound
	case p.PriceCents != unitPriceCents:
		return repository.ErrPriceMismatch
	case p.Stock < qty:
		return repository.ErrInsufficientStock
	}
	p.Stock -= qty
	s.products[productID] = p
	return nil
}

// SetPrice 修改商品价格
func (s *Store) SetPrice(productID string, priceCents int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := s.products[productID]
	p.PriceCents = priceCents
	s.products[productID] = p
}

func (s *Store) IncrementSales(ctx context.Context, productID string, qty int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := s.products[productID]
	p.SalesCount += qty
	s.products[productID] = p
	return nil
}

func (s *Store) CreatePayment(ctx context.Context, p *model.Payment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.injected("CreatePayment"); err != nil {
		return err
	}
	for _, existing := range s.payments {
		if existing.PaymentIntentID == p.PaymentIntentID && existing.SellerID == p.SellerID {
			return &pgconn.PgError{Code: "23505", ConstraintName: "uq_payments_intent_seller"}
		}
	}
	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	now := time.Now()
	p.CreatedAt, p.UpdatedAt = now, now
	s.payments = append(s.payments, *p)
	return nil
}

func (s *Store) PaymentsByIntent(ctx context.Context, intentID string, forUpdate bool) ([]model.Payment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.injected("PaymentsByIntent"); err != nil {
		return nil, err
	}
	var out []model.Payment
	for _, p := range s.payments {
		if p.PaymentIntentID == intentID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (s *Store) MarkPaymentRefunded(ctx context.Context, id string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.payments {
		if s.payments[i].ID == id && s.payments[i].Status == model.PaymentSucceeded {
			s.payments[i].Status = model.PaymentRefunded
			t := at
			s.payments[i].RefundedAt = &t
		}
	}
	return nil
}

func (s *Store) PaymentStatusesByIntent(ctx context.Context, intentID, buyerID string) ([]model.PaymentStatusView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.PaymentStatusView
	for _, p := range s.payments {
		o := s.orders[p.OrderID]
		if p.PaymentIntentID == intentID && o.BuyerID == buyerID {
			out = append(out, model.PaymentStatusView{Payment: p, OrderNumber: o.OrderNumber, OrderStatus: o.Status})
		}
	}
	return out, nil
}
