package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"symbiotic_city/internal/domain/order/model"
	"symbiotic_city/internal/domain/order/repository"
	"symbiotic_city/internal/pkg/notify"
	"symbiotic_city/pkg/apperr"
	"symbiotic_city/pkg/database"
	"symbiotic_city/pkg/metrics"
	baseModel "symbiotic_city/pkg/model"
	"symbiotic_city/pkg/utils"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// ErrAlreadyRecorded 该支付意图的订单已创建（重复投递或并发写入）
var ErrAlreadyRecorded = apperr.Conflict("payment already recorded")

const maxOrderNumberAttempts = 5

// CreateFromCartInput 网关确认支付后创建订单所需信息
type CreateFromCartInput struct {
	PaymentIntentID string
	BuyerID         string
	Items           []model.CartItem
	ShippingAddress *model.ShippingAddress
	GatewayAmount   int64
	Currency        string
	PaymentMethod   string
}

// LedgerService 订单账本
type LedgerService interface {
	CreateFromCart(ctx context.Context, in CreateFromCartInput) ([]model.Order, []model.Payment, error)
	UpdateStatus(ctx context.Context, orderID, newStatus string, actor baseModel.Actor) (*model.Order, error)
	Refund(ctx context.Context, paymentIntentID, reason string) (int, error)
	GetOrder(ctx context.Context, orderID string, actor baseModel.Actor) (*model.Order, error)
	ListOrders(ctx context.Context, filter repository.OrderFilter, page utils.Pagination) ([]model.Order, int64, error)
	PaymentStatus(ctx context.Context, paymentIntentID, buyerID string) ([]model.PaymentStatusView, error)
	// IsRecorded 该支付意图是否已生成订单
	IsRecorded(ctx context.Context, paymentIntentID string) (bool, error)
	// VerifyCart 按商品目录核对卖家归属与单价
	VerifyCart(ctx context.Context, items []model.CartItem) error
}

type ledgerService struct {
	repo           repository.LedgerRepository
	dispatcher     notify.Dispatcher
	metrics        *metrics.Collector
	log            *zap.Logger
	platformFeeBps int64

	now            func() time.Time
	newOrderNumber func(time.Time) string
}

func NewLedgerService(repo repository.LedgerRepository, dispatcher notify.Dispatcher, m *metrics.Collector, log *zap.Logger, platformFeeBps int64) LedgerService {
	if dispatcher == nil {
		dispatcher = notify.Discard{}
	}
	return &ledgerService{
		repo:           repo,
		dispatcher:     dispatcher,
		metrics:        m,
		log:            log,
		platformFeeBps: platformFeeBps,
		now:            time.Now,
		newOrderNumber: generateOrderNumber,
	}
}

// generateOrderNumber 时间戳 + 随机后缀
func generateOrderNumber(now time.Time) string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.New().String(), "-", "")[:8])
	return fmt.Sprintf("SC%s%s", now.UTC().Format("20060102150405"), suffix)
}

// CreateFromCart 按卖家拆单，订单、支付记录与库存扣减在同一事务中完成
func (s *ledgerService) CreateFromCart(ctx context.Context, in CreateFromCartInput) ([]model.Order, []model.Payment, error) {
	if in.PaymentIntentID == "" || in.BuyerID == "" {
		return nil, nil, apperr.Validation("payment intent id and buyer id are required")
	}
	if err := model.ValidateCart(in.Items); err != nil {
		return nil, nil, apperr.Wrap(apperr.KindValidation, "invalid cart", err)
	}

	var address datatypes.JSON
	if in.ShippingAddress != nil {
		raw, err := json.Marshal(in.ShippingAddress)
		if err != nil {
			return nil, nil, apperr.Wrap(apperr.KindValidation, "invalid shipping address", err)
		}
		address = raw
	}

	currency := strings.ToLower(in.Currency)
	sellers, groups := model.GroupBySeller(in.Items)
	now := s.now()

	var orders []model.Order
	var payments []model.Payment

	// 先写入全部订单与支付记录，再扣库存：重复投递会在支付记录的唯一约束上失败，不会先撞上库存不足
	err := s.repo.Transaction(ctx, func(tx repository.LedgerRepository) error {
		orders, payments = nil, nil
		for _, sellerID := range sellers {
			order, payment, err := s.createSellerOrder(ctx, tx, in, sellerID, groups[sellerID], currency, address, now)
			if err != nil {
				return err
			}
			orders = append(orders, *order)
			payments = append(payments, *payment)
		}
		for _, sellerID := range sellers {
			for _, it := range groups[sellerID] {
				if err := tx.DecrementStock(ctx, it.ProductID, sellerID, it.Quantity, it.UnitPriceCents); err != nil {
					return fmt.Errorf("decrement stock for product %s: %w", it.ProductID, err)
				}
			}
		}
		return nil
	})
	if err != nil {
		if database.IsUniqueViolation(err, "uq_payments_intent_seller") {
			return nil, nil, ErrAlreadyRecorded
		}
		// 回滚后再确认一次，并发写入方可能已提交
		if recorded, _ := s.IsRecorded(ctx, in.PaymentIntentID); recorded {
			return nil, nil, ErrAlreadyRecorded
		}
		switch {
		case errors.Is(err, repository.ErrInsufficientStock):
			return nil, nil, apperr.Wrap(apperr.KindInvalidState, "insufficient stock", err)
		case errors.Is(err, repository.ErrPriceMismatch), errors.Is(err, repository.ErrProductNotFound):
			return nil, nil, apperr.Wrap(apperr.KindValidation, "cart does not match the product catalog", err)
		}
		return nil, nil, err
	}

	var total int64
	for _, o := range orders {
		total += o.TotalCents
	}
	if in.GatewayAmount != 0 && in.GatewayAmount != total {
		s.metrics.ObserveAmountMismatch()
		s.log.Warn("gateway amount differs from cart total",
			zap.String("payment_intent_id", in.PaymentIntentID),
			zap.Int64("gateway_amount", in.GatewayAmount),
			zap.Int64("cart_total", total))
	}

	s.metrics.AddOrdersCreated(len(orders))
	for _, o := range orders {
		s.log.Info("order created",
			zap.String("order_id", o.ID),
			zap.String("order_number", o.OrderNumber),
			zap.String("seller_id", o.SellerID),
			zap.String("payment_intent_id", in.PaymentIntentID),
			zap.Int64("total_cents", o.TotalCents))
		s.dispatcher.Dispatch(notify.Notification{
			AccountID: o.SellerID,
			Title:     "New order",
			Body:      fmt.Sprintf("Order %s has been paid and is waiting for confirmation.", o.OrderNumber),
			Extra:     map[string]string{"order_id": o.ID},
		})
	}
	s.dispatcher.Dispatch(notify.Notification{
		AccountID: in.BuyerID,
		Title:     "Payment received",
		Body:      fmt.Sprintf("Your payment was received. %d order(s) created.", len(orders)),
	})

	return orders, payments, nil
}

func (s *ledgerService) createSellerOrder(ctx context.Context, tx repository.LedgerRepository, in CreateFromCartInput,
	sellerID string, items []model.CartItem, currency string, address datatypes.JSON, now time.Time) (*model.Order, *model.Payment, error) {

	orderNumber, err := s.uniqueOrderNumber(ctx, tx, now)
	if err != nil {
		return nil, nil, err
	}

	order := &model.Order{
		OrderNumber:     orderNumber,
		BuyerID:         in.BuyerID,
		SellerID:        sellerID,
		Currency:        currency,
		Status:          model.OrderStatusPending,
		PaymentStatus:   model.PaymentStatusPaid, // 仅在网关确认支付后走到这里
		ShippingAddress: address,
	}
	for i, it := range items {
		line := model.OrderItem{
			Position:       i,
			ProductID:      it.ProductID,
			Quantity:       it.Quantity,
			UnitPriceCents: it.UnitPriceCents,
		}
		order.Items = append(order.Items, line)
		order.SubtotalCents += line.LineTotal()
	}
	order.TotalCents = order.SubtotalCents + order.ShippingCents + order.TaxCents - order.DiscountCents

	if err := tx.CreateOrder(ctx, order); err != nil {
		return nil, nil, fmt.Errorf("create order for seller %s: %w", sellerID, err)
	}

	ev := model.NewEvent(order.ID, model.OrderStatusPending, "Order created from payment "+in.PaymentIntentID, now)
	if err := tx.AppendEvent(ctx, &ev); err != nil {
		return nil, nil, fmt.Errorf("append order event: %w", err)
	}
	order.Timeline = []model.OrderEvent{ev}

	fee, sellerAmount := model.SplitFee(order.SubtotalCents, order.TotalCents, s.platformFeeBps)
	payment := &model.Payment{
		OrderID:         order.ID,
		SellerID:        sellerID,
		PaymentIntentID: in.PaymentIntentID,
		AmountCents:     order.TotalCents,
		Currency:        currency,
		PaymentMethod:   in.PaymentMethod,
		Gateway:         model.GatewayStripe,
		Status:          model.PaymentSucceeded,
		PlatformFeeBps:  s.platformFeeBps,
		PlatformFee:     fee,
		SellerAmount:    sellerAmount,
	}
	if err := tx.CreatePayment(ctx, payment); err != nil {
		return nil, nil, fmt.Errorf("create payment for order %s: %w", order.ID, err)
	}
	return order, payment, nil
}

func (s *ledgerService) uniqueOrderNumber(ctx context.Context, tx repository.LedgerRepository, now time.Time) (string, error) {
	for i := 0; i < maxOrderNumberAttempts; i++ {
		candidate := s.newOrderNumber(now)
		exists, err := tx.OrderNumberExists(ctx, candidate)
		if err != nil {
			return "", fmt.Errorf("check order number: %w", err)
		}
		if !exists {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("could not generate a unique order number after %d attempts", maxOrderNumberAttempts)
}

// UpdateStatus 卖家或管理员推进订单状态
func (s *ledgerService) UpdateStatus(ctx context.Context, orderID, newStatus string, actor baseModel.Actor) (*model.Order, error) {
	if !model.IsValidOrderStatus(newStatus) {
		return nil, apperr.Validation(fmt.Sprintf("unknown order status %q", newStatus))
	}

	changed := false
	err := s.repo.Transaction(ctx, func(tx repository.LedgerRepository) error {
		order, err := tx.LockOrder(ctx, orderID)
		if err != nil {
			return notFound(err, "order not found")
		}
		if order.SellerID != actor.UserID && !actor.IsAdmin() {
			return apperr.Forbidden("only the seller or an administrator can update this order")
		}
		if newStatus == model.OrderStatusRefunded {
			return apperr.InvalidState("refunds are applied through the payment gateway")
		}
		if !model.CanTransition(order.Status, newStatus) {
			return apperr.InvalidState(fmt.Sprintf("cannot move order from %s to %s", order.Status, newStatus))
		}
		if order.Status == newStatus {
			return nil
		}

		if err := tx.UpdateOrderStatus(ctx, orderID, newStatus); err != nil {
			return fmt.Errorf("update order status: %w", err)
		}
		ev := model.NewEvent(orderID, newStatus, "Status updated by "+actor.UserID, s.now())
		if err := tx.AppendEvent(ctx, &ev); err != nil {
			return fmt.Errorf("append order event: %w", err)
		}

		// 交付视为成交，累加商品销量
		if newStatus == model.OrderStatusDelivered {
			items, err := tx.ListItems(ctx, orderID)
			if err != nil {
				return fmt.Errorf("list order items: %w", err)
			}
			for _, it := range items {
				if err := tx.IncrementSales(ctx, it.ProductID, it.Quantity); err != nil {
					return fmt.Errorf("increment sales: %w", err)
				}
			}
		}
		changed = true
		return nil
	})
	if err != nil {
		return nil, err
	}

	order, err := s.repo.GetOrder(ctx, orderID)
	if err != nil {
		return nil, notFound(err, "order not found")
	}

	if changed {
		s.metrics.ObserveTransition(newStatus)
		s.log.Info("order status updated",
			zap.String("order_id", orderID),
			zap.String("status", newStatus),
			zap.String("actor", actor.UserID))
		s.dispatcher.Dispatch(notify.Notification{
			AccountID: order.BuyerID,
			Title:     "Order update",
			Body:      fmt.Sprintf("Order %s is now %s.", order.OrderNumber, strings.ReplaceAll(newStatus, "_", " ")),
			Extra:     map[string]string{"order_id": order.ID},
		})
	}
	return order, nil
}

// Refund 将该支付意图下所有已成功的支付及订单置为已退款
// 返回本次实际变更的支付条数，0 表示已处理过
func (s *ledgerService) Refund(ctx context.Context, paymentIntentID, reason string) (int, error) {
	var refunded []model.Payment
	var orders []model.Order

	err := s.repo.Transaction(ctx, func(tx repository.LedgerRepository) error {
		refunded, orders = nil, nil
		payments, err := tx.PaymentsByIntent(ctx, paymentIntentID, true)
		if err != nil {
			return fmt.Errorf("load payments: %w", err)
		}
		if len(payments) == 0 {
			return apperr.NotFound("no payment recorded for " + paymentIntentID)
		}

		now := s.now()
		for _, p := range payments {
			if p.Status != model.PaymentSucceeded {
				continue
			}
			if err := tx.MarkPaymentRefunded(ctx, p.ID, now); err != nil {
				return fmt.Errorf("mark payment refunded: %w", err)
			}
			if err := tx.MarkOrderRefunded(ctx, p.OrderID, reason); err != nil {
				return fmt.Errorf("mark order refunded: %w", err)
			}
			note := "Refunded"
			if reason != "" {
				note += ": " + reason
			}
			ev := model.NewEvent(p.OrderID, model.OrderStatusRefunded, note, now)
			if err := tx.AppendEvent(ctx, &ev); err != nil {
				return fmt.Errorf("append order event: %w", err)
			}
			order, err := tx.LockOrder(ctx, p.OrderID)
			if err != nil {
				return fmt.Errorf("load refunded order: %w", err)
			}
			refunded = append(refunded, p)
			orders = append(orders, *order)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	s.metrics.AddRefunds(len(refunded))
	for _, o := range orders {
		s.log.Info("order refunded",
			zap.String("order_id", o.ID),
			zap.String("payment_intent_id", paymentIntentID),
			zap.String("reason", reason))
		s.dispatcher.Dispatch(notify.Notification{
			AccountID: o.BuyerID,
			Title:     "Refund issued",
			Body:      fmt.Sprintf("Order %s has been refunded.", o.OrderNumber),
			Extra:     map[string]string{"order_id": o.ID},
		})
		s.dispatcher.Dispatch(notify.Notification{
			AccountID: o.SellerID,
			Title:     "Order refunded",
			Body:      fmt.Sprintf("Order %s was refunded to the buyer.", o.OrderNumber),
			Extra:     map[string]string{"order_id": o.ID},
		})
	}
	return len(refunded), nil
}

// GetOrder 买家、卖家或管理员可查看
func (s *ledgerService) GetOrder(ctx context.Context, orderID string, actor baseModel.Actor) (*model.Order, error) {
	order, err := s.repo.GetOrder(ctx, orderID)
	if err != nil {
		return nil, notFound(err, "order not found")
	}
	if !actor.IsAdmin() && actor.UserID != order.BuyerID && actor.UserID != order.SellerID {
		return nil, apperr.Forbidden("you do not have access to this order")
	}
	return order, nil
}

func (s *ledgerService) ListOrders(ctx context.Context, filter repository.OrderFilter, page utils.Pagination) ([]model.Order, int64, error) {
	offset, limit := page.GetPageOffset()
	return s.repo.ListOrders(ctx, filter, offset, limit)
}

// PaymentStatus 查询支付意图对应的支付记录，仅限本人
func (s *ledgerService) PaymentStatus(ctx context.Context, paymentIntentID, buyerID string) ([]model.PaymentStatusView, error) {
	rows, err := s.repo.PaymentStatusesByIntent(ctx, paymentIntentID, buyerID)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, apperr.NotFound("payment not found")
	}
	return rows, nil
}

func (s *ledgerService) IsRecorded(ctx context.Context, paymentIntentID string) (bool, error) {
	payments, err := s.repo.PaymentsByIntent(ctx, paymentIntentID, false)
	if err != nil {
		return false, fmt.Errorf("lookup payments: %w", err)
	}
	return len(payments) > 0, nil
}

func (s *ledgerService) VerifyCart(ctx context.Context, items []model.CartItem) error {
	if err := model.ValidateCart(items); err != nil {
		return apperr.Wrap(apperr.KindValidation, err.Error(), err)
	}

	ids := make([]string, 0, len(items))
	seen := make(map[string]bool, len(items))
	for _, it := range items {
		if !seen[it.ProductID] {
			seen[it.ProductID] = true
			ids = append(ids, it.ProductID)
		}
	}
	products, err := s.repo.ProductsByIDs(ctx, ids)
	if err != nil {
		return fmt.Errorf("load products: %w", err)
	}
	catalog := make(map[string]model.Product, len(products))
	for _, p := range products {
		catalog[p.ID] = p
	}

	for i, it := range items {
		p, ok := catalog[it.ProductID]
		if !ok || p.SellerID != it.SellerID {
			return apperr.Validation(fmt.Sprintf("cart item %d: product %s is not sold by seller %s", i, it.ProductID, it.SellerID))
		}
		if p.PriceCents != it.UnitPriceCents {
			return apperr.Validation(fmt.Sprintf("cart item %d: unit_price_cents %d does not match current price %d", i, it.UnitPriceCents, p.PriceCents))
		}
	}
	return nil
}

func notFound(err error, msg string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperr.NotFound(msg)
	}
	return err
}
