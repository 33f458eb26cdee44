package service

import (
	"context"
	"errors"
	"fmt"

	orderService "symbiotic_city/internal/domain/order/service"
	"symbiotic_city/internal/domain/payment/gateway"
	"symbiotic_city/internal/domain/payment/model"
	"symbiotic_city/internal/domain/payment/repository"
	"symbiotic_city/pkg/apperr"
	"symbiotic_city/pkg/metrics"

	"go.uber.org/zap"
)

// ReconcileResult 单个回调事件的处理结果
type ReconcileResult struct {
	EventID   string
	EventType string
	Outcome   string // processed, duplicate, ignored
}

// Reconciler 校验网关回调并应用到订单账本
// 同一事件可能被重复投递，每种事件的处理都必须幂等
type Reconciler struct {
	gateway gateway.Gateway
	ledger  orderService.LedgerService
	events  repository.WebhookEventRepository
	metrics *metrics.Collector
	log     *zap.Logger
}

func NewReconciler(gw gateway.Gateway, ledger orderService.LedgerService, events repository.WebhookEventRepository, m *metrics.Collector, log *zap.Logger) *Reconciler {
	return &Reconciler{
		gateway: gw,
		ledger:  ledger,
		events:  events,
		metrics: m,
		log:     log,
	}
}

// Handle 验签、解析并处理一个回调
// 返回错误时网关会稍后重试，因此存储失败必须向上返回
func (r *Reconciler) Handle(ctx context.Context, payload []byte, signature string) (*ReconcileResult, error) {
	ev, err := r.gateway.ParseEvent(payload, signature)
	if err != nil {
		outcome := model.EventRejected
		if apperr.IsKind(err, apperr.KindSignature) {
			outcome = "signature_error"
		}
		r.metrics.ObserveWebhook("unverified", outcome)
		r.log.Warn("webhook rejected", zap.String("outcome", outcome), zap.Error(err))
		return nil, err
	}

	outcome, err := r.apply(ctx, ev)
	status, lastErr := outcome, ""
	if err != nil {
		status, lastErr = model.EventFailed, err.Error()
	}
	r.record(ctx, ev, status, lastErr)
	r.metrics.ObserveWebhook(ev.EventType(), status)

	if err != nil {
		r.log.Error("webhook processing failed",
			zap.String("event_id", ev.EventID()),
			zap.String("event_type", ev.EventType()),
			zap.Error(err))
		return nil, err
	}
	return &ReconcileResult{EventID: ev.EventID(), EventType: ev.EventType(), Outcome: outcome}, nil
}

func (r *Reconciler) apply(ctx context.Context, ev gateway.Event) (string, error) {
	switch e := ev.(type) {
	case *gateway.PaymentSucceeded:
		return r.paymentSucceeded(ctx, e)
	case *gateway.PaymentFailed:
		r.log.Warn("payment failed",
			zap.String("event_id", e.ID),
			zap.String("payment_intent_id", e.PaymentIntentID),
			zap.String("failure_code", e.FailureCode),
			zap.String("failure_message", e.FailureMessage))
		return model.EventProcessed, nil
	case *gateway.ChargeRefunded:
		return r.chargeRefunded(ctx, e)
	default:
		r.log.Debug("webhook event ignored",
			zap.String("event_id", ev.EventID()),
			zap.String("event_type", ev.EventType()))
		return model.EventIgnored, nil
	}
}

func (r *Reconciler) paymentSucceeded(ctx context.Context, e *gateway.PaymentSucceeded) (string, error) {
	recorded, err := r.ledger.IsRecorded(ctx, e.PaymentIntentID)
	if err != nil {
		return "", err
	}
	if recorded {
		r.log.Info("payment already recorded", zap.String("payment_intent_id", e.PaymentIntentID))
		return model.EventDuplicate, nil
	}

	orders, _, err := r.ledger.CreateFromCart(ctx, orderService.CreateFromCartInput{
		PaymentIntentID: e.PaymentIntentID,
		BuyerID:         e.Metadata.BuyerID,
		Items:           e.Metadata.CartItems,
		ShippingAddress: e.Metadata.ShippingAddress,
		GatewayAmount:   e.AmountCents,
		Currency:        e.Currency,
		PaymentMethod:   e.PaymentMethod,
	})
	// 并发投递时由唯一约束兜底，后到者按已处理返回
	if errors.Is(err, orderService.ErrAlreadyRecorded) {
		return model.EventDuplicate, nil
	}
	if err != nil {
		return "", fmt.Errorf("record payment %s: %w", e.PaymentIntentID, err)
	}

	r.log.Info("payment recorded",
		zap.String("event_id", e.ID),
		zap.String("payment_intent_id", e.PaymentIntentID),
		zap.Int("orders", len(orders)))
	return model.EventProcessed, nil
}

func (r *Reconciler) chargeRefunded(ctx context.Context, e *gateway.ChargeRefunded) (string, error) {
	n, err := r.ledger.Refund(ctx, e.PaymentIntentID, e.Reason)
	if err != nil {
		return "", fmt.Errorf("refund payment %s: %w", e.PaymentIntentID, err)
	}
	if n == 0 {
		return model.EventDuplicate, nil
	}
	r.log.Info("payment refunded",
		zap.String("event_id", e.ID),
		zap.String("payment_intent_id", e.PaymentIntentID),
		zap.String("charge_id", e.ChargeID),
		zap.Int64("amount_refunded", e.AmountRefunded),
		zap.Bool("fully_refunded", e.FullyRefunded),
		zap.Int("payments", n))
	return model.EventProcessed, nil
}

// record 写入投递记录，失败只记日志
func (r *Reconciler) record(ctx context.Context, ev gateway.Event, status, lastErr string) {
	if r.events == nil {
		return
	}
	err := r.events.Record(ctx, &model.WebhookEvent{
		EventID:   ev.EventID(),
		EventType: ev.EventType(),
		Status:    status,
		LastError: lastErr,
		Payload:   ev.Payload(),
	})
	if err != nil {
		r.log.Warn("record webhook event failed", zap.String("event_id", ev.EventID()), zap.Error(err))
	}
}
