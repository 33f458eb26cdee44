package service

import (
	"context"
	"fmt"
	"strings"

	orderModel "symbiotic_city/internal/domain/order/model"
	"symbiotic_city/internal/domain/payment/gateway"
	"symbiotic_city/pkg/apperr"

	"go.uber.org/zap"
)

// SupportedCurrencies 可用于下单的币种
var SupportedCurrencies = []string{"usd", "eur", "gbp", "cad"}

// CheckoutInput 创建支付意图
type CheckoutInput struct {
	BuyerID         string
	AmountCents     int64
	Currency        string
	CartItems       []orderModel.CartItem
	ShippingAddress *orderModel.ShippingAddress
}

// CartVerifier 按商品目录核对购物车
type CartVerifier interface {
	VerifyCart(ctx context.Context, items []orderModel.CartItem) error
}

// CheckoutService 结账：向网关申请支付意图，订单在支付成功回调中创建
type CheckoutService interface {
	CreatePaymentIntent(ctx context.Context, in CheckoutInput) (*gateway.Intent, error)
}

type checkoutService struct {
	gateway         gateway.Gateway
	catalog         CartVerifier
	log             *zap.Logger
	minAmountCents  int64
	defaultCurrency string
}

func NewCheckoutService(gw gateway.Gateway, catalog CartVerifier, log *zap.Logger, minAmountCents int64, defaultCurrency string) CheckoutService {
	return &checkoutService{
		gateway:         gw,
		catalog:         catalog,
		log:             log,
		minAmountCents:  minAmountCents,
		defaultCurrency: defaultCurrency,
	}
}

func (s *checkoutService) CreatePaymentIntent(ctx context.Context, in CheckoutInput) (*gateway.Intent, error) {
	if in.AmountCents < s.minAmountCents {
		return nil, apperr.Validation(fmt.Sprintf("amount_cents must be at least %d", s.minAmountCents))
	}

	currency := strings.ToLower(in.Currency)
	if currency == "" {
		currency = s.defaultCurrency
	}
	if !isSupportedCurrency(currency) {
		return nil, apperr.Validation(fmt.Sprintf("unsupported currency %q", in.Currency))
	}

	if err := orderModel.ValidateCart(in.CartItems); err != nil {
		return nil, apperr.Wrap(apperr.KindValidation, err.Error(), err)
	}
	if total := orderModel.CartTotal(in.CartItems); total != in.AmountCents {
		return nil, apperr.Validation(fmt.Sprintf("amount_cents %d does not match cart total %d", in.AmountCents, total))
	}
	// 单价以商品目录为准，不信任客户端
	if err := s.catalog.VerifyCart(ctx, in.CartItems); err != nil {
		return nil, err
	}

	intent, err := s.gateway.CreatePaymentIntent(ctx, gateway.IntentRequest{
		AmountCents: in.AmountCents,
		Currency:    currency,
		Metadata: gateway.IntentMetadata{
			BuyerID:         in.BuyerID,
			CartItems:       in.CartItems,
			ShippingAddress: in.ShippingAddress,
		},
	})
	if err != nil {
		s.log.Error("create payment intent failed",
			zap.String("buyer_id", in.BuyerID),
			zap.Int64("amount_cents", in.AmountCents),
			zap.Error(err))
		return nil, err
	}

	s.log.Info("payment intent created",
		zap.String("payment_intent_id", intent.ID),
		zap.String("buyer_id", in.BuyerID),
		zap.Int64("amount_cents", intent.AmountCents))
	return intent, nil
}

func isSupportedCurrency(c string) bool {
	for _, s := range SupportedCurrencies {
		if s == c {
			return true
		}
	}
	return false
}
