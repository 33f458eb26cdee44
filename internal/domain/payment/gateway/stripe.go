package gateway

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"symbiotic_city/internal/pkg/config"
	"symbiotic_city/pkg/apperr"

	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"
	"github.com/stripe/stripe-go/v76/webhook"
)

// intentCreator 即 client.API.PaymentIntents，测试时替换
type intentCreator interface {
	New(params *stripe.PaymentIntentParams) (*stripe.PaymentIntent, error)
}

// StripeGateway Stripe 实现
type StripeGateway struct {
	intents       intentCreator
	webhookSecret string
	tolerance     time.Duration
}

func NewStripeGateway(cfg config.StripeConfig) *StripeGateway {
	sc := &client.API{}
	sc.Init(cfg.SecretKey, nil)

	tolerance := time.Duration(cfg.WebhookTolerance) * time.Second
	if tolerance <= 0 {
		tolerance = webhook.DefaultTolerance
	}
	return &StripeGateway{
		intents:       sc.PaymentIntents,
		webhookSecret: cfg.WebhookSecret,
		tolerance:     tolerance,
	}
}

// CreatePaymentIntent 创建支付意图，购物车与收货地址写入 metadata
func (g *StripeGateway) CreatePaymentIntent(ctx context.Context, req IntentRequest) (*Intent, error) {
	meta, err := req.Metadata.Encode()
	if err != nil {
		return nil, apperr.Wrap(apperr.KindValidation, "cart cannot be attached to the payment", err)
	}

	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(req.AmountCents),
		Currency: stripe.String(strings.ToLower(req.Currency)),
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled: stripe.Bool(true),
		},
	}
	params.Context = ctx
	for k, v := range meta {
		params.AddMetadata(k, v)
	}

	pi, err := g.intents.New(params)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindGateway, gatewayMessage(err), err)
	}
	return &Intent{
		ID:           pi.ID,
		ClientSecret: pi.ClientSecret,
		AmountCents:  pi.Amount,
		Currency:     string(pi.Currency),
	}, nil
}

func gatewayMessage(err error) string {
	var se *stripe.Error
	if errors.As(err, &se) && se.Msg != "" {
		return se.Msg
	}
	return "payment gateway request failed"
}

// ParseEvent 校验 Stripe-Signature 后解析事件
func (g *StripeGateway) ParseEvent(payload []byte, signature string) (Event, error) {
	if g.webhookSecret == "" {
		return nil, ErrWebhookNotConfigured
	}
	if signature == "" {
		return nil, apperr.New(apperr.KindSignature, "missing stripe-signature header")
	}

	ev, err := webhook.ConstructEventWithOptions(payload, signature, g.webhookSecret, webhook.ConstructEventOptions{
		Tolerance:                g.tolerance,
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		return nil, apperr.Wrap(apperr.KindSignature, "invalid webhook signature", err)
	}
	return decodeEvent(ev, payload)
}

func decodeEvent(ev stripe.Event, payload []byte) (Event, error) {
	env := Envelope{ID: ev.ID, Type: string(ev.Type), Raw: payload}
	if ev.Data == nil {
		return nil, apperr.Validation("event has no data object")
	}

	switch env.Type {
	case TypePaymentSucceeded:
		var pi stripe.PaymentIntent
		if err := json.Unmarshal(ev.Data.Raw, &pi); err != nil {
			return nil, apperr.Wrap(apperr.KindValidation, "malformed payment intent", err)
		}
		meta, err := DecodeMetadata(pi.Metadata)
		if err != nil {
			return nil, apperr.Wrap(apperr.KindValidation, "malformed payment intent metadata", err)
		}
		return &PaymentSucceeded{
			Envelope:        env,
			PaymentIntentID: pi.ID,
			AmountCents:     pi.Amount,
			Currency:        string(pi.Currency),
			PaymentMethod:   paymentMethodOf(&pi),
			Metadata:        meta,
		}, nil

	case TypePaymentFailed:
		var pi stripe.PaymentIntent
		if err := json.Unmarshal(ev.Data.Raw, &pi); err != nil {
			return nil, apperr.Wrap(apperr.KindValidation, "malformed payment intent", err)
		}
		out := &PaymentFailed{Envelope: env, PaymentIntentID: pi.ID}
		if pi.LastPaymentError != nil {
			out.FailureCode = string(pi.LastPaymentError.Code)
			out.FailureMessage = pi.LastPaymentError.Msg
		}
		return out, nil

	case TypeChargeRefunded:
		var ch stripe.Charge
		if err := json.Unmarshal(ev.Data.Raw, &ch); err != nil {
			return nil, apperr.Wrap(apperr.KindValidation, "malformed charge", err)
		}
		if ch.PaymentIntent == nil || ch.PaymentIntent.ID == "" {
			return nil, apperr.Validation("charge is not linked to a payment intent")
		}
		out := &ChargeRefunded{
			Envelope:        env,
			PaymentIntentID: ch.PaymentIntent.ID,
			ChargeID:        ch.ID,
			AmountRefunded:  ch.AmountRefunded,
			FullyRefunded:   ch.Refunded,
		}
		if ch.Refunds != nil && len(ch.Refunds.Data) > 0 && ch.Refunds.Data[0] != nil {
			out.Reason = string(ch.Refunds.Data[0].Reason)
		}
		return out, nil
	}

	return &Unknown{Envelope: env}, nil
}

func paymentMethodOf(pi *stripe.PaymentIntent) string {
	if pi.PaymentMethod != nil && pi.PaymentMethod.Type != "" {
		return string(pi.PaymentMethod.Type)
	}
	if len(pi.PaymentMethodTypes) > 0 {
		return pi.PaymentMethodTypes[0]
	}
	return "card"
}

// SignPayload 按 Stripe 规则生成签名头，供回放工具与测试使用
func SignPayload(payload []byte, secret string, at time.Time) string {
	sig := webhook.ComputeSignature(at, payload, secret)
	return fmt.Sprintf("t=%d,v1=%s", at.Unix(), hex.EncodeToString(sig))
}

var _ Gateway = (*StripeGateway)(nil)
