// Package gateway 支付网关适配：创建支付意图、校验并解析回调事件
package gateway

import (
	"context"

	orderModel "symbiotic_city/internal/domain/order/model"
	"symbiotic_city/pkg/apperr"
)

// ErrWebhookNotConfigured 未配置回调签名密钥，所有回调一律拒绝
var ErrWebhookNotConfigured = apperr.New(apperr.KindSignature, "webhook secret is not configured")

// Gateway 支付网关
type Gateway interface {
	CreatePaymentIntent(ctx context.Context, req IntentRequest) (*Intent, error)
	// ParseEvent 校验签名并解析为具体事件类型
	ParseEvent(payload []byte, signature string) (Event, error)
}

// IntentRequest 创建支付意图
type IntentRequest struct {
	AmountCents int64
	Currency    string
	Metadata    IntentMetadata
}

// Intent 网关返回的支付意图
type Intent struct {
	ID           string `json:"payment_intent_id"`
	ClientSecret string `json:"client_secret"`
	AmountCents  int64  `json:"amount_cents"`
	Currency     string `json:"currency"`
}

// IntentMetadata 随支付意图一起保存在网关侧，回调时据此创建订单
type IntentMetadata struct {
	BuyerID         string
	CartItems       []orderModel.CartItem
	ShippingAddress *orderModel.ShippingAddress
}

// 事件类型
const (
	TypePaymentSucceeded = "payment_intent.succeeded"
	TypePaymentFailed    = "payment_intent.payment_failed"
	TypeChargeRefunded   = "charge.refunded"
)

// Event 回调事件，具体类型见下
type Event interface {
	EventID() string
	EventType() string
	Payload() []byte
}

// Envelope 事件公共字段
type Envelope struct {
	ID   string
	Type string
	Raw  []byte
}

func (e Envelope) EventID() string   { return e.ID }
func (e Envelope) EventType() string { return e.Type }
func (e Envelope) Payload() []byte    { return e.Raw }

// PaymentSucceeded 支付成功
type PaymentSucceeded struct {
	Envelope
	PaymentIntentID string
	AmountCents     int64
	Currency        string
	PaymentMethod   string
	Metadata        IntentMetadata
}

// PaymentFailed 支付失败
type PaymentFailed struct {
	Envelope
	PaymentIntentID string
	FailureCode     string
	FailureMessage  string
}

// ChargeRefunded 退款
type ChargeRefunded struct {
	Envelope
	PaymentIntentID string
	ChargeID        string
	AmountRefunded  int64
	FullyRefunded   bool
	Reason          string
}

// Unknown 不关心的事件类型
type Unknown struct {
	Envelope
}
