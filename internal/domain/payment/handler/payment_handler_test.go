package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	orderModel "symbiotic_city/internal/domain/order/model"
	"symbiotic_city/internal/domain/order/ordertest"
	orderService "symbiotic_city/internal/domain/order/service"
	"symbiotic_city/internal/domain/payment/gateway"
	"symbiotic_city/internal/domain/payment/model"
	"symbiotic_city/internal/domain/payment/service"
	"symbiotic_city/internal/pkg/config"
	"symbiotic_city/internal/pkg/middleware"
	"symbiotic_city/internal/pkg/notify"
	"symbiotic_city/pkg/apperr"
	baseModel "symbiotic_city/pkg/model"
	"symbiotic_city/pkg/response"
	"symbiotic_city/pkg/utils"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const (
	secret   = "whsec_handler_test"
	sellerA  = "a0000000-0000-4000-8000-00000000000a"
	sellerB  = "b0000000-0000-4000-8000-00000000000b"
	buyer    = "c0000000-0000-4000-8000-00000000000c"
	productA = "d1000000-0000-4000-8000-000000000001"
	productB = "d2000000-0000-4000-8000-000000000002"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeCheckout struct {
	last service.CheckoutInput
	err  error
}

func (f *fakeCheckout) CreatePaymentIntent(ctx context.Context, in service.CheckoutInput) (*gateway.Intent, error) {
	f.last = in
	if f.err != nil {
		return nil, f.err
	}
	return &gateway.Intent{ID: "pi_new", ClientSecret: "pi_new_secret", AmountCents: in.AmountCents, Currency: "usd"}, nil
}

type fakePayouts struct {
	sellerID string
	listFor  string
	err      error
}

func (f *fakePayouts) RequestPayout(ctx context.Context, sellerID, currency string) (*model.Payout, error) {
	f.sellerID = sellerID
	if f.err != nil {
		return nil, f.err
	}
	p := &model.Payout{
		SellerID:      sellerID,
		AmountCents:   3150,
		Currency:      "usd",
		Status:        model.PayoutStatusPending,
		ScheduledDate: time.Date(2026, 3, 4, 0, 0, 0, 0, time.UTC),
		Items:         []model.PayoutItem{{OrderID: "o1"}, {OrderID: "o2"}},
	}
	p.ID = "po_1"
	p.FillOrdersIncluded()
	return p, nil
}

func (f *fakePayouts) ListPayouts(ctx context.Context, sellerID string, page utils.Pagination) ([]model.Payout, int64, error) {
	f.listFor = sellerID
	return []model.Payout{}, 0, nil
}

func (f *fakePayouts) UpdatePayoutStatus(ctx context.Context, payoutID, status string) (*model.Payout, error) {
	if f.err != nil {
		return nil, f.err
	}
	p := &model.Payout{Status: status}
	p.ID = payoutID
	return p, nil
}

type fixture struct {
	router   *gin.Engine
	store    *ordertest.Store
	checkout *fakeCheckout
	payouts  *fakePayouts
}

func newFixture(t *testing.T, webhookSecret string) *fixture {
	t.Helper()
	store := ordertest.NewStore()
	store.AddProduct(orderModel.Product{BaseModel: baseModel.BaseModel{ID: productA}, SellerID: sellerA, PriceCents: 1000, Stock: 10})
	store.AddProduct(orderModel.Product{BaseModel: baseModel.BaseModel{ID: productB}, SellerID: sellerB, PriceCents: 500, Stock: 10})

	ledger := orderService.NewLedgerService(store, notify.Discard{}, nil, zap.NewNop(), 1000)
	gw := gateway.NewStripeGateway(config.StripeConfig{WebhookSecret: webhookSecret})
	f := &fixture{
		store:    store,
		checkout: &fakeCheckout{},
		payouts:  &fakePayouts{},
	}
	h := NewPaymentHandler(f.checkout, service.NewReconciler(gw, ledger, nil, nil, zap.NewNop()), ledger, f.payouts)

	r := gin.New()
	// 用请求头模拟认证结果
	r.Use(func(c *gin.Context) {
		if uid := c.GetHeader("X-Test-User"); uid != "" {
			middleware.SetActor(c, baseModel.Actor{UserID: uid, Role: c.GetHeader("X-Test-Role")})
		}
	})
	r.POST("/payments/webhook", h.Webhook)
	r.POST("/payments/create-payment-intent", h.CreatePaymentIntent)
	r.GET("/payments/status/:payment_intent_id", h.PaymentStatus)
	r.POST("/payments/request-payout", h.RequestPayout)
	r.GET("/payments/payouts", h.ListPayouts)
	r.PUT("/payments/payouts/:id/status", h.UpdatePayoutStatus)
	f.router = r
	return f
}

func (f *fixture) do(method, path, user, role string, body interface{}) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if user != "" {
		req.Header.Set("X-Test-User", user)
		req.Header.Set("X-Test-Role", role)
	}
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func (f *fixture) webhook(payload []byte, signature string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/payments/webhook", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	if signature != "" {
		req.Header.Set("Stripe-Signature", signature)
	}
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func succeededPayload(t *testing.T) []byte {
	t.Helper()
	meta, err := gateway.IntentMetadata{
		BuyerID: buyer,
		CartItems: []orderModel.CartItem{
			{SellerID: sellerA, ProductID: productA, UnitPriceCents: 1000, Quantity: 2},
			{SellerID: sellerB, ProductID: productB, UnitPriceCents: 500, Quantity: 3},
		},
	}.Encode()
	require.NoError(t, err)

	object, err := json.Marshal(map[string]interface{}{
		"id":       "pi_e2e",
		"object":   "payment_intent",
		"amount":   3500,
		"currency": "usd",
		"metadata": meta,
	})
	require.NoError(t, err)
	payload, err := json.Marshal(map[string]interface{}{
		"id":          "evt_e2e",
		"object":      "event",
		"api_version": "2020-08-27",
		"type":        gateway.TypePaymentSucceeded,
		"data":        map[string]json.RawMessage{"object": object},
	})
	require.NoError(t, err)
	return payload
}

func TestWebhookEndToEnd(t *testing.T) {
	f := newFixture(t, secret)
	payload := succeededPayload(t)
	sig := gateway.SignPayload(payload, secret, time.Now())

	w := f.webhook(payload, sig)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.JSONEq(t, `{"received":true}`, w.Body.String())

	// 重复投递同样返回 200 且不产生新订单
	w = f.webhook(payload, sig)
	require.Equal(t, http.StatusOK, w.Code)

	orders := f.store.Orders()
	require.Len(t, orders, 2)
	for _, o := range orders {
		assert.Equal(t, orderModel.PaymentStatusPaid, o.PaymentStatus)
	}
	payments := f.store.Payments()
	require.Len(t, payments, 2)
	split := map[string][2]int64{}
	for _, p := range payments {
		split[p.SellerID] = [2]int64{p.PlatformFee, p.SellerAmount}
	}
	assert.Equal(t, [2]int64{200, 1800}, split[sellerA])
	assert.Equal(t, [2]int64{150, 1350}, split[sellerB])

	w = f.do(http.MethodGet, "/payments/status/pi_e2e", buyer, baseModel.RoleUser, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var status struct {
		Data []orderModel.PaymentStatusView `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &status))
	assert.Len(t, status.Data, 2)

	// 其他用户看不到
	w = f.do(http.MethodGet, "/payments/status/pi_e2e", sellerA, baseModel.RoleSeller, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, response.ErrPaymentNotFound, errorCode(t, w))
}

func TestWebhookInsufficientStock(t *testing.T) {
	f := newFixture(t, secret)
	f.store.AddProduct(orderModel.Product{BaseModel: baseModel.BaseModel{ID: productA}, SellerID: sellerA, PriceCents: 1000, Stock: 1})
	payload := succeededPayload(t)

	w := f.webhook(payload, gateway.SignPayload(payload, secret, time.Now()))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, response.ErrInsufficientStock, errorCode(t, w))
	assert.Empty(t, f.store.Orders())
}

func errorCode(t *testing.T, w *httptest.ResponseRecorder) int {
	t.Helper()
	var body response.ErrorBody
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body), w.Body.String())
	return body.Code
}

func TestWebhookSignatureFailures(t *testing.T) {
	f := newFixture(t, secret)
	payload := succeededPayload(t)

	w := f.webhook(payload, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = f.webhook(payload, gateway.SignPayload(payload, "whsec_other", time.Now()))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = f.webhook(payload, gateway.SignPayload(payload, secret, time.Now().Add(-time.Hour)))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	assert.Empty(t, f.store.Orders())
}

func TestWebhookWithoutSecret(t *testing.T) {
	f := newFixture(t, "")
	payload := succeededPayload(t)

	w := f.webhook(payload, gateway.SignPayload(payload, secret, time.Now()))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Empty(t, f.store.Orders())
}

func TestWebhookStorageFailureIsRetryable(t *testing.T) {
	f := newFixture(t, secret)
	f.store.FailNext("PaymentsByIntent", assert.AnError)
	payload := succeededPayload(t)

	w := f.webhook(payload, gateway.SignPayload(payload, secret, time.Now()))
	assert.Equal(t, http.StatusInternalServerError, w.Code)

	w = f.webhook(payload, gateway.SignPayload(payload, secret, time.Now()))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, f.store.Orders(), 2)
}

func TestCreatePaymentIntent(t *testing.T) {
	f := newFixture(t, secret)
	body := CreatePaymentIntentInput{
		AmountCents: 2000,
		CartItems:   []orderModel.CartItem{{SellerID: sellerA, ProductID: productA, UnitPriceCents: 1000, Quantity: 2}},
	}

	w := f.do(http.MethodPost, "/payments/create-payment-intent", buyer, baseModel.RoleUser, body)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, buyer, f.checkout.last.BuyerID)

	var resp struct {
		Data gateway.Intent `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "pi_new_secret", resp.Data.ClientSecret)

	w = f.do(http.MethodPost, "/payments/create-payment-intent", "", "", body)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = f.do(http.MethodPost, "/payments/create-payment-intent", buyer, baseModel.RoleUser, map[string]interface{}{"amount_cents": 2000})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	f.checkout.err = apperr.New(apperr.KindGateway, "gateway unavailable")
	w = f.do(http.MethodPost, "/payments/create-payment-intent", buyer, baseModel.RoleUser, body)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestRequestPayout(t *testing.T) {
	f := newFixture(t, secret)

	w := f.do(http.MethodPost, "/payments/request-payout", sellerA, baseModel.RoleSeller, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, sellerA, f.payouts.sellerID)

	var resp struct {
		Data struct {
			ID               string    `json:"id"`
			AmountCents      int64     `json:"amount_cents"`
			OrdersIncluded   []string  `json:"orders_included"`
			EstimatedArrival time.Time `json:"estimated_arrival"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, int64(3150), resp.Data.AmountCents)
	assert.Equal(t, []string{"o1", "o2"}, resp.Data.OrdersIncluded)
	assert.Equal(t, time.Date(2026, 3, 4, 0, 0, 0, 0, time.UTC), resp.Data.EstimatedArrival)
}

func TestRequestPayoutErrors(t *testing.T) {
	cases := []struct {
		err    error
		status int
		code   int
	}{
		{apperr.NotFound("seller profile not found"), http.StatusNotFound, response.ErrNotFound},
		{apperr.PreconditionFailed("payout account is not linked"), http.StatusBadRequest, response.ErrPayoutNotLinked},
		{apperr.Wrap(apperr.KindInvalidState, "eligible amount 999 is below the minimum payout of 1000", service.ErrBelowMinimum), http.StatusBadRequest, response.ErrPayoutBelowMinimum},
		{apperr.Conflict("a payout request for this seller is already in progress"), http.StatusConflict, response.ErrPayoutConflict},
	}
	for _, tc := range cases {
		f := newFixture(t, secret)
		f.payouts.err = tc.err
		w := f.do(http.MethodPost, "/payments/request-payout", sellerA, baseModel.RoleSeller, nil)
		assert.Equal(t, tc.status, w.Code, tc.err.Error())
		assert.Equal(t, tc.code, errorCode(t, w), tc.err.Error())
	}
}

func TestListPayoutsScope(t *testing.T) {
	f := newFixture(t, secret)

	w := f.do(http.MethodGet, "/payments/payouts?seller_id="+sellerB, sellerA, baseModel.RoleSeller, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, sellerA, f.payouts.listFor)

	w = f.do(http.MethodGet, "/payments/payouts?seller_id="+sellerB, "e0000000-0000-4000-8000-00000000000e", baseModel.RoleAdmin, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, sellerB, f.payouts.listFor)
}

func TestUpdatePayoutStatus(t *testing.T) {
	f := newFixture(t, secret)

	w := f.do(http.MethodPut, "/payments/payouts/po_1/status", "admin", baseModel.RoleAdmin, UpdatePayoutStatusInput{Status: model.PayoutStatusProcessing})
	require.Equal(t, http.StatusOK, w.Code)

	w = f.do(http.MethodPut, "/payments/payouts/po_1/status", "admin", baseModel.RoleAdmin, map[string]string{})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	f.payouts.err = apperr.InvalidState("cannot move payout from paid to pending")
	w = f.do(http.MethodPut, "/payments/payouts/po_1/status", "admin", baseModel.RoleAdmin, UpdatePayoutStatusInput{Status: model.PayoutStatusPending})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
