package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"symbiotic_city/internal/domain/order/model"
	"symbiotic_city/internal/domain/order/ordertest"
	"symbiotic_city/internal/domain/order/service"
	"symbiotic_city/internal/pkg/middleware"
	"symbiotic_city/internal/pkg/notify"
	baseModel "symbiotic_city/pkg/model"
	"symbiotic_city/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const (
	seller = "a0000000-0000-4000-8000-00000000000a"
	buyer  = "c0000000-0000-4000-8000-00000000000c"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func setup(t *testing.T) (*gin.Engine, *ordertest.Store, model.Order) {
	t.Helper()
	store := ordertest.NewStore()
	store.AddProduct(model.Product{BaseModel: baseModel.BaseModel{ID: "d1000000-0000-4000-8000-000000000001"}, SellerID: seller, PriceCents: 1000, Stock: 5})

	ledger := service.NewLedgerService(store, notify.Discard{}, nil, zap.NewNop(), 1000)
	orders, _, err := ledger.CreateFromCart(context.Background(), service.CreateFromCartInput{
		PaymentIntentID: "pi_1",
		BuyerID:         buyer,
		Items:           []model.CartItem{{SellerID: seller, ProductID: "d1000000-0000-4000-8000-000000000001", UnitPriceCents: 1000, Quantity: 1}},
		Currency:        "usd",
	})
	require.NoError(t, err)

	h := NewOrderHandler(ledger)
	r := gin.New()
	// 用请求头模拟认证结果
	r.Use(func(c *gin.Context) {
		if uid := c.GetHeader("X-Test-User"); uid != "" {
			middleware.SetActor(c, baseModel.Actor{UserID: uid, Role: c.GetHeader("X-Test-Role")})
		}
	})
	r.GET("/orders", h.ListOrders)
	r.GET("/orders/:id", h.GetOrder)
	r.PUT("/orders/:id/status", h.UpdateStatus)
	return r, store, orders[0]
}

func do(r *gin.Engine, method, path, user, role string, body interface{}) *httptest.ResponseRecorder {
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
	r.ServeHTTP(w, req)
	return w
}

func TestUpdateStatusEndpoint(t *testing.T) {
	r, _, order := setup(t)

	w := do(r, http.MethodPut, "/orders/"+order.ID+"/status", seller, baseModel.RoleSeller, UpdateStatusInput{Status: model.OrderStatusConfirmed})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp struct {
		Data model.Order `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, model.OrderStatusConfirmed, resp.Data.Status)
	assert.Len(t, resp.Data.Timeline, 2)
}

func TestUpdateStatusEndpointErrors(t *testing.T) {
	r, _, order := setup(t)
	path := "/orders/" + order.ID + "/status"

	tests := []struct {
		name   string
		user   string
		role   string
		body   interface{}
		status int
		kind   string
	}{
		{"unauthenticated", "", "", UpdateStatusInput{Status: "confirmed"}, http.StatusUnauthorized, "unauthorized"},
		{"missing status", seller, baseModel.RoleSeller, map[string]string{}, http.StatusBadRequest, "validation_error"},
		{"buyer forbidden", buyer, baseModel.RoleUser, UpdateStatusInput{Status: "confirmed"}, http.StatusForbidden, "forbidden"},
		{"skip stage", seller, baseModel.RoleSeller, UpdateStatusInput{Status: "delivered"}, http.StatusBadRequest, "invalid_state"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(r, http.MethodPut, path, tt.user, tt.role, tt.body)
			assert.Equal(t, tt.status, w.Code)

			var body response.ErrorBody
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			assert.Equal(t, tt.kind, body.Error)
		})
	}

	w := do(r, http.MethodPut, "/orders/unknown/status", seller, baseModel.RoleSeller, UpdateStatusInput{Status: "confirmed"})
	assert.Equal(t, http.StatusNotFound, w.Code)
	var body response.ErrorBody
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, response.ErrOrderNotFound, body.Code)

	// 非法流转仍用通用业务码
	w = do(r, http.MethodPut, path, seller, baseModel.RoleSeller, UpdateStatusInput{Status: "delivered"})
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, response.ErrInvalidTransition, body.Code)
}

func TestGetOrderEndpoint(t *testing.T) {
	r, _, order := setup(t)

	w := do(r, http.MethodGet, "/orders/"+order.ID, buyer, baseModel.RoleUser, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = do(r, http.MethodGet, "/orders/"+order.ID, "someone-else", baseModel.RoleUser, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = do(r, http.MethodGet, "/orders/unknown", buyer, baseModel.RoleUser, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	var body response.ErrorBody
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, response.ErrOrderNotFound, body.Code)
}

func TestListOrdersEndpoint(t *testing.T) {
	r, _, _ := setup(t)

	var resp struct {
		Data struct {
			Total int64         `json:"total"`
			List  []model.Order `json:"list"`
		} `json:"data"`
	}

	w := do(r, http.MethodGet, "/orders", buyer, baseModel.RoleUser, nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, int64(1), resp.Data.Total)

	w = do(r, http.MethodGet, "/orders?as=seller", buyer, baseModel.RoleUser, nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, int64(0), resp.Data.Total)

	w = do(r, http.MethodGet, "/orders?as=all", buyer, baseModel.RoleUser, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = do(r, http.MethodGet, "/orders?as=everyone", buyer, baseModel.RoleUser, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
