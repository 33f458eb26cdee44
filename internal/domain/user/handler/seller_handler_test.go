package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"symbiotic_city/internal/domain/user/model"
	"symbiotic_city/internal/domain/user/service"
	"symbiotic_city/internal/pkg/middleware"
	baseModel "symbiotic_city/pkg/model"
	"symbiotic_city/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const sellerID = "a0000000-0000-4000-8000-00000000000a"

func init() {
	gin.SetMode(gin.TestMode)
}

type mockRepo struct {
	mock.Mock
}

func (m *mockRepo) GetProfile(ctx context.Context, userID string) (*model.SellerProfile, error) {
	args := m.Called(userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.SellerProfile), args.Error(1)
}

func (m *mockRepo) UpdatePayoutAccount(ctx context.Context, userID, accountID string, enabled bool) (int64, error) {
	args := m.Called(userID, accountID, enabled)
	return args.Get(0).(int64), args.Error(1)
}

func newRouter(repo *mockRepo) *gin.Engine {
	h := NewSellerHandler(service.NewSellerService(repo, zap.NewNop()))
	r := gin.New()
	r.Use(func(c *gin.Context) {
		if uid := c.GetHeader("X-Test-User"); uid != "" {
			middleware.SetActor(c, baseModel.Actor{UserID: uid, Role: c.GetHeader("X-Test-Role")})
		}
	})
	g := r.Group("/sellers/me", middleware.RequireRole(baseModel.RoleSeller))
	g.GET("", h.GetMe)
	g.PUT("/payout-account", h.LinkPayoutAccount)
	return r
}

func send(r *gin.Engine, method, path, role string, body interface{}) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Test-User", sellerID)
	req.Header.Set("X-Test-Role", role)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestGetMe(t *testing.T) {
	repo := new(mockRepo)
	repo.On("GetProfile", sellerID).Return(&model.SellerProfile{UserID: sellerID, StoreName: "Solar Shed"}, nil)

	w := send(newRouter(repo), http.MethodGet, "/sellers/me", baseModel.RoleSeller, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Data model.SellerProfile `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "Solar Shed", body.Data.StoreName)
}

func TestGetMeWithoutProfile(t *testing.T) {
	repo := new(mockRepo)
	repo.On("GetProfile", sellerID).Return(nil, gorm.ErrRecordNotFound)

	w := send(newRouter(repo), http.MethodGet, "/sellers/me", baseModel.RoleSeller, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestSellerRoutesRequireSellerRole(t *testing.T) {
	w := send(newRouter(new(mockRepo)), http.MethodGet, "/sellers/me", baseModel.RoleUser, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestLinkPayoutAccount(t *testing.T) {
	repo := new(mockRepo)
	repo.On("UpdatePayoutAccount", sellerID, "acct_42", true).Return(int64(1), nil)
	repo.On("GetProfile", sellerID).Return(&model.SellerProfile{UserID: sellerID, StripeAccountID: "acct_42", PayoutsEnabled: true}, nil)

	w := send(newRouter(repo), http.MethodPut, "/sellers/me/payout-account", baseModel.RoleSeller,
		LinkPayoutAccountInput{StripeAccountID: "acct_42"})
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Data model.SellerProfile `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.True(t, body.Data.PayoutsEnabled)
}

func TestLinkPayoutAccountValidation(t *testing.T) {
	r := newRouter(new(mockRepo))

	w := send(r, http.MethodPut, "/sellers/me/payout-account", baseModel.RoleSeller, map[string]string{})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = send(r, http.MethodPut, "/sellers/me/payout-account", baseModel.RoleSeller,
		LinkPayoutAccountInput{StripeAccountID: "not-an-account"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	var body response.ErrorBody
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "validation_error", body.Error)
}
