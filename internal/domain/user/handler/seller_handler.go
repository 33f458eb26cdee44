package handler

import (
	"net/http"

	"symbiotic_city/internal/domain/user/service"
	"symbiotic_city/internal/pkg/middleware"
	"symbiotic_city/pkg/response"

	"github.com/gin-gonic/gin"
)

// SellerHandler 卖家资料处理器
type SellerHandler struct {
	service service.SellerService
}

// NewSellerHandler 创建处理器
func NewSellerHandler(s service.SellerService) *SellerHandler {
	return &SellerHandler{service: s}
}

// LinkPayoutAccountInput 绑定收款账户输入
type LinkPayoutAccountInput struct {
	StripeAccountID string `json:"stripe_account_id" binding:"required"`
}

// GetMe 当前卖家资料
// @Summary 当前卖家资料
// @Tags Seller
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Response{data=model.SellerProfile}
// @Failure 404 {object} response.ErrorBody
// @Router /sellers/me [get]
func (h *SellerHandler) GetMe(c *gin.Context) {
	actor, ok := middleware.CurrentActor(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, response.ErrTokenInvalid, "User not authenticated")
		return
	}

	profile, err := h.service.GetProfile(c.Request.Context(), actor.UserID)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, profile)
}

// LinkPayoutAccount 绑定收款账户
// @Summary 绑定 Stripe 收款账户
// @Description 绑定后卖家才能申请结算
// @Tags Seller
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param input body LinkPayoutAccountInput true "Stripe 账户"
// @Success 200 {object} response.Response{data=model.SellerProfile}
// @Failure 400 {object} response.ErrorBody
// @Failure 404 {object} response.ErrorBody
// @Router /sellers/me/payout-account [put]
func (h *SellerHandler) LinkPayoutAccount(c *gin.Context) {
	actor, ok := middleware.CurrentActor(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, response.ErrTokenInvalid, "User not authenticated")
		return
	}

	var input LinkPayoutAccountInput
	if err := c.ShouldBindJSON(&input); err != nil {
		response.Error(c, http.StatusBadRequest, response.ErrInvalidParam, err.Error())
		return
	}

	profile, err := h.service.LinkPayoutAccount(c.Request.Context(), actor.UserID, input.StripeAccountID)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, profile)
}
