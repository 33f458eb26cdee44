package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	orderModel "symbiotic_city/internal/domain/order/model"
	orderRepo "symbiotic_city/internal/domain/order/repository"
	orderService "symbiotic_city/internal/domain/order/service"
	"symbiotic_city/internal/domain/payment/gateway"
	"symbiotic_city/internal/domain/payment/model"
	"symbiotic_city/internal/domain/payment/service"
	"symbiotic_city/internal/pkg/middleware"
	"symbiotic_city/pkg/apperr"
	"symbiotic_city/pkg/response"
	"symbiotic_city/pkg/utils"

	"github.com/gin-gonic/gin"
)

// 回调请求体上限
const maxWebhookBody = 64 << 10

// EventReconciler 处理网关回调
type EventReconciler interface {
	Handle(ctx context.Context, payload []byte, signature string) (*service.ReconcileResult, error)
}

type PaymentHandler struct {
	checkout   service.CheckoutService
	reconciler EventReconciler
	ledger     orderService.LedgerService
	payouts    service.PayoutService
}

func NewPaymentHandler(checkout service.CheckoutService, reconciler EventReconciler,
	ledger orderService.LedgerService, payouts service.PayoutService) *PaymentHandler {
	return &PaymentHandler{
		checkout:   checkout,
		reconciler: reconciler,
		ledger:     ledger,
		payouts:    payouts,
	}
}

type CreatePaymentIntentInput struct {
	AmountCents     int64                       `json:"amount_cents" binding:"required,gt=0"`
	Currency        string                      `json:"currency" binding:"omitempty,len=3"`
	CartItems       []orderModel.CartItem       `json:"cart_items" binding:"required,min=1,dive"`
	ShippingAddress *orderModel.ShippingAddress `json:"shipping_address"`
}

type RequestPayoutInput struct {
	Currency string `json:"currency" binding:"omitempty,len=3"`
}

type UpdatePayoutStatusInput struct {
	Status string `json:"status" binding:"required"`
}

// ListPayoutsQuery 结算单列表查询参数
type ListPayoutsQuery struct {
	utils.Pagination
	SellerID string `form:"seller_id" binding:"omitempty,uuid"`
}

// PayoutResponse 结算单及预计到账时间
type PayoutResponse struct {
	*model.Payout
	EstimatedArrival time.Time `json:"estimated_arrival"`
}

// CreatePaymentIntent 创建支付意图
// @Summary 创建支付意图
// @Description 校验购物车后向网关申请支付意图，订单在支付成功回调中生成
// @Tags Payment
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param input body CreatePaymentIntentInput true "购物车"
// @Success 200 {object} response.Response{data=gateway.Intent}
// @Failure 400 {object} response.ErrorBody
// @Failure 500 {object} response.ErrorBody
// @Router /payments/create-payment-intent [post]
func (h *PaymentHandler) CreatePaymentIntent(c *gin.Context) {
	actor, ok := middleware.CurrentActor(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, response.ErrTokenInvalid, "User not authenticated")
		return
	}

	var input CreatePaymentIntentInput
	if err := c.ShouldBindJSON(&input); err != nil {
		response.Error(c, http.StatusBadRequest, response.ErrInvalidParam, err.Error())
		return
	}

	intent, err := h.checkout.CreatePaymentIntent(c.Request.Context(), service.CheckoutInput{
		BuyerID:         actor.UserID,
		AmountCents:     input.AmountCents,
		Currency:        input.Currency,
		CartItems:       input.CartItems,
		ShippingAddress: input.ShippingAddress,
	})
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, intent)
}

// Webhook 网关回调
// @Summary 支付网关回调
// @Description 校验 Stripe-Signature 后处理事件；非 2xx 响应会触发网关重试
// @Tags Payment
// @Accept json
// @Produce json
// @Param Stripe-Signature header string true "签名"
// @Success 200 {object} map[string]bool
// @Failure 400 {object} response.ErrorBody
// @Failure 500 {object} response.ErrorBody
// @Router /payments/webhook [post]
func (h *PaymentHandler) Webhook(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxWebhookBody)
	payload, err := c.GetRawData()
	if err != nil {
		response.Error(c, http.StatusBadRequest, response.ErrInvalidParam, "unreadable request body")
		return
	}

	_, err = h.reconciler.Handle(c.Request.Context(), payload, c.GetHeader("Stripe-Signature"))
	switch {
	case errors.Is(err, gateway.ErrWebhookNotConfigured):
		response.Error(c, http.StatusInternalServerError, response.ErrServerInternal, "webhook secret not configured")
		return
	case errors.Is(err, orderRepo.ErrInsufficientStock):
		response.FromErrorCode(c, err, response.ErrInsufficientStock)
		return
	case err != nil:
		response.FromError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"received": true})
}

// PaymentStatus 支付状态
// @Summary 查询支付意图对应的订单支付状态
// @Tags Payment
// @Produce json
// @Security BearerAuth
// @Param payment_intent_id path string true "支付意图ID"
// @Success 200 {object} response.Response{data=[]orderModel.PaymentStatusView}
// @Failure 404 {object} response.ErrorBody
// @Router /payments/status/{payment_intent_id} [get]
func (h *PaymentHandler) PaymentStatus(c *gin.Context) {
	actor, ok := middleware.CurrentActor(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, response.ErrTokenInvalid, "User not authenticated")
		return
	}

	rows, err := h.ledger.PaymentStatus(c.Request.Context(), c.Param("payment_intent_id"), actor.UserID)
	if apperr.IsKind(err, apperr.KindNotFound) {
		response.FromErrorCode(c, err, response.ErrPaymentNotFound)
		return
	}
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, rows)
}

// RequestPayout 申请结算
// @Summary 卖家申请结算
// @Description 汇总所有已支付且未结算的订单；低于最低金额或未绑定收款账户时拒绝
// @Tags Payout
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param input body RequestPayoutInput false "币种，默认取可结算金额最大的币种"
// @Success 200 {object} response.Response{data=PayoutResponse}
// @Failure 400 {object} response.ErrorBody
// @Failure 409 {object} response.ErrorBody
// @Router /payments/request-payout [post]
func (h *PaymentHandler) RequestPayout(c *gin.Context) {
	actor, ok := middleware.CurrentActor(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, response.ErrTokenInvalid, "User not authenticated")
		return
	}

	var input RequestPayoutInput
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&input); err != nil {
			response.Error(c, http.StatusBadRequest, response.ErrInvalidParam, err.Error())
			return
		}
	}

	payout, err := h.payouts.RequestPayout(c.Request.Context(), actor.UserID, input.Currency)
	if errors.Is(err, service.ErrBelowMinimum) {
		response.FromErrorCode(c, err, response.ErrPayoutBelowMinimum)
		return
	}
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, PayoutResponse{Payout: payout, EstimatedArrival: payout.ScheduledDate})
}

// ListPayouts 结算单列表
// @Summary 结算单列表
// @Description 卖家查看自己的结算单，管理员可查看全部或按 seller_id 过滤
// @Tags Payout
// @Produce json
// @Security BearerAuth
// @Param seller_id query string false "卖家ID（仅管理员）"
// @Param page query int false "页码"
// @Param limit query int false "每页数量"
// @Success 200 {object} response.Response{data=utils.PageResult}
// @Router /payments/payouts [get]
func (h *PaymentHandler) ListPayouts(c *gin.Context) {
	actor, ok := middleware.CurrentActor(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, response.ErrTokenInvalid, "User not authenticated")
		return
	}

	var q ListPayoutsQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.Error(c, http.StatusBadRequest, response.ErrInvalidParam, err.Error())
		return
	}

	sellerID := actor.UserID
	if actor.IsAdmin() {
		sellerID = q.SellerID
	}

	payouts, total, err := h.payouts.ListPayouts(c.Request.Context(), sellerID, q.Pagination)
	if err != nil {
		response.FromError(c, err)
		return
	}

	response.Success(c, utils.NewPageResult(payouts, total, q.Pagination))
}

// UpdatePayoutStatus 更新结算状态
// @Summary 更新结算状态（管理员）
// @Description pending -> processing -> paid，pending/processing -> failed；failed 会释放所含订单
// @Tags Payout
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "结算单ID"
// @Param input body UpdatePayoutStatusInput true "目标状态"
// @Success 200 {object} response.Response{data=model.Payout}
// @Failure 400 {object} response.ErrorBody
// @Failure 404 {object} response.ErrorBody
// @Router /payments/payouts/{id}/status [put]
func (h *PaymentHandler) UpdatePayoutStatus(c *gin.Context) {
	var input UpdatePayoutStatusInput
	if err := c.ShouldBindJSON(&input); err != nil {
		response.Error(c, http.StatusBadRequest, response.ErrInvalidParam, err.Error())
		return
	}

	payout, err := h.payouts.UpdatePayoutStatus(c.Request.Context(), c.Param("id"), input.Status)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, payout)
}
