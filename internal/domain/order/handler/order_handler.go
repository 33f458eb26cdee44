package handler

import (
	"net/http"
	"time"

	"symbiotic_city/internal/domain/order/repository"
	"symbiotic_city/internal/domain/order/service"
	"symbiotic_city/internal/pkg/middleware"
	"symbiotic_city/pkg/apperr"
	"symbiotic_city/pkg/response"
	"symbiotic_city/pkg/utils"

	"github.com/gin-gonic/gin"
)

type OrderHandler struct {
	service service.LedgerService
}

func NewOrderHandler(s service.LedgerService) *OrderHandler {
	return &OrderHandler{service: s}
}

type UpdateStatusInput struct {
	Status string `json:"status" binding:"required"`
}

// ListOrdersQuery 订单列表查询参数
type ListOrdersQuery struct {
	utils.Pagination
	As            string     `form:"as" binding:"omitempty,oneof=buyer seller all"`
	Status        string     `form:"status"`
	PaymentStatus string     `form:"payment_status"`
	From          *time.Time `form:"from" time_format:"2006-01-02"`
	To            *time.Time `form:"to" time_format:"2006-01-02"`
}

// ListOrders 订单列表
// @Summary 订单列表
// @Description 默认返回当前用户作为买家的订单，as=seller 返回作为卖家的订单，as=all 仅管理员可用
// @Tags Order
// @Produce json
// @Param as query string false "buyer | seller | all"
// @Param status query string false "订单状态"
// @Param payment_status query string false "支付状态"
// @Param page query int false "页码"
// @Param limit query int false "每页数量"
// @Success 200 {object} response.Response{data=utils.PageResult}
// @Router /orders [get]
func (h *OrderHandler) ListOrders(c *gin.Context) {
	actor, ok := middleware.CurrentActor(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, response.ErrTokenInvalid, "User not authenticated")
		return
	}

	var q ListOrdersQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.Error(c, http.StatusBadRequest, response.ErrInvalidParam, err.Error())
		return
	}

	filter := repository.OrderFilter{
		Status:        q.Status,
		PaymentStatus: q.PaymentStatus,
		CreatedFrom:   q.From,
		CreatedTo:     q.To,
	}
	switch q.As {
	case "seller":
		filter.SellerID = actor.UserID
	case "all":
		if !actor.IsAdmin() {
			response.Error(c, http.StatusForbidden, response.ErrNoPermission, "Admin permission required")
			return
		}
	default:
		filter.BuyerID = actor.UserID
	}

	orders, total, err := h.service.ListOrders(c.Request.Context(), filter, q.Pagination)
	if err != nil {
		response.FromError(c, err)
		return
	}

	response.Success(c, utils.NewPageResult(orders, total, q.Pagination))
}

// GetOrder 订单详情
// @Summary 订单详情
// @Tags Order
// @Produce json
// @Param id path string true "订单ID"
// @Success 200 {object} response.Response{data=model.Order}
// @Failure 403 {object} response.ErrorBody
// @Failure 404 {object} response.ErrorBody
// @Router /orders/{id} [get]
func (h *OrderHandler) GetOrder(c *gin.Context) {
	actor, ok := middleware.CurrentActor(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, response.ErrTokenInvalid, "User not authenticated")
		return
	}

	order, err := h.service.GetOrder(c.Request.Context(), c.Param("id"), actor)
	if err != nil {
		orderError(c, err)
		return
	}
	response.Success(c, order)
}

// UpdateStatus 更新订单状态（卖家或管理员）
// @Summary 更新订单状态
// @Tags Order
// @Accept json
// @Produce json
// @Param id path string true "订单ID"
// @Param input body UpdateStatusInput true "目标状态"
// @Success 200 {object} response.Response{data=model.Order}
// @Failure 400 {object} response.ErrorBody
// @Failure 403 {object} response.ErrorBody
// @Router /orders/{id}/status [put]
func (h *OrderHandler) UpdateStatus(c *gin.Context) {
	actor, ok := middleware.CurrentActor(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, response.ErrTokenInvalid, "User not authenticated")
		return
	}

	var input UpdateStatusInput
	if err := c.ShouldBindJSON(&input); err != nil {
		response.Error(c, http.StatusBadRequest, response.ErrInvalidParam, err.Error())
		return
	}

	order, err := h.service.UpdateStatus(c.Request.Context(), c.Param("id"), input.Status, actor)
	if err != nil {
		orderError(c, err)
		return
	}
	response.Success(c, order)
}

// orderError 订单不存在时使用订单模块业务码
func orderError(c *gin.Context, err error) {
	if apperr.IsKind(err, apperr.KindNotFound) {
		response.FromErrorCode(c, err, response.ErrOrderNotFound)
		return
	}
	response.FromError(c, err)
}
