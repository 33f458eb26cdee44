package order

import (
	"symbiotic_city/internal/domain/order/handler"
	"symbiotic_city/internal/domain/order/repository"
	"symbiotic_city/internal/domain/order/service"
	"symbiotic_city/internal/pkg/middleware"
	"symbiotic_city/internal/pkg/registry"

	"github.com/gin-gonic/gin"
)

// OrderModule 订单模块
type OrderModule struct{}

func init() {
	registry.Register(&OrderModule{})
}

func (m *OrderModule) Name() string {
	return "order"
}

func (m *OrderModule) Priority() int {
	return 10
}

func (m *OrderModule) Init(ctx *registry.ModuleContext) error {
	// 1. 依赖注入
	repo := repository.NewLedgerRepository(ctx.DB)
	ledger := service.NewLedgerService(repo, ctx.Dispatcher, ctx.Metrics, ctx.Logger, ctx.Config.Payment.PlatformFeeBps)
	h := handler.NewOrderHandler(ledger)

	// 2. 路由注册
	setupRoutes(ctx.Router, h)

	return nil
}

func setupRoutes(r *gin.Engine, h *handler.OrderHandler) {
	g := r.Group("/orders")
	g.Use(middleware.AuthMiddleware())
	{
		g.GET("", h.ListOrders)
		g.GET("/:id", h.GetOrder)
		g.PUT("/:id/status", h.UpdateStatus)
	}
}
