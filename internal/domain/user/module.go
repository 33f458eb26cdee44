package user

import (
	"symbiotic_city/internal/domain/user/handler"
	"symbiotic_city/internal/domain/user/repository"
	"symbiotic_city/internal/domain/user/service"
	"symbiotic_city/internal/pkg/middleware"
	"symbiotic_city/internal/pkg/registry"
	baseModel "symbiotic_city/pkg/model"

	"github.com/gin-gonic/gin"
)

// UserModule 用户模块（卖家资料）
type UserModule struct{}

func init() {
	// 自动注册模块
	registry.Register(&UserModule{})
}

func (m *UserModule) Name() string {
	return "user"
}

func (m *UserModule) Priority() int {
	// 用户模块优先级最高，因为其他模块可能依赖它
	return 1
}

func (m *UserModule) Init(ctx *registry.ModuleContext) error {
	// 1. 依赖注入
	sellers := NewSellerService(ctx)
	h := handler.NewSellerHandler(sellers)

	// 2. 路由注册
	setupRoutes(ctx.Router, h)

	return nil
}

// NewSellerService 组装带缓存的卖家资料服务，供依赖它的模块复用
func NewSellerService(ctx *registry.ModuleContext) service.SellerService {
	repo := repository.NewSellerRepository(ctx.DB)
	return service.NewCachedSellerService(
		service.NewSellerService(repo, ctx.Logger),
		ctx.Cache,
		ctx.Logger,
	)
}

func setupRoutes(r *gin.Engine, h *handler.SellerHandler) {
	g := r.Group("/sellers/me")
	g.Use(middleware.AuthMiddleware(), middleware.RequireRole(baseModel.RoleSeller))
	{
		g.GET("", h.GetMe)
		g.PUT("/payout-account", h.LinkPayoutAccount)
	}
}
