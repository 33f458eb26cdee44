package payment

import (
	"context"

	orderRepo "symbiotic_city/internal/domain/order/repository"
	orderService "symbiotic_city/internal/domain/order/service"
	"symbiotic_city/internal/domain/payment/gateway"
	"symbiotic_city/internal/domain/payment/handler"
	"symbiotic_city/internal/domain/payment/repository"
	"symbiotic_city/internal/domain/payment/service"
	"symbiotic_city/internal/domain/user"
	userService "symbiotic_city/internal/domain/user/service"
	"symbiotic_city/internal/pkg/lock"
	"symbiotic_city/internal/pkg/middleware"
	"symbiotic_city/internal/pkg/registry"
	baseModel "symbiotic_city/pkg/model"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// 回调限流：每个来源 IP 每秒 20 次，突发 40 次
const (
	webhookRate  = 20
	webhookBurst = 40
)

// PaymentModule 支付模块
type PaymentModule struct{}

func init() {
	registry.Register(&PaymentModule{})
}

func (m *PaymentModule) Name() string {
	return "payment"
}

func (m *PaymentModule) Priority() int {
	// 支付模块依赖订单与用户模块，所以优先级较低
	return 20
}

func (m *PaymentModule) Init(ctx *registry.ModuleContext) error {
	cfg := ctx.Config

	// 1. 依赖注入
	ledger := orderService.NewLedgerService(orderRepo.NewLedgerRepository(ctx.DB),
		ctx.Dispatcher, ctx.Metrics, ctx.Logger, cfg.Payment.PlatformFeeBps)

	gw := gateway.NewStripeGateway(cfg.Stripe)
	if cfg.Stripe.WebhookSecret == "" {
		ctx.Logger.Warn("stripe webhook secret not configured, webhook events will be rejected")
	}

	checkout := service.NewCheckoutService(gw, ledger, ctx.Logger, cfg.Payment.MinIntentCents, cfg.Payment.DefaultCurrency)
	reconciler := service.NewReconciler(gw, ledger, repository.NewWebhookEventRepository(ctx.DB), ctx.Metrics, ctx.Logger)

	payouts := service.NewPayoutService(
		repository.NewPayoutRepository(ctx.DB),
		sellerAccounts{sellers: user.NewSellerService(ctx)},
		lock.NewRedisLocker(ctx.Redis, "symbiotic:lock:"),
		ctx.Dispatcher,
		ctx.Metrics,
		ctx.Logger,
		service.PayoutOptions{
			MinPayoutCents:  cfg.Payment.MinPayoutCents,
			PayoutDelayDays: cfg.Payment.PayoutDelayDays,
			DefaultCurrency: cfg.Payment.DefaultCurrency,
		},
	)

	h := handler.NewPaymentHandler(checkout, reconciler, ledger, payouts)

	// 2. 路由注册
	setupRoutes(ctx.Router, h, middleware.NewIPRateLimiter(rate.Limit(webhookRate), webhookBurst))

	ctx.Logger.Info("payment module ready",
		zap.Int64("platform_fee_bps", cfg.Payment.PlatformFeeBps),
		zap.Int64("min_payout_cents", cfg.Payment.MinPayoutCents),
		zap.Bool("redis_lock", ctx.Redis != nil))
	return nil
}

func setupRoutes(r *gin.Engine, h *handler.PaymentHandler, limiter *middleware.IPRateLimiter) {
	g := r.Group("/payments")

	// 网关回调不走 JWT，依靠签名校验
	g.POST("/webhook", middleware.RateLimitMiddleware(limiter), h.Webhook)

	authed := g.Group("")
	authed.Use(middleware.AuthMiddleware())
	{
		authed.POST("/create-payment-intent", h.CreatePaymentIntent)
		authed.GET("/status/:payment_intent_id", h.PaymentStatus)

		authed.POST("/request-payout", middleware.RequireRole(baseModel.RoleSeller), h.RequestPayout)
		authed.GET("/payouts", middleware.RequireRole(baseModel.RoleSeller), h.ListPayouts)
		authed.PUT("/payouts/:id/status", middleware.AdminMiddleware(), h.UpdatePayoutStatus)
	}
}

// sellerAccounts 以卖家资料作为结算账户来源
type sellerAccounts struct {
	sellers userService.SellerService
}

func (a sellerAccounts) PayoutAccount(ctx context.Context, sellerID string) (*service.PayoutAccount, error) {
	p, err := a.sellers.GetProfile(ctx, sellerID)
	if err != nil {
		return nil, err
	}
	return &service.PayoutAccount{AccountID: p.StripeAccountID, Enabled: p.PayoutsEnabled}, nil
}
