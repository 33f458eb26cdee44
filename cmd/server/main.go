package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"symbiotic_city/docs"
	_ "symbiotic_city/internal/domain/order"
	_ "symbiotic_city/internal/domain/payment"
	_ "symbiotic_city/internal/domain/user"
	"symbiotic_city/internal/pkg/config"
	"symbiotic_city/internal/pkg/middleware"
	"symbiotic_city/internal/pkg/notify"
	"symbiotic_city/internal/pkg/registry"
	"symbiotic_city/internal/pkg/worker"
	"symbiotic_city/pkg/cache"
	"symbiotic_city/pkg/database"
	"symbiotic_city/pkg/logger"
	"symbiotic_city/pkg/metrics"
	"symbiotic_city/pkg/utils"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"
)

// @title Symbiotic City API
// @version 1.0
// @description 订单、支付回调与卖家结算接口
// @BasePath /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	// 1. 加载配置
	cfg, err := config.LoadConfig()
	if err != nil {
		panic("load config: " + err.Error())
	}

	// 2. 初始化日志
	log, err := logger.Init(cfg.App.Debug)
	if err != nil {
		panic("init logger: " + err.Error())
	}
	defer logger.Sync()

	// 3. 初始化数据库与 Redis
	db, err := database.InitDatabase(cfg.Database, log)
	if err != nil {
		log.Fatal("failed to connect database", zap.Error(err))
	}
	defer func() {
		if err := database.Close(db); err != nil {
			log.Warn("close database failed", zap.Error(err))
		}
	}()

	rdb, err := database.InitRedis(cfg.Redis)
	if err != nil {
		log.Fatal("failed to connect redis", zap.Error(err))
	}
	if rdb == nil {
		log.Warn("redis not configured, payout locks disabled and profile cache kept in memory")
	} else {
		defer rdb.Close()
	}

	// 4. 指标与通知
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	collector := metrics.NewCollector(reg)

	pool := worker.NewNotifyPool(
		notify.New(cfg.Push, notify.NewLogNotifier(log)),
		log, collector,
		cfg.Worker.NotifyWorkers, cfg.Worker.QueueSize, cfg.Worker.MaxRetry,
	)
	pool.Start()
	defer pool.Stop()

	// 5. 路由与中间件
	utils.SetPageLimits(cfg.Server.PageSize, cfg.Server.MaxPageSize)
	if cfg.Server.Mode != "" {
		gin.SetMode(cfg.Server.Mode)
	}
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.LoggerMiddleware(log))
	r.Use(collector.GinMiddleware())
	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "X-Request-ID"},
		ExposeHeaders:    []string{"X-Request-ID"},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	}))

	r.GET("/health", func(c *gin.Context) {
		report := database.HealthCheck(c.Request.Context(), db, rdb)
		status := http.StatusOK
		if !report.Healthy() {
			status = http.StatusServiceUnavailable
		}
		c.JSON(status, report)
	})
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(reg, promhttp.HandlerOpts{})))

	docs.SwaggerInfo.Title = "Symbiotic City API"
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// 6. 初始化业务模块
	if err := registry.InitModules(&registry.ModuleContext{
		DB:         db,
		Redis:      rdb,
		Cache:      cache.NewRedisCache(rdb, "symbiotic:cache:"),
		Router:     r,
		Config:     cfg,
		Logger:     log,
		Metrics:    collector,
		Dispatcher: pool,
	}); err != nil {
		log.Fatal("failed to init modules", zap.Error(err))
	}

	// 7. 启动服务，收到信号后优雅退出
	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info("server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("server error", zap.Error(err))
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()

	log.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("server shutdown error", zap.Error(err))
	}
}
