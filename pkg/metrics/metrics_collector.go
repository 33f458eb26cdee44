package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Collector 指标收集器
// 所有方法对 nil 接收者安全，测试中可直接传 nil
type Collector struct {
	// HTTP 指标
	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// 业务指标
	webhookEventsTotal  *prometheus.CounterVec
	ordersCreatedTotal  prometheus.Counter
	orderTransitions    *prometheus.CounterVec
	refundsTotal        prometheus.Counter
	payoutsCreatedTotal prometheus.Counter
	payoutAmountCents   prometheus.Counter
	payoutRejections    *prometheus.CounterVec
	gatewayAmountDrift  prometheus.Counter
	notificationsTotal  *prometheus.CounterVec
}

// NewCollector 创建指标收集器并注册到 reg
func NewCollector(reg prometheus.Registerer) *Collector {
	f := promauto.With(reg)
	return &Collector{
		httpRequestsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "endpoint", "status"},
		),
		httpRequestDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "endpoint"},
		),
		webhookEventsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "webhook_events_total",
				Help: "Gateway webhook events by type and outcome",
			},
			[]string{"event_type", "outcome"},
		),
		ordersCreatedTotal: f.NewCounter(prometheus.CounterOpts{
			Name: "orders_created_total",
			Help: "Orders created from succeeded payments",
		}),
		orderTransitions: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "order_status_transitions_total",
				Help: "Order status transitions by target status",
			},
			[]string{"status"},
		),
		refundsTotal: f.NewCounter(prometheus.CounterOpts{
			Name: "payments_refunded_total",
			Help: "Payments moved to refunded",
		}),
		payoutsCreatedTotal: f.NewCounter(prometheus.CounterOpts{
			Name: "payouts_created_total",
			Help: "Payout requests accepted",
		}),
		payoutAmountCents: f.NewCounter(prometheus.CounterOpts{
			Name: "payout_amount_cents_total",
			Help: "Sum of accepted payout amounts in minor units",
		}),
		payoutRejections: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "payout_rejections_total",
				Help: "Payout requests rejected by reason",
			},
			[]string{"reason"},
		),
		gatewayAmountDrift: f.NewCounter(prometheus.CounterOpts{
			Name: "gateway_amount_mismatch_total",
			Help: "Succeeded payments whose gateway amount differs from the cart total",
		}),
		notificationsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "notifications_total",
				Help: "Notifications by outcome",
			},
			[]string{"outcome"},
		),
	}
}

// RecordHTTPRequest 记录 HTTP 请求
func (m *Collector) RecordHTTPRequest(method, endpoint string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	m.httpRequestsTotal.WithLabelValues(method, endpoint, strconv.Itoa(status)).Inc()
	m.httpRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// ObserveWebhook outcome: processed, duplicate, ignored, rejected, failed
func (m *Collector) ObserveWebhook(eventType, outcome string) {
	if m == nil {
		return
	}
	m.webhookEventsTotal.WithLabelValues(eventType, outcome).Inc()
}

func (m *Collector) AddOrdersCreated(n int) {
	if m == nil {
		return
	}
	m.ordersCreatedTotal.Add(float64(n))
}

func (m *Collector) ObserveTransition(status string) {
	if m == nil {
		return
	}
	m.orderTransitions.WithLabelValues(status).Inc()
}

func (m *Collector) AddRefunds(n int) {
	if m == nil {
		return
	}
	m.refundsTotal.Add(float64(n))
}

func (m *Collector) ObservePayout(amountCents int64) {
	if m == nil {
		return
	}
	m.payoutsCreatedTotal.Inc()
	m.payoutAmountCents.Add(float64(amountCents))
}

func (m *Collector) ObservePayoutRejected(reason string) {
	if m == nil {
		return
	}
	m.payoutRejections.WithLabelValues(reason).Inc()
}

func (m *Collector) ObserveAmountMismatch() {
	if m == nil {
		return
	}
	m.gatewayAmountDrift.Inc()
}

func (m *Collector) ObserveNotification(outcome string) {
	if m == nil {
		return
	}
	m.notificationsTotal.WithLabelValues(outcome).Inc()
}

// GinMiddleware 记录请求数与耗时，endpoint 使用路由模板避免标签爆炸
func (m *Collector) GinMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		endpoint := c.FullPath()
		if endpoint == "" {
			endpoint = "unmatched"
		}
		m.RecordHTTPRequest(c.Request.Method, endpoint, c.Writer.Status(), time.Since(start))
	}
}
