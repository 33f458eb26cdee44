package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestNilCollectorIsSafe(t *testing.T) {
	var m *Collector
	assert.NotPanics(t, func() {
		m.ObserveWebhook("payment_intent.succeeded", "processed")
		m.AddOrdersCreated(2)
		m.ObservePayout(1000)
		m.ObserveNotification("sent")
	})
}

func TestCollectorCounts(t *testing.T) {
	m := NewCollector(prometheus.NewRegistry())

	m.ObserveWebhook("charge.refunded", "duplicate")
	m.ObserveWebhook("charge.refunded", "duplicate")
	m.AddOrdersCreated(2)
	m.ObservePayout(1500)

	assert.Equal(t, float64(2), testutil.ToFloat64(m.webhookEventsTotal.WithLabelValues("charge.refunded", "duplicate")))
	assert.Equal(t, float64(2), testutil.ToFloat64(m.ordersCreatedTotal))
	assert.Equal(t, float64(1500), testutil.ToFloat64(m.payoutAmountCents))
}

func TestGinMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	m := NewCollector(prometheus.NewRegistry())

	r := gin.New()
	r.Use(m.GinMiddleware())
	r.GET("/orders/:id", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/orders/abc", nil))

	assert.Equal(t, float64(1), testutil.ToFloat64(m.httpRequestsTotal.WithLabelValues("GET", "/orders/:id", "200")))
}
