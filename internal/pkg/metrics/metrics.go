package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics 服务指标
type Metrics struct {
	RequestCounter  *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
	Submissions     *prometheus.CounterVec
	Fallbacks       *prometheus.CounterVec
	ExportJobs      *prometheus.CounterVec
}

// New 创建指标并注册到 reg；reg 为 nil 时不注册
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		RequestCounter: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "feedback_tag",
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "route", "status"},
		),
		RequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "feedback_tag",
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
		Submissions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "feedback_tag",
				Name:      "submissions_total",
				Help:      "Submissions by kind (tagged, skipped, rejected)",
			},
			[]string{"kind"},
		),
		Fallbacks: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "feedback_tag",
				Name:      "store_fallbacks_total",
				Help:      "Store mutations that fell back to the alternate path",
			},
			[]string{"op", "result"},
		),
		ExportJobs: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "feedback_tag",
				Name:      "export_jobs_total",
				Help:      "Export jobs by final status",
			},
			[]string{"status"},
		),
	}

	if reg != nil {
		reg.MustRegister(m.RequestCounter, m.RequestDuration, m.Submissions, m.Fallbacks, m.ExportJobs)
	}
	return m
}

// Middleware gin 请求指标，route 取注册的路由模板
func (m *Metrics) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		m.RequestCounter.WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).Inc()
		m.RequestDuration.WithLabelValues(c.Request.Method, route).Observe(time.Since(start).Seconds())
	}
}
