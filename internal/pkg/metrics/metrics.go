package metrics

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus collectors of the service
type Metrics struct {
	// HTTP metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// Tier policy metrics
	QuotaChecksTotal       *prometheus.CounterVec
	FeatureRejectionsTotal *prometheus.CounterVec

	// Background metrics
	JobsTotal       *prometheus.CounterVec
	JobDuration     *prometheus.HistogramVec
	EmailsSentTotal *prometheus.CounterVec
	WebhooksTotal   *prometheus.CounterVec
}

var (
	registry = prometheus.NewRegistry()
	Default  = New(registry)
)

// New creates and registers all collectors on reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "assettracer_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "route", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "assettracer_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
		QuotaChecksTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "assettracer_quota_checks_total",
				Help: "Quota checks by tier, resource and outcome",
			},
			[]string{"tier", "resource", "allowed"},
		),
		FeatureRejectionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "assettracer_feature_rejections_total",
				Help: "Requests rejected because the tier lacks a feature",
			},
			[]string{"tier", "feature"},
		),
		JobsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "assettracer_jobs_total",
				Help: "Background jobs by type and final status",
			},
			[]string{"type", "status"},
		),
		JobDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "assettracer_job_duration_seconds",
				Help:    "Background job duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"type"},
		),
		EmailsSentTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "assettracer_emails_sent_total",
				Help: "Emails handed to the mail provider",
			},
			[]string{"provider", "status"},
		),
		WebhooksTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "assettracer_billing_webhooks_total",
				Help: "Billing webhooks by provider and outcome",
			},
			[]string{"provider", "outcome"},
		),
	}

	reg.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.QuotaChecksTotal,
		m.FeatureRejectionsTotal,
		m.JobsTotal,
		m.JobDuration,
		m.EmailsSentTotal,
		m.WebhooksTotal,
	)
	return m
}

func init() {
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
}

// Registry exposes the default registry.
func Registry() *prometheus.Registry {
	return registry
}

// Handler serves the default registry in the Prometheus text format.
func Handler() fiber.Handler {
	return adaptor.HTTPHandler(promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
}

// Middleware records request counts and latency. The route label is the
// matched route pattern so ids do not explode cardinality.
func (m *Metrics) Middleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()

		status := c.Response().StatusCode()
		if err != nil {
			if fe, ok := err.(*fiber.Error); ok {
				status = fe.Code
			} else {
				status = fiber.StatusInternalServerError
			}
		}
		route := c.Route().Path
		m.HTTPRequestsTotal.WithLabelValues(c.Method(), route, strconv.Itoa(status)).Inc()
		m.HTTPRequestDuration.WithLabelValues(c.Method(), route).Observe(time.Since(start).Seconds())
		return err
	}
}

// ObserveQuota counts one quota decision.
func ObserveQuota(tier, resource string, allowed bool) {
	Default.QuotaChecksTotal.WithLabelValues(tier, resource, strconv.FormatBool(allowed)).Inc()
}

// ObserveFeatureRejection counts one request refused for a missing feature.
func ObserveFeatureRejection(tier, feature string) {
	Default.FeatureRejectionsTotal.WithLabelValues(tier, feature).Inc()
}

// ObserveJob counts a finished job.
func ObserveJob(jobType, status string, took time.Duration) {
	Default.JobsTotal.WithLabelValues(jobType, status).Inc()
	Default.JobDuration.WithLabelValues(jobType).Observe(took.Seconds())
}

// ObserveEmail counts a delivery attempt.
func ObserveEmail(provider string, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	Default.EmailsSentTotal.WithLabelValues(provider, status).Inc()
}

// ObserveWebhook counts a billing webhook outcome.
func ObserveWebhook(provider, outcome string) {
	Default.WebhooksTotal.WithLabelValues(provider, outcome).Inc()
}
