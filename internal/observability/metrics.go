package observability

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/yungbote/buyerdesk-backend/internal/platform/envutil"
	"github.com/yungbote/buyerdesk-backend/internal/platform/logger"
)

type Metrics struct {
	registry *prometheus.Registry

	apiRequests *prometheus.CounterVec
	apiLatency  *prometheus.HistogramVec
	apiInflight prometheus.Gauge

	llmRequests *prometheus.CounterVec
	llmLatency  *prometheus.HistogramVec

	drafts           *prometheus.CounterVec
	approvals        *prometheus.CounterVec
	stageMoves       *prometheus.CounterVec
	templateAnalyses *prometheus.CounterVec
	outboundRetries  *prometheus.CounterVec
	realtimeClients  prometheus.Gauge
}

var (
	initOnce sync.Once
	instance *Metrics
)

func Enabled() bool {
	return envutil.Bool("METRICS_ENABLED", true)
}

// Current is nil until Init runs. Every method is nil-safe.
func Current() *Metrics {
	return instance
}

func Init(log *logger.Logger) *Metrics {
	initOnce.Do(func() {
		if !Enabled() {
			return
		}
		instance = New()
		if log != nil {
			log.Info("metrics initialized")
		}
	})
	return instance
}

// New builds an unshared registry. Init wraps it as the process singleton.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		apiRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "buyerdesk_http_requests_total",
			Help: "HTTP requests by method, route and status.",
		}, []string{"method", "route", "status"}),
		apiLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "buyerdesk_http_request_duration_seconds",
			Help:    "HTTP request latency.",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}, []string{"method", "route"}),
		apiInflight: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "buyerdesk_http_inflight_requests",
			Help: "HTTP requests currently being served.",
		}),
		llmRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "buyerdesk_llm_requests_total",
			Help: "Model calls by provider, call kind and outcome.",
		}, []string{"provider", "kind", "status"}),
		llmLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "buyerdesk_llm_request_duration_seconds",
			Help:    "Model call latency.",
			Buckets: []float64{0.25, 0.5, 1, 2, 5, 10, 20, 40, 90},
		}, []string{"provider", "kind"}),
		drafts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "buyerdesk_drafts_total",
			Help: "AI drafts by audience and outcome.",
		}, []string{"audience", "outcome"}),
		approvals: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "buyerdesk_approvals_total",
			Help: "Approval gate decisions.",
		}, []string{"decision"}),
		stageMoves: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "buyerdesk_stage_moves_total",
			Help: "Buyer stage moves by direction.",
		}, []string{"direction"}),
		templateAnalyses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "buyerdesk_template_analyses_total",
			Help: "Offer template analyses by final status.",
		}, []string{"status"}),
		outboundRetries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "buyerdesk_outbound_retries_total",
			Help: "Rate-limit retries of outbound calls.",
		}, []string{"target"}),
		realtimeClients: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "buyerdesk_realtime_clients",
			Help: "Connected realtime stream clients.",
		}),
	}
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.apiRequests, m.apiLatency, m.apiInflight,
		m.llmRequests, m.llmLatency,
		m.drafts, m.approvals, m.stageMoves, m.templateAnalyses, m.outboundRetries,
		m.realtimeClients,
	)
	return m
}

func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{EnableOpenMetrics: true})
}

func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

func (m *Metrics) ObserveAPI(method, route, status string, dur time.Duration) {
	if m == nil {
		return
	}
	m.apiRequests.WithLabelValues(method, route, status).Inc()
	m.apiLatency.WithLabelValues(method, route).Observe(dur.Seconds())
}

func (m *Metrics) ApiInflightInc() {
	if m == nil {
		return
	}
	m.apiInflight.Inc()
}

func (m *Metrics) ApiInflightDec() {
	if m == nil {
		return
	}
	m.apiInflight.Dec()
}

func (m *Metrics) ObserveLLMRequest(provider, kind, status string, dur time.Duration) {
	if m == nil {
		return
	}
	m.llmRequests.WithLabelValues(provider, kind, status).Inc()
	m.llmLatency.WithLabelValues(provider, kind).Observe(dur.Seconds())
}

func (m *Metrics) IncDraft(audience, outcome string) {
	if m == nil {
		return
	}
	m.drafts.WithLabelValues(audience, outcome).Inc()
}

func (m *Metrics) IncApproval(decision string) {
	if m == nil {
		return
	}
	m.approvals.WithLabelValues(decision).Inc()
}

func (m *Metrics) IncStageMove(from, to int) {
	if m == nil {
		return
	}
	direction := "forward"
	if to < from {
		direction = "back"
	}
	m.stageMoves.WithLabelValues(direction).Inc()
}

func (m *Metrics) IncTemplateAnalysis(status string) {
	if m == nil {
		return
	}
	m.templateAnalyses.WithLabelValues(status).Inc()
}

func (m *Metrics) IncOutboundRetry(target string) {
	if m == nil {
		return
	}
	m.outboundRetries.WithLabelValues(target).Inc()
}

func (m *Metrics) RealtimeClientInc() {
	if m == nil {
		return
	}
	m.realtimeClients.Inc()
}

func (m *Metrics) RealtimeClientDec() {
	if m == nil {
		return
	}
	m.realtimeClients.Dec()
}
