package metrics

import (
	"net/http"
	"sync"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "quire"

// PrometheusRecorder implements Recorder using Prometheus metrics.
type PrometheusRecorder struct {
	once            sync.Once
	reg             *prom.Registry
	stageDuration   *prom.HistogramVec
	compileDuration prom.Histogram
	compileOutcome  *prom.CounterVec
	cacheResults    *prom.CounterVec
	cacheBytes      *prom.GaugeVec
	queueWaiting    prom.Gauge
	queueRunning    prom.Gauge
	embedResults    *prom.CounterVec
}

// NewPrometheusRecorder constructs and registers the metrics on reg. A nil
// reg gets a fresh registry.
func NewPrometheusRecorder(reg *prom.Registry) *PrometheusRecorder {
	if reg == nil {
		reg = prom.NewRegistry()
	}
	pr := &PrometheusRecorder{reg: reg}
	pr.once.Do(func() {
		pr.stageDuration = prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: namespace,
			Name:      "stage_duration_seconds",
			Help:      "Duration of individual pipeline stages",
			Buckets:   prom.ExponentialBuckets(0.0001, 4, 8),
		}, []string{"stage"})
		pr.compileDuration = prom.NewHistogram(prom.HistogramOpts{
			Namespace: namespace,
			Name:      "compile_duration_seconds",
			Help:      "Total document compilation duration",
			Buckets:   prom.DefBuckets,
		})
		pr.compileOutcome = prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "compile_outcomes_total",
			Help:      "Compilations by outcome",
		}, []string{"outcome"})
		pr.cacheResults = prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "cache_lookups_total",
			Help:      "Cache lookups by cache and result",
		}, []string{"cache", "result"})
		pr.cacheBytes = prom.NewGaugeVec(prom.GaugeOpts{
			Namespace: namespace,
			Name:      "cache_bytes",
			Help:      "Approximate bytes held by each cache",
		}, []string{"cache"})
		pr.queueWaiting = prom.NewGauge(prom.GaugeOpts{
			Namespace: namespace,
			Name:      "queue_waiting",
			Help:      "Compilations waiting for a bundler slot",
		})
		pr.queueRunning = prom.NewGauge(prom.GaugeOpts{
			Namespace: namespace,
			Name:      "queue_running",
			Help:      "Compilations holding a bundler slot",
		})
		pr.embedResults = prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "embed_results_total",
			Help:      "Embed resolutions by provider and result",
		}, []string{"provider", "result"})
		reg.MustRegister(pr.stageDuration, pr.compileDuration, pr.compileOutcome,
			pr.cacheResults, pr.cacheBytes, pr.queueWaiting, pr.queueRunning, pr.embedResults)
	})
	return pr
}

// Handler serves the registry in the Prometheus exposition format.
func (p *PrometheusRecorder) Handler() http.Handler {
	return promhttp.HandlerFor(p.reg, promhttp.HandlerOpts{EnableOpenMetrics: true})
}

func (p *PrometheusRecorder) ObserveStageDuration(stage string, d time.Duration) {
	if p == nil || p.stageDuration == nil {
		return
	}
	p.stageDuration.WithLabelValues(stage).Observe(d.Seconds())
}

func (p *PrometheusRecorder) ObserveCompileDuration(d time.Duration) {
	if p == nil || p.compileDuration == nil {
		return
	}
	p.compileDuration.Observe(d.Seconds())
}

func (p *PrometheusRecorder) IncCompileOutcome(outcome Outcome) {
	if p == nil || p.compileOutcome == nil {
		return
	}
	p.compileOutcome.WithLabelValues(string(outcome)).Inc()
}

func (p *PrometheusRecorder) IncCacheResult(cache string, hit bool) {
	if p == nil || p.cacheResults == nil {
		return
	}
	p.cacheResults.WithLabelValues(cache, resultLabel(hit, "hit", "miss")).Inc()
}

func (p *PrometheusRecorder) SetCacheBytes(cache string, bytes int) {
	if p == nil || p.cacheBytes == nil {
		return
	}
	p.cacheBytes.WithLabelValues(cache).Set(float64(bytes))
}

func (p *PrometheusRecorder) SetQueueDepth(waiting, running int) {
	if p == nil || p.queueWaiting == nil {
		return
	}
	p.queueWaiting.Set(float64(waiting))
	p.queueRunning.Set(float64(running))
}

func (p *PrometheusRecorder) IncEmbedResult(provider string, ok bool) {
	if p == nil || p.embedResults == nil {
		return
	}
	p.embedResults.WithLabelValues(provider, resultLabel(ok, "success", "failed")).Inc()
}

func resultLabel(ok bool, yes, no string) string {
	if ok {
		return yes
	}
	return no
}
