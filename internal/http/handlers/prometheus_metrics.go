package handlers

import (
	"bytes"
	"strings"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/prometheus/common/expfmt"
	"github.com/valyala/fasthttp"
)

const metricsNamespace = "medadherence"

var (
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests served, by method and status class.",
		},
		[]string{"method", "status"},
	)
	predictionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "predictions_total",
			Help:      "Risk predictions made, by risk level.",
		},
		[]string{"risk_level"},
	)
	adherenceProbability = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Name:      "adherence_probability",
			Help:      "Distribution of predicted adherence probabilities.",
			Buckets:   prometheus.LinearBuckets(0.1, 0.1, 9),
		},
	)
	reportsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "reports_total",
			Help:      "Reports assembled, by kind (report, analytics, dashboard, stats).",
		},
		[]string{"kind"},
	)
	reportEvents = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Name:      "report_events",
			Help:      "Number of dose events per assembled report.",
			Buckets:   prometheus.ExponentialBuckets(1, 4, 8),
		},
	)
	dosesIngestedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "doses_ingested_total",
			Help:      "Dose logs stored, by status.",
		},
		[]string{"status"},
	)
	snapshotsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "report_snapshots_total",
			Help:      "Report snapshots written by the snapshot worker.",
		},
	)

	registerOnce sync.Once
)

// InitPrometheusMetrics registers the service collectors with the default registry.
// Safe to call more than once.
func InitPrometheusMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			httpRequestsTotal,
			predictionsTotal,
			adherenceProbability,
			reportsTotal,
			reportEvents,
			dosesIngestedTotal,
			snapshotsTotal,
		)
	})
}

// ObserveSnapshots is the snapshot worker's callback.
func ObserveSnapshots(n int) {
	snapshotsTotal.Add(float64(n))
}

// MetricsHandler exposes the default gatherer in text format. An optional "prefix"
// query argument keeps only metric families whose name starts with it.
func MetricsHandler(gatherer prometheus.Gatherer) fasthttp.RequestHandler {
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	return func(ctx *fasthttp.RequestCtx) {
		metricFamilies, err := gatherer.Gather()
		if err != nil {
			ctx.SetStatusCode(fasthttp.StatusInternalServerError)
			ctx.SetBodyString("failed to gather metrics")
			return
		}

		prefix := string(ctx.QueryArgs().Peek("prefix"))
		filtered := make([]*dto.MetricFamily, 0, len(metricFamilies))
		for _, mf := range metricFamilies {
			if prefix != "" && !strings.HasPrefix(mf.GetName(), prefix) {
				continue
			}
			filtered = append(filtered, mf)
		}

		var buf bytes.Buffer
		format := expfmt.NewFormat(expfmt.TypeTextPlain)
		encoder := expfmt.NewEncoder(&buf, format)
		for _, mf := range filtered {
			if err := encoder.Encode(mf); err != nil {
				ctx.SetStatusCode(fasthttp.StatusInternalServerError)
				ctx.SetBodyString("failed to encode metrics")
				return
			}
		}

		ctx.SetContentType(string(format))
		ctx.Response.Header.Set("Cache-Control", "no-store")
		ctx.SetBody(buf.Bytes())
	}
}
