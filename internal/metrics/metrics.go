package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// 入账结果标签
const (
	ResultSuccess = "success"
	ResultSynced  = "already_synced"
	ResultFailed  = "failed"
)

var (
	ReconcileTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "reconcile_total",
		Help: "Settlement reconcile attempts by result and failure kind",
	}, []string{"result", "kind"})

	ReconcileDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "reconcile_duration_seconds",
		Help:    "Duration of one reconcile attempt",
		Buckets: prometheus.DefBuckets,
	})

	TokensCredited = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tokens_credited_total",
		Help: "Tokens added to user balances",
	})

	PaymentNotifyTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "payment_notify_total",
		Help: "Gateway notifications by handling result",
	}, []string{"result"})

	HTTPServerDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_server_duration_seconds",
		Help:    "HTTP server request duration",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route", "status"})
)

// ObserveReconcile kind 为空表示成功
func ObserveReconcile(result, kind string, d time.Duration) {
	ReconcileTotal.WithLabelValues(result, kind).Inc()
	ReconcileDuration.Observe(d.Seconds())
}
