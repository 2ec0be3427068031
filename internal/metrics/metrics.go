// Package metrics はPrometheusのカウンタ群。
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// チェックアウト結果
const (
	ResultSuccess    = "success"
	ResultFailed     = "failed"
	ResultRejected   = "rejected" // 事前条件で失敗（台帳は呼ばない）
	ResultInProgress = "in_progress"
)

// Recorder はアプリのメトリクス
type Recorder struct {
	Registry *prometheus.Registry

	checkouts       *prometheus.CounterVec
	refreshFailures prometheus.Counter
	purchasedItems  prometheus.Counter
	searches        prometheus.Counter
	activeClients   prometheus.Gauge
}

// New は専用のレジストリに登録したRecorderを返す（テストで何度作っても衝突しない）
func New() *Recorder {
	reg := prometheus.NewRegistry()
	r := &Recorder{
		Registry: reg,
		checkouts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "moviestore",
			Name:      "checkouts_total",
			Help:      "Checkout attempts by result.",
		}, []string{"result"}),
		refreshFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "moviestore",
			Name:      "purchase_refresh_failures_total",
			Help:      "Swallowed purchase history refresh failures after a successful checkout.",
		}),
		purchasedItems: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "moviestore",
			Name:      "purchased_items_total",
			Help:      "Movies appended to purchase ledgers.",
		}),
		searches: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "moviestore",
			Name:      "search_dispatches_total",
			Help:      "Debounced search queries dispatched to the catalog.",
		}),
		activeClients: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "moviestore",
			Name:      "active_clients",
			Help:      "Client containers held in memory.",
		}),
	}

	reg.MustRegister(
		r.checkouts,
		r.refreshFailures,
		r.purchasedItems,
		r.searches,
		r.activeClients,
		collectors.NewGoCollector(),
	)
	return r
}

func (r *Recorder) Checkout(result string) {
	if r == nil {
		return
	}
	r.checkouts.WithLabelValues(result).Inc()
}

func (r *Recorder) Purchased(n int) {
	if r == nil {
		return
	}
	r.purchasedItems.Add(float64(n))
}

func (r *Recorder) RefreshFailed() {
	if r == nil {
		return
	}
	r.refreshFailures.Inc()
}

func (r *Recorder) SearchDispatched() {
	if r == nil {
		return
	}
	r.searches.Inc()
}

func (r *Recorder) SetActiveClients(n int) {
	if r == nil {
		return
	}
	r.activeClients.Set(float64(n))
}
