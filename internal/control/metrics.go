package control

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Process-wide counters mirroring the StatsLedger, grounded in the pack's
// monitoring.go gauge/counter-vec registration style. Registered once at
// package init, same as the teacher's prometheus.MustRegister in init().
var (
	txPacketsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "txengine_tx_packets_total",
		Help: "Total packets transmitted by the engine since process start.",
	})
	txBytesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "txengine_tx_bytes_total",
		Help: "Total bytes transmitted by the engine since process start.",
	})
	engineStateGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "txengine_state",
		Help: "Current engine lifecycle state (0=NotStarted, 1=Running, 2=Finished).",
	})
)

func init() {
	prometheus.MustRegister(txPacketsTotal, txBytesTotal, engineStateGauge)
}

// MetricsHandler returns the promhttp handler to mount at /metrics.
func MetricsHandler() http.Handler {
	return promhttp.Handler()
}

// LedgerObserver returns a stats.Ledger observer that mirrors its
// cumulative counters into the package's Prometheus metrics. Counters
// only ever increase, so each call adds the delta since the last
// observed totals.
func LedgerObserver() func(pkts, bytes uint64) {
	var lastPkts, lastBytes uint64
	return func(pkts, bytes uint64) {
		if pkts > lastPkts {
			txPacketsTotal.Add(float64(pkts - lastPkts))
			lastPkts = pkts
		}
		if bytes > lastBytes {
			txBytesTotal.Add(float64(bytes - lastBytes))
			lastBytes = bytes
		}
	}
}

// SetEngineState mirrors the engine's current lifecycle stage into the
// gauge, called by Server whenever it reports status.
func SetEngineState(state int32) {
	engineStateGauge.Set(float64(state))
}
