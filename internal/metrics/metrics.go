// Registers:
//
//	tickflow_messages_total{exchange,kind}
//	tickflow_parse_errors_total{exchange,kind}
//	tickflow_reconnects_total{exchange}
//	tickflow_bus_dropped_total{kind}
//	tickflow_coalesced_flushes_total
//	tickflow_client_connections
//	go_* and process_* system metrics
//
// Exposes them on the configured address using the Prometheus HTTP handler.
package metrics

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"tickflow/logger"
)

var (
	once sync.Once

	messagesTotal     *prometheus.CounterVec
	parseErrorsTotal  *prometheus.CounterVec
	reconnectsTotal   *prometheus.CounterVec
	busDroppedTotal   *prometheus.CounterVec
	coalescedFlushes  prometheus.Counter
	clientConnections prometheus.Gauge
)

func Init(addr string) {
	once.Do(func() {
		messagesTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tickflow_messages_total",
				Help: "Number of exchange frames accepted per exchange and kind",
			},
			[]string{"exchange", "kind"},
		)
		parseErrorsTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tickflow_parse_errors_total",
				Help: "Number of frames dropped by schema validation",
			},
			[]string{"exchange", "kind"},
		)
		reconnectsTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tickflow_reconnects_total",
				Help: "Number of scheduled feed reconnects",
			},
			[]string{"exchange"},
		)
		busDroppedTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tickflow_bus_dropped_total",
				Help: "Number of bus events lost to full subscribers",
			},
			[]string{"kind"},
		)
		coalescedFlushes = prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "tickflow_coalesced_flushes_total",
				Help: "Number of throttled order book flushes sent to clients",
			},
		)
		clientConnections = prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "tickflow_client_connections",
				Help: "Currently connected downstream clients",
			},
		)

		_ = prometheus.Register(messagesTotal)
		_ = prometheus.Register(parseErrorsTotal)
		_ = prometheus.Register(reconnectsTotal)
		_ = prometheus.Register(busDroppedTotal)
		_ = prometheus.Register(coalescedFlushes)
		_ = prometheus.Register(clientConnections)
		_ = prometheus.Register(collectors.NewGoCollector())
		_ = prometheus.Register(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

		if addr == "" {
			addr = "0.0.0.0:2112"
		}
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", promhttp.Handler())
			if err := http.ListenAndServe(addr, mux); err != nil {
				logger.GetLogger().WithComponent("metrics").WithError(err).Error("metrics server stopped")
			}
		}()
	})
}

// IncMessage increases the accepted frame counter for an exchange and kind.
func IncMessage(exchange, kind string) {
	if messagesTotal != nil {
		messagesTotal.WithLabelValues(exchange, kind).Inc()
	}
	record("messages_"+exchange+"_"+kind, 1)
}

// IncParseError increases the validation failure counter.
func IncParseError(exchange, kind string) {
	if parseErrorsTotal != nil {
		parseErrorsTotal.WithLabelValues(exchange, kind).Inc()
	}
	record("parse_errors_"+exchange+"_"+kind, 1)
}

// IncReconnect increases the reconnect counter for an exchange.
func IncReconnect(exchange string) {
	if reconnectsTotal != nil {
		reconnectsTotal.WithLabelValues(exchange).Inc()
	}
	record("reconnects_"+exchange, 1)
}

// IncBusDropped increases the bus drop counter for a kind.
func IncBusDropped(kind string) {
	if busDroppedTotal != nil {
		busDroppedTotal.WithLabelValues(kind).Inc()
	}
	record("bus_dropped_"+kind, 1)
}

// IncCoalescedFlush counts one throttled order book flush.
func IncCoalescedFlush() {
	if coalescedFlushes != nil {
		coalescedFlushes.Inc()
	}
	record("coalesced_flushes", 1)
}

// SetClientConnections records the current downstream client count.
func SetClientConnections(n int) {
	if clientConnections != nil {
		clientConnections.Set(float64(n))
	}
	setGauge("client_connections", float64(n))
}
