// Package metrics expone métricas Prometheus del ledger y del servidor HTTP.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jhoicas/storeflow-api/internal/application/ledger"
	"github.com/jhoicas/storeflow-api/internal/domain/entity"
)

var _ ledger.Metrics = (*Prometheus)(nil)

// Prometheus colectores de la aplicación registrados en un registry propio.
type Prometheus struct {
	registry *prometheus.Registry

	movementsTotal   *prometheus.CounterVec
	movementDuration *prometheus.HistogramVec
	rejectedTotal    *prometheus.CounterVec
	conflictRetries  *prometheus.CounterVec
	httpRequests     *prometheus.CounterVec
	httpDuration     *prometheus.HistogramVec
	feedSubscribers  prometheus.Gauge
}

// New crea y registra los colectores (más los de Go y del proceso).
func New() *Prometheus {
	reg := prometheus.NewRegistry()
	p := &Prometheus{
		registry: reg,
		movementsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "inventory_movements_total",
			Help: "Movimientos confirmados en el ledger",
		}, []string{"kind"}),
		movementDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "inventory_movement_duration_seconds",
			Help:    "Duración de la transacción del movimiento, reintentos incluidos",
			Buckets: prometheus.DefBuckets,
		}, []string{"kind"}),
		rejectedTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "inventory_movements_rejected_total",
			Help: "Movimientos rechazados por motivo",
		}, []string{"kind", "reason"}),
		conflictRetries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "inventory_write_conflict_retries_total",
			Help: "Transacciones repetidas por conflicto de escritura",
		}, []string{"kind"}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Peticiones HTTP por ruta y código",
		}, []string{"method", "route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duración de las peticiones HTTP",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
		feedSubscribers: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "inventory_feed_stream_subscribers",
			Help: "Clientes conectados al stream del feed",
		}),
	}
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		p.movementsTotal, p.movementDuration, p.rejectedTotal, p.conflictRetries,
		p.httpRequests, p.httpDuration, p.feedSubscribers,
	)
	return p
}

// Registry devuelve el registry (tests y handler).
func (p *Prometheus) Registry() *prometheus.Registry { return p.registry }

// Handler http.Handler para /metrics.
func (p *Prometheus) Handler() http.Handler {
	return promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{})
}

// MovementRecorded implementa ledger.Metrics.
func (p *Prometheus) MovementRecorded(kind entity.MovementKind, d time.Duration) {
	p.movementsTotal.WithLabelValues(string(kind)).Inc()
	p.movementDuration.WithLabelValues(string(kind)).Observe(d.Seconds())
}

// MovementRejected implementa ledger.Metrics.
func (p *Prometheus) MovementRejected(kind entity.MovementKind, reason string) {
	p.rejectedTotal.WithLabelValues(string(kind), reason).Inc()
}

// ConflictRetried implementa ledger.Metrics.
func (p *Prometheus) ConflictRetried(kind entity.MovementKind) {
	p.conflictRetries.WithLabelValues(string(kind)).Inc()
}

// ObserveHTTP registra una petición. route es el patrón (/api/products/:id), no la URL.
func (p *Prometheus) ObserveHTTP(method, route string, status int, d time.Duration) {
	p.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	p.httpDuration.WithLabelValues(method, route).Observe(d.Seconds())
}

// StreamOpened y StreamClosed cuentan clientes del stream SSE.
func (p *Prometheus) StreamOpened() { p.feedSubscribers.Inc() }
func (p *Prometheus) StreamClosed() { p.feedSubscribers.Dec() }
