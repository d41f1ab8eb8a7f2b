package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// PrometheusCollector implementa domain.MetricsCollector usando Prometheus
type PrometheusCollector struct {
	actionCounter       *prometheus.CounterVec
	actionLatency       *prometheus.HistogramVec
	tokenRefreshCounter *prometheus.CounterVec
	errorCounter        *prometheus.CounterVec
}

func NewPrometheusCollector() *PrometheusCollector {
	return &PrometheusCollector{
		// Contador de ações do gateway por resultado
		actionCounter: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "boleto_gateway_actions_total",
				Help: "Total de ações processadas pelo gateway de boletos",
			},
			[]string{"action", "result"},
		),

		// Histograma de latência por ação
		actionLatency: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "boleto_gateway_action_duration_seconds",
				Help:    "Duração das ações do gateway em segundos",
				Buckets: prometheus.ExponentialBuckets(0.001, 2, 15), // 1ms a ~32s
			},
			[]string{"action"},
		),

		// Contador de renovações de token OAuth
		tokenRefreshCounter: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "boleto_gateway_token_refresh_total",
				Help: "Total de renovações de token no banco parceiro",
			},
			[]string{"result"},
		),

		// Contador de erros por tipo
		errorCounter: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "boleto_gateway_errors_total",
				Help: "Total de erros por tipo",
			},
			[]string{"error_type"},
		),
	}
}

// IncrementActionCounter incrementa o contador de ações
func (c *PrometheusCollector) IncrementActionCounter(action, result string) {
	c.actionCounter.WithLabelValues(action, result).Inc()
}

// RecordActionLatency registra a latência de uma ação
func (c *PrometheusCollector) RecordActionLatency(action string, duration float64) {
	c.actionLatency.WithLabelValues(action).Observe(duration)
}

// IncrementTokenRefreshCounter incrementa o contador de refresh de token
func (c *PrometheusCollector) IncrementTokenRefreshCounter(result string) {
	c.tokenRefreshCounter.WithLabelValues(result).Inc()
}

// IncrementErrorCounter incrementa o contador de erros
func (c *PrometheusCollector) IncrementErrorCounter(errorType string) {
	c.errorCounter.WithLabelValues(errorType).Inc()
}
