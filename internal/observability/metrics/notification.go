package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// NotificationMetrics contains Prometheus metrics for outcome notifications.
type NotificationMetrics struct {
	ProviderDeliveriesTotal   *prometheus.CounterVec   // deliveries by provider, notification type, status
	ProviderDeliveryDuration  *prometheus.HistogramVec // latency by provider
	NotificationDispatchTotal prometheus.Counter       // notifications handed to the dispatcher

	registry *prometheus.Registry
}

// NewNotificationMetrics creates and registers NotificationMetrics on registry.
func NewNotificationMetrics(registry *prometheus.Registry) (*NotificationMetrics, error) {
	m := &NotificationMetrics{registry: registry}
	m.initMetrics()
	if err := registry.Register(m); err != nil {
		return nil, fmt.Errorf("failed to register notification metrics: %w", err)
	}
	return m, nil
}

func (m *NotificationMetrics) initMetrics() {
	m.ProviderDeliveriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sheetreview_notification_deliveries_total",
			Help: "Notification delivery attempts by provider, notification type and status",
		},
		[]string{"provider", "notification_type", "status"}, // status: success, error
	)

	m.ProviderDeliveryDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "sheetreview_notification_delivery_duration_seconds",
			Help:    "Time taken to deliver a notification by provider",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1.0, 2.0, 5.0, 10.0},
		},
		[]string{"provider"},
	)

	m.NotificationDispatchTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "sheetreview_notification_dispatch_total",
			Help: "Total number of notifications dispatched",
		},
	)
}

// RecordDelivery records a delivery attempt. Safe on a nil receiver.
func (m *NotificationMetrics) RecordDelivery(provider, notificationType, status string, duration time.Duration) {
	if m == nil {
		return
	}
	m.ProviderDeliveriesTotal.WithLabelValues(provider, notificationType, status).Inc()
	m.ProviderDeliveryDuration.WithLabelValues(provider).Observe(duration.Seconds())
}

// IncrementDispatchTotal counts a dispatched notification. Safe on a nil receiver.
func (m *NotificationMetrics) IncrementDispatchTotal() {
	if m == nil {
		return
	}
	m.NotificationDispatchTotal.Inc()
}

// Describe implements the prometheus.Collector interface.
func (m *NotificationMetrics) Describe(ch chan<- *prometheus.Desc) {
	m.ProviderDeliveriesTotal.Describe(ch)
	m.ProviderDeliveryDuration.Describe(ch)
	m.NotificationDispatchTotal.Describe(ch)
}

// Collect implements the prometheus.Collector interface.
func (m *NotificationMetrics) Collect(ch chan<- prometheus.Metric) {
	m.ProviderDeliveriesTotal.Collect(ch)
	m.ProviderDeliveryDuration.Collect(ch)
	m.NotificationDispatchTotal.Collect(ch)
}
