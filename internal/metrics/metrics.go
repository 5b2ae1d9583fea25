/**
 * Copyright 2025-present Coinbase Global, Inc.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *  http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics stores Prometheus collectors used across the service.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	ReconcileUsers        *prometheus.CounterVec
	ReconcileDrift        prometheus.Histogram
	GatewayRequests       *prometheus.CounterVec
	GatewayLatency        *prometheus.HistogramVec
	ActivationTransitions *prometheus.CounterVec
	FXLookups             *prometheus.CounterVec
	Errors                *prometheus.CounterVec
}

var (
	regOnce         sync.Once
	metricsInstance *Metrics
)

// Registry builds and registers the process-wide metrics with the default
// registerer. Later calls return the same instance whatever the namespace.
func Registry(namespace string) *Metrics {
	regOnce.Do(func() {
		metricsInstance = New(prometheus.DefaultRegisterer, namespace)
	})
	return metricsInstance
}

// New builds a metrics set registered on reg.
func New(reg prometheus.Registerer, namespace string) *Metrics {
	m := &Metrics{
		ReconcileUsers: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reconcile_users_total",
			Help:      "Users visited by the reconciliation pass, by outcome.",
		}, []string{"outcome"}),
		ReconcileDrift: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "reconcile_drift_amount",
			Help:      "Absolute difference between stored and recomputed balances that were corrected.",
			Buckets:   []float64{0.01, 0.1, 1, 5, 10, 50, 100, 500, 1000},
		}),
		GatewayRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "gateway_requests_total",
			Help:      "Total SMS gateway requests by action and status.",
		}, []string{"action", "status"}),
		GatewayLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "gateway_request_duration_seconds",
			Help:      "Latency distribution for SMS gateway requests.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"action", "status"}),
		ActivationTransitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "activation_transitions_total",
			Help:      "Activation status changes persisted, by new status.",
		}, []string{"status"}),
		FXLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fx_lookups_total",
			Help:      "Exchange rate lookups by the source that answered.",
		}, []string{"source"}),
		Errors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "errors_total",
			Help:      "Total errors grouped by component.",
		}, []string{"component"}),
	}

	reg.MustRegister(
		m.ReconcileUsers,
		m.ReconcileDrift,
		m.GatewayRequests,
		m.GatewayLatency,
		m.ActivationTransitions,
		m.FXLookups,
		m.Errors,
	)
	return m
}

func (m *Metrics) ObserveReconcile(outcome string) {
	if m == nil {
		return
	}
	m.ReconcileUsers.WithLabelValues(outcome).Inc()
}

func (m *Metrics) ObserveDrift(amount float64) {
	if m == nil {
		return
	}
	m.ReconcileDrift.Observe(amount)
}

func (m *Metrics) ObserveGateway(action, status string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.GatewayRequests.WithLabelValues(action, status).Inc()
	m.GatewayLatency.WithLabelValues(action, status).Observe(elapsed.Seconds())
}

func (m *Metrics) ObserveTransition(status string) {
	if m == nil {
		return
	}
	m.ActivationTransitions.WithLabelValues(status).Inc()
}

func (m *Metrics) ObserveFXLookup(source string) {
	if m == nil {
		return
	}
	m.FXLookups.WithLabelValues(source).Inc()
}

func (m *Metrics) IncError(component string) {
	if m == nil {
		return
	}
	m.Errors.WithLabelValues(component).Inc()
}
